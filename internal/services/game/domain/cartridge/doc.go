// Package cartridge defines the contract shared by every spawnable sub-game:
// votes, daily games and prompts.
//
// A cartridge is a self-contained state machine. It is constructed from a
// read-only roster snapshot, accepts events addressed to its mechanism, and
// resolves to a single terminal Result. It never writes to the roster; every
// intended effect leaves as a FACT.RECORD event or as its Result.
//
// Cartridges hold no clocks or goroutines. The hosting session passes an Env
// carrying the current time, a PRNG and a fresh roster copy into every call,
// and drives timers through Advance. Each concrete cartridge state is a plain
// JSON value so the whole tree can be snapshotted and restored.
package cartridge
