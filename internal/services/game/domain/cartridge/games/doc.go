// Package games implements the daily game mechanisms.
//
// REALTIME_TRIVIA is synchronous: every alive player answers the same timed
// round and the round resolves once everyone answered or its window elapsed.
// TRIVIA is asynchronous: each player starts on demand, gets a private
// shuffled question set and a per-question timer, and is credited as soon as
// they finish.
//
// A correct answer pays a base reward plus a speed bonus that shrinks
// linearly over the answer window. A perfect score adds a flat bonus. Timers
// are fired by Advance, which the session always runs before Handle, so an
// expired window wins over a late answer.
package games
