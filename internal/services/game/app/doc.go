// Package app hosts running games.
//
// A Host owns one orchestrator and serializes every event through a single
// goroutine. It interprets the effects the orchestrator returns: audited
// facts go to the journal, timers become wakeups, spy queries are answered
// asynchronously, and every connected player gets a fresh view when theirs
// changed. A Manager keys hosts by game id and restores them from the
// snapshot store. The HTTP surface (player WebSocket and admin API) lives in
// server.go.
package app
