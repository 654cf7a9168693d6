// Package social implements the Social region of the daily session: chat,
// direct messages, group DMs, silver transfers and perks.
//
// Every request passes through a single decider that either accepts it as a
// list of facts or rejects it with one reason code. Rejected requests touch
// nothing. Accepted facts are folded into State by Apply and relayed to the
// orchestrator, which folds the same facts into the roster.
package social
