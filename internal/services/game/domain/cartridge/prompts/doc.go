// Package prompts implements the social prompt activities.
//
// PLAYER_PICK, PREDICTION, WOULD_YOU_RATHER and HOT_TAKE are single-phase:
// players submit once and the prompt resolves on close or when everyone has
// answered. CONFESSION and GUESS_WHO collect anonymous text first and then
// run a second phase over the anonymized entries. Their projections never
// carry authorship before the results phase.
package prompts
