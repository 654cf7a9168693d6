// Package session implements the Daily Session: one calendar day hosting
// three parallel regions.
//
// The Social region evaluates chat, DM, silver and perk requests through the
// social deciders. The Main Stage moves between group chat, the daily game
// and voting, hosting at most one game or vote cartridge at a time. The
// Activity Layer hosts at most one prompt cartridge and is reachable from
// every Main Stage sub-state.
//
// A session never mutates the authoritative roster. Accepted actions leave
// as FACT.RECORD events, cartridge outcomes leave as CARTRIDGE.*_RESULT
// events, and the parent folds them.
package session
