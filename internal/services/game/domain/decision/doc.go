// Package decision defines the pure outcome of evaluating a player request.
//
// Deciders in the social region and in cartridges never mutate state while
// evaluating; they return either accepted events or typed rejections. A
// rejection is an expected, user-facing value, not an error: it carries a
// stable reason code and is delivered only to the acting player.
package decision
