// Package event defines the envelope every actor in a game instance exchanges.
//
// Events flow down the actor tree (host → orchestrator → daily session →
// cartridge) and results flow back up as events too. Routing between layers is
// decided by type prefix only; the prefix table lives in routing.go so it can be
// inspected and tested on its own.
package event
