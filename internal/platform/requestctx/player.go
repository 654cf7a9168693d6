// Package requestctx carries verified caller identity through request
// contexts.
package requestctx

import "context"

// playerContextKey is the context key for a verified player identity.
type playerContextKey struct{}

// Player identifies one seat in one game.
type Player struct {
	GameID   string
	PlayerID string
}

// WithPlayer stores a verified player identity in context.
func WithPlayer(ctx context.Context, p Player) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, playerContextKey{}, p)
}

// PlayerFromContext returns the player identity stored in context.
func PlayerFromContext(ctx context.Context) (Player, bool) {
	if ctx == nil {
		return Player{}, false
	}
	p, ok := ctx.Value(playerContextKey{}).(Player)
	return p, ok && p.GameID != "" && p.PlayerID != ""
}
