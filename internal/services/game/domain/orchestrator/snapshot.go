package orchestrator

import (
	"fmt"
	"math/rand/v2"

	"github.com/louisbranch/pecking-order/internal/services/game/domain/postgame"
	"github.com/louisbranch/pecking-order/internal/services/game/domain/session"
)

// SnapshotVersion is bumped when the snapshot layout changes incompatibly.
const SnapshotVersion = 1

// Snapshot is the whole actor tree as a serializable value.
type Snapshot struct {
	Version  int               `json:"version"`
	State    State             `json:"state"`
	Context  Context           `json:"context"`
	Session  *session.Snapshot `json:"session,omitempty"`
	PostGame *postgame.Actor   `json:"postGame,omitempty"`
	Rand     []byte            `json:"rand"`
}

// RestoreStatus tells the host how a restore went.
type RestoreStatus string

const (
	RestoreOK RestoreStatus = "OK"
	// RestoreReset means the snapshot was inconsistent and a blank
	// orchestrator was returned instead.
	RestoreReset RestoreStatus = "RESET"
)

// Snapshot serializes the orchestrator and its child.
func (o *Orchestrator) Snapshot() (Snapshot, error) {
	rng, err := o.pcg.MarshalBinary()
	if err != nil {
		return Snapshot{}, fmt.Errorf("snapshot rand: %w", err)
	}
	snap := Snapshot{
		Version:  SnapshotVersion,
		State:    o.state,
		Context:  o.Context(),
		PostGame: o.post,
		Rand:     rng,
	}
	if o.session != nil {
		s, err := o.session.Snapshot()
		if err != nil {
			return Snapshot{}, err
		}
		snap.Session = &s
	}
	return snap, nil
}

// Restore rebuilds an orchestrator. A snapshot whose state implies a child
// that is missing is treated as corrupt: a blank orchestrator is returned and
// the loss is logged at error level.
func Restore(snap Snapshot, opts Options) (*Orchestrator, RestoreStatus) {
	o := New(opts)
	if problem := validate(snap); problem != "" {
		o.log.Error().
			Str("game_id", snap.Context.GameID).
			Str("state", string(snap.State)).
			Str("problem", problem).
			Msg("corrupt snapshot discarded, starting from a blank game")
		return o, RestoreReset
	}

	o.state = snap.State
	o.ctx = snap.Context
	o.log = o.log.With().Str("game_id", snap.Context.GameID).Logger()
	if len(snap.Rand) > 0 {
		pcg := &rand.PCG{}
		if err := pcg.UnmarshalBinary(snap.Rand); err != nil {
			o.log.Warn().Err(err).Msg("rand state not restored, reseeding")
		} else {
			o.pcg = pcg
			o.rng = rand.New(pcg)
		}
	}
	if snap.Session != nil {
		o.session = session.Restore(*snap.Session, o.sessionOptions())
	}
	if snap.PostGame != nil {
		o.post = snap.PostGame
		o.post.SetIDSource(o.newID)
	}
	return o, RestoreOK
}

func validate(snap Snapshot) string {
	if snap.Version != SnapshotVersion {
		return fmt.Sprintf("unsupported version %d", snap.Version)
	}
	switch snap.State {
	case StateUninitialized:
		return ""
	case StatePreGame, StateNightSummary, StateGameOver:
	case StateRunning:
		if snap.Session == nil {
			return "running without a daily session"
		}
	case StateGameSummary:
		if snap.PostGame == nil {
			return "game summary without a post-game actor"
		}
	default:
		return "unknown state"
	}
	if snap.Context.GameID == "" || len(snap.Context.Roster) == 0 || len(snap.Context.Manifest.Days) == 0 {
		return "context is incomplete"
	}
	return ""
}
