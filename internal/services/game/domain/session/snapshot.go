package session

import (
	"fmt"
	"time"

	"github.com/louisbranch/pecking-order/internal/services/game/domain/cartridge"
	"github.com/louisbranch/pecking-order/internal/services/game/domain/manifest"
	"github.com/louisbranch/pecking-order/internal/services/game/domain/roster"
	"github.com/louisbranch/pecking-order/internal/services/game/domain/social"
)

// Snapshot is the serialized form of a session and its live cartridges.
type Snapshot struct {
	DayIndex   int                  `json:"dayIndex"`
	Day        manifest.DayConfig   `json:"day"`
	Roster     roster.Roster        `json:"roster"`
	Social     *social.State        `json:"social"`
	Stage      Stage                `json:"stage"`
	Cartridges []cartridge.Snapshot `json:"cartridges,omitempty"`
	Ended      bool                 `json:"ended,omitempty"`
	EndReason  string               `json:"endReason,omitempty"`
}

// Snapshot serializes the session.
func (s *Session) Snapshot() (Snapshot, error) {
	snap := Snapshot{
		DayIndex:  s.dayIndex,
		Day:       s.day,
		Roster:    s.roster.Clone(),
		Social:    s.social,
		Stage:     s.stage,
		Ended:     s.ended,
		EndReason: s.endReason,
	}
	for _, kind := range s.liveKinds() {
		cs, err := cartridge.Save(s.slots[kind])
		if err != nil {
			return Snapshot{}, fmt.Errorf("snapshot session day %d: %w", s.dayIndex, err)
		}
		snap.Cartridges = append(snap.Cartridges, cs)
	}
	return snap, nil
}

// Restore rebuilds a session. A cartridge that cannot be restored is dropped
// and logged; its Main Stage slot returns to group chat.
func Restore(snap Snapshot, opts Options) *Session {
	s := newSession(opts)
	s.dayIndex = snap.DayIndex
	s.day = snap.Day
	s.roster = snap.Roster.Clone()
	s.social = snap.Social
	if s.social == nil {
		s.log.Error().Int("day", snap.DayIndex).Msg("session snapshot without social state, starting empty")
		s.social = social.NewState(social.DefaultLimits(snap.Day.DMCharsPerPlayer, snap.Day.DMPartnersPerPlayer), nil, time.Time{})
	}
	s.ended = snap.Ended
	s.endReason = snap.EndReason

	for _, cs := range snap.Cartridges {
		if s.registry == nil {
			s.log.Error().Msg("no cartridge registry to restore into")
			break
		}
		a, err := s.registry.Restore(cs)
		if err != nil {
			s.log.Error().Err(err).Msg("cartridge dropped on restore")
			continue
		}
		s.slots[cs.Kind] = a
	}
	s.reconcileStage()
	return s
}

// reconcileStage keeps the Main Stage sub-state consistent with the slots.
func (s *Session) reconcileStage() {
	switch {
	case s.slots[cartridge.KindGame] != nil:
		s.stage = StageDailyGame
	case s.slots[cartridge.KindVoting] != nil:
		s.stage = StageVoting
	default:
		s.stage = StageGroupChat
	}
}
