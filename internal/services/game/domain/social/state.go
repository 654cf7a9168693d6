package social

import (
	"time"

	"github.com/louisbranch/pecking-order/internal/services/game/domain/economy"
	"github.com/louisbranch/pecking-order/internal/services/game/domain/fact"
)

// Daily quotas.
const (
	MaxChatLog            = 50
	MaxContentLength      = 280
	DefaultDMCharsPerDay  = 1200
	DefaultPartnersPerDay = 3
	DefaultGroupDMsPerDay = 3
	MinGroupMembers       = 3
)

// Limits are the base daily DM quotas.
type Limits struct {
	CharsPerDay    int `json:"charsPerDay"`
	PartnersPerDay int `json:"partnersPerDay"`
	GroupsPerDay   int `json:"groupsPerDay"`
}

// DefaultLimits returns the base quotas, overriding chars and partners when
// the day config sets them.
func DefaultLimits(chars, partners int) Limits {
	l := Limits{
		CharsPerDay:    DefaultDMCharsPerDay,
		PartnersPerDay: DefaultPartnersPerDay,
		GroupsPerDay:   DefaultGroupDMsPerDay,
	}
	if chars > 0 {
		l.CharsPerDay = chars
	}
	if partners > 0 {
		l.PartnersPerDay = partners
	}
	return l
}

// Usage tracks one player's DM consumption for the day.
type Usage struct {
	CharsUsed     int      `json:"charsUsed"`
	Partners      []string `json:"partners,omitempty"`
	GroupsCreated int      `json:"groupsCreated"`
}

// Overrides are quota extensions bought with perks.
type Overrides struct {
	ExtraPartners int `json:"extraPartners,omitempty"`
	ExtraChars    int `json:"extraChars,omitempty"`
}

// State is the Social region's day-scoped state.
type State struct {
	GroupChatOpen bool                 `json:"groupChatOpen"`
	DMsOpen       bool                 `json:"dmsOpen"`
	Limits        Limits               `json:"limits"`
	Channels      map[string]Channel   `json:"channels"`
	ChatLog       []ChatMessage        `json:"chatLog"`
	Usage         map[string]Usage     `json:"usage"`
	Perks         map[string]Overrides `json:"perks"`
}

// NewState builds the state for a new day, carrying over chatLog.
func NewState(limits Limits, chatLog []ChatMessage, now time.Time) *State {
	s := &State{
		Limits:   limits,
		Channels: map[string]Channel{},
		Usage:    map[string]Usage{},
		Perks:    map[string]Overrides{},
	}
	s.Channels[MainChannelID] = Channel{
		ID:           MainChannelID,
		Type:         ChannelMain,
		CreatedAt:    now,
		Capabilities: []string{CapabilityChat},
	}
	for _, m := range chatLog {
		s.appendMessage(m)
	}
	return s
}

// CharLimit returns the player's effective character budget.
func (s *State) CharLimit(id string) int {
	return s.Limits.CharsPerDay + s.Perks[id].ExtraChars
}

// PartnerLimit returns the player's effective DM partner budget.
func (s *State) PartnerLimit(id string) int {
	return s.Limits.PartnersPerDay + s.Perks[id].ExtraPartners
}

// Apply folds an accepted fact into the social state. Facts that do not
// concern the social region are ignored.
func (s *State) Apply(f fact.Fact) {
	switch f.Type {
	case fact.TypeChatMsg:
		p, err := fact.Decode[fact.ChatMsgPayload](f)
		if err != nil {
			return
		}
		s.appendMessage(ChatMessage{ID: p.MessageID, SenderID: f.ActorID, Timestamp: f.Timestamp, Content: p.Content, ChannelID: p.ChannelID})

	case fact.TypeDMSent:
		p, err := fact.Decode[fact.DMSentPayload](f)
		if err != nil {
			return
		}
		s.appendMessage(ChatMessage{ID: p.MessageID, SenderID: f.ActorID, Timestamp: f.Timestamp, Content: p.Content, ChannelID: p.ChannelID})
		if p.Exempt {
			return
		}
		u := s.Usage[f.ActorID]
		u.CharsUsed += p.Length
		if ch, ok := s.Channels[p.ChannelID]; ok && ch.Type == ChannelDM {
			u.Partners = addPartner(u.Partners, ch.Other(f.ActorID))
		}
		s.Usage[f.ActorID] = u

	case fact.TypeChannelCreated:
		p, err := fact.Decode[fact.ChannelCreatedPayload](f)
		if err != nil {
			return
		}
		ch := Channel{
			ID:           p.ChannelID,
			Type:         ChannelType(p.ChannelType),
			MemberIDs:    sortedMembers(p.MemberIDs),
			CreatedBy:    f.ActorID,
			CreatedAt:    f.Timestamp,
			Capabilities: []string{CapabilityChat},
			Constraints:  Constraints{SilverCost: economy.DMFee},
		}
		s.Channels[ch.ID] = ch
		if ch.Type == ChannelGroupDM && !p.Lazy {
			u := s.Usage[f.ActorID]
			u.GroupsCreated++
			s.Usage[f.ActorID] = u
		}

	case fact.TypePerkUsed:
		p, err := fact.Decode[fact.PerkUsedPayload](f)
		if err != nil {
			return
		}
		perk, ok := economy.LookupPerk(economy.PerkType(p.PerkType))
		if !ok {
			return
		}
		o := s.Perks[f.ActorID]
		o.ExtraPartners += perk.ExtraPartners
		o.ExtraChars += perk.ExtraChars
		if o != (Overrides{}) {
			s.Perks[f.ActorID] = o
		}
	}
}

// AppendSystemMessage posts a narrator line to MAIN.
func (s *State) AppendSystemMessage(id, content string, now time.Time) {
	s.appendMessage(ChatMessage{ID: id, SenderID: SystemSender, Timestamp: now, Content: content, ChannelID: MainChannelID})
}

// OpenGameDM registers a fee-exempt channel owned by a game cartridge.
func (s *State) OpenGameDM(id string, members []string, now time.Time) {
	s.Channels[id] = Channel{
		ID:           id,
		Type:         ChannelGameDM,
		MemberIDs:    sortedMembers(members),
		CreatedBy:    SystemSender,
		CreatedAt:    now,
		Capabilities: []string{CapabilityChat},
		Constraints:  Constraints{Exempt: true},
	}
}

// CloseGameDM removes a game channel. Other channel types are kept.
func (s *State) CloseGameDM(id string) {
	if ch, ok := s.Channels[id]; ok && ch.Type == ChannelGameDM {
		delete(s.Channels, id)
	}
}

func (s *State) appendMessage(m ChatMessage) {
	s.ChatLog = append(s.ChatLog, m)
	if over := len(s.ChatLog) - MaxChatLog; over > 0 {
		s.ChatLog = append([]ChatMessage(nil), s.ChatLog[over:]...)
	}
}

func (s *State) findGroup(members []string) (Channel, bool) {
	key := memberKey(members)
	for _, ch := range s.Channels {
		if ch.Type == ChannelGroupDM && memberKey(ch.MemberIDs) == key {
			return ch, true
		}
	}
	return Channel{}, false
}

func addPartner(partners []string, id string) []string {
	if id == "" {
		return partners
	}
	for _, p := range partners {
		if p == id {
			return partners
		}
	}
	return append(partners, id)
}

func hasPartner(partners []string, id string) bool {
	for _, p := range partners {
		if p == id {
			return true
		}
	}
	return false
}
