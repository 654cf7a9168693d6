package social

import "sort"

// DMStats is a player's personalized DM quota usage.
type DMStats struct {
	CharsUsed     int `json:"charsUsed"`
	CharsLimit    int `json:"charsLimit"`
	PartnersUsed  int `json:"partnersUsed"`
	PartnersLimit int `json:"partnersLimit"`
	GroupsCreated int `json:"groupsCreated"`
	GroupsLimit   int `json:"groupsLimit"`
}

// Stats returns id's DM usage against their effective limits.
func (s *State) Stats(id string) DMStats {
	u := s.Usage[id]
	return DMStats{
		CharsUsed:     u.CharsUsed,
		CharsLimit:    s.CharLimit(id),
		PartnersUsed:  len(u.Partners),
		PartnersLimit: s.PartnerLimit(id),
		GroupsCreated: u.GroupsCreated,
		GroupsLimit:   s.Limits.GroupsPerDay,
	}
}

// VisibleChannels returns the channels viewerID belongs to, MAIN first and
// the rest by id.
func (s *State) VisibleChannels(viewerID string) []Channel {
	out := make([]Channel, 0, len(s.Channels))
	for _, ch := range s.Channels {
		if ch.HasMember(viewerID) {
			out = append(out, ch)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if (out[i].Type == ChannelMain) != (out[j].Type == ChannelMain) {
			return out[i].Type == ChannelMain
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// VisibleLog returns the chat messages viewerID may read, oldest first.
// Messages in channels that no longer exist are hidden.
func (s *State) VisibleLog(viewerID string) []ChatMessage {
	out := make([]ChatMessage, 0, len(s.ChatLog))
	for _, m := range s.ChatLog {
		if ch, ok := s.Channels[m.ChannelID]; ok && ch.HasMember(viewerID) {
			out = append(out, m)
		}
	}
	return out
}

// MainLog returns the MAIN channel messages only.
func (s *State) MainLog() []ChatMessage {
	out := make([]ChatMessage, 0, len(s.ChatLog))
	for _, m := range s.ChatLog {
		if m.ChannelID == MainChannelID {
			out = append(out, m)
		}
	}
	return out
}
