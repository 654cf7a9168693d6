package social

import (
	"sort"
	"strings"
	"time"
)

// ChannelType classifies a channel.
type ChannelType string

const (
	ChannelMain    ChannelType = "MAIN"
	ChannelDM      ChannelType = "DM"
	ChannelGroupDM ChannelType = "GROUP_DM"
	ChannelGameDM  ChannelType = "GAME_DM"
)

// MainChannelID is the id of the implicit group chat.
const MainChannelID = "MAIN"

// Capabilities a channel may grant.
const (
	CapabilityChat   = "CHAT"
	CapabilitySilver = "SILVER_TRANSFER"
)

// Constraints restrict what sending into a channel costs.
type Constraints struct {
	Exempt     bool `json:"exempt,omitempty"`
	SilverCost int  `json:"silverCost,omitempty"`
}

// Channel is a chat destination.
type Channel struct {
	ID           string      `json:"id"`
	Type         ChannelType `json:"type"`
	MemberIDs    []string    `json:"memberIds,omitempty"`
	CreatedBy    string      `json:"createdBy,omitempty"`
	CreatedAt    time.Time   `json:"createdAt"`
	Capabilities []string    `json:"capabilities,omitempty"`
	Constraints  Constraints `json:"constraints"`
}

// HasMember reports whether id may read and write the channel. Everyone is a
// member of MAIN.
func (c Channel) HasMember(id string) bool {
	if c.Type == ChannelMain {
		return true
	}
	for _, m := range c.MemberIDs {
		if m == id {
			return true
		}
	}
	return false
}

// Other returns the DM partner of id.
func (c Channel) Other(id string) string {
	for _, m := range c.MemberIDs {
		if m != id {
			return m
		}
	}
	return ""
}

// DMChannelID returns the deterministic id of the DM between a and b.
func DMChannelID(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return "dm:" + a + ":" + b
}

// ChatMessage is one entry of the chat log.
type ChatMessage struct {
	ID        string    `json:"id"`
	SenderID  string    `json:"senderId"`
	Timestamp time.Time `json:"timestamp"`
	Content   string    `json:"content"`
	ChannelID string    `json:"channelId"`
}

// SystemSender is the sender id of narrator messages.
const SystemSender = "SYSTEM"

func sortedMembers(ids []string) []string {
	out := append([]string(nil), ids...)
	sort.Strings(out)
	return out
}

func memberKey(ids []string) string {
	return strings.Join(sortedMembers(ids), ",")
}
