package social

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/louisbranch/pecking-order/internal/services/game/domain/decision"
	"github.com/louisbranch/pecking-order/internal/services/game/domain/economy"
	"github.com/louisbranch/pecking-order/internal/services/game/domain/event"
	"github.com/louisbranch/pecking-order/internal/services/game/domain/fact"
	"github.com/louisbranch/pecking-order/internal/services/game/domain/roster"
)

// Message rejection reasons.
const (
	ReasonGroupChatClosed  = "GROUP_CHAT_CLOSED"
	ReasonDMsClosed        = "DMS_CLOSED"
	ReasonSenderEliminated = "SENDER_ELIMINATED"
	ReasonTargetEliminated = "TARGET_ELIMINATED"
	ReasonSelfDM           = "SELF_DM"
	ReasonTargetNotFound   = "TARGET_NOT_FOUND"
	ReasonPartnerLimit     = "PARTNER_LIMIT"
	ReasonCharLimit        = "CHAR_LIMIT"
	ReasonGroupLimit       = "GROUP_LIMIT"
	ReasonInvalidMembers   = "INVALID_MEMBERS"
	ReasonChannelNotFound  = "CHANNEL_NOT_FOUND"
	ReasonNotAMember       = "NOT_A_MEMBER"
	ReasonInsufficient     = "INSUFFICIENT_SILVER"
	ReasonEmptyMessage     = "EMPTY_MESSAGE"
	ReasonMessageTooLong   = "MESSAGE_TOO_LONG"
)

// Transfer and perk rejection reasons.
const (
	ReasonSelfTransfer  = "SELF_TRANSFER"
	ReasonInvalidAmount = "INVALID_AMOUNT"
	ReasonInvalidPerk   = "INVALID_PERK"
)

// Env carries what a decider may read besides the social state.
type Env struct {
	Now    time.Time
	Roster roster.Roster
	// NewID mints channel and message ids. Defaults to uuid.NewString.
	NewID func() string
}

func (e Env) newID() string {
	if e.NewID != nil {
		return e.NewID()
	}
	return uuid.NewString()
}

// MessageRequest is the SOCIAL.SEND_MSG payload. At most one addressing
// field is used, in order: ChannelID, TargetID, MemberIDs. None means MAIN.
type MessageRequest struct {
	ChannelID string   `json:"channelId,omitempty"`
	TargetID  string   `json:"targetId,omitempty"`
	MemberIDs []string `json:"memberIds,omitempty"`
	Content   string   `json:"content"`
}

// TransferRequest is the SOCIAL.SEND_SILVER payload.
type TransferRequest struct {
	TargetID string `json:"targetId"`
	Amount   int    `json:"amount"`
}

// PerkRequest is the SOCIAL.USE_PERK payload.
type PerkRequest struct {
	PerkType string `json:"perkType"`
	TargetID string `json:"targetId,omitempty"`
}

// ChannelRequest is the SOCIAL.CREATE_CHANNEL payload.
type ChannelRequest struct {
	MemberIDs []string `json:"memberIds"`
}

func reject(code, message string) decision.Decision {
	return decision.Reject(decision.Rejection{Code: code, Message: message})
}

// DecideMessage evaluates a chat or DM send.
func DecideMessage(s *State, env Env, senderID string, req MessageRequest) decision.Decision {
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return reject(ReasonEmptyMessage, "message is empty")
	}
	if utf8.RuneCountInString(content) > MaxContentLength {
		return reject(ReasonMessageTooLong, "message exceeds 280 characters")
	}
	if !env.Roster.IsAlive(senderID) {
		return reject(ReasonSenderEliminated, "eliminated players cannot send messages")
	}

	ch, lazy, rej := s.resolveChannel(env, senderID, req)
	if rej != nil {
		return *rej
	}

	switch ch.Type {
	case ChannelMain:
		if !s.GroupChatOpen {
			return reject(ReasonGroupChatClosed, "group chat is closed")
		}
		return decision.Accept(fact.Record(fact.New(fact.TypeChatMsg, senderID, "", env.Now, fact.ChatMsgPayload{
			ChannelID: MainChannelID,
			MessageID: env.newID(),
			Content:   content,
		})))

	case ChannelGameDM:
		return decision.Accept(dmSent(env, senderID, "", ch.ID, content, true))

	case ChannelDM, ChannelGroupDM:
		if !s.DMsOpen {
			return reject(ReasonDMsClosed, "direct messages are closed")
		}
		target := ""
		if ch.Type == ChannelDM {
			target = ch.Other(senderID)
			if !env.Roster.Has(target) {
				return reject(ReasonTargetNotFound, "recipient does not exist")
			}
			if !env.Roster.IsAlive(target) {
				return reject(ReasonTargetEliminated, "recipient has been eliminated")
			}
			u := s.Usage[senderID]
			if !hasPartner(u.Partners, target) && len(u.Partners) >= s.PartnerLimit(senderID) {
				return reject(ReasonPartnerLimit, "daily DM partner limit reached")
			}
		}
		exempt := ch.Constraints.Exempt
		if !exempt {
			length := utf8.RuneCountInString(content)
			if s.Usage[senderID].CharsUsed+length > s.CharLimit(senderID) {
				return reject(ReasonCharLimit, "daily DM character limit reached")
			}
			if env.Roster.Silver(senderID) < economy.DMFee {
				return reject(ReasonInsufficient, "not enough silver for the DM fee")
			}
		}
		var events []event.Event
		if lazy {
			events = append(events, fact.Record(fact.New(fact.TypeChannelCreated, senderID, target, env.Now, fact.ChannelCreatedPayload{
				ChannelID:   ch.ID,
				ChannelType: string(ChannelDM),
				MemberIDs:   ch.MemberIDs,
				Lazy:        true,
			})))
		}
		events = append(events, dmSent(env, senderID, target, ch.ID, content, exempt))
		return decision.Accept(events...)
	}
	return reject(ReasonChannelNotFound, "unknown channel")
}

func dmSent(env Env, senderID, targetID, channelID, content string, exempt bool) event.Event {
	return fact.Record(fact.New(fact.TypeDMSent, senderID, targetID, env.Now, fact.DMSentPayload{
		ChannelID: channelID,
		MessageID: env.newID(),
		Length:    utf8.RuneCountInString(content),
		Exempt:    exempt,
		Content:   content,
	}))
}

// resolveChannel finds the destination channel. lazy is set when a DM
// channel does not exist yet and will be created by the send.
func (s *State) resolveChannel(env Env, senderID string, req MessageRequest) (Channel, bool, *decision.Decision) {
	switch {
	case req.ChannelID != "":
		ch, ok := s.Channels[req.ChannelID]
		if !ok {
			d := reject(ReasonChannelNotFound, "channel does not exist")
			return Channel{}, false, &d
		}
		if !ch.HasMember(senderID) {
			d := reject(ReasonNotAMember, "you are not in this channel")
			return Channel{}, false, &d
		}
		return ch, false, nil

	case req.TargetID != "":
		if req.TargetID == senderID {
			d := reject(ReasonSelfDM, "cannot message yourself")
			return Channel{}, false, &d
		}
		if !env.Roster.Has(req.TargetID) {
			d := reject(ReasonTargetNotFound, "recipient does not exist")
			return Channel{}, false, &d
		}
		id := DMChannelID(senderID, req.TargetID)
		if ch, ok := s.Channels[id]; ok {
			return ch, false, nil
		}
		return Channel{
			ID:          id,
			Type:        ChannelDM,
			MemberIDs:   sortedMembers([]string{senderID, req.TargetID}),
			Constraints: Constraints{SilverCost: economy.DMFee},
		}, true, nil

	case len(req.MemberIDs) > 0:
		members := append([]string{senderID}, req.MemberIDs...)
		ch, ok := s.findGroup(dedupe(members))
		if !ok {
			d := reject(ReasonChannelNotFound, "create the group first")
			return Channel{}, false, &d
		}
		return ch, false, nil
	}
	return s.Channels[MainChannelID], false, nil
}

// DecideTransfer evaluates a silver transfer.
func DecideTransfer(env Env, senderID string, req TransferRequest) decision.Decision {
	switch {
	case !env.Roster.IsAlive(senderID):
		return reject(ReasonSenderEliminated, "eliminated players cannot send silver")
	case req.TargetID == senderID:
		return reject(ReasonSelfTransfer, "cannot send silver to yourself")
	case req.Amount <= 0:
		return reject(ReasonInvalidAmount, "amount must be positive")
	case !env.Roster.Has(req.TargetID):
		return reject(ReasonTargetNotFound, "recipient does not exist")
	case !env.Roster.IsAlive(req.TargetID):
		return reject(ReasonTargetEliminated, "recipient has been eliminated")
	case env.Roster.Silver(senderID) < req.Amount:
		return reject(ReasonInsufficient, "not enough silver")
	}
	return decision.Accept(fact.Record(fact.New(fact.TypeSilverTransfer, senderID, req.TargetID, env.Now,
		fact.SilverTransferPayload{Amount: req.Amount})))
}

// PerkActivated is the payload of PERK.ACTIVATED.
type PerkActivated struct {
	PerkType string `json:"perkType"`
	TargetID string `json:"targetId,omitempty"`
	Cost     int    `json:"cost"`
}

// QueryDMs is the payload of PERK.QUERY_DMS.
type QueryDMs struct {
	RequesterID string `json:"requesterId"`
	TargetID    string `json:"targetId"`
	Limit       int    `json:"limit"`
}

// DecidePerk evaluates a perk purchase. A SPY_DMS purchase additionally
// raises a PERK.QUERY_DMS request answered asynchronously by the host.
func DecidePerk(env Env, senderID string, req PerkRequest) decision.Decision {
	perk, ok := economy.LookupPerk(economy.PerkType(req.PerkType))
	if !ok {
		return reject(ReasonInvalidPerk, "unknown perk")
	}
	if !env.Roster.IsAlive(senderID) {
		return reject(ReasonSenderEliminated, "eliminated players cannot use perks")
	}
	if perk.NeedsTarget {
		if req.TargetID == "" || req.TargetID == senderID || !env.Roster.Has(req.TargetID) {
			return reject(ReasonTargetNotFound, "perk needs another player as target")
		}
		if !env.Roster.IsAlive(req.TargetID) {
			return reject(ReasonTargetEliminated, "target has been eliminated")
		}
	}
	if env.Roster.Silver(senderID) < perk.Cost {
		return reject(ReasonInsufficient, "not enough silver for this perk")
	}

	target := ""
	if perk.NeedsTarget {
		target = req.TargetID
	}
	events := []event.Event{
		fact.Record(fact.New(fact.TypePerkUsed, senderID, target, env.Now, fact.PerkUsedPayload{
			PerkType: string(perk.Type),
			Cost:     perk.Cost,
		})),
		event.New(event.TypePerkActivated, senderID, env.Now, PerkActivated{PerkType: string(perk.Type), TargetID: target, Cost: perk.Cost}),
	}
	if perk.Type == economy.PerkSpyDMs {
		events = append(events, event.New(event.TypePerkQueryDMs, senderID, env.Now, QueryDMs{
			RequesterID: senderID,
			TargetID:    target,
			Limit:       economy.SpyDMsLimit,
		}))
	}
	return decision.Accept(events...)
}

// DecideCreateChannel evaluates a group DM creation.
func DecideCreateChannel(s *State, env Env, senderID string, req ChannelRequest) decision.Decision {
	if !env.Roster.IsAlive(senderID) {
		return reject(ReasonSenderEliminated, "eliminated players cannot create channels")
	}
	if !s.DMsOpen {
		return reject(ReasonDMsClosed, "direct messages are closed")
	}
	members := dedupe(append([]string{senderID}, req.MemberIDs...))
	if len(members) < MinGroupMembers {
		return reject(ReasonInvalidMembers, "a group needs at least two other players")
	}
	for _, id := range members {
		if !env.Roster.IsAlive(id) {
			return reject(ReasonInvalidMembers, "every member must be an alive player")
		}
	}
	if _, exists := s.findGroup(members); exists {
		return reject(ReasonInvalidMembers, "this group already exists")
	}
	if s.Usage[senderID].GroupsCreated >= s.Limits.GroupsPerDay {
		return reject(ReasonGroupLimit, "daily group limit reached")
	}
	return decision.Accept(fact.Record(fact.New(fact.TypeChannelCreated, senderID, "", env.Now, fact.ChannelCreatedPayload{
		ChannelID:   env.newID(),
		ChannelType: string(ChannelGroupDM),
		MemberIDs:   sortedMembers(members),
	})))
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
