package event

import "strings"

// Cartridge event prefixes. Any event whose type starts with one of these is
// forwarded verbatim to the cartridge hosted in the matching region.
const (
	PrefixVote     = "VOTE."
	PrefixGame     = "GAME."
	PrefixActivity = "ACTIVITY."
	PrefixPerk     = "PERK."
)

// Target names the region slot an event is routed to.
type Target string

const (
	TargetNone     Target = ""
	TargetVoting   Target = "voting"
	TargetGame     Target = "game"
	TargetActivity Target = "activity"
)

// Route binds a type prefix to the region slot that owns it.
type Route struct {
	Prefix string
	Target Target
}

// Routes is the prefix routing table used by the orchestrator and the daily
// session. Order matters only for overlapping prefixes, of which there are none.
var Routes = []Route{
	{Prefix: PrefixVote, Target: TargetVoting},
	{Prefix: PrefixGame, Target: TargetGame},
	{Prefix: PrefixActivity, Target: TargetActivity},
}

// RouteFor returns the region slot for t, or TargetNone.
func RouteFor(t Type) Target {
	for _, route := range Routes {
		if strings.HasPrefix(string(t), route.Prefix) {
			return route.Target
		}
	}
	return TargetNone
}

// IsCartridgeEvent reports whether t is addressed to a cartridge.
func IsCartridgeEvent(t Type) bool {
	return RouteFor(t) != TargetNone
}

// IsSocial reports whether t is one of the social region requests.
func IsSocial(t Type) bool {
	switch t {
	case TypeSocialSendMsg, TypeSocialSendSilver, TypeSocialUsePerk, TypeSocialCreateChannel:
		return true
	}
	return false
}

// IsClientAllowed reports whether a client connection may send t. Everything
// else is dropped at the boundary without a reply.
func IsClientAllowed(t Type) bool {
	return IsSocial(t) || IsCartridgeEvent(t)
}

// IsPlayerRelay reports whether t is rejection- or perk-shaped and must be
// delivered to the originating player only.
func IsPlayerRelay(t Type) bool {
	switch t {
	case TypeDMRejected, TypeSilverTransferRejected, TypeChannelRejected, TypeCartridgeRejected:
		return true
	}
	return strings.HasPrefix(string(t), PrefixPerk) && t != TypePerkQueryDMs
}

// Mechanism extracts the mechanism segment of a cartridge event type:
// "VOTE.MAJORITY.CAST" → "MAJORITY". It returns "" for other shapes.
func Mechanism(t Type) string {
	parts := strings.SplitN(string(t), ".", 3)
	if len(parts) < 3 {
		return ""
	}
	return parts[1]
}

// Action extracts the trailing action segment of a cartridge event type:
// "VOTE.MAJORITY.CAST" → "CAST".
func Action(t Type) string {
	parts := strings.SplitN(string(t), ".", 3)
	if len(parts) < 3 {
		return ""
	}
	return parts[2]
}

// CartridgeType builds "<PREFIX><MECHANISM>.<ACTION>".
func CartridgeType(prefix, mechanism, action string) Type {
	return Type(prefix + mechanism + "." + action)
}
