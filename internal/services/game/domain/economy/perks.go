package economy

// PerkType names a purchasable perk.
type PerkType string

const (
	PerkSpyDMs         PerkType = "SPY_DMS"
	PerkExtraDMPartner PerkType = "EXTRA_DM_PARTNER"
	PerkExtraDMChars   PerkType = "EXTRA_DM_CHARS"
)

// Perk describes the cost and effect of one perk.
type Perk struct {
	Type PerkType `json:"type"`
	Cost int      `json:"cost"`
	// NeedsTarget is set for perks aimed at another player.
	NeedsTarget bool `json:"needsTarget,omitempty"`
	// ExtraPartners and ExtraChars are added to the buyer's daily DM quota.
	ExtraPartners int `json:"extraPartners,omitempty"`
	ExtraChars    int `json:"extraChars,omitempty"`
}

// Economy constants.
const (
	DMFee = 1
	// SpyDMsLimit is how many recent DMs a SPY_DMS perk reveals.
	SpyDMsLimit = 3
)

var perkCatalog = map[PerkType]Perk{
	PerkSpyDMs:         {Type: PerkSpyDMs, Cost: 5, NeedsTarget: true},
	PerkExtraDMPartner: {Type: PerkExtraDMPartner, Cost: 3, ExtraPartners: 1},
	PerkExtraDMChars:   {Type: PerkExtraDMChars, Cost: 2, ExtraChars: 600},
}

// LookupPerk returns the catalog entry for t.
func LookupPerk(t PerkType) (Perk, bool) {
	p, ok := perkCatalog[t]
	return p, ok
}
