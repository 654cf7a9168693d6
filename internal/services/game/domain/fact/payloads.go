package fact

// ChatMsgPayload accompanies CHAT_MSG.
type ChatMsgPayload struct {
	ChannelID string `json:"channelId"`
	MessageID string `json:"messageId"`
	Content   string `json:"content"`
}

// DMSentPayload accompanies DM_SENT. Exempt messages are fee-free.
type DMSentPayload struct {
	ChannelID string `json:"channelId"`
	MessageID string `json:"messageId"`
	Length    int    `json:"length"`
	Exempt    bool   `json:"exempt,omitempty"`
	Content   string `json:"content,omitempty"`
}

// SilverTransferPayload accompanies SILVER_TRANSFER.
type SilverTransferPayload struct {
	Amount int `json:"amount"`
}

// PerkUsedPayload accompanies PERK_USED.
type PerkUsedPayload struct {
	PerkType string `json:"perkType"`
	Cost     int    `json:"cost"`
}

// ChannelCreatedPayload accompanies CHANNEL_CREATED.
type ChannelCreatedPayload struct {
	ChannelID   string   `json:"channelId"`
	ChannelType string   `json:"channelType"`
	MemberIDs   []string `json:"memberIds"`
	// Lazy is set for DM channels opened by a first message.
	Lazy bool `json:"lazy,omitempty"`
}

// CartridgePayload accompanies VOTE_CAST, GAME_ANSWER and PROMPT_RESPONSE.
type CartridgePayload struct {
	Mechanism string `json:"mechanism"`
	Action    string `json:"action,omitempty"`
	DayIndex  int    `json:"dayIndex,omitempty"`
}

// ResultPayload accompanies VOTE_RESULT, GAME_RESULT, PROMPT_RESULT and
// PLAYER_GAME_RESULT.
type ResultPayload struct {
	Mechanism        string         `json:"mechanism"`
	DayIndex         int            `json:"dayIndex"`
	EliminatedID     string         `json:"eliminatedId,omitempty"`
	WinnerID         string         `json:"winnerId,omitempty"`
	SilverRewards    map[string]int `json:"silverRewards,omitempty"`
	GoldContribution int            `json:"goldContribution,omitempty"`
	Summary          map[string]any `json:"summary,omitempty"`
}

// EliminationPayload accompanies ELIMINATION.
type EliminationPayload struct {
	DayIndex  int    `json:"dayIndex"`
	Mechanism string `json:"mechanism,omitempty"`
}

// WinnerPayload accompanies WINNER_DECLARED.
type WinnerPayload struct {
	DayIndex int `json:"dayIndex"`
	GoldPaid int `json:"goldPaid"`
}
