package games

import (
	"math"
	"time"
)

// Reward tuning shared by both trivia mechanisms.
const (
	RoundCount    = 5
	AnswerWindow  = 15 * time.Second
	BaseReward    = 2
	MaxSpeedBonus = 3
	PerfectBonus  = 5
)

// answerReward pays BaseReward plus a speed bonus proportional to the
// unused share of the window.
func answerReward(elapsed time.Duration) int {
	if elapsed < 0 {
		elapsed = 0
	}
	if elapsed > AnswerWindow {
		elapsed = AnswerWindow
	}
	remaining := 1 - float64(elapsed)/float64(AnswerWindow)
	return BaseReward + int(math.Round(MaxSpeedBonus*remaining))
}
