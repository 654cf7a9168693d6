package games

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"math/rand/v2"
)

//go:embed questions.json
var questionsJSON []byte

// Question is one multiple-choice trivia question.
type Question struct {
	ID           string   `json:"id"`
	Text         string   `json:"text"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correctIndex"`
}

var bank = mustLoadBank(questionsJSON)

func mustLoadBank(data []byte) []Question {
	var qs []Question
	if err := json.Unmarshal(data, &qs); err != nil {
		panic(fmt.Sprintf("load trivia bank: %v", err))
	}
	return qs
}

// deal returns n questions drawn without replacement from the bank.
func deal(rng *rand.Rand, n int) []Question {
	order := rng.Perm(len(bank))
	if n > len(order) {
		n = len(order)
	}
	out := make([]Question, 0, n)
	for _, i := range order[:n] {
		out = append(out, bank[i])
	}
	return out
}

// PublicQuestion is a question with the answer stripped.
type PublicQuestion struct {
	ID      string   `json:"id"`
	Text    string   `json:"text"`
	Options []string `json:"options"`
}

func (q Question) public() PublicQuestion {
	return PublicQuestion{ID: q.ID, Text: q.Text, Options: append([]string(nil), q.Options...)}
}
