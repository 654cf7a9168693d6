package voting

import "github.com/louisbranch/pecking-order/internal/services/game/domain/cartridge"

// View is a ballot as seen by one player. Until resolution a viewer sees
// only their own choices and how many ballots have been cast.
type View struct {
	Mechanism       string            `json:"mechanism"`
	Phase           Phase             `json:"phase"`
	EligibleVoters  []string          `json:"eligibleVoters"`
	EligibleTargets []string          `json:"eligibleTargets"`
	MyVote          string            `json:"myVote,omitempty"`
	MyTrust         string            `json:"myTrust,omitempty"`
	VoteCount       int               `json:"voteCount"`
	Executioner     string            `json:"executioner,omitempty"`
	Votes           map[string]string `json:"votes,omitempty"`
	Results         *cartridge.Result `json:"results,omitempty"`
}

// Project implements cartridge.Actor.
func (b *Ballot) Project(viewerID string) any {
	v := View{
		Mechanism:       b.Mech,
		Phase:           b.Phase,
		EligibleVoters:  append([]string(nil), b.Voters...),
		EligibleTargets: append([]string(nil), b.Targets...),
		MyVote:          b.Votes[viewerID],
		MyTrust:         b.Trusts[viewerID],
		VoteCount:       len(b.Votes),
		Executioner:     b.Executioner,
	}
	if b.Phase == PhaseElection {
		v.MyVote = b.Election[viewerID]
		v.VoteCount = len(b.Election)
	}
	if b.Done() {
		v.Votes = copyVotes(b.Votes)
		v.Results = b.Results
	}
	return v
}

func copyVotes(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, val := range in {
		out[k] = val
	}
	return out
}
