package entities

import "time"

// User is a guild member tracked by the reputation economy.
//
// Reputations holds one snapshot per closed round plus the member's current
// standing: index i is the reputation as of round i's close. A member joining
// mid-game is back-filled with zeros for the rounds they missed.
type User struct {
	DiscordID    string     `json:"discordId"`
	DisplayName  string     `json:"displayName"`
	CreationDate string     `json:"creationDate"`
	Reputations  []float64  `json:"reputations"`
	Config       UserConfig `json:"config"`
}

// NewUser creates a member for a guild that already has roundCount rounds,
// back-filling zero reputation for all rounds before the current one.
func NewUser(discordID, displayName string, roundCount int, cfg RoundConfig, now time.Time) *User {
	reputations := make([]float64, 0, roundCount)
	for i := 0; i < roundCount-1; i++ {
		reputations = append(reputations, 0)
	}
	reputations = append(reputations, cfg.DefaultReputation)

	return &User{
		DiscordID:    discordID,
		DisplayName:  displayName,
		CreationDate: now.UTC().Format(time.RFC3339),
		Reputations:  reputations,
		Config:       UserConfigFromRound(cfg),
	}
}

// ReputationAt returns the reputation snapshot shift rounds in the past.
// The second return is false when the member's history is shorter than
// shift+1 entries.
func (u *User) ReputationAt(shift int) (float64, bool) {
	idx := len(u.Reputations) - 1 - shift
	if idx < 0 {
		return 0, false
	}
	return u.Reputations[idx], true
}

// CurrentReputation is the latest snapshot, or 0 for an empty history.
func (u *User) CurrentReputation() float64 {
	r, _ := u.ReputationAt(0)
	return r
}
