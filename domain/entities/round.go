package entities

import "time"

// Round is a fixed-duration accounting period. Grants and mints accumulate
// while the round is open; the distribution engine seals it.
//
// Grants and Mints are keyed receiver UUID -> sender UUID -> amount.
type Round struct {
	StartDate string                        `json:"startDate"`
	EndDate   string                        `json:"endDate"` // empty while the round is open
	Config    RoundConfig                   `json:"config"`
	Grants    map[string]map[string]float64 `json:"grants"`
	Mints     map[string]map[string]float64 `json:"mints"`
}

// NewRound creates an open round starting at start with the given config
// snapshot and empty ledgers.
func NewRound(start time.Time, cfg RoundConfig) *Round {
	return &Round{
		StartDate: start.UTC().Format(time.RFC3339),
		Config:    cfg,
		Grants:    make(map[string]map[string]float64),
		Mints:     make(map[string]map[string]float64),
	}
}

// Open reports whether the round has not been sealed yet.
func (r *Round) Open() bool {
	return r.EndDate == ""
}

// Start parses the round start date. A malformed date yields the zero time.
func (r *Round) Start() time.Time {
	t, _ := time.Parse(time.RFC3339, r.StartDate)
	return t
}

// ScheduledEnd is the instant the round becomes eligible for closing: the
// end of the (roundDuration-1)th day after the start, in UTC.
func (r *Round) ScheduledEnd() time.Time {
	d := r.Start().UTC().Add(time.Duration(r.Config.RoundDuration-1) * 24 * time.Hour)
	return time.Date(d.Year(), d.Month(), d.Day(), 23, 59, 59, int(time.Second-time.Nanosecond), time.UTC)
}

// NextStart is the start instant of the round that follows this one.
func (r *Round) NextStart() time.Time {
	return r.Start().UTC().Add(time.Duration(r.Config.RoundDuration) * 24 * time.Hour)
}

// Close seals the round at end.
func (r *Round) Close(end time.Time) {
	r.EndDate = end.UTC().Format(time.RFC3339)
}
