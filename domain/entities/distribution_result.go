package entities

// DistributionResult is the outcome of distributing one round, keyed by user
// UUID. Users carries the new reputation to append; the remaining maps are
// diagnostics surfaced by reporting commands.
type DistributionResult struct {
	Users         map[string]float64
	UsersReceived map[string]float64
	UsersMatched  map[string]float64
	UsersMinted   map[string]float64
}
