package reputation

import (
	"meritbot/domain/interfaces"
	"meritbot/domain/services"
	"meritbot/store"

	"github.com/jonboulle/clockwork"
)

// Feature handles reputation commands: leaderboard, manual grants, mints and
// full-history recomputes.
type Feature struct {
	store     *store.Store
	lifecycle *services.RoundLifecycleService
	roster    interfaces.Roster
	clock     clockwork.Clock
	publisher interfaces.EventPublisher
}

// New creates the reputation feature
func New(st *store.Store, lifecycle *services.RoundLifecycleService, roster interfaces.Roster, clock clockwork.Clock, publisher interfaces.EventPublisher) *Feature {
	return &Feature{
		store:     st,
		lifecycle: lifecycle,
		roster:    roster,
		clock:     clock,
		publisher: publisher,
	}
}
