package guildcfg

import (
	"meritbot/domain/interfaces"
	"meritbot/store"
)

// Feature handles the /guild-config and /round-config admin commands.
// Guild-config edits only affect rounds opened afterwards; round-config
// edits patch the open round's snapshot in place. The roster applies
// reputation-role changes to members immediately.
type Feature struct {
	store  *store.Store
	roster interfaces.Roster
}

// New creates the config feature
func New(st *store.Store, roster interfaces.Roster) *Feature {
	return &Feature{store: st, roster: roster}
}
