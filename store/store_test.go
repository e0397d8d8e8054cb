package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"meritbot/domain/entities"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_RunExclusiveSeesAndKeepsMutations(t *testing.T) {
	t.Parallel()

	st := New()
	ctx := context.Background()

	err := st.RunExclusive(ctx, func(state entities.GuildState) error {
		state["uuid-1"] = entities.NewGuild("guild-1", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
		return nil
	})
	require.NoError(t, err)

	err = st.RunExclusive(ctx, func(state entities.GuildState) error {
		_, guild := state.FindByDiscordID("guild-1")
		require.NotNil(t, guild)
		return nil
	})
	require.NoError(t, err)
}

func TestStore_RunExclusivePropagatesErrors(t *testing.T) {
	t.Parallel()

	st := New()
	sentinel := errors.New("boom")

	err := st.RunExclusive(context.Background(), func(state entities.GuildState) error {
		return sentinel
	})
	assert.ErrorIs(t, err, sentinel)

	// The guard must have been released despite the error
	assert.NoError(t, st.RunExclusive(context.Background(), func(state entities.GuildState) error {
		return nil
	}))
}

func TestStore_NewWithNilState(t *testing.T) {
	t.Parallel()

	st := NewWithState(nil)
	err := st.RunExclusive(context.Background(), func(state entities.GuildState) error {
		assert.NotNil(t, state)
		return nil
	})
	assert.NoError(t, err)
}
