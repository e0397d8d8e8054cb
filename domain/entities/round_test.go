package entities

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRound_ScheduledEndIsEndOfLastDay(t *testing.T) {
	t.Parallel()

	cfg := NewGuildConfig().RoundConfig // 14-day rounds
	round := NewRound(time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC), cfg)

	end := round.ScheduledEnd()
	assert.Equal(t, time.Date(2024, 3, 14, 23, 59, 59, int(time.Second-time.Nanosecond), time.UTC), end)
}

func TestRound_NextStartIsDurationAfterStart(t *testing.T) {
	t.Parallel()

	cfg := NewGuildConfig().RoundConfig
	round := NewRound(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), cfg)

	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), round.NextStart())
}

func TestRound_OpenUntilClosed(t *testing.T) {
	t.Parallel()

	round := NewRound(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), NewGuildConfig().RoundConfig)
	assert.True(t, round.Open())

	round.Close(round.ScheduledEnd())
	assert.False(t, round.Open())
	assert.Equal(t, "2024-03-14T23:59:59Z", round.EndDate)
}

func TestRound_SingleDayRound(t *testing.T) {
	t.Parallel()

	cfg := NewGuildConfig().RoundConfig
	cfg.RoundDuration = 1
	round := NewRound(time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC), cfg)

	// A one-day round ends at the end of its start day
	assert.Equal(t, time.March, round.ScheduledEnd().Month())
	assert.Equal(t, 1, round.ScheduledEnd().Day())
	assert.Equal(t, 23, round.ScheduledEnd().Hour())
}
