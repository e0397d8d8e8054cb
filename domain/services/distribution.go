package services

import (
	"context"
	"fmt"
	"math"

	"meritbot/domain/entities"
	"meritbot/domain/interfaces"

	log "github.com/sirupsen/logrus"
)

// Distribute computes one round's reputation delta for every member of the
// guild. shift selects how many rounds in the past to operate on (0 = the
// open round), which lets recomputation replay history without touching the
// present.
//
// The function is pure: it never mutates the guild and identical inputs
// yield identical results. A nil roster skips quadratic-funding matching;
// decay and normalization still apply.
func Distribute(ctx context.Context, guild *entities.Guild, shift int, roster interfaces.Roster) (*entities.DistributionResult, error) {
	round := guild.RoundAt(shift)
	if round == nil {
		return nil, fmt.Errorf("guild %s has no round at shift %d", guild.GuildDiscordID, shift)
	}
	cfg := round.Config

	normalized := NormalizeGrants(round.Grants, guild.Users, cfg.MinReputationDecay, shift)

	sd := ReputationStdDev(guild.Users, shift, cfg.DefaultReputation)

	// Size the burn pool: everyone above the floor feeds the pool at the
	// wide-curve rate; members with no standing yet contribute nothing.
	var totalBurn float64
	for _, u := range guild.Users {
		r, ok := u.ReputationAt(shift)
		if !ok || r == 0 {
			continue
		}
		base := math.Max(cfg.DefaultReputation, r)
		totalBurn += base * DecayRate(base, cfg.MinReputationDecay, cfg.MaxReputationDecay, sd, BurnCurveWidth)
	}

	usersMatched := make(map[string]float64)
	if roster != nil {
		usersMatched = QuadraticFunding(ctx, totalBurn, cfg, normalized, guild.Users, shift, guild.GuildDiscordID, roster)
	} else {
		log.WithField("guild", guild.GuildDiscordID).Debug("No roster available, skipping quadratic funding")
	}

	result := &entities.DistributionResult{
		Users:         make(map[string]float64, len(guild.Users)),
		UsersReceived: make(map[string]float64, len(guild.Users)),
		UsersMatched:  usersMatched,
		UsersMinted:   make(map[string]float64, len(guild.Users)),
	}

	for id, u := range guild.Users {
		var oldReputation float64
		if r, ok := u.ReputationAt(shift); ok && r != 0 {
			oldReputation = math.Max(cfg.DefaultReputation, r)
		}

		var received float64
		for _, amount := range normalized[id] {
			received += amount
		}
		result.UsersReceived[id] = received

		var minted float64
		for _, amount := range round.Mints[id] {
			minted += amount
		}
		result.UsersMinted[id] = minted

		burn := oldReputation * DecayRate(oldReputation, cfg.MinReputationDecay, cfg.MaxReputationDecay, sd, DecayCurveWidth)

		newReputation := oldReputation + received + minted + usersMatched[id] - burn
		result.Users[id] = math.Max(cfg.DefaultReputation, newReputation)
	}

	return result, nil
}
