package services

import (
	"context"
	"math"

	"meritbot/domain/entities"
	"meritbot/domain/interfaces"

	log "github.com/sirupsen/logrus"
)

// seniorityWindow is how many of the sender's most recent reputation
// snapshots weigh into their seniority.
const seniorityWindow = 10

// QuadraticFunding converts a round's normalized grants into a matching-pool
// distribution: receiver UUID -> matched amount.
//
// The pool is the configured matching base plus the round's total decay
// burn. Each sender's contribution to a receiver is
// sqrt(grant * seniority * roleMultiplier); a receiver's power is the square
// of its summed contributions and the pool is split pro rata by power.
//
// A nil roster disables matching entirely and returns an empty map.
func QuadraticFunding(ctx context.Context, totalBurn float64, cfg entities.RoundConfig, normalized map[string]map[string]float64, users map[string]*entities.User, shift int, guildDiscordID string, roster interfaces.Roster) map[string]float64 {
	matched := make(map[string]float64)
	if roster == nil {
		return matched
	}

	multipliers := newRoleMultiplierCache(cfg, guildDiscordID, roster)

	power := make(map[string]float64, len(normalized))
	var powerSum float64
	for receiver, senders := range normalized {
		var sqrtPower float64
		for sender, amount := range senders {
			u, ok := users[sender]
			if !ok {
				log.WithField("sender", sender).Error("Grant from unknown user, skipped for matching")
				continue
			}
			reputation, ok := u.ReputationAt(shift)
			if !ok || reputation == 0 || amount == 0 {
				continue
			}

			seniority := senderSeniority(u.Reputations, shift, reputation)
			multiplier := multipliers.resolve(ctx, sender, u)

			sqrtPower += math.Sqrt(amount * seniority * multiplier)
		}
		power[receiver] = sqrtPower * sqrtPower
		powerSum += power[receiver]
	}

	if powerSum <= 0 {
		return matched
	}

	pool := cfg.DiscordMatching + totalBurn
	for receiver, p := range power {
		matched[receiver] = pool * p / powerSum
	}
	return matched
}

// senderSeniority is the recency-weighted average of the sender's last
// snapshots divided by their current reputation. Long-held standing scores
// near or above 1; freshly inflated reputation is discounted.
func senderSeniority(reputations []float64, shift int, current float64) float64 {
	end := len(reputations) - shift
	start := end - seniorityWindow
	if start < 0 {
		start = 0
	}
	window := reputations[start:end]

	var weighted, weights float64
	for i, r := range window {
		weighted += r * float64(len(reputations)-i)
		weights += float64(i + 1)
	}
	return weighted / weights / current
}

// roleMultiplierCache resolves each sender's role multiplier at most once per
// allocation pass.
type roleMultiplierCache struct {
	cfg            entities.RoundConfig
	guildDiscordID string
	roster         interfaces.Roster
	resolved       map[string]float64
}

func newRoleMultiplierCache(cfg entities.RoundConfig, guildDiscordID string, roster interfaces.Roster) *roleMultiplierCache {
	return &roleMultiplierCache{
		cfg:            cfg,
		guildDiscordID: guildDiscordID,
		roster:         roster,
		resolved:       make(map[string]float64),
	}
}

// resolve returns the highest configured multiplier among the member's
// roles. Members without a resolvable roster entry, and configs with no
// per-role entries, get the default multiplier.
func (c *roleMultiplierCache) resolve(ctx context.Context, senderUUID string, u *entities.User) float64 {
	if m, ok := c.resolved[senderUUID]; ok {
		return m
	}

	multiplier := entities.LookupWithFallback(c.cfg.RolePowerMultipliers, entities.DefaultKey)
	if len(c.cfg.RolePowerMultipliers) > 1 && u.DiscordID != "" {
		member, err := c.roster.ResolveMemberRoles(ctx, c.guildDiscordID, u.DiscordID)
		if err != nil {
			log.WithFields(log.Fields{
				"discordId": u.DiscordID,
				"error":     err,
			}).Warn("Failed to resolve member roles, using default multiplier")
		}
		if member != nil {
			for role, m := range c.cfg.RolePowerMultipliers {
				if role == entities.DefaultKey {
					continue
				}
				if member.Roles[role] && m > multiplier {
					multiplier = m
				}
			}
		}
	}

	c.resolved[senderUUID] = multiplier
	return multiplier
}
