package services

import (
	"meritbot/domain/entities"

	log "github.com/sirupsen/logrus"
)

// NormalizeGrants caps every sender's outgoing grant total for a round at
// reputation * minReputationDecay, scaling each of their grants
// proportionally when the cap is exceeded. The input is never mutated.
//
// A sender whose history is shorter than shift+1 snapshots, or who is
// unknown, is treated as having granted nothing. Zero-reputation senders and
// zero grants normalize to zero.
func NormalizeGrants(grants map[string]map[string]float64, users map[string]*entities.User, minReputationDecay float64, shift int) map[string]map[string]float64 {
	normalized := make(map[string]map[string]float64, len(grants))

	// Sum each sender's outgoing grants across all receivers.
	sentTotals := make(map[string]float64)
	for _, senders := range grants {
		for sender, amount := range senders {
			sentTotals[sender] += amount
		}
	}

	for receiver, senders := range grants {
		normalized[receiver] = make(map[string]float64, len(senders))
		for sender, amount := range senders {
			u, ok := users[sender]
			if !ok {
				log.WithField("sender", sender).Error("Grant from unknown user, treated as zero")
				normalized[receiver][sender] = 0
				continue
			}
			reputation, ok := u.ReputationAt(shift)
			if !ok {
				log.WithFields(log.Fields{
					"sender": sender,
					"rounds": len(u.Reputations),
					"shift":  shift,
				}).Error("Grant from user with insufficient history, treated as zero")
				normalized[receiver][sender] = 0
				continue
			}

			if reputation == 0 || amount == 0 {
				normalized[receiver][sender] = 0
				continue
			}

			cap := reputation * minReputationDecay
			if sentTotals[sender] <= cap {
				normalized[receiver][sender] = amount
			} else {
				normalized[receiver][sender] = amount * cap / sentTotals[sender]
			}
		}
	}

	return normalized
}

// ReceivedGrants projects one receiver's incoming grants out of an already
// normalized result: sender UUID -> amount.
func ReceivedGrants(normalized map[string]map[string]float64, receiverUUID string) map[string]float64 {
	out := make(map[string]float64, len(normalized[receiverUUID]))
	for sender, amount := range normalized[receiverUUID] {
		out[sender] = amount
	}
	return out
}

// SentGrants projects one sender's outgoing grants out of an already
// normalized result: receiver UUID -> amount. Both views always derive from
// the same NormalizeGrants output so their caps cannot diverge.
func SentGrants(normalized map[string]map[string]float64, senderUUID string) map[string]float64 {
	out := make(map[string]float64)
	for receiver, senders := range normalized {
		if amount, ok := senders[senderUUID]; ok {
			out[receiver] = amount
		}
	}
	return out
}
