package services

import (
	"errors"
	"fmt"

	"meritbot/domain/entities"
)

// ErrInvalidGrant rejects self-grants and negative amounts at the ledger
// boundary, before they can reach a round's maps.
var ErrInvalidGrant = errors.New("invalid grant")

// CheckGrant reports whether a grant is acceptable: sender and receiver must
// differ and the amount must not be negative.
func CheckGrant(senderUUID, receiverUUID string, amount float64) bool {
	return senderUUID != receiverUUID && amount >= 0
}

// AddGrant adds amount to the sender's grant to receiver in the round.
func AddGrant(round *entities.Round, receiverUUID, senderUUID string, amount float64) error {
	if !CheckGrant(senderUUID, receiverUUID, amount) {
		return fmt.Errorf("%w: sender %s receiver %s amount %f", ErrInvalidGrant, senderUUID, receiverUUID, amount)
	}
	if round.Grants[receiverUUID] == nil {
		round.Grants[receiverUUID] = make(map[string]float64)
	}
	round.Grants[receiverUUID][senderUUID] += amount
	return nil
}

// SetGrant overwrites the sender's grant to receiver in the round.
func SetGrant(round *entities.Round, receiverUUID, senderUUID string, amount float64) error {
	if !CheckGrant(senderUUID, receiverUUID, amount) {
		return fmt.Errorf("%w: sender %s receiver %s amount %f", ErrInvalidGrant, senderUUID, receiverUUID, amount)
	}
	if round.Grants[receiverUUID] == nil {
		round.Grants[receiverUUID] = make(map[string]float64)
	}
	round.Grants[receiverUUID][senderUUID] = amount
	return nil
}

// RemoveGrant subtracts amount from the sender's grant to receiver, clamping
// at zero so ledger amounts stay non-negative.
func RemoveGrant(round *entities.Round, receiverUUID, senderUUID string, amount float64) error {
	if !CheckGrant(senderUUID, receiverUUID, amount) {
		return fmt.Errorf("%w: sender %s receiver %s amount %f", ErrInvalidGrant, senderUUID, receiverUUID, amount)
	}
	senders := round.Grants[receiverUUID]
	if senders == nil {
		return nil
	}
	senders[senderUUID] -= amount
	if senders[senderUUID] < 0 {
		senders[senderUUID] = 0
	}
	return nil
}

// AddMint adds an administrative mint to receiver, attributed to the acting
// sender.
func AddMint(round *entities.Round, receiverUUID, senderUUID string, amount float64) error {
	if !CheckGrant(senderUUID, receiverUUID, amount) {
		return fmt.Errorf("%w: sender %s receiver %s amount %f", ErrInvalidGrant, senderUUID, receiverUUID, amount)
	}
	if round.Mints[receiverUUID] == nil {
		round.Mints[receiverUUID] = make(map[string]float64)
	}
	round.Mints[receiverUUID][senderUUID] += amount
	return nil
}
