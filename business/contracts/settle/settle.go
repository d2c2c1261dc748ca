// Package settle implements the distribution engine: pure functions that
// turn an agreement and a release amount into the exact sequence of token
// payouts. Payouts are always produced in listed-party order so callers
// can assert exact transfer sequences.
package settle

import (
	"github.com/Michellebuchiokonicha/quest-contract/foundation/ledger"
)

// Payout is a single computed transfer out of custody.
type Payout struct {
	Party  ledger.AccountID
	Amount uint64
}

// Total sums the amounts across the payout sequence.
func Total(payouts []Payout) uint64 {
	var total uint64
	for _, p := range payouts {
		total += p.Amount
	}
	return total
}

// EqualSplit divides amount evenly across the parties, truncating the
// per-party share. Any indivisible remainder is left in custody; it is
// the caller's policy what happens to it.
func EqualSplit(parties []ledger.AccountID, amount uint64) []Payout {
	if len(parties) == 0 {
		return nil
	}

	share := amount / uint64(len(parties))
	payouts := make([]Payout, 0, len(parties))
	for _, party := range parties {
		payouts = append(payouts, Payout{Party: party, Amount: share})
	}

	return payouts
}

// DepositRefund returns each party exactly what it deposited. Parties that
// deposited nothing are skipped.
func DepositRefund(parties []ledger.AccountID, deposited []uint64) []Payout {
	payouts := make([]Payout, 0, len(parties))
	for i, party := range parties {
		if deposited[i] > 0 {
			payouts = append(payouts, Payout{Party: party, Amount: deposited[i]})
		}
	}

	return payouts
}

// ProRataRefund distributes pot across the parties in proportion to their
// deposits, truncating each share. Used when partial releases have drawn
// the pot below the sum of deposits. Truncation dust stays in custody.
func ProRataRefund(parties []ledger.AccountID, deposited []uint64, pot uint64) []Payout {
	var total uint64
	for _, d := range deposited {
		total += d
	}
	if total == 0 {
		return nil
	}

	payouts := make([]Payout, 0, len(parties))
	for i, party := range parties {
		if deposited[i] == 0 {
			continue
		}
		share := pot * deposited[i] / total
		if share > 0 {
			payouts = append(payouts, Payout{Party: party, Amount: share})
		}
	}

	return payouts
}

// Split pays the first recipient the specified amount and the second the
// exact remainder of total. Used by arbitrator-specified dispute splits.
func Split(first ledger.AccountID, firstAmount uint64, second ledger.AccountID, total uint64) []Payout {
	payouts := make([]Payout, 0, 2)
	if firstAmount > 0 {
		payouts = append(payouts, Payout{Party: first, Amount: firstAmount})
	}
	if total > firstAmount {
		payouts = append(payouts, Payout{Party: second, Amount: total - firstAmount})
	}

	return payouts
}

// WinnerTakeAll divides pot equally among every party holding the maximum
// score, truncating the share. The winners keep listed-party order.
func WinnerTakeAll(parties []ledger.AccountID, scores map[ledger.AccountID]int64, pot uint64) []Payout {
	var winners []ledger.AccountID
	var max int64
	first := true
	for _, party := range parties {
		score, exists := scores[party]
		if !exists {
			continue
		}
		switch {
		case first || score > max:
			winners = winners[:0]
			winners = append(winners, party)
			max = score
			first = false
		case score == max:
			winners = append(winners, party)
		}
	}

	return EqualSplit(winners, pot)
}
