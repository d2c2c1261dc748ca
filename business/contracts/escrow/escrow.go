// Package escrow implements the multi-party conditional escrow agreement:
// funds are pulled into custody, held against a status state machine with
// deadlines and dispute arbitration, and released or refunded under the
// invariant that custody always equals the sum of deposits minus the sum
// of payouts.
package escrow

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Michellebuchiokonicha/quest-contract/business/contracts/contract"
	"github.com/Michellebuchiokonicha/quest-contract/business/contracts/settle"
	"github.com/Michellebuchiokonicha/quest-contract/foundation/ledger"
	"github.com/Michellebuchiokonicha/quest-contract/foundation/ledger/event"
	"github.com/Michellebuchiokonicha/quest-contract/foundation/ledger/host"
	"github.com/Michellebuchiokonicha/quest-contract/foundation/ledger/store"
)

// Name is the contract namespace used for storage keys, custody, and events.
const Name = "escrow"

// The closed set of storage key kinds this contract owns.
const (
	keyAgreement byte = iota + 1
	keyNextID
)

// Status represents where an agreement is in its lifecycle.
type Status int

// The set of agreement statuses. Released, Refunded, and Cancelled are
// terminal: no fund-moving transition is legal after them.
const (
	StatusCreated Status = iota + 1
	StatusActive
	StatusDisputed
	StatusReleased
	StatusRefunded
	StatusCancelled
)

// String implements the fmt.Stringer interface.
func (s Status) String() string {
	switch s {
	case StatusCreated:
		return "created"
	case StatusActive:
		return "active"
	case StatusDisputed:
		return "disputed"
	case StatusReleased:
		return "released"
	case StatusRefunded:
		return "refunded"
	case StatusCancelled:
		return "cancelled"
	}
	return "unknown"
}

// terminal reports whether no further fund-moving transition is legal.
func (s Status) terminal() bool {
	return s == StatusReleased || s == StatusRefunded || s == StatusCancelled
}

// =============================================================================

// ReleasePolicy is a closed variant describing when custody may be
// distributed without the arbitrator.
type ReleasePolicy int

// The set of release policies. When an agreement configures several, they
// are evaluated in this declared order and the first satisfied one wins.
const (
	PolicyAllApprove ReleasePolicy = iota + 1
	PolicyMajorityApprove
	PolicyArbitratorOnly
)

// Outcome is the arbitrator's dispute resolution decision.
type Outcome int

// The set of dispute outcomes.
const (
	OutcomeRelease Outcome = iota + 1
	OutcomeRefund
)

// =============================================================================

// Agreement is the persistent record for one escrow. The ordered parties
// slice defines index correspondence for obligations, deposits and
// approvals.
type Agreement struct {
	ID          uint64             `json:"id"`
	Creator     ledger.AccountID   `json:"creator"`
	Parties     []ledger.AccountID `json:"parties"`
	Token       ledger.Asset       `json:"token"`
	Obligations []uint64           `json:"obligations"`
	Deposited   []uint64           `json:"deposited"`
	Approvals   []bool             `json:"approvals"`
	Policies    []ReleasePolicy    `json:"policies"`
	Status      Status             `json:"status"`
	Arbitrator  ledger.AccountID   `json:"arbitrator,omitempty"`
	CreatedAt   uint64             `json:"created_at"`
	Deadline    uint64             `json:"deadline"`
	Pot         uint64             `json:"pot"`
	PaidOut     uint64             `json:"paid_out"`
}

// partyIndex returns the index of the account in the ordered party list.
func (ag *Agreement) partyIndex(accountID ledger.AccountID) (int, bool) {
	for i, party := range ag.Parties {
		if party == accountID {
			return i, true
		}
	}
	return 0, false
}

// fullyDeposited reports whether every party met its obligation.
func (ag *Agreement) fullyDeposited() bool {
	for i := range ag.Parties {
		if ag.Deposited[i] < ag.Obligations[i] {
			return false
		}
	}
	return true
}

// policySatisfied evaluates the configured release policies in declared
// order. PolicyArbitratorOnly never auto-satisfies; it exists to document
// that only the arbitrator may release.
func (ag *Agreement) policySatisfied() bool {
	for _, policy := range ag.Policies {
		switch policy {
		case PolicyAllApprove:
			all := true
			for _, approved := range ag.Approvals {
				if !approved {
					all = false
					break
				}
			}
			if all {
				return true
			}
		case PolicyMajorityApprove:
			var count int
			for _, approved := range ag.Approvals {
				if approved {
					count++
				}
			}
			if count > len(ag.Parties)/2 {
				return true
			}
		case PolicyArbitratorOnly:
			continue
		}
	}
	return false
}

// checkPot validates the custody invariant. It is run on every mutating
// path before the agreement persists.
func (ag *Agreement) checkPot() error {
	var deposited uint64
	for _, d := range ag.Deposited {
		deposited += d
	}

	if deposited < ag.PaidOut || ag.Pot != deposited-ag.PaidOut {
		return fmt.Errorf("custody invariant broken: pot %d, deposited %d, paid out %d", ag.Pot, deposited, ag.PaidOut)
	}

	return nil
}

// =============================================================================

// Contract provides the escrow call surface against a host environment.
type Contract struct {
	host    *host.Host
	custody ledger.AccountID
}

// New constructs the escrow contract for the specified host.
func New(h *host.Host) *Contract {
	return &Contract{
		host:    h,
		custody: ledger.ContractAccount(Name),
	}
}

// OpenConfig carries the arguments for opening a new agreement.
type OpenConfig struct {
	Parties     []ledger.AccountID
	Token       ledger.Asset
	Obligations []uint64
	Policies    []ReleasePolicy
	Arbitrator  ledger.AccountID
	Duration    uint64
}

// Open creates a new agreement in Created status. No funds move yet.
func (c *Contract) Open(creator ledger.AccountID, cfg OpenConfig) (uint64, error) {
	if len(cfg.Parties) == 0 || len(cfg.Parties) != len(cfg.Obligations) {
		return 0, fmt.Errorf("parties %d, obligations %d: %w", len(cfg.Parties), len(cfg.Obligations), contract.ErrInvalidParties)
	}

	seen := make(map[ledger.AccountID]bool)
	for i, party := range cfg.Parties {
		if seen[party] {
			return 0, fmt.Errorf("duplicate party %s: %w", party, contract.ErrInvalidParties)
		}
		seen[party] = true

		if cfg.Obligations[i] == 0 {
			return 0, fmt.Errorf("party %s obligation is zero: %w", party, contract.ErrInvalidParties)
		}
	}

	policies := cfg.Policies
	if len(policies) == 0 {
		policies = []ReleasePolicy{PolicyAllApprove}
	}

	var id uint64
	err := c.host.Run(func(tx *host.Tx) error {
		var err error
		id, err = contract.NextID(tx, c.key(keyNextID))
		if err != nil {
			return err
		}

		ag := Agreement{
			ID:          id,
			Creator:     creator,
			Parties:     cfg.Parties,
			Token:       cfg.Token,
			Obligations: cfg.Obligations,
			Deposited:   make([]uint64, len(cfg.Parties)),
			Approvals:   make([]bool, len(cfg.Parties)),
			Policies:    policies,
			Status:      StatusCreated,
			Arbitrator:  cfg.Arbitrator,
			CreatedAt:   tx.Now(),
			Deadline:    tx.Now() + cfg.Duration,
		}

		if err := c.save(tx, ag); err != nil {
			return err
		}

		tx.Emit(event.Event{Name: "created", Entity: id, Actor: creator, Contract: Name})
		return nil
	})
	if err != nil {
		return 0, err
	}

	return id, nil
}

// Deposit pulls the caller's obligation into custody. The amount must
// match the obligation exactly and a party may deposit only once. When the
// last party deposits the agreement becomes Active.
func (c *Contract) Deposit(caller ledger.AccountID, id uint64, amount uint64) error {
	return c.host.Run(func(tx *host.Tx) error {
		ag, err := c.load(tx, id)
		if err != nil {
			return err
		}

		if ag.Status != StatusCreated && ag.Status != StatusActive {
			return fmt.Errorf("deposit in %s: %w", ag.Status, contract.ErrInvalidState)
		}

		idx, ok := ag.partyIndex(caller)
		if !ok {
			return fmt.Errorf("account %s is not a party: %w", caller, contract.ErrUnauthorized)
		}

		if ag.Deposited[idx] > 0 {
			return fmt.Errorf("party %s: %w", caller, contract.ErrAlreadyDeposited)
		}

		if amount != ag.Obligations[idx] {
			return fmt.Errorf("deposit %d, obligation %d: %w", amount, ag.Obligations[idx], contract.ErrAmountMismatch)
		}

		if err := tx.Transfer(ag.Token, caller, c.custody, amount); err != nil {
			return err
		}

		ag.Deposited[idx] = amount
		ag.Pot += amount

		if ag.fullyDeposited() {
			ag.Status = StatusActive
			tx.Emit(event.Event{Name: "activated", Entity: id, Contract: Name})
		}

		if err := c.save(tx, ag); err != nil {
			return err
		}

		tx.Emit(event.Event{Name: "deposit", Entity: id, Actor: caller, Amount: amount, Contract: Name})
		return nil
	})
}

// Approve records the caller's approval. If the recorded approval
// satisfies the agreement's release policy, the full pot is distributed
// immediately.
func (c *Contract) Approve(caller ledger.AccountID, id uint64) error {
	return c.host.Run(func(tx *host.Tx) error {
		ag, err := c.load(tx, id)
		if err != nil {
			return err
		}

		if ag.Status != StatusActive {
			return fmt.Errorf("approve in %s: %w", ag.Status, contract.ErrInvalidState)
		}

		idx, ok := ag.partyIndex(caller)
		if !ok {
			return fmt.Errorf("account %s is not a party: %w", caller, contract.ErrUnauthorized)
		}

		ag.Approvals[idx] = true
		tx.Emit(event.Event{Name: "approval", Entity: id, Actor: caller, Contract: Name})

		if ag.policySatisfied() {
			released, err := c.distribute(tx, &ag, ag.Pot)
			if err != nil {
				return err
			}
			ag.Status = StatusReleased
			tx.Emit(event.Event{Name: "released", Entity: id, Actor: caller, Amount: released, Contract: Name})
		}

		return c.save(tx, ag)
	})
}

// Release distributes custody to the parties in equal shares. A zero
// amount means the full pot. Release requires the configured policy to be
// satisfied unless the caller is the arbitrator. Partial releases leave
// the agreement Active for further releases.
func (c *Contract) Release(caller ledger.AccountID, id uint64, amount uint64) error {
	return c.host.Run(func(tx *host.Tx) error {
		ag, err := c.load(tx, id)
		if err != nil {
			return err
		}

		if ag.Status != StatusActive {
			return fmt.Errorf("release in %s: %w", ag.Status, contract.ErrInvalidState)
		}

		arbitrator := ag.Arbitrator != "" && caller == ag.Arbitrator
		if !arbitrator && !ag.policySatisfied() {
			return fmt.Errorf("release policy not satisfied for %s: %w", caller, contract.ErrUnauthorized)
		}

		full := amount == 0 || amount == ag.Pot
		if amount == 0 {
			amount = ag.Pot
		}
		if amount > ag.Pot {
			return fmt.Errorf("release %d exceeds pot %d: %w", amount, ag.Pot, contract.ErrAmountMismatch)
		}

		released, err := c.distribute(tx, &ag, amount)
		if err != nil {
			return err
		}

		if full {
			ag.Status = StatusReleased
			tx.Emit(event.Event{Name: "released", Entity: id, Actor: caller, Amount: released, Contract: Name})
		} else {
			tx.Emit(event.Event{Name: "partial", Entity: id, Actor: caller, Amount: released, Contract: Name})
		}

		return c.save(tx, ag)
	})
}

// Dispute pauses the agreement until the arbitrator resolves it. Only a
// listed party may dispute and an arbitrator must be configured.
func (c *Contract) Dispute(caller ledger.AccountID, id uint64, reason string) error {
	return c.host.Run(func(tx *host.Tx) error {
		ag, err := c.load(tx, id)
		if err != nil {
			return err
		}

		if ag.Status != StatusActive {
			return fmt.Errorf("dispute in %s: %w", ag.Status, contract.ErrInvalidState)
		}

		if _, ok := ag.partyIndex(caller); !ok {
			return fmt.Errorf("account %s is not a party: %w", caller, contract.ErrUnauthorized)
		}

		if ag.Arbitrator == "" {
			return fmt.Errorf("no arbitrator configured: %w", contract.ErrInvalidState)
		}

		ag.Status = StatusDisputed
		if err := c.save(tx, ag); err != nil {
			return err
		}

		tx.Emit(event.Event{Name: "dispute", Entity: id, Actor: caller, Contract: Name})
		return nil
	})
}

// ResolveDispute is the arbitrator's forced resolution: distribute the
// full pot or refund every party its own deposit.
func (c *Contract) ResolveDispute(caller ledger.AccountID, id uint64, outcome Outcome) error {
	return c.host.Run(func(tx *host.Tx) error {
		ag, err := c.load(tx, id)
		if err != nil {
			return err
		}

		if ag.Status != StatusDisputed {
			return fmt.Errorf("resolve in %s: %w", ag.Status, contract.ErrInvalidState)
		}

		if ag.Arbitrator == "" || caller != ag.Arbitrator {
			return fmt.Errorf("account %s is not the arbitrator: %w", caller, contract.ErrUnauthorized)
		}

		var amount uint64
		switch outcome {
		case OutcomeRelease:
			amount, err = c.distribute(tx, &ag, ag.Pot)
			ag.Status = StatusReleased
		case OutcomeRefund:
			amount, err = c.refund(tx, &ag)
			ag.Status = StatusRefunded
		default:
			return fmt.Errorf("outcome %d: %w", outcome, contract.ErrInvalidState)
		}
		if err != nil {
			return err
		}

		if err := c.save(tx, ag); err != nil {
			return err
		}

		tx.Emit(event.Event{Name: "resolved", Entity: id, Actor: caller, Amount: amount, Contract: Name})
		return nil
	})
}

// RefundOnTimeout refunds every party once the deadline has passed. It is
// callable by anyone; calling it twice is rejected because the first call
// leaves the agreement Refunded.
func (c *Contract) RefundOnTimeout(id uint64) error {
	return c.host.Run(func(tx *host.Tx) error {
		ag, err := c.load(tx, id)
		if err != nil {
			return err
		}

		if ag.Status != StatusActive {
			return fmt.Errorf("timeout refund in %s: %w", ag.Status, contract.ErrInvalidState)
		}

		if tx.Now() < ag.Deadline {
			return fmt.Errorf("deadline %d, now %d: %w", ag.Deadline, tx.Now(), contract.ErrDeadlineNotReached)
		}

		amount, err := c.refund(tx, &ag)
		if err != nil {
			return err
		}

		ag.Status = StatusRefunded
		if err := c.save(tx, ag); err != nil {
			return err
		}

		tx.Emit(event.Event{Name: "timeout", Entity: id, Amount: amount, Contract: Name})
		return nil
	})
}

// Cancel lets the creator abandon the agreement: immediately while still
// Created, or after the deadline once Active. Every deposit made so far is
// refunded.
func (c *Contract) Cancel(caller ledger.AccountID, id uint64) error {
	return c.host.Run(func(tx *host.Tx) error {
		ag, err := c.load(tx, id)
		if err != nil {
			return err
		}

		if caller != ag.Creator {
			return fmt.Errorf("account %s is not the creator: %w", caller, contract.ErrUnauthorized)
		}

		switch ag.Status {
		case StatusCreated:
		case StatusActive:
			if tx.Now() < ag.Deadline {
				return fmt.Errorf("deadline %d, now %d: %w", ag.Deadline, tx.Now(), contract.ErrDeadlineNotReached)
			}
		default:
			return fmt.Errorf("cancel in %s: %w", ag.Status, contract.ErrInvalidState)
		}

		amount, err := c.refund(tx, &ag)
		if err != nil {
			return err
		}

		ag.Status = StatusCancelled
		if err := c.save(tx, ag); err != nil {
			return err
		}

		tx.Emit(event.Event{Name: "cancelled", Entity: id, Actor: caller, Amount: amount, Contract: Name})
		return nil
	})
}

// Sweep pays the creator whatever truncation dust is still in custody
// after the agreement reached a terminal status.
func (c *Contract) Sweep(caller ledger.AccountID, id uint64) error {
	return c.host.Run(func(tx *host.Tx) error {
		ag, err := c.load(tx, id)
		if err != nil {
			return err
		}

		if caller != ag.Creator {
			return fmt.Errorf("account %s is not the creator: %w", caller, contract.ErrUnauthorized)
		}

		if !ag.Status.terminal() {
			return fmt.Errorf("sweep in %s: %w", ag.Status, contract.ErrInvalidState)
		}

		amount := ag.Pot
		if amount == 0 {
			return nil
		}

		if err := tx.Transfer(ag.Token, c.custody, ag.Creator, amount); err != nil {
			return err
		}

		ag.Pot = 0
		ag.PaidOut += amount
		if err := c.save(tx, ag); err != nil {
			return err
		}

		tx.Emit(event.Event{Name: "swept", Entity: id, Actor: caller, Amount: amount, Contract: Name})
		return nil
	})
}

// Query returns a snapshot of the agreement.
func (c *Contract) Query(id uint64) (Agreement, error) {
	var ag Agreement
	err := c.host.View(func(tx *host.Tx) error {
		var err error
		ag, err = c.load(tx, id)
		return err
	})

	return ag, err
}

// =============================================================================

// distribute pays amount out of the pot in equal shares across the
// parties. Truncation dust stays in the pot. The actual total paid is
// returned.
func (c *Contract) distribute(tx *host.Tx, ag *Agreement, amount uint64) (uint64, error) {
	payouts := settle.EqualSplit(ag.Parties, amount)
	return c.pay(tx, ag, payouts)
}

// refund returns custody to the parties: exact deposits when the pot is
// still whole, pro-rata shares of what remains after partial releases.
func (c *Contract) refund(tx *host.Tx, ag *Agreement) (uint64, error) {
	var payouts []settle.Payout
	if ag.PaidOut == 0 {
		payouts = settle.DepositRefund(ag.Parties, ag.Deposited)
	} else {
		payouts = settle.ProRataRefund(ag.Parties, ag.Deposited, ag.Pot)
	}

	return c.pay(tx, ag, payouts)
}

// pay executes the computed payouts in listed-party order and updates the
// custody accounting.
func (c *Contract) pay(tx *host.Tx, ag *Agreement, payouts []settle.Payout) (uint64, error) {
	total := settle.Total(payouts)
	if total > ag.Pot {
		return 0, fmt.Errorf("payout %d exceeds pot %d: %w", total, ag.Pot, contract.ErrAmountMismatch)
	}

	for _, payout := range payouts {
		if err := tx.Transfer(ag.Token, c.custody, payout.Party, payout.Amount); err != nil {
			return 0, err
		}
	}

	ag.Pot -= total
	ag.PaidOut += total

	return total, nil
}

// =============================================================================

func (c *Contract) key(kind byte, parts ...any) store.Key {
	return store.NewKey(Name, kind, parts...)
}

func (c *Contract) load(tx *host.Tx, id uint64) (Agreement, error) {
	data, err := tx.Get(c.key(keyAgreement, id))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Agreement{}, fmt.Errorf("agreement %d: %w", id, contract.ErrNotFound)
		}
		return Agreement{}, err
	}

	var ag Agreement
	if err := json.Unmarshal(data, &ag); err != nil {
		return Agreement{}, fmt.Errorf("agreement %d decode: %w", id, err)
	}

	return ag, nil
}

func (c *Contract) save(tx *host.Tx, ag Agreement) error {
	if err := ag.checkPot(); err != nil {
		return err
	}

	data, err := json.Marshal(ag)
	if err != nil {
		return fmt.Errorf("agreement %d encode: %w", ag.ID, err)
	}

	return tx.Set(c.key(keyAgreement, ag.ID), data)
}
