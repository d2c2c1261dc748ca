// Package bounty implements single-solver bounties: the creator escrows the
// reward up front, a solver claims and submits work, and the reward is paid
// on approval or split by the admin when a dispute is raised.
package bounty

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
const Name = "bounty"

const (
	keyAdmin byte = iota + 1
	keyBounty
	keyNextID
)

// Status represents where a bounty is in its lifecycle.
type Status int

// The set of bounty statuses.
const (
	StatusOpen Status = iota + 1
	StatusAccepted
	StatusSubmitted
	StatusCompleted
	StatusCancelled
	StatusDisputed
)

// String implements the fmt.Stringer interface.
func (s Status) String() string {
	switch s {
	case StatusOpen:
		return "open"
	case StatusAccepted:
		return "accepted"
	case StatusSubmitted:
		return "submitted"
	case StatusCompleted:
		return "completed"
	case StatusCancelled:
		return "cancelled"
	case StatusDisputed:
		return "disputed"
	}
	return "unknown"
}

// active reports whether a bounty still has work in flight.
func (s Status) active() bool {
	return s == StatusOpen || s == StatusAccepted || s == StatusSubmitted
}

// Bounty is the persistent record for one posted bounty. PuzzleID is an
// optional reference into an external puzzle catalog; zero means unset.
type Bounty struct {
	ID         uint64           `json:"id"`
	Creator    ledger.AccountID `json:"creator"`
	Token      ledger.Asset     `json:"token"`
	Amount     uint64           `json:"amount"`
	PuzzleID   uint64           `json:"puzzle_id,omitempty"`
	Solver     ledger.AccountID `json:"solver,omitempty"`
	Expiration uint64           `json:"expiration"`
	Status     Status           `json:"status"`
}

// =============================================================================

// Contract provides the bounty call surface against a host environment.
type Contract struct {
	host    *host.Host
	custody ledger.AccountID
}

// New constructs the bounty contract for the specified host.
func New(h *host.Host) *Contract {
	return &Contract{
		host:    h,
		custody: ledger.ContractAccount(Name),
	}
}

// Init records the dispute admin. It may run only once.
func (c *Contract) Init(admin ledger.AccountID) error {
	return c.host.Run(func(tx *host.Tx) error {
		exists, err := tx.Has(c.key(keyAdmin))
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("admin already set: %w", contract.ErrAlreadyInitialized)
		}

		return tx.Set(c.key(keyAdmin), []byte(admin))
	})
}

// Create posts a new bounty, pulling the full reward into custody.
func (c *Contract) Create(creator ledger.AccountID, token ledger.Asset, amount uint64, puzzleID uint64, duration uint64) (uint64, error) {
	if amount == 0 {
		return 0, fmt.Errorf("reward is zero: %w", contract.ErrAmountMismatch)
	}

	var id uint64
	err := c.host.Run(func(tx *host.Tx) error {
		var err error
		id, err = contract.NextID(tx, c.key(keyNextID))
		if err != nil {
			return err
		}

		if err := tx.Transfer(token, creator, c.custody, amount); err != nil {
			return err
		}

		b := Bounty{
			ID:         id,
			Creator:    creator,
			Token:      token,
			Amount:     amount,
			PuzzleID:   puzzleID,
			Expiration: tx.Now() + duration,
			Status:     StatusOpen,
		}

		if err := c.save(tx, b); err != nil {
			return err
		}

		tx.Emit(event.Event{Name: "created", Entity: id, Actor: creator, Amount: amount, Contract: Name})
		return nil
	})
	if err != nil {
		return 0, err
	}

	return id, nil
}

// Accept assigns the caller as the bounty's solver.
func (c *Contract) Accept(solver ledger.AccountID, id uint64) error {
	return c.host.Run(func(tx *host.Tx) error {
		b, err := c.load(tx, id)
		if err != nil {
			return err
		}

		if b.Status != StatusOpen {
			return fmt.Errorf("accept in %s: %w", b.Status, contract.ErrInvalidState)
		}

		if tx.Now() > b.Expiration {
			return fmt.Errorf("expired at %d: %w", b.Expiration, contract.ErrDeadlinePassed)
		}

		b.Solver = solver
		b.Status = StatusAccepted
		if err := c.save(tx, b); err != nil {
			return err
		}

		tx.Emit(event.Event{Name: "accepted", Entity: id, Actor: solver, Contract: Name})
		return nil
	})
}

// Submit marks the assigned solver's work as delivered.
func (c *Contract) Submit(solver ledger.AccountID, id uint64) error {
	return c.host.Run(func(tx *host.Tx) error {
		b, err := c.load(tx, id)
		if err != nil {
			return err
		}

		if b.Status != StatusAccepted {
			return fmt.Errorf("submit in %s: %w", b.Status, contract.ErrInvalidState)
		}

		if solver != b.Solver {
			return fmt.Errorf("account %s is not the assigned solver: %w", solver, contract.ErrUnauthorized)
		}

		if tx.Now() > b.Expiration {
			return fmt.Errorf("expired at %d: %w", b.Expiration, contract.ErrDeadlinePassed)
		}

		b.Status = StatusSubmitted
		if err := c.save(tx, b); err != nil {
			return err
		}

		tx.Emit(event.Event{Name: "submitted", Entity: id, Actor: solver, Contract: Name})
		return nil
	})
}

// Approve accepts the submitted work and pays the full reward to the solver.
func (c *Contract) Approve(creator ledger.AccountID, id uint64) error {
	return c.host.Run(func(tx *host.Tx) error {
		b, err := c.load(tx, id)
		if err != nil {
			return err
		}

		if creator != b.Creator {
			return fmt.Errorf("account %s is not the creator: %w", creator, contract.ErrUnauthorized)
		}

		if b.Status != StatusSubmitted {
			return fmt.Errorf("approve in %s: %w", b.Status, contract.ErrInvalidState)
		}

		if err := tx.Transfer(b.Token, c.custody, b.Solver, b.Amount); err != nil {
			return err
		}

		b.Status = StatusCompleted
		if err := c.save(tx, b); err != nil {
			return err
		}

		tx.Emit(event.Event{Name: "completed", Entity: id, Actor: b.Solver, Amount: b.Amount, Contract: Name})
		return nil
	})
}

// Cancel returns the reward to the creator. An open bounty cancels at any
// time; one with an assigned solver only after the expiration passed.
func (c *Contract) Cancel(creator ledger.AccountID, id uint64) error {
	return c.host.Run(func(tx *host.Tx) error {
		b, err := c.load(tx, id)
		if err != nil {
			return err
		}

		if creator != b.Creator {
			return fmt.Errorf("account %s is not the creator: %w", creator, contract.ErrUnauthorized)
		}

		switch b.Status {
		case StatusOpen:
		case StatusAccepted, StatusSubmitted:
			if tx.Now() <= b.Expiration {
				return fmt.Errorf("expiration %d, now %d: %w", b.Expiration, tx.Now(), contract.ErrDeadlineNotReached)
			}
		default:
			return fmt.Errorf("cancel in %s: %w", b.Status, contract.ErrInvalidState)
		}

		if err := tx.Transfer(b.Token, c.custody, b.Creator, b.Amount); err != nil {
			return err
		}

		b.Status = StatusCancelled
		if err := c.save(tx, b); err != nil {
			return err
		}

		tx.Emit(event.Event{Name: "cancelled", Entity: id, Actor: creator, Amount: b.Amount, Contract: Name})
		return nil
	})
}

// Dispute freezes the bounty until the admin resolves it. Only the creator
// or the assigned solver may dispute.
func (c *Contract) Dispute(caller ledger.AccountID, id uint64) error {
	return c.host.Run(func(tx *host.Tx) error {
		b, err := c.load(tx, id)
		if err != nil {
			return err
		}

		if caller != b.Creator && caller != b.Solver {
			return fmt.Errorf("account %s is neither creator nor solver: %w", caller, contract.ErrUnauthorized)
		}

		if b.Status != StatusAccepted && b.Status != StatusSubmitted {
			return fmt.Errorf("dispute in %s: %w", b.Status, contract.ErrInvalidState)
		}

		b.Status = StatusDisputed
		if err := c.save(tx, b); err != nil {
			return err
		}

		tx.Emit(event.Event{Name: "disputed", Entity: id, Actor: caller, Contract: Name})
		return nil
	})
}

// Resolve is the admin's dispute verdict: solverPayout goes to the solver
// and whatever remains of the reward returns to the creator.
func (c *Contract) Resolve(admin ledger.AccountID, id uint64, solverPayout uint64) error {
	return c.host.Run(func(tx *host.Tx) error {
		stored, err := tx.Get(c.key(keyAdmin))
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("no admin set: %w", contract.ErrUnauthorized)
			}
			return err
		}
		if admin != ledger.AccountID(stored) {
			return fmt.Errorf("account %s is not the admin: %w", admin, contract.ErrUnauthorized)
		}

		b, err := c.load(tx, id)
		if err != nil {
			return err
		}

		if b.Status != StatusDisputed {
			return fmt.Errorf("resolve in %s: %w", b.Status, contract.ErrInvalidState)
		}

		if solverPayout > b.Amount {
			return fmt.Errorf("payout %d exceeds reward %d: %w", solverPayout, b.Amount, contract.ErrAmountMismatch)
		}

		payouts := settle.Split(b.Solver, solverPayout, b.Creator, b.Amount)
		for _, payout := range payouts {
			if err := tx.Transfer(b.Token, c.custody, payout.Party, payout.Amount); err != nil {
				return err
			}
		}

		b.Status = StatusCompleted
		if err := c.save(tx, b); err != nil {
			return err
		}

		tx.Emit(event.Event{Name: "resolved", Entity: id, Actor: admin, Amount: solverPayout, Contract: Name})
		return nil
	})
}

// Query returns a snapshot of the bounty.
func (c *Contract) Query(id uint64) (Bounty, error) {
	var b Bounty
	err := c.host.View(func(tx *host.Tx) error {
		var err error
		b, err = c.load(tx, id)
		return err
	})

	return b, err
}

// Count returns how many bounties have been posted.
func (c *Contract) Count() (uint64, error) {
	var count uint64
	err := c.host.View(func(tx *host.Tx) error {
		var err error
		count, err = contract.ReadCounter(tx, c.key(keyNextID))
		return err
	})

	return count, err
}

// Active returns a page of bounties that still have work in flight. Offset
// counts matching bounties, not raw ids.
func (c *Contract) Active(offset uint64, limit uint64) ([]Bounty, error) {
	var page []Bounty
	err := c.host.View(func(tx *host.Tx) error {
		count, err := contract.ReadCounter(tx, c.key(keyNextID))
		if err != nil {
			return err
		}

		var matched uint64
		for id := uint64(1); id <= count && uint64(len(page)) < limit; id++ {
			b, err := c.load(tx, id)
			if err != nil {
				if errors.Is(err, contract.ErrNotFound) {
					continue
				}
				return err
			}

			if !b.Status.active() {
				continue
			}

			if matched >= offset {
				page = append(page, b)
			}
			matched++
		}

		return nil
	})

	return page, err
}

// =============================================================================

func (c *Contract) key(kind byte, parts ...any) store.Key {
	return store.NewKey(Name, kind, parts...)
}

func (c *Contract) load(tx *host.Tx, id uint64) (Bounty, error) {
	data, err := tx.Get(c.key(keyBounty, id))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Bounty{}, fmt.Errorf("bounty %d: %w", id, contract.ErrNotFound)
		}
		return Bounty{}, err
	}

	var b Bounty
	if err := json.Unmarshal(data, &b); err != nil {
		return Bounty{}, fmt.Errorf("bounty %d decode: %w", id, err)
	}

	return b, nil
}

func (c *Contract) save(tx *host.Tx, b Bounty) error {
	data, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("bounty %d encode: %w", b.ID, err)
	}

	return tx.Set(c.key(keyBounty, b.ID), data)
}
