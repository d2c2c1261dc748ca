// Package match implements multiplayer competitive matches with a
// commit/reveal score protocol: players buy in, commit a score hash
// during the submission phase, reveal during the reveal phase, and the
// pot goes to the top revealed score. Disputed reveals pause settlement
// until the creator rules on each one.
package match

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
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
const Name = "match"

const (
	keyMatch byte = iota + 1
	keyNextID
)

// Status represents the phase a match is in.
type Status int

// The set of match phases. Finished and Abandoned are terminal.
const (
	StatusOpen Status = iota + 1
	StatusSubmission
	StatusReveal
	StatusDisputed
	StatusFinished
	StatusAbandoned
)

// String implements the fmt.Stringer interface.
func (s Status) String() string {
	switch s {
	case StatusOpen:
		return "open"
	case StatusSubmission:
		return "submission"
	case StatusReveal:
		return "reveal"
	case StatusDisputed:
		return "disputed"
	case StatusFinished:
		return "finished"
	case StatusAbandoned:
		return "abandoned"
	}
	return "unknown"
}

// Match is the persistent record for one match. The ordered players slice
// fixes tie-break order for winner payouts.
type Match struct {
	ID                 uint64                                  `json:"id"`
	Creator            ledger.AccountID                        `json:"creator"`
	Token              ledger.Asset                            `json:"token"`
	EntryFee           uint64                                  `json:"entry_fee"`
	MinPlayers         int                                     `json:"min_players"`
	MaxPlayers         int                                     `json:"max_players"`
	Players            []ledger.AccountID                      `json:"players"`
	Status             Status                                  `json:"status"`
	Pot                uint64                                  `json:"pot"`
	PaidOut            uint64                                  `json:"paid_out"`
	CreatedAt          uint64                                  `json:"created_at"`
	JoinDeadline       uint64                                  `json:"join_deadline"`
	SubmissionDuration uint64                                  `json:"submission_duration"`
	RevealDuration     uint64                                  `json:"reveal_duration"`
	SubmissionDeadline uint64                                  `json:"submission_deadline"`
	RevealDeadline     uint64                                  `json:"reveal_deadline"`
	Commits            map[ledger.AccountID][]byte             `json:"commits"`
	Results            map[ledger.AccountID]int64              `json:"results"`
	Disputes           map[ledger.AccountID][]ledger.AccountID `json:"disputes"`
	Resolved           map[ledger.AccountID]bool               `json:"resolved"`
}

// hasPlayer reports whether the account joined the match.
func (m *Match) hasPlayer(accountID ledger.AccountID) bool {
	for _, player := range m.Players {
		if player == accountID {
			return true
		}
	}
	return false
}

// validResults filters revealed scores down to those that survived
// dispute resolution. An undisputed reveal is valid by default.
func (m *Match) validResults() map[ledger.AccountID]int64 {
	valid := make(map[ledger.AccountID]int64, len(m.Results))
	for player, score := range m.Results {
		if ok, disputed := m.Resolved[player]; disputed && !ok {
			continue
		}
		valid[player] = score
	}
	return valid
}

// CommitHash computes the commitment a player submits during the
// submission phase: sha256 over the player id, the big-endian score, and
// the player's secret.
func CommitHash(player ledger.AccountID, score int64, secret []byte) []byte {
	var scoreBuf [8]byte
	binary.BigEndian.PutUint64(scoreBuf[:], uint64(score))

	h := sha256.New()
	h.Write([]byte(player))
	h.Write(scoreBuf[:])
	h.Write(secret)
	return h.Sum(nil)
}

// =============================================================================

// Contract provides the match call surface against a host environment.
type Contract struct {
	host    *host.Host
	custody ledger.AccountID
}

// New constructs the match contract for the specified host.
func New(h *host.Host) *Contract {
	return &Contract{
		host:    h,
		custody: ledger.ContractAccount(Name),
	}
}

// CreateConfig carries the arguments for creating a match.
type CreateConfig struct {
	Token              ledger.Asset
	EntryFee           uint64
	MinPlayers         int
	MaxPlayers         int
	JoinDuration       uint64
	SubmissionDuration uint64
	RevealDuration     uint64
}

// Create opens a match and enrolls the creator as the first player,
// pulling the creator's entry fee into custody.
func (c *Contract) Create(creator ledger.AccountID, cfg CreateConfig) (uint64, error) {
	if cfg.MinPlayers < 2 || cfg.MaxPlayers < cfg.MinPlayers {
		return 0, fmt.Errorf("min %d, max %d: %w", cfg.MinPlayers, cfg.MaxPlayers, contract.ErrInvalidParties)
	}

	var id uint64
	err := c.host.Run(func(tx *host.Tx) error {
		var err error
		id, err = contract.NextID(tx, c.key(keyNextID))
		if err != nil {
			return err
		}

		if err := tx.Transfer(cfg.Token, creator, c.custody, cfg.EntryFee); err != nil {
			return err
		}

		m := Match{
			ID:                 id,
			Creator:            creator,
			Token:              cfg.Token,
			EntryFee:           cfg.EntryFee,
			MinPlayers:         cfg.MinPlayers,
			MaxPlayers:         cfg.MaxPlayers,
			Players:            []ledger.AccountID{creator},
			Status:             StatusOpen,
			Pot:                cfg.EntryFee,
			CreatedAt:          tx.Now(),
			JoinDeadline:       tx.Now() + cfg.JoinDuration,
			SubmissionDuration: cfg.SubmissionDuration,
			RevealDuration:     cfg.RevealDuration,
			Commits:            make(map[ledger.AccountID][]byte),
			Results:            make(map[ledger.AccountID]int64),
			Disputes:           make(map[ledger.AccountID][]ledger.AccountID),
			Resolved:           make(map[ledger.AccountID]bool),
		}

		if err := c.save(tx, m); err != nil {
			return err
		}

		tx.Emit(event.Event{Name: "created", Entity: id, Actor: creator, Amount: cfg.EntryFee, Contract: Name})
		return nil
	})
	if err != nil {
		return 0, err
	}

	return id, nil
}

// Join enrolls a player, pulling the entry fee into custody. Reaching the
// minimum player count starts the submission phase.
func (c *Contract) Join(player ledger.AccountID, id uint64) error {
	return c.host.Run(func(tx *host.Tx) error {
		m, err := c.load(tx, id)
		if err != nil {
			return err
		}

		if m.Status != StatusOpen {
			return fmt.Errorf("join in %s: %w", m.Status, contract.ErrInvalidState)
		}

		if tx.Now() > m.JoinDeadline {
			return fmt.Errorf("join deadline %d: %w", m.JoinDeadline, contract.ErrDeadlinePassed)
		}

		if len(m.Players) >= m.MaxPlayers {
			return fmt.Errorf("match is full at %d players: %w", m.MaxPlayers, contract.ErrInvalidState)
		}

		if m.hasPlayer(player) {
			return fmt.Errorf("player %s: %w", player, contract.ErrAlreadyDeposited)
		}

		if err := tx.Transfer(m.Token, player, c.custody, m.EntryFee); err != nil {
			return err
		}

		m.Players = append(m.Players, player)
		m.Pot += m.EntryFee
		tx.Emit(event.Event{Name: "joined", Entity: id, Actor: player, Amount: m.EntryFee, Contract: Name})

		if len(m.Players) >= m.MinPlayers {
			m.Status = StatusSubmission
			m.SubmissionDeadline = tx.Now() + m.SubmissionDuration
			tx.Emit(event.Event{Name: "started", Entity: id, Contract: Name})
		}

		return c.save(tx, m)
	})
}

// Leave withdraws a player from a match that has not started, refunding
// the entry fee.
func (c *Contract) Leave(player ledger.AccountID, id uint64) error {
	return c.host.Run(func(tx *host.Tx) error {
		m, err := c.load(tx, id)
		if err != nil {
			return err
		}

		if m.Status != StatusOpen {
			return fmt.Errorf("leave in %s: %w", m.Status, contract.ErrInvalidState)
		}

		idx := -1
		for i, p := range m.Players {
			if p == player {
				idx = i
				break
			}
		}
		if idx < 0 {
			return fmt.Errorf("player %s never joined: %w", player, contract.ErrUnauthorized)
		}

		if err := tx.Transfer(m.Token, c.custody, player, m.EntryFee); err != nil {
			return err
		}

		m.Players = append(m.Players[:idx], m.Players[idx+1:]...)
		m.Pot -= m.EntryFee

		if err := c.save(tx, m); err != nil {
			return err
		}

		tx.Emit(event.Event{Name: "left", Entity: id, Actor: player, Amount: m.EntryFee, Contract: Name})
		return nil
	})
}

// Commit records a player's score commitment. Once every player
// committed, the reveal phase begins immediately.
func (c *Contract) Commit(player ledger.AccountID, id uint64, commit []byte) error {
	if len(commit) != sha256.Size {
		return fmt.Errorf("commit must be %d bytes: %w", sha256.Size, contract.ErrInvalidState)
	}

	return c.host.Run(func(tx *host.Tx) error {
		m, err := c.load(tx, id)
		if err != nil {
			return err
		}

		if m.Status != StatusSubmission {
			return fmt.Errorf("commit in %s: %w", m.Status, contract.ErrInvalidState)
		}

		if tx.Now() > m.SubmissionDeadline {
			return fmt.Errorf("submission deadline %d: %w", m.SubmissionDeadline, contract.ErrDeadlinePassed)
		}

		if !m.hasPlayer(player) {
			return fmt.Errorf("player %s never joined: %w", player, contract.ErrUnauthorized)
		}

		m.Commits[player] = commit
		tx.Emit(event.Event{Name: "committed", Entity: id, Actor: player, Contract: Name})

		if len(m.Commits) == len(m.Players) {
			m.Status = StatusReveal
			m.RevealDeadline = tx.Now() + m.RevealDuration
			tx.Emit(event.Event{Name: "reveal", Entity: id, Contract: Name})
		}

		return c.save(tx, m)
	})
}

// Reveal opens a player's commitment. The revealed score is recorded only
// if it hashes to the stored commit.
func (c *Contract) Reveal(player ledger.AccountID, id uint64, score int64, secret []byte) error {
	return c.host.Run(func(tx *host.Tx) error {
		m, err := c.load(tx, id)
		if err != nil {
			return err
		}

		if m.Status != StatusReveal {
			return fmt.Errorf("reveal in %s: %w", m.Status, contract.ErrInvalidState)
		}

		if tx.Now() > m.RevealDeadline {
			return fmt.Errorf("reveal deadline %d: %w", m.RevealDeadline, contract.ErrDeadlinePassed)
		}

		if !m.hasPlayer(player) {
			return fmt.Errorf("player %s never joined: %w", player, contract.ErrUnauthorized)
		}

		commit, ok := m.Commits[player]
		if !ok {
			return fmt.Errorf("player %s never committed: %w", player, contract.ErrNotFound)
		}

		if !bytes.Equal(CommitHash(player, score, secret), commit) {
			return fmt.Errorf("reveal does not match commitment: %w", contract.ErrAmountMismatch)
		}

		m.Results[player] = score
		if err := c.save(tx, m); err != nil {
			return err
		}

		tx.Emit(event.Event{Name: "revealed", Entity: id, Actor: player, Contract: Name})
		return nil
	})
}

// RaiseDispute challenges another player's reveal. The match pauses in
// Disputed until the creator rules on every challenged player.
func (c *Contract) RaiseDispute(disputer ledger.AccountID, id uint64, disputed ledger.AccountID) error {
	return c.host.Run(func(tx *host.Tx) error {
		m, err := c.load(tx, id)
		if err != nil {
			return err
		}

		if m.Status != StatusReveal && m.Status != StatusDisputed {
			return fmt.Errorf("dispute in %s: %w", m.Status, contract.ErrInvalidState)
		}

		if !m.hasPlayer(disputer) || !m.hasPlayer(disputed) {
			return fmt.Errorf("both accounts must be players: %w", contract.ErrUnauthorized)
		}

		if disputer == disputed {
			return fmt.Errorf("cannot dispute yourself: %w", contract.ErrInvalidParties)
		}

		for _, prior := range m.Disputes[disputed] {
			if prior == disputer {
				return fmt.Errorf("player %s already disputed %s: %w", disputer, disputed, contract.ErrAlreadyResolved)
			}
		}

		m.Disputes[disputed] = append(m.Disputes[disputed], disputer)
		m.Status = StatusDisputed

		if err := c.save(tx, m); err != nil {
			return err
		}

		tx.Emit(event.Event{Name: "disputed", Entity: id, Actor: disputer, Contract: Name})
		return nil
	})
}

// ResolveDispute is the creator's ruling on one challenged player. An
// invalid ruling discards that player's revealed score. Once every
// challenged player is ruled on the match finishes.
func (c *Contract) ResolveDispute(creator ledger.AccountID, id uint64, disputed ledger.AccountID, valid bool) error {
	return c.host.Run(func(tx *host.Tx) error {
		m, err := c.load(tx, id)
		if err != nil {
			return err
		}

		if creator != m.Creator {
			return fmt.Errorf("account %s is not the creator: %w", creator, contract.ErrUnauthorized)
		}

		if m.Status != StatusDisputed {
			return fmt.Errorf("resolve in %s: %w", m.Status, contract.ErrInvalidState)
		}

		if _, ok := m.Disputes[disputed]; !ok {
			return fmt.Errorf("no dispute against %s: %w", disputed, contract.ErrNotFound)
		}

		if _, ok := m.Resolved[disputed]; ok {
			return fmt.Errorf("dispute against %s: %w", disputed, contract.ErrAlreadyResolved)
		}

		m.Resolved[disputed] = valid
		if !valid {
			delete(m.Results, disputed)
		}

		allResolved := true
		for player := range m.Disputes {
			if _, ok := m.Resolved[player]; !ok {
				allResolved = false
				break
			}
		}
		if allResolved {
			m.Status = StatusFinished
			tx.Emit(event.Event{Name: "finished", Entity: id, Contract: Name})
		}

		if err := c.save(tx, m); err != nil {
			return err
		}

		tx.Emit(event.Event{Name: "resolved", Entity: id, Actor: disputed, Contract: Name})
		return nil
	})
}

// Evaluate settles a finished match: the pot splits equally among every
// player holding the top valid score. With no valid results every player
// gets the entry fee back and the match is abandoned. Callable by anyone
// once the match is Finished, or once the reveal deadline passed.
func (c *Contract) Evaluate(id uint64) error {
	return c.host.Run(func(tx *host.Tx) error {
		m, err := c.load(tx, id)
		if err != nil {
			return err
		}

		switch m.Status {
		case StatusFinished:
		case StatusReveal:
			if tx.Now() <= m.RevealDeadline {
				return fmt.Errorf("reveal deadline %d, now %d: %w", m.RevealDeadline, tx.Now(), contract.ErrDeadlineNotReached)
			}
			m.Status = StatusFinished
		default:
			return fmt.Errorf("evaluate in %s: %w", m.Status, contract.ErrInvalidState)
		}

		valid := m.validResults()
		if len(valid) == 0 {
			if err := c.refundAll(tx, &m); err != nil {
				return err
			}
			m.Status = StatusAbandoned
			if err := c.save(tx, m); err != nil {
				return err
			}
			tx.Emit(event.Event{Name: "abandoned", Entity: id, Contract: Name})
			return nil
		}

		payouts := settle.WinnerTakeAll(m.Players, valid, m.Pot)
		var total uint64
		for _, payout := range payouts {
			if err := tx.Transfer(m.Token, c.custody, payout.Party, payout.Amount); err != nil {
				return err
			}
			total += payout.Amount
			tx.Emit(event.Event{Name: "won", Entity: id, Actor: payout.Party, Amount: payout.Amount, Contract: Name})
		}

		m.Pot -= total
		m.PaidOut += total

		return c.save(tx, m)
	})
}

// HandleTimeout performs the forced transition for an overdue phase. It
// is callable by anyone and fails if no deadline has passed.
func (c *Contract) HandleTimeout(id uint64) error {
	return c.host.Run(func(tx *host.Tx) error {
		m, err := c.load(tx, id)
		if err != nil {
			return err
		}

		now := tx.Now()

		switch {
		case m.Status == StatusOpen && now > m.JoinDeadline && len(m.Players) < m.MinPlayers:
			if err := c.refundAll(tx, &m); err != nil {
				return err
			}
			m.Status = StatusAbandoned
			tx.Emit(event.Event{Name: "abandoned", Entity: id, Contract: Name})

		case m.Status == StatusSubmission && now > m.SubmissionDeadline:
			m.Status = StatusReveal
			m.RevealDeadline = now + m.RevealDuration
			tx.Emit(event.Event{Name: "reveal", Entity: id, Contract: Name})

		case m.Status == StatusReveal && now > m.RevealDeadline:
			m.Status = StatusFinished
			tx.Emit(event.Event{Name: "finished", Entity: id, Contract: Name})

		default:
			return fmt.Errorf("no overdue deadline in %s: %w", m.Status, contract.ErrInvalidState)
		}

		return c.save(tx, m)
	})
}

// Query returns a snapshot of the match.
func (c *Contract) Query(id uint64) (Match, error) {
	var m Match
	err := c.host.View(func(tx *host.Tx) error {
		var err error
		m, err = c.load(tx, id)
		return err
	})

	return m, err
}

// =============================================================================

// refundAll returns every player's entry fee out of the pot.
func (c *Contract) refundAll(tx *host.Tx, m *Match) error {
	for _, player := range m.Players {
		if err := tx.Transfer(m.Token, c.custody, player, m.EntryFee); err != nil {
			return err
		}
	}

	refunded := m.EntryFee * uint64(len(m.Players))
	m.Pot -= refunded
	m.PaidOut += refunded

	return nil
}

func (c *Contract) key(kind byte, parts ...any) store.Key {
	return store.NewKey(Name, kind, parts...)
}

func (c *Contract) load(tx *host.Tx, id uint64) (Match, error) {
	data, err := tx.Get(c.key(keyMatch, id))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Match{}, fmt.Errorf("match %d: %w", id, contract.ErrNotFound)
		}
		return Match{}, err
	}

	var m Match
	if err := json.Unmarshal(data, &m); err != nil {
		return Match{}, fmt.Errorf("match %d decode: %w", id, err)
	}

	return m, nil
}

func (c *Contract) save(tx *host.Tx, m Match) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("match %d encode: %w", m.ID, err)
	}

	return tx.Set(c.key(keyMatch, m.ID), data)
}
