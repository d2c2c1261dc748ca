// Package collection implements achievement set tracking: achievements are
// grouped into rarity-tiered sets, players record and trade progress, and
// completing a full set awards its bonus points exactly once.
package collection

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Michellebuchiokonicha/quest-contract/business/contracts/contract"
	"github.com/Michellebuchiokonicha/quest-contract/foundation/ledger"
	"github.com/Michellebuchiokonicha/quest-contract/foundation/ledger/event"
	"github.com/Michellebuchiokonicha/quest-contract/foundation/ledger/host"
	"github.com/Michellebuchiokonicha/quest-contract/foundation/ledger/store"
)

// Name is the contract namespace used for storage keys and events.
const Name = "collection"

const (
	keySet byte = iota + 1
	keyNextSetID
	keyAchToSet
	keyProgress
	keyClaimCount
	keyBonus
	keyCompleted
)

// Rarity tiers a set.
type Rarity int

// The set of rarities.
const (
	RarityCommon Rarity = iota
	RarityRare
	RarityEpic
	RarityLegendary
)

// String implements the fmt.Stringer interface.
func (r Rarity) String() string {
	switch r {
	case RarityCommon:
		return "common"
	case RarityRare:
		return "rare"
	case RarityEpic:
		return "epic"
	case RarityLegendary:
		return "legendary"
	}
	return "unknown"
}

// Set groups achievements. A LimitedCap above zero caps how many players
// may claim each achievement in the set directly; traded progress is not
// capped.
type Set struct {
	ID           uint64   `json:"id"`
	Name         string   `json:"name"`
	Achievements []uint64 `json:"achievements"`
	Rarity       Rarity   `json:"rarity"`
	LimitedCap   uint64   `json:"limited_cap,omitempty"`
	BonusPoints  uint64   `json:"bonus_points"`
}

// completedBy reports whether the progress list covers every achievement
// in the set.
func (s *Set) completedBy(progress []uint64) bool {
	if len(progress) < len(s.Achievements) {
		return false
	}

	have := make(map[uint64]bool, len(progress))
	for _, id := range progress {
		have[id] = true
	}
	for _, id := range s.Achievements {
		if !have[id] {
			return false
		}
	}
	return true
}

// =============================================================================

// Contract provides the collection call surface against a host environment.
type Contract struct {
	host *host.Host
}

// New constructs the collection contract for the specified host.
func New(h *host.Host) *Contract {
	return &Contract{host: h}
}

// CreateSet registers a new achievement set. Each achievement may belong
// to at most one set.
func (c *Contract) CreateSet(name string, achievements []uint64, rarity Rarity, limitedCap uint64, bonusPoints uint64) (uint64, error) {
	if len(achievements) == 0 {
		return 0, fmt.Errorf("empty set: %w", contract.ErrInvalidParties)
	}

	var id uint64
	err := c.host.Run(func(tx *host.Tx) error {
		var err error
		id, err = contract.NextID(tx, c.key(keyNextSetID))
		if err != nil {
			return err
		}

		for _, achievementID := range achievements {
			mapped, err := tx.Has(c.key(keyAchToSet, achievementID))
			if err != nil {
				return err
			}
			if mapped {
				return fmt.Errorf("achievement %d already mapped: %w", achievementID, contract.ErrAlreadyDeposited)
			}
			if err := c.writeUint(tx, c.key(keyAchToSet, achievementID), id); err != nil {
				return err
			}
		}

		s := Set{
			ID:           id,
			Name:         name,
			Achievements: achievements,
			Rarity:       rarity,
			LimitedCap:   limitedCap,
			BonusPoints:  bonusPoints,
		}

		if err := c.saveSet(tx, s); err != nil {
			return err
		}

		tx.Emit(event.Event{Name: "set_created", Entity: id, Contract: Name})
		return nil
	})
	if err != nil {
		return 0, err
	}

	return id, nil
}

// AddAchievement maps one more achievement into an existing set. Adding
// an achievement the set already holds is a no-op.
func (c *Contract) AddAchievement(setID uint64, achievementID uint64) error {
	return c.host.Run(func(tx *host.Tx) error {
		s, err := c.loadSet(tx, setID)
		if err != nil {
			return err
		}

		for _, existing := range s.Achievements {
			if existing == achievementID {
				return nil
			}
		}

		mapped, err := tx.Has(c.key(keyAchToSet, achievementID))
		if err != nil {
			return err
		}
		if mapped {
			return fmt.Errorf("achievement %d already mapped: %w", achievementID, contract.ErrAlreadyDeposited)
		}

		s.Achievements = append(s.Achievements, achievementID)
		if err := c.saveSet(tx, s); err != nil {
			return err
		}

		return c.writeUint(tx, c.key(keyAchToSet, achievementID), setID)
	})
}

// Record marks an achievement earned by the player. It returns whether
// the player's set is now complete; the completion bonus is credited the
// first time completion is reached.
func (c *Contract) Record(player ledger.AccountID, achievementID uint64) (bool, error) {
	var completed bool
	err := c.host.Run(func(tx *host.Tx) error {
		setID, err := c.readUint(tx, c.key(keyAchToSet, achievementID))
		if err != nil {
			return err
		}
		if setID == 0 {
			return fmt.Errorf("achievement %d not in any set: %w", achievementID, contract.ErrNotFound)
		}

		s, err := c.loadSet(tx, setID)
		if err != nil {
			return err
		}

		progress, err := c.loadProgress(tx, player, setID)
		if err != nil {
			return err
		}

		owned := false
		for _, id := range progress {
			if id == achievementID {
				owned = true
				break
			}
		}

		if !owned {
			if s.LimitedCap > 0 {
				claims, err := c.readUint(tx, c.key(keyClaimCount, achievementID))
				if err != nil {
					return err
				}
				if claims >= s.LimitedCap {
					return fmt.Errorf("achievement %d cap %d reached: %w", achievementID, s.LimitedCap, contract.ErrInvalidState)
				}
				if err := c.writeUint(tx, c.key(keyClaimCount, achievementID), claims+1); err != nil {
					return err
				}
			}

			progress = append(progress, achievementID)
			if err := c.saveProgress(tx, player, setID, progress); err != nil {
				return err
			}

			tx.Emit(event.Event{Name: "recorded", Entity: achievementID, Actor: player, Contract: Name})
		}

		completed = s.completedBy(progress)
		if completed {
			if err := c.awardBonus(tx, player, s); err != nil {
				return err
			}
		}

		return nil
	})

	return completed, err
}

// TransferProgress moves one earned achievement from one player to
// another within its set. Trades bypass the limited cap.
func (c *Contract) TransferProgress(from ledger.AccountID, to ledger.AccountID, achievementID uint64) error {
	return c.host.Run(func(tx *host.Tx) error {
		setID, err := c.readUint(tx, c.key(keyAchToSet, achievementID))
		if err != nil {
			return err
		}
		if setID == 0 {
			return fmt.Errorf("achievement %d not in any set: %w", achievementID, contract.ErrNotFound)
		}

		fromProgress, err := c.loadProgress(tx, from, setID)
		if err != nil {
			return err
		}

		idx := -1
		for i, id := range fromProgress {
			if id == achievementID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return fmt.Errorf("player %s never earned achievement %d: %w", from, achievementID, contract.ErrUnauthorized)
		}

		fromProgress = append(fromProgress[:idx], fromProgress[idx+1:]...)
		if err := c.saveProgress(tx, from, setID, fromProgress); err != nil {
			return err
		}

		toProgress, err := c.loadProgress(tx, to, setID)
		if err != nil {
			return err
		}
		for _, id := range toProgress {
			if id == achievementID {
				return nil
			}
		}

		toProgress = append(toProgress, achievementID)
		if err := c.saveProgress(tx, to, setID, toProgress); err != nil {
			return err
		}

		tx.Emit(event.Event{Name: "traded", Entity: achievementID, Actor: to, Contract: Name})
		return nil
	})
}

// QuerySet returns a snapshot of a set.
func (c *Contract) QuerySet(setID uint64) (Set, error) {
	var s Set
	err := c.host.View(func(tx *host.Tx) error {
		var err error
		s, err = c.loadSet(tx, setID)
		return err
	})

	return s, err
}

// Progress returns the achievements a player has earned in a set.
func (c *Contract) Progress(player ledger.AccountID, setID uint64) ([]uint64, error) {
	var progress []uint64
	err := c.host.View(func(tx *host.Tx) error {
		var err error
		progress, err = c.loadProgress(tx, player, setID)
		return err
	})

	return progress, err
}

// IsCompleted reports whether a player finished a set.
func (c *Contract) IsCompleted(player ledger.AccountID, setID uint64) (bool, error) {
	var completed bool
	err := c.host.View(func(tx *host.Tx) error {
		s, err := c.loadSet(tx, setID)
		if err != nil {
			return err
		}

		progress, err := c.loadProgress(tx, player, setID)
		if err != nil {
			return err
		}

		completed = s.completedBy(progress)
		return nil
	})

	return completed, err
}

// BonusOf returns a player's accumulated bonus points.
func (c *Contract) BonusOf(player ledger.AccountID) (uint64, error) {
	var bonus uint64
	err := c.host.View(func(tx *host.Tx) error {
		var err error
		bonus, err = c.readUint(tx, c.key(keyBonus, string(player)))
		return err
	})

	return bonus, err
}

// =============================================================================

// awardBonus credits the set's bonus points once per player per set.
func (c *Contract) awardBonus(tx *host.Tx, player ledger.AccountID, s Set) error {
	already, err := tx.Has(c.key(keyCompleted, string(player), s.ID))
	if err != nil {
		return err
	}
	if already {
		return nil
	}

	bonus, err := c.readUint(tx, c.key(keyBonus, string(player)))
	if err != nil {
		return err
	}
	if err := c.writeUint(tx, c.key(keyBonus, string(player)), bonus+s.BonusPoints); err != nil {
		return err
	}
	if err := tx.Set(c.key(keyCompleted, string(player), s.ID), []byte{1}); err != nil {
		return err
	}

	tx.Emit(event.Event{Name: "completed", Entity: s.ID, Actor: player, Amount: s.BonusPoints, Contract: Name})
	return nil
}

func (c *Contract) key(kind byte, parts ...any) store.Key {
	return store.NewKey(Name, kind, parts...)
}

func (c *Contract) loadSet(tx *host.Tx, setID uint64) (Set, error) {
	data, err := tx.Get(c.key(keySet, setID))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Set{}, fmt.Errorf("set %d: %w", setID, contract.ErrNotFound)
		}
		return Set{}, err
	}

	var s Set
	if err := json.Unmarshal(data, &s); err != nil {
		return Set{}, fmt.Errorf("set %d decode: %w", setID, err)
	}

	return s, nil
}

func (c *Contract) saveSet(tx *host.Tx, s Set) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("set %d encode: %w", s.ID, err)
	}

	return tx.Set(c.key(keySet, s.ID), data)
}

func (c *Contract) loadProgress(tx *host.Tx, player ledger.AccountID, setID uint64) ([]uint64, error) {
	data, err := tx.Get(c.key(keyProgress, string(player), setID))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var progress []uint64
	if err := json.Unmarshal(data, &progress); err != nil {
		return nil, fmt.Errorf("progress decode: %w", err)
	}

	return progress, nil
}

func (c *Contract) saveProgress(tx *host.Tx, player ledger.AccountID, setID uint64, progress []uint64) error {
	key := c.key(keyProgress, string(player), setID)
	if len(progress) == 0 {
		return tx.Remove(key)
	}

	data, err := json.Marshal(progress)
	if err != nil {
		return fmt.Errorf("progress encode: %w", err)
	}

	return tx.Set(key, data)
}

// readUint loads a JSON-encoded uint64, zero when absent.
func (c *Contract) readUint(tx *host.Tx, key store.Key) (uint64, error) {
	data, err := tx.Get(key)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return 0, nil
		}
		return 0, err
	}

	var v uint64
	if err := json.Unmarshal(data, &v); err != nil {
		return 0, fmt.Errorf("value decode: %w", err)
	}

	return v, nil
}

func (c *Contract) writeUint(tx *host.Tx, key store.Key, v uint64) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("value encode: %w", err)
	}

	return tx.Set(key, data)
}
