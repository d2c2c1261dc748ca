// Package royalty implements a pull-payment royalty splitter: revenue is
// distributed into per-recipient pending balances according to fixed
// basis-point shares, and each recipient withdraws its own balance.
package royalty

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

// Name is the contract namespace used for storage keys, custody, and events.
const Name = "royalty"

// basisPoints is the denominator for recipient shares. Shares must sum to
// exactly this value.
const basisPoints = 10_000

const (
	keyConfig byte = iota + 1
	keyPending
	keyCarry
)

// Split pairs a recipient with its basis-point share of every
// distribution.
type Split struct {
	Recipient ledger.AccountID `json:"recipient"`
	ShareBPS  uint32           `json:"share_bps"`
}

// Config is the splitter configuration written once at initialization.
// Split order is fixed and determines distribution order.
type Config struct {
	Admin         ledger.AccountID `json:"admin"`
	Token         ledger.Asset     `json:"token"`
	Splits        []Split          `json:"splits"`
	MaxRecipients int              `json:"max_recipients"`
}

// =============================================================================

// Contract provides the royalty call surface against a host environment.
type Contract struct {
	host    *host.Host
	custody ledger.AccountID
}

// New constructs the royalty contract for the specified host.
func New(h *host.Host) *Contract {
	return &Contract{
		host:    h,
		custody: ledger.ContractAccount(Name),
	}
}

// Init writes the splitter configuration. Shares must sum to exactly
// 10000 basis points. It may run only once.
func (c *Contract) Init(admin ledger.AccountID, token ledger.Asset, splits []Split, maxRecipients int) error {
	if len(splits) == 0 || len(splits) > maxRecipients {
		return fmt.Errorf("recipients %d, max %d: %w", len(splits), maxRecipients, contract.ErrInvalidParties)
	}

	seen := make(map[ledger.AccountID]bool)
	var total uint32
	for _, split := range splits {
		if seen[split.Recipient] {
			return fmt.Errorf("duplicate recipient %s: %w", split.Recipient, contract.ErrInvalidParties)
		}
		seen[split.Recipient] = true

		if split.ShareBPS == 0 {
			return fmt.Errorf("recipient %s share is zero: %w", split.Recipient, contract.ErrInvalidParties)
		}
		total += split.ShareBPS
	}
	if total != basisPoints {
		return fmt.Errorf("shares sum to %d bps, want %d: %w", total, basisPoints, contract.ErrAmountMismatch)
	}

	return c.host.Run(func(tx *host.Tx) error {
		exists, err := tx.Has(c.key(keyConfig))
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("splitter config: %w", contract.ErrAlreadyInitialized)
		}

		config := Config{
			Admin:         admin,
			Token:         token,
			Splits:        splits,
			MaxRecipients: maxRecipients,
		}

		data, err := json.Marshal(config)
		if err != nil {
			return fmt.Errorf("splitter config encode: %w", err)
		}

		return tx.Set(c.key(keyConfig), data)
	})
}

// Distribute pulls revenue from the payer into custody and credits each
// recipient's pending balance by its share. Truncation dust carries over
// into the next distribution.
func (c *Contract) Distribute(payer ledger.AccountID, amount uint64) error {
	if amount == 0 {
		return fmt.Errorf("amount is zero: %w", contract.ErrAmountMismatch)
	}

	return c.host.Run(func(tx *host.Tx) error {
		config, err := c.loadConfig(tx)
		if err != nil {
			return err
		}

		if err := tx.Transfer(config.Token, payer, c.custody, amount); err != nil {
			return err
		}

		carry, err := c.readAmount(tx, c.key(keyCarry))
		if err != nil {
			return err
		}

		total := amount + carry
		var credited uint64
		for _, split := range config.Splits {
			share := total * uint64(split.ShareBPS) / basisPoints
			if share == 0 {
				continue
			}

			pendingKey := c.key(keyPending, string(split.Recipient))
			pending, err := c.readAmount(tx, pendingKey)
			if err != nil {
				return err
			}
			if err := c.writeAmount(tx, pendingKey, pending+share); err != nil {
				return err
			}
			credited += share
		}

		if err := c.writeAmount(tx, c.key(keyCarry), total-credited); err != nil {
			return err
		}

		tx.Emit(event.Event{Name: "distributed", Actor: payer, Amount: amount, Contract: Name})
		return nil
	})
}

// Withdraw pays the recipient its whole pending balance.
func (c *Contract) Withdraw(recipient ledger.AccountID) (uint64, error) {
	var amount uint64
	err := c.host.Run(func(tx *host.Tx) error {
		config, err := c.loadConfig(tx)
		if err != nil {
			return err
		}

		pendingKey := c.key(keyPending, string(recipient))
		amount, err = c.readAmount(tx, pendingKey)
		if err != nil {
			return err
		}
		if amount == 0 {
			return fmt.Errorf("nothing pending for %s: %w", recipient, contract.ErrNotFound)
		}

		if err := tx.Transfer(config.Token, c.custody, recipient, amount); err != nil {
			return err
		}

		if err := tx.Remove(pendingKey); err != nil {
			return err
		}

		tx.Emit(event.Event{Name: "withdrawn", Actor: recipient, Amount: amount, Contract: Name})
		return nil
	})

	return amount, err
}

// Pending returns the recipient's undrawn balance.
func (c *Contract) Pending(recipient ledger.AccountID) (uint64, error) {
	var amount uint64
	err := c.host.View(func(tx *host.Tx) error {
		var err error
		amount, err = c.readAmount(tx, c.key(keyPending, string(recipient)))
		return err
	})

	return amount, err
}

// QueryConfig returns the splitter configuration.
func (c *Contract) QueryConfig() (Config, error) {
	var config Config
	err := c.host.View(func(tx *host.Tx) error {
		var err error
		config, err = c.loadConfig(tx)
		return err
	})

	return config, err
}

// =============================================================================

func (c *Contract) key(kind byte, parts ...any) store.Key {
	return store.NewKey(Name, kind, parts...)
}

func (c *Contract) loadConfig(tx *host.Tx) (Config, error) {
	data, err := tx.Get(c.key(keyConfig))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Config{}, fmt.Errorf("splitter config: %w", contract.ErrNotFound)
		}
		return Config{}, err
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return Config{}, fmt.Errorf("splitter config decode: %w", err)
	}

	return config, nil
}

// readAmount loads a uint64 amount stored as JSON, zero when absent.
func (c *Contract) readAmount(tx *host.Tx, key store.Key) (uint64, error) {
	data, err := tx.Get(key)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return 0, nil
		}
		return 0, err
	}

	var amount uint64
	if err := json.Unmarshal(data, &amount); err != nil {
		return 0, fmt.Errorf("amount decode: %w", err)
	}

	return amount, nil
}

func (c *Contract) writeAmount(tx *host.Tx, key store.Key, amount uint64) error {
	data, err := json.Marshal(amount)
	if err != nil {
		return fmt.Errorf("amount encode: %w", err)
	}

	return tx.Set(key, data)
}
