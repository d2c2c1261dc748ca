// Package vault implements time-locked reward positions: an owner locks
// tokens against one of a configured set of lock periods and withdraws
// principal plus a basis-point bonus at maturity. Early withdrawal pays a
// penalty; an admin-gated emergency unlock and a beneficiary inheritance
// path cover exceptional exits.
package vault

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
const Name = "vault"

// basisPoints is the denominator for every bonus and penalty rate.
const basisPoints = 10_000

const (
	keyConfig byte = iota + 1
	keyPosition
)

// LockOption pairs a supported lock period with its bonus rate.
type LockOption struct {
	Period   uint64 `json:"period"`
	BonusBPS uint32 `json:"bonus_bps"`
}

// Config is the vault-wide configuration written once at initialization.
type Config struct {
	Admin           ledger.AccountID `json:"admin"`
	Token           ledger.Asset     `json:"token"`
	EarlyPenaltyBPS uint32           `json:"early_penalty_bps"`
	EmergencyBPS    uint32           `json:"emergency_bps"`
	EmergencyUnlock bool             `json:"emergency_unlock"`
	LockOptions     []LockOption     `json:"lock_options"`
}

// Position is one owner's locked deposit. An owner holds at most one
// position at a time.
type Position struct {
	Owner       ledger.AccountID `json:"owner"`
	Amount      uint64           `json:"amount"`
	LockPeriod  uint64           `json:"lock_period"`
	BonusBPS    uint32           `json:"bonus_bps"`
	DepositedAt uint64           `json:"deposited_at"`
	MaturityAt  uint64           `json:"maturity_at"`
	Beneficiary ledger.AccountID `json:"beneficiary,omitempty"`
}

// bonus computes the maturity bonus for the position, truncating.
func (p *Position) bonus() uint64 {
	return p.Amount * uint64(p.BonusBPS) / basisPoints
}

// =============================================================================

// Contract provides the vault call surface against a host environment.
type Contract struct {
	host    *host.Host
	custody ledger.AccountID
}

// New constructs the vault contract for the specified host.
func New(h *host.Host) *Contract {
	return &Contract{
		host:    h,
		custody: ledger.ContractAccount(Name),
	}
}

// InitConfig carries the arguments for initializing the vault.
type InitConfig struct {
	Admin           ledger.AccountID
	Token           ledger.Asset
	EarlyPenaltyBPS uint32
	EmergencyBPS    uint32
	LockOptions     []LockOption
}

// Init writes the vault configuration. It may run only once.
func (c *Contract) Init(cfg InitConfig) error {
	if len(cfg.LockOptions) == 0 {
		return fmt.Errorf("no lock options: %w", contract.ErrInvalidParties)
	}
	for _, opt := range cfg.LockOptions {
		if opt.Period == 0 {
			return fmt.Errorf("zero lock period: %w", contract.ErrInvalidParties)
		}
	}
	if cfg.EarlyPenaltyBPS > basisPoints || cfg.EmergencyBPS > basisPoints {
		return fmt.Errorf("penalty above %d bps: %w", basisPoints, contract.ErrAmountMismatch)
	}

	return c.host.Run(func(tx *host.Tx) error {
		exists, err := tx.Has(c.key(keyConfig))
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("vault config: %w", contract.ErrAlreadyInitialized)
		}

		config := Config{
			Admin:           cfg.Admin,
			Token:           cfg.Token,
			EarlyPenaltyBPS: cfg.EarlyPenaltyBPS,
			EmergencyBPS:    cfg.EmergencyBPS,
			LockOptions:     cfg.LockOptions,
		}

		return c.saveConfig(tx, config)
	})
}

// FundBonusPool moves admin tokens into custody to back future bonuses.
func (c *Contract) FundBonusPool(admin ledger.AccountID, amount uint64) error {
	if amount == 0 {
		return fmt.Errorf("amount is zero: %w", contract.ErrAmountMismatch)
	}

	return c.host.Run(func(tx *host.Tx) error {
		config, err := c.loadConfig(tx)
		if err != nil {
			return err
		}

		if admin != config.Admin {
			return fmt.Errorf("account %s is not the admin: %w", admin, contract.ErrUnauthorized)
		}

		if err := tx.Transfer(config.Token, admin, c.custody, amount); err != nil {
			return err
		}

		tx.Emit(event.Event{Name: "funded", Actor: admin, Amount: amount, Contract: Name})
		return nil
	})
}

// SetEmergencyUnlock toggles the emergency withdrawal path.
func (c *Contract) SetEmergencyUnlock(admin ledger.AccountID, enabled bool) error {
	return c.host.Run(func(tx *host.Tx) error {
		config, err := c.loadConfig(tx)
		if err != nil {
			return err
		}

		if admin != config.Admin {
			return fmt.Errorf("account %s is not the admin: %w", admin, contract.ErrUnauthorized)
		}

		config.EmergencyUnlock = enabled
		return c.saveConfig(tx, config)
	})
}

// Deposit locks the owner's tokens for one of the configured lock
// periods. An owner may hold only one position at a time.
func (c *Contract) Deposit(owner ledger.AccountID, amount uint64, lockPeriod uint64) error {
	if amount == 0 {
		return fmt.Errorf("amount is zero: %w", contract.ErrAmountMismatch)
	}

	return c.host.Run(func(tx *host.Tx) error {
		config, err := c.loadConfig(tx)
		if err != nil {
			return err
		}

		exists, err := tx.Has(c.key(keyPosition, string(owner)))
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("owner %s: %w", owner, contract.ErrAlreadyDeposited)
		}

		bonusBPS, err := bonusForPeriod(config, lockPeriod)
		if err != nil {
			return err
		}

		if err := tx.Transfer(config.Token, owner, c.custody, amount); err != nil {
			return err
		}

		p := Position{
			Owner:       owner,
			Amount:      amount,
			LockPeriod:  lockPeriod,
			BonusBPS:    bonusBPS,
			DepositedAt: tx.Now(),
			MaturityAt:  tx.Now() + lockPeriod,
		}

		if err := c.savePosition(tx, p); err != nil {
			return err
		}

		tx.Emit(event.Event{Name: "deposited", Actor: owner, Amount: amount, Contract: Name})
		return nil
	})
}

// SetBeneficiary names the account allowed to claim the position after
// maturity in the owner's stead.
func (c *Contract) SetBeneficiary(owner ledger.AccountID, beneficiary ledger.AccountID) error {
	return c.host.Run(func(tx *host.Tx) error {
		p, err := c.loadPosition(tx, owner)
		if err != nil {
			return err
		}

		p.Beneficiary = beneficiary
		return c.savePosition(tx, p)
	})
}

// ExtendLock lengthens an unmatured position's lock. The bonus rate is
// re-quoted for the new total lock period, which must be a configured
// option.
func (c *Contract) ExtendLock(owner ledger.AccountID, additional uint64) error {
	if additional == 0 {
		return fmt.Errorf("additional lock is zero: %w", contract.ErrAmountMismatch)
	}

	return c.host.Run(func(tx *host.Tx) error {
		config, err := c.loadConfig(tx)
		if err != nil {
			return err
		}

		p, err := c.loadPosition(tx, owner)
		if err != nil {
			return err
		}

		if tx.Now() >= p.MaturityAt {
			return fmt.Errorf("position already matured: %w", contract.ErrDeadlinePassed)
		}

		newLock := (p.MaturityAt - p.DepositedAt) + additional
		bonusBPS, err := bonusForPeriod(config, newLock)
		if err != nil {
			return err
		}

		p.LockPeriod = newLock
		p.BonusBPS = bonusBPS
		p.MaturityAt += additional

		if err := c.savePosition(tx, p); err != nil {
			return err
		}

		tx.Emit(event.Event{Name: "extended", Actor: owner, Amount: newLock, Contract: Name})
		return nil
	})
}

// WithdrawMature pays principal plus bonus to the owner once the
// position matured and closes it.
func (c *Contract) WithdrawMature(owner ledger.AccountID) (uint64, error) {
	var payout uint64
	err := c.host.Run(func(tx *host.Tx) error {
		config, err := c.loadConfig(tx)
		if err != nil {
			return err
		}

		p, err := c.loadPosition(tx, owner)
		if err != nil {
			return err
		}

		if tx.Now() < p.MaturityAt {
			return fmt.Errorf("maturity %d, now %d: %w", p.MaturityAt, tx.Now(), contract.ErrDeadlineNotReached)
		}

		payout = p.Amount + p.bonus()
		if err := tx.Transfer(config.Token, c.custody, owner, payout); err != nil {
			return err
		}

		if err := tx.Remove(c.key(keyPosition, string(owner))); err != nil {
			return err
		}

		tx.Emit(event.Event{Name: "withdrawn", Actor: owner, Amount: payout, Contract: Name})
		return nil
	})

	return payout, err
}

// EarlyWithdraw closes an unmatured position, paying principal minus the
// configured penalty. The forfeited penalty stays in custody backing the
// bonus pool.
func (c *Contract) EarlyWithdraw(owner ledger.AccountID) (uint64, error) {
	var payout uint64
	err := c.host.Run(func(tx *host.Tx) error {
		config, err := c.loadConfig(tx)
		if err != nil {
			return err
		}

		p, err := c.loadPosition(tx, owner)
		if err != nil {
			return err
		}

		if tx.Now() >= p.MaturityAt {
			return fmt.Errorf("position already matured: %w", contract.ErrDeadlinePassed)
		}

		penalty := p.Amount * uint64(config.EarlyPenaltyBPS) / basisPoints
		payout = p.Amount - penalty

		if err := tx.Transfer(config.Token, c.custody, owner, payout); err != nil {
			return err
		}

		if err := tx.Remove(c.key(keyPosition, string(owner))); err != nil {
			return err
		}

		tx.Emit(event.Event{Name: "early", Actor: owner, Amount: payout, Contract: Name})
		return nil
	})

	return payout, err
}

// EmergencyWithdraw closes a position regardless of maturity, paying
// principal minus the emergency penalty. The admin must have enabled the
// emergency unlock first.
func (c *Contract) EmergencyWithdraw(owner ledger.AccountID) (uint64, error) {
	var payout uint64
	err := c.host.Run(func(tx *host.Tx) error {
		config, err := c.loadConfig(tx)
		if err != nil {
			return err
		}

		if !config.EmergencyUnlock {
			return fmt.Errorf("emergency unlock disabled: %w", contract.ErrInvalidState)
		}

		p, err := c.loadPosition(tx, owner)
		if err != nil {
			return err
		}

		penalty := p.Amount * uint64(config.EmergencyBPS) / basisPoints
		payout = p.Amount - penalty

		if err := tx.Transfer(config.Token, c.custody, owner, payout); err != nil {
			return err
		}

		if err := tx.Remove(c.key(keyPosition, string(owner))); err != nil {
			return err
		}

		tx.Emit(event.Event{Name: "emergency", Actor: owner, Amount: payout, Contract: Name})
		return nil
	})

	return payout, err
}

// ClaimInheritance pays a matured position, principal plus bonus, to its
// named beneficiary and closes it.
func (c *Contract) ClaimInheritance(beneficiary ledger.AccountID, owner ledger.AccountID) (uint64, error) {
	var payout uint64
	err := c.host.Run(func(tx *host.Tx) error {
		config, err := c.loadConfig(tx)
		if err != nil {
			return err
		}

		p, err := c.loadPosition(tx, owner)
		if err != nil {
			return err
		}

		if tx.Now() < p.MaturityAt {
			return fmt.Errorf("maturity %d, now %d: %w", p.MaturityAt, tx.Now(), contract.ErrDeadlineNotReached)
		}

		if p.Beneficiary == "" || beneficiary != p.Beneficiary {
			return fmt.Errorf("account %s is not the beneficiary: %w", beneficiary, contract.ErrUnauthorized)
		}

		payout = p.Amount + p.bonus()
		if err := tx.Transfer(config.Token, c.custody, beneficiary, payout); err != nil {
			return err
		}

		if err := tx.Remove(c.key(keyPosition, string(owner))); err != nil {
			return err
		}

		tx.Emit(event.Event{Name: "inherited", Actor: beneficiary, Amount: payout, Contract: Name})
		return nil
	})

	return payout, err
}

// QueryConfig returns the vault configuration.
func (c *Contract) QueryConfig() (Config, error) {
	var config Config
	err := c.host.View(func(tx *host.Tx) error {
		var err error
		config, err = c.loadConfig(tx)
		return err
	})

	return config, err
}

// QueryPosition returns the owner's position.
func (c *Contract) QueryPosition(owner ledger.AccountID) (Position, error) {
	var p Position
	err := c.host.View(func(tx *host.Tx) error {
		var err error
		p, err = c.loadPosition(tx, owner)
		return err
	})

	return p, err
}

// TimeUntilMaturity reports the seconds left on the owner's lock, zero if
// matured or absent.
func (c *Contract) TimeUntilMaturity(owner ledger.AccountID) (uint64, error) {
	var left uint64
	err := c.host.View(func(tx *host.Tx) error {
		p, err := c.loadPosition(tx, owner)
		if err != nil {
			if errors.Is(err, contract.ErrNotFound) {
				return nil
			}
			return err
		}

		if tx.Now() < p.MaturityAt {
			left = p.MaturityAt - tx.Now()
		}
		return nil
	})

	return left, err
}

// PreviewPayout quotes the maturity payout for the owner's position, zero
// if absent.
func (c *Contract) PreviewPayout(owner ledger.AccountID) (uint64, error) {
	var payout uint64
	err := c.host.View(func(tx *host.Tx) error {
		p, err := c.loadPosition(tx, owner)
		if err != nil {
			if errors.Is(err, contract.ErrNotFound) {
				return nil
			}
			return err
		}

		payout = p.Amount + p.bonus()
		return nil
	})

	return payout, err
}

// QuoteBonus quotes the bonus an amount would earn under a lock period.
func (c *Contract) QuoteBonus(lockPeriod uint64, amount uint64) (uint64, error) {
	if amount == 0 {
		return 0, fmt.Errorf("amount is zero: %w", contract.ErrAmountMismatch)
	}

	var bonus uint64
	err := c.host.View(func(tx *host.Tx) error {
		config, err := c.loadConfig(tx)
		if err != nil {
			return err
		}

		bps, err := bonusForPeriod(config, lockPeriod)
		if err != nil {
			return err
		}

		bonus = amount * uint64(bps) / basisPoints
		return nil
	})

	return bonus, err
}

// =============================================================================

// bonusForPeriod looks up the bonus rate for an exact configured period.
func bonusForPeriod(config Config, lockPeriod uint64) (uint32, error) {
	for _, opt := range config.LockOptions {
		if opt.Period == lockPeriod {
			return opt.BonusBPS, nil
		}
	}
	return 0, fmt.Errorf("unsupported lock period %d: %w", lockPeriod, contract.ErrNotFound)
}

func (c *Contract) key(kind byte, parts ...any) store.Key {
	return store.NewKey(Name, kind, parts...)
}

func (c *Contract) loadConfig(tx *host.Tx) (Config, error) {
	data, err := tx.Get(c.key(keyConfig))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Config{}, fmt.Errorf("vault config: %w", contract.ErrNotFound)
		}
		return Config{}, err
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return Config{}, fmt.Errorf("vault config decode: %w", err)
	}

	return config, nil
}

func (c *Contract) saveConfig(tx *host.Tx, config Config) error {
	data, err := json.Marshal(config)
	if err != nil {
		return fmt.Errorf("vault config encode: %w", err)
	}

	return tx.Set(c.key(keyConfig), data)
}

func (c *Contract) loadPosition(tx *host.Tx, owner ledger.AccountID) (Position, error) {
	data, err := tx.Get(c.key(keyPosition, string(owner)))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Position{}, fmt.Errorf("position for %s: %w", owner, contract.ErrNotFound)
		}
		return Position{}, err
	}

	var p Position
	if err := json.Unmarshal(data, &p); err != nil {
		return Position{}, fmt.Errorf("position for %s decode: %w", owner, err)
	}

	return p, nil
}

func (c *Contract) savePosition(tx *host.Tx, p Position) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("position for %s encode: %w", p.Owner, err)
	}

	return tx.Set(c.key(keyPosition, string(p.Owner)), data)
}
