// Package nft implements achievement NFTs: admin-minted, owner-transferable
// tokens with per-owner enumeration and a live total supply.
package nft

import (
	"encoding/binary"
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
const Name = "nft"

const (
	keyConfig byte = iota + 1
	keyToken
	keyOwnerTokens
	keyNextID
	keySupply
)

// Achievement is one minted token.
type Achievement struct {
	ID       uint64           `json:"id"`
	Owner    ledger.AccountID `json:"owner"`
	Kind     uint64           `json:"kind"`
	Metadata string           `json:"metadata"`
	MintedAt uint64           `json:"minted_at"`
}

// config holds the admin and the set of accounts allowed to mint.
type config struct {
	Admin   ledger.AccountID   `json:"admin"`
	Minters []ledger.AccountID `json:"minters"`
}

func (c *config) canMint(accountID ledger.AccountID) bool {
	if accountID == c.Admin {
		return true
	}
	for _, minter := range c.Minters {
		if minter == accountID {
			return true
		}
	}
	return false
}

// =============================================================================

// Contract provides the NFT call surface against a host environment.
type Contract struct {
	host *host.Host
}

// New constructs the NFT contract for the specified host.
func New(h *host.Host) *Contract {
	return &Contract{host: h}
}

// Init records the admin. It may run only once.
func (c *Contract) Init(admin ledger.AccountID) error {
	return c.host.Run(func(tx *host.Tx) error {
		exists, err := tx.Has(c.key(keyConfig))
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("admin already set: %w", contract.ErrAlreadyInitialized)
		}

		return c.saveConfig(tx, config{Admin: admin})
	})
}

// AddMinter authorizes an additional minting account. Contracts that
// award achievements register their custody account here.
func (c *Contract) AddMinter(admin ledger.AccountID, minter ledger.AccountID) error {
	return c.host.Run(func(tx *host.Tx) error {
		cfg, err := c.loadConfig(tx)
		if err != nil {
			return err
		}

		if admin != cfg.Admin {
			return fmt.Errorf("account %s is not the admin: %w", admin, contract.ErrUnauthorized)
		}

		if cfg.canMint(minter) {
			return nil
		}

		cfg.Minters = append(cfg.Minters, minter)
		return c.saveConfig(tx, cfg)
	})
}

// Mint issues a new achievement token to the owner. Only the admin or an
// authorized minter may mint.
func (c *Contract) Mint(minter ledger.AccountID, owner ledger.AccountID, kind uint64, metadata string) (uint64, error) {
	var id uint64
	err := c.host.Run(func(tx *host.Tx) error {
		var err error
		id, err = c.mint(tx, minter, owner, kind, metadata)
		return err
	})
	if err != nil {
		return 0, err
	}

	return id, nil
}

// Transfer moves a token between accounts. Only the current owner may
// transfer.
func (c *Contract) Transfer(from ledger.AccountID, to ledger.AccountID, id uint64) error {
	return c.host.Run(func(tx *host.Tx) error {
		a, err := c.loadToken(tx, id)
		if err != nil {
			return err
		}

		if a.Owner != from {
			return fmt.Errorf("account %s is not the owner of token %d: %w", from, id, contract.ErrUnauthorized)
		}

		if err := c.removeOwned(tx, from, id); err != nil {
			return err
		}
		if err := c.appendOwned(tx, to, id); err != nil {
			return err
		}

		a.Owner = to
		if err := c.saveToken(tx, a); err != nil {
			return err
		}

		tx.Emit(event.Event{Name: "transferred", Entity: id, Actor: to, Contract: Name})
		return nil
	})
}

// Burn destroys a token. Only the current owner may burn.
func (c *Contract) Burn(owner ledger.AccountID, id uint64) error {
	return c.host.Run(func(tx *host.Tx) error {
		return c.burn(tx, owner, id)
	})
}

// OwnerOf returns the current owner of a token.
func (c *Contract) OwnerOf(id uint64) (ledger.AccountID, error) {
	var owner ledger.AccountID
	err := c.host.View(func(tx *host.Tx) error {
		a, err := c.loadToken(tx, id)
		if err != nil {
			return err
		}
		owner = a.Owner
		return nil
	})

	return owner, err
}

// Query returns a snapshot of a token.
func (c *Contract) Query(id uint64) (Achievement, error) {
	var a Achievement
	err := c.host.View(func(tx *host.Tx) error {
		var err error
		a, err = c.loadToken(tx, id)
		return err
	})

	return a, err
}

// Collection returns the token ids owned by an account in mint order.
func (c *Contract) Collection(owner ledger.AccountID) ([]uint64, error) {
	var ids []uint64
	err := c.host.View(func(tx *host.Tx) error {
		var err error
		ids, err = c.loadOwned(tx, owner)
		return err
	})

	return ids, err
}

// TotalSupply returns the count of live tokens: mints minus burns.
func (c *Contract) TotalSupply() (uint64, error) {
	var supply uint64
	err := c.host.View(func(tx *host.Tx) error {
		var err error
		supply, err = c.readSupply(tx)
		return err
	})

	return supply, err
}

// =============================================================================

// mint is the transaction-level mint shared by the public operation and
// the cross-contract registry.
func (c *Contract) mint(tx *host.Tx, minter ledger.AccountID, owner ledger.AccountID, kind uint64, metadata string) (uint64, error) {
	cfg, err := c.loadConfig(tx)
	if err != nil {
		return 0, err
	}

	if !cfg.canMint(minter) {
		return 0, fmt.Errorf("account %s may not mint: %w", minter, contract.ErrUnauthorized)
	}

	id, err := contract.NextID(tx, c.key(keyNextID))
	if err != nil {
		return 0, err
	}

	a := Achievement{
		ID:       id,
		Owner:    owner,
		Kind:     kind,
		Metadata: metadata,
		MintedAt: tx.Now(),
	}

	if err := c.saveToken(tx, a); err != nil {
		return 0, err
	}

	if err := c.appendOwned(tx, owner, id); err != nil {
		return 0, err
	}

	supply, err := c.readSupply(tx)
	if err != nil {
		return 0, err
	}
	if err := c.writeSupply(tx, supply+1); err != nil {
		return 0, err
	}

	tx.Emit(event.Event{Name: "minted", Entity: id, Actor: owner, Contract: Name})
	return id, nil
}

// burn is the transaction-level burn shared by the public operation and
// the cross-contract registry.
func (c *Contract) burn(tx *host.Tx, owner ledger.AccountID, id uint64) error {
	a, err := c.loadToken(tx, id)
	if err != nil {
		return err
	}

	if a.Owner != owner {
		return fmt.Errorf("account %s is not the owner of token %d: %w", owner, id, contract.ErrUnauthorized)
	}

	if err := c.removeOwned(tx, owner, id); err != nil {
		return err
	}
	if err := tx.Remove(c.key(keyToken, id)); err != nil {
		return err
	}

	supply, err := c.readSupply(tx)
	if err != nil {
		return err
	}
	if err := c.writeSupply(tx, supply-1); err != nil {
		return err
	}

	tx.Emit(event.Event{Name: "burned", Entity: id, Actor: owner, Contract: Name})
	return nil
}

// =============================================================================

// Registry exposes token operations other contracts compose inside their
// own call transactions. The registered minter identity must be
// authorized via AddMinter for mints to succeed.
type Registry struct {
	contract *Contract
	minter   ledger.AccountID
}

// NewRegistry constructs a registry minting under the specified identity.
func NewRegistry(c *Contract, minter ledger.AccountID) *Registry {
	return &Registry{
		contract: c,
		minter:   minter,
	}
}

// OwnerOf returns the current owner of a token within the transaction.
func (r *Registry) OwnerOf(tx *host.Tx, id uint64) (ledger.AccountID, error) {
	a, err := r.contract.loadToken(tx, id)
	if err != nil {
		return "", err
	}
	return a.Owner, nil
}

// Burn destroys the owner's token within the transaction.
func (r *Registry) Burn(tx *host.Tx, owner ledger.AccountID, id uint64) error {
	return r.contract.burn(tx, owner, id)
}

// Mint issues a token to the owner within the transaction, under the
// registry's minter identity.
func (r *Registry) Mint(tx *host.Tx, owner ledger.AccountID, kind uint64, metadata string) (uint64, error) {
	return r.contract.mint(tx, r.minter, owner, kind, metadata)
}

// =============================================================================

func (c *Contract) key(kind byte, parts ...any) store.Key {
	return store.NewKey(Name, kind, parts...)
}

func (c *Contract) loadConfig(tx *host.Tx) (config, error) {
	data, err := tx.Get(c.key(keyConfig))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return config{}, fmt.Errorf("nft config: %w", contract.ErrNotFound)
		}
		return config{}, err
	}

	var cfg config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return config{}, fmt.Errorf("nft config decode: %w", err)
	}

	return cfg, nil
}

func (c *Contract) saveConfig(tx *host.Tx, cfg config) error {
	data, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("nft config encode: %w", err)
	}

	return tx.Set(c.key(keyConfig), data)
}

func (c *Contract) loadToken(tx *host.Tx, id uint64) (Achievement, error) {
	data, err := tx.Get(c.key(keyToken, id))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Achievement{}, fmt.Errorf("token %d: %w", id, contract.ErrNotFound)
		}
		return Achievement{}, err
	}

	var a Achievement
	if err := json.Unmarshal(data, &a); err != nil {
		return Achievement{}, fmt.Errorf("token %d decode: %w", id, err)
	}

	return a, nil
}

func (c *Contract) saveToken(tx *host.Tx, a Achievement) error {
	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("token %d encode: %w", a.ID, err)
	}

	return tx.Set(c.key(keyToken, a.ID), data)
}

func (c *Contract) loadOwned(tx *host.Tx, owner ledger.AccountID) ([]uint64, error) {
	data, err := tx.Get(c.key(keyOwnerTokens, string(owner)))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var ids []uint64
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, fmt.Errorf("owned tokens decode: %w", err)
	}

	return ids, nil
}

func (c *Contract) saveOwned(tx *host.Tx, owner ledger.AccountID, ids []uint64) error {
	if len(ids) == 0 {
		return tx.Remove(c.key(keyOwnerTokens, string(owner)))
	}

	data, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("owned tokens encode: %w", err)
	}

	return tx.Set(c.key(keyOwnerTokens, string(owner)), data)
}

func (c *Contract) appendOwned(tx *host.Tx, owner ledger.AccountID, id uint64) error {
	ids, err := c.loadOwned(tx, owner)
	if err != nil {
		return err
	}

	return c.saveOwned(tx, owner, append(ids, id))
}

func (c *Contract) removeOwned(tx *host.Tx, owner ledger.AccountID, id uint64) error {
	ids, err := c.loadOwned(tx, owner)
	if err != nil {
		return err
	}

	for i, owned := range ids {
		if owned == id {
			return c.saveOwned(tx, owner, append(ids[:i], ids[i+1:]...))
		}
	}

	return fmt.Errorf("token %d not in collection of %s: %w", id, owner, contract.ErrNotFound)
}

func (c *Contract) readSupply(tx *host.Tx) (uint64, error) {
	return contract.ReadCounter(tx, c.key(keySupply))
}

func (c *Contract) writeSupply(tx *host.Tx, supply uint64) error {
	var data [8]byte
	binary.BigEndian.PutUint64(data[:], supply)
	return tx.Set(c.key(keySupply), data[:])
}
