// Package engine owns the host every contract shares and routes verified
// signed calls to the contract operation they name.
package engine

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/Michellebuchiokonicha/quest-contract/business/contracts/bounty"
	"github.com/Michellebuchiokonicha/quest-contract/business/contracts/collection"
	"github.com/Michellebuchiokonicha/quest-contract/business/contracts/craft"
	"github.com/Michellebuchiokonicha/quest-contract/business/contracts/escrow"
	"github.com/Michellebuchiokonicha/quest-contract/business/contracts/match"
	"github.com/Michellebuchiokonicha/quest-contract/business/contracts/nft"
	"github.com/Michellebuchiokonicha/quest-contract/business/contracts/royalty"
	"github.com/Michellebuchiokonicha/quest-contract/business/contracts/vault"
	"github.com/Michellebuchiokonicha/quest-contract/foundation/ledger"
	"github.com/Michellebuchiokonicha/quest-contract/foundation/ledger/call"
	"github.com/Michellebuchiokonicha/quest-contract/foundation/ledger/host"
	"github.com/Michellebuchiokonicha/quest-contract/foundation/ledger/store"
	"go.uber.org/zap"
)

// Set of errors the dispatch layer returns on top of the contract errors.
var (
	ErrUnknownContract = errors.New("unknown contract")
	ErrUnknownOp       = errors.New("unknown operation")
	ErrBadNonce        = errors.New("nonce not above last accepted")
)

// nameSpace is the storage namespace the engine keeps its own state in.
const nameSpace = "engine"

// keyNonce tracks the last accepted nonce per account.
const keyNonce byte = 1

// Config represents the dependencies required to construct an engine.
type Config struct {
	Log  *zap.SugaredLogger
	Host *host.Host
}

// Engine dispatches signed calls against the set of deployed contracts.
type Engine struct {
	log  *zap.SugaredLogger
	host *host.Host

	escrow     *escrow.Contract
	bounty     *bounty.Contract
	match      *match.Contract
	vault      *vault.Contract
	royalty    *royalty.Contract
	nft        *nft.Contract
	collection *collection.Contract
	craft      *craft.Contract

	mu sync.Mutex
}

// New constructs an engine with every contract deployed against the
// specified host. The craft contract composes with the achievement
// registry through its custody account, which still has to be authorized
// as a minter by the registry admin.
func New(cfg Config) *Engine {
	nftContract := nft.New(cfg.Host)

	return &Engine{
		log:        cfg.Log,
		host:       cfg.Host,
		escrow:     escrow.New(cfg.Host),
		bounty:     bounty.New(cfg.Host),
		match:      match.New(cfg.Host),
		vault:      vault.New(cfg.Host),
		royalty:    royalty.New(cfg.Host),
		nft:        nftContract,
		collection: collection.New(cfg.Host),
		craft:      craft.New(cfg.Host, nft.NewRegistry(nftContract, ledger.ContractAccount(craft.Name))),
	}
}

// Execute verifies the signature on the call, enforces the per-account
// nonce, and runs the named operation. The nonce is consumed only when
// the operation succeeds, so a rejected call can be resubmitted as is.
func (e *Engine) Execute(sc call.SignedCall) (any, error) {
	if err := sc.Validate(); err != nil {
		return nil, fmt.Errorf("validate signature: %w", err)
	}

	from, err := sc.FromAccount()
	if err != nil {
		return nil, fmt.Errorf("extract account: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	last, err := e.lastNonce(from)
	if err != nil {
		return nil, err
	}
	if sc.Nonce <= last {
		return nil, fmt.Errorf("nonce %d, last %d: %w", sc.Nonce, last, ErrBadNonce)
	}

	result, err := e.dispatch(from, sc.Call)
	if err != nil {
		return nil, err
	}

	if err := e.setNonce(from, sc.Nonce); err != nil {
		return nil, err
	}

	e.log.Infow("call executed", "call", sc.String())

	return result, nil
}

// Host returns the host for balance and event queries.
func (e *Engine) Host() *host.Host {
	return e.host
}

// Escrow returns the escrow contract for read-only queries.
func (e *Engine) Escrow() *escrow.Contract { return e.escrow }

// Bounty returns the bounty contract for read-only queries.
func (e *Engine) Bounty() *bounty.Contract { return e.bounty }

// Match returns the match contract for read-only queries.
func (e *Engine) Match() *match.Contract { return e.match }

// Vault returns the vault contract for read-only queries.
func (e *Engine) Vault() *vault.Contract { return e.vault }

// Royalty returns the royalty contract for read-only queries.
func (e *Engine) Royalty() *royalty.Contract { return e.royalty }

// NFT returns the achievement registry for read-only queries.
func (e *Engine) NFT() *nft.Contract { return e.nft }

// Collection returns the collection contract for read-only queries.
func (e *Engine) Collection() *collection.Contract { return e.collection }

// Craft returns the crafting contract for read-only queries.
func (e *Engine) Craft() *craft.Contract { return e.craft }

// =============================================================================

func (e *Engine) nonceKey(account ledger.AccountID) store.Key {
	return store.NewKey(nameSpace, keyNonce, string(account))
}

func (e *Engine) lastNonce(account ledger.AccountID) (uint64, error) {
	var last uint64
	err := e.host.View(func(tx *host.Tx) error {
		data, err := tx.Get(e.nonceKey(account))
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil
			}
			return err
		}
		last = binary.BigEndian.Uint64(data)
		return nil
	})
	return last, err
}

func (e *Engine) setNonce(account ledger.AccountID, nonce uint64) error {
	return e.host.Run(func(tx *host.Tx) error {
		data := make([]byte, 8)
		binary.BigEndian.PutUint64(data, nonce)
		return tx.Set(e.nonceKey(account), data)
	})
}
