// Package craft implements recipe-based crafting: a recipe consumes
// ingredient tokens the player owns and, on a successful random roll,
// mints the output token. Every attempt starts the player's cooldown
// whether or not the roll succeeds.
package craft

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
const Name = "craft"

const (
	keyAdmin byte = iota + 1
	keyRecipe
	keyNextID
	keyCooldown
)

// Registry is the token surface crafting composes against: ownership
// checks, ingredient burns, and output mints, all within the enclosing
// call transaction.
type Registry interface {
	OwnerOf(tx *host.Tx, id uint64) (ledger.AccountID, error)
	Burn(tx *host.Tx, owner ledger.AccountID, id uint64) error
	Mint(tx *host.Tx, owner ledger.AccountID, kind uint64, metadata string) (uint64, error)
}

// Rarity tiers a recipe.
type Rarity int

// The set of recipe rarities.
const (
	RarityCommon Rarity = iota
	RarityUncommon
	RarityRare
	RarityEpic
	RarityLegendary
)

// Recipe is one registered crafting recipe. Ingredients name token ids
// the player must own; all of them burn on a successful craft.
type Recipe struct {
	ID          uint64   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Ingredients []uint64 `json:"ingredients"`
	OutputKind  uint64   `json:"output_kind"`
	SuccessRate uint64   `json:"success_rate"`
	Rarity      Rarity   `json:"rarity"`
	Cooldown    uint64   `json:"cooldown"`
	Enabled     bool     `json:"enabled"`
}

// =============================================================================

// Contract provides the crafting call surface against a host environment.
type Contract struct {
	host     *host.Host
	registry Registry
}

// New constructs the crafting contract for the specified host and token
// registry.
func New(h *host.Host, registry Registry) *Contract {
	return &Contract{
		host:     h,
		registry: registry,
	}
}

// Init records the admin. It may run only once.
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

// RecipeConfig carries the arguments for registering a recipe.
type RecipeConfig struct {
	Name        string
	Description string
	Ingredients []uint64
	OutputKind  uint64
	SuccessRate uint64
	Rarity      Rarity
	Cooldown    uint64
}

// RegisterRecipe adds a new enabled recipe. Admin only.
func (c *Contract) RegisterRecipe(admin ledger.AccountID, cfg RecipeConfig) (uint64, error) {
	if cfg.SuccessRate > 100 {
		return 0, fmt.Errorf("success rate %d above 100: %w", cfg.SuccessRate, contract.ErrAmountMismatch)
	}
	if cfg.Rarity < RarityCommon || cfg.Rarity > RarityLegendary {
		return 0, fmt.Errorf("rarity %d: %w", cfg.Rarity, contract.ErrInvalidParties)
	}
	if len(cfg.Ingredients) == 0 {
		return 0, fmt.Errorf("no ingredients: %w", contract.ErrInvalidParties)
	}

	var id uint64
	err := c.host.Run(func(tx *host.Tx) error {
		if err := c.requireAdmin(tx, admin); err != nil {
			return err
		}

		var err error
		id, err = contract.NextID(tx, c.key(keyNextID))
		if err != nil {
			return err
		}

		r := Recipe{
			ID:          id,
			Name:        cfg.Name,
			Description: cfg.Description,
			Ingredients: cfg.Ingredients,
			OutputKind:  cfg.OutputKind,
			SuccessRate: cfg.SuccessRate,
			Rarity:      cfg.Rarity,
			Cooldown:    cfg.Cooldown,
			Enabled:     true,
		}

		if err := c.saveRecipe(tx, r); err != nil {
			return err
		}

		tx.Emit(event.Event{Name: "recipe", Entity: id, Actor: admin, Contract: Name})
		return nil
	})
	if err != nil {
		return 0, err
	}

	return id, nil
}

// SetRecipeEnabled toggles a recipe. Admin only.
func (c *Contract) SetRecipeEnabled(admin ledger.AccountID, id uint64, enabled bool) error {
	return c.host.Run(func(tx *host.Tx) error {
		if err := c.requireAdmin(tx, admin); err != nil {
			return err
		}

		r, err := c.loadRecipe(tx, id)
		if err != nil {
			return err
		}

		r.Enabled = enabled
		return c.saveRecipe(tx, r)
	})
}

// Craft attempts a recipe. The player's cooldown starts on every attempt.
// On a successful roll the ingredients burn and the output mints; a
// failed roll consumes nothing but the cooldown. The returned id is zero
// on failure.
func (c *Contract) Craft(player ledger.AccountID, recipeID uint64) (uint64, bool, error) {
	var outputID uint64
	var success bool

	err := c.host.Run(func(tx *host.Tx) error {
		r, err := c.loadRecipe(tx, recipeID)
		if err != nil {
			return err
		}

		if !r.Enabled {
			return fmt.Errorf("recipe %d disabled: %w", recipeID, contract.ErrInvalidState)
		}

		last, err := c.readCooldown(tx, player)
		if err != nil {
			return err
		}
		if tx.Now() < last+r.Cooldown {
			return fmt.Errorf("cooldown until %d, now %d: %w", last+r.Cooldown, tx.Now(), contract.ErrDeadlineNotReached)
		}

		for _, ingredientID := range r.Ingredients {
			owner, err := c.registry.OwnerOf(tx, ingredientID)
			if err != nil {
				return fmt.Errorf("ingredient %d: %w", ingredientID, err)
			}
			if owner != player {
				return fmt.Errorf("player %s does not own ingredient %d: %w", player, ingredientID, contract.ErrUnauthorized)
			}
		}

		if err := c.writeCooldown(tx, player, tx.Now()); err != nil {
			return err
		}

		success = tx.Random(100) < r.SuccessRate
		if !success {
			tx.Emit(event.Event{Name: "failure", Entity: recipeID, Actor: player, Contract: Name})
			return nil
		}

		for _, ingredientID := range r.Ingredients {
			if err := c.registry.Burn(tx, player, ingredientID); err != nil {
				return fmt.Errorf("ingredient %d: %w", ingredientID, err)
			}
		}

		outputID, err = c.registry.Mint(tx, player, r.OutputKind, r.Name)
		if err != nil {
			return err
		}

		tx.Emit(event.Event{Name: "success", Entity: recipeID, Actor: player, Amount: outputID, Contract: Name})
		return nil
	})
	if err != nil {
		return 0, false, err
	}

	return outputID, success, nil
}

// QueryRecipe returns a snapshot of a recipe.
func (c *Contract) QueryRecipe(id uint64) (Recipe, error) {
	var r Recipe
	err := c.host.View(func(tx *host.Tx) error {
		var err error
		r, err = c.loadRecipe(tx, id)
		return err
	})

	return r, err
}

// Recipes returns every registered recipe id.
func (c *Contract) Recipes() ([]uint64, error) {
	var ids []uint64
	err := c.host.View(func(tx *host.Tx) error {
		count, err := contract.ReadCounter(tx, c.key(keyNextID))
		if err != nil {
			return err
		}

		for id := uint64(1); id <= count; id++ {
			ids = append(ids, id)
		}
		return nil
	})

	return ids, err
}

// Cooldown returns the ledger time of the player's last craft attempt,
// zero if the player never crafted.
func (c *Contract) Cooldown(player ledger.AccountID) (uint64, error) {
	var last uint64
	err := c.host.View(func(tx *host.Tx) error {
		var err error
		last, err = c.readCooldown(tx, player)
		return err
	})

	return last, err
}

// =============================================================================

func (c *Contract) requireAdmin(tx *host.Tx, caller ledger.AccountID) error {
	stored, err := tx.Get(c.key(keyAdmin))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("no admin set: %w", contract.ErrUnauthorized)
		}
		return err
	}

	if caller != ledger.AccountID(stored) {
		return fmt.Errorf("account %s is not the admin: %w", caller, contract.ErrUnauthorized)
	}
	return nil
}

func (c *Contract) key(kind byte, parts ...any) store.Key {
	return store.NewKey(Name, kind, parts...)
}

func (c *Contract) loadRecipe(tx *host.Tx, id uint64) (Recipe, error) {
	data, err := tx.Get(c.key(keyRecipe, id))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Recipe{}, fmt.Errorf("recipe %d: %w", id, contract.ErrNotFound)
		}
		return Recipe{}, err
	}

	var r Recipe
	if err := json.Unmarshal(data, &r); err != nil {
		return Recipe{}, fmt.Errorf("recipe %d decode: %w", id, err)
	}

	return r, nil
}

func (c *Contract) saveRecipe(tx *host.Tx, r Recipe) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("recipe %d encode: %w", r.ID, err)
	}

	return tx.Set(c.key(keyRecipe, r.ID), data)
}

func (c *Contract) readCooldown(tx *host.Tx, player ledger.AccountID) (uint64, error) {
	data, err := tx.Get(c.key(keyCooldown, string(player)))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return 0, nil
		}
		return 0, err
	}

	return binary.BigEndian.Uint64(data), nil
}

func (c *Contract) writeCooldown(tx *host.Tx, player ledger.AccountID, at uint64) error {
	var data [8]byte
	binary.BigEndian.PutUint64(data[:], at)
	return tx.Set(c.key(keyCooldown, string(player)), data[:])
}
