package engine

import (
	"errors"
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/Michellebuchiokonicha/quest-contract/business/contracts/collection"
	"github.com/Michellebuchiokonicha/quest-contract/business/contracts/contract"
	"github.com/Michellebuchiokonicha/quest-contract/business/contracts/craft"
	"github.com/Michellebuchiokonicha/quest-contract/business/contracts/royalty"
	"github.com/Michellebuchiokonicha/quest-contract/business/contracts/vault"
	"github.com/Michellebuchiokonicha/quest-contract/foundation/ledger"
)

// Bootstrap is the contract configuration applied once at startup. It
// seeds the governed contracts with their admin, the vault and royalty
// parameters, and the initial recipe and set catalogs.
type Bootstrap struct {
	Admin      string             `toml:"admin"`
	Vault      *VaultBootstrap    `toml:"vault"`
	Royalty    *RoyaltyBootstrap  `toml:"royalty"`
	Recipes    []RecipeBootstrap  `toml:"recipes"`
	Sets       []SetBootstrap     `toml:"sets"`
	ExtraMints []ledger.AccountID `toml:"extra_minters"`
}

// VaultBootstrap configures the reward vault.
type VaultBootstrap struct {
	Token           string `toml:"token"`
	EarlyPenaltyBPS uint32 `toml:"early_penalty_bps"`
	EmergencyBPS    uint32 `toml:"emergency_bps"`
	LockOptions     []struct {
		Period   uint64 `toml:"period"`
		BonusBPS uint32 `toml:"bonus_bps"`
	} `toml:"lock_options"`
}

// RoyaltyBootstrap configures the royalty splitter.
type RoyaltyBootstrap struct {
	Token         string `toml:"token"`
	MaxRecipients int    `toml:"max_recipients"`
	Splits        []struct {
		Recipient string `toml:"recipient"`
		ShareBPS  uint32 `toml:"share_bps"`
	} `toml:"splits"`
}

// RecipeBootstrap configures one crafting recipe.
type RecipeBootstrap struct {
	Name        string   `toml:"name"`
	Description string   `toml:"description"`
	Ingredients []uint64 `toml:"ingredients"`
	OutputKind  uint64   `toml:"output_kind"`
	SuccessRate uint64   `toml:"success_rate"`
	Rarity      int      `toml:"rarity"`
	Cooldown    uint64   `toml:"cooldown"`
}

// SetBootstrap configures one achievement set.
type SetBootstrap struct {
	Name         string   `toml:"name"`
	Achievements []uint64 `toml:"achievements"`
	Rarity       int      `toml:"rarity"`
	LimitedCap   uint64   `toml:"limited_cap"`
	BonusPoints  uint64   `toml:"bonus_points"`
}

// LoadBootstrap opens and consumes the bootstrap file.
func LoadBootstrap(path string) (Bootstrap, error) {
	var b Bootstrap
	if _, err := toml.DecodeFile(path, &b); err != nil {
		return Bootstrap{}, fmt.Errorf("decode bootstrap file: %w", err)
	}

	if b.Admin == "" {
		return Bootstrap{}, errors.New("bootstrap file names no admin account")
	}

	return b, nil
}

// Bootstrap applies the configuration against the contracts. The method
// is idempotent: contracts already initialized from a previous run are
// left alone, so a restart over a persistent store is safe.
func (e *Engine) Bootstrap(b Bootstrap) error {
	admin, err := ledger.ToAccountID(b.Admin)
	if err != nil {
		return fmt.Errorf("bootstrap admin: %w", err)
	}

	if err := e.bootstrapGoverned(admin, b); err != nil {
		return err
	}

	if b.Vault != nil {
		if err := e.bootstrapVault(admin, *b.Vault); err != nil {
			return err
		}
	}

	if b.Royalty != nil {
		if err := e.bootstrapRoyalty(admin, *b.Royalty); err != nil {
			return err
		}
	}

	if err := e.bootstrapCatalogs(admin, b); err != nil {
		return err
	}

	return nil
}

// bootstrapGoverned initializes the admin-governed contracts and
// authorizes the crafting contract to mint and burn achievements.
func (e *Engine) bootstrapGoverned(admin ledger.AccountID, b Bootstrap) error {
	if err := e.bounty.Init(admin); err != nil && !errors.Is(err, contract.ErrAlreadyInitialized) {
		return fmt.Errorf("init bounty: %w", err)
	}

	if err := e.nft.Init(admin); err != nil {
		if !errors.Is(err, contract.ErrAlreadyInitialized) {
			return fmt.Errorf("init nft: %w", err)
		}
	} else {
		minters := append([]ledger.AccountID{ledger.ContractAccount(craft.Name)}, b.ExtraMints...)
		for _, minter := range minters {
			if err := e.nft.AddMinter(admin, minter); err != nil {
				return fmt.Errorf("authorize minter %s: %w", minter, err)
			}
		}
	}

	if err := e.craft.Init(admin); err != nil && !errors.Is(err, contract.ErrAlreadyInitialized) {
		return fmt.Errorf("init craft: %w", err)
	}

	return nil
}

func (e *Engine) bootstrapVault(admin ledger.AccountID, vb VaultBootstrap) error {
	options := make([]vault.LockOption, len(vb.LockOptions))
	for i, opt := range vb.LockOptions {
		options[i] = vault.LockOption{Period: opt.Period, BonusBPS: opt.BonusBPS}
	}

	err := e.vault.Init(vault.InitConfig{
		Admin:           admin,
		Token:           ledger.Asset(vb.Token),
		EarlyPenaltyBPS: vb.EarlyPenaltyBPS,
		EmergencyBPS:    vb.EmergencyBPS,
		LockOptions:     options,
	})
	if err != nil && !errors.Is(err, contract.ErrAlreadyInitialized) {
		return fmt.Errorf("init vault: %w", err)
	}

	return nil
}

func (e *Engine) bootstrapRoyalty(admin ledger.AccountID, rb RoyaltyBootstrap) error {
	splits := make([]royalty.Split, len(rb.Splits))
	for i, s := range rb.Splits {
		recipient, err := ledger.ToAccountID(s.Recipient)
		if err != nil {
			return fmt.Errorf("royalty recipient %q: %w", s.Recipient, err)
		}
		splits[i] = royalty.Split{Recipient: recipient, ShareBPS: s.ShareBPS}
	}

	err := e.royalty.Init(admin, ledger.Asset(rb.Token), splits, rb.MaxRecipients)
	if err != nil && !errors.Is(err, contract.ErrAlreadyInitialized) {
		return fmt.Errorf("init royalty: %w", err)
	}

	return nil
}

// bootstrapCatalogs registers the recipe and set catalogs. Catalogs are
// only written against an empty store, otherwise a restart would
// duplicate every entry.
func (e *Engine) bootstrapCatalogs(admin ledger.AccountID, b Bootstrap) error {
	if len(b.Recipes) > 0 {
		existing, err := e.craft.Recipes()
		if err != nil {
			return fmt.Errorf("list recipes: %w", err)
		}

		if len(existing) == 0 {
			for _, r := range b.Recipes {
				_, err := e.craft.RegisterRecipe(admin, craft.RecipeConfig{
					Name:        r.Name,
					Description: r.Description,
					Ingredients: r.Ingredients,
					OutputKind:  r.OutputKind,
					SuccessRate: r.SuccessRate,
					Rarity:      craft.Rarity(r.Rarity),
					Cooldown:    r.Cooldown,
				})
				if err != nil {
					return fmt.Errorf("register recipe %q: %w", r.Name, err)
				}
			}
		}
	}

	if len(b.Sets) > 0 {
		if _, err := e.collection.QuerySet(1); errors.Is(err, contract.ErrNotFound) {
			for _, s := range b.Sets {
				_, err := e.collection.CreateSet(s.Name, s.Achievements, collection.Rarity(s.Rarity), s.LimitedCap, s.BonusPoints)
				if err != nil {
					return fmt.Errorf("create set %q: %w", s.Name, err)
				}
			}
		} else if err != nil {
			return fmt.Errorf("probe sets: %w", err)
		}
	}

	return nil
}
