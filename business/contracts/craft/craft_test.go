package craft_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Michellebuchiokonicha/quest-contract/business/contracts/contract"
	"github.com/Michellebuchiokonicha/quest-contract/business/contracts/craft"
	"github.com/Michellebuchiokonicha/quest-contract/business/contracts/nft"
	"github.com/Michellebuchiokonicha/quest-contract/foundation/ledger"
	"github.com/Michellebuchiokonicha/quest-contract/foundation/ledger/event"
	"github.com/Michellebuchiokonicha/quest-contract/foundation/ledger/host"
	"github.com/Michellebuchiokonicha/quest-contract/foundation/ledger/store/memory"
	"github.com/Michellebuchiokonicha/quest-contract/foundation/ledger/token"
)

var (
	admin  = ledger.AccountID("0xB98D93a66478F9Ff9F651593A9bdD14b1fF02a42")
	player = ledger.AccountID("0xF01813E4B85e178A83e29B8E7bF26BD830a25f32")
	thief  = ledger.AccountID("0xdd6B972ffcc631a62CAE1BB9d80b7ff429c8ebA4")
)

// fixture wires crafting against the real NFT contract with a
// deterministic clock and roll.
type fixture struct {
	craft *craft.Contract
	nft   *nft.Contract
	now   uint64
	roll  uint64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := fixture{
		now:  1_750_000_000,
		roll: 0,
	}

	h := host.New(host.Config{
		Store:  memory.New(),
		Bank:   token.New(nil),
		Events: event.NewLog(64, nil),
		Now:    func() uint64 { return f.now },
		Random: func(n uint64) uint64 { return f.roll % n },
	})

	f.nft = nft.New(h)
	require.NoError(t, f.nft.Init(admin))

	crafter := ledger.ContractAccount(craft.Name)
	require.NoError(t, f.nft.AddMinter(admin, crafter))

	f.craft = craft.New(h, nft.NewRegistry(f.nft, crafter))
	require.NoError(t, f.craft.Init(admin))

	return &f
}

func (f *fixture) registerSword(t *testing.T, cooldown uint64, successRate uint64) uint64 {
	t.Helper()

	id, err := f.craft.RegisterRecipe(admin, craft.RecipeConfig{
		Name:        "Epic Sword",
		Description: "A powerful sword crafted from rare materials",
		Ingredients: f.mintIngredients(t),
		OutputKind:  100,
		SuccessRate: successRate,
		Rarity:      craft.RarityEpic,
		Cooldown:    cooldown,
	})
	require.NoError(t, err)
	return id
}

func (f *fixture) mintIngredients(t *testing.T) []uint64 {
	t.Helper()

	id1, err := f.nft.Mint(admin, player, 1, "iron")
	require.NoError(t, err)
	id2, err := f.nft.Mint(admin, player, 2, "wood")
	require.NoError(t, err)
	return []uint64{id1, id2}
}

func TestCraftSuccess(t *testing.T) {
	f := newFixture(t)
	recipeID := f.registerSword(t, 3_600, 80)

	f.roll = 79
	outputID, ok, err := f.craft.Craft(player, recipeID)
	require.NoError(t, err)
	require.True(t, ok)
	require.NotZero(t, outputID)

	// Ingredients burned, output owned by the player.
	owner, err := f.nft.OwnerOf(outputID)
	require.NoError(t, err)
	assert.Equal(t, player, owner)

	ids, err := f.nft.Collection(player)
	require.NoError(t, err)
	assert.Equal(t, []uint64{outputID}, ids)

	supply, err := f.nft.TotalSupply()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), supply)
}

func TestCraftFailureKeepsIngredients(t *testing.T) {
	f := newFixture(t)
	recipeID := f.registerSword(t, 3_600, 80)

	f.roll = 80
	outputID, ok, err := f.craft.Craft(player, recipeID)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, outputID)

	// The failed roll costs nothing but the cooldown.
	ids, err := f.nft.Collection(player)
	require.NoError(t, err)
	assert.Len(t, ids, 2)

	last, err := f.craft.Cooldown(player)
	require.NoError(t, err)
	assert.Equal(t, f.now, last)
}

func TestCraftCooldown(t *testing.T) {
	f := newFixture(t)
	recipeID := f.registerSword(t, 3_600, 0)

	_, ok, err := f.craft.Craft(player, recipeID)
	require.NoError(t, err)
	require.False(t, ok)

	_, _, err = f.craft.Craft(player, recipeID)
	require.ErrorIs(t, err, contract.ErrDeadlineNotReached)

	f.now += 3_600
	_, ok, err = f.craft.Craft(player, recipeID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCraftOwnershipRequired(t *testing.T) {
	f := newFixture(t)
	recipeID := f.registerSword(t, 0, 100)

	_, _, err := f.craft.Craft(thief, recipeID)
	require.ErrorIs(t, err, contract.ErrUnauthorized)
}

func TestCraftDisabledRecipe(t *testing.T) {
	f := newFixture(t)
	recipeID := f.registerSword(t, 0, 100)

	require.NoError(t, f.craft.SetRecipeEnabled(admin, recipeID, false))

	_, _, err := f.craft.Craft(player, recipeID)
	require.ErrorIs(t, err, contract.ErrInvalidState)

	err = f.craft.SetRecipeEnabled(thief, recipeID, true)
	require.ErrorIs(t, err, contract.ErrUnauthorized)
}

func TestCraftRecipeGuards(t *testing.T) {
	f := newFixture(t)

	_, err := f.craft.RegisterRecipe(admin, craft.RecipeConfig{
		Name:        "Bad Rate",
		Ingredients: []uint64{1},
		SuccessRate: 101,
	})
	require.ErrorIs(t, err, contract.ErrAmountMismatch)

	_, err = f.craft.RegisterRecipe(thief, craft.RecipeConfig{
		Name:        "Not Admin",
		Ingredients: []uint64{1},
		SuccessRate: 50,
	})
	require.ErrorIs(t, err, contract.ErrUnauthorized)

	recipeID := f.registerSword(t, 60, 100)

	ids, err := f.craft.Recipes()
	require.NoError(t, err)
	assert.Equal(t, []uint64{recipeID}, ids)

	r, err := f.craft.QueryRecipe(recipeID)
	require.NoError(t, err)
	assert.Equal(t, "Epic Sword", r.Name)
	assert.Equal(t, uint64(60), r.Cooldown)
	assert.True(t, r.Enabled)
}
