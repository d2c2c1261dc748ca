package collection_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Michellebuchiokonicha/quest-contract/business/contracts/collection"
	"github.com/Michellebuchiokonicha/quest-contract/business/contracts/contract"
	"github.com/Michellebuchiokonicha/quest-contract/foundation/ledger"
	"github.com/Michellebuchiokonicha/quest-contract/foundation/ledger/event"
	"github.com/Michellebuchiokonicha/quest-contract/foundation/ledger/host"
	"github.com/Michellebuchiokonicha/quest-contract/foundation/ledger/store/memory"
	"github.com/Michellebuchiokonicha/quest-contract/foundation/ledger/token"
)

var (
	playerA = ledger.AccountID("0xF01813E4B85e178A83e29B8E7bF26BD830a25f32")
	playerB = ledger.AccountID("0xdd6B972ffcc631a62CAE1BB9d80b7ff429c8ebA4")
)

func newContract() *collection.Contract {
	h := host.New(host.Config{
		Store:  memory.New(),
		Bank:   token.New(nil),
		Events: event.NewLog(64, nil),
	})

	return collection.New(h)
}

func TestCollectionProgressAndBonus(t *testing.T) {
	c := newContract()

	setID, err := c.CreateSet("Starter Set", []uint64{1, 2, 3}, collection.RarityCommon, 0, 100)
	require.NoError(t, err)
	require.Equal(t, uint64(1), setID)

	done, err := c.IsCompleted(playerA, setID)
	require.NoError(t, err)
	assert.False(t, done)

	done, err = c.Record(playerA, 1)
	require.NoError(t, err)
	assert.False(t, done)

	done, err = c.Record(playerA, 2)
	require.NoError(t, err)
	assert.False(t, done)

	done, err = c.Record(playerA, 3)
	require.NoError(t, err)
	assert.True(t, done)

	progress, err := c.Progress(playerA, setID)
	require.NoError(t, err)
	assert.Len(t, progress, 3)

	bonus, err := c.BonusOf(playerA)
	require.NoError(t, err)
	assert.Equal(t, uint64(100), bonus)

	// Re-recording an owned achievement reports completion but never
	// double-awards the bonus.
	done, err = c.Record(playerA, 3)
	require.NoError(t, err)
	assert.True(t, done)

	bonus, err = c.BonusOf(playerA)
	require.NoError(t, err)
	assert.Equal(t, uint64(100), bonus)
}

func TestCollectionLimitedCapAndTrading(t *testing.T) {
	c := newContract()

	setID, err := c.CreateSet("Limited Set", []uint64{10, 20}, collection.RarityRare, 1, 50)
	require.NoError(t, err)

	_, err = c.Record(playerA, 10)
	require.NoError(t, err)

	// The cap blocks a second direct claim.
	_, err = c.Record(playerB, 10)
	require.ErrorIs(t, err, contract.ErrInvalidState)

	// A trade hands the claim over instead.
	require.NoError(t, c.TransferProgress(playerA, playerB, 10))

	progress, err := c.Progress(playerA, setID)
	require.NoError(t, err)
	assert.Empty(t, progress)

	progress, err = c.Progress(playerB, setID)
	require.NoError(t, err)
	assert.Equal(t, []uint64{10}, progress)

	err = c.TransferProgress(playerA, playerB, 10)
	require.ErrorIs(t, err, contract.ErrUnauthorized)
}

func TestCollectionSetMapping(t *testing.T) {
	c := newContract()

	_, err := c.CreateSet("First", []uint64{1, 2}, collection.RarityCommon, 0, 10)
	require.NoError(t, err)

	// An achievement belongs to at most one set.
	_, err = c.CreateSet("Second", []uint64{2, 3}, collection.RarityEpic, 0, 10)
	require.ErrorIs(t, err, contract.ErrAlreadyDeposited)

	setID, err := c.CreateSet("Third", []uint64{30}, collection.RarityLegendary, 0, 10)
	require.NoError(t, err)

	require.NoError(t, c.AddAchievement(setID, 31))
	err = c.AddAchievement(setID, 1)
	require.ErrorIs(t, err, contract.ErrAlreadyDeposited)

	s, err := c.QuerySet(setID)
	require.NoError(t, err)
	assert.Equal(t, []uint64{30, 31}, s.Achievements)

	_, err = c.Record(playerA, 999)
	require.ErrorIs(t, err, contract.ErrNotFound)
}
