package bounty_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Michellebuchiokonicha/quest-contract/business/contracts/bounty"
	"github.com/Michellebuchiokonicha/quest-contract/business/contracts/contract"
	"github.com/Michellebuchiokonicha/quest-contract/foundation/ledger"
	"github.com/Michellebuchiokonicha/quest-contract/foundation/ledger/event"
	"github.com/Michellebuchiokonicha/quest-contract/foundation/ledger/host"
	"github.com/Michellebuchiokonicha/quest-contract/foundation/ledger/store/memory"
	"github.com/Michellebuchiokonicha/quest-contract/foundation/ledger/token"
)

const gold = ledger.Asset("GOLD")

var (
	admin   = ledger.AccountID("0xB98D93a66478F9Ff9F651593A9bdD14b1fF02a42")
	creator = ledger.AccountID("0xF01813E4B85e178A83e29B8E7bF26BD830a25f32")
	solver  = ledger.AccountID("0xdd6B972ffcc631a62CAE1BB9d80b7ff429c8ebA4")
	rando   = ledger.AccountID("0x8e44580Db0cb787c9b8b26Ec08a2c956d2fAfabc")
)

func newHost(now *uint64) *host.Host {
	genesis := map[ledger.Asset]map[ledger.AccountID]uint64{
		gold: {creator: 1_000},
	}

	return host.New(host.Config{
		Store:  memory.New(),
		Bank:   token.New(genesis),
		Events: event.NewLog(64, nil),
		Now:    func() uint64 { return *now },
	})
}

func TestBountyLifecycle(t *testing.T) {
	now := uint64(1_750_000_000)
	h := newHost(&now)
	c := bounty.New(h)
	require.NoError(t, c.Init(admin))

	id, err := c.Create(creator, gold, 400, 7, 3_600)
	require.NoError(t, err)
	require.Equal(t, uint64(1), id)
	assert.Equal(t, uint64(600), h.Bank().Balance(gold, creator))
	assert.Equal(t, uint64(400), h.Bank().Balance(gold, ledger.ContractAccount(bounty.Name)))

	// Only the assigned solver may submit.
	require.NoError(t, c.Accept(solver, id))
	err = c.Submit(rando, id)
	require.ErrorIs(t, err, contract.ErrUnauthorized)

	require.NoError(t, c.Submit(solver, id))

	err = c.Approve(rando, id)
	require.ErrorIs(t, err, contract.ErrUnauthorized)

	require.NoError(t, c.Approve(creator, id))
	assert.Equal(t, uint64(400), h.Bank().Balance(gold, solver))
	assert.Equal(t, uint64(0), h.Bank().Balance(gold, ledger.ContractAccount(bounty.Name)))

	b, err := c.Query(id)
	require.NoError(t, err)
	assert.Equal(t, bounty.StatusCompleted, b.Status)
}

func TestBountyExpiration(t *testing.T) {
	now := uint64(1_750_000_000)
	h := newHost(&now)
	c := bounty.New(h)

	id, err := c.Create(creator, gold, 100, 0, 3_600)
	require.NoError(t, err)

	now += 3_601
	err = c.Accept(solver, id)
	require.ErrorIs(t, err, contract.ErrDeadlinePassed)

	// Expired open bounty cancels immediately.
	require.NoError(t, c.Cancel(creator, id))
	assert.Equal(t, uint64(1_000), h.Bank().Balance(gold, creator))
}

func TestBountyCancelWithSolver(t *testing.T) {
	now := uint64(1_750_000_000)
	h := newHost(&now)
	c := bounty.New(h)

	id, err := c.Create(creator, gold, 100, 0, 3_600)
	require.NoError(t, err)
	require.NoError(t, c.Accept(solver, id))

	err = c.Cancel(creator, id)
	require.ErrorIs(t, err, contract.ErrDeadlineNotReached)

	now += 3_601
	require.NoError(t, c.Cancel(creator, id))

	b, err := c.Query(id)
	require.NoError(t, err)
	assert.Equal(t, bounty.StatusCancelled, b.Status)
	assert.Equal(t, uint64(1_000), h.Bank().Balance(gold, creator))
}

func TestBountyDisputeSplit(t *testing.T) {
	now := uint64(1_750_000_000)
	h := newHost(&now)
	c := bounty.New(h)
	require.NoError(t, c.Init(admin))

	id, err := c.Create(creator, gold, 300, 0, 3_600)
	require.NoError(t, err)
	require.NoError(t, c.Accept(solver, id))
	require.NoError(t, c.Submit(solver, id))

	err = c.Dispute(rando, id)
	require.ErrorIs(t, err, contract.ErrUnauthorized)

	require.NoError(t, c.Dispute(creator, id))

	err = c.Resolve(creator, id, 100)
	require.ErrorIs(t, err, contract.ErrUnauthorized)

	err = c.Resolve(admin, id, 301)
	require.ErrorIs(t, err, contract.ErrAmountMismatch)

	require.NoError(t, c.Resolve(admin, id, 100))
	assert.Equal(t, uint64(100), h.Bank().Balance(gold, solver))
	assert.Equal(t, uint64(900), h.Bank().Balance(gold, creator))
	assert.Equal(t, uint64(0), h.Bank().Balance(gold, ledger.ContractAccount(bounty.Name)))

	b, err := c.Query(id)
	require.NoError(t, err)
	assert.Equal(t, bounty.StatusCompleted, b.Status)
}

func TestBountyInitOnce(t *testing.T) {
	now := uint64(1_750_000_000)
	c := bounty.New(newHost(&now))

	require.NoError(t, c.Init(admin))
	err := c.Init(rando)
	require.ErrorIs(t, err, contract.ErrAlreadyInitialized)
}

func TestBountyActivePaging(t *testing.T) {
	now := uint64(1_750_000_000)
	h := newHost(&now)
	c := bounty.New(h)

	for i := 0; i < 5; i++ {
		_, err := c.Create(creator, gold, 10, 0, 3_600)
		require.NoError(t, err)
	}

	// Cancel the second bounty so it drops out of the active listing.
	require.NoError(t, c.Cancel(creator, 2))

	page, err := c.Active(0, 10)
	require.NoError(t, err)
	require.Len(t, page, 4)
	assert.Equal(t, uint64(1), page[0].ID)
	assert.Equal(t, uint64(3), page[1].ID)

	page, err = c.Active(2, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, uint64(4), page[0].ID)
	assert.Equal(t, uint64(5), page[1].ID)

	count, err := c.Count()
	require.NoError(t, err)
	assert.Equal(t, uint64(5), count)
}
