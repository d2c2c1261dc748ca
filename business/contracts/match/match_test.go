package match_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Michellebuchiokonicha/quest-contract/business/contracts/contract"
	"github.com/Michellebuchiokonicha/quest-contract/business/contracts/match"
	"github.com/Michellebuchiokonicha/quest-contract/foundation/ledger"
	"github.com/Michellebuchiokonicha/quest-contract/foundation/ledger/event"
	"github.com/Michellebuchiokonicha/quest-contract/foundation/ledger/host"
	"github.com/Michellebuchiokonicha/quest-contract/foundation/ledger/store/memory"
	"github.com/Michellebuchiokonicha/quest-contract/foundation/ledger/token"
)

const gold = ledger.Asset("GOLD")

var (
	creator = ledger.AccountID("0xF01813E4B85e178A83e29B8E7bF26BD830a25f32")
	player2 = ledger.AccountID("0xdd6B972ffcc631a62CAE1BB9d80b7ff429c8ebA4")
	player3 = ledger.AccountID("0x8e44580Db0cb787c9b8b26Ec08a2c956d2fAfabc")
	outside = ledger.AccountID("0x3b2B11a7AE21965b8b9aC74A075D38D88b6A4abF")
)

func newHost(now *uint64) *host.Host {
	genesis := map[ledger.Asset]map[ledger.AccountID]uint64{
		gold: {
			creator: 1_000,
			player2: 1_000,
			player3: 1_000,
		},
	}

	return host.New(host.Config{
		Store:  memory.New(),
		Bank:   token.New(genesis),
		Events: event.NewLog(64, nil),
		Now:    func() uint64 { return *now },
	})
}

func defaultConfig() match.CreateConfig {
	return match.CreateConfig{
		Token:              gold,
		EntryFee:           100,
		MinPlayers:         2,
		MaxPlayers:         3,
		JoinDuration:       3_600,
		SubmissionDuration: 1_800,
		RevealDuration:     1_800,
	}
}

func TestMatchLifecycle(t *testing.T) {
	now := uint64(1_750_000_000)
	h := newHost(&now)
	c := match.New(h)

	id, err := c.Create(creator, defaultConfig())
	require.NoError(t, err)
	assert.Equal(t, uint64(100), h.Bank().Balance(gold, ledger.ContractAccount(match.Name)))

	// Second player starts the submission phase.
	require.NoError(t, c.Join(player2, id))

	m, err := c.Query(id)
	require.NoError(t, err)
	assert.Equal(t, match.StatusSubmission, m.Status)
	assert.Equal(t, uint64(200), m.Pot)

	secret1 := []byte("creator-secret")
	secret2 := []byte("player2-secret")
	require.NoError(t, c.Commit(creator, id, match.CommitHash(creator, 120, secret1)))
	require.NoError(t, c.Commit(player2, id, match.CommitHash(player2, 90, secret2)))

	m, err = c.Query(id)
	require.NoError(t, err)
	assert.Equal(t, match.StatusReveal, m.Status)

	// A reveal with the wrong score must not match the commitment.
	err = c.Reveal(creator, id, 121, secret1)
	require.ErrorIs(t, err, contract.ErrAmountMismatch)

	require.NoError(t, c.Reveal(creator, id, 120, secret1))
	require.NoError(t, c.Reveal(player2, id, 90, secret2))

	now += 1_801
	require.NoError(t, c.Evaluate(id))

	assert.Equal(t, uint64(1_100), h.Bank().Balance(gold, creator))
	assert.Equal(t, uint64(900), h.Bank().Balance(gold, player2))
	assert.Equal(t, uint64(0), h.Bank().Balance(gold, ledger.ContractAccount(match.Name)))
}

func TestMatchJoinGuards(t *testing.T) {
	now := uint64(1_750_000_000)
	h := newHost(&now)
	c := match.New(h)

	cfg := defaultConfig()
	cfg.MinPlayers = 3
	id, err := c.Create(creator, cfg)
	require.NoError(t, err)

	err = c.Join(creator, id)
	require.ErrorIs(t, err, contract.ErrAlreadyDeposited)

	require.NoError(t, c.Join(player2, id))

	m, err := c.Query(id)
	require.NoError(t, err)
	assert.Equal(t, match.StatusOpen, m.Status)

	// Leaving while open refunds the fee.
	require.NoError(t, c.Leave(player2, id))
	assert.Equal(t, uint64(1_000), h.Bank().Balance(gold, player2))

	err = c.Leave(outside, id)
	require.ErrorIs(t, err, contract.ErrUnauthorized)

	now += 3_601
	err = c.Join(player3, id)
	require.ErrorIs(t, err, contract.ErrDeadlinePassed)
}

func TestMatchUnderfilledTimeout(t *testing.T) {
	now := uint64(1_750_000_000)
	h := newHost(&now)
	c := match.New(h)

	id, err := c.Create(creator, defaultConfig())
	require.NoError(t, err)

	err = c.HandleTimeout(id)
	require.ErrorIs(t, err, contract.ErrInvalidState)

	now += 3_601
	require.NoError(t, c.HandleTimeout(id))

	m, err := c.Query(id)
	require.NoError(t, err)
	assert.Equal(t, match.StatusAbandoned, m.Status)
	assert.Equal(t, uint64(1_000), h.Bank().Balance(gold, creator))
	assert.Equal(t, uint64(0), m.Pot)
}

func TestMatchSubmissionTimeout(t *testing.T) {
	now := uint64(1_750_000_000)
	h := newHost(&now)
	c := match.New(h)

	id, err := c.Create(creator, defaultConfig())
	require.NoError(t, err)
	require.NoError(t, c.Join(player2, id))

	secret := []byte("only-committer")
	require.NoError(t, c.Commit(creator, id, match.CommitHash(creator, 50, secret)))

	// Overdue submission moves to reveal with the commits on hand.
	now += 1_801
	require.NoError(t, c.HandleTimeout(id))

	m, err := c.Query(id)
	require.NoError(t, err)
	assert.Equal(t, match.StatusReveal, m.Status)

	require.NoError(t, c.Reveal(creator, id, 50, secret))

	err = c.Reveal(player2, id, 10, []byte("no-commit"))
	require.ErrorIs(t, err, contract.ErrNotFound)

	// Overdue reveal finishes the match; evaluation pays the only
	// revealed score the whole pot.
	now += 1_801
	require.NoError(t, c.HandleTimeout(id))
	require.NoError(t, c.Evaluate(id))

	assert.Equal(t, uint64(1_100), h.Bank().Balance(gold, creator))
}

func TestMatchDispute(t *testing.T) {
	now := uint64(1_750_000_000)
	h := newHost(&now)
	c := match.New(h)

	id, err := c.Create(creator, defaultConfig())
	require.NoError(t, err)
	require.NoError(t, c.Join(player2, id))

	secret1 := []byte("creator-secret")
	secret2 := []byte("player2-secret")
	require.NoError(t, c.Commit(creator, id, match.CommitHash(creator, 80, secret1)))
	require.NoError(t, c.Commit(player2, id, match.CommitHash(player2, 200, secret2)))
	require.NoError(t, c.Reveal(creator, id, 80, secret1))
	require.NoError(t, c.Reveal(player2, id, 200, secret2))

	require.NoError(t, c.RaiseDispute(creator, id, player2))

	err = c.RaiseDispute(creator, id, player2)
	require.ErrorIs(t, err, contract.ErrAlreadyResolved)

	err = c.ResolveDispute(player2, id, player2, true)
	require.ErrorIs(t, err, contract.ErrUnauthorized)

	// Ruling the reveal invalid discards the score and finishes the match.
	require.NoError(t, c.ResolveDispute(creator, id, player2, false))

	m, err := c.Query(id)
	require.NoError(t, err)
	assert.Equal(t, match.StatusFinished, m.Status)

	err = c.ResolveDispute(creator, id, player2, true)
	require.ErrorIs(t, err, contract.ErrInvalidState)

	require.NoError(t, c.Evaluate(id))
	assert.Equal(t, uint64(1_100), h.Bank().Balance(gold, creator))
	assert.Equal(t, uint64(900), h.Bank().Balance(gold, player2))
}

func TestMatchNoValidResults(t *testing.T) {
	now := uint64(1_750_000_000)
	h := newHost(&now)
	c := match.New(h)

	id, err := c.Create(creator, defaultConfig())
	require.NoError(t, err)
	require.NoError(t, c.Join(player2, id))

	// Nobody commits; the match times out through reveal and abandons
	// with full refunds.
	now += 1_801
	require.NoError(t, c.HandleTimeout(id))
	now += 1_801
	require.NoError(t, c.HandleTimeout(id))
	require.NoError(t, c.Evaluate(id))

	m, err := c.Query(id)
	require.NoError(t, err)
	assert.Equal(t, match.StatusAbandoned, m.Status)
	assert.Equal(t, uint64(1_000), h.Bank().Balance(gold, creator))
	assert.Equal(t, uint64(1_000), h.Bank().Balance(gold, player2))
}
