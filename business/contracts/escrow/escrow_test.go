package escrow_test

import (
	"errors"
	"testing"

	"github.com/Michellebuchiokonicha/quest-contract/business/contracts/contract"
	"github.com/Michellebuchiokonicha/quest-contract/business/contracts/escrow"
	"github.com/Michellebuchiokonicha/quest-contract/foundation/ledger"
	"github.com/Michellebuchiokonicha/quest-contract/foundation/ledger/event"
	"github.com/Michellebuchiokonicha/quest-contract/foundation/ledger/host"
	"github.com/Michellebuchiokonicha/quest-contract/foundation/ledger/store/memory"
	"github.com/Michellebuchiokonicha/quest-contract/foundation/ledger/token"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

const gold = ledger.Asset("GOLD")

var (
	creator    = ledger.AccountID("0xF01813E4B85e178A83e29B8E7bF26BD830a25f32")
	alice      = ledger.AccountID("0xdd6B972ffcc631a62CAE1BB9d80b7ff429c8ebA4")
	bob        = ledger.AccountID("0x8e44580Db0cb787c9b8b26Ec08a2c956d2fAfabc")
	carol      = ledger.AccountID("0x3b2B11a7AE21965b8b9aC74A075D38D88b6A4abF")
	arbitrator = ledger.AccountID("0xB98D93a66478F9Ff9F651593A9bdD14b1fF02a42")
)

// clock is a settable ledger clock for tests.
type clock struct {
	now uint64
}

func (c *clock) advance(secs uint64) {
	c.now += secs
}

func newTestHost(t *testing.T) (*host.Host, *clock) {
	t.Helper()

	clk := clock{now: 1_750_000_000}

	genesis := map[ledger.Asset]map[ledger.AccountID]uint64{
		gold: {
			alice: 1_000,
			bob:   1_000,
			carol: 1_000,
		},
	}

	h := host.New(host.Config{
		Store:  memory.New(),
		Bank:   token.New(genesis),
		Events: event.NewLog(128, nil),
		Now:    func() uint64 { return clk.now },
	})

	return h, &clk
}

func Test_Escrow_ReleaseOnApproval(t *testing.T) {
	t.Log("Given the need to release custody once every party approves.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen handling a two party agreement over %d GOLD.", testID, 500)
		{
			h, _ := newTestHost(t)
			c := escrow.New(h)

			id, err := c.Open(creator, escrow.OpenConfig{
				Parties:     []ledger.AccountID{alice, bob},
				Token:       gold,
				Obligations: []uint64{300, 200},
				Policies:    []escrow.ReleasePolicy{escrow.PolicyAllApprove},
				Duration:    3_600,
			})
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to open the agreement: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould be able to open the agreement.", success, testID)

			if err := c.Deposit(alice, id, 300); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould accept alice's deposit: %v", failed, testID, err)
			}

			ag, err := c.Query(id)
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to query the agreement: %v", failed, testID, err)
			}
			if ag.Status != escrow.StatusCreated {
				t.Fatalf("\t%s\tTest %d:\tShould still be created after one deposit, got %s.", failed, testID, ag.Status)
			}
			t.Logf("\t%s\tTest %d:\tShould still be created after one deposit.", success, testID)

			if err := c.Deposit(bob, id, 200); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould accept bob's deposit: %v", failed, testID, err)
			}

			ag, _ = c.Query(id)
			if ag.Status != escrow.StatusActive {
				t.Fatalf("\t%s\tTest %d:\tShould be active once fully funded, got %s.", failed, testID, ag.Status)
			}
			t.Logf("\t%s\tTest %d:\tShould be active once fully funded.", success, testID)

			if got := h.Bank().Balance(gold, ledger.ContractAccount(escrow.Name)); got != 500 {
				t.Fatalf("\t%s\tTest %d:\tShould hold 500 GOLD in custody, got %d.", failed, testID, got)
			}
			t.Logf("\t%s\tTest %d:\tShould hold 500 GOLD in custody.", success, testID)

			if err := c.Approve(alice, id); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould accept alice's approval: %v", failed, testID, err)
			}

			ag, _ = c.Query(id)
			if ag.Status != escrow.StatusActive {
				t.Fatalf("\t%s\tTest %d:\tShould stay active on a single approval, got %s.", failed, testID, ag.Status)
			}

			if err := c.Approve(bob, id); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould accept bob's approval: %v", failed, testID, err)
			}

			ag, _ = c.Query(id)
			if ag.Status != escrow.StatusReleased {
				t.Fatalf("\t%s\tTest %d:\tShould be released after the final approval, got %s.", failed, testID, ag.Status)
			}
			t.Logf("\t%s\tTest %d:\tShould be released after the final approval.", success, testID)

			if got := h.Bank().Balance(gold, alice); got != 950 {
				t.Fatalf("\t%s\tTest %d:\tShould leave alice with 950 GOLD, got %d.", failed, testID, got)
			}
			if got := h.Bank().Balance(gold, bob); got != 1_050 {
				t.Fatalf("\t%s\tTest %d:\tShould leave bob with 1050 GOLD, got %d.", failed, testID, got)
			}
			if got := h.Bank().Balance(gold, ledger.ContractAccount(escrow.Name)); got != 0 {
				t.Fatalf("\t%s\tTest %d:\tShould empty custody, got %d.", failed, testID, got)
			}
			t.Logf("\t%s\tTest %d:\tShould split the pot equally between the parties.", success, testID)
		}
	}
}

func Test_Escrow_DepositGuards(t *testing.T) {
	t.Log("Given the need to reject invalid deposits.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen parties deposit into a fresh agreement.", testID)
		{
			h, _ := newTestHost(t)
			c := escrow.New(h)

			id, err := c.Open(creator, escrow.OpenConfig{
				Parties:     []ledger.AccountID{alice, bob},
				Token:       gold,
				Obligations: []uint64{300, 200},
				Duration:    3_600,
			})
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to open the agreement: %v", failed, testID, err)
			}

			err = c.Deposit(alice, id, 299)
			if !errors.Is(err, contract.ErrAmountMismatch) {
				t.Fatalf("\t%s\tTest %d:\tShould reject a deposit below the obligation: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould reject a deposit below the obligation.", success, testID)

			err = c.Deposit(alice, id, 301)
			if !errors.Is(err, contract.ErrAmountMismatch) {
				t.Fatalf("\t%s\tTest %d:\tShould reject a deposit above the obligation: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould reject a deposit above the obligation.", success, testID)

			err = c.Deposit(carol, id, 300)
			if !errors.Is(err, contract.ErrUnauthorized) {
				t.Fatalf("\t%s\tTest %d:\tShould reject a deposit from a non-party: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould reject a deposit from a non-party.", success, testID)

			if err := c.Deposit(alice, id, 300); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould accept the exact obligation: %v", failed, testID, err)
			}

			err = c.Deposit(alice, id, 300)
			if !errors.Is(err, contract.ErrAlreadyDeposited) {
				t.Fatalf("\t%s\tTest %d:\tShould reject a second deposit from the same party: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould reject a second deposit from the same party.", success, testID)

			if got := h.Bank().Balance(gold, alice); got != 700 {
				t.Fatalf("\t%s\tTest %d:\tShould only debit the accepted deposit, got balance %d.", failed, testID, got)
			}
			t.Logf("\t%s\tTest %d:\tShould only debit the accepted deposit.", success, testID)
		}
	}
}

func Test_Escrow_PartialReleaseAndTimeout(t *testing.T) {
	t.Log("Given the need to draw down the pot and refund what remains on timeout.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen the arbitrator releases part of the pot before the deadline expires.", testID)
		{
			h, clk := newTestHost(t)
			c := escrow.New(h)

			id, err := c.Open(creator, escrow.OpenConfig{
				Parties:     []ledger.AccountID{alice, bob},
				Token:       gold,
				Obligations: []uint64{600, 400},
				Policies:    []escrow.ReleasePolicy{escrow.PolicyArbitratorOnly},
				Arbitrator:  arbitrator,
				Duration:    3_600,
			})
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to open the agreement: %v", failed, testID, err)
			}

			if err := c.Deposit(alice, id, 600); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould accept alice's deposit: %v", failed, testID, err)
			}
			if err := c.Deposit(bob, id, 400); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould accept bob's deposit: %v", failed, testID, err)
			}

			err = c.Release(alice, id, 200)
			if !errors.Is(err, contract.ErrUnauthorized) {
				t.Fatalf("\t%s\tTest %d:\tShould reject a release without a satisfied policy: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould reject a release without a satisfied policy.", success, testID)

			if err := c.Release(arbitrator, id, 200); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould let the arbitrator release part of the pot: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould let the arbitrator release part of the pot.", success, testID)

			ag, _ := c.Query(id)
			if ag.Status != escrow.StatusActive {
				t.Fatalf("\t%s\tTest %d:\tShould stay active after a partial release, got %s.", failed, testID, ag.Status)
			}
			if ag.Pot != 800 {
				t.Fatalf("\t%s\tTest %d:\tShould hold 800 GOLD in the pot, got %d.", failed, testID, ag.Pot)
			}
			t.Logf("\t%s\tTest %d:\tShould stay active with 800 GOLD in the pot.", success, testID)

			err = c.RefundOnTimeout(id)
			if !errors.Is(err, contract.ErrDeadlineNotReached) {
				t.Fatalf("\t%s\tTest %d:\tShould reject a timeout refund before the deadline: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould reject a timeout refund before the deadline.", success, testID)

			clk.advance(3_601)

			if err := c.RefundOnTimeout(id); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould refund once the deadline passed: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould refund once the deadline passed.", success, testID)

			// Pro-rata over the remaining 800: alice 800*600/1000,
			// bob 800*400/1000.
			if got := h.Bank().Balance(gold, alice); got != 1_000-600+100+480 {
				t.Fatalf("\t%s\tTest %d:\tShould give alice her pro-rata refund, got %d.", failed, testID, got)
			}
			if got := h.Bank().Balance(gold, bob); got != 1_000-400+100+320 {
				t.Fatalf("\t%s\tTest %d:\tShould give bob his pro-rata refund, got %d.", failed, testID, got)
			}
			t.Logf("\t%s\tTest %d:\tShould refund the remaining pot pro-rata.", success, testID)

			ag, _ = c.Query(id)
			if ag.Status != escrow.StatusRefunded {
				t.Fatalf("\t%s\tTest %d:\tShould be refunded, got %s.", failed, testID, ag.Status)
			}
			if ag.Pot != 0 {
				t.Fatalf("\t%s\tTest %d:\tShould empty the pot, got %d.", failed, testID, ag.Pot)
			}
			t.Logf("\t%s\tTest %d:\tShould end refunded with an empty pot.", success, testID)
		}
	}
}

func Test_Escrow_DisputeResolution(t *testing.T) {
	t.Log("Given the need to pause an agreement and let the arbitrator decide.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen a party disputes a funded agreement.", testID)
		{
			h, _ := newTestHost(t)
			c := escrow.New(h)

			id, err := c.Open(creator, escrow.OpenConfig{
				Parties:     []ledger.AccountID{alice, bob},
				Token:       gold,
				Obligations: []uint64{300, 200},
				Arbitrator:  arbitrator,
				Duration:    3_600,
			})
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to open the agreement: %v", failed, testID, err)
			}

			err = c.Dispute(alice, id, "work not delivered")
			if !errors.Is(err, contract.ErrInvalidState) {
				t.Fatalf("\t%s\tTest %d:\tShould reject a dispute before activation: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould reject a dispute before activation.", success, testID)

			if err := c.Deposit(alice, id, 300); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould accept alice's deposit: %v", failed, testID, err)
			}
			if err := c.Deposit(bob, id, 200); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould accept bob's deposit: %v", failed, testID, err)
			}

			if err := c.Dispute(alice, id, "work not delivered"); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould let a party raise a dispute: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould let a party raise a dispute.", success, testID)

			err = c.Approve(bob, id)
			if !errors.Is(err, contract.ErrInvalidState) {
				t.Fatalf("\t%s\tTest %d:\tShould block approvals while disputed: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould block approvals while disputed.", success, testID)

			err = c.ResolveDispute(alice, id, escrow.OutcomeRefund)
			if !errors.Is(err, contract.ErrUnauthorized) {
				t.Fatalf("\t%s\tTest %d:\tShould only let the arbitrator resolve: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould only let the arbitrator resolve.", success, testID)

			if err := c.ResolveDispute(arbitrator, id, escrow.OutcomeRefund); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould let the arbitrator refund: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould let the arbitrator refund.", success, testID)

			if got := h.Bank().Balance(gold, alice); got != 1_000 {
				t.Fatalf("\t%s\tTest %d:\tShould return alice's exact deposit, got %d.", failed, testID, got)
			}
			if got := h.Bank().Balance(gold, bob); got != 1_000 {
				t.Fatalf("\t%s\tTest %d:\tShould return bob's exact deposit, got %d.", failed, testID, got)
			}
			t.Logf("\t%s\tTest %d:\tShould return every party its exact deposit.", success, testID)

			ag, _ := c.Query(id)
			if ag.Status != escrow.StatusRefunded {
				t.Fatalf("\t%s\tTest %d:\tShould be refunded, got %s.", failed, testID, ag.Status)
			}

			err = c.RefundOnTimeout(id)
			if !errors.Is(err, contract.ErrInvalidState) {
				t.Fatalf("\t%s\tTest %d:\tShould block further transitions after resolution: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould block further transitions after resolution.", success, testID)
		}

		testID = 1
		t.Logf("\tTest %d:\tWhen no arbitrator is configured.", testID)
		{
			h, _ := newTestHost(t)
			c := escrow.New(h)

			id, err := c.Open(creator, escrow.OpenConfig{
				Parties:     []ledger.AccountID{alice, bob},
				Token:       gold,
				Obligations: []uint64{300, 200},
				Duration:    3_600,
			})
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to open the agreement: %v", failed, testID, err)
			}

			if err := c.Deposit(alice, id, 300); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould accept alice's deposit: %v", failed, testID, err)
			}
			if err := c.Deposit(bob, id, 200); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould accept bob's deposit: %v", failed, testID, err)
			}

			err = c.Dispute(alice, id, "no one to decide")
			if !errors.Is(err, contract.ErrInvalidState) {
				t.Fatalf("\t%s\tTest %d:\tShould reject a dispute with no arbitrator: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould reject a dispute with no arbitrator.", success, testID)
		}
	}
}

func Test_Escrow_CancelWindows(t *testing.T) {
	t.Log("Given the need to let the creator abandon an agreement.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen cancelling before and after the deadline.", testID)
		{
			h, clk := newTestHost(t)
			c := escrow.New(h)

			id, err := c.Open(creator, escrow.OpenConfig{
				Parties:     []ledger.AccountID{alice, bob},
				Token:       gold,
				Obligations: []uint64{300, 200},
				Duration:    3_600,
			})
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to open the agreement: %v", failed, testID, err)
			}

			if err := c.Deposit(alice, id, 300); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould accept alice's deposit: %v", failed, testID, err)
			}

			err = c.Cancel(alice, id)
			if !errors.Is(err, contract.ErrUnauthorized) {
				t.Fatalf("\t%s\tTest %d:\tShould only let the creator cancel: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould only let the creator cancel.", success, testID)

			if err := c.Cancel(creator, id); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould cancel a created agreement at any time: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould cancel a created agreement at any time.", success, testID)

			if got := h.Bank().Balance(gold, alice); got != 1_000 {
				t.Fatalf("\t%s\tTest %d:\tShould refund alice's partial deposit, got %d.", failed, testID, got)
			}
			t.Logf("\t%s\tTest %d:\tShould refund alice's partial deposit.", success, testID)

			id, err = c.Open(creator, escrow.OpenConfig{
				Parties:     []ledger.AccountID{alice, bob},
				Token:       gold,
				Obligations: []uint64{300, 200},
				Duration:    3_600,
			})
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to open a second agreement: %v", failed, testID, err)
			}

			if err := c.Deposit(alice, id, 300); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould accept alice's deposit: %v", failed, testID, err)
			}
			if err := c.Deposit(bob, id, 200); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould accept bob's deposit: %v", failed, testID, err)
			}

			err = c.Cancel(creator, id)
			if !errors.Is(err, contract.ErrDeadlineNotReached) {
				t.Fatalf("\t%s\tTest %d:\tShould block cancelling an active agreement early: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould block cancelling an active agreement early.", success, testID)

			clk.advance(3_601)

			if err := c.Cancel(creator, id); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould cancel an active agreement past the deadline: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould cancel an active agreement past the deadline.", success, testID)

			if got := h.Bank().Balance(gold, bob); got != 1_000 {
				t.Fatalf("\t%s\tTest %d:\tShould refund bob's deposit, got %d.", failed, testID, got)
			}
		}
	}
}

func Test_Escrow_SweepDust(t *testing.T) {
	t.Log("Given the need to collect truncation dust after a terminal release.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen a 100 GOLD pot splits across three parties.", testID)
		{
			h, _ := newTestHost(t)
			c := escrow.New(h)

			id, err := c.Open(creator, escrow.OpenConfig{
				Parties:     []ledger.AccountID{alice, bob, carol},
				Token:       gold,
				Obligations: []uint64{40, 40, 20},
				Arbitrator:  arbitrator,
				Policies:    []escrow.ReleasePolicy{escrow.PolicyArbitratorOnly},
				Duration:    3_600,
			})
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to open the agreement: %v", failed, testID, err)
			}

			for _, dep := range []struct {
				party  ledger.AccountID
				amount uint64
			}{{alice, 40}, {bob, 40}, {carol, 20}} {
				if err := c.Deposit(dep.party, id, dep.amount); err != nil {
					t.Fatalf("\t%s\tTest %d:\tShould accept the deposit from %s: %v", failed, testID, dep.party, err)
				}
			}

			err = c.Sweep(creator, id)
			if !errors.Is(err, contract.ErrInvalidState) {
				t.Fatalf("\t%s\tTest %d:\tShould block sweeping before a terminal status: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould block sweeping before a terminal status.", success, testID)

			if err := c.Release(arbitrator, id, 0); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould release the full pot: %v", failed, testID, err)
			}

			ag, _ := c.Query(id)
			if ag.Status != escrow.StatusReleased {
				t.Fatalf("\t%s\tTest %d:\tShould be released, got %s.", failed, testID, ag.Status)
			}
			if ag.Pot != 1 {
				t.Fatalf("\t%s\tTest %d:\tShould keep 1 GOLD of dust in the pot, got %d.", failed, testID, ag.Pot)
			}
			t.Logf("\t%s\tTest %d:\tShould keep 1 GOLD of dust in the pot.", success, testID)

			if err := c.Sweep(creator, id); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould let the creator sweep the dust: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould let the creator sweep the dust.", success, testID)

			if got := h.Bank().Balance(gold, creator); got != 1 {
				t.Fatalf("\t%s\tTest %d:\tShould credit the dust to the creator, got %d.", failed, testID, got)
			}
			if got := h.Bank().Balance(gold, ledger.ContractAccount(escrow.Name)); got != 0 {
				t.Fatalf("\t%s\tTest %d:\tShould empty custody, got %d.", failed, testID, got)
			}
			t.Logf("\t%s\tTest %d:\tShould leave custody empty.", success, testID)
		}
	}
}

func Test_Escrow_MajorityPolicy(t *testing.T) {
	t.Log("Given the need to release on a strict majority of approvals.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen two of three parties approve.", testID)
		{
			h, _ := newTestHost(t)
			c := escrow.New(h)

			id, err := c.Open(creator, escrow.OpenConfig{
				Parties:     []ledger.AccountID{alice, bob, carol},
				Token:       gold,
				Obligations: []uint64{100, 100, 100},
				Policies:    []escrow.ReleasePolicy{escrow.PolicyMajorityApprove},
				Duration:    3_600,
			})
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to open the agreement: %v", failed, testID, err)
			}

			for _, party := range []ledger.AccountID{alice, bob, carol} {
				if err := c.Deposit(party, id, 100); err != nil {
					t.Fatalf("\t%s\tTest %d:\tShould accept the deposit from %s: %v", failed, testID, party, err)
				}
			}

			if err := c.Approve(alice, id); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould accept alice's approval: %v", failed, testID, err)
			}

			ag, _ := c.Query(id)
			if ag.Status != escrow.StatusActive {
				t.Fatalf("\t%s\tTest %d:\tShould stay active on one of three approvals, got %s.", failed, testID, ag.Status)
			}
			t.Logf("\t%s\tTest %d:\tShould stay active on one of three approvals.", success, testID)

			if err := c.Approve(bob, id); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould accept bob's approval: %v", failed, testID, err)
			}

			ag, _ = c.Query(id)
			if ag.Status != escrow.StatusReleased {
				t.Fatalf("\t%s\tTest %d:\tShould release on two of three approvals, got %s.", failed, testID, ag.Status)
			}
			t.Logf("\t%s\tTest %d:\tShould release on two of three approvals.", success, testID)
		}
	}
}

func Test_Escrow_AtomicFailedDeposit(t *testing.T) {
	t.Log("Given the need to roll back every effect of a failed call.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen a party deposits more than it holds.", testID)
		{
			h, _ := newTestHost(t)
			c := escrow.New(h)

			id, err := c.Open(creator, escrow.OpenConfig{
				Parties:     []ledger.AccountID{alice, bob},
				Token:       gold,
				Obligations: []uint64{2_000, 200},
				Duration:    3_600,
			})
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to open the agreement: %v", failed, testID, err)
			}

			err = c.Deposit(alice, id, 2_000)
			if !errors.Is(err, token.ErrInsufficientFunds) {
				t.Fatalf("\t%s\tTest %d:\tShould reject a deposit exceeding the balance: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould reject a deposit exceeding the balance.", success, testID)

			ag, _ := c.Query(id)
			if ag.Deposited[0] != 0 || ag.Pot != 0 {
				t.Fatalf("\t%s\tTest %d:\tShould leave no trace of the failed deposit, deposited %d pot %d.", failed, testID, ag.Deposited[0], ag.Pot)
			}
			if got := h.Bank().Balance(gold, alice); got != 1_000 {
				t.Fatalf("\t%s\tTest %d:\tShould leave alice's balance untouched, got %d.", failed, testID, got)
			}
			t.Logf("\t%s\tTest %d:\tShould leave no trace of the failed deposit.", success, testID)

			events := h.Events().Recent()
			for _, ev := range events {
				if ev.Name == "deposit" {
					t.Fatalf("\t%s\tTest %d:\tShould not emit events for the failed call.", failed, testID)
				}
			}
			t.Logf("\t%s\tTest %d:\tShould not emit events for the failed call.", success, testID)
		}
	}
}
