package settle_test

import (
	"testing"

	"github.com/Michellebuchiokonicha/quest-contract/business/contracts/settle"
	"github.com/Michellebuchiokonicha/quest-contract/foundation/ledger"
)

// Success and failure markers.
const (
	success = "✓"
	failed  = "✗"
)

var (
	alice = ledger.AccountID("0xdd6B972ffcc631a62CAE1BB9d80b7ff429c8ebA4")
	bob   = ledger.AccountID("0x8e44580Db0cb787c9b8b26Ec08a2c956d2fAfabc")
	carol = ledger.AccountID("0x3b2B11a7AE21965b8b9aC74A075D38D88b6A4abF")
)

func Test_EqualSplit(t *testing.T) {
	t.Log("Given the need to split an amount evenly across parties.")
	{
		t.Logf("\tTest 0:\tWhen splitting 100 across three parties.")
		{
			payouts := settle.EqualSplit([]ledger.AccountID{alice, bob, carol}, 100)

			if len(payouts) != 3 {
				t.Fatalf("\t%s\tShould have three payouts: got %d", failed, len(payouts))
			}
			t.Logf("\t%s\tShould have three payouts.", success)

			for _, p := range payouts {
				if p.Amount != 33 {
					t.Fatalf("\t%s\tShould pay each party 33: party %s got %d", failed, p.Party, p.Amount)
				}
			}
			t.Logf("\t%s\tShould pay each party 33.", success)

			if total := settle.Total(payouts); total != 99 {
				t.Fatalf("\t%s\tShould total 99 leaving 1 in custody: got %d", failed, total)
			}
			t.Logf("\t%s\tShould total 99 leaving 1 in custody.", success)
		}

		t.Logf("\tTest 1:\tWhen splitting across no parties.")
		{
			payouts := settle.EqualSplit(nil, 100)
			if payouts != nil {
				t.Fatalf("\t%s\tShould produce no payouts: got %d", failed, len(payouts))
			}
			t.Logf("\t%s\tShould produce no payouts.", success)
		}
	}
}

func Test_DepositRefund(t *testing.T) {
	t.Log("Given the need to return exact deposits.")
	{
		t.Logf("\tTest 0:\tWhen one party deposited nothing.")
		{
			parties := []ledger.AccountID{alice, bob, carol}
			payouts := settle.DepositRefund(parties, []uint64{300, 0, 200})

			if len(payouts) != 2 {
				t.Fatalf("\t%s\tShould skip the empty deposit: got %d payouts", failed, len(payouts))
			}
			t.Logf("\t%s\tShould skip the empty deposit.", success)

			if payouts[0].Party != alice || payouts[0].Amount != 300 {
				t.Fatalf("\t%s\tShould refund alice 300 first: got %s %d", failed, payouts[0].Party, payouts[0].Amount)
			}
			if payouts[1].Party != carol || payouts[1].Amount != 200 {
				t.Fatalf("\t%s\tShould refund carol 200 second: got %s %d", failed, payouts[1].Party, payouts[1].Amount)
			}
			t.Logf("\t%s\tShould refund deposits in listed-party order.", success)
		}
	}
}

func Test_ProRataRefund(t *testing.T) {
	t.Log("Given the need to refund a drawn-down pot in proportion to deposits.")
	{
		t.Logf("\tTest 0:\tWhen 200 of a 500 deposit pool was already released.")
		{
			parties := []ledger.AccountID{alice, bob}
			payouts := settle.ProRataRefund(parties, []uint64{300, 200}, 300)

			if len(payouts) != 2 {
				t.Fatalf("\t%s\tShould have two payouts: got %d", failed, len(payouts))
			}
			t.Logf("\t%s\tShould have two payouts.", success)

			if payouts[0].Amount != 180 || payouts[1].Amount != 120 {
				t.Fatalf("\t%s\tShould refund 180/120: got %d/%d", failed, payouts[0].Amount, payouts[1].Amount)
			}
			t.Logf("\t%s\tShould refund 180/120.", success)
		}

		t.Logf("\tTest 1:\tWhen nothing was deposited.")
		{
			payouts := settle.ProRataRefund([]ledger.AccountID{alice}, []uint64{0}, 100)
			if payouts != nil {
				t.Fatalf("\t%s\tShould produce no payouts: got %d", failed, len(payouts))
			}
			t.Logf("\t%s\tShould produce no payouts.", success)
		}
	}
}

func Test_Split(t *testing.T) {
	t.Log("Given the need to split a total between two recipients.")
	{
		t.Logf("\tTest 0:\tWhen the first recipient takes 100 of 300.")
		{
			payouts := settle.Split(alice, 100, bob, 300)

			if len(payouts) != 2 {
				t.Fatalf("\t%s\tShould have two payouts: got %d", failed, len(payouts))
			}
			if payouts[0].Amount != 100 || payouts[1].Amount != 200 {
				t.Fatalf("\t%s\tShould pay 100 and the 200 remainder: got %d/%d", failed, payouts[0].Amount, payouts[1].Amount)
			}
			t.Logf("\t%s\tShould pay 100 and the 200 remainder.", success)
		}

		t.Logf("\tTest 1:\tWhen the first recipient takes everything.")
		{
			payouts := settle.Split(alice, 300, bob, 300)

			if len(payouts) != 1 || payouts[0].Party != alice {
				t.Fatalf("\t%s\tShould pay only the first recipient: got %d payouts", failed, len(payouts))
			}
			t.Logf("\t%s\tShould pay only the first recipient.", success)
		}
	}
}

func Test_WinnerTakeAll(t *testing.T) {
	t.Log("Given the need to award a pot to the highest scorers.")
	{
		t.Logf("\tTest 0:\tWhen a single party has the top score.")
		{
			parties := []ledger.AccountID{alice, bob, carol}
			scores := map[ledger.AccountID]int64{alice: 10, bob: 40, carol: 25}

			payouts := settle.WinnerTakeAll(parties, scores, 900)

			if len(payouts) != 1 || payouts[0].Party != bob || payouts[0].Amount != 900 {
				t.Fatalf("\t%s\tShould pay bob the whole pot: got %+v", failed, payouts)
			}
			t.Logf("\t%s\tShould pay bob the whole pot.", success)
		}

		t.Logf("\tTest 1:\tWhen two parties tie for the top score.")
		{
			parties := []ledger.AccountID{alice, bob, carol}
			scores := map[ledger.AccountID]int64{alice: 40, bob: 40, carol: 25}

			payouts := settle.WinnerTakeAll(parties, scores, 901)

			if len(payouts) != 2 {
				t.Fatalf("\t%s\tShould split between the tied parties: got %d payouts", failed, len(payouts))
			}
			if payouts[0].Amount != 450 || payouts[1].Amount != 450 {
				t.Fatalf("\t%s\tShould pay 450 each leaving 1 in custody: got %d/%d", failed, payouts[0].Amount, payouts[1].Amount)
			}
			t.Logf("\t%s\tShould pay 450 each leaving 1 in custody.", success)
		}

		t.Logf("\tTest 2:\tWhen no party has a score.")
		{
			payouts := settle.WinnerTakeAll([]ledger.AccountID{alice, bob}, nil, 900)
			if payouts != nil {
				t.Fatalf("\t%s\tShould produce no payouts: got %d", failed, len(payouts))
			}
			t.Logf("\t%s\tShould produce no payouts.", success)
		}
	}
}
