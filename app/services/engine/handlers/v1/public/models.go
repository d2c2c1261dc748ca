package public

import (
	"github.com/Michellebuchiokonicha/quest-contract/foundation/ledger"
)

// balance is one account balance with its resolved name.
type balance struct {
	Account ledger.AccountID `json:"account"`
	Name    string           `json:"name"`
	Amount  uint64           `json:"amount"`
}

// balanceResponse is the set of balances for one asset.
type balanceResponse struct {
	Asset    ledger.Asset `json:"asset"`
	Balances []balance    `json:"balances"`
}
