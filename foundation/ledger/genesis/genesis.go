// Package genesis maintains access to the genesis file that seeds the
// token bank.
package genesis

import (
	"encoding/json"
	"os"
	"time"

	"github.com/Michellebuchiokonicha/quest-contract/foundation/ledger"
)

// Genesis represents the genesis file.
type Genesis struct {
	Date    time.Time `json:"date"`
	ChainID uint16    `json:"chain_id"` // The chain id represents an unique id for this running instance.

	// Balances holds the opening balance of every funded account,
	// keyed by asset.
	Balances map[ledger.Asset]map[ledger.AccountID]uint64 `json:"balances"`
}

// Load opens and consumes the genesis file.
func Load(path string) (Genesis, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Genesis{}, err
	}

	var genesis Genesis
	err = json.Unmarshal(content, &genesis)
	if err != nil {
		return Genesis{}, err
	}

	return genesis, nil
}
