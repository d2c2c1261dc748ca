package commands

import (
	"encoding/json"
	"fmt"
	"net/http"
)

type balance struct {
	Account string `json:"account"`
	Name    string `json:"name"`
	Amount  uint64 `json:"amount"`
}

type balanceResponse struct {
	Asset    string    `json:"asset"`
	Balances []balance `json:"balances"`
}

// Balances prints the current set of balances for an asset.
func Balances(args []string, url string) error {
	if len(args) < 3 {
		return fmt.Errorf("usage: admin bals <asset> [account]")
	}
	asset := args[2]

	endpoint := fmt.Sprintf("%s/v1/balances/list/%s", url, asset)
	if len(args) == 4 {
		endpoint = fmt.Sprintf("%s/%s", endpoint, args[3])
	}

	resp, err := http.Get(endpoint)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var br balanceResponse
	if err := json.NewDecoder(resp.Body).Decode(&br); err != nil {
		return err
	}

	fmt.Printf("Asset: %s\n\n", br.Asset)
	for _, bal := range br.Balances {
		fmt.Printf("Account: %s  Name: %s  Balance: %d\n", bal.Account, bal.Name, bal.Amount)
	}

	return nil
}
