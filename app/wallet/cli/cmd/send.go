package cmd

import (
	"bytes"
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/Michellebuchiokonicha/quest-contract/foundation/ledger/call"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"
)

var (
	url      string
	contract string
	op       string
	nonce    uint64
	params   string
)

// sendCmd represents the send command
var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Sign and submit a contract call",
	Run: func(cmd *cobra.Command, args []string) {
		privateKey, err := crypto.LoadECDSA(getPrivateKeyPath())
		if err != nil {
			log.Fatal(err)
		}

		sendWithDetails(privateKey)
	},
}

func sendWithDetails(privateKey *ecdsa.PrivateKey) {
	c := call.Call{
		Contract: contract,
		Op:       op,
		Nonce:    nonce,
		Params:   json.RawMessage(params),
	}

	signedCall, err := c.Sign(privateKey)
	if err != nil {
		log.Fatal(err)
	}

	data, err := json.Marshal(signedCall)
	if err != nil {
		log.Fatal(err)
	}

	resp, err := http.Post(fmt.Sprintf("%s/v1/call/submit", url), "application/json", bytes.NewBuffer(data))
	if err != nil {
		log.Fatal(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println(string(body))
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().StringVarP(&url, "url", "u", "http://localhost:8080", "Url of the engine.")
	sendCmd.Flags().StringVarP(&contract, "contract", "c", "", "Contract the operation belongs to.")
	sendCmd.Flags().StringVarP(&op, "op", "o", "", "Operation to invoke.")
	sendCmd.Flags().Uint64VarP(&nonce, "nonce", "n", 0, "Unique nonce for the call.")
	sendCmd.Flags().StringVarP(&params, "params", "d", "{}", "Operation params as JSON.")
	sendCmd.MarkFlagRequired("contract")
	sendCmd.MarkFlagRequired("op")
	sendCmd.MarkFlagRequired("nonce")
}
