package commands

import (
	"encoding/json"
	"fmt"
	"net/http"
)

type event struct {
	Name     string `json:"name"`
	Entity   uint64 `json:"entity"`
	Actor    string `json:"actor"`
	Amount   uint64 `json:"amount"`
	Contract string `json:"contract"`
	Sequence uint64 `json:"sequence"`
}

// Events prints the most recent committed contract events.
func Events(args []string, url string) error {
	resp, err := http.Get(fmt.Sprintf("%s/v1/events/recent", url))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var events []event
	if err := json.NewDecoder(resp.Body).Decode(&events); err != nil {
		return err
	}

	for _, evt := range events {
		fmt.Printf("Seq: %d  Contract: %s  Event: %s  Entity: %d  Actor: %s  Amount: %d\n",
			evt.Sequence, evt.Contract, evt.Name, evt.Entity, evt.Actor, evt.Amount)
	}

	return nil
}
