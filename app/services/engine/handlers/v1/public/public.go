// Package public maintains the group of handlers for public access.
package public

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Michellebuchiokonicha/quest-contract/business/contracts/contract"
	"github.com/Michellebuchiokonicha/quest-contract/business/engine"
	v1 "github.com/Michellebuchiokonicha/quest-contract/business/web/v1"
	"github.com/Michellebuchiokonicha/quest-contract/foundation/events"
	"github.com/Michellebuchiokonicha/quest-contract/foundation/ledger"
	"github.com/Michellebuchiokonicha/quest-contract/foundation/ledger/call"
	"github.com/Michellebuchiokonicha/quest-contract/foundation/ledger/genesis"
	"github.com/Michellebuchiokonicha/quest-contract/foundation/nameservice"
	"github.com/Michellebuchiokonicha/quest-contract/foundation/web"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Handlers manages the set of contract engine endpoints.
type Handlers struct {
	Log     *zap.SugaredLogger
	Engine  *engine.Engine
	NS      *nameservice.NameService
	Genesis genesis.Genesis
	WS      websocket.Upgrader
	Evts    *events.Events
}

// Events handles a web socket to provide contract events to a client.
func (h Handlers) Events(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	h.WS.CheckOrigin = func(r *http.Request) bool { return true }

	c, err := h.WS.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	ch := h.Evts.Acquire(v.TraceID)
	defer h.Evts.Release(v.TraceID)

	ticker := time.NewTicker(time.Second)

	for {
		select {
		case evt, wd := <-ch:
			if !wd {
				return nil
			}

			if err := c.WriteJSON(evt); err != nil {
				return err
			}

		case <-ticker.C:
			if err := c.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
				return nil
			}
		}
	}
}

// SubmitCall executes a signed contract call against the engine.
func (h Handlers) SubmitCall(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	var signedCall call.SignedCall
	if err := web.Decode(r, &signedCall); err != nil {
		return fmt.Errorf("unable to decode payload: %w", err)
	}

	h.Log.Infow("submit call", "traceid", v.TraceID, "call", signedCall.String())

	result, err := h.Engine.Execute(signedCall)
	if err != nil {
		return v1.NewRequestError(err, errorStatus(err))
	}

	return web.Respond(ctx, w, result, http.StatusOK)
}

// GenesisList returns the genesis information.
func (h Handlers) GenesisList(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.Genesis, http.StatusOK)
}

// Balances returns the balances for an asset, filtered down to one
// account when the route names one.
func (h Handlers) Balances(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	asset := ledger.Asset(web.Param(r, "asset"))
	acct := web.Param(r, "account")

	all := h.Engine.Host().Bank().CopyBalances(asset)

	balances := make([]balance, 0, len(all))
	for accountID, amount := range all {
		if acct != "" && acct != string(accountID) {
			continue
		}

		balances = append(balances, balance{
			Account: accountID,
			Name:    h.NS.Lookup(accountID),
			Amount:  amount,
		})
	}

	resp := balanceResponse{
		Asset:    asset,
		Balances: balances,
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// EventsRecent returns the most recent committed contract events.
func (h Handlers) EventsRecent(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.Engine.Host().Events().Recent(), http.StatusOK)
}

// =============================================================================

// errorStatus maps the contract error taxonomy onto HTTP status codes.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, contract.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, contract.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, engine.ErrUnknownContract), errors.Is(err, engine.ErrUnknownOp):
		return http.StatusNotFound
	default:
		return http.StatusBadRequest
	}
}
