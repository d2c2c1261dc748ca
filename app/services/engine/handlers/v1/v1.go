// Package v1 contains the full set of handler functions and routes
// supported by the v1 web api.
package v1

import (
	"net/http"

	"github.com/Michellebuchiokonicha/quest-contract/app/services/engine/handlers/v1/public"
	"github.com/Michellebuchiokonicha/quest-contract/business/engine"
	"github.com/Michellebuchiokonicha/quest-contract/foundation/events"
	"github.com/Michellebuchiokonicha/quest-contract/foundation/ledger/genesis"
	"github.com/Michellebuchiokonicha/quest-contract/foundation/nameservice"
	"github.com/Michellebuchiokonicha/quest-contract/foundation/web"
	"go.uber.org/zap"
)

const version = "v1"

// Config contains all the mandatory systems required by handlers.
type Config struct {
	Log     *zap.SugaredLogger
	Engine  *engine.Engine
	NS      *nameservice.NameService
	Genesis genesis.Genesis
	Evts    *events.Events
}

// PublicRoutes binds all the version 1 public routes.
func PublicRoutes(app *web.App, cfg Config) {
	pbl := public.Handlers{
		Log:     cfg.Log,
		Engine:  cfg.Engine,
		NS:      cfg.NS,
		Genesis: cfg.Genesis,
		Evts:    cfg.Evts,
	}

	app.Handle(http.MethodGet, version, "/events", pbl.Events)
	app.Handle(http.MethodGet, version, "/events/recent", pbl.EventsRecent)
	app.Handle(http.MethodGet, version, "/genesis/list", pbl.GenesisList)
	app.Handle(http.MethodGet, version, "/balances/list/:asset", pbl.Balances)
	app.Handle(http.MethodGet, version, "/balances/list/:asset/:account", pbl.Balances)
	app.Handle(http.MethodPost, version, "/call/submit", pbl.SubmitCall)

	app.Handle(http.MethodGet, version, "/escrow/agreement/:id", pbl.EscrowAgreement)
	app.Handle(http.MethodGet, version, "/bounty/list", pbl.BountyActive)
	app.Handle(http.MethodGet, version, "/bounty/:id", pbl.BountyQuery)
	app.Handle(http.MethodGet, version, "/match/:id", pbl.MatchQuery)
	app.Handle(http.MethodGet, version, "/vault/config", pbl.VaultConfig)
	app.Handle(http.MethodGet, version, "/vault/position/:account", pbl.VaultPosition)
	app.Handle(http.MethodGet, version, "/vault/preview/:account", pbl.VaultPreview)
	app.Handle(http.MethodGet, version, "/royalty/config", pbl.RoyaltyConfig)
	app.Handle(http.MethodGet, version, "/royalty/pending/:account", pbl.RoyaltyPending)
	app.Handle(http.MethodGet, version, "/nft/supply", pbl.NFTSupply)
	app.Handle(http.MethodGet, version, "/nft/token/:id", pbl.NFTQuery)
	app.Handle(http.MethodGet, version, "/nft/collection/:account", pbl.NFTCollection)
	app.Handle(http.MethodGet, version, "/collection/set/:id", pbl.CollectionSet)
	app.Handle(http.MethodGet, version, "/collection/progress/:account/:set", pbl.CollectionProgress)
	app.Handle(http.MethodGet, version, "/collection/bonus/:account", pbl.CollectionBonus)
	app.Handle(http.MethodGet, version, "/craft/recipes", pbl.CraftRecipes)
	app.Handle(http.MethodGet, version, "/craft/recipe/:id", pbl.CraftRecipe)
	app.Handle(http.MethodGet, version, "/craft/cooldown/:account", pbl.CraftCooldown)
}
