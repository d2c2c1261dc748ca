package public

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	v1 "github.com/Michellebuchiokonicha/quest-contract/business/web/v1"
	"github.com/Michellebuchiokonicha/quest-contract/foundation/ledger"
	"github.com/Michellebuchiokonicha/quest-contract/foundation/web"
)

// EscrowAgreement returns the agreement with the specified id.
func (h Handlers) EscrowAgreement(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	id, err := paramUint(r, "id")
	if err != nil {
		return err
	}

	ag, err := h.Engine.Escrow().Query(id)
	if err != nil {
		return v1.NewRequestError(err, errorStatus(err))
	}

	return web.Respond(ctx, w, ag, http.StatusOK)
}

// BountyQuery returns the bounty with the specified id.
func (h Handlers) BountyQuery(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	id, err := paramUint(r, "id")
	if err != nil {
		return err
	}

	b, err := h.Engine.Bounty().Query(id)
	if err != nil {
		return v1.NewRequestError(err, errorStatus(err))
	}

	return web.Respond(ctx, w, b, http.StatusOK)
}

// BountyActive returns a page of bounties still open for solvers.
func (h Handlers) BountyActive(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	offset := queryUint(r, "offset", 0)
	limit := queryUint(r, "limit", 20)

	bounties, err := h.Engine.Bounty().Active(offset, limit)
	if err != nil {
		return v1.NewRequestError(err, errorStatus(err))
	}

	return web.Respond(ctx, w, bounties, http.StatusOK)
}

// MatchQuery returns the match with the specified id.
func (h Handlers) MatchQuery(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	id, err := paramUint(r, "id")
	if err != nil {
		return err
	}

	m, err := h.Engine.Match().Query(id)
	if err != nil {
		return v1.NewRequestError(err, errorStatus(err))
	}

	return web.Respond(ctx, w, m, http.StatusOK)
}

// VaultConfig returns the vault configuration.
func (h Handlers) VaultConfig(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	cfg, err := h.Engine.Vault().QueryConfig()
	if err != nil {
		return v1.NewRequestError(err, errorStatus(err))
	}

	return web.Respond(ctx, w, cfg, http.StatusOK)
}

// VaultPosition returns the position held by the specified account.
func (h Handlers) VaultPosition(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	accountID := ledger.AccountID(web.Param(r, "account"))

	p, err := h.Engine.Vault().QueryPosition(accountID)
	if err != nil {
		return v1.NewRequestError(err, errorStatus(err))
	}

	return web.Respond(ctx, w, p, http.StatusOK)
}

// VaultPreview returns the payout the account would receive for a
// mature withdrawal right now.
func (h Handlers) VaultPreview(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	accountID := ledger.AccountID(web.Param(r, "account"))

	payout, err := h.Engine.Vault().PreviewPayout(accountID)
	if err != nil {
		return v1.NewRequestError(err, errorStatus(err))
	}

	remaining, err := h.Engine.Vault().TimeUntilMaturity(accountID)
	if err != nil {
		return v1.NewRequestError(err, errorStatus(err))
	}

	resp := struct {
		Payout    uint64 `json:"payout"`
		Remaining uint64 `json:"remaining"`
	}{
		Payout:    payout,
		Remaining: remaining,
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// RoyaltyConfig returns the royalty splitter configuration.
func (h Handlers) RoyaltyConfig(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	cfg, err := h.Engine.Royalty().QueryConfig()
	if err != nil {
		return v1.NewRequestError(err, errorStatus(err))
	}

	return web.Respond(ctx, w, cfg, http.StatusOK)
}

// RoyaltyPending returns the amount withdrawable by the specified
// recipient.
func (h Handlers) RoyaltyPending(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	accountID := ledger.AccountID(web.Param(r, "account"))

	amount, err := h.Engine.Royalty().Pending(accountID)
	if err != nil {
		return v1.NewRequestError(err, errorStatus(err))
	}

	resp := struct {
		Pending uint64 `json:"pending"`
	}{
		Pending: amount,
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// NFTQuery returns the achievement with the specified id.
func (h Handlers) NFTQuery(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	id, err := paramUint(r, "id")
	if err != nil {
		return err
	}

	a, err := h.Engine.NFT().Query(id)
	if err != nil {
		return v1.NewRequestError(err, errorStatus(err))
	}

	return web.Respond(ctx, w, a, http.StatusOK)
}

// NFTCollection returns the achievement ids owned by the specified
// account in mint order.
func (h Handlers) NFTCollection(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	accountID := ledger.AccountID(web.Param(r, "account"))

	ids, err := h.Engine.NFT().Collection(accountID)
	if err != nil {
		return v1.NewRequestError(err, errorStatus(err))
	}

	return web.Respond(ctx, w, ids, http.StatusOK)
}

// NFTSupply returns the number of achievements in circulation.
func (h Handlers) NFTSupply(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	supply, err := h.Engine.NFT().TotalSupply()
	if err != nil {
		return v1.NewRequestError(err, errorStatus(err))
	}

	resp := struct {
		Supply uint64 `json:"supply"`
	}{
		Supply: supply,
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// CollectionSet returns the achievement set with the specified id.
func (h Handlers) CollectionSet(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	id, err := paramUint(r, "id")
	if err != nil {
		return err
	}

	s, err := h.Engine.Collection().QuerySet(id)
	if err != nil {
		return v1.NewRequestError(err, errorStatus(err))
	}

	return web.Respond(ctx, w, s, http.StatusOK)
}

// CollectionProgress returns the achievements the account has recorded
// against the specified set and whether the set is complete.
func (h Handlers) CollectionProgress(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	accountID := ledger.AccountID(web.Param(r, "account"))

	setID, err := paramUint(r, "set")
	if err != nil {
		return err
	}

	progress, err := h.Engine.Collection().Progress(accountID, setID)
	if err != nil {
		return v1.NewRequestError(err, errorStatus(err))
	}

	completed, err := h.Engine.Collection().IsCompleted(accountID, setID)
	if err != nil {
		return v1.NewRequestError(err, errorStatus(err))
	}

	resp := struct {
		Progress  []uint64 `json:"progress"`
		Completed bool     `json:"completed"`
	}{
		Progress:  progress,
		Completed: completed,
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// CollectionBonus returns the bonus points the account has earned from
// completed sets.
func (h Handlers) CollectionBonus(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	accountID := ledger.AccountID(web.Param(r, "account"))

	bonus, err := h.Engine.Collection().BonusOf(accountID)
	if err != nil {
		return v1.NewRequestError(err, errorStatus(err))
	}

	resp := struct {
		Bonus uint64 `json:"bonus"`
	}{
		Bonus: bonus,
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// CraftRecipe returns the recipe with the specified id.
func (h Handlers) CraftRecipe(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	id, err := paramUint(r, "id")
	if err != nil {
		return err
	}

	recipe, err := h.Engine.Craft().QueryRecipe(id)
	if err != nil {
		return v1.NewRequestError(err, errorStatus(err))
	}

	return web.Respond(ctx, w, recipe, http.StatusOK)
}

// CraftRecipes returns the ids of every registered recipe.
func (h Handlers) CraftRecipes(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	ids, err := h.Engine.Craft().Recipes()
	if err != nil {
		return v1.NewRequestError(err, errorStatus(err))
	}

	return web.Respond(ctx, w, ids, http.StatusOK)
}

// CraftCooldown returns the timestamp of the account's last crafting
// attempt.
func (h Handlers) CraftCooldown(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	accountID := ledger.AccountID(web.Param(r, "account"))

	last, err := h.Engine.Craft().Cooldown(accountID)
	if err != nil {
		return v1.NewRequestError(err, errorStatus(err))
	}

	resp := struct {
		LastAttempt uint64 `json:"last_attempt"`
	}{
		LastAttempt: last,
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// =============================================================================

// paramUint parses the named route parameter as an unsigned integer.
func paramUint(r *http.Request, name string) (uint64, error) {
	v, err := strconv.ParseUint(web.Param(r, name), 10, 64)
	if err != nil {
		return 0, v1.NewRequestError(fmt.Errorf("invalid %s: %w", name, err), http.StatusBadRequest)
	}

	return v, nil
}

// queryUint parses the named query string value, falling back to the
// default when absent or malformed.
func queryUint(r *http.Request, name string, def uint64) uint64 {
	v, err := strconv.ParseUint(r.URL.Query().Get(name), 10, 64)
	if err != nil {
		return def
	}

	return v
}
