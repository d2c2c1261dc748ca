package engine

import (
	"encoding/json"
	"fmt"

	"github.com/Michellebuchiokonicha/quest-contract/business/contracts/bounty"
	"github.com/Michellebuchiokonicha/quest-contract/business/contracts/collection"
	"github.com/Michellebuchiokonicha/quest-contract/business/contracts/craft"
	"github.com/Michellebuchiokonicha/quest-contract/business/contracts/escrow"
	"github.com/Michellebuchiokonicha/quest-contract/business/contracts/match"
	"github.com/Michellebuchiokonicha/quest-contract/business/contracts/nft"
	"github.com/Michellebuchiokonicha/quest-contract/business/contracts/royalty"
	"github.com/Michellebuchiokonicha/quest-contract/business/contracts/vault"
	"github.com/Michellebuchiokonicha/quest-contract/foundation/ledger"
	"github.com/Michellebuchiokonicha/quest-contract/foundation/ledger/call"
	"github.com/Michellebuchiokonicha/quest-contract/foundation/validate"
)

// idResult is the response for operations that create an entity.
type idResult struct {
	ID uint64 `json:"id"`
}

// amountResult is the response for operations that pay the caller.
type amountResult struct {
	Amount uint64 `json:"amount"`
}

// craftResult is the response for a crafting attempt.
type craftResult struct {
	OutputID uint64 `json:"output_id"`
	Success  bool   `json:"success"`
}

// ack is the response for operations with nothing to report beyond
// success.
type ack struct {
	Status string `json:"status"`
}

var okAck = ack{Status: "ok"}

// decode unmarshals the call params into the model and validates it.
func decode(params json.RawMessage, val any) error {
	if len(params) > 0 {
		if err := json.Unmarshal(params, val); err != nil {
			return fmt.Errorf("unmarshal params: %w", err)
		}
	}

	if err := validate.Check(val); err != nil {
		return fmt.Errorf("validate params: %w", err)
	}

	return nil
}

// dispatch routes the call to the contract it names. The signed caller is
// threaded through as the acting account of every operation.
func (e *Engine) dispatch(from ledger.AccountID, c call.Call) (any, error) {
	switch c.Contract {
	case escrow.Name:
		return e.escrowOp(from, c)
	case bounty.Name:
		return e.bountyOp(from, c)
	case match.Name:
		return e.matchOp(from, c)
	case vault.Name:
		return e.vaultOp(from, c)
	case royalty.Name:
		return e.royaltyOp(from, c)
	case nft.Name:
		return e.nftOp(from, c)
	case collection.Name:
		return e.collectionOp(from, c)
	case craft.Name:
		return e.craftOp(from, c)
	}

	return nil, fmt.Errorf("contract %q: %w", c.Contract, ErrUnknownContract)
}

// =============================================================================
// Escrow

type escrowOpen struct {
	Parties     []ledger.AccountID     `json:"parties" validate:"required,min=1"`
	Token       ledger.Asset           `json:"token" validate:"required"`
	Obligations []uint64               `json:"obligations" validate:"required"`
	Policies    []escrow.ReleasePolicy `json:"policies"`
	Arbitrator  ledger.AccountID       `json:"arbitrator"`
	Duration    uint64                 `json:"duration" validate:"required"`
}

type escrowDeposit struct {
	ID     uint64 `json:"id" validate:"required"`
	Amount uint64 `json:"amount" validate:"required"`
}

type escrowID struct {
	ID uint64 `json:"id" validate:"required"`
}

type escrowRelease struct {
	ID     uint64 `json:"id" validate:"required"`
	Amount uint64 `json:"amount"`
}

type escrowDispute struct {
	ID     uint64 `json:"id" validate:"required"`
	Reason string `json:"reason"`
}

type escrowResolve struct {
	ID      uint64         `json:"id" validate:"required"`
	Outcome escrow.Outcome `json:"outcome"`
}

func (e *Engine) escrowOp(from ledger.AccountID, c call.Call) (any, error) {
	switch c.Op {
	case "open":
		var p escrowOpen
		if err := decode(c.Params, &p); err != nil {
			return nil, err
		}
		id, err := e.escrow.Open(from, escrow.OpenConfig{
			Parties:     p.Parties,
			Token:       p.Token,
			Obligations: p.Obligations,
			Policies:    p.Policies,
			Arbitrator:  p.Arbitrator,
			Duration:    p.Duration,
		})
		if err != nil {
			return nil, err
		}
		return idResult{ID: id}, nil

	case "deposit":
		var p escrowDeposit
		if err := decode(c.Params, &p); err != nil {
			return nil, err
		}
		return okAck, e.escrow.Deposit(from, p.ID, p.Amount)

	case "approve":
		var p escrowID
		if err := decode(c.Params, &p); err != nil {
			return nil, err
		}
		return okAck, e.escrow.Approve(from, p.ID)

	case "release":
		var p escrowRelease
		if err := decode(c.Params, &p); err != nil {
			return nil, err
		}
		return okAck, e.escrow.Release(from, p.ID, p.Amount)

	case "dispute":
		var p escrowDispute
		if err := decode(c.Params, &p); err != nil {
			return nil, err
		}
		return okAck, e.escrow.Dispute(from, p.ID, p.Reason)

	case "resolve":
		var p escrowResolve
		if err := decode(c.Params, &p); err != nil {
			return nil, err
		}
		return okAck, e.escrow.ResolveDispute(from, p.ID, p.Outcome)

	case "refund-timeout":
		var p escrowID
		if err := decode(c.Params, &p); err != nil {
			return nil, err
		}
		return okAck, e.escrow.RefundOnTimeout(p.ID)

	case "cancel":
		var p escrowID
		if err := decode(c.Params, &p); err != nil {
			return nil, err
		}
		return okAck, e.escrow.Cancel(from, p.ID)

	case "sweep":
		var p escrowID
		if err := decode(c.Params, &p); err != nil {
			return nil, err
		}
		return okAck, e.escrow.Sweep(from, p.ID)
	}

	return nil, fmt.Errorf("escrow %q: %w", c.Op, ErrUnknownOp)
}

// =============================================================================
// Bounty

type bountyCreate struct {
	Token    ledger.Asset `json:"token" validate:"required"`
	Amount   uint64       `json:"amount" validate:"required"`
	PuzzleID uint64       `json:"puzzle_id" validate:"required"`
	Duration uint64       `json:"duration" validate:"required"`
}

type bountyID struct {
	ID uint64 `json:"id" validate:"required"`
}

type bountyResolve struct {
	ID           uint64 `json:"id" validate:"required"`
	SolverPayout uint64 `json:"solver_payout"`
}

func (e *Engine) bountyOp(from ledger.AccountID, c call.Call) (any, error) {
	switch c.Op {
	case "init":
		return okAck, e.bounty.Init(from)

	case "create":
		var p bountyCreate
		if err := decode(c.Params, &p); err != nil {
			return nil, err
		}
		id, err := e.bounty.Create(from, p.Token, p.Amount, p.PuzzleID, p.Duration)
		if err != nil {
			return nil, err
		}
		return idResult{ID: id}, nil

	case "accept":
		var p bountyID
		if err := decode(c.Params, &p); err != nil {
			return nil, err
		}
		return okAck, e.bounty.Accept(from, p.ID)

	case "submit":
		var p bountyID
		if err := decode(c.Params, &p); err != nil {
			return nil, err
		}
		return okAck, e.bounty.Submit(from, p.ID)

	case "approve":
		var p bountyID
		if err := decode(c.Params, &p); err != nil {
			return nil, err
		}
		return okAck, e.bounty.Approve(from, p.ID)

	case "cancel":
		var p bountyID
		if err := decode(c.Params, &p); err != nil {
			return nil, err
		}
		return okAck, e.bounty.Cancel(from, p.ID)

	case "dispute":
		var p bountyID
		if err := decode(c.Params, &p); err != nil {
			return nil, err
		}
		return okAck, e.bounty.Dispute(from, p.ID)

	case "resolve":
		var p bountyResolve
		if err := decode(c.Params, &p); err != nil {
			return nil, err
		}
		return okAck, e.bounty.Resolve(from, p.ID, p.SolverPayout)
	}

	return nil, fmt.Errorf("bounty %q: %w", c.Op, ErrUnknownOp)
}

// =============================================================================
// Match

type matchCreate struct {
	Token              ledger.Asset `json:"token" validate:"required"`
	EntryFee           uint64       `json:"entry_fee" validate:"required"`
	MinPlayers         int          `json:"min_players" validate:"required,min=2"`
	MaxPlayers         int          `json:"max_players" validate:"required"`
	JoinDuration       uint64       `json:"join_duration" validate:"required"`
	SubmissionDuration uint64       `json:"submission_duration" validate:"required"`
	RevealDuration     uint64       `json:"reveal_duration" validate:"required"`
}

type matchID struct {
	ID uint64 `json:"id" validate:"required"`
}

type matchCommit struct {
	ID     uint64 `json:"id" validate:"required"`
	Commit []byte `json:"commit" validate:"required"`
}

type matchReveal struct {
	ID     uint64 `json:"id" validate:"required"`
	Score  int64  `json:"score"`
	Secret []byte `json:"secret" validate:"required"`
}

type matchDispute struct {
	ID       uint64           `json:"id" validate:"required"`
	Disputed ledger.AccountID `json:"disputed" validate:"required"`
}

type matchResolve struct {
	ID       uint64           `json:"id" validate:"required"`
	Disputed ledger.AccountID `json:"disputed" validate:"required"`
	Valid    bool             `json:"valid"`
}

func (e *Engine) matchOp(from ledger.AccountID, c call.Call) (any, error) {
	switch c.Op {
	case "create":
		var p matchCreate
		if err := decode(c.Params, &p); err != nil {
			return nil, err
		}
		id, err := e.match.Create(from, match.CreateConfig{
			Token:              p.Token,
			EntryFee:           p.EntryFee,
			MinPlayers:         p.MinPlayers,
			MaxPlayers:         p.MaxPlayers,
			JoinDuration:       p.JoinDuration,
			SubmissionDuration: p.SubmissionDuration,
			RevealDuration:     p.RevealDuration,
		})
		if err != nil {
			return nil, err
		}
		return idResult{ID: id}, nil

	case "join":
		var p matchID
		if err := decode(c.Params, &p); err != nil {
			return nil, err
		}
		return okAck, e.match.Join(from, p.ID)

	case "leave":
		var p matchID
		if err := decode(c.Params, &p); err != nil {
			return nil, err
		}
		return okAck, e.match.Leave(from, p.ID)

	case "commit":
		var p matchCommit
		if err := decode(c.Params, &p); err != nil {
			return nil, err
		}
		return okAck, e.match.Commit(from, p.ID, p.Commit)

	case "reveal":
		var p matchReveal
		if err := decode(c.Params, &p); err != nil {
			return nil, err
		}
		return okAck, e.match.Reveal(from, p.ID, p.Score, p.Secret)

	case "dispute":
		var p matchDispute
		if err := decode(c.Params, &p); err != nil {
			return nil, err
		}
		return okAck, e.match.RaiseDispute(from, p.ID, p.Disputed)

	case "resolve-dispute":
		var p matchResolve
		if err := decode(c.Params, &p); err != nil {
			return nil, err
		}
		return okAck, e.match.ResolveDispute(from, p.ID, p.Disputed, p.Valid)

	case "evaluate":
		var p matchID
		if err := decode(c.Params, &p); err != nil {
			return nil, err
		}
		return okAck, e.match.Evaluate(p.ID)

	case "timeout":
		var p matchID
		if err := decode(c.Params, &p); err != nil {
			return nil, err
		}
		return okAck, e.match.HandleTimeout(p.ID)
	}

	return nil, fmt.Errorf("match %q: %w", c.Op, ErrUnknownOp)
}

// =============================================================================
// Vault

type vaultLockOption struct {
	Period   uint64 `json:"period" validate:"required"`
	BonusBPS uint32 `json:"bonus_bps"`
}

type vaultInit struct {
	Token           ledger.Asset      `json:"token" validate:"required"`
	EarlyPenaltyBPS uint32            `json:"early_penalty_bps"`
	EmergencyBPS    uint32            `json:"emergency_bps"`
	LockOptions     []vaultLockOption `json:"lock_options" validate:"required,min=1,dive"`
}

type vaultAmount struct {
	Amount uint64 `json:"amount" validate:"required"`
}

type vaultToggle struct {
	Enabled bool `json:"enabled"`
}

type vaultDeposit struct {
	Amount     uint64 `json:"amount" validate:"required"`
	LockPeriod uint64 `json:"lock_period" validate:"required"`
}

type vaultBeneficiary struct {
	Beneficiary ledger.AccountID `json:"beneficiary" validate:"required"`
}

type vaultExtend struct {
	Additional uint64 `json:"additional" validate:"required"`
}

type vaultInherit struct {
	Owner ledger.AccountID `json:"owner" validate:"required"`
}

func (e *Engine) vaultOp(from ledger.AccountID, c call.Call) (any, error) {
	switch c.Op {
	case "init":
		var p vaultInit
		if err := decode(c.Params, &p); err != nil {
			return nil, err
		}
		options := make([]vault.LockOption, len(p.LockOptions))
		for i, opt := range p.LockOptions {
			options[i] = vault.LockOption{Period: opt.Period, BonusBPS: opt.BonusBPS}
		}
		return okAck, e.vault.Init(vault.InitConfig{
			Admin:           from,
			Token:           p.Token,
			EarlyPenaltyBPS: p.EarlyPenaltyBPS,
			EmergencyBPS:    p.EmergencyBPS,
			LockOptions:     options,
		})

	case "fund-bonus":
		var p vaultAmount
		if err := decode(c.Params, &p); err != nil {
			return nil, err
		}
		return okAck, e.vault.FundBonusPool(from, p.Amount)

	case "set-emergency-unlock":
		var p vaultToggle
		if err := decode(c.Params, &p); err != nil {
			return nil, err
		}
		return okAck, e.vault.SetEmergencyUnlock(from, p.Enabled)

	case "deposit":
		var p vaultDeposit
		if err := decode(c.Params, &p); err != nil {
			return nil, err
		}
		return okAck, e.vault.Deposit(from, p.Amount, p.LockPeriod)

	case "set-beneficiary":
		var p vaultBeneficiary
		if err := decode(c.Params, &p); err != nil {
			return nil, err
		}
		return okAck, e.vault.SetBeneficiary(from, p.Beneficiary)

	case "extend-lock":
		var p vaultExtend
		if err := decode(c.Params, &p); err != nil {
			return nil, err
		}
		return okAck, e.vault.ExtendLock(from, p.Additional)

	case "withdraw-mature":
		amount, err := e.vault.WithdrawMature(from)
		if err != nil {
			return nil, err
		}
		return amountResult{Amount: amount}, nil

	case "early-withdraw":
		amount, err := e.vault.EarlyWithdraw(from)
		if err != nil {
			return nil, err
		}
		return amountResult{Amount: amount}, nil

	case "emergency-withdraw":
		amount, err := e.vault.EmergencyWithdraw(from)
		if err != nil {
			return nil, err
		}
		return amountResult{Amount: amount}, nil

	case "claim-inheritance":
		var p vaultInherit
		if err := decode(c.Params, &p); err != nil {
			return nil, err
		}
		amount, err := e.vault.ClaimInheritance(from, p.Owner)
		if err != nil {
			return nil, err
		}
		return amountResult{Amount: amount}, nil
	}

	return nil, fmt.Errorf("vault %q: %w", c.Op, ErrUnknownOp)
}

// =============================================================================
// Royalty

type royaltySplit struct {
	Recipient ledger.AccountID `json:"recipient" validate:"required"`
	ShareBPS  uint32           `json:"share_bps" validate:"required"`
}

type royaltyInit struct {
	Token         ledger.Asset   `json:"token" validate:"required"`
	Splits        []royaltySplit `json:"splits" validate:"required,min=1,dive"`
	MaxRecipients int            `json:"max_recipients" validate:"required"`
}

type royaltyDistribute struct {
	Amount uint64 `json:"amount" validate:"required"`
}

func (e *Engine) royaltyOp(from ledger.AccountID, c call.Call) (any, error) {
	switch c.Op {
	case "init":
		var p royaltyInit
		if err := decode(c.Params, &p); err != nil {
			return nil, err
		}
		splits := make([]royalty.Split, len(p.Splits))
		for i, s := range p.Splits {
			splits[i] = royalty.Split{Recipient: s.Recipient, ShareBPS: s.ShareBPS}
		}
		return okAck, e.royalty.Init(from, p.Token, splits, p.MaxRecipients)

	case "distribute":
		var p royaltyDistribute
		if err := decode(c.Params, &p); err != nil {
			return nil, err
		}
		return okAck, e.royalty.Distribute(from, p.Amount)

	case "withdraw":
		amount, err := e.royalty.Withdraw(from)
		if err != nil {
			return nil, err
		}
		return amountResult{Amount: amount}, nil
	}

	return nil, fmt.Errorf("royalty %q: %w", c.Op, ErrUnknownOp)
}

// =============================================================================
// Achievement registry

type nftMinter struct {
	Minter ledger.AccountID `json:"minter" validate:"required"`
}

type nftMint struct {
	Owner    ledger.AccountID `json:"owner" validate:"required"`
	Kind     uint64           `json:"kind"`
	Metadata string           `json:"metadata"`
}

type nftTransfer struct {
	To ledger.AccountID `json:"to" validate:"required"`
	ID uint64           `json:"id" validate:"required"`
}

type nftID struct {
	ID uint64 `json:"id" validate:"required"`
}

func (e *Engine) nftOp(from ledger.AccountID, c call.Call) (any, error) {
	switch c.Op {
	case "init":
		return okAck, e.nft.Init(from)

	case "add-minter":
		var p nftMinter
		if err := decode(c.Params, &p); err != nil {
			return nil, err
		}
		return okAck, e.nft.AddMinter(from, p.Minter)

	case "mint":
		var p nftMint
		if err := decode(c.Params, &p); err != nil {
			return nil, err
		}
		id, err := e.nft.Mint(from, p.Owner, p.Kind, p.Metadata)
		if err != nil {
			return nil, err
		}
		return idResult{ID: id}, nil

	case "transfer":
		var p nftTransfer
		if err := decode(c.Params, &p); err != nil {
			return nil, err
		}
		return okAck, e.nft.Transfer(from, p.To, p.ID)

	case "burn":
		var p nftID
		if err := decode(c.Params, &p); err != nil {
			return nil, err
		}
		return okAck, e.nft.Burn(from, p.ID)
	}

	return nil, fmt.Errorf("nft %q: %w", c.Op, ErrUnknownOp)
}

// =============================================================================
// Collection

type collectionCreateSet struct {
	Name         string            `json:"name" validate:"required"`
	Achievements []uint64          `json:"achievements" validate:"required,min=1"`
	Rarity       collection.Rarity `json:"rarity"`
	LimitedCap   uint64            `json:"limited_cap"`
	BonusPoints  uint64            `json:"bonus_points"`
}

type collectionAdd struct {
	SetID         uint64 `json:"set_id" validate:"required"`
	AchievementID uint64 `json:"achievement_id" validate:"required"`
}

type collectionAchievement struct {
	AchievementID uint64 `json:"achievement_id" validate:"required"`
}

type collectionTransfer struct {
	To            ledger.AccountID `json:"to" validate:"required"`
	AchievementID uint64           `json:"achievement_id" validate:"required"`
}

// completedResult reports whether recording an achievement finished a set.
type completedResult struct {
	Completed bool `json:"completed"`
}

func (e *Engine) collectionOp(from ledger.AccountID, c call.Call) (any, error) {
	switch c.Op {
	case "create-set":
		var p collectionCreateSet
		if err := decode(c.Params, &p); err != nil {
			return nil, err
		}
		id, err := e.collection.CreateSet(p.Name, p.Achievements, p.Rarity, p.LimitedCap, p.BonusPoints)
		if err != nil {
			return nil, err
		}
		return idResult{ID: id}, nil

	case "add-achievement":
		var p collectionAdd
		if err := decode(c.Params, &p); err != nil {
			return nil, err
		}
		return okAck, e.collection.AddAchievement(p.SetID, p.AchievementID)

	case "record":
		var p collectionAchievement
		if err := decode(c.Params, &p); err != nil {
			return nil, err
		}
		completed, err := e.collection.Record(from, p.AchievementID)
		if err != nil {
			return nil, err
		}
		return completedResult{Completed: completed}, nil

	case "transfer-progress":
		var p collectionTransfer
		if err := decode(c.Params, &p); err != nil {
			return nil, err
		}
		return okAck, e.collection.TransferProgress(from, p.To, p.AchievementID)
	}

	return nil, fmt.Errorf("collection %q: %w", c.Op, ErrUnknownOp)
}

// =============================================================================
// Craft

type craftRecipe struct {
	Name        string       `json:"name" validate:"required"`
	Description string       `json:"description"`
	Ingredients []uint64     `json:"ingredients" validate:"required,min=1"`
	OutputKind  uint64       `json:"output_kind"`
	SuccessRate uint64       `json:"success_rate" validate:"max=100"`
	Rarity      craft.Rarity `json:"rarity"`
	Cooldown    uint64       `json:"cooldown"`
}

type craftEnable struct {
	ID      uint64 `json:"id" validate:"required"`
	Enabled bool   `json:"enabled"`
}

type craftAttempt struct {
	RecipeID uint64 `json:"recipe_id" validate:"required"`
}

func (e *Engine) craftOp(from ledger.AccountID, c call.Call) (any, error) {
	switch c.Op {
	case "init":
		return okAck, e.craft.Init(from)

	case "register-recipe":
		var p craftRecipe
		if err := decode(c.Params, &p); err != nil {
			return nil, err
		}
		id, err := e.craft.RegisterRecipe(from, craft.RecipeConfig{
			Name:        p.Name,
			Description: p.Description,
			Ingredients: p.Ingredients,
			OutputKind:  p.OutputKind,
			SuccessRate: p.SuccessRate,
			Rarity:      p.Rarity,
			Cooldown:    p.Cooldown,
		})
		if err != nil {
			return nil, err
		}
		return idResult{ID: id}, nil

	case "set-recipe-enabled":
		var p craftEnable
		if err := decode(c.Params, &p); err != nil {
			return nil, err
		}
		return okAck, e.craft.SetRecipeEnabled(from, p.ID, p.Enabled)

	case "craft":
		var p craftAttempt
		if err := decode(c.Params, &p); err != nil {
			return nil, err
		}
		outputID, success, err := e.craft.Craft(from, p.RecipeID)
		if err != nil {
			return nil, err
		}
		return craftResult{OutputID: outputID, Success: success}, nil
	}

	return nil, fmt.Errorf("craft %q: %w", c.Op, ErrUnknownOp)
}
