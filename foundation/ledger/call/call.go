// Package call defines the signed envelope every mutating contract
// operation arrives in. The signature is how a caller proves control of
// the account it claims before any state changes on its behalf.
package call

import (
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/Michellebuchiokonicha/quest-contract/foundation/ledger"
	"github.com/Michellebuchiokonicha/quest-contract/foundation/ledger/signature"
)

// Call is the payload a caller signs to invoke a contract operation.
type Call struct {
	Contract string          `json:"contract"` // Contract the operation belongs to.
	Op       string          `json:"op"`       // Operation name.
	Nonce    uint64          `json:"nonce"`    // Unique id for the call supplied by the caller.
	Params   json.RawMessage `json:"params"`   // Operation specific arguments.
}

// New constructs a call for the specified operation, marshaling the
// provided params value.
func New(contract string, op string, nonce uint64, params any) (Call, error) {
	raw, err := json.Marshal(params)
	if err != nil {
		return Call{}, fmt.Errorf("marshal params: %w", err)
	}

	return Call{
		Contract: contract,
		Op:       op,
		Nonce:    nonce,
		Params:   raw,
	}, nil
}

// Sign uses the specified private key to sign the call.
func (c Call) Sign(privateKey *ecdsa.PrivateKey) (SignedCall, error) {
	v, r, s, err := signature.Sign(c, privateKey)
	if err != nil {
		return SignedCall{}, err
	}

	return SignedCall{
		Call: c,
		V:    v,
		R:    r,
		S:    s,
	}, nil
}

// =============================================================================

// SignedCall is a signed version of the call. This is how clients provide
// calls for execution against the contract engine.
type SignedCall struct {
	Call
	V *big.Int `json:"v"` // Recovery identifier, either 31 or 32 with questID.
	R *big.Int `json:"r"` // First coordinate of the ECDSA signature.
	S *big.Int `json:"s"` // Second coordinate of the ECDSA signature.
}

// Validate verifies the call has a proper signature that conforms to our
// standards.
func (sc SignedCall) Validate() error {
	return signature.VerifySignature(sc.V, sc.R, sc.S)
}

// FromAccount extracts the account id that signed the call.
func (sc SignedCall) FromAccount() (ledger.AccountID, error) {
	address, err := signature.FromAddress(sc.Call, sc.V, sc.R, sc.S)
	return ledger.AccountID(address), err
}

// SignatureString returns the signature as a string.
func (sc SignedCall) SignatureString() string {
	return signature.SignatureString(sc.V, sc.R, sc.S)
}

// String implements the fmt.Stringer interface for logging.
func (sc SignedCall) String() string {
	from, err := sc.FromAccount()
	if err != nil {
		from = "unknown"
	}

	return fmt.Sprintf("%s:%s.%s:%d", from, sc.Contract, sc.Op, sc.Nonce)
}
