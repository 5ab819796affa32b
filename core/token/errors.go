package token

import (
	"errors"
	"fmt"

	"github.com/solana-developers/Confidential-Transfer-Sample/core/proofctx"
	"github.com/solana-developers/Confidential-Transfer-Sample/crypto/zkproof"
)

var (
	// ErrProofGeneration indicates the client could not build a witness,
	// for example because the balance does not cover the amount.
	ErrProofGeneration = errors.New("token: proof generation failed")

	// ErrProofVerificationFailed indicates a rejected proof or an inline
	// statement that no longer matches ledger state. Refresh and retry.
	ErrProofVerificationFailed = proofctx.ErrProofVerificationFailed

	// ErrAccountDecryption indicates the owner could not decrypt a balance.
	ErrAccountDecryption = errors.New("token: account decryption failed")

	// ErrPendingBalanceCreditCounterMismatch indicates a credit arrived
	// between reading the account and applying its pending balance.
	ErrPendingBalanceCreditCounterMismatch = errors.New("token: pending balance credit counter mismatch")

	// ErrMaximumPendingBalanceCreditCounterExceeded indicates a deposit into
	// an account whose pending balance must be applied first.
	ErrMaximumPendingBalanceCreditCounterExceeded = errors.New("token: maximum pending balance credit counter exceeded")

	// ErrReceiverCreditCounterExceeded indicates a transfer to an account
	// whose pending balance must be applied first.
	ErrReceiverCreditCounterExceeded = errors.New("token: receiver credit counter exceeded")

	// ErrDecimalsMismatch indicates decimals that differ from the mint's.
	ErrDecimalsMismatch = errors.New("token: decimals mismatch")

	// ErrInvalidProof indicates a failed public key validity proof on
	// account configuration.
	ErrInvalidProof = errors.New("token: invalid proof")

	// ErrInvalidProofContext indicates a context account of the wrong kind,
	// state or authority.
	ErrInvalidProofContext = proofctx.ErrInvalidProofContext

	// ErrStatementMismatch indicates a context account whose statement
	// differs from the one derived from ledger state.
	ErrStatementMismatch = errors.New("token: proof statement mismatch")

	// ErrProofTooLarge indicates inline proof data over the inline budget.
	ErrProofTooLarge = errors.New("token: inline proof too large")

	ErrOwnerMismatch                  = errors.New("token: owner does not match")
	ErrMintMismatch                   = errors.New("token: account belongs to another mint")
	ErrAuthorityMismatch              = errors.New("token: authority does not match")
	ErrAlreadyInitialized             = errors.New("token: already initialized")
	ErrUninitializedState             = errors.New("token: state is uninitialized")
	ErrInvalidAccountData             = errors.New("token: invalid account data")
	ErrMintNotConfigured              = errors.New("token: mint has no confidential extension")
	ErrAccountNotConfigured           = errors.New("token: account has no confidential extension")
	ErrAccountAlreadyConfigured       = errors.New("token: account already configured")
	ErrAccountNotApproved             = errors.New("token: account not approved")
	ErrConfidentialCreditsDisabled    = errors.New("token: confidential credits disabled")
	ErrNonConfidentialCreditsDisabled = errors.New("token: non-confidential credits disabled")
	ErrAccountHasBalance              = errors.New("token: account has balance")
	ErrInsufficientFunds              = errors.New("token: insufficient funds")
	ErrAmountTooLarge                 = errors.New("token: amount too large")
	ErrOverflow                       = errors.New("token: arithmetic overflow")
	ErrSameAccount                    = errors.New("token: source and destination are the same account")
	ErrInvalidInstruction             = errors.New("token: invalid instruction")

	// ErrUnsupportedInstruction rejects recognised but unimplemented
	// instructions such as fee-bearing transfers.
	ErrUnsupportedInstruction = errors.New("token: unsupported instruction")
)

// mapProofError maps failures of resolving a proof onto the public
// taxonomy. Inline proofs report every failure as a verification failure;
// context accounts report their state problems as ErrInvalidProofContext.
func mapProofError(err error, inline bool) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrProofTooLarge), errors.Is(err, ErrInvalidProofContext):
		return err
	case errors.Is(err, proofctx.ErrContextConsumed), errors.Is(err, proofctx.ErrContextNotVerified):
		return fmt.Errorf("%w: %w", ErrInvalidProofContext, err)
	case errors.Is(err, ErrProofVerificationFailed):
		return err
	case errors.Is(err, zkproof.ErrProofVerification), errors.Is(err, zkproof.ErrInvalidProofData),
		errors.Is(err, zkproof.ErrUnsupportedProofType):
		return fmt.Errorf("%w: %w", ErrProofVerificationFailed, err)
	}
	if inline {
		return fmt.Errorf("%w: %v", ErrProofVerificationFailed, err)
	}
	return err
}
