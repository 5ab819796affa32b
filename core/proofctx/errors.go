package proofctx

import "errors"

var (
	// ErrProofVerificationFailed indicates a proof that does not check.
	ErrProofVerificationFailed = errors.New("proofctx: proof verification failed")

	// ErrInvalidProofContext indicates a context account of the wrong owner,
	// size, proof type or authority.
	ErrInvalidProofContext = errors.New("proofctx: invalid proof context")

	// ErrAlreadyVerified rejects a second verification into one account.
	ErrAlreadyVerified = errors.New("proofctx: context already verified")

	// ErrContextConsumed rejects any use of a consumed context.
	ErrContextConsumed = errors.New("proofctx: context already consumed")

	// ErrContextNotVerified rejects consuming an empty context.
	ErrContextNotVerified = errors.New("proofctx: context not verified")
)
