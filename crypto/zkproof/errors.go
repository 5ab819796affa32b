package zkproof

import "errors"

var (
	// ErrInvalidProofData indicates proof or context bytes of the wrong shape.
	ErrInvalidProofData = errors.New("zkproof: invalid proof data")

	// ErrProofVerification indicates a proof whose equations do not hold.
	ErrProofVerification = errors.New("zkproof: proof verification failed")

	// ErrProofGeneration indicates a witness that cannot satisfy the statement.
	ErrProofGeneration = errors.New("zkproof: proof generation failed")

	// ErrUnsupportedProofType indicates an unknown or reserved proof type.
	ErrUnsupportedProofType = errors.New("zkproof: unsupported proof type")
)
