package zkproof

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru"
	"golang.org/x/crypto/sha3"
)

// Verifier checks proof data on behalf of the ledger.
type Verifier interface {
	Verify(d ProofData) error
}

// verifiedCacheSize bounds the number of remembered good proofs.
const verifiedCacheSize = 1024

// System is the default Verifier. It remembers the digests of recently
// accepted proofs, so a proof that is verified inline by a simulation and
// then again on execution only pays for the group arithmetic once.
type System struct {
	verified *lru.Cache
}

// NewSystem creates a verifier with an empty acceptance cache.
func NewSystem() *System {
	cache, err := lru.New(verifiedCacheSize)
	if err != nil {
		panic(err)
	}
	return &System{verified: cache}
}

func (s *System) Verify(d ProofData) error {
	switch d.ProofType() {
	case ProofTypePubkeyValidity, ProofTypeWithdraw, ProofTypeTransfer, ProofTypeZeroBalance:
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedProofType, d.ProofType())
	}
	digest := sha3.Sum256(EncodeProofData(d))
	if s.verified.Contains(digest) {
		return nil
	}
	if err := d.VerifyProof(); err != nil {
		return err
	}
	s.verified.Add(digest, struct{}{})
	return nil
}
