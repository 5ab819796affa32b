package zkproof

import (
	"encoding/binary"

	"github.com/gtank/merlin"
	"github.com/gtank/ristretto255"
	"github.com/solana-developers/Confidential-Transfer-Sample/crypto/elgamal"
)

const transcriptLabel = "confidential-balance-v1"

// transcript is a Fiat-Shamir transcript. Every sub-proof starts a fresh
// transcript seeded with its domain label and the full statement encoding,
// which already names the mint and the accounts involved. A proof is
// therefore only valid for the accounts it was built for.
type transcript struct {
	t *merlin.Transcript
}

func newTranscript(domain string, context []byte) *transcript {
	t := merlin.NewTranscript(transcriptLabel)
	t.AppendMessage([]byte("dom-sep"), []byte(domain))
	t.AppendMessage([]byte("ctx"), context)
	return &transcript{t: t}
}

func (t *transcript) appendPoint(label string, p [elgamal.PointSize]byte) {
	t.t.AppendMessage([]byte(label), p[:])
}

func (t *transcript) appendElement(label string, e *ristretto255.Element) {
	t.t.AppendMessage([]byte(label), e.Encode(nil))
}

func (t *transcript) appendU64(label string, v uint64) {
	var word [8]byte
	binary.LittleEndian.PutUint64(word[:], v)
	t.t.AppendMessage([]byte(label), word[:])
}

func (t *transcript) challenge(label string) *ristretto255.Scalar {
	return ristretto255.NewScalar().FromUniformBytes(t.t.ExtractBytes([]byte(label), 64))
}
