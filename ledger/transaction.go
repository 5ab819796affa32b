package ledger

import (
	"errors"
	"fmt"

	bin "github.com/gagliardetto/binary"
	solana "github.com/gagliardetto/solana-go"
)

// ErrInvalidSignature is returned for a transaction signature that does not
// verify against its message.
var ErrInvalidSignature = errors.New("ledger: invalid transaction signature")

// Signature is one signer's ed25519 signature over the transaction message.
type Signature struct {
	Signer    solana.PublicKey
	Signature solana.Signature
}

// Transaction is an ordered list of instructions that commit together.
type Transaction struct {
	Instructions []Instruction
	Signatures   []Signature
}

// NewTransaction bundles instructions.
func NewTransaction(instructions ...Instruction) *Transaction {
	return &Transaction{Instructions: instructions}
}

// Message is the byte string every signer signs.
func (tx *Transaction) Message() []byte {
	msg, err := bin.MarshalBorsh(tx.Instructions)
	if err != nil {
		panic(fmt.Sprintf("ledger: encode message: %v", err))
	}
	return msg
}

// Sign appends signatures of keys over the current message. Instructions
// must not change afterwards.
func (tx *Transaction) Sign(keys ...solana.PrivateKey) error {
	msg := tx.Message()
	for _, key := range keys {
		sig, err := key.Sign(msg)
		if err != nil {
			return err
		}
		tx.Signatures = append(tx.Signatures, Signature{Signer: key.PublicKey(), Signature: sig})
	}
	return nil
}

func (tx *Transaction) verifySignatures() ([]solana.PublicKey, error) {
	msg := tx.Message()
	signers := make([]solana.PublicKey, 0, len(tx.Signatures))
	for _, sig := range tx.Signatures {
		if !sig.Signature.Verify(sig.Signer, msg) {
			return nil, fmt.Errorf("%w: %s", ErrInvalidSignature, sig.Signer)
		}
		signers = append(signers, sig.Signer)
	}
	return signers, nil
}
