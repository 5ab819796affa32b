// Package authenc implements the owner's symmetric balance cache: a short
// authenticated ciphertext of the available balance that decrypts instantly,
// unlike the ElGamal ciphertext which needs a discrete-log search.
//
// The ledger stores these ciphertexts but never checks them. A wrong cache
// value only misleads its owner, who can always rebuild it from the ElGamal
// secret key and the on-ledger available balance.
package authenc

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/solana-developers/Confidential-Transfer-Sample/accountsigner"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/sha3"
)

const (
	KeySize        = chacha20poly1305.KeySize
	NonceSize      = chacha20poly1305.NonceSize
	CiphertextSize = NonceSize + 8 + chacha20poly1305.Overhead

	keyDomain = "AeKey"
)

var (
	// ErrKeyDerivation indicates the signing credential could not produce key material.
	ErrKeyDerivation = errors.New("authenc: key derivation failed")

	// ErrDecryption indicates a ciphertext that does not open under the key.
	ErrDecryption = errors.New("authenc: decryption failed")
)

// Key is the symmetric balance cache key.
type Key [KeySize]byte

// Ciphertext is nonce || sealed little-endian amount.
type Ciphertext [CiphertextSize]byte

// NewKeyFromSigner derives the key bound to (signer, publicSeed) by hashing
// the signature over "AeKey" || seed.
func NewKeyFromSigner(signer accountsigner.Signer, publicSeed []byte) (Key, error) {
	msg := make([]byte, 0, len(keyDomain)+len(publicSeed))
	msg = append(msg, keyDomain...)
	msg = append(msg, publicSeed...)
	sig, err := signer.SignMessage(msg)
	if err != nil {
		return Key{}, fmt.Errorf("%w: %v", ErrKeyDerivation, err)
	}
	if allZero(sig) {
		return Key{}, fmt.Errorf("%w: empty signature", ErrKeyDerivation)
	}
	digest := sha3.Sum512(sig)
	var key Key
	copy(key[:], digest[:KeySize])
	return key, nil
}

// NewRandomKey returns a key not tied to any signer.
func NewRandomKey() (Key, error) {
	var key Key
	if _, err := rand.Read(key[:]); err != nil {
		return Key{}, err
	}
	return key, nil
}

// Encrypt seals amount under a fresh random nonce.
func (k Key) Encrypt(amount uint64) (Ciphertext, error) {
	aead, err := chacha20poly1305.New(k[:])
	if err != nil {
		return Ciphertext{}, err
	}
	var out Ciphertext
	nonce := out[:NonceSize]
	if _, err := rand.Read(nonce); err != nil {
		return Ciphertext{}, err
	}
	var plain [8]byte
	binary.LittleEndian.PutUint64(plain[:], amount)
	aead.Seal(out[NonceSize:NonceSize], nonce, plain[:], nil)
	return out, nil
}

// Decrypt opens ct. Tampering and foreign keys both yield ErrDecryption.
func (k Key) Decrypt(ct Ciphertext) (uint64, error) {
	aead, err := chacha20poly1305.New(k[:])
	if err != nil {
		return 0, err
	}
	plain, err := aead.Open(nil, ct[:NonceSize], ct[NonceSize:], nil)
	if err != nil || len(plain) != 8 {
		return 0, ErrDecryption
	}
	return binary.LittleEndian.Uint64(plain), nil
}

func allZero(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}
