package accountsigner

import (
	"crypto/ed25519"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/tyler-smith/go-bip39"
)

const (
	DefaultMnemonicBits = 128
	// DefaultHDPath follows the Solana wallet convention (coin type 501).
	DefaultHDPath    = "m/44'/501'/0'/0'"
	hdHardenedOffset = uint32(0x80000000)
)

// NewMnemonic returns a fresh BIP-39 phrase with the given entropy size.
func NewMnemonic(bits int) (string, error) {
	if err := ValidateMnemonicBits(bits); err != nil {
		return "", err
	}
	entropy, err := bip39.NewEntropy(bits)
	if err != nil {
		return "", err
	}
	return bip39.NewMnemonic(entropy)
}

func ValidateMnemonicBits(bits int) error {
	switch bits {
	case 128, 160, 192, 224, 256:
		return nil
	default:
		return fmt.Errorf("invalid mnemonic bits %d (allowed: 128,160,192,224,256)", bits)
	}
}

// Ed25519FromMnemonic derives an ed25519 signer for the given path.
func Ed25519FromMnemonic(mnemonic, passphrase, derivationPath string) (*Ed25519Signer, error) {
	seed, err := bip39.NewSeedWithErrorChecking(mnemonic, passphrase)
	if err != nil {
		return nil, err
	}
	if _, err := ParseDerivationPath(derivationPath); err != nil {
		return nil, err
	}
	mac := hmac.New(sha512.New, []byte("CT_ED25519_DERIVE"))
	mac.Write(seed)
	mac.Write([]byte{0})
	mac.Write([]byte(derivationPath))
	digest := mac.Sum(nil)
	return NewEd25519Signer(digest[:ed25519.SeedSize])
}

// Secp256k1FromMnemonic derives a secp256k1 signer along a BIP-32 path.
func Secp256k1FromMnemonic(mnemonic, passphrase, derivationPath string) (*Secp256k1Signer, error) {
	seed, err := bip39.NewSeedWithErrorChecking(mnemonic, passphrase)
	if err != nil {
		return nil, err
	}
	path, err := ParseDerivationPath(derivationPath)
	if err != nil {
		return nil, err
	}
	xk, err := newMasterKey(seed)
	if err != nil {
		return nil, err
	}
	for _, index := range path {
		if xk, err = xk.child(index); err != nil {
			return nil, fmt.Errorf("derive %s: %w", derivationPath, err)
		}
	}
	raw := xk.key.Bytes()
	return NewSecp256k1Signer(raw[:])
}

// ParseDerivationPath parses paths of the form m/44'/501'/0'/0'.
func ParseDerivationPath(path string) ([]uint32, error) {
	parts := strings.Split(strings.TrimSpace(path), "/")
	if len(parts) < 2 || parts[0] != "m" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDerivationPath, path)
	}
	out := make([]uint32, 0, len(parts)-1)
	for _, part := range parts[1:] {
		hardened := strings.HasSuffix(part, "'") || strings.HasSuffix(part, "h")
		if hardened {
			part = part[:len(part)-1]
		}
		v, err := strconv.ParseUint(part, 10, 31)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidDerivationPath, path)
		}
		index := uint32(v)
		if hardened {
			index += hdHardenedOffset
		}
		out = append(out, index)
	}
	return out, nil
}

// extendedKey is a BIP-32 private node.
type extendedKey struct {
	key       btcec.ModNScalar
	chainCode [32]byte
}

func splitHMAC(macKey, data []byte) (il, ir []byte) {
	mac := hmac.New(sha512.New, macKey)
	mac.Write(data)
	sum := mac.Sum(nil)
	return sum[:32], sum[32:]
}

func newMasterKey(seed []byte) (*extendedKey, error) {
	il, ir := splitHMAC([]byte("Bitcoin seed"), seed)
	xk := new(extendedKey)
	if overflow := xk.key.SetByteSlice(il); overflow || xk.key.IsZero() {
		return nil, fmt.Errorf("%w: unusable bip32 master key", ErrInvalidSignerKey)
	}
	copy(xk.chainCode[:], ir)
	return xk, nil
}

// child derives the index'th child. Indices at or above hdHardenedOffset
// commit to the private key, lower ones to the compressed public key.
func (xk *extendedKey) child(index uint32) (*extendedKey, error) {
	var data [37]byte
	if index >= hdHardenedOffset {
		raw := xk.key.Bytes()
		copy(data[1:33], raw[:])
	} else {
		priv := btcec.PrivKeyFromScalar(&xk.key)
		copy(data[:33], priv.PubKey().SerializeCompressed())
	}
	binary.BigEndian.PutUint32(data[33:], index)

	il, ir := splitHMAC(xk.chainCode[:], data[:])
	child := new(extendedKey)
	if overflow := child.key.SetByteSlice(il); overflow {
		return nil, fmt.Errorf("%w: bip32 tweak out of range at index %d", ErrInvalidSignerKey, index)
	}
	child.key.Add(&xk.key)
	if child.key.IsZero() {
		return nil, fmt.Errorf("%w: zero bip32 child at index %d", ErrInvalidSignerKey, index)
	}
	copy(child.chainCode[:], ir)
	return child, nil
}
