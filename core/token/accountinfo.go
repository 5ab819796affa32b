package token

import (
	"errors"
	"fmt"

	solana "github.com/gagliardetto/solana-go"
	"github.com/holiman/uint256"
	"github.com/solana-developers/Confidential-Transfer-Sample/crypto/authenc"
	"github.com/solana-developers/Confidential-Transfer-Sample/crypto/elgamal"
	"github.com/solana-developers/Confidential-Transfer-Sample/crypto/zkproof"
	"github.com/solana-developers/Confidential-Transfer-Sample/params"
)

// The helpers below run on the owner's side. They read a confidential
// account, decrypt what they need and prepare the inputs of the next
// instruction. None of them touch ledger state.

func decryptCache(aeKey authenc.Key, ct authenc.Ciphertext) (uint64, error) {
	v, err := aeKey.Decrypt(ct)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrAccountDecryption, err)
	}
	return v, nil
}

func decryptBalance(secret *elgamal.SecretKey, ct elgamal.Ciphertext, bound uint64) (uint64, error) {
	v, err := secret.DecryptAmount(ct, bound)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrAccountDecryption, err)
	}
	return v, nil
}

func proofGeneration(err error) error {
	if errors.Is(err, zkproof.ErrProofGeneration) {
		return fmt.Errorf("%w: %w", ErrProofGeneration, err)
	}
	return err
}

// combineLoHi returns lo + 2^16*hi + base, failing on overflow.
func combineLoHi(base, lo, hi uint64) (uint64, error) {
	sum := new(uint256.Int).SetUint64(hi)
	sum.Lsh(sum, params.PendingBalanceLoBitLength)
	sum.Add(sum, new(uint256.Int).SetUint64(lo))
	sum.Add(sum, new(uint256.Int).SetUint64(base))
	if !sum.IsUint64() {
		return 0, fmt.Errorf("%w: balance exceeds 64 bits", ErrOverflow)
	}
	return sum.Uint64(), nil
}

// ApplyPendingBalanceAccountInfo is the state ApplyPendingBalance needs.
type ApplyPendingBalanceAccountInfo struct {
	PendingBalanceCreditCounter uint64
	PendingBalanceLo            elgamal.Ciphertext
	PendingBalanceHi            elgamal.Ciphertext
	DecryptableAvailableBalance authenc.Ciphertext
}

func NewApplyPendingBalanceAccountInfo(c *ConfidentialAccount) *ApplyPendingBalanceAccountInfo {
	return &ApplyPendingBalanceAccountInfo{
		PendingBalanceCreditCounter: c.PendingBalanceCreditCounter,
		PendingBalanceLo:            c.PendingBalanceLo,
		PendingBalanceHi:            c.PendingBalanceHi,
		DecryptableAvailableBalance: c.DecryptableAvailableBalance,
	}
}

// NewDecryptableAvailableBalance decrypts the pending halves by
// discrete-log search up to bound, adds them to the cached available
// balance and seals the total.
func (i *ApplyPendingBalanceAccountInfo) NewDecryptableAvailableBalance(secret *elgamal.SecretKey, aeKey authenc.Key, bound uint64) (authenc.Ciphertext, error) {
	lo, err := decryptBalance(secret, i.PendingBalanceLo, bound)
	if err != nil {
		return authenc.Ciphertext{}, err
	}
	hi, err := decryptBalance(secret, i.PendingBalanceHi, bound)
	if err != nil {
		return authenc.Ciphertext{}, err
	}
	current, err := decryptCache(aeKey, i.DecryptableAvailableBalance)
	if err != nil {
		return authenc.Ciphertext{}, err
	}
	total, err := combineLoHi(current, lo, hi)
	if err != nil {
		return authenc.Ciphertext{}, err
	}
	return aeKey.Encrypt(total)
}

// WithdrawAccountInfo is the state Withdraw needs.
type WithdrawAccountInfo struct {
	AvailableBalance            elgamal.Ciphertext
	DecryptableAvailableBalance authenc.Ciphertext
}

func NewWithdrawAccountInfo(c *ConfidentialAccount) *WithdrawAccountInfo {
	return &WithdrawAccountInfo{
		AvailableBalance:            c.AvailableBalance,
		DecryptableAvailableBalance: c.DecryptableAvailableBalance,
	}
}

// Generate builds the withdraw proof and the new cached balance.
func (i *WithdrawAccountInfo) Generate(mint, account solana.PublicKey, kp *elgamal.Keypair, aeKey authenc.Key, amount uint64) (*zkproof.WithdrawData, authenc.Ciphertext, error) {
	current, err := decryptCache(aeKey, i.DecryptableAvailableBalance)
	if err != nil {
		return nil, authenc.Ciphertext{}, err
	}
	if amount > current {
		return nil, authenc.Ciphertext{}, fmt.Errorf("%w: withdraw %d from %d", ErrProofGeneration, amount, current)
	}
	data, err := zkproof.NewWithdrawData(mint, account, kp, current, i.AvailableBalance, amount)
	if err != nil {
		return nil, authenc.Ciphertext{}, proofGeneration(err)
	}
	cache, err := aeKey.Encrypt(current - amount)
	if err != nil {
		return nil, authenc.Ciphertext{}, err
	}
	return data, cache, nil
}

// TransferAccountInfo is the source-side state Transfer needs.
type TransferAccountInfo struct {
	AvailableBalance            elgamal.Ciphertext
	DecryptableAvailableBalance authenc.Ciphertext
}

func NewTransferAccountInfo(c *ConfidentialAccount) *TransferAccountInfo {
	return &TransferAccountInfo{
		AvailableBalance:            c.AvailableBalance,
		DecryptableAvailableBalance: c.DecryptableAvailableBalance,
	}
}

// Generate builds the transfer proof and the source's new cached balance.
// A zero auditor key disables auditing.
func (i *TransferAccountInfo) Generate(mint, source, destination solana.PublicKey, kp *elgamal.Keypair, aeKey authenc.Key, amount uint64, destinationPubkey, auditorPubkey elgamal.PublicKey) (*zkproof.TransferData, authenc.Ciphertext, error) {
	current, err := decryptCache(aeKey, i.DecryptableAvailableBalance)
	if err != nil {
		return nil, authenc.Ciphertext{}, err
	}
	if amount > current {
		return nil, authenc.Ciphertext{}, fmt.Errorf("%w: transfer %d from %d", ErrProofGeneration, amount, current)
	}
	data, err := zkproof.NewTransferData(mint, source, destination, kp, current, i.AvailableBalance, amount, destinationPubkey, auditorPubkey)
	if err != nil {
		return nil, authenc.Ciphertext{}, proofGeneration(err)
	}
	cache, err := aeKey.Encrypt(current - amount)
	if err != nil {
		return nil, authenc.Ciphertext{}, err
	}
	return data, cache, nil
}

// EmptyAccountInfo is the state EmptyAccount needs.
type EmptyAccountInfo struct {
	AvailableBalance elgamal.Ciphertext
}

func NewEmptyAccountInfo(c *ConfidentialAccount) *EmptyAccountInfo {
	return &EmptyAccountInfo{AvailableBalance: c.AvailableBalance}
}

// Generate proves that the available balance is zero. The proof is built
// regardless of the balance and fails verification when it is not zero.
func (i *EmptyAccountInfo) Generate(mint, account solana.PublicKey, kp *elgamal.Keypair) (*zkproof.ZeroBalanceData, error) {
	data, err := zkproof.NewZeroBalanceData(mint, account, kp, i.AvailableBalance)
	if err != nil {
		return nil, proofGeneration(err)
	}
	return data, nil
}

// RecoverAvailableBalance decrypts the available balance with the ElGamal
// secret, ignoring the symmetric cache.
func RecoverAvailableBalance(c *ConfidentialAccount, secret *elgamal.SecretKey, bound uint64) (uint64, error) {
	return decryptBalance(secret, c.AvailableBalance, bound)
}

// RefreshDecryptableBalance rebuilds the symmetric cache from the ElGamal
// available balance, for use after the cache was lost or found stale.
func RefreshDecryptableBalance(c *ConfidentialAccount, secret *elgamal.SecretKey, aeKey authenc.Key, bound uint64) (authenc.Ciphertext, uint64, error) {
	v, err := RecoverAvailableBalance(c, secret, bound)
	if err != nil {
		return authenc.Ciphertext{}, 0, err
	}
	ct, err := aeKey.Encrypt(v)
	return ct, v, err
}
