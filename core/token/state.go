package token

import (
	"fmt"

	bin "github.com/gagliardetto/binary"
	solana "github.com/gagliardetto/solana-go"
	"github.com/solana-developers/Confidential-Transfer-Sample/crypto/authenc"
	"github.com/solana-developers/Confidential-Transfer-Sample/crypto/elgamal"
)

// AccountState is the lifecycle of a token account.
type AccountState uint8

const (
	AccountStateUninitialized AccountState = iota
	AccountStateInitialized
)

// ConfidentialMint is the confidential extension of a mint.
type ConfidentialMint struct {
	// Authority may approve accounts and change this configuration.
	Authority solana.PublicKey
	// AutoApproveNewAccounts approves accounts as they are configured.
	AutoApproveNewAccounts bool
	// AuditorElGamalPubkey receives a decrypt handle on every transfer
	// amount. The zero key disables auditing.
	AuditorElGamalPubkey elgamal.PublicKey
}

// ConfidentialAccount is the confidential extension of a token account.
// Field order is the on-ledger layout.
type ConfidentialAccount struct {
	Approved      bool
	ElGamalPubkey elgamal.PublicKey

	// Credits land in the pending halves. Only ApplyPendingBalance moves
	// them into AvailableBalance.
	PendingBalanceLo elgamal.Ciphertext
	PendingBalanceHi elgamal.Ciphertext

	// AvailableBalance is written only by ApplyPendingBalance, Withdraw,
	// Transfer and EmptyAccount.
	AvailableBalance elgamal.Ciphertext

	// DecryptableAvailableBalance is the owner's cache of AvailableBalance.
	// It is never checked against AvailableBalance.
	DecryptableAvailableBalance authenc.Ciphertext

	AllowConfidentialCredits    bool
	AllowNonConfidentialCredits bool

	PendingBalanceCreditCounter         uint64
	MaximumPendingBalanceCreditCounter  uint64
	ExpectedPendingBalanceCreditCounter uint64
	ActualPendingBalanceCreditCounter   uint64
}

// ValidAsSource reports whether the account may send confidential funds.
func (c *ConfidentialAccount) ValidAsSource() error {
	if !c.Approved {
		return ErrAccountNotApproved
	}
	return nil
}

// ValidAsDestination reports whether the account may receive confidential
// funds.
func (c *ConfidentialAccount) ValidAsDestination() error {
	if !c.Approved {
		return ErrAccountNotApproved
	}
	if !c.AllowConfidentialCredits {
		return ErrConfidentialCreditsDisabled
	}
	return nil
}

// creditPending adds a lo/hi encrypted amount to the pending balance.
func (c *ConfidentialAccount) creditPending(lo, hi elgamal.Ciphertext) error {
	if c.PendingBalanceCreditCounter >= c.MaximumPendingBalanceCreditCounter {
		return ErrMaximumPendingBalanceCreditCounterExceeded
	}
	newLo, err := elgamal.Add(c.PendingBalanceLo, lo)
	if err != nil {
		return err
	}
	newHi, err := elgamal.Add(c.PendingBalanceHi, hi)
	if err != nil {
		return err
	}
	c.PendingBalanceLo, c.PendingBalanceHi = newLo, newHi
	c.PendingBalanceCreditCounter++
	return nil
}

// Mint is the token mint record.
type Mint struct {
	MintAuthority solana.PublicKey
	Supply        uint64
	Decimals      uint8
	IsInitialized bool
	Confidential  *ConfidentialMint `bin:"optional"`
}

// Account is the token account record.
type Account struct {
	Mint         solana.PublicKey
	Owner        solana.PublicKey
	Amount       uint64
	State        AccountState
	Confidential *ConfidentialAccount `bin:"optional"`
}

// Encoded sizes. Accounts are allocated large enough for their extension
// up front; records without one are zero padded.
const (
	ConfidentialMintSize    = 32 + 1 + elgamal.PointSize
	ConfidentialAccountSize = 1 + elgamal.PointSize + 3*elgamal.CiphertextSize + authenc.CiphertextSize + 2 + 4*8
	MintSize                = 32 + 8 + 1 + 1 + 1 + ConfidentialMintSize
	AccountSize             = 32 + 32 + 8 + 1 + 1 + ConfidentialAccountSize
)

func encodeState(v interface{}, size int) ([]byte, error) {
	enc, err := bin.MarshalBorsh(v)
	if err != nil {
		return nil, err
	}
	if len(enc) > size {
		return nil, fmt.Errorf("token: %T encodes to %d bytes, account holds %d", v, len(enc), size)
	}
	out := make([]byte, size)
	copy(out, enc)
	return out, nil
}

// DecodeMint parses mint account data.
func DecodeMint(data []byte) (*Mint, error) {
	m := new(Mint)
	if err := bin.UnmarshalBorsh(m, data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAccountData, err)
	}
	return m, nil
}

// DecodeAccount parses token account data.
func DecodeAccount(data []byte) (*Account, error) {
	a := new(Account)
	if err := bin.UnmarshalBorsh(a, data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAccountData, err)
	}
	return a, nil
}
