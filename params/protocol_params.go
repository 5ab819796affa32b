package params

import (
	"time"

	"github.com/holiman/uint256"
)

const (
	// Pending credits are split into a low and a high ciphertext so that each
	// part stays inside a range that the owner can decrypt by brute force.
	PendingBalanceLoBitLength = 16
	PendingBalanceHiBitLength = 32

	// Transferred amounts are split at the same boundary.
	TransferAmountLoBitLength = PendingBalanceLoBitLength
	TransferAmountHiBitLength = PendingBalanceHiBitLength

	// AvailableBalanceBitLength is the range proven for a remaining balance.
	AvailableBalanceBitLength = 64

	// MaximumDepositTransferAmount is the largest plaintext amount a single
	// deposit or transfer may carry (lo || hi = 48 bits).
	MaximumDepositTransferAmount uint64 = 1<<(PendingBalanceLoBitLength+PendingBalanceHiBitLength) - 1

	// DefaultMaximumPendingBalanceCreditCounter bounds unapplied credits.
	DefaultMaximumPendingBalanceCreditCounter uint64 = 1 << 16

	// MaxInlineProofBytes is the largest proof that may travel inside the
	// mutating instruction. Larger proofs are verified into a context account
	// beforehand.
	MaxInlineProofBytes = 12 * 1024

	// DefaultDecryptBound is the largest plaintext the baby-step giant-step
	// decoder searches for.
	DefaultDecryptBound uint64 = 1 << 32

	// MaxDecryptBound caps the configurable bound. The decoder's table
	// grows with the square root of the bound.
	MaxDecryptBound uint64 = 1 << 40

	// DefaultContextExpiry is the application-level lifetime after which a
	// client treats an unconsumed context account as abandoned.
	DefaultContextExpiry = 24 * time.Hour
)

// Storage deposit schedule. Every account keeps lamports proportional to its
// data size plus a fixed record overhead; closing returns them.
const (
	AccountStorageOverhead uint64 = 128
	LamportsPerByte        uint64 = 6960

	// MaxAccountDataSize bounds the data of a single account.
	MaxAccountDataSize uint64 = 10 << 20
)

// StorageDeposit returns the lamports an account of dataLen bytes must hold.
// dataLen must not exceed MaxAccountDataSize.
func StorageDeposit(dataLen int) uint64 {
	deposit, _ := CheckedStorageDeposit(uint64(dataLen))
	return deposit
}

// CheckedStorageDeposit is StorageDeposit for untrusted sizes. ok is false
// when the deposit does not fit in a uint64.
func CheckedStorageDeposit(space uint64) (deposit uint64, ok bool) {
	total := new(uint256.Int).SetUint64(AccountStorageOverhead)
	total.Add(total, new(uint256.Int).SetUint64(space))
	total.Mul(total, new(uint256.Int).SetUint64(LamportsPerByte))
	if !total.IsUint64() {
		return 0, false
	}
	return total.Uint64(), true
}
