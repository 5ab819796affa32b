package token

import (
	solana "github.com/gagliardetto/solana-go"
	"github.com/solana-developers/Confidential-Transfer-Sample/crypto/authenc"
	"github.com/solana-developers/Confidential-Transfer-Sample/crypto/elgamal"
	"github.com/solana-developers/Confidential-Transfer-Sample/crypto/zkproof"
	"github.com/solana-developers/Confidential-Transfer-Sample/ledger"
	"github.com/solana-developers/Confidential-Transfer-Sample/params"
)

// Instruction discriminators of the token program.
const (
	InstructionInitializeMint uint8 = iota
	InstructionInitializeAccount
	InstructionMintTo
	InstructionTransfer
	InstructionUpdateMint
	InstructionConfigureAccount
	InstructionApproveAccount
	InstructionEmptyAccount
	InstructionDeposit
	InstructionWithdraw
	InstructionConfidentialTransfer
	InstructionApplyPendingBalance
	InstructionEnableConfidentialCredits
	InstructionDisableConfidentialCredits
	InstructionEnableNonConfidentialCredits
	InstructionDisableNonConfidentialCredits
	InstructionConfidentialTransferWithFee
	InstructionCloseAccount
)

// ProofLocation says where an instruction finds its proof: inline in the
// instruction data, or already verified in a context account.
type ProofLocation struct {
	data    zkproof.ProofData
	context solana.PublicKey
}

// InlineProof carries d in the instruction itself.
func InlineProof(d zkproof.ProofData) ProofLocation { return ProofLocation{data: d} }

// ContextProof refers to a verified context account.
func ContextProof(key solana.PublicKey) ProofLocation { return ProofLocation{context: key} }

func (l ProofLocation) bytes() []byte {
	if l.data == nil {
		return nil
	}
	return zkproof.EncodeProofData(l.data)
}

func (l ProofLocation) accounts(fixed ...solana.PublicKey) []solana.PublicKey {
	if l.data == nil {
		return append(fixed, l.context)
	}
	return fixed
}

type initializeMintArgs struct {
	Decimals      uint8
	MintAuthority solana.PublicKey
	Confidential  *ConfidentialMint `bin:"optional"`
}

type amountArgs struct {
	Amount uint64
}

type amountDecimalsArgs struct {
	Amount   uint64
	Decimals uint8
}

type updateMintArgs struct {
	AutoApproveNewAccounts bool
	AuditorElGamalPubkey   elgamal.PublicKey
}

type configureAccountArgs struct {
	DecryptableZeroBalance             authenc.Ciphertext
	MaximumPendingBalanceCreditCounter uint64
	ProofData                          []byte
}

type emptyAccountArgs struct {
	ProofData []byte
}

type withdrawArgs struct {
	Amount                         uint64
	Decimals                       uint8
	NewDecryptableAvailableBalance authenc.Ciphertext
	ProofData                      []byte
}

type confidentialTransferArgs struct {
	NewSourceDecryptableAvailableBalance authenc.Ciphertext
	ProofData                            []byte
}

type applyPendingBalanceArgs struct {
	ExpectedPendingBalanceCreditCounter uint64
	NewDecryptableAvailableBalance      authenc.Ciphertext
}

func instruction(discriminator uint8, args interface{}, accounts ...solana.PublicKey) ledger.Instruction {
	return ledger.Instruction{
		ProgramID: params.TokenProgramID,
		Accounts:  accounts,
		Data:      ledger.EncodeInstructionData(discriminator, args),
	}
}

// NewCreateMintAccountInstruction allocates a mint account funded by payer.
func NewCreateMintAccountInstruction(payer, mint solana.PublicKey) ledger.Instruction {
	return ledger.NewCreateAccountInstruction(payer, mint, params.TokenProgramID, MintSize)
}

// NewCreateTokenAccountInstruction allocates a token account funded by payer.
func NewCreateTokenAccountInstruction(payer, account solana.PublicKey) ledger.Instruction {
	return ledger.NewCreateAccountInstruction(payer, account, params.TokenProgramID, AccountSize)
}

// NewInitializeMintInstruction initializes mint. A nil confidential
// configuration leaves confidential transfers off for the mint.
func NewInitializeMintInstruction(mint solana.PublicKey, decimals uint8, mintAuthority solana.PublicKey, confidential *ConfidentialMint) ledger.Instruction {
	return instruction(InstructionInitializeMint, &initializeMintArgs{
		Decimals:      decimals,
		MintAuthority: mintAuthority,
		Confidential:  confidential,
	}, mint)
}

func NewInitializeAccountInstruction(account, mint, owner solana.PublicKey) ledger.Instruction {
	return instruction(InstructionInitializeAccount, nil, account, mint, owner)
}

func NewMintToInstruction(mint, account, mintAuthority solana.PublicKey, amount uint64) ledger.Instruction {
	return instruction(InstructionMintTo, &amountArgs{Amount: amount}, mint, account, mintAuthority)
}

// NewTransferInstruction moves public balance between token accounts.
func NewTransferInstruction(source, mint, destination, owner solana.PublicKey, amount uint64, decimals uint8) ledger.Instruction {
	return instruction(InstructionTransfer, &amountDecimalsArgs{Amount: amount, Decimals: decimals}, source, mint, destination, owner)
}

func NewUpdateMintInstruction(mint, authority solana.PublicKey, autoApprove bool, auditor elgamal.PublicKey) ledger.Instruction {
	return instruction(InstructionUpdateMint, &updateMintArgs{AutoApproveNewAccounts: autoApprove, AuditorElGamalPubkey: auditor}, mint, authority)
}

// NewConfigureAccountInstruction adds the confidential extension to account.
// The proof is a public key validity proof for (mint, account). A zero
// maxCounter selects the ledger default.
func NewConfigureAccountInstruction(account, mint, owner solana.PublicKey, decryptableZero authenc.Ciphertext, maxCounter uint64, proof ProofLocation) ledger.Instruction {
	return instruction(InstructionConfigureAccount, &configureAccountArgs{
		DecryptableZeroBalance:             decryptableZero,
		MaximumPendingBalanceCreditCounter: maxCounter,
		ProofData:                          proof.bytes(),
	}, proof.accounts(account, mint, owner)...)
}

func NewApproveAccountInstruction(account, mint, authority solana.PublicKey) ledger.Instruction {
	return instruction(InstructionApproveAccount, nil, account, mint, authority)
}

// NewEmptyAccountInstruction zeroes the available balance given a zero
// balance proof, so the account can be closed.
func NewEmptyAccountInstruction(account, owner solana.PublicKey, proof ProofLocation) ledger.Instruction {
	return instruction(InstructionEmptyAccount, &emptyAccountArgs{ProofData: proof.bytes()}, proof.accounts(account, owner)...)
}

func NewDepositInstruction(account, mint, owner solana.PublicKey, amount uint64, decimals uint8) ledger.Instruction {
	return instruction(InstructionDeposit, &amountDecimalsArgs{Amount: amount, Decimals: decimals}, account, mint, owner)
}

func NewWithdrawInstruction(account, mint, owner solana.PublicKey, amount uint64, decimals uint8, newDecryptable authenc.Ciphertext, proof ProofLocation) ledger.Instruction {
	return instruction(InstructionWithdraw, &withdrawArgs{
		Amount:                         amount,
		Decimals:                       decimals,
		NewDecryptableAvailableBalance: newDecryptable,
		ProofData:                      proof.bytes(),
	}, proof.accounts(account, mint, owner)...)
}

func NewConfidentialTransferInstruction(source, mint, destination, owner solana.PublicKey, newSourceDecryptable authenc.Ciphertext, proof ProofLocation) ledger.Instruction {
	return instruction(InstructionConfidentialTransfer, &confidentialTransferArgs{
		NewSourceDecryptableAvailableBalance: newSourceDecryptable,
		ProofData:                            proof.bytes(),
	}, proof.accounts(source, mint, destination, owner)...)
}

func NewApplyPendingBalanceInstruction(account, owner solana.PublicKey, expectedCounter uint64, newDecryptable authenc.Ciphertext) ledger.Instruction {
	return instruction(InstructionApplyPendingBalance, &applyPendingBalanceArgs{
		ExpectedPendingBalanceCreditCounter: expectedCounter,
		NewDecryptableAvailableBalance:      newDecryptable,
	}, account, owner)
}

func NewEnableConfidentialCreditsInstruction(account, owner solana.PublicKey) ledger.Instruction {
	return instruction(InstructionEnableConfidentialCredits, nil, account, owner)
}

func NewDisableConfidentialCreditsInstruction(account, owner solana.PublicKey) ledger.Instruction {
	return instruction(InstructionDisableConfidentialCredits, nil, account, owner)
}

func NewEnableNonConfidentialCreditsInstruction(account, owner solana.PublicKey) ledger.Instruction {
	return instruction(InstructionEnableNonConfidentialCredits, nil, account, owner)
}

func NewDisableNonConfidentialCreditsInstruction(account, owner solana.PublicKey) ledger.Instruction {
	return instruction(InstructionDisableNonConfidentialCredits, nil, account, owner)
}

// NewCloseAccountInstruction closes an empty token account.
func NewCloseAccountInstruction(account, destination, owner solana.PublicKey) ledger.Instruction {
	return instruction(InstructionCloseAccount, nil, account, destination, owner)
}
