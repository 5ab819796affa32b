package proofctx

import (
	solana "github.com/gagliardetto/solana-go"
	"github.com/solana-developers/Confidential-Transfer-Sample/crypto/zkproof"
	"github.com/solana-developers/Confidential-Transfer-Sample/ledger"
	"github.com/solana-developers/Confidential-Transfer-Sample/params"
)

// NewCreateContextAccountInstruction allocates a context account sized for
// kind. payer funds it and both payer and context must sign.
func NewCreateContextAccountInstruction(payer, context solana.PublicKey, kind zkproof.ProofType) ledger.Instruction {
	return ledger.NewCreateAccountInstruction(payer, context, params.ProofProgramID, uint64(ContextStateSize(kind)))
}

// NewVerifyProofInstruction verifies d without storing anything.
func NewVerifyProofInstruction(d zkproof.ProofData) ledger.Instruction {
	return ledger.Instruction{
		ProgramID: params.ProofProgramID,
		Data:      ledger.EncodeInstructionData(InstructionVerifyProof, &verifyProofArgs{ProofData: zkproof.EncodeProofData(d)}),
	}
}

// NewVerifyProofWithContextInstruction verifies d and stores its statement
// in context for later use by authority.
func NewVerifyProofWithContextInstruction(d zkproof.ProofData, context, authority solana.PublicKey) ledger.Instruction {
	ix := NewVerifyProofInstruction(d)
	ix.Accounts = []solana.PublicKey{context, authority}
	return ix
}

// NewCloseContextStateInstruction closes context and sends its deposit to
// destination. authority must sign.
func NewCloseContextStateInstruction(context, destination, authority solana.PublicKey) ledger.Instruction {
	return ledger.Instruction{
		ProgramID: params.ProofProgramID,
		Accounts:  []solana.PublicKey{context, destination, authority},
		Data:      ledger.EncodeInstructionData(InstructionCloseContextState, nil),
	}
}
