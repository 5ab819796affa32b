package ledger

import (
	"fmt"

	solana "github.com/gagliardetto/solana-go"
	"github.com/solana-developers/Confidential-Transfer-Sample/params"
)

// System program instructions.
const (
	SystemCreateAccount uint8 = iota
	SystemTransfer
)

type createAccountArgs struct {
	Space uint64
	Owner solana.PublicKey
}

type transferArgs struct {
	Lamports uint64
}

// NewCreateAccountInstruction allocates space bytes at key for owner, paid
// by payer. Both payer and key must sign.
func NewCreateAccountInstruction(payer, key, owner solana.PublicKey, space uint64) Instruction {
	return Instruction{
		ProgramID: params.SystemProgramID,
		Accounts:  []solana.PublicKey{payer, key},
		Data:      EncodeInstructionData(SystemCreateAccount, &createAccountArgs{Space: space, Owner: owner}),
	}
}

// NewTransferInstruction moves lamports from a signing system account.
func NewTransferInstruction(from, to solana.PublicKey, lamports uint64) Instruction {
	return Instruction{
		ProgramID: params.SystemProgramID,
		Accounts:  []solana.PublicKey{from, to},
		Data:      EncodeInstructionData(SystemTransfer, &transferArgs{Lamports: lamports}),
	}
}

// SystemProgram creates accounts and moves lamports.
type SystemProgram struct{}

func (SystemProgram) CanHandle(programID solana.PublicKey) bool {
	return programID == params.SystemProgramID
}

func (SystemProgram) Handle(ctx *Context, ix *Instruction) error {
	if len(ix.Data) == 0 || len(ix.Accounts) < 2 {
		return fmt.Errorf("ledger: malformed system instruction")
	}
	from, to := ix.Accounts[0], ix.Accounts[1]
	if err := ctx.RequireSigner(from); err != nil {
		return err
	}
	switch ix.Data[0] {
	case SystemCreateAccount:
		var args createAccountArgs
		if err := DecodeInstructionArgs(ix.Data, &args); err != nil {
			return err
		}
		if err := ctx.RequireSigner(to); err != nil {
			return err
		}
		return ctx.Txn.CreateAccount(from, to, args.Owner, args.Space)
	case SystemTransfer:
		var args transferArgs
		if err := DecodeInstructionArgs(ix.Data, &args); err != nil {
			return err
		}
		return ctx.Txn.TransferLamports(from, to, args.Lamports)
	default:
		return fmt.Errorf("ledger: unknown system instruction %d", ix.Data[0])
	}
}
