package proofctx

import (
	"errors"
	"fmt"

	solana "github.com/gagliardetto/solana-go"
	"github.com/inconshreveable/log15"
	"github.com/solana-developers/Confidential-Transfer-Sample/crypto/zkproof"
	"github.com/solana-developers/Confidential-Transfer-Sample/ledger"
	"github.com/solana-developers/Confidential-Transfer-Sample/params"
)

var log = log15.New("module", "proofctx")

// Instruction discriminators of the proof program.
const (
	InstructionVerifyProof uint8 = iota
	InstructionCloseContextState
)

type verifyProofArgs struct {
	ProofData []byte
}

// Program verifies proofs and keeps verified statements in context
// accounts it owns.
type Program struct {
	verifier zkproof.Verifier
}

// NewProgram returns the proof program backed by verifier.
func NewProgram(verifier zkproof.Verifier) *Program {
	return &Program{verifier: verifier}
}

func (p *Program) CanHandle(programID solana.PublicKey) bool {
	return programID == params.ProofProgramID
}

func (p *Program) Handle(ctx *ledger.Context, ix *ledger.Instruction) error {
	if len(ix.Data) == 0 {
		return fmt.Errorf("proofctx: empty instruction")
	}
	switch ix.Data[0] {
	case InstructionVerifyProof:
		var args verifyProofArgs
		if err := ledger.DecodeInstructionArgs(ix.Data, &args); err != nil {
			return err
		}
		d, err := VerifyProofData(p.verifier, args.ProofData)
		if err != nil {
			return err
		}
		if len(ix.Accounts) == 0 {
			return nil // verify only
		}
		key, err := ix.Account(0)
		if err != nil {
			return err
		}
		authority, err := ix.Account(1)
		if err != nil {
			return err
		}
		return store(ctx, key, authority, d)

	case InstructionCloseContextState:
		key, err := ix.Account(0)
		if err != nil {
			return err
		}
		destination, err := ix.Account(1)
		if err != nil {
			return err
		}
		authority, err := ix.Account(2)
		if err != nil {
			return err
		}
		return closeContext(ctx, key, destination, authority)

	default:
		return fmt.Errorf("proofctx: unknown instruction %d", ix.Data[0])
	}
}

// VerifyProofData decodes raw proof data and checks it with verifier.
// Malformed data and failing proofs both report ErrProofVerificationFailed.
func VerifyProofData(verifier zkproof.Verifier, raw []byte) (zkproof.ProofData, error) {
	d, err := zkproof.DecodeProofData(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProofVerificationFailed, err)
	}
	if err := verifier.Verify(d); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProofVerificationFailed, err)
	}
	return d, nil
}

// Load reads the context account key.
func Load(txn *ledger.Txn, key solana.PublicKey) (ContextState, error) {
	data, err := txn.Data(params.ProofProgramID, key)
	if err != nil {
		if errors.Is(err, ledger.ErrAccountNotFound) || errors.Is(err, ledger.ErrNotOwner) {
			return nil, fmt.Errorf("%w: %v", ErrInvalidProofContext, err)
		}
		return nil, err
	}
	return DecodeContextState(data)
}

func save(txn *ledger.Txn, key solana.PublicKey, st ContextState) error {
	acct, err := txn.Account(key)
	if err != nil {
		return err
	}
	return txn.WriteData(params.ProofProgramID, key, st.encode(len(acct.Data)))
}

func store(ctx *ledger.Context, key, authority solana.PublicKey, d zkproof.ProofData) error {
	st, err := Load(ctx.Txn, key)
	if err != nil {
		return err
	}
	switch s := st.(type) {
	case *Verified:
		return fmt.Errorf("%w: %s", ErrAlreadyVerified, key)
	case *Consumed:
		return fmt.Errorf("%w: %s", ErrContextConsumed, key)
	case *Uninitialized:
		acct, err := ctx.Txn.Account(key)
		if err != nil {
			return err
		}
		if len(acct.Data) != ContextStateSize(d.ProofType()) {
			return fmt.Errorf("%w: %d-byte account cannot hold a %s statement", ErrInvalidProofContext, len(acct.Data), d.ProofType())
		}
		log.Debug("Stored verified proof context", "account", key, "type", d.ProofType(), "authority", authority)
		return save(ctx.Txn, key, s.Verify(authority, d, ctx.Now))
	default:
		return fmt.Errorf("%w: %T", ErrInvalidProofContext, st)
	}
}

// Consume hands the stored statement of kind to a mutating instruction
// and marks the context used. authority must be the one the context was
// verified for.
func Consume(ctx *ledger.Context, key, authority solana.PublicKey, kind zkproof.ProofType) ([]byte, error) {
	st, err := Load(ctx.Txn, key)
	if err != nil {
		return nil, err
	}
	switch s := st.(type) {
	case *Uninitialized:
		return nil, fmt.Errorf("%w: %s", ErrContextNotVerified, key)
	case *Consumed:
		return nil, fmt.Errorf("%w: %s", ErrContextConsumed, key)
	case *Verified:
		if s.ProofType != kind {
			return nil, fmt.Errorf("%w: have %s, want %s", ErrInvalidProofContext, s.ProofType, kind)
		}
		if s.Authority != authority {
			return nil, fmt.Errorf("%w: context authority %s", ErrInvalidProofContext, s.Authority)
		}
		if err := save(ctx.Txn, key, s.Consume()); err != nil {
			return nil, err
		}
		return s.Context, nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrInvalidProofContext, st)
	}
}

// closeContext deletes a context account in any state. Uninitialized
// accounts have no recorded authority, so only the account key itself can
// close them.
func closeContext(ctx *ledger.Context, key, destination, authority solana.PublicKey) error {
	if err := ctx.RequireSigner(authority); err != nil {
		return err
	}
	st, err := Load(ctx.Txn, key)
	if err != nil {
		return err
	}
	switch s := st.(type) {
	case *Verified:
		if s.Authority != authority {
			return fmt.Errorf("%w: context authority %s", ErrInvalidProofContext, s.Authority)
		}
	case *Consumed:
		if s.Authority != authority {
			return fmt.Errorf("%w: context authority %s", ErrInvalidProofContext, s.Authority)
		}
	default:
		if authority != key {
			return fmt.Errorf("%w: uninitialized context closes with its own key", ErrInvalidProofContext)
		}
	}
	log.Debug("Closed proof context", "account", key, "status", st.Status(), "destination", destination)
	return ctx.Txn.CloseAccount(params.ProofProgramID, key, destination)
}
