package ledger

import (
	"fmt"
	"time"

	mapset "github.com/deckarep/golang-set"
	bin "github.com/gagliardetto/binary"
	solana "github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
)

// Instruction invokes one program on a list of accounts.
type Instruction struct {
	ProgramID solana.PublicKey
	Accounts  []solana.PublicKey
	Data      []byte
}

// Account returns the i'th account of the instruction.
func (ix *Instruction) Account(i int) (solana.PublicKey, error) {
	if i >= len(ix.Accounts) {
		return solana.PublicKey{}, fmt.Errorf("ledger: instruction needs account #%d, has %d", i, len(ix.Accounts))
	}
	return ix.Accounts[i], nil
}

// Context carries what a program handler may see while running one
// instruction.
type Context struct {
	Txn   *Txn
	TxID  uuid.UUID
	Index int
	Now   time.Time

	signers mapset.Set
}

// IsSigner reports whether key signed the transaction.
func (c *Context) IsSigner(key solana.PublicKey) bool {
	return c.signers.Contains(key)
}

// RequireSigner fails unless key signed the transaction.
func (c *Context) RequireSigner(key solana.PublicKey) error {
	if !c.IsSigner(key) {
		return fmt.Errorf("%w: %s", ErrMissingSignature, key)
	}
	return nil
}

// Handler is implemented by the programs the executor dispatches to.
type Handler interface {
	CanHandle(programID solana.PublicKey) bool
	Handle(ctx *Context, ix *Instruction) error
}

// Registry holds registered handlers.
type Registry struct{ handlers []Handler }

// NewRegistry returns a registry with the system program installed.
func NewRegistry() *Registry {
	r := &Registry{}
	r.Register(SystemProgram{})
	return r
}

// Register adds a handler to the registry.
func (r *Registry) Register(h Handler) { r.handlers = append(r.handlers, h) }

func (r *Registry) dispatch(ctx *Context, ix *Instruction) error {
	for _, h := range r.handlers {
		if h.CanHandle(ix.ProgramID) {
			return h.Handle(ctx, ix)
		}
	}
	return fmt.Errorf("%w: %s", ErrUnknownProgram, ix.ProgramID)
}

// EncodeInstructionData Borsh-encodes a one-byte discriminator followed by
// the instruction arguments.
func EncodeInstructionData(discriminator uint8, args interface{}) []byte {
	out := []byte{discriminator}
	if args == nil {
		return out
	}
	enc, err := bin.MarshalBorsh(args)
	if err != nil {
		panic(fmt.Sprintf("ledger: encode instruction: %v", err))
	}
	return append(out, enc...)
}

// DecodeInstructionArgs decodes the Borsh arguments following the
// discriminator and rejects trailing bytes.
func DecodeInstructionArgs(data []byte, args interface{}) error {
	if len(data) == 0 {
		return fmt.Errorf("ledger: empty instruction data")
	}
	dec := bin.NewBorshDecoder(data[1:])
	if err := dec.Decode(args); err != nil {
		return fmt.Errorf("ledger: decode instruction: %w", err)
	}
	if dec.Remaining() != 0 {
		return fmt.Errorf("ledger: %d trailing instruction bytes", dec.Remaining())
	}
	return nil
}
