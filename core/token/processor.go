package token

import (
	"fmt"

	solana "github.com/gagliardetto/solana-go"
	"github.com/holiman/uint256"
	"github.com/inconshreveable/log15"
	"github.com/solana-developers/Confidential-Transfer-Sample/core/proofctx"
	"github.com/solana-developers/Confidential-Transfer-Sample/crypto/elgamal"
	"github.com/solana-developers/Confidential-Transfer-Sample/crypto/zkproof"
	"github.com/solana-developers/Confidential-Transfer-Sample/ledger"
	"github.com/solana-developers/Confidential-Transfer-Sample/params"
)

var log = log15.New("module", "token")

// Processor executes token program instructions, including every
// confidential balance transition.
type Processor struct {
	verifier          zkproof.Verifier
	maxInline         int
	defaultMaxCounter uint64
}

// NewProcessor returns the token program. A nil config selects
// params.Defaults.
func NewProcessor(verifier zkproof.Verifier, config *params.Config) *Processor {
	if config == nil {
		config = &params.Defaults
	}
	return &Processor{
		verifier:          verifier,
		maxInline:         config.MaxInlineProofBytes,
		defaultMaxCounter: config.MaxPendingBalanceCreditCounter,
	}
}

func (p *Processor) CanHandle(programID solana.PublicKey) bool {
	return programID == params.TokenProgramID
}

func (p *Processor) Handle(ctx *ledger.Context, ix *ledger.Instruction) error {
	if len(ix.Data) == 0 {
		return ErrInvalidInstruction
	}
	switch ix.Data[0] {
	case InstructionInitializeMint:
		return p.initializeMint(ctx, ix)
	case InstructionInitializeAccount:
		return p.initializeAccount(ctx, ix)
	case InstructionMintTo:
		return p.mintTo(ctx, ix)
	case InstructionTransfer:
		return p.transfer(ctx, ix)
	case InstructionUpdateMint:
		return p.updateMint(ctx, ix)
	case InstructionConfigureAccount:
		return p.configureAccount(ctx, ix)
	case InstructionApproveAccount:
		return p.approveAccount(ctx, ix)
	case InstructionEmptyAccount:
		return p.emptyAccount(ctx, ix)
	case InstructionDeposit:
		return p.deposit(ctx, ix)
	case InstructionWithdraw:
		return p.withdraw(ctx, ix)
	case InstructionConfidentialTransfer:
		return p.confidentialTransfer(ctx, ix)
	case InstructionApplyPendingBalance:
		return p.applyPendingBalance(ctx, ix)
	case InstructionEnableConfidentialCredits:
		return p.setCredits(ctx, ix, true, true)
	case InstructionDisableConfidentialCredits:
		return p.setCredits(ctx, ix, true, false)
	case InstructionEnableNonConfidentialCredits:
		return p.setCredits(ctx, ix, false, true)
	case InstructionDisableNonConfidentialCredits:
		return p.setCredits(ctx, ix, false, false)
	case InstructionConfidentialTransferWithFee:
		return fmt.Errorf("%w: confidential transfer with fee", ErrUnsupportedInstruction)
	case InstructionCloseAccount:
		return p.closeAccount(ctx, ix)
	default:
		return fmt.Errorf("%w: discriminator %d", ErrInvalidInstruction, ix.Data[0])
	}
}

// accounts resolves the first n instruction accounts.
func accounts(ix *ledger.Instruction, n int) ([]solana.PublicKey, error) {
	if len(ix.Accounts) < n {
		return nil, fmt.Errorf("%w: need %d accounts, have %d", ErrInvalidInstruction, n, len(ix.Accounts))
	}
	return ix.Accounts[:n], nil
}

func decodeArgs(ix *ledger.Instruction, args interface{}) error {
	if err := ledger.DecodeInstructionArgs(ix.Data, args); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInstruction, err)
	}
	return nil
}

func loadMint(txn *ledger.Txn, key solana.PublicKey) (*Mint, error) {
	data, err := txn.Data(params.TokenProgramID, key)
	if err != nil {
		return nil, err
	}
	if len(data) != MintSize {
		return nil, fmt.Errorf("%w: %s is not a mint", ErrInvalidAccountData, key)
	}
	m, err := DecodeMint(data)
	if err != nil {
		return nil, err
	}
	if !m.IsInitialized {
		return nil, fmt.Errorf("%w: mint %s", ErrUninitializedState, key)
	}
	return m, nil
}

func loadAccount(txn *ledger.Txn, key solana.PublicKey) (*Account, error) {
	data, err := txn.Data(params.TokenProgramID, key)
	if err != nil {
		return nil, err
	}
	if len(data) != AccountSize {
		return nil, fmt.Errorf("%w: %s is not a token account", ErrInvalidAccountData, key)
	}
	a, err := DecodeAccount(data)
	if err != nil {
		return nil, err
	}
	if a.State != AccountStateInitialized {
		return nil, fmt.Errorf("%w: account %s", ErrUninitializedState, key)
	}
	return a, nil
}

func saveMint(txn *ledger.Txn, key solana.PublicKey, m *Mint) error {
	data, err := encodeState(m, MintSize)
	if err != nil {
		return err
	}
	return txn.WriteData(params.TokenProgramID, key, data)
}

func saveAccount(txn *ledger.Txn, key solana.PublicKey, a *Account) error {
	data, err := encodeState(a, AccountSize)
	if err != nil {
		return err
	}
	return txn.WriteData(params.TokenProgramID, key, data)
}

// ownedAccount loads a token account and checks that owner signed for it.
func ownedAccount(ctx *ledger.Context, key, owner solana.PublicKey) (*Account, error) {
	if err := ctx.RequireSigner(owner); err != nil {
		return nil, err
	}
	a, err := loadAccount(ctx.Txn, key)
	if err != nil {
		return nil, err
	}
	if a.Owner != owner {
		return nil, fmt.Errorf("%w: %s owned by %s", ErrOwnerMismatch, key, a.Owner)
	}
	return a, nil
}

// confidential returns the confidential extension of a, bound to mint when
// mint is non-nil.
func confidential(key solana.PublicKey, a *Account, mint *solana.PublicKey) (*ConfidentialAccount, error) {
	if mint != nil && a.Mint != *mint {
		return nil, fmt.Errorf("%w: %s holds %s", ErrMintMismatch, key, a.Mint)
	}
	if a.Confidential == nil {
		return nil, fmt.Errorf("%w: %s", ErrAccountNotConfigured, key)
	}
	return a.Confidential, nil
}

func checkedAdd(a, b uint64) (uint64, error) {
	sum, overflow := new(uint256.Int).AddOverflow(new(uint256.Int).SetUint64(a), new(uint256.Int).SetUint64(b))
	if overflow || !sum.IsUint64() {
		return 0, fmt.Errorf("%w: %d + %d", ErrOverflow, a, b)
	}
	return sum.Uint64(), nil
}

// statement returns the verified public statement of kind an instruction
// refers to. Proof data travels inline when raw is non-empty; otherwise the
// context account is the instruction account at index contextIndex.
func (p *Processor) statement(ctx *ledger.Context, ix *ledger.Instruction, raw []byte, contextIndex int, authority solana.PublicKey, kind zkproof.ProofType) ([]byte, bool, error) {
	if len(raw) > 0 {
		if len(raw) > p.maxInline {
			return nil, true, fmt.Errorf("%w: %d bytes, budget %d", ErrProofTooLarge, len(raw), p.maxInline)
		}
		d, err := proofctx.VerifyProofData(p.verifier, raw)
		if err != nil {
			return nil, true, err
		}
		if d.ProofType() != kind {
			return nil, true, fmt.Errorf("%w: have %s proof, want %s", ErrProofVerificationFailed, d.ProofType(), kind)
		}
		return d.ContextBytes(), true, nil
	}
	key, err := ix.Account(contextIndex)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrInvalidProofContext, err)
	}
	stmt, err := proofctx.Consume(ctx, key, authority, kind)
	return stmt, false, err
}

// mismatch reports a statement that differs from ledger state. An inline
// proof over stale state is an ordinary verification failure; a context
// account prepared for other state must be recreated.
func mismatch(inline bool, what string) error {
	if inline {
		return fmt.Errorf("%w: stale %s", ErrProofVerificationFailed, what)
	}
	return fmt.Errorf("%w: %s", ErrStatementMismatch, what)
}

func (p *Processor) initializeMint(ctx *ledger.Context, ix *ledger.Instruction) error {
	keys, err := accounts(ix, 1)
	if err != nil {
		return err
	}
	var args initializeMintArgs
	if err := decodeArgs(ix, &args); err != nil {
		return err
	}
	data, err := ctx.Txn.Data(params.TokenProgramID, keys[0])
	if err != nil {
		return err
	}
	if len(data) != MintSize {
		return fmt.Errorf("%w: %d-byte account cannot hold a mint", ErrInvalidAccountData, len(data))
	}
	m, err := DecodeMint(data)
	if err != nil {
		return err
	}
	if m.IsInitialized {
		return fmt.Errorf("%w: mint %s", ErrAlreadyInitialized, keys[0])
	}
	m = &Mint{
		MintAuthority: args.MintAuthority,
		Decimals:      args.Decimals,
		IsInitialized: true,
		Confidential:  args.Confidential,
	}
	log.Debug("Initialized mint", "mint", keys[0], "decimals", args.Decimals, "confidential", args.Confidential != nil)
	return saveMint(ctx.Txn, keys[0], m)
}

func (p *Processor) initializeAccount(ctx *ledger.Context, ix *ledger.Instruction) error {
	keys, err := accounts(ix, 3)
	if err != nil {
		return err
	}
	key, mintKey, owner := keys[0], keys[1], keys[2]
	data, err := ctx.Txn.Data(params.TokenProgramID, key)
	if err != nil {
		return err
	}
	if len(data) != AccountSize {
		return fmt.Errorf("%w: %d-byte account cannot hold a token account", ErrInvalidAccountData, len(data))
	}
	a, err := DecodeAccount(data)
	if err != nil {
		return err
	}
	if a.State != AccountStateUninitialized {
		return fmt.Errorf("%w: account %s", ErrAlreadyInitialized, key)
	}
	if _, err := loadMint(ctx.Txn, mintKey); err != nil {
		return err
	}
	a = &Account{Mint: mintKey, Owner: owner, State: AccountStateInitialized}
	log.Debug("Initialized token account", "account", key, "mint", mintKey, "owner", owner)
	return saveAccount(ctx.Txn, key, a)
}

func (p *Processor) mintTo(ctx *ledger.Context, ix *ledger.Instruction) error {
	keys, err := accounts(ix, 3)
	if err != nil {
		return err
	}
	mintKey, key, authority := keys[0], keys[1], keys[2]
	var args amountArgs
	if err := decodeArgs(ix, &args); err != nil {
		return err
	}
	if err := ctx.RequireSigner(authority); err != nil {
		return err
	}
	m, err := loadMint(ctx.Txn, mintKey)
	if err != nil {
		return err
	}
	if m.MintAuthority != authority {
		return fmt.Errorf("%w: mint authority is %s", ErrAuthorityMismatch, m.MintAuthority)
	}
	a, err := loadAccount(ctx.Txn, key)
	if err != nil {
		return err
	}
	if a.Mint != mintKey {
		return fmt.Errorf("%w: %s holds %s", ErrMintMismatch, key, a.Mint)
	}
	if m.Supply, err = checkedAdd(m.Supply, args.Amount); err != nil {
		return err
	}
	if a.Amount, err = checkedAdd(a.Amount, args.Amount); err != nil {
		return err
	}
	if err := saveMint(ctx.Txn, mintKey, m); err != nil {
		return err
	}
	return saveAccount(ctx.Txn, key, a)
}

func (p *Processor) transfer(ctx *ledger.Context, ix *ledger.Instruction) error {
	keys, err := accounts(ix, 4)
	if err != nil {
		return err
	}
	srcKey, mintKey, dstKey, owner := keys[0], keys[1], keys[2], keys[3]
	var args amountDecimalsArgs
	if err := decodeArgs(ix, &args); err != nil {
		return err
	}
	src, err := ownedAccount(ctx, srcKey, owner)
	if err != nil {
		return err
	}
	m, err := loadMint(ctx.Txn, mintKey)
	if err != nil {
		return err
	}
	if m.Decimals != args.Decimals {
		return fmt.Errorf("%w: mint has %d, got %d", ErrDecimalsMismatch, m.Decimals, args.Decimals)
	}
	if src.Mint != mintKey {
		return fmt.Errorf("%w: %s holds %s", ErrMintMismatch, srcKey, src.Mint)
	}
	if src.Amount < args.Amount {
		return fmt.Errorf("%w: have %d, need %d", ErrInsufficientFunds, src.Amount, args.Amount)
	}
	if srcKey == dstKey {
		return nil
	}
	dst, err := loadAccount(ctx.Txn, dstKey)
	if err != nil {
		return err
	}
	if dst.Mint != mintKey {
		return fmt.Errorf("%w: %s holds %s", ErrMintMismatch, dstKey, dst.Mint)
	}
	if dst.Confidential != nil && !dst.Confidential.AllowNonConfidentialCredits {
		return fmt.Errorf("%w: %s", ErrNonConfidentialCreditsDisabled, dstKey)
	}
	src.Amount -= args.Amount
	if dst.Amount, err = checkedAdd(dst.Amount, args.Amount); err != nil {
		return err
	}
	if err := saveAccount(ctx.Txn, srcKey, src); err != nil {
		return err
	}
	return saveAccount(ctx.Txn, dstKey, dst)
}

func (p *Processor) updateMint(ctx *ledger.Context, ix *ledger.Instruction) error {
	keys, err := accounts(ix, 2)
	if err != nil {
		return err
	}
	mintKey, authority := keys[0], keys[1]
	var args updateMintArgs
	if err := decodeArgs(ix, &args); err != nil {
		return err
	}
	if err := ctx.RequireSigner(authority); err != nil {
		return err
	}
	m, err := loadMint(ctx.Txn, mintKey)
	if err != nil {
		return err
	}
	if m.Confidential == nil {
		return fmt.Errorf("%w: %s", ErrMintNotConfigured, mintKey)
	}
	if m.Confidential.Authority != authority {
		return fmt.Errorf("%w: confidential authority is %s", ErrAuthorityMismatch, m.Confidential.Authority)
	}
	m.Confidential.AutoApproveNewAccounts = args.AutoApproveNewAccounts
	m.Confidential.AuditorElGamalPubkey = args.AuditorElGamalPubkey
	return saveMint(ctx.Txn, mintKey, m)
}

func (p *Processor) configureAccount(ctx *ledger.Context, ix *ledger.Instruction) error {
	keys, err := accounts(ix, 3)
	if err != nil {
		return err
	}
	key, mintKey, owner := keys[0], keys[1], keys[2]
	var args configureAccountArgs
	if err := decodeArgs(ix, &args); err != nil {
		return err
	}
	a, err := ownedAccount(ctx, key, owner)
	if err != nil {
		return err
	}
	if a.Mint != mintKey {
		return fmt.Errorf("%w: %s holds %s", ErrMintMismatch, key, a.Mint)
	}
	if a.Confidential != nil {
		return fmt.Errorf("%w: %s", ErrAccountAlreadyConfigured, key)
	}
	m, err := loadMint(ctx.Txn, mintKey)
	if err != nil {
		return err
	}
	if m.Confidential == nil {
		return fmt.Errorf("%w: %s", ErrMintNotConfigured, mintKey)
	}

	raw, inline, err := p.statement(ctx, ix, args.ProofData, 3, owner, zkproof.ProofTypePubkeyValidity)
	if err != nil {
		if inline {
			return fmt.Errorf("%w: %v", ErrInvalidProof, err)
		}
		return mapProofError(err, false)
	}
	stmt, err := zkproof.DecodePubkeyValidityContext(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidProofContext, err)
	}
	if stmt.Mint != mintKey || stmt.Account != key {
		if inline {
			return fmt.Errorf("%w: proof bound to account %s of mint %s", ErrInvalidProof, stmt.Account, stmt.Mint)
		}
		return mismatch(false, "account binding")
	}

	maxCounter := args.MaximumPendingBalanceCreditCounter
	if maxCounter == 0 {
		maxCounter = p.defaultMaxCounter
	}
	a.Confidential = &ConfidentialAccount{
		Approved:                           m.Confidential.AutoApproveNewAccounts,
		ElGamalPubkey:                      stmt.Pubkey,
		PendingBalanceLo:                   elgamal.ZeroCiphertext(),
		PendingBalanceHi:                   elgamal.ZeroCiphertext(),
		AvailableBalance:                   elgamal.ZeroCiphertext(),
		DecryptableAvailableBalance:        args.DecryptableZeroBalance,
		AllowConfidentialCredits:           true,
		AllowNonConfidentialCredits:        true,
		MaximumPendingBalanceCreditCounter: maxCounter,
	}
	log.Info("Configured confidential account", "account", key, "mint", mintKey, "approved", a.Confidential.Approved, "maxcredits", maxCounter)
	return saveAccount(ctx.Txn, key, a)
}

func (p *Processor) approveAccount(ctx *ledger.Context, ix *ledger.Instruction) error {
	keys, err := accounts(ix, 3)
	if err != nil {
		return err
	}
	key, mintKey, authority := keys[0], keys[1], keys[2]
	if err := ctx.RequireSigner(authority); err != nil {
		return err
	}
	m, err := loadMint(ctx.Txn, mintKey)
	if err != nil {
		return err
	}
	if m.Confidential == nil {
		return fmt.Errorf("%w: %s", ErrMintNotConfigured, mintKey)
	}
	if m.Confidential.Authority != authority {
		return fmt.Errorf("%w: confidential authority is %s", ErrAuthorityMismatch, m.Confidential.Authority)
	}
	a, err := loadAccount(ctx.Txn, key)
	if err != nil {
		return err
	}
	conf, err := confidential(key, a, &mintKey)
	if err != nil {
		return err
	}
	conf.Approved = true
	return saveAccount(ctx.Txn, key, a)
}

func (p *Processor) emptyAccount(ctx *ledger.Context, ix *ledger.Instruction) error {
	keys, err := accounts(ix, 2)
	if err != nil {
		return err
	}
	key, owner := keys[0], keys[1]
	var args emptyAccountArgs
	if err := decodeArgs(ix, &args); err != nil {
		return err
	}
	a, err := ownedAccount(ctx, key, owner)
	if err != nil {
		return err
	}
	conf, err := confidential(key, a, nil)
	if err != nil {
		return err
	}
	if conf.PendingBalanceCreditCounter != 0 {
		return fmt.Errorf("%w: %d pending credits", ErrAccountHasBalance, conf.PendingBalanceCreditCounter)
	}

	raw, inline, err := p.statement(ctx, ix, args.ProofData, 2, owner, zkproof.ProofTypeZeroBalance)
	if err != nil {
		return mapProofError(err, inline)
	}
	stmt, err := zkproof.DecodeZeroBalanceContext(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidProofContext, err)
	}
	switch {
	case stmt.Mint != a.Mint || stmt.Account != key:
		return mismatch(inline, "account binding")
	case stmt.Pubkey != conf.ElGamalPubkey:
		return mismatch(inline, "public key")
	case stmt.Ciphertext != conf.AvailableBalance:
		return mismatch(inline, "available balance")
	}
	conf.AvailableBalance = elgamal.ZeroCiphertext()
	log.Debug("Emptied confidential account", "account", key)
	return saveAccount(ctx.Txn, key, a)
}

func (p *Processor) deposit(ctx *ledger.Context, ix *ledger.Instruction) error {
	keys, err := accounts(ix, 3)
	if err != nil {
		return err
	}
	key, mintKey, owner := keys[0], keys[1], keys[2]
	var args amountDecimalsArgs
	if err := decodeArgs(ix, &args); err != nil {
		return err
	}
	a, err := ownedAccount(ctx, key, owner)
	if err != nil {
		return err
	}
	m, err := loadMint(ctx.Txn, mintKey)
	if err != nil {
		return err
	}
	if m.Decimals != args.Decimals {
		return fmt.Errorf("%w: mint has %d, got %d", ErrDecimalsMismatch, m.Decimals, args.Decimals)
	}
	conf, err := confidential(key, a, &mintKey)
	if err != nil {
		return err
	}
	if err := conf.ValidAsDestination(); err != nil {
		return err
	}
	if args.Amount > params.MaximumDepositTransferAmount {
		return fmt.Errorf("%w: %d exceeds %d", ErrAmountTooLarge, args.Amount, params.MaximumDepositTransferAmount)
	}
	if a.Amount < args.Amount {
		return fmt.Errorf("%w: have %d, need %d", ErrInsufficientFunds, a.Amount, args.Amount)
	}

	// Deposits are public, so the credit is a ciphertext with a zero opening.
	lo, hi := zkproof.SplitAmount(args.Amount)
	loCt, err := elgamal.AddAmount(elgamal.ZeroCiphertext(), lo)
	if err != nil {
		return err
	}
	hiCt, err := elgamal.AddAmount(elgamal.ZeroCiphertext(), hi)
	if err != nil {
		return err
	}
	if err := conf.creditPending(loCt, hiCt); err != nil {
		return err
	}
	a.Amount -= args.Amount
	log.Debug("Deposited into pending balance", "account", key, "amount", args.Amount, "credits", conf.PendingBalanceCreditCounter)
	return saveAccount(ctx.Txn, key, a)
}

func (p *Processor) applyPendingBalance(ctx *ledger.Context, ix *ledger.Instruction) error {
	keys, err := accounts(ix, 2)
	if err != nil {
		return err
	}
	key, owner := keys[0], keys[1]
	var args applyPendingBalanceArgs
	if err := decodeArgs(ix, &args); err != nil {
		return err
	}
	a, err := ownedAccount(ctx, key, owner)
	if err != nil {
		return err
	}
	conf, err := confidential(key, a, nil)
	if err != nil {
		return err
	}
	if args.ExpectedPendingBalanceCreditCounter != conf.PendingBalanceCreditCounter {
		return fmt.Errorf("%w: expected %d, ledger has %d", ErrPendingBalanceCreditCounterMismatch,
			args.ExpectedPendingBalanceCreditCounter, conf.PendingBalanceCreditCounter)
	}
	available, err := elgamal.AddWithLoHi(conf.AvailableBalance, conf.PendingBalanceLo, conf.PendingBalanceHi, params.PendingBalanceLoBitLength)
	if err != nil {
		return err
	}
	applied := conf.PendingBalanceCreditCounter
	conf.AvailableBalance = available
	conf.PendingBalanceLo = elgamal.ZeroCiphertext()
	conf.PendingBalanceHi = elgamal.ZeroCiphertext()
	conf.ExpectedPendingBalanceCreditCounter = args.ExpectedPendingBalanceCreditCounter
	conf.ActualPendingBalanceCreditCounter = applied
	conf.PendingBalanceCreditCounter = 0
	// The cache is taken as given. Only its owner can check it.
	conf.DecryptableAvailableBalance = args.NewDecryptableAvailableBalance
	log.Info("Applied pending balance", "account", key, "credits", applied)
	return saveAccount(ctx.Txn, key, a)
}

func (p *Processor) withdraw(ctx *ledger.Context, ix *ledger.Instruction) error {
	keys, err := accounts(ix, 3)
	if err != nil {
		return err
	}
	key, mintKey, owner := keys[0], keys[1], keys[2]
	var args withdrawArgs
	if err := decodeArgs(ix, &args); err != nil {
		return err
	}
	a, err := ownedAccount(ctx, key, owner)
	if err != nil {
		return err
	}
	m, err := loadMint(ctx.Txn, mintKey)
	if err != nil {
		return err
	}
	if m.Decimals != args.Decimals {
		return fmt.Errorf("%w: mint has %d, got %d", ErrDecimalsMismatch, m.Decimals, args.Decimals)
	}
	conf, err := confidential(key, a, &mintKey)
	if err != nil {
		return err
	}
	if err := conf.ValidAsSource(); err != nil {
		return err
	}

	raw, inline, err := p.statement(ctx, ix, args.ProofData, 3, owner, zkproof.ProofTypeWithdraw)
	if err != nil {
		return mapProofError(err, inline)
	}
	stmt, err := zkproof.DecodeWithdrawContext(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidProofContext, err)
	}
	final, err := elgamal.SubtractAmount(conf.AvailableBalance, args.Amount)
	if err != nil {
		return err
	}
	switch {
	case stmt.Mint != mintKey || stmt.Account != key:
		return mismatch(inline, "account binding")
	case stmt.Pubkey != conf.ElGamalPubkey:
		return mismatch(inline, "public key")
	case stmt.FinalCiphertext != final:
		return mismatch(inline, "available balance")
	}
	if a.Amount, err = checkedAdd(a.Amount, args.Amount); err != nil {
		return err
	}
	conf.AvailableBalance = final
	conf.DecryptableAvailableBalance = args.NewDecryptableAvailableBalance
	log.Info("Withdrew confidential balance", "account", key, "amount", args.Amount, "inline", inline)
	return saveAccount(ctx.Txn, key, a)
}

func (p *Processor) confidentialTransfer(ctx *ledger.Context, ix *ledger.Instruction) error {
	keys, err := accounts(ix, 4)
	if err != nil {
		return err
	}
	srcKey, mintKey, dstKey, owner := keys[0], keys[1], keys[2], keys[3]
	var args confidentialTransferArgs
	if err := decodeArgs(ix, &args); err != nil {
		return err
	}
	if srcKey == dstKey {
		return fmt.Errorf("%w: %s", ErrSameAccount, srcKey)
	}
	src, err := ownedAccount(ctx, srcKey, owner)
	if err != nil {
		return err
	}
	m, err := loadMint(ctx.Txn, mintKey)
	if err != nil {
		return err
	}
	if m.Confidential == nil {
		return fmt.Errorf("%w: %s", ErrMintNotConfigured, mintKey)
	}
	srcConf, err := confidential(srcKey, src, &mintKey)
	if err != nil {
		return err
	}
	if err := srcConf.ValidAsSource(); err != nil {
		return err
	}
	dst, err := loadAccount(ctx.Txn, dstKey)
	if err != nil {
		return err
	}
	dstConf, err := confidential(dstKey, dst, &mintKey)
	if err != nil {
		return err
	}
	if err := dstConf.ValidAsDestination(); err != nil {
		return err
	}
	if dstConf.PendingBalanceCreditCounter >= dstConf.MaximumPendingBalanceCreditCounter {
		return fmt.Errorf("%w: %s", ErrReceiverCreditCounterExceeded, dstKey)
	}

	raw, inline, err := p.statement(ctx, ix, args.ProofData, 4, owner, zkproof.ProofTypeTransfer)
	if err != nil {
		return mapProofError(err, inline)
	}
	stmt, err := zkproof.DecodeTransferContext(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidProofContext, err)
	}
	newSource, err := elgamal.SubtractWithLoHi(srcConf.AvailableBalance, stmt.AmountLo.Ciphertext(0), stmt.AmountHi.Ciphertext(0), params.TransferAmountLoBitLength)
	if err != nil {
		return mismatch(inline, "amount ciphertexts")
	}
	switch {
	case stmt.Mint != mintKey || stmt.Source != srcKey || stmt.Destination != dstKey:
		return mismatch(inline, "account binding")
	case stmt.SourcePubkey != srcConf.ElGamalPubkey:
		return mismatch(inline, "source public key")
	case stmt.DestinationPubkey != dstConf.ElGamalPubkey:
		return mismatch(inline, "destination public key")
	case stmt.AuditorPubkey != m.Confidential.AuditorElGamalPubkey:
		return mismatch(inline, "auditor public key")
	case stmt.NewSourceCiphertext != newSource:
		return mismatch(inline, "source available balance")
	}

	if err := dstConf.creditPending(stmt.AmountLo.Ciphertext(1), stmt.AmountHi.Ciphertext(1)); err != nil {
		return err
	}
	srcConf.AvailableBalance = newSource
	srcConf.DecryptableAvailableBalance = args.NewSourceDecryptableAvailableBalance
	if err := saveAccount(ctx.Txn, srcKey, src); err != nil {
		return err
	}
	log.Info("Confidential transfer", "source", srcKey, "destination", dstKey, "credits", dstConf.PendingBalanceCreditCounter, "inline", inline)
	return saveAccount(ctx.Txn, dstKey, dst)
}

func (p *Processor) setCredits(ctx *ledger.Context, ix *ledger.Instruction, confidentialCredits, allow bool) error {
	keys, err := accounts(ix, 2)
	if err != nil {
		return err
	}
	key, owner := keys[0], keys[1]
	a, err := ownedAccount(ctx, key, owner)
	if err != nil {
		return err
	}
	conf, err := confidential(key, a, nil)
	if err != nil {
		return err
	}
	if confidentialCredits {
		conf.AllowConfidentialCredits = allow
	} else {
		conf.AllowNonConfidentialCredits = allow
	}
	return saveAccount(ctx.Txn, key, a)
}

func (p *Processor) closeAccount(ctx *ledger.Context, ix *ledger.Instruction) error {
	keys, err := accounts(ix, 3)
	if err != nil {
		return err
	}
	key, destination, owner := keys[0], keys[1], keys[2]
	a, err := ownedAccount(ctx, key, owner)
	if err != nil {
		return err
	}
	if a.Amount != 0 {
		return fmt.Errorf("%w: %d public tokens", ErrAccountHasBalance, a.Amount)
	}
	if conf := a.Confidential; conf != nil {
		zero := elgamal.ZeroCiphertext()
		if conf.PendingBalanceCreditCounter != 0 || conf.PendingBalanceLo != zero || conf.PendingBalanceHi != zero {
			return fmt.Errorf("%w: pending balance", ErrAccountHasBalance)
		}
		if conf.AvailableBalance != zero {
			return fmt.Errorf("%w: available balance not emptied", ErrAccountHasBalance)
		}
	}
	log.Debug("Closed token account", "account", key, "destination", destination)
	return ctx.Txn.CloseAccount(params.TokenProgramID, key, destination)
}
