package params

import solana "github.com/gagliardetto/solana-go"

// Well-known program identifiers. Accounts owned by these programs may only
// be written by the matching instruction handler.
var (
	// TokenProgramID owns mints and token accounts, including their
	// confidential extensions.
	TokenProgramID = solana.Token2022ProgramID

	// ProofProgramID owns proof context accounts.
	ProofProgramID = solana.MustPublicKeyFromBase58("ZkE1Gama1Proof11111111111111111111111111111")

	// SystemProgramID owns plain lamport balances.
	SystemProgramID = solana.SystemProgramID
)
