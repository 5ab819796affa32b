package ctclient

import (
	"context"

	solana "github.com/gagliardetto/solana-go"
	"github.com/solana-developers/Confidential-Transfer-Sample/core/token"
	"github.com/solana-developers/Confidential-Transfer-Sample/crypto/elgamal"
	"github.com/solana-developers/Confidential-Transfer-Sample/node"
)

// MintConfig describes a new confidential mint.
type MintConfig struct {
	Decimals    uint8
	AutoApprove bool
	// Auditor receives a decrypt handle on every transfer. The zero key
	// disables auditing.
	Auditor elgamal.PublicKey
}

// CreateMint allocates and initializes a confidential mint. authority is
// both the mint authority and the confidential authority.
func CreateMint(ctx context.Context, n *node.Node, payer, mintKey solana.PrivateKey, authority solana.PublicKey, cfg MintConfig) error {
	mint := mintKey.PublicKey()
	_, err := n.Send(ctx, []solana.PrivateKey{payer, mintKey},
		token.NewCreateMintAccountInstruction(payer.PublicKey(), mint),
		token.NewInitializeMintInstruction(mint, cfg.Decimals, authority, &token.ConfidentialMint{
			Authority:              authority,
			AutoApproveNewAccounts: cfg.AutoApprove,
			AuditorElGamalPubkey:   cfg.Auditor,
		}),
	)
	return err
}

// MintTo issues amount public tokens to account.
func MintTo(ctx context.Context, n *node.Node, authority solana.PrivateKey, mint, account solana.PublicKey, amount uint64) error {
	_, err := n.Send(ctx, []solana.PrivateKey{authority}, token.NewMintToInstruction(mint, account, authority.PublicKey(), amount))
	return err
}
