package main

import (
	"fmt"
	"strings"

	solana "github.com/gagliardetto/solana-go"
	"github.com/solana-developers/Confidential-Transfer-Sample/accountsigner"
	"github.com/solana-developers/Confidential-Transfer-Sample/cmd/utils"
	"github.com/solana-developers/Confidential-Transfer-Sample/crypto/elgamal"
	"github.com/solana-developers/Confidential-Transfer-Sample/internal/flags"
	"github.com/urfave/cli/v2"
)

var (
	bitsFlag = &cli.IntFlag{
		Name:     "bits",
		Usage:    "Mnemonic entropy size in bits",
		Value:    accountsigner.DefaultMnemonicBits,
		Category: flags.KeyCategory,
	}
	mnemonicFileFlag = &cli.StringFlag{
		Name:     "mnemonicfile",
		Usage:    "File holding the mnemonic (prompted when missing)",
		Category: flags.KeyCategory,
	}
	passphraseFileFlag = &cli.StringFlag{
		Name:     "passwordfile",
		Usage:    "File holding the BIP-39 passphrase",
		Category: flags.KeyCategory,
	}
	hdPathFlag = &cli.StringFlag{
		Name:     "path",
		Usage:    "HD derivation path of the owner key",
		Value:    accountsigner.DefaultHDPath,
		Category: flags.KeyCategory,
	}
	accountFlag = &cli.StringFlag{
		Name:     "account",
		Usage:    "Token account address the encryption key is derived for",
		Category: flags.KeyCategory,
	}
)

var commandMnemonic = &cli.Command{
	Name:  "mnemonic",
	Usage: "generate a new BIP-39 mnemonic",
	Flags: []cli.Flag{bitsFlag},
	Action: func(ctx *cli.Context) error {
		phrase, err := accountsigner.NewMnemonic(ctx.Int(bitsFlag.Name))
		if err != nil {
			return err
		}
		fmt.Fprintln(ctx.App.Writer, phrase)
		return nil
	},
}

type deriveOutput struct {
	Owner         string `json:"owner"`
	Account       string `json:"account,omitempty"`
	ElGamalPubkey string `json:"elgamalPubkey,omitempty"`
}

var commandDerive = &cli.Command{
	Name:  "derive",
	Usage: "derive the owner key and an account encryption key from a mnemonic",
	Description: `
Derives the ed25519 owner key at --path. When --account is given, the
ElGamal public key of that token account is derived from the owner's
signature over the account address, the same way a wallet does.`,
	Flags: []cli.Flag{mnemonicFileFlag, passphraseFileFlag, hdPathFlag, accountFlag, utils.JSONFlag},
	Action: func(ctx *cli.Context) error {
		phrase, err := readMnemonic(ctx)
		if err != nil {
			return err
		}
		var passphrase string
		if file := ctx.String(passphraseFileFlag.Name); file != "" {
			lines, err := utils.ReadSecretFile(file)
			if err != nil {
				return err
			}
			if passphrase, err = utils.SecretFromList("Passphrase: ", 0, lines); err != nil {
				return err
			}
		}
		out, err := deriveKeys(phrase, passphrase, ctx.String(hdPathFlag.Name), ctx.String(accountFlag.Name))
		if err != nil {
			return err
		}
		if ctx.Bool(utils.JSONFlag.Name) {
			return writeJSON(ctx.App.Writer, out)
		}
		fmt.Fprintln(ctx.App.Writer, "Owner:         ", out.Owner)
		if out.Account != "" {
			fmt.Fprintln(ctx.App.Writer, "Account:       ", out.Account)
			fmt.Fprintln(ctx.App.Writer, "ElGamal pubkey:", out.ElGamalPubkey)
		}
		return nil
	},
}

func readMnemonic(ctx *cli.Context) (string, error) {
	if file := ctx.String(mnemonicFileFlag.Name); file != "" {
		lines, err := utils.ReadSecretFile(file)
		if err != nil {
			return "", err
		}
		return strings.Join(lines, " "), nil
	}
	return utils.ReadSecret("Mnemonic: ")
}

func deriveKeys(phrase, passphrase, path, account string) (deriveOutput, error) {
	owner, err := accountsigner.Ed25519FromMnemonic(phrase, passphrase, path)
	if err != nil {
		return deriveOutput{}, err
	}
	out := deriveOutput{Owner: owner.Account().String()}
	if account == "" {
		return out, nil
	}
	key, err := solana.PublicKeyFromBase58(account)
	if err != nil {
		return deriveOutput{}, fmt.Errorf("invalid account %q: %w", account, err)
	}
	kp, err := elgamal.NewKeypairFromSigner(owner, key[:])
	if err != nil {
		return deriveOutput{}, err
	}
	out.Account = key.String()
	out.ElGamalPubkey = kp.Public.String()
	return out, nil
}
