package main

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/fatih/color"
	solana "github.com/gagliardetto/solana-go"
	"github.com/olekukonko/tablewriter"
	"github.com/solana-developers/Confidential-Transfer-Sample/accountsigner"
	"github.com/solana-developers/Confidential-Transfer-Sample/cmd/utils"
	"github.com/solana-developers/Confidential-Transfer-Sample/ctclient"
	"github.com/solana-developers/Confidential-Transfer-Sample/internal/balancetracker"
	"github.com/solana-developers/Confidential-Transfer-Sample/node"
	"github.com/urfave/cli/v2"
)

var (
	depositFlag = &cli.Uint64Flag{
		Name:  "amount",
		Usage: "Tokens minted to the sender and deposited",
		Value: 1000,
	}
	transferFlag = &cli.Uint64Flag{
		Name:  "transfer",
		Usage: "Tokens sent confidentially to the receiver",
		Value: 300,
	}
	withdrawFlag = &cli.Uint64Flag{
		Name:  "withdraw",
		Usage: "Tokens the receiver withdraws back to its public amount",
		Value: 100,
	}
)

var commandDemo = &cli.Command{
	Name:  "demo",
	Usage: "run a deposit, transfer and withdraw against the ledger",
	Description: `
Creates a confidential mint and two accounts, then deposits, applies,
transfers and withdraws while printing the balances each owner decrypts.
With --datadir the ledger and the owners' balance trackers persist.`,
	Flags: []cli.Flag{depositFlag, transferFlag, withdrawFlag},
	Action: func(ctx *cli.Context) error {
		cfg, err := utils.MakeConfig(ctx)
		if err != nil {
			return err
		}
		n, err := node.New(&cfg)
		if err != nil {
			return err
		}
		defer n.Close()

		d := &demo{
			node:     n,
			dataDir:  cfg.DataDir,
			amount:   ctx.Uint64(depositFlag.Name),
			transfer: ctx.Uint64(transferFlag.Name),
			withdraw: ctx.Uint64(withdrawFlag.Name),
		}
		if err := d.run(ctx.Context); err != nil {
			return err
		}
		d.render(ctx.App.Writer)
		return nil
	},
}

type demo struct {
	node     *node.Node
	dataDir  string
	amount   uint64
	transfer uint64
	withdraw uint64

	sender, receiver *ctclient.Wallet
	rows             [][]string
}

func (d *demo) run(ctx context.Context) error {
	if d.transfer > d.amount {
		return fmt.Errorf("transfer %d exceeds deposit %d", d.transfer, d.amount)
	}
	if d.withdraw > d.transfer {
		return fmt.Errorf("withdraw %d exceeds transfer %d", d.withdraw, d.transfer)
	}
	payer, err := solana.NewRandomPrivateKey()
	if err != nil {
		return err
	}
	if err := d.node.Fund(payer.PublicKey(), 10_000_000_000); err != nil {
		return err
	}
	authority, err := solana.NewRandomPrivateKey()
	if err != nil {
		return err
	}
	mintKey, err := solana.NewRandomPrivateKey()
	if err != nil {
		return err
	}
	mintCfg := ctclient.MintConfig{Decimals: 2, AutoApprove: true}
	if err := ctclient.CreateMint(ctx, d.node, payer, mintKey, authority.PublicKey(), mintCfg); err != nil {
		return err
	}
	mint := mintKey.PublicKey()

	if d.sender, err = d.openWallet(ctx, payer, mint); err != nil {
		return err
	}
	if d.receiver, err = d.openWallet(ctx, payer, mint); err != nil {
		return err
	}
	if err := ctclient.MintTo(ctx, d.node, authority, mint, d.sender.Account(), d.amount); err != nil {
		return err
	}
	steps := []struct {
		name string
		fn   func() error
	}{
		{"mint", func() error { return nil }},
		{"deposit", func() error { return d.sender.Deposit(ctx, d.amount) }},
		{"apply", func() error { return d.sender.ApplyPendingBalance(ctx) }},
		{"transfer", func() error { return d.sender.Transfer(ctx, d.receiver.Account(), d.transfer) }},
		{"apply receiver", func() error { return d.receiver.ApplyPendingBalance(ctx) }},
		{"withdraw", func() error { return d.receiver.Withdraw(ctx, d.withdraw) }},
	}
	for _, step := range steps {
		if err := step.fn(); err != nil {
			return fmt.Errorf("%s: %w", step.name, err)
		}
		if err := d.record(step.name); err != nil {
			return err
		}
	}
	return d.track()
}

func (d *demo) openWallet(ctx context.Context, payer solana.PrivateKey, mint solana.PublicKey) (*ctclient.Wallet, error) {
	owner, err := accountsigner.GenerateEd25519()
	if err != nil {
		return nil, err
	}
	accountKey, err := solana.NewRandomPrivateKey()
	if err != nil {
		return nil, err
	}
	return ctclient.Create(ctx, d.node, payer, owner, mint, accountKey, 0)
}

func (d *demo) record(step string) error {
	row := []string{step}
	for _, w := range []*ctclient.Wallet{d.sender, d.receiver} {
		available, public, err := w.Balances()
		if err != nil {
			return err
		}
		row = append(row, strconv.FormatUint(available, 10), strconv.FormatUint(public, 10))
	}
	d.rows = append(d.rows, row)
	return nil
}

// track persists both owners' final views when the ledger is on disk.
func (d *demo) track() error {
	if d.dataDir == "" {
		return nil
	}
	for _, w := range []*ctclient.Wallet{d.sender, d.receiver} {
		curr, err := w.Snapshot()
		if err != nil {
			return err
		}
		path := balancetracker.Path(d.dataDir, curr.Account)
		prev, err := balancetracker.Load(path)
		if err != nil {
			return err
		}
		if err := balancetracker.Validate(prev, curr, false); err != nil {
			return err
		}
		if err := balancetracker.Save(path, curr); err != nil {
			return err
		}
	}
	return nil
}

func (d *demo) render(w io.Writer) {
	fmt.Fprintf(w, "sender   %s\n", d.sender.Account())
	fmt.Fprintf(w, "receiver %s\n", d.receiver.Account())
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Step", "Sender available", "Sender public", "Receiver available", "Receiver public"})
	table.AppendBulk(d.rows)
	table.Render()
	fmt.Fprintln(w, conservedLine(d.conserved()))
}

func conservedLine(ok bool) string {
	if ok {
		return color.GreenString("supply conserved: %t", ok)
	}
	return color.RedString("supply conserved: %t", ok)
}

// conserved reports whether the last row still sums to the minted amount.
func (d *demo) conserved() bool {
	if len(d.rows) == 0 {
		return false
	}
	var sum uint64
	for _, cell := range d.rows[len(d.rows)-1][1:] {
		v, _ := strconv.ParseUint(cell, 10, 64)
		sum += v
	}
	return sum == d.amount
}
