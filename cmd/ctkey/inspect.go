package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/solana-developers/Confidential-Transfer-Sample/cmd/utils"
	"github.com/solana-developers/Confidential-Transfer-Sample/internal/balancetracker"
	"github.com/solana-developers/Confidential-Transfer-Sample/node"
	"github.com/solana-developers/Confidential-Transfer-Sample/params"
	"github.com/urfave/cli/v2"
)

var commandAccounts = &cli.Command{
	Name:  "accounts",
	Usage: "list token accounts and their confidential state",
	Description: `
Prints the public part of every token account. The available column shows
the balance recorded by the owner's tracker, when one exists.`,
	Flags: []cli.Flag{utils.JSONFlag},
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

		rows, err := accountRows(n, cfg.DataDir)
		if err != nil {
			return err
		}
		if ctx.Bool(utils.JSONFlag.Name) {
			return writeJSON(ctx.App.Writer, rows)
		}
		table := tablewriter.NewWriter(ctx.App.Writer)
		table.SetHeader([]string{"Account", "Mint", "Public", "Confidential", "Approved", "Pending credits", "Tracked available"})
		for _, r := range rows {
			tracked := "-"
			if r.TrackedAvailable != nil {
				tracked = strconv.FormatUint(*r.TrackedAvailable, 10)
			}
			table.Append([]string{r.Account, r.Mint, strconv.FormatUint(r.Public, 10),
				strconv.FormatBool(r.Confidential), strconv.FormatBool(r.Approved),
				strconv.FormatUint(r.PendingCredits, 10), tracked})
		}
		table.Render()
		return nil
	},
}

type accountRow struct {
	Account          string  `json:"account"`
	Mint             string  `json:"mint"`
	Public           uint64  `json:"public"`
	Confidential     bool    `json:"confidential"`
	Approved         bool    `json:"approved"`
	PendingCredits   uint64  `json:"pendingCredits"`
	TrackedAvailable *uint64 `json:"trackedAvailable,omitempty"`
}

func accountRows(n *node.Node, dataDir string) ([]accountRow, error) {
	keys, err := n.TokenAccounts()
	if err != nil {
		return nil, err
	}
	rows := make([]accountRow, 0, len(keys))
	for _, key := range keys {
		a, err := n.TokenAccount(key)
		if err != nil {
			return nil, err
		}
		row := accountRow{Account: key.String(), Mint: a.Mint.String(), Public: a.Amount}
		if conf := a.Confidential; conf != nil {
			row.Confidential = true
			row.Approved = conf.Approved
			row.PendingCredits = conf.PendingBalanceCreditCounter
		}
		if dataDir != "" {
			st, err := balancetracker.Load(balancetracker.Path(dataDir, row.Account))
			if err != nil {
				return nil, err
			}
			if st != nil {
				available := st.Available
				row.TrackedAvailable = &available
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

var commandContexts = &cli.Command{
	Name:  "contexts",
	Usage: "list proof context accounts",
	Description: `
Prints every proof context account. Contexts that were consumed or outlived
the configured expiry are highlighted; their authority can close them to
reclaim the rent.`,
	Flags: []cli.Flag{utils.JSONFlag},
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

		infos, err := n.ProofContexts(time.Now())
		if err != nil {
			return err
		}
		if ctx.Bool(utils.JSONFlag.Name) {
			return writeJSON(ctx.App.Writer, infos)
		}
		renderContexts(ctx.App.Writer, infos)
		return nil
	},
}

func renderContexts(w io.Writer, infos []node.ContextInfo) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Context", "Status", "Proof", "Authority", "Created", "Lamports"})
	for _, info := range infos {
		status := info.Status.String()
		if info.Expired {
			status = color.YellowString("%s (expired)", status)
		}
		created := "-"
		if !info.CreatedAt.IsZero() {
			created = info.CreatedAt.UTC().Format(time.RFC3339)
		}
		table.Append([]string{info.Key.String(), status, info.ProofType.String(),
			info.Authority.String(), created, strconv.FormatUint(info.Lamports, 10)})
	}
	table.Render()
}

var commandDumpConfig = &cli.Command{
	Name:  "dumpconfig",
	Usage: "print the effective configuration as TOML",
	Action: func(ctx *cli.Context) error {
		cfg, err := utils.MakeConfig(ctx)
		if err != nil {
			return err
		}
		out, err := params.DumpConfig(cfg)
		if err != nil {
			return err
		}
		_, err = ctx.App.Writer.Write(out)
		return err
	},
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	return nil
}
