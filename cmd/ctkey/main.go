// ctkey is a command line tool for confidential balance keys and a local
// confidential ledger.
package main

import (
	"os"

	"github.com/solana-developers/Confidential-Transfer-Sample/cmd/utils"
	"github.com/solana-developers/Confidential-Transfer-Sample/internal/flags"
	"github.com/solana-developers/Confidential-Transfer-Sample/params"
	"github.com/urfave/cli/v2"
)

// Git SHA1 commit hash of the release (set via linker flags)
var gitCommit = ""
var gitDate = ""

var app *cli.App

func init() {
	app = flags.NewApp(gitCommit, gitDate, "a confidential balance key and ledger tool")
	app.Flags = []cli.Flag{
		utils.ConfigFileFlag,
		utils.DataDirFlag,
		utils.CacheFlag,
		utils.DecryptBoundFlag,
		utils.VerbosityFlag,
	}
	app.Commands = []*cli.Command{
		commandMnemonic,
		commandDerive,
		commandDemo,
		commandAccounts,
		commandContexts,
		commandDumpConfig,
	}
	app.Before = func(ctx *cli.Context) error {
		verbosity := params.Defaults.Verbosity
		if ctx.IsSet(utils.VerbosityFlag.Name) {
			verbosity = ctx.String(utils.VerbosityFlag.Name)
		}
		return utils.SetupLogging(verbosity)
	}
}

func main() {
	if err := app.Run(os.Args); err != nil {
		utils.Fatalf("%v", err)
	}
}
