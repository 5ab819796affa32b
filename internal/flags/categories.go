package flags

import "github.com/urfave/cli/v2"

const (
	LedgerCategory  = "LEDGER"
	KeyCategory     = "KEYS"
	LoggingCategory = "LOGGING AND DEBUGGING"
	MiscCategory    = "MISC"
)

func init() {
	cli.HelpFlag.(*cli.BoolFlag).Category = MiscCategory
	cli.VersionFlag.(*cli.BoolFlag).Category = MiscCategory
}
