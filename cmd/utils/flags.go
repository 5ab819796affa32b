// Package utils contains internal helper functions for ledger commands.
package utils

import (
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/inconshreveable/log15"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/solana-developers/Confidential-Transfer-Sample/internal/flags"
	"github.com/solana-developers/Confidential-Transfer-Sample/params"
	"github.com/urfave/cli/v2"
)

// These are all the command line flags shared between commands.
var (
	ConfigFileFlag = &cli.StringFlag{
		Name:     "config",
		Usage:    "TOML configuration file",
		Category: flags.MiscCategory,
	}
	DataDirFlag = &cli.StringFlag{
		Name:     "datadir",
		Usage:    "Ledger data directory (empty keeps the ledger in memory)",
		Category: flags.LedgerCategory,
	}
	CacheFlag = &cli.IntFlag{
		Name:     "cache",
		Usage:    "Megabytes of memory allocated to the account read cache",
		Value:    params.Defaults.Cache,
		Category: flags.LedgerCategory,
	}
	DecryptBoundFlag = &cli.Uint64Flag{
		Name:     "decrypt-bound",
		Usage:    "Largest balance searched when decrypting a ciphertext",
		Value:    params.Defaults.DecryptBound,
		Category: flags.LedgerCategory,
	}
	VerbosityFlag = &cli.StringFlag{
		Name:     "verbosity",
		Usage:    "Logging verbosity: crit, error, warn, info, debug",
		Value:    params.Defaults.Verbosity,
		Category: flags.LoggingCategory,
	}
	JSONFlag = &cli.BoolFlag{
		Name:     "json",
		Usage:    "Output JSON instead of human-readable format",
		Category: flags.MiscCategory,
	}
)

// Fatalf formats a message to standard error and exits the program.
// The message is also printed to standard output if standard error
// is redirected to a different file.
func Fatalf(format string, args ...interface{}) {
	w := io.MultiWriter(os.Stdout, os.Stderr)
	if runtime.GOOS == "windows" {
		// The SameFile check below doesn't work on Windows.
		// stdout is unlikely to get redirected though, so just print there.
		w = os.Stdout
	} else {
		outf, _ := os.Stdout.Stat()
		errf, _ := os.Stderr.Stat()
		if outf != nil && errf != nil && os.SameFile(outf, errf) {
			w = os.Stderr
		}
	}
	fmt.Fprintf(w, "Fatal: "+format+"\n", args...)
	os.Exit(1)
}

// MakeConfig loads the configuration file, if any, and applies the command
// line overrides on top of it.
func MakeConfig(ctx *cli.Context) (params.Config, error) {
	cfg := params.Defaults
	if file := ctx.String(ConfigFileFlag.Name); file != "" {
		var err error
		if cfg, err = params.LoadConfig(file); err != nil {
			return cfg, err
		}
	}
	if ctx.IsSet(DataDirFlag.Name) {
		cfg.DataDir = ctx.String(DataDirFlag.Name)
	}
	if ctx.IsSet(CacheFlag.Name) {
		cfg.Cache = ctx.Int(CacheFlag.Name)
	}
	if ctx.IsSet(DecryptBoundFlag.Name) {
		cfg.DecryptBound = ctx.Uint64(DecryptBoundFlag.Name)
	}
	if ctx.IsSet(VerbosityFlag.Name) {
		cfg.Verbosity = ctx.String(VerbosityFlag.Name)
	}
	return cfg, cfg.Sanitize()
}

// SetupLogging installs the root log handler: colored terminal output when
// stderr is a terminal, logfmt otherwise.
func SetupLogging(verbosity string) error {
	lvl, err := log15.LvlFromString(verbosity)
	if err != nil {
		return fmt.Errorf("invalid verbosity %q: %w", verbosity, err)
	}
	fd := os.Stderr.Fd()
	usecolor := (isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)) && os.Getenv("TERM") != "dumb"

	var handler log15.Handler
	if usecolor {
		handler = log15.StreamHandler(colorable.NewColorableStderr(), log15.TerminalFormat())
	} else {
		handler = log15.StreamHandler(os.Stderr, log15.LogfmtFormat())
	}
	log15.Root().SetHandler(log15.LvlFilterHandler(lvl, handler))
	return nil
}
