package params

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"reflect"
	"time"
	"unicode"

	"github.com/naoina/toml"
)

// Config contains the tunables of a ledger instance and its client tools.
type Config struct {
	// DataDir is the leveldb directory. Empty keeps the ledger in memory.
	DataDir string `toml:",omitempty"`
	// Cache is the size of the account read cache in megabytes.
	Cache int `toml:",omitempty"`
	// Handles is the number of open files leveldb may keep.
	Handles int `toml:",omitempty"`

	MaxPendingBalanceCreditCounter uint64 `toml:",omitempty"`
	MaxInlineProofBytes            int    `toml:",omitempty"`
	DecryptBound                   uint64 `toml:",omitempty"`

	// ContextExpiry is how long a client keeps an unconsumed proof context
	// account before closing it as abandoned. The ledger itself never expires
	// contexts.
	ContextExpiry time.Duration `toml:",omitempty"`

	Verbosity string `toml:",omitempty"`
}

// Defaults contains the default settings.
var Defaults = Config{
	Cache:                          16,
	Handles:                        64,
	MaxPendingBalanceCreditCounter: DefaultMaximumPendingBalanceCreditCounter,
	MaxInlineProofBytes:            MaxInlineProofBytes,
	DecryptBound:                   DefaultDecryptBound,
	ContextExpiry:                  DefaultContextExpiry,
	Verbosity:                      "info",
}

var (
	errZeroDecryptBound     = errors.New("params: decrypt bound must be positive")
	errDecryptBoundTooLarge = errors.New("params: decrypt bound too large")
)

// Sanitize checks the configuration for values that would make the ledger
// unusable.
func (c *Config) Sanitize() error {
	if c.DecryptBound == 0 {
		return errZeroDecryptBound
	}
	if c.DecryptBound > MaxDecryptBound {
		return fmt.Errorf("%w: %d above %d", errDecryptBoundTooLarge, c.DecryptBound, MaxDecryptBound)
	}
	if c.MaxPendingBalanceCreditCounter == 0 {
		return fmt.Errorf("params: max pending balance credit counter must be positive")
	}
	if c.MaxInlineProofBytes < 0 {
		return fmt.Errorf("params: negative inline proof budget %d", c.MaxInlineProofBytes)
	}
	return nil
}

// These settings ensure that TOML keys use the same names as Go struct fields.
var tomlSettings = toml.Config{
	NormFieldName: func(rt reflect.Type, key string) string {
		return key
	},
	FieldToKey: func(rt reflect.Type, field string) string {
		return field
	},
	MissingField: func(rt reflect.Type, field string) error {
		link := ""
		if unicode.IsUpper(rune(rt.Name()[0])) && rt.PkgPath() != "main" {
			link = fmt.Sprintf(", see https://pkg.go.dev/%s#%s for available fields", rt.PkgPath(), rt.Name())
		}
		return fmt.Errorf("field '%s' is not defined in %s%s", field, rt.String(), link)
	},
}

// LoadConfig reads a TOML file on top of Defaults.
func LoadConfig(file string) (Config, error) {
	cfg := Defaults
	f, err := os.Open(file)
	if err != nil {
		return cfg, err
	}
	defer f.Close()

	err = tomlSettings.NewDecoder(bufio.NewReader(f)).Decode(&cfg)
	// Add file name to errors that have a line number.
	if _, ok := err.(*toml.LineError); ok {
		err = errors.New(file + ", " + err.Error())
	}
	if err != nil {
		return cfg, err
	}
	return cfg, cfg.Sanitize()
}

// DumpConfig renders cfg in the format LoadConfig accepts.
func DumpConfig(cfg Config) ([]byte, error) {
	return tomlSettings.Marshal(&cfg)
}
