// Package config collects the parameters of a simulation run from YAML
// files, the environment and the command line.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/sarchlab/csim/mem/cache"
)

// Environment variables that override the configuration file.
const (
	EnvSets      = "CSIM_SETS"
	EnvWays      = "CSIM_WAYS"
	EnvBlockSize = "CSIM_BLOCK_SIZE"
	EnvPolicy    = "CSIM_POLICY"
	EnvTrace     = "CSIM_TRACE"
	EnvVerbose   = "CSIM_VERBOSE"
)

var (
	// ErrSetsNotPowerOfTwo is reported when the number of sets is not a power
	// of two.
	ErrSetsNotPowerOfTwo = errors.New("S must be a power of 2")

	// ErrBlockSizeNotPowerOfTwo is reported when the block size is not a
	// power of two.
	ErrBlockSizeNotPowerOfTwo = errors.New("B must be a power of 2")

	// ErrMissingArguments is reported when a required parameter is absent or
	// not positive.
	ErrMissingArguments = errors.New(
		"negative or missing command line arguments")
)

// Config holds the parameters of one run.
type Config struct {
	Sets      int    `yaml:"sets"`
	Ways      int    `yaml:"ways"`
	BlockSize int    `yaml:"block_size"`
	Policy    string `yaml:"policy"`
	Trace     string `yaml:"trace"`
	Verbose   bool   `yaml:"verbose"`
}

// Default returns the configuration before any source is applied. Geometry,
// policy and trace have no defaults and must be given explicitly.
func Default() Config {
	return Config{}
}

// LoadFile returns the default configuration overlaid with the YAML file at
// path. Unknown keys are rejected.
func LoadFile(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)

	if err := decoder.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}

	return cfg, nil
}

// ApplyEnv overrides cfg with the CSIM_* environment variables. The given
// dotenv files are loaded first, without replacing variables that are
// already set. If no file is given, an optional .env in the working
// directory is used.
func ApplyEnv(cfg *Config, envFiles ...string) error {
	if err := loadEnvFiles(envFiles); err != nil {
		return err
	}

	if err := envInt(EnvSets, &cfg.Sets); err != nil {
		return err
	}

	if err := envInt(EnvWays, &cfg.Ways); err != nil {
		return err
	}

	if err := envInt(EnvBlockSize, &cfg.BlockSize); err != nil {
		return err
	}

	if v, ok := os.LookupEnv(EnvPolicy); ok {
		cfg.Policy = v
	}

	if v, ok := os.LookupEnv(EnvTrace); ok {
		cfg.Trace = v
	}

	if v, ok := os.LookupEnv(EnvVerbose); ok {
		verbose, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvVerbose, err)
		}

		cfg.Verbose = verbose
	}

	return nil
}

func loadEnvFiles(envFiles []string) error {
	if len(envFiles) > 0 {
		if err := godotenv.Load(envFiles...); err != nil {
			return fmt.Errorf("loading env file: %w", err)
		}

		return nil
	}

	err := godotenv.Load()
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading .env: %w", err)
	}

	return nil
}

func envInt(key string, dst *int) error {
	v, ok := os.LookupEnv(key)
	if !ok {
		return nil
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}

	*dst = n

	return nil
}

// Validate checks the configuration in the same order as the command line
// is checked: set count, block size, policy, then required parameters.
func (c Config) Validate() error {
	if c.Sets > 0 && !cache.IsPowerOfTwo(c.Sets) {
		return ErrSetsNotPowerOfTwo
	}

	if c.BlockSize > 0 && !cache.IsPowerOfTwo(c.BlockSize) {
		return ErrBlockSizeNotPowerOfTwo
	}

	if c.Policy != "" {
		if _, err := cache.NewPolicy(c.Policy); err != nil {
			return err
		}
	}

	if c.Sets <= 0 || c.Ways <= 0 || c.BlockSize <= 0 ||
		c.Policy == "" || c.Trace == "" {
		return ErrMissingArguments
	}

	return nil
}

// Builder returns a cache builder with the configured geometry and policy.
// The configuration must be valid.
func (c Config) Builder() cache.Builder {
	policy, err := cache.NewPolicy(c.Policy)
	if err != nil {
		panic(err)
	}

	return cache.MakeBuilder().
		WithNumSets(c.Sets).
		WithWayAssociativity(c.Ways).
		WithBlockSize(c.BlockSize).
		WithPolicy(policy)
}
