package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/sarchlab/cachesim/mem/cache"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// cacheFile is the layout of the file given with --config.
type cacheFile struct {
	Sets           *uint64 `yaml:"sets"`
	Associativity  *uint64 `yaml:"associativity"`
	LineSize       *uint64 `yaml:"line_size"`
	Replacement    *string `yaml:"replacement"`
	Prefetcher     *string `yaml:"prefetcher"`
	PrefetchAmount *uint64 `yaml:"prefetch_amount"`
	Seed           *int64  `yaml:"seed"`
}

// envNames maps flags to the environment variables that can set them.
var envNames = map[string]string{
	"sets":            "CACHESIM_SETS",
	"associativity":   "CACHESIM_ASSOCIATIVITY",
	"line-size":       "CACHESIM_LINE_SIZE",
	"replacement":     "CACHESIM_REPLACEMENT",
	"prefetcher":      "CACHESIM_PREFETCHER",
	"prefetch-amount": "CACHESIM_PREFETCH_AMOUNT",
	"seed":            "CACHESIM_SEED",
}

func addCacheFlags(flags *pflag.FlagSet, withStrategies bool) {
	flags.Uint64("sets", 64, "Number of sets")
	flags.Uint64("associativity", 4, "Number of ways per set")
	flags.Uint64("line-size", 64, "Line size in bytes, a power of two")
	flags.Int64("seed", 0, "Seed of the random replacement policy "+
		"(default: wall clock)")
	flags.Uint64("prefetch-amount", 1,
		"Number of lines the sequential prefetcher fetches ahead")
	flags.String("config", "", "YAML file with cache parameters")

	if withStrategies {
		flags.String("replacement", "lru",
			"Replacement policy: lru, rand, lru_prefer_clean")
		flags.String("prefetcher", "none",
			"Prefetcher: none, null, sequential, adjacent, custom")
	}
}

// applyDefaults fills the flags the user did not set, first from the
// environment (including a .env file), then from the --config file.
func applyDefaults(cmd *cobra.Command) error {
	err := godotenv.Load()
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading .env: %w", err)
	}

	fileValues, err := loadCacheFile(cmd.Flags())
	if err != nil {
		return err
	}

	for name, env := range envNames {
		flag := cmd.Flags().Lookup(name)
		if flag == nil || flag.Changed {
			continue
		}

		value, ok := os.LookupEnv(env)
		if !ok {
			value, ok = fileValues[name]
		}

		if !ok {
			continue
		}

		if err := cmd.Flags().Set(name, value); err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
	}

	return nil
}

func loadCacheFile(flags *pflag.FlagSet) (map[string]string, error) {
	values := map[string]string{}

	path, _ := flags.GetString("config")
	if path == "" {
		return values, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var f cacheFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	putUint := func(name string, v *uint64) {
		if v != nil {
			values[name] = strconv.FormatUint(*v, 10)
		}
	}

	putUint("sets", f.Sets)
	putUint("associativity", f.Associativity)
	putUint("line-size", f.LineSize)
	putUint("prefetch-amount", f.PrefetchAmount)

	if f.Replacement != nil {
		values["replacement"] = *f.Replacement
	}

	if f.Prefetcher != nil {
		values["prefetcher"] = *f.Prefetcher
	}

	if f.Seed != nil {
		values["seed"] = strconv.FormatInt(*f.Seed, 10)
	}

	return values, nil
}

// cacheBuilderFromFlags creates a cache builder with the geometry given in the
// flags. Strategies are taken from the flags only if they are defined.
func cacheBuilderFromFlags(flags *pflag.FlagSet) cache.Builder {
	sets, _ := flags.GetUint64("sets")
	ways, _ := flags.GetUint64("associativity")
	lineSize, _ := flags.GetUint64("line-size")
	amount, _ := flags.GetUint64("prefetch-amount")

	b := cache.MakeBuilder().
		WithNumSets(sets).
		WithAssociativity(ways).
		WithLineSize(lineSize).
		WithPrefetchAmount(amount)

	if flags.Changed("seed") {
		seed, _ := flags.GetInt64("seed")
		b = b.WithSeed(seed)
	}

	if policy, err := flags.GetString("replacement"); err == nil {
		b = b.WithReplacementPolicy(policy)
	}

	if prefetcher, err := flags.GetString("prefetcher"); err == nil {
		b = b.WithPrefetcher(prefetcher)
	}

	return b
}
