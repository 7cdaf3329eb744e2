package cmd

import (
	"fmt"
	"log"

	"github.com/spf13/pflag"
	"github.com/takutakahashi/pushnotify/pkg/config"
)

var (
	cfgFile string
	envFile string
	verbose bool

	// v holds defaults, environment and bound flags. Commands decode it with loadConfig.
	v = config.NewViper()
)

// addConfigFlags registers the flags every long-running command shares
func addConfigFlags(flags *pflag.FlagSet) {
	flags.StringVarP(&cfgFile, "config", "c", "", "Configuration file path (json, yaml or toml)")
	flags.StringVar(&envFile, "env-file", ".env", "KEY=VALUE file loaded into the environment")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
}

// bindFlag binds a flag to a configuration key
func bindFlag(key string, flags *pflag.FlagSet, name string) {
	if err := v.BindPFlag(key, flags.Lookup(name)); err != nil {
		log.Printf("Failed to bind %s flag: %v", name, err)
	}
}

// loadConfig loads the env file, then the config file layered under the environment
func loadConfig() (*config.Config, error) {
	if verbose {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	}
	if _, err := config.LoadEnvFiles(envFile); err != nil {
		return nil, err
	}
	cfg, err := config.Load(v, cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}
