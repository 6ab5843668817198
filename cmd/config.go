package cmd

import (
	"fmt"

	"github.com/spf13/viper"
)

// DBConfig is one entry of the databases list in dataforge.yaml. Keeping
// several entries with one marked active makes switching between a local
// postgres and a staging mysql a one-line config edit.
type DBConfig struct {
	Name   string `mapstructure:"name"`
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
	Active bool   `mapstructure:"active"`
}

// GetActiveDBConfig returns the single databases entry marked active. The
// flat database.dsn / database.driver keys stay the fallback when no list
// is configured.
func GetActiveDBConfig() (*DBConfig, error) {
	var entries []DBConfig
	if err := viper.UnmarshalKey("databases", &entries); err != nil {
		return nil, fmt.Errorf("failed to parse databases config: %w", err)
	}

	var active *DBConfig
	for i := range entries {
		if !entries[i].Active {
			continue
		}
		if active != nil {
			return nil, fmt.Errorf("multiple active databases found (only one can be active)")
		}
		active = &entries[i]
	}
	if active == nil {
		return nil, fmt.Errorf("no active database found in config (set active: true)")
	}
	return active, nil
}
