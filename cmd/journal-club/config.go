// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.yaml.in/yaml/v3"

	"github.com/nayanlc19/journal-club-standalone/pkg/types"
)

const redacted = "<redacted>"

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("journal-club")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "journal-club"))
		}
	}

	viper.SetEnvPrefix("JOURNAL_CLUB")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := setDefaults(viper.GetViper(), types.DefaultConfig()); err != nil {
		fmt.Fprintln(os.Stderr, "warning: registering config defaults:", err)
	}
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// setDefaults registers every field of def as a viper default so that
// environment variables can override keys absent from the config file.
func setDefaults(v *viper.Viper, def types.Config) error {
	data, err := yaml.Marshal(def)
	if err != nil {
		return err
	}
	var tree map[string]any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return err
	}
	for key, value := range flatten("", tree) {
		v.SetDefault(key, value)
	}
	// Credentials are omitted from the YAML when empty.
	for _, key := range []string{"acquisition.core_api_key", "acquisition.semantic_scholar_api_key", "render.cloud_token"} {
		v.SetDefault(key, "")
	}
	return nil
}

func flatten(prefix string, tree map[string]any) map[string]any {
	out := map[string]any{}
	for k, v := range tree {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if sub, ok := v.(map[string]any); ok {
			for sk, sv := range flatten(key, sub) {
				out[sk] = sv
			}
			continue
		}
		out[key] = v
	}
	return out
}

// loadConfig unmarshals the merged viper state over the defaults.
func loadConfig() (types.Config, error) {
	c := types.DefaultConfig()
	if err := viper.Unmarshal(&c); err != nil {
		return types.Config{}, fmt.Errorf("decoding configuration: %w", err)
	}
	return c, nil
}

// redact hides credentials before the configuration is printed.
func redact(c types.Config) types.Config {
	for _, s := range []*string{&c.Acquisition.CoreAPIKey, &c.Acquisition.SemanticScholarAPIKey, &c.Render.CloudToken} {
		if *s != "" {
			*s = redacted
		}
	}
	return c
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration as YAML",
	RunE: func(cmd *cobra.Command, args []string) error {
		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(redact(cfg))
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
}
