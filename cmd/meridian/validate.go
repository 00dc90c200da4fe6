package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"meridian-llm/meridian/pkg/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	Long: `Load and validate the configuration file without starting the gateway.

Every problem in the file is reported, not just the first one.

Examples:
  # Validate the default config file
  meridian validate

  # Validate a specific file
  meridian validate --config /etc/meridian/config.yaml`,
	RunE: validateConfig,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func validateConfig(cmd *cobra.Command, args []string) error {
	_, err := config.LoadWithEnvOverrides(cfgFile)
	if err != nil {
		var verrs config.ValidationErrors
		if errors.As(err, &verrs) {
			fmt.Printf("✗ %s has %d problem(s):\n", cfgFile, len(verrs))
			for _, verr := range verrs {
				fmt.Printf("  - %s: %s\n", verr.Field, verr.Message)
			}
			return fmt.Errorf("configuration invalid")
		}
		return err
	}

	fmt.Printf("✓ %s is valid\n", cfgFile)
	return nil
}
