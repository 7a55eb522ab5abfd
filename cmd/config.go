package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Long: `Print the configuration after defaults and SNIFFER_* environment
overrides are applied, as YAML.`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runConfigShow(os.Stdout); err != nil {
			exitWithError("failed to show config", err)
		}
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(validateCmd)
}

func runConfigShow(w io.Writer) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	out, err := cfg.YAML()
	if err != nil {
		return err
	}
	_, err = w.Write(out)
	return err
}

func printConfigError(w io.Writer, err error) {
	fmt.Fprintf(w, "INVALID: %v\n", err)
}
