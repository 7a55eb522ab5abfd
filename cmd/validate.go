package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"firestige.xyz/sniffer/internal/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	Long: `Validate a configuration file without capturing.

Examples:
  sniffer config validate -f /etc/sniffer/config.yml`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runValidate(validateConfigFile, os.Stdout); err != nil {
			os.Exit(1)
		}
	},
}

var validateConfigFile string

func init() {
	validateCmd.Flags().StringVarP(&validateConfigFile, "file", "f", "",
		"configuration file to validate (required)")
	validateCmd.MarkFlagRequired("file")
}

func runValidate(path string, w io.Writer) error {
	cfg, err := config.Load(path)
	if err != nil {
		printConfigError(w, err)
		return err
	}

	fmt.Fprintf(w, "VALID: snap_len=%d queue_capacity=%d output=%s metrics=%t\n",
		cfg.Capture.SnapLen,
		cfg.Capture.QueueCapacity,
		cfg.Output.Format,
		cfg.Metrics.Enabled,
	)
	return nil
}
