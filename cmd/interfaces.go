package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"firestige.xyz/sniffer/internal/capture"
)

var interfacesCmd = &cobra.Command{
	Use:   "interfaces",
	Short: "List capturable interfaces",
	Long: `List local interfaces with their state and addresses.

Pass a NAME to "sniffer capture -i NAME", or use --all to capture on every
address of every interface that is up.`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runInterfaces(capture.SystemInterfaces{}, os.Stdout); err != nil {
			exitWithError("failed to list interfaces", err)
		}
	},
}

func runInterfaces(src capture.InterfaceSource, w io.Writer) error {
	ifaces, err := src.Interfaces()
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "%-5s %-16s %-10s %s\n", "INDEX", "NAME", "STATE", "ADDRESSES")
	fmt.Fprintf(w, "%-5s %-16s %-10s %s\n", "-", "(all)", "-", "every address below on an up interface")
	for _, ifi := range ifaces {
		state := "down"
		if ifi.Up {
			state = "up"
		}
		if ifi.Loopback {
			state += ",lo"
		}

		addrs := make([]string, len(ifi.Addrs))
		for i, a := range ifi.Addrs {
			addrs[i] = a.String()
		}
		fmt.Fprintf(w, "%-5d %-16s %-10s %s\n", ifi.Index, ifi.Name, state, strings.Join(addrs, ", "))
	}
	return nil
}
