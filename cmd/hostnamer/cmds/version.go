package cmd

// DCSO HOSTNAMER
// Copyright (c) 2017, 2021, DCSO GmbH

import (
	"fmt"
	"io"
	"strings"

	"github.com/DCSO/hostnamer/util"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	version     = "0.3.0"
	description = "asynchronous reverse name resolver"
)

// lookupBackend describes the HostNamer the current configuration selects,
// e.g. "system resolver (negative TTL 1m0s)".
func lookupBackend() string {
	var backend string
	if server := viper.GetString("lookup.server"); server != "" {
		network := viper.GetString("lookup.network")
		if network == "" {
			network = "udp"
		}
		backend = fmt.Sprintf("PTR queries to %s/%s", server, network)
	} else if ttl := viper.GetDuration("lookup.negative-ttl"); ttl > 0 {
		backend = fmt.Sprintf("system resolver (negative TTL %s)", ttl)
	} else {
		backend = "system resolver"
	}

	filters := make([]string, 0)
	if viper.GetBool("lookup.private-only") {
		filters = append(filters, "private ranges only")
	}
	if ranges := viper.GetStringSlice("lookup.allow-ranges"); len(ranges) > 0 {
		filters = append(filters, "ranges "+strings.Join(ranges, ","))
	}
	if bloomFile := viper.GetString("lookup.exclude-bloom"); bloomFile != "" {
		filters = append(filters, "excluding "+bloomFile)
	}
	if len(filters) > 0 {
		backend += ", " + strings.Join(filters, ", ")
	}
	return backend
}

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "%s %s, %s\n", util.ToolName, version, description)
	fmt.Fprintf(w, "lookup: %s\n", lookupBackend())
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show HOSTNAMER version and configured lookup backend",
	Run: func(cmd *cobra.Command, args []string) {
		printVersion(cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
