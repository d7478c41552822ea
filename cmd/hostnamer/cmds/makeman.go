package cmd

// DCSO HOSTNAMER
// Copyright (c) 2017, 2021, DCSO GmbH

import (
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/cobra/doc"
)

func writeDocs(targetDir, format string) error {
	switch format {
	case "man":
		header := &doc.GenManHeader{
			Title:   "HOSTNAMER",
			Section: "1",
			Source:  "HOSTNAMER " + version,
			Manual:  "HOSTNAMER " + description,
		}
		// GenManTree descends into all subcommands
		return doc.GenManTree(rootCmd, header, targetDir)
	case "markdown":
		return doc.GenMarkdownTree(rootCmd, targetDir)
	default:
		return fmt.Errorf("unknown documentation format %q", format)
	}
}

// mmanCmd represents the makeman command
var mmanCmd = &cobra.Command{
	Use:   "makeman [options]",
	Short: "Create man pages or markdown documentation",
	Run: func(cmd *cobra.Command, args []string) {
		targetDir, err := cmd.Flags().GetString("dir")
		if err != nil {
			log.Fatal(err)
		}
		format, err := cmd.Flags().GetString("format")
		if err != nil {
			log.Fatal(err)
		}
		if err = writeDocs(targetDir, format); err != nil {
			log.Fatal(err)
		}
	},
}

func init() {
	rootCmd.AddCommand(mmanCmd)
	mmanCmd.Flags().StringP("dir", "d", ".", "target directory for documentation")
	mmanCmd.Flags().StringP("format", "f", "man", "documentation format (man, markdown)")
}
