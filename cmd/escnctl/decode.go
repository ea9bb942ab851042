package main

import (
	"github.com/spf13/cobra"

	"github.com/lzjever/escn/internal/core"
)

var decodeCmd = &cobra.Command{
	Use:   "decode <escn>",
	Short: "Split an ESCN into its fields",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		d, err := core.Decode(args[0])
		exitOnErr(err)
		printResult(d)
	},
}

func init() {
	rootCmd.AddCommand(decodeCmd)
}
