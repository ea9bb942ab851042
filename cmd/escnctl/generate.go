package main

import (
	"github.com/spf13/cobra"

	"github.com/lzjever/escn/internal/core"
)

type generateRequest struct {
	Prefix string `json:"prefix,omitempty"`
	PIC    string `json:"pic,omitempty"`
	Count  int    `json:"count"`
}

var (
	genPrefix string
	genPIC    string
	genCount  int
	genLocal  bool
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Mint ESCNs",
	Long: `Mint ESCNs through escn-api. Prefix and PIC default to the issuing
institution configured on the server. With --local the ESCNs are minted in
this process and --pic is required.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if genLocal {
			escns, err := generateLocal(core.NewGenerator(), genPrefix, genPIC, genCount)
			exitOnErr(err)
			printResult(escns)
			return
		}

		var resp struct {
			ESCNs []string `json:"escns"`
		}
		err := NewClient(apiURL).Post("/v1/escns", generateRequest{
			Prefix: genPrefix,
			PIC:    genPIC,
			Count:  genCount,
		}, &resp, nil)
		exitOnErr(err)
		printResult(resp.ESCNs)
	},
}

func generateLocal(gen *core.Generator, prefix, pic string, n int) ([]string, error) {
	if n < 1 {
		n = 1
	}
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		escn, err := gen.Generate(prefix, pic)
		if err != nil {
			return nil, err
		}
		out = append(out, escn)
	}
	return out, nil
}

func init() {
	generateCmd.Flags().StringVar(&genPrefix, "prefix", "", "Institution prefix (up to 3 digits)")
	generateCmd.Flags().StringVar(&genPIC, "pic", "", "Participant identification code (9 digits)")
	generateCmd.Flags().IntVarP(&genCount, "count", "n", 1, "Number of ESCNs")
	generateCmd.Flags().BoolVar(&genLocal, "local", false, "Mint in process instead of calling escn-api")
	rootCmd.AddCommand(generateCmd)
}
