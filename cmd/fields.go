package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/sigplace/internal/fields"
	"github.com/ziadkadry99/sigplace/internal/pdfdoc"
)

var fieldsCmd = &cobra.Command{
	Use:   "fields <pdf>",
	Short: "List a PDF's form fields as page percentages",
	Long:  `Prints every widget field of a PDF as JSON, with its position as percentages of the page (top-left origin), ready to use in a placement manifest.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		sigOnly, _ := cmd.Flags().GetBool("signatures")

		doc, err := pdfdoc.OpenFile(args[0])
		exitOnError(err)

		mapper := fields.Mapper{Source: doc, Pages: doc}
		out := []fields.Projection{}
		for i := 0; i < doc.PageCount(); i++ {
			projections, err := mapper.ForPage(cmd.Context(), i)
			exitOnError(err)
			for _, p := range projections {
				if sigOnly && p.Type != "Sig" {
					continue
				}
				out = append(out, p)
			}
		}

		if verbose {
			fmt.Fprintf(os.Stderr, "%d field(s) on %d page(s)\n", len(out), doc.PageCount())
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		exitOnError(enc.Encode(out))
	},
}

func init() {
	fieldsCmd.Flags().Bool("signatures", false, "only list signature fields")
	rootCmd.AddCommand(fieldsCmd)
}
