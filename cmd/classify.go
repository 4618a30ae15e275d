package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/shouni/go-x-scraper/pkg/classify"
	"github.com/shouni/go-x-scraper/pkg/types"
)

var classifyJSON bool

var classifyCmd = &cobra.Command{
	Use:   "classify [URL...]",
	Short: "URLの種別を判定します (ネットワークは使用しません)",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		results := make([]types.ClassifiedURL, 0, len(args))
		for _, arg := range args {
			results = append(results, classify.Classify(arg))
		}
		if classifyJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(results)
		}
		return writeClassification(cmd.OutOrStdout(), results)
	},
}

func init() {
	classifyCmd.Flags().BoolVar(&classifyJSON, "json", false, "結果をJSONで出力します")
}

func writeClassification(w io.Writer, results []types.ClassifiedURL) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CATEGORY\tIDENTIFIER\tURL")
	for _, c := range results {
		id := c.Identifier
		if !c.HasIdentifier() {
			id = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", c.Category, id, c.OriginalURL)
	}
	return tw.Flush()
}
