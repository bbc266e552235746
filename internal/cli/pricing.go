package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var pricingCmd = &cobra.Command{
	Use:   "pricing",
	Short: "Inspect Bedrock model pricing",
}

var pricingListCmd = &cobra.Command{
	Use:   "list",
	Short: "List per-1000-token prices for all known models",
	RunE:  runPricingList,
}

func init() {
	rootCmd.AddCommand(pricingCmd)
	pricingCmd.AddCommand(pricingListCmd)
}

func runPricingList(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	table, err := initPricing(cfg)
	if err != nil {
		return err
	}

	fmt.Printf("Pricing data updated: %s\n\n", table.Updated())

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "MODEL\tINPUT ($/1K)\tOUTPUT ($/1K)\t\n")
	for _, e := range table.Entries() {
		marker := ""
		if e.Model == table.DefaultModel() {
			marker = "(default tier)"
		}
		fmt.Fprintf(w, "%s\t$%.5f\t$%.5f\t%s\n",
			e.Model, e.InputPerThousand, e.OutputPerThousand, marker)
	}
	w.Flush()

	return nil
}
