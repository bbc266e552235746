package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List saved report snapshots",
	RunE:  runHistoryList,
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print the full document of a saved report",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.Flags().Int("limit", 20, "Maximum number of snapshots to list")
}

func runHistoryList(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	limit, _ := cmd.Flags().GetInt("limit")

	store, err := initStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	snaps, err := store.ListReports(cmd.Context(), limit)
	if err != nil {
		return fmt.Errorf("list reports: %w", err)
	}

	if len(snaps) == 0 {
		fmt.Println("No saved reports. Use 'bedrockmon report --save' to keep one.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "ID\tGENERATED\tWINDOW\tREGION\tINVOCATIONS\tCOST\n")
	for _, s := range snaps {
		fmt.Fprintf(w, "%s\t%s\t%dh\t%s\t%d\t$%.4f\n",
			s.ID, s.GeneratedAt.Format("2006-01-02 15:04"),
			s.WindowHours, s.Region, s.TotalInvocations, s.EstimatedCost,
		)
	}
	w.Flush()

	return nil
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := initStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	snap, err := store.GetReport(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	fmt.Println(snap.Document)
	return nil
}
