package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/bedrock-tools/bedrockmon/internal/awsutil"
	"github.com/bedrock-tools/bedrockmon/internal/config"
	"github.com/bedrock-tools/bedrockmon/pkg/metrics"
	"github.com/bedrock-tools/bedrockmon/pkg/report"
	"github.com/bedrock-tools/bedrockmon/pkg/storage"
)

// maxReportHours caps the reporting window at one year.
const maxReportHours = 8760

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Generate a Bedrock usage report",
	Long: `Generate a usage report with cost analysis, performance metrics, and
monthly projections from CloudWatch metrics.`,
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.Flags().Int("hours", 24, "Reporting window length in hours")
	reportCmd.Flags().String("region", "", "AWS region (default: AWS_DEFAULT_REGION or config)")
	reportCmd.Flags().StringP("output", "o", "json", "Output format (json, text)")
	reportCmd.Flags().Bool("validate-only", false, "Validate arguments without generating a report")
	reportCmd.Flags().Bool("save", false, "Save the report snapshot to the history database")
}

// validateReportArgs returns every violation, not just the first, so users
// can fix all of them in one pass.
func validateReportArgs(hours int, region string) []string {
	var errs []string

	if hours <= 0 {
		errs = append(errs, "hours must be a positive integer")
	} else if hours > maxReportHours {
		errs = append(errs, "hours cannot exceed 8760 (1 year)")
	}

	if region != "" && !awsutil.ValidRegion(region) {
		errs = append(errs, fmt.Sprintf("invalid AWS region format: %s", region))
	}

	return errs
}

func runReport(cmd *cobra.Command, _ []string) error {
	hours, _ := cmd.Flags().GetInt("hours")
	regionFlag, _ := cmd.Flags().GetString("region")
	output, _ := cmd.Flags().GetString("output")
	validateOnly, _ := cmd.Flags().GetBool("validate-only")
	save, _ := cmd.Flags().GetBool("save")

	// All validation happens before any AWS call.
	if violations := validateReportArgs(hours, regionFlag); len(violations) > 0 {
		fmt.Fprintln(os.Stderr, "Validation errors:")
		for _, v := range violations {
			fmt.Fprintf(os.Stderr, "  - %s\n", v)
		}
		return errors.New("argument validation failed")
	}

	if validateOnly {
		fmt.Println("Arguments validation passed")
		return nil
	}

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := newLogger(cfg)

	table, err := initPricing(cfg)
	if err != nil {
		return fmt.Errorf("load pricing: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	region := awsutil.ResolveRegion(regionFlag, cfg.Dashboard.Region)
	source := metrics.NewCloudWatchSource(region, cfg.Storage.CloudWatchLogGroup)
	if err := source.Ping(ctx); err != nil {
		return err
	}

	end := time.Now().UTC()
	start := end.Add(-time.Duration(hours) * time.Hour)
	logger.Info("generating report",
		"hours", hours,
		"region", region,
		"from", start.Format(time.RFC3339),
		"to", end.Format(time.RFC3339),
	)

	usage := report.NewAggregator(source, logger).Aggregate(ctx, start, end)
	if ctx.Err() != nil {
		return errors.New("report generation cancelled by user")
	}

	rep, err := report.NewBuilder(table).Build(usage, start, end, hours)
	if err != nil {
		return fmt.Errorf("build report: %w", err)
	}

	formatted, err := report.Format(rep, output)
	if err != nil {
		return err
	}
	fmt.Println(formatted)

	if save {
		if err := saveSnapshot(ctx, cfg, rep, region); err != nil {
			return fmt.Errorf("save report: %w", err)
		}
	}

	logger.Info("report complete",
		"hours", hours,
		"estimated_cost", rep.Summary.EstimatedCost,
	)
	return nil
}

func saveSnapshot(ctx context.Context, cfg *config.Config, rep *report.UsageReport, region string) error {
	store, err := initStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	doc, err := json.Marshal(rep)
	if err != nil {
		return fmt.Errorf("encode report document: %w", err)
	}

	snap := &storage.Snapshot{
		GeneratedAt:      rep.Period.EndTime,
		WindowHours:      rep.Period.DurationHours,
		Region:           region,
		TotalInvocations: rep.Summary.TotalInvocations,
		EstimatedCost:    rep.Summary.EstimatedCost,
		Document:         string(doc),
	}
	if err := store.SaveReport(ctx, snap); err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Report saved: %s\n", snap.ID)
	return nil
}
