package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "sunnysips",
		Short:        "Rank cafés by how much sun their outdoor seating gets",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(rankCmd())
	rootCmd.AddCommand(outlookCmd())
	rootCmd.AddCommand(snapshotCmd())
	rootCmd.AddCommand(inspectCmd())
	rootCmd.AddCommand(validateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func projectArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return ""
}

func serveCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve [project-path]",
		Short: "Start the HTTP API",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(projectArg(args), port, cmd.Flags().Changed("port"))
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 8000, "HTTP server port (overrides SUNNYSIPS_PORT)")
	return cmd
}

func rankCmd() *cobra.Command {
	var opts rankOptions

	cmd := &cobra.Command{
		Use:   "rank [project-path]",
		Short: "Rank cafés at one instant",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runRank(projectArg(args), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.time, "time", "t", "", "instant to rank at (RFC 3339, default now)")
	cmd.Flags().StringVarP(&opts.area, "area", "a", "", "named area to restrict to")
	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 20, "maximum cafés to list")
	cmd.Flags().StringVar(&opts.only, "only", "", "bucket filter: sunny, partial or shaded")
	cmd.Flags().StringVar(&opts.neighborhood, "neighborhood", "", "neighborhood filter")
	cmd.Flags().Float64Var(&opts.minScore, "min-score", 0, "minimum sunny score")
	cmd.Flags().Float64Var(&opts.cloud, "cloud", -1, "cloud cover percent (default: from weather providers)")
	cmd.Flags().BoolVar(&opts.json, "json", false, "print JSON instead of a table")
	return cmd
}

func outlookCmd() *cobra.Command {
	var opts outlookOptions

	cmd := &cobra.Command{
		Use:   "outlook <cafe-id> [project-path]",
		Short: "Show the hourly sun outlook and windows of one café",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(_ *cobra.Command, args []string) error {
			return runOutlook(projectArg(args[1:]), args[0], opts)
		},
	}

	cmd.Flags().IntVarP(&opts.days, "days", "d", 1, "days to cover (1-5)")
	cmd.Flags().IntVar(&opts.minDuration, "min-duration", 30, "shortest window to list, in minutes")
	cmd.Flags().BoolVar(&opts.json, "json", false, "print JSON instead of a table")
	return cmd
}

func snapshotCmd() *cobra.Command {
	var opts snapshotOptions

	cmd := &cobra.Command{
		Use:   "snapshot [project-path]",
		Short: "Write per-area ranking documents for static publishing",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runSnapshot(projectArg(args), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.time, "time", "t", "", "first slot (RFC 3339, default now)")
	cmd.Flags().IntVar(&opts.hoursAhead, "hours-ahead", 0, "extra hourly slots after the first")
	cmd.Flags().StringSliceVarP(&opts.areas, "area", "a", nil, "areas to build (default: all)")
	cmd.Flags().IntVar(&opts.top, "top", 0, "cafés listed per slot (default 2000)")
	cmd.Flags().StringVarP(&opts.out, "out", "o", "snapshots", "output directory")
	cmd.Flags().BoolVar(&opts.publish, "publish", false, "also publish to Kafka (needs KAFKA_BROKERS)")
	return cmd
}

func inspectCmd() *cobra.Command {
	var sample int

	cmd := &cobra.Command{
		Use:   "inspect [project-path]",
		Short: "Report height coverage of the building dataset",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runInspect(projectArg(args), sample)
		},
	}

	cmd.Flags().IntVar(&sample, "sample", 5, "examples to show with and without height")
	return cmd
}

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [project-path]",
		Short: "Validate the city file and its café and building data",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runValidate(projectArg(args))
		},
	}
}
