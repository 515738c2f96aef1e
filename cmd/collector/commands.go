package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mamadbah2/simba/internal/config"
	"github.com/mamadbah2/simba/internal/repository/mongodb"
	"github.com/mamadbah2/simba/internal/service/collector"
	"github.com/mamadbah2/simba/pkg/clients/simba"
	"github.com/mamadbah2/simba/pkg/logger"
)

const firstCollectedYear = 2021

type options struct {
	envFile   string
	outputDir string
	verbose   bool
}

// app carries the dependencies built once flags are parsed.
type app struct {
	opts    options
	cfg     *config.Config
	logger  *zap.Logger
	svc     *collector.Service
	cleanup func()
}

// run executes the command line and releases what setup opened, including
// when a command fails.
func run(ctx context.Context, args []string) error {
	root, a := rootCommand()
	defer a.close()

	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

func rootCommand() (*cobra.Command, *app) {
	a := &app{}

	root := &cobra.Command{
		Use:           "collector",
		Short:         "Collect SIMBA wildlife rescue occurrences into dashboard data files",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd.Context())
		},
	}

	root.PersistentFlags().StringVar(&a.opts.envFile, "env-file", "", "Path to a .env file")
	root.PersistentFlags().StringVarP(&a.opts.outputDir, "output-dir", "o", "", "Directory receiving data files (overrides COLLECTOR_OUTPUT_DIR)")
	root.PersistentFlags().BoolVarP(&a.opts.verbose, "verbose", "v", false, "Enable debug logging")

	root.AddCommand(collectCommand(a), allCommand(a), indexCommand(a))
	return root, a
}

func collectCommand(a *app) *cobra.Command {
	var municipality, startDate, filename string

	cmd := &cobra.Command{
		Use:   "collect",
		Short: "Collect occurrences for one municipality since a start date",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if municipality == "" {
				municipality = a.cfg.Data.DefaultCity
			}
			if startDate == "" {
				startDate = fmt.Sprintf("%d-01-01", time.Now().Year())
			}

			ds, err := a.svc.Collect(cmd.Context(), municipality, startDate)
			if err != nil {
				return err
			}
			path, err := a.svc.Save(cmd.Context(), ds, filename)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d occurrences saved to %s\n", ds.Count, path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&municipality, "municipality", "m", "", "Municipality to filter by (default DEFAULT_CITY)")
	cmd.Flags().StringVarP(&startDate, "start-date", "s", "", "Start date in YYYY-MM-DD format (default January 1st of this year)")
	cmd.Flags().StringVarP(&filename, "file", "f", "", "Output filename (default derived from the collected dates)")
	return cmd
}

func allCommand(a *app) *cobra.Command {
	var cities, years []string
	var skipIndex bool

	cmd := &cobra.Command{
		Use:   "all",
		Short: "Collect one file per city and year, then refresh the index",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if len(cities) == 0 {
				cities = a.cfg.Collector.Cities
			}
			if len(years) == 0 {
				years = defaultYears(time.Now())
			}
			if err := validateYears(years); err != nil {
				return err
			}

			summary, err := a.svc.CollectYears(cmd.Context(), cities, years)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Successful: %d/%d\n", summary.Successful, summary.Total)
			for _, f := range summary.Failed {
				fmt.Fprintf(cmd.OutOrStdout(), "Failed: %s\n", f)
			}

			if skipIndex {
				return nil
			}
			index, err := a.svc.UpdateIndex()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Index lists %d files\n", index.Count)
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&cities, "cities", nil, "Cities to collect (default COLLECTOR_CITIES)")
	cmd.Flags().StringSliceVar(&years, "years", nil, fmt.Sprintf("Years to collect (default %d to this year)", firstCollectedYear))
	cmd.Flags().BoolVar(&skipIndex, "skip-index", false, "Do not rewrite the files index")
	return cmd
}

func indexCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "index",
		Short: "Rewrite the files index from the output directory",
		RunE: func(cmd *cobra.Command, _ []string) error {
			index, err := a.svc.UpdateIndex()
			if err != nil {
				return err
			}
			for _, f := range index.Files {
				fmt.Fprintf(cmd.OutOrStdout(), "  - %s\n", f)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Index updated with %d files\n", index.Count)
			return nil
		},
	}
}

func (a *app) setup(ctx context.Context) error {
	cfg, err := config.Load(a.opts.envFile)
	if err != nil {
		return err
	}
	if a.opts.outputDir != "" {
		cfg.Collector.OutputDir = a.opts.outputDir
	}

	log, err := logger.NewConsole(a.opts.verbose)
	if err != nil {
		return err
	}

	var archive mongodb.Repository
	a.cleanup = func() { _ = log.Sync() }
	if cfg.MongoDB.Enabled() {
		mongoRepo, err := mongodb.NewMongoDBRepository(ctx, cfg.MongoDB.URI, cfg.MongoDB.DBName)
		if err != nil {
			return err
		}
		archive = mongoRepo
		a.cleanup = func() {
			if err := mongoRepo.Close(context.Background()); err != nil {
				log.Error("failed to close mongodb connection", zap.Error(err))
			}
			_ = log.Sync()
		}
	}

	a.cfg = cfg
	a.logger = log
	a.svc = collector.NewService(simba.NewClient(cfg.Collector), cfg.Collector, archive, logger.Named(log, "collector"))
	return nil
}

func (a *app) close() {
	if a.cleanup != nil {
		a.cleanup()
		a.cleanup = nil
	}
}

func defaultYears(now time.Time) []string {
	var years []string
	for y := firstCollectedYear; y <= now.Year(); y++ {
		years = append(years, strconv.Itoa(y))
	}
	return years
}

func validateYears(years []string) error {
	for _, y := range years {
		if n, err := strconv.Atoi(y); err != nil || n < 1000 || n > 9999 {
			return fmt.Errorf("invalid year %q", y)
		}
	}
	return nil
}
