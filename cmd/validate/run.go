package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/lib/pq"
	"github.com/spf13/cobra"

	"github.com/liamcoop/ilrvalidation/catalogs"
	"github.com/liamcoop/ilrvalidation/config"
	"github.com/liamcoop/ilrvalidation/external"
	"github.com/liamcoop/ilrvalidation/internal/logger"
	"github.com/liamcoop/ilrvalidation/lookup"
	"github.com/liamcoop/ilrvalidation/model"
	"github.com/liamcoop/ilrvalidation/pipeline"
	"github.com/liamcoop/ilrvalidation/report"
	"github.com/liamcoop/ilrvalidation/rules"
	"github.com/liamcoop/ilrvalidation/worker"
)

var runFlags struct {
	reference      string
	catalogVersion string
	output         string
	reportFaults   bool
}

var runCmd = &cobra.Command{
	Use:   "run <submission.json>",
	Short: "Validate a submission and write its report",
	Long: `Validate every learner of a submission against the rule catalog.

The submission is the JSON form of the ILR message. Validation errors and
warnings are written as CSV to <submission>.vs.csv unless --output is given.

Examples:
  # Validate against a reference data file
  ilrvalidate run submission.json --reference reference.yaml

  # Report isolated rule faults as warnings
  ilrvalidate run submission.json --reference reference.yaml --report-rule-faults`,
	Args: cobra.ExactArgs(1),
	RunE: runValidation,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runFlags.reference, "reference", "", "reference data YAML file (overrides reference.file_path)")
	runCmd.Flags().StringVar(&runFlags.catalogVersion, "catalog-version", "", "catalog version (defaults to catalog.default_version)")
	runCmd.Flags().StringVarP(&runFlags.output, "output", "o", "", "report path (defaults to <submission>.vs.csv)")
	runCmd.Flags().BoolVar(&runFlags.reportFaults, "report-rule-faults", false, "add a warning for every isolated rule fault")
}

func runValidation(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadWithEnvOverrides(cfgFile)
	if err != nil {
		return err
	}
	if runFlags.reference != "" {
		cfg.Reference.FilePath = runFlags.reference
	}
	if runFlags.catalogVersion != "" {
		cfg.Catalog.DefaultVersion = runFlags.catalogVersion
	}
	if runFlags.reportFaults {
		cfg.Engine.ReportRuleFaults = true
	}
	if verbose {
		logger.SetLevel(logger.LevelDebug)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, cfg.Engine.RunTimeout)
	defer cancel()

	input := args[0]
	output := runFlags.output
	if output == "" {
		output = report.OutputPath(input)
	}

	errs, err := validateFile(ctx, cfg, input, output)
	if err != nil {
		return err
	}
	return printSummary(cmd.OutOrStdout(), output, errs)
}

// validateFile validates the submission at input and writes the report to output
func validateFile(ctx context.Context, cfg *config.Config, input, output string) ([]rules.ValidationError, error) {
	message, err := readMessage(input)
	if err != nil {
		return nil, err
	}

	sources, store, closeDB, err := openReference(cfg)
	if err != nil {
		return nil, err
	}
	defer closeDB()

	lookups := lookup.NewInternalProvider()
	manager, err := catalogs.NewManager(store, lookups, logger.Logger)
	if err != nil {
		return nil, err
	}
	if err := manager.Load(cfg.Catalog.DefaultVersion); err != nil {
		return nil, err
	}

	severities, err := cfg.SeverityMap()
	if err != nil {
		return nil, err
	}
	local, err := worker.NewLocalWorker(manager, cfg.RulesEngineConfig(),
		worker.WithSeverities(severities),
		worker.WithLogger(logger.Logger),
	)
	if err != nil {
		return nil, err
	}
	p, err := pipeline.New(lookups, external.NewPopulationService(sources, logger.Logger, nil), local)
	if err != nil {
		return nil, err
	}

	errs, err := p.Validate(ctx, pipeline.Request{
		Run:            rules.NewRunContext(input, output),
		CatalogVersion: cfg.Catalog.DefaultVersion,
		FileName:       input,
		Message:        message,
	})
	if err != nil {
		return nil, err
	}

	if err := report.WriteFile(output, errs); err != nil {
		return nil, err
	}
	return errs, nil
}

func readMessage(path string) (*model.Message, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read submission: %w", err)
	}
	var message model.Message
	if err := json.Unmarshal(raw, &message); err != nil {
		return nil, fmt.Errorf("failed to parse submission %s: %w", path, err)
	}
	return &message, nil
}

// openReference picks the reference data and rule stores: a reference file
// when one is named, PostgreSQL otherwise
func openReference(cfg *config.Config) (external.Sources, rules.ExpressionStore, func(), error) {
	if cfg.Reference.FilePath != "" {
		sources, err := external.FileSources(cfg.Reference.FilePath)
		if err != nil {
			return external.Sources{}, nil, nil, err
		}
		return sources, rules.NewInMemoryExpressionStore(), func() {}, nil
	}

	if cfg.Database.URL != "" {
		db, err := sql.Open("postgres", cfg.Database.URL)
		if err != nil {
			return external.Sources{}, nil, nil, fmt.Errorf("failed to open database: %w", err)
		}
		if err := db.Ping(); err != nil {
			db.Close()
			return external.Sources{}, nil, nil, fmt.Errorf("failed to ping database: %w", err)
		}
		return external.NewPostgresStore(db).Sources(), rules.NewPostgresExpressionStore(db), func() { db.Close() }, nil
	}

	return external.Sources{}, nil, nil, errors.New("no reference data: use --reference or set ILRV_DATABASE_URL")
}

func printSummary(w io.Writer, output string, errs []rules.ValidationError) error {
	var errorCount, warningCount int
	for _, e := range errs {
		if e.Severity == rules.SeverityWarning {
			warningCount++
		} else {
			errorCount++
		}
	}
	_, err := fmt.Fprintf(w, "%d errors, %d warnings\nreport written to %s\n", errorCount, warningCount, output)
	return err
}
