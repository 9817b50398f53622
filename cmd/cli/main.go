package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/kurihiro0119/business-reports/internal/catalog"
	"github.com/kurihiro0119/business-reports/internal/config"
	"github.com/kurihiro0119/business-reports/internal/domain"
	"github.com/kurihiro0119/business-reports/internal/export"
	"github.com/kurihiro0119/business-reports/internal/logger"
	"github.com/kurihiro0119/business-reports/internal/report"
	"github.com/kurihiro0119/business-reports/internal/storage"
	"github.com/kurihiro0119/business-reports/internal/storage/postgres"
	"github.com/kurihiro0119/business-reports/internal/storage/sqlite"
	"github.com/kurihiro0119/business-reports/pkg/client"
)

var (
	cfgFile    string
	outputJSON bool
	remote     bool
	role       string

	evalFlags specFlags
	vizFlag   string

	reportName string
	schedule   string

	exportReport   string
	exportSnapshot string
	outFile        string

	seedValue int64
)

var rootCmd = &cobra.Command{
	Use:   "reports",
	Short: "Business reporting tool",
	Long: `A CLI tool for evaluating business report specifications.

Metrics are evaluated against the configured store (or a running API server
with --remote), and results can be saved, snapshotted and exported as CSV.`,
	SilenceUsage: true,
}

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "List metrics, dimensions and filter fields",
	Args:  cobra.NoArgs,
	RunE:  runCatalog,
}

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Evaluate a report specification",
	Long: `Evaluate one metric over a date range.

Filters use field:op:value, e.g. --filter customerId:in:c1,c2 --filter amount:gte:100`,
	Args: cobra.NoArgs,
	RunE: runEvaluate,
}

var saveCmd = &cobra.Command{
	Use:   "save",
	Short: "Save a report definition with its first result",
	Args:  cobra.NoArgs,
	RunE:  runSave,
}

var snapshotCmd = &cobra.Command{
	Use:   "snapshot [report-id]",
	Short: "Freeze the current result of a saved report",
	Args:  cobra.ExactArgs(1),
	RunE:  runSnapshot,
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a saved report or snapshot as CSV",
	Args:  cobra.NoArgs,
	RunE:  runExport,
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load a demo dataset into the configured store",
	Args:  cobra.NoArgs,
	RunE:  runSeed,
}

func addSpecFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&evalFlags.metric, "metric", "", "metric id (see 'reports catalog')")
	cmd.Flags().StringVar(&evalFlags.dimension, "dimension", "", "dimension id")
	cmd.Flags().StringVar(&evalFlags.breakdown, "breakdown", "", "breakdown id")
	cmd.Flags().StringVar(&evalFlags.rangeTok, "range", "30d", "relative range (today, 7d, 30d, qtd, ytd)")
	cmd.Flags().StringVar(&evalFlags.from, "from", "", "absolute start (YYYY-MM-DD or RFC 3339)")
	cmd.Flags().StringVar(&evalFlags.to, "to", "", "absolute end (YYYY-MM-DD or RFC 3339)")
	cmd.Flags().StringArrayVar(&evalFlags.filters, "filter", nil, "filter as field:op:value (repeatable)")
	cmd.Flags().IntVar(&evalFlags.limit, "limit", 0, "row cap (0 uses the metric default)")
	cmd.Flags().StringVar(&evalFlags.orderBy, "order-by", "", "value_desc, value_asc or label_asc")
	_ = cmd.MarkFlagRequired("metric")
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .env)")
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "output in JSON format")
	rootCmd.PersistentFlags().BoolVar(&remote, "remote", false, "talk to the API server at API_ENDPOINT instead of the local store")
	rootCmd.PersistentFlags().StringVar(&role, "role", "", "role used for redaction (default DEFAULT_ROLE)")

	addSpecFlags(evaluateCmd)
	evaluateCmd.Flags().StringVar(&vizFlag, "viz", "auto", "chart kind (auto, kpi, bar, line, pie, table)")

	addSpecFlags(saveCmd)
	saveCmd.Flags().StringVar(&reportName, "name", "", "report name")
	saveCmd.Flags().StringVar(&schedule, "schedule", "", "optional schedule expression")
	_ = saveCmd.MarkFlagRequired("name")

	exportCmd.Flags().StringVar(&exportReport, "report", "", "report id")
	exportCmd.Flags().StringVar(&exportSnapshot, "snapshot", "", "snapshot id")
	exportCmd.Flags().StringVar(&outFile, "out", "", "output file (default stdout)")
	exportCmd.MarkFlagsMutuallyExclusive("report", "snapshot")
	exportCmd.MarkFlagsOneRequired("report", "snapshot")

	seedCmd.Flags().Int64Var(&seedValue, "seed", 1, "random seed for the demo dataset")

	rootCmd.AddCommand(catalogCmd, evaluateCmd, saveCmd, snapshotCmd, exportCmd, seedCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// env is everything a command needs
type env struct {
	cfg     *config.Config
	log     *logrus.Logger
	catalog *catalog.Catalog
	store   storage.Store
	service *report.Service
}

func (e *env) Close() {
	if e.store != nil {
		_ = e.store.Close()
	}
}

func (e *env) role() string {
	if role != "" {
		return role
	}
	return e.cfg.DefaultRole
}

// setup loads config and the catalog; withStore also opens the store and builds the service
func setup(withStore bool) (*env, error) {
	var files []string
	if cfgFile != "" {
		files = append(files, cfgFile)
	}
	cfg, err := config.Load(files...)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	e := &env{
		cfg: cfg,
		log: logger.New(logger.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, File: cfg.LogFile}),
	}

	e.catalog = catalog.Default()
	if cfg.CatalogPath != "" {
		if e.catalog, err = catalog.LoadFile(cfg.CatalogPath); err != nil {
			return nil, fmt.Errorf("failed to load catalog: %w", err)
		}
	}

	if !withStore {
		return e, nil
	}
	e.store, err = getStorage(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	e.service = report.NewService(e.catalog, e.store, e.log)
	return e, nil
}

func getStorage(cfg *config.Config) (storage.Store, error) {
	switch cfg.StorageType {
	case "postgres":
		return postgres.NewPostgresStorage(cfg.PostgresURL)
	default:
		return sqlite.NewSQLiteStorage(cfg.SQLitePath)
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runCatalog(cmd *cobra.Command, args []string) error {
	e, err := setup(false)
	if err != nil {
		return err
	}
	defer e.Close()

	if outputJSON {
		return printJSON(map[string]any{
			"metrics":      e.catalog.ListMetrics(),
			"dimensions":   e.catalog.ListDimensions(),
			"breakdowns":   e.catalog.ListBreakdowns(),
			"filterFields": e.catalog.ListFilterFields(),
		})
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Metric", "Label", "Domain", "Default Viz"})
	for _, m := range e.catalog.ListMetrics() {
		table.Append([]string{string(m.ID), m.Label, string(m.Domain), string(m.DefaultViz)})
	}
	table.Render()

	table = tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Filter Field", "Label", "Type"})
	for _, f := range e.catalog.ListFilterFields() {
		table.Append([]string{f.Field, f.Label, string(f.Type)})
	}
	table.Render()

	return nil
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	e, err := setup(!remote)
	if err != nil {
		return err
	}
	defer e.Close()

	spec, err := evalFlags.build(e.catalog)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	var eval *report.Evaluation
	if remote {
		eval, err = client.NewClient(e.cfg.APIEndpoint).Evaluate(ctx, spec, domain.Viz(vizFlag))
	} else {
		eval, err = e.service.Evaluate(ctx, spec, domain.Viz(vizFlag))
	}
	if err != nil {
		return fmt.Errorf("failed to evaluate: %w", err)
	}

	if outputJSON {
		return printJSON(eval)
	}

	result := eval.Result
	fmt.Printf("Metric: %s\n", result.Metric)
	if !result.Range.From.IsZero() {
		fmt.Printf("Range: %s to %s\n", result.Range.From.Format(time.RFC3339), result.Range.To.Format(time.RFC3339))
	}
	fmt.Printf("Viz: %s (recommended %s)\n", result.Meta.Viz, result.Meta.RecommendedViz)
	fmt.Printf("Rows: %d\n\n", result.Meta.RowCount)

	if len(result.Rows) == 0 {
		fmt.Println("No data")
		return nil
	}
	export.ExportRows(result.Rows, e.role()).WriteTable(os.Stdout)
	return nil
}

func runSave(cmd *cobra.Command, args []string) error {
	e, err := setup(!remote)
	if err != nil {
		return err
	}
	defer e.Close()

	spec, err := evalFlags.build(e.catalog)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	var rep *domain.ReportDefinition
	if remote {
		rep, err = client.NewClient(e.cfg.APIEndpoint).CreateReport(ctx, reportName, spec, schedule)
	} else {
		rep, err = e.service.CreateReport(ctx, reportName, spec, schedule)
	}
	if err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}

	if outputJSON {
		return printJSON(rep)
	}
	fmt.Printf("Saved report %s (%s)\n", rep.ID, rep.Name)
	return nil
}

func runSnapshot(cmd *cobra.Command, args []string) error {
	e, err := setup(!remote)
	if err != nil {
		return err
	}
	defer e.Close()

	ctx := cmd.Context()
	var snap *domain.ReportSnapshot
	if remote {
		snap, err = client.NewClient(e.cfg.APIEndpoint).CreateSnapshot(ctx, args[0])
	} else {
		snap, err = e.service.CreateSnapshot(ctx, args[0])
	}
	if err != nil {
		return fmt.Errorf("failed to create snapshot: %w", err)
	}

	if outputJSON {
		return printJSON(snap)
	}
	fmt.Printf("Created snapshot %s of report %s at %s\n", snap.ID, snap.ReportID, snap.Timestamp.Format(time.RFC3339))
	return nil
}

func runExport(cmd *cobra.Command, args []string) error {
	e, err := setup(!remote)
	if err != nil {
		return err
	}
	defer e.Close()

	var out io.Writer = os.Stdout
	if outFile != "" {
		f, err := os.Create(outFile)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", outFile, err)
		}
		defer f.Close()
		out = f
	}

	ctx := cmd.Context()
	if remote {
		target := client.ExportTarget{ReportID: exportReport, SnapshotID: exportSnapshot}
		if err := client.NewClient(e.cfg.APIEndpoint).Export(ctx, target, e.role(), out); err != nil {
			return fmt.Errorf("failed to export: %w", err)
		}
		return nil
	}

	var doc *export.Document
	if exportSnapshot != "" {
		doc, err = e.service.ExportSnapshot(ctx, exportSnapshot, e.role())
	} else {
		doc, err = e.service.ExportReport(ctx, exportReport, e.role())
	}
	if err != nil {
		return fmt.Errorf("failed to export: %w", err)
	}
	return doc.WriteCSV(out)
}

func runSeed(cmd *cobra.Command, args []string) error {
	e, err := setup(true)
	if err != nil {
		return err
	}
	defer e.Close()

	data := storage.NewDemoData(time.Now().UTC(), seedValue)
	ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
	defer cancel()

	fmt.Println("Seeding demo data...")
	if err := storage.Seed(ctx, e.store, data); err != nil {
		return fmt.Errorf("failed to seed: %w", err)
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Dataset", "Records"})
	table.Append([]string{"Entities", fmt.Sprintf("%d", len(data.Entities))})
	table.Append([]string{"Sales", fmt.Sprintf("%d", len(data.Sales))})
	table.Append([]string{"Receivables", fmt.Sprintf("%d", len(data.Receivables))})
	table.Append([]string{"Inventory", fmt.Sprintf("%d", len(data.Inventory))})
	table.Append([]string{"Shipments", fmt.Sprintf("%d", len(data.Shipments))})
	table.Render()

	fmt.Println("Seeding complete!")
	return nil
}
