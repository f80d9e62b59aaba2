package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/pflag"

	"graphql-forms/internal/config"
	"graphql-forms/internal/form"
	"graphql-forms/internal/gqlclient"
	"graphql-forms/internal/logging"
	"graphql-forms/internal/observability"
	"graphql-forms/internal/schemacache"
	"graphql-forms/internal/selection"
)

var (
	// Version is set at build time via -ldflags "-X main.Version=...".
	Version = "dev"
	Commit  = "none"
)

const usage = `Usage: formtool [flags] <command> [args]

Commands:
  types                 List entity types exposed by the backend
  describe <Type>       Show columns, selection set, and sort paths for a type
  list <Type>           Run the list query and print a table
  get <Type> <id>       Fetch one entity by id
  delete <Type> <id>    Delete an entity by id
`

func main() {
	if err := run(); err != nil {
		slog.Error("formtool error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run() error {
	pflag.Bool("version", false, "Print version and exit")
	pflag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		pflag.PrintDefaults()
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if showVersion, _ := pflag.CommandLine.GetBool("version"); showVersion {
		fmt.Printf("formtool %s (%s)\n", Version, Commit)
		return nil
	}

	args := pflag.Args()
	if len(args) == 0 {
		pflag.Usage()
		return fmt.Errorf("no command given")
	}

	validationResult := cfg.Validate()
	for _, warn := range validationResult.Warnings {
		slog.Warn("configuration warning",
			slog.String("field", warn.Field),
			slog.String("message", warn.Message),
			slog.String("hint", warn.Hint),
		)
	}
	if validationResult.HasErrors() {
		for _, err := range validationResult.Errors {
			slog.Error("configuration error",
				slog.String("field", err.Field),
				slog.String("message", err.Message),
				slog.String("hint", err.Hint),
			)
		}
		return fmt.Errorf("configuration validation failed")
	}

	logger := logging.NewLogger(cfg.Logging)
	slog.SetDefault(logger.Logger)

	ctx := context.Background()
	engine, schemas, err := buildEngine(ctx, cfg, logger)
	if err != nil {
		return err
	}

	return dispatch(ctx, engine, schemas, args)
}

func buildEngine(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*form.Engine, *schemacache.Manager, error) {
	client, err := gqlclient.New(gqlclient.Config{
		Endpoint:    cfg.Endpoint.URL,
		Headers:     cfg.Endpoint.Headers,
		BearerToken: cfg.Auth.BearerToken,
		TokenSource: cfg.Auth.TokenSource(ctx),
		Timeout:     cfg.Endpoint.Timeout,
		Logger:      logger.Logger,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create GraphQL client: %w", err)
	}

	var metrics *observability.Metrics
	if cfg.Metrics.Enabled {
		metrics = observability.NewMetrics(prometheus.NewRegistry())
	}

	schemas, err := schemacache.NewManager(ctx, schemacache.Config{
		Executor:         client,
		MinInterval:      cfg.Schema.RefreshMinInterval,
		MaxInterval:      cfg.Schema.RefreshMaxInterval,
		PlanCacheSize:    cfg.Schema.PlanCacheSize,
		SelectionOptions: selection.Options{DateLayout: cfg.Display.DateLayout},
		Logger:           logger,
		Metrics:          metrics,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fetch schema: %w", err)
	}

	engine, err := form.NewEngine(form.EngineConfig{
		Executor: client,
		Schemas:  schemas,
		Metrics:  metrics,
		Logger:   logger,
	})
	if err != nil {
		return nil, nil, err
	}
	return engine, schemas, nil
}

func dispatch(ctx context.Context, engine *form.Engine, schemas *schemacache.Manager, args []string) error {
	command, rest := args[0], args[1:]
	switch command {
	case "types":
		return runTypes(schemas)
	case "describe":
		if len(rest) != 1 {
			return fmt.Errorf("describe requires exactly one type name")
		}
		return runDescribe(schemas, rest[0])
	case "list":
		if len(rest) != 1 {
			return fmt.Errorf("list requires exactly one type name")
		}
		return runList(ctx, engine, rest[0])
	case "get":
		if len(rest) != 2 {
			return fmt.Errorf("get requires a type name and an id")
		}
		return runGet(ctx, engine, schemas, rest[0], rest[1])
	case "delete":
		if len(rest) != 2 {
			return fmt.Errorf("delete requires a type name and an id")
		}
		return engine.Delete(ctx, rest[0], rest[1])
	default:
		pflag.Usage()
		return fmt.Errorf("unknown command %q", command)
	}
}

func runTypes(schemas *schemacache.Manager) error {
	snapshot := schemas.Active()
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TYPE\tFIELDS")
	for _, t := range snapshot.Schema.ObjectTypes() {
		if t.Name == snapshot.Schema.QueryTypeName {
			continue
		}
		fmt.Fprintf(w, "%s\t%d\n", t.Name, len(t.Fields))
	}
	return w.Flush()
}

func runDescribe(schemas *schemacache.Manager, typeName string) error {
	snapshot := schemas.Active()
	plan, err := snapshot.Compiler.Plan(typeName)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "COLUMN\tSCALAR\tSORT PATH")
	for _, column := range plan.Columns {
		fmt.Fprintf(w, "%s\t%s\t%s\n", column, plan.ScalarType(column), plan.SortPath(column))
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Printf("\nselection set: { %s }\n", plan.SelectionSet())
	return nil
}

func runList(ctx context.Context, engine *form.Engine, typeName string) error {
	table, err := engine.FetchTable(ctx, typeName)
	if err != nil {
		return err
	}
	return renderTable(os.Stdout, table)
}

func runGet(ctx context.Context, engine *form.Engine, schemas *schemacache.Manager, typeName, id string) error {
	entity, err := engine.FetchEntity(ctx, typeName, id)
	if err != nil {
		return err
	}
	plan, err := schemas.Active().Compiler.Plan(typeName)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "id\t%s\n", formatCell(entity["id"]))
	for _, column := range plan.Columns {
		fmt.Fprintf(w, "%s\t%s\n", column, formatCell(plan.Extract(column, entity)))
	}
	return w.Flush()
}

// renderTable writes a tab-aligned table with an upper-cased header row.
func renderTable(w *os.File, table *form.Table) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	header := make([]string, 0, len(table.Columns)+1)
	header = append(header, "ID")
	for _, column := range table.Columns {
		header = append(header, strings.ToUpper(column))
	}
	fmt.Fprintln(tw, strings.Join(header, "\t"))

	for _, row := range table.Rows {
		cells := make([]string, 0, len(table.Columns)+1)
		cells = append(cells, formatCell(row.Entity["id"]))
		for _, column := range table.Columns {
			cells = append(cells, formatCell(row.Cells[column]))
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	return tw.Flush()
}

func formatCell(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return "-"
	case string:
		if v == "" {
			return "-"
		}
		return v
	case float64:
		// JSON numbers decode as float64; print integers without a fraction.
		if v == float64(int64(v)) {
			return fmt.Sprintf("%d", int64(v))
		}
		return fmt.Sprintf("%g", v)
	case bool:
		if v {
			return "true"
		}
		return "false"
	default:
		return fmt.Sprintf("%v", v)
	}
}
