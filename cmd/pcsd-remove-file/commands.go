package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/juju/errors"
	"github.com/rs/zerolog"
	"github.com/urfave/cli"

	"pcsd-remove-file/internal/config"
	"pcsd-remove-file/internal/database"
	"pcsd-remove-file/internal/dispatch"
	"pcsd-remove-file/internal/exchange"
	"pcsd-remove-file/internal/exitcodes"
	"pcsd-remove-file/internal/logging"
	"pcsd-remove-file/internal/metrics"
	"pcsd-remove-file/internal/removefile"
)

// loadConfig reads --config. A missing file at the default location is
// not an error, the built-in defaults apply.
func loadConfig(c *cli.Context) (*config.Config, error) {
	path := c.GlobalString("config")
	cfg, err := config.Load(path)
	if err == nil {
		return cfg, nil
	}
	if !c.GlobalIsSet("config") && errors.Is(err, os.ErrNotExist) {
		return config.Default(), nil
	}
	return nil, withCode(exitcodes.InvalidConfig, errors.Annotatef(err, "loading %s", path))
}

func newLogger(c *cli.Context, cfg *config.Config) zerolog.Logger {
	return logging.NewWithWriter(cfg, c.App.ErrWriter)
}

func openHistory(cfg *config.Config) (*database.RemovalDB, error) {
	if !cfg.HistoryEnabled() {
		return nil, nil
	}
	db, err := database.NewRemovalDB(cfg.Database())
	if err != nil {
		return nil, withCode(exitcodes.RuntimeError, err)
	}
	return db, nil
}

func newRegistry(cfg *config.Config) *removefile.Registry {
	return removefile.NewRegistry(removefile.Env{
		PacemakerAuthkey: cfg.Paths.PacemakerAuthkey,
		SettingsFilePath: cfg.SettingsFilePath,
	})
}

func removeAction(c *cli.Context) error {
	req := dispatch.Request{
		Type:   c.String("type"),
		ID:     c.String("id"),
		Action: c.String("action"),
	}
	if req.Type == "" {
		req.Type = c.Args().First()
	}
	if req.Type == "" {
		return withCode(exitcodes.InvalidRequest, errors.New("missing file type, use --type or see the types command"))
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	logger := newLogger(c, cfg)

	db, err := openHistory(cfg)
	if err != nil {
		return err
	}
	var history dispatch.History
	if db != nil {
		history = db
		defer func() {
			if err := db.Close(); err != nil {
				logger.Error().Err(err).Msg("failed to close history database")
			}
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	d := dispatch.New(newRegistry(cfg), history, logger)
	result, err := d.Remove(ctx, req)
	writeMetrics(cfg, logger)
	if err != nil {
		if errors.Is(err, errors.NotFound) || errors.Is(err, errors.NotValid) {
			return withCode(exitcodes.InvalidRequest, err)
		}
		return withCode(exitcodes.RuntimeError, err)
	}

	if c.Bool("json") {
		if err := printJSON(c, result); err != nil {
			return err
		}
	} else {
		fmt.Fprintf(c.App.Writer, "%s: %s\n", req.Type, result)
	}

	if result.Code == exchange.CodeUnexpected {
		return withCode(exitcodes.Unexpected, fmt.Errorf("removing %s failed: %s", req.Type, result.Message))
	}
	return nil
}

func writeMetrics(cfg *config.Config, logger zerolog.Logger) {
	if cfg.Metrics.Textfile == "" {
		return
	}
	if err := metrics.WriteTextfile(cfg.Metrics.Textfile); err != nil {
		logger.Warn().Err(err).Str("path", cfg.Metrics.Textfile).Msg("failed to write metrics textfile")
	}
}

func typesAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	reg := newRegistry(cfg)

	w := tabwriter.NewWriter(c.App.Writer, 0, 0, 2, ' ', 0)
	for _, name := range reg.Types() {
		build, _ := reg.Lookup(name)
		_, _ = fmt.Fprintf(w, "%s\t%s\n", name, build("", "").FullFileName())
	}
	return w.Flush()
}

func historyAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	db, err := openHistory(cfg)
	if err != nil {
		return err
	}
	if db == nil {
		return withCode(exitcodes.InvalidConfig, errors.New("removal history is disabled (database_path is empty)"))
	}
	defer db.Close()

	if c.Bool("stats") {
		counts, err := db.GetRemovalCountByCode()
		if err != nil {
			return withCode(exitcodes.RuntimeError, errors.Annotate(err, "counting removals"))
		}
		if c.Bool("json") {
			return printJSON(c, counts)
		}
		w := tabwriter.NewWriter(c.App.Writer, 0, 0, 2, ' ', 0)
		for _, code := range []string{"deleted", "not_found", "unexpected", database.CodeUnknownType, database.CodeInvalid} {
			_, _ = fmt.Fprintf(w, "%s\t%d\n", code, counts[code])
		}
		return w.Flush()
	}

	limit := c.Int("recent")
	if limit <= 0 {
		limit = 20
	}

	var records []database.RemovalRecord
	switch {
	case c.String("type") != "":
		records, err = db.GetRemovalsByType(c.String("type"), limit)
	case c.String("code") != "":
		records, err = db.GetRemovalsByCode(c.String("code"), limit)
	default:
		records, err = db.GetRecentRemovals(limit)
	}
	if err != nil {
		return withCode(exitcodes.RuntimeError, errors.Annotate(err, "querying history"))
	}

	if c.Bool("json") {
		if records == nil {
			records = []database.RemovalRecord{}
		}
		return printJSON(c, records)
	}
	printRecords(c, records)
	return nil
}

func pruneAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	days := c.Int("days")
	if days <= 0 {
		days = cfg.HistoryRetentionDays
	}

	db, err := openHistory(cfg)
	if err != nil {
		return err
	}
	if db == nil {
		return withCode(exitcodes.InvalidConfig, errors.New("removal history is disabled (database_path is empty)"))
	}
	defer db.Close()

	removed, err := db.DeleteOldRecords(days)
	if err != nil {
		return withCode(exitcodes.RuntimeError, errors.Annotate(err, "pruning history"))
	}
	if err := db.Vacuum(); err != nil {
		return withCode(exitcodes.RuntimeError, errors.Annotate(err, "vacuuming history"))
	}

	fmt.Fprintf(c.App.Writer, "removed %d records older than %d days\n", removed, days)
	return nil
}

func printJSON(c *cli.Context, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.App.Writer, string(data))
	return err
}

func printRecords(c *cli.Context, records []database.RemovalRecord) {
	if len(records) == 0 {
		fmt.Fprintln(c.App.Writer, "No records found")
		return
	}

	w := tabwriter.NewWriter(c.App.Writer, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tTimestamp\tType\tCode\tPath\tMessage")
	_, _ = fmt.Fprintln(w, "--\t---------\t----\t----\t----\t-------")

	for _, r := range records {
		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
			r.ID, r.Timestamp.Local().Format("2006-01-02 15:04:05"), r.FileType, r.Code, r.Path, r.Message)
	}
	_ = w.Flush()
}
