package application

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/JonMunkholm/stockload/internal/web"
	"github.com/google/subcommands"
)

type loadCmd struct {
	app  *App
	file string
}

func (*loadCmd) Name() string     { return "load" }
func (*loadCmd) Synopsis() string { return "load a stock snapshot file" }
func (*loadCmd) Usage() string {
	return `stockload load -f <file>

  Stages every row of the file, creates missing products and points of sale,
  and commits the rows as one load. Nothing is committed if any row is
  malformed or duplicates stock from an earlier load.
`
}

func (c *loadCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.file, "f", "", "Path of the semicolon-delimited stock file. A trailing argument works too.")
}

func (c *loadCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.file == "" && f.NArg() == 1 {
		c.file = f.Arg(0)
	}
	if c.file == "" {
		fmt.Fprintln(os.Stderr, "load: a file is required (-f)")
		return subcommands.ExitUsageError
	}

	if !loadFile(ctx, c.app, c.file) {
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// loadFile runs one load and prints its outcome. It reports whether the load
// was promoted.
func loadFile(ctx context.Context, app *App, path string) bool {
	fmt.Fprintf(app.Out, "Loading file: %s\n", path)

	result, err := app.Service.LoadPath(ctx, path)
	if err != nil {
		printError(app.Out, err)
		if result != nil {
			printDuration(app.Out, result)
		}
		return false
	}

	printResult(app.Out, result)
	return !result.Conflicted()
}

type loadsCmd struct {
	app *App
}

func (*loadsCmd) Name() string     { return "loads" }
func (*loadsCmd) Synopsis() string { return "list loads that still own stock" }
func (*loadsCmd) Usage() string {
	return `stockload loads

  Lists every load with stock, newest first.
`
}

func (*loadsCmd) SetFlags(*flag.FlagSet) {}

func (c *loadsCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	loads, err := c.app.Service.ListLoads(ctx)
	if err != nil {
		printError(c.app.Out, err)
		return subcommands.ExitFailure
	}
	printLoads(c.app.Out, loads)
	return subcommands.ExitSuccess
}

type revertCmd struct {
	app *App
	id  int64
	yes bool
}

func (*revertCmd) Name() string     { return "revert" }
func (*revertCmd) Synopsis() string { return "delete all stock of one load" }
func (*revertCmd) Usage() string {
	return `stockload revert -id <load> [-y]

  Deletes every stock row of the load. The load record, products and points
  of sale are kept.
`
}

func (c *revertCmd) SetFlags(f *flag.FlagSet) {
	f.Int64Var(&c.id, "id", 0, "The load number, as shown by the loads command.")
	f.BoolVar(&c.yes, "y", false, "Do not ask for confirmation.")
}

func (c *revertCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.id <= 0 {
		fmt.Fprintln(os.Stderr, "revert: a load number is required (-id)")
		return subcommands.ExitUsageError
	}

	load, err := c.app.Service.GetLoad(ctx, c.id)
	if err != nil {
		printError(c.app.Out, err)
		return subcommands.ExitFailure
	}

	if !c.yes {
		p := newPrompter(c.app.In, c.app.Out)
		ok, err := p.confirm(fmt.Sprintf("Delete %d stock rows of load %d (%s)? (Y/N) ",
			load.FactCount, load.ID, load.SourceName))
		if err != nil || !ok {
			fmt.Fprintln(c.app.Out, "Nothing deleted")
			return subcommands.ExitSuccess
		}
	}

	if !revertLoad(ctx, c.app, c.id) {
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// revertLoad reverts one load and prints its outcome.
func revertLoad(ctx context.Context, app *App, loadID int64) bool {
	fmt.Fprintf(app.Out, "Deleting load %d\n", loadID)

	result, err := app.Service.Revert(ctx, loadID)
	if err != nil {
		printError(app.Out, err)
		return false
	}
	fmt.Fprintf(app.Out, "Deleted %d stock rows of %s\n", result.RowsDeleted, result.SourceName)
	return true
}

type menuCmd struct {
	app *App
}

func (*menuCmd) Name() string     { return "menu" }
func (*menuCmd) Synopsis() string { return "interactive load and revert menu" }
func (*menuCmd) Usage() string {
	return `stockload menu

  Prompts for files to load and loads to delete until told to stop.
`
}

func (*menuCmd) SetFlags(*flag.FlagSet) {}

func (c *menuCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if err := NewMainMenu(c.app).Run(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

type migrateCmd struct {
	app *App
}

func (*migrateCmd) Name() string     { return "migrate" }
func (*migrateCmd) Synopsis() string { return "create the database schema" }
func (*migrateCmd) Usage() string {
	return `stockload migrate

  Creates the load, product, point_of_sale and stock tables if missing.
`
}

func (*migrateCmd) SetFlags(*flag.FlagSet) {}

func (c *migrateCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if err := c.app.Migrate(ctx); err != nil {
		printError(c.app.Out, err)
		return subcommands.ExitFailure
	}
	fmt.Fprintln(c.app.Out, "Schema is up to date")
	return subcommands.ExitSuccess
}

type serveCmd struct {
	app *App
}

func (*serveCmd) Name() string     { return "serve" }
func (*serveCmd) Synopsis() string { return "run the HTTP server" }
func (*serveCmd) Usage() string {
	return `stockload serve

  Serves the load list page and the /api/loads endpoints on SERVER_HOST:SERVER_PORT.
`
}

func (*serveCmd) SetFlags(*flag.FlagSet) {}

func (c *serveCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := web.NewServer(c.app.Service, c.app.Config)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			return subcommands.ExitFailure
		}
		return subcommands.ExitSuccess
	case <-ctx.Done():
	}

	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), c.app.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}
	if err := c.app.Service.WaitForLoads(shutdownCtx); err != nil {
		slog.Warn("loads still running at shutdown", "error", err)
		return subcommands.ExitFailure
	}

	slog.Info("server stopped")
	return subcommands.ExitSuccess
}
