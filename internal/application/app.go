// Package application wires the stock loader's command-line surface: the
// one-shot commands and the interactive menu.
package application

import (
	"context"
	"io"

	"github.com/JonMunkholm/stockload/internal/config"
	"github.com/JonMunkholm/stockload/internal/core"
	"github.com/JonMunkholm/stockload/internal/web"
	"github.com/google/subcommands"
)

// Service is the part of core.Service the commands depend on.
type Service interface {
	web.LoadService
	LoadPath(ctx context.Context, path string) (*core.LoadResult, error)
	WaitForLoads(ctx context.Context) error
}

// App carries the dependencies shared by every command.
type App struct {
	Service Service
	Config  *config.Config

	// Migrate creates the schema.
	Migrate func(ctx context.Context) error

	In  io.Reader
	Out io.Writer
}

// Commands returns every command, ready to register on a commander.
func (a *App) Commands() []subcommands.Command {
	return []subcommands.Command{
		&loadCmd{app: a},
		&loadsCmd{app: a},
		&revertCmd{app: a},
		&menuCmd{app: a},
		&migrateCmd{app: a},
		&serveCmd{app: a},
	}
}
