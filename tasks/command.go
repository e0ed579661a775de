package tasks

import (
	"database/sql"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/artpar/enginekit/app"
	"github.com/artpar/enginekit/engine"

	_ "github.com/mattn/go-sqlite3"
)

// Command builds the task tree for every unit registered with the
// application:
//
//	engines list
//	engines install [unit]             (migrations + assets)
//	engines install migrations [unit]
//	engines install assets [unit]
//	engines db seed --database <dsn>
func Command(a *app.Application) *cobra.Command {
	root := &cobra.Command{
		Use:   "engines",
		Short: "Inspect and install registered units",
	}
	root.AddCommand(listCommand(a), installCommand(a), dbCommand(a))
	return root
}

func listCommand(a *app.Application) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered units and their mount points",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, e := range a.Engines() {
				mount := "-"
				if e.Mountable() {
					mount = a.MountPointFor(e)
				}
				root, err := e.Config().Root()
				if err != nil {
					root = "(unresolved)"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", e.Name(), mount, root)
			}
			return nil
		},
	}
}

func installCommand(a *app.Application) *cobra.Command {
	install := &cobra.Command{
		Use:   "install [unit]",
		Short: "Copy unit migrations and assets into the host",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return forEachTarget(a, args, func(e *engine.Engine, hostRoot string) error {
				if err := installMigrations(cmd, e, hostRoot); err != nil {
					return err
				}
				return CopyAssets(e, hostRoot)
			})
		},
	}
	install.AddCommand(
		&cobra.Command{
			Use:   "migrations [unit]",
			Short: "Copy unit migrations into the host's db/migrate",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return forEachTarget(a, args, func(e *engine.Engine, hostRoot string) error {
					return installMigrations(cmd, e, hostRoot)
				})
			},
		},
		&cobra.Command{
			Use:   "assets [unit]",
			Short: "Copy unit public files into the host's public directory",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return forEachTarget(a, args, CopyAssets)
			},
		},
	)
	return install
}

func installMigrations(cmd *cobra.Command, e *engine.Engine, hostRoot string) error {
	copied, err := CopyMigrations(e, hostRoot)
	if err != nil {
		return fmt.Errorf("engine %s: %w", e.Name(), err)
	}
	for _, path := range copied {
		fmt.Fprintf(cmd.OutOrStdout(), "installed %s\n", path)
	}
	return nil
}

func dbCommand(a *app.Application) *cobra.Command {
	db := &cobra.Command{
		Use:   "db",
		Short: "Database tasks",
	}
	var dsn string
	seed := &cobra.Command{
		Use:   "seed",
		Short: "Run every unit's seed file in registration order",
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := sql.Open("sqlite3", dsn)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer conn.Close()
			return a.LoadSeeds(cmd.Context(), conn)
		},
	}
	seed.Flags().StringVar(&dsn, "database", "enginekit.db", "sqlite database path or DSN")
	db.AddCommand(seed)
	return db
}

// forEachTarget resolves the host root once and applies fn to either the
// named unit or, with no argument, every registered unit.
func forEachTarget(a *app.Application, args []string, fn func(*engine.Engine, string) error) error {
	hostRoot, err := a.Config().Root()
	if err != nil {
		return fmt.Errorf("resolve host root: %w", err)
	}
	if len(args) == 1 {
		e, ok := a.Registry().Get(args[0])
		if !ok {
			return fmt.Errorf("unknown unit %q", args[0])
		}
		return fn(e, hostRoot)
	}
	for _, e := range a.Engines() {
		if err := fn(e, hostRoot); err != nil {
			return err
		}
	}
	return nil
}
