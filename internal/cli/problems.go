package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/spf13/cobra"

	coreconfig "github.com/serikovn/nexpr-update/core/config"
	coredatabase "github.com/serikovn/nexpr-update/core/database"
	"github.com/serikovn/nexpr-update/internal/disruption"
	"github.com/serikovn/nexpr-update/internal/storage"
)

// undefinedTable is the Postgres error code of a missing relation.
const undefinedTable = "42P01"

// ProblemsCmd prints the stored problems and their subscriber counts. It
// only reads: missing documents, a missing storage directory and an
// unmigrated schema all list as no problems.
func ProblemsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "problems",
		Short: "List the problems currently announced",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			cfg, err := coreconfig.Load(configPath(c))
			if err != nil {
				return err
			}
			var db *sqlx.DB
			if cfg.Storage.Driver == coreconfig.StoragePostgres {
				db, err = coredatabase.Connect(cfg.Database)
				if err != nil {
					return err
				}
				defer db.Close()
			}
			backend, err := storage.OpenExisting(cfg.Storage, db)
			if err != nil {
				return err
			}

			ctx := c.Context()
			var problems []disruption.Problem
			if err := readDocument(ctx, backend, cfg.Storage.ProblemsFile, &problems); err != nil {
				return err
			}
			var index map[string][]int64
			if err := readDocument(ctx, backend, cfg.Storage.SubscribersFile, &index); err != nil {
				return err
			}
			counts := make([]int, len(problems))
			for i, p := range problems {
				counts[i] = len(index[p.Name])
			}
			printProblems(c.OutOrStdout(), problems, counts)
			return nil
		},
	}
}

// readDocument decodes the named document into v, leaving v untouched
// when nothing is stored under name.
func readDocument(ctx context.Context, backend storage.Backend, name string, v any) error {
	data, found, err := backend.Read(ctx, name)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == undefinedTable {
		return nil
	}
	if err != nil {
		return err
	}
	if !found {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}
	return nil
}

func printProblems(w io.Writer, problems []disruption.Problem, subscribers []int) {
	if len(problems) == 0 {
		fmt.Fprintln(w, color.New(color.FgGreen).Sprint("No problems: the Night Express runs on schedule."))
		return
	}
	for i, p := range problems {
		fmt.Fprintf(w, "%d. %s\n", i+1, color.New(color.FgYellow, color.Bold).Sprint(p.Name))
		fmt.Fprintf(w, "   %s\n", p.Description)
		fmt.Fprintf(w, "   ETA: %s\n", color.New(color.FgCyan).Sprint(p.ETA))
		fmt.Fprintf(w, "   media: %d  subscribers: %d\n", len(p.Media), subscribers[i])
	}
}
