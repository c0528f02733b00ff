package main

import (
	"time"

	"github.com/spf13/cobra"

	"cumulus/internal/config"
	"cumulus/internal/store"
)

func newPruneSessionsCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "prune-sessions",
		Short: "Delete expired session rows",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cfg, func(st *store.Store) error {
				removed, err := st.DeleteExpiredSessions(cmd.Context(), time.Now().UTC())
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(map[string]any{"removed": removed})
				}
				return writePlain("removed %d expired session(s)\n", removed)
			})
		},
	}
}
