package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/aquilaworks/convocations/internal/history"
)

func newHistoryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect past conversion runs",
	}
	cmd.AddCommand(newHistoryListCommand(), newHistoryShowCommand())
	return cmd
}

func openHistoryStore() (*history.Store, error) {
	return history.Open(filepath.Join(configDir(), "history.db"))
}

func newHistoryListCommand() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use: "list",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openHistoryStore()
			if err != nil {
				return err
			}
			defer store.Close()
			records, err := store.List(limit)
			if err != nil {
				return err
			}
			for _, r := range records {
				fmt.Printf("%-36s %-16s %-9s %s -> %s\n", r.JobID, r.PresetName, r.FinalStatus, r.StartedAt.Format("2006-01-02 15:04"), r.OutputPath)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of records to list")
	return cmd
}

func newHistoryShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:  "show JOB_ID",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openHistoryStore()
			if err != nil {
				return err
			}
			defer store.Close()
			rec, ok, err := store.Get(args[0])
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("no run record for job %q", args[0])
			}
			fmt.Printf("%+v\n", rec)
			return nil
		},
	}
}
