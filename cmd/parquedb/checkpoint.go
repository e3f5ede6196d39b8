package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/parquedb/parquedb/blob"
	"github.com/parquedb/parquedb/engine"
)

func newCheckpointCmd() *cobra.Command {
	var dataDir, walPath string

	cmd := &cobra.Command{
		Use:   "checkpoint <namespace>",
		Short: "materialize a namespace's WAL into its Parquet data file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ns := args[0]

			wal, err := engine.OpenWAL(walPath)
			if err != nil {
				return fmt.Errorf("opening wal: %w", err)
			}
			defer wal.Close()

			store, err := blob.NewDisk(dataDir)
			if err != nil {
				return err
			}

			shard, err := engine.RecoverShard(wal, store, nil)
			if err != nil {
				return fmt.Errorf("recovering shard: %w", err)
			}
			cp, err := shard.Checkpoint(ns)
			if err != nil {
				return err
			}
			if cp == nil {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: nothing to checkpoint\n", ns)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: wrote %s (%d events, %s..%s)\n",
				ns, filepath.Join(dataDir, cp.ParquetPath), cp.EventCount, cp.FirstEventID, cp.LastEventID)
			return nil
		},
	}
	cmd.Flags().StringVar(&dataDir, "data-dir", "./data", "directory backing the Parquet data store")
	cmd.Flags().StringVar(&walPath, "wal", "parquedb.wal", "path to the WAL sqlite sidecar")
	return cmd
}
