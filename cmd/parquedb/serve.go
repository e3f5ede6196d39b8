package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/parquedb/parquedb/blob"
	"github.com/parquedb/parquedb/config"
	"github.com/parquedb/parquedb/engine"
	"github.com/parquedb/parquedb/internal/logging"
	"github.com/parquedb/parquedb/kv"
	"github.com/parquedb/parquedb/query"
	"github.com/parquedb/parquedb/token"
)

func newServeCmd() *cobra.Command {
	var walPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "start a shard's write engine and query executor",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			wal, err := engine.OpenWAL(walPath)
			if err != nil {
				return fmt.Errorf("opening wal: %w", err)
			}
			defer wal.Close()

			store := blob.NewMemory()
			shard, err := engine.RecoverShard(wal, store, nil)
			if err != nil {
				return fmt.Errorf("recovering shard: %w", err)
			}
			cache := kv.NewMemory()
			_ = query.NewExecutor(shard, cache, cfg.Cache)
			_ = token.NewSigner(cfg.SyncSecret, cache)

			log := logging.Named("cmd.serve")
			log.Sugar().Infow("shard ready",
				"wal", walPath,
				"cacheDataTTL", cfg.Cache.Data.String(),
			)
			log.Sugar().Info("serve is a library-level entry point; wire it to a transport (HTTP/RPC) to accept traffic")
			return nil
		},
	}
	cmd.Flags().StringVar(&walPath, "wal", "parquedb.wal", "path to the WAL sqlite sidecar")
	return cmd
}
