// Command parquedb runs and inspects a ParqueDB instance: serve starts the
// write-engine/query-executor pair, schema parses and validates a schema
// file, checkpoint forces a namespace's WAL to materialize into Parquet,
// and inspect prints a checkpointed file's footer.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/parquedb/parquedb/internal/logging"
)

var devLogging bool

func main() {
	root := &cobra.Command{
		Use:   "parquedb",
		Short: "ParqueDB: a hybrid entity/graph database over Parquet",
	}
	root.PersistentFlags().BoolVar(&devLogging, "dev", false, "use human-readable development logging instead of JSON")
	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		_, err := logging.Init(devLogging)
		return err
	}

	root.AddCommand(newServeCmd())
	root.AddCommand(newSchemaCmd())
	root.AddCommand(newCheckpointCmd())
	root.AddCommand(newInspectCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
