package main

import (
	"fmt"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/parquedb/parquedb/parquetio"
)

func newInspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect <parquet-file>",
		Short: "print a Parquet data file's footer: row groups, columns, and statistics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			buf, err := parquetio.NewFileBuffer(args[0])
			if err != nil {
				return err
			}
			defer buf.Close()

			footer, err := parquetio.ReadMetadata(buf)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "row groups: %d, total rows: %d\n\n", len(footer.RowGroups), footer.TotalRows())

			table := tablewriter.NewWriter(cmd.OutOrStdout())
			table.SetHeader([]string{"row group", "column", "codec", "dict", "rows", "compressed", "min", "max", "nulls"})
			for i, rg := range footer.RowGroups {
				for _, col := range rg.Columns {
					table.Append([]string{
						fmt.Sprint(i),
						col.Name,
						string(col.Codec),
						fmt.Sprint(col.Dictionary),
						fmt.Sprint(rg.NumRows),
						fmt.Sprint(col.CompressedSize),
						fmt.Sprint(col.Statistics.Min),
						fmt.Sprint(col.Statistics.Max),
						fmt.Sprint(col.Statistics.NullCount),
					})
				}
			}
			table.Render()
			return nil
		},
	}
	return cmd
}
