package commands

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/0xmozak/perftool/internal/archive"
)

// NewCleanCSVCommand creates the cleancsv command: delete a benchmark's
// measurement tables, optionally compressing them into the archive first.
func NewCleanCSVCommand() *cobra.Command {
	var archiveFirst bool

	cmd := &cobra.Command{
		Use:   "cleancsv <benchmark>",
		Short: "Delete a benchmark's measurement tables",
		Long: `Cleancsv deletes every measurement table of the benchmark so the next bench
run starts fresh. With --archive the tables are lz4-compressed into the
archive directory before deletion.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, envErr := loadEnvironment(cmd)
			if envErr != nil {
				return envErr
			}

			_, benchErr := env.resolveBench(args[0])
			if benchErr != nil {
				return benchErr
			}

			dataDir := env.layout.DataDir(args[0])

			if archiveFirst {
				archived, archiveErr := archive.Tables(dataDir, env.layout.ArchiveDir(args[0]))
				if archiveErr != nil {
					if errors.Is(archiveErr, fs.ErrNotExist) {
						fmt.Fprintln(cmd.OutOrStdout(), "No measurement tables to clean.")

						return nil
					}

					return archiveErr
				}

				fmt.Fprintf(cmd.OutOrStdout(), "Archived %d tables to %s.\n",
					archived, env.layout.ArchiveDir(args[0]))
			}

			removeErr := os.RemoveAll(dataDir)
			if removeErr != nil {
				return fmt.Errorf("delete %s: %w", dataDir, removeErr)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Deleted measurement tables for %s.\n", args[0])

			return nil
		},
	}

	cmd.Flags().BoolVar(&archiveFirst, "archive", false, "lz4-compress tables into the archive before deleting")

	return cmd
}
