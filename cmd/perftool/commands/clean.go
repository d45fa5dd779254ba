package commands

import (
	"fmt"
	"sort"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/0xmozak/perftool/internal/revision"
	"github.com/0xmozak/perftool/pkg/safeconv"
)

// NewCleanCommand creates the clean command: release every build link of a
// benchmark and delete materialized revisions nothing references anymore.
func NewCleanCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clean <benchmark>",
		Short: "Release a benchmark's build links and reclaim unreferenced revisions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, envErr := loadEnvironment(cmd)
			if envErr != nil {
				return envErr
			}

			bench, benchErr := env.resolveBench(args[0])
			if benchErr != nil {
				return benchErr
			}

			labels := make([]string, 0, len(bench.Benches))
			for label := range bench.Benches {
				labels = append(labels, label)
			}

			sort.Strings(labels)

			store := revision.NewStore(env.cfg.Repo, env.layout)

			var reclaimed int64

			for _, label := range labels {
				bytes, releaseErr := store.Release(cmd.Context(), args[0], label)
				if releaseErr != nil {
					return fmt.Errorf("release %s/%s: %w", args[0], label, releaseErr)
				}

				reclaimed += bytes
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Released %d labels, reclaimed %s.\n",
				len(labels), humanize.Bytes(safeconv.MustInt64ToUint64(reclaimed)))

			return nil
		},
	}
}
