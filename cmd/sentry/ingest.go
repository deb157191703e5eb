package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/sentryai/sentry/internal/db"
	"github.com/sentryai/sentry/internal/knowledge"
)

func ingestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ingest <dir>",
		Short: "Load reference legislation into the knowledge base",
		Long: `Splits every .txt and .md file in <dir> into passages and stores them in the
knowledge base. Re-ingesting a file replaces its previous passages.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := ServerConfig
			store, err := db.NewSQLite(c.Database.SQLitePath)
			if err != nil {
				return err
			}
			defer store.Close()

			index := knowledge.NewIndex(store.DB(), knowledge.WithMaxChars(c.Knowledge.ChunkSize))
			counts, err := index.IngestDir(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if len(counts) == 0 {
				return fmt.Errorf("no .txt or .md files in %s", args[0])
			}

			names := make([]string, 0, len(counts))
			for name := range counts {
				names = append(names, name)
			}
			sort.Strings(names)
			out := cmd.OutOrStdout()
			for _, name := range names {
				fmt.Fprintf(out, "%-40s %d chunks\n", name, counts[name])
			}
			total, err := index.Count(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "knowledge base now holds %d chunks\n", total)
			return nil
		},
	}
}
