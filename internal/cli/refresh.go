package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/linkboard/internal/links"
	"github.com/JakeFAU/linkboard/internal/server"
)

// newRefreshCmd creates the 'refresh' subcommand, a one-shot fetch that prints
// the normalized index without starting the server.
func newRefreshCmd() *cobra.Command {
	var compact bool
	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Fetch the Notion database once and print the index as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := resolveSession(cmd.Context())
			if err != nil {
				return err
			}
			fetcher, err := server.NewFetcher(rt.cfg.Notion, rt.logger.Named("notion"))
			if err != nil {
				return err
			}
			records, err := fetcher.FetchAll(cmd.Context())
			if err != nil {
				return fmt.Errorf("fetch records: %w", err)
			}
			index, urls := links.Normalize(records)
			rt.logger.Info("refresh complete",
				zap.Int("records", len(records)),
				zap.Int("tags", len(index)),
				zap.Int("urls", len(urls)),
			)

			enc := json.NewEncoder(cmd.OutOrStdout())
			if !compact {
				enc.SetIndent("", "  ")
			}
			if err := enc.Encode(index); err != nil {
				return fmt.Errorf("write index: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&compact, "compact", false, "print the index on one line")
	return cmd
}
