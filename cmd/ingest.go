package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"docrag/internal/embedder"
	"docrag/internal/ingest"
	"docrag/internal/scraper"
	"docrag/internal/store"

	"github.com/spf13/cobra"
)

var flagWorkers int

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Fetch, chunk, and embed the configured documentation sources",
	Long: `Runs one full ingestion pass: every configured URL is fetched and split
into fixed-size chunks, all chunks are embedded, and the persisted index is
atomically rebuilt from scratch. The previous contents are fully replaced so
no stale chunks survive a documentation update.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
			return fmt.Errorf("create data directory: %w", err)
		}

		idx, err := store.Open(store.Path(cfg.DataDir, cfg.Collection))
		if err != nil {
			return fmt.Errorf("open index: %w", err)
		}
		defer idx.Close()

		log := slog.New(slog.NewTextHandler(os.Stderr, nil))
		pipeline := ingest.New(
			scraper.New(),
			embedder.NewOllamaEmbedder(cfg.OllamaURL, cfg.EmbedModel),
			idx,
			ingest.Config{
				URLs:       cfg.SourceURLs,
				ChunkSize:  cfg.ChunkSize,
				Workers:    flagWorkers,
				EmbedModel: cfg.EmbedModel,
			},
			log,
		)

		fmt.Printf("Ingesting %d source(s) into collection %q...\n", len(cfg.SourceURLs), cfg.Collection)

		stats, err := pipeline.Run(cmd.Context())
		if stats != nil {
			fmt.Printf("\nDone in %s\n", stats.Elapsed.Round(time.Millisecond))
			fmt.Printf("  Sources: %d total, %d fetched, %d failed\n",
				stats.URLsTotal, stats.URLsFetched, stats.URLsFailed)
			fmt.Printf("  Chunks:  %d\n", stats.Chunks)
		}

		return err
	},
}

func init() {
	ingestCmd.Flags().IntVar(&flagWorkers, "workers", 4, "parallel fetch workers")
	rootCmd.AddCommand(ingestCmd)
}
