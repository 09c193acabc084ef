package cmd

import (
	"fmt"
	"os"

	"docrag/internal/config"
	"docrag/internal/embedder"
	"docrag/internal/llm"
	"docrag/internal/rag"
	"docrag/internal/store"

	"github.com/spf13/cobra"
)

var (
	flagOllama     string
	flagEmbedModel string
	flagChatModel  string
	flagDataDir    string
	flagCollection string
	flagK          int
)

var rootCmd = &cobra.Command{
	Use:   "docrag",
	Short: "Ask questions about technical documentation, grounded by RAG",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTUI()
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagOllama, "ollama", "", "ollama base URL (default from DOCRAG_OLLAMA_URL)")
	rootCmd.PersistentFlags().StringVar(&flagEmbedModel, "embed-model", "", "embedding model (default from DOCRAG_EMBED_MODEL)")
	rootCmd.PersistentFlags().StringVar(&flagChatModel, "chat-model", "", "generative model (default from DOCRAG_CHAT_MODEL)")
	rootCmd.PersistentFlags().StringVar(&flagDataDir, "data-dir", "", "index storage directory (default from DOCRAG_DATA_DIR)")
	rootCmd.PersistentFlags().StringVar(&flagCollection, "collection", "", "index collection name (default from DOCRAG_COLLECTION)")
	rootCmd.PersistentFlags().IntVar(&flagK, "k", 0, "chunks to retrieve per question (default from DOCRAG_TOP_K)")
}

// loadConfig builds the effective configuration: environment first, then
// flag overrides. Constructors receive this object; nothing reads ambient
// state later.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if flagOllama != "" {
		cfg.OllamaURL = flagOllama
	}
	if flagEmbedModel != "" {
		cfg.EmbedModel = flagEmbedModel
	}
	if flagChatModel != "" {
		cfg.ChatModel = flagChatModel
	}
	if flagDataDir != "" {
		cfg.DataDir = flagDataDir
	}
	if flagCollection != "" {
		cfg.Collection = flagCollection
	}
	if flagK > 0 {
		cfg.TopK = flagK
	}
	return cfg, cfg.Validate()
}

// openIndex opens the persisted collection, failing with a hint when no
// ingestion run has happened yet.
func openIndex(cfg *config.Config) (*store.SQLiteIndex, error) {
	dbPath := store.Path(cfg.DataDir, cfg.Collection)
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("index not found at %s\nRun 'docrag ingest' first to build the index", dbPath)
	}
	idx, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}
	return idx, nil
}

// newAgent wires retriever and composer over an open index.
func newAgent(cfg *config.Config, idx *store.SQLiteIndex) *rag.Agent {
	emb := embedder.NewOllamaEmbedder(cfg.OllamaURL, cfg.EmbedModel)
	chat := llm.NewOllamaChat(cfg.OllamaURL, cfg.ChatModel)
	return rag.NewAgent(
		rag.NewRetriever(emb, idx, cfg.TopK),
		rag.NewComposer(chat),
	)
}
