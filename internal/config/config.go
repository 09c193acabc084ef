package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

var ErrInvalid = errors.New("invalid configuration")

// The default source list mirrors the documentation set the project was
// built around: Spring Boot 4.0 and MongoDB 8.0 release material.
var defaultURLs = []string{
	"https://github.com/spring-projects/spring-boot/wiki/Spring-Boot-4.0-Release-Notes",
	"https://github.com/spring-projects/spring-boot/wiki/Spring-Boot-4.0-Migration-Guide",
	"https://www.mongodb.com/docs/manual/release-notes/8.0/",
	"https://www.mongodb.com/docs/manual/release-notes/8.0-upgrade-replica-set/",
}

// Config is the full configuration surface. It is built once in the CLI
// layer and passed by reference to every constructor; nothing reads the
// environment after Load returns.
type Config struct {
	SourceURLs []string `envconfig:"DOCRAG_URLS"`

	ChunkSize int `envconfig:"DOCRAG_CHUNK_SIZE" default:"1000"`
	TopK      int `envconfig:"DOCRAG_TOP_K" default:"5"`

	OllamaURL  string `envconfig:"DOCRAG_OLLAMA_URL" default:"http://localhost:11434"`
	EmbedModel string `envconfig:"DOCRAG_EMBED_MODEL" default:"mxbai-embed-large"`
	ChatModel  string `envconfig:"DOCRAG_CHAT_MODEL" default:"llama3.2"`

	Collection string `envconfig:"DOCRAG_COLLECTION" default:"tech_docs"`
	DataDir    string `envconfig:"DOCRAG_DATA_DIR" default:".docrag"`

	ServerPort int `envconfig:"DOCRAG_SERVER_PORT" default:"8080"`
}

// Load reads configuration from the environment, with .env as a fallback for
// development setups. Flags may override individual fields afterwards.
func Load() (*Config, error) {
	_ = godotenv.Load(".env")

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if len(cfg.SourceURLs) == 0 {
		cfg.SourceURLs = defaultURLs
	}
	// envconfig keeps empty entries from trailing commas; drop them.
	cfg.SourceURLs = trimURLs(cfg.SourceURLs)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects values the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.ChunkSize < 1 {
		return fmt.Errorf("%w: chunk size must be >= 1, got %d", ErrInvalid, c.ChunkSize)
	}
	if c.TopK < 1 {
		return fmt.Errorf("%w: top-k must be >= 1, got %d", ErrInvalid, c.TopK)
	}
	if len(c.SourceURLs) == 0 {
		return fmt.Errorf("%w: source URL list must not be empty", ErrInvalid)
	}
	if c.Collection == "" {
		return fmt.Errorf("%w: collection name must not be empty", ErrInvalid)
	}
	if c.DataDir == "" {
		return fmt.Errorf("%w: data dir must not be empty", ErrInvalid)
	}
	return nil
}

func trimURLs(urls []string) []string {
	out := urls[:0]
	for _, u := range urls {
		if u = strings.TrimSpace(u); u != "" {
			out = append(out, u)
		}
	}
	return out
}
