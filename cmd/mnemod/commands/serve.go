package commands

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nocturnewell/mnemo/internal/config"
	"github.com/nocturnewell/mnemo/internal/embedding"
	"github.com/nocturnewell/mnemo/internal/engine"
	"github.com/nocturnewell/mnemo/internal/server"
	"github.com/nocturnewell/mnemo/internal/store"
	"github.com/nocturnewell/mnemo/internal/vectorindex"
)

var (
	flagListen    string
	flagStorePath string
	flagDimension int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the memory index service",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&flagListen, "listen", "", "listening address, overrides config")
	serveCmd.Flags().StringVar(&flagStorePath, "store-path", "", "record store directory, overrides config")
	serveCmd.Flags().IntVar(&flagDimension, "dimension", 0, "embedding dimension, overrides config")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("mnemod: load config: %w", err)
	}
	if flagListen != "" {
		cfg.Listen = flagListen
	}
	if flagStorePath != "" {
		cfg.StorePath = flagStorePath
	}
	if flagDimension != 0 {
		cfg.Dimension = flagDimension
	}

	st, err := store.Open(store.Options{Dir: cfg.StorePath})
	if err != nil {
		return fmt.Errorf("mnemod: open store: %w", err)
	}

	idx, err := buildIndex(cfg)
	if err != nil {
		st.Close()
		return err
	}

	eng, err := engine.Open(st, idx, cfg.Dimension)
	if err != nil {
		st.Close()
		return fmt.Errorf("mnemod: open engine: %w", err)
	}

	emb, err := buildEmbedder(cfg)
	if err != nil {
		eng.Close()
		return err
	}

	ln, err := server.Listen(cfg.Transport, cfg.Listen)
	if err != nil {
		eng.Close()
		return fmt.Errorf("mnemod: listen: %w", err)
	}

	srv := server.New(ln, eng, emb, 0)

	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Printf("mnemod: signal received, shutting down")
		cancel()
	}()

	log.Printf("mnemod: listening on %s (%s)", cfg.Listen, cfg.Transport)
	serveErr := srv.Serve(ctx)
	if err := eng.Close(); err != nil {
		log.Printf("mnemod: close engine: %v", err)
	}
	return serveErr
}

func buildIndex(cfg *config.Config) (vectorindex.Index, error) {
	switch cfg.IndexBackend {
	case "", "flat":
		return vectorindex.NewFlat(cfg.Dimension), nil
	case "hnsw":
		return vectorindex.NewHNSW(vectorindex.HNSWConfig{Dim: cfg.Dimension}), nil
	default:
		return nil, fmt.Errorf("mnemod: unknown index_backend: %s", cfg.IndexBackend)
	}
}

func buildEmbedder(cfg *config.Config) (embedding.Embedder, error) {
	switch cfg.Embedder.Provider {
	case "", "hash":
		return embedding.NewHash(cfg.Dimension), nil
	case "openai":
		apiKey := cfg.Embedder.OpenAI.APIKey
		if apiKey == "" {
			apiKey = os.Getenv("OPENAI_API_KEY")
		}
		if apiKey == "" {
			return nil, fmt.Errorf("mnemod: embedder.openai.api_key or OPENAI_API_KEY must be set")
		}
		return embedding.NewOpenAI(apiKey, cfg.Embedder.OpenAI.Model, "", cfg.Dimension), nil
	default:
		return nil, fmt.Errorf("mnemod: unknown embedder provider: %s", cfg.Embedder.Provider)
	}
}
