package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/membot/membot/internal/adapter"
	"github.com/membot/membot/internal/chat"
	"github.com/membot/membot/internal/config"
	"github.com/membot/membot/internal/db"
	"github.com/membot/membot/internal/history"
	"github.com/membot/membot/internal/memory"
	"github.com/membot/membot/internal/prompt"
	"github.com/membot/membot/internal/render"
	"github.com/membot/membot/internal/server"
	"github.com/membot/membot/internal/stream"
)

func newServeCmd() *cobra.Command {
	var (
		addr       string
		configPath string
		provider   string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the membot chat server",
		Long: `Start the HTTP server: browser UI, JSON API, and the SSE chat stream.

Examples:
  membot serve
  membot serve --addr 0.0.0.0:9000
  membot serve --provider openai`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			if provider != "" {
				cfg.Model.Provider = provider
			}

			logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

			llm, err := adapter.New(cfg.Model.Provider, cfg.Model.Name, cfg.APIKey(cfg.Model.Provider))
			if err != nil {
				return fmt.Errorf("init LLM adapter: %w", err)
			}

			database, err := db.Open(cfg.DBPath())
			if err != nil {
				return fmt.Errorf("open session index: %w", err)
			}
			defer database.Close()
			index := db.NewSessionIndex(database)

			hist := history.NewStore(cfg.Data.Dir)
			mem := memory.NewStore(cfg.MemoryPath(), cfg.Memory.MaxLines)

			// Token budgeting is best-effort: without the encoding the
			// digest window simply goes uncapped.
			tok, err := prompt.NewTokenizer()
			if err != nil {
				logger.Warn("tokenizer unavailable, summary window uncapped", "err", err)
				tok = nil
			}
			builder := prompt.NewBuilder(stream.Marker, tok)

			orch := chat.New(cfg, llm, hist, mem, index, render.New(), builder, logger)
			e := server.New(server.NewHandler(cfg, orch, hist, mem, index, logger))

			go func() {
				logger.Info("membot listening", "addr", cfg.Server.Addr, "provider", cfg.Model.Provider, "model", llm.Info().Name)
				if err := e.Start(cfg.Server.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("server stopped", "err", err)
				}
			}()

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
			<-quit

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return e.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to config.toml")
	cmd.Flags().StringVarP(&provider, "provider", "p", "", "LLM provider override: claude, openai")

	return cmd
}

func loadConfig(path string) (config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}
