// Command vaultforge runs the article-proposal workflow engine: an HTTP
// server accepting draft requests, plus the async worker pool that drains
// them when dispatched asynchronously.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/evalgo/vaultforge/internal/auditlog"
	"github.com/evalgo/vaultforge/internal/clients/draftbranch"
	"github.com/evalgo/vaultforge/internal/clients/llm"
	"github.com/evalgo/vaultforge/internal/clients/research"
	"github.com/evalgo/vaultforge/internal/config"
	"github.com/evalgo/vaultforge/internal/httpapi"
	"github.com/evalgo/vaultforge/internal/logging"
	"github.com/evalgo/vaultforge/internal/nodes"
	"github.com/evalgo/vaultforge/internal/queue"
	"github.com/evalgo/vaultforge/internal/worker"
	"github.com/evalgo/vaultforge/internal/workflow"
	"github.com/evalgo/vaultforge/internal/workflow/registry"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "vaultforge",
	Short: "orchestration engine for knowledge-vault article drafting",
	Long: `vaultforge accepts natural-language prompts, runs them through a
topic-proposal / deep-research / draft-branch pipeline, and tracks each
submission as a durable workflow record.`,
	Run: runServer,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default $HOME/.vaultforge.yaml)")
	rootCmd.PersistentFlags().Int("port", 0, "HTTP server port")
	rootCmd.PersistentFlags().String("redis-url", "", "Redis URL for the async queue")
	rootCmd.PersistentFlags().String("forge-base-url", "", "Base URL of the vault's forge (Gitea/GitLab) instance")

	viper.BindPFlag("VAULTFORGE_SERVER_PORT", rootCmd.PersistentFlags().Lookup("port"))
	viper.BindPFlag("VAULTFORGE_QUEUE_REDIS_URL", rootCmd.PersistentFlags().Lookup("redis-url"))
	viper.BindPFlag("VAULTFORGE_FORGE_BASE_URL", rootCmd.PersistentFlags().Lookup("forge-base-url"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)
		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigName(".vaultforge")
	}

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Println("using config file:", viper.ConfigFileUsed())
	}

	// Viper-resolved values are re-exported as environment variables so
	// internal/config's plain os.Getenv-based EnvConfig sees flag/file
	// overrides without the two packages needing to share a schema. Viper
	// lower-cases its keys, so they are upper-cased again here, and flags
	// left at their defaults are skipped.
	for _, key := range viper.AllKeys() {
		if !viper.IsSet(key) {
			continue
		}
		if v := viper.GetString(key); v != "" {
			os.Setenv(strings.ToUpper(key), v)
		}
	}
}

func runServer(cmd *cobra.Command, args []string) {
	cfg, err := config.LoadAll()
	if err != nil {
		fmt.Fprintln(os.Stderr, "configuration error:", err)
		os.Exit(1)
	}

	logger := logging.New(logging.Config{
		Level:   logging.Level(cfg.Logging.Level),
		Format:  cfg.Logging.Format,
		Service: "vaultforge",
	})
	log := logging.Component(logger, "main")

	reg := buildRegistry(cfg)
	clients := buildClients(cfg)
	graphs := nodes.NewRegistry(clients)

	q, err := queue.NewRedis(context.Background(), queue.Config{
		RedisURL:  cfg.Queue.RedisURL,
		KeyPrefix: cfg.Queue.KeyPrefix,
	})
	if err != nil {
		log.WithError(err).Error("failed to connect to redis queue")
		os.Exit(1)
	}
	defer q.Close()

	dispatcher := workflow.NewDispatcher(reg, q, workflow.GraphBuilder(graphs.Resolve), nil)

	pool := worker.NewPool(q, reg, workflow.GraphBuilder(graphs.Resolve), nil, worker.Config{
		NumWorkers:  cfg.Queue.NumWorkers,
		DequeueWait: 5 * time.Second,
		TaskBudget:  cfg.Queue.HardLimit,
	}, logging.Component(logger, "worker"))

	if !cfg.Database.UseInMemory {
		auditLog, err := auditlog.NewLog(cfg.Database.DSN)
		if err != nil {
			log.WithError(err).Warn("audit log unavailable, terminal outcomes will not be archived")
		} else {
			observer := auditlog.NewObserver(auditLog)
			dispatcher.WithAuditObserver(observer)
			pool.WithAuditObserver(observer)
		}
	}

	pool.Start()
	defer pool.Stop()

	handlers := &httpapi.Handlers{
		Dispatcher:  dispatcher,
		Registry:    reg,
		MaxPageSize: cfg.Server.MaxPageSize,
	}
	server := httpapi.NewServer(handlers, reg)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	go func() {
		log.WithField("addr", addr).Info("server starting")
		if err := server.Start(addr); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("server failed to start")
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.WithError(err).Error("graceful shutdown failed")
	}
}

func buildRegistry(cfg *config.All) registry.Registry {
	if cfg.Database.UseInMemory {
		return registry.NewMemory(registry.MemoryConfig{MaxRecords: cfg.Database.MaxInMemoryRows})
	}
	pg, err := registry.NewPostgres(context.Background(), cfg.Database.DSN)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to connect to postgres registry:", err)
		os.Exit(1)
	}
	return pg
}

func buildClients(cfg *config.All) nodes.Clients {
	var llmClient llm.Client
	if cfg.LLM.UseMock {
		llmClient = &llm.Mock{}
	} else {
		llmClient = llm.NewAnthropic(cfg.LLM)
	}

	var researchClient research.Client
	if cfg.Research.UseMock {
		researchClient = &research.Mock{}
	} else {
		researchClient = research.NewHTTP(cfg.Research)
	}

	var draftClient draftbranch.Client
	switch {
	case cfg.Forge.UseMock:
		draftClient = &draftbranch.Mock{}
	case cfg.Forge.Provider == "gitlab":
		c, err := draftbranch.NewGitLab(cfg.Forge)
		if err != nil {
			fmt.Fprintln(os.Stderr, "failed to build gitlab client:", err)
			os.Exit(1)
		}
		draftClient = c
	default:
		c, err := draftbranch.NewGitea(cfg.Forge)
		if err != nil {
			fmt.Fprintln(os.Stderr, "failed to build gitea client:", err)
			os.Exit(1)
		}
		draftClient = c
	}

	return nodes.Clients{LLM: llmClient, Research: researchClient, DraftBranch: draftClient}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
