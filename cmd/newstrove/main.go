package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/newstrove/newstrove/internal/profile"
	"github.com/newstrove/newstrove/plugin/ai"
	"github.com/newstrove/newstrove/server"
	"github.com/newstrove/newstrove/server/ingest"
	"github.com/newstrove/newstrove/server/search"
	"github.com/newstrove/newstrove/store"
	"github.com/newstrove/newstrove/store/db"
)

const version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:   "newstrove",
	Short: "An article store with hybrid tag and embedding search",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		instanceProfile, err := buildProfile()
		if err != nil {
			return err
		}

		embedder, err := newEmbeddingService(instanceProfile)
		if err != nil {
			return err
		}
		st, err := newStore(ctx, instanceProfile, embedder)
		if err != nil {
			return err
		}
		engine := search.NewEngine(st, embedder)

		s, err := server.NewServer(ctx, instanceProfile, st, engine)
		if err != nil {
			return fmt.Errorf("failed to create server: %w", err)
		}

		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			sig := <-sigs
			slog.Info("received signal, shutting down", "signal", sig.String())
			s.Shutdown(ctx)
			cancel()
		}()

		return s.Start(ctx)
	},
}

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Ingest articles from a category feed and a summary feed",
	RunE: func(cmd *cobra.Command, _ []string) error {
		categoryFile := viper.GetString("category-file")
		summaryFile := viper.GetString("summary-file")
		if categoryFile == "" || summaryFile == "" {
			return fmt.Errorf("both --category-file and --summary-file are required")
		}

		instanceProfile, err := buildProfile()
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		embedder, err := newEmbeddingService(instanceProfile)
		if err != nil {
			return err
		}
		st, err := newStore(ctx, instanceProfile, embedder)
		if err != nil {
			return err
		}
		defer st.Close()

		stats, err := ingest.NewPipeline(st).RunFromFiles(ctx, categoryFile, summaryFile)
		if err != nil {
			return err
		}
		fmt.Printf("ingestion done: %d created, %d skipped, %d failed\n",
			stats.Created, stats.Skipped, stats.Failed)
		return nil
	},
}

func buildProfile() (*profile.Profile, error) {
	instanceProfile := &profile.Profile{
		Mode:    viper.GetString("mode"),
		Addr:    viper.GetString("addr"),
		Port:    viper.GetInt("port"),
		Data:    viper.GetString("data"),
		Driver:  viper.GetString("driver"),
		DSN:     viper.GetString("dsn"),
		Version: version,
	}
	instanceProfile.FromEnv()
	if err := instanceProfile.Validate(); err != nil {
		return nil, fmt.Errorf("invalid profile: %w", err)
	}
	return instanceProfile, nil
}

func newStore(ctx context.Context, instanceProfile *profile.Profile, embedder ai.EmbeddingService) (*store.Store, error) {
	driver, err := db.NewDBDriver(instanceProfile)
	if err != nil {
		return nil, fmt.Errorf("failed to create db driver: %w", err)
	}

	st := store.New(driver, embedder, instanceProfile)
	if err := st.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return st, nil
}

func newEmbeddingService(instanceProfile *profile.Profile) (ai.EmbeddingService, error) {
	cfg := ai.NewEmbeddingConfigFromProfile(instanceProfile)
	service, err := ai.NewEmbeddingService(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding service: %w", err)
	}
	return service, nil
}

func init() {
	rootCmd.PersistentFlags().String("mode", "dev", `mode of the server, can be "prod", "dev" or "demo"`)
	rootCmd.PersistentFlags().String("addr", "", "address of the server")
	rootCmd.PersistentFlags().Int("port", 8081, "port of the server")
	rootCmd.PersistentFlags().String("data", "", "data directory")
	rootCmd.PersistentFlags().String("driver", "sqlite", `database driver, can be "sqlite" or "postgres"`)
	rootCmd.PersistentFlags().String("dsn", "", "database source name (aka. DSN)")

	ingestCmd.Flags().String("category-file", "", "path of the category/metadata JSONL feed")
	ingestCmd.Flags().String("summary-file", "", "path of the LLM-summary JSONL feed")

	for _, flag := range []string{"mode", "addr", "port", "data", "driver", "dsn"} {
		if err := viper.BindPFlag(flag, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
			panic(err)
		}
	}
	for _, flag := range []string{"category-file", "summary-file"} {
		if err := viper.BindPFlag(flag, ingestCmd.Flags().Lookup(flag)); err != nil {
			panic(err)
		}
	}

	viper.SetEnvPrefix("newstrove")
	viper.AutomaticEnv()

	rootCmd.AddCommand(ingestCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("failed to execute command", "error", err)
		os.Exit(1)
	}
}
