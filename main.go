package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"socanalyzer/api"
	"socanalyzer/app"
	"socanalyzer/core"
	"socanalyzer/internal/logger"
	"socanalyzer/internal/secrets"
	"socanalyzer/normalize"
	"socanalyzer/oracle"
	"socanalyzer/parsers"
	"socanalyzer/retriever"
	"socanalyzer/store"
)

// Exit codes
const (
	ExitSuccess     = 0
	ExitErrorConfig = 1
	ExitErrorServer = 6
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:   "socanalyzer",
		Short: "SOC ticket analyzer: payload parsing, risk assessment and pattern storage",
	}
	root.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "Path to the YAML configuration file")

	root.AddCommand(serveCmd(), retrieverCmd(), initDBCmd(), ingestCmd(), setKeyCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(ExitErrorConfig)
	}
}

// loadConfig reads the config file and initializes logging and the oracle
// credential from the platform keyring when none is configured.
func loadConfig() (*app.Config, error) {
	cfg, err := app.Load(configPath)
	if err != nil {
		return nil, err
	}
	if err := logger.Init(cfg.Logging); err != nil {
		return nil, fmt.Errorf("failed to initialize logging: %w", err)
	}

	if cfg.Oracle.APIKey == "" {
		sec := secrets.NewStore(filepath.Dir(cfg.Database.Path))
		key, err := sec.OracleKey()
		switch {
		case err == nil:
			cfg.Oracle.APIKey = key
		case errors.Is(err, secrets.ErrNotFound):
			logger.Debug("no stored oracle credential, relying on config/env")
		default:
			logger.Warn("failed to load oracle credential: %v", err)
		}
	}
	return cfg, nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the dashboard API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			analyzer, err := app.NewAnalyzer(cfg)
			if err != nil {
				return err
			}
			defer analyzer.Close()

			server := api.NewServer(analyzer, cfg.Server)
			if err := server.Start(); err != nil {
				os.Exit(ExitErrorServer)
			}

			waitForShutdown()
			return server.Stop(15 * time.Second)
		},
	}
}

func retrieverCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "retriever",
		Short: "Run the similarity-retrieval microservice",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			st, err := store.Open(cfg.Database.Path)
			if err != nil {
				return err
			}
			defer st.Close()

			svc := retriever.NewService(st, oracle.New(cfg.Oracle),
				retriever.NewLexicalIndex(), cfg.Retriever.TopK)
			if err := svc.SeedFromStore(cmd.Context()); err != nil {
				return err
			}

			httpServer := &http.Server{
				Addr:         cfg.Retriever.ListenAddr,
				Handler:      svc.Handler(),
				ReadTimeout:  15 * time.Second,
				WriteTimeout: 180 * time.Second,
				IdleTimeout:  60 * time.Second,
			}
			go func() {
				logger.Info("starting retriever on http://%s", cfg.Retriever.ListenAddr)
				if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
					logger.Fatal("retriever server error: %v", err)
				}
			}()

			waitForShutdown()
			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			return httpServer.Shutdown(ctx)
		},
	}
}

func initDBCmd() *cobra.Command {
	var adminUser, adminPassword, adminEmail string

	cmd := &cobra.Command{
		Use:   "init-db",
		Short: "Create the database schema and an initial admin account",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			st, err := store.Open(cfg.Database.Path)
			if err != nil {
				return err
			}
			defer st.Close()

			if adminUser != "" {
				if _, err := st.GetUserByUsername(cmd.Context(), adminUser); err == nil {
					logger.Info("admin user %q already exists", adminUser)
					return nil
				}
				if adminPassword == "" {
					return fmt.Errorf("--admin-password is required with --admin-user")
				}
				user, err := st.CreateUser(cmd.Context(), adminUser, adminPassword, adminEmail, "admin")
				if err != nil {
					return err
				}
				logger.Info("created admin user %q (id %d)", user.Username, user.ID)
			}

			logger.Info("database ready at %s", cfg.Database.Path)
			return nil
		},
	}
	cmd.Flags().StringVar(&adminUser, "admin-user", "", "Username of the initial admin account")
	cmd.Flags().StringVar(&adminPassword, "admin-password", "", "Password of the initial admin account")
	cmd.Flags().StringVar(&adminEmail, "admin-email", "", "Email of the initial admin account")
	return cmd
}

func ingestCmd() *cobra.Command {
	var inputPath string

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Convert a Windows EVTX export into payloads and store local analyses",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if inputPath == "" {
				return fmt.Errorf("--input flag is required")
			}

			st, err := store.Open(cfg.Database.Path)
			if err != nil {
				return err
			}
			defer st.Close()

			payloads, err := parsers.ReadEvtxPayloads(inputPath)
			if err != nil {
				return err
			}
			logger.Info("read %d events from %s", len(payloads), inputPath)

			stored := 0
			for _, payload := range payloads {
				patternName, summary := oracle.ClassifyFallback(payload)
				fields := normalize.MapFields(parsers.ParsePayload(payload))
				report := normalize.GenerateReport(fields)

				if _, _, err := st.StoreAnalysis(cmd.Context(), store.StoreRequest{
					Payload:     payload,
					Report:      report,
					PatternName: patternName,
					Summary:     summary,
					Status:      core.StatusUndetermined,
					Tags:        "evtx-import",
				}); err != nil {
					logger.Error("failed to store analysis for event: %v", err)
					continue
				}
				stored++
			}

			logger.Info("ingest completed: %d/%d events stored", stored, len(payloads))
			return nil
		},
	}
	cmd.Flags().StringVar(&inputPath, "input", "", "Path to the .evtx file to ingest")
	return cmd
}

func setKeyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-key [api-key]",
		Short: "Store the default oracle API key in the platform keyring",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			sec := secrets.NewStore(filepath.Dir(cfg.Database.Path))
			if err := sec.SetOracleKey(args[0]); err != nil {
				return err
			}
			logger.Info("oracle API key stored")
			return nil
		},
	}
}

// waitForShutdown blocks until SIGINT or SIGTERM.
func waitForShutdown() {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
}
