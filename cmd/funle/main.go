package main

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

	"github.com/letsssgooo/funle/internal/config"
	"github.com/letsssgooo/funle/internal/domain/models"
	"github.com/letsssgooo/funle/internal/lib/slogcustom"
	"github.com/letsssgooo/funle/internal/storage/postgres"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "funle",
		Short:         "Бэкенд обучающей платформы FunLe",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	config.BindFlags(rootCmd.PersistentFlags())

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(tokenCmd())
	rootCmd.AddCommand(importCmd())

	if err := rootCmd.Execute(); err != nil {
		slog.Error("command failed", "err", err)
		os.Exit(1)
	}
}

// loadConfig читает и проверяет конфигурацию, затем настраивает логгер.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(cmd.Flags(), os.LookupEnv)
	if err != nil {
		return config.Config{}, err
	}
	if err = cfg.Validate(); err != nil {
		return config.Config{}, err
	}

	slog.SetDefault(setupLogger(cfg.LogLevel))

	return cfg, nil
}

func setupLogger(level string) *slog.Logger {
	lvl, err := slogcustom.ParseLevel(level)
	if err != nil {
		lvl = slog.LevelInfo
	}

	return slog.New(slogcustom.NewCustomHandler(os.Stdout, lvl))
}

// serveCmd запускает HTTP сервер
func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Запустить HTTP сервер",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			st, err := openStorage(ctx, cfg.Storage)
			if err != nil {
				return err
			}
			defer st.Close()

			handler, err := newHandler(cfg, st)
			if err != nil {
				return err
			}

			server := &http.Server{
				Addr:         cfg.HTTPAddr,
				Handler:      handler,
				ReadTimeout:  15 * time.Second,
				WriteTimeout: 15 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				slog.Info("starting funle", "addr", cfg.HTTPAddr, "storage", cfg.Storage.Driver)
				errCh <- server.ListenAndServe()
			}()

			select {
			case err = <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
			}

			slog.Info("shutting down")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			return server.Shutdown(shutdownCtx)
		},
	}
}

// migrateCmd создает таблицы postgres
func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Создать таблицы и индексы postgres",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cfg.Storage.Driver != config.DriverPostgres {
				return fmt.Errorf("migrate needs the postgres driver, got %q", cfg.Storage.Driver)
			}

			st, err := postgres.NewStorage(cmd.Context(), cfg.Storage.PostgresDSN)
			if err != nil {
				return err
			}
			defer st.Close()

			if err = st.Migrate(cmd.Context()); err != nil {
				return err
			}

			slog.Info("migrations applied")

			return nil
		},
	}
}

// tokenCmd выпускает пару токенов для оператора
func tokenCmd() *cobra.Command {
	var subject, role string

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Выпустить access и refresh токены",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			r, err := models.ParseUserRole(role)
			if err != nil {
				return err
			}

			tokens, err := newTokenService(cfg.Token)
			if err != nil {
				return err
			}

			access, err := tokens.IssueAccess(subject, r)
			if err != nil {
				return err
			}
			refresh, err := tokens.IssueRefresh(subject, r)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "access:  %s\nrefresh: %s\n", access, refresh)

			return nil
		},
	}

	cmd.Flags().StringVar(&subject, "subject", "", "user id to put into the token")
	cmd.Flags().StringVar(&role, "role", string(models.RoleUser), "role: User|Student|Teacher")
	_ = cmd.MarkFlagRequired("subject")

	return cmd
}

// importCmd загружает YAML набор тестов и материалов в хранилище
func importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import [file]",
		Short: "Загрузить тесты и материалы из YAML файла",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cfg.Storage.Driver == config.DriverMemory {
				return errors.New("import into memory storage is lost on exit, choose bolt or postgres")
			}

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			st, err := openStorage(cmd.Context(), cfg.Storage)
			if err != nil {
				return err
			}
			defer st.Close()

			stats, err := newCatalog(st).Import(cmd.Context(), f)
			if err != nil {
				return err
			}

			slog.Info("content imported", "tests", stats.Tests, "action_tests", stats.ActionTests, "infos", stats.Infos)

			return nil
		},
	}
}
