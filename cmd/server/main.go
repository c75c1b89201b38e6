package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sketchduel/sketchduel-backend/internal/config"
	"github.com/sketchduel/sketchduel-backend/internal/game"
	"github.com/sketchduel/sketchduel-backend/internal/httpapi"
	"github.com/sketchduel/sketchduel-backend/internal/matchmaker"
	"github.com/sketchduel/sketchduel-backend/internal/user"
	"github.com/sketchduel/sketchduel-backend/internal/words"
	"github.com/sketchduel/sketchduel-backend/internal/ws"
)

const shutdownGrace = 5 * time.Second

func newCmd(cfg *config.Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("SKETCHDUEL")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "sketchduel-server",
		Short:         "Two-player drawing and guessing game server.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.Bind, "bind", "b", cfg.Bind, "address to bind to (env: SKETCHDUEL_BIND)")
	fs.IntVarP(&cfg.Port, "port", "p", cfg.Port, "port to listen on (env: SKETCHDUEL_PORT)")
	fs.StringVar(&cfg.AllowedOrigin, "allowed-origin", cfg.AllowedOrigin, "websocket origin pattern (env: SKETCHDUEL_ALLOWED_ORIGIN)")
	fs.StringVar(&cfg.WordsFile, "words-file", cfg.WordsFile, "path to newline-separated word list; built-in list when empty (env: SKETCHDUEL_WORDS_FILE)")
	fs.IntVar(&cfg.TurnSeconds, "turn-seconds", cfg.TurnSeconds, "drawing time per round (env: SKETCHDUEL_TURN_SECONDS)")
	fs.BoolVarP(&cfg.Verbose, "verbose", "v", cfg.Verbose, "display additional output (env: SKETCHDUEL_VERBOSE)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})

	return cmd
}

func run(ctx context.Context, cfg *config.Config) error {
	log, err := newLogger(cfg.Verbose)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	provider, err := newWords(cfg.WordsFile)
	if err != nil {
		return fmt.Errorf("load words: %w", err)
	}
	log.Info("word list loaded", zap.Int("words", provider.Len()))

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	users := user.NewRegistry()
	gateway := ws.NewGateway(log)
	mm := matchmaker.New(ctx, matchmaker.Config{
		Out:         gateway,
		Users:       users,
		Words:       provider,
		Clock:       game.WallClock{},
		TurnSeconds: cfg.TurnSeconds,
		Log:         log,
	})

	srv := &http.Server{
		Addr:    cfg.Addr(),
		Handler: httpapi.SetupRoutes(gateway, mm, users, []string{cfg.AllowedOrigin}, log),
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func newWords(path string) (*words.Provider, error) {
	if path == "" {
		return words.New(words.DefaultWords)
	}
	return words.FromFile(path)
}

func main() {
	// Local .env files are optional.
	_ = godotenv.Load()

	cfg := config.Default()
	if err := newCmd(&cfg).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
