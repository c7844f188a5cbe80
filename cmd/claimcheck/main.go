package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	claimcheck "github.com/nocaplabs/claimcheck"
	"github.com/nocaplabs/claimcheck/ai"
	"github.com/nocaplabs/claimcheck/server"
	"github.com/nocaplabs/claimcheck/websearch/brave"
)

func main() {
	// Local overrides; a missing .env file is fine.
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "claimcheck",
		Usage: "Fact-checking service with cascading verification",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP verification service",
				Action: serveCommand,
				Flags: append(appFlags(),
					&cli.StringFlag{
						Name:  "addr",
						Usage: "Address to listen on",
						Value: ":8080",
					},
				),
			},
			{
				Name:      "ask",
				Usage:     "Verify a single claim and print the result as JSON",
				ArgsUsage: "<question>",
				Action:    askCommand,
				Flags: append(appFlags(),
					&cli.StringFlag{
						Name:  "session",
						Usage: "Session identifier for conversational context",
					},
				),
			},
			{
				Name:   "stats",
				Usage:  "Print corpus and storage statistics as JSON",
				Action: statsCommand,
				Flags:  appFlags(),
			},
			{
				Name:   "reembed",
				Usage:  "Regenerate every corpus vector with the current embedding model",
				Action: reembedCommand,
				Flags:  appFlags(),
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// appFlags returns the flags shared by every command that opens the
// application.
func appFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "data",
			Aliases: []string{"d"},
			Usage:   "Path to the data directory",
			Value:   "./claimcheck_data",
		},
		&cli.StringFlag{
			Name:  "ai-host",
			Usage: "OpenAI-compatible service host URL",
			Value: "http://localhost:11434/v1",
		},
		&cli.StringFlag{
			Name:  "embedding-model",
			Usage: "Embedding model name",
			Value: "all-minilm",
		},
		&cli.StringFlag{
			Name:  "generator-model",
			Usage: "Generator model name",
			Value: "qwen2.5:3b",
		},
		&cli.IntFlag{
			Name:  "dimension",
			Usage: "Embedding vector dimension",
			Value: 384,
		},
		&cli.StringFlag{
			Name:    "brave-api-key",
			Usage:   "Brave Search API key; web evidence is disabled when empty",
			EnvVars: []string{"BRAVE_API_KEY"},
		},
	}
}

// openApp builds the application from command-line flags.
func openApp(c *cli.Context) (*claimcheck.App, error) {
	aiConfig := ai.NewConfig(
		ai.WithHost(c.String("ai-host")),
		ai.WithEmbeddingModel(c.String("embedding-model")),
		ai.WithGeneratorModel(c.String("generator-model")),
		ai.WithDimension(c.Int("dimension")),
	)

	opts := []claimcheck.AppOption{claimcheck.WithAIConfig(aiConfig)}
	if key := c.String("brave-api-key"); key != "" {
		search, err := brave.New(key)
		if err != nil {
			return nil, fmt.Errorf("creating web search client: %w", err)
		}
		opts = append(opts, claimcheck.WithWebSearch(search))
	}

	return claimcheck.NewApp(c.String("data"), opts...)
}

func serveCommand(c *cli.Context) error {
	app, err := openApp(c)
	if err != nil {
		return fmt.Errorf("opening application: %w", err)
	}
	defer app.Close()

	srv, err := server.New(app)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(c.String("addr"))
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		slog.Info("shutting down", "signal", sig.String())
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	}
}

func askCommand(c *cli.Context) error {
	question := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if question == "" {
		return fmt.Errorf("a question is required")
	}

	app, err := openApp(c)
	if err != nil {
		return fmt.Errorf("opening application: %w", err)
	}
	defer app.Close()

	result, err := app.Verify(context.Background(), question, c.String("session"))
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func statsCommand(c *cli.Context) error {
	app, err := openApp(c)
	if err != nil {
		return fmt.Errorf("opening application: %w", err)
	}
	defer app.Close()

	stats, err := app.Stats(context.Background())
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(stats)
}

func reembedCommand(c *cli.Context) error {
	app, err := openApp(c)
	if err != nil {
		return fmt.Errorf("opening application: %w", err)
	}
	defer app.Close()

	start := time.Now()
	if err := app.Reembed(context.Background()); err != nil {
		return fmt.Errorf("reembedding failed: %w", err)
	}
	fmt.Fprintf(os.Stderr, "reembedding complete in %s\n", time.Since(start).Round(time.Millisecond))
	return nil
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
