package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"socialrelay/internal/api"
	"socialrelay/internal/cmdlog"
	"socialrelay/internal/config"
	"socialrelay/internal/httpx"
	"socialrelay/internal/ingest"
	"socialrelay/internal/linkedin"
	"socialrelay/internal/logging"
	"socialrelay/internal/model"
	"socialrelay/internal/session"
	"socialrelay/internal/store/redisstore"
	"socialrelay/internal/store/sqlitestore"
	"socialrelay/internal/suggest"
	"socialrelay/internal/theme"
	"socialrelay/internal/xclient"
)

const defaultConfigPath = "./socialrelay.yaml"

func main() {
	cmd := ""
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}
	var err error
	switch cmd {
	case "serve":
		err = cmdServe(os.Args[2:])
	case "init":
		err = cmdInit(os.Args[2:])
	case "draft":
		err = cmdDraft(os.Args[2:])
	default:
		printHelp()
		return
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func printHelp() {
	theme.PrintBanner(os.Stdout)
	fmt.Println("Usage: socialrelay <command> [options]")
	fmt.Println("Commands:")
	fmt.Println("  serve       Run the HTTP relay")
	fmt.Println("  init        Create a config file at ./socialrelay.yaml")
	fmt.Println("  draft       Draft replies for the configured account's home timeline")
}

func cmdInit(args []string) error {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	path := fs.String("path", defaultConfigPath, "path to write config")
	_ = fs.Parse(args)
	logger := logging.Init("")
	return cmdlog.Run(logger, "init", func() error {
		if err := config.Save(*path, config.Default()); err != nil {
			return err
		}
		abs, _ := filepath.Abs(*path)
		theme.PrintBanner(os.Stdout)
		fmt.Println("Config written to:", abs)
		return nil
	})
}

func cmdServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	cfgPath := fs.String("config", defaultConfigPath, "config path")
	addr := fs.String("addr", "", "listen address, overrides server.addr")
	_ = fs.Parse(args)

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		return err
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	logger := logging.Init(cfg.Log.Level)
	return cmdlog.Run(logger, "serve", func() error {
		if err := cfg.Validate(); err != nil {
			return err
		}
		return serve(cfg, logger)
	})
}

func serve(cfg config.Config, logger *slog.Logger) error {
	store, closeStore, err := openSessionStore(cfg.Session)
	if err != nil {
		return fmt.Errorf("open session store: %w", err)
	}
	defer closeStore()

	x := newTwitterClient(cfg, logger)
	srv := api.New(cfg, api.Deps{
		Twitter:  x,
		LinkedIn: linkedin.New(linkedin.Options{APIBaseURL: cfg.LinkedIn.APIBaseURL, HTTP: upstreamOptions(cfg, logger)}),
		Replies:  newReplyEngine(cfg, logger),
		Sessions: session.NewManager(store, cfg.Session.Secret, cfg.Session.TTL, cfg.Session.CookieSecure),
		Logger:   logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Start(cfg.Server.Addr)
	})
	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if p, ok := store.(purger); ok {
		g.Go(func() error {
			purgeLoop(gCtx, p, time.Hour, logger)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("server exited")
	return nil
}

// cmdDraft prints drafted replies for the account configured in twitter.access_token.
func cmdDraft(args []string) error {
	fs := flag.NewFlagSet("draft", flag.ExitOnError)
	cfgPath := fs.String("config", defaultConfigPath, "config path")
	limit := fs.Int("limit", 0, "draft at most this many tweets (0 = all)")
	_ = fs.Parse(args)

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		return err
	}
	logger := logging.Init(cfg.Log.Level)
	return cmdlog.Run(logger, "draft", func() error {
		creds := model.Credentials{AccessToken: cfg.Twitter.AccessToken, AccessSecret: cfg.Twitter.AccessSecret}
		if !creds.Valid() {
			return errors.New("draft needs twitter.access_token and twitter.access_secret (or X_ACCESS_TOKEN / X_ACCESS_SECRET)")
		}
		if cfg.LLM.APIKey == "" {
			return errors.New("draft needs llm.api_key (or OPEN_AI_KEY)")
		}
		ctx := context.Background()
		items, err := ingest.HomeTimeline(ctx, newTwitterClient(cfg, logger), creds, logger)
		if err != nil {
			return err
		}
		if *limit > 0 && len(items) > *limit {
			items = items[:*limit]
		}
		replies, err := newReplyEngine(cfg, logger).GenerateReplies(ctx, items)
		if err != nil {
			return err
		}
		return printDrafts(os.Stdout, replies)
	})
}

func printDrafts(w io.Writer, replies []model.ReplyResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(replies)
}

func upstreamOptions(cfg config.Config, logger *slog.Logger) httpx.Options {
	return httpx.Options{
		Timeout:     cfg.Upstream.Timeout,
		RPS:         cfg.Upstream.RPS,
		Burst:       cfg.Upstream.Burst,
		MaxAttempts: cfg.Upstream.MaxAttempts,
		BaseBackoff: cfg.Upstream.BaseBackoff,
		Logger:      logger,
	}
}

func newTwitterClient(cfg config.Config, logger *slog.Logger) *xclient.HTTPClient {
	if cfg.Twitter.BearerToken == "" {
		logger.Warn("twitter bearer token missing; user lookups will fail")
	}
	return xclient.NewHTTPClient(xclient.Options{
		APIBaseURL:     cfg.Twitter.APIBaseURL,
		UploadBaseURL:  cfg.Twitter.UploadBaseURL,
		ConsumerKey:    cfg.Twitter.ConsumerKey,
		ConsumerSecret: cfg.Twitter.ConsumerSecret,
		CallbackURL:    cfg.Twitter.CallbackURL,
		BearerToken:    cfg.Twitter.BearerToken,
		HTTP:           upstreamOptions(cfg, logger),
	})
}

func newReplyEngine(cfg config.Config, logger *slog.Logger) *suggest.Engine {
	if cfg.LLM.APIKey == "" {
		logger.Warn("llm api key missing; reply drafts will fail")
	}
	oa := suggest.NewOpenAIClient(cfg.LLM.BaseURL, cfg.LLM.APIKey, llmOptions(cfg, logger))
	return suggest.NewEngine(oa,
		suggest.Options{Model: cfg.LLM.Model, Temperature: cfg.LLM.Temperature, MaxTokens: cfg.LLM.MaxTokens},
		suggest.WithConcurrency(cfg.LLM.Concurrency),
		suggest.WithCallTimeout(cfg.LLM.Timeout),
		suggest.WithLogger(logger),
	)
}

// llmOptions derives the completion client settings from the upstream ones.
func llmOptions(cfg config.Config, logger *slog.Logger) httpx.Options {
	opts := upstreamOptions(cfg, logger)
	// the fan-out bounds concurrency; the shared limiter would serialize it
	opts.RPS = 0
	if cfg.LLM.Timeout > 0 {
		opts.Timeout = cfg.LLM.Timeout
	}
	return opts
}

type purger interface {
	Purge(ctx context.Context) (int64, error)
}

func openSessionStore(cfg config.SessionConfig) (session.Store, func(), error) {
	switch cfg.Backend {
	case "redis":
		c, err := redisstore.New(cfg.RedisAddr)
		if err != nil {
			return nil, nil, err
		}
		return c, func() { _ = c.Close() }, nil
	default:
		db, err := sqlitestore.Open(cfg.DBPath)
		if err != nil {
			return nil, nil, err
		}
		return db, func() { _ = db.Close() }, nil
	}
}

func purgeLoop(ctx context.Context, p purger, every time.Duration, logger *slog.Logger) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := p.Purge(ctx)
			if err != nil {
				logger.Warn("session_purge_failed", "error", err.Error())
				continue
			}
			if n > 0 {
				logger.Info("session_purge", "removed", n)
			}
		}
	}
}
