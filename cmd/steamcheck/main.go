// Command steamcheck marks the games of a page that a Steam account owns or
// has wishlisted.
//
// Usage:
//
//	steamcheck -steamid 76561197960287930 -id64      # save the account
//	steamcheck -remove-data                          # drop cached game data
//	steamcheck -page store.html -path /store         # mark a saved page
//	steamcheck -url https://store.example.com/store  # mark and watch a live page
//	steamcheck -serve [-mcp]                         # HTTP routes (and MCP on stdio)
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mattn/go-isatty"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	_ "modernc.org/sqlite"

	"github.com/hazyhaar/steamcheck/checker"
)

var version = "dev"

type options struct {
	configPath string
	dbPath     string
	logLevel   string
	steamID    string
	id64       bool
	removeData bool
	pageFile   string
	pagePath   string
	pageURL    string
	serve      bool
	mcp        bool
}

func main() {
	var o options
	flag.StringVar(&o.configPath, "config", "", "path to steamcheck.yaml config file")
	flag.StringVar(&o.dbPath, "db", "", "SQLite database path (overrides config)")
	flag.StringVar(&o.logLevel, "log-level", "info", "log level: debug, info, warn, error")
	flag.StringVar(&o.steamID, "steamid", "", "save this Steam account and exit")
	flag.BoolVar(&o.id64, "id64", false, "the -steamid value is a 64-bit numeric id")
	flag.BoolVar(&o.removeData, "remove-data", false, "remove cached game data and exit")
	flag.StringVar(&o.pageFile, "page", "", "HTML file to mark; the result goes to stdout")
	flag.StringVar(&o.pagePath, "path", "", "page path of -page, matched against the selector patterns")
	flag.StringVar(&o.pageURL, "url", "", "open a live page and keep marking it until interrupted")
	flag.BoolVar(&o.serve, "serve", false, "serve the HTTP routes")
	flag.BoolVar(&o.mcp, "mcp", false, "serve MCP tools on stdin/stdout")
	flag.Parse()

	_ = godotenv.Load()
	logger := newLogger(o.logLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, o); err != nil {
		logger.Error("steamcheck: fatal", "error", err)
		os.Exit(1)
	}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd()) {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}

func loadConfig(o options) (*checker.Config, error) {
	cfg := &checker.Config{}
	if o.configPath != "" {
		c, err := checker.LoadConfigFile(o.configPath)
		if err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
		cfg = c
	}
	cfg.ApplyEnv()
	if o.dbPath != "" {
		cfg.DBPath = o.dbPath
	}
	return cfg, nil
}

func run(ctx context.Context, logger *slog.Logger, o options) error {
	cfg, err := loadConfig(o)
	if err != nil {
		return err
	}

	c, err := checker.Open(cfg, logger)
	if err != nil {
		return err
	}
	defer c.Close()

	switch {
	case o.steamID != "":
		return c.SetIdentity(ctx, checker.Identity{SteamID: o.steamID, ID64: o.id64})
	case o.removeData:
		msg, err := c.RemoveGameData(ctx)
		if err != nil {
			return err
		}
		fmt.Println(msg)
		return nil
	case o.pageFile != "":
		return runPage(ctx, logger, c, o)
	case o.pageURL != "":
		return runLive(ctx, logger, c, o.pageURL)
	case o.serve || o.mcp:
		return runServe(ctx, logger, c, cfg, o)
	}

	fmt.Fprintln(os.Stderr, "usage: steamcheck -steamid <id> [-id64] | -remove-data | -page <file> -path <path> | -url <url> | -serve [-mcp]")
	flag.PrintDefaults()
	os.Exit(2)
	return nil
}

func runPage(ctx context.Context, logger *slog.Logger, c *checker.Checker, o options) error {
	if o.pagePath == "" {
		return errors.New("-page requires -path")
	}
	f, err := os.Open(o.pageFile)
	if err != nil {
		return err
	}
	defer f.Close()

	page, err := checker.NewStaticPage(o.pagePath, f)
	if err != nil {
		return err
	}
	sess, err := c.Process(ctx, page)
	if err != nil {
		return err
	}
	defer sess.Close()

	rep := sess.Report()
	logger.Info("steamcheck: page marked",
		"session", rep.ID, "inert", rep.Inert, "reason", rep.Reason,
		"candidates", len(rep.Candidates), "marked", rep.Marked)

	out, err := page.Render()
	if err != nil {
		return err
	}
	_, err = os.Stdout.WriteString(out)
	return err
}

func runLive(ctx context.Context, logger *slog.Logger, c *checker.Checker, pageURL string) error {
	sess, err := c.ProcessURL(ctx, pageURL)
	if err != nil {
		return err
	}
	defer sess.Close()

	rep := sess.Report()
	if rep.Inert {
		logger.Info("steamcheck: nothing to watch", "reason", rep.Reason)
		return nil
	}
	logger.Info("steamcheck: watching", "url", pageURL, "session", rep.ID)
	<-ctx.Done()

	rep = sess.Report()
	logger.Info("steamcheck: stopped", "scans", rep.Scans, "marked", rep.Marked)
	return nil
}

func runServe(ctx context.Context, logger *slog.Logger, c *checker.Checker, cfg *checker.Config, o options) error {
	errCh := make(chan error, 2)

	if o.mcp {
		srv := mcp.NewServer(&mcp.Implementation{Name: "steamcheck", Version: version}, nil)
		c.RegisterMCP(srv)
		go func() {
			logger.Info("MCP stdio starting")
			errCh <- srv.Run(ctx, &mcp.StdioTransport{})
		}()
	}

	var httpSrv *http.Server
	if o.serve {
		httpSrv = &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           c.Routes(),
			ReadHeaderTimeout: 10 * time.Second,
			WriteTimeout:      60 * time.Second,
			IdleTimeout:       60 * time.Second,
		}
		go func() {
			logger.Info("server starting", "addr", cfg.HTTPAddr)
			if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				errCh <- err
			}
		}()
	}

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && ctx.Err() == nil {
			return err
		}
	}
	logger.Info("shutting down")

	if httpSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown", "error", err)
		}
	}
	return nil
}
