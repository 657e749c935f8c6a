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

	"github.com/mark3labs/mcp-go/server"

	"github.com/mugpeng/droma-registry/pkg/annotation"
	"github.com/mugpeng/droma-registry/pkg/api"
	"github.com/mugpeng/droma-registry/pkg/harmonize"
	"github.com/mugpeng/droma-registry/pkg/vocab"
)

var version = "dev"

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "serve":
		err = cmdServe(os.Args[2:])
	case "mcp":
		err = cmdMCP(os.Args[2:])
	case "harmonize":
		err = cmdHarmonize(os.Args[2:])
	case "import":
		err = cmdImport(os.Args[2:])
	case "tables":
		err = cmdTables(os.Args[2:])
	default:
		usage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "droma %s: %v\n", os.Args[1], err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprint(os.Stderr, `Usage: droma <command> [flags]

Commands:
  serve       Start the HTTP server
  mcp         Serve MCP tools over stdio
  harmonize   Harmonize names from a .txt, .csv or .xlsx file
  import      Seed the annotation database from a vocabulary
  tables      List tables and projects in the annotation database
`)
}

// backends holds what the commands share. Store and Vocabs are nil when not
// configured.
type backends struct {
	cfg        config
	logger     *slog.Logger
	store      *annotation.Store
	vocabs     *vocab.Registry
	harmonizer *harmonize.Harmonizer
}

func openBackends(cfgPath string) (*backends, error) {
	boot := newLogger("info")
	cfg, err := loadConfig(cfgPath, boot)
	if err != nil {
		return nil, err
	}
	b := &backends{cfg: cfg, logger: newLogger(cfg.LogLevel)}

	if cfg.DBPath != "" {
		if _, statErr := os.Stat(cfg.DBPath); statErr == nil || cfg.Source == "db" {
			b.store, err = annotation.Open(cfg.DBPath, annotation.WithLogger(b.logger))
			if err != nil {
				return nil, err
			}
		}
	}
	if cfg.VocabDir != "" {
		if _, statErr := os.Stat(cfg.VocabDir); statErr == nil || cfg.Source == "vocab" {
			b.vocabs = vocab.NewRegistry(cfg.VocabDir)
			if err := b.vocabs.Load(); err != nil {
				b.Close()
				return nil, err
			}
			b.logger.Info("vocabularies loaded", "count", b.vocabs.Count(), "entries", b.vocabs.TotalEntries())
		}
	}

	rules, err := cfg.rules()
	if err != nil {
		b.Close()
		return nil, err
	}
	var source harmonize.CanonicalSource = b.vocabs
	if cfg.Source == "db" {
		source = b.store
	}
	b.harmonizer = harmonize.New(source, harmonize.WithLogger(b.logger), harmonize.WithRules(rules))
	return b, nil
}

func (b *backends) apiConfig() api.Config {
	cfg := api.Config{
		Harmonizer: b.harmonizer,
		Defaults:   b.cfg.Harmonize,
		MaxNames:   b.cfg.MaxNames,
		Timeout:    time.Duration(b.cfg.RequestTimeout) * time.Second,
		Logger:     b.logger,
	}
	if b.store != nil {
		cfg.Annotations = b.store
	}
	if b.vocabs != nil {
		cfg.Vocabularies = b.vocabs
	}
	return cfg
}

func (b *backends) Close() {
	if b.store != nil {
		b.store.Close()
	}
}

func cmdServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	cfgPath := fs.String("config", "config.yaml", "path to config file")
	fs.Parse(args)

	b, err := openBackends(*cfgPath)
	if err != nil {
		return err
	}
	defer b.Close()
	logger := b.logger

	srv := &http.Server{
		Addr:              b.cfg.Addr,
		Handler:           api.NewRouter(b.apiConfig()),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// SIGHUP: hot reload vocabularies.
	// SIGINT/SIGTERM: graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sighup := make(chan os.Signal, 1)
	signal.Notify(sighup, syscall.SIGHUP)
	defer signal.Stop(sighup)
	go func() {
		for range sighup {
			if b.vocabs == nil {
				continue
			}
			logger.Info("SIGHUP received, reloading vocabularies")
			if err := b.vocabs.Reload(); err != nil {
				logger.Error("reload failed", "error", err)
			} else {
				logger.Info("vocabularies reloaded", "count", b.vocabs.Count(), "entries", b.vocabs.TotalEntries())
			}
		}
	}()

	errc := make(chan error, 1)
	go func() {
		logger.Info("droma listening", "addr", b.cfg.Addr, "source", b.cfg.Source)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("server: %w", err)
	case <-ctx.Done():
	}
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func cmdMCP(args []string) error {
	fs := flag.NewFlagSet("mcp", flag.ExitOnError)
	cfgPath := fs.String("config", "config.yaml", "path to config file")
	fs.Parse(args)

	b, err := openBackends(*cfgPath)
	if err != nil {
		return err
	}
	defer b.Close()

	b.logger.Info("serving MCP over stdio", "source", b.cfg.Source)
	return server.ServeStdio(api.NewMCPServer(b.apiConfig(), version))
}

func cmdTables(args []string) error {
	fs := flag.NewFlagSet("tables", flag.ExitOnError)
	cfgPath := fs.String("config", "config.yaml", "path to config file")
	fs.Parse(args)

	b, err := openBackends(*cfgPath)
	if err != nil {
		return err
	}
	defer b.Close()
	if b.store == nil {
		return fmt.Errorf("no annotation database at %q", b.cfg.DBPath)
	}

	ctx := context.Background()
	tables, err := b.store.Tables(ctx)
	if err != nil {
		return err
	}
	for _, t := range tables {
		fmt.Println(t)
	}
	for _, kind := range []harmonize.Kind{harmonize.KindSample, harmonize.KindDrug} {
		projects, err := b.store.Projects(ctx, kind)
		if err != nil {
			return err
		}
		fmt.Printf("\n%s projects (%d):\n", kind, len(projects))
		for _, p := range projects {
			fmt.Printf("  %s\n", p)
		}
	}
	return nil
}
