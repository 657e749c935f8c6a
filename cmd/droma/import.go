package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/mugpeng/droma-registry/pkg/annotation"
	"github.com/mugpeng/droma-registry/pkg/harmonize"
	"github.com/mugpeng/droma-registry/pkg/vocab"
)

// cmdImport seeds the annotation database from a vocabulary directory, or
// from a vocabulary downloaded into vocab_dir first.
func cmdImport(args []string) error {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	cfgPath := fs.String("config", "config.yaml", "path to config file")
	kindStr := fs.String("kind", "", "sample or drug (required with -source)")
	vocabDir := fs.String("vocab", "", "vocabulary directory holding manifest.yaml")
	source := fs.String("source", "", "URL of a vocabulary CSV or ZIP to download")
	id := fs.String("id", "", "vocabulary id for -source (default: kind)")
	fs.Parse(args)

	if (*vocabDir == "") == (*source == "") {
		return fmt.Errorf("exactly one of -vocab or -source is required")
	}

	cfg, err := loadConfig(*cfgPath, newLogger("info"))
	if err != nil {
		return err
	}
	logger := newLogger(cfg.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	var v *vocab.Vocabulary
	if *vocabDir != "" {
		v, err = vocab.LoadVocabulary(*vocabDir)
	} else {
		kind, kerr := harmonize.ParseKind(*kindStr)
		if kerr != nil {
			return kerr
		}
		if *id == "" {
			*id = string(kind)
		}
		logger.Info("downloading vocabulary", "url", *source, "dir", cfg.VocabDir)
		v, err = vocab.Install(ctx, *source, cfg.VocabDir, *id, kind)
	}
	if err != nil {
		return err
	}

	store, err := annotation.Open(cfg.DBPath, annotation.WithLogger(logger))
	if err != nil {
		return err
	}
	defer store.Close()

	n, err := store.ImportEntries(ctx, v.Manifest.Kind, v.Entries)
	if err != nil {
		return err
	}
	logger.Info("import done", "vocab", v.Manifest.ID, "kind", v.Manifest.Kind,
		"entries", len(v.Entries), "added", n, "db", cfg.DBPath)
	return nil
}
