package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/mugpeng/droma-registry/pkg/annotation"
	"github.com/mugpeng/droma-registry/pkg/harmonize"
)

func cmdHarmonize(args []string) error {
	fs := flag.NewFlagSet("harmonize", flag.ExitOnError)
	cfgPath := fs.String("config", "config.yaml", "path to config file")
	kindStr := fs.String("kind", "sample", "sample or drug")
	input := fs.String("input", "", "input file (.txt, .csv, .tsv or .xlsx)")
	column := fs.String("column", "", "column holding names in .csv/.xlsx input (default: first)")
	sheet := fs.String("sheet", "", "worksheet in .xlsx input (default: first)")
	format := fs.String("format", "json", "output format: json or csv")
	output := fs.String("output", "", "output file (default: stdout)")
	project := fs.String("project", "", "project to restrict matching to, or with -register the project to register into")
	maxDistance := fs.Float64("max-distance", -1, "override harmonize.max_distance")
	minLength := fs.Int("min-name-length", -1, "override harmonize.min_name_length")
	register := fs.Bool("register", false, "add unmatched names to the annotation database")
	dataType := fs.String("data-type", "", "DataType for registered samples (e.g. CellLine)")
	tumorType := fs.String("tumor-type", "", "TumorType for registered samples")
	fs.Parse(args)

	kind, err := harmonize.ParseKind(*kindStr)
	if err != nil {
		return err
	}
	if *input == "" {
		return fmt.Errorf("-input is required")
	}
	names, err := readNames(*input, *column, *sheet)
	if err != nil {
		return err
	}

	b, err := openBackends(*cfgPath)
	if err != nil {
		return err
	}
	defer b.Close()

	opts := b.cfg.Harmonize
	if *maxDistance >= 0 {
		opts.MaxDistance = *maxDistance
	}
	if *minLength >= 0 {
		opts.MinNameLength = *minLength
	}
	if !*register {
		opts.Project = *project
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	results, err := b.harmonizer.HarmonizeNames(ctx, kind, names, opts)
	if err != nil {
		return err
	}

	var w io.Writer = os.Stdout
	if *output != "" {
		f, err := os.Create(*output)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		w = f
	}
	if err := writeResults(w, *format, results); err != nil {
		return fmt.Errorf("write results: %w", err)
	}

	if !*register {
		return nil
	}
	if b.store == nil {
		return fmt.Errorf("-register needs an annotation database (db_path)")
	}
	var attrs annotation.Attributes
	if *dataType != "" {
		attrs.DataType = annotation.One(*dataType)
	}
	if *tumorType != "" {
		attrs.TumorType = annotation.One(*tumorType)
	}
	sum, err := b.store.RegisterNames(ctx, kind, *project, harmonize.Unmatched(results), attrs)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "registered %d new %s names in %s (skipped %d)\n", sum.Added, kind, *project, sum.Skipped)
	return nil
}
