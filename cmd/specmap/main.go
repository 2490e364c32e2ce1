// Package main is the batch mapping CLI. It reads a delimited survey file,
// applies a named source adapter, maps every row, and writes an annotated
// output file.
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/specialty-map-server/internal/config"
	"github.com/specialty-map-server/internal/domain"
	"github.com/specialty-map-server/internal/overrides"
	"github.com/specialty-map-server/internal/service"
	"github.com/specialty-map-server/internal/taxonomy"
)

func main() {
	var (
		inPath    = flag.String("in", "", "input CSV file (required)")
		outPath   = flag.String("out", "", "output CSV file (default: stdout)")
		source    = flag.String("source", "", "source adapter tag, e.g. MGMA (required)")
		delimiter = flag.String("delimiter", ",", "field delimiter")
	)
	flag.Parse()

	if *inPath == "" || *source == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg := config.LoadLiteConfig()

	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetFormatter(&logrus.TextFormatter{})
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if err := run(cfg, logger, *inPath, *outPath, *source, *delimiter); err != nil {
		log.Fatalf("specmap: %v", err)
	}
}

func run(cfg *config.LiteConfig, logger *logrus.Logger, inPath, outPath, source, delimiter string) error {
	registry := service.NewAdapterRegistry()
	adapter, err := registry.Get(source)
	if err != nil {
		return err
	}

	mapper, err := buildEngine(cfg, logger)
	if err != nil {
		return err
	}

	in, err := os.Open(inPath)
	if err != nil {
		return fmt.Errorf("opening input: %w", err)
	}
	defer in.Close()

	comma := delimiterRune(delimiter)

	reader := csv.NewReader(in)
	reader.Comma = comma
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return fmt.Errorf("reading header: %w", err)
	}

	rows, err := reader.ReadAll()
	if err != nil {
		return fmt.Errorf("reading rows: %w", err)
	}

	inputs := make([]domain.RawInput, len(rows))
	for i, row := range rows {
		sourceRow := make(service.SourceRow, len(header))
		for j, col := range header {
			if j < len(row) {
				sourceRow[col] = row[j]
			}
		}
		input, err := adapter.Adapt(sourceRow)
		if err != nil {
			return fmt.Errorf("row %d: %w", i+2, err)
		}
		inputs[i] = input
	}

	decisions, err := mapper.MapSpecialties(context.Background(), inputs)
	if err != nil {
		return fmt.Errorf("mapping: %w", err)
	}

	out := os.Stdout
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("creating output: %w", err)
		}
		defer f.Close()
		out = f
	}

	writer := csv.NewWriter(out)
	writer.Comma = comma
	defer writer.Flush()

	annotated := append(append([]string{}, header...),
		"canonical_id", "confidence", "domain", "parent_bucket", "rules_hit")
	if err := writer.Write(annotated); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	decided := 0
	for i, row := range rows {
		d := decisions[i]
		if d.Decided() {
			decided++
		}
		record := append(append([]string{}, row...),
			d.DecidedCanonicalID,
			strconv.FormatFloat(d.Confidence, 'f', 4, 64),
			string(d.Domain),
			d.ParentBucket,
			strings.Join(d.RulesHit, ";"),
		)
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flushing output: %w", err)
	}

	logger.WithFields(logrus.Fields{
		"rows":      len(rows),
		"decided":   decided,
		"undecided": len(rows) - decided,
	}).Info("Batch mapping complete")
	return nil
}

// delimiterRune returns the first rune of the -delimiter flag, falling back
// to a comma when the flag is empty.
func delimiterRune(s string) rune {
	for _, r := range s {
		return r
	}
	return ','
}

// buildEngine loads all configuration documents and assembles the engine the
// same way the servers do.
func buildEngine(cfg *config.LiteConfig, logger *logrus.Logger) (*service.MapperService, error) {
	tax, err := taxonomy.LoadTaxonomy(cfg.TaxonomyPath)
	if err != nil {
		return nil, fmt.Errorf("loading taxonomy: %w", err)
	}
	syn, err := taxonomy.LoadSynonyms(cfg.SynonymsPath)
	if err != nil {
		return nil, fmt.Errorf("loading synonyms: %w", err)
	}
	index, err := taxonomy.NewIndex(tax, syn)
	if err != nil {
		return nil, fmt.Errorf("building index: %w", err)
	}
	ruleDocs, err := taxonomy.LoadRuleDocuments(cfg.RulesDir)
	if err != nil {
		return nil, fmt.Errorf("loading rules: %w", err)
	}
	ruleset, err := taxonomy.NewRuleset(ruleDocs, index)
	if err != nil {
		return nil, fmt.Errorf("compiling rules: %w", err)
	}

	fileDoc, err := taxonomy.LoadOverrides(cfg.OverridesPath)
	if err != nil {
		return nil, fmt.Errorf("loading overrides: %w", err)
	}

	var records []*overrides.Record
	if _, err := os.Stat(cfg.OverridesDBPath()); err == nil {
		store, err := overrides.NewSQLiteStore(cfg.OverridesDBPath())
		if err != nil {
			return nil, fmt.Errorf("opening override store: %w", err)
		}
		defer store.Close()
		records, err = store.ListAll(context.Background())
		if err != nil {
			return nil, fmt.Errorf("listing overrides: %w", err)
		}
	}

	normalizer := service.NewNormalizer()
	resolved := overrides.Resolve(fileDoc.Overrides, records, normalizer.Normalize)

	return service.NewMapperService(logger, index, ruleset, resolved, domain.DefaultEngineConfig()), nil
}
