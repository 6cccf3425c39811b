package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/mutalyzer/hgvsd/internal/position"
	"github.com/mutalyzer/hgvsd/internal/refseq"
	"github.com/mutalyzer/hgvsd/internal/rpcservice"
	"github.com/mutalyzer/hgvsd/internal/store"
)

func runServe(args []string) int {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)

	var (
		addr               string
		cacheDir           string
		fastaPath          string
		dbPath             string
		production         bool
		gtfPath            string
		canonicalOverrides string
	)
	fs.StringVar(&addr, "addr", ":8080", "Address to listen on")
	fs.StringVar(&cacheDir, "cache-dir", defaultCacheDir(), "Directory holding the transcript cache (see 'hgvsd download'/'cacheSync')")
	fs.StringVar(&fastaPath, "fasta", "", "Reference-sequence FASTA file for getGenBank (falls back to the Ensembl REST API if empty)")
	fs.StringVar(&dbPath, "db", "", "DuckDB file for accession/batch bookkeeping (in-memory if empty)")
	fs.BoolVar(&production, "production", false, "Use zap's production (JSON) log encoder instead of the development console encoder")
	fs.StringVar(&gtfPath, "gtf", "", "GENCODE-style GTF file to build the transcript cache from on startup, if cache-dir is empty or stale")
	fs.StringVar(&canonicalOverrides, "canonical-overrides", "", "Genome Nexus canonical-transcript TSV applied on top of --gtf")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Start the checkSyntax/batchCheck/numberConversion/getGenBank/cacheSync JSON-over-HTTP service.

Usage:
  hgvsd serve [options]

Options:
`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return ExitUsage
	}

	var logger *zap.Logger
	var err error
	if production {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error building logger: %v\n", err)
		return ExitError
	}
	defer logger.Sync()

	var resolver refseq.Resolver
	if fastaPath != "" {
		resolver = refseq.NewFileStore(fastaPath)
	} else {
		resolver = refseq.NewRESTClient("GRCh38")
	}

	st, err := store.Open(dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening store: %v\n", err)
		return ExitError
	}
	defer st.Close()

	cache := store.NewTranscriptCache(cacheDir)
	if gtfPath != "" {
		n, err := store.SyncFromGTF(cache, gtfPath, fastaPath, canonicalOverrides)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: --gtf sync failed: %v\n", err)
			return ExitError
		}
		logger.Info("synced transcript cache from GTF", zap.String("gtf", gtfPath), zap.Int("transcripts", n))
	}

	var mapper *position.Mapper
	if byChrom, err := cache.Load(); err == nil {
		var flat []*position.Transcript
		for _, ts := range byChrom {
			flat = append(flat, ts...)
		}
		mapper = position.NewMapper("", flat)
		logger.Info("loaded transcript cache", zap.Int("transcripts", len(flat)))
	} else {
		logger.Warn("no transcript cache loaded; numberConversion returns ECACHE until cacheSync runs", zap.Error(err))
	}

	svc := rpcservice.NewService(resolver, st, cache, mapper, logger)

	logger.Info("hgvsd serve starting", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, svc.Routes()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: server stopped: %v\n", err)
		return ExitError
	}
	return ExitSuccess
}

func defaultCacheDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".hgvsd-cache"
	}
	return filepath.Join(home, ".hgvsd", "cache")
}
