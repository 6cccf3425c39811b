package store

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mutalyzer/hgvsd/internal/position"
)

// Syncer refreshes an on-disk TranscriptCache from a directory of
// gzipped, Sereal-encoded region files — the same per-chromosome
// layout a VEP-style cache download produces (<dir>/<chrom>/*.gz).
type Syncer struct {
	cache     *TranscriptCache
	sourceDir string
}

func NewSyncer(cache *TranscriptCache, sourceDir string) *Syncer {
	return &Syncer{cache: cache, sourceDir: sourceDir}
}

// Sync reads every region file under sourceDir, decodes it, and
// rewrites the transcript cache. It does not consult gtf/fasta
// fingerprints itself — callers that also maintain a GTF/FASTA-derived
// cache should call TranscriptCache.Valid first and skip Sync when
// the cache is already current.
func (s *Syncer) Sync(ctx context.Context) (int, error) {
	byChrom := make(map[string][]*position.Transcript)

	entries, err := os.ReadDir(s.sourceDir)
	if err != nil {
		return 0, fmt.Errorf("store: read cache source dir: %w", err)
	}

	total := 0
	for _, chromEntry := range entries {
		if !chromEntry.IsDir() {
			continue
		}
		select {
		case <-ctx.Done():
			return total, ctx.Err()
		default:
		}

		chrom := chromEntry.Name()
		chromDir := filepath.Join(s.sourceDir, chrom)
		files, err := filepath.Glob(filepath.Join(chromDir, "*.gz"))
		if err != nil {
			return total, fmt.Errorf("store: glob region files for %s: %w", chrom, err)
		}

		for _, f := range files {
			transcripts, err := decodeRegionFile(f, chrom)
			if err != nil {
				return total, fmt.Errorf("store: decode %s: %w", f, err)
			}
			byChrom[chrom] = append(byChrom[chrom], transcripts...)
			total += len(transcripts)
		}
	}

	if err := s.cache.Write(byChrom, FileFingerprint{}, FileFingerprint{}); err != nil {
		return total, fmt.Errorf("store: write transcript cache: %w", err)
	}
	return total, nil
}

func decodeRegionFile(path, chrom string) ([]*position.Transcript, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var reader io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("open gzip reader: %w", err)
		}
		defer gz.Close()
		reader = gz
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read region file: %w", err)
	}

	if !IsSereal(data) {
		return nil, fmt.Errorf("region file is not Sereal-encoded")
	}
	return DecodeSereal(data, chrom)
}
