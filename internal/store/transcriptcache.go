package store

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/mutalyzer/hgvsd/internal/position"
)

// FileFingerprint holds stat-based identity for a source file, used to
// decide whether a gob cache is stale relative to the GTF/FASTA it was
// built from.
type FileFingerprint struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// StatFile builds a FileFingerprint from an on-disk file.
func StatFile(path string) (FileFingerprint, error) {
	info, err := os.Stat(path)
	if err != nil {
		return FileFingerprint{}, err
	}
	return FileFingerprint{Path: path, Size: info.Size(), ModTime: info.ModTime()}, nil
}

// TranscriptCache manages a gob-serialized transcript snapshot on disk:
//
//	<dir>/transcripts.gob       (serialized transcripts, by chromosome)
//	<dir>/transcripts.gob.meta  (source file fingerprints)
type TranscriptCache struct {
	dir string
}

func NewTranscriptCache(dir string) *TranscriptCache {
	return &TranscriptCache{dir: dir}
}

func (tc *TranscriptCache) gobPath() string  { return filepath.Join(tc.dir, "transcripts.gob") }
func (tc *TranscriptCache) metaPath() string { return filepath.Join(tc.dir, "transcripts.gob.meta") }

// Valid reports whether the cached transcripts still match gtf/fasta.
func (tc *TranscriptCache) Valid(gtf, fasta FileFingerprint) bool {
	meta, err := tc.readMeta()
	if err != nil {
		return false
	}
	checks := []struct{ key, val string }{
		{"gtf_size", strconv.FormatInt(gtf.Size, 10)},
		{"gtf_modtime", gtf.ModTime.UTC().Format(time.RFC3339Nano)},
		{"fasta_size", strconv.FormatInt(fasta.Size, 10)},
		{"fasta_modtime", fasta.ModTime.UTC().Format(time.RFC3339Nano)},
	}
	for _, c := range checks {
		if meta[c.key] != c.val {
			return false
		}
	}
	if _, err := os.Stat(tc.gobPath()); err != nil {
		return false
	}
	return true
}

// Load reads the serialized transcript snapshot, keyed by chromosome.
func (tc *TranscriptCache) Load() (map[string][]*position.Transcript, error) {
	f, err := os.Open(tc.gobPath())
	if err != nil {
		return nil, fmt.Errorf("store: open transcript cache: %w", err)
	}
	defer f.Close()

	var data map[string][]*position.Transcript
	if err := gob.NewDecoder(f).Decode(&data); err != nil {
		return nil, fmt.Errorf("store: decode transcript cache: %w", err)
	}
	return data, nil
}

// Write serializes byChrom to disk and records gtf/fasta fingerprints.
func (tc *TranscriptCache) Write(byChrom map[string][]*position.Transcript, gtf, fasta FileFingerprint) error {
	if err := os.MkdirAll(tc.dir, 0o755); err != nil {
		return fmt.Errorf("store: create cache directory: %w", err)
	}

	f, err := os.Create(tc.gobPath())
	if err != nil {
		return fmt.Errorf("store: create transcript cache: %w", err)
	}
	if err := gob.NewEncoder(f).Encode(byChrom); err != nil {
		f.Close()
		os.Remove(tc.gobPath())
		return fmt.Errorf("store: encode transcript cache: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("store: close transcript cache: %w", err)
	}

	return tc.writeMeta(gtf, fasta)
}

// Clear removes the cached transcript files.
func (tc *TranscriptCache) Clear() {
	os.Remove(tc.gobPath())
	os.Remove(tc.metaPath())
}

func (tc *TranscriptCache) writeMeta(gtf, fasta FileFingerprint) error {
	lines := []string{
		"gtf_size=" + strconv.FormatInt(gtf.Size, 10),
		"gtf_modtime=" + gtf.ModTime.UTC().Format(time.RFC3339Nano),
		"fasta_size=" + strconv.FormatInt(fasta.Size, 10),
		"fasta_modtime=" + fasta.ModTime.UTC().Format(time.RFC3339Nano),
		"created_at=" + time.Now().UTC().Format(time.RFC3339),
		"",
	}
	return os.WriteFile(tc.metaPath(), []byte(strings.Join(lines, "\n")), 0o644)
}

func (tc *TranscriptCache) readMeta() (map[string]string, error) {
	data, err := os.ReadFile(tc.metaPath())
	if err != nil {
		return nil, err
	}
	meta := make(map[string]string)
	for _, line := range strings.Split(string(data), "\n") {
		if k, v, ok := strings.Cut(line, "="); ok {
			meta[k] = v
		}
	}
	return meta, nil
}
