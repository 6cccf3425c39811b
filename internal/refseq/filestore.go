package refseq

import (
	"bufio"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
)

// FileStore resolves accessions from a pre-downloaded FASTA file, the
// same GENCODE/RefSeq header shapes the teacher's fasta_loader reads:
//
//	>NM_002001.2|NONO... |CDS:201-459|
//	>NM_002001.2 description
//
// Sequences are parsed once, lazily, on first Resolve call and kept in
// memory for the lifetime of the store.
type FileStore struct {
	path string

	once sync.Once
	err  error

	mu         sync.Mutex
	sequences  map[string]string  // versioned accession -> bases
	cdsRanges  map[string][2]int  // versioned accession -> 1-based [start, end]
	baseToFull map[string]string  // unversioned accession -> versioned accession
}

// NewFileStore builds a FileStore reading from path, which may be
// gzip-compressed (detected by a ".gz" suffix).
func NewFileStore(path string) *FileStore {
	return &FileStore{
		path:       path,
		sequences:  make(map[string]string),
		cdsRanges:  make(map[string][2]int),
		baseToFull: make(map[string]string),
	}
}

func (s *FileStore) Resolve(ctx context.Context, accession string, version string) (*Sequence, error) {
	s.once.Do(func() { s.err = s.load() })
	if s.err != nil {
		return nil, fmt.Errorf("refseq: load %s: %w", s.path, s.err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := accession
	if version != "" {
		key = accession + "." + version
	}

	id, bases, ok := s.lookup(key)
	if !ok {
		return nil, &NotFoundError{Accession: accession, Version: version}
	}

	seq := &Sequence{Accession: accession, Version: version, Bases: bases}
	if r, hasCDS := s.cdsRanges[id]; hasCDS {
		seq.CDSStart, seq.CDSEnd = r[0], r[1]
	}
	return seq, nil
}

func (s *FileStore) lookup(key string) (id, bases string, ok bool) {
	if bases, ok := s.sequences[key]; ok {
		return key, bases, true
	}
	base := stripVersion(key)
	if full, ok := s.baseToFull[base]; ok {
		if bases, ok := s.sequences[full]; ok {
			return full, bases, true
		}
	}
	return "", "", false
}

func (s *FileStore) load() error {
	if s.path == "" {
		return nil // no file; sequences, if any, were supplied through parse
	}
	f, err := os.Open(s.path)
	if err != nil {
		return fmt.Errorf("open FASTA file: %w", err)
	}
	defer f.Close()

	var reader io.Reader = f
	if strings.HasSuffix(s.path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return fmt.Errorf("open gzip reader: %w", err)
		}
		defer gz.Close()
		reader = gz
	}

	return s.parse(reader)
}

func (s *FileStore) parse(reader io.Reader) error {
	scanner := bufio.NewScanner(reader)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 10*1024*1024)

	var currentID string
	var currentSeq strings.Builder

	flush := func() {
		if currentID != "" && currentSeq.Len() > 0 {
			s.sequences[currentID] = currentSeq.String()
		}
	}

	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, ">") {
			flush()
			currentID = parseHeader(line)
			if base := stripVersion(currentID); base != currentID {
				s.baseToFull[base] = currentID
			}
			if start, end, ok := parseCDSRange(line); ok {
				s.cdsRanges[currentID] = [2]int{start, end}
			}
			currentSeq.Reset()
		} else {
			currentSeq.WriteString(strings.TrimSpace(line))
		}
	}
	flush()

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan FASTA: %w", err)
	}
	return nil
}

func parseHeader(header string) string {
	header = strings.TrimPrefix(header, ">")
	if idx := strings.Index(header, "|"); idx != -1 {
		return header[:idx]
	}
	if idx := strings.Index(header, " "); idx != -1 {
		return header[:idx]
	}
	return header
}

func parseCDSRange(header string) (start, end int, ok bool) {
	for _, field := range strings.Split(header, "|") {
		field = strings.TrimSpace(field)
		if !strings.HasPrefix(field, "CDS:") {
			continue
		}
		parts := strings.SplitN(field[len("CDS:"):], "-", 2)
		if len(parts) != 2 {
			return 0, 0, false
		}
		s, err1 := strconv.Atoi(parts[0])
		e, err2 := strconv.Atoi(parts[1])
		if err1 != nil || err2 != nil {
			return 0, 0, false
		}
		return s, e, true
	}
	return 0, 0, false
}

func stripVersion(accession string) string {
	if idx := strings.LastIndexByte(accession, '.'); idx != -1 {
		return accession[:idx]
	}
	return accession
}
