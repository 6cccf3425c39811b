package store

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/mutalyzer/hgvsd/internal/position"
)

// LoadGTF parses a GENCODE-style GTF file into transcripts suitable
// for position.NewMapper, grounded on the teacher's
// internal/cache/gtf_loader.go. Unlike the teacher's loader it keeps
// no CDS sequence or per-exon reading frame — internal/position only
// ever needs genomic coordinates, not bases, to convert between g./c.
// numbering.
func LoadGTF(path string) ([]*position.Transcript, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("store: open GTF file: %w", err)
	}
	defer f.Close()

	var reader io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("store: open gzip reader: %w", err)
		}
		defer gz.Close()
		reader = gz
	}

	return parseGTF(reader)
}

type gtfFeature struct {
	chrom       string
	featureType string
	start       int64
	end         int64
	strand      string
	attributes  map[string]string
}

func parseGTF(reader io.Reader) ([]*position.Transcript, error) {
	scanner := bufio.NewScanner(reader)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	transcripts := make(map[string]*position.Transcript)
	exonsByTranscript := make(map[string][]position.Exon)
	cdsByTranscript := make(map[string][][2]int64)

	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "#") || line == "" {
			continue
		}

		feat, err := parseGTFLine(line)
		if err != nil {
			continue // malformed line, skip rather than abort the whole file
		}

		transcriptID := feat.attributes["transcript_id"]
		if transcriptID == "" {
			continue
		}

		switch feat.featureType {
		case "transcript":
			transcripts[transcriptID] = &position.Transcript{
				ID:       transcriptID,
				GeneID:   stripGTFVersion(feat.attributes["gene_id"]),
				GeneName: feat.attributes["gene_name"],
				Chrom:    feat.chrom,
				Start:    feat.start,
				End:      feat.end,
				Strand:   parseGTFStrand(feat.strand),
				IsCanonical: feat.attributes["tag"] == "Ensembl_canonical" ||
					strings.Contains(feat.attributes["tag"], "Ensembl_canonical"),
			}

		case "exon":
			exonNum, _ := strconv.Atoi(feat.attributes["exon_number"])
			exonsByTranscript[transcriptID] = append(exonsByTranscript[transcriptID], position.Exon{
				Number: exonNum, Start: feat.start, End: feat.end,
			})

		case "CDS":
			cdsByTranscript[transcriptID] = append(cdsByTranscript[transcriptID], [2]int64{feat.start, feat.end})

		case "start_codon":
			if t, ok := transcripts[transcriptID]; ok {
				if t.Strand >= 0 {
					if t.CDSStart == 0 || feat.start < t.CDSStart {
						t.CDSStart = feat.start
					}
				} else if feat.end > t.CDSEnd {
					t.CDSEnd = feat.end
				}
			}

		case "stop_codon":
			if t, ok := transcripts[transcriptID]; ok {
				if t.Strand >= 0 {
					if feat.end > t.CDSEnd {
						t.CDSEnd = feat.end
					}
				} else if t.CDSStart == 0 || feat.start < t.CDSStart {
					t.CDSStart = feat.start
				}
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("store: scan GTF: %w", err)
	}

	out := make([]*position.Transcript, 0, len(transcripts))
	for id, t := range transcripts {
		exons := exonsByTranscript[id]
		if len(exons) == 0 {
			continue
		}
		sort.Slice(exons, func(i, j int) bool { return exons[i].Start < exons[j].Start })

		if cdsRegions := cdsByTranscript[id]; len(cdsRegions) > 0 && (t.CDSStart == 0 || t.CDSEnd == 0) {
			minStart, maxEnd := cdsRegions[0][0], cdsRegions[0][1]
			for _, r := range cdsRegions[1:] {
				if r[0] < minStart {
					minStart = r[0]
				}
				if r[1] > maxEnd {
					maxEnd = r[1]
				}
			}
			if t.CDSStart == 0 {
				t.CDSStart = minStart
			}
			if t.CDSEnd == 0 {
				t.CDSEnd = maxEnd
			}
		}

		t.Exons = exons
		out = append(out, t)
	}
	return out, nil
}

func parseGTFLine(line string) (*gtfFeature, error) {
	fields := strings.Split(line, "\t")
	if len(fields) < 9 {
		return nil, fmt.Errorf("invalid GTF line: expected 9 fields, got %d", len(fields))
	}
	start, err := strconv.ParseInt(fields[3], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse start: %w", err)
	}
	end, err := strconv.ParseInt(fields[4], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse end: %w", err)
	}
	return &gtfFeature{
		chrom:       normalizeGTFChrom(fields[0]),
		featureType: fields[2],
		start:       start,
		end:         end,
		strand:      fields[6],
		attributes:  parseGTFAttributes(fields[8]),
	}, nil
}

func parseGTFAttributes(attrStr string) map[string]string {
	attrs := make(map[string]string)
	for _, part := range strings.Split(attrStr, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		idx := strings.Index(part, " ")
		if idx == -1 {
			continue
		}
		attrs[part[:idx]] = strings.Trim(strings.TrimSpace(part[idx+1:]), "\"")
	}
	return attrs
}

func parseGTFStrand(s string) int8 {
	if s == "-" {
		return -1
	}
	return 1
}

func stripGTFVersion(id string) string {
	if idx := strings.LastIndex(id, "."); idx != -1 {
		return id[:idx]
	}
	return id
}

func normalizeGTFChrom(chrom string) string {
	return strings.TrimPrefix(chrom, "chr")
}

// CanonicalOverrides maps gene symbol to its canonical transcript ID,
// the Genome Nexus biomart shape the teacher's internal/cache/
// canonical.go consumes.
type CanonicalOverrides map[string]string

// LoadCanonicalOverrides reads a Genome Nexus canonical-transcript TSV
// file (gene symbol in column 1, genome_nexus canonical transcript ID
// in column 4).
func LoadCanonicalOverrides(path string) (CanonicalOverrides, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("store: open canonical overrides file: %w", err)
	}
	defer f.Close()

	overrides := make(CanonicalOverrides)
	scanner := bufio.NewScanner(f)
	first := true
	for scanner.Scan() {
		if first {
			first = false
			continue // header row
		}
		fields := strings.Split(scanner.Text(), "\t")
		if len(fields) < 4 {
			continue
		}
		gene := strings.TrimSpace(fields[0])
		transcriptID := stripGTFVersion(strings.TrimSpace(fields[3]))
		if gene == "" || transcriptID == "" {
			continue
		}
		overrides[gene] = transcriptID
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("store: scan canonical overrides file: %w", err)
	}
	return overrides, nil
}

// SyncFromGTF rebuilds cache from a GTF file (and, when overridesPath
// is non-empty, a Genome Nexus canonical-transcript TSV), skipping the
// rebuild entirely when cache.Valid already matches gtfPath's current
// fingerprint. fastaPath is fingerprinted but not parsed here — bases
// are internal/refseq's job, not internal/position's.
func SyncFromGTF(cache *TranscriptCache, gtfPath, fastaPath, overridesPath string) (int, error) {
	gtfFP, err := StatFile(gtfPath)
	if err != nil {
		return 0, fmt.Errorf("store: stat GTF file: %w", err)
	}
	var fastaFP FileFingerprint
	if fastaPath != "" {
		fastaFP, err = StatFile(fastaPath)
		if err != nil {
			return 0, fmt.Errorf("store: stat FASTA file: %w", err)
		}
	}
	if cache.Valid(gtfFP, fastaFP) {
		byChrom, err := cache.Load()
		if err == nil {
			return countTranscripts(byChrom), nil
		}
	}

	transcripts, err := LoadGTF(gtfPath)
	if err != nil {
		return 0, err
	}

	if overridesPath != "" {
		overrides, err := LoadCanonicalOverrides(overridesPath)
		if err != nil {
			return 0, err
		}
		ApplyCanonicalOverrides(transcripts, overrides)
	}

	byChrom := make(map[string][]*position.Transcript)
	for _, t := range transcripts {
		byChrom[t.Chrom] = append(byChrom[t.Chrom], t)
	}
	if err := cache.Write(byChrom, gtfFP, fastaFP); err != nil {
		return 0, err
	}
	return len(transcripts), nil
}

func countTranscripts(byChrom map[string][]*position.Transcript) int {
	n := 0
	for _, ts := range byChrom {
		n += len(ts)
	}
	return n
}

// ApplyCanonicalOverrides marks, for every gene with an override, only
// the matching transcript as canonical among that gene's transcripts.
// Genes absent from overrides are left exactly as the GTF had them.
func ApplyCanonicalOverrides(transcripts []*position.Transcript, overrides CanonicalOverrides) {
	byGene := make(map[string][]*position.Transcript)
	for _, t := range transcripts {
		if t.GeneName != "" {
			byGene[t.GeneName] = append(byGene[t.GeneName], t)
		}
	}
	for gene, canonicalID := range overrides {
		group, ok := byGene[gene]
		if !ok {
			continue
		}
		found := false
		for _, t := range group {
			if stripGTFVersion(t.ID) == canonicalID {
				found = true
				break
			}
		}
		if !found {
			continue
		}
		for _, t := range group {
			t.IsCanonical = stripGTFVersion(t.ID) == canonicalID
		}
	}
}
