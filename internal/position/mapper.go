package position

import (
	"fmt"
	"sort"
)

// CPos is a coding-relative position: Base counts from 1 at the first
// base of the CDS (the "A" of the start codon), matching HGVS c.
// numbering. A position that falls in an intron carries a non-zero
// Offset relative to the nearest exon boundary, exactly like a parsed
// PtLoc's Main+Offset pair.
type CPos struct {
	Base        int
	OffsetSign  string // "+", "-", or "" for an exonic position
	OffsetValue int
}

// Mapper resolves transcripts overlapping a genomic position and
// converts between genomic and coding coordinates for a given
// transcript. One Mapper instance is built per assembly.
type Mapper struct {
	assembly    string
	transcripts map[string]*Transcript
	byChrom     map[string]*index
}

// NewMapper indexes transcripts for overlap queries and lookup by ID.
func NewMapper(assembly string, transcripts []*Transcript) *Mapper {
	m := &Mapper{
		assembly:    assembly,
		transcripts: make(map[string]*Transcript, len(transcripts)),
		byChrom:     make(map[string]*index),
	}
	byChrom := make(map[string][]*Transcript)
	for _, t := range transcripts {
		m.transcripts[t.ID] = t
		byChrom[t.Chrom] = append(byChrom[t.Chrom], t)
	}
	for chrom, ts := range byChrom {
		m.byChrom[chrom] = buildIndex(ts)
	}
	return m
}

// Transcript looks up a transcript by ID.
func (m *Mapper) Transcript(id string) (*Transcript, bool) {
	t, ok := m.transcripts[id]
	return t, ok
}

// Overlapping returns every transcript on chrom whose genomic extent
// contains pos, canonical and protein-coding transcripts first.
func (m *Mapper) Overlapping(chrom string, pos int64) []*Transcript {
	idx, ok := m.byChrom[chrom]
	if !ok {
		return nil
	}
	return idx.findOverlaps(pos)
}

// CanonicalOverlap returns the best default transcript overlapping a
// genomic position, for callers (e.g. a getGenBank-by-coordinate
// lookup) that received no explicit transcript to annotate against.
// It is Overlapping's first result: canonical and protein-coding beats
// canonical-only beats protein-coding-only beats neither.
func (m *Mapper) CanonicalOverlap(chrom string, pos int64) (*Transcript, bool) {
	overlaps := m.Overlapping(chrom, pos)
	if len(overlaps) == 0 {
		return nil, false
	}
	return overlaps[0], true
}

// orderedExons returns t's exons sorted into transcription order: 5'
// to 3' along the transcript, which is ascending genomic order on the
// forward strand and descending on the reverse strand.
func orderedExons(t *Transcript) []Exon {
	exons := append([]Exon(nil), t.Exons...)
	sort.Slice(exons, func(i, j int) bool { return exons[i].Start < exons[j].Start })
	if t.Strand < 0 {
		for i, j := 0, len(exons)-1; i < j; i, j = i+1, j-1 {
			exons[i], exons[j] = exons[j], exons[i]
		}
	}
	return exons
}

// clipToCDS restricts exon e's genomic span to the CDS window, returning
// an empty (cEnd < cStart) range if e does not overlap the CDS at all.
func clipToCDS(e Exon, t *Transcript) (cStart, cEnd int64) {
	cStart, cEnd = e.Start, e.End
	if cStart < t.CDSStart {
		cStart = t.CDSStart
	}
	if cEnd > t.CDSEnd {
		cEnd = t.CDSEnd
	}
	return cStart, cEnd
}

// transcriptBounds returns the genomic coordinates of a clipped exon's
// first and last base IN TRANSCRIPT ORDER — i.e. swapped relative to
// genomic order on the reverse strand.
func transcriptBounds(strand int8, cStart, cEnd int64) (firstBase, lastBase int64) {
	if strand >= 0 {
		return cStart, cEnd
	}
	return cEnd, cStart
}

func abs64(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}

// ToCoding converts a genomic position to a CDS-relative CPos. Returns
// an error if t is non-coding or genomic falls entirely outside the
// transcript's coding region.
func (m *Mapper) ToCoding(t *Transcript, genomic int64) (CPos, error) {
	if !t.IsProteinCoding() {
		return CPos{}, fmt.Errorf("position: transcript %s has no CDS", t.ID)
	}

	exons := orderedExons(t)
	cumLen := 0
	var prevEndBase int
	var prevEndBound int64
	havePrev := false

	for _, e := range exons {
		cStart, cEnd := clipToCDS(e, t)
		if cEnd < cStart {
			continue // exon carries no CDS bases at all (pure UTR exon)
		}
		exonLen := int(cEnd-cStart) + 1
		firstBase, lastBase := transcriptBounds(t.Strand, cStart, cEnd)

		inThisExon := (genomic >= firstBase && genomic <= lastBase) || (genomic <= firstBase && genomic >= lastBase)
		if inThisExon {
			return CPos{Base: cumLen + int(abs64(genomic-firstBase)) + 1}, nil
		}

		before := false
		if t.Strand >= 0 {
			before = genomic < firstBase
		} else {
			before = genomic > firstBase
		}
		if before {
			if !havePrev {
				return CPos{}, fmt.Errorf("position: %d lies upstream of the coding region of %s", genomic, t.ID)
			}
			distToPrev := abs64(genomic - prevEndBound)
			distToThis := abs64(firstBase - genomic)
			if distToPrev <= distToThis {
				return CPos{Base: prevEndBase, OffsetSign: "+", OffsetValue: int(distToPrev)}, nil
			}
			return CPos{Base: cumLen + 1, OffsetSign: "-", OffsetValue: int(distToThis)}, nil
		}

		cumLen += exonLen
		prevEndBase = cumLen
		prevEndBound = lastBase
		havePrev = true
	}

	return CPos{}, fmt.Errorf("position: %d lies downstream of the coding region of %s", genomic, t.ID)
}

// ToGenomic converts a CDS-relative CPos back to a genomic coordinate.
func (m *Mapper) ToGenomic(t *Transcript, c CPos) (int64, error) {
	if !t.IsProteinCoding() {
		return 0, fmt.Errorf("position: transcript %s has no CDS", t.ID)
	}

	exons := orderedExons(t)
	cumLen := 0
	var prevLastBase int64
	havePrev := false

	for _, e := range exons {
		cStart, cEnd := clipToCDS(e, t)
		if cEnd < cStart {
			continue
		}
		exonLen := int(cEnd-cStart) + 1
		firstBase, lastBase := transcriptBounds(t.Strand, cStart, cEnd)

		if c.OffsetSign == "" && c.Base >= cumLen+1 && c.Base <= cumLen+exonLen {
			offsetIntoExon := int64(c.Base - cumLen - 1)
			if t.Strand >= 0 {
				return firstBase + offsetIntoExon, nil
			}
			return firstBase - offsetIntoExon, nil
		}
		// "+offset" anchors to the PREVIOUS exon's last base: Base equals
		// the running total BEFORE this exon's length was added.
		if c.OffsetSign == "+" && c.Base == cumLen && havePrev {
			if t.Strand >= 0 {
				return prevLastBase + int64(c.OffsetValue), nil
			}
			return prevLastBase - int64(c.OffsetValue), nil
		}
		// "-offset" anchors to THIS exon's first base (Base == cumLen+1).
		if c.OffsetSign == "-" && c.Base == cumLen+1 {
			if t.Strand >= 0 {
				return firstBase - int64(c.OffsetValue), nil
			}
			return firstBase + int64(c.OffsetValue), nil
		}

		cumLen += exonLen
		prevLastBase = lastBase
		havePrev = true
	}

	return 0, fmt.Errorf("position: base %d%s%d does not anchor to any exon of %s", c.Base, c.OffsetSign, c.OffsetValue, t.ID)
}
