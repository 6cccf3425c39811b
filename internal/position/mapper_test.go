package position

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func forwardTranscript() *Transcript {
	return &Transcript{
		ID:       "NM_TEST.1",
		Chrom:    "1",
		Start:    100,
		End:      500,
		Strand:   1,
		CDSStart: 200,
		CDSEnd:   400,
		Exons: []Exon{
			{Number: 1, Start: 100, End: 250},
			{Number: 2, Start: 300, End: 500},
		},
	}
}

func reverseTranscript() *Transcript {
	return &Transcript{
		ID:       "NM_TEST.2",
		Chrom:    "1",
		Start:    100,
		End:      500,
		Strand:   -1,
		CDSStart: 200,
		CDSEnd:   400,
		Exons: []Exon{
			{Number: 2, Start: 100, End: 250},
			{Number: 1, Start: 300, End: 500},
		},
	}
}

func TestMapper_Overlapping(t *testing.T) {
	t1 := forwardTranscript()
	m := NewMapper("GRCh38", []*Transcript{t1})

	got := m.Overlapping("1", 220)
	require.Len(t, got, 1)
	assert.Equal(t, t1.ID, got[0].ID)

	assert.Empty(t, m.Overlapping("1", 9000))
	assert.Empty(t, m.Overlapping("2", 220))
}

func TestMapper_Overlapping_CanonicalTranscriptSortsFirst(t *testing.T) {
	noncanonical := forwardTranscript()
	noncanonical.ID = "NM_TEST.3"
	canonical := forwardTranscript()
	canonical.ID = "NM_TEST.4"
	canonical.IsCanonical = true

	m := NewMapper("GRCh38", []*Transcript{noncanonical, canonical})

	got := m.Overlapping("1", 220)
	require.Len(t, got, 2, "both isoforms overlap position 220")
	assert.Equal(t, canonical.ID, got[0].ID, "the canonical, protein-coding isoform must be ranked first")
	assert.Equal(t, noncanonical.ID, got[1].ID)

	best, ok := m.CanonicalOverlap("1", 220)
	require.True(t, ok)
	assert.Equal(t, canonical.ID, best.ID)
}

func TestMapper_CanonicalOverlap_NoMatchReturnsFalse(t *testing.T) {
	m := NewMapper("GRCh38", []*Transcript{forwardTranscript()})
	_, ok := m.CanonicalOverlap("1", 9000)
	assert.False(t, ok)
}

// TestMapper_ForwardExonicRoundTrip is the idempotence property: a
// genomic position inside an exon converts to coding space and back to
// the same genomic position.
func TestMapper_ForwardExonicRoundTrip(t *testing.T) {
	tr := forwardTranscript()
	m := NewMapper("GRCh38", []*Transcript{tr})

	for _, genomic := range []int64{200, 230, 300, 350, 400} {
		c, err := m.ToCoding(tr, genomic)
		require.NoError(t, err, "genomic=%d", genomic)
		assert.Empty(t, c.OffsetSign, "genomic=%d should be exonic", genomic)

		back, err := m.ToGenomic(tr, c)
		require.NoError(t, err, "genomic=%d", genomic)
		assert.Equal(t, genomic, back, "round trip for genomic=%d", genomic)
	}
}

func TestMapper_ReverseExonicRoundTrip(t *testing.T) {
	tr := reverseTranscript()
	m := NewMapper("GRCh38", []*Transcript{tr})

	for _, genomic := range []int64{200, 230, 300, 350, 400} {
		c, err := m.ToCoding(tr, genomic)
		require.NoError(t, err, "genomic=%d", genomic)

		back, err := m.ToGenomic(tr, c)
		require.NoError(t, err, "genomic=%d", genomic)
		assert.Equal(t, genomic, back, "round trip for genomic=%d", genomic)
	}
}

func TestMapper_FirstCodingBaseIsOne(t *testing.T) {
	tr := forwardTranscript()
	m := NewMapper("GRCh38", []*Transcript{tr})

	c, err := m.ToCoding(tr, tr.CDSStart)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Base)
}

func TestMapper_IntronicPositionCarriesOffset(t *testing.T) {
	tr := forwardTranscript()
	m := NewMapper("GRCh38", []*Transcript{tr})

	c, err := m.ToCoding(tr, 260)
	require.NoError(t, err)
	assert.Equal(t, "+", c.OffsetSign)
	assert.Positive(t, c.OffsetValue)
}

func TestMapper_NonCodingTranscriptErrors(t *testing.T) {
	tr := &Transcript{ID: "NR_TEST.1", Start: 1, End: 100}
	m := NewMapper("GRCh38", []*Transcript{tr})
	_, err := m.ToCoding(tr, 50)
	assert.Error(t, err)
}
