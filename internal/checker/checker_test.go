package checker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mutalyzer/hgvsd/internal/hgvs"
	"github.com/mutalyzer/hgvsd/internal/position"
)

func testTranscript() *position.Transcript {
	return &position.Transcript{
		ID:       "NM_TEST.1",
		Chrom:    "1",
		Start:    100,
		End:      500,
		Strand:   1,
		CDSStart: 200,
		CDSEnd:   400,
		Exons: []position.Exon{
			{Number: 1, Start: 100, End: 250},
			{Number: 2, Start: 300, End: 500},
		},
	}
}

func parseOrFail(t *testing.T, variant string) *hgvs.Node {
	t.Helper()
	tree, failure := hgvs.Parse(variant)
	require.Nil(t, failure, "unexpected parse failure for %q: %v", variant, failure)
	return tree
}

func TestDescribe_ExonicSubstitutionResolvesCodon(t *testing.T) {
	tr := testTranscript()
	m := position.NewMapper("GRCh38", []*position.Transcript{tr})
	tree := parseOrFail(t, "NM_000001.1:c.10A>T")

	desc, err := Describe(tree, tr, m)
	require.NoError(t, err)
	assert.Equal(t, "subst", desc.MutationType)
	assert.True(t, desc.Start.Resolved)
	assert.Equal(t, 1, desc.Start.Exon)
	assert.False(t, desc.Start.Intronic)
	assert.Equal(t, 4, desc.Start.Codon)
	assert.Equal(t, 0, desc.Start.CodonOffset)
	assert.Nil(t, desc.End)
}

func TestDescribe_RangeLocResolvesBothEnds(t *testing.T) {
	tr := testTranscript()
	m := position.NewMapper("GRCh38", []*position.Transcript{tr})
	tree := parseOrFail(t, "NM_000001.1:c.10_12del")

	desc, err := Describe(tree, tr, m)
	require.NoError(t, err)
	assert.Equal(t, "del", desc.MutationType)
	require.True(t, desc.Start.Resolved)
	require.NotNil(t, desc.End)
	assert.True(t, desc.End.Resolved)
	assert.Equal(t, 1, desc.Start.Exon)
	assert.Equal(t, 1, desc.End.Exon)
}

func TestDescribe_IntronicOffsetIsFlaggedNotCodon(t *testing.T) {
	tr := testTranscript()
	m := position.NewMapper("GRCh38", []*position.Transcript{tr})
	tree := parseOrFail(t, "NM_000001.1:c.51+10A>T")

	desc, err := Describe(tree, tr, m)
	require.NoError(t, err)
	assert.True(t, desc.Start.Resolved)
	assert.True(t, desc.Start.Intronic)
	assert.Equal(t, 0, desc.Start.Codon)
	assert.Equal(t, int64(260), desc.Start.Genomic)
}

func TestDescribe_UnknownPositionIsUnresolvedNotAnError(t *testing.T) {
	tr := testTranscript()
	m := position.NewMapper("GRCh38", []*position.Transcript{tr})
	tree := parseOrFail(t, "NM_000001.1:c.?del")

	desc, err := Describe(tree, tr, m)
	require.NoError(t, err)
	assert.False(t, desc.Start.Resolved)
}

func TestDescribe_NoRawVarIsAnError(t *testing.T) {
	_, err := Describe(&hgvs.Node{Kind: hgvs.KindLeaf}, testTranscript(), position.NewMapper("GRCh38", nil))
	assert.Error(t, err)
}
