package store

import (
	"compress/gzip"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mutalyzer/hgvsd/internal/position"
)

const testGTF = `#description: test
1	HAVANA	transcript	200	500	.	+	.	gene_id "ENSG1.1"; transcript_id "NM_TEST.1"; gene_name "TEST1"; tag "Ensembl_canonical";
1	HAVANA	exon	200	250	.	+	.	gene_id "ENSG1.1"; transcript_id "NM_TEST.1"; exon_number "1";
1	HAVANA	exon	300	500	.	+	.	gene_id "ENSG1.1"; transcript_id "NM_TEST.1"; exon_number "2";
1	HAVANA	start_codon	200	202	.	+	0	gene_id "ENSG1.1"; transcript_id "NM_TEST.1";
1	HAVANA	stop_codon	480	482	.	+	0	gene_id "ENSG1.1"; transcript_id "NM_TEST.1";
`

func writeTestGTF(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "test.gtf")
	require.NoError(t, os.WriteFile(path, []byte(testGTF), 0o644))
	return path
}

func TestLoadGTF_ParsesTranscriptExonsAndCDS(t *testing.T) {
	path := writeTestGTF(t)
	transcripts, err := LoadGTF(path)
	require.NoError(t, err)
	require.Len(t, transcripts, 1)

	tr := transcripts[0]
	assert.Equal(t, "NM_TEST.1", tr.ID)
	assert.Equal(t, "ENSG1", tr.GeneID)
	assert.Equal(t, "TEST1", tr.GeneName)
	assert.Equal(t, "1", tr.Chrom)
	assert.True(t, tr.IsCanonical)
	assert.EqualValues(t, 1, tr.Strand)
	require.Len(t, tr.Exons, 2)
	assert.Equal(t, 1, tr.Exons[0].Number)
	assert.EqualValues(t, 200, tr.Exons[0].Start)
	assert.EqualValues(t, 250, tr.Exons[0].End)
	assert.EqualValues(t, 200, tr.CDSStart)
	assert.EqualValues(t, 482, tr.CDSEnd)
}

func TestLoadGTF_GzipSuffixIsTransparentlyDecompressed(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.gtf.gz")

	var buf strings.Builder
	gz := gzip.NewWriter(&buf)
	_, err := gz.Write([]byte(testGTF))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	require.NoError(t, os.WriteFile(path, []byte(buf.String()), 0o644))

	transcripts, err := LoadGTF(path)
	require.NoError(t, err)
	require.Len(t, transcripts, 1)
	assert.Equal(t, "NM_TEST.1", transcripts[0].ID)
}

func TestParseGTFAttributes_SplitsKeyQuotedValuePairs(t *testing.T) {
	attrs := parseGTFAttributes(`gene_id "ENSG1.1"; transcript_id "NM_TEST.1"; exon_number "2";`)
	assert.Equal(t, "ENSG1.1", attrs["gene_id"])
	assert.Equal(t, "NM_TEST.1", attrs["transcript_id"])
	assert.Equal(t, "2", attrs["exon_number"])
}

func TestParseGTFLine_RejectsShortLines(t *testing.T) {
	_, err := parseGTFLine("1\tHAVANA\texon")
	assert.Error(t, err)
}

func TestNormalizeGTFChrom_StripsChrPrefix(t *testing.T) {
	assert.Equal(t, "1", normalizeGTFChrom("chr1"))
	assert.Equal(t, "X", normalizeGTFChrom("chrX"))
	assert.Equal(t, "MT", normalizeGTFChrom("MT"))
}

func TestStripGTFVersion_RemovesTrailingDotVersion(t *testing.T) {
	assert.Equal(t, "NM_TEST", stripGTFVersion("NM_TEST.3"))
	assert.Equal(t, "NM_TEST", stripGTFVersion("NM_TEST"))
}

func TestLoadCanonicalOverrides_ReadsGeneToTranscriptTSV(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "overrides.tsv")
	content := "gene\tentrez\tensembl\tgenome_nexus_canonical\nTEST1\t1\tENST1\tNM_B.2\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	overrides, err := LoadCanonicalOverrides(path)
	require.NoError(t, err)
	assert.Equal(t, "NM_B", overrides["TEST1"])
}

func TestApplyCanonicalOverrides_MarksOnlyOverriddenTranscript(t *testing.T) {
	a := &position.Transcript{ID: "NM_A", GeneName: "TEST1", IsCanonical: true}
	b := &position.Transcript{ID: "NM_B", GeneName: "TEST1"}
	c := &position.Transcript{ID: "NM_C", GeneName: "OTHER", IsCanonical: true}

	ApplyCanonicalOverrides([]*position.Transcript{a, b, c}, CanonicalOverrides{"TEST1": "NM_B"})

	assert.False(t, a.IsCanonical)
	assert.True(t, b.IsCanonical)
	assert.True(t, c.IsCanonical, "genes absent from overrides must be left untouched")
}

func TestApplyCanonicalOverrides_UnknownOverrideTranscriptIsIgnored(t *testing.T) {
	a := &position.Transcript{ID: "NM_A", GeneName: "TEST1", IsCanonical: true}

	ApplyCanonicalOverrides([]*position.Transcript{a}, CanonicalOverrides{"TEST1": "NM_DOES_NOT_EXIST"})

	assert.True(t, a.IsCanonical, "override naming a transcript absent from the group must not clear the existing flag")
}

func TestSyncFromGTF_BuildsCacheFromScratch(t *testing.T) {
	gtfPath := writeTestGTF(t)
	cacheDir := filepath.Join(t.TempDir(), "cache")
	cache := NewTranscriptCache(cacheDir)

	n, err := SyncFromGTF(cache, gtfPath, "", "")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	byChrom, err := cache.Load()
	require.NoError(t, err)
	require.Contains(t, byChrom, "1")
	assert.Len(t, byChrom["1"], 1)
}

func TestSyncFromGTF_SecondCallIsShortCircuitedByFingerprint(t *testing.T) {
	gtfPath := writeTestGTF(t)
	cacheDir := filepath.Join(t.TempDir(), "cache")
	cache := NewTranscriptCache(cacheDir)

	_, err := SyncFromGTF(cache, gtfPath, "", "")
	require.NoError(t, err)

	n, err := SyncFromGTF(cache, gtfPath, "", "")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
