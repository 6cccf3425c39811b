package rpcservice

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/mutalyzer/hgvsd/internal/position"
	"github.com/mutalyzer/hgvsd/internal/refseq"
	"github.com/mutalyzer/hgvsd/internal/store"
)

type stubResolver struct {
	seq *refseq.Sequence
	err error
}

func (s *stubResolver) Resolve(ctx context.Context, accession, version string) (*refseq.Sequence, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.seq, nil
}

func testTranscript() *position.Transcript {
	return &position.Transcript{
		ID: "NM_TEST.1", Chrom: "1", Start: 100, End: 500, Strand: 1,
		CDSStart: 200, CDSEnd: 400,
		Exons: []position.Exon{
			{Number: 1, Start: 100, End: 250},
			{Number: 2, Start: 300, End: 500},
		},
	}
}

func newTestService(t *testing.T, resolver refseq.Resolver, mapper *position.Mapper) *Service {
	t.Helper()
	logger := zaptest.NewLogger(t, zaptest.Level(zap.WarnLevel))
	return NewService(resolver, nil, nil, mapper, logger)
}

func postJSON(t *testing.T, handler http.Handler, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	buf, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(buf))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHandleCheckSyntax_ValidAndInvalid(t *testing.T) {
	svc := newTestService(t, nil, nil)
	routes := svc.Routes()

	rec := postJSON(t, routes, "/checkSyntax", checkSyntaxRequest{Variant: "AB026906.1:c.274G>T"})
	assert.Equal(t, http.StatusOK, rec.Code)
	var resp checkSyntaxResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Valid)

	rec = postJSON(t, routes, "/checkSyntax", checkSyntaxRequest{Variant: ""})
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Valid)
	require.Len(t, resp.Messages, 1)
	assert.Equal(t, "EARG", resp.Messages[0].Code)
}

func TestHandleBatchCheck_OneRowPerLine(t *testing.T) {
	svc := newTestService(t, nil, nil)
	routes := svc.Routes()

	rec := postJSON(t, routes, "/batchCheck", batchCheckRequest{
		Lines: []string{"AB026906.1:c.274G>T", "not a variant"},
	})
	assert.Equal(t, http.StatusOK, rec.Code)
	var resp batchCheckResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Rows, 2)
	assert.True(t, resp.Rows[0].Valid)
	assert.False(t, resp.Rows[1].Valid)
}

func TestHandleNumberConversion_RoundTrip(t *testing.T) {
	tr := testTranscript()
	mapper := position.NewMapper("GRCh38", []*position.Transcript{tr})
	svc := newTestService(t, nil, mapper)
	routes := svc.Routes()

	rec := postJSON(t, routes, "/numberConversion", numberConversionRequest{
		Transcript: "NM_TEST.1", Direction: "toCoding", Genomic: 200,
	})
	assert.Equal(t, http.StatusOK, rec.Code)
	var resp numberConversionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Base)

	rec = postJSON(t, routes, "/numberConversion", numberConversionRequest{
		Transcript: "NM_TEST.1", Direction: "toGenomic", Base: resp.Base,
	})
	var back numberConversionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &back))
	assert.EqualValues(t, 200, back.Genomic)
}

func TestHandleNumberConversion_NoMapperIsECACHE(t *testing.T) {
	svc := newTestService(t, nil, nil)
	rec := postJSON(t, svc.Routes(), "/numberConversion", numberConversionRequest{
		Transcript: "NM_TEST.1", Direction: "toCoding", Genomic: 200,
	})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ECACHE", resp.Code)
}

func TestHandleGetGenBank_NotFoundIsEREF(t *testing.T) {
	svc := newTestService(t, &stubResolver{err: &refseq.NotFoundError{Accession: "NM_999999"}}, nil)
	rec := postJSON(t, svc.Routes(), "/getGenBank", getGenBankRequest{Accession: "NM_999999"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "EREF", resp.Code)
}

func TestHandleCheckSyntax_WithTranscriptIncludesDescription(t *testing.T) {
	tr := testTranscript()
	mapper := position.NewMapper("GRCh38", []*position.Transcript{tr})
	svc := newTestService(t, nil, mapper)

	rec := postJSON(t, svc.Routes(), "/checkSyntax", checkSyntaxRequest{
		Variant: "NM_000001.1:c.10A>T", Transcript: "NM_TEST.1",
	})
	assert.Equal(t, http.StatusOK, rec.Code)
	var resp checkSyntaxResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Valid)
	require.NotNil(t, resp.Description, "a known transcript + loaded mapper must exercise internal/checker.Describe")
	assert.Equal(t, "NM_TEST.1", resp.Description.Transcript)
	assert.Equal(t, 1, resp.Description.Start.Exon)
}

func TestHandleCheckSyntax_UnknownTranscriptOmitsDescription(t *testing.T) {
	tr := testTranscript()
	mapper := position.NewMapper("GRCh38", []*position.Transcript{tr})
	svc := newTestService(t, nil, mapper)

	rec := postJSON(t, svc.Routes(), "/checkSyntax", checkSyntaxRequest{
		Variant: "NM_000001.1:c.10A>T", Transcript: "NM_DOES_NOT_EXIST",
	})
	var resp checkSyntaxResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Valid)
	assert.Nil(t, resp.Description)
}

func TestHandleBatchCheck_IdempotentRerunReturnsRecordedRows(t *testing.T) {
	st, err := store.Open("")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	logger := zaptest.NewLogger(t, zaptest.Level(zap.WarnLevel))
	svc := NewService(nil, st, nil, nil, logger)

	req := batchCheckRequest{
		Lines:   []string{"AB026906.1:c.274G>T", "not a variant"},
		BatchID: "batch-1",
	}
	rec := postJSON(t, svc.Routes(), "/batchCheck", req)
	assert.Equal(t, http.StatusOK, rec.Code)
	var first batchCheckResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &first))
	require.Len(t, first.Rows, 2)
	assert.True(t, first.Rows[0].Valid)
	assert.False(t, first.Rows[1].Valid)

	rec = postJSON(t, svc.Routes(), "/batchCheck", req)
	var second batchCheckResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &second))
	require.Len(t, second.Rows, 2, "a rerun with the same batchId must still return one row per input line")
	assert.Equal(t, first.Rows[0].Variant, second.Rows[0].Variant)
	assert.Equal(t, first.Rows[1].Valid, second.Rows[1].Valid)
}

type countingResolver struct {
	seq   *refseq.Sequence
	err   error
	calls int
}

func (r *countingResolver) Resolve(ctx context.Context, accession, version string) (*refseq.Sequence, error) {
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	return r.seq, nil
}

func TestHandleGetGenBank_CachesFailedResolution(t *testing.T) {
	st, err := store.Open("")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	resolver := &countingResolver{err: &refseq.NotFoundError{Accession: "NM_999999"}}
	logger := zaptest.NewLogger(t, zaptest.Level(zap.WarnLevel))
	svc := NewService(resolver, st, nil, nil, logger)

	rec := postJSON(t, svc.Routes(), "/getGenBank", getGenBankRequest{Accession: "NM_999999", Version: "1"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, 1, resolver.calls)

	rec = postJSON(t, svc.Routes(), "/getGenBank", getGenBankRequest{Accession: "NM_999999", Version: "1"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, 1, resolver.calls, "a previously-recorded failed resolution must short-circuit without calling the resolver again")
}

func TestHandleGetGenBank_Success(t *testing.T) {
	svc := newTestService(t, &stubResolver{seq: &refseq.Sequence{
		Accession: "NM_002001", Version: "2", Bases: "ACGTACGTACGT", CDSStart: 1, CDSEnd: 9,
	}}, nil)
	rec := postJSON(t, svc.Routes(), "/getGenBank", getGenBankRequest{Accession: "NM_002001", Version: "2"})
	assert.Equal(t, http.StatusOK, rec.Code)
	var resp getGenBankResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ACGTACGTACGT", resp.Bases)
}

func TestWrap_RecoversPanicAsEINTERNAL(t *testing.T) {
	svc := newTestService(t, nil, nil)
	panicking := svc.wrap("boom", func(w http.ResponseWriter, r *http.Request) {
		panic("kaboom")
	})

	req := httptest.NewRequest(http.MethodPost, "/boom", bytes.NewReader(nil))
	rec := httptest.NewRecorder()

	assert.NotPanics(t, func() { panicking.ServeHTTP(rec, req) })
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "EINTERNAL", resp.Code)
}

const testGTFContent = `1	HAVANA	transcript	100	500	.	+	.	gene_id "ENSG1.1"; transcript_id "NM_TEST.1"; gene_name "TEST1";
1	HAVANA	exon	100	250	.	+	.	gene_id "ENSG1.1"; transcript_id "NM_TEST.1"; exon_number "1";
1	HAVANA	exon	300	500	.	+	.	gene_id "ENSG1.1"; transcript_id "NM_TEST.1"; exon_number "2";
1	HAVANA	CDS	200	400	.	+	0	gene_id "ENSG1.1"; transcript_id "NM_TEST.1";
`

func TestHandleCacheSync_GTFModeBuildsMapperAndRespondsWithCount(t *testing.T) {
	dir := t.TempDir()
	gtfPath := filepath.Join(dir, "test.gtf")
	require.NoError(t, os.WriteFile(gtfPath, []byte(testGTFContent), 0o644))

	cacheDir := filepath.Join(dir, "cache")
	cache := store.NewTranscriptCache(cacheDir)
	logger := zaptest.NewLogger(t, zaptest.Level(zap.WarnLevel))
	svc := NewService(nil, nil, cache, nil, logger)

	rec := postJSON(t, svc.Routes(), "/cacheSync", cacheSyncRequest{GTFPath: gtfPath})
	assert.Equal(t, http.StatusOK, rec.Code)
	var resp cacheSyncResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.TranscriptsLoaded)

	rec = postJSON(t, svc.Routes(), "/numberConversion", numberConversionRequest{
		Transcript: "NM_TEST.1", Direction: "toCoding", Genomic: 200,
	})
	assert.Equal(t, http.StatusOK, rec.Code, "cacheSync must hot-swap the mapper so numberConversion works without a restart")
}

func TestHandleCacheSync_RequiresSourceDirOrGTFPath(t *testing.T) {
	cache := store.NewTranscriptCache(t.TempDir())
	logger := zaptest.NewLogger(t, zaptest.Level(zap.WarnLevel))
	svc := NewService(nil, nil, cache, nil, logger)

	rec := postJSON(t, svc.Routes(), "/cacheSync", cacheSyncRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "EARG", resp.Code)
}

func TestWrap_RejectsNonPost(t *testing.T) {
	svc := newTestService(t, nil, nil)
	routes := svc.Routes()

	req := httptest.NewRequest(http.MethodGet, "/checkSyntax", nil)
	rec := httptest.NewRecorder()
	routes.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
