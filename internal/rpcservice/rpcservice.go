// Package rpcservice exposes spec.md §6's external-facing operations
// as JSON-over-HTTP handlers. The example pack carries no SOAP
// toolkit (the nomenclature's own reference service is SOAP-based);
// net/http plus encoding/json is the closest idiomatic Go substitute
// — see DESIGN.md for why no third-party RPC framework from the pack
// was wired in here instead.
//
// Every handler logs its request and outcome via zap and converts
// internal errors into the {code, description} shape spec.md §7
// defines; a panic inside a handler is recovered by the top-level
// middleware, logged, and reported to the client as EINTERNAL rather
// than unwinding into net/http and killing the connection.
package rpcservice

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mutalyzer/hgvsd/internal/batch"
	"github.com/mutalyzer/hgvsd/internal/checker"
	"github.com/mutalyzer/hgvsd/internal/hgvs"
	"github.com/mutalyzer/hgvsd/internal/position"
	"github.com/mutalyzer/hgvsd/internal/refseq"
	"github.com/mutalyzer/hgvsd/internal/store"
)

// Service holds everything a handler needs: the reference resolver,
// the coordinate mapper (swappable, hence behind mu), the durable
// store, and a logger. Callers construct one Service per process and
// hand it to Routes.
type Service struct {
	Resolver refseq.Resolver
	Store    *store.Store
	Cache    *store.TranscriptCache
	Log      *zap.Logger

	mu     chan struct{} // 1-buffered mutex; zero value is unusable, see NewService
	mapper *position.Mapper
}

// NewService constructs a Service. mapper may be nil if no transcript
// cache has been loaded yet; numberConversion then reports ECACHE
// until a cacheSync populates one via SetMapper.
func NewService(resolver refseq.Resolver, st *store.Store, cache *store.TranscriptCache, mapper *position.Mapper, log *zap.Logger) *Service {
	s := &Service{
		Resolver: resolver,
		Store:    st,
		Cache:    cache,
		Log:      log,
		mu:       make(chan struct{}, 1),
		mapper:   mapper,
	}
	s.mu <- struct{}{}
	return s
}

func (s *Service) lockedMapper() *position.Mapper {
	<-s.mu
	defer func() { s.mu <- struct{}{} }()
	return s.mapper
}

// SetMapper atomically replaces the coordinate mapper, used after a
// cacheSync reloads transcripts.
func (s *Service) SetMapper(m *position.Mapper) {
	<-s.mu
	s.mapper = m
	s.mu <- struct{}{}
}

// Routes builds the HTTP handler for every operation, each wrapped in
// the logging+recovery middleware.
func (s *Service) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/checkSyntax", s.wrap("checkSyntax", s.handleCheckSyntax))
	mux.Handle("/batchCheck", s.wrap("batchCheck", s.handleBatchCheck))
	mux.Handle("/numberConversion", s.wrap("numberConversion", s.handleNumberConversion))
	mux.Handle("/getGenBank", s.wrap("getGenBank", s.handleGetGenBank))
	mux.Handle("/cacheSync", s.wrap("cacheSync", s.handleCacheSync))
	return mux
}

// errorResponse is the {code, description} shape spec.md §7 mandates
// for every failure, RPC or otherwise.
type errorResponse struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// wrap adds structured request logging and panic recovery around h,
// satisfying testable property 9 ("no handler can panic the
// process").
func (s *Service) wrap(op string, h func(w http.ResponseWriter, r *http.Request)) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		defer func() {
			if rec := recover(); rec != nil {
				s.Log.Error("handler panicked",
					zap.String("op", op), zap.Any("panic", rec))
				writeError(w, http.StatusInternalServerError, "EINTERNAL", "internal error")
			}
		}()

		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "EARG", "only POST is supported")
			return
		}

		h(w, r)
		s.Log.Info("handled request", zap.String("op", op), zap.Duration("elapsed", time.Since(start)))
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, description string) {
	writeJSON(w, status, errorResponse{Code: code, Description: description})
}

func decodeRequest(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// --- checkSyntax ---

type checkSyntaxRequest struct {
	Variant string `json:"variant"`
	// Transcript is optional. When set and a transcript cache is
	// loaded, a successful parse is additionally located against the
	// transcript (exon/codon, intronic offset) via internal/checker.
	Transcript string `json:"transcript,omitempty"`
}

type checkSyntaxResponse struct {
	Valid       bool                 `json:"valid"`
	Messages    []hgvs.Message       `json:"messages"`
	Description *checker.Description `json:"description,omitempty"`
}

func (s *Service) handleCheckSyntax(w http.ResponseWriter, r *http.Request) {
	var req checkSyntaxRequest
	if err := decodeRequest(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "EARG", "malformed request body")
		return
	}
	result := hgvs.CheckSyntax(req.Variant)
	resp := checkSyntaxResponse{Valid: result.Valid, Messages: result.Messages}

	if result.Valid && req.Transcript != "" {
		if mapper := s.lockedMapper(); mapper != nil {
			if t, ok := mapper.Transcript(req.Transcript); ok {
				desc, err := checker.Describe(result.Tree, t, mapper)
				if err != nil {
					s.Log.Warn("describe failed", zap.String("transcript", req.Transcript), zap.Error(err))
				} else {
					resp.Description = desc
				}
			}
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// --- batchCheck ---

type batchCheckRequest struct {
	Lines []string `json:"lines"`
	// BatchID and SourcePath are optional. When BatchID is set and a
	// Store is configured, a rerun with the same BatchID skips
	// re-running CheckSyntax for lines already recorded from a prior
	// run and returns the recorded outcome instead — the idempotent
	// rerun SPEC_FULL §4.H promises. Without BatchID, or without a
	// Store, every line is checked afresh and nothing is recorded.
	BatchID    string `json:"batchId,omitempty"`
	SourcePath string `json:"sourcePath,omitempty"`
}

type batchRow struct {
	LineNumber int64          `json:"line"`
	Variant    string         `json:"variant"`
	Valid      bool           `json:"valid"`
	Messages   []hgvs.Message `json:"messages"`
}

type batchCheckResponse struct {
	Rows []batchRow `json:"rows"`
}

func (s *Service) handleBatchCheck(w http.ResponseWriter, r *http.Request) {
	var req batchCheckRequest
	if err := decodeRequest(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "EBATCH", "malformed request body")
		return
	}

	if req.BatchID == "" || s.Store == nil {
		rows, err := batch.Run(lineReader(req.Lines))
		if err != nil {
			writeError(w, http.StatusInternalServerError, "EBATCH", err.Error())
			return
		}
		writeJSON(w, http.StatusOK, batchCheckResponse{Rows: toBatchRows(rows)})
		return
	}

	resp := batchCheckResponse{Rows: make([]batchRow, 0, len(req.Lines))}
	var lineNo int64
	for _, raw := range req.Lines {
		line := strings.TrimSpace(raw)
		lineNo++
		if line == "" {
			continue
		}

		if done, err := s.Store.BatchRunComplete(req.BatchID, lineNo); err != nil {
			s.Log.Warn("batch run lookup failed", zap.String("batchId", req.BatchID), zap.Error(err))
		} else if done {
			variant, valid, code, description := mustGetBatchRow(s, req.BatchID, lineNo)
			resp.Rows = append(resp.Rows, batchRowFromRecord(lineNo, variant, valid, code, description))
			continue
		}

		result := hgvs.CheckSyntax(line)
		resp.Rows = append(resp.Rows, batchRow{
			LineNumber: lineNo, Variant: line, Valid: result.Valid, Messages: result.Messages,
		})

		code, description := firstMessage(result.Messages)
		if err := s.Store.RecordBatchRow(req.BatchID, req.SourcePath, lineNo, line, result.Valid, code, description); err != nil {
			s.Log.Warn("record batch row failed", zap.String("batchId", req.BatchID), zap.Error(err))
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func toBatchRows(rows []batch.Row) []batchRow {
	out := make([]batchRow, len(rows))
	for i, row := range rows {
		out[i] = batchRow{
			LineNumber: row.LineNumber, Variant: row.Variant, Valid: row.Valid, Messages: row.Messages,
		}
	}
	return out
}

// firstMessage reduces a Messages slice to the single {code,
// description} pair the batch_runs table has room for; batchCheck's
// JSON response still carries the full slice, this is only a lossy
// bookkeeping record for the idempotency check.
func firstMessage(messages []hgvs.Message) (code, description string) {
	if len(messages) == 0 {
		return "", ""
	}
	return messages[0].Code, messages[0].Description
}

// mustGetBatchRow reads back a row BatchRunComplete just confirmed
// exists; a failure here means the store changed under us between the
// two calls, which is logged and treated as an empty recorded row
// rather than failing the whole batch.
func mustGetBatchRow(s *Service, batchID string, lineNumber int64) (variant string, valid bool, code, description string) {
	variant, valid, code, description, err := s.Store.GetBatchRow(batchID, lineNumber)
	if err != nil {
		s.Log.Warn("get batch row failed", zap.String("batchId", batchID), zap.Error(err))
	}
	return variant, valid, code, description
}

func batchRowFromRecord(lineNo int64, variant string, valid bool, code, description string) batchRow {
	row := batchRow{LineNumber: lineNo, Variant: variant, Valid: valid}
	if code != "" {
		row.Messages = []hgvs.Message{{Code: code, Description: description}}
	}
	return row
}

// --- numberConversion ---

type numberConversionRequest struct {
	Transcript  string `json:"transcript"`
	Direction   string `json:"direction"` // "toGenomic" or "toCoding"
	Genomic     int64  `json:"genomic,omitempty"`
	Base        int    `json:"base,omitempty"`
	OffsetSign  string `json:"offsetSign,omitempty"`
	OffsetValue int    `json:"offsetValue,omitempty"`
}

type numberConversionResponse struct {
	Genomic     int64  `json:"genomic,omitempty"`
	Base        int    `json:"base,omitempty"`
	OffsetSign  string `json:"offsetSign,omitempty"`
	OffsetValue int    `json:"offsetValue,omitempty"`
}

func (s *Service) handleNumberConversion(w http.ResponseWriter, r *http.Request) {
	var req numberConversionRequest
	if err := decodeRequest(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "EARG", "malformed request body")
		return
	}

	mapper := s.lockedMapper()
	if mapper == nil {
		writeError(w, http.StatusServiceUnavailable, "ECACHE", "no transcript cache loaded; run cacheSync first")
		return
	}

	t, ok := mapper.Transcript(req.Transcript)
	if !ok {
		writeError(w, http.StatusNotFound, "EREF", "unknown transcript "+req.Transcript)
		return
	}

	switch req.Direction {
	case "toCoding":
		c, err := mapper.ToCoding(t, req.Genomic)
		if err != nil {
			writeError(w, http.StatusBadRequest, "EREF", err.Error())
			return
		}
		writeJSON(w, http.StatusOK, numberConversionResponse{
			Base: c.Base, OffsetSign: c.OffsetSign, OffsetValue: c.OffsetValue,
		})
	case "toGenomic":
		g, err := mapper.ToGenomic(t, position.CPos{
			Base: req.Base, OffsetSign: req.OffsetSign, OffsetValue: req.OffsetValue,
		})
		if err != nil {
			writeError(w, http.StatusBadRequest, "EREF", err.Error())
			return
		}
		writeJSON(w, http.StatusOK, numberConversionResponse{Genomic: g})
	default:
		writeError(w, http.StatusBadRequest, "EARG", "direction must be toGenomic or toCoding")
	}
}

// --- getGenBank ---

type getGenBankRequest struct {
	Accession string `json:"accession"`
	Version   string `json:"version"`
}

type getGenBankResponse struct {
	Accession string `json:"accession"`
	Version   string `json:"version"`
	Bases     string `json:"bases"`
	CDSStart  int    `json:"cdsStart,omitempty"`
	CDSEnd    int    `json:"cdsEnd,omitempty"`
}

func (s *Service) handleGetGenBank(w http.ResponseWriter, r *http.Request) {
	var req getGenBankRequest
	if err := decodeRequest(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "EARG", "malformed request body")
		return
	}
	if req.Accession == "" {
		writeError(w, http.StatusBadRequest, "EARG", "accession is required")
		return
	}

	// A previously-recorded failed resolution is cached: a known-bad
	// accession is reported back immediately without hitting the
	// resolver again. A previously-recorded success still requires a
	// live resolver call, since only the outcome — not the bases — is
	// persisted.
	if s.Store != nil {
		if resolved, errMsg, found, err := s.Store.GetAccessionResolution(req.Accession, req.Version); err != nil {
			s.Log.Warn("accession resolution lookup failed", zap.String("accession", req.Accession), zap.Error(err))
		} else if found && !resolved {
			writeError(w, http.StatusNotFound, "EREF", errMsg)
			return
		}
	}

	seq, err := s.Resolver.Resolve(r.Context(), req.Accession, req.Version)
	if s.Store != nil {
		if recErr := s.Store.RecordAccessionResolution(req.Accession, req.Version, err == nil, err); recErr != nil {
			s.Log.Warn("record accession resolution failed", zap.String("accession", req.Accession), zap.Error(recErr))
		}
	}
	if err != nil {
		if _, ok := err.(*refseq.NotFoundError); ok {
			writeError(w, http.StatusNotFound, "EREF", err.Error())
			return
		}
		writeError(w, http.StatusBadGateway, "EREF", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, getGenBankResponse{
		Accession: seq.Accession, Version: seq.Version, Bases: seq.Bases,
		CDSStart: seq.CDSStart, CDSEnd: seq.CDSEnd,
	})
}

// --- cacheSync ---

// cacheSyncRequest supports two source modes: a directory of
// Sereal-encoded region files (SourceDir, the teacher's native format),
// or a GENCODE-style GTF file plus optional FASTA/canonical-overrides
// paths. At least one of SourceDir or GTFPath must be set; when both
// are, GTFPath is used.
type cacheSyncRequest struct {
	SourceDir         string `json:"sourceDir,omitempty"`
	GTFPath           string `json:"gtfPath,omitempty"`
	FASTAPath         string `json:"fastaPath,omitempty"`
	CanonicalOverrides string `json:"canonicalOverrides,omitempty"`
}

type cacheSyncResponse struct {
	TranscriptsLoaded int `json:"transcriptsLoaded"`
}

func (s *Service) handleCacheSync(w http.ResponseWriter, r *http.Request) {
	var req cacheSyncRequest
	if err := decodeRequest(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "EARG", "malformed request body")
		return
	}
	if req.SourceDir == "" && req.GTFPath == "" {
		writeError(w, http.StatusBadRequest, "EARG", "either sourceDir or gtfPath is required")
		return
	}

	var n int
	var err error
	if req.GTFPath != "" {
		n, err = store.SyncFromGTF(s.Cache, req.GTFPath, req.FASTAPath, req.CanonicalOverrides)
	} else {
		syncer := store.NewSyncer(s.Cache, req.SourceDir)
		n, err = syncer.Sync(r.Context())
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "ECACHE", err.Error())
		return
	}

	byChrom, err := s.Cache.Load()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "ECACHE", err.Error())
		return
	}
	var flat []*position.Transcript
	for _, ts := range byChrom {
		flat = append(flat, ts...)
	}
	s.SetMapper(position.NewMapper("", flat))

	writeJSON(w, http.StatusOK, cacheSyncResponse{TranscriptsLoaded: n})
}

// lineReader adapts a []string to the io.Reader batch.Run expects,
// without a round trip through bufio for an in-memory request body.
func lineReader(lines []string) *stringsLineReader {
	return &stringsLineReader{lines: lines}
}

// stringsLineReader implements io.Reader over an in-memory line list
// so the JSON handler can reuse batch.Run's scanner-based driver
// instead of duplicating its per-line CheckSyntax/indexing logic.
type stringsLineReader struct {
	lines []string
	idx   int
	buf   []byte
}

func (r *stringsLineReader) Read(p []byte) (int, error) {
	for len(r.buf) == 0 {
		if r.idx >= len(r.lines) {
			return 0, io.EOF
		}
		r.buf = append([]byte(r.lines[r.idx]), '\n')
		r.idx++
	}
	n := copy(p, r.buf)
	r.buf = r.buf[n:]
	return n, nil
}
