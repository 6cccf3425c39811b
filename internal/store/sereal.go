package store

import (
	"fmt"

	"github.com/Sereal/Sereal/Go/sereal"

	"github.com/mutalyzer/hgvsd/internal/position"
)

// Sereal magic bytes, standard and high-bit variants.
var (
	serealMagicStandard = []byte{0x3D, 0x73, 0x72, 0x6C} // =srl
	serealMagicHighBit  = []byte{0x3D, 0xF3, 0x72, 0x6C} // =\xF3rl
)

// IsSereal reports whether data looks like a Sereal-encoded blob, the
// format third-party transcript caches (e.g. an Ensembl VEP cache) are
// shipped in.
func IsSereal(data []byte) bool {
	if len(data) < 4 {
		return false
	}
	return matchMagic(data[:4], serealMagicStandard) || matchMagic(data[:4], serealMagicHighBit)
}

func matchMagic(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// DecodeSereal decodes a Sereal-encoded transcript array into this
// package's Transcript/Exon shape, so a third-party cache can be
// ingested without re-exporting it through any intermediate format.
func DecodeSereal(data []byte, chrom string) ([]*position.Transcript, error) {
	var raw interface{}
	if err := sereal.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("store: sereal unmarshal: %w", err)
	}

	rawArray, ok := raw.([]interface{})
	if !ok {
		if rawMap, isMap := raw.(map[string]interface{}); isMap {
			if items, hasItems := rawMap["transcripts"]; hasItems {
				rawArray, ok = items.([]interface{})
			}
		}
		if !ok {
			return nil, fmt.Errorf("store: expected array of transcripts, got %T", raw)
		}
	}

	transcripts := make([]*position.Transcript, 0, len(rawArray))
	for i, item := range rawArray {
		t, err := convertTranscript(item, chrom)
		if err != nil {
			return nil, fmt.Errorf("store: convert transcript %d: %w", i, err)
		}
		if t != nil {
			transcripts = append(transcripts, t)
		}
	}
	return transcripts, nil
}

func convertTranscript(raw interface{}, chrom string) (*position.Transcript, error) {
	m := unwrapPerlObject(raw)
	if m == nil {
		return nil, fmt.Errorf("expected hash, got %T", raw)
	}

	t := &position.Transcript{Chrom: chrom}
	t.ID = getString(m, "stable_id")
	t.GeneID = getString(m, "_gene_stable_id")
	t.GeneName = getString(m, "_gene_symbol")
	t.Start = getInt64(m, "start")
	t.End = getInt64(m, "end")
	t.Strand = int8(getInt64(m, "strand"))
	t.IsCanonical = getBool(m, "is_canonical")
	t.CDSStart = getInt64(m, "coding_region_start")
	t.CDSEnd = getInt64(m, "coding_region_end")

	if exonArray := getArray(m, "_trans_exon_array"); exonArray != nil {
		t.Exons = convertExons(exonArray)
	}

	if t.ID == "" {
		return nil, nil
	}
	return t, nil
}

func convertExons(raw []interface{}) []position.Exon {
	exons := make([]position.Exon, 0, len(raw))
	for i, item := range raw {
		m := unwrapPerlObject(item)
		if m == nil {
			continue
		}
		exons = append(exons, position.Exon{
			Number: i + 1,
			Start:  getInt64(m, "start"),
			End:    getInt64(m, "end"),
		})
	}
	return exons
}

func unwrapPerlObject(raw interface{}) map[string]interface{} {
	if m, ok := raw.(map[string]interface{}); ok {
		return m
	}
	if obj, ok := raw.(sereal.PerlObject); ok {
		if m, ok := obj.Reference.(map[string]interface{}); ok {
			return m
		}
	}
	return nil
}

func getString(m map[string]interface{}, key string) string {
	if v, ok := m[key]; ok {
		switch s := v.(type) {
		case string:
			return s
		case []byte:
			return string(s)
		}
	}
	return ""
}

func getInt64(m map[string]interface{}, key string) int64 {
	if v, ok := m[key]; ok {
		switch n := v.(type) {
		case int64:
			return n
		case int:
			return int64(n)
		case float64:
			return int64(n)
		case uint64:
			return int64(n)
		}
	}
	return 0
}

func getBool(m map[string]interface{}, key string) bool {
	if v, ok := m[key]; ok {
		switch b := v.(type) {
		case bool:
			return b
		case int64:
			return b != 0
		case int:
			return b != 0
		case float64:
			return b != 0
		case string:
			return b == "1" || b == "true"
		}
	}
	return false
}

func getArray(m map[string]interface{}, key string) []interface{} {
	if v, ok := m[key]; ok {
		if arr, ok := v.([]interface{}); ok {
			return arr
		}
	}
	return nil
}
