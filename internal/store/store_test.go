package store

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openInMemory(t *testing.T) *Store {
	t.Helper()
	s, err := Open("")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenClose(t *testing.T) {
	s := openInMemory(t)
	assert.NotNil(t, s.DB())
}

func TestAccessionResolution_RoundTrip(t *testing.T) {
	s := openInMemory(t)

	resolved, err := s.AccessionResolved("NM_002001", "2")
	require.NoError(t, err)
	assert.False(t, resolved, "unrecorded accession starts unresolved")

	require.NoError(t, s.RecordAccessionResolution("NM_002001", "2", true, nil))

	resolved, err = s.AccessionResolved("NM_002001", "2")
	require.NoError(t, err)
	assert.True(t, resolved)
}

func TestBatchRun_IdempotentRerun(t *testing.T) {
	s := openInMemory(t)

	complete, err := s.BatchRunComplete("batch-1", 1)
	require.NoError(t, err)
	assert.False(t, complete)

	require.NoError(t, s.RecordBatchRow("batch-1", "variants.txt", 1, "NM_002001.2:c.274G>T", true, "", ""))

	complete, err = s.BatchRunComplete("batch-1", 1)
	require.NoError(t, err)
	assert.True(t, complete, "a rerun over the same line should see it already recorded")
}

func TestGetBatchRow_ReturnsRecordedOutcome(t *testing.T) {
	s := openInMemory(t)

	require.NoError(t, s.RecordBatchRow("batch-1", "variants.txt", 1, "not a variant", false, "EPARSE", "unrecognized syntax"))

	variant, valid, code, description, err := s.GetBatchRow("batch-1", 1)
	require.NoError(t, err)
	assert.Equal(t, "not a variant", variant)
	assert.False(t, valid)
	assert.Equal(t, "EPARSE", code)
	assert.Equal(t, "unrecognized syntax", description)
}

func TestGetAccessionResolution_ReportsFoundAndOutcome(t *testing.T) {
	s := openInMemory(t)

	_, _, found, err := s.GetAccessionResolution("NM_999999", "1")
	require.NoError(t, err)
	assert.False(t, found, "unrecorded accession must report found=false, not an error")

	require.NoError(t, s.RecordAccessionResolution("NM_999999", "1", false, fmt.Errorf("accession not found")))

	resolved, errMsg, found, err := s.GetAccessionResolution("NM_999999", "1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.False(t, resolved)
	assert.Equal(t, "accession not found", errMsg)
}
