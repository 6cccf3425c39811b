// Package batch runs hgvs.CheckSyntax over every variant description in
// a file — one bare variant per line, or the configured column of a
// tab-delimited file (a VCF INFO-style or MAF-style HGVSc column) —
// and reports one {valid, messages} row per non-blank input line, in input
// order, regardless of individual parse failures.
package batch

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/mutalyzer/hgvsd/internal/hgvs"
)

// Row is one batchCheck report line.
type Row struct {
	LineNumber int64
	Variant    string
	Valid      bool
	Messages   []hgvs.Message
}

// Run reads one variant description per line from r and checks each
// with hgvs.CheckSyntax, returning exactly one Row per non-empty line
// in input order. Blank lines are skipped (not counted as input rows)
// the same way the teacher's VCF/MAF parsers skip blank lines.
func Run(r io.Reader) ([]Row, error) {
	scanner := bufio.NewScanner(r)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	var rows []Row
	var lineNo int64
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		result := hgvs.CheckSyntax(line)
		rows = append(rows, Row{
			LineNumber: lineNo,
			Variant:    line,
			Valid:      result.Valid,
			Messages:   result.Messages,
		})
	}
	if err := scanner.Err(); err != nil {
		return rows, fmt.Errorf("batch: scan input: %w", err)
	}
	return rows, nil
}

// RunColumn reads a tab-delimited file with a header row and runs
// CheckSyntax over every value in the named column, in row order.
// Rows whose column value is empty are skipped, matching Run's
// blank-line behavior.
func RunColumn(r io.Reader, column string) ([]Row, error) {
	scanner := bufio.NewScanner(r)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("batch: read header: %w", err)
		}
		return nil, fmt.Errorf("batch: empty input, no header row")
	}
	header := strings.Split(scanner.Text(), "\t")
	colIdx := -1
	for i, h := range header {
		if h == column {
			colIdx = i
			break
		}
	}
	if colIdx == -1 {
		return nil, fmt.Errorf("batch: column %q not found in header", column)
	}

	var rows []Row
	var lineNo int64
	for scanner.Scan() {
		lineNo++
		fields := strings.Split(scanner.Text(), "\t")
		if colIdx >= len(fields) {
			continue
		}
		value := strings.TrimSpace(fields[colIdx])
		if value == "" {
			continue
		}
		result := hgvs.CheckSyntax(value)
		rows = append(rows, Row{
			LineNumber: lineNo,
			Variant:    value,
			Valid:      result.Valid,
			Messages:   result.Messages,
		})
	}
	if err := scanner.Err(); err != nil {
		return rows, fmt.Errorf("batch: scan input: %w", err)
	}
	return rows, nil
}
