package batch

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// ReportWriter writes batchCheck rows in the same tab-delimited shape
// the teacher's output.TabWriter uses for annotation rows.
type ReportWriter struct {
	w *bufio.Writer
}

func NewReportWriter(w io.Writer) *ReportWriter {
	return &ReportWriter{w: bufio.NewWriter(w)}
}

func (rw *ReportWriter) WriteHeader() error {
	_, err := rw.w.WriteString(strings.Join([]string{"#Line", "Variant", "Valid", "Code", "Description"}, "\t") + "\n")
	return err
}

func (rw *ReportWriter) Write(row Row) error {
	valid := "true"
	code, description := "", ""
	if !row.Valid {
		valid = "false"
		if len(row.Messages) > 0 {
			code = row.Messages[0].Code
			description = row.Messages[0].Description
		}
	}
	values := []string{
		fmt.Sprintf("%d", row.LineNumber),
		row.Variant,
		valid,
		code,
		description,
	}
	_, err := rw.w.WriteString(strings.Join(values, "\t") + "\n")
	return err
}

func (rw *ReportWriter) Flush() error {
	return rw.w.Flush()
}
