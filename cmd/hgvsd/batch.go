package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/mutalyzer/hgvsd/internal/batch"
)

func runBatch(args []string) int {
	fs := flag.NewFlagSet("batch", flag.ExitOnError)

	var (
		column     string
		outputFile string
	)
	fs.StringVar(&column, "column", "", "Tab-delimited column holding the variant description (default: one bare variant per line)")
	fs.StringVar(&outputFile, "o", "", "Output file (default: stdout)")
	fs.StringVar(&outputFile, "output", "", "Output file (default: stdout)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Run checkSyntax over every line of a file and report a {valid, messages} row per line.

Usage:
  hgvsd batch [options] <input-file>

Arguments:
  <input-file>  Input file (use '-' for stdin)

Options:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  hgvsd batch variants.txt
  hgvsd batch --column HGVSc annotated.maf
  cat variants.txt | hgvsd batch -
`)
	}

	if err := fs.Parse(args); err != nil {
		return ExitUsage
	}
	if fs.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Error: input file argument required\n\n")
		fs.Usage()
		return ExitUsage
	}

	inputPath := fs.Arg(0)
	var in *os.File
	if inputPath == "-" {
		in = os.Stdin
	} else {
		f, err := os.Open(inputPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening input file: %v\n", err)
			return ExitError
		}
		defer f.Close()
		in = f
	}

	var rows []batch.Row
	var err error
	if column != "" {
		rows, err = batch.RunColumn(in, column)
	} else {
		rows, err = batch.Run(in)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitError
	}

	out := os.Stdout
	if outputFile != "" {
		f, err := os.Create(outputFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating output file: %v\n", err)
			return ExitError
		}
		defer f.Close()
		out = f
	}

	rw := batch.NewReportWriter(out)
	if err := rw.WriteHeader(); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing header: %v\n", err)
		return ExitError
	}
	for _, row := range rows {
		if err := rw.Write(row); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing row: %v\n", err)
			return ExitError
		}
	}
	if err := rw.Flush(); err != nil {
		fmt.Fprintf(os.Stderr, "Error flushing output: %v\n", err)
		return ExitError
	}

	return ExitSuccess
}
