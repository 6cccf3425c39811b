package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/mutalyzer/hgvsd/internal/hgvs"
)

func runCheck(args []string) int {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Check the syntax of a single HGVS variant description.

Usage:
  hgvsd check <variant>

Examples:
  hgvsd check "NM_002001.2:c.274G>T"
  hgvsd check "NC_000001.10:g.100_200del"
`)
	}
	if err := fs.Parse(args); err != nil {
		return ExitUsage
	}
	if fs.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Error: variant argument required\n\n")
		fs.Usage()
		return ExitUsage
	}

	result := hgvs.CheckSyntax(fs.Arg(0))
	if result.Valid {
		fmt.Println("valid")
		return ExitSuccess
	}

	fmt.Println("invalid")
	for _, m := range result.Messages {
		fmt.Printf("  %s: %s\n", m.Code, m.Description)
	}
	return ExitError
}
