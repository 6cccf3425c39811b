package hgvs

import (
	"fmt"
	"strings"
	"sync"
)

// coreGrammar is the package-level grammar singleton (component C),
// built once and shared read-only across every Parse call; per-call
// state lives entirely in the parser returned by newParserState.
var (
	coreGrammarOnce sync.Once
	coreGrammar     *grammar
)

func grammarInstance() *grammar {
	coreGrammarOnce.Do(func() {
		coreGrammar = buildGrammar()
	})
	return coreGrammar
}

// ParseFailure describes why a variant description failed to parse.
// It never causes a panic or process exit — callers get it back as an
// ordinary value, per the checkSyntax contract.
type ParseFailure struct {
	Input    string
	Position int
	Message  string
}

// Error satisfies the error interface so ParseFailure can be returned
// and compared like any other Go error.
func (f *ParseFailure) Error() string {
	return f.Message
}

// Caret renders the offending position beneath the original input,
// the way the nomenclature's own syntax checker reports a mismatch.
func (f *ParseFailure) Caret() string {
	var b strings.Builder
	b.WriteString(f.Input)
	b.WriteByte('\n')
	for i := 0; i < f.Position; i++ {
		b.WriteByte(' ')
	}
	b.WriteByte('^')
	return b.String()
}

// Parse runs the top-level Var production against input and requires
// it to consume the entire string. On success it returns the root
// node (one of SingleVar/MultiVar/MultiTranscriptVar/UnkEffectVar/
// NoRNAVar/SplicingVar, or a bare TransLoc); on failure it returns a
// ParseFailure describing where the grammar stopped matching.
func Parse(input string) (*Node, *ParseFailure) {
	p := newParserState(input)
	node, end, ok := grammarInstance().ref("Var")(p, 0)
	if !ok {
		return nil, &ParseFailure{
			Input:    input,
			Position: 0,
			Message:  fmt.Sprintf("could not parse %q as a variant description", input),
		}
	}
	if end != len(input) {
		return nil, &ParseFailure{
			Input:    input,
			Position: end,
			Message:  fmt.Sprintf("unexpected trailing input at position %d: %q", end, input[end:]),
		}
	}
	return node, nil
}
