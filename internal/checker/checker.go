// Package checker renders a best-effort, reference-free description
// of where a parsed variant falls on a resolved transcript: which
// exon, or which flanking exons an intronic offset sits between, and
// — for an in-frame coding position — which codon. It is grounded on
// the teacher's internal/annotate package (consequence.go, codon.go,
// reverse_map.go) but consumes *hgvs.Node parse trees instead of VCF
// Variant structs, and it never compares the described bases against
// the reference: that remains entirely out of scope here, the same
// way spec.md's Non-goal 1 ("no semantic validation") scopes it out
// of the parser itself. checker only adds context to a parse that has
// already succeeded; it never causes CheckSyntax to reject one.
package checker

import (
	"fmt"
	"strconv"

	"github.com/mutalyzer/hgvsd/internal/hgvs"
	"github.com/mutalyzer/hgvsd/internal/position"
)

// Locus pinpoints one PtLoc against a resolved transcript.
type Locus struct {
	// Resolved is false when the PtLoc could not be placed (an
	// unknown "?" position, or a "-"/"*" UTR-relative main number
	// that checker does not model). Every other field is the zero
	// value in that case.
	Resolved bool
	Genomic  int64
	// Exon is the 1-based exon number the position falls in, or 0 if
	// the position is intronic.
	Exon int
	// Intronic is true when the position falls between exons; Codon
	// is then meaningless and left at 0.
	Intronic bool
	// Codon is the 1-based codon number a CDS-relative, non-intronic
	// position falls in, or 0 if the transcript has no CDS.
	Codon int
	// CodonOffset is which base of Codon this is: 0, 1 or 2.
	CodonOffset int
}

// Description is a best-effort rendering of a RawVar's location(s)
// against a resolved transcript.
type Description struct {
	Transcript   string
	MutationType string
	Start        Locus
	// End is non-nil only when the RawVar's location was a RangeLoc.
	End *Locus
}

// Describe walks tree (expected to be, or contain, a SingleVar) for
// its RawVar's location and resolves it against t using m. It never
// returns an error because the location shape doesn't match anything
// checker recognizes — in that case it returns a Description whose
// Locus fields are unresolved; it returns an error only for a tree
// that carries no RawVar at all, since that means the caller handed
// it something other than a successfully parsed variant.
func Describe(tree *hgvs.Node, t *position.Transcript, m *position.Mapper) (*Description, error) {
	if tree == nil {
		return nil, fmt.Errorf("checker: nil parse tree")
	}
	rawVar := tree.Get("RawVar")
	if rawVar == nil {
		return nil, fmt.Errorf("checker: parse tree carries no RawVar")
	}

	desc := &Description{
		Transcript:   t.ID,
		MutationType: rawVar.MutationType(),
	}

	startPt, endPt := rawVarPtLocs(rawVar)
	desc.Start = locate(startPt, t, m)
	if endPt != nil {
		end := locate(endPt, t, m)
		desc.End = &end
	}
	return desc, nil
}

// rawVarPtLocs extracts the start (and, for a range, end) PtLoc node
// from a RawVar, accounting for the several different capture shapes
// the grammar uses across the eight mutation-event productions: a
// bare "PtLoc" (VarSSR's abbreviated form), a "StartLoc"-wrapped PtLoc
// (Subst, Indel's point-location arm), a "Loc" field that itself
// resolves to either a PtLoc or a RangeLoc (Del, Dup, Inv's simpler
// cousins), or a bare "RangeLoc" (VarSSR, Ins, Indel, Inv, Conv).
func rawVarPtLocs(rawVar *hgvs.Node) (start, end *hgvs.Node) {
	if p := rawVar.Get("PtLoc"); p != nil {
		return p, nil
	}
	if sl := rawVar.Get("StartLoc"); sl != nil {
		return sl.Get("PtLoc"), nil
	}
	if loc := rawVar.Get("Loc"); loc != nil {
		if p := loc.Get("PtLoc"); p != nil {
			return p, nil
		}
		if rl := loc.ByKind(hgvs.KindRangeLoc); rl != nil {
			return rangeLocPtLocs(rl)
		}
	}
	if rl := rawVar.Get("RangeLoc"); rl != nil {
		return rangeLocPtLocs(rl)
	}
	return nil, nil
}

func rangeLocPtLocs(rangeLoc *hgvs.Node) (start, end *hgvs.Node) {
	if sl := rangeLoc.Get("StartLoc"); sl != nil {
		start = sl.Get("PtLoc")
	}
	if el := rangeLoc.Get("EndLoc"); el != nil {
		end = el.Get("PtLoc")
	}
	return start, end
}

// locate resolves a single PtLoc node against t. A nil pt, or a PtLoc
// checker doesn't model (unknown "?" or UTR-relative "-"/"*"), yields
// an unresolved Locus rather than an error.
func locate(pt *hgvs.Node, t *position.Transcript, m *position.Mapper) Locus {
	cpos, ok := ptLocToCPos(pt)
	if !ok {
		return Locus{}
	}

	genomic, err := m.ToGenomic(t, cpos)
	if err != nil {
		return Locus{}
	}

	loc := Locus{Resolved: true, Genomic: genomic}

	if idx := exonIndex(t, genomic); idx >= 0 {
		loc.Exon = t.Exons[idx].Number
	}
	if cpos.OffsetSign != "" {
		loc.Intronic = true
		return loc
	}
	if t.IsProteinCoding() && cpos.Base > 0 {
		loc.Codon = (cpos.Base-1)/3 + 1
		loc.CodonOffset = (cpos.Base - 1) % 3
	}
	return loc
}

// exonIndex returns the index into t.Exons containing genomic, or -1
// if genomic falls in an intron or outside the transcript.
func exonIndex(t *position.Transcript, genomic int64) int {
	for i, e := range t.Exons {
		if genomic >= e.Start && genomic <= e.End {
			return i
		}
	}
	return -1
}

// ptLocToCPos converts a PtLoc node into a position.CPos. ok is false
// for a PtLoc checker does not resolve: the unknown-position "?" main
// number, a "?" offset value, or a "-"/"*" MainSgn (5'/3' UTR-relative
// numbering, which checker does not model since it carries no UTR
// length data).
func ptLocToCPos(pt *hgvs.Node) (cpos position.CPos, ok bool) {
	if pt == nil {
		return position.CPos{}, false
	}
	if pt.Get("MainSgn") != nil {
		return position.CPos{}, false
	}
	main := pt.Get("Main")
	if main == nil || main.Text == "?" {
		return position.CPos{}, false
	}
	base, err := strconv.Atoi(main.Text)
	if err != nil {
		return position.CPos{}, false
	}
	cpos.Base = base

	if off := pt.ByKind(hgvs.KindOffset); off != nil {
		if sign := off.Get("Sign"); sign != nil {
			cpos.OffsetSign = sign.Text
		}
		value := off.Get("Value")
		if value == nil || value.Text == "?" {
			return position.CPos{}, false
		}
		v, err := strconv.Atoi(value.Text)
		if err != nil {
			return position.CPos{}, false
		}
		cpos.OffsetValue = v
	}
	return cpos, true
}
