// Package hgvs implements a parser for the HGVS variant nomenclature: the
// notation used to describe sequence variants relative to a reference
// (e.g. "NM_002001.2:c.274G>T"). The grammar, AST shape, and the
// checkSyntax operation are specified by the Human Genome Variation
// Society nomenclature; this package does not validate the described
// change against an actual reference sequence.
package hgvs

// Kind tags every AST node produced by the parser.
type Kind string

const (
	KindNumber             Kind = "Number"
	KindNt                 Kind = "Nt"
	KindNtString           Kind = "NtString"
	KindPtLoc              Kind = "PtLoc"
	KindOffset             Kind = "Offset"
	KindExtent             Kind = "Extent"
	KindRangeLoc           Kind = "RangeLoc"
	KindLoc                Kind = "Loc"
	KindRefSeqAcc          Kind = "RefSeqAcc"
	KindGeneSymbol         Kind = "GeneSymbol"
	KindRefType            Kind = "RefType"
	KindRef                Kind = "Ref"
	KindRefOne             Kind = "RefOne"
	KindFarLoc             Kind = "FarLoc"
	KindRawVar             Kind = "RawVar"
	KindNest               Kind = "Nest"
	KindExtendedRawVar     Kind = "ExtendedRawVar"
	KindSimpleAlleleVarSet Kind = "SimpleAlleleVarSet"
	KindUAlleleVarSet      Kind = "UAlleleVarSet"
	KindCAlleleVarSet      Kind = "CAlleleVarSet"
	KindMosaicSet          Kind = "MosaicSet"
	KindChimeronSet        Kind = "ChimeronSet"
	KindSingleAlleleVarSet Kind = "SingleAlleleVarSet"
	KindSingleVar          Kind = "SingleVar"
	KindMultiVar           Kind = "MultiVar"
	KindMultiTranscriptVar Kind = "MultiTranscriptVar"
	KindUnkEffectVar       Kind = "UnkEffectVar"
	KindSplicingVar        Kind = "SplicingVar"
	KindNoRNAVar           Kind = "NoRNAVar"
	KindVar                Kind = "Var"
	KindTransLoc           Kind = "TransLoc"
	KindChrom              Kind = "Chrom"
	KindChromBand          Kind = "ChromBand"
	KindOptRef             Kind = "OptRef"
	KindMultiAlleleVars    Kind = "MultiAlleleVars"
	KindLeaf               Kind = "Leaf"
)

// MutationType values. These are the canonicalised discriminators
// attached to every RawVar node; "subst" and "delins" are rewritten
// from the `>` and `ins` lexemes respectively.
const (
	MutationSubst  = "subst"
	MutationDel    = "del"
	MutationDup    = "dup"
	MutationIns    = "ins"
	MutationDelins = "delins"
	MutationInv    = "inv"
	MutationCon    = "con"
)

// Node is an immutable tree node. Kind identifies the production that
// produced it; Name is the capture name attached by the parent
// production ("" for positional/anonymous nodes); Text carries the
// matched source text for leaf-like nodes; Children holds named and
// anonymous sub-trees in match order.
type Node struct {
	Kind     Kind
	Name     string
	Text     string
	Children []*Node
}

// Get returns the named child, searching n's direct children first and
// then, only through children that carry no capture name of their own,
// recursively deeper (through any chain of anonymous children). An
// anonymous child is a pure structural wrapper
// (e.g. RefOne around RefSeqAcc/RefType) that the grammar chose not to
// single out, so lookups see through it; a named child (RawVar, Loc,
// StartLoc, ...) is a real boundary and must be stepped through
// explicitly. Returns nil if there is no match.
func (n *Node) Get(name string) *Node {
	if n == nil {
		return nil
	}
	for _, c := range n.Children {
		if c.Name == name {
			return c
		}
	}
	for _, c := range n.Children {
		if c.Name == "" {
			if found := c.Get(name); found != nil {
				return found
			}
		}
	}
	return nil
}

// GetAll returns every child with the given capture name, using the
// same direct-then-through-anonymous-wrappers search as Get.
func (n *Node) GetAll(name string) []*Node {
	if n == nil {
		return nil
	}
	var out []*Node
	for _, c := range n.Children {
		if c.Name == name {
			out = append(out, c)
		}
	}
	if len(out) > 0 {
		return out
	}
	for _, c := range n.Children {
		if c.Name == "" {
			out = append(out, c.GetAll(name)...)
		}
	}
	return out
}

// ByKind returns the first direct child of the given Kind, or nil.
// Useful for anonymous alternatives (e.g. Loc's RangeLoc branch) that
// carry no capture name.
func (n *Node) ByKind(kind Kind) *Node {
	if n == nil {
		return nil
	}
	for _, c := range n.Children {
		if c.Kind == kind {
			return c
		}
	}
	return nil
}

// MutationType returns the canonical discriminator attached to a
// RawVar node ("" if this node is not a RawVar or carries none).
func (n *Node) MutationType() string {
	mt := n.Get("MutationType")
	if mt == nil {
		return ""
	}
	return mt.Text
}

// clone returns a shallow copy of n. Used by combinators that need to
// attach a different Name to a node that may be shared via the
// packrat memo table; mutating a memoized node in place would corrupt
// the cache entry seen by other call sites.
func (n *Node) clone() *Node {
	if n == nil {
		return nil
	}
	cp := *n
	return &cp
}

// withName returns a clone of n with Name set, or nil if n is nil
// (suppressed content stays suppressed regardless of naming).
func withName(n *Node, name string) *Node {
	if n == nil {
		return nil
	}
	cp := n.clone()
	cp.Name = name
	return cp
}
