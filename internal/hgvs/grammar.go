package hgvs

// buildGrammar registers every HGVS production (component C) against a
// fresh registry. Rules are defined in roughly the same order as the
// nomenclature grammar they are grounded on: terminals and small
// locations first, then RawVar's eight mutation-event shapes, then the
// allele-set hierarchy (SimpleAlleleVarSet, MosaicSet, ChimeronSet,
// SingleAlleleVarSet) that nests through Nest back down to RawVar, and
// finally the top-level Var alternatives. Registration order does not
// matter for correctness — g.ref resolves by name at parse time — but
// keeping it close to the source grammar's order makes the two easy to
// read side by side.
func buildGrammar() *grammar {
	g := newGrammar()

	g.define("Number", numberRule)
	g.define("Name", nameRule)
	g.define("Nt", ntRule)
	g.define("NtString", ntStringRule)
	g.define("AccNoAccession", accessionLettersThenDigits)

	// TransVar, ProtIso: "_v1", "_i2" suffixes on a GeneSymbol.
	g.define("TransVar", seq(suppress(lit("_v")), capture("TransVar", g.ref("Number"))))
	g.define("ProtIso", seq(suppress(lit("_i")), capture("ProtIso", g.ref("Number"))))

	// GeneSymbol: "(" Name ("_v"TransVar | "_i"ProtIso)? ")". The
	// mandated capture name "Gene" is attached at each embedding site,
	// not baked in here, since GeneSymbol is reused standalone (inside
	// Ref/FarLoc/Extent's OptRef) where "Gene" is the right name anyway.
	g.define("GeneSymbol", build(KindGeneSymbol, seq(
		suppress(lit("(")),
		capture("Name", g.ref("Name")),
		opt(choiceLongest(g.ref("TransVar"), g.ref("ProtIso"))),
		suppress(lit(")")),
	)))

	// GI: optional "GI"/"GI:" prefix (discarded either way) + digits.
	giPrefix := choiceLongest(opt(suppress(lit("GI:"))), opt(suppress(lit("GI"))))
	g.define("GI", seq(giPrefix, capture("Accession", g.ref("Number"))))

	// AccNo: letters/underscore run immediately followed by digits,
	// combined into one accession token, plus an optional version.
	g.define("AccNo", seq(capture("Accession", g.ref("AccNoAccession")), opt(g.ref("Version"))))
	g.define("Version", seq(suppress(lit(".")), capture("Version", g.ref("Number"))))

	// RefSeqAcc: a GI or AccNo accession, with an optional trailing
	// gene symbol. "RefSeqAcc" itself is the use-site capture name;
	// the production returns the bare composite.
	g.define("RefSeqAcc", build(KindRefSeqAcc, seq(
		choiceLongest(g.ref("GI"), g.ref("AccNo")),
		opt(g.capRef("Gene", "GeneSymbol")),
	)))

	g.define("Chrom", capture("Chrom", g.ref("Name")))

	// Offset: +/- sign, optional u/d direction, then a Number or "?".
	g.define("Offset", build(KindOffset, seq(
		capture("Sign", charIn("+-")),
		opt(capture("Direction", charIn("ud"))),
		capture("Value", choiceLongest(g.ref("Number"), lit("?"))),
	)))

	// PtLoc: ( [-|*]? Number Offset? ) or a bare "?".
	g.define("PtLoc", build(KindPtLoc, choiceFirst(
		seq(
			opt(capture("MainSgn", charIn("-*"))),
			capture("Main", g.ref("Number")),
			opt(g.ref("Offset")),
		),
		capture("Main", lit("?")),
	)))

	// RefType: one of c/g/m/n/r followed by ".". Returned as a plain
	// leaf-shaped node (no Children) since it carries nothing but the
	// letter; the use site attaches the "RefType" capture name.
	g.define("RefType", refTypeRule)

	refOrGene := choiceLongest(g.capRef("RefSeqAcc", "RefSeqAcc"), g.capRef("Gene", "GeneSymbol"))

	// Ref: optional (RefSeqAcc|GeneSymbol) ":" , optional RefType.
	g.define("Ref", build(KindRef, seq(
		opt(seq(refOrGene, suppress(lit(":")))),
		opt(g.capRef("RefType", "RefType")),
	)))

	// RefOne: like Ref but the accession is mandatory.
	g.define("RefOne", build(KindRefOne, seq(
		g.capRef("RefSeqAcc", "RefSeqAcc"),
		suppress(lit(":")),
		opt(g.capRef("RefType", "RefType")),
	)))

	// Extent: StartLoc(PtLoc) "_" EndLoc(OptRef? PtLoc).
	g.define("Extent", build(KindExtent, seq(
		g.wrappedPtLoc("StartLoc"),
		suppress(lit("_")),
		capture("EndLoc", build(KindLoc, seq(
			opt(capture("OptRef", build(KindOptRef, seq(
				opt(capture("Far", lit("o"))),
				refOrGene,
				suppress(lit(":")),
				opt(g.capRef("RefType", "RefType")),
			)))),
			capture("PtLoc", g.ref("PtLoc")),
		))),
	)))

	// RangeLoc: Extent, optionally parenthesized (unknown-extent range).
	g.define("RangeLoc", build(KindRangeLoc, choiceLongest(
		g.ref("Extent"),
		seq(suppress(lit("(")), g.ref("Extent"), suppress(lit(")"))),
	)))

	// Loc: a bare PtLoc or a RangeLoc. Used wherever a RawVar shape
	// needs "a location" without distinguishing which kind up front.
	g.define("Loc", build(KindLoc, choiceLongest(
		capture("PtLoc", g.ref("PtLoc")),
		g.ref("RangeLoc"),
	)))

	// FarLoc: a far reference, optionally anchored with its own
	// RefType and Extent (used by Ins/Conv/Indel's far-insertion arm).
	g.define("FarLoc", build(KindFarLoc, seq(
		refOrGene,
		opt(seq(suppress(lit(":")), opt(g.capRef("RefType", "RefType")), g.ref("Extent"))),
	)))

	// --- RawVar: the eight mutation-event shapes ---

	g.define("Subst", build(KindRawVar, seq(
		g.wrappedPtLoc("StartLoc"),
		capture("Arg1", g.ref("Nt")),
		capture("MutationType", litAs(">", MutationSubst)),
		capture("Arg2", g.ref("Nt")),
	)))

	g.define("Del", build(KindRawVar, seq(
		capture("Loc", g.ref("Loc")),
		capture("MutationType", litAs("del", MutationDel)),
		opt(capture("Arg1", choiceLongest(g.ref("NtString"), g.ref("Number")))),
	)))

	g.define("Dup", build(KindRawVar, seq(
		capture("Loc", g.ref("Loc")),
		capture("MutationType", litAs("dup", MutationDup)),
		opt(choiceLongest(g.ref("NtString"), g.ref("Number"))),
		opt(capture("Nest", g.ref("Nest"))),
	)))

	// VarSSR: PtLoc NtString "[" Number "]", or RangeLoc "[" Number "]",
	// or the abbreviated PtLoc NtString "(" Number "_" Number ")" form
	// tried last per the grammar's own disambiguation note.
	g.define("VarSSR", build(KindRawVar, choiceLongest(
		seq(
			capture("PtLoc", g.ref("PtLoc")), capture("Arg1", g.ref("NtString")),
			suppress(lit("[")), capture("Arg2", g.ref("Number")), suppress(lit("]")),
		),
		seq(
			capture("RangeLoc", g.ref("RangeLoc")),
			suppress(lit("[")), capture("Arg2", g.ref("Number")), suppress(lit("]")),
		),
		seq(
			capture("PtLoc", g.ref("PtLoc")), capture("Arg1", g.ref("NtString")),
			suppress(lit("(")), capture("Arg2", g.ref("Number")),
			suppress(lit("_")), capture("Arg3", g.ref("Number")), suppress(lit(")")),
		),
	)))

	g.define("Ins", build(KindRawVar, seq(
		capture("RangeLoc", g.ref("RangeLoc")),
		capture("MutationType", litAs("ins", MutationIns)),
		choiceLongest(
			capture("Arg1", g.ref("NtString")),
			g.ref("Number"),
			g.ref("RangeLoc"),
			capture("OptRef", g.ref("FarLoc")),
		),
		opt(capture("Nest", g.ref("Nest"))),
	)))

	// Indel: (RangeLoc|PtLoc) "del" Arg1? "ins"->delins Arg2 Nest?
	indelLoc := choiceLongest(
		capture("RangeLoc", g.ref("RangeLoc")),
		g.wrappedPtLoc("StartLoc"),
	)
	g.define("Indel", build(KindRawVar, seq(
		indelLoc,
		suppress(lit("del")),
		optArgBeforeKeyword("Arg1", choiceLongest(g.ref("NtString"), g.ref("Number")), "ins"),
		capture("MutationType", litAs("ins", MutationDelins)),
		choiceLongest(
			capture("Arg1", g.ref("NtString")),
			g.ref("Number"),
			g.ref("RangeLoc"),
			capture("OptRef", g.ref("FarLoc")),
		),
		opt(capture("Nest", g.ref("Nest"))),
	)))

	g.define("Inv", build(KindRawVar, seq(
		capture("RangeLoc", g.ref("RangeLoc")),
		capture("MutationType", litAs("inv", MutationInv)),
		opt(choiceLongest(g.ref("NtString"), g.ref("Number"))),
		opt(capture("Nest", g.ref("Nest"))),
	)))

	g.define("Conv", build(KindRawVar, seq(
		capture("RangeLoc", g.ref("RangeLoc")),
		capture("MutationType", litAs("con", MutationCon)),
		g.ref("FarLoc"),
		opt(capture("Nest", g.ref("Nest"))),
	)))

	// ChromBand: arm letter (p/q), major.minor band numbers.
	g.define("ChromBand", build(KindChromBand, seq(
		capture("Arm", charIn("pq")),
		g.ref("Number"),
		suppress(lit(".")),
		g.ref("Number"),
	)))

	g.define("ChromCoords", seq(
		suppress(lit("(")),
		capture("Chrom", g.ref("Chrom")), suppress(lit(";")), capture("Chrom", g.ref("Chrom")),
		suppress(lit(")")),
		suppress(lit("(")),
		capture("ChromBand", g.ref("ChromBand")), suppress(lit(";")), capture("ChromBand", g.ref("ChromBand")),
		suppress(lit(")")),
	))

	g.define("TransLoc", build(KindTransLoc, seq(
		suppress(lit("t")),
		g.ref("ChromCoords"),
		suppress(lit("(")), g.ref("FarLoc"), suppress(lit(")")),
	)))

	// CRawVar is the ordered set of mutation-event shapes tried at a
	// raw-variant position. Indel is listed ahead of Del: on an input
	// like "76_78delinsTTT", Del's own optional trailing argument can
	// greedily reinterpret "insTTT" as a deleted-sequence literal (its
	// IUPAC alphabet happens to cover every letter in "ins"), tying
	// Del's total match length with Indel's. Source order is the
	// tie-break, so Indel must come first to win it and produce
	// "delins" rather than a spurious "del".
	g.define("CRawVar", choiceLongest(
		g.ref("Subst"), g.ref("Indel"), g.ref("Del"), g.ref("Dup"), g.ref("VarSSR"),
		g.ref("Ins"), g.ref("Inv"), g.ref("Conv"),
	))

	// RawVar: a CRawVar, optionally parenthesized, with an optional
	// trailing "?" (uncertain-effect marker) swallowed either way. Both
	// branches must yield the CRawVar node itself (not a wrapper around
	// it) so capture("RawVar", ...) renames the same shape regardless
	// of which alternative matched — hence paren() rather than seq().
	g.define("RawVar", seq(
		capture("RawVar", choiceLongest(
			g.ref("CRawVar"),
			paren(g.ref("CRawVar")),
		)),
		opt(suppress(lit("?"))),
	))

	g.define("ExtendedRawVar", build(KindExtendedRawVar, choiceLongest(
		g.ref("RawVar"),
		lit("="),
		lit("?"),
	)))

	g.define("CAlleleVarSet", build(KindCAlleleVarSet, seq(
		g.ref("ExtendedRawVar"),
		star(seq(suppress(lit(";")), g.ref("ExtendedRawVar"))),
	)))

	g.define("UAlleleVarSet", build(KindUAlleleVarSet, seq(
		choiceLongest(
			g.ref("CAlleleVarSet"),
			seq(suppress(lit("(")), g.ref("CAlleleVarSet"), suppress(lit(")"))),
		),
		opt(suppress(lit("?"))),
	)))

	// SimpleAlleleVarSet, MosaicSet, ChimeronSet, SingleAlleleVarSet
	// and Nest form the recursive allele-set core: SimpleAlleleVarSet is
	// always captured under its own name, bracketed or bare; each of the
	// other three either wraps its own bracketed form (named after
	// itself) or falls through bare to the next, and Nest reopens the
	// whole chain from SimpleAlleleVarSet inside "{" "}".
	g.define("SimpleAlleleVarSet", capture("SimpleAlleleVarSet", build(KindSimpleAlleleVarSet, choiceLongest(
		seq(suppress(lit("[")), g.ref("UAlleleVarSet"), suppress(lit("]"))),
		g.ref("ExtendedRawVar"),
	))))

	g.define("MosaicSet", choiceLongest(
		capture("MosaicSet", build(KindMosaicSet, seq(
			suppress(lit("[")),
			g.ref("SimpleAlleleVarSet"),
			star(seq(suppress(lit("/")), g.ref("SimpleAlleleVarSet"))),
			suppress(lit("]")),
		))),
		g.ref("SimpleAlleleVarSet"),
	))

	g.define("ChimeronSet", choiceLongest(
		capture("ChimeronSet", build(KindChimeronSet, seq(
			suppress(lit("[")),
			g.ref("MosaicSet"),
			star(seq(suppress(lit("//")), g.ref("MosaicSet"))),
			suppress(lit("]")),
		))),
		g.ref("MosaicSet"),
	))

	g.define("SingleAlleleVarSet", choiceLongest(
		capture("SingleAlleleVarSet", build(KindSingleAlleleVarSet, seq(
			suppress(lit("[")),
			g.ref("ChimeronSet"),
			star(seq(choiceLongest(suppress(lit(";")), suppress(lit("^"))), g.ref("ChimeronSet"))),
			star(seq(suppress(lit("(;)")), g.ref("ChimeronSet"))),
			suppress(lit("]")),
		))),
		g.ref("ChimeronSet"),
	))

	g.define("Nest", seq(
		suppress(lit("{")),
		capture("Nest", build(KindNest, g.ref("SimpleAlleleVarSet"))),
		suppress(lit("}")),
	))

	// --- top-level Var alternatives ---

	g.define("SingleAlleleVars", seq(g.capRef("Ref", "Ref"), g.ref("SingleAlleleVarSet")))

	g.define("MultiAlleleVars", seq(
		g.capRef("Ref", "Ref"),
		capture("MultiAlleleVars", build(KindMultiAlleleVars, seq(
			g.ref("SingleAlleleVarSet"),
			plus(seq(suppress(lit(";")), g.ref("SingleAlleleVarSet"))),
		))),
	))

	g.define("MultiVar", build(KindMultiVar, choiceLongest(
		g.ref("SingleAlleleVars"),
		g.ref("MultiAlleleVars"),
	)))

	g.define("SingleVar", choiceLongest(
		build(KindSingleVar, seq(g.ref("RefOne"), g.ref("RawVar"))),
		g.ref("TransLoc"),
	))

	g.define("MultiTranscriptVar", build(KindMultiTranscriptVar, seq(
		g.capRef("Ref", "Ref"),
		suppress(lit("[")),
		g.ref("ExtendedRawVar"),
		star(seq(suppress(lit(";")), g.ref("ExtendedRawVar"))),
		plus(seq(
			suppress(lit(",")),
			g.ref("ExtendedRawVar"),
			star(seq(suppress(lit(";")), g.ref("ExtendedRawVar"))),
		)),
		suppress(lit("]")),
	)))

	g.define("UnkEffectVar", build(KindUnkEffectVar, seq(
		g.capRef("Ref", "Ref"),
		choiceLongest(suppress(lit("(=)")), suppress(lit("?"))),
	)))

	g.define("SplicingVar", build(KindSplicingVar, seq(
		g.capRef("Ref", "Ref"),
		choiceLongest(suppress(lit("spl?")), suppress(lit("(spl?)"))),
	)))

	g.define("NoRNAVar", build(KindNoRNAVar, seq(
		g.capRef("Ref", "Ref"),
		suppress(lit("0")),
		opt(suppress(lit("?"))),
	)))

	g.define("Var", choiceLongest(
		g.ref("SingleVar"),
		g.ref("MultiVar"),
		g.ref("MultiTranscriptVar"),
		g.ref("UnkEffectVar"),
		g.ref("NoRNAVar"),
		g.ref("SplicingVar"),
	))

	return g
}

// capRef is shorthand for capture(name, g.ref(rule)) — the recurring
// pattern of embedding a named production under a particular field
// name at its use site rather than baking the name into the
// production itself.
func (g *grammar) capRef(name, rule string) ruleFunc {
	return capture(name, g.ref(rule))
}

// wrappedPtLoc mirrors the grammar's own double-naming of a bare point
// location: the outer field name (StartLoc, or PtLoc's own enclosing
// field elsewhere) wraps a child explicitly named "PtLoc" holding the
// actual point-location composite. Both names are mandated verbatim by
// the AST contract wherever a PtLoc appears this way.
func (g *grammar) wrappedPtLoc(outerName string) ruleFunc {
	return capture(outerName, build(KindLoc, capture("PtLoc", g.ref("PtLoc"))))
}

// accessionLettersThenDigits matches an accession's letter/underscore
// prefix immediately followed by its digit suffix, combined into one
// token (e.g. "NM_002001", "AB026906") — the pyparsing source's
// Combine(Word(alphas+"_") + Number).
func accessionLettersThenDigits(p *parser, pos int) (*Node, int, bool) {
	start := pos
	_, mid, ok := accessionLettersRule(p, pos)
	if !ok {
		return nil, pos, false
	}
	_, end, ok := numberRule(p, mid)
	if !ok {
		return nil, pos, false
	}
	return &Node{Kind: KindLeaf, Text: p.input[start:end]}, end, true
}

// refTypeRule matches one of c/g/m/n/r followed by a suppressed ".".
// Returned as a bare leaf (Kind, Text only) since RefType carries
// nothing but its letter; the use site attaches the capture name.
func refTypeRule(p *parser, pos int) (*Node, int, bool) {
	c, end, ok := charIn("cgmnr")(p, pos)
	if !ok {
		return nil, pos, false
	}
	_, end2, ok := lit(".")(p, end)
	if !ok {
		return nil, pos, false
	}
	return &Node{Kind: KindRefType, Text: c.Text}, end2, true
}
