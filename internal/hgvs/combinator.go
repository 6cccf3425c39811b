package hgvs

import "strings"

// ruleFunc is a parse function: given input position pos, it reports
// the node it produced (nil if the production emits nothing, e.g. a
// suppressed literal), the position just past the match, and whether
// it matched at all. On failure it MUST return (nil, pos, false) —
// the original position, never an advanced one.
type ruleFunc func(p *parser, pos int) (*Node, int, bool)

// kindSplice marks an internal node whose Children should be spliced
// into the surrounding sequence/repetition rather than kept as one
// nested node. seq/star/plus use it to build flat child lists for
// productions like "ExtendedRawVar (';' ExtendedRawVar)*" without an
// extra wrapper level. A grammar.define'd production built from a bare
// seq (RawVar, Nest, AccNo, ...) does return a splice node, but the
// enclosing seq/star/plus/build flattens it, so it never reaches the
// finished tree.
const kindSplice Kind = "__splice__"

func spliceChildren(n *Node) []*Node {
	if n == nil {
		return nil
	}
	if n.Kind == kindSplice {
		return n.Children
	}
	return []*Node{n}
}

// memoKey identifies one packrat cache entry: a named production at a
// given input position. Only grammar.define'd productions are keyed
// this way; ad-hoc combinators (seq, choice, ...) are cheap enough
// structural glue that memoizing them individually buys nothing.
type memoKey struct {
	rule string
	pos  int
}

type memoEntry struct {
	node *Node
	end  int
	ok   bool
}

// parser holds the per-call state: the input being parsed and its
// packrat memo table. A parser is created fresh for every top-level
// Parse call and discarded on return — no state leaks between calls.
type parser struct {
	input string
	memo  map[memoKey]memoEntry
}

func newParserState(input string) *parser {
	return &parser{input: input, memo: make(map[memoKey]memoEntry)}
}

// grammar is a named-rule registry. Productions are registered with
// define and consumed with ref, which resolves by name at parse time
// rather than at grammar-build time — this is what lets mutually
// recursive productions (Nest -> SimpleAlleleVarSet -> ... -> Nest)
// refer to each other regardless of registration order.
type grammar struct {
	rules map[string]ruleFunc
}

func newGrammar() *grammar {
	return &grammar{rules: make(map[string]ruleFunc)}
}

func (g *grammar) define(name string, r ruleFunc) {
	g.rules[name] = r
}

// ref returns a rule that looks up and memoizes the named production.
// Panics if the grammar is asked to parse before the production is
// defined — a programming error, not a user-facing parse failure.
func (g *grammar) ref(name string) ruleFunc {
	return func(p *parser, pos int) (*Node, int, bool) {
		key := memoKey{name, pos}
		if e, ok := p.memo[key]; ok {
			return e.node, e.end, e.ok
		}
		r, defined := g.rules[name]
		if !defined {
			panic("hgvs: grammar rule not defined: " + name)
		}
		node, end, ok := r(p, pos)
		p.memo[key] = memoEntry{node: node, end: end, ok: ok}
		return node, end, ok
	}
}

// seq matches every part in order, failing (and rewinding to pos) if
// any part fails. The children of every matched part are spliced into
// one flat list.
func seq(parts ...ruleFunc) ruleFunc {
	return func(p *parser, pos int) (*Node, int, bool) {
		cur := pos
		var kids []*Node
		for _, part := range parts {
			node, end, ok := part(p, cur)
			if !ok {
				return nil, pos, false
			}
			kids = append(kids, spliceChildren(node)...)
			cur = end
		}
		return &Node{Kind: kindSplice, Children: kids}, cur, true
	}
}

// choiceFirst is ordered choice: the first alternative that matches
// wins, regardless of how much input later alternatives would
// consume. Use only where the grammar's productions are prefix-
// disjoint; HGVS's pervasively overlapping productions mostly need
// choiceLongest instead.
func choiceFirst(alts ...ruleFunc) ruleFunc {
	return func(p *parser, pos int) (*Node, int, bool) {
		for _, a := range alts {
			if node, end, ok := a(p, pos); ok {
				return node, end, true
			}
		}
		return nil, pos, false
	}
}

// choiceLongest is the `^` operator from the grammar source: every
// alternative is tried, and the one consuming the most input wins.
// Ties break in favor of the earlier alternative, since later
// alternatives only replace the current best on strictly greater end
// position.
func choiceLongest(alts ...ruleFunc) ruleFunc {
	return func(p *parser, pos int) (*Node, int, bool) {
		found := false
		var bestNode *Node
		bestEnd := pos
		for _, a := range alts {
			node, end, ok := a(p, pos)
			if !ok {
				continue
			}
			if !found || end > bestEnd {
				found = true
				bestNode = node
				bestEnd = end
			}
		}
		if !found {
			return nil, pos, false
		}
		return bestNode, bestEnd, true
	}
}

// opt makes r optional: a failed match succeeds anyway, consuming
// nothing and emitting nothing.
func opt(r ruleFunc) ruleFunc {
	return func(p *parser, pos int) (*Node, int, bool) {
		node, end, ok := r(p, pos)
		if !ok {
			return nil, pos, true
		}
		return node, end, true
	}
}

// star matches r zero or more times, greedily. A zero-width match
// stops the loop rather than looping forever.
func star(r ruleFunc) ruleFunc {
	return func(p *parser, pos int) (*Node, int, bool) {
		cur := pos
		var kids []*Node
		for {
			node, end, ok := r(p, cur)
			if !ok || end == cur {
				break
			}
			kids = append(kids, spliceChildren(node)...)
			cur = end
		}
		return &Node{Kind: kindSplice, Children: kids}, cur, true
	}
}

// plus matches r one or more times, greedily.
func plus(r ruleFunc) ruleFunc {
	return func(p *parser, pos int) (*Node, int, bool) {
		node, end, ok := r(p, pos)
		if !ok {
			return nil, pos, false
		}
		kids := spliceChildren(node)
		cur := end
		for {
			n2, e2, ok2 := r(p, cur)
			if !ok2 || e2 == cur {
				break
			}
			kids = append(kids, spliceChildren(n2)...)
			cur = e2
		}
		return &Node{Kind: kindSplice, Children: kids}, cur, true
	}
}

// suppress matches r but discards its node: the input is consumed,
// nothing is emitted into the tree.
func suppress(r ruleFunc) ruleFunc {
	return func(p *parser, pos int) (*Node, int, bool) {
		_, end, ok := r(p, pos)
		if !ok {
			return nil, pos, false
		}
		return nil, end, true
	}
}

// capture attaches name to the node r produces. If r fails, capture
// fails. A nil node (suppressed content) stays nil — naming nothing
// names nothing.
func capture(name string, r ruleFunc) ruleFunc {
	return func(p *parser, pos int) (*Node, int, bool) {
		node, end, ok := r(p, pos)
		if !ok {
			return nil, pos, false
		}
		return withName(node, name), end, true
	}
}

// build runs r and wraps whatever it produced as the Children of one
// new node of the given Kind. This is the grouping operator: it turns
// a flat splice of matched parts into a single named sub-tree (the
// pyparsing source's Group(...)).
func build(kind Kind, r ruleFunc) ruleFunc {
	return func(p *parser, pos int) (*Node, int, bool) {
		node, end, ok := r(p, pos)
		if !ok {
			return nil, pos, false
		}
		return &Node{Kind: kind, Children: spliceChildren(node)}, end, true
	}
}

// lit matches exact literal text and emits a leaf carrying it.
func lit(text string) ruleFunc {
	return func(p *parser, pos int) (*Node, int, bool) {
		if pos+len(text) > len(p.input) {
			return nil, pos, false
		}
		if p.input[pos:pos+len(text)] != text {
			return nil, pos, false
		}
		return &Node{Kind: KindLeaf, Text: text}, pos + len(text), true
	}
}

// litAs matches exact literal text but rewrites the emitted leaf's
// text to canonical. Used for `>` -> "subst" and Indel's `ins` ->
// "delins".
func litAs(text, canonical string) ruleFunc {
	return func(p *parser, pos int) (*Node, int, bool) {
		if pos+len(text) > len(p.input) {
			return nil, pos, false
		}
		if p.input[pos:pos+len(text)] != text {
			return nil, pos, false
		}
		return &Node{Kind: KindLeaf, Text: canonical}, pos + len(text), true
	}
}

// paren matches "(" r ")" and yields r's own node unchanged (not a
// splice wrapper around it). Use this instead of
// seq(suppress(lit("(")), r, suppress(lit(")"))) whenever the
// parenthesized alternative sits directly under capture/choiceLongest
// without an enclosing seq/build to flatten the wrapper away —
// otherwise the same production would shape its result differently
// depending on which alternative matched.
func paren(r ruleFunc) ruleFunc {
	return func(p *parser, pos int) (*Node, int, bool) {
		_, mid, ok := lit("(")(p, pos)
		if !ok {
			return nil, pos, false
		}
		node, end, ok := r(p, mid)
		if !ok {
			return nil, pos, false
		}
		_, end2, ok := lit(")")(p, end)
		if !ok {
			return nil, pos, false
		}
		return node, end2, true
	}
}

// optArgBeforeKeyword is opt(capture(name, r)), except that because
// NtString's IUPAC alphabet happens to include the letters of the
// "ins"/"inv" keywords (i, n, s, v are all valid ambiguity codes), a
// plain greedy optional match can swallow the keyword that must
// follow it (e.g. "del" + Arg1 + "ins" on input "delinsTTT" would
// otherwise let Arg1 eat "insTTT" whole, leaving nothing for the
// mandatory "ins"). r is assumed to produce a single leaf-shaped node
// (NtString or Number) whose Text is exactly input[pos:end], so any
// prefix of a successful match is itself a valid shorter match; this
// backs off character by character until what follows is literally
// keyword, and treats the argument as absent if even a zero-length
// match is needed to make room for it.
func optArgBeforeKeyword(name string, r ruleFunc, keyword string) ruleFunc {
	return func(p *parser, pos int) (*Node, int, bool) {
		node, end, ok := r(p, pos)
		if !ok {
			return nil, pos, true
		}
		for e := end; e > pos; e-- {
			if strings.HasPrefix(p.input[e:], keyword) {
				cp := node.clone()
				cp.Text = p.input[pos:e]
				return withName(cp, name), e, true
			}
		}
		return nil, pos, true
	}
}

// charIn matches exactly one character from set.
func charIn(set string) ruleFunc {
	return func(p *parser, pos int) (*Node, int, bool) {
		if pos >= len(p.input) {
			return nil, pos, false
		}
		c := p.input[pos]
		if strings.IndexByte(set, c) < 0 {
			return nil, pos, false
		}
		return &Node{Kind: KindLeaf, Text: string(c)}, pos + 1, true
	}
}
