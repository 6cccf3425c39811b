package hgvs

// Message is one entry in a SyntaxCheckResult, mirroring the
// {errorcode, message} shape the nomenclature's checkSyntax operation
// reports back to callers.
type Message struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// SyntaxCheckResult is the result of CheckSyntax: whether the variant
// argument parsed, plus any diagnostic messages accumulated along the
// way. A result with Valid == false always carries at least one
// Message explaining why.
type SyntaxCheckResult struct {
	Valid    bool
	Messages []Message
	Tree     *Node
}

// CheckSyntax implements the checkSyntax operation: it never panics
// and never exits the process on a malformed variant, unlike a direct
// command-line run of the grammar's reference parser. An empty
// argument is an EARG caller error, distinct from EPARSE ("the
// variant does not match the grammar").
func CheckSyntax(variant string) *SyntaxCheckResult {
	if variant == "" {
		return &SyntaxCheckResult{
			Valid: false,
			Messages: []Message{{
				Code:        "EARG",
				Description: "The variant argument is not provided.",
			}},
		}
	}

	tree, failure := Parse(variant)
	if failure != nil {
		return &SyntaxCheckResult{
			Valid: false,
			Messages: []Message{{
				Code:        "EPARSE",
				Description: failure.Message,
			}},
		}
	}

	return &SyntaxCheckResult{Valid: true, Tree: tree}
}
