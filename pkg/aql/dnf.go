package aql

import "fmt"

// RawConjunction is one conjunction of literals after DNF distribution but
// before variable resolution (which pkg/query/conjunction performs).
type RawConjunction struct {
	Literals []*Literal
}

// Disjunction is the normalized (distributed) boolean form of a parsed AQL
// query: a disjunction of conjunctions, each a flat list of literals.
type Disjunction struct {
	Alternatives []RawConjunction
}

// Normalize distributes Or over And following standard boolean-algebra
// identities, so a top-level And becomes one conjunction, a top-level Or
// becomes a disjunction of its normalized children, and a single terminal
// becomes a singleton conjunction.
func Normalize(expr *Expr) (*Disjunction, error) {
	if len(expr.Or) == 0 {
		return nil, &SemanticError{Desc: "empty expression"}
	}

	var alternatives []RawConjunction
	for _, and := range expr.Or {
		conjs, err := normalizeAnd(and)
		if err != nil {
			return nil, err
		}
		alternatives = append(alternatives, conjs...)
	}
	return &Disjunction{Alternatives: alternatives}, nil
}

// normalizeAnd returns every conjunction resulting from distributing any
// nested Or sub-expressions in and's terms.
func normalizeAnd(and *AndExpr) ([]RawConjunction, error) {
	product := []RawConjunction{{}}

	for _, term := range and.Terms {
		var termAlternatives []RawConjunction

		switch {
		case term.Sub != nil:
			sub, err := Normalize(term.Sub)
			if err != nil {
				return nil, err
			}
			termAlternatives = sub.Alternatives
		case term.Literal != nil:
			termAlternatives = []RawConjunction{{Literals: []*Literal{term.Literal}}}
		default:
			return nil, &SemanticError{Desc: "empty term"}
		}

		product = crossProduct(product, termAlternatives)
	}
	return product, nil
}

func crossProduct(a, b []RawConjunction) []RawConjunction {
	out := make([]RawConjunction, 0, len(a)*len(b))
	for _, ca := range a {
		for _, cb := range b {
			merged := RawConjunction{
				Literals: append(append([]*Literal{}, ca.Literals...), cb.Literals...),
			}
			out = append(out, merged)
		}
	}
	return out
}

// String renders a conjunction back to AQL-like text, used as the planner
// cache key's canonical form.
func (c RawConjunction) String() string {
	s := ""
	for i, lit := range c.Literals {
		if i > 0 {
			s += " & "
		}
		s += fmt.Sprintf("%+v", lit)
	}
	return s
}
