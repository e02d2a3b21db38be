package aql

import (
	"errors"
	"fmt"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

var parser = participle.MustBuild[Expr](
	participle.Lexer(aqlLexer),
	participle.Elide("Whitespace"),
	participle.UseLookahead(2),
)

// Range is a line/column span used by both syntax and semantic errors for
// diagnostics.
type Range struct {
	StartLine, StartColumn int
	EndLine, EndColumn     int
}

func rangeFromPos(p lexer.Position) Range {
	return Range{StartLine: p.Line, StartColumn: p.Column, EndLine: p.Line, EndColumn: p.Column}
}

// SyntaxError is returned when the AQL source does not parse.
type SyntaxError struct {
	Desc  string
	Range *Range
}

func (e *SyntaxError) Error() string {
	if e.Range != nil {
		return fmt.Sprintf("aql syntax error at %d:%d: %s", e.Range.StartLine, e.Range.StartColumn, e.Desc)
	}
	return fmt.Sprintf("aql syntax error: %s", e.Desc)
}

// SemanticError is returned when a parsed query fails a semantic check:
// unknown variable, unconnected conjunction, disallowed negation shape, or
// legacy meta usage outside quirks mode.
type SemanticError struct {
	Desc  string
	Range *Range
}

func (e *SemanticError) Error() string {
	if e.Range != nil {
		return fmt.Sprintf("aql semantic error at %d:%d: %s", e.Range.StartLine, e.Range.StartColumn, e.Desc)
	}
	return fmt.Sprintf("aql semantic error: %s", e.Desc)
}

// Parse tokenizes and parses an AQL query string into its raw boolean AST.
// Normalization to DNF happens separately in Normalize.
func Parse(query string) (*Expr, error) {
	expr, err := parser.ParseString("", query)
	if err != nil {
		var lerr participle.Error
		if errors.As(err, &lerr) {
			r := rangeFromPos(lerr.Position())
			return nil, &SyntaxError{Desc: lerr.Message(), Range: &r}
		}
		return nil, &SyntaxError{Desc: err.Error()}
	}
	return expr, nil
}
