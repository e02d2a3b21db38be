package aql

import (
	"github.com/alecthomas/participle/v2/lexer"
)

// aqlLexer tokenizes AQL source. Rule order matters: longer/more specific
// patterns are tried first so e.g. "->" is not split into "-" and ">".
var aqlLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Whitespace", Pattern: `\s+`},
	{Name: "Regex", Pattern: `/(?:\\.|[^/\\])*/`},
	{Name: "String", Pattern: `"(?:\\.|[^"\\])*"`},
	{Name: "NearOp", Pattern: `\^\d*,?\d*`},
	{Name: "PrecedenceOp", Pattern: `\.\*|\.\d*,?\d*`},
	{Name: "PointingOp", Pattern: `->`},
	{Name: "DominanceOp", Pattern: `>@?\*?`},
	{Name: "Overlap", Pattern: `_o_`},
	{Name: "Inclusion", Pattern: `_i_`},
	{Name: "IdenticalCov", Pattern: `_=_`},
	{Name: "LeftAlign", Pattern: `_l_`},
	{Name: "RightAlign", Pattern: `_r_`},
	{Name: "IdenticalNode", Pattern: `_ident_`},
	{Name: "PartOf", Pattern: `@\*?`},
	{Name: "MetaNS", Pattern: `meta::`},
	{Name: "Int", Pattern: `\d+`},
	{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_]*`},
	{Name: "Punct", Pattern: `[():#?!&|=,:]`},
	{Name: "EOF", Pattern: `$`},
})

// Expr is the top-level boolean expression: a disjunction of conjunctions.
type Expr struct {
	Pos lexer.Position

	Or []*AndExpr `parser:"@@ ('|' @@)*"`
}

// AndExpr is one conjunction: a list of terms joined by '&'.
type AndExpr struct {
	Pos lexer.Position

	Terms []*Term `parser:"@@ ('&' @@)*"`
}

// Term is either a parenthesized sub-expression or a literal.
type Term struct {
	Pos lexer.Position

	Sub     *Expr    `parser:"( '(' @@ ')'"`
	Literal *Literal `parser:"| @@ )"`
}

// Literal is a node-search literal, a binary operator literal, or a unary
// operator literal, distinguished at semantic-check time by shape.
type Literal struct {
	Pos lexer.Position

	Negated bool `parser:"@'!'?"`

	// Node search: tok | node | ns:name(=value|=/regex/)? #var? ?
	NodeSearch *NodeSearch `parser:"( @@"`
	// Binary operator between two node references: #a OP #b
	BinaryOp *BinaryOpLiteral `parser:" | @@"`
	// Unary operator on one node reference: #a :arity=min,max
	UnaryOp *UnaryOpLiteral `parser:" | @@ )"`
}

// NodeSearch describes a single node predicate literal.
type NodeSearch struct {
	Pos lexer.Position

	IsMeta    bool   `parser:"@MetaNS?"`
	Namespace string `parser:"( @Ident ':' )?"`
	Name      string `parser:"@Ident"`
	Value     string `parser:"( '=' ( @String | @Regex ) )?"`
	IsRegex   bool
	Variable  string `parser:"( '#' @Ident )?"`
	Optional  bool   `parser:"@'?'?"`
}

// BinaryOpLiteral joins two node references (by variable name or positional
// index recorded elsewhere) with a relational operator, optionally
// restricted by an edge-annotation filter.
type BinaryOpLiteral struct {
	Pos lexer.Position

	LHS string `parser:"'#' @Ident"`

	Precedence    string `parser:"( @PrecedenceOp"`
	Near          string `parser:" | @NearOp"`
	Dominance     string `parser:" | @DominanceOp"`
	Pointing      string `parser:" | @PointingOp"`
	Overlap       bool   `parser:" | @Overlap"`
	Inclusion     bool   `parser:" | @Inclusion"`
	IdenticalCov  bool   `parser:" | @IdenticalCov"`
	LeftAlign     bool   `parser:" | @LeftAlign"`
	RightAlign    bool   `parser:" | @RightAlign"`
	IdenticalNode bool   `parser:" | @IdenticalNode"`
	PartOf        string `parser:" | @PartOf )"`

	Layer string `parser:"@Ident?"`

	EdgeAnnoNS    string `parser:"( '_' @Ident? ':' )?"`
	EdgeAnnoName  string `parser:"@Ident?"`
	EdgeAnnoValue string `parser:"( '=' ( @String | @Regex ) )?"`

	RHS string `parser:"'#' @Ident"`
}

// UnaryOpLiteral is a postfix constraint on a single node reference, e.g.
// #x:arity=1,3.
type UnaryOpLiteral struct {
	Pos lexer.Position

	Node string `parser:"'#' @Ident ':'"`
	Name string `parser:"@Ident"`
	Min  int    `parser:"'=' @Int"`
	Max  int    `parser:"( ',' @Int )?"`
}
