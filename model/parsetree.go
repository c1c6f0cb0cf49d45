package model

import (
	"fmt"
	"strings"
)

// IndexTerm is one coordinate of a VarRef (spec §6 glossary COUNTER,
// RANGE): either a literal integer or a reference to an enclosing For
// loop's counter, resolved to a literal by flatten before any graph node
// is built.
type IndexTerm struct {
	Counter string // non-empty selects the named enclosing counter
	Lit     int    // used when Counter == ""
}

// VarRef names a (possibly indexed) node the way the BUGS front end's VAR
// parse-tree node would (spec §6): a bare name for a scalar, or a name
// plus one IndexTerm per dimension for an array element.
type VarRef struct {
	Name    string
	Indices []IndexTerm
}

// key renders the fully-resolved reference as the flat node name used
// throughout the graph ("y", "x[3]", "p[2,1]"). Every IndexTerm must
// already be resolved (Counter == "") — flatten guarantees this before
// key is ever called.
func (v VarRef) key() string {
	if len(v.Indices) == 0 {
		return v.Name
	}
	parts := make([]string, len(v.Indices))
	for i, t := range v.Indices {
		parts[i] = fmt.Sprintf("%d", t.Lit)
	}

	return v.Name + "[" + strings.Join(parts, ",") + "]"
}

// ints returns the resolved integer indices, in declared order.
func (v VarRef) ints() []int {
	out := make([]int, len(v.Indices))
	for i, t := range v.Indices {
		out[i] = t.Lit
	}

	return out
}

// resolve substitutes every Counter-valued IndexTerm with its current
// value in env, returning a VarRef whose Indices are all literals.
func (v VarRef) resolve(env map[string]int) (VarRef, error) {
	out := VarRef{Name: v.Name, Indices: make([]IndexTerm, len(v.Indices))}
	for i, t := range v.Indices {
		if t.Counter == "" {
			out.Indices[i] = t

			continue
		}
		val, ok := env[t.Counter]
		if !ok {
			return VarRef{}, fmt.Errorf("model: VarRef %q: %w: counter %q", v.Name, ErrUnboundCounter, t.Counter)
		}
		out.Indices[i] = IndexTerm{Lit: val}
	}

	return out, nil
}

// Expr is the closed variant of value-producing parse-tree nodes (spec §6
// glossary OPERATOR, FUNCTION, VALUE): a numeric literal, a reference to
// another node, or a named function/operator applied to sub-expressions.
type Expr interface{ isExpr() }

// ConstExpr is a VALUE literal, scalar or vector (e.g. BUGS's c(1,1,1,1)).
type ConstExpr struct{ Value []float64 }

func (ConstExpr) isExpr() {}

// RefExpr is a VAR reference used inside an expression.
type RefExpr struct{ Ref VarRef }

func (RefExpr) isExpr() {}

// CallExpr applies a registered dist.Function by name to Args — OPERATOR
// nodes (+, -, *, /, ^) and FUNCTION nodes (abs, links, ...) are both
// represented this way, since both resolve through the same function
// registry (spec §4.B).
type CallExpr struct {
	Fn   string
	Args []Expr
}

func (CallExpr) isExpr() {}

// resolveExpr walks e, substituting every nested VarRef's counters via
// env, leaving literal/call structure otherwise unchanged.
func resolveExpr(e Expr, env map[string]int) (Expr, error) {
	switch v := e.(type) {
	case ConstExpr:
		return v, nil
	case RefExpr:
		r, err := v.Ref.resolve(env)
		if err != nil {
			return nil, err
		}

		return RefExpr{Ref: r}, nil
	case CallExpr:
		args := make([]Expr, len(v.Args))
		for i, a := range v.Args {
			ra, err := resolveExpr(a, env)
			if err != nil {
				return nil, err
			}
			args[i] = ra
		}

		return CallExpr{Fn: v.Fn, Args: args}, nil
	default:
		return nil, fmt.Errorf("model: resolveExpr: %w: %T", ErrUnknownExprKind, e)
	}
}

// Bounds is a STOCHREL's optional truncation interval; either side may be
// nil for an unbounded side (spec §4.C Stochastic node, §6 glossary
// BOUNDS).
type Bounds struct {
	Lower Expr
	Upper Expr
}

func (b *Bounds) resolve(env map[string]int) (*Bounds, error) {
	if b == nil {
		return nil, nil
	}
	out := &Bounds{}
	if b.Lower != nil {
		l, err := resolveExpr(b.Lower, env)
		if err != nil {
			return nil, err
		}
		out.Lower = l
	}
	if b.Upper != nil {
		u, err := resolveExpr(b.Upper, env)
		if err != nil {
			return nil, err
		}
		out.Upper = u
	}

	return out, nil
}

// Range is a FOR loop's COUNTER bound, a static inclusive integer
// interval (BUGS for-loop bounds that depend on data are outside this
// consuming side's scope; see DESIGN.md).
type Range struct {
	Lower, Upper int
}

// Counter is a FOR loop's induction variable (spec §6 glossary COUNTER).
type Counter struct {
	Name  string
	Range Range
}

// Relation is the closed variant of RELATIONS entries a FOR loop body or
// the top-level model may contain.
type Relation interface{ isRelation() }

// VarDecl is a bare VAR declaration: a name that other relations (or
// supplied data) may reference without itself being computed.
type VarDecl struct {
	Name string
	Dims []int
}

func (VarDecl) isRelation() {}

// DetermRel is a DETRMREL: lhs <- expr.
type DetermRel struct {
	LHS VarRef
	RHS Expr
}

func (DetermRel) isRelation() {}

// StochRel is a STOCHREL: lhs ~ dist(params), with optional truncation.
// Whether lhs is observed is decided at Compile time by whether matching
// data was supplied, not declared here (spec §6 "add data by name", the
// BUGS convention that data presence alone makes a stochastic node
// observed).
type StochRel struct {
	LHS    VarRef
	Dist   string
	Params []Expr
	Bounds *Bounds
}

func (StochRel) isRelation() {}

// LinkRel is a LINK relation: f(lhs) <- expr, meaning lhs <- f⁻¹(expr).
type LinkRel struct {
	LHS VarRef
	Fn  string
	RHS Expr
}

func (LinkRel) isRelation() {}

// For is a FOR loop: Body is expanded once per integer in Counter.Range,
// with every Counter reference inside Body substituted by flatten.
type For struct {
	Counter Counter
	Body    []Relation
}

func (For) isRelation() {}

// ParseTree is the root RELATIONS container a model is built from (spec
// §6 "create model from parse tree"). The lexer/parser producing this
// tree from BUGS-style source text is an external collaborator (spec §1
// "deliberately out of scope"); this package only consumes the resulting
// tree.
type ParseTree struct {
	Relations []Relation
}
