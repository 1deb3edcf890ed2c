package search

// ExprType discriminates the nodes of a predicate expression.
type ExprType string

const (
	ExprTerm ExprType = "term" // single indexed term
	ExprAnd  ExprType = "and"  // intersection of children
	ExprOr   ExprType = "or"   // union of children
	ExprNot  ExprType = "not"  // complement of the single child
)

// TermKind identifies which inverted index a term consults.
type TermKind string

const (
	TermElement    TermKind = "dataElement"
	TermCategory   TermKind = "category"
	TermObligation TermKind = "obligation"
)

// Expr is a node of a boolean predicate expression over the search indices.
type Expr struct {
	Type     ExprType
	Term     TermKind // for ExprTerm
	Arg      string   // for ExprTerm
	Children []*Expr  // for ExprAnd / ExprOr / ExprNot
}

// Element returns a dataElement(id) term.
func Element(id string) *Expr {
	return &Expr{Type: ExprTerm, Term: TermElement, Arg: id}
}

// Category returns a category(tag) term.
func Category(tag string) *Expr {
	return &Expr{Type: ExprTerm, Term: TermCategory, Arg: tag}
}

// Obligation returns an obligation(level) term.
func Obligation(level string) *Expr {
	return &Expr{Type: ExprTerm, Term: TermObligation, Arg: level}
}

// And returns the conjunction of the given expressions.
func And(children ...*Expr) *Expr {
	return &Expr{Type: ExprAnd, Children: children}
}

// Or returns the disjunction of the given expressions.
func Or(children ...*Expr) *Expr {
	return &Expr{Type: ExprOr, Children: children}
}

// Not returns the complement of the given expression.
func Not(child *Expr) *Expr {
	return &Expr{Type: ExprNot, Children: []*Expr{child}}
}

// terms appends every term node under e to out, in syntax order.
func (e *Expr) terms(out []*Expr) []*Expr {
	if e == nil {
		return out
	}
	if e.Type == ExprTerm {
		return append(out, e)
	}
	for _, c := range e.Children {
		out = c.terms(out)
	}
	return out
}
