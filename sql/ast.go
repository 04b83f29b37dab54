package sql

type StatementType int

const (
	SelectStatementType StatementType = iota
	InsertStatementType
	UpdateStatementType
	DeleteStatementType
	NoopStatementType
)

type Statement interface {
	Type() StatementType
}

// SelectStatement captures everything the read pipeline needs: the target
// collection, join hints, the recognized WHERE conditions, ordering, limit,
// and an optional aggregate.
type SelectStatement struct {
	Table     string
	Joins     []string
	Where     WhereClause
	OrderBy   *OrderByClause
	Limit     int
	Aggregate *AggregateExpr
}

// InsertStatement carries the target collection and the declared column
// list; values arrive as positional parameters.
type InsertStatement struct {
	Table   string
	Columns []string
}

// UpdateStatement carries the SET column list in declaration order. The
// parameters for those columns come first; the last parameter is reserved
// for the WHERE predicate. TouchClosedAt is set when the statement mentions
// closed_at anywhere, matching the caller contract for closing orders.
type UpdateStatement struct {
	Table         string
	Columns       []string
	Where         WhereClause
	TouchClosedAt bool
}

type DeleteStatement struct {
	Table string
	Where WhereClause
}

// NoopStatement is produced for text that contains none of the four verbs.
// Executing it yields an empty result, never an error.
type NoopStatement struct{}

func (s SelectStatement) Type() StatementType { return SelectStatementType }
func (s InsertStatement) Type() StatementType { return InsertStatementType }
func (s UpdateStatement) Type() StatementType { return UpdateStatementType }
func (s DeleteStatement) Type() StatementType { return DeleteStatementType }
func (s NoopStatement) Type() StatementType   { return NoopStatementType }

type ConditionOp int

const (
	OpEquals ConditionOp = iota
	OpIn
	OpOther
)

// Condition is one recognized WHERE term. Only single-field shapes are
// represented; the engine picks at most one condition per statement.
type Condition struct {
	Field       string
	Op          ConditionOp
	DateOf      bool   // condition compares DATE(Field)
	Literal     string // literal right-hand side, when not a placeholder
	Placeholder bool   // right-hand side was a ? parameter
}

type WhereClause struct {
	Conditions []Condition
}

func (w WhereClause) Empty() bool {
	return len(w.Conditions) == 0
}

// Find returns the first condition on the given field, or nil.
func (w WhereClause) Find(field string) *Condition {
	for i := range w.Conditions {
		if w.Conditions[i].Field == field {
			return &w.Conditions[i]
		}
	}
	return nil
}

// Equalities returns the equality conditions in textual order.
func (w WhereClause) Equalities() []Condition {
	var out []Condition
	for _, c := range w.Conditions {
		if c.Op == OpEquals {
			out = append(out, c)
		}
	}
	return out
}

type OrderByClause struct {
	Column     string
	Descending bool
}

type AggregateExpr struct {
	Function string // COUNT, SUM or AVG
	Column   string
	Star     bool // COUNT(*)
}

// HasJoin reports whether the statement carries a join hint on the named
// collection.
func (s SelectStatement) HasJoin(table string) bool {
	for _, j := range s.Joins {
		if j == table {
			return true
		}
	}
	return false
}
