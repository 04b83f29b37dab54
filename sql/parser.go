package sql

import (
	"strconv"
	"strings"
)

// Parser turns statement text into a tagged Statement. It is deliberately
// permissive: the front end emits a small, fixed family of statement shapes,
// and anything outside that family degrades to an empty match rather than a
// parse error. The verb is decided by keyword presence anywhere in the text,
// in priority order SELECT, INSERT, UPDATE, DELETE; a statement mentioning
// two verbs classifies as the first one in that order.
type Parser struct {
	tokens []Token
}

func NewParser(sql string) *Parser {
	return &Parser{tokens: tokenize(sql)}
}

// Parse never fails; unrecognized text yields NoopStatement.
func (parser *Parser) Parse() Statement {
	switch parser.classify() {
	case Select:
		return parser.parseSelect()
	case Insert:
		return parser.parseInsert()
	case Update:
		return parser.parseUpdate()
	case Delete:
		return parser.parseDelete()
	default:
		return NoopStatement{}
	}
}

func (parser *Parser) classify() TokenType {
	for _, verb := range []TokenType{Select, Insert, Update, Delete} {
		if parser.contains(verb) {
			return verb
		}
	}
	return Unknown
}

func (parser *Parser) contains(tokenType TokenType) bool {
	for _, token := range parser.tokens {
		if token.Type == tokenType {
			return true
		}
	}
	return false
}

func (parser *Parser) indexOf(tokenType TokenType) int {
	for i, token := range parser.tokens {
		if token.Type == tokenType {
			return i
		}
	}
	return -1
}

// resolveTable finds the target collection: the identifier after FROM, then
// after INTO, then after UPDATE. Missing all three resolves to the empty
// name, which the store treats as a vacuous collection.
func (parser *Parser) resolveTable() string {
	for _, keyword := range []TokenType{From, Into, Update} {
		if i := parser.indexOf(keyword); i >= 0 && i+1 < len(parser.tokens) {
			if next := parser.tokens[i+1]; next.Type == Identifier {
				return next.Value
			}
		}
	}
	return ""
}

func (parser *Parser) parseSelect() Statement {
	statement := SelectStatement{Table: parser.resolveTable()}

	for i, token := range parser.tokens {
		if token.Type == Join && i+1 < len(parser.tokens) && parser.tokens[i+1].Type == Identifier {
			statement.Joins = append(statement.Joins, parser.tokens[i+1].Value)
		}
	}

	statement.Aggregate = parser.parseAggregate()
	statement.Where = parser.parseWhere()
	statement.OrderBy = parser.parseOrderBy()
	statement.Limit = parser.parseLimit()

	return statement
}

func (parser *Parser) parseAggregate() *AggregateExpr {
	for i, token := range parser.tokens {
		var function string
		switch token.Type {
		case Sum:
			function = "SUM"
		case Count:
			function = "COUNT"
		case Avg:
			function = "AVG"
		default:
			continue
		}

		if i+1 >= len(parser.tokens) || parser.tokens[i+1].Type != ParenOpen {
			continue
		}

		aggregate := &AggregateExpr{Function: function}
		if i+2 < len(parser.tokens) {
			switch arg := parser.tokens[i+2]; arg.Type {
			case Wildcard:
				aggregate.Star = true
			case Identifier:
				aggregate.Column = baseColumn(arg.Value)
			}
		}
		return aggregate
	}
	return nil
}

// parseWhere collects the recognizable single-field conditions between WHERE
// and the tail clauses. Conjunctions are recorded in order but never
// combined; the engine applies at most one of them.
func (parser *Parser) parseWhere() WhereClause {
	start := parser.indexOf(Where)
	if start < 0 {
		return WhereClause{}
	}

	var clause WhereClause
	pendingField := ""
	pendingDate := false

	i := start + 1
	for i < len(parser.tokens) {
		token := parser.tokens[i]

		switch token.Type {
		case Order, Limit, EOF:
			return clause

		case DateFunc:
			// DATE(field)
			if i+3 < len(parser.tokens) &&
				parser.tokens[i+1].Type == ParenOpen &&
				parser.tokens[i+2].Type == Identifier &&
				parser.tokens[i+3].Type == ParenClose {
				pendingField = baseColumn(parser.tokens[i+2].Value)
				pendingDate = true
				i += 4
				continue
			}
			i++

		case Identifier:
			pendingField = baseColumn(token.Value)
			pendingDate = false
			i++

		case Equals:
			if pendingField != "" && i+1 < len(parser.tokens) {
				condition := Condition{Field: pendingField, Op: OpEquals, DateOf: pendingDate}
				switch value := parser.tokens[i+1]; value.Type {
				case Placeholder:
					condition.Placeholder = true
				case Int, Float, String, Identifier:
					condition.Literal = value.Value
				}
				clause.Conditions = append(clause.Conditions, condition)
				pendingField = ""
				pendingDate = false
				i += 2
				continue
			}
			i++

		case In:
			if pendingField != "" {
				clause.Conditions = append(clause.Conditions, Condition{Field: pendingField, Op: OpIn})
				pendingField = ""
				pendingDate = false
			}
			// Skip the value list.
			for i < len(parser.tokens) && parser.tokens[i].Type != ParenClose && parser.tokens[i].Type != EOF {
				i++
			}
			i++

		default:
			i++
		}
	}

	return clause
}

func (parser *Parser) parseOrderBy() *OrderByClause {
	for i, token := range parser.tokens {
		if token.Type != Order {
			continue
		}
		if i+2 >= len(parser.tokens) || parser.tokens[i+1].Type != By || parser.tokens[i+2].Type != Identifier {
			return nil
		}

		clause := &OrderByClause{Column: baseColumn(parser.tokens[i+2].Value)}
		if i+3 < len(parser.tokens) && parser.tokens[i+3].Type == Desc {
			clause.Descending = true
		}
		return clause
	}
	return nil
}

func (parser *Parser) parseLimit() int {
	i := parser.indexOf(Limit)
	if i < 0 || i+1 >= len(parser.tokens) || parser.tokens[i+1].Type != Int {
		return 0
	}

	n, err := strconv.Atoi(parser.tokens[i+1].Value)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func (parser *Parser) parseInsert() Statement {
	statement := InsertStatement{Table: parser.resolveTable()}

	// Column names come from the first parenthesized list. The VALUES list
	// holds placeholders and is ignored; values arrive as parameters.
	open := parser.indexOf(ParenOpen)
	if open < 0 {
		return statement
	}

	for i := open + 1; i < len(parser.tokens); i++ {
		token := parser.tokens[i]
		if token.Type == ParenClose || token.Type == EOF {
			break
		}
		if token.Type == Comma {
			continue
		}
		if token.Value != "" && token.Type != ParenOpen {
			statement.Columns = append(statement.Columns, token.Value)
		}
	}

	return statement
}

func (parser *Parser) parseUpdate() Statement {
	statement := UpdateStatement{Table: parser.resolveTable()}

	setIndex := parser.indexOf(Set)
	if setIndex >= 0 {
		// First token of each comma-separated assignment is the column.
		expectColumn := true
		for i := setIndex + 1; i < len(parser.tokens); i++ {
			token := parser.tokens[i]
			if token.Type == Where || token.Type == EOF {
				break
			}
			if token.Type == Comma {
				expectColumn = true
				continue
			}
			if expectColumn && token.Value != "" && token.Type != Placeholder {
				statement.Columns = append(statement.Columns, token.Value)
				expectColumn = false
			}
		}
	}

	for _, token := range parser.tokens {
		if strings.EqualFold(token.Value, "closed_at") {
			statement.TouchClosedAt = true
			break
		}
	}

	statement.Where = parser.parseWhere()
	return statement
}

func (parser *Parser) parseDelete() Statement {
	return DeleteStatement{
		Table: parser.resolveTable(),
		Where: parser.parseWhere(),
	}
}

// baseColumn strips a table or alias prefix: "o.status" resolves to
// "status". Records are stored with bare field names.
func baseColumn(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[i+1:]
	}
	return name
}
