package db

import (
	"fmt"
	"time"

	"github.com/jmolero/ComandaDB/core"
	"github.com/jmolero/ComandaDB/sql"
)

// filter applies at most one WHERE condition, chosen from a fixed priority
// list. The first positional parameter carries the comparison value; literal
// conditions (available = 1, active = 1, the status IN set) need none.
func (engine *Engine) filter(where sql.WhereClause, records []core.Record, params []any) ([]core.Record, error) {
	if where.Empty() {
		return records, nil
	}

	param := firstParam(params)

	for _, field := range []string{"pin", "table_id", "order_id", "id"} {
		if condition := where.Find(field); condition != nil && condition.Op == sql.OpEquals && !condition.DateOf {
			return filterEquals(records, field, param), nil
		}
	}

	if condition := where.Find("status"); condition != nil {
		if condition.Op == sql.OpIn {
			return filterStatusSet(records), nil
		}
		return filterEquals(records, "status", param), nil
	}

	if condition := where.Find("available"); condition != nil && condition.Literal == "1" {
		return filterEquals(records, "available", float64(1)), nil
	}
	if condition := where.Find("active"); condition != nil && condition.Literal == "1" {
		return filterEquals(records, "active", float64(1)), nil
	}

	if condition := where.Find("category_id"); condition != nil && condition.Op == sql.OpEquals {
		return filterEquals(records, "category_id", param), nil
	}

	if condition := where.Find("created_at"); condition != nil && condition.DateOf {
		return engine.filterByDate(records, param)
	}

	return records, nil
}

func filterEquals(records []core.Record, field string, value any) []core.Record {
	var out []core.Record
	for _, record := range records {
		if core.ValuesEqual(record[field], value) {
			out = append(out, record)
		}
	}
	return out
}

// filterStatusSet keeps in-progress orders. The set is fixed; the values
// inside the IN list are not consulted.
func filterStatusSet(records []core.Record) []core.Record {
	var out []core.Record
	for _, record := range records {
		status, _ := record["status"].(string)
		for _, wanted := range core.InProgressOrderStatuses {
			if status == wanted {
				out = append(out, record)
				break
			}
		}
	}
	return out
}

// filterByDate keeps records whose created_at date equals the parameter or
// today. A record without a parseable created_at fails the whole query.
func (engine *Engine) filterByDate(records []core.Record, param any) ([]core.Record, error) {
	today := core.DateOf(engine.now())
	wanted, _ := param.(string)

	var out []core.Record
	for _, record := range records {
		raw, _ := record["created_at"].(string)
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return nil, fmt.Errorf("invalid created_at value %q", record["created_at"])
		}

		date := core.DateOf(t)
		if date == wanted || date == today {
			out = append(out, record)
		}
	}
	return out, nil
}

// mutationPredicate builds the row matcher for UPDATE and DELETE. The last
// positional parameter is reserved for the predicate value. Only a WHERE
// clause that is a single plain equality addresses individual rows; no
// clause at all matches every row, and anything more elaborate matches
// none.
func mutationPredicate(where sql.WhereClause, params []any) func(core.Record) bool {
	if where.Empty() {
		return func(core.Record) bool { return true }
	}

	equalities := where.Equalities()
	if len(equalities) != 1 || len(where.Conditions) != 1 || equalities[0].DateOf {
		if len(equalities) == 0 || len(equalities) > 1 {
			return func(core.Record) bool { return true }
		}
		return func(core.Record) bool { return false }
	}

	field := equalities[0].Field
	value := lastParam(params)

	return func(record core.Record) bool {
		return core.ValuesEqual(record[field], value)
	}
}

func firstParam(params []any) any {
	if len(params) == 0 {
		return nil
	}
	return params[0]
}

func lastParam(params []any) any {
	if len(params) == 0 {
		return nil
	}
	return params[len(params)-1]
}
