package db

import (
	"sort"
	"time"

	"github.com/jmolero/ComandaDB/core"
	"github.com/jmolero/ComandaDB/ps"
	"github.com/jmolero/ComandaDB/sql"
)

// Engine executes statement text against the store. It is fail-soft: every
// entry point returns a Result envelope, and execution errors surface as
// {success: false, error} rather than a Go error. The front of house keeps
// running when a query goes wrong.
type Engine struct {
	store    *ps.Store
	identity core.Identity
	now      func() time.Time
}

func NewEngine(store *ps.Store, identity core.Identity) *Engine {
	return &Engine{
		store:    store,
		identity: identity,
		now:      time.Now,
	}
}

// Store exposes the underlying store for history and restore operations.
func (engine *Engine) Store() *ps.Store {
	return engine.store
}

// Identity returns the identity recorded on this engine's transactions.
func (engine *Engine) Identity() core.Identity {
	return engine.identity
}

// Query runs a read statement and returns all matching records. Statements
// without a SELECT verb read as an empty collection.
func (engine *Engine) Query(query string, params ...any) Result {
	records, err := engine.selectRecords(query, params)
	if err != nil {
		return Failure(err)
	}
	return Success(records)
}

// Get runs a read statement and returns the first matching record, or null
// when nothing matches.
func (engine *Engine) Get(query string, params ...any) Result {
	records, err := engine.selectRecords(query, params)
	if err != nil {
		return Failure(err)
	}
	if len(records) == 0 {
		return Success(nil)
	}
	return Success(records[0])
}

// Run executes a mutation. Statements without a mutation verb run as a
// no-op and report nothing changed.
func (engine *Engine) Run(query string, params ...any) Result {
	statement := sql.NewParser(query).Parse()

	var exec ExecResult
	var err error

	switch statement := statement.(type) {
	case sql.InsertStatement:
		exec, err = engine.executeInsert(statement, params)
	case sql.UpdateStatement:
		exec, err = engine.executeUpdate(statement, params)
	case sql.DeleteStatement:
		exec, err = engine.executeDelete(statement, params)
	default:
		// SELECT and unknown verbs mutate nothing
	}

	if err != nil {
		return Failure(err)
	}
	return Success(exec)
}

func (engine *Engine) selectRecords(query string, params []any) ([]core.Record, error) {
	statement, ok := sql.NewParser(query).Parse().(sql.SelectStatement)
	if !ok {
		return []core.Record{}, nil
	}
	return engine.executeSelect(statement, params)
}

// executeSelect runs the read pipeline: load, decorate with join lookups,
// filter, order, limit, then aggregate. Aggregation runs after the limit.
func (engine *Engine) executeSelect(statement sql.SelectStatement, params []any) ([]core.Record, error) {
	records, err := engine.store.LoadCollection(statement.Table)
	if err != nil {
		return nil, err
	}

	records, err = engine.decorate(statement, records)
	if err != nil {
		return nil, err
	}

	records, err = engine.filter(statement.Where, records, params)
	if err != nil {
		return nil, err
	}

	engine.order(statement.OrderBy, records)

	if statement.Limit > 0 && len(records) > statement.Limit {
		records = records[:statement.Limit]
	}

	records = engine.aggregate(statement.Aggregate, records)

	if records == nil {
		records = []core.Record{}
	}
	return records, nil
}

func (engine *Engine) order(clause *sql.OrderByClause, records []core.Record) {
	if clause == nil {
		return
	}

	sortRecords(records, clause.Column, clause.Descending)
}

// aggregate folds the surviving records. Only two shapes are produced: a
// running total with count for SUM over order totals, and a bare count.
// Anything else passes the records through untouched.
func (engine *Engine) aggregate(aggregate *sql.AggregateExpr, records []core.Record) []core.Record {
	if aggregate == nil {
		return records
	}

	switch {
	case aggregate.Function == "SUM" && aggregate.Column == "total":
		total := 0.0
		for _, record := range records {
			if v, ok := core.NumericValue(record["total"]); ok {
				total += v
			}
		}
		return []core.Record{{"total": total, "count": float64(len(records))}}

	case aggregate.Function == "COUNT" && aggregate.Star:
		return []core.Record{{"count": float64(len(records))}}

	default:
		return records
	}
}

func (engine *Engine) executeInsert(statement sql.InsertStatement, params []any) (ExecResult, error) {
	var rowid int64

	_, err := engine.store.Mutate(statement.Table, engine.identity, "Inserting record", func(records []core.Record) ([]core.Record, error) {
		newID := nextID(records)

		record := core.Record{}
		for i, column := range statement.Columns {
			if i < len(params) {
				record[column] = params[i]
			}
		}
		record["id"] = newID

		if statement.Table == core.CollectionOrders && isBlank(record["created_at"]) {
			record["created_at"] = core.Timestamp(engine.now())
		}

		rowid = int64(newID)
		return append(records, record), nil
	})
	if err != nil {
		return ExecResult{}, err
	}

	return ExecResult{LastInsertRowid: rowid}, nil
}

func (engine *Engine) executeUpdate(statement sql.UpdateStatement, params []any) (ExecResult, error) {
	updates := core.Record{}
	for i, column := range statement.Columns {
		if i < len(params) {
			updates[column] = params[i]
		}
	}
	if statement.TouchClosedAt {
		updates["closed_at"] = core.Timestamp(engine.now())
	}

	matches := mutationPredicate(statement.Where, params)

	_, err := engine.store.Mutate(statement.Table, engine.identity, "Updating record", func(records []core.Record) ([]core.Record, error) {
		for _, record := range records {
			if !matches(record) {
				continue
			}
			for field, value := range updates {
				record[field] = value
			}
		}
		return records, nil
	})
	if err != nil {
		return ExecResult{}, err
	}

	// Reported unconditionally, even when nothing matched.
	return ExecResult{Changes: 1}, nil
}

func (engine *Engine) executeDelete(statement sql.DeleteStatement, params []any) (ExecResult, error) {
	matches := mutationPredicate(statement.Where, params)

	_, err := engine.store.Mutate(statement.Table, engine.identity, "Deleting record", func(records []core.Record) ([]core.Record, error) {
		kept := records[:0]
		for _, record := range records {
			if !matches(record) {
				kept = append(kept, record)
			}
		}
		return kept, nil
	})
	if err != nil {
		return ExecResult{}, err
	}

	return ExecResult{Changes: 1}, nil
}

// nextID assigns the next record id: one past the highest id in the
// collection, starting from 1.
func nextID(records []core.Record) float64 {
	if len(records) == 0 {
		return 1
	}

	max := 0.0
	for _, record := range records {
		if v, ok := core.NumericValue(record["id"]); ok && v > max {
			max = v
		}
	}
	return max + 1
}

func isBlank(value any) bool {
	return value == nil || value == ""
}

func sortRecords(records []core.Record, field string, descending bool) {
	sort.SliceStable(records, func(i, j int) bool {
		cmp := core.CompareValues(records[i][field], records[j][field])
		if descending {
			return cmp > 0
		}
		return cmp < 0
	})
}
