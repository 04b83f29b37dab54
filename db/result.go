package db

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/jmolero/ComandaDB/core"
)

// Result is the envelope every engine entry point returns. Data holds a
// record list for Query, a single record or nil for Get, and an ExecResult
// for Run.
type Result struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// ExecResult reports the outcome of a mutation.
type ExecResult struct {
	LastInsertRowid int64 `json:"lastInsertRowid,omitempty"`
	Changes         int64 `json:"changes,omitempty"`
}

func Success(data any) Result {
	return Result{Success: true, Data: data}
}

func Failure(err error) Result {
	return Result{Success: false, Error: err.Error()}
}

// Records returns the record list carried by a Query result.
func (result Result) Records() []core.Record {
	records, _ := result.Data.([]core.Record)
	return records
}

// Record returns the single record carried by a Get result, or nil.
func (result Result) Record() core.Record {
	record, _ := result.Data.(core.Record)
	return record
}

// Exec returns the mutation outcome carried by a Run result.
func (result Result) Exec() ExecResult {
	exec, _ := result.Data.(ExecResult)
	return exec
}

// Display renders the result to w for the interactive shell.
func (result Result) Display(w io.Writer) {
	if !result.Success {
		fmt.Fprintf(w, "error: %s\n", result.Error)
		return
	}

	switch data := result.Data.(type) {
	case []core.Record:
		renderRecords(w, data)
		fmt.Fprintf(w, "%d rows\n", len(data))
	case core.Record:
		renderRecords(w, []core.Record{data})
	case ExecResult:
		if data.LastInsertRowid > 0 {
			fmt.Fprintf(w, "OK (id %d)\n", data.LastInsertRowid)
		} else {
			fmt.Fprintf(w, "OK (%d change(s))\n", data.Changes)
		}
	case nil:
		fmt.Fprintln(w, "null")
	default:
		fmt.Fprintf(w, "%v\n", data)
	}
}

// renderRecords prints records as an aligned table. Columns are the union
// of the record fields, id first, the rest alphabetical.
func renderRecords(w io.Writer, records []core.Record) {
	if len(records) == 0 {
		return
	}

	columns := recordColumns(records)

	table := NewTable(w)
	table.Header(columns)
	for _, record := range records {
		row := make([]string, len(columns))
		for i, column := range columns {
			row[i] = cellValue(record[column])
		}
		table.Row(row)
	}
	table.Render()
}

func recordColumns(records []core.Record) []string {
	seen := map[string]bool{}
	var columns []string
	for _, record := range records {
		for field := range record {
			if !seen[field] {
				seen[field] = true
				columns = append(columns, field)
			}
		}
	}

	sort.Slice(columns, func(i, j int) bool {
		if columns[i] == "id" {
			return true
		}
		if columns[j] == "id" {
			return false
		}
		return columns[i] < columns[j]
	})

	return columns
}

func cellValue(value any) string {
	switch value := value.(type) {
	case nil:
		return ""
	case string:
		return value
	case float64:
		if value == float64(int64(value)) {
			return fmt.Sprintf("%d", int64(value))
		}
		return fmt.Sprintf("%.2f", value)
	default:
		data, err := json.Marshal(value)
		if err != nil {
			return fmt.Sprintf("%v", value)
		}
		return string(data)
	}
}
