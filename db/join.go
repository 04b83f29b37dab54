package db

import (
	"github.com/jmolero/ComandaDB/core"
	"github.com/jmolero/ComandaDB/sql"
)

// decorate enriches the loaded records with fields from related
// collections. The rules run in a fixed order and key off the statement's
// join hints and source collection; there are no general join conditions.
// A dangling reference decorates with nulls rather than dropping the row.
func (engine *Engine) decorate(statement sql.SelectStatement, records []core.Record) ([]core.Record, error) {
	var err error

	if statement.HasJoin(core.CollectionCategories) {
		records, err = engine.decorateCategories(records)
		if err != nil {
			return nil, err
		}
	}

	if statement.HasJoin(core.CollectionTables) || statement.HasJoin(core.CollectionEmployees) {
		records, err = engine.decorateOrders(records)
		if err != nil {
			return nil, err
		}
	}

	if statement.Table == core.CollectionOrderItems {
		records, err = engine.decorateOrderItems(records)
		if err != nil {
			return nil, err
		}
	}

	return records, nil
}

// decorateCategories attaches the category name and icon to products.
func (engine *Engine) decorateCategories(records []core.Record) ([]core.Record, error) {
	categories, err := engine.lookup(core.CollectionCategories)
	if err != nil {
		return nil, err
	}

	out := make([]core.Record, 0, len(records))
	for _, record := range records {
		category := categories[keyOf(record["category_id"])]

		decorated := record.Clone()
		decorated["category_name"] = fieldOf(category, "name")
		decorated["category_icon"] = fieldOf(category, "icon")
		out = append(out, decorated)
	}
	return out, nil
}

// decorateOrders attaches the table number and the serving employee's name.
// waiter_name aliases employee_name; both callers exist.
func (engine *Engine) decorateOrders(records []core.Record) ([]core.Record, error) {
	tables, err := engine.lookup(core.CollectionTables)
	if err != nil {
		return nil, err
	}
	employees, err := engine.lookup(core.CollectionEmployees)
	if err != nil {
		return nil, err
	}

	out := make([]core.Record, 0, len(records))
	for _, record := range records {
		table := tables[keyOf(record["table_id"])]
		employee := employees[keyOf(record["employee_id"])]

		decorated := record.Clone()
		decorated["table_number"] = fieldOf(table, "number")
		decorated["employee_name"] = fieldOf(employee, "name")
		decorated["waiter_name"] = fieldOf(employee, "name")
		out = append(out, decorated)
	}
	return out, nil
}

// decorateOrderItems attaches product and category details to every order
// line. The category comes through the product's reference, so the rule
// also overrides any earlier category decoration.
func (engine *Engine) decorateOrderItems(records []core.Record) ([]core.Record, error) {
	products, err := engine.lookup(core.CollectionProducts)
	if err != nil {
		return nil, err
	}
	categories, err := engine.lookup(core.CollectionCategories)
	if err != nil {
		return nil, err
	}

	out := make([]core.Record, 0, len(records))
	for _, record := range records {
		product := products[keyOf(record["product_id"])]
		var category core.Record
		if product != nil {
			category = categories[keyOf(product["category_id"])]
		}

		decorated := record.Clone()
		decorated["product_name"] = fieldOf(product, "name")
		decorated["product_price"] = fieldOf(product, "price")
		decorated["description"] = fieldOf(product, "description")
		decorated["category_name"] = fieldOf(category, "name")
		decorated["category_icon"] = fieldOf(category, "icon")
		out = append(out, decorated)
	}
	return out, nil
}

// lookup loads a collection indexed by record id.
func (engine *Engine) lookup(name string) (map[float64]core.Record, error) {
	records, err := engine.store.LoadCollection(name)
	if err != nil {
		return nil, err
	}

	index := make(map[float64]core.Record, len(records))
	for _, record := range records {
		if id, ok := core.NumericValue(record["id"]); ok {
			index[id] = record
		}
	}
	return index, nil
}

// keyOf converts a foreign key value to the lookup key. Non-numeric values
// map to a key no record carries.
func keyOf(value any) float64 {
	if v, ok := core.NumericValue(value); ok {
		return v
	}
	return -1
}

func fieldOf(record core.Record, field string) any {
	if record == nil {
		return nil
	}
	return record[field]
}
