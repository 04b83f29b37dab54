// Package sql provides statement lexing and parsing for ComandaDB.
//
// The package includes a lexer that tokenizes statement text and a
// parser that classifies it into one of a small family of statement
// shapes. Parsing is permissive: the verb is decided by keyword
// presence, unrecognized clauses are skipped, and text containing no
// verb at all produces a NoopStatement rather than an error.
//
// # Lexer Usage
//
//	lexer := sql.NewLexer("SELECT * FROM products WHERE available = 1")
//	for {
//	    token := lexer.NextToken()
//	    if token.Type == sql.EOF {
//	        break
//	    }
//	    fmt.Printf("Token: %s\n", token)
//	}
//
// # Parser Usage
//
//	parser := sql.NewParser("SELECT * FROM orders WHERE table_id = ?")
//	statement := parser.Parse()
//
// # Statement Shapes
//
// The parser produces the following statement types:
//   - SelectStatement
//   - InsertStatement
//   - UpdateStatement
//   - DeleteStatement
//   - NoopStatement
package sql
