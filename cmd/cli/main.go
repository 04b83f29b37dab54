package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jmolero/ComandaDB"
	"github.com/jmolero/ComandaDB/core"
	"github.com/jmolero/ComandaDB/db"
	"github.com/jmolero/ComandaDB/ps"
)

const (
	PromptColor  = "\033[36m" // Cyan
	ErrorColor   = "\033[31m" // Red
	SuccessColor = "\033[32m" // Green
	ResetColor   = "\033[0m"
	BoldColor    = "\033[1m"
)

// Version is set at build time via -ldflags
var Version = "dev"

// CLI holds the shell state
type CLI struct {
	engine      *db.Engine
	store       *ps.Store
	history     []string
	historyFile string
}

func main() {
	baseDir := flag.String("baseDir", "", "Base directory for the database")
	sqlFile := flag.String("sqlFile", "", "SQL file to execute (non-interactive)")
	userName := flag.String("name", "ComandaDB", "User name for commits")
	userEmail := flag.String("email", "cli@comanda.local", "User email for commits")
	flag.Parse()

	printBanner()

	var store *ps.Store
	var err error
	if *baseDir == "" {
		fmt.Printf("%sUsing memory persistence%s\n", SuccessColor, ResetColor)
		store, err = ps.NewMemoryStore()
	} else {
		fmt.Printf("%sUsing file persistence: %s%s\n", SuccessColor, *baseDir, ResetColor)
		store, err = ps.NewFileStore(*baseDir)
	}
	if err != nil {
		fmt.Printf("%sError: %v%s\n", ErrorColor, err, ResetColor)
		return
	}

	identity := core.Identity{
		Name:  *userName,
		Email: *userEmail,
	}

	instance := ComandaDB.Open(store)
	if err := instance.Initialize(identity); err != nil {
		fmt.Printf("%sError seeding store: %v%s\n", ErrorColor, err, ResetColor)
		return
	}

	cli := &CLI{
		engine:      instance.Engine(identity),
		store:       store,
		history:     make([]string, 0),
		historyFile: getHistoryPath(),
	}

	cli.loadHistory()

	if *sqlFile != "" {
		if err := cli.importFile(*sqlFile); err != nil {
			fmt.Printf("%sError importing file: %v%s\n", ErrorColor, err, ResetColor)
			os.Exit(1)
		}
		return
	}

	cli.run()
}

func printBanner() {
	fmt.Println()
	bannerWidth := 39 // inner width of the banner box
	versionLine := fmt.Sprintf("ComandaDB v%s", Version)
	padding := bannerWidth - len(versionLine) - 2 // -2 for "  " margins
	if padding < 0 {
		padding = 0
	}
	leftPad := padding / 2
	rightPad := padding - leftPad

	fmt.Printf("%s%s╔═══════════════════════════════════════╗%s\n", BoldColor, PromptColor, ResetColor)
	fmt.Printf("%s%s║ %*s%s%*s ║%s\n", BoldColor, PromptColor, leftPad, "", versionLine, rightPad, "", ResetColor)
	fmt.Printf("%s%s║   Git-backed Restaurant Data Store    ║%s\n", BoldColor, PromptColor, ResetColor)
	fmt.Printf("%s%s╚═══════════════════════════════════════╝%s\n", BoldColor, PromptColor, ResetColor)
	fmt.Println()
	fmt.Println("Type .help for commands, .quit to exit")
	fmt.Println("End statements with ; — parameters follow as a JSON array:")
	fmt.Println("  SELECT * FROM employees WHERE pin = ?; [\"1234\"]")
	fmt.Println()
}

func (cli *CLI) run() {
	reader := bufio.NewReader(os.Stdin)
	var multiLineBuffer strings.Builder

	for {
		prompt := cli.getPrompt(multiLineBuffer.Len() > 0)
		fmt.Print(prompt)

		input, err := reader.ReadString('\n')
		if err != nil {
			fmt.Printf("\n%sGoodbye!%s\n", SuccessColor, ResetColor)
			return
		}

		input = strings.TrimSuffix(input, "\n")
		input = strings.TrimSuffix(input, "\r")

		if strings.TrimSpace(input) == "" {
			continue
		}

		// Special commands only start a fresh statement
		if multiLineBuffer.Len() == 0 && strings.HasPrefix(input, ".") {
			if cli.handleCommand(input) {
				continue
			}
		}

		// Multi-line support: accumulate until we see a semicolon
		multiLineBuffer.WriteString(input)
		if !strings.Contains(multiLineBuffer.String(), ";") {
			multiLineBuffer.WriteString(" ")
			continue
		}

		statement := strings.TrimSpace(multiLineBuffer.String())
		multiLineBuffer.Reset()

		sql, params, err := parseStatement(statement)
		if err != nil {
			fmt.Printf("%s✗ %v%s\n", ErrorColor, err, ResetColor)
			continue
		}
		if sql == "" {
			continue
		}

		cli.addToHistory(statement)
		cli.execute(sql, params).Display(os.Stdout)
	}
}

// parseStatement splits an input line into the statement before the first
// semicolon and an optional JSON parameter array after it.
func parseStatement(input string) (string, []any, error) {
	sql, rest, _ := strings.Cut(input, ";")
	rest = strings.TrimSpace(rest)

	var params []any
	if rest != "" {
		if err := json.Unmarshal([]byte(rest), &params); err != nil {
			return "", nil, fmt.Errorf("invalid parameter array %q: %w", rest, err)
		}
	}

	return strings.TrimSpace(sql), params, nil
}

// execute routes a statement to the matching engine entry point. Reads go
// through Query, everything else through Run.
func (cli *CLI) execute(sql string, params []any) db.Result {
	if strings.HasPrefix(strings.ToUpper(strings.TrimSpace(sql)), "SELECT") {
		return cli.engine.Query(sql, params...)
	}
	return cli.engine.Run(sql, params...)
}

func (cli *CLI) getPrompt(multiLine bool) string {
	if multiLine {
		return fmt.Sprintf("%s   ...>%s ", PromptColor, ResetColor)
	}
	return fmt.Sprintf("%scomanda>%s ", PromptColor, ResetColor)
}

func (cli *CLI) handleCommand(input string) bool {
	parts := strings.Fields(strings.TrimSpace(input))
	if len(parts) == 0 {
		return true
	}

	switch strings.ToLower(parts[0]) {
	case ".quit", ".exit", ".q":
		fmt.Printf("%sGoodbye!%s\n", SuccessColor, ResetColor)
		cli.saveHistory()
		os.Exit(0)

	case ".help", ".h", ".?":
		cli.printHelp()

	case ".tables":
		cli.showTables()

	case ".log":
		limit := 20
		if len(parts) > 1 {
			fmt.Sscanf(parts[1], "%d", &limit)
		}
		cli.showLog(limit)

	case ".backup":
		if len(parts) > 1 {
			if err := cli.engine.Backup(parts[1], nil); err != nil {
				fmt.Printf("%s✗ Error: %v%s\n", ErrorColor, err, ResetColor)
			} else {
				fmt.Printf("%s✓ Backup written to %s%s\n", SuccessColor, parts[1], ResetColor)
			}
		} else {
			fmt.Printf("%s✗ Usage: .backup <destination>%s\n", ErrorColor, ResetColor)
		}

	case ".restore":
		if len(parts) > 1 {
			if err := cli.engine.RestoreSnapshot(parts[1], nil); err != nil {
				fmt.Printf("%s✗ Error: %v%s\n", ErrorColor, err, ResetColor)
			} else {
				fmt.Printf("%s✓ Restored snapshot from %s%s\n", SuccessColor, parts[1], ResetColor)
			}
		} else {
			fmt.Printf("%s✗ Usage: .restore <source>%s\n", ErrorColor, ResetColor)
		}

	case ".rollback":
		if len(parts) > 1 {
			cli.rollback(parts[1])
		} else {
			fmt.Printf("%s✗ Usage: .rollback <transaction-id>%s\n", ErrorColor, ResetColor)
		}

	case ".reset":
		cli.reset()

	case ".clear", ".cls":
		fmt.Print("\033[H\033[2J")

	case ".history":
		cli.printHistory()

	case ".version":
		fmt.Printf("ComandaDB version %s\n", Version)

	case ".import":
		if len(parts) > 1 {
			if err := cli.importFile(parts[1]); err != nil {
				fmt.Printf("%s✗ Error: %v%s\n", ErrorColor, err, ResetColor)
			}
		} else {
			fmt.Printf("%s✗ Usage: .import <file.sql>%s\n", ErrorColor, ResetColor)
		}

	default:
		fmt.Printf("%s✗ Unknown command: %s (type .help for commands)%s\n", ErrorColor, parts[0], ResetColor)
	}

	return true
}

func (cli *CLI) printHelp() {
	fmt.Println()
	fmt.Printf("%s%sSpecial Commands:%s\n", BoldColor, PromptColor, ResetColor)
	fmt.Println("  .help, .h        Show this help message")
	fmt.Println("  .quit, .exit     Exit the shell")
	fmt.Println("  .tables          List collections")
	fmt.Println("  .log [n]         Show the last n transactions (default 20)")
	fmt.Println("  .rollback <id>   Restore the store to a transaction")
	fmt.Println("  .reset           Roll back to the seeded starter data")
	fmt.Println("  .backup <dest>   Write a snapshot (file path, http(s):// or s3://)")
	fmt.Println("  .restore <src>   Load a snapshot")
	fmt.Println("  .import <file>   Execute statements from a file")
	fmt.Println("  .history         Show command history")
	fmt.Println("  .clear           Clear the screen")
	fmt.Println("  .version         Show version info")
	fmt.Println()
	fmt.Printf("%s%sStatements:%s\n", BoldColor, PromptColor, ResetColor)
	fmt.Println("  SELECT <cols> FROM <collection> [JOIN ...] [WHERE <cond>] [ORDER BY ...] [LIMIT n];")
	fmt.Println("  INSERT INTO <collection> (<cols>) VALUES (?, ...); [params]")
	fmt.Println("  UPDATE <collection> SET <col> = ? WHERE <col> = ?; [params]")
	fmt.Println("  DELETE FROM <collection> WHERE <col> = ?; [params]")
	fmt.Println()
	fmt.Printf("%s%sAggregates:%s SUM(total), COUNT(*)\n", BoldColor, PromptColor, ResetColor)
	fmt.Println()
}

func (cli *CLI) showTables() {
	names := cli.store.Collections()
	if len(names) == 0 {
		fmt.Println("No collections")
		return
	}
	for _, name := range names {
		fmt.Printf("  %s\n", name)
	}
}

func (cli *CLI) showLog(limit int) {
	entries := cli.store.Log(limit)
	if len(entries) == 0 {
		fmt.Println("No transactions")
		return
	}
	for _, entry := range entries {
		message := strings.TrimSpace(entry.Message)
		fmt.Printf("  %s  %s  %-30s %s\n",
			entry.Transaction.Id[:8],
			entry.Transaction.When.Format("2006-01-02 15:04:05"),
			message,
			entry.Transaction.Author)
	}
}

// rollback restores the store to the transaction whose id starts with the
// given prefix.
func (cli *CLI) rollback(prefix string) {
	for _, entry := range cli.store.Log(0) {
		if strings.HasPrefix(entry.Transaction.Id, prefix) {
			if err := cli.store.RestoreTo(entry.Transaction); err != nil {
				fmt.Printf("%s✗ Error: %v%s\n", ErrorColor, err, ResetColor)
				return
			}
			fmt.Printf("%s✓ Restored to %s%s\n", SuccessColor, entry.Transaction.Id[:8], ResetColor)
			return
		}
	}
	fmt.Printf("%s✗ No transaction matches %s%s\n", ErrorColor, prefix, ResetColor)
}

// reset rolls the store back to its first transaction, the seed commit.
func (cli *CLI) reset() {
	entries := cli.store.Log(0)
	if len(entries) == 0 {
		fmt.Println("No transactions")
		return
	}

	seed := entries[len(entries)-1].Transaction
	if err := cli.store.RestoreTo(seed); err != nil {
		fmt.Printf("%s✗ Error: %v%s\n", ErrorColor, err, ResetColor)
		return
	}
	fmt.Printf("%s✓ Reset to starter data (%s)%s\n", SuccessColor, seed.Id[:8], ResetColor)
}

func (cli *CLI) addToHistory(cmd string) {
	// Don't add duplicates of the last command
	if len(cli.history) > 0 && cli.history[len(cli.history)-1] == cmd {
		return
	}
	cli.history = append(cli.history, cmd)

	// Limit history size
	if len(cli.history) > 1000 {
		cli.history = cli.history[len(cli.history)-1000:]
	}
}

func (cli *CLI) printHistory() {
	if len(cli.history) == 0 {
		fmt.Println("No command history")
		return
	}

	start := 0
	if len(cli.history) > 20 {
		start = len(cli.history) - 20
	}

	for i := start; i < len(cli.history); i++ {
		fmt.Printf("  %3d  %s\n", i+1, cli.history[i])
	}
}

func getHistoryPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".comandadb_history")
}

func (cli *CLI) loadHistory() {
	if cli.historyFile == "" {
		return
	}

	file, err := os.Open(cli.historyFile)
	if err != nil {
		return
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		cli.history = append(cli.history, scanner.Text())
	}
}

func (cli *CLI) saveHistory() {
	if cli.historyFile == "" {
		return
	}

	file, err := os.Create(cli.historyFile)
	if err != nil {
		return
	}
	defer file.Close()

	// Save last 1000 entries
	start := 0
	if len(cli.history) > 1000 {
		start = len(cli.history) - 1000
	}

	for i := start; i < len(cli.history); i++ {
		_, _ = file.WriteString(cli.history[i] + "\n")
	}
}

// importFile reads and executes statements from a file. Statements follow
// the shell grammar: terminated by a semicolon, parameters after it as a
// JSON array. Lines starting with -- are comments.
func (cli *CLI) importFile(filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	successCount := 0
	errorCount := 0
	count := 0

	var buffer strings.Builder
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(strings.TrimSuffix(line, "\r"))
		if line == "" || strings.HasPrefix(line, "--") {
			continue
		}

		buffer.WriteString(line)
		if !strings.Contains(buffer.String(), ";") {
			buffer.WriteString(" ")
			continue
		}

		statement := strings.TrimSpace(buffer.String())
		buffer.Reset()
		count++

		sql, params, err := parseStatement(statement)
		if err != nil {
			fmt.Printf("%s[%d] ✗ %s%s\n", ErrorColor, count, truncate(statement, 50), ResetColor)
			fmt.Printf("      Error: %v\n", err)
			errorCount++
			continue
		}
		if sql == "" {
			continue
		}

		result := cli.execute(sql, params)
		if !result.Success {
			fmt.Printf("%s[%d] ✗ %s%s\n", ErrorColor, count, truncate(statement, 50), ResetColor)
			fmt.Printf("      Error: %s\n", result.Error)
			errorCount++
			continue
		}

		successCount++
		switch data := result.Data.(type) {
		case []core.Record:
			fmt.Printf("%s[%d] ✓ %s (%d rows)%s\n", SuccessColor, count, truncate(statement, 50), len(data), ResetColor)
		case db.ExecResult:
			detail := fmt.Sprintf("%d change(s)", data.Changes)
			if data.LastInsertRowid > 0 {
				detail = fmt.Sprintf("id %d", data.LastInsertRowid)
			}
			fmt.Printf("%s[%d] ✓ %s (%s)%s\n", SuccessColor, count, truncate(statement, 50), detail, ResetColor)
		default:
			fmt.Printf("%s[%d] ✓ %s%s\n", SuccessColor, count, truncate(statement, 50), ResetColor)
		}
	}

	fmt.Printf("\n%s✓ Import complete: %d succeeded, %d failed%s\n",
		SuccessColor, successCount, errorCount, ResetColor)

	return nil
}

// truncate shortens a string to max length with ellipsis
func truncate(s string, max int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\t", " ")
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
