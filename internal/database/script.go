package database

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/pressly/goose/v3"
)

// Execer is satisfied by *sql.DB, *sql.Tx and *sql.Conn.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

var (
	triggerStart = regexp.MustCompile(`(?i)^\s*CREATE\s+(TEMP\s+|TEMPORARY\s+)?TRIGGER\b`)
	triggerBegin = regexp.MustCompile(`(?i)\bBEGIN\b`)
	triggerEnd   = regexp.MustCompile(`(?i)\bEND\s*$`)
)

// SplitStatements splits a script into semicolon-terminated statements.
// Semicolons inside quotes, comments and trigger bodies do not split.
// Comments are dropped and empty statements are skipped.
func SplitStatements(script string) []string {
	var (
		stmts []string
		cur   strings.Builder
	)
	flush := func() {
		if s := strings.TrimSpace(cur.String()); s != "" {
			stmts = append(stmts, s)
		}
		cur.Reset()
	}

	for i := 0; i < len(script); i++ {
		c := script[i]
		switch {
		case c == '\'' || c == '"' || c == '`':
			j := i + 1
			for j < len(script) {
				if script[j] == c {
					// doubled quote is an escaped quote
					if j+1 < len(script) && script[j+1] == c {
						j += 2
						continue
					}
					break
				}
				j++
			}
			if j >= len(script) {
				j = len(script) - 1
			}
			cur.WriteString(script[i : j+1])
			i = j
		case c == '-' && i+1 < len(script) && script[i+1] == '-':
			for i < len(script) && script[i] != '\n' {
				i++
			}
			cur.WriteByte('\n')
		case c == '/' && i+1 < len(script) && script[i+1] == '*':
			end := strings.Index(script[i+2:], "*/")
			if end < 0 {
				i = len(script)
			} else {
				i += end + 3
			}
			cur.WriteByte(' ')
		case c == ';':
			if inTriggerBody(cur.String()) {
				cur.WriteByte(c)
				continue
			}
			flush()
		default:
			cur.WriteByte(c)
		}
	}
	flush()
	return stmts
}

func inTriggerBody(stmt string) bool {
	if !triggerStart.MatchString(stmt) {
		return false
	}
	return !triggerBegin.MatchString(stmt) || !triggerEnd.MatchString(stmt)
}

// RunScript executes every statement of the script read from r, in order.
func RunScript(ctx context.Context, db Execer, r io.Reader) error {
	content, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("reading script: %w", err)
	}

	for i, stmt := range SplitStatements(string(content)) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("executing statement %d (%s): %w", i+1, abbreviate(stmt), err)
		}
	}
	return nil
}

// RunScriptFile is RunScript over the file at path.
func RunScriptFile(ctx context.Context, db Execer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening script: %w", err)
	}
	defer f.Close()
	return RunScript(ctx, db, f)
}

// Dialect returns the goose dialect for driver.
func Dialect(driver string) (goose.Dialect, error) {
	switch strings.ToLower(driver) {
	case "sqlite", "sqlite3":
		return goose.DialectSQLite3, nil
	case "pgx", "postgres", "postgresql":
		return goose.DialectPostgres, nil
	case "mysql":
		return goose.DialectMySQL, nil
	}
	return "", fmt.Errorf("no migration dialect for driver %q", driver)
}

// RunMigrations applies the goose migrations found in dir.
func RunMigrations(ctx context.Context, db *sql.DB, driver, dir string) error {
	dialect, err := Dialect(driver)
	if err != nil {
		return err
	}
	provider, err := goose.NewProvider(dialect, db, os.DirFS(dir))
	if err != nil {
		return fmt.Errorf("creating migration provider: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	return nil
}

func abbreviate(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) > 60 {
		return s[:57] + "..."
	}
	return s
}
