package bridge

import (
	"bufio"
	"context"
	"os"
	"strings"
)

const maxScriptLine = 16 << 20

// ImportFile executes a SQL script one line at a time inside a single
// transaction. Blank lines and "--" comment lines are skipped; every other
// line counts as one command. The first failing line rolls the whole script
// back.
func (b *Bridge) ImportFile(ctx context.Context, name, path string) (*ImportResult, error) {
	c, err := b.conn(name)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	c.mu.Lock()
	defer c.mu.Unlock()

	tx, err := c.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	result := &ImportResult{}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxScriptLine)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "--") {
			continue
		}
		n, err := execCounting(ctx, tx, line, nil)
		if err != nil {
			return nil, err
		}
		result.RowsAffected += n
		result.Commands++
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	b.logger.Debug("Imported SQL file", "name", name, "path", path, "commands", result.Commands)
	return result, nil
}
