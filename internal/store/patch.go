package store

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var ErrUnknownColumn = errors.New("unknown column")

// Patch is a partial update keyed by column name. Only columns in the
// owning store's allow-list may appear.
type Patch map[string]any

// Columns returns the patched column names in sorted order.
func (p Patch) Columns() []string {
	cols := make([]string, 0, len(p))
	for c := range p {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	return cols
}

// buildUpdate turns a patch into "UPDATE <table> SET a = ?, b = ? WHERE id = ?"
// and its arguments. An empty patch yields an empty query.
func buildUpdate(table string, allowed map[string]bool, id int64, p Patch) (string, []any, error) {
	if len(p) == 0 {
		return "", nil, nil
	}

	cols := p.Columns()
	sets := make([]string, 0, len(cols))
	args := make([]any, 0, len(cols)+1)
	for _, c := range cols {
		if !allowed[c] {
			return "", nil, fmt.Errorf("%w %q on %s", ErrUnknownColumn, c, table)
		}
		sets = append(sets, c+" = ?")
		args = append(args, p[c])
	}
	args = append(args, id)

	return `UPDATE ` + table + ` SET ` + strings.Join(sets, ", ") + ` WHERE id = ?`, args, nil
}
