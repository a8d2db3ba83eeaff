package pipeline

import "sort"

// Frame is a tabular view over a pass result: column names sorted
// lexicographically, values row-aligned per column.
type Frame struct {
	Columns []string
	Data    map[string]any
}

// ToFrame converts a result mapping into a Frame.
func ToFrame(results map[string]any) Frame {
	cols := make([]string, 0, len(results))
	for name := range results {
		cols = append(cols, name)
	}
	sort.Strings(cols)
	return Frame{Columns: cols, Data: results}
}

// Column returns the values of the named column.
func (f Frame) Column(name string) (any, bool) {
	v, ok := f.Data[name]
	return v, ok
}
