package rules

import "strings"

// TableRef is a fully qualified table identifier such as
// "dataset.schema.table". It is interpolated into queries as written.
type TableRef string

// Name returns the unqualified table name, the trailing dotted segment,
// with identifier quoting removed.
func (t TableRef) Name() string {
	s := strings.TrimSpace(string(t))
	if i := strings.LastIndex(s, "."); i >= 0 {
		s = s[i+1:]
	}
	return strings.Trim(s, "`\"[]")
}

func (t TableRef) String() string {
	return string(t)
}
