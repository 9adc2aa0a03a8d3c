package logistics

import "fmt"

// MissingSourceError reports an absent required input table. Fatal: no partial
// dataset is ever produced from an incomplete source directory.
type MissingSourceError struct {
	File string
}

func (e *MissingSourceError) Error() string {
	return fmt.Sprintf("missing source table: %s", e.File)
}

// SchemaError reports a required column absent from a loaded table. Fatal:
// structural errors are never papered over with defaults.
type SchemaError struct {
	Table  string
	Column string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s: missing column %s", e.Table, e.Column)
}

// DateParseWarning records a date value that could not be parsed. Loading
// continues with the zero time; derived date columns downstream may be
// meaningless for the affected rows.
type DateParseWarning struct {
	Table  string
	Column string
	Value  string
}

func (w DateParseWarning) String() string {
	return fmt.Sprintf("%s: cannot parse %s value %q", w.Table, w.Column, w.Value)
}
