package gazetteer

import (
	"fmt"

	"github.com/rotisserie/eris"
)

// ErrNotFound reports a valid lookup that matched zero rows. It is a normal
// outcome, surfaced as data by the RPC layer rather than a method failure.
var ErrNotFound = eris.New("record not found")

// UnknownCollectionError reports a collection identifier outside the
// registry's startup-configured set.
type UnknownCollectionError struct {
	Collection string
}

func (e *UnknownCollectionError) Error() string {
	return fmt.Sprintf("unknown collection %q", e.Collection)
}

// DataSourceError wraps a backing-store fault (malformed SQL, missing
// extension, connection loss) with the offending collection attached. It is
// never swallowed: handlers let it propagate as a method-level failure.
type DataSourceError struct {
	Collection string
	Err        error
}

func (e *DataSourceError) Error() string {
	return fmt.Sprintf("source %s: %v", e.Collection, e.Err)
}

func (e *DataSourceError) Unwrap() error { return e.Err }

// SchemaError reports a row that is missing an expected column. It indicates
// a stale dataset or column mapping and is fatal for the source instance;
// nothing retries it.
type SchemaError struct {
	Collection string
	Column     string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("source %s: row missing expected column %q", e.Collection, e.Column)
}
