package metad

import (
	"fmt"
	"strings"
)

// KeyNotFoundError reports that a segment of a metadata lookup path does not
// exist. Path holds the full requested path, Missing the first segment that
// could not be resolved.
type KeyNotFoundError struct {
	Path    []string
	Missing string
}

func (e *KeyNotFoundError) Error() string {
	return fmt.Sprintf("metadata key %q not found (while resolving %q)",
		e.Missing, strings.Join(e.Path, "."))
}

// SourceUnavailableError reports that the backing metadata store itself
// cannot be read, as opposed to a single key being absent.
type SourceUnavailableError struct {
	Root string
	Err  error
}

func (e *SourceUnavailableError) Error() string {
	return fmt.Sprintf("metadata store at %q unavailable: %v", e.Root, e.Err)
}

func (e *SourceUnavailableError) Unwrap() error { return e.Err }
