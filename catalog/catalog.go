// Package catalog implements the lazily browsed SDMX catalog tree.
//
// The tree has three levels:
//   - SourceCatalog: one key per available provider, built from a registry
//     without remote access.
//   - DataflowCatalog: one key per dataflow id and one per dataflow name,
//     both resolving to the same entry. Built with a single listing call.
//   - DatasetEntry: the selectable parameters of one dataflow, derived
//     from its structure on first access. Binding values produces a new
//     entry; reading a bound entry fetches data and returns a record batch.
//
// Every child is materialized at most once per owning node, including
// under concurrent access. All types are goroutine-safe.
package catalog

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/apache/arrow-go/v18/arrow/memory"
)

// Sentinel is the wildcard code meaning "no restriction on this dimension".
const Sentinel = "*"

var (
	// ErrUnknownKey indicates a lookup of a provider, dataflow or
	// parameter that is not present.
	ErrUnknownKey = errors.New("unknown key")

	// ErrInvalidCode indicates a selection value that is not allowed.
	ErrInvalidCode = errors.New("invalid code")
)

// InvalidCodeError reports every rejected token of a selection.
// It matches ErrInvalidCode with errors.Is.
type InvalidCodeError struct {
	// Parameter is the name of the validated parameter.
	Parameter string

	// Invalid lists tokens that are neither a code nor a label.
	Invalid []string

	// Duplicates lists tokens that resolve to an already selected code.
	Duplicates []string
}

func (e *InvalidCodeError) Error() string {
	var parts []string
	if len(e.Invalid) > 0 {
		parts = append(parts, fmt.Sprintf("invalid codes [%s]", strings.Join(e.Invalid, ", ")))
	}
	if len(e.Duplicates) > 0 {
		parts = append(parts, fmt.Sprintf("duplicate codes [%s]", strings.Join(e.Duplicates, ", ")))
	}
	return fmt.Sprintf("%s for %s: %s", ErrInvalidCode, e.Parameter, strings.Join(parts, "; "))
}

// Is implements errors.Is.
func (e *InvalidCodeError) Is(target error) bool {
	return target == ErrInvalidCode
}

// Options configures catalog nodes.
type Options struct {
	// Logger for materialization and read logging.
	// OPTIONAL: Uses slog.Default() if nil.
	Logger *slog.Logger

	// Allocator for record batches returned by DatasetEntry.Read.
	// OPTIONAL: Uses memory.DefaultAllocator if nil.
	Allocator memory.Allocator

	// Now returns the current time. The default start period is the
	// calendar year before Now().
	// OPTIONAL: Uses time.Now if nil.
	Now func() time.Time
}

func (o Options) withDefaults() Options {
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Allocator == nil {
		o.Allocator = memory.DefaultAllocator
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}
