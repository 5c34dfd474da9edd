// Package rowstore defines the row-store collaborator the supplier endpoints
// write through, and the lazily constructed privileged handle shared by them.
package rowstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"sync/atomic"

	"github.com/jmehdipour/supplier-risk/internal/model"
)

var (
	// ErrUnavailable marks a failure to construct the privileged client handle.
	ErrUnavailable = errors.New("row store unavailable")
	// ErrNotFound is returned by Get when no row matches the key.
	ErrNotFound = errors.New("row not found")
)

// Client is the privileged row-store handle. Implementations must be safe for
// concurrent use and must not be mutated after construction.
type Client interface {
	// Update merges patch into the row keyed by id and returns the affected rows
	// after the update. An unknown id yields zero rows and a nil error.
	Update(ctx context.Context, table, id string, patch model.Fields) ([]model.Record, error)
	// Insert creates a row; the store assigns the id.
	Insert(ctx context.Context, table string, fields model.Fields) (model.Record, error)
	// Get returns the row keyed by id or ErrNotFound.
	Get(ctx context.Context, table, id string) (model.Record, error)
}

// OpError is an operation-level rejection reported by the store itself
// (unknown column, constraint violation, type mismatch).
type OpError struct {
	Code    string
	Message string
	Details string
	Hint    string
}

func (e *OpError) Error() string {
	if e.Code == "" {
		return e.Message
	}
	return fmt.Sprintf("%s (code %s)", e.Message, e.Code)
}

// Factory constructs a new Client, typically from credentials in config.
type Factory func(ctx context.Context) (Client, error)

type handle struct{ c Client }

// Provider hands out a process-wide Client built on first use. Concurrent first
// callers may each build a Client; one wins and the others are closed.
type Provider struct {
	factory Factory
	cur     atomic.Pointer[handle]
}

func NewProvider(f Factory) *Provider {
	return &Provider{factory: f}
}

// Static returns a Provider that always yields c.
func Static(c Client) *Provider {
	p := &Provider{factory: func(context.Context) (Client, error) { return c, nil }}
	p.cur.Store(&handle{c: c})
	return p
}

// Client returns the cached handle or builds one. Construction failures wrap
// ErrUnavailable and are not cached, so the next call tries again.
func (p *Provider) Client(ctx context.Context) (Client, error) {
	if h := p.cur.Load(); h != nil {
		return h.c, nil
	}
	if p.factory == nil {
		return nil, fmt.Errorf("%w: no factory configured", ErrUnavailable)
	}

	c, err := p.factory(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if c == nil {
		return nil, fmt.Errorf("%w: factory returned no client", ErrUnavailable)
	}

	if p.cur.CompareAndSwap(nil, &handle{c: c}) {
		return c, nil
	}
	closeClient(c)
	return p.cur.Load().c, nil
}

// Warm builds the handle eagerly, e.g. at process start.
func (p *Provider) Warm(ctx context.Context) error {
	_, err := p.Client(ctx)
	return err
}

// Close releases the cached handle, if any.
func (p *Provider) Close() error {
	h := p.cur.Swap(nil)
	if h == nil {
		return nil
	}
	if cl, ok := h.c.(io.Closer); ok {
		return cl.Close()
	}
	return nil
}

func closeClient(c Client) {
	if cl, ok := c.(io.Closer); ok {
		_ = cl.Close()
	}
}

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidColumn reports whether name can be used as a column identifier.
func ValidColumn(name string) bool {
	return len(name) <= 64 && identRe.MatchString(name)
}

// CheckPatch rejects patches that change the key of row id or address
// columns that cannot exist. Repeating the current key is allowed. It returns
// an *OpError, like the store would.
func CheckPatch(id string, patch model.Fields) error {
	for name, v := range patch {
		if name == model.FieldID {
			if v.Kind() == model.KindString && v.Text() == id {
				continue
			}
			return &OpError{Code: "immutable_column", Message: `column "id" cannot be updated`}
		}
		if !ValidColumn(name) {
			return &OpError{Code: "invalid_column", Message: fmt.Sprintf("invalid column name %q", name)}
		}
	}
	return nil
}

// CheckInsert validates column names of a new row.
func CheckInsert(fields model.Fields) error {
	for name := range fields {
		if !ValidColumn(name) {
			return &OpError{Code: "invalid_column", Message: fmt.Sprintf("invalid column name %q", name)}
		}
	}
	return nil
}
