// Package suppliers implements the supplier operations behind the HTTP API and
// maps every row-store outcome onto a small result taxonomy.
package suppliers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/jmehdipour/supplier-risk/internal/logger"
	"github.com/jmehdipour/supplier-risk/internal/metrics"
	"github.com/jmehdipour/supplier-risk/internal/model"
	"github.com/jmehdipour/supplier-risk/internal/rowstore"
	"github.com/jmehdipour/supplier-risk/internal/util"
)

const (
	DefaultTable = "suppliers"

	msgUnavailable = "Cliente Supabase Admin não disponível"
	msgUnknown     = "Erro desconhecido"
)

// NotFoundMessage is the caller-facing message for an unknown supplier id.
func NotFoundMessage(id string) string {
	return fmt.Sprintf("Fornecedor com ID %s não encontrado", id)
}

// Service runs supplier operations against the privileged row-store handle.
type Service struct {
	provider *rowstore.Provider
	table    string
	now      func() time.Time
	validate *validator.Validate
}

type Option func(*Service)

// WithClock replaces time.Now as the source of created_at/updated_at.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func New(provider *rowstore.Provider, table string, opts ...Option) *Service {
	if table == "" {
		table = DefaultTable
	}
	s := &Service{
		provider: provider,
		table:    table,
		now:      time.Now,
		validate: validator.New(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Service) stamp() time.Time {
	return s.now().UTC().Truncate(time.Millisecond)
}

// Update merges updates into the supplier keyed by id, always refreshing
// updated_at, and returns the row as stored after the update.
func (s *Service) Update(ctx context.Context, id string, updates model.Fields) (rec model.Record, err error) {
	defer s.observe("update", &err)
	defer recoverInto(&err)

	patch := updates.WithTimestamp(model.FieldUpdatedAt, s.stamp())

	client, err := s.client(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := client.Update(ctx, s.table, id, patch)
	if err != nil {
		return nil, classify(err)
	}
	if len(rows) == 0 {
		return nil, &Error{Kind: KindNotFound, Message: NotFoundMessage(id)}
	}
	return rows[0], nil
}

// Create inserts a new supplier. An id is assigned unless the caller sends one.
func (s *Service) Create(ctx context.Context, fields model.Fields) (rec model.Record, err error) {
	defer s.observe("create", &err)
	defer recoverInto(&err)

	if err := s.checkCreate(fields); err != nil {
		return nil, err
	}

	now := s.stamp()
	row := fields.WithTimestamp(model.FieldCreatedAt, now).WithTimestamp(model.FieldUpdatedAt, now)
	if model.Record(row).ID() == "" {
		row[model.FieldID] = model.String(util.NewID())
	}

	client, err := s.client(ctx)
	if err != nil {
		return nil, err
	}

	rec, err = client.Insert(ctx, s.table, row)
	if err != nil {
		return nil, classify(err)
	}
	return rec, nil
}

func (s *Service) Get(ctx context.Context, id string) (rec model.Record, err error) {
	defer s.observe("get", &err)
	defer recoverInto(&err)

	client, err := s.client(ctx)
	if err != nil {
		return nil, err
	}

	rec, err = client.Get(ctx, s.table, id)
	if errors.Is(err, rowstore.ErrNotFound) {
		return nil, &Error{Kind: KindNotFound, Message: NotFoundMessage(id), Err: err}
	}
	if err != nil {
		return nil, classify(err)
	}
	return rec, nil
}

func (s *Service) client(ctx context.Context) (rowstore.Client, error) {
	c, err := s.provider.Client(ctx)
	if err != nil {
		return nil, &Error{Kind: KindUnavailable, Message: msgUnavailable, Err: err}
	}
	return c, nil
}

// checkCreate validates the few columns every supplier must carry.
func (s *Service) checkCreate(fields model.Fields) error {
	name := fields["name"]
	if name.Kind() != model.KindString || strings.TrimSpace(name.Text()) == "" {
		return &Error{Kind: KindClient, Message: "name is required"}
	}
	if err := s.validate.Var(name.Text(), "max=255"); err != nil {
		return &Error{Kind: KindClient, Message: "name must be at most 255 characters", Err: err}
	}
	if email, ok := fields["contact_email"]; ok && !email.IsNull() {
		if email.Kind() != model.KindString || s.validate.Var(email.Text(), "email") != nil {
			return &Error{Kind: KindClient, Message: "contact_email must be a valid email address"}
		}
	}
	return nil
}

// classify maps a row-store error onto the taxonomy. Operation-level
// rejections carry the store's own message to the caller.
func classify(err error) error {
	var opErr *rowstore.OpError
	if errors.As(err, &opErr) {
		return &Error{Kind: KindClient, Message: opErr.Message, Err: err}
	}
	if errors.Is(err, rowstore.ErrUnavailable) {
		return &Error{Kind: KindUnavailable, Message: msgUnavailable, Err: err}
	}
	return internal(err)
}

func internal(err error) *Error {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	if msg == "" {
		msg = msgUnknown
	}
	return &Error{Kind: KindInternal, Message: msg, Err: err}
}

func recoverInto(err *error) {
	r := recover()
	if r == nil {
		return
	}
	var cause error
	switch x := r.(type) {
	case error:
		cause = x
	case string:
		cause = errors.New(x)
	default:
		cause = fmt.Errorf("%v", x)
	}
	logger.Log.Error("supplier operation panicked", zap.Any("panic", r), zap.Stack("stack"))
	*err = internal(cause)
}

func (s *Service) observe(op string, err *error) {
	outcome := "ok"
	if *err != nil {
		outcome = KindOf(*err).String()
	}
	metrics.SupplierRequestsTotal.WithLabelValues(op, outcome).Inc()
}
