// Package reststore talks to the hosted database service through its
// PostgREST-style HTTP API using the service-role key.
package reststore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jmehdipour/supplier-risk/internal/model"
	"github.com/jmehdipour/supplier-risk/internal/rowstore"
)

var ErrCircuitOpen = errors.New("row store circuit open")

const maxBody = 10 << 20

type Options struct {
	BaseURL        string // e.g. https://<project>.supabase.co
	ServiceRoleKey string
	Timeout        time.Duration // default 10s
	FailThreshold  int           // default 5
	OpenForMs      int           // default 15000
	HTTPClient     *http.Client  // optional, Timeout is ignored when set
}

type Store struct {
	baseURL string
	key     string
	client  *http.Client
	br      *breaker
}

var _ rowstore.Client = (*Store)(nil)

// New builds the privileged handle. Missing credentials are a construction error.
func New(opts Options) (*Store, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		return nil, errors.New("missing row store base url")
	}
	if u, err := url.Parse(base); err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid row store base url %q", opts.BaseURL)
	}
	if strings.TrimSpace(opts.ServiceRoleKey) == "" {
		return nil, errors.New("missing service role key")
	}

	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.FailThreshold <= 0 {
		opts.FailThreshold = 5
	}
	if opts.OpenForMs <= 0 {
		opts.OpenForMs = 15000
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}

	return &Store{
		baseURL: base,
		key:     opts.ServiceRoleKey,
		client:  client,
		br:      newBreaker(opts.FailThreshold, time.Duration(opts.OpenForMs)*time.Millisecond),
	}, nil
}

func (s *Store) Update(ctx context.Context, table, id string, patch model.Fields) ([]model.Record, error) {
	if err := rowstore.CheckPatch(id, patch); err != nil {
		return nil, err
	}
	if patch == nil {
		patch = model.Fields{}
	}

	var rows []model.Record
	q := url.Values{"id": {"eq." + id}}
	if err := s.call(ctx, http.MethodPatch, table, q, patch, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *Store) Insert(ctx context.Context, table string, fields model.Fields) (model.Record, error) {
	if err := rowstore.CheckInsert(fields); err != nil {
		return nil, err
	}
	if fields == nil {
		fields = model.Fields{}
	}

	var rows []model.Record
	if err := s.call(ctx, http.MethodPost, table, nil, fields, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("row store: insert into %s returned no row", table)
	}
	return rows[0], nil
}

func (s *Store) Get(ctx context.Context, table, id string) (model.Record, error) {
	var rows []model.Record
	q := url.Values{"id": {"eq." + id}, "select": {"*"}}
	if err := s.call(ctx, http.MethodGet, table, q, nil, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, rowstore.ErrNotFound
	}
	return rows[0], nil
}

func (s *Store) Close() error {
	s.client.CloseIdleConnections()
	return nil
}

// call guards one round trip with the breaker. Operation-level rejections
// mean the service is healthy and do not count as failures, and neither do
// calls whose own context ended.
func (s *Store) call(ctx context.Context, method, table string, q url.Values, in, out any) error {
	ok, probe := s.br.acquire()
	if !ok {
		return ErrCircuitOpen
	}

	err := s.do(ctx, method, table, q, in, out)

	var opErr *rowstore.OpError
	switch {
	case err == nil || errors.As(err, &opErr):
		s.br.release(probe, succeeded)
	case ctx.Err() != nil:
		s.br.release(probe, abandoned)
	default:
		s.br.release(probe, failed)
	}
	return err
}

type apiError struct {
	Message string `json:"message"`
	Code    string `json:"code"`
	Details string `json:"details"`
	Hint    string `json:"hint"`
}

func (s *Store) do(ctx context.Context, method, table string, q url.Values, in, out any) error {
	endpoint := s.baseURL + "/rest/v1/" + url.PathEscape(table)
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("row store: encode body: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	req.Header.Set("apikey", s.key)
	req.Header.Set("Authorization", "Bearer "+s.key)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Prefer", "return=representation")
	}

	res, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, maxBody))
	if err != nil {
		return fmt.Errorf("row store: read response: %w", err)
	}

	switch {
	case res.StatusCode/100 == 2:
		if out == nil || len(bytes.TrimSpace(raw)) == 0 {
			return nil
		}
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("row store: decode response: %w", err)
		}
		return nil
	case res.StatusCode/100 == 4:
		var ae apiError
		_ = json.Unmarshal(raw, &ae)
		if ae.Message == "" {
			ae.Message = http.StatusText(res.StatusCode)
		}
		return &rowstore.OpError{Code: ae.Code, Message: ae.Message, Details: ae.Details, Hint: ae.Hint}
	default:
		return fmt.Errorf("row store: %s %s status=%d: %s", method, table, res.StatusCode, truncate(raw, 256))
	}
}

func truncate(b []byte, n int) string {
	s := strings.TrimSpace(string(b))
	if len(s) > n {
		return s[:n] + "..."
	}
	return s
}
