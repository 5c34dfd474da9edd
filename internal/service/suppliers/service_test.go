package suppliers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmehdipour/supplier-risk/internal/model"
	"github.com/jmehdipour/supplier-risk/internal/rowstore"
	"github.com/jmehdipour/supplier-risk/internal/rowstore/memstore"
)

var fixedNow = time.Date(2026, 10, 17, 9, 30, 0, 123456789, time.UTC)

func seeded(t *testing.T) (*Service, *memstore.Store) {
	t.Helper()
	store := memstore.New()
	store.Seed(DefaultTable, model.Record{
		"id":        model.String("sup-42"),
		"riskScore": model.Int(3),
		"name":      model.String("Acme"),
	})
	return New(rowstore.Static(store), "", WithClock(func() time.Time { return fixedNow })), store
}

func requireKind(t *testing.T, err error, kind Kind) *Error {
	t.Helper()
	var se *Error
	require.ErrorAs(t, err, &se)
	require.Equal(t, kind, se.Kind, se.Message)
	return se
}

func TestUpdateMergesAndStampsUpdatedAt(t *testing.T) {
	svc, _ := seeded(t)

	rec, err := svc.Update(context.Background(), "sup-42", model.Fields{"riskScore": model.Int(7)})
	require.NoError(t, err)

	assert.Equal(t, "sup-42", rec.ID())
	assert.True(t, rec["riskScore"].Equal(model.Int(7)))
	assert.True(t, rec["name"].Equal(model.String("Acme")))
	assert.Equal(t, fixedNow.Truncate(time.Millisecond), rec[model.FieldUpdatedAt].Time())
}

func TestUpdateOverridesCallerUpdatedAt(t *testing.T) {
	svc, _ := seeded(t)

	rec, err := svc.Update(context.Background(), "sup-42", model.Fields{
		model.FieldUpdatedAt: model.String("1999-01-01T00:00:00.000Z"),
	})
	require.NoError(t, err)
	assert.Equal(t, model.KindTime, rec[model.FieldUpdatedAt].Kind())
}

func TestUpdateEmptyPatchRefreshesUpdatedAt(t *testing.T) {
	svc, _ := seeded(t)

	for _, updates := range []model.Fields{{}, nil} {
		rec, err := svc.Update(context.Background(), "sup-42", updates)
		require.NoError(t, err)
		assert.False(t, rec[model.FieldUpdatedAt].Time().IsZero())
		assert.True(t, rec["riskScore"].Equal(model.Int(3)))
	}
}

func TestUpdateUnknownIDIsNotFound(t *testing.T) {
	svc, store := seeded(t)

	_, err := svc.Update(context.Background(), "nope", model.Fields{"riskScore": model.Int(1)})
	se := requireKind(t, err, KindNotFound)
	assert.Equal(t, "Fornecedor com ID nope não encontrado", se.Message)
	assert.Equal(t, http.StatusNotFound, se.Kind.Status())

	_, err = store.Get(context.Background(), DefaultTable, "nope")
	assert.ErrorIs(t, err, rowstore.ErrNotFound, "update must never create a row")
}

func TestUpdateUnavailableHandle(t *testing.T) {
	var calls int
	p := rowstore.NewProvider(func(context.Context) (rowstore.Client, error) {
		calls++
		return nil, errors.New("missing service role key")
	})
	svc := New(p, "")

	for _, id := range []string{"sup-42", "", "whatever"} {
		_, err := svc.Update(context.Background(), id, model.Fields{"a": model.Int(1)})
		se := requireKind(t, err, KindUnavailable)
		assert.Equal(t, "Cliente Supabase Admin não disponível", se.Message)
		assert.Equal(t, http.StatusInternalServerError, se.Kind.Status())
		assert.ErrorIs(t, err, rowstore.ErrUnavailable)
	}
	assert.Equal(t, 3, calls, "construction failures are retried on every call")
}

func TestUpdateStoreErrorIsClientErrorAndMutatesNothing(t *testing.T) {
	svc, store := seeded(t)

	_, err := svc.Update(context.Background(), "sup-42", model.Fields{"id": model.String("other")})
	se := requireKind(t, err, KindClient)
	assert.Equal(t, `column "id" cannot be updated`, se.Message)
	assert.Equal(t, http.StatusBadRequest, se.Kind.Status())

	rec, err := store.Get(context.Background(), DefaultTable, "sup-42")
	require.NoError(t, err)
	_, stamped := rec[model.FieldUpdatedAt]
	assert.False(t, stamped)
}

func TestUpdateRepeatingOwnIDIsAllowed(t *testing.T) {
	svc, _ := seeded(t)

	rec, err := svc.Update(context.Background(), "sup-42", model.Fields{
		"id":        model.String("sup-42"),
		"riskScore": model.Int(5),
	})
	require.NoError(t, err)
	assert.Equal(t, "sup-42", rec.ID())
	assert.True(t, rec["riskScore"].Equal(model.Int(5)))
}

type stubClient struct {
	update func() ([]model.Record, error)
}

func (c stubClient) Update(context.Context, string, string, model.Fields) ([]model.Record, error) {
	return c.update()
}

func (stubClient) Insert(context.Context, string, model.Fields) (model.Record, error) {
	return nil, errors.New("not implemented")
}

func (stubClient) Get(context.Context, string, string) (model.Record, error) {
	return nil, rowstore.ErrNotFound
}

func TestUpdateUnexpectedFailures(t *testing.T) {
	tests := []struct {
		name   string
		update func() ([]model.Record, error)
		want   string
	}{
		{
			name:   "transport error",
			update: func() ([]model.Record, error) { return nil, errors.New("dial tcp: connection refused") },
			want:   "dial tcp: connection refused",
		},
		{
			name:   "empty message",
			update: func() ([]model.Record, error) { return nil, errors.New("") },
			want:   "Erro desconhecido",
		},
		{
			name:   "panic",
			update: func() ([]model.Record, error) { panic("boom") },
			want:   "boom",
		},
		{
			name:   "panic without message",
			update: func() ([]model.Record, error) { panic(errors.New("")) },
			want:   "Erro desconhecido",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := New(rowstore.Static(stubClient{update: tt.update}), "")
			_, err := svc.Update(context.Background(), "sup-42", nil)
			se := requireKind(t, err, KindInternal)
			assert.Equal(t, tt.want, se.Message)
		})
	}
}

func TestConcurrentDisjointUpdatesBothLand(t *testing.T) {
	svc, store := seeded(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			field := fmt.Sprintf("answer_%d", i)
			_, err := svc.Update(context.Background(), "sup-42", model.Fields{field: model.Int(int64(i))})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	rec, err := store.Get(context.Background(), DefaultTable, "sup-42")
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		assert.True(t, rec[fmt.Sprintf("answer_%d", i)].Equal(model.Int(int64(i))))
	}
}

func TestCreateStampsAndAssignsID(t *testing.T) {
	svc, _ := seeded(t)

	rec, err := svc.Create(context.Background(), model.Fields{
		"name":          model.String("Beta Ltda"),
		"contact_email": model.String("dpo@beta.example"),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, rec.ID())
	assert.Equal(t, fixedNow.Truncate(time.Millisecond), rec[model.FieldCreatedAt].Time())
	assert.Equal(t, rec[model.FieldCreatedAt].Time(), rec[model.FieldUpdatedAt].Time())

	got, err := svc.Get(context.Background(), rec.ID())
	require.NoError(t, err)
	assert.True(t, got["name"].Equal(model.String("Beta Ltda")))
}

func TestCreateValidation(t *testing.T) {
	svc, _ := seeded(t)

	_, err := svc.Create(context.Background(), model.Fields{"cnpj": model.String("00.000.000/0001-00")})
	requireKind(t, err, KindClient)

	_, err = svc.Create(context.Background(), model.Fields{
		"name":          model.String("Gamma"),
		"contact_email": model.String("not-an-email"),
	})
	requireKind(t, err, KindClient)

	_, err = svc.Create(context.Background(), model.Fields{"id": model.String("sup-42"), "name": model.String("Dup")})
	requireKind(t, err, KindClient)
}

func TestGetUnknownIsNotFound(t *testing.T) {
	svc, _ := seeded(t)

	_, err := svc.Get(context.Background(), "missing")
	se := requireKind(t, err, KindNotFound)
	assert.Contains(t, se.Message, "missing")
}
