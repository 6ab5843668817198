package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dataforge/internal/api"
	"dataforge/internal/batch"
	"dataforge/internal/schema"
	"dataforge/internal/snapshot"
)

type fakeProc struct {
	outcome *batch.Outcome
	err     error
	gotTbl  string
	gotRaws []map[string]any
}

func (f *fakeProc) Process(_ context.Context, table string, raws []map[string]any) (*batch.Outcome, error) {
	f.gotTbl, f.gotRaws = table, raws
	return f.outcome, f.err
}

type fakeSnaps struct {
	path    string
	outcome *snapshot.RestoreOutcome
	err     error
}

func (f *fakeSnaps) Backup(context.Context, string) (string, error) { return f.path, f.err }

func (f *fakeSnaps) Restore(context.Context, string, string) (*snapshot.RestoreOutcome, error) {
	return f.outcome, f.err
}

type fakePinger struct{ err error }

func (f fakePinger) PingContext(context.Context) error { return f.err }

func newServer(proc *fakeProc, snaps *fakeSnaps, ping fakePinger) http.Handler {
	return api.NewServer(proc, snaps, ping).Router()
}

func TestIngestReturnsOutcome(t *testing.T) {
	proc := &fakeProc{outcome: &batch.Outcome{
		Table:    "customers",
		BatchID:  "b1",
		Total:    2,
		Accepted: 1,
		Rejected: 1,
		Rejections: []batch.Rejection{
			{Field: "customer_state", Constraint: "MissingRequiredField"},
		},
	}}
	h := newServer(proc, &fakeSnaps{}, fakePinger{})

	body, _ := json.Marshal(map[string]any{"records": []map[string]any{
		{"customer_id": "a"}, {"customer_id": "b"},
	}})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/tables/customers/records", bytes.NewReader(body)))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "customers", proc.gotTbl)
	assert.Len(t, proc.gotRaws, 2)

	var got batch.Outcome
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, 1, got.Accepted)
	assert.Equal(t, 1, got.Rejected)
	assert.Equal(t, "MissingRequiredField", got.Rejections[0].Constraint)
}

func TestIngestClientErrors(t *testing.T) {
	cases := []struct {
		name string
		err  error
	}{
		{"oversized batch", fmt.Errorf("%w: got 1001", batch.ErrBatchSize)},
		{"unknown table", fmt.Errorf("no table %q: %w", "ordersz", schema.ErrUnknownTable)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newServer(&fakeProc{err: tc.err}, &fakeSnaps{}, fakePinger{})

			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/tables/ordersz/records",
				bytes.NewReader([]byte(`{"records":[{"x":1}]}`))))

			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestIngestInfrastructureFailureIs503(t *testing.T) {
	h := newServer(&fakeProc{err: errors.New("connection reset")}, &fakeSnaps{}, fakePinger{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/tables/customers/records",
		bytes.NewReader([]byte(`{"records":[{"x":1}]}`))))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestIngestRejectsMalformedBody(t *testing.T) {
	h := newServer(&fakeProc{}, &fakeSnaps{}, fakePinger{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/tables/customers/records",
		bytes.NewReader([]byte(`{"records":`))))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealth(t *testing.T) {
	h := newServer(&fakeProc{}, &fakeSnaps{}, fakePinger{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	h = newServer(&fakeProc{}, &fakeSnaps{}, fakePinger{err: errors.New("down")})
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestBackupReturnsSnapshotPath(t *testing.T) {
	h := newServer(&fakeProc{}, &fakeSnaps{path: "/var/backups/sellers_20240501T120000Z.arrow"}, fakePinger{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/tables/sellers/backup", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var got map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, "sellers", got["table"])
	assert.Contains(t, got["snapshot"], "sellers_")
}

func TestRestore(t *testing.T) {
	snaps := &fakeSnaps{outcome: &snapshot.RestoreOutcome{
		Table:      "sellers",
		Rows:       42,
		Snapshot:   "/var/backups/sellers.arrow",
		BackedUpAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}}
	h := newServer(&fakeProc{}, snaps, fakePinger{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/tables/sellers/restore",
		bytes.NewReader([]byte(`{"snapshot":"/var/backups/sellers.arrow"}`))))

	require.Equal(t, http.StatusOK, rec.Code)
	var got snapshot.RestoreOutcome
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, 42, got.Rows)
}

func TestRestoreClientErrors(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{
			"snapshot for another table",
			fmt.Errorf("restore customers: snapshot sellers_x.arrow holds table %q: %w", "sellers", snapshot.ErrTableMismatch),
			http.StatusBadRequest,
		},
		{
			"snapshot file missing",
			fmt.Errorf("restore sellers: %w", fs.ErrNotExist),
			http.StatusNotFound,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newServer(&fakeProc{}, &fakeSnaps{err: tc.err}, fakePinger{})

			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/tables/sellers/restore",
				bytes.NewReader([]byte(`{"snapshot":"/var/backups/sellers.arrow"}`))))

			assert.Equal(t, tc.want, rec.Code)
		})
	}
}

func TestRestoreRequiresSnapshotPath(t *testing.T) {
	h := newServer(&fakeProc{}, &fakeSnaps{}, fakePinger{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/tables/sellers/restore",
		bytes.NewReader([]byte(`{}`))))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
