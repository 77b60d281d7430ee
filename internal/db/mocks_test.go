package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/mock"
)

// mockDBTX implements DBTX for repository tests.
type mockDBTX struct {
	mock.Mock
}

func (m *mockDBTX) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	callArgs := m.Called(ctx, sql, args)
	return callArgs.Get(0).(pgconn.CommandTag), callArgs.Error(1)
}

func (m *mockDBTX) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	callArgs := m.Called(ctx, sql, args)
	if rows := callArgs.Get(0); rows != nil {
		return rows.(pgx.Rows), callArgs.Error(1)
	}
	return nil, callArgs.Error(1)
}

func (m *mockDBTX) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	callArgs := m.Called(ctx, sql, args)
	return callArgs.Get(0).(pgx.Row)
}

// mockRow implements pgx.Row with a scripted Scan.
type mockRow struct {
	scanErr error
	scanFn  func(dest ...any) error
}

func (r mockRow) Scan(dest ...any) error {
	if r.scanErr != nil {
		return r.scanErr
	}
	if r.scanFn != nil {
		return r.scanFn(dest...)
	}
	return nil
}

// mockRows implements pgx.Rows over a list of scripted row scans.
type mockRows struct {
	scans  []func(dest ...any) error
	idx    int
	err    error
	closed bool
}

func (r *mockRows) Next() bool {
	if r.idx < len(r.scans) {
		r.idx++
		return true
	}
	return false
}

func (r *mockRows) Scan(dest ...any) error { return r.scans[r.idx-1](dest...) }

func (r *mockRows) Close() { r.closed = true }

func (r *mockRows) Err() error { return r.err }

func (r *mockRows) CommandTag() pgconn.CommandTag { return pgconn.CommandTag{} }

func (r *mockRows) FieldDescriptions() []pgconn.FieldDescription { return nil }

func (r *mockRows) Values() ([]any, error) { return nil, nil }

func (r *mockRows) RawValues() [][]byte { return nil }

func (r *mockRows) Conn() *pgx.Conn { return nil }
