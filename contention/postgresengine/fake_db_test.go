package postgresengine

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/AntonStoeckl/contention-lab/contention/postgresengine/internal/adapters"
)

// fakeResponse is what the fake database answers to one statement.
type fakeResponse struct {
	rows     [][]int64
	affected int64
	err      error
}

// fakeDB is a scripted adapters.DBAdapter. Every statement is recorded; respond decides the answer.
type fakeDB struct {
	mu          sync.Mutex
	statements  []string
	respond     func(statement string) fakeResponse
	beginErr    error
	beginBlocks bool
	commitErr   error
	begins      int
	commits     int
	rollbacks   int
	txQueries   int
	lastTxState string
}

func newFakeDB(respond func(statement string) fakeResponse) *fakeDB {
	if respond == nil {
		respond = func(string) fakeResponse { return fakeResponse{} }
	}

	return &fakeDB{respond: respond}
}

// respondWithRow answers every statement containing fragment with the given pool row.
func respondWithRow(fragment string, count, version int64) func(string) fakeResponse {
	return func(statement string) fakeResponse {
		if strings.Contains(statement, fragment) {
			return fakeResponse{rows: [][]int64{{count, version}}, affected: 1}
		}

		return fakeResponse{}
	}
}

func (f *fakeDB) Query(_ context.Context, query string) (adapters.DBRows, error) {
	response := f.record(query)
	if response.err != nil {
		return nil, response.err
	}

	return &fakeRows{rows: response.rows, idx: -1}, nil
}

func (f *fakeDB) Exec(_ context.Context, query string) (adapters.DBResult, error) {
	response := f.record(query)
	if response.err != nil {
		return nil, response.err
	}

	return fakeResult{affected: response.affected}, nil
}

// Begin waits on ctx like a pool without free connections when beginBlocks is set.
func (f *fakeDB) Begin(ctx context.Context) (adapters.DBTx, error) {
	f.mu.Lock()
	blocks := f.beginBlocks
	f.mu.Unlock()

	if blocks {
		<-ctx.Done()
		return nil, ctx.Err()
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.beginErr != nil {
		return nil, f.beginErr
	}

	f.begins++

	return &fakeTx{db: f}, nil
}

func (f *fakeDB) record(query string) fakeResponse {
	f.mu.Lock()
	f.statements = append(f.statements, query)
	respond := f.respond
	f.mu.Unlock()

	return respond(query)
}

func (f *fakeDB) Statements() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]string(nil), f.statements...)
}

func (f *fakeDB) LastStatement() string {
	statements := f.Statements()
	if len(statements) == 0 {
		return ""
	}

	return statements[len(statements)-1]
}

type fakeTx struct {
	db *fakeDB
}

func (t *fakeTx) Query(ctx context.Context, query string) (adapters.DBRows, error) {
	t.db.mu.Lock()
	t.db.txQueries++
	t.db.mu.Unlock()

	return t.db.Query(ctx, query)
}

func (t *fakeTx) Exec(ctx context.Context, query string) (adapters.DBResult, error) {
	t.db.mu.Lock()
	t.db.txQueries++
	t.db.mu.Unlock()

	return t.db.Exec(ctx, query)
}

func (t *fakeTx) Commit(ctx context.Context) error {
	t.db.mu.Lock()
	defer t.db.mu.Unlock()

	if ctx.Err() != nil {
		return ctx.Err()
	}

	if t.db.commitErr != nil {
		return t.db.commitErr
	}

	t.db.commits++
	t.db.lastTxState = "committed"

	return nil
}

func (t *fakeTx) Rollback(_ context.Context) error {
	t.db.mu.Lock()
	defer t.db.mu.Unlock()

	t.db.rollbacks++
	t.db.lastTxState = "rolled back"

	return nil
}

type fakeRows struct {
	rows [][]int64
	idx  int
}

func (r *fakeRows) Next() bool {
	r.idx++
	return r.idx < len(r.rows)
}

func (r *fakeRows) Scan(dest ...any) error {
	row := r.rows[r.idx]
	if len(dest) != len(row) {
		return errors.New("column count mismatch")
	}

	for i, d := range dest {
		target, ok := d.(*int64)
		if !ok {
			return errors.New("unsupported scan destination")
		}

		*target = row[i]
	}

	return nil
}

func (r *fakeRows) Err() error {
	return nil
}

func (r *fakeRows) Close() error {
	return nil
}

type fakeResult struct {
	affected int64
}

func (r fakeResult) RowsAffected() (int64, error) {
	return r.affected, nil
}
