package stdlib_test

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/xraph/quorum/stdlib"
)

// fakeNode answers database requests with a canned envelope and the
// status probe with an empty object.
func fakeNode(t *testing.T, envelope string) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/status" {
			w.Write([]byte(`{}`))

			return
		}

		w.Write([]byte(envelope))
	}))
	t.Cleanup(srv.Close)

	return srv
}

func openDB(t *testing.T, dsn string) *sql.DB {
	t.Helper()

	db, err := sql.Open(stdlib.DriverName, dsn)
	if err != nil {
		t.Fatalf("sql.Open failed: %v", err)
	}

	t.Cleanup(func() { db.Close() })

	return db
}

func TestDriverQueryScan(t *testing.T) {
	srv := fakeNode(t, `{"results":[{"columns":["id","name","score"],"types":["integer","text","real"],"values":[[1,"ada",9.5],[2,"grace",8.25]]}]}`)
	db := openDB(t, srv.URL)

	rows, err := db.QueryContext(context.Background(), "SELECT id, name, score FROM players")
	if err != nil {
		t.Fatalf("QueryContext failed: %v", err)
	}
	defer rows.Close()

	type player struct {
		id    int64
		name  string
		score float64
	}

	var got []player

	for rows.Next() {
		var p player
		if err := rows.Scan(&p.id, &p.name, &p.score); err != nil {
			t.Fatalf("Scan failed: %v", err)
		}

		got = append(got, p)
	}

	if err := rows.Err(); err != nil {
		t.Fatalf("rows error: %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("rows = %d, want 2", len(got))
	}
	if got[0] != (player{1, "ada", 9.5}) {
		t.Errorf("first row = %+v", got[0])
	}
	if got[1] != (player{2, "grace", 8.25}) {
		t.Errorf("second row = %+v", got[1])
	}
}

func TestDriverColumnTypes(t *testing.T) {
	srv := fakeNode(t, `{"results":[{"columns":["id","name"],"types":["integer","text"],"values":[[1,"ada"]]}]}`)
	db := openDB(t, srv.URL)

	rows, err := db.Query("SELECT id, name FROM users")
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	defer rows.Close()

	types, err := rows.ColumnTypes()
	if err != nil {
		t.Fatalf("ColumnTypes failed: %v", err)
	}

	if types[0].DatabaseTypeName() != "INTEGER" {
		t.Errorf("type[0] = %q, want INTEGER", types[0].DatabaseTypeName())
	}
	if types[1].DatabaseTypeName() != "TEXT" {
		t.Errorf("type[1] = %q, want TEXT", types[1].DatabaseTypeName())
	}
}

func TestDriverExec(t *testing.T) {
	srv := fakeNode(t, `{"results":[{"last_insert_id":42,"rows_affected":1}]}`)
	db := openDB(t, srv.URL)

	res, err := db.ExecContext(context.Background(), "INSERT INTO users (name) VALUES (?)", "ada")
	if err != nil {
		t.Fatalf("ExecContext failed: %v", err)
	}

	if id, _ := res.LastInsertId(); id != 42 {
		t.Errorf("LastInsertId = %d, want 42", id)
	}
	if n, _ := res.RowsAffected(); n != 1 {
		t.Errorf("RowsAffected = %d, want 1", n)
	}
}

func TestDriverStatementError(t *testing.T) {
	srv := fakeNode(t, `{"results":[{"error":"no such table: users"}]}`)
	db := openDB(t, srv.URL)

	_, err := db.QueryContext(context.Background(), "SELECT * FROM users")
	if err == nil {
		t.Fatal("expected statement error")
	}
	if !strings.Contains(err.Error(), "no such table") {
		t.Errorf("error = %q", err)
	}
}

func TestDriverPreparedStatement(t *testing.T) {
	srv := fakeNode(t, `{"results":[{"columns":["n"],"types":["integer"],"values":[[7]]}]}`)
	db := openDB(t, srv.URL)

	stmt, err := db.Prepare("SELECT n FROM counters WHERE id = ?")
	if err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}
	defer stmt.Close()

	var n int64
	if err := stmt.QueryRow(1).Scan(&n); err != nil {
		t.Fatalf("QueryRow failed: %v", err)
	}
	if n != 7 {
		t.Errorf("n = %d, want 7", n)
	}
}

func TestDriverBeginUnsupported(t *testing.T) {
	srv := fakeNode(t, `{"results":[{}]}`)
	db := openDB(t, srv.URL)

	_, err := db.Begin()
	if !errors.Is(err, stdlib.ErrNoTransactions) {
		t.Errorf("Begin = %v, want ErrNoTransactions", err)
	}
}

func TestDriverPing(t *testing.T) {
	srv := fakeNode(t, `{"results":[{}]}`)
	db := openDB(t, srv.URL)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		t.Fatalf("PingContext failed: %v", err)
	}
}

func TestDriverNamedParametersRejected(t *testing.T) {
	srv := fakeNode(t, `{"results":[{}]}`)
	db := openDB(t, srv.URL)

	_, err := db.QueryContext(context.Background(),
		"SELECT * FROM users WHERE name = :name", sql.Named("name", "ada"))
	if err == nil {
		t.Fatal("expected error for named parameter")
	}
	if !strings.Contains(err.Error(), "named parameters") {
		t.Errorf("error = %q", err)
	}
}

func TestDriverPoolSharesConnection(t *testing.T) {
	srv := fakeNode(t, `{"results":[{"columns":["n"],"types":["integer"],"values":[[1]]}]}`)
	db := openDB(t, srv.URL)
	db.SetMaxOpenConns(4)

	ctx := context.Background()

	// Several pool slots over the same cluster connection must all work.
	for i := 0; i < 8; i++ {
		var n int64
		if err := db.QueryRowContext(ctx, "SELECT 1").Scan(&n); err != nil {
			t.Fatalf("QueryRow failed: %v", err)
		}
	}
}
