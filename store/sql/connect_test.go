package sqlstore

import (
	"context"
	"testing"
)

func TestOpenSQLiteBuildsUsableDB(t *testing.T) {
	db, err := OpenSQLite("file:connect-test?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer func() { _ = db.Close() }()

	var one int
	if err := db.NewRaw("SELECT 1").Scan(context.Background(), &one); err != nil {
		t.Fatalf("probe query: %v", err)
	}
	if one != 1 {
		t.Fatalf("probe query: got %d", one)
	}
}

func TestOpenRequiresDSN(t *testing.T) {
	if _, err := OpenSQLite("  "); err == nil {
		t.Fatal("expected sqlite dsn requirement")
	}
	if _, err := OpenPostgres(""); err == nil {
		t.Fatal("expected postgres dsn requirement")
	}
}
