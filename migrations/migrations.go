package migrations

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"strings"
)

const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)

//go:embed sql/*.up.sql sql/sqlite/*.up.sql
var migrationsFS embed.FS

// FS returns the embedded migration tree. The root holds the postgres schema
// and sql/sqlite holds the dialect alternative.
func FS() fs.FS {
	return migrationsFS
}

type FilesystemSpec struct {
	Dialect string
	Path    string
	FS      fs.FS
}

type Registration struct {
	SourceLabel string
	Filesystems []FilesystemSpec
}

// RegisterFunc is implemented by the host application's migration runner.
type RegisterFunc func(ctx context.Context, dialect string, sourceLabel string, fsys fs.FS) error

type Option func(*Registration)

func WithSourceLabel(label string) Option {
	return func(r *Registration) {
		trimmed := strings.TrimSpace(label)
		if trimmed != "" {
			r.SourceLabel = trimmed
		}
	}
}

// Filesystems resolves the per-dialect migration filesystems from the
// embedded tree.
func Filesystems() ([]FilesystemSpec, error) {
	base, err := fs.Sub(migrationsFS, "sql")
	if err != nil {
		return nil, fmt.Errorf("migrations: resolve base filesystem: %w", err)
	}
	sqliteFS, err := fs.Sub(base, "sqlite")
	if err != nil {
		return nil, fmt.Errorf("migrations: resolve sqlite filesystem: %w", err)
	}

	filesystems := []FilesystemSpec{
		{Dialect: DialectPostgres, Path: "sql", FS: base},
		{Dialect: DialectSQLite, Path: "sql/sqlite", FS: sqliteFS},
	}
	for _, fsys := range filesystems {
		matches, globErr := fs.Glob(fsys.FS, "*.up.sql")
		if globErr != nil {
			return nil, fmt.Errorf("migrations: glob %s %s: %w", fsys.Dialect, fsys.Path, globErr)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("migrations: %s filesystem %q has no *.up.sql files", fsys.Dialect, fsys.Path)
		}
	}
	return filesystems, nil
}

// Register hands every dialect filesystem to the host's migration runner.
func Register(ctx context.Context, registerFn RegisterFunc, opts ...Option) (Registration, error) {
	reg := Registration{SourceLabel: "engageninja-messaging"}
	if registerFn == nil {
		return reg, fmt.Errorf("migrations: register function is required")
	}

	filesystems, err := Filesystems()
	if err != nil {
		return reg, err
	}
	reg.Filesystems = filesystems

	for _, opt := range opts {
		if opt != nil {
			opt(&reg)
		}
	}

	for _, fsys := range reg.Filesystems {
		if err := registerFn(ctx, fsys.Dialect, reg.SourceLabel, fsys.FS); err != nil {
			return reg, fmt.Errorf("migrations: register %s migrations: %w", fsys.Dialect, err)
		}
	}
	return reg, nil
}
