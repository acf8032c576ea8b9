package module

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/vango-dev/docrender/internal/errors"
)

// SQLStore loads modules from a relational database.
// It works with any database/sql compatible driver and expects:
//
//	CREATE TABLE modules (
//	    id        INTEGER PRIMARY KEY,
//	    title     VARCHAR(255) NOT NULL,
//	    module    VARCHAR(100),
//	    position  VARCHAR(50),
//	    content   TEXT,
//	    showtitle SMALLINT NOT NULL DEFAULT 1,
//	    params    TEXT,
//	    ordering  INTEGER NOT NULL DEFAULT 0,
//	    access    SMALLINT NOT NULL DEFAULT 0,
//	    client_id SMALLINT NOT NULL DEFAULT 0,
//	    published SMALLINT NOT NULL DEFAULT 0
//	);
//	CREATE TABLE modules_menu (
//	    moduleid INTEGER NOT NULL,
//	    menuid   INTEGER NOT NULL DEFAULT 0
//	);
type SQLStore struct {
	db      *sql.DB
	prefix  string
	dialect SQLDialect
}

// SQLDialect represents the SQL dialect for query generation.
type SQLDialect int

const (
	// DialectPostgreSQL uses PostgreSQL syntax ($1, $2 placeholders).
	DialectPostgreSQL SQLDialect = iota
	// DialectMySQL uses MySQL syntax (? placeholders).
	DialectMySQL
	// DialectSQLite uses SQLite syntax (? placeholders).
	DialectSQLite
)

// ParseDialect maps a driver or dialect name to a SQLDialect.
func ParseDialect(name string) (SQLDialect, bool) {
	switch strings.ToLower(name) {
	case "postgres", "postgresql", "pq", "pgx":
		return DialectPostgreSQL, true
	case "mysql":
		return DialectMySQL, true
	case "sqlite", "sqlite3":
		return DialectSQLite, true
	}
	return 0, false
}

// SQLStoreOption configures SQLStore behavior.
type SQLStoreOption func(*SQLStore)

// WithSQLTablePrefix prefixes both table names (e.g. "jos_").
func WithSQLTablePrefix(prefix string) SQLStoreOption {
	return func(s *SQLStore) {
		s.prefix = prefix
	}
}

// WithSQLDialect sets the SQL dialect for query generation.
// Default: DialectPostgreSQL.
func WithSQLDialect(dialect SQLDialect) SQLStoreOption {
	return func(s *SQLStore) {
		s.dialect = dialect
	}
}

// NewSQLStore creates a store reading from db.
func NewSQLStore(db *sql.DB, opts ...SQLStoreOption) *SQLStore {
	s := &SQLStore{db: db, dialect: DialectPostgreSQL}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// placeholder returns the placeholder syntax for the dialect.
func (s *SQLStore) placeholder(n int) string {
	if s.dialect == DialectPostgreSQL {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

// listQuery builds the published-modules query and its arguments.
func (s *SQLStore) listQuery(f Filter) (string, []any) {
	var b strings.Builder
	fmt.Fprintf(&b, "SELECT m.id, m.title, m.module, m.position, m.content, m.showtitle, m.params, m.ordering, m.access, m.client_id")
	fmt.Fprintf(&b, " FROM %smodules AS m", s.prefix)
	fmt.Fprintf(&b, " LEFT JOIN %smodules_menu AS mm ON mm.moduleid = m.id", s.prefix)
	fmt.Fprintf(&b, " WHERE m.published = 1 AND m.access <= %s AND m.client_id = %s", s.placeholder(1), s.placeholder(2))

	args := []any{f.AccessLevel, f.Client}
	if f.HasMenu {
		fmt.Fprintf(&b, " AND (mm.menuid = %s OR mm.menuid = 0)", s.placeholder(3))
		args = append(args, f.MenuID)
	}
	b.WriteString(" ORDER BY m.position, m.ordering, m.id")
	return b.String(), args
}

// ListPublished implements Store. A module joined to several menu rows is
// returned once.
func (s *SQLStore) ListPublished(ctx context.Context, f Filter) ([]*Module, error) {
	query, args := s.listQuery(f)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.New("S001").Wrap(err)
	}
	defer rows.Close()

	seen := make(map[int]struct{})
	var out []*Module
	for rows.Next() {
		var (
			m                         Module
			module, position, content sql.NullString
			params                    sql.NullString
		)
		if err := rows.Scan(&m.ID, &m.Title, &module, &position, &content,
			&m.ShowTitle, &params, &m.Ordering, &m.Access, &m.Client); err != nil {
			return nil, errors.New("S001").Wrap(err)
		}
		if _, dup := seen[m.ID]; dup {
			continue
		}
		seen[m.ID] = struct{}{}

		m.Module = module.String
		m.Position = position.String
		m.Content = content.String
		m.Params = ParseParams(params.String)
		m.Published = true
		out = append(out, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.New("S001").Wrap(err)
	}
	return out, nil
}
