package cookies

import (
	"database/sql"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/unkn0wn-root/wsterm/internal/errdef"
)

const schema = `
CREATE TABLE IF NOT EXISTS jars (
	id           TEXT PRIMARY KEY,
	workspace_id TEXT NOT NULL UNIQUE,
	created_at   INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS cookies (
	jar_id    TEXT NOT NULL REFERENCES jars(id) ON DELETE CASCADE,
	name      TEXT NOT NULL,
	value     TEXT NOT NULL,
	domain    TEXT NOT NULL DEFAULT '',
	path      TEXT NOT NULL DEFAULT '',
	expires   INTEGER NOT NULL DEFAULT 0,
	secure    INTEGER NOT NULL DEFAULT 0,
	http_only INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS cookies_jar_idx ON cookies(jar_id);
`

// Store persists cookie jars in a sqlite database, one jar per workspace.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errdef.Wrap(errdef.CodeFilesystem, err, "create cookie dir")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errdef.Wrap(errdef.CodeCookies, err, "open cookie store %s", path)
	}
	if _, err := db.Exec(schema); err != nil {
		closeErr := db.Close()
		if closeErr != nil {
			return nil, errdef.Wrap(errdef.CodeCookies, err, "init cookie schema (close: %v)", closeErr)
		}
		return nil, errdef.Wrap(errdef.CodeCookies, err, "init cookie schema")
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// GetOrCreate fetches the jar for a workspace, creating an empty one on first
// use. Safe to call repeatedly; the create path races behind a mutex so two
// submits cannot mint two jars for one workspace.
func (s *Store) GetOrCreate(workspaceID string) (*Jar, error) {
	if workspaceID == "" {
		return nil, errdef.New(errdef.CodeCookies, "workspace id is empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	jar, err := s.loadLocked(workspaceID)
	if err != nil {
		return nil, err
	}
	if jar != nil {
		return jar, nil
	}

	id := uuid.NewString()
	_, err = s.db.Exec(
		"INSERT INTO jars (id, workspace_id, created_at) VALUES (?, ?, ?)",
		id, workspaceID, time.Now().Unix(),
	)
	if err != nil {
		return nil, errdef.Wrap(errdef.CodeCookies, err, "create jar for workspace %s", workspaceID)
	}
	return &Jar{ID: id, WorkspaceID: workspaceID}, nil
}

// SetCookie upserts a cookie by jar and name.
func (s *Store) SetCookie(jarID string, c Cookie) error {
	if jarID == "" || c.Name == "" {
		return errdef.New(errdef.CodeCookies, "jar id and cookie name are required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(
		"UPDATE cookies SET value = ?, domain = ?, path = ?, expires = ?, secure = ?, http_only = ? WHERE jar_id = ? AND name = ?",
		c.Value, c.Domain, c.Path, expiresUnix(c.Expires), boolInt(c.Secure), boolInt(c.HTTPOnly), jarID, c.Name,
	)
	if err != nil {
		return errdef.Wrap(errdef.CodeCookies, err, "update cookie %s", c.Name)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return errdef.Wrap(errdef.CodeCookies, err, "update cookie %s", c.Name)
	}
	if affected > 0 {
		return nil
	}
	_, err = s.db.Exec(
		"INSERT INTO cookies (jar_id, name, value, domain, path, expires, secure, http_only) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		jarID, c.Name, c.Value, c.Domain, c.Path, expiresUnix(c.Expires), boolInt(c.Secure), boolInt(c.HTTPOnly),
	)
	if err != nil {
		return errdef.Wrap(errdef.CodeCookies, err, "insert cookie %s", c.Name)
	}
	return nil
}

func (s *Store) DeleteCookie(jarID, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.Exec("DELETE FROM cookies WHERE jar_id = ? AND name = ?", jarID, name); err != nil {
		return errdef.Wrap(errdef.CodeCookies, err, "delete cookie %s", name)
	}
	return nil
}

func (s *Store) loadLocked(workspaceID string) (*Jar, error) {
	row := s.db.QueryRow("SELECT id FROM jars WHERE workspace_id = ?", workspaceID)
	var id string
	if err := row.Scan(&id); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, errdef.Wrap(errdef.CodeCookies, err, "load jar for workspace %s", workspaceID)
	}

	rows, err := s.db.Query(
		"SELECT name, value, domain, path, expires, secure, http_only FROM cookies WHERE jar_id = ? ORDER BY rowid",
		id,
	)
	if err != nil {
		return nil, errdef.Wrap(errdef.CodeCookies, err, "load cookies for jar %s", id)
	}
	defer func() {
		_ = rows.Close()
	}()

	jar := &Jar{ID: id, WorkspaceID: workspaceID}
	for rows.Next() {
		var (
			c       Cookie
			expires int64
			secure  int
			httpOnl int
		)
		if err := rows.Scan(&c.Name, &c.Value, &c.Domain, &c.Path, &expires, &secure, &httpOnl); err != nil {
			return nil, errdef.Wrap(errdef.CodeCookies, err, "scan cookie row")
		}
		if expires > 0 {
			c.Expires = time.Unix(expires, 0)
		}
		c.Secure = secure != 0
		c.HTTPOnly = httpOnl != 0
		jar.Cookies = append(jar.Cookies, c)
	}
	if err := rows.Err(); err != nil {
		return nil, errdef.Wrap(errdef.CodeCookies, err, "iterate cookie rows")
	}
	return jar, nil
}

func expiresUnix(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
