package hub

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
	"golang.org/x/crypto/bcrypt"

	"gitchat/internal/logging"
	"gitchat/internal/types"
)

// DB stores the hosting service's data in SQLite.
type DB struct {
	db     *sql.DB
	dbPath string
}

// Open creates or opens the hub database at path. The special path
// ":memory:" opens a private in-memory database.
func Open(path string) (*DB, error) {
	timer := logging.StartTimer(logging.CategoryHub, "hub.Open")
	defer timer.Stop()

	dsn := "file::memory:?_foreign_keys=on"
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
		dsn = path + "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Serializes writers; an in-memory database also lives only as long as
	// its single connection.
	db.SetMaxOpenConns(1)

	h := &DB{db: db, dbPath: path}
	if err := h.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	logging.Hub("opened hub database %s", path)
	return h, nil
}

// Close closes the database connection.
func (h *DB) Close() error {
	return h.db.Close()
}

// Path returns the database file path.
func (h *DB) Path() string {
	return h.dbPath
}

func (h *DB) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		login TEXT PRIMARY KEY,
		name TEXT,
		email TEXT,
		password_hash BLOB
	);

	CREATE TABLE IF NOT EXISTS repos (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		owner TEXT NOT NULL REFERENCES users(login) ON DELETE CASCADE,
		name TEXT NOT NULL,
		private INTEGER NOT NULL DEFAULT 0,
		description TEXT,
		UNIQUE(owner, name)
	);
	CREATE INDEX IF NOT EXISTS idx_repos_owner ON repos(owner);

	CREATE TABLE IF NOT EXISTS gists (
		id TEXT PRIMARY KEY,
		owner TEXT NOT NULL REFERENCES users(login) ON DELETE CASCADE,
		description TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_gists_owner ON gists(owner);

	CREATE TABLE IF NOT EXISTS follows (
		follower TEXT NOT NULL REFERENCES users(login) ON DELETE CASCADE,
		followee TEXT NOT NULL REFERENCES users(login) ON DELETE CASCADE,
		PRIMARY KEY (follower, followee)
	);

	CREATE TABLE IF NOT EXISTS stars (
		login TEXT NOT NULL REFERENCES users(login) ON DELETE CASCADE,
		repo_id INTEGER NOT NULL REFERENCES repos(id) ON DELETE CASCADE,
		PRIMARY KEY (login, repo_id)
	);
	`
	_, err := h.db.Exec(schema)
	return err
}

// =============================================================================
// WRITES
// =============================================================================

// AddUser inserts or replaces a user. An empty password leaves the user
// unable to log in.
func (h *DB) AddUser(ctx context.Context, u types.UserInfo, password string) error {
	var hash []byte
	if password != "" {
		var err error
		if hash, err = bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost); err != nil {
			return fmt.Errorf("failed to hash password: %w", err)
		}
	}
	_, err := h.db.ExecContext(ctx, `
		INSERT INTO users (login, name, email, password_hash) VALUES (?, ?, ?, ?)
		ON CONFLICT(login) DO UPDATE SET name = excluded.name, email = excluded.email,
			password_hash = excluded.password_hash`,
		u.Login, nullString(u.Name), nullString(u.Email), hash)
	if err != nil {
		return fmt.Errorf("failed to add user %s: %w", u.Login, err)
	}
	return nil
}

// AddRepo inserts a repository and returns it with its assigned ID.
func (h *DB) AddRepo(ctx context.Context, r types.RepoInfo) (types.RepoInfo, error) {
	_, err := h.db.ExecContext(ctx, `
		INSERT INTO repos (owner, name, private, description) VALUES (?, ?, ?, ?)
		ON CONFLICT(owner, name) DO UPDATE SET private = excluded.private, description = excluded.description`,
		r.Owner, r.Name, r.Private, nullString(r.Description))
	if err != nil {
		return types.RepoInfo{}, fmt.Errorf("failed to add repo %s: %w", r.FullName(), err)
	}
	return h.repo(ctx, r.Owner, r.Name)
}

// AddGist inserts or replaces a gist.
func (h *DB) AddGist(ctx context.Context, g types.GistInfo) error {
	_, err := h.db.ExecContext(ctx, `
		INSERT INTO gists (id, owner, description) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET owner = excluded.owner, description = excluded.description`,
		g.ID, g.Owner, nullString(g.Description))
	if err != nil {
		return fmt.Errorf("failed to add gist %s: %w", g.ID, err)
	}
	return nil
}

// Follow records that follower follows followee.
func (h *DB) Follow(ctx context.Context, follower, followee string) error {
	_, err := h.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO follows (follower, followee) VALUES (?, ?)`, follower, followee)
	if err != nil {
		return fmt.Errorf("failed to follow %s -> %s: %w", follower, followee, err)
	}
	return nil
}

// Star records that login starred owner/name.
func (h *DB) Star(ctx context.Context, login, owner, name string) error {
	r, err := h.repo(ctx, owner, name)
	if err != nil {
		return fmt.Errorf("failed to star %s/%s: %w", owner, name, err)
	}
	if _, err := h.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO stars (login, repo_id) VALUES (?, ?)`, login, r.ID); err != nil {
		return fmt.Errorf("failed to star %s/%s: %w", owner, name, err)
	}
	return nil
}

// =============================================================================
// READS
// =============================================================================

// Users lists every user ordered by login.
func (h *DB) Users(ctx context.Context) ([]types.UserInfo, error) {
	rows, err := h.db.QueryContext(ctx, `SELECT login, name, email FROM users ORDER BY login`)
	if err != nil {
		return nil, err
	}
	return scanUsers(rows)
}

func (h *DB) user(ctx context.Context, login string) (types.UserInfo, error) {
	var u types.UserInfo
	var name, email sql.NullString
	err := h.db.QueryRowContext(ctx, `SELECT login, name, email FROM users WHERE login = ?`, login).
		Scan(&u.Login, &name, &email)
	if errors.Is(err, sql.ErrNoRows) {
		logging.HubDebug("no user %q", login)
		return types.UserInfo{}, ErrNotFound
	}
	if err != nil {
		return types.UserInfo{}, err
	}
	u.Name, u.Email = name.String, email.String
	return u, nil
}

func (h *DB) checkPassword(ctx context.Context, login, password string) (types.UserInfo, error) {
	var hash []byte
	err := h.db.QueryRowContext(ctx, `SELECT password_hash FROM users WHERE login = ?`, login).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return types.UserInfo{}, ErrBadCredentials
	}
	if err != nil {
		return types.UserInfo{}, err
	}
	if len(hash) == 0 || bcrypt.CompareHashAndPassword(hash, []byte(password)) != nil {
		return types.UserInfo{}, ErrBadCredentials
	}
	return h.user(ctx, login)
}

const repoColumns = `id, owner, name, private, description`

// repos lists the repositories of owner. Private repositories are included
// only with withPrivate; onlyPrivate drops the public ones.
func (h *DB) repos(ctx context.Context, owner string, withPrivate, onlyPrivate bool) ([]types.RepoInfo, error) {
	query := `SELECT ` + repoColumns + ` FROM repos WHERE owner = ?`
	switch {
	case onlyPrivate:
		query += ` AND private = 1`
	case !withPrivate:
		query += ` AND private = 0`
	}
	rows, err := h.db.QueryContext(ctx, query+` ORDER BY id`, owner)
	if err != nil {
		return nil, err
	}
	return scanRepos(rows)
}

func (h *DB) repo(ctx context.Context, owner, name string) (types.RepoInfo, error) {
	rows, err := h.db.QueryContext(ctx,
		`SELECT `+repoColumns+` FROM repos WHERE owner = ? AND name = ?`, owner, name)
	if err != nil {
		return types.RepoInfo{}, err
	}
	repos, err := scanRepos(rows)
	if err != nil {
		return types.RepoInfo{}, err
	}
	if len(repos) == 0 {
		logging.HubDebug("no repo %s/%s", owner, name)
		return types.RepoInfo{}, ErrNotFound
	}
	return repos[0], nil
}

func (h *DB) starred(ctx context.Context, login, viewer string) ([]types.RepoInfo, error) {
	rows, err := h.db.QueryContext(ctx, `
		SELECT r.id, r.owner, r.name, r.private, r.description
		FROM stars s JOIN repos r ON r.id = s.repo_id
		WHERE s.login = ? AND (r.private = 0 OR r.owner = ?)
		ORDER BY r.id`, login, viewer)
	if err != nil {
		return nil, err
	}
	return scanRepos(rows)
}

func (h *DB) gists(ctx context.Context, owner string) ([]types.GistInfo, error) {
	rows, err := h.db.QueryContext(ctx,
		`SELECT id, owner, description FROM gists WHERE owner = ? ORDER BY id`, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []types.GistInfo
	for rows.Next() {
		var g types.GistInfo
		var desc sql.NullString
		if err := rows.Scan(&g.ID, &g.Owner, &desc); err != nil {
			return nil, err
		}
		g.Description = desc.String
		out = append(out, g)
	}
	return out, rows.Err()
}

func (h *DB) gist(ctx context.Context, id string) (types.GistInfo, error) {
	var g types.GistInfo
	var desc sql.NullString
	err := h.db.QueryRowContext(ctx, `SELECT id, owner, description FROM gists WHERE id = ?`, id).
		Scan(&g.ID, &g.Owner, &desc)
	if errors.Is(err, sql.ErrNoRows) {
		return types.GistInfo{}, ErrNotFound
	}
	if err != nil {
		return types.GistInfo{}, err
	}
	g.Description = desc.String
	return g, nil
}

func (h *DB) followers(ctx context.Context, login string) ([]types.UserInfo, error) {
	rows, err := h.db.QueryContext(ctx, `
		SELECT u.login, u.name, u.email FROM follows f JOIN users u ON u.login = f.follower
		WHERE f.followee = ? ORDER BY u.login`, login)
	if err != nil {
		return nil, err
	}
	return scanUsers(rows)
}

func (h *DB) following(ctx context.Context, login string) ([]types.UserInfo, error) {
	rows, err := h.db.QueryContext(ctx, `
		SELECT u.login, u.name, u.email FROM follows f JOIN users u ON u.login = f.followee
		WHERE f.follower = ? ORDER BY u.login`, login)
	if err != nil {
		return nil, err
	}
	return scanUsers(rows)
}

func scanUsers(rows *sql.Rows) ([]types.UserInfo, error) {
	defer rows.Close()
	var out []types.UserInfo
	for rows.Next() {
		var u types.UserInfo
		var name, email sql.NullString
		if err := rows.Scan(&u.Login, &name, &email); err != nil {
			return nil, err
		}
		u.Name, u.Email = name.String, email.String
		out = append(out, u)
	}
	return out, rows.Err()
}

func scanRepos(rows *sql.Rows) ([]types.RepoInfo, error) {
	defer rows.Close()
	var out []types.RepoInfo
	for rows.Next() {
		var r types.RepoInfo
		var desc sql.NullString
		if err := rows.Scan(&r.ID, &r.Owner, &r.Name, &r.Private, &desc); err != nil {
			return nil, err
		}
		r.Description = desc.String
		out = append(out, r)
	}
	return out, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
