package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"newsharvest/internal/domain"
	errpkg "newsharvest/internal/errors"
)

// Store is the SQLite-backed persistence collaborator: existing-URL sets,
// idempotent news persistence, per-user LLM credentials, source lookup and
// observer-token validation.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at dbPath and bootstraps the schema.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	slog.Info("store initialized", "db_path", dbPath)
	return s, nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL DEFAULT ''
		);`,
		`CREATE TABLE IF NOT EXISTS tokens (
			token TEXT PRIMARY KEY,
			user_id TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS sources (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			name TEXT NOT NULL,
			url TEXT NOT NULL,
			category TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS credentials (
			user_id TEXT PRIMARY KEY,
			api_key TEXT NOT NULL,
			endpoint TEXT NOT NULL DEFAULT '',
			model TEXT NOT NULL DEFAULT ''
		);`,
		`CREATE TABLE IF NOT EXISTS news_items (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id TEXT NOT NULL,
			source_id TEXT NOT NULL,
			source_name TEXT NOT NULL DEFAULT '',
			category TEXT NOT NULL DEFAULT '',
			title TEXT NOT NULL,
			url TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL,
			UNIQUE(user_id, url)
		);`,
	}

	for _, stmt := range schema {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// GetExistingURLs returns the set of article URLs already persisted for the
// user. The result is a read-only snapshot; callers use it as a membership
// filter.
func (s *Store) GetExistingURLs(ctx context.Context, userID string) (map[string]struct{}, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT url FROM news_items WHERE user_id = ?`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query existing urls: %w", err)
	}
	defer rows.Close()

	urls := make(map[string]struct{})
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("failed to scan url: %w", err)
		}
		urls[u] = struct{}{}
	}
	return urls, rows.Err()
}

// PersistBatch inserts the items in one transaction, skipping any URL the
// user already has. The insert is idempotent per (user, url), which is what
// resolves the duplicate-URL race between concurrent tasks of one batch.
func (s *Store) PersistBatch(ctx context.Context, items []domain.NewsItem) (saved, skipped int, err error) {
	if len(items) == 0 {
		return 0, 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO news_items
		(user_id, source_id, source_name, category, title, url, description, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, item := range items {
		createdAt := item.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}
		res, err := stmt.ExecContext(ctx,
			item.UserID, item.SourceID, item.SourceName, item.Category,
			item.Title, item.URL, item.Description, createdAt)
		if err != nil {
			return 0, 0, fmt.Errorf("failed to insert item %q: %w", item.URL, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return 0, 0, fmt.Errorf("failed to read rows affected: %w", err)
		}
		if affected > 0 {
			saved++
		} else {
			skipped++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("failed to commit batch: %w", err)
	}
	return saved, skipped, nil
}

// GetCredential returns the user's LLM credential, or nil when none is
// configured.
func (s *Store) GetCredential(ctx context.Context, userID string) (*domain.Credential, error) {
	var cred domain.Credential
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id, api_key, endpoint, model FROM credentials WHERE user_id = ?`, userID).
		Scan(&cred.UserID, &cred.APIKey, &cred.Endpoint, &cred.Model)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query credential: %w", err)
	}
	return &cred, nil
}

// SetCredential stores or replaces the user's LLM credential.
func (s *Store) SetCredential(ctx context.Context, cred *domain.Credential) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO credentials (user_id, api_key, endpoint, model) VALUES (?, ?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET api_key=excluded.api_key, endpoint=excluded.endpoint, model=excluded.model`,
		cred.UserID, cred.APIKey, cred.Endpoint, cred.Model)
	if err != nil {
		return fmt.Errorf("failed to save credential: %w", err)
	}
	return nil
}

// GetSource returns one configured source by id.
func (s *Store) GetSource(ctx context.Context, id string) (*domain.Source, error) {
	var src domain.Source
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, name, url, category, created_at FROM sources WHERE id = ?`, id).
		Scan(&src.ID, &src.UserID, &src.Name, &src.URL, &src.Category, &src.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errpkg.ErrSourceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query source: %w", err)
	}
	return &src, nil
}

// CreateSource stores a new source.
func (s *Store) CreateSource(ctx context.Context, src *domain.Source) error {
	if src.CreatedAt.IsZero() {
		src.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sources (id, user_id, name, url, category, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		src.ID, src.UserID, src.Name, src.URL, src.Category, src.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create source: %w", err)
	}
	return nil
}

// CreateUser stores a new user identity.
func (s *Store) CreateUser(ctx context.Context, id, name string) error {
	if _, err := s.db.ExecContext(ctx, `INSERT INTO users (id, name) VALUES (?, ?)`, id, name); err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// CreateToken binds an observer credential to a user identity.
func (s *Store) CreateToken(ctx context.Context, token, userID string) error {
	if _, err := s.db.ExecContext(ctx, `INSERT INTO tokens (token, user_id) VALUES (?, ?)`, token, userID); err != nil {
		return fmt.Errorf("failed to create token: %w", err)
	}
	return nil
}

// ValidateToken resolves an observer credential to a user id. It returns
// ErrInvalidToken for tokens that do not exist and ErrUnknownIdentity for
// tokens whose user record is gone.
func (s *Store) ValidateToken(ctx context.Context, token string) (string, error) {
	var userID string
	err := s.db.QueryRowContext(ctx, `SELECT user_id FROM tokens WHERE token = ?`, token).Scan(&userID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", errpkg.ErrInvalidToken
	}
	if err != nil {
		return "", fmt.Errorf("failed to query token: %w", err)
	}

	var one int
	err = s.db.QueryRowContext(ctx, `SELECT 1 FROM users WHERE id = ?`, userID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return "", errpkg.ErrUnknownIdentity
	}
	if err != nil {
		return "", fmt.Errorf("failed to query user: %w", err)
	}
	return userID, nil
}
