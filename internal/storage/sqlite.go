package storage

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"log/slog"

	"github.com/mattn/go-sqlite3"

	"github.com/JamesPrial/komikshub-bot/pkg/catalog"
	"github.com/JamesPrial/komikshub-bot/pkg/errors"
)

type SqliteBackend struct {
	db *sql.DB
	instrument
}

const characterColumns = `id, name, publisher, universe, type, description, post_link, art_link, created_at`

// NewSqliteBackend creates a new SQLite backend with the specified database path and WAL mode setting
func NewSqliteBackend(dbPath string, walMode bool) (*SqliteBackend, error) {
	connStr := dbPath
	if walMode {
		connStr += "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000"
	} else {
		connStr += "?_synchronous=FULL&_busy_timeout=5000"
	}

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorageConnection, "failed to open database")
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, errors.ErrCodeStorageConnection, "failed to ping database")
	}

	backend := &SqliteBackend{db: db, instrument: newInstrument("sqlite")}
	if err := backend.initSchema(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, errors.ErrCodeStorageInitialization, "failed to initialize schema")
	}

	backend.logger.Info("Opened sqlite backend", slog.String("path", dbPath), slog.Bool("wal", walMode))
	return backend, nil
}

// initSchema creates the necessary tables for the database
func (s *SqliteBackend) initSchema() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS characters (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		name_key TEXT NOT NULL UNIQUE,
		publisher TEXT NOT NULL DEFAULT '',
		universe TEXT NOT NULL DEFAULT '',
		type TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		post_link TEXT NOT NULL DEFAULT '',
		art_link TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_characters_type ON characters(type);
	`)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCharacter(row rowScanner) (catalog.Character, error) {
	var c catalog.Character
	err := row.Scan(&c.ID, &c.Name, &c.Publisher, &c.Universe, &c.Type,
		&c.Description, &c.PostLink, &c.ArtLink, &c.CreatedAt)
	return c, err
}

func (s *SqliteBackend) queryCharacters(ctx context.Context, query string, args ...any) ([]catalog.Character, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorageInvalidQuery, "failed to query characters")
	}
	defer rows.Close()

	out := []catalog.Character{}
	for rows.Next() {
		c, err := scanCharacter(rows)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeStorageInvalidQuery, "failed to scan character")
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorageInvalidQuery, "error iterating over rows")
	}
	return out, nil
}

func (s *SqliteBackend) queryCharacter(ctx context.Context, query string, args ...any) (*catalog.Character, error) {
	c, err := scanCharacter(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrap(err, errors.ErrCodeStorageInvalidQuery, "failed to scan character")
	}
	return &c, nil
}

// ListCharacters returns every character in insertion order
func (s *SqliteBackend) ListCharacters(ctx context.Context) (_ []catalog.Character, err error) {
	defer s.start(ctx, "listCharacters")(&err)
	return s.queryCharacters(ctx, `SELECT `+characterColumns+` FROM characters ORDER BY rowid`)
}

// GetCharacter retrieves a single character by ID
func (s *SqliteBackend) GetCharacter(ctx context.Context, id string) (_ *catalog.Character, err error) {
	defer s.start(ctx, "getCharacter")(&err)
	return s.queryCharacter(ctx, `SELECT `+characterColumns+` FROM characters WHERE id = ?`, id)
}

// GetCharacterByName retrieves a character by its case-insensitive name
func (s *SqliteBackend) GetCharacterByName(ctx context.Context, name string) (_ *catalog.Character, err error) {
	defer s.start(ctx, "getCharacterByName")(&err)
	return s.queryCharacter(ctx, `SELECT `+characterColumns+` FROM characters WHERE name_key = ?`, catalog.NameKey(name))
}

// RandomCharacters returns up to n distinct characters
func (s *SqliteBackend) RandomCharacters(ctx context.Context, n int) (_ []catalog.Character, err error) {
	defer s.start(ctx, "randomCharacters")(&err)
	if n < 0 {
		return nil, errors.Newf(errors.ErrCodeValidationRange, "cannot pick %d characters", n)
	}
	return s.queryCharacters(ctx, `SELECT `+characterColumns+` FROM characters ORDER BY RANDOM() LIMIT ?`, n)
}

// InsertCharacter stores a new character inside a transaction
func (s *SqliteBackend) InsertCharacter(ctx context.Context, c catalog.Character) (_ catalog.Character, err error) {
	defer s.start(ctx, "insertCharacter")(&err)

	c, err = prepareInsert(c)
	if err != nil {
		return catalog.Character{}, err
	}
	key := catalog.NameKey(c.Name)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return catalog.Character{}, errors.Wrap(err, errors.ErrCodeStorageTransaction, "failed to begin transaction")
	}
	defer tx.Rollback()

	var existing int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM characters WHERE name_key = ?`, key).Scan(&existing); err != nil {
		return catalog.Character{}, errors.Wrap(err, errors.ErrCodeStorageInvalidQuery, "failed to check for duplicates")
	}
	if existing > 0 {
		return catalog.Character{}, errors.Newf(errors.ErrCodeEntityAlreadyExists, "character '%s' already exists", c.Name)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO characters (id, name, name_key, publisher, universe, type, description, post_link, art_link, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return catalog.Character{}, errors.Wrap(err, errors.ErrCodeStorageInvalidQuery, "failed to prepare statement")
	}
	defer stmt.Close()

	if _, err := stmt.ExecContext(ctx, c.ID, c.Name, key, c.Publisher, c.Universe, c.Type,
		c.Description, c.PostLink, c.ArtLink, c.CreatedAt); err != nil {
		return catalog.Character{}, mapInsertError(err, c.Name)
	}
	if err := tx.Commit(); err != nil {
		return catalog.Character{}, errors.Wrap(err, errors.ErrCodeStorageTransaction, "failed to commit character")
	}

	s.logger.InfoContext(ctx, "Character stored in sqlite",
		slog.String("character_id", c.ID),
		slog.String("name", c.Name),
	)
	return c, nil
}

// mapInsertError turns a unique-constraint violation into
// ENTITY_ALREADY_EXISTS; another writer may have won the race.
func mapInsertError(err error, name string) error {
	var sqliteErr sqlite3.Error
	if stderrors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
		if sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique || sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey {
			return errors.Wrapf(err, errors.ErrCodeEntityAlreadyExists, "character '%s' already exists", name)
		}
		return errors.Wrap(err, errors.ErrCodeStorageConstraint, "constraint violated")
	}
	return errors.Wrap(err, errors.ErrCodeStorageTransaction, "failed to insert character")
}

// GetStatistics returns statistics about the characters in the database
func (s *SqliteBackend) GetStatistics(ctx context.Context) (_ map[string]int, err error) {
	defer s.start(ctx, "getStatistics")(&err)

	stats := make(map[string]int)
	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM characters").Scan(&total); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorageInvalidQuery, "failed to count characters")
	}
	stats["characters"] = total

	rows, err := s.db.QueryContext(ctx, `SELECT type, COUNT(*) FROM characters WHERE type != '' GROUP BY type`)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorageInvalidQuery, "failed to count characters by type")
	}
	defer rows.Close()

	for rows.Next() {
		var charType string
		var count int
		if err := rows.Scan(&charType, &count); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeStorageInvalidQuery, "failed to scan type count")
		}
		stats[fmt.Sprintf("type_%s", charType)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorageInvalidQuery, "error iterating over type rows")
	}
	return stats, nil
}

// Close closes the database connection
func (s *SqliteBackend) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
