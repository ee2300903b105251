package levels

import (
	"database/sql"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite"
)

// SQLiteProvider reads member levels from the leveling subsystem's database.
// This package never writes to it; XP and level computation happen elsewhere.
type SQLiteProvider struct {
	db *sql.DB
}

func NewSQLiteProvider(path string) (*SQLiteProvider, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, errors.Wrap(err, "creating levels database directory")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "opening levels database")
	}

	// the leveling subsystem owns this schema, creating it here only keeps a
	// fresh deployment from erroring before the first message is counted
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			user_id TEXT PRIMARY KEY,
			username TEXT NOT NULL DEFAULT '',
			xp INTEGER NOT NULL DEFAULT 0,
			level INTEGER NOT NULL DEFAULT 0
		)
	`)
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "preparing levels table")
	}

	return &SQLiteProvider{db: db}, nil
}

// Level returns the member's current level, 0 for members the leveling
// subsystem has never seen.
func (p *SQLiteProvider) Level(memberID string) (int, error) {
	var level int
	err := p.db.QueryRow(`SELECT level FROM users WHERE user_id = ?`, memberID).Scan(&level)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, errors.Wrap(err, "querying member level")
	}
	return level, nil
}

// Levels snapshots every known member's level.
func (p *SQLiteProvider) Levels() (map[string]int, error) {
	rows, err := p.db.Query(`SELECT user_id, level FROM users`)
	if err != nil {
		return nil, errors.Wrap(err, "querying member levels")
	}
	defer rows.Close()

	snapshot := make(map[string]int)
	for rows.Next() {
		var memberID string
		var level int
		if err := rows.Scan(&memberID, &level); err != nil {
			return nil, errors.Wrap(err, "scanning member level")
		}
		snapshot[memberID] = level
	}
	return snapshot, errors.Wrap(rows.Err(), "iterating member levels")
}

func (p *SQLiteProvider) Close() error {
	return p.db.Close()
}
