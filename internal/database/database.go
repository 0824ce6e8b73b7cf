package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"

	"github.com/tahcohcat/gamify-web/internal/logger"
)

type DB struct {
	*sqlx.DB
}

// NewDB opens the SQLite database at path and creates the schema.
// Transactions take the write lock when they begin (_txlock=immediate), so
// two mutations of the same progress row cannot both read a stale value.
func NewDB(path string) (*DB, error) {
	if path == "" {
		path = "gamify.db"
	}

	dsn := path
	if !strings.Contains(dsn, "?") {
		dsn += "?_foreign_keys=on&_busy_timeout=5000&_txlock=immediate"
	}

	db, err := sqlx.Connect("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	dbWrapper := &DB{DB: db}

	if err := dbWrapper.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	logger.New().With("path", path).Debug("Database connection established and tables initialized")
	return dbWrapper, nil
}

// createTables creates the necessary database tables
func (db *DB) createTables() error {
	usersTable := `
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT UNIQUE NOT NULL,
		email TEXT UNIQUE NOT NULL,
		password_hash TEXT NOT NULL,
		display_name TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		last_login_at DATETIME,
		is_active BOOLEAN DEFAULT TRUE
	);`

	progressTable := `
	CREATE TABLE IF NOT EXISTS user_progress (
		user_id INTEGER PRIMARY KEY,
		total_xp INTEGER NOT NULL DEFAULT 0 CHECK (total_xp >= 0),
		level INTEGER NOT NULL DEFAULT 0 CHECK (level >= 0),
		points INTEGER NOT NULL DEFAULT 0 CHECK (points >= 0),
		streak_count INTEGER NOT NULL DEFAULT 0 CHECK (streak_count >= 0),
		last_activity_date TEXT NOT NULL DEFAULT '',
		actions_completed INTEGER NOT NULL DEFAULT 0,
		version INTEGER NOT NULL DEFAULT 0,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	);`

	questsTable := `
	CREATE TABLE IF NOT EXISTS quest_completions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		quest_type TEXT NOT NULL,
		period_key TEXT NOT NULL,
		xp_awarded INTEGER NOT NULL,
		points_awarded INTEGER NOT NULL,
		completed_at DATETIME NOT NULL,
		UNIQUE (user_id, quest_type, period_key),
		FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	);`

	achievementsTable := `
	CREATE TABLE IF NOT EXISTS achievements (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		icon TEXT NOT NULL DEFAULT '',
		xp_reward INTEGER NOT NULL DEFAULT 0,
		points_reward INTEGER NOT NULL DEFAULT 0,
		requirement_type TEXT NOT NULL,
		threshold INTEGER NOT NULL,
		rule TEXT NOT NULL DEFAULT '',
		position INTEGER NOT NULL DEFAULT 0
	);`

	unlockedTable := `
	CREATE TABLE IF NOT EXISTS unlocked_achievements (
		user_id INTEGER NOT NULL,
		achievement_id TEXT NOT NULL,
		unlocked_at DATETIME NOT NULL,
		PRIMARY KEY (user_id, achievement_id),
		FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE,
		FOREIGN KEY (achievement_id) REFERENCES achievements(id)
	);`

	dailyTable := `
	CREATE TABLE IF NOT EXISTS daily_activity (
		user_id INTEGER NOT NULL,
		date TEXT NOT NULL,
		actions_completed INTEGER NOT NULL DEFAULT 0,
		quests_completed INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (user_id, date),
		FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	);`

	activitiesTable := `
	CREATE TABLE IF NOT EXISTS activities (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		type TEXT NOT NULL,
		title TEXT NOT NULL,
		details TEXT NOT NULL DEFAULT '',
		icon TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL,
		FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	);`

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_users_username ON users(username);`,
		`CREATE INDEX IF NOT EXISTS idx_users_email ON users(email);`,
		`CREATE INDEX IF NOT EXISTS idx_quests_user ON quest_completions(user_id, quest_type);`,
		`CREATE INDEX IF NOT EXISTS idx_activities_user ON activities(user_id, created_at);`,
	}

	for _, query := range []string{usersTable, progressTable, questsTable, achievementsTable, unlockedTable, dailyTable, activitiesTable} {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	for _, index := range indexes {
		if _, err := db.Exec(index); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	return nil
}

// WithTx runs fn inside a transaction, committing when fn returns nil.
func (db *DB) WithTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.New().WithError(rbErr).Warn("Failed to roll back transaction")
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// IsUniqueViolation reports whether err came from a UNIQUE or PRIMARY KEY
// constraint.
func IsUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

// IsForeignKeyViolation reports whether err came from a FOREIGN KEY constraint.
func IsForeignKeyViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintForeignKey
	}
	return false
}

// IsBusy reports whether err is a lock timeout; the operation can be retried.
func IsBusy(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked
	}
	return false
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.DB.Close()
}
