// Package db is the optional local transcript archive. Nothing is written
// unless the user configures an archive path.
package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"ollamachat/internal/models"
	_ "modernc.org/sqlite"
)

// DefaultPathName selects DefaultPath when given as the archive path.
const DefaultPathName = "default"

// DefaultPath returns the archive location under the user config dir.
func DefaultPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		homeDir, herr := os.UserHomeDir()
		if herr != nil {
			return "", err
		}
		configDir = filepath.Join(homeDir, ".config")
	}
	return filepath.Join(configDir, "ollamachat", "transcripts.db"), nil
}

// Open opens (creating if needed) the archive at path. The path "default"
// resolves to DefaultPath.
func Open(path string) (*sql.DB, error) {
	if path == DefaultPathName {
		p, err := DefaultPath()
		if err != nil {
			return nil, fmt.Errorf("resolve archive path: %w", err)
		}
		path = p
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create archive dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open archive %s: %w", path, err)
	}

	schema := []string{
		`CREATE TABLE IF NOT EXISTS messages (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL DEFAULT '',
			model_id TEXT NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_messages_model ON messages(model_id, id);`,
	}

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	return db, nil
}

func InsertMessage(db *sql.DB, sessionID string, msg models.Message, nowUnix int64) error {
	_, err := db.Exec(
		"INSERT INTO messages(session_id, model_id, role, content, created_at) VALUES(?, ?, ?, ?, ?)",
		sessionID,
		string(msg.Model),
		msg.Role,
		msg.Content,
		nowUnix,
	)
	return err
}

// RecentMessages returns up to limit of the newest archived messages for
// model, oldest first.
func RecentMessages(db *sql.DB, model models.ModelID, limit int) ([]models.ArchivedMessage, error) {
	rows, err := db.Query(
		`SELECT role, content, model_id, created_at FROM (
			SELECT id, role, content, model_id, created_at FROM messages
			WHERE model_id = ? ORDER BY id DESC LIMIT ?
		) ORDER BY id ASC`,
		string(model),
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	msgs := []models.ArchivedMessage{}
	for rows.Next() {
		var m models.ArchivedMessage
		var modelID string
		if err := rows.Scan(&m.Role, &m.Content, &modelID, &m.CreatedAtUnix); err != nil {
			return nil, err
		}
		m.Model = models.ModelID(modelID)
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return msgs, nil
}

// ArchivedModels lists every model with archived messages, most recently
// used first, together with its message count.
func ArchivedModels(db *sql.DB) ([]models.ArchiveSummary, error) {
	rows, err := db.Query(
		`SELECT model_id, COUNT(*), MAX(created_at) FROM messages
		GROUP BY model_id ORDER BY MAX(id) DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []models.ArchiveSummary{}
	for rows.Next() {
		var it models.ArchiveSummary
		var modelID string
		if err := rows.Scan(&modelID, &it.Count, &it.UpdatedAtUnix); err != nil {
			return nil, err
		}
		it.Model = models.ModelID(modelID)
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
