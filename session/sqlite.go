package session

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/schedbot/schedbot/core"
	_ "modernc.org/sqlite"
)

// SQLiteStore is a SQLite-backed SessionStore that survives process
// restarts. Turn ordering is preserved via an autoincrement sequence column.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at dbPath and applies the
// schema.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return store, nil
}

// migrate creates the database schema.
func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS turns (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		turn_id TEXT NOT NULL,
		session_id TEXT NOT NULL,
		role TEXT NOT NULL,
		parts TEXT NOT NULL,
		timestamp TIMESTAMP NOT NULL,
		FOREIGN KEY (session_id) REFERENCES sessions(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_turns_session ON turns(session_id, seq);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Get loads the session's turns in append order. An unknown id yields an
// empty session; nothing is written until the first append.
func (s *SQLiteStore) Get(sessionID string) (*core.Session, error) {
	rows, err := s.db.Query(
		`SELECT turn_id, role, parts, timestamp FROM turns WHERE session_id = ? ORDER BY seq`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("query turns: %w", err)
	}
	defer rows.Close()

	sess := core.NewSession(sessionID)
	for rows.Next() {
		var (
			turnID, role, partsJSON string
			ts                      time.Time
		)
		if err := rows.Scan(&turnID, &role, &partsJSON, &ts); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		parts, err := decodeParts(partsJSON)
		if err != nil {
			return nil, fmt.Errorf("decode turn %s: %w", turnID, err)
		}
		sess.AddTurn(core.Turn{
			ID:        turnID,
			Role:      role,
			Content:   core.Content{Role: role, Parts: parts},
			Timestamp: ts,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate turns: %w", err)
	}
	return sess, nil
}

// AppendTurn persists a turn, creating the session row on first use.
func (s *SQLiteStore) AppendTurn(sessionID string, t core.Turn) error {
	partsJSON, err := encodeParts(t.Content.Parts)
	if err != nil {
		return fmt.Errorf("encode turn: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	_, err = tx.Exec(
		`INSERT INTO sessions (id, created_at, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET updated_at = excluded.updated_at`,
		sessionID, now, now,
	)
	if err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}

	_, err = tx.Exec(
		`INSERT INTO turns (turn_id, session_id, role, parts, timestamp) VALUES (?, ?, ?, ?, ?)`,
		t.ID, sessionID, t.Role, partsJSON, t.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert turn: %w", err)
	}

	return tx.Commit()
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error { return s.db.Close() }

// storedPart is the tagged serialization of a core.Part. The closed part set
// maps onto one of three shapes.
type storedPart struct {
	Type     string                 `json:"type"` // text, function_call, function_response
	Text     string                 `json:"text,omitempty"`
	Call     *core.FunctionCall     `json:"call,omitempty"`
	Response *core.FunctionResponse `json:"response,omitempty"`
}

func encodeParts(parts []core.Part) (string, error) {
	stored := make([]storedPart, 0, len(parts))
	for _, p := range parts {
		switch part := p.(type) {
		case core.TextPart:
			stored = append(stored, storedPart{Type: "text", Text: part.Text})
		case core.FunctionCallPart:
			call := part.FunctionCall
			stored = append(stored, storedPart{Type: "function_call", Call: &call})
		case core.FunctionResponsePart:
			resp := part.FunctionResponse
			stored = append(stored, storedPart{Type: "function_response", Response: &resp})
		default:
			return "", fmt.Errorf("unknown part type %T", p)
		}
	}
	data, err := json.Marshal(stored)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func decodeParts(data string) ([]core.Part, error) {
	var stored []storedPart
	if err := json.Unmarshal([]byte(data), &stored); err != nil {
		return nil, err
	}
	parts := make([]core.Part, 0, len(stored))
	for _, sp := range stored {
		switch sp.Type {
		case "text":
			parts = append(parts, core.TextPart{Text: sp.Text})
		case "function_call":
			if sp.Call == nil {
				return nil, fmt.Errorf("function_call part missing payload")
			}
			parts = append(parts, core.FunctionCallPart{FunctionCall: *sp.Call})
		case "function_response":
			if sp.Response == nil {
				return nil, fmt.Errorf("function_response part missing payload")
			}
			parts = append(parts, core.FunctionResponsePart{FunctionResponse: *sp.Response})
		default:
			return nil, fmt.Errorf("unknown stored part type %q", sp.Type)
		}
	}
	return parts, nil
}
