// Package persistence stores save games, the event ledger and monthly
// statements in SQLite, and exports compressed snapshot files.
package persistence

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/umuterturk/investment-game/internal/clock"
	"github.com/umuterturk/investment-game/internal/engine"
)

// ErrNoSave is returned when a slot has never been saved.
var ErrNoSave = errors.New("no saved game")

// DB wraps a SQLite connection for game persistence.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// One connection keeps :memory: databases alive and writes serialized.
	conn.SetMaxOpenConns(1)

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS saves (
		slot TEXT PRIMARY KEY,
		game_id TEXT NOT NULL,
		dataset TEXT NOT NULL,
		game_date TEXT NOT NULL,
		age INTEGER NOT NULL,
		cash REAL NOT NULL,
		net_worth REAL NOT NULL,
		happiness REAL NOT NULL,
		state_json TEXT NOT NULL,
		saved_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS ledger (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		slot TEXT NOT NULL,
		seq INTEGER NOT NULL,
		tick INTEGER NOT NULL,
		game_date TEXT NOT NULL,
		category TEXT NOT NULL,
		description TEXT NOT NULL,
		meta_json TEXT,
		UNIQUE(slot, seq)
	);

	CREATE TABLE IF NOT EXISTS statements (
		slot TEXT NOT NULL,
		game_date TEXT NOT NULL,
		net REAL NOT NULL,
		cash REAL NOT NULL,
		net_worth REAL NOT NULL,
		statement_json TEXT NOT NULL,
		PRIMARY KEY (slot, game_date)
	);

	CREATE TABLE IF NOT EXISTS game_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_ledger_slot ON ledger(slot, seq);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// SaveInfo is one row of the save list.
type SaveInfo struct {
	Slot      string  `db:"slot" json:"slot"`
	GameID    string  `db:"game_id" json:"game_id"`
	Dataset   string  `db:"dataset" json:"dataset"`
	GameDate  string  `db:"game_date" json:"game_date"`
	Age       int     `db:"age" json:"age"`
	Cash      float64 `db:"cash" json:"cash"`
	NetWorth  float64 `db:"net_worth" json:"net_worth"`
	Happiness float64 `db:"happiness" json:"happiness"`
	SavedAt   string  `db:"saved_at" json:"saved_at"`
}

// SaveGame replaces the slot's state and appends new events to its
// ledger in one transaction. netWorth is recorded for the save list.
func (db *DB) SaveGame(slot string, st engine.State, netWorth float64) error {
	raw, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	gameID := uuid.NewString()
	if err := tx.Get(&gameID, "SELECT game_id FROM saves WHERE slot = ?", slot); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return err
	}

	_, err = tx.Exec(`INSERT OR REPLACE INTO saves
		(slot, game_id, dataset, game_date, age, cash, net_worth, happiness, state_json, saved_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		slot, gameID, st.Dataset, st.Clock.Date.String(), st.Clock.Age,
		st.Player.Cash, netWorth, st.Player.Happiness.Total,
		string(raw), time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("save state: %w", err)
	}

	if err := appendLedger(tx, slot, st.Events); err != nil {
		return fmt.Errorf("save ledger: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	slog.Info("game saved", "slot", slot, "date", st.Clock.Date, "events", len(st.Events))
	return nil
}

func appendLedger(tx *sqlx.Tx, slot string, events []engine.Event) error {
	if len(events) == 0 {
		return nil
	}
	stmt, err := tx.Preparex(`INSERT OR IGNORE INTO ledger
		(slot, seq, tick, game_date, category, description, meta_json)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, e := range events {
		var meta []byte
		if len(e.Meta) > 0 {
			meta, _ = json.Marshal(e.Meta)
		}
		if _, err := stmt.Exec(slot, e.Seq, e.Tick, e.Date.String(), e.Category, e.Description, string(meta)); err != nil {
			return err
		}
	}
	return nil
}

// LoadGame returns the state saved in slot.
func (db *DB) LoadGame(slot string) (engine.State, error) {
	var st engine.State
	var raw string
	err := db.conn.Get(&raw, "SELECT state_json FROM saves WHERE slot = ?", slot)
	if errors.Is(err, sql.ErrNoRows) {
		return st, fmt.Errorf("slot %q: %w", slot, ErrNoSave)
	}
	if err != nil {
		return st, err
	}
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		return st, fmt.Errorf("decode state: %w", err)
	}
	return st, nil
}

// HasSave reports whether slot holds a saved game.
func (db *DB) HasSave(slot string) bool {
	var n int
	if err := db.conn.Get(&n, "SELECT COUNT(*) FROM saves WHERE slot = ?", slot); err != nil {
		return false
	}
	return n > 0
}

// ListSaves returns every slot, most recently saved first.
func (db *DB) ListSaves() ([]SaveInfo, error) {
	var saves []SaveInfo
	err := db.conn.Select(&saves, `SELECT slot, game_id, dataset, game_date, age, cash,
		net_worth, happiness, saved_at FROM saves ORDER BY saved_at DESC, slot`)
	return saves, err
}

// DeleteSave removes a slot with its ledger and statements.
func (db *DB) DeleteSave(slot string) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	for _, q := range []string{
		"DELETE FROM saves WHERE slot = ?",
		"DELETE FROM ledger WHERE slot = ?",
		"DELETE FROM statements WHERE slot = ?",
	} {
		if _, err := tx.Exec(q, slot); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// SaveStatement records a monthly statement for slot, replacing any
// earlier statement for the same date.
func (db *DB) SaveStatement(slot string, st engine.Statement) error {
	raw, err := json.Marshal(st)
	if err != nil {
		return err
	}
	_, err = db.conn.Exec(`INSERT OR REPLACE INTO statements
		(slot, game_date, net, cash, net_worth, statement_json) VALUES (?, ?, ?, ?, ?, ?)`,
		slot, st.Date.String(), st.Net, st.Cash, st.NetWorth, string(raw),
	)
	return err
}

// Statements returns the slot's statements in date order.
func (db *DB) Statements(slot string) ([]engine.Statement, error) {
	var rows []string
	if err := db.conn.Select(&rows,
		"SELECT statement_json FROM statements WHERE slot = ? ORDER BY game_date", slot); err != nil {
		return nil, err
	}
	out := make([]engine.Statement, 0, len(rows))
	for _, r := range rows {
		var st engine.Statement
		if err := json.Unmarshal([]byte(r), &st); err != nil {
			return nil, fmt.Errorf("decode statement: %w", err)
		}
		out = append(out, st)
	}
	return out, nil
}

type ledgerRow struct {
	Seq         uint64         `db:"seq"`
	Tick        uint64         `db:"tick"`
	GameDate    string         `db:"game_date"`
	Category    string         `db:"category"`
	Description string         `db:"description"`
	Meta        sql.NullString `db:"meta_json"`
}

// RecentEvents returns the slot's most recent N ledger entries, newest
// first.
func (db *DB) RecentEvents(slot string, limit int) ([]engine.Event, error) {
	var rows []ledgerRow
	err := db.conn.Select(&rows,
		"SELECT seq, tick, game_date, category, description, meta_json FROM ledger WHERE slot = ? ORDER BY seq DESC LIMIT ?",
		slot, limit,
	)
	if err != nil {
		return nil, err
	}
	events := make([]engine.Event, 0, len(rows))
	for _, r := range rows {
		e := engine.Event{Seq: r.Seq, Tick: r.Tick, Date: parseDate(r.GameDate), Category: r.Category, Description: r.Description}
		if r.Meta.Valid && r.Meta.String != "" {
			_ = json.Unmarshal([]byte(r.Meta.String), &e.Meta)
		}
		events = append(events, e)
	}
	return events, nil
}

func parseDate(s string) clock.Date {
	d, err := clock.ParseDate(s)
	if err != nil {
		return clock.Date{}
	}
	return d
}

// SaveMeta stores a key-value pair in game metadata.
func (db *DB) SaveMeta(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO game_meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM game_meta WHERE key = ?", key)
	return value, err
}
