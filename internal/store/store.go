// Package store implements rfc003.StateStore and rfc003.MetadataStore over
// SQLite: WAL mode, a single writer, raw DDL in initSchema, and exactly the
// two tables a swap needs to resume after a restart.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/comit-swap/rfc003/internal/ledger"
	"github.com/comit-swap/rfc003/internal/rfc003"
)

// Store is a SQLite-backed rfc003.StateStore and rfc003.MetadataStore. A
// single instance backs both interfaces since a resumed swap's State alone
// cannot be decoded without the ledger identities fixed at Start.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// Open creates (or reuses) the swap database under dataDir.
func Open(dataDir string) (*Store, error) {
	dataDir = expandPath(dataDir)
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("store: create data dir: %w", err)
	}

	dbPath := filepath.Join(dataDir, "swaps.db")
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("store: open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: ping database: %w", err)
	}

	db.SetMaxOpenConns(1) // sqlite only supports one writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: init schema: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) initSchema() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS swap_metadata (
		id TEXT PRIMARY KEY,
		role INTEGER NOT NULL,
		alpha_ledger TEXT NOT NULL,
		beta_ledger TEXT NOT NULL,
		data TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS swap_state (
		id TEXT PRIMARY KEY,
		kind INTEGER NOT NULL,
		data TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// --- rfc003.MetadataStore ---

func (s *Store) SaveMetadata(ctx context.Context, swap *rfc003.Swap) error {
	dto, err := encodeSwap(swap)
	if err != nil {
		return fmt.Errorf("store: encode swap metadata: %w", err)
	}
	data, err := json.Marshal(dto)
	if err != nil {
		return fmt.Errorf("store: marshal swap metadata: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO swap_metadata (id, role, alpha_ledger, beta_ledger, data, created_at)
		VALUES (?, ?, ?, ?, ?, unixepoch())
		ON CONFLICT(id) DO UPDATE SET
			role = excluded.role,
			alpha_ledger = excluded.alpha_ledger,
			beta_ledger = excluded.beta_ledger,
			data = excluded.data
	`, swap.Id.String(), uint8(swap.Role), string(swap.AlphaLedger.Symbol()), string(swap.BetaLedger.Symbol()), string(data))
	if err != nil {
		return fmt.Errorf("store: save swap metadata: %w", err)
	}
	return nil
}

func (s *Store) LoadMetadata(ctx context.Context, id rfc003.SwapId) (*rfc003.Swap, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var role uint8
	var alphaSymbol, betaSymbol, data string
	row := s.db.QueryRowContext(ctx, `SELECT role, alpha_ledger, beta_ledger, data FROM swap_metadata WHERE id = ?`, id.String())
	if err := row.Scan(&role, &alphaSymbol, &betaSymbol, &data); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("store: no metadata for swap %s", id)
		}
		return nil, fmt.Errorf("store: load swap metadata: %w", err)
	}

	alphaLedger, err := ledger.Get(ledger.Symbol(alphaSymbol))
	if err != nil {
		return nil, fmt.Errorf("store: resolve alpha ledger for swap %s: %w", id, err)
	}
	betaLedger, err := ledger.Get(ledger.Symbol(betaSymbol))
	if err != nil {
		return nil, fmt.Errorf("store: resolve beta ledger for swap %s: %w", id, err)
	}

	var dto swapDTO
	if err := json.Unmarshal([]byte(data), &dto); err != nil {
		return nil, fmt.Errorf("store: unmarshal swap metadata: %w", err)
	}
	return assembleSwap(id, rfc003.Role(role), alphaLedger, betaLedger, dto)
}

// --- rfc003.StateStore ---

func (s *Store) SaveState(ctx context.Context, id rfc003.SwapId, state rfc003.State) error {
	dto := encodeState(state)
	data, err := json.Marshal(dto)
	if err != nil {
		return fmt.Errorf("store: marshal swap state: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO swap_state (id, kind, data, updated_at)
		VALUES (?, ?, ?, unixepoch())
		ON CONFLICT(id) DO UPDATE SET
			kind = excluded.kind,
			data = excluded.data,
			updated_at = excluded.updated_at
	`, id.String(), uint8(state.Kind), string(data))
	if err != nil {
		return fmt.Errorf("store: save swap state: %w", err)
	}
	return nil
}

// LoadState re-hydrates the last persisted State for id. Decoding the
// beta-side identities requires knowing the beta ledger, which only
// swap_metadata carries — a State row cannot be read back in isolation
// before its metadata has been saved at least once.
func (s *Store) LoadState(ctx context.Context, id rfc003.SwapId) (rfc003.State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var kind uint8
	var betaSymbol, data string
	row := s.db.QueryRowContext(ctx, `
		SELECT st.kind, m.beta_ledger, st.data
		FROM swap_state st
		JOIN swap_metadata m ON m.id = st.id
		WHERE st.id = ?
	`, id.String())
	if err := row.Scan(&kind, &betaSymbol, &data); err != nil {
		if err == sql.ErrNoRows {
			return rfc003.State{}, fmt.Errorf("store: no state for swap %s", id)
		}
		return rfc003.State{}, fmt.Errorf("store: load swap state: %w", err)
	}

	betaLedger, err := ledger.Get(ledger.Symbol(betaSymbol))
	if err != nil {
		return rfc003.State{}, fmt.Errorf("store: resolve beta ledger for swap %s: %w", id, err)
	}

	var dto stateDTO
	if err := json.Unmarshal([]byte(data), &dto); err != nil {
		return rfc003.State{}, fmt.Errorf("store: unmarshal swap state: %w", err)
	}
	return decodeState(dto, kind, betaLedger)
}

func expandPath(path string) string {
	if len(path) >= 2 && path[:2] == "~/" {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
