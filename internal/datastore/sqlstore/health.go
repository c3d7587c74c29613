package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"

	"annotcore/internal/datastore"
	"annotcore/internal/sqlitedriver"
)

// Health runs the SQLite integrity check and verifies that every declared
// level has a backing table.
func (s *Store) Health(ctx context.Context) (datastore.Health, error) {
	health := datastore.Health{
		Path:         s.path,
		Driver:       sqlitedriver.DriverType(),
		Levels:       len(s.structure.Levels()),
		LevelTables:  map[string]bool{},
		ElementCount: map[string]int64{},
	}
	if s.db == nil {
		return health, errors.New("datastore connection unavailable")
	}
	if s.path != "" && s.path != ":memory:" {
		info, err := os.Stat(s.path)
		if err != nil {
			return health, fmt.Errorf("stat datastore: %w", err)
		}
		if info.IsDir() {
			return health, fmt.Errorf("datastore path %q is a directory", s.path)
		}
		health.SizeBytes = info.Size()
	}

	connCtx, cancel := context.WithTimeout(ensureContext(ctx), 5*time.Second)
	defer cancel()

	if err := s.db.PingContext(connCtx); err != nil {
		return health, fmt.Errorf("ping datastore: %w", err)
	}
	if err := s.db.QueryRowContext(connCtx, "PRAGMA integrity_check").Scan(&health.Integrity); err != nil {
		return health, fmt.Errorf("integrity check: %w", err)
	}

	for _, level := range s.structure.Levels() {
		var name string
		err := s.db.QueryRowContext(connCtx,
			"SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?", levelTablePrefix+level.ID).Scan(&name)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			health.LevelTables[level.ID] = false
			continue
		case err != nil:
			return health, fmt.Errorf("query table of level %s: %w", level.ID, err)
		}
		health.LevelTables[level.ID] = true

		var n int64
		if err := s.db.QueryRowContext(connCtx, "SELECT COUNT(*) FROM "+tableName(level.ID)).Scan(&n); err != nil {
			return health, fmt.Errorf("count level %s: %w", level.ID, err)
		}
		health.ElementCount[level.ID] = n
	}
	return health, nil
}
