package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// PruneLogs deletes the files in dir matching pattern that were last
// modified more than days ago, except keep. It returns how many were
// removed; days <= 0 disables pruning.
func PruneLogs(logger *slog.Logger, dir, pattern string, days int, keep string) int {
	if days <= 0 || dir == "" {
		return 0
	}
	if logger == nil {
		logger = NewNop()
	}
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return 0
	}
	cutoff := time.Now().AddDate(0, 0, -days)
	keep = filepath.Clean(keep)
	removed := 0
	for _, path := range matches {
		if filepath.Clean(path) == keep {
			continue
		}
		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(path); err != nil {
			WarnWithContext(logger, "old log file not removed", "log_prune_failed",
				String("path", path),
				Error(err),
				String(FieldErrorHint, "check permissions of paths.log_dir"),
			)
			continue
		}
		removed++
	}
	if removed > 0 {
		logger.Debug("old log files pruned", Int("removed", removed), String(FieldEventType, "log_pruned"))
	}
	return removed
}
