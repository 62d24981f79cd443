package archive

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheas/zen-backup/internal/logging"
)

// Policy is the retention rule for one kind.
type Policy struct {
	Kind       Kind
	MaxAgeDays int
}

// Prune deletes archives of p.Kind in dir whose embedded date is more than
// p.MaxAgeDays before ref. Files that do not follow the naming convention are
// never touched. A missing directory is a no-op. Deletion continues past
// individual failures, which are returned joined.
func Prune(dir string, p Policy, ref time.Time) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read archive directory: %w", err)
	}

	today := dayNumber(ref.Year(), int(ref.Month()), ref.Day())

	var deleted []string
	var errs []error
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		parsed, ok := ParseName(entry.Name())
		if !ok || parsed.Kind != p.Kind {
			continue
		}

		age := today - parsed.DayNumber()
		if age <= p.MaxAgeDays {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			errs = append(errs, fmt.Errorf("failed to delete %s: %w", entry.Name(), err))
			continue
		}
		logging.Debug().Str("path", path).Int("age_days", age).Msg("pruned archive")
		deleted = append(deleted, path)
	}

	return deleted, errors.Join(errs...)
}
