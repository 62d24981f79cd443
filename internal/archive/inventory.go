package archive

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// Entry describes one archive file found on disk.
type Entry struct {
	Kind      Kind
	Name      string
	Path      string
	SizeBytes int64
	Date      string

	parsed ParsedName
}

// before orders entries chronologically: by embedded date, then suffix.
// Plain name order would put "-2026-01-16-2" ahead of "-2026-01-16".
func (e Entry) before(o Entry) bool {
	if a, b := e.parsed.DayNumber(), o.parsed.DayNumber(); a != b {
		return a < b
	}
	return e.parsed.Suffix < o.parsed.Suffix
}

// List returns the archives under root/<kind> for every kind, oldest first
// within each kind. Missing kind directories are treated as empty.
func List(root string) ([]Entry, error) {
	var items []Entry
	for _, kind := range Kinds {
		dir := filepath.Join(root, string(kind))
		entries, err := os.ReadDir(dir)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, err
		}

		var found []Entry
		for _, e := range entries {
			if !e.Type().IsRegular() {
				continue
			}
			parsed, ok := ParseName(e.Name())
			if !ok || parsed.Kind != kind {
				continue
			}
			info, err := e.Info()
			if err != nil {
				continue
			}
			found = append(found, Entry{
				Kind:      kind,
				Name:      e.Name(),
				Path:      filepath.Join(dir, e.Name()),
				SizeBytes: info.Size(),
				Date:      parsed.Date(),
				parsed:    parsed,
			})
		}
		sort.Slice(found, func(i, j int) bool { return found[i].before(found[j]) })
		items = append(items, found...)
	}
	return items, nil
}

// Newest returns the newest archive of kind, or nil when there is none.
func Newest(entries []Entry, kind Kind) *Entry {
	var newest *Entry
	for i := range entries {
		e := &entries[i]
		if e.Kind != kind {
			continue
		}
		if newest == nil || newest.before(*e) {
			newest = e
		}
	}
	return newest
}

// DirSize returns the total size of regular files under dir, or 0 when dir
// cannot be read.
func DirSize(dir string) int64 {
	var total int64
	_ = filepath.WalkDir(dir, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.Type().IsRegular() {
			if info, err := d.Info(); err == nil {
				total += info.Size()
			}
		}
		return nil
	})
	return total
}

// AgeDays returns how many calendar days before ref the archive is dated.
func (e Entry) AgeDays(ref time.Time) int {
	date := time.Date(e.parsed.Year, time.Month(e.parsed.Month), e.parsed.Day, 0, 0, 0, 0, time.UTC)
	day := time.Date(ref.Year(), ref.Month(), ref.Day(), 0, 0, 0, 0, time.UTC)
	return int(day.Sub(date).Hours() / 24)
}
