// Package archive names, lists, prunes and reads/writes snapshot archive
// files. The file name is the only persisted contract:
//
//	zen-backup-<kind>-<YYYY-MM-DD>[-<n>].tar.gz
package archive

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"time"
)

const (
	// Prefix starts every archive file name.
	Prefix = "zen-backup"
	// Ext is the container extension.
	Ext = ".tar.gz"
	// DateLayout formats the date embedded in archive names.
	DateLayout = "2006-01-02"
)

// Kind is the snapshot cadence an archive belongs to.
type Kind string

const (
	Daily  Kind = "daily"
	Weekly Kind = "weekly"
)

// Kinds lists every kind in display order.
var Kinds = []Kind{Daily, Weekly}

// ParseKind validates a kind argument.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case Daily, Weekly:
		return Kind(s), nil
	default:
		return "", fmt.Errorf("backup kind must be daily or weekly, got %q", s)
	}
}

// namePattern matches archive names and captures kind, year, month, day and suffix.
var namePattern = regexp.MustCompile(`^` + regexp.QuoteMeta(Prefix) +
	`-(daily|weekly)-(\d{4})-(\d{2})-(\d{2})(?:-(\d+))?` + regexp.QuoteMeta(Ext) + `$`)

// Name returns the unsuffixed archive name for kind on date.
func Name(kind Kind, date time.Time) string {
	return fmt.Sprintf("%s-%s-%s%s", Prefix, kind, date.Format(DateLayout), Ext)
}

// SuffixedName returns the archive name carrying collision suffix n.
func SuffixedName(kind Kind, date time.Time, n int) string {
	return fmt.Sprintf("%s-%s-%s-%d%s", Prefix, kind, date.Format(DateLayout), n, Ext)
}

// NextPath returns the first free archive path in dir for kind on date: the
// unsuffixed name when unused, otherwise suffixes 2, 3, ... in order.
func NextPath(dir string, kind Kind, date time.Time) (string, error) {
	candidate := filepath.Join(dir, Name(kind, date))
	for n := 2; ; n++ {
		_, err := os.Lstat(candidate)
		if os.IsNotExist(err) {
			return candidate, nil
		}
		if err != nil {
			return "", fmt.Errorf("failed to check archive path %s: %w", candidate, err)
		}
		candidate = filepath.Join(dir, SuffixedName(kind, date, n))
	}
}

// ParsedName is the identity encoded in an archive file name.
type ParsedName struct {
	Kind   Kind
	Year   int
	Month  int
	Day    int
	Suffix int // 0 when unsuffixed
}

// Date returns the embedded date formatted as YYYY-MM-DD.
func (p ParsedName) Date() string {
	return fmt.Sprintf("%04d-%02d-%02d", p.Year, p.Month, p.Day)
}

// DayNumber maps the embedded date onto a monotonic day count. It is not
// calendar exact; it only has to order dates consistently.
func (p ParsedName) DayNumber() int {
	return dayNumber(p.Year, p.Month, p.Day)
}

func dayNumber(year, month, day int) int {
	return year*372 + month*31 + day
}

// ParseName parses an archive file name. ok is false for names that do not
// follow the naming convention.
func ParseName(name string) (ParsedName, bool) {
	m := namePattern.FindStringSubmatch(name)
	if m == nil {
		return ParsedName{}, false
	}
	p := ParsedName{Kind: Kind(m[1])}
	p.Year, _ = strconv.Atoi(m[2])
	p.Month, _ = strconv.Atoi(m[3])
	p.Day, _ = strconv.Atoi(m[4])
	if m[5] != "" {
		p.Suffix, _ = strconv.Atoi(m[5])
	}
	return p, true
}
