package snapshots

import "strings"

var excludedNames = map[string]bool{
	"cookies.sqlite": true,
	"key4.db":        true,
	"logins.json":    true,
	"cert9.db":       true,
	".parentlock":    true,
}

var excludedSuffixes = []string{".sqlite-wal", ".sqlite-shm"}

var excludedDirs = []string{
	"cache2",
	"crashes",
	"datareporting",
	"saved-telemetry-pings",
	"minidumps",
	"storage/temporary",
	"storage/default/chrome",
}

const (
	defaultStorageDir = "storage/default"
	httpOriginPrefix  = "storage/default/http"
)

// ShouldInclude reports whether a profile entry belongs in a snapshot.
// rel is slash-separated and relative to the profile root; name is its base name.
func ShouldInclude(rel, name string, isDir bool) bool {
	if excludedNames[name] {
		return false
	}
	for _, suffix := range excludedSuffixes {
		if strings.HasSuffix(name, suffix) {
			return false
		}
	}

	if isDir && rel == defaultStorageDir {
		return true
	}
	if strings.HasPrefix(rel, httpOriginPrefix) {
		return false
	}
	for _, dir := range excludedDirs {
		if rel == dir || strings.HasPrefix(rel, dir+"/") {
			return false
		}
	}
	return true
}
