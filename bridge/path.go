package bridge

import "strings"

// MemoryLocation is the location that keeps a database in memory.
const MemoryLocation = ":memory:"

// ResolveLocation applies an optional location override to the base path.
// An empty override yields the base path, ":memory:" is kept verbatim, an
// absolute override replaces the base path and anything else is appended to
// it with a "/" separator.
func ResolveLocation(basePath, override string) string {
	switch {
	case override == "":
		return basePath
	case override == MemoryLocation:
		return MemoryLocation
	case strings.HasPrefix(override, "/"):
		return override
	default:
		return basePath + "/" + override
	}
}

// FilePath joins a resolved location with a database file name.
func FilePath(location, name string) string {
	if location == MemoryLocation {
		return MemoryLocation
	}
	return location + "/" + name
}

// DBPath returns the on-disk path of the named database. Without an
// override the file lives directly under the base path; an override names the
// database file itself and is resolved with ResolveLocation.
func DBPath(basePath, name, override string) string {
	if override == "" {
		return FilePath(basePath, name)
	}
	return ResolveLocation(basePath, override)
}
