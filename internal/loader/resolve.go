package loader

import (
	"fmt"
	"path"
	"sort"
	"strings"
)

// MappingEntry maps one id prefix to a URI base.
type MappingEntry struct {
	Prefix string
	Base   string
}

// Mapping is a resolution mapping ordered from the longest prefix to the
// shortest, so the first match wins.
type Mapping []MappingEntry

// NewMapping builds a Mapping from a prefix → URI base table.
func NewMapping(paths map[string]string) Mapping {
	m := make(Mapping, 0, len(paths))
	for prefix, base := range paths {
		m = append(m, MappingEntry{Prefix: strings.TrimSuffix(prefix, "/"), Base: base})
	}
	sort.Slice(m, func(i, j int) bool {
		if len(m[i].Prefix) != len(m[j].Prefix) {
			return len(m[i].Prefix) > len(m[j].Prefix)
		}
		return m[i].Prefix < m[j].Prefix
	})
	return m
}

// Resolve returns the canonical module id for id as required from the
// module fromID. Only ids starting with "./" or "../" are relative; every id
// is cleaned and must stay inside the root.
func Resolve(id, fromID string) (string, error) {
	if id == "" {
		return "", fmt.Errorf("%w: empty id", ErrInvalidID)
	}

	resolved := path.Clean(id)
	if strings.HasPrefix(id, "./") || strings.HasPrefix(id, "../") {
		resolved = path.Join(path.Dir(fromID), id)
	}
	if resolved == "." || resolved == ".." || strings.HasPrefix(resolved, "../") {
		return "", fmt.Errorf("%w: %q escapes the root when required from %q", ErrInvalidID, id, fromID)
	}

	return strings.TrimSuffix(resolved, ".js"), nil
}

// ResolveURI maps a resolved requirement to its URI. It reports false when
// no mapping entry covers the requirement.
func ResolveURI(requirement string, mapping Mapping) (string, bool) {
	for _, entry := range mapping {
		if entry.Prefix != "" && requirement != entry.Prefix && !strings.HasPrefix(requirement, entry.Prefix+"/") {
			continue
		}

		rest := strings.TrimPrefix(requirement[len(entry.Prefix):], "/")
		uri := strings.TrimSuffix(entry.Base, "/")
		if rest != "" {
			uri += "/" + rest
		}
		if !strings.HasSuffix(uri, ".js") && !strings.HasSuffix(uri, ".json") {
			uri += ".js"
		}
		return uri, true
	}
	return "", false
}
