package datamodel

import "strings"

// Segments splits a slash-delimited path. Empty segments are dropped, so ""
// and "/" both address the root.
func Segments(path string) []string {
	parts := strings.Split(path, "/")
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// IsRoot reports whether path addresses the whole model.
func IsRoot(path string) bool {
	return len(Segments(path)) == 0
}

// IsAbsolute reports whether path starts at the model root.
func IsAbsolute(path string) bool {
	return strings.HasPrefix(path, "/")
}

// Join resolves path against base. Absolute paths ignore base.
func Join(base, path string) string {
	if IsAbsolute(path) || base == "" {
		return Clean(path)
	}
	return Clean(base + "/" + path)
}

// Clean normalises path to its absolute form ("/a/b").
func Clean(path string) string {
	return "/" + strings.Join(Segments(path), "/")
}

// Split returns the parent path and the last segment. The root has no last
// segment.
func Split(path string) (parent, last string) {
	segs := Segments(path)
	if len(segs) == 0 {
		return "/", ""
	}
	return "/" + strings.Join(segs[:len(segs)-1], "/"), segs[len(segs)-1]
}
