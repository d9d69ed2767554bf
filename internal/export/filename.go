package export

import (
	"mime"
	"path"
	"regexp"
	"strings"
)

// Loose match for headers mime.ParseMediaType rejects, e.g. an unquoted
// filename containing spaces.
var filenamePattern = regexp.MustCompile(`(?i)filename\s*=\s*(?:"([^"]*)"|([^;]+))`)

// FilenameFromDisposition extracts the suggested file name from a
// Content-Disposition header value. Directory components are dropped.
func FilenameFromDisposition(header string) (string, bool) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", false
	}

	if _, params, err := mime.ParseMediaType(header); err == nil {
		if name, ok := cleanFilename(params["filename"]); ok {
			return name, true
		}
	}

	m := filenamePattern.FindStringSubmatch(header)
	if m == nil {
		return "", false
	}
	name := m[1]
	if name == "" {
		name = m[2]
	}
	return cleanFilename(name)
}

// ResolveFilename returns the header's file name or fallback.
func ResolveFilename(header, fallback string) string {
	if name, ok := FilenameFromDisposition(header); ok {
		return name
	}
	return fallback
}

func cleanFilename(name string) (string, bool) {
	name = strings.TrimSpace(strings.ReplaceAll(name, `\`, "/"))
	if name == "" {
		return "", false
	}
	name = path.Base(name)
	switch name {
	case ".", "..", "/":
		return "", false
	}
	return name, true
}
