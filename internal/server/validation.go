package server

import (
	"path/filepath"
	"regexp"
	"strings"
)

const maxFilenameLength = 255

var (
	fileIDRegex    = regexp.MustCompile(`^fl-[0-9a-f]{20}$`)
	accountIDRegex = regexp.MustCompile(`^ac-[0-9a-f]{20}$`)
)

func validateFileID(id string) bool {
	return fileIDRegex.MatchString(id)
}

func validateAccountID(id string) bool {
	return accountIDRegex.MatchString(id)
}

// sanitizeFilename reduces a client-supplied filename to its base name and
// strips characters that are unsafe in Content-Disposition headers.
func sanitizeFilename(name string) string {
	name = strings.TrimSpace(name)
	name = strings.ReplaceAll(name, `\`, "/")
	name = filepath.Base(name)
	name = strings.TrimLeft(name, ".")
	name = strings.Map(func(r rune) rune {
		switch r {
		case '"', '\\', '\n', '\r', 0:
			return -1
		}
		return r
	}, name)
	if len(name) > maxFilenameLength {
		name = name[:maxFilenameLength]
	}
	if name == "" || name == "/" {
		return ""
	}
	return name
}
