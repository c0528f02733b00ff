package main

import (
	"errors"
	"net"
	"os"
)

func formatCLIError(err error) []string {
	if err == nil {
		return nil
	}

	lines := []string{err.Error()}

	var netErr net.Error
	if errors.As(err, &netErr) {
		lines = append(lines,
			"hint: ensure a cumulus server is running at CUMULUS_API_URL.",
			"hint: start a local server with: cumulus srv",
		)
	}
	if errors.Is(err, os.ErrPermission) {
		lines = append(lines, "hint: check permissions on the database and storage root.")
	}

	return uniqueLines(lines)
}

func uniqueLines(lines []string) []string {
	seen := make(map[string]struct{}, len(lines))
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if line == "" {
			continue
		}
		if _, ok := seen[line]; ok {
			continue
		}
		seen[line] = struct{}{}
		out = append(out, line)
	}
	return out
}
