package command

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// noteHeader matches the timestamp heading that starts each note block.
var noteHeader = regexp.MustCompile(`(?m)^## \d{4}-\d{2}-\d{2} \d{2}:\d{2}\n`)

func notesFile(agentPath string) string {
	return filepath.Join(agentPath, "notes.md")
}

// appendNote appends a timestamped block to notes.md under agentPath:
// a "## YYYY-MM-DD HH:MM" heading, the message body, and a blank line.
func appendNote(agentPath, message string, now time.Time) error {
	path := notesFile(agentPath)
	if err := os.MkdirAll(agentPath, 0o755); err != nil {
		return fmt.Errorf("notes dir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("notes open: %w", err)
	}
	defer f.Close()

	block := fmt.Sprintf("## %s\n%s\n\n", now.Format("2006-01-02 15:04"), strings.TrimSpace(message))
	if _, err := f.WriteString(block); err != nil {
		return fmt.Errorf("notes write: %w", err)
	}
	return nil
}

// undoNote removes the most recently appended note block by truncating
// the file before the last timestamp heading. Returns false when the file
// is missing or holds no note blocks.
func undoNote(agentPath string) (bool, error) {
	path := notesFile(agentPath)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("notes read: %w", err)
	}

	locs := noteHeader.FindAllIndex(data, -1)
	if len(locs) == 0 {
		return false, nil
	}

	cut := locs[len(locs)-1][0]
	if err := os.WriteFile(path, data[:cut], 0o644); err != nil {
		return false, fmt.Errorf("notes rewrite: %w", err)
	}
	return true, nil
}
