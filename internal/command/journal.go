package command

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// JournalEntry is one line of the monthly food journal.
type JournalEntry struct {
	Date            string `json:"date"`
	Time            string `json:"time"`
	CreatedAt       string `json:"created_at"`
	FoodDescription string `json:"food_description"`
}

func journalFile(agentPath string, now time.Time) string {
	return filepath.Join(agentPath, "food-journal", now.Format("2006-01")+".jsonl")
}

// appendJournal writes one JSONL entry to the current month's journal
// under agentPath, creating the directory and file as needed.
func appendJournal(agentPath, message string, now time.Time) (JournalEntry, error) {
	entry := JournalEntry{
		Date:            now.Format("2006-01-02"),
		Time:            now.Format("15:04"),
		CreatedAt:       now.Format(time.RFC3339),
		FoodDescription: message,
	}

	path := journalFile(agentPath, now)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return JournalEntry{}, fmt.Errorf("journal dir: %w", err)
	}

	line, err := json.Marshal(entry)
	if err != nil {
		return JournalEntry{}, err
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return JournalEntry{}, fmt.Errorf("journal open: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return JournalEntry{}, fmt.Errorf("journal write: %w", err)
	}
	return entry, nil
}

// undoJournal removes the most recently appended line from the current
// month's journal. The file becomes empty when the last entry goes; it is
// never deleted. Returns false when there is nothing to undo.
func undoJournal(agentPath string, now time.Time) (bool, error) {
	path := journalFile(agentPath, now)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("journal read: %w", err)
	}

	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" {
		return false, nil
	}

	lines := strings.Split(trimmed, "\n")
	remaining := lines[:len(lines)-1]

	out := ""
	if len(remaining) > 0 {
		out = strings.Join(remaining, "\n") + "\n"
	}
	if err := os.WriteFile(path, []byte(out), 0o644); err != nil {
		return false, fmt.Errorf("journal rewrite: %w", err)
	}
	return true, nil
}
