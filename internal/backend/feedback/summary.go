package feedback

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/Mounith2005/Agro-gaurd/internal/backend/database"
)

const (
	summaryExtension  = ".txt"
	summaryTimeLayout = "20060102T150405Z"
	feedbackHeader    = "feedback:"
)

// summaryName is {timestamp}_{id}.txt so summaries sort by time and a
// replay of the same record rewrites the same file.
func summaryName(record *database.FeedbackRecord) string {
	return fmt.Sprintf("%s_%s%s", record.CreatedAt.UTC().Format(summaryTimeLayout), record.ID, summaryExtension)
}

func formatSummary(record *database.FeedbackRecord) []byte {
	var b bytes.Buffer
	// Header values are Go-quoted so user input cannot add or fake header lines.
	fmt.Fprintf(&b, "id: %s\n", strconv.Quote(record.ID))
	fmt.Fprintf(&b, "username: %s\n", strconv.Quote(record.Username))
	fmt.Fprintf(&b, "label: %s\n", strconv.Quote(record.Label))
	fmt.Fprintf(&b, "timestamp: %s\n", record.CreatedAt.UTC().Format(time.RFC3339Nano))
	fmt.Fprintf(&b, "file_reference: %s\n", strconv.Quote(record.FileReference))
	b.WriteString(feedbackHeader + "\n")
	b.WriteString(record.FeedbackText)
	b.WriteString("\n")
	return b.Bytes()
}

func parseSummary(data []byte) (*database.FeedbackRecord, error) {
	record := &database.FeedbackRecord{}
	seen := make(map[string]bool)
	scanner := bufio.NewScanner(bytes.NewReader(data))
	consumed := 0
	for scanner.Scan() {
		line := scanner.Text()
		consumed += len(line) + 1
		if line == feedbackHeader {
			text := string(data[min(consumed, len(data)):])
			record.FeedbackText = strings.TrimSuffix(text, "\n")
			return validateParsed(record)
		}

		key, value, ok := strings.Cut(line, ": ")
		if !ok {
			return nil, fmt.Errorf("unexpected summary line %q", line)
		}
		if seen[key] {
			return nil, fmt.Errorf("duplicate summary key %q", key)
		}
		seen[key] = true

		switch key {
		case "id", "username", "label", "file_reference":
			unquoted, err := strconv.Unquote(value)
			if err != nil {
				return nil, fmt.Errorf("invalid %s value %s: %w", key, value, err)
			}
			switch key {
			case "id":
				record.ID = unquoted
			case "username":
				record.Username = unquoted
			case "label":
				record.Label = unquoted
			default:
				record.FileReference = unquoted
			}
		case "timestamp":
			ts, err := time.Parse(time.RFC3339Nano, value)
			if err != nil {
				return nil, fmt.Errorf("invalid timestamp %q: %w", value, err)
			}
			record.CreatedAt = ts
		default:
			return nil, fmt.Errorf("unexpected summary line %q", line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("summary has no %q section", feedbackHeader)
}

func validateParsed(record *database.FeedbackRecord) (*database.FeedbackRecord, error) {
	if record.ID == "" || record.Username == "" || record.Label == "" || record.CreatedAt.IsZero() {
		return nil, fmt.Errorf("incomplete summary for record %q", record.ID)
	}
	return record, nil
}

// writeFileAtomic replaces path with data via a temp file in the same
// directory, so readers never see a partial summary.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return nil
}
