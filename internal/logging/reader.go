// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package logging

import (
	"bufio"
	"encoding/json"
	"os"
	"strings"
)

// Entry is one decoded log line.
type Entry struct {
	Timestamp string         `json:"timestamp"`
	Level     string         `json:"level"`
	Component string         `json:"component,omitempty"`
	Message   string         `json:"message"`
	Caller    string         `json:"caller,omitempty"`
	Fields    map[string]any `json:"-"`
}

var reservedKeys = map[string]bool{
	"timestamp": true, "level": true, "component": true, "message": true, "caller": true,
}

// ReadEntries returns up to limit entries from path, newest first. An empty
// level matches every level. A missing file yields no entries.
func ReadEntries(path, level string, limit int) ([]Entry, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []Entry{}, nil
		}
		return nil, err
	}
	defer file.Close()

	level = strings.ToUpper(level)

	var entries []Entry
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()

		var raw map[string]any
		if err := json.Unmarshal(line, &raw); err != nil {
			continue
		}
		var entry Entry
		if err := json.Unmarshal(line, &entry); err != nil {
			continue
		}
		if level != "" && entry.Level != level {
			continue
		}
		for k, v := range raw {
			if reservedKeys[k] {
				continue
			}
			if entry.Fields == nil {
				entry.Fields = make(map[string]any)
			}
			entry.Fields[k] = v
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}
