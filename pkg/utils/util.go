package utils

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ParseJSONResponse attempts to parse a string response as JSON. Model output
// wrapped in a fenced code block is unwrapped first.
func ParseJSONResponse(response string) (map[string]interface{}, error) {
	cleaned := strings.TrimSpace(response)
	if strings.HasPrefix(cleaned, "```") {
		cleaned = strings.TrimPrefix(cleaned, "```json")
		cleaned = strings.TrimPrefix(cleaned, "```")
		cleaned = strings.TrimSuffix(cleaned, "```")
		cleaned = strings.TrimSpace(cleaned)
	}

	var result map[string]interface{}
	err := json.Unmarshal([]byte(cleaned), &result)
	if err != nil {
		return nil, fmt.Errorf("failed to parse response as JSON: %w", err)
	}
	return result, nil
}

// ParseNumberedList extracts the entries of a numbered or bulleted list from
// model output, tolerating surrounding prose.
func ParseNumberedList(content string) []string {
	var items []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		var item string
		switch {
		case strings.HasPrefix(line, "- "):
			item = strings.TrimPrefix(line, "- ")
		case strings.HasPrefix(line, "* "):
			item = strings.TrimPrefix(line, "* ")
		default:
			// numbered form: "1. text" / "2) text"
			for i, r := range line {
				if r >= '0' && r <= '9' {
					continue
				}
				if (r == '.' || r == ')') && i > 0 {
					item = strings.TrimSpace(line[i+1:])
				}
				break
			}
		}

		if item != "" {
			items = append(items, item)
		}
	}
	return items
}
