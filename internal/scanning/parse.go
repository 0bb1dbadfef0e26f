package scanning

import (
	"encoding/json"
	"fmt"
	"strings"
)

// parseLinesJSON parses the JSON array of transcribed lines returned by a vision model
func parseLinesJSON(text string) ([]string, error) {
	text = stripCodeFence(text)

	// Find the array boundaries - look for first [ and last ]
	startIdx := strings.Index(text, "[")
	if startIdx == -1 {
		return nil, fmt.Errorf("no JSON array found in response")
	}
	endIdx := strings.LastIndex(text, "]")
	if endIdx == -1 || endIdx < startIdx {
		return nil, fmt.Errorf("invalid JSON array in response")
	}
	text = text[startIdx : endIdx+1]

	var raw []string
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return nil, fmt.Errorf("unmarshaling json: %w", err)
	}

	return splitLines(raw), nil
}

// splitLines breaks entries containing newlines apart and drops blank lines.
// The result is never nil.
func splitLines(entries []string) []string {
	lines := make([]string, 0, len(entries))
	for _, entry := range entries {
		entry = strings.ReplaceAll(entry, "\r\n", "\n")
		for _, line := range strings.Split(entry, "\n") {
			line = strings.TrimRight(line, " \t\r")
			if strings.TrimSpace(line) == "" {
				continue
			}
			lines = append(lines, line)
		}
	}
	return lines
}

// stripCodeFence removes markdown code blocks around a model response
func stripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}
