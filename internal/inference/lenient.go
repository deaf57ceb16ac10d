package inference

import (
	"encoding/json"
	"strings"
)

type rawExplanation struct {
	ID          string `json:"id"`
	Text        string `json:"text"`
	Explanation string `json:"explanation"`
}

// ParseExplanations extracts explanations from model output. It tolerates code
// fences and surrounding prose, unwraps {"explanations": [...]} or {"items": [...]},
// and repairs a truncated array by keeping every complete element. The first
// array holding at least one explanation wins. Input that cannot be recovered
// yields an empty slice, never an error.
func ParseExplanations(raw string) []Explanation {
	s := stripFences(raw)
	for offset := 0; offset < len(s); {
		idx := strings.IndexByte(s[offset:], '[')
		if idx < 0 {
			break
		}
		start := offset + idx
		if out, ok := parseArrayAt(s, start); ok && len(out) > 0 {
			return out
		}
		offset = start + 1
	}
	return []Explanation{}
}

func parseArrayAt(s string, start int) ([]Explanation, bool) {
	end, lastComplete := scanArray(s, start)
	if end >= 0 {
		if out, ok := decodeArray(s[start : end+1]); ok {
			return out, true
		}
	}
	if lastComplete < 0 {
		return nil, false
	}
	return decodeArray(s[start:lastComplete+1] + "]")
}

func stripFences(raw string) string {
	lines := strings.Split(raw, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

// scanArray walks the array opening at start. It returns the index of the closing
// bracket (or -1 when truncated) and the index ending the last complete element.
func scanArray(s string, start int) (end, lastComplete int) {
	depth := 0
	inString, escaped := false, false
	lastComplete = -1
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '[', '{':
			depth++
		case ']', '}':
			depth--
			if depth == 1 {
				lastComplete = i
			}
			if depth == 0 {
				return i, lastComplete
			}
		}
	}
	return -1, lastComplete
}

func decodeArray(body string) ([]Explanation, bool) {
	var raw []rawExplanation
	if err := json.Unmarshal([]byte(body), &raw); err != nil {
		return nil, false
	}
	out := make([]Explanation, 0, len(raw))
	for _, r := range raw {
		text := r.Text
		if text == "" {
			text = r.Explanation
		}
		if r.ID == "" || text == "" {
			continue
		}
		out = append(out, Explanation{ID: r.ID, Text: strings.TrimSpace(text)})
	}
	return out, true
}
