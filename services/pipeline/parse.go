package pipeline

import (
	"encoding/json"
	"strings"

	"github.com/ApexChef/backlog-chef/services"
)

// decodeResponse parses the JSON body out of a model response into v.
// Models frequently wrap JSON in markdown fences or surround it with prose,
// so the decoder is tolerant: it strips fences and scans for the first
// balanced JSON object or array.
func decodeResponse(content string, v interface{}) error {
	body := extractJSON(content)
	if body == "" {
		return services.NewDomainError(services.ErrorTypeValidation, "response contains no JSON", nil).
			WithDetail("content", snippet(content))
	}
	if err := json.Unmarshal([]byte(body), v); err != nil {
		return services.NewDomainError(services.ErrorTypeValidation, "response JSON is malformed", err).
			WithDetail("content", snippet(content))
	}
	return nil
}

// extractJSON returns the first balanced JSON object or array in content.
func extractJSON(content string) string {
	content = stripFences(content)

	start := strings.IndexAny(content, "{[")
	if start < 0 {
		return ""
	}

	open := content[start]
	var close byte = '}'
	if open == '[' {
		close = ']'
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(content); i++ {
		c := content[i]

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
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return content[start : i+1]
			}
		}
	}
	return ""
}

func stripFences(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}

	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	if end := strings.LastIndex(trimmed, "```"); end >= 0 {
		trimmed = trimmed[:end]
	}
	return strings.TrimSpace(trimmed)
}

func snippet(content string) string {
	const limit = 200
	content = strings.TrimSpace(content)
	if len(content) > limit {
		return content[:limit] + "..."
	}
	return content
}
