package pipeline

import (
	"errors"
	"testing"

	"github.com/ApexChef/backlog-chef/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeResponse(t *testing.T) {
	type payload struct {
		MeetingType string `json:"meeting_type"`
	}

	t.Run("bare JSON object", func(t *testing.T) {
		var p payload
		require.NoError(t, decodeResponse(`{"meeting_type": "planning"}`, &p))
		assert.Equal(t, "planning", p.MeetingType)
	})

	t.Run("fenced JSON", func(t *testing.T) {
		var p payload
		content := "```json\n{\"meeting_type\": \"standup\"}\n```"
		require.NoError(t, decodeResponse(content, &p))
		assert.Equal(t, "standup", p.MeetingType)
	})

	t.Run("JSON wrapped in prose", func(t *testing.T) {
		var p payload
		content := `Sure! Here is the classification: {"meeting_type": "retrospective"} Let me know if you need anything else.`
		require.NoError(t, decodeResponse(content, &p))
		assert.Equal(t, "retrospective", p.MeetingType)
	})

	t.Run("array response", func(t *testing.T) {
		var items []payload
		content := "Here you go:\n```\n[{\"meeting_type\": \"a\"}, {\"meeting_type\": \"b\"}]\n```"
		require.NoError(t, decodeResponse(content, &items))
		require.Len(t, items, 2)
		assert.Equal(t, "b", items[1].MeetingType)
	})

	t.Run("no JSON at all", func(t *testing.T) {
		var p payload
		err := decodeResponse("I could not produce a classification.", &p)
		require.Error(t, err)
		assert.True(t, services.IsValidationError(err))
	})

	t.Run("malformed JSON", func(t *testing.T) {
		var p payload
		err := decodeResponse(`{"meeting_type": }`, &p)
		require.Error(t, err)
		assert.True(t, services.IsValidationError(err))

		var domainErr *services.DomainError
		require.True(t, errors.As(err, &domainErr))
		assert.Contains(t, domainErr.Details, "content")
	})
}

func TestExtractJSON(t *testing.T) {
	t.Run("nested objects", func(t *testing.T) {
		content := `prefix {"a": {"b": [1, 2, {"c": 3}]}} suffix`
		assert.Equal(t, `{"a": {"b": [1, 2, {"c": 3}]}}`, extractJSON(content))
	})

	t.Run("braces inside strings are ignored", func(t *testing.T) {
		content := `{"quote": "use { and } freely", "n": 1}`
		assert.Equal(t, content, extractJSON(content))
	})

	t.Run("escaped quote inside string", func(t *testing.T) {
		content := `{"quote": "she said \"}\"", "n": 1}`
		assert.Equal(t, content, extractJSON(content))
	})

	t.Run("unbalanced JSON yields nothing", func(t *testing.T) {
		assert.Empty(t, extractJSON(`{"a": [1, 2`))
	})

	t.Run("array before object", func(t *testing.T) {
		content := `[{"a": 1}] trailing {"b": 2}`
		assert.Equal(t, `[{"a": 1}]`, extractJSON(content))
	})
}

func TestStripFences(t *testing.T) {
	assert.Equal(t, `{"a":1}`, stripFences("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripFences("```\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripFences(`  {"a":1}  `))
}
