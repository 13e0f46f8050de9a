package models

import (
	"bufio"
	"io"
	"regexp"
	"strings"
)

// TranscriptLine is one utterance in a meeting transcript.
type TranscriptLine struct {
	Timestamp string `json:"timestamp,omitempty"`
	Speaker   string `json:"speaker,omitempty"`
	Text      string `json:"text"`
}

// Transcript is a parsed meeting transcript.
type Transcript struct {
	Source string           `json:"source"`
	Lines  []TranscriptLine `json:"lines"`
}

// speakerLine matches the "[HH:MM] Speaker: text" transcript format; the
// timestamp is optional.
var speakerLine = regexp.MustCompile(`^(?:\[(\d{1,2}:\d{2}(?::\d{2})?)\]\s*)?([A-Za-z][\w .'-]{0,40}):\s+(.*)$`)

// ParseTranscript reads a speaker-line transcript. Lines that do not match
// the speaker format are kept as plain text so free-form notes still flow
// into the pipeline.
func ParseTranscript(r io.Reader, source string) (*Transcript, error) {
	transcript := &Transcript{Source: source}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if m := speakerLine.FindStringSubmatch(line); m != nil {
			transcript.Lines = append(transcript.Lines, TranscriptLine{
				Timestamp: m[1],
				Speaker:   m[2],
				Text:      m[3],
			})
			continue
		}
		transcript.Lines = append(transcript.Lines, TranscriptLine{Text: line})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return transcript, nil
}

// IsEmpty reports whether the transcript has no content
func (t *Transcript) IsEmpty() bool {
	return len(t.Lines) == 0
}

// Text renders the transcript back into prompt-friendly plain text
func (t *Transcript) Text() string {
	var b strings.Builder
	for _, line := range t.Lines {
		if line.Speaker != "" {
			b.WriteString(line.Speaker)
			b.WriteString(": ")
		}
		b.WriteString(line.Text)
		b.WriteString("\n")
	}
	return b.String()
}

// Speakers returns the distinct speaker names in order of first appearance
func (t *Transcript) Speakers() []string {
	seen := make(map[string]bool)
	var speakers []string
	for _, line := range t.Lines {
		if line.Speaker != "" && !seen[line.Speaker] {
			seen[line.Speaker] = true
			speakers = append(speakers, line.Speaker)
		}
	}
	return speakers
}
