package pipeline

// EventType tags one streamed event. Every stream ends with exactly one
// terminal event: done or error, never both.
type EventType string

const (
	EventStatus   EventType = "status"
	EventText     EventType = "text"
	EventMetadata EventType = "metadata"
	EventDone     EventType = "done"
	EventError    EventType = "error"
)

// StreamEvent is the wire shape of one delivery event. Fields not relevant
// to the event type stay unset and are omitted from the encoding.
type StreamEvent struct {
	Type EventType `json:"type"`

	// Status events.
	Mode string `json:"mode,omitempty"`

	// Text events. Content carries a raw token including its trailing
	// whitespace, so concatenating all text events reproduces the full
	// response byte for byte.
	Content string `json:"content,omitempty"`

	// Metadata events.
	Category     string   `json:"category,omitempty"`
	BackendUsed  string   `json:"backend_used,omitempty"`
	Confidence   string   `json:"confidence,omitempty"`
	Verified     *bool    `json:"verified,omitempty"`
	SourcesCount *int     `json:"sources_count,omitempty"`
	Sources      []string `json:"sources,omitempty"`

	// Error events.
	Error string `json:"error,omitempty"`
}

// Emitter delivers one event to the client. A non-nil return aborts the
// stream; the pipeline stops emitting immediately.
type Emitter func(StreamEvent) error

// tokenize splits text into word tokens, each carrying the whitespace run
// that follows it. The concatenation of all tokens equals the input exactly,
// including leading whitespace, which rides on a token of its own.
func tokenize(text string) []string {
	if text == "" {
		return nil
	}

	var tokens []string
	start := 0
	inSpace := isSpaceByte(text[0])

	for i := 0; i < len(text); i++ {
		space := isSpaceByte(text[i])
		if inSpace && !space {
			// A whitespace run ends. If it follows a word, it belongs to
			// that word's token; a leading run becomes its own token.
			if len(tokens) == 0 && start == 0 {
				tokens = append(tokens, text[start:i])
			} else if len(tokens) > 0 {
				tokens[len(tokens)-1] += text[start:i]
			}
			start = i
		} else if !inSpace && space {
			tokens = append(tokens, text[start:i])
			start = i
		}
		inSpace = space
	}

	// Flush the tail.
	if inSpace {
		if len(tokens) == 0 {
			tokens = append(tokens, text[start:])
		} else {
			tokens[len(tokens)-1] += text[start:]
		}
	} else {
		tokens = append(tokens, text[start:])
	}

	return tokens
}

func isSpaceByte(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}
