package stream

// Frame markers used by the chat completions event stream.
const (
	DataPrefix = "data:"
	Sentinel   = "[DONE]"
)

// ChatResponse represents the structure of one streamed chunk from the chat API.
type ChatResponse struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// content returns the text carried by the first choice, if any.
func (r ChatResponse) content() string {
	if len(r.Choices) == 0 {
		return ""
	}
	if c := r.Choices[0].Delta.Content; c != "" {
		return c
	}
	return r.Choices[0].Message.Content
}

// Stats describes what a Decoder saw while consuming frames.
type Stats struct {
	Frames   int  // non-empty frames inspected
	Deltas   int  // non-empty deltas appended
	Skipped  int  // frames dropped because they did not deserialize
	Sentinel bool // decoding ended on the terminal sentinel
}

// Result is the outcome of decoding a whole response body.
type Result struct {
	Text  string
	Stats Stats
}
