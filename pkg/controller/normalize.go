package controller

import "encoding/json"

// Streaming chunks reach the controller in several structurally distinct
// wire forms depending on which upstream code path produced them (direct
// token streaming vs. replayed event log). Rather than probing untyped maps,
// the known shapes are decoded as one variant struct and matched in a fixed
// priority order. Unknown shapes yield no text; they are never an error.
//
// Recognized shapes, in order:
//
//  1. {"text": "..."}                  direct string field
//  2. {"parts": [{"text": "..."}]}     ordered part list
//  3. {"content": {...}}               wrapper used by the event-log path
//  4. {"delta": {...}}                 wrapper used by the streaming path
//  5. {"outputText": "..."}            top-level alternate text field
type chunkShape struct {
	Text       string          `json:"text"`
	Parts      []chunkPart     `json:"parts"`
	Content    json.RawMessage `json:"content"`
	Delta      json.RawMessage `json:"delta"`
	OutputText string          `json:"outputText"`
}

type chunkPart struct {
	Text string `json:"text"`
}

// maxWrapperDepth bounds wrapper recursion: wrappers may nest one inside the
// other but never deeper in any known emitter.
const maxWrapperDepth = 3

// ExtractText returns the plain text content of a raw streaming chunk, or ""
// when the chunk carries none. The first matching shape wins.
func ExtractText(raw json.RawMessage) string {
	return extractText(raw, maxWrapperDepth)
}

func extractText(raw json.RawMessage, depth int) string {
	if len(raw) == 0 || depth == 0 {
		return ""
	}

	var shape chunkShape
	if err := json.Unmarshal(raw, &shape); err != nil {
		return ""
	}

	if shape.Text != "" {
		return shape.Text
	}
	if len(shape.Parts) > 0 {
		var combined string
		for _, part := range shape.Parts {
			combined += part.Text
		}
		if combined != "" {
			return combined
		}
	}
	if len(shape.Content) > 0 {
		if text := extractText(shape.Content, depth-1); text != "" {
			return text
		}
	}
	if len(shape.Delta) > 0 {
		if text := extractText(shape.Delta, depth-1); text != "" {
			return text
		}
	}
	return shape.OutputText
}
