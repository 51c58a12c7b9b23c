package controller

import (
	"encoding/json"
	"testing"
)

func TestExtractText(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want string
	}{
		{"direct text", `{"text":"hello"}`, "hello"},
		{"parts list", `{"parts":[{"text":"hel"},{"text":"lo"}]}`, "hello"},
		{"content wrapper", `{"content":{"parts":[{"text":"wrapped"}]}}`, "wrapped"},
		{"delta wrapper", `{"delta":{"text":"token"}}`, "token"},
		{"output text", `{"outputText":"alt"}`, "alt"},
		{"nested wrappers", `{"content":{"delta":{"text":"deep"}}}`, "deep"},
		{"text wins over parts", `{"text":"a","parts":[{"text":"b"}]}`, "a"},
		{"parts win over wrapper", `{"parts":[{"text":"a"}],"content":{"text":"b"}}`, "a"},
		{"empty parts fall through", `{"parts":[{"text":""}],"outputText":"fallback"}`, "fallback"},
		{"empty object", `{}`, ""},
		{"unknown shape", `{"usage":{"tokens":12}}`, ""},
		{"non-text part fields", `{"parts":[{"functionCall":{"name":"f"}}]}`, ""},
		{"malformed", `{"text":`, ""},
		{"empty input", ``, ""},
		{"null", `null`, ""},
		{"scalar", `"just a string"`, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ExtractText(json.RawMessage(tc.raw)); got != tc.want {
				t.Errorf("ExtractText(%s) = %q, want %q", tc.raw, got, tc.want)
			}
		})
	}
}

func TestExtractTextDepthBounded(t *testing.T) {
	// A wrapper chain deeper than any known emitter produces is cut off
	// rather than followed indefinitely.
	raw := `{"content":{"content":{"content":{"content":{"text":"too deep"}}}}}`
	if got := ExtractText(json.RawMessage(raw)); got != "" {
		t.Errorf("ExtractText = %q, want empty for over-deep nesting", got)
	}
}
