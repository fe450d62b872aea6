package oracle

import "testing"

func TestStripCodeFence(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"PlainJSON", `{"entities": []}`, `{"entities": []}`},
		{"BareFence", "```\n{\"entities\": []}\n```", `{"entities": []}`},
		{"JSONLanguageTag", "```json\n{\"entities\": []}\n```", `{"entities": []}`},
		{"SurroundingWhitespace", "  \n```json\n{\"a\": 1}\n```\n  ", `{"a": 1}`},
		{"UnclosedFence", "```json\n{\"a\": 1}", `{"a": 1}`},
		{"FenceInsideBodyUntouched", "{\"text\": \"use ``` for code\"}", "{\"text\": \"use ``` for code\"}"},
		{"Empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripCodeFence(tt.in); got != tt.want {
				t.Errorf("StripCodeFence(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
