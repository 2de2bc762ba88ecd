package document

import (
	"testing"

	"github.com/gossip-lsp/weblsp/protocol"
)

func TestOffsetAt(t *testing.T) {
	text := "hello\nworld\nfoo"
	tests := []struct {
		pos  protocol.Position
		want int
	}{
		{protocol.Position{Line: 0, Character: 0}, 0},
		{protocol.Position{Line: 0, Character: 5}, 5},
		{protocol.Position{Line: 0, Character: 99}, 5},
		{protocol.Position{Line: 1, Character: 0}, 6},
		{protocol.Position{Line: 1, Character: 5}, 11},
		{protocol.Position{Line: 2, Character: 3}, 15},
		{protocol.Position{Line: 7, Character: 0}, 15},
	}
	for _, tt := range tests {
		if got := OffsetAt(text, tt.pos); got != tt.want {
			t.Errorf("OffsetAt(%v) = %d, want %d", tt.pos, got, tt.want)
		}
	}
}

func TestPositionAt(t *testing.T) {
	text := "hello\nworld\nfoo"
	tests := []struct {
		offset int
		want   protocol.Position
	}{
		{0, protocol.Position{Line: 0, Character: 0}},
		{5, protocol.Position{Line: 0, Character: 5}},
		{6, protocol.Position{Line: 1, Character: 0}},
		{12, protocol.Position{Line: 2, Character: 0}},
		{100, protocol.Position{Line: 2, Character: 3}},
	}
	for _, tt := range tests {
		if got := PositionAt(text, tt.offset); got != tt.want {
			t.Errorf("PositionAt(%d) = %v, want %v", tt.offset, got, tt.want)
		}
	}
}

func TestUTF16Handling(t *testing.T) {
	// U+1F600 takes two UTF-16 code units and four UTF-8 bytes.
	text := "a\U0001F600b"
	offset := OffsetAt(text, protocol.Position{Line: 0, Character: 3})
	if text[offset] != 'b' {
		t.Errorf("expected 'b' at UTF-16 offset 3, got %q (byte offset %d)", text[offset], offset)
	}
	if got := PositionAt(text, len(text)); got.Character != 4 {
		t.Errorf("PositionAt(end).Character = %d, want 4", got.Character)
	}
}

func TestLinePrefix(t *testing.T) {
	text := "<div>\r\n  <sp\né<a"
	tests := []struct {
		name string
		pos  protocol.Position
		want string
	}{
		{"start of line", protocol.Position{Line: 0, Character: 0}, ""},
		{"crlf stripped", protocol.Position{Line: 0, Character: 50}, "<div>"},
		{"mid line", protocol.Position{Line: 1, Character: 5}, "  <sp"},
		{"non-ascii", protocol.Position{Line: 2, Character: 2}, "é<"},
		{"past last line", protocol.Position{Line: 9, Character: 1}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := LinePrefix(text, tt.pos); got != tt.want {
				t.Errorf("LinePrefix(%v) = %q, want %q", tt.pos, got, tt.want)
			}
		})
	}
}

func TestLoneCarriageReturn(t *testing.T) {
	text := "<div>\r<sp\r\n\rend"

	if got := LinePrefix(text, protocol.Position{Line: 1, Character: 3}); got != "<sp" {
		t.Errorf("LinePrefix(1:3) = %q, want %q", got, "<sp")
	}
	if got := LineAt(text, 2); got != "" {
		t.Errorf("LineAt(2) = %q, want empty line", got)
	}
	if got := LineAt(text, 3); got != "end" {
		t.Errorf("LineAt(3) = %q, want %q", got, "end")
	}
	if got := OffsetAt(text, protocol.Position{Line: 3, Character: 1}); got != 13 {
		t.Errorf("OffsetAt(3:1) = %d, want 13", got)
	}
	if got, want := PositionAt(text, 13), (protocol.Position{Line: 3, Character: 1}); got != want {
		t.Errorf("PositionAt(13) = %v, want %v", got, want)
	}

	edit := []protocol.TextDocumentContentChangeEvent{{
		Range: &protocol.Range{
			Start: protocol.Position{Line: 1, Character: 1},
			End:   protocol.Position{Line: 1, Character: 3},
		},
		Text: "ection",
	}}
	if got, want := ApplyChanges("<div>\r<sp", edit), "<div>\r<section"; got != want {
		t.Errorf("ApplyChanges = %q, want %q", got, want)
	}
}

func TestApplyChanges(t *testing.T) {
	text := "hello world"
	changes := []protocol.TextDocumentContentChangeEvent{
		{
			Range: &protocol.Range{
				Start: protocol.Position{Line: 0, Character: 6},
				End:   protocol.Position{Line: 0, Character: 11},
			},
			Text: "gopher",
		},
		{
			Range: &protocol.Range{
				Start: protocol.Position{Line: 0, Character: 0},
				End:   protocol.Position{Line: 0, Character: 0},
			},
			Text: "> ",
		},
	}
	if got, want := ApplyChanges(text, changes), "> hello gopher"; got != want {
		t.Errorf("ApplyChanges = %q, want %q", got, want)
	}

	full := []protocol.TextDocumentContentChangeEvent{{Text: "replaced"}}
	if got := ApplyChanges(text, full); got != "replaced" {
		t.Errorf("full replacement = %q", got)
	}
}
