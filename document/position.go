package document

import (
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/gossip-lsp/weblsp/protocol"
)

// nextBreak returns the index and length of the first line break in s, or
// -1. "\r\n", "\n" and a lone "\r" each end a line.
func nextBreak(s string) (at, size int) {
	i := strings.IndexAny(s, "\r\n")
	if i < 0 {
		return -1, 0
	}
	if s[i] == '\r' && i+1 < len(s) && s[i+1] == '\n' {
		return i, 2
	}
	return i, 1
}

// lineBounds returns the byte range [start, end) of line n, excluding the
// line terminator. ok is false when the text has fewer lines.
func lineBounds(text string, n uint32) (start, end int, ok bool) {
	for i := uint32(0); i < n; i++ {
		at, size := nextBreak(text[start:])
		if at < 0 {
			return len(text), len(text), false
		}
		start += at + size
	}
	end = len(text)
	if at, _ := nextBreak(text[start:]); at >= 0 {
		end = start + at
	}
	return start, end, true
}

// LineAt returns line n (0-indexed) without its terminator, or "" when the
// text has fewer lines.
func LineAt(text string, n uint32) string {
	start, end, ok := lineBounds(text, n)
	if !ok {
		return ""
	}
	return text[start:end]
}

// LinePrefix returns the part of pos.Line before pos.Character. A character
// past the end of the line selects the whole line.
func LinePrefix(text string, pos protocol.Position) string {
	line := LineAt(text, pos.Line)
	return line[:utf16ToByte(line, int(pos.Character))]
}

// OffsetAt converts an LSP position to a byte offset. Positions past the
// end clamp to the end of the line or of the text.
func OffsetAt(text string, pos protocol.Position) int {
	start, end, ok := lineBounds(text, pos.Line)
	if !ok {
		return len(text)
	}
	return start + utf16ToByte(text[start:end], int(pos.Character))
}

// PositionAt converts a byte offset to an LSP position.
func PositionAt(text string, offset int) protocol.Position {
	offset = max(0, min(offset, len(text)))
	before := text[:offset]
	line, lineStart := 0, 0
	for {
		at, size := nextBreak(before[lineStart:])
		if at < 0 {
			break
		}
		line++
		lineStart += at + size
	}
	return protocol.Position{
		Line:      uint32(line),
		Character: uint32(utf16Len(before[lineStart:])),
	}
}

// utf16ToByte returns the byte index in line reached after units UTF-16
// code units. Invalid UTF-8 bytes count as one unit each.
func utf16ToByte(line string, units int) int {
	i, n := 0, 0
	for i < len(line) && n < units {
		r, size := utf8.DecodeRuneInString(line[i:])
		n += runeUnits(r, size)
		i += size
	}
	return i
}

func utf16Len(s string) int {
	n := 0
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		n += runeUnits(r, size)
		i += size
	}
	return n
}

func runeUnits(r rune, size int) int {
	if r == utf8.RuneError && size == 1 {
		return 1
	}
	if n := utf16.RuneLen(r); n > 0 {
		return n
	}
	return 1
}

// ApplyChanges applies content change events in order. A change without a
// range replaces the whole text.
func ApplyChanges(text string, changes []protocol.TextDocumentContentChangeEvent) string {
	for _, change := range changes {
		if change.Range == nil {
			text = change.Text
			continue
		}
		start := OffsetAt(text, change.Range.Start)
		end := OffsetAt(text, change.Range.End)
		if start > end {
			start = end
		}
		text = text[:start] + change.Text + text[end:]
	}
	return text
}
