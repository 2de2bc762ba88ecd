package weblsptest

import (
	"go.lsp.dev/uri"

	"github.com/gossip-lsp/weblsp/protocol"
)

// FileURI returns the file:// URI for an absolute path.
func FileURI(path string) string {
	return string(uri.File(path))
}

// Pos creates a position from a 0-indexed line and UTF-16 character.
func Pos(line, char uint32) protocol.Position {
	return protocol.Position{Line: line, Character: char}
}

func Rng(startLine, startChar, endLine, endChar uint32) protocol.Range {
	return protocol.Range{Start: Pos(startLine, startChar), End: Pos(endLine, endChar)}
}
