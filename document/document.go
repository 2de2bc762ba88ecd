package document

import (
	"sync"

	"github.com/gossip-lsp/weblsp/protocol"
)

// Document is one open text document. It is safe for concurrent use.
type Document struct {
	mu         sync.RWMutex
	uri        protocol.DocumentURI
	languageID string
	version    int32
	text       string
}

// New creates a Document from the item sent with didOpen.
func New(item protocol.TextDocumentItem) *Document {
	return &Document{
		uri:        item.URI,
		languageID: item.LanguageID,
		version:    item.Version,
		text:       item.Text,
	}
}

func (d *Document) URI() protocol.DocumentURI {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.uri
}

// LanguageID is the client's language identifier, e.g. "html".
func (d *Document) LanguageID() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.languageID
}

func (d *Document) Version() int32 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.version
}

func (d *Document) Text() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.text
}

// LineAt returns line n without its terminator, or "" past the end.
func (d *Document) LineAt(line uint32) string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return LineAt(d.text, line)
}

// LinePrefix returns the text of pos.Line that precedes pos.
func (d *Document) LinePrefix(pos protocol.Position) string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return LinePrefix(d.text, pos)
}

// Apply applies content changes in order and records the new version.
func (d *Document) Apply(version int32, changes []protocol.TextDocumentContentChangeEvent) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.text = ApplyChanges(d.text, changes)
	d.version = version
}
