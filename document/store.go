// Package document tracks the text of open documents as the client edits
// them, with UTF-16 aware position helpers.
package document

import (
	"sort"
	"sync"

	"github.com/gossip-lsp/weblsp/protocol"
)

// Store holds the open documents keyed by URI. It is safe for concurrent use.
type Store struct {
	mu   sync.RWMutex
	docs map[protocol.DocumentURI]*Document
}

func NewStore() *Store {
	return &Store{docs: make(map[protocol.DocumentURI]*Document)}
}

// Get returns the document for uri, or nil if it is not open.
func (s *Store) Get(uri protocol.DocumentURI) *Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.docs[uri]
}

// URIs returns the open document URIs in lexical order.
func (s *Store) URIs() []protocol.DocumentURI {
	s.mu.RLock()
	uris := make([]protocol.DocumentURI, 0, len(s.docs))
	for uri := range s.docs {
		uris = append(uris, uri)
	}
	s.mu.RUnlock()
	sort.Slice(uris, func(i, j int) bool { return uris[i] < uris[j] })
	return uris
}

// Open records a newly opened document, replacing any previous copy.
func (s *Store) Open(params *protocol.DidOpenTextDocumentParams) *Document {
	doc := New(params.TextDocument)
	s.mu.Lock()
	s.docs[params.TextDocument.URI] = doc
	s.mu.Unlock()
	return doc
}

// Change applies a didChange to a tracked document. Changes for unknown
// documents are ignored and nil is returned.
func (s *Store) Change(params *protocol.DidChangeTextDocumentParams) *Document {
	doc := s.Get(params.TextDocument.URI)
	if doc != nil {
		doc.Apply(params.TextDocument.Version, params.ContentChanges)
	}
	return doc
}

// Close forgets a document.
func (s *Store) Close(params *protocol.DidCloseTextDocumentParams) {
	s.mu.Lock()
	delete(s.docs, params.TextDocument.URI)
	s.mu.Unlock()
}
