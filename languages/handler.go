// Package languages holds the per-language completion handlers and the
// router that picks one by file extension.
package languages

import (
	"log/slog"

	"github.com/gossip-lsp/weblsp/document"
	"github.com/gossip-lsp/weblsp/protocol"
)

// Language identifies a supported document language.
type Language string

const (
	HTML Language = "html"
	CSS  Language = "css"
	JSON Language = "json"
)

// All lists the supported languages in display order.
var All = []Language{HTML, CSS, JSON}

// DisplayName is the upper-case name shown to users.
func (l Language) DisplayName() string {
	switch l {
	case HTML:
		return "HTML"
	case CSS:
		return "CSS"
	case JSON:
		return "JSON"
	}
	return string(l)
}

// LanguageSet is the set of enabled languages.
type LanguageSet map[Language]bool

// AllLanguages returns a set with every language enabled.
func AllLanguages() LanguageSet {
	s := make(LanguageSet, len(All))
	for _, l := range All {
		s[l] = true
	}
	return s
}

func (s LanguageSet) Has(l Language) bool { return s[l] }

// DisplayNames lists the enabled languages in display order.
func (s LanguageSet) DisplayNames() []string {
	var names []string
	for _, l := range All {
		if s.Has(l) {
			names = append(names, l.DisplayName())
		}
	}
	return names
}

// Session is what a handler may use of the running server.
type Session interface {
	// Notify shows a message to the user when notifications are enabled.
	Notify(typ protocol.MessageType, message string)
	Logger() *slog.Logger
}

// Request describes a completion request. Document is nil when the client
// asks about a document it never opened.
type Request struct {
	Document   *document.Document
	Position   protocol.Position
	LinePrefix string
}

// NewRequest captures the text before the cursor on its line.
func NewRequest(doc *document.Document, pos protocol.Position) Request {
	req := Request{Document: doc, Position: pos}
	if doc != nil {
		req.LinePrefix = doc.LinePrefix(pos)
	}
	return req
}

// Handler provides the features of one language.
type Handler interface {
	// Name is the handler's display name, used in user notifications.
	Name() string
	Language() Language
	OnOpen(s Session, doc *document.Document) error
	OnChange(s Session, doc *document.Document) error
	Complete(s Session, req Request) (*protocol.CompletionList, error)
}

// HandlerFor returns the handler of l, or nil.
func HandlerFor(l Language) Handler {
	switch l {
	case HTML:
		return htmlHandler{}
	case CSS:
		return cssHandler{}
	case JSON:
		return jsonHandler{}
	}
	return nil
}

// EmptyList is the reply for documents no handler serves.
func EmptyList() *protocol.CompletionList {
	return &protocol.CompletionList{IsIncomplete: false, Items: []protocol.CompletionItem{}}
}

func notifyOpened(s Session, l Language, doc *document.Document) {
	if doc != nil {
		s.Logger().Debug("document opened", "uri", doc.URI(), "language", l, "version", doc.Version())
	}
	s.Notify(protocol.Info, "Opened "+l.DisplayName()+" document")
}
