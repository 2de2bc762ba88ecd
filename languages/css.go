package languages

import (
	"github.com/gossip-lsp/weblsp/document"
	"github.com/gossip-lsp/weblsp/protocol"
)

var cssProperties = []string{
	"color", "background-color", "margin", "padding", "font-size",
	"font-weight", "display", "flex", "grid", "width", "height", "border",
	"text-align", "position", "top", "left", "right", "bottom",
}

type cssHandler struct{}

func (cssHandler) Name() string       { return "CSSLanguageFeatures" }
func (cssHandler) Language() Language { return CSS }

func (cssHandler) OnOpen(s Session, doc *document.Document) error {
	notifyOpened(s, CSS, doc)
	return nil
}

func (cssHandler) OnChange(Session, *document.Document) error { return nil }

// Complete offers every known property regardless of the cursor.
func (cssHandler) Complete(Session, Request) (*protocol.CompletionList, error) {
	items := make([]protocol.CompletionItem, len(cssProperties))
	for i, prop := range cssProperties {
		items[i] = protocol.CompletionItem{
			Label:         prop,
			Kind:          protocol.CompletionKindProperty,
			Documentation: "CSS property " + prop,
		}
	}
	return &protocol.CompletionList{IsIncomplete: false, Items: items}, nil
}
