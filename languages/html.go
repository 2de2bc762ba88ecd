package languages

import (
	"strings"

	"github.com/gossip-lsp/weblsp/document"
	"github.com/gossip-lsp/weblsp/protocol"
)

var htmlElements = []string{
	"div", "span", "p", "h1", "h2", "h3", "ul", "ol", "li", "table",
	"tr", "td", "th", "form", "input", "button", "a", "img", "header",
	"footer", "nav", "main", "section", "article",
}

type htmlHandler struct{}

func (htmlHandler) Name() string       { return "HTMLLanguageFeatures" }
func (htmlHandler) Language() Language { return HTML }

func (htmlHandler) OnOpen(s Session, doc *document.Document) error {
	notifyOpened(s, HTML, doc)
	return nil
}

func (htmlHandler) OnChange(Session, *document.Document) error { return nil }

// Complete offers element snippets completing an open tag when the cursor
// follows an unclosed "<", and bare element names otherwise.
func (htmlHandler) Complete(_ Session, req Request) (*protocol.CompletionList, error) {
	inTag := InTagContext(req.LinePrefix)
	items := make([]protocol.CompletionItem, len(htmlElements))
	for i, el := range htmlElements {
		item := protocol.CompletionItem{
			Label:         el,
			Kind:          protocol.CompletionKindClass,
			Documentation: "HTML element " + el,
		}
		if inTag {
			item.Kind = protocol.CompletionKindSnippet
			item.InsertText = el + "></" + el + ">"
		}
		items[i] = item
	}
	return &protocol.CompletionList{IsIncomplete: false, Items: items}, nil
}

// InTagContext reports whether before contains a "<" that no ">" follows.
func InTagContext(before string) bool {
	i := strings.LastIndexByte(before, '<')
	return i >= 0 && !strings.Contains(before[i+1:], ">")
}
