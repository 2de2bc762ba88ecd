package languages

import (
	"github.com/gossip-lsp/weblsp/document"
	"github.com/gossip-lsp/weblsp/protocol"
)

var jsonSnippets = []struct {
	key, body string
}{
	{"object", "{\n  \"$1\": \"$2\"\n}"},
	{"array", "[\n  \"$1\"\n]"},
	{"property", "\"$1\": \"$2\""},
}

type jsonHandler struct{}

func (jsonHandler) Name() string       { return "JSONLanguageFeatures" }
func (jsonHandler) Language() Language { return JSON }

func (jsonHandler) OnOpen(s Session, doc *document.Document) error {
	notifyOpened(s, JSON, doc)
	return nil
}

func (jsonHandler) OnChange(Session, *document.Document) error { return nil }

func (jsonHandler) Complete(Session, Request) (*protocol.CompletionList, error) {
	items := make([]protocol.CompletionItem, len(jsonSnippets))
	for i, sn := range jsonSnippets {
		items[i] = protocol.CompletionItem{
			Label:            sn.key,
			Kind:             protocol.CompletionKindSnippet,
			Documentation:    "JSON snippet: " + sn.key,
			InsertText:       sn.body,
			InsertTextFormat: protocol.SnippetFormat,
			SortText:         "0_" + sn.key,
		}
	}
	return &protocol.CompletionList{IsIncomplete: false, Items: items}, nil
}
