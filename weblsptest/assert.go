package weblsptest

import (
	"strings"
	"testing"

	"github.com/gossip-lsp/weblsp/protocol"
)

// Labels lists completion labels in order.
func Labels(list *protocol.CompletionList) []string {
	if list == nil {
		return nil
	}
	labels := make([]string, len(list.Items))
	for i, item := range list.Items {
		labels[i] = item.Label
	}
	return labels
}

// AssertCompletionContains checks that list has an item labelled label.
func AssertCompletionContains(t testing.TB, list *protocol.CompletionList, label string) {
	t.Helper()
	if list == nil {
		t.Fatal("completion list is nil")
	}
	for _, item := range list.Items {
		if item.Label == label {
			return
		}
	}
	t.Errorf("completion list does not contain %q, got: %v", label, Labels(list))
}

// AssertMessage checks that a showMessage of type typ containing substr was
// received.
func AssertMessage(t testing.TB, msgs []protocol.ShowMessageParams, typ protocol.MessageType, substr string) {
	t.Helper()
	for _, m := range msgs {
		if m.Type == typ && strings.Contains(m.Message, substr) {
			return
		}
	}
	t.Errorf("no %s message containing %q, got: %+v", typ, substr, msgs)
}

// AssertNoMessages checks that no showMessage was received.
func AssertNoMessages(t testing.TB, msgs []protocol.ShowMessageParams) {
	t.Helper()
	if len(msgs) > 0 {
		t.Errorf("expected no messages, got: %+v", msgs)
	}
}
