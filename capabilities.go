package weblsp

import "github.com/gossip-lsp/weblsp/protocol"

// buildCapabilities advertises exactly what has been registered.
func (s *Server) buildCapabilities() protocol.ServerCapabilities {
	caps := protocol.ServerCapabilities{}

	syncOpts := &protocol.TextDocumentSyncOptions{
		OpenClose: true,
		Change:    protocol.SyncIncremental,
	}
	caps.TextDocumentSync = syncOpts

	if _, ok := s.getHandler(protocol.MethodCompletion); ok {
		caps.CompletionProvider = &protocol.CompletionOptions{
			TriggerCharacters: append([]string(nil), s.triggerChars...),
		}
	}
	if _, ok := s.getHandler(protocol.MethodExecuteCommand); ok {
		s.mu.RLock()
		caps.ExecuteCommandProvider = &protocol.ExecuteCommandOptions{
			Commands: append([]string(nil), s.commands...),
		}
		s.mu.RUnlock()
	}

	caps.Workspace = &protocol.ServerWorkspaceCapabilities{
		WorkspaceFolders: &protocol.WorkspaceFoldersServerCapabilities{
			Supported:           true,
			ChangeNotifications: true,
		},
	}
	return caps
}
