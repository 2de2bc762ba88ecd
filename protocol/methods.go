package protocol

// Lifecycle methods.
const (
	MethodInitialize    = "initialize"
	MethodInitialized   = "initialized"
	MethodShutdown      = "shutdown"
	MethodExit          = "exit"
	MethodSetTrace      = "$/setTrace"
	MethodCancelRequest = "$/cancelRequest"
)

// Text document synchronization notifications (client -> server).
const (
	MethodDidOpen   = "textDocument/didOpen"
	MethodDidChange = "textDocument/didChange"
	MethodDidClose  = "textDocument/didClose"
)

// Requests handled by the server.
const (
	MethodCompletion                = "textDocument/completion"
	MethodExecuteCommand            = "workspace/executeCommand"
	MethodDidChangeConfiguration    = "workspace/didChangeConfiguration"
	MethodDidChangeWorkspaceFolders = "workspace/didChangeWorkspaceFolders"
)

// Server -> client.
const (
	MethodLogMessage             = "window/logMessage"
	MethodShowMessage            = "window/showMessage"
	MethodWorkspaceConfiguration = "workspace/configuration"
	MethodRegisterCapability     = "client/registerCapability"
)
