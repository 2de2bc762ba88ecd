// Package weblsp is a small Language Server Protocol framework: functional
// handler registration, capabilities derived from what is registered, a
// middleware chain, a built-in document store and typed configuration with
// hot reload.
//
// A server needs only a few lines:
//
//	s := weblsp.NewServer("my-server", "0.1.0")
//	s.OnCompletion(complete)
//	err := weblsp.Serve(ctx, s, weblsp.WithStdio())
//
// Serve never exits the process. It returns ErrExit after a clean
// shutdown/exit sequence and ErrExitWithoutShutdown otherwise, leaving the
// exit status to the caller.
package weblsp
