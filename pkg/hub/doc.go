// Package hub provides the TCP chat hub: session registry, broadcast
// engine, history log, and the per-connection session loop.
//
// Invariants:
// - Every broadcast envelope is appended to history before any delivery.
// - A joining session receives the full history as a prefix of its stream.
// - A session never receives envelopes it sent itself.
// - Exactly one leave notice is broadcast per active session.
// - A write failure prunes the failed session without aborting the pass.
//
// Usage:
//
//	srv, err := hub.NewServer(hub.ServerOptions{Port: 8081, Logger: logger})
//	if err != nil {
//		return err
//	}
//	if err := srv.Start(); err != nil {
//		return err
//	}
//	defer srv.Stop()
package hub
