// Package agentbrowser provides a Go client for the agent-browser daemon.
//
// The daemon is a separate binary that drives a real browser; this package
// spawns it as a subprocess and speaks its line-delimited JSON-RPC protocol
// over the child's stdio pipes. Each request is correlated to its response
// by a monotonically increasing id, so concurrent calls on one session are
// safe and may complete out of order.
//
// # Basic Usage
//
// Open a session, issue calls, and close when done:
//
//	ctx := context.Background()
//	sess, err := agentbrowser.Open(ctx,
//	    agentbrowser.WithSession("scraper"),
//	    agentbrowser.WithHeaded(),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer sess.Close()
//
//	result, err := sess.Call(ctx, "navigate", map[string]any{"url": "https://example.com"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(string(result))
//
// # Timeouts
//
// Every call is bounded by a timeout (30s by default). Override the session
// default with WithCallTimeout, or a single call with CallWithTimeout:
//
//	result, err := sess.CallWithTimeout(ctx, "screenshot", nil, 2*time.Minute)
//
// # Error Handling
//
// Failures are scoped to the call that produced them and carry distinct
// types, so a refusal can be told apart from a dead or silent daemon:
//
//	result, err := sess.Call(ctx, "click", params)
//	if err != nil {
//	    if rpcErr, ok := errors.AsType[*agentbrowser.RPCError](err); ok {
//	        log.Printf("daemon refused: %s", rpcErr.Message)
//	    }
//	    if errors.Is(err, agentbrowser.ErrCallTimeout) {
//	        log.Print("daemon never answered")
//	    }
//	    if procErr, ok := errors.AsType[*agentbrowser.ProcessError](err); ok {
//	        log.Printf("daemon died (exit %d): %s", procErr.ExitCode, procErr.Stderr)
//	    }
//	}
//
// # Logging
//
// For detailed operation tracking, inject a logger:
//
//	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
//	sess, err := agentbrowser.Open(ctx, agentbrowser.WithLogger(logger))
//
// # Requirements
//
// The agent-browser binary must be installed and available in PATH, or its
// location given with WithBinPath. Launch options not set explicitly are
// resolved from AGENT_BROWSER_* environment variables and from
// .agent-browserrc.json files (user-level, then project-level).
package agentbrowser
