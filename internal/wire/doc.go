// Package wire implements the line-delimited JSON-RPC framing spoken by the
// agent-browser daemon over its stdio pipes.
//
// The daemon writes one JSON message per newline-terminated line. Because the
// pipes deliver bytes in arbitrarily fragmented chunks, a Framer reassembles
// chunks into complete lines before decoding. Non-protocol lines (diagnostic
// output sharing the stream) are expected and dropped during decoding.
package wire
