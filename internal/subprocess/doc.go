// Package subprocess implements the daemon transport: it spawns the
// agent-browser binary and exchanges line-delimited JSON messages over the
// child's stdio pipes.
package subprocess
