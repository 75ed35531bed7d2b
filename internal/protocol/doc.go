// Package protocol correlates outbound calls with inbound responses on a
// daemon connection.
//
// Responses arrive in whatever order the daemon produces them, so each call
// is tagged with a monotonically increasing id and tracked in a pending
// table until its response arrives or its timeout fires. Whichever event
// wins removes the entry atomically; the loser becomes a no-op.
package protocol
