// Package supervisor runs a streaming session as two cooperating child
// processes: the media server and the transcoder that publishes to it.
//
// A session starts the media server, waits until it accepts connections, and
// only then starts the transcoder. Both children are stopped together, the
// transcoder first. If either child exits on its own the session collapses:
// the other child is stopped and a SessionCollapsed error is recorded along
// with the last lines the failed child printed.
//
// Every status change of either child is kept in the session history, which
// Watch replays before following live changes.
package supervisor
