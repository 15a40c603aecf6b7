// Package process provides subprocess lifecycle management.
//
// Process wraps os/exec for a single child:
//   - The child runs in its own process group so signals reach everything it spawned
//   - Graceful shutdown with SIGINT and configurable timeout
//   - Force kill if graceful shutdown times out, reported when even that fails
//   - Output streaming with pluggable log parsing and a bounded output tail
//   - Observable status transitions (starting, running, exited)
//
// Example usage:
//
//	proc := process.New("transcoder", "ffmpeg", args, logger,
//	    process.WithLogParser(logging.GetLogger("ffmpeg"), ffmpeg.ParseLogLevel),
//	    process.WithStateChange(func(h process.Handle) { log.Println(h.Status) }),
//	)
//	if err := proc.Start(); err != nil {
//	    return err
//	}
//	proc.MarkRunning()
//	defer proc.Stop()
package process
