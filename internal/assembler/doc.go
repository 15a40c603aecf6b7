// Package assembler renders a stream.Config into everything needed to run a
// session: the media server invocation and its YAML configuration, the
// transcoder invocation, and the connection strings consumers use.
//
// Render is pure. It never touches the filesystem or spawns processes, so the
// same input always yields the same Plan.
package assembler
