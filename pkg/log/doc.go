/*
Package log provides structured logging for the resource core using
zerolog: a global logger, level/format configuration via Init, and
context-logger helpers for the fields resource operations care about
(component, resource kind, resource id).

# Usage

	log.Init(log.Config{Level: log.InfoLevel, JSONOutput: true, Output: os.Stdout})

	log.Info("manager started")

	mgrLog := log.WithComponent("manager")
	mgrLog.Debug().Str("resource_kind", "PeerDescriptor").Msg("insert committed")

	kindLog := log.WithResourceKind("ClusterConfiguration").
		With().Str("resource_id", id.String()).Logger()
	kindLog.Error().Err(err).Msg("insert rejected")

# Log Output Examples

JSON:

	{"level":"debug","component":"manager","resource_kind":"PeerDescriptor","time":"2026-08-01T10:30:00Z","message":"insert committed"}

Console:

	2026-08-01T10:30:00Z DBG insert committed component=manager resource_kind=PeerDescriptor
*/
package log
