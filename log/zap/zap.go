// Package zap adapts a *zap.Logger to pluginplay.Logger.
package zap

import (
	"sort"

	"go.uber.org/zap"

	pluginplay "github.com/NWChemEx/PluginPlay-sub003"
)

type ZapLogger struct{ L *zap.Logger }

var _ pluginplay.Logger = ZapLogger{}

// New names the logger "pluginplay" so cache events are easy to filter.
func New(l *zap.Logger) ZapLogger { return ZapLogger{L: l.Named("pluginplay")} }

func (z ZapLogger) Debug(msg string, f pluginplay.Fields) { z.L.Debug(msg, zf(f)...) }
func (z ZapLogger) Info(msg string, f pluginplay.Fields)  { z.L.Info(msg, zf(f)...) }
func (z ZapLogger) Warn(msg string, f pluginplay.Fields)  { z.L.Warn(msg, zf(f)...) }
func (z ZapLogger) Error(msg string, f pluginplay.Fields) { z.L.Error(msg, zf(f)...) }

// zf emits fields in key order so log lines are stable.
func zf(f pluginplay.Fields) []zap.Field {
	if len(f) == 0 {
		return nil
	}
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]zap.Field, 0, len(f))
	for _, k := range keys {
		out = append(out, zap.Any(k, f[k]))
	}
	return out
}
