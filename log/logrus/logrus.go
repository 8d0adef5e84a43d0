// Package logrus adapts a *logrus.Entry to pluginplay.Logger.
package logrus

import (
	"github.com/sirupsen/logrus"

	pluginplay "github.com/NWChemEx/PluginPlay-sub003"
)

type LogrusLogger struct{ E *logrus.Entry }

var _ pluginplay.Logger = LogrusLogger{}

func New(l *logrus.Logger) LogrusLogger {
	return LogrusLogger{E: logrus.NewEntry(l).WithField("component", "pluginplay")}
}

func (l LogrusLogger) Debug(msg string, f pluginplay.Fields) {
	l.E.WithFields(logrus.Fields(f)).Debug(msg)
}
func (l LogrusLogger) Info(msg string, f pluginplay.Fields) { l.E.WithFields(logrus.Fields(f)).Info(msg) }
func (l LogrusLogger) Warn(msg string, f pluginplay.Fields) { l.E.WithFields(logrus.Fields(f)).Warn(msg) }
func (l LogrusLogger) Error(msg string, f pluginplay.Fields) {
	l.E.WithFields(logrus.Fields(f)).Error(msg)
}
