// Package logging provides the process-wide structured logger shared by all
// components (§9 "Global state": logging is process-wide and lock-light).
package logging

import (
	"os"

	nested "github.com/antonfisher/nested-logrus-formatter"
	"github.com/sirupsen/logrus"
)

// Log is the shared logger. Components log through this variable (directly
// or via the helpers below) rather than the package-level logrus funcs, so
// tests can replace it with a discard logger.
var Log = newDefault()

func newDefault() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stdout)
	l.SetFormatter(&nested.Formatter{
		HideKeys:    false,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	l.SetLevel(logrus.InfoLevel)
	return l
}

// WithURL is a convenience helper used throughout fetch/store/traversal to
// tag log lines with the resource they concern.
func WithURL(url string) *logrus.Entry {
	return Log.WithField("url", url)
}

// WithTile tags log lines with a tile id in "lod-x-y" form.
func WithTile(tileId string) *logrus.Entry {
	return Log.WithField("tile_id", tileId)
}
