package remotecall

import "github.com/sirupsen/logrus"

// log is the package-wide structured logger. Callers that want this
// package's diagnostic output folded into their own logging pipeline can
// replace it with a configured entry via SetLogger; by default it writes to
// logrus's standard logger at its default (Info) level, so the Debug
// messages stay hidden unless the host process lowers the level, while the
// Warn messages for failed cleanup are shown.
var log = logrus.WithField("component", "remotecall")

// SetLogger lets an embedding application supply its own *logrus.Entry,
// e.g. to attach a request ID or route output through a shared formatter.
func SetLogger(entry *logrus.Entry) {
	if entry != nil {
		log = entry
	}
}
