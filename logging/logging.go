// Package logging provides the structured logging infrastructure shared by
// every brainy engine component. It builds on logrus with intelligent
// output routing so that error-level entries reach stderr while everything
// else goes to stdout, which plays well with container log collectors that
// treat the two streams differently.
package logging

import (
	"bytes"
	"os"

	"github.com/sirupsen/logrus"
)

// OutputSplitter routes logrus output to stderr for error-level entries and
// stdout for everything else, based on the formatted "level=error" marker.
type OutputSplitter struct{}

func (s *OutputSplitter) Write(p []byte) (int, error) {
	if bytes.Contains(p, []byte("level=error")) {
		return os.Stderr.Write(p)
	}
	return os.Stdout.Write(p)
}

// Root is the base logger every component logger derives from via New.
// Prefer New(component) in engine code; Root exists for callers that need
// to reconfigure formatting/level globally (e.g. a CLI frontend).
var Root = logrus.New()

func init() {
	Root.SetOutput(&OutputSplitter{})
}

// New returns a logger entry tagged with component=name, the unit every
// brainy package (hnsw, txn, branch, storage, ...) logs through instead of
// reaching for a process-global logger directly. Every entry derives from
// Root, so level and formatter are shared process-wide: Configure changes
// them for every Engine in the process at once.
func New(component string) *logrus.Entry {
	return Root.WithField("component", component)
}
