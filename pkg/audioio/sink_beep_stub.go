//go:build !cgo

package audioio

import (
	"fmt"
	"log/slog"
)

// newBeepSink returns an error when built without cgo.
func newBeepSink(cfg Config, logger *slog.Logger) (Sink, error) {
	return nil, fmt.Errorf("speaker playback requires cgo")
}
