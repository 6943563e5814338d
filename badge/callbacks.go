package badge

import (
	"time"

	"github.com/moffa90/go-badgelink/link"
)

// Progress phases.
const (
	PhaseUploading      = "uploading"
	PhaseDownloading    = "downloading"
	PhaseFirmwareHeader = "firmware-header"
	PhaseFirmwareBody   = "firmware-body"
	PhaseComplete       = "complete"
)

// Progress contains information about a bulk transfer.
// Passed to ProgressCallback while images and firmware move over the link.
type Progress struct {
	// Phase describes the current operation phase:
	//   "uploading"       - Sending an image
	//   "downloading"     - Receiving an image or the image list
	//   "firmware-header" - Sending the firmware header
	//   "firmware-body"   - Streaming the firmware body
	//   "complete"        - Operation completed successfully
	Phase string

	// Fraction is the completion ratio (0.0 to 1.0). It stays at 0 while
	// receiving a stream of unknown length.
	Fraction float64

	// Bytes is the number of bytes moved so far in this phase
	Bytes int

	// Total is the phase size in bytes, or -1 when unknown
	Total int

	// Elapsed is the time since the operation started
	Elapsed time.Duration
}

// ProgressCallback is called from the client's worker goroutines.
// Implementations should return quickly to avoid stalling the transfer.
//
// Example:
//
//	client, _ := badge.New(ch, token,
//	    badge.WithProgressCallback(func(p badge.Progress) {
//	        fmt.Printf("[%s] %.1f%%\n", p.Phase, p.Fraction*100)
//	    }),
//	)
type ProgressCallback func(Progress)

// Logger is an optional logging interface that can be provided to the client.
// This allows integration with any logging framework.
//
// Example with standard log package:
//
//	type StdLogger struct{}
//	func (l *StdLogger) Debug(msg string, kv ...interface{}) { log.Println(msg, kv) }
//	func (l *StdLogger) Info(msg string, kv ...interface{})  { log.Println(msg, kv) }
//	func (l *StdLogger) Error(msg string, kv ...interface{}) { log.Println(msg, kv) }
//
//	client, _ := badge.New(ch, token, badge.WithLogger(&StdLogger{}))
type Logger = link.Logger
