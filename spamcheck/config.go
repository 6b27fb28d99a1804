package spamcheck

import (
	"github.com/forumkit/spamsweep/akismet"
)

// Config is the full screening configuration, injected at engine
// construction. Nothing here is process-global; tests build their own.
type Config struct {
	// Enabled gates the whole feature. When false (or APIKey is empty) every
	// entry point is a no-op.
	Enabled bool
	APIKey  string
	// BaseURL is the public base URL of the forum, used for permalinks and as
	// the registered site URL for the classifier.
	BaseURL string

	// Authors at or above this trust level are never checked.
	SkipTrustLevel int
	// Authors with more lifetime posts than this are never checked.
	SkipPostCount int64

	// NotifyUser controls whether authors are messaged when their content is
	// removed on a spam verdict.
	NotifyUser bool
	// TransmitEmail controls whether author email addresses are included in
	// classifier payloads.
	TransmitEmail bool

	// MaxCheckRetries bounds how many failed classifier calls an item absorbs
	// before it is marked skipped instead of staying in the retry pool.
	MaxCheckRetries int
	// BatchSize is the page size for pending sweeps.
	BatchSize int

	// PayloadHook, if set, may mutate every outgoing classifier payload just
	// before it is sent. Test instrumentation only.
	PayloadHook func(*akismet.Comment)
}

func DefaultConfig() Config {
	return Config{
		Enabled:         true,
		SkipTrustLevel:  3,
		SkipPostCount:   50,
		NotifyUser:      true,
		TransmitEmail:   false,
		MaxCheckRetries: 5,
		BatchSize:       50,
	}
}
