package driven

import "context"

// Archive streams kept for each trial.
const (
	StreamBuild  = "build"
	StreamStdout = "stdout"
	StreamStderr = "stderr"
)

// OutputArchive keeps the full compiler and program output of each trial
// so operators can inspect failures after a long sweep.
type OutputArchive interface {
	// Save stores one output stream of a trial.
	Save(ctx context.Context, trialID, stream string, data []byte) error

	// Load returns a stored stream. Returns domain.ErrNotFound if absent.
	Load(ctx context.Context, trialID, stream string) ([]byte, error)

	// Streams lists the streams stored for a trial.
	Streams(ctx context.Context, trialID string) ([]string, error)
}
