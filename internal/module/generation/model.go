package generation

import (
	"context"
	"time"
)

// Outcome is the terminal state of a generation.
type Outcome string

const (
	OutcomeSucceeded   Outcome = "succeeded"
	OutcomeAnomaly     Outcome = "anomaly"     // no polling URL returned
	OutcomeFailed      Outcome = "failed"      // service reported failure
	OutcomeTimedOut    Outcome = "timed_out"   // attempt budget or deadline exhausted
	OutcomeServerError Outcome = "server_error" // transport, decoding or ledger error
	OutcomeCancelled   Outcome = "cancelled"
)

// Message returns the client-facing message for a failed outcome.
func (o Outcome) Message() string {
	switch o {
	case OutcomeSucceeded:
		return ""
	case OutcomeAnomaly:
		return "interface anomaly"
	case OutcomeFailed:
		return "generation failed"
	case OutcomeTimedOut:
		return "timed out"
	case OutcomeCancelled:
		return "cancelled"
	default:
		return "server error"
	}
}

// Request is one generation job.
type Request struct {
	UserID string
	// Image is the raw uploaded file, sent as-is.
	Image []byte
}

// Result is the outcome of Generate.
type Result struct {
	Outcome      Outcome
	OutputURL    string
	PredictionID string
	// Attempts is the number of status polls issued.
	Attempts int
	// Err is the underlying cause, for logs only.
	Err error
}

// Success reports whether the generation produced an image.
func (r *Result) Success() bool {
	return r.Outcome == OutcomeSucceeded
}

// Generator runs a generation to completion.
type Generator interface {
	Generate(ctx context.Context, req *Request) *Result
}

// PromptConfig is the fixed model input sent with every image.
type PromptConfig struct {
	Version string
	Prompt  string
	Weights string
}

// Default prompt values.
const (
	DefaultVersion = "407b7fd425e00eedefe7db3041662a36a126f1e4988e6fbadfc49b157159f015"
	DefaultPrompt  = "recreate this image in ghibli style"
	DefaultWeights = "https://replicate.delivery/xezq/kdtoeV1nYVVDKyRqcN4tplVSTaghKU3dqOecgapK5KVwokcUA/trained_model.tar"
)

// Config configures the Orchestrator.
type Config struct {
	Prompt       PromptConfig
	PollInterval time.Duration
	MaxAttempts  int
	// Timeout bounds a whole generation. Zero disables it.
	Timeout time.Duration
}

// DefaultConfig returns the default orchestrator configuration.
func DefaultConfig() Config {
	return Config{
		Prompt: PromptConfig{
			Version: DefaultVersion,
			Prompt:  DefaultPrompt,
			Weights: DefaultWeights,
		},
		PollInterval: 1500 * time.Millisecond,
		MaxAttempts:  20,
	}
}
