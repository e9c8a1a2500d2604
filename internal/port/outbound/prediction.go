package outbound

import (
	"context"
)

// Prediction statuses reported by the prediction service.
const (
	PredictionStarting   = "starting"
	PredictionProcessing = "processing"
	PredictionSucceeded  = "succeeded"
	PredictionFailed     = "failed"
	PredictionCanceled   = "canceled"
)

// PredictionInput is the job submitted to the prediction service.
type PredictionInput struct {
	Version string
	// Image is a data URI.
	Image   string
	Prompt  string
	Weights string
}

// Prediction is the subset of a prediction resource the orchestrator reads.
type Prediction struct {
	ID     string
	Status string
	// PollURL is empty when the service did not return urls.get.
	PollURL string
	Output  string
	Error   string
}

// PredictionPort talks to the external image prediction service.
type PredictionPort interface {
	// CreatePrediction submits a new job.
	CreatePrediction(ctx context.Context, in *PredictionInput) (*Prediction, error)

	// GetPrediction fetches the current state from a polling URL.
	GetPrediction(ctx context.Context, pollURL string) (*Prediction, error)
}
