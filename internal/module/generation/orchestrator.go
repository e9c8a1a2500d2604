package generation

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/uniedit/ghiblify/internal/module/ledger"
	"github.com/uniedit/ghiblify/internal/port/outbound"
	"github.com/uniedit/ghiblify/internal/shared/metrics"
	"go.uber.org/zap"
)

// dataURIPrefix is used for every upload; the service sniffs the real type.
const dataURIPrefix = "data:image/jpeg;base64,"

// Orchestrator submits images to the prediction service, polls until a
// terminal state and charges the ledger on success.
type Orchestrator struct {
	predictor outbound.PredictionPort
	ledger    ledger.Store
	cfg       Config
	metrics   *metrics.Metrics
	logger    *zap.Logger

	now  func() time.Time
	wait func(ctx context.Context, d time.Duration) error
}

// NewOrchestrator creates a new generation orchestrator. metrics may be nil.
func NewOrchestrator(predictor outbound.PredictionPort, store ledger.Store, cfg Config, m *metrics.Metrics, logger *zap.Logger) *Orchestrator {
	defaults := DefaultConfig()
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaults.MaxAttempts
	}
	if cfg.PollInterval < 0 {
		cfg.PollInterval = defaults.PollInterval
	}
	if cfg.Prompt == (PromptConfig{}) {
		cfg.Prompt = defaults.Prompt
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Orchestrator{
		predictor: predictor,
		ledger:    store,
		cfg:       cfg,
		metrics:   m,
		logger:    logger.Named("generation"),
		now:       time.Now,
		wait:      sleep,
	}
}

var _ Generator = (*Orchestrator)(nil)

// Generate submits req.Image and waits for the result. It never returns nil.
func (o *Orchestrator) Generate(ctx context.Context, req *Request) *Result {
	start := o.now()

	if o.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.cfg.Timeout)
		defer cancel()
	}

	res := o.run(ctx, req)

	elapsed := o.now().Sub(start)
	if o.metrics != nil {
		o.metrics.RecordGeneration(string(res.Outcome), res.Attempts, elapsed)
	}

	fields := []zap.Field{
		zap.String("user_id", req.UserID),
		zap.String("prediction_id", res.PredictionID),
		zap.String("outcome", string(res.Outcome)),
		zap.Int("attempts", res.Attempts),
		zap.Duration("elapsed", elapsed),
	}
	switch res.Outcome {
	case OutcomeSucceeded:
		o.logger.Info("generation succeeded", append(fields, zap.String("output", res.OutputURL))...)
	case OutcomeServerError:
		o.logger.Error("generation error", append(fields, zap.Error(res.Err))...)
	default:
		o.logger.Warn("generation unsuccessful", append(fields, zap.Error(res.Err))...)
	}

	return res
}

func (o *Orchestrator) run(ctx context.Context, req *Request) *Result {
	if req.UserID == "" {
		return &Result{Outcome: OutcomeServerError, Err: ledger.ErrUserIDRequired}
	}

	pred, err := o.predictor.CreatePrediction(ctx, &outbound.PredictionInput{
		Version: o.cfg.Prompt.Version,
		Image:   EncodeDataURI(req.Image),
		Prompt:  o.cfg.Prompt.Prompt,
		Weights: o.cfg.Prompt.Weights,
	})
	if err != nil {
		return o.abort(ctx, &Result{}, fmt.Errorf("create prediction: %w", err))
	}

	res := &Result{PredictionID: pred.ID}
	if pred.PollURL == "" {
		res.Outcome = OutcomeAnomaly
		res.Err = fmt.Errorf("prediction response has no polling url (status %q)", pred.Status)
		return res
	}

	o.logger.Debug("prediction created",
		zap.String("prediction_id", pred.ID),
		zap.String("poll_url", pred.PollURL),
	)

	for res.Attempts < o.cfg.MaxAttempts {
		res.Attempts++

		cur, err := o.predictor.GetPrediction(ctx, pred.PollURL)
		if err != nil {
			return o.abort(ctx, res, fmt.Errorf("poll %d: %w", res.Attempts, err))
		}

		o.logger.Debug("prediction polled",
			zap.String("prediction_id", pred.ID),
			zap.Int("attempt", res.Attempts),
			zap.String("status", cur.Status),
		)

		switch cur.Status {
		case outbound.PredictionSucceeded:
			if err := o.charge(ctx, req.UserID, cur.Output); err != nil {
				res.Outcome = OutcomeServerError
				res.Err = err
				return res
			}
			res.Outcome = OutcomeSucceeded
			res.OutputURL = cur.Output
			return res
		case outbound.PredictionFailed:
			res.Outcome = OutcomeFailed
			if cur.Error != "" {
				res.Err = errors.New(cur.Error)
			}
			return res
		}

		if res.Attempts == o.cfg.MaxAttempts {
			break
		}
		if err := o.wait(ctx, o.cfg.PollInterval); err != nil {
			return o.abort(ctx, res, err)
		}
	}

	res.Outcome = OutcomeTimedOut
	return res
}

// charge applies the success side effects. Caller cancellation is ignored
// once the image exists.
func (o *Orchestrator) charge(ctx context.Context, userID, output string) error {
	ctx = context.WithoutCancel(ctx)

	if err := o.ledger.DecrementQuota(ctx, userID); err != nil {
		return fmt.Errorf("decrement quota: %w", err)
	}
	if err := o.ledger.AppendHistory(ctx, userID, output, o.now()); err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	return nil
}

// abort classifies an error that ended the run early.
func (o *Orchestrator) abort(ctx context.Context, res *Result, err error) *Result {
	res.Err = err
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		res.Outcome = OutcomeTimedOut
	case ctx.Err() != nil:
		res.Outcome = OutcomeCancelled
	default:
		res.Outcome = OutcomeServerError
	}
	return res
}

// EncodeDataURI encodes image bytes as a base64 data URI.
func EncodeDataURI(image []byte) string {
	return dataURIPrefix + base64.StdEncoding.EncodeToString(image)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
