package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/uniedit/ghiblify/internal/port/outbound"
	"github.com/uniedit/ghiblify/internal/shared/metrics"
	"go.uber.org/zap"
)

// DocumentLedger implements Store on top of two whole documents.
// Every operation loads the full document, mutates it in memory and
// writes it back. Concurrent writers to the same document can lose updates.
type DocumentLedger struct {
	docs    outbound.DocumentPort
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewDocumentLedger creates a ledger over docs. metrics may be nil.
func NewDocumentLedger(docs outbound.DocumentPort, m *metrics.Metrics, logger *zap.Logger) *DocumentLedger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DocumentLedger{
		docs:    docs,
		metrics: m,
		logger:  logger.Named("ledger"),
	}
}

var _ Store = (*DocumentLedger)(nil)

// ========== Quota ==========

// Count returns the stored count or 0.
func (l *DocumentLedger) Count(ctx context.Context, userID string) (count int, err error) {
	defer l.record("count", &err)
	if userID == "" {
		return 0, ErrUserIDRequired
	}

	quotas, err := l.loadQuotas(ctx)
	if err != nil {
		return 0, err
	}
	return quotas[userID].Count, nil
}

// DecrementQuota lowers the user's count by one with a floor of zero.
func (l *DocumentLedger) DecrementQuota(ctx context.Context, userID string) (err error) {
	defer l.record("decrement", &err)
	if userID == "" {
		return ErrUserIDRequired
	}

	quotas, err := l.loadQuotas(ctx)
	if err != nil {
		return err
	}

	q, ok := quotas[userID]
	if !ok {
		q = Quota{Count: 0}
	} else {
		q.Count = max(0, q.Count-1)
	}
	quotas[userID] = q

	if err := l.save(ctx, UsersDocument, quotas); err != nil {
		return err
	}
	l.logger.Debug("quota decremented", zap.String("user_id", userID), zap.Int("count", q.Count))
	return nil
}

// ResetQuota overwrites the user's count with DefaultQuota.
func (l *DocumentLedger) ResetQuota(ctx context.Context, userID string) (err error) {
	defer l.record("reset", &err)
	if userID == "" {
		return ErrUserIDRequired
	}

	quotas, err := l.loadQuotas(ctx)
	if err != nil {
		return err
	}
	quotas[userID] = Quota{Count: DefaultQuota}

	if err := l.save(ctx, UsersDocument, quotas); err != nil {
		return err
	}
	l.logger.Info("quota reset", zap.String("user_id", userID))
	return nil
}

// Share grants one extra generation.
func (l *DocumentLedger) Share(ctx context.Context, userID string) (count int, err error) {
	defer l.record("share", &err)
	if userID == "" {
		return 0, ErrUserIDRequired
	}

	quotas, err := l.loadQuotas(ctx)
	if err != nil {
		return 0, err
	}

	q := quotas[userID]
	q.Count++
	quotas[userID] = q

	if err := l.save(ctx, UsersDocument, quotas); err != nil {
		return 0, err
	}
	return q.Count, nil
}

// ========== History ==========

// AppendHistory prepends an entry for url.
func (l *DocumentLedger) AppendHistory(ctx context.Context, userID, url string, at time.Time) (err error) {
	defer l.record("append_history", &err)
	if userID == "" {
		return ErrUserIDRequired
	}

	histories, err := l.loadHistories(ctx)
	if err != nil {
		return err
	}

	entry := HistoryEntry{URL: url, CreatedAt: at.UTC()}
	histories[userID] = append([]HistoryEntry{entry}, histories[userID]...)

	return l.save(ctx, HistoryDocument, histories)
}

// History returns the user's entries, newest first.
func (l *DocumentLedger) History(ctx context.Context, userID string) (entries []HistoryEntry, err error) {
	defer l.record("history", &err)
	if userID == "" {
		return nil, ErrUserIDRequired
	}

	histories, err := l.loadHistories(ctx)
	if err != nil {
		return nil, err
	}

	entries = histories[userID]
	if entries == nil {
		entries = []HistoryEntry{}
	}
	return entries, nil
}

// DeleteHistory removes all entries matching url exactly.
// Nothing is written when the user has no history record or a null one.
func (l *DocumentLedger) DeleteHistory(ctx context.Context, userID, url string) (err error) {
	defer l.record("delete_history", &err)
	if userID == "" {
		return ErrUserIDRequired
	}

	histories, err := l.loadHistories(ctx)
	if err != nil {
		return err
	}

	entries, ok := histories[userID]
	if !ok || entries == nil {
		return ErrNoHistory
	}

	kept := make([]HistoryEntry, 0, len(entries))
	for _, e := range entries {
		if e.URL != url {
			kept = append(kept, e)
		}
	}
	histories[userID] = kept

	if err := l.save(ctx, HistoryDocument, histories); err != nil {
		return err
	}
	l.logger.Info("history deleted",
		zap.String("user_id", userID),
		zap.Int("removed", len(entries)-len(kept)),
	)
	return nil
}

// ========== Documents ==========

func (l *DocumentLedger) loadQuotas(ctx context.Context) (Quotas, error) {
	var quotas Quotas
	if err := l.load(ctx, UsersDocument, &quotas); err != nil {
		return nil, err
	}
	if quotas == nil {
		return nil, fmt.Errorf("decode %s document: not an object", UsersDocument)
	}
	return quotas, nil
}

func (l *DocumentLedger) loadHistories(ctx context.Context) (Histories, error) {
	var histories Histories
	if err := l.load(ctx, HistoryDocument, &histories); err != nil {
		return nil, err
	}
	if histories == nil {
		return nil, fmt.Errorf("decode %s document: not an object", HistoryDocument)
	}
	return histories, nil
}

func (l *DocumentLedger) load(ctx context.Context, name string, v any) error {
	data, err := l.docs.Load(ctx, name)
	if err != nil {
		return fmt.Errorf("load %s document: %w", name, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s document: %w", name, err)
	}
	return nil
}

func (l *DocumentLedger) save(ctx context.Context, name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s document: %w", name, err)
	}
	if err := l.docs.Save(ctx, name, data); err != nil {
		return fmt.Errorf("save %s document: %w", name, err)
	}
	return nil
}

func (l *DocumentLedger) record(op string, err *error) {
	if *err != nil && !errors.Is(*err, ErrNoHistory) && !errors.Is(*err, ErrUserIDRequired) {
		l.logger.Error("ledger operation failed", zap.String("op", op), zap.Error(*err))
	}
	if l.metrics != nil {
		l.metrics.RecordLedgerOp(op, *err)
	}
}
