package lending

import (
	"context"
	"time"

	"tkj_lending_tool/db"
	"tkj_lending_tool/metrics"
	"tkj_lending_tool/models"
)

// Instrumented counts operations by outcome and records their duration.
type Instrumented struct {
	Service

	Metrics *metrics.Metrics
}

func (m *Instrumented) Create(ctx context.Context, in CreateInput) (b *models.Borrowing, err error) {
	defer m.observe("create", time.Now(), &err)
	return m.Service.Create(ctx, in)
}

func (m *Instrumented) Return(ctx context.Context, code string, signature *string) (row *db.BorrowingRow, err error) {
	defer m.observe("return", time.Now(), &err)
	return m.Service.Return(ctx, code, signature)
}

func (m *Instrumented) DeleteBorrowing(ctx context.Context, id uint) (b *models.Borrowing, err error) {
	defer m.observe("delete", time.Now(), &err)
	return m.Service.DeleteBorrowing(ctx, id)
}

func (m *Instrumented) observe(op string, t0 time.Time, err *error) {
	m.Metrics.OpDuration.WithLabelValues(op).Observe(time.Since(t0).Seconds())
	m.Metrics.Operations.WithLabelValues(op, Outcome(*err)).Inc()
}
