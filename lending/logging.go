package lending

import (
	"context"
	"log/slog"
	"time"

	"tkj_lending_tool/db"
	"tkj_lending_tool/models"
)

// Logging writes one line per operation. Caller mistakes are logged at Info, anything
// else at Error.
type Logging struct {
	Service

	Log *slog.Logger
}

func (l *Logging) Create(ctx context.Context, in CreateInput) (b *models.Borrowing, err error) {
	defer func(t0 time.Time) {
		log := l.Log.With(
			slog.Uint64("item_id", uint64(in.ItemID)),
			slog.Int("quantity", in.Quantity),
			slog.String("delay", time.Since(t0).String()),
		)
		if b != nil {
			log = log.With(slog.String("code", b.Code))
		}
		l.done(log, err, "borrowing created", "failed to create borrowing")
	}(time.Now())

	return l.Service.Create(ctx, in)
}

func (l *Logging) Return(ctx context.Context, code string, signature *string) (row *db.BorrowingRow, err error) {
	defer func(t0 time.Time) {
		log := l.Log.With(
			slog.String("code", code),
			slog.Bool("signed", signature != nil && *signature != ""),
			slog.String("delay", time.Since(t0).String()),
		)
		l.done(log, err, "borrowing returned", "failed to return borrowing")
	}(time.Now())

	return l.Service.Return(ctx, code, signature)
}

func (l *Logging) DeleteBorrowing(ctx context.Context, id uint) (b *models.Borrowing, err error) {
	defer func(t0 time.Time) {
		log := l.Log.With(
			slog.Uint64("borrowing_id", uint64(id)),
			slog.String("delay", time.Since(t0).String()),
		)
		if b != nil {
			log = log.With(slog.String("status", string(b.Status)), slog.Int("released", released(b)))
		}
		l.done(log, err, "borrowing deleted", "failed to delete borrowing")
	}(time.Now())

	return l.Service.DeleteBorrowing(ctx, id)
}

func (l *Logging) done(log *slog.Logger, err error, okMsg, failMsg string) {
	switch {
	case err == nil:
		log.Info(okMsg)
	case db.IsDomainError(err):
		log.Info(failMsg, slog.String("outcome", Outcome(err)), slog.Any("error", err))
	default:
		log.Error(failMsg, slog.Any("error", err))
	}
}

func released(b *models.Borrowing) int {
	if b.Status == models.StatusBorrowed {
		return b.Quantity
	}
	return 0
}
