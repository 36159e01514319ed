package db

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/angelmondragon/siver-b2b-backend/pkg/logger"
)

// queryLogger reports slow and failed statements through the service logger.
// Record-not-found is left to the repositories, which map it to NOT_FOUND.
type queryLogger struct {
	logg      *logger.Logger
	threshold time.Duration
	level     gormlogger.LogLevel
}

func newQueryLogger(logg *logger.Logger, threshold time.Duration) gormlogger.Interface {
	if logg == nil || threshold <= 0 {
		return gormlogger.Discard
	}
	return &queryLogger{logg: logg, threshold: threshold, level: gormlogger.Warn}
}

func (q *queryLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *q
	clone.level = level
	return &clone
}

func (q *queryLogger) Info(ctx context.Context, msg string, _ ...any) {
	if q.level >= gormlogger.Info {
		q.logg.Info(ctx, msg)
	}
}

func (q *queryLogger) Warn(ctx context.Context, msg string, _ ...any) {
	if q.level >= gormlogger.Warn {
		q.logg.Warn(ctx, msg)
	}
}

func (q *queryLogger) Error(ctx context.Context, msg string, _ ...any) {
	if q.level >= gormlogger.Error {
		q.logg.Warn(ctx, msg)
	}
}

func (q *queryLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if q.level <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)
	failed := err != nil && !errors.Is(err, gorm.ErrRecordNotFound)
	if !failed && elapsed < q.threshold {
		return
	}

	sql, rows := fc()
	fields := map[string]any{
		"sql":        sql,
		"rows":       rows,
		"elapsed_ms": elapsed.Milliseconds(),
	}
	if failed {
		fields["error"] = err.Error()
		q.logg.Warn(q.logg.WithFields(ctx, fields), "db.query_failed")
		return
	}
	q.logg.Warn(q.logg.WithFields(ctx, fields), "db.slow_query")
}
