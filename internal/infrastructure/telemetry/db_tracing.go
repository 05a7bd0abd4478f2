package telemetry

import (
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBTracingConfig configures the gorm tracing plugin.
type DBTracingConfig struct {
	Enabled         bool
	DBName          string
	IncludeSQLVars  bool
	SlowQueryThresh time.Duration
}

const startedAtKey = "ledger:started_at"

// RegisterOtelGorm installs otelgorm on db and flags slow statements on
// their span.
func RegisterOtelGorm(db *gorm.DB, cfg DBTracingConfig, logger *zap.Logger) error {
	if !cfg.Enabled {
		return nil
	}
	opts := []otelgorm.Option{otelgorm.WithDBName(cfg.DBName)}
	if !cfg.IncludeSQLVars {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}

	thresh := cfg.SlowQueryThresh
	if thresh <= 0 {
		thresh = 200 * time.Millisecond
	}
	before := func(tx *gorm.DB) {
		tx.InstanceSet(startedAtKey, time.Now())
	}
	after := func(tx *gorm.DB) {
		v, ok := tx.InstanceGet(startedAtKey)
		if !ok {
			return
		}
		elapsed := time.Since(v.(time.Time))
		if elapsed < thresh {
			return
		}
		span := trace.SpanFromContext(tx.Statement.Context)
		span.SetAttributes(
			attribute.Bool("db.slow_query", true),
			attribute.Int64("db.duration_ms", elapsed.Milliseconds()),
		)
		logger.Warn("Slow query",
			zap.String("table", tx.Statement.Table),
			zap.Duration("elapsed", elapsed),
			zap.String("trace_id", span.SpanContext().TraceID().String()),
		)
	}

	cb := db.Callback()
	for _, reg := range []error{
		cb.Create().Before("gorm:create").Register("ledger:timing_before_create", before),
		cb.Query().Before("gorm:query").Register("ledger:timing_before_query", before),
		cb.Update().Before("gorm:update").Register("ledger:timing_before_update", before),
		cb.Raw().Before("gorm:raw").Register("ledger:timing_before_raw", before),
		cb.Create().After("gorm:create").Register("ledger:timing_after_create", after),
		cb.Query().After("gorm:query").Register("ledger:timing_after_query", after),
		cb.Update().After("gorm:update").Register("ledger:timing_after_update", after),
		cb.Raw().After("gorm:raw").Register("ledger:timing_after_raw", after),
	} {
		if reg != nil {
			return reg
		}
	}
	logger.Info("Database tracing enabled", zap.Duration("slow_query_threshold", thresh))
	return nil
}
