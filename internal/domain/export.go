package domain

import (
	"context"
	"time"
)

// ExportStats summarizes one snapshot export run.
type ExportStats struct {
	Queries      []string
	RecordCount  int
	SourcesUsed  []string
	AverageConf  float64
	Duration     time.Duration
	SnapshotPath string
}

// NotificationService reports export outcomes to external channels.
type NotificationService interface {
	SendSuccess(ctx context.Context, stats ExportStats) error
	SendError(ctx context.Context, err error) error
}
