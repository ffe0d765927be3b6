// Package storage declares what a report sink has to provide.
package storage

import (
	"context"

	"github.com/patric-chuzhbe/urlshrtload/internal/report"
)

type Storage interface {
	SaveReport(ctx context.Context, r report.Report) error

	Ping(ctx context.Context) error

	Close() error
}
