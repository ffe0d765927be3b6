// Package mockstorage provides a testify-based mock of a report sink.
package mockstorage

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/patric-chuzhbe/urlshrtload/internal/report"
)

// StorageMock is a testify mock implementing storage.Storage.
type StorageMock struct {
	mock.Mock
}

// SaveReport mocks persisting a run report.
func (m *StorageMock) SaveReport(ctx context.Context, r report.Report) error {
	args := m.Called(ctx, r)
	return args.Error(0)
}

// Ping mocks the health check of the sink.
func (m *StorageMock) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// Close mocks releasing the sink.
func (m *StorageMock) Close() error {
	args := m.Called()
	return args.Error(0)
}
