// Package mockshortener provides a testify-based mock of the shortener
// client, so virtual users and profiles can be tested without a server.
package mockshortener

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/patric-chuzhbe/urlshrtload/internal/shortener"
)

// ShortenerMock is a testify mock of *shortener.Client.
type ShortenerMock struct {
	mock.Mock
}

// Create mocks shortening a URL.
func (m *ShortenerMock) Create(ctx context.Context, originalURL, userID string) (*shortener.Response, error) {
	args := m.Called(ctx, originalURL, userID)
	resp, _ := args.Get(0).(*shortener.Response)
	return resp, args.Error(1)
}

// Access mocks looking up a recorded short URL.
func (m *ShortenerMock) Access(ctx context.Context, shortURL string) (*shortener.Response, error) {
	args := m.Called(ctx, shortURL)
	resp, _ := args.Get(0).(*shortener.Response)
	return resp, args.Error(1)
}

// Fetch mocks a GET on a fixed path.
func (m *ShortenerMock) Fetch(ctx context.Context, path string) (*shortener.Response, error) {
	args := m.Called(ctx, path)
	resp, _ := args.Get(0).(*shortener.Response)
	return resp, args.Error(1)
}

// JSON builds a response with the given status and body.
func JSON(status int, body string) *shortener.Response {
	return &shortener.Response{StatusCode: status, Body: []byte(body)}
}

// CheckRecorder is a testify mock of the check sink of virtual users.
type CheckRecorder struct {
	mock.Mock
}

// RecordCheck mocks recording a check result.
func (m *CheckRecorder) RecordCheck(name string, passed bool) {
	m.Called(name, passed)
}
