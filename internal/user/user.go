// Package user implements the virtual user: one simulated client of the
// shortener that remembers the short URLs it created and performs the
// actions the load profiles are made of.
package user

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"time"

	"github.com/patric-chuzhbe/urlshrtload/internal/logger"
	"github.com/patric-chuzhbe/urlshrtload/internal/models"
	"github.com/patric-chuzhbe/urlshrtload/internal/shortener"
)

type shortenerClient interface {
	Create(ctx context.Context, originalURL, userID string) (*shortener.Response, error)
	Access(ctx context.Context, shortURL string) (*shortener.Response, error)
	Fetch(ctx context.Context, path string) (*shortener.Response, error)
}

type checkRecorder interface {
	RecordCheck(name string, passed bool)
}

// Check names, as they appear in reports.
const (
	CheckCreateStatus      = "create: status is 201"
	CheckCreateShortURL    = "create: response contains shortUrl"
	CheckAccessStatus      = "access: status is 200"
	CheckAccessOriginalURL = "access: originalUrl matches"
)

// ErrNothingToAccess is returned by AccessShortURL while the user has not
// created any short URL yet. The caller should skip the iteration.
var ErrNothingToAccess = errors.New("no shortened URLs to access")

var (
	ErrMissingShortURL     = errors.New("response contains no shortUrl")
	ErrOriginalURLMismatch = errors.New("original URL mismatch")
)

// StatusError reports an answer with an unexpected status code.
type StatusError struct {
	Path   string
	Status int
	Want   int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: status %d, want %d", e.Path, e.Status, e.Want)
}

// CheckError reports a failed check on an otherwise successful answer.
type CheckError struct {
	Check string
	Err   error
}

func (e *CheckError) Error() string {
	return fmt.Sprintf("check %q failed: %v", e.Check, e.Err)
}

func (e *CheckError) Unwrap() error {
	return e.Err
}

// VirtualUser is driven by a single goroutine; none of its methods may be
// called concurrently.
type VirtualUser struct {
	id       int
	client   shortenerClient
	checks   checkRecorder
	rnd      *rand.Rand
	recorded []string
}

// Option customizes New.
type Option func(*VirtualUser)

// WithRand makes the user draw its random choices from rnd.
func WithRand(rnd *rand.Rand) Option {
	return func(u *VirtualUser) {
		u.rnd = rnd
	}
}

// New returns a user with an empty list of recorded short URLs.
func New(id int, client shortenerClient, checks checkRecorder, options ...Option) *VirtualUser {
	u := &VirtualUser{
		id:       id,
		client:   client,
		checks:   checks,
		recorded: []string{},
	}
	for _, option := range options {
		option(u)
	}
	if u.rnd == nil {
		u.rnd = rand.New(rand.NewSource(time.Now().UnixNano() + int64(id)))
	}

	return u
}

// ID identifies the user in logs.
func (u *VirtualUser) ID() int {
	return u.id
}

// Rand is the random source of the user.
func (u *VirtualUser) Rand() *rand.Rand {
	return u.rnd
}

// RecordedURLs returns a copy of the short URLs created by this user.
func (u *VirtualUser) RecordedURLs() []string {
	return append([]string(nil), u.recorded...)
}

func (u *VirtualUser) check(name string, passed bool) bool {
	u.checks.RecordCheck(name, passed)
	return passed
}

// CreateShortURL shortens originalURL for userID and records the returned
// short URL.
func (u *VirtualUser) CreateShortURL(ctx context.Context, originalURL, userID string) error {
	resp, err := u.client.Create(ctx, originalURL, userID)
	if err != nil {
		return err
	}

	if !u.check(CheckCreateStatus, resp.StatusCode == http.StatusCreated) {
		logger.Log.Infow("Failed to create shortened URL", "user", u.id, "status", resp.StatusCode, "body", resp.String())
		return &StatusError{Path: models.CreatePath, Status: resp.StatusCode, Want: http.StatusCreated, Body: resp.String()}
	}

	var body models.CreateResponse
	if err := json.Unmarshal(resp.Body, &body); err != nil || body.ShortURL == "" {
		u.check(CheckCreateShortURL, false)
		if err == nil {
			err = ErrMissingShortURL
		}
		return &CheckError{Check: CheckCreateShortURL, Err: err}
	}
	u.check(CheckCreateShortURL, true)

	u.recorded = append(u.recorded, body.ShortURL)
	logger.Log.Infow("Shortened URL", "user", u.id, "shortUrl", body.ShortURL)

	return nil
}

// AccessShortURL looks up one of the user's own short URLs picked uniformly
// at random and checks it resolves to expectedURL.
func (u *VirtualUser) AccessShortURL(ctx context.Context, expectedURL string) error {
	if len(u.recorded) == 0 {
		return ErrNothingToAccess
	}
	shortURL := u.recorded[u.rnd.Intn(len(u.recorded))]

	resp, err := u.client.Access(ctx, shortURL)
	if err != nil {
		return err
	}

	if !u.check(CheckAccessStatus, resp.StatusCode == http.StatusOK) {
		logger.Log.Infow("Failed to access shortened URL", "user", u.id, "status", resp.StatusCode, "shortUrl", shortURL)
		return &StatusError{Path: models.ShortPath(shortURL), Status: resp.StatusCode, Want: http.StatusOK, Body: resp.String()}
	}

	var body models.AccessResponse
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		u.check(CheckAccessOriginalURL, false)
		logger.Log.Errorw("Undecodable access response", "user", u.id, "shortUrl", shortURL, "body", resp.String(), "error", err)
		return &CheckError{
			Check: CheckAccessOriginalURL,
			Err:   fmt.Errorf("decoding access response: %w", err),
		}
	}
	if !u.check(CheckAccessOriginalURL, body.OriginalURL == expectedURL) {
		logger.Log.Errorw("Original URL mismatch", "user", u.id, "shortUrl", shortURL, "got", body.OriginalURL, "want", expectedURL)
		return &CheckError{
			Check: CheckAccessOriginalURL,
			Err:   fmt.Errorf("%w: got %q, want %q", ErrOriginalURLMismatch, body.OriginalURL, expectedURL),
		}
	}
	logger.Log.Infow("Accessed URL successfully", "user", u.id, "originalUrl", body.OriginalURL)

	return nil
}

// Fetch issues one GET on path and ignores the answer.
func (u *VirtualUser) Fetch(ctx context.Context, path string) error {
	_, err := u.client.Fetch(ctx, path)
	return err
}

// FetchExpecting issues one GET on path and checks its status code.
func (u *VirtualUser) FetchExpecting(ctx context.Context, path string, status int) error {
	resp, err := u.client.Fetch(ctx, path)
	if err != nil {
		return err
	}

	if !u.check(fmt.Sprintf("GET %s: status is %d", path, status), resp.StatusCode == status) {
		return &StatusError{Path: path, Status: resp.StatusCode, Want: status, Body: resp.String()}
	}

	return nil
}
