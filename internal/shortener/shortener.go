// Package shortener is the HTTP client of the URL shortener under test.
// Every request it completes is reported to a recorder, the way a load
// testing driver times its client calls.
package shortener

import (
	"context"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/patric-chuzhbe/urlshrtload/internal/logger"
	"github.com/patric-chuzhbe/urlshrtload/internal/models"
	"github.com/patric-chuzhbe/urlshrtload/internal/stats"
)

const (
	userAgent = "shortload/1.0"

	// AccessName groups all lookups of recorded short URLs in the report.
	AccessName = models.ShortPathPrefix + "[shortUrl]"
)

type recorder interface {
	RecordRequest(s stats.Sample)
}

// Response is what the tasks need to know about an answer.
type Response struct {
	StatusCode int
	Body       []byte
}

// String returns the body as text.
func (r *Response) String() string {
	return string(r.Body)
}

// Client issues requests against one shortener base URL. It is safe for
// concurrent use by all virtual users.
type Client struct {
	http     *resty.Client
	recorder recorder
}

// New returns a client of the shortener at baseURL. There are no retries.
func New(baseURL string, timeout time.Duration, recorder recorder) *Client {
	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetLogger(logger.Log).
		SetHeader("User-Agent", userAgent).
		SetRetryCount(0)

	return &Client{
		http:     httpClient,
		recorder: recorder,
	}
}

// Create asks the service to shorten originalURL on behalf of userID.
func (c *Client) Create(ctx context.Context, originalURL, userID string) (*Response, error) {
	req := c.http.R().
		SetQueryParams(map[string]string{
			"url":    originalURL,
			"userId": userID,
		})

	return c.send(ctx, req, http.MethodPost, models.CreatePath, models.CreatePath)
}

// Access looks up a short URL the caller created earlier.
func (c *Client) Access(ctx context.Context, shortURL string) (*Response, error) {
	return c.send(ctx, c.http.R(), http.MethodGet, models.ShortPath(shortURL), AccessName)
}

// Fetch issues a GET on a fixed path, reported under the path itself.
func (c *Client) Fetch(ctx context.Context, path string) (*Response, error) {
	return c.send(ctx, c.http.R(), http.MethodGet, path, path)
}

func (c *Client) send(ctx context.Context, req *resty.Request, method, path, name string) (*Response, error) {
	start := time.Now()
	resp, err := req.SetContext(ctx).Execute(method, path)
	latency := time.Since(start)

	if err != nil {
		if ctx.Err() != nil {
			// aborted by the end of the run, not a failure of the service
			return nil, ctx.Err()
		}
		c.recorder.RecordRequest(stats.Sample{
			Name:    name,
			Method:  method,
			Latency: latency,
			Err:     err,
			Failed:  true,
			At:      start,
		})
		return nil, err
	}

	c.recorder.RecordRequest(stats.Sample{
		Name:    name,
		Method:  method,
		Status:  resp.StatusCode(),
		Latency: latency,
		Size:    resp.Size(),
		Failed:  resp.StatusCode() >= http.StatusBadRequest,
		At:      start,
	})

	return &Response{
		StatusCode: resp.StatusCode(),
		Body:       resp.Body(),
	}, nil
}
