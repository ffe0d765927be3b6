// Package attack hits the fixed endpoint at a constant request rate.
package attack

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	vegeta "github.com/tsenart/vegeta/v12/lib"

	"github.com/patric-chuzhbe/urlshrtload/internal/logger"
	"github.com/patric-chuzhbe/urlshrtload/internal/models"
	"github.com/patric-chuzhbe/urlshrtload/internal/stats"
)

const (
	attackName = "shortload"
	taskName   = "shorten_url"
)

// ErrBadRate is returned for a non-positive attack rate.
var ErrBadRate = errors.New("attack rate must be positive")

type Options struct {
	Host           string
	Rate           int
	Duration       time.Duration
	RequestTimeout time.Duration
}

type Attack struct {
	options   Options
	collector *stats.Collector
}

func New(collector *stats.Collector, options Options) *Attack {
	return &Attack{
		options:   options,
		collector: collector,
	}
}

// Run sends GET requests for the fixed short URL at the configured rate until
// the duration elapses or ctx is done. A zero duration runs until ctx is done.
func (a *Attack) Run(ctx context.Context) (vegeta.Metrics, error) {
	var metrics vegeta.Metrics

	if a.options.Rate <= 0 {
		return metrics, ErrBadRate
	}

	path := models.ShortPath(models.FixedShortURL)
	targeter := vegeta.NewStaticTargeter(vegeta.Target{
		Method: http.MethodGet,
		URL:    strings.TrimRight(a.options.Host, "/") + path,
		Header: http.Header{"User-Agent": []string{"shortload/1.0"}},
	})
	attacker := vegeta.NewAttacker(
		vegeta.Timeout(a.options.RequestTimeout),
		vegeta.KeepAlive(true),
	)
	rate := vegeta.Rate{Freq: a.options.Rate, Per: time.Second}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			attacker.Stop()
		case <-done:
		}
	}()

	a.collector.SetUsers(0)
	logger.Log.Infow("Attack started", "target", path, "rate", a.options.Rate, "duration", a.options.Duration)

	for res := range attacker.Attack(targeter, rate, a.options.Duration, attackName) {
		if res.Code == 0 && ctx.Err() != nil {
			continue
		}
		metrics.Add(res)
		a.record(path, res)
	}
	metrics.Close()

	logger.Log.Infow(
		"Attack finished",
		"requests", metrics.Requests,
		"success", metrics.Success,
		"p99", metrics.Latencies.P99,
		"max", metrics.Latencies.Max,
	)

	return metrics, nil
}

func (a *Attack) record(path string, res *vegeta.Result) {
	sample := stats.Sample{
		Name:    path,
		Method:  http.MethodGet,
		Status:  int(res.Code),
		Latency: res.Latency,
		Size:    int64(res.BytesIn),
		At:      res.Timestamp,
		Failed:  res.Code == 0 || res.Code >= http.StatusBadRequest,
	}
	// vegeta sets Error for 4xx/5xx too; only a missing answer is a transport error.
	if res.Code == 0 && res.Error != "" {
		sample.Err = errors.New(res.Error)
	}
	a.collector.RecordRequest(sample)

	outcome := stats.OutcomeSuccess
	if sample.Failed {
		outcome = stats.OutcomeFailure
	}
	a.collector.RecordTask(taskName, outcome)
}
