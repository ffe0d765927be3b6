// Package esdb indexes run reports in Elasticsearch.
package esdb

import (
	"context"
	"fmt"

	"github.com/olivere/elastic"

	"github.com/patric-chuzhbe/urlshrtload/internal/report"
)

const DefaultIndex = "shortload"

type ESDB struct {
	*elastic.Client
	url   string
	index string
}

type initOptions struct {
	index              string
	username, password string
}

type InitOption func(*initOptions)

func WithIndex(index string) InitOption {
	return func(options *initOptions) {
		options.index = index
	}
}

func WithBasicAuth(username, password string) InitOption {
	return func(options *initOptions) {
		options.username = username
		options.password = password
	}
}

// New returns a sink for the node at url. "local" is short for http://localhost:9200.
func New(url string, optionsProto ...InitOption) (*ESDB, error) {
	options := &initOptions{index: DefaultIndex}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	if url == "local" {
		url = "http://localhost:9200"
	}

	clientOptions := []elastic.ClientOptionFunc{
		elastic.SetURL(url),
		elastic.SetSniff(false),
		elastic.SetHealthcheck(false),
	}
	if options.username != "" {
		clientOptions = append(clientOptions, elastic.SetBasicAuth(options.username, options.password))
	}

	client, err := elastic.NewClient(clientOptions...)
	if err != nil {
		return nil, fmt.Errorf("in internal/db/esdb/esdb.go/New(): error while `elastic.NewClient()` calling: %w", err)
	}

	return &ESDB{Client: client, url: url, index: options.index}, nil
}

// SaveReport indexes the report under its run id and refreshes the index.
func (db *ESDB) SaveReport(ctx context.Context, r report.Report) error {
	_, err := db.Index().
		Index(db.index).
		Type("_doc").
		Id(r.ID).
		BodyJson(r).
		Do(ctx)
	if err != nil {
		return fmt.Errorf("in internal/db/esdb/esdb.go/SaveReport(): error while indexing report %s: %w", r.ID, err)
	}

	_, err = db.Refresh(db.index).Do(ctx)

	return err
}

func (db *ESDB) Ping(ctx context.Context) error {
	_, _, err := db.Client.Ping(db.url).Do(ctx)
	return err
}

func (db *ESDB) Close() error {
	db.Stop()
	return nil
}
