package jsondb

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patric-chuzhbe/urlshrtload/internal/db/storage"
	"github.com/patric-chuzhbe/urlshrtload/internal/report"
)

func Test(t *testing.T) {
	t.Run("The base jsondb package test", func(t *testing.T) {
		fileName := filepath.Join(t.TempDir(), "reports.json")

		var theStorage storage.Storage
		theStorage, err := New(fileName)
		require.NoError(t, err)
		require.NotNil(t, theStorage)
		defer func() {
			require.NoError(t, theStorage.Close())
		}()

		require.NoError(t, theStorage.Ping(context.Background()))

		err = theStorage.SaveReport(context.Background(), report.Report{ID: "first", Profile: "scenario"})
		assert.NoError(t, err, "The `theStorage.SaveReport()` should not return error")

		reopened, err := New(fileName)
		require.NoError(t, err)
		require.Len(t, reopened.Cache, 1)
		assert.Equal(t, "first", reopened.Cache[0].ID)

		err = reopened.SaveReport(context.Background(), report.Report{ID: "second", Profile: "fixed"})
		require.NoError(t, err)

		data, err := os.ReadFile(fileName)
		require.NoError(t, err)

		var saved []report.Report
		require.NoError(t, json.Unmarshal(data, &saved))
		require.Len(t, saved, 2)
		assert.Equal(t, "first", saved[0].ID)
		assert.Equal(t, "second", saved[1].ID)
		assert.Equal(t, "fixed", saved[1].Profile)
	})

	t.Run("New creates an empty report file", func(t *testing.T) {
		fileName := filepath.Join(t.TempDir(), "reports.json")

		db, err := New(fileName)
		require.NoError(t, err)
		assert.Empty(t, db.Cache)

		data, err := os.ReadFile(fileName)
		require.NoError(t, err)
		assert.JSONEq(t, `[]`, string(data))
	})

	t.Run("New fails on a broken file", func(t *testing.T) {
		fileName := filepath.Join(t.TempDir(), "reports.json")
		require.NoError(t, os.WriteFile(fileName, []byte(`{"not":"an array"`), 0644))

		_, err := New(fileName)
		assert.Error(t, err)
	})
}
