package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scrape-portal/internal/batch"
	"scrape-portal/internal/jobs"
	"scrape-portal/internal/results"
)

func TestJobsTable(t *testing.T) {
	data := jobsTable([]jobs.Summary{
		{ID: "scraper-job-cats", State: batch.StateRunning},
	})
	assert.Equal(t, []string{"JOB", "STATE", "CREATED"}, data[0])
	assert.Equal(t, []string{"scraper-job-cats", "RUNNING", "-"}, data[1])
}

func TestResultsTable(t *testing.T) {
	data := resultsTable([]results.Result{
		{Name: "cats_2025-08-13T14:32:45.csv", Topic: "cats", Timestamp: time.Date(2025, 8, 13, 14, 32, 45, 0, time.UTC), Size: 12},
		{Name: "notes.csv", Topic: "notes", ParseError: "no timestamp"},
	})
	assert.Len(t, data, 3)
	assert.Equal(t, []string{"cats_2025-08-13T14:32:45.csv", "cats", "2025-08-13 14:32:45", "12"}, data[1])
	assert.Equal(t, "?", data[2][2])
}

func TestRootCommand_RequiresEmail(t *testing.T) {
	root := newRootCmd()
	root.SetArgs([]string{"results"})
	err := root.Execute()
	assert.ErrorContains(t, err, "--email is required")
}

func TestRootCommand_RunsWithoutJWTSecret(t *testing.T) {
	t.Setenv("BATCH_BACKEND", "memory")
	t.Setenv("STORAGE_BACKEND", "memory")
	t.Setenv("AUTH_JWT_SECRET", "")

	for _, args := range [][]string{
		{"results"},
		{"submit", "cats, dogs"},
		{"jobs", "--state", "RUNNING"},
	} {
		root := newRootCmd()
		root.SetArgs(append([]string{"--email", "alice@example.com"}, args...))
		require.NoError(t, root.Execute(), args)
	}
}
