// Copyright (C) 2025 Apex Labs (dev@apexstack.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "conductor.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoad_EmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8085", cfg.Server.Addr)
	assert.False(t, cfg.Weaviate.Enabled)
	assert.True(t, cfg.Badger.Enabled)
	assert.Equal(t, "data/conductor", cfg.Badger.Path)
	assert.Equal(t, 2*time.Hour, cfg.Tracker.SessionTTL)
	assert.Equal(t, 10000, cfg.Tracker.MaxSessions)
	assert.Equal(t, 2048, cfg.Learner.MaxEntries)
}

func TestLoad_FileOverlaysDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: ":9090"
weaviate:
  enabled: true
  host: "weaviate.internal:8080"
  scheme: https
tracker:
  maxSessions: 500
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.True(t, cfg.Weaviate.Enabled)
	assert.Equal(t, "weaviate.internal:8080", cfg.Weaviate.Host)
	assert.Equal(t, "https", cfg.Weaviate.Scheme)
	assert.Equal(t, 500, cfg.Tracker.MaxSessions)

	// Untouched keys keep their defaults.
	assert.Equal(t, 3*time.Second, cfg.Weaviate.CallTimeout)
	assert.Equal(t, time.Minute, cfg.Tracker.SweepInterval)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoad_MalformedYaml(t *testing.T) {
	path := writeConfig(t, "server: [not a mapping")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_ValidationFailures(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name:    "empty listen address",
			content: "server:\n  addr: \"\"\n",
		},
		{
			name:    "weaviate enabled without host",
			content: "weaviate:\n  enabled: true\n  host: \"\"\n",
		},
		{
			name:    "bad weaviate scheme",
			content: "weaviate:\n  scheme: gopher\n",
		},
		{
			name:    "badger enabled without path",
			content: "badger:\n  enabled: true\n  path: \"\"\n",
		},
		{
			name:    "negative session cap",
			content: "tracker:\n  maxSessions: -1\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.content)
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}
