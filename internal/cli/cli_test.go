package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const expectedReport = "client,available,held,total,locked\n" +
	"1,7,0,7,false\n" +
	"2,10,0,10,false\n" +
	"3,0,0,0,true\n" +
	"5,2.5,0,2.5,false\n"

func TestRoot_ReplaysInput(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"memory", nil},
		{"memory sharded", []string{"--workers", "4"}},
		{"sqlite", []string{"--storage-driver", "sqlite3", "--storage-dsn",
			fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"testdata/transactions.csv", "--log-level", "error"}, tt.args...)
			output, err := ExecuteCommand(NewRootCmd(), args...)
			require.NoError(t, err)
			assert.Equal(t, expectedReport, output)
		})
	}
}

func TestRoot_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "payments.yaml")
	require.NoError(t, os.WriteFile(path, []byte("engine:\n  workers: 3\nlog:\n  level: error\n"), 0o600))

	output, err := ExecuteCommand(NewRootCmd(), "testdata/transactions.csv", "--config", path)
	require.NoError(t, err)
	assert.Equal(t, expectedReport, output)
}

func TestRoot_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"no input", []string{}, "accepts 1 arg"},
		{"missing file", []string{"testdata/nope.csv"}, "failed to open input"},
		{"bad header", []string{"testdata/bad_header.csv"}, "missing column"},
		{"bad driver", []string{"testdata/transactions.csv", "--storage-driver", "mongo"}, "invalid storage.driver"},
		{"sqlite without dsn", []string{"testdata/transactions.csv", "--storage-driver", "sqlite3"}, "storage.dsn is required"},
		{"bad workers", []string{"testdata/transactions.csv", "--workers", "0"}, "engine.workers must be positive"},
		{"bad log level", []string{"testdata/transactions.csv", "--log-level", "loud"}, "invalid log level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ExecuteCommand(NewRootCmd(), tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestRoot_EnvOverrides(t *testing.T) {
	t.Setenv("PAYMENTS_STORAGE_DRIVER", "bogus")

	_, err := ExecuteCommand(NewRootCmd(), "testdata/transactions.csv", "--log-level", "error")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bogus")
}

func TestServe_StopsWhenContextEnds(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	root := NewRootCmd()
	root.SetArgs([]string{"serve", "--port", "0", "--log-level", "error"})

	done := make(chan error, 1)
	go func() { done <- root.ExecuteContext(ctx) }()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return after context cancellation")
	}
}
