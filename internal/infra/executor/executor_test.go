package executor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/runoshun/taskflow/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Run(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("Skipping test on Windows")
	}
	client := NewClient()
	ctx := context.Background()

	t.Run("captures combined output", func(t *testing.T) {
		res, err := client.Run(ctx, domain.ActionRun{Command: "echo out; echo err >&2"})
		require.NoError(t, err)
		assert.Equal(t, 0, res.ExitCode)
		assert.Contains(t, res.Output, "out\n")
		assert.Contains(t, res.Output, "err\n")
	})

	t.Run("runs in directory with env", func(t *testing.T) {
		dir := t.TempDir()
		res, err := client.Run(ctx, domain.ActionRun{
			Command: `pwd; echo "$TASKFLOW_HOOK"`,
			Dir:     dir,
			Env:     []string{"TASKFLOW_HOOK=fmt"},
		})
		require.NoError(t, err)
		lines := strings.Split(strings.TrimSpace(res.Output), "\n")
		require.Len(t, lines, 2)
		assert.Contains(t, lines[0], filepath.Base(dir))
		assert.Equal(t, "fmt", lines[1])
	})

	t.Run("feeds stdin", func(t *testing.T) {
		res, err := client.Run(ctx, domain.ActionRun{Command: "cat", Stdin: []byte(`{"tool_name":"Edit"}`)})
		require.NoError(t, err)
		assert.Equal(t, `{"tool_name":"Edit"}`, res.Output)
	})

	t.Run("reports exit code without error", func(t *testing.T) {
		res, err := client.Run(ctx, domain.ActionRun{Command: "echo nope; exit 3"})
		require.NoError(t, err)
		assert.Equal(t, 3, res.ExitCode)
		assert.Equal(t, "nope\n", res.Output)
	})

	t.Run("times out", func(t *testing.T) {
		start := time.Now()
		_, err := client.Run(ctx, domain.ActionRun{Command: "sleep 10", Timeout: 100 * time.Millisecond})
		require.Error(t, err)
		assert.True(t, errors.Is(err, context.DeadlineExceeded))
		assert.Less(t, time.Since(start), 5*time.Second)
	})
}

func TestClient_Start(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("Skipping test on Windows")
	}
	client := NewClient()
	marker := filepath.Join(t.TempDir(), "done")

	pid, err := client.Start(context.Background(), domain.ActionRun{Command: "echo $$ > " + marker})
	require.NoError(t, err)
	assert.Positive(t, pid)

	assert.Eventually(t, func() bool {
		data, err := os.ReadFile(marker)
		return err == nil && strings.TrimSpace(string(data)) == strconv.Itoa(pid)
	}, 2*time.Second, 20*time.Millisecond)
}

func TestClient_Start_Terminate(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("Skipping test on Windows")
	}
	client := NewClient()

	pid, err := client.Start(context.Background(), domain.ActionRun{Command: "sleep 30"})
	require.NoError(t, err)
	require.NoError(t, syscall.Kill(pid, 0))
	require.NoError(t, syscall.Kill(pid, syscall.SIGTERM))

	assert.Eventually(t, func() bool {
		return syscall.Kill(pid, 0) != nil
	}, 2*time.Second, 20*time.Millisecond)
}
