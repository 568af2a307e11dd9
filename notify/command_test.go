package notify

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestCommandSender_Send(t *testing.T) {
	// The command writes its environment to a file so the test can
	// check the HERALD_NOTIFY_* variables actually reached it.
	outFile := filepath.Join(t.TempDir(), "env.txt")
	sender := NewCommandSender("sh -c 'env > "+outFile+"'", zap.NewNop().Sugar())

	err := sender.Send(context.Background(), &Notification{
		ID:      "notif_1",
		JobID:   "job_1",
		OwnerID: "alice",
		Title:   "stand up",
		Body:    "stretch break",
	})
	require.NoError(t, err)

	// Send returns at process start; give the shell a moment to write.
	var env string
	require.Eventually(t, func() bool {
		data, err := os.ReadFile(outFile)
		if err != nil || len(data) == 0 {
			return false
		}
		env = string(data)
		return true
	}, 5*time.Second, 20*time.Millisecond)

	assert.True(t, strings.Contains(env, "HERALD_NOTIFY_ID=notif_1"))
	assert.True(t, strings.Contains(env, "HERALD_NOTIFY_JOB_ID=job_1"))
	assert.True(t, strings.Contains(env, "HERALD_NOTIFY_TITLE=stand up"))
	assert.True(t, strings.Contains(env, "HERALD_NOTIFY_BODY=stretch break"))
}

func TestCommandSender_StartOnly(t *testing.T) {
	// sleep outlives the call; Send must not wait for it.
	sender := NewCommandSender("sleep 10", zap.NewNop().Sugar())

	start := time.Now()
	err := sender.Send(context.Background(), &Notification{ID: "notif_1", Title: "t"})
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestCommandSender_Errors(t *testing.T) {
	tests := []struct {
		name    string
		command string
		wantIn  string
	}{
		{"unconfigured", "", "not configured"},
		{"unterminated quote", "notify-send 'oops", "failed to parse"},
		{"missing binary", "herald-no-such-binary-xyz", "failed to start"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender := NewCommandSender(tt.command, zap.NewNop().Sugar())
			err := sender.Send(context.Background(), &Notification{ID: "notif_1", Title: "t"})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantIn)
		})
	}
}
