package schedule

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePayload(t *testing.T) {
	tests := []struct {
		name       string
		actionType string
		payload    string
		wantErr    string
	}{
		{
			name:       "valid notify",
			actionType: ActionNotify,
			payload:    `{"message":"stand up and stretch"}`,
		},
		{
			name:       "valid notify with channel",
			actionType: ActionNotify,
			payload:    `{"message":"build finished","channel":"webhook"}`,
		},
		{
			name:       "valid agent task",
			actionType: ActionAgentTask,
			payload:    `{"instruction":"triage new issues","project_id":"proj_1"}`,
		},
		{
			name:       "notify without message",
			actionType: ActionNotify,
			payload:    `{"channel":"inapp"}`,
			wantErr:    "requires a message",
		},
		{
			name:       "notify with blank message",
			actionType: ActionNotify,
			payload:    `{"message":"   "}`,
			wantErr:    "requires a message",
		},
		{
			name:       "notify with unknown channel",
			actionType: ActionNotify,
			payload:    `{"message":"hi","channel":"carrier-pigeon"}`,
			wantErr:    "unknown notification channel",
		},
		{
			name:       "agent task without instruction",
			actionType: ActionAgentTask,
			payload:    `{"task_id":"task_1"}`,
			wantErr:    "requires an instruction",
		},
		{
			name:       "unknown fields rejected",
			actionType: ActionNotify,
			payload:    `{"message":"hi","mesage_typo":"oops"}`,
			wantErr:    "invalid notify payload",
		},
		{
			name:       "payload for wrong action rejected",
			actionType: ActionAgentTask,
			payload:    `{"message":"hi"}`,
			wantErr:    "invalid agent_task payload",
		},
		{
			name:       "empty payload",
			actionType: ActionNotify,
			payload:    ``,
			wantErr:    "requires a payload",
		},
		{
			name:       "unknown action type",
			actionType: "teleport",
			payload:    `{"message":"hi"}`,
			wantErr:    "unknown action type",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePayload(tt.actionType, json.RawMessage(tt.payload))
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestDecodeNotifyPayload(t *testing.T) {
	p, err := DecodeNotifyPayload(json.RawMessage(`{"message":"water the plants","channel":"command"}`))
	require.NoError(t, err)
	assert.Equal(t, "water the plants", p.Message)
	assert.Equal(t, ChannelCommand, p.Channel)
}

func TestDecodeAgentTaskPayload(t *testing.T) {
	raw := json.RawMessage(`{"instruction":"review the open PRs","task_id":"task_9","conversation_id":"conv_3"}`)
	p, err := DecodeAgentTaskPayload(raw)
	require.NoError(t, err)
	assert.Equal(t, "review the open PRs", p.Instruction)
	assert.Equal(t, "task_9", p.TaskID)
	assert.Equal(t, "conv_3", p.ConversationID)
	assert.Empty(t, p.ProjectID)
}
