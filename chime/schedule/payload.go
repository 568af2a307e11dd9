package schedule

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/heraldai/herald/errors"
)

// NotifyPayload is the action payload for notify jobs. Channel selects
// the delivery transport and defaults to the in-app inbox.
type NotifyPayload struct {
	Message string `json:"message"`
	Channel string `json:"channel,omitempty"` // inapp | webhook | command
}

// AgentTaskPayload is the action payload for agent_task jobs. Instruction
// is handed verbatim to the agent runner; the optional linkage fields
// tell the runner which task, project, or conversation the work
// belongs to.
type AgentTaskPayload struct {
	Instruction    string `json:"instruction"`
	TaskID         string `json:"task_id,omitempty"`
	ProjectID      string `json:"project_id,omitempty"`
	ConversationID string `json:"conversation_id,omitempty"`
}

// Notification channel constants
const (
	ChannelInApp   = "inapp"
	ChannelWebhook = "webhook"
	ChannelCommand = "command"
)

// ValidatePayload checks that raw is a well-formed payload for the
// given action type. Unknown fields are rejected so typos surface at
// authoring time instead of silently dropping intent.
func ValidatePayload(actionType string, raw json.RawMessage) error {
	if len(bytes.TrimSpace(raw)) == 0 {
		return errors.Newf("action %s requires a payload", actionType)
	}

	switch actionType {
	case ActionNotify:
		p, err := DecodeNotifyPayload(raw)
		if err != nil {
			return err
		}
		if strings.TrimSpace(p.Message) == "" {
			return errors.New("notify payload requires a message")
		}
		switch p.Channel {
		case "", ChannelInApp, ChannelWebhook, ChannelCommand:
		default:
			return errors.Newf("unknown notification channel %q", p.Channel)
		}
		return nil

	case ActionAgentTask:
		p, err := DecodeAgentTaskPayload(raw)
		if err != nil {
			return err
		}
		if strings.TrimSpace(p.Instruction) == "" {
			return errors.New("agent_task payload requires an instruction")
		}
		return nil

	default:
		return errors.Newf("unknown action type %q", actionType)
	}
}

// DecodeNotifyPayload parses a notify payload strictly.
func DecodeNotifyPayload(raw json.RawMessage) (*NotifyPayload, error) {
	var p NotifyPayload
	if err := decodeStrict(raw, &p); err != nil {
		return nil, errors.Wrap(err, "invalid notify payload")
	}
	return &p, nil
}

// DecodeAgentTaskPayload parses an agent_task payload strictly.
func DecodeAgentTaskPayload(raw json.RawMessage) (*AgentTaskPayload, error) {
	var p AgentTaskPayload
	if err := decodeStrict(raw, &p); err != nil {
		return nil, errors.Wrap(err, "invalid agent_task payload")
	}
	return &p, nil
}

func decodeStrict(raw json.RawMessage, v interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
