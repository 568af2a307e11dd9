package notify

import (
	"context"
	"os"
	"os/exec"
	"strings"

	"github.com/kballard/go-shellquote"
	"go.uber.org/zap"

	"github.com/heraldai/herald/errors"
)

// CommandSender runs an owner-configured shell command for each
// notification. The notification fields are handed over in
// HERALD_NOTIFY_* environment variables and the body on stdin, never
// through argv, so the command template needs no quoting. Delivery
// succeeds once the process has started.
type CommandSender struct {
	command string
	logger  *zap.SugaredLogger
}

// NewCommandSender creates a sender running the given command line.
func NewCommandSender(command string, log *zap.SugaredLogger) *CommandSender {
	return &CommandSender{command: command, logger: log}
}

// Name returns the channel this sender serves.
func (s *CommandSender) Name() string { return "command" }

// Send starts the configured command. The process outlives the call;
// a goroutine reaps it and logs a non-zero exit.
func (s *CommandSender) Send(ctx context.Context, n *Notification) error {
	if s.command == "" {
		return errors.New("notify command is not configured")
	}

	argv, err := shellquote.Split(s.command)
	if err != nil {
		return errors.Wrap(err, "failed to parse notify command")
	}
	if len(argv) == 0 {
		return errors.New("notify command is empty")
	}

	// No CommandContext here: the dispatch context ends right after
	// Send returns and must not kill the running process.
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Stdin = strings.NewReader(n.Body)
	cmd.Env = append(os.Environ(),
		"HERALD_NOTIFY_ID="+n.ID,
		"HERALD_NOTIFY_JOB_ID="+n.JobID,
		"HERALD_NOTIFY_TITLE="+n.Title,
		"HERALD_NOTIFY_BODY="+n.Body,
	)

	if err := cmd.Start(); err != nil {
		return errors.Wrapf(err, "failed to start notify command %q", argv[0])
	}

	go func() {
		if err := cmd.Wait(); err != nil {
			s.logger.Warnw("Notify command exited with error",
				"command", argv[0],
				"notification_id", n.ID,
				"error", err)
		}
	}()

	return nil
}
