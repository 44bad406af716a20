package relay

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"

	"github.com/lizzy-schoen/claude-approve/internal/logging"
)

// Runner executes prompts through the agent CLI and returns its output.
type Runner interface {
	Run(ctx context.Context, prompt string) (string, error)
}

// AgentRunner runs prompts through the local agent CLI as a continued
// conversation (-c) in text output mode.
type AgentRunner struct {
	command    string
	projectDir string
	log        *slog.Logger
}

// NewAgentRunner creates a runner for the given agent command.
func NewAgentRunner(command, projectDir string) *AgentRunner {
	if command == "" {
		command = "claude"
	}
	return &AgentRunner{
		command:    command,
		projectDir: projectDir,
		log:        logging.WithComponent("relay.runner"),
	}
}

// Run executes the agent with the prompt and waits for completion.
func (r *AgentRunner) Run(ctx context.Context, prompt string) (string, error) {
	cmd := exec.CommandContext(ctx, r.command, "-c", "-p", prompt, "--output-format", "text")
	if r.projectDir != "" {
		cmd.Dir = r.projectDir
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	r.log.Debug("Starting agent",
		slog.String("command", r.command),
		slog.String("dir", r.projectDir))

	if err := cmd.Run(); err != nil {
		errOut := strings.TrimSpace(stderr.String())
		if errOut == "" {
			errOut = err.Error()
		}
		return "", fmt.Errorf("agent exited: %s", errOut)
	}

	out := strings.TrimSpace(stdout.String())
	if out == "" {
		out = "(No output)"
	}

	return out, nil
}
