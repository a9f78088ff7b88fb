package render

import (
	"bytes"
	"context"
	"encoding/json"
	"os/exec"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// ExecRenderer delegates rendering to an external templating command: the
// resolved context goes to stdin as JSON, the rendered document comes back
// on stdout.
type ExecRenderer struct {
	command string
	args    []string
}

// NewExecRenderer builds a renderer around the given command line.
func NewExecRenderer(command string, args ...string) *ExecRenderer {
	return &ExecRenderer{command: command, args: args}
}

// Render runs the command once per annex.
func (r *ExecRenderer) Render(ctx context.Context, annex *AnnexContext) ([]byte, error) {
	payload, err := json.Marshal(annex)
	if err != nil {
		return nil, eris.Wrap(err, "render: marshal context")
	}

	cmd := exec.CommandContext(ctx, r.command, r.args...)
	cmd.Stdin = bytes.NewReader(payload)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, eris.Wrapf(err, "render: %s failed: %s", r.command, stderr.String())
	}
	if stdout.Len() == 0 {
		return nil, eris.Errorf("render: %s produced no output", r.command)
	}

	zap.L().Debug("render: external renderer done",
		zap.String("annex", annex.AnnexNumber),
		zap.Int("bytes", stdout.Len()),
	)
	return stdout.Bytes(), nil
}
