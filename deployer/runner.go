package deployer

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/spance/droidship/deployer/definitions"
)

// ExecRunner executes argument vectors as subprocesses, capturing combined
// output. It is the only place capture-style deployment commands touch
// os/exec; the android and bundle packages consume it through their own
// small Runner interfaces so tests can substitute a fake.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, op, bin string, args ...string) ([]byte, error) {
	log.Debug().Str("cmd", fmt.Sprintf("[%s] run cmd: %s %s", op, bin, strings.Join(args, " "))).Msg("")

	cmd := exec.CommandContext(ctx, bin, args...)
	rawOutput, err := cmd.CombinedOutput()
	if err != nil {
		log.Error().Err(err).Msgf("[%s] run cmd failed", op)
		return rawOutput, &definitions.CommandError{Op: op, Bin: bin, Args: args, Output: rawOutput, Err: err}
	}

	log.Trace().Str("output", fmt.Sprintf("%s", rawOutput)).Msgf("[%s] raw output", op)
	return rawOutput, nil
}
