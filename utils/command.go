package utils

import (
	"context"
	"os"
	"os/exec"
)

func ExecuteCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Env = os.Environ()
	o, err := cmd.CombinedOutput()
	return o, err
}
