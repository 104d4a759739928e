package tools

import (
	"context"
	"fmt"
)

// Builtin returns a registry with the two built-in tools: run_command,
// which executes a shell command via the given runner, and hello_world.
func Builtin(runner *ShellRunner) *Registry {
	r := NewRegistry()

	r.Register(Descriptor{
		Name:        "run_command",
		Description: "Execute a shell command inside the configured workspace directory.",
		Parameters: map[string]Param{
			"command": {Type: "string", Description: "The shell command to run.", Required: true},
		},
	}, func(ctx context.Context, args map[string]any) (string, error) {
		command, ok := args["command"].(string)
		if !ok || command == "" {
			return "", fmt.Errorf("%w: run_command requires a string \"command\" argument", ErrInvalidArguments)
		}
		return runner.Run(ctx, command), nil
	})

	r.Register(Descriptor{
		Name:        "hello_world",
		Description: "Return a simple Hello World message.",
	}, func(ctx context.Context, args map[string]any) (string, error) {
		runner.Log.Info("hello_world tool invoked")
		return "Hello World", nil
	})

	return r
}
