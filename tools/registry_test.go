package tools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func builtinRegistry(t *testing.T) *Registry {
	t.Helper()
	return Builtin(&ShellRunner{Log: log, Dir: t.TempDir()})
}

func TestHelloWorld(t *testing.T) {
	r := builtinRegistry(t)

	// hello_world ignores whatever arguments are supplied.
	for _, args := range []map[string]any{nil, {}, {"junk": 42}} {
		out, err := r.Invoke(context.Background(), "hello_world", args)
		require.NoError(t, err)
		assert.Equal(t, "Hello World", out)
	}
}

func TestRunCommandTool(t *testing.T) {
	r := builtinRegistry(t)

	out, err := r.Invoke(context.Background(), "run_command", map[string]any{"command": "echo hi"})
	require.NoError(t, err)
	assert.Equal(t, "hi\n", out)
}

func TestUnknownTool(t *testing.T) {
	r := builtinRegistry(t)

	_, err := r.Invoke(context.Background(), "nope", nil)
	require.ErrorIs(t, err, ErrUnknownTool)
}

func TestRunCommandBadArgs(t *testing.T) {
	r := builtinRegistry(t)

	cases := []struct {
		name string
		args map[string]any
	}{
		{name: "no args", args: nil},
		{name: "empty command", args: map[string]any{"command": ""}},
		{name: "wrong type", args: map[string]any{"command": 7}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := r.Invoke(context.Background(), "run_command", c.args)
			require.ErrorIs(t, err, ErrInvalidArguments)
		})
	}
}

func TestList(t *testing.T) {
	r := builtinRegistry(t)

	descs := r.List()
	require.Len(t, descs, 2)
	assert.Equal(t, "run_command", descs[0].Name)
	assert.Equal(t, "hello_world", descs[1].Name)
	require.Contains(t, descs[0].Parameters, "command")
	assert.True(t, descs[0].Parameters["command"].Required)
}

func TestRegisterDuplicatePanics(t *testing.T) {
	r := builtinRegistry(t)

	assert.Panics(t, func() {
		r.Register(Descriptor{Name: "hello_world"}, nil)
	})
}
