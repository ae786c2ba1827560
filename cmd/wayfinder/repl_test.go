package main

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func echoREPL(seen *[]string) *repl {
	return &repl{
		prompt: "User: ",
		handle: func(_ context.Context, line string, w io.Writer) error {
			*seen = append(*seen, line)
			if line == "boom" {
				return errors.New("upstream payload {\"code\":500}")
			}
			_, err := io.WriteString(w, "echo "+line+"\n")
			return err
		},
	}
}

func TestREPL_ExitIsCaseInsensitive(t *testing.T) {
	for _, exit := range []string{"exit", "EXIT", "  Exit  "} {
		var seen []string
		var out bytes.Buffer
		err := echoREPL(&seen).run(context.Background(), strings.NewReader("hello\n"+exit+"\nnever\n"), &out)
		require.NoError(t, err)
		require.Equal(t, []string{"hello"}, seen)
		require.True(t, strings.HasSuffix(out.String(), "Goodbye!\n"), out.String())
	}
}

func TestREPL_SkipsBlankLinesAndStopsAtEOF(t *testing.T) {
	var seen []string
	var out bytes.Buffer
	err := echoREPL(&seen).run(context.Background(), strings.NewReader("a\n\n   \nb"), &out)
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b"}, seen)
	require.Contains(t, out.String(), "echo b\n")
	require.NotContains(t, out.String(), "Goodbye!")
}

func TestREPL_FailedTurnPrintsPlainMessage(t *testing.T) {
	var seen []string
	var out bytes.Buffer
	err := echoREPL(&seen).run(context.Background(), strings.NewReader("boom\nafter\nexit\n"), &out)
	require.NoError(t, err)
	require.Equal(t, []string{"boom", "after"}, seen)
	require.Contains(t, out.String(), turnFailed)
	require.NotContains(t, out.String(), "payload")
	require.Contains(t, out.String(), "echo after")
}

func TestREPL_Banner(t *testing.T) {
	var out bytes.Buffer
	r := &repl{banner: "ready", prompt: "> ", handle: func(context.Context, string, io.Writer) error { return nil }}
	require.NoError(t, r.run(context.Background(), strings.NewReader("exit\n"), &out))
	require.Equal(t, "ready\n\n> Goodbye!\n", out.String())
}

func TestREPL_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var seen []string
	err := echoREPL(&seen).run(ctx, strings.NewReader("hello\n"), io.Discard)
	require.ErrorIs(t, err, context.Canceled)
	require.Empty(t, seen)
}
