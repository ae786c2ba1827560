package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	farewell   = "Goodbye!"
	turnFailed = "Sorry, something went wrong. Please try again."
)

// turnHandler answers one line of user input, writing to w.
type turnHandler func(ctx context.Context, line string, w io.Writer) error

type repl struct {
	banner string
	prompt string
	handle turnHandler
}

// run reads one line per turn until exit, EOF or cancellation. A failing turn
// prints a plain message and the session goes on.
func (r *repl) run(ctx context.Context, in io.Reader, out io.Writer) error {
	if r.banner != "" {
		fmt.Fprintln(out, r.banner)
	}
	reader := bufio.NewReader(in)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		fmt.Fprintf(out, "\n%s", r.prompt)

		line, err := reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return errors.Wrap(err, "could not read input")
		}
		eof := errors.Is(err, io.EOF)

		line = strings.TrimSpace(line)
		if strings.EqualFold(line, "exit") {
			fmt.Fprintln(out, farewell)
			return nil
		}
		if line != "" {
			if err := r.handle(ctx, line, out); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				log.Warn().Err(err).Msg("turn failed")
				fmt.Fprintln(out, turnFailed)
			}
		}
		if eof {
			fmt.Fprintln(out)
			return nil
		}
	}
}
