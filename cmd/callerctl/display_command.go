package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"patient-caller-backend/internal/display"
)

const clearScreen = "\033[H\033[2J"

func newDisplayCommand(ctx *commandContext) *cobra.Command {
	var interval time.Duration
	var once bool
	var verbose bool
	cmd := &cobra.Command{
		Use:   "display",
		Short: "Run the waiting-room display",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			loc, err := ctx.location()
			if err != nil {
				return err
			}

			level := zerolog.InfoLevel
			if verbose {
				level = zerolog.DebugLevel
			}
			logger := zerolog.New(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr()}).Level(level).With().Timestamp().Logger()

			poller := display.NewPoller(ctx.client(), interval, loc, logger)
			out := cmd.OutOrStdout()
			clearFirst := shouldClear(out)
			render := func(snap display.Snapshot) {
				if clearFirst {
					fmt.Fprint(out, clearScreen)
				}
				fmt.Fprint(out, display.Render(snap, loc))
			}

			if once {
				render(poller.PollOnce(cmd.Context()))
				return nil
			}
			poller.Run(cmd.Context(), render)
			return nil
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", display.DefaultInterval, "Refresh interval")
	cmd.Flags().BoolVar(&once, "once", false, "Render a single frame and exit")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Log fetch errors")
	return cmd
}

// shouldClear reports whether w is an interactive terminal.
func shouldClear(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
