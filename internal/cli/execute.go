package cli

import (
	"context"
	"errors"
	"io"
	"os"

	"github.com/spf13/cobra"
)

// Execute runs the roster CLI with os.Args and returns the process exit code.
func Execute() int {
	cmd, opts := newRootCommand()
	return execute(context.Background(), cmd, opts, os.Stdout, os.Stderr)
}

func execute(ctx context.Context, cmd *cobra.Command, opts *RootOptions, stdout, stderr io.Writer) int {
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return ExitSuccess
	}

	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		// Flag and argument errors from cobra itself.
		err = WrapExitError(ExitCommandError, "usage error", err)
	} else if exitErr.reported {
		return exitErr.Code
	}

	f := &OutputFormatter{Format: opts.Format, Writer: stdout, ErrWriter: stderr, Verbose: opts.Verbose}
	if !isValidFormat(f.Format) {
		f.Format = "text"
	}
	_ = f.Error(ErrorCode(err), err.Error(), nil)
	return GetExitCode(err)
}
