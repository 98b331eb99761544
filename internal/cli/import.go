package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/roster/internal/roster"
	"github.com/roach88/roster/internal/student"
	"github.com/roach88/roster/internal/viewmodel"
)

// ImportResult is the JSON payload of the import command.
type ImportResult struct {
	File     string           `json:"file"`
	Imported int              `json:"imported"`
	Failed   int              `json:"failed"`
	Records  student.Snapshot `json:"records"`
}

// NewImportCommand creates the import command.
func NewImportCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Add every student listed in a roster file",
		Long: `Validate a roster file and add each listed student as a new record.

The file may be CUE (.cue), YAML (.yaml, .yml), or JSON (.json) and must
have the shape:

  students: [{name: "Ada", course: "Math"}, ...]

Nothing is written if the file fails validation.

Example:
  roster import fall.cue`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(opts, args[0], cmd)
		},
	}
}

func runImport(opts *RootOptions, path string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	drafts, err := roster.Load(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid roster", err)
	}
	f.VerboseLog("loaded %d student(s) from %s", len(drafts), path)

	s, err := openSession(cmd.Context(), opts)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := cmd.Context()
	before := s.ctrl.State()
	for _, d := range drafts {
		if err := s.ctrl.AddRecord(d.Name, d.Course); err != nil {
			return intentError("import", err)
		}
	}
	if err := s.ctrl.Settle(ctx); err != nil {
		return err
	}

	failures := s.takeFailures()
	imported := len(drafts) - len(failures)
	after := before.Records
	if imported > 0 {
		want := len(before.Records) + imported
		after, err = s.waitFor(ctx, func(st viewmodel.State) bool { return len(st.Records) >= want })
		if err != nil {
			return err
		}
	}

	added := newRecords(before.Records, after)
	if f.Format == "json" {
		if err := f.Success(ImportResult{File: path, Imported: imported, Failed: len(failures), Records: added}); err != nil {
			return err
		}
	} else {
		writeTable(f.Writer, added)
		fmt.Fprintf(f.Writer, "imported %d of %d student(s)\n", imported, len(drafts))
	}

	if len(failures) > 0 {
		return WrapExitError(ExitFailure, fmt.Sprintf("%d of %d insert(s) failed", len(failures), len(drafts)), &failures[0])
	}
	return nil
}

// newRecords returns the records of after whose ids are absent from before.
func newRecords(before, after student.Snapshot) student.Snapshot {
	seen := make(map[int64]bool, len(before))
	for _, r := range before {
		seen[r.ID] = true
	}
	out := student.Snapshot{}
	for _, r := range after {
		if !seen[r.ID] {
			out = append(out, r)
		}
	}
	return out
}
