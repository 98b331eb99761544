package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/roach88/roster/internal/viewmodel"
)

// NewListCommand creates the list command.
func NewListCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Print all records",
		Long: `Print every record in id order.

Examples:
  roster list
  roster list --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer s.Close()

			return opts.formatter(cmd).Records(s.ctrl.Records())
		},
	}
}

// NewAddCommand creates the add command.
func NewAddCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "add <name> <course>",
		Short: "Add a record",
		Long: `Add a record and print it with its assigned id.

Name and course are trimmed; neither may be empty.

Example:
  roster add "Ada Lovelace" "Computer Science"`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer s.Close()

			before := s.ctrl.Records()
			after, err := s.apply(cmd.Context(), func(c *viewmodel.Controller) error {
				return c.AddRecord(args[0], args[1])
			})
			if err != nil {
				return intentError("add", err)
			}

			added := newRecords(before, after)
			if len(added) == 0 {
				return NewExitError(ExitFailure, "added record not found in snapshot")
			}
			return opts.formatter(cmd).Record(added[0])
		},
	}
}

// NewUpdateCommand creates the update command.
func NewUpdateCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "update <id> <name> <course>",
		Short: "Replace the name and course of a record",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			s, err := openSession(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer s.Close()

			after, err := s.apply(cmd.Context(), func(c *viewmodel.Controller) error {
				return c.UpdateRecord(id, args[1], args[2])
			})
			if err != nil {
				return intentError("update", err)
			}

			rec, ok := after.Find(id)
			if !ok {
				return NewExitError(ExitFailure, fmt.Sprintf("record %d missing after update", id))
			}
			return opts.formatter(cmd).Record(rec)
		},
	}
}

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			s, err := openSession(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer s.Close()

			if _, err := s.apply(cmd.Context(), func(c *viewmodel.Controller) error {
				return c.DeleteRecord(id)
			}); err != nil {
				return intentError("delete", err)
			}

			f := opts.formatter(cmd)
			if f.Format == "json" {
				return f.Success(map[string]int64{"deleted": id})
			}
			return f.Success(fmt.Sprintf("deleted %d", id))
		},
	}
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, NewExitError(ExitCommandError, fmt.Sprintf("invalid id %q: must be a positive integer", s))
	}
	return id, nil
}
