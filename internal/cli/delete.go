package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/iieadb/eventboard/internal/domain/deletion"
	"github.com/iieadb/eventboard/internal/domain/session"
	"github.com/iieadb/eventboard/internal/listing"
	"github.com/iieadb/eventboard/pkg/logger"
)

// DeleteOptions holds flags for the delete command.
type DeleteOptions struct {
	UserID int64
	Yes    bool
}

// DeleteResult is the JSON output of the delete command.
type DeleteResult struct {
	ID      int64  `json:"id"`
	Status  string `json:"status"` // "deleted" or "cancelled"
	Version uint64 `json:"version"`
}

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DeleteOptions{}

	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an event you created",
		Long: `Delete an event after confirmation.

Only the creator of an event may delete it. The listing is reloaded after
a successful delete.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid event id %q", args[0])
			}
			return runDelete(cmd, rootOpts, opts, id)
		},
	}

	cmd.Flags().Int64Var(&opts.UserID, "user-id", 0, "id of the user performing the delete")
	cmd.Flags().BoolVarP(&opts.Yes, "yes", "y", false, "skip the confirmation prompt")
	_ = cmd.MarkFlagRequired("user-id")

	return cmd
}

func runDelete(cmd *cobra.Command, rootOpts *RootOptions, opts *DeleteOptions, id int64) error {
	ctx := cmd.Context()

	store, release, err := openStore(ctx, rootOpts)
	if err != nil {
		return err
	}
	defer release()

	who := &session.Identity{ID: opts.UserID}
	view := listing.NewView(store,
		deletion.DeleterFunc(func(ctx context.Context, id int64) error {
			return store.Delete(ctx, id, who.ID)
		}),
		session.Static{Identity: who}, nil,
		listing.WithLogger(logger.Get().Named("listing")))
	if err := view.Activate(ctx); err != nil {
		return err
	}

	if err := view.Click(ctx, listing.Target{Kind: listing.TargetDeleteControl, EventID: id}); err != nil {
		if errors.Is(err, listing.ErrNotDeletable) {
			return fmt.Errorf("event %d was not created by user %d: %w", id, who.ID, err)
		}
		return err
	}

	confirmed := opts.Yes
	if !confirmed {
		prompter := rootOpts.Prompter
		if prompter == nil {
			prompter = LinePrompter{In: cmd.InOrStdin(), Out: cmd.ErrOrStderr()}
		}
		question := fmt.Sprintf("Delete event %d?", id)
		if e := view.Prompt().Event; e != nil {
			question = fmt.Sprintf("Delete event %d %q?", e.ID, e.Name)
		}
		if confirmed, err = prompter.Confirm(ctx, question); err != nil {
			view.CancelDelete()
			return err
		}
	}

	result := DeleteResult{ID: id, Status: "cancelled"}
	if confirmed {
		if err := view.ConfirmDelete(ctx); err != nil {
			return err
		}
		result.Status = "deleted"
	} else {
		view.CancelDelete()
	}
	result.Version = view.Snapshot().Version

	if rootOpts.Format == "json" {
		return writeJSON(cmd.OutOrStdout(), result)
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s event %d\n", result.Status, id)
	return err
}
