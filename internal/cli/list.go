package cli

import (
	"github.com/spf13/cobra"

	service "github.com/iieadb/eventboard/internal/app"
	"github.com/iieadb/eventboard/internal/domain/model"
	"github.com/iieadb/eventboard/internal/domain/session"
	"github.com/iieadb/eventboard/internal/domain/sorting"
	"github.com/iieadb/eventboard/internal/listing"
	"github.com/iieadb/eventboard/pkg/logger"
)

// ListOptions holds flags for the list command.
type ListOptions struct {
	Sort     string
	Order    string
	UserID   int64
	Username string
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ListOptions{}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print the sorted event listing",
		Long: `Print every event sorted by one column.

With --user-id the listing is rendered for that user: events they created
carry a delete control.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd, rootOpts, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Sort, "sort", string(sorting.FieldName), "column to sort by (name|start_date|end_date|creator|team_event)")
	cmd.Flags().StringVar(&opts.Order, "order", string(sorting.Ascending), "sort direction (asc|desc)")
	cmd.Flags().Int64Var(&opts.UserID, "user-id", 0, "render the listing for this user")
	cmd.Flags().StringVar(&opts.Username, "username", "", "username of --user-id")

	return cmd
}

func runList(cmd *cobra.Command, rootOpts *RootOptions, opts *ListOptions) error {
	ctx := cmd.Context()
	key, err := sorting.ParseKey(opts.Sort, opts.Order)
	if err != nil {
		return err
	}

	store, release, err := openStore(ctx, rootOpts)
	if err != nil {
		return err
	}
	defer release()

	who := identityFor(opts.UserID, opts.Username)
	view := listing.NewView(store, nil, session.Static{Identity: who}, nil,
		listing.WithSortKey(key),
		listing.WithLogger(logger.Get().Named("listing")))
	if err := view.Activate(ctx); err != nil {
		return err
	}
	rows, err := view.Rows(ctx)
	if err != nil {
		return err
	}

	if rootOpts.Format == "json" {
		events := make([]model.Event, len(rows))
		for i, r := range rows {
			events[i] = r.Event
		}
		return writeJSON(cmd.OutOrStdout(), service.BuildListing(view.Snapshot().Version, key, events, who))
	}
	return writeTable(cmd.OutOrStdout(), view.Headers(), rows)
}

func identityFor(id int64, username string) *session.Identity {
	if id <= 0 {
		return nil
	}
	return &session.Identity{ID: id, Username: username}
}
