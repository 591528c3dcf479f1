package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/launchpop/internal/config"
	"github.com/roach88/launchpop/internal/counter"
	"github.com/roach88/launchpop/internal/store"
)

// CountersOptions holds flags shared by the counters subcommands.
type CountersOptions struct {
	*RootOptions
	Database string // empty = config store path
	Scope    string // "", "local" or "session:<id>"
	Popup    string // limit to one popup's keys
}

// CounterRow is one stored counter in command output.
type CounterRow struct {
	Scope     string `json:"scope"`
	Key       string `json:"key"`
	Value     string `json:"value"`
	UpdatedAt string `json:"updated_at"`
}

// NewCountersCommand creates the counters command group.
func NewCountersCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CountersOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "counters",
		Short: "Inspect and reset persisted popup counters",
		Long: `Inspect and reset the counters that rate-limit popups.

The "local" scope holds last-shown timestamps that survive sessions.
Each "session:<id>" scope holds per-session show counts.`,
	}

	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "SQLite database (default from config)")
	cmd.PersistentFlags().StringVar(&opts.Scope, "scope", "", "scope: local or session:<id> (default all)")
	cmd.PersistentFlags().StringVar(&opts.Popup, "popup", "", "only counters of this popup id")

	cmd.AddCommand(newCountersListCommand(opts))
	cmd.AddCommand(newCountersResetCommand(opts))
	cmd.AddCommand(newCountersPruneCommand(opts))

	return cmd
}

func newCountersListCommand(opts *CountersOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "list",
		Short:         "List stored counters",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCountersList(opts, cmd)
		},
	}
}

func newCountersResetCommand(opts *CountersOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "reset",
		Short:         "Delete stored counters",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCountersReset(opts, cmd)
		},
	}
}

func newCountersPruneCommand(opts *CountersOptions) *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Remove expired sessions and their counters",
		Long: `Remove sessions that started longer ago than the TTL, together with
their session counters. The TTL defaults to store.session_ttl.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCountersPrune(opts, olderThan, time.Now(), cmd)
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 0, "session TTL (default from config)")

	return cmd
}

func (o *CountersOptions) validateScope() error {
	if o.Scope == "" || o.Scope == store.LocalScope {
		return nil
	}
	if store.IsSessionScope(o.Scope) && len(o.Scope) > len(store.SessionScope("")) {
		return nil
	}
	return NewExitError(ExitCommandError, fmt.Sprintf("invalid scope %q: must be %s or %s<id>", o.Scope, store.LocalScope, store.SessionScope("")))
}

// openStore loads config, validates flags and opens the database.
func (o *CountersOptions) openStore(cmd *cobra.Command) (*store.Store, *config.Config, error) {
	cfg, err := o.loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	if err := o.validateScope(); err != nil {
		return nil, nil, err
	}

	path := o.Database
	if path == "" {
		path = cfg.DBPath()
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, nil, WrapExitError(ExitCommandError, ErrCodeStore+": failed to create data directory", err)
		}
	}
	slog.Debug("opening database", "path", path)
	st, err := store.Open(path)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, ErrCodeStore+": failed to open database", err)
	}
	return st, cfg, nil
}

func closeStore(st *store.Store) {
	if err := st.Close(); err != nil {
		slog.Error("error closing database", "error", err)
	}
}

// matchesPopup reports whether key belongs to the popup with the given id.
func matchesPopup(key, id string) bool {
	return id == "" || key == counter.LastShownKey(id) || key == counter.SessionCountKey(id)
}

func runCountersList(opts *CountersOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	st, _, err := opts.openStore(cmd)
	if err != nil {
		return err
	}
	defer closeStore(st)

	counters, err := st.List(cmd.Context(), opts.Scope)
	if err != nil {
		return WrapExitError(ExitCommandError, ErrCodeStore+": failed to list counters", err)
	}

	rows := make([]CounterRow, 0, len(counters))
	for _, c := range counters {
		if !matchesPopup(c.Key, opts.Popup) {
			continue
		}
		rows = append(rows, CounterRow{
			Scope:     c.Scope,
			Key:       c.Key,
			Value:     c.Value,
			UpdatedAt: c.UpdatedAt.UTC().Format(time.RFC3339),
		})
	}

	if formatter.JSON() {
		return formatter.Success(rows)
	}
	if len(rows) == 0 {
		fmt.Fprintln(formatter.Writer, "No counters stored.")
		return nil
	}

	tw := tabwriter.NewWriter(formatter.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SCOPE\tKEY\tVALUE\tUPDATED")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.Scope, r.Key, r.Value, r.UpdatedAt)
	}
	return tw.Flush()
}

func runCountersReset(opts *CountersOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	st, _, err := opts.openStore(cmd)
	if err != nil {
		return err
	}
	defer closeStore(st)

	ctx := cmd.Context()
	var removed int64
	if opts.Popup == "" {
		removed, err = st.Reset(ctx, opts.Scope, "")
	} else {
		for _, key := range []string{counter.LastShownKey(opts.Popup), counter.SessionCountKey(opts.Popup)} {
			var n int64
			n, err = resetKey(ctx, st, opts.Scope, key)
			if err != nil {
				break
			}
			removed += n
		}
	}
	if err != nil {
		return WrapExitError(ExitCommandError, ErrCodeStore+": failed to reset counters", err)
	}

	slog.Info("counters reset", "scope", opts.Scope, "popup", opts.Popup, "removed", removed)
	if formatter.JSON() {
		return formatter.Success(map[string]int64{"removed": removed})
	}
	fmt.Fprintf(formatter.Writer, "Removed %d counter(s).\n", removed)
	return nil
}

// resetKey deletes exactly key in scope, or in every scope when scope is empty.
func resetKey(ctx context.Context, st *store.Store, scope, key string) (int64, error) {
	counters, err := st.List(ctx, scope)
	if err != nil {
		return 0, err
	}
	var n int64
	for _, c := range counters {
		if c.Key != key {
			continue
		}
		if err := st.Delete(ctx, c.Scope, c.Key); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

func runCountersPrune(opts *CountersOptions, olderThan time.Duration, now time.Time, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	st, cfg, err := opts.openStore(cmd)
	if err != nil {
		return err
	}
	defer closeStore(st)

	ttl := olderThan
	if ttl == 0 {
		ttl, _ = cfg.Store.TTL()
	}
	if ttl <= 0 {
		return NewExitError(ExitCommandError, "session TTL is not set: use --older-than or store.session_ttl")
	}

	removed, err := st.PruneSessions(cmd.Context(), now.Add(-ttl))
	if err != nil {
		return WrapExitError(ExitCommandError, ErrCodeStore+": failed to prune sessions", err)
	}

	slog.Info("sessions pruned", "ttl", ttl, "removed", removed)
	if formatter.JSON() {
		return formatter.Success(map[string]int64{"sessions_removed": removed})
	}
	fmt.Fprintf(formatter.Writer, "Removed %d expired session(s).\n", removed)
	return nil
}
