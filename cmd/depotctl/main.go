// depotctl inspects and maintains a depotbot database from the command
// line: listing users, files and polls, printing statistics and running
// schema migrations.
package main

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/depotbot/depotbot/db"
	"github.com/depotbot/depotbot/internal/config"
	"github.com/depotbot/depotbot/internal/logger"
	"github.com/depotbot/depotbot/internal/store"
	"github.com/depotbot/depotbot/internal/version"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfgPath string

	cmd := &cobra.Command{
		Use:           "depotctl",
		Short:         "Inspect and maintain the depotbot database",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&cfgPath, "config", "", "config file path")

	cmd.AddCommand(newUsersCmd(&cfgPath))
	cmd.AddCommand(newFilesCmd(&cfgPath))
	cmd.AddCommand(newPollsCmd(&cfgPath))
	cmd.AddCommand(newStatsCmd(&cfgPath))
	cmd.AddCommand(newMigrateCmd(&cfgPath))
	cmd.AddCommand(newVersionCmd())
	return cmd
}

func openStore(cfgPath string) (*store.Store, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger.Init(cfg.Log.Level, cfg.Log.Format)
	return store.Open(logger.L, cfg.Database)
}

func newUsersCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "users",
		Short: "List registered users",
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := openStore(*cfgPath)
			if err != nil {
				return err
			}
			defer st.Close()

			identities, err := st.ListIdentities(cmd.Context())
			if err != nil {
				return err
			}

			w := newTabWriter(cmd)
			defer w.Flush()
			fmt.Fprintln(w, "ID\tNAME\tHANDLE\tEMAIL\tPHONE\tREGISTERED\tACTIVE")
			for _, id := range identities {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%t\n",
					id.ID, id.DisplayName(), id.Handle, id.Email, id.Phone,
					id.RegisteredAt.Format("2006-01-02"), id.IsActive)
			}
			return nil
		},
	}
}

func newFilesCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "files",
		Short: "List stored files",
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := openStore(*cfgPath)
			if err != nil {
				return err
			}
			defer st.Close()

			objects, err := st.ListAllStoredObjects(cmd.Context())
			if err != nil {
				return err
			}
			names, err := identityNames(cmd.Context(), st)
			if err != nil {
				return err
			}

			w := newTabWriter(cmd)
			defer w.Flush()
			fmt.Fprintln(w, "ID\tOWNER\tNAME\tTYPE\tSIZE\tUPLOADED")
			for _, obj := range objects {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\t%s\n",
					obj.ID, names.lookup(obj.IdentityID), obj.Name, obj.MediaType, obj.SizeBytes,
					obj.UploadedAt.Format("2006-01-02 15:04"))
			}
			return nil
		},
	}
}

func newPollsCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "polls",
		Short: "List polls and their vote counts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := openStore(*cfgPath)
			if err != nil {
				return err
			}
			defer st.Close()

			polls, err := st.ListPolls(cmd.Context())
			if err != nil {
				return err
			}
			names, err := identityNames(cmd.Context(), st)
			if err != nil {
				return err
			}

			w := newTabWriter(cmd)
			defer w.Flush()
			fmt.Fprintln(w, "ID\tAUTHOR\tQUESTION\tOPTIONS\tVOTES\tACTIVE")
			for _, poll := range polls {
				responses, err := st.ListPollResponses(cmd.Context(), poll.ID)
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%d\t%t\n",
					poll.ID, names.lookup(poll.IdentityID), poll.Question, len(poll.Options),
					len(responses), poll.IsActive)
			}
			return nil
		},
	}
}

func newStatsCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print aggregate statistics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := openStore(*cfgPath)
			if err != nil {
				return err
			}
			defer st.Close()

			stats, err := st.Stats(cmd.Context())
			if err != nil {
				return err
			}

			w := newTabWriter(cmd)
			defer w.Flush()
			fmt.Fprintf(w, "Users\t%d (%d active)\n", stats.IdentityCount, stats.ActiveIdentityCount)
			fmt.Fprintf(w, "Files\t%d (%d today)\n", stats.ObjectCount, stats.ObjectsCreatedToday)
			fmt.Fprintf(w, "Polls\t%d (%d active)\n", stats.PollCount, stats.ActivePollCount)
			fmt.Fprintf(w, "Storage\t%d bytes\n", stats.StorageSizeBytes)
			return nil
		},
	}
}

func newMigrateCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:       "migrate [up|down|version|force]",
		Short:     "Run schema migrations",
		Args:      cobra.MinimumNArgs(1),
		ValidArgs: []string{"up", "down", "version", "force"},
		RunE: func(_ *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger.Init(cfg.Log.Level, cfg.Log.Format)

			migrations, err := fs.Sub(db.MigrationsFS, "migrations")
			if err != nil {
				return fmt.Errorf("migrations fs: %w", err)
			}
			return store.RunMigrate(logger.L, cfg.Database.Path, migrations, args[0], args[1:])
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the depotctl version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "depotctl %s\n", version.GetInfo())
		},
	}
}

// nameIndex resolves identity ids to display names for the listings.
type nameIndex map[int64]string

func identityNames(ctx context.Context, st *store.Store) (nameIndex, error) {
	identities, err := st.ListIdentities(ctx)
	if err != nil {
		return nil, err
	}
	names := make(nameIndex, len(identities))
	for _, identity := range identities {
		names[identity.ID] = identity.DisplayName()
	}
	return names, nil
}

func (n nameIndex) lookup(id int64) string {
	if name, ok := n[id]; ok && name != "" {
		return name
	}
	return fmt.Sprintf("%d", id)
}

func newTabWriter(cmd *cobra.Command) *tabwriter.Writer {
	return tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
}
