package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/matt-g-everett/trailcast/activity"
	"github.com/matt-g-everett/trailcast/strava"
)

// FetchOptions holds command options
type FetchOptions struct {
	Code string
}

// NewFetchCommand creates the fetch command.
func NewFetchCommand() *cobra.Command {
	opts := &FetchOptions{}

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Download all activities into the local cache",
		Long: `Download every activity of the authenticated athlete, 200 per page, and
write them to the activities file named in the config.

The first run needs an authorization code: open the URL printed when no
token is stored, approve access, and pass the code from the redirect with
--code. The token is stored and refreshed automatically afterwards.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFetch(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Code, "code", "", "Authorization code to exchange for a token")
	return cmd
}

func runFetch(cmd *cobra.Command, opts *FetchOptions) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	out, errOut := cmd.OutOrStdout(), cmd.ErrOrStderr()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if opts.Code != "" {
		if _, err := strava.Exchange(ctx, a.Config, opts.Code); err != nil {
			return err
		}
		a.log.WithField("tokenFile", a.Config.Strava.TokenFile).Info("Authorization code exchanged")
	}

	client, err := strava.NewClient(ctx, a.Config)
	if errors.Is(err, strava.ErrNotAuthenticated) {
		fmt.Fprintf(errOut, "Not authenticated. Approve access at:\n  %s\nthen run: trailcast fetch --code <code>\n",
			strava.AuthURL(a.Config))
		return err
	}
	if err != nil {
		return err
	}

	athlete, err := client.Athlete(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Authenticated as: %s\n", athlete.Name())

	acts, err := client.AllActivities(ctx, func(count int) {
		fmt.Fprintf(errOut, "\rActivities fetched: %d", count)
	})
	fmt.Fprintln(errOut)
	if err != nil {
		return err
	}

	if err := strava.WriteCache(a.Config.Activities, acts); err != nil {
		return err
	}
	fmt.Fprintf(out, "Total activities: %d\nSaved to: %s\n\n", len(acts), a.Config.Activities)

	// Reading the cache back checks it is usable by the other commands.
	cached, err := activity.Load(a.Config.Activities)
	if err != nil {
		return err
	}
	activity.Summarise(cached).Write(out)
	return nil
}
