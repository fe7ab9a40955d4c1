package commands

import (
	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/agromarket/internal/app"
	"github.com/spf13/cobra"
)

func whoamiCmd(rt *env) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Restore the saved session and show who is signed in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := rt.service.Restore(cmd.Context()); err != nil {
				return err
			}
			rt.service.Wait()
			return rt.printSession(rt.service.Snapshot())
		},
	}
}

// watchCmd keeps the session alive, refreshing the access token before it
// expires and printing every change, until interrupted.
func watchCmd(rt *env) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Keep the session fresh and print changes until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if err := rt.restore(ctx); err != nil {
				return err
			}

			updates, unsubscribe := rt.service.Subscribe()
			defer unsubscribe()

			refresher := app.NewTokenRefresher(rt.service, clockwork.NewRealClock(), rt.cfg.RefreshInterval, rt.cfg.RefreshLeeway)
			go refresher.Run(ctx)

			var lastToken string
			for {
				select {
				case <-ctx.Done():
					return nil
				case snap, ok := <-updates:
					if !ok {
						return nil
					}
					if snap.Loading || (snap.User != nil && snap.AccessToken == lastToken) {
						continue
					}
					lastToken = snap.AccessToken
					if err := rt.printSession(snap); err != nil {
						return err
					}
					if !snap.Authenticated() {
						return rt.printMessage("Session ended.")
					}
				}
			}
		},
	}
}
