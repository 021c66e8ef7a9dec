package cli

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/byway-lms/byway-admin/internal/telemetry"
	"github.com/byway-lms/byway-admin/internal/tui"
	"github.com/byway-lms/byway-admin/pkg/session"
)

// runDashboard opens the TUI. The token file is watched so a sign-in or
// sign-out from another terminal is picked up, and the metrics endpoint runs
// alongside when configured.
func (a *app) runDashboard(cmd *cobra.Command) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	changes, err := session.Watch(ctx, a.cfg.TokenPath())
	if err != nil {
		a.log.Warn().Err(err).Msg("token watcher disabled")
		changes = nil
	}

	model := tui.NewApp(tui.Deps{
		API:          a.client,
		Auth:         a.auth,
		Guard:        a.guard,
		Router:       a.router,
		Log:          a.log,
		TokenChanges: changes,
		Version:      a.version,
	})

	g, ctx := errgroup.WithContext(ctx)
	if a.cfg.MetricsAddr != "" {
		g.Go(func() error {
			// A metrics endpoint that cannot bind must not take the dashboard down.
			if err := telemetry.Serve(ctx, a.cfg.MetricsAddr, a.registry, a.log); err != nil {
				a.log.Error().Err(err).Str("addr", a.cfg.MetricsAddr).Msg("metrics endpoint stopped")
			}
			return nil
		})
	}
	g.Go(func() error {
		defer cancel()
		p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx), tea.WithOutput(cmd.OutOrStdout()))
		if _, err := p.Run(); err != nil && ctx.Err() == nil {
			return fmt.Errorf("tui: %w", err)
		}
		return nil
	})
	return g.Wait()
}
