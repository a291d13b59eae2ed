package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"vgsync/cmd/client/cmd/types"
	"vgsync/internal/app/client"
)

var (
	showStatus      bool
	showConflicts   bool
	showDeadLetters bool
)

var SyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Synchronize queued offline actions",
	Long: `Pushes queued offline actions to the server in batches and applies
the fresh data it returns. Use the flags to inspect the queue instead
of draining it.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, ok := cmd.Context().Value(types.ClientAppKey).(*client.App)
		if !ok {
			return fmt.Errorf("app not initialized")
		}

		if showStatus {
			return printStatus(cmd.Context(), app)
		}
		if showConflicts {
			return printConflicts(cmd.Context(), app)
		}
		if showDeadLetters {
			return printDeadLetters(cmd.Context(), app)
		}
		return runSync(cmd.Context(), app)
	},
}

func runSync(ctx context.Context, app *client.App) error {
	pending := app.Queue().Pending()
	if pending == 0 {
		fmt.Println("Nothing to synchronize")
		return nil
	}

	fmt.Printf("Synchronizing %d queued actions...\n", pending)
	start := time.Now()

	if err := app.Sync(ctx); err != nil {
		return fmt.Errorf("synchronization failed: %w", err)
	}

	fmt.Printf("✅ Done in %v\n", time.Since(start).Round(time.Millisecond))
	if left := app.Queue().Pending(); left > 0 {
		fmt.Printf("⚠️  %d actions still pending (retries scheduled)\n", left)
	}
	if conflicts := app.Queue().Conflicts(ctx); len(conflicts) > 0 {
		fmt.Printf("⚠️  %d conflicts need manual review: vgsync sync --conflicts\n", len(conflicts))
	}
	return nil
}

func printStatus(ctx context.Context, app *client.App) error {
	fmt.Printf("Pending actions: %d\n", app.Queue().Pending())
	if last := app.Queue().LastSync(); !last.IsZero() {
		fmt.Printf("Last sync:       %s\n", last.Format("2006-01-02 15:04:05"))
	} else {
		fmt.Println("Last sync:       never")
	}
	fmt.Printf("Conflicts:       %d\n", len(app.Queue().Conflicts(ctx)))
	fmt.Printf("Dead letters:    %d\n", len(app.Queue().DeadLetters(ctx)))
	return nil
}

func printConflicts(ctx context.Context, app *client.App) error {
	conflicts := app.Queue().Conflicts(ctx)
	if len(conflicts) == 0 {
		fmt.Println("No unresolved conflicts")
		return nil
	}
	for _, c := range conflicts {
		fmt.Printf("%-16s %-12s %s\n", c.Type, c.Resolution, c.Reason)
	}
	return nil
}

func printDeadLetters(ctx context.Context, app *client.App) error {
	letters := app.Queue().DeadLetters(ctx)
	if len(letters) == 0 {
		fmt.Println("No dead-lettered actions")
		return nil
	}
	for _, a := range letters {
		fmt.Printf("%-16s %s (after %d attempts)\n", a.Type, a.ID, a.Attempts)
	}
	return nil
}

func init() {
	SyncCmd.Flags().BoolVar(&showStatus, "status", false, "show queue status without draining")
	SyncCmd.Flags().BoolVar(&showConflicts, "conflicts", false, "show unresolved conflicts")
	SyncCmd.Flags().BoolVar(&showDeadLetters, "dead-letters", false, "show permanently rejected actions")
}
