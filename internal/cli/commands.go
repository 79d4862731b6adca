package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/vietddude/annotator/internal/control"
)

var errorsLimit int

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run one connection health check against the backend",
	Run: func(cmd *cobra.Command, args []string) {
		withApp(func(ctx context.Context, app *control.App) error {
			report, err := app.Health().CheckHealth(ctx)
			if err != nil {
				return err
			}
			return printJSON(report)
		})
	},
}

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Load projects, images and tasks once and print the result",
	Run: func(cmd *cobra.Command, args []string) {
		withApp(func(ctx context.Context, app *control.App) error {
			result := app.Coordinator().LoadInitialData(ctx)
			if err := printJSON(result); err != nil {
				return err
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
			_, _ = fmt.Fprintln(w, "DOMAIN\tCOUNT")
			_, _ = fmt.Fprintf(w, "projects\t%d\n", app.Projects().Len())
			_, _ = fmt.Fprintf(w, "images\t%d\n", app.Images().Len())
			_, _ = fmt.Fprintf(w, "tasks\t%d\n", app.Tasks().Len())
			return w.Flush()
		})
	},
}

var errorsCmd = &cobra.Command{
	Use:   "errors",
	Short: "List recently persisted system errors",
	Run: func(cmd *cobra.Command, args []string) {
		withApp(func(ctx context.Context, app *control.App) error {
			entries, err := app.Errors().Recent(ctx, errorsLimit)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
			_, _ = fmt.Fprintln(w, "TIME\tSOURCE\tMESSAGE")
			for _, e := range entries {
				_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", e.CreatedAt.Format(time.RFC3339), e.Source, e.Message)
			}
			return w.Flush()
		})
	},
}

func init() {
	errorsCmd.Flags().IntVar(&errorsLimit, "limit", 20, "number of errors to show")
	rootCmd.AddCommand(checkCmd, loadCmd, errorsCmd)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
