package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/bryanchriswhite/xpic/internal/capture/x11"
	"github.com/bryanchriswhite/xpic/internal/window"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List capturable windows",
	Long: `List top-level windows with the ids xpic accepts.

Windows are read from the window manager's _NET_CLIENT_LIST when present,
falling back to the children of the root window.`,
	Example: `  # List windows in table format (default)
  xpic list

  # List windows in JSON format
  xpic list --format json`,
	Args: cobra.NoArgs,
	RunE: runList,
}

var listFormat string

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().StringVarP(&listFormat, "format", "f", "table", "output format (table or json)")
}

func runList(cmd *cobra.Command, args []string) error {
	if listFormat != "table" && listFormat != "json" {
		return fmt.Errorf("unsupported format: %s (use 'table' or 'json')", listFormat)
	}

	d, err := x11.Open(configMgr.Get().Display)
	if err != nil {
		return err
	}
	defer d.Close()

	windows, err := window.NewX11Lister(d.Conn(), d.RootWindow()).ListWindows()
	if err != nil {
		return fmt.Errorf("failed to list windows: %w", err)
	}
	return printWindows(cmd.OutOrStdout(), listFormat, windows)
}

func printWindows(out io.Writer, format string, windows []*window.Info) error {
	switch format {
	case "json":
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(windows)
	case "table":
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tGEOMETRY\tDESKTOP\tCLASS\tTITLE")
		fmt.Fprintln(w, "--\t--------\t-------\t-----\t-----")
		for _, win := range windows {
			desktop := fmt.Sprintf("%d", win.Desktop)
			if win.Desktop < 0 {
				desktop = "all"
			}
			fmt.Fprintf(w, "0x%x\t%dx%d+%d+%d\t%s\t%s\t%s\n",
				win.ID,
				win.Geometry.Width, win.Geometry.Height,
				win.Geometry.X, win.Geometry.Y,
				desktop, win.Class, win.Title)
		}
		return w.Flush()
	default:
		return fmt.Errorf("unsupported format: %s (use 'table' or 'json')", format)
	}
}
