package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/hugo-lorenzo-mato/crossreview/internal/clip"
	"github.com/hugo-lorenzo-mato/crossreview/internal/core"
	"github.com/hugo-lorenzo-mato/crossreview/internal/tui"
)

var showCmd = &cobra.Command{
	Use:   "show [artifact]",
	Short: "List or display phase artifacts",
	Long: `Without arguments, list the phase artifacts of the last run. With an
artifact name such as iter01_phase3_claude_meta_review, render it as
Markdown. Unknown names print the closest matches.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runShow,
}

var (
	showDir  string
	showRaw  bool
	showCopy bool
)

// newCopier builds the clipboard writer. Tests replace it.
var newCopier = clip.New

func init() {
	rootCmd.AddCommand(showCmd)
	showCmd.Flags().StringVarP(&showDir, "dir", "C", ".", "Target directory of the run")
	showCmd.Flags().BoolVar(&showRaw, "raw", false, "Print the Markdown source")
	showCmd.Flags().BoolVar(&showCopy, "copy", false, "Copy the artifact to the clipboard instead of printing it")
}

func runShow(cmd *cobra.Command, args []string) error {
	target, err := resolveTarget([]string{showDir})
	if err != nil {
		return err
	}
	cfg, err := loadConfig(target)
	if err != nil {
		return err
	}
	ws := openWorkspace(cfg, target, newLogger(cfg))
	out := cmd.OutOrStdout()

	if len(args) == 0 {
		refs, err := ws.artifacts.List()
		if err != nil {
			return err
		}
		if len(refs) == 0 {
			fmt.Fprintln(out, "No artifacts.")
			return nil
		}
		tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "NAME\tSIZE\tMODIFIED")
		for _, ref := range refs {
			fmt.Fprintf(tw, "%s\t%d\t%s\n", ref.Name, ref.Size, ref.ModTime.Local().Format("2006-01-02 15:04:05"))
		}
		return tw.Flush()
	}

	name := args[0]
	if !strings.HasSuffix(name, ".md") {
		name += ".md"
	}
	text, err := ws.artifacts.ReadName(name)
	if err != nil {
		if core.IsCategory(err, core.ErrCatNotFound) {
			if suggestions := ws.artifacts.Suggest(name); len(suggestions) > 0 {
				return fmt.Errorf("artifact %q not found, did you mean: %s", args[0], strings.Join(suggestions, ", "))
			}
			return fmt.Errorf("artifact %q not found", args[0])
		}
		return err
	}

	if showCopy {
		res, err := newCopier().Copy(text)
		if err != nil {
			return err
		}
		switch res.Method {
		case clip.MethodFile:
			fmt.Fprintf(out, "Clipboard unavailable, saved to %s\n", res.Path)
		default:
			fmt.Fprintf(out, "Copied %s (%s)\n", name, res.Method)
		}
		return nil
	}

	if showRaw {
		_, err = fmt.Fprint(out, text)
		return err
	}
	rendered, err := renderMarkdown(text, tui.NewDetector(out).NoColor(noColor).ShouldUseColor())
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(out, rendered)
	return err
}

// renderMarkdown formats text for the terminal. Without colour it uses the
// plain style so that the output stays readable when piped.
func renderMarkdown(text string, color bool) (string, error) {
	style := glamour.WithStandardStyle("notty")
	if color {
		style = glamour.WithAutoStyle()
	}
	r, err := glamour.NewTermRenderer(style, glamour.WithWordWrap(100))
	if err != nil {
		return "", fmt.Errorf("creating markdown renderer: %w", err)
	}
	out, err := r.Render(text)
	if err != nil {
		return "", fmt.Errorf("rendering markdown: %w", err)
	}
	return out, nil
}
