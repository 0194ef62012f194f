package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/xschemadev/gerrit-dash/bugs"
	"github.com/xschemadev/gerrit-dash/generator"
	"github.com/xschemadev/gerrit-dash/renderer"
	"github.com/xschemadev/gerrit-dash/tracker"
	"github.com/xschemadev/gerrit-dash/ui"
)

var (
	milestone       string
	bugLimit        int
	bugsTitle       string
	bugsDescription string
	bugsForeach     string
	writeFile       string
)

var bugsCmd = &cobra.Command{
	Use:   "bugs PROJECT...",
	Short: "Build a dashboard from the reviews of in-progress bugs",
	Long: `Bugs asks the bug tracker for in-progress bugs of each project, finds the
reviews proposed to fix them and prints a dashboard URL with one section per
milestone and importance.

Launchpad projects are named by their Launchpad name (heat), GitHub projects
as owner/repo.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runBugs,
}

func init() {
	rootCmd.AddCommand(bugsCmd)

	bugsCmd.Flags().String("tracker", "launchpad", "bug tracker: launchpad or github")
	bugsCmd.Flags().StringVar(&milestone, "milestone", "", "only bugs targeted to this milestone (default: all, "+tracker.NoMilestone+" for untargeted)")
	bugsCmd.Flags().IntVar(&bugLimit, "limit", 0, "max bugs read per project (0 = no limit)")
	bugsCmd.Flags().StringVar(&bugsTitle, "title", bugs.DefaultTitle, "dashboard title")
	bugsCmd.Flags().StringVar(&bugsDescription, "description", bugs.DefaultDescription, "dashboard description")
	bugsCmd.Flags().StringVar(&bugsForeach, "foreach", bugs.DefaultForeach, "query applied to every section")
	bugsCmd.Flags().StringVarP(&writeFile, "write", "w", "", "also save the generated definition to this file")
	bugsCmd.Flags().String("escape", generator.EscapeComma.String(), "escape policy: comma or comma-hyphen")
	bugsCmd.Flags().String("base-url", "", "dashboard base URL (default "+generator.DefaultBaseURL+")")
}

func runBugs(cmd *cobra.Command, args []string) error {
	start := time.Now()
	ctx := cmd.Context()

	policy, err := generator.ParseEscapePolicy(conf.Escape)
	if err != nil {
		ui.ErrorMsg("Invalid escape policy", err)
		return err
	}

	tr, err := newTracker(ctx)
	if err != nil {
		ui.ErrorMsg("Failed to set up bug tracker", err)
		return err
	}

	// Step 1: query the tracker
	ui.Step(1, 2, fmt.Sprintf("Querying %s for in-progress bugs", conf.Tracker))
	var idx *bugs.Index
	err = ui.RunWithSpinner("Fetching bugs...", func() error {
		var collectErr error
		idx, collectErr = bugs.Collect(ctx, tr, args, bugs.CollectOptions{Milestone: milestone})
		return collectErr
	})
	if err != nil {
		ui.ErrorMsg("Failed to query bug tracker", err, "Check the project names and your network connection")
		return err
	}

	out := cmd.OutOrStdout()
	for _, a := range idx.Associations {
		fmt.Fprintf(out, "[%s] %s -> %s\n", a.Bug.Importance, a.Bug, a.Review)
	}
	ui.Detail(fmt.Sprintf("Found %s", ui.Plural(idx.Len(), "review", "reviews")))

	// Step 2: build the dashboard
	ui.Step(2, 2, "Generating dashboard")
	def, err := idx.Definition(bugs.DashboardOptions{
		Title:       bugsTitle,
		Description: bugsDescription,
		Foreach:     bugsForeach,
		BaseURL:     conf.BaseURL,
	})
	if err != nil {
		ui.ErrorMsg("Failed to build dashboard definition", err)
		return err
	}

	if writeFile != "" {
		if err := renderer.WriteOutput(appFs, writeFile, []byte(def.String())); err != nil {
			ui.ErrorMsg("Failed to save dashboard definition", err)
			return err
		}
		ui.Detail("Definition saved to " + ui.Primary.Render(writeFile))
	}

	url, err := generator.Generate(def, generator.Options{Escape: policy})
	if err != nil {
		ui.ErrorMsg("Failed to generate dashboard URL", err)
		return err
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, url)

	if idx.Len() == 0 {
		ui.WarnMsg("No reviews found for in-progress bugs")
	}
	ui.SuccessMsg(fmt.Sprintf("Dashboard generated (%s)", ui.FormatDuration(time.Since(start))))
	return nil
}

func newTracker(ctx context.Context) (tracker.Tracker, error) {
	switch conf.Tracker {
	case "launchpad":
		return tracker.NewLaunchpad(tracker.LaunchpadOptions{
			ServiceRoot: conf.Launchpad.ServiceRoot,
			Concurrency: conf.Launchpad.Concurrency,
			Retries:     conf.Launchpad.Retries,
			Limit:       bugLimit,
			CacheDir:    conf.Launchpad.CacheDir,
			CacheTTL:    conf.Launchpad.CacheTTL,
			Fs:          appFs,
		}), nil
	case "github":
		return tracker.NewGitHub(ctx, tracker.GitHubOptions{
			Token:           conf.GitHub.Token,
			BaseURL:         conf.GitHub.BaseURL,
			InProgressLabel: conf.GitHub.InProgressLabel,
			PriorityPrefix:  conf.GitHub.PriorityPrefix,
			Limit:           bugLimit,
		})
	default:
		return nil, fmt.Errorf("unknown tracker %q (want launchpad or github)", conf.Tracker)
	}
}
