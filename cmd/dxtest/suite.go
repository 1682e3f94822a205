// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"os"
	"strings"

	"dxtest-cli/internal/report"
	"dxtest-cli/internal/suite"

	"github.com/spf13/cobra"
)

const allSuites = "all"

func newSuiteCommand(app *App) *cobra.Command {
	suiteCmd := &cobra.Command{
		Use:   "suite",
		Short: "List and run the SDK test catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	suiteCmd.AddCommand(newSuiteListCommand(app), newSuiteRunCommand(app))
	return suiteCmd
}

// selectSuites resolves suite names; "all" or no name selects the catalog.
func selectSuites(env *suite.Env, names []string) ([]suite.Suite, error) {
	if len(names) == 0 || (len(names) == 1 && names[0] == allSuites) {
		return suite.All(env), nil
	}
	suites := make([]suite.Suite, 0, len(names))
	for _, name := range names {
		s, err := suite.Lookup(env, name)
		if err != nil {
			return nil, err
		}
		suites = append(suites, s)
	}
	return suites, nil
}

func newSuiteListCommand(app *App) *cobra.Command {
	var filter suite.Filter

	cmd := &cobra.Command{
		Use:   "list [suite...]",
		Short: "List the cases of the catalog",
		RunE: app.runE(func(cmd *cobra.Command, args []string) error {
			s, err := app.newSession(true)
			if err != nil {
				return err
			}
			suites, err := selectSuites(s.env, args)
			if err != nil {
				return err
			}
			for _, st := range suites {
				cases := st.Select(filter)
				fmt.Fprintf(app.stdout, "%s %s\n", TitleStyle.Render(st.Name), SubtitleStyle.Render(fmt.Sprintf("(%d cases)", len(cases))))
				for _, c := range cases {
					fmt.Fprintf(app.stdout, "  %s %s\n", c.Name, SubtitleStyle.Render("["+strings.Join(c.Markers, ",")+"]"))
				}
			}
			return nil
		}),
	}
	cmd.Flags().StringSliceVarP(&filter.Markers, "marker", "m", nil, "only cases carrying every marker")
	cmd.Flags().StringVarP(&filter.Name, "filter", "k", "", "only cases whose name contains this text")
	return cmd
}

func newSuiteRunCommand(app *App) *cobra.Command {
	var (
		filter      suite.Filter
		summaryPath string
	)

	cmd := &cobra.Command{
		Use:   "run [suite...]",
		Short: "Run catalog suites in order",
		Long: `Run catalog suites in order.

Cases run one after another; a failing case is reported and the remaining
cases still run. The exit status is 1 when any case failed. --summary writes
the outcomes as TOML for CI artifacts.`,
		RunE: app.runE(func(cmd *cobra.Command, args []string) error {
			s, err := app.newSession(true)
			if err != nil {
				return err
			}
			suites, err := selectSuites(s.env, args)
			if err != nil {
				return err
			}

			var summaries []*report.Summary
			failed := false
			for _, st := range suites {
				sum := suite.Run(cmd.Context(), st, filter, suite.WithLogger(s.logger.WithPrefix("suite")))
				for _, o := range sum.Outcomes {
					if o.Status == report.StatusFailed {
						fmt.Fprintf(app.stderr, "%s %s\n%s\n", ErrorStyle.Render("FAIL"), o.Name, o.Message)
					}
				}
				sum.Render(app.stdout)
				summaries = append(summaries, sum)
				failed = failed || !sum.OK()
			}

			if summaryPath != "" {
				if err := writeSummaries(summaryPath, summaries); err != nil {
					return err
				}
			}
			if failed {
				return &ExitError{Code: 1}
			}
			return nil
		}),
	}
	cmd.Flags().StringSliceVarP(&filter.Markers, "marker", "m", nil, "only cases carrying every marker")
	cmd.Flags().StringVarP(&filter.Name, "filter", "k", "", "only cases whose name contains this text")
	cmd.Flags().StringVar(&summaryPath, "summary", "", "write a TOML summary to this file")
	return cmd
}

func writeSummaries(path string, summaries []*report.Summary) error {
	data, err := report.MarshalSummaries(summaries)
	if err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	return nil
}
