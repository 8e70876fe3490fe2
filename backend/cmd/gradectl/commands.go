package main

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"google.golang.org/grpc/status"

	"github.com/stedman/grade-fetch/backend/internal/grade"
	"github.com/stedman/grade-fetch/backend/internal/period"
)

// --- gradectl students ---

func newStudentsCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "students",
		Aliases: []string{"ls"},
		Short:   "List students with harvested classwork",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, opts, func(ctx context.Context, svc *grade.GradeService) error {
				students, err := svc.ListStudents(ctx)
				if err != nil {
					return cliError(err)
				}
				w := newTable(cmd.OutOrStdout())
				fmt.Fprintln(w, "ID\tNAME\tSCHOOL\tGRADE")
				for _, s := range students {
					level := "-"
					if s.GradeLevel != nil {
						level = fmt.Sprint(*s.GradeLevel)
					}
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", s.ID, s.Name, s.School, level)
				}
				return w.Flush()
			})
		},
	}
}

// --- gradectl period ---

func newPeriodCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "period <student-id>",
		Short: "Show the grading period a query resolves to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, opts, func(ctx context.Context, svc *grade.GradeService) error {
				sel, year, err := opts.selector(svc)
				if err != nil {
					return err
				}
				report, err := svc.ResolvePeriod(ctx, args[0], sel, year)
				if err != nil {
					return cliError(err)
				}
				w := newTable(cmd.OutOrStdout())
				writeHeader(w, report)
				p := report.Period
				fmt.Fprintf(w, "First\t%d\n", p.First)
				fmt.Fprintf(w, "Prev\t%s\n", optionalIndex(p.Prev))
				fmt.Fprintf(w, "Next\t%s\n", optionalIndex(p.Next))
				fmt.Fprintf(w, "Last\t%d\n", p.Last)
				return w.Flush()
			})
		},
	}
}

// --- gradectl classwork ---

func newClassworkCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "classwork <student-id>",
		Short: "List classwork due in the grading period",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, opts, func(ctx context.Context, svc *grade.GradeService) error {
				sel, year, err := opts.selector(svc)
				if err != nil {
					return err
				}
				report, err := svc.GetClasswork(ctx, args[0], sel, year)
				if err != nil {
					return cliError(err)
				}
				w := newTable(cmd.OutOrStdout())
				writeHeader(w, report.PeriodReport)
				fmt.Fprintln(w)
				fmt.Fprintln(w, "DUE\tCOURSE\tCATEGORY\tASSIGNMENT\tSCORE\tCOMMENT")
				for _, item := range report.Classwork {
					score := "-"
					if item.Score != nil {
						score = grade.FormatPercent(*item.Score)
					}
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
						item.DateDue, item.CourseID, item.Category, item.Assignment, score, item.Comment)
				}
				writeSkipped(w, report.Skipped)
				return w.Flush()
			})
		},
	}
}

// --- gradectl averages ---

func newAveragesCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "averages <student-id>",
		Aliases: []string{"avg"},
		Short:   "Show per-course weighted averages for the grading period",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, opts, func(ctx context.Context, svc *grade.GradeService) error {
				sel, year, err := opts.selector(svc)
				if err != nil {
					return err
				}
				report, err := svc.GetGradeAverages(ctx, args[0], sel, year)
				if err != nil {
					return cliError(err)
				}
				w := newTable(cmd.OutOrStdout())
				writeHeader(w, report.PeriodReport)
				fmt.Fprintln(w)
				fmt.Fprintln(w, "COURSE\tNAME\tAVERAGE\tCATEGORIES")
				for _, id := range grade.SortedCourseIDs(report.Averages) {
					avg := report.Averages[id]
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", id, avg.CourseName, grade.FormatPercent(avg.Average), categorySummary(avg))
				}
				writeSkipped(w, report.Skipped)
				return w.Flush()
			})
		},
	}
}

// --- gradectl alerts ---

func newAlertsCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "alerts <student-id>",
		Short: "List commented or low-scoring work in the grading period",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, opts, func(ctx context.Context, svc *grade.GradeService) error {
				sel, year, err := opts.selector(svc)
				if err != nil {
					return err
				}
				report, err := svc.GetAlerts(ctx, args[0], sel, year, nil)
				if err != nil {
					return cliError(err)
				}
				w := newTable(cmd.OutOrStdout())
				writeHeader(w, report.PeriodReport)
				fmt.Fprintf(w, "Threshold\t%s\n", grade.FormatPercent(report.Threshold))
				fmt.Fprintln(w)
				if len(report.Alerts) == 0 {
					fmt.Fprintln(w, "No alerts.")
				} else {
					fmt.Fprintln(w, "DATE\tCOURSE\tASSIGNMENT\tSCORE\tCOMMENT")
					for _, a := range report.Alerts {
						fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", a.Date, a.Course, a.Assignment, grade.FormatPercent(a.Score), a.Comment)
					}
				}
				writeSkipped(w, report.Skipped)
				return w.Flush()
			})
		},
	}
}

// ============================================================================
// Output helpers
// ============================================================================

const dateFormat = "1/2/2006"

func newTable(out io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
}

func writeHeader(w io.Writer, r grade.PeriodReport) {
	fmt.Fprintf(w, "Student\t%s %s\n", r.Student.ID, r.Student.Name)
	fmt.Fprintf(w, "School year\t%s (%s)\n", r.SchoolYear, r.PeriodKey)
	fmt.Fprintf(w, "Period\t%s\n", periodLabel(r.Period))
}

func periodLabel(p period.GradingPeriod) string {
	span := p.Start.Format(dateFormat) + " - " + p.End.Format(dateFormat)
	if p.IsAllYear() {
		return "all year, " + span
	}
	return fmt.Sprintf("%d of %d, %s", p.Current, p.Last, span)
}

func optionalIndex(i *int) string {
	if i == nil {
		return "-"
	}
	return fmt.Sprint(*i)
}

func categorySummary(avg grade.CourseAverage) string {
	names := make([]string, 0, len(avg.CategoryAverage))
	for name := range avg.CategoryAverage {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s %s", name, grade.FormatPercent(avg.CategoryAverage[name])))
	}
	return strings.Join(parts, ", ")
}

func writeSkipped(w io.Writer, skipped []grade.SkippedRecord) {
	if len(skipped) == 0 {
		return
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Skipped %d record(s):\n", len(skipped))
	for _, s := range skipped {
		fmt.Fprintf(w, "  #%d\t%s\t%s\t%s\n", s.Index, s.Course, s.Assignment, s.Reason)
	}
}

// cliError strips the gRPC status wrapping so the CLI prints the plain message.
func cliError(err error) error {
	if st, ok := status.FromError(err); ok {
		return fmt.Errorf("%s: %s", strings.ToLower(st.Code().String()), st.Message())
	}
	return err
}
