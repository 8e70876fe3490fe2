package main

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/spf13/cobra"

	"github.com/stedman/grade-fetch/backend/internal/catalog"
	"github.com/stedman/grade-fetch/backend/internal/grade"
	"github.com/stedman/grade-fetch/backend/internal/period"
	"github.com/stedman/grade-fetch/backend/internal/shared"
	"github.com/stedman/grade-fetch/backend/internal/store"
)

var schoolYearPattern = regexp.MustCompile(`^\d{4}$`)

// globalOptions are the persistent flags shared by every subcommand.
type globalOptions struct {
	envFile   string
	fixtures  string
	calendar  string
	year      string
	run       int
	all       bool
	date      string
	threshold float64
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:   "gradectl",
		Short: "Query harvested classwork for grading periods, averages and alerts",
		Long: `gradectl reads harvested classwork from MongoDB (or a fixtures directory)
and prints grading-period reports.

Examples:
  gradectl students --fixtures data/fixtures
  gradectl averages 123456 --run 2
  gradectl alerts 123456 --date 12/10/2019 --threshold 80
  gradectl classwork 123456 --all --year 2020`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.envFile, "env", ".env", "Environment file holding MONGO_URI and friends")
	flags.StringVar(&opts.fixtures, "fixtures", "", "Read from a fixtures directory instead of MongoDB")
	flags.StringVar(&opts.calendar, "calendar", "", "Grading calendar YAML (default CALENDAR_FILE)")
	flags.StringVar(&opts.year, "year", "", "School year, e.g. 2020 (default: from the date or today)")
	flags.IntVar(&opts.run, "run", 0, "Grading period number within the school year")
	flags.BoolVar(&opts.all, "all", false, "Use the whole school year")
	flags.StringVar(&opts.date, "date", "", "Use the period containing this M/D/YYYY date")
	flags.Float64Var(&opts.threshold, "threshold", 0, "Low score threshold for alerts (default LOW_SCORE_THRESHOLD)")

	root.AddCommand(
		newStudentsCmd(opts),
		newPeriodCmd(opts),
		newClassworkCmd(opts),
		newAveragesCmd(opts),
		newAlertsCmd(opts),
	)
	return root
}

// openService builds a GradeService over the configured source. The returned
// close func releases any database connection.
func openService(ctx context.Context, cmd *cobra.Command, opts *globalOptions) (*grade.GradeService, func(), error) {
	_ = shared.LoadEnv(opts.envFile)
	cfg, err := shared.LoadServiceConfig("gradectl", opts.fixtures == "")
	if err != nil {
		return nil, nil, err
	}
	loc, err := cfg.Grading.LoadLocation()
	if err != nil {
		return nil, nil, err
	}

	calendarFile := cfg.Grading.CalendarFile
	if opts.calendar != "" {
		calendarFile = opts.calendar
	}
	cal, err := period.LoadCalendar(calendarFile, loc)
	if err != nil {
		return nil, nil, fmt.Errorf("loading grading calendar: %w", err)
	}

	var (
		source  grade.Source
		courses *catalog.Catalog
		closeFn = func() {}
	)
	if opts.fixtures != "" {
		fixtures, err := store.LoadFixtures(opts.fixtures)
		if err != nil {
			return nil, nil, err
		}
		source, courses = store.NewMemorySource(fixtures), fixtures.Catalog()
	} else {
		client, db, err := shared.ConnectMongoDB(&cfg.MongoDB)
		if err != nil {
			return nil, nil, err
		}
		closeFn = func() { _ = shared.DisconnectMongoDB(client) }
		mongoStore := store.NewMongoStore(db)
		courses, err = mongoStore.LoadCatalog(ctx)
		if err != nil {
			closeFn()
			return nil, nil, fmt.Errorf("loading course catalog: %w", err)
		}
		source = mongoStore
	}

	threshold := cfg.Grading.LowScoreThreshold
	if cmd.Flags().Changed("threshold") {
		if opts.threshold < 0 || opts.threshold > 100 {
			closeFn()
			return nil, nil, fmt.Errorf("--threshold must be between 0 and 100, got %g", opts.threshold)
		}
		threshold = opts.threshold
	}
	svc := grade.NewGradeService(source, courses, cal, grade.Options{
		LowScoreThreshold: &threshold,
		Location:          cal.Location(),
		Timeout:           cfg.RequestTimeout,
	})
	return svc, closeFn, nil
}

// selector turns --all, --run and --date into a period selector.
func (o *globalOptions) selector(svc *grade.GradeService) (period.Selector, string, error) {
	if o.year != "" && !schoolYearPattern.MatchString(o.year) {
		return period.Selector{}, "", fmt.Errorf("--year must be YYYY, got %q", o.year)
	}

	given := 0
	if o.all {
		given++
	}
	if o.run != 0 {
		given++
	}
	if o.date != "" {
		given++
	}
	if given > 1 {
		return period.Selector{}, "", fmt.Errorf("only one of --all, --run or --date may be given")
	}

	switch {
	case o.all:
		return period.All(), o.year, nil
	case o.run != 0:
		return period.Explicit(o.run), o.year, nil
	case o.date != "":
		asOf, err := period.ParseDate(o.date, svc.Location())
		if err != nil {
			return period.Selector{}, "", fmt.Errorf("--date must be M/D/YYYY, got %q", o.date)
		}
		return period.Default(asOf), o.year, nil
	}
	return period.Default(time.Time{}), o.year, nil
}

// withService opens the service, runs fn and closes it again.
func withService(cmd *cobra.Command, opts *globalOptions, fn func(ctx context.Context, svc *grade.GradeService) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	svc, closeFn, err := openService(ctx, cmd, opts)
	if err != nil {
		return err
	}
	defer closeFn()
	return fn(ctx, svc)
}
