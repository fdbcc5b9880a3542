package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/nhle/miledo/internal/model"
	"github.com/nhle/miledo/internal/reconcile"
	"github.com/nhle/miledo/internal/schedule"
	"github.com/nhle/miledo/internal/service"
)

func newTasksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "tasks",
		Aliases: []string{"task", "t"},
		Short:   "List and edit tasks",
	}
	cmd.AddCommand(
		newTasksListCmd(),
		newTasksAddCmd(),
		newTasksEditCmd(),
		newTasksDoneCmd(),
		newTasksCompleteCmd(),
		newTasksRmCmd(),
		newTasksStatsCmd(),
	)
	return cmd
}

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", arg)
	}
	return id, nil
}

func parseIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, a := range args {
		id, err := parseID(a)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func newTasksListCmd() *cobra.Command {
	var view, after, before string
	var goalID int64

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks of a view",
		Long: `List tasks. Views:
  inbox   unscheduled tasks (default)
  today   tasks scheduled today
  all     every task
  goal    tasks of --goal
  period  tasks with a date in [--after, --before)`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(func(e *env) error {
				ctx := cmd.Context()
				var tasks []model.Task
				var err error
				switch view {
				case "inbox":
					tasks, err = e.tasks.Inbox(ctx)
				case "today":
					tasks, err = e.tasks.Today(ctx, time.Now())
				case "all":
					tasks, err = e.tasks.All(ctx)
				case "goal":
					if goalID <= 0 {
						return fmt.Errorf("--goal is required for the goal view")
					}
					tasks, err = e.tasks.ByGoal(ctx, goalID)
				case "period":
					tasks, err = e.tasks.Period(ctx, after, before)
				default:
					return fmt.Errorf("unknown view %q", view)
				}
				if err != nil {
					if tasks == nil {
						return err
					}
					// Cached rows are still worth showing.
					e.logger.Warn("showing cached tasks", "error", err)
				}
				return printTasks(cmd.OutOrStdout(), output, tasks)
			})
		},
	}

	cmd.Flags().StringVar(&view, "view", "inbox", "inbox, today, all, goal or period")
	cmd.Flags().Int64Var(&goalID, "goal", 0, "Goal id for the goal view")
	cmd.Flags().StringVar(&after, "after", "", "First day of the period (YYYY-MM-DD)")
	cmd.Flags().StringVar(&before, "before", "", "Day after the period (YYYY-MM-DD)")
	return cmd
}

func newTasksAddCmd() *cobra.Command {
	var in service.NewTask

	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Create a task",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in.Title = strings.Join(args, " ")
			return withEnv(func(e *env) error {
				task, err := e.tasks.Create(cmd.Context(), in)
				if err != nil {
					return err
				}
				return printTask(cmd.OutOrStdout(), output, task)
			})
		},
	}

	cmd.Flags().Int32Var(&in.GoalID, "goal", 0, "Goal id (0 for none)")
	cmd.Flags().StringVar(&in.Date, "date", "", "Scheduled day (YYYY-MM-DD); empty keeps the task in the inbox")
	cmd.Flags().StringVar(&in.Time, "time", "", "Start time (HH:MM), default 09:00")
	cmd.Flags().Int32Var(&in.DurationMinutes, "duration", schedule.MinDuration, "Duration in minutes")
	return cmd
}

type editFlags struct {
	title      string
	goalID     int32
	date       string
	start      string
	end        string
	duration   int32
	done       bool
	unschedule bool
}

func newTasksEditCmd() *cobra.Command {
	var f editFlags

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change fields of a task",
		Long: `Change fields of a task. Only the given flags are sent; everything else
keeps its current value. --start without --date keeps the current day and
--date without --start keeps the current start time.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withEnv(func(e *env) error {
				// Edits reconcile against the cached row.
				if _, err := e.tasks.Get(cmd.Context(), id); err != nil {
					return err
				}
				patch, err := buildPatch(cmd, e, id, f)
				if err != nil {
					return err
				}
				if patch.IsEmpty() {
					return fmt.Errorf("nothing to change")
				}
				task, err := e.tasks.Update(cmd.Context(), id, patch)
				if err != nil {
					return err
				}
				return printTask(cmd.OutOrStdout(), output, task)
			})
		},
	}

	cmd.Flags().StringVar(&f.title, "title", "", "New title")
	cmd.Flags().Int32Var(&f.goalID, "goal", 0, "Goal id (0 for none)")
	cmd.Flags().StringVar(&f.date, "date", "", "Scheduled day (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.start, "start", "", "Start time (HH:MM)")
	cmd.Flags().StringVar(&f.end, "end", "", "End time (HH:MM); sets the duration")
	cmd.Flags().Int32Var(&f.duration, "duration", 0, "Duration in minutes")
	cmd.Flags().BoolVar(&f.done, "done", false, "Mark done (--done=false to reopen)")
	cmd.Flags().BoolVar(&f.unschedule, "unschedule", false, "Move the task back to the inbox")
	cmd.MarkFlagsMutuallyExclusive("unschedule", "date")
	cmd.MarkFlagsMutuallyExclusive("unschedule", "start")
	return cmd
}

// buildPatch turns the changed flags into a patch. A start time alone
// needs the task's current day; a day alone keeps the current start.
func buildPatch(cmd *cobra.Command, e *env, id int64, f editFlags) (reconcile.Patch, error) {
	var p reconcile.Patch
	changed := cmd.Flags().Changed

	if changed("title") {
		p.Title = &f.title
	}
	if changed("goal") {
		p.GoalID = &f.goalID
	}
	if changed("done") {
		p.IsDone = &f.done
	}
	if changed("duration") {
		p.DurationMinutes = &f.duration
	}
	if changed("end") {
		p.EndTime = &f.end
	}

	if f.unschedule {
		none := ""
		p.ScheduledDateTime = &none
		return p, nil
	}
	if !changed("date") && !changed("start") {
		return p, nil
	}

	task, err := e.tasks.Get(cmd.Context(), id)
	if err != nil {
		return p, err
	}
	day, clock := f.date, f.start
	if !changed("date") {
		day = schedule.ExtractDate(task.ScheduledDate)
		if day == "" {
			return p, model.NewValidationError("start", "task %d has no date, pass --date too", id)
		}
	}
	if !changed("start") {
		clock = currentClock(*task)
	}
	start, _ := schedule.Combine(day, clock)
	p.ScheduledDateTime = &start
	return p, nil
}

// currentClock is the start time a task keeps when only its day moves.
// Empty means the default start.
func currentClock(t model.Task) string {
	if !t.HasTime || schedule.IsUnscheduled(t.ScheduledDate) {
		return ""
	}
	return schedule.ExtractTime(t.ScheduledTime)
}

func newTasksDoneCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "done <id>",
		Short: "Toggle the done flag of a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withEnv(func(e *env) error {
				// Toggle reads the cached row, so make sure it is there.
				if _, err := e.tasks.Get(cmd.Context(), id); err != nil {
					return err
				}
				task, err := e.tasks.Toggle(cmd.Context(), id)
				if err != nil {
					return err
				}
				return printTask(cmd.OutOrStdout(), output, task)
			})
		},
	}
}

func newTasksCompleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "complete <id>",
		Short: "Mark a task done",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withEnv(func(e *env) error {
				task, err := e.tasks.Complete(cmd.Context(), id)
				if err != nil {
					return err
				}
				return printTask(cmd.OutOrStdout(), output, task)
			})
		},
	}
}

func newTasksRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>...",
		Aliases: []string{"delete"},
		Short:   "Delete tasks",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			return withEnv(func(e *env) error {
				n, err := e.tasks.DeleteMany(cmd.Context(), ids)
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d of %d tasks\n", n, len(ids))
				return err
			})
		},
	}
}

func newTasksStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show today's completion",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(func(e *env) error {
				stats, err := e.tasks.Stats(cmd.Context())
				if err != nil {
					return err
				}
				if ok, err := encode(cmd.OutOrStdout(), output, stats); ok {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "%d of %d tasks done today\n", stats.Completed, stats.TotalTasks)
				return err
			})
		},
	}
}
