package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nhle/miledo/internal/model"
	"github.com/nhle/miledo/internal/service"
)

func newGoalsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "goals",
		Aliases: []string{"goal", "g"},
		Short:   "Manage goals",
	}
	cmd.AddCommand(
		newGoalsListCmd(),
		newGoalsAddCmd(),
		newGoalsEditCmd(),
		newGoalsArchiveCmd(true),
		newGoalsArchiveCmd(false),
		newGoalsRmCmd(),
	)
	return cmd
}

func newGoalsListCmd() *cobra.Command {
	var archived bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List goals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(func(e *env) error {
				goals, err := e.goals.List(cmd.Context(), archived)
				if err != nil {
					if goals == nil {
						return err
					}
					e.logger.Warn("showing cached goals", "error", err)
				}
				return printGoals(cmd.OutOrStdout(), output, goals)
			})
		},
	}

	cmd.Flags().BoolVarP(&archived, "archived", "a", false, "Include archived goals")
	return cmd
}

func newGoalsAddCmd() *cobra.Command {
	in := service.GoalInput{CategoryType: model.CategoryGrowth}

	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Create a goal",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in.Title = strings.Join(args, " ")
			return withEnv(func(e *env) error {
				goal, err := e.goals.Create(cmd.Context(), in)
				if err != nil {
					return err
				}
				return printGoal(cmd.OutOrStdout(), output, goal)
			})
		},
	}

	cmd.Flags().StringVar(&in.Color, "color", "", "Hex color such as #5B9BD5")
	cmd.Flags().StringVar(&in.CategoryType, "category", in.CategoryType, "growth, maintenance or other")
	return cmd
}

func newGoalsEditCmd() *cobra.Command {
	var title, color, category string

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change a goal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withEnv(func(e *env) error {
				current, err := e.goals.Get(cmd.Context(), id)
				if err != nil {
					return err
				}
				in := service.GoalInput{
					Title:        current.Title,
					Color:        current.Color,
					CategoryType: current.CategoryType,
				}
				if cmd.Flags().Changed("title") {
					in.Title = title
				}
				if cmd.Flags().Changed("color") {
					in.Color = color
				}
				if cmd.Flags().Changed("category") {
					in.CategoryType = category
				}

				goal, err := e.goals.Update(cmd.Context(), id, in)
				if err != nil {
					return err
				}
				return printGoal(cmd.OutOrStdout(), output, goal)
			})
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "New title")
	cmd.Flags().StringVar(&color, "color", "", "Hex color")
	cmd.Flags().StringVar(&category, "category", "", "growth, maintenance or other")
	return cmd
}

// newGoalsArchiveCmd builds "archive" or, with archive false, "restore".
func newGoalsArchiveCmd(archive bool) *cobra.Command {
	use, short := "restore <id>", "Bring an archived goal back"
	if archive {
		use, short = "archive <id>", "Archive a goal"
	}

	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withEnv(func(e *env) error {
				var goal *model.Goal
				if archive {
					goal, err = e.goals.Archive(cmd.Context(), id)
				} else {
					goal, err = e.goals.Restore(cmd.Context(), id)
				}
				if err != nil {
					return err
				}
				return printGoal(cmd.OutOrStdout(), output, goal)
			})
		},
	}
}

func newGoalsRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete a goal and its tasks",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withEnv(func(e *env) error {
				if err := e.goals.Delete(cmd.Context(), id); err != nil {
					return err
				}
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "Deleted goal %d\n", id)
				return err
			})
		},
	}
}
