package cli

import (
	"bufio"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/byway-lms/byway-admin/pkg/domain"
	"github.com/byway-lms/byway-admin/pkg/routes"
)

// sortNames maps --sort values to the API's sort codes.
var sortNames = map[string]domain.CourseSort{
	"price-asc":   domain.SortPriceAsc,
	"price-desc":  domain.SortPriceDesc,
	"rating-asc":  domain.SortRatingAsc,
	"rating-desc": domain.SortRatingDesc,
	"newest":      domain.SortNewest,
	"oldest":      domain.SortOldest,
}

func parseSort(s string) (domain.CourseSort, error) {
	if v, ok := sortNames[strings.ToLower(s)]; ok {
		return v, nil
	}
	names := make([]string, 0, len(sortNames))
	for k := range sortNames {
		names = append(names, k)
	}
	sort.Strings(names)
	return 0, fmt.Errorf("unknown sort %q (want one of %s)", s, strings.Join(names, ", "))
}

func parseID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

// confirm asks a yes/no question on stdin; anything but y or yes is a no.
func confirm(cmd *cobra.Command, question string) (bool, error) {
	fmt.Fprintf(cmd.ErrOrStderr(), "%s [y/N] ", question) //nolint:errcheck
	line, err := readLine(bufio.NewReader(cmd.InOrStdin()))
	if err != nil {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

func newStatsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show the dashboard totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireAdmin(routes.Dashboard); err != nil {
				return err
			}
			s, err := a.client.DashboardStats(cmd.Context())
			if err != nil {
				return err
			}
			return a.printer(cmd).stats(s)
		},
	}
}

func newCoursesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "courses",
		Aliases: []string{"course"},
		Short:   "List, inspect and delete courses",
	}
	cmd.AddCommand(newCoursesListCmd(a), newCourseGetCmd(a), newCourseDeleteCmd(a), newCategoriesCmd(a))
	return cmd
}

func newCoursesListCmd(a *app) *cobra.Command {
	f := domain.DefaultCourseFilters()
	var sortName string
	var categories []int

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List courses",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireAdmin(routes.Courses); err != nil {
				return err
			}
			if sortName != "" {
				s, err := parseSort(sortName)
				if err != nil {
					return err
				}
				f.Sort = s
			}
			f.Categories = categories
			page, err := a.client.ListCourses(cmd.Context(), f)
			if err != nil {
				return err
			}
			return a.printer(cmd).courses(page)
		},
	}
	fl := cmd.Flags()
	fl.StringVarP(&f.Search, "search", "s", "", "Match titles containing this text")
	fl.StringVar(&sortName, "sort", "newest", "Order: price-asc, price-desc, rating-asc, rating-desc, newest, oldest")
	fl.IntSliceVar(&categories, "category", nil, "Only these category ids (repeatable)")
	fl.IntVar(&f.InstructorID, "instructor", 0, "Only this instructor id")
	fl.IntVar(&f.PageIndex, "page", 1, "Page number")
	fl.IntVar(&f.PageSize, "page-size", domain.DefaultCoursePageSize, fmt.Sprintf("Courses per page (at most %d)", domain.MaxCoursePageSize))
	return cmd
}

func newCourseGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one course with its sections",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := a.requireAdmin(routes.WithID(routes.CourseDetail, id)); err != nil {
				return err
			}
			c, err := a.client.GetCourse(cmd.Context(), id)
			if err != nil {
				return err
			}
			if c == nil {
				return fmt.Errorf("course %d not found", id)
			}
			if c.CoverPictureURL != "" {
				c.CoverPictureURL = a.client.ResolveURL(c.CoverPictureURL)
			}
			return a.printer(cmd).course(*c)
		},
	}
}

func newCourseDeleteCmd(a *app) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a course",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := a.requireAdmin(routes.Courses); err != nil {
				return err
			}
			if !yes {
				ok, err := confirm(cmd, fmt.Sprintf("Delete course %d?", id))
				if err != nil {
					return err
				}
				if !ok {
					return a.printer(cmd).line("Kept course %d.", id)
				}
			}
			msg, err := a.client.DeleteCourse(cmd.Context(), id)
			if err != nil {
				return err
			}
			if msg == "" {
				msg = fmt.Sprintf("Course %d deleted.", id)
			}
			a.log.Info().Int("course", id).Msg("course deleted")
			return a.printer(cmd).line("%s", msg)
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}

func newCategoriesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List course categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireAdmin(routes.Courses); err != nil {
				return err
			}
			cs, err := a.client.ListCategories(cmd.Context())
			if err != nil {
				return err
			}
			p := a.printer(cmd)
			if ok, err := p.structured(cs); ok {
				return err
			}
			rows := make([][]string, len(cs))
			for i, c := range cs {
				rows[i] = []string{strconv.Itoa(c.ID), c.Name}
			}
			return p.table([]string{"ID", "NAME"}, rows)
		},
	}
}

func newInstructorsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "instructors",
		Aliases: []string{"instructor"},
		Short:   "List, inspect and delete instructors",
	}
	cmd.AddCommand(newInstructorsListCmd(a), newInstructorGetCmd(a), newInstructorDeleteCmd(a))
	return cmd
}

func newInstructorsListCmd(a *app) *cobra.Command {
	f := domain.DefaultInstructorFilters()
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List instructors",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireAdmin(routes.Instructors); err != nil {
				return err
			}
			page, err := a.client.ListInstructors(cmd.Context(), f)
			if err != nil {
				return err
			}
			return a.printer(cmd).instructors(page)
		},
	}
	fl := cmd.Flags()
	fl.StringVarP(&f.Search, "search", "s", "", "Match names containing this text")
	fl.IntVar(&f.PageIndex, "page", 1, "Page number")
	fl.IntVar(&f.PageSize, "page-size", domain.DefaultInstructorPageSize, "Instructors per page")
	return cmd
}

func newInstructorGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one instructor",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := a.requireAdmin(routes.WithID(routes.InstructorEdit, id)); err != nil {
				return err
			}
			in, err := a.client.GetInstructor(cmd.Context(), id)
			if err != nil {
				return err
			}
			if in == nil {
				return fmt.Errorf("instructor %d not found", id)
			}
			if in.ProfilePictureURL != "" {
				in.ProfilePictureURL = a.client.ResolveURL(in.ProfilePictureURL)
			}
			return a.printer(cmd).instructor(*in)
		},
	}
}

func newInstructorDeleteCmd(a *app) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete an instructor",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := a.requireAdmin(routes.Instructors); err != nil {
				return err
			}
			if !yes {
				ok, err := confirm(cmd, fmt.Sprintf("Delete instructor %d?", id))
				if err != nil {
					return err
				}
				if !ok {
					return a.printer(cmd).line("Kept instructor %d.", id)
				}
			}
			msg, err := a.client.DeleteInstructor(cmd.Context(), id)
			if err != nil {
				return err
			}
			if msg == "" {
				msg = fmt.Sprintf("Instructor %d deleted.", id)
			}
			a.log.Info().Int("instructor", id).Msg("instructor deleted")
			return a.printer(cmd).line("%s", msg)
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}
