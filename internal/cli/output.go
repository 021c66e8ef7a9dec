package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/byway-lms/byway-admin/pkg/domain"
	"github.com/byway-lms/byway-admin/pkg/session"
)

const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

func validFormat(f string) error {
	switch f {
	case formatTable, formatJSON, formatYAML:
		return nil
	}
	return fmt.Errorf("unknown output format %q (want table, json or yaml)", f)
}

// printer writes command results as a table or as structured data.
type printer struct {
	w      io.Writer
	format string
}

// structured writes v as JSON or YAML. ok is false for table output.
func (p printer) structured(v any) (ok bool, err error) {
	switch p.format {
	case formatJSON:
		enc := json.NewEncoder(p.w)
		enc.SetIndent("", "  ")
		return true, enc.Encode(v)
	case formatYAML:
		enc := yaml.NewEncoder(p.w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return true, err
		}
		return true, enc.Close()
	}
	return false, nil
}

func (p printer) table(header []string, rows [][]string) error {
	tw := tabwriter.NewWriter(p.w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(header, "\t")) //nolint:errcheck
	for _, r := range rows {
		fmt.Fprintln(tw, strings.Join(r, "\t")) //nolint:errcheck
	}
	return tw.Flush()
}

func (p printer) line(format string, args ...any) error {
	_, err := fmt.Fprintf(p.w, format+"\n", args...)
	return err
}

func (p printer) user(u session.User, text string) error {
	if ok, err := p.structured(u); ok {
		return err
	}
	return p.line("%s", text)
}

func (p printer) whoami(w whoami) error {
	if ok, err := p.structured(w); ok {
		return err
	}
	if w.User == (session.User{}) {
		return p.line("Not signed in (session %s).", w.State)
	}
	if err := p.line("%s", displayName(w.User)); err != nil {
		return err
	}
	if err := p.line("role:    %s", orDash(w.User.Role)); err != nil {
		return err
	}
	if err := p.line("session: %s", w.State); err != nil {
		return err
	}
	if w.ExpiresAt != "" {
		return p.line("expires: %s", w.ExpiresAt)
	}
	return nil
}

func (p printer) stats(s domain.DashboardStats) error {
	if ok, err := p.structured(s); ok {
		return err
	}
	return p.table([]string{"METRIC", "VALUE", "SHARE"}, [][]string{
		{"Instructors", strconv.Itoa(s.InstructorsCount), strconv.Itoa(s.Distribution.Instructors) + "%"},
		{"Categories", strconv.Itoa(s.CategoriesCount), strconv.Itoa(s.Distribution.Categories) + "%"},
		{"Courses", strconv.Itoa(s.CoursesCount), strconv.Itoa(s.Distribution.Courses) + "%"},
		{"Revenue", "$" + s.TotalRevenue.StringFixed(2), "-"},
	})
}

func (p printer) courses(page domain.Page[domain.Course]) error {
	if ok, err := p.structured(page); ok {
		return err
	}
	if len(page.Items) == 0 {
		return p.line("No courses found.")
	}
	rows := make([][]string, len(page.Items))
	for i, c := range page.Items {
		rows[i] = []string{
			strconv.Itoa(c.ID), c.Title, orDash(c.CategoryName), orDash(c.InstructorName),
			levelLabel(c.CourseLevel), price(c.Price.StringFixed(2), c.Price.IsZero()),
			strconv.FormatFloat(c.Rating, 'f', 1, 64),
		}
	}
	if err := p.table([]string{"ID", "TITLE", "CATEGORY", "INSTRUCTOR", "LEVEL", "PRICE", "RATING"}, rows); err != nil {
		return err
	}
	return p.line("\npage %d of %d, %d total", page.PageIndex, page.LastPage, page.Total)
}

func (p printer) course(c domain.Course) error {
	if ok, err := p.structured(c); ok {
		return err
	}
	fields := [][]string{
		{"ID", strconv.Itoa(c.ID)},
		{"Title", c.Title},
		{"Category", orDash(c.CategoryName)},
		{"Instructor", orDash(c.InstructorName)},
		{"Level", levelLabel(c.CourseLevel)},
		{"Price", price(c.Price.StringFixed(2), c.Price.IsZero())},
		{"Rating", strconv.FormatFloat(c.Rating, 'f', 1, 64)},
		{"Cover", orDash(c.CoverPictureURL)},
		{"Description", c.Description},
	}
	tw := tabwriter.NewWriter(p.w, 0, 0, 2, ' ', 0)
	for _, f := range fields {
		fmt.Fprintf(tw, "%s:\t%s\n", f[0], f[1]) //nolint:errcheck
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if len(c.Contents) == 0 {
		return nil
	}
	rows := make([][]string, len(c.Contents))
	for i, s := range c.Contents {
		rows[i] = []string{strconv.Itoa(i + 1), s.Name, strconv.Itoa(s.LecturesCount),
			strconv.FormatFloat(s.DurationInHours, 'f', -1, 64)}
	}
	if err := p.line(""); err != nil {
		return err
	}
	return p.table([]string{"#", "SECTION", "LECTURES", "HOURS"}, rows)
}

func (p printer) instructors(page domain.Page[domain.Instructor]) error {
	if ok, err := p.structured(page); ok {
		return err
	}
	if len(page.Items) == 0 {
		return p.line("No instructors found.")
	}
	rows := make([][]string, len(page.Items))
	for i, in := range page.Items {
		rows[i] = []string{
			strconv.Itoa(in.ID), in.Name, orDash(in.JobTitle), strconv.Itoa(in.CoursesCount),
			strconv.Itoa(in.StudentsCount), strconv.FormatFloat(in.AverageRating, 'f', 1, 64),
		}
	}
	if err := p.table([]string{"ID", "NAME", "JOB TITLE", "COURSES", "STUDENTS", "RATING"}, rows); err != nil {
		return err
	}
	return p.line("\npage %d of %d, %d total", page.PageIndex, page.LastPage, page.Total)
}

func (p printer) instructor(in domain.Instructor) error {
	if ok, err := p.structured(in); ok {
		return err
	}
	tw := tabwriter.NewWriter(p.w, 0, 0, 2, ' ', 0)
	for _, f := range [][]string{
		{"ID", strconv.Itoa(in.ID)},
		{"Name", in.Name},
		{"Job title", orDash(in.JobTitle)},
		{"Courses", strconv.Itoa(in.CoursesCount)},
		{"Lectures", strconv.Itoa(in.TotalLectures)},
		{"Students", strconv.Itoa(in.StudentsCount)},
		{"Rating", strconv.FormatFloat(in.AverageRating, 'f', 1, 64)},
		{"Picture", orDash(in.ProfilePictureURL)},
		{"About", in.About},
	} {
		fmt.Fprintf(tw, "%s:\t%s\n", f[0], f[1]) //nolint:errcheck
	}
	return tw.Flush()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func levelLabel(l domain.Level) string {
	if l == 0 {
		return "-"
	}
	return l.String()
}

func price(fixed string, free bool) string {
	if free {
		return "Free"
	}
	return "$" + fixed
}
