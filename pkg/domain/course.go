package domain

import (
	"encoding/json"
	"strconv"

	"github.com/shopspring/decimal"
)

// Course is a course record as returned by /Courses.
type Course struct {
	ID              int             `json:"id" yaml:"id"`
	Title           string          `json:"title" yaml:"title"`
	Description     string          `json:"description" yaml:"description"`
	Rating          float64         `json:"rating" yaml:"rating"`
	Price           decimal.Decimal `json:"price" yaml:"price"`
	CoverPictureURL string          `json:"coverPictureUrl,omitempty" yaml:"cover_picture_url,omitempty"`
	LecturesCount   int             `json:"lecturesCount,omitempty" yaml:"lectures_count,omitempty"`
	DurationInHours float64         `json:"durationInHours,omitempty" yaml:"duration_in_hours,omitempty"`
	InstructorID    int             `json:"instructorId,omitempty" yaml:"instructor_id,omitempty"`
	InstructorName  string          `json:"instructorName,omitempty" yaml:"instructor_name,omitempty"`
	CategoryID      int             `json:"categoryId,omitempty" yaml:"category_id,omitempty"`
	CategoryName    string          `json:"categoryName,omitempty" yaml:"category_name,omitempty"`
	CourseLevel     Level           `json:"courseLevel,omitempty" yaml:"course_level,omitempty"`
	Contents        []CourseContent `json:"contents,omitempty" yaml:"contents,omitempty"`
	CreatedAt       string          `json:"createdAt,omitempty" yaml:"created_at,omitempty"`
	UpdatedAt       string          `json:"updatedAt,omitempty" yaml:"updated_at,omitempty"`
}

// UnmarshalJSON accepts the older coverPicture key as well as coverPictureUrl.
func (c *Course) UnmarshalJSON(data []byte) error {
	type plain Course
	aux := struct {
		*plain
		CoverPicture string `json:"coverPicture"`
	}{plain: (*plain)(c)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if c.CoverPictureURL == "" {
		c.CoverPictureURL = aux.CoverPicture
	}
	return nil
}

// CourseContent is one section of a course.
type CourseContent struct {
	ID              int     `json:"id,omitempty" yaml:"id,omitempty"`
	Name            string  `json:"name" yaml:"name"`
	LecturesCount   int     `json:"lecturesCount" yaml:"lectures_count"`
	DurationInHours float64 `json:"durationInHours" yaml:"duration_in_hours"`
}

// Category groups courses.
type Category struct {
	ID   int    `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

// Level is a course difficulty. The API encodes it as 1..3.
type Level int

const (
	LevelBeginner     Level = 1
	LevelIntermediate Level = 2
	LevelAdvanced     Level = 3
)

func (l Level) String() string {
	switch l {
	case LevelBeginner:
		return "Beginner"
	case LevelIntermediate:
		return "Intermediate"
	case LevelAdvanced:
		return "Advanced"
	}
	return "Level(" + strconv.Itoa(int(l)) + ")"
}

// LevelOption is an entry of GET /Courses/levels.
type LevelOption struct {
	Value Level  `json:"value" yaml:"value"`
	Name  string `json:"name" yaml:"name"`
}

// DefaultLevels is used when the API does not publish its level list.
var DefaultLevels = []LevelOption{
	{Value: LevelBeginner, Name: LevelBeginner.String()},
	{Value: LevelIntermediate, Name: LevelIntermediate.String()},
	{Value: LevelAdvanced, Name: LevelAdvanced.String()},
}
