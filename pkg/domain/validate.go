package domain

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// CourseDetails is step one of the course wizard. CoverPicture is a local file
// path; when editing without one the current CoverPictureURL is kept.
type CourseDetails struct {
	ID              int             `json:"id"`
	Title           string          `json:"title" validate:"required,max=200"`
	Description     string          `json:"description" validate:"required,min=100"`
	Price           decimal.Decimal `json:"price" validate:"gte=0"`
	CategoryID      int             `json:"categoryId" validate:"required"`
	InstructorID    int             `json:"instructorId" validate:"required"`
	Rating          int             `json:"rating" validate:"min=1,max=5"`
	CourseLevel     Level           `json:"courseLevel" validate:"min=1,max=3"`
	CoverPicture    string          `json:"coverPicture" validate:"required_without=ID"`
	CoverPictureURL string          `json:"coverPictureUrl"`
}

// DetailsFromCourse prefills the wizard for editing.
func DetailsFromCourse(c Course) CourseDetails {
	rating := int(c.Rating + 0.5)
	if rating < 1 {
		rating = 5
	}
	return CourseDetails{
		ID:              c.ID,
		Title:           c.Title,
		Description:     c.Description,
		Price:           c.Price,
		CategoryID:      c.CategoryID,
		InstructorID:    c.InstructorID,
		Rating:          rating,
		CourseLevel:     c.CourseLevel,
		CoverPictureURL: c.CoverPictureURL,
	}
}

// CourseSection is one row of step two of the course wizard.
type CourseSection struct {
	ID              int     `json:"contentId,omitempty"`
	Name            string  `json:"name" validate:"required"`
	LecturesCount   int     `json:"lecturesCount" validate:"required,min=1"`
	DurationInHours float64 `json:"durationInHours" validate:"required,gt=0"`
}

type courseSections struct {
	Contents []CourseSection `json:"contents" validate:"required,min=1,dive"`
}

// InstructorInput is the instructor form. ProfilePicture is a local file path;
// editing keeps the current picture when it is empty.
type InstructorInput struct {
	ID             int     `json:"id"`
	Name           string  `json:"name" validate:"required,min=5"`
	JobTitle       int     `json:"jobTitle" validate:"required,min=1,max=12"`
	About          string  `json:"about" validate:"required,min=10"`
	ProfilePicture string  `json:"profilePicture" validate:"required_without=ID"`
	Rating         float64 `json:"rating" validate:"min=0,max=5"`
}

// FieldErrors maps a form field (its JSON name, with [i] for list rows) to a
// message.
type FieldErrors map[string]string

func (fe FieldErrors) Error() string {
	keys := make([]string, 0, len(fe))
	for k := range fe {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fe[k]
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterCustomTypeFunc(func(f reflect.Value) any {
		d, ok := f.Interface().(decimal.Decimal)
		if !ok {
			return nil
		}
		return d.InexactFloat64()
	}, decimal.Decimal{})
	return v
}

// ValidateCourseDetails checks step one of the wizard.
func ValidateCourseDetails(d CourseDetails) error {
	return check(d)
}

// ValidateCourseSections checks step two of the wizard.
func ValidateCourseSections(sections []CourseSection) error {
	return check(courseSections{Contents: sections})
}

// ValidateInstructor checks the instructor form.
func ValidateInstructor(in InstructorInput) error {
	return check(in)
}

func check(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("domain.validate: %w", err)
	}
	out := make(FieldErrors, len(verrs))
	for _, fe := range verrs {
		key := fe.Namespace()
		if _, rest, ok := strings.Cut(key, "."); ok {
			key = rest
		}
		if _, seen := out[key]; !seen {
			out[key] = message(fe)
		}
	}
	return out
}

func message(fe validator.FieldError) string {
	field := fe.Field()
	isText := fe.Kind() == reflect.String
	switch fe.Tag() {
	case "required", "required_without":
		return field + " is required"
	case "min":
		switch {
		case isText:
			return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
		case fe.Kind() == reflect.Slice:
			return fmt.Sprintf("%s needs at least %s entry", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		if isText {
			return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be %s or more", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	}
	return field + " is invalid"
}
