package domain

import (
	"encoding/json"
	"strings"
	"unicode"
)

// Instructor is an instructor record as returned by /instructors.
type Instructor struct {
	ID                int     `json:"id" yaml:"id"`
	Name              string  `json:"name" yaml:"name"`
	JobTitle          string  `json:"jobTitle" yaml:"job_title"`
	About             string  `json:"about" yaml:"about"`
	ProfilePictureURL string  `json:"profilePictureUrl,omitempty" yaml:"profile_picture_url,omitempty"`
	CoursesCount      int     `json:"coursesCount" yaml:"courses_count"`
	TotalLectures     int     `json:"totalLectures" yaml:"total_lectures"`
	AverageRating     float64 `json:"averageRating" yaml:"average_rating"`
	StudentsCount     int     `json:"studentsCount" yaml:"students_count"`
	Rating            float64 `json:"rating,omitempty" yaml:"rating,omitempty"`
	CreatedAt         string  `json:"createdAt,omitempty" yaml:"created_at,omitempty"`
	UpdatedAt         string  `json:"updatedAt,omitempty" yaml:"updated_at,omitempty"`
}

// UnmarshalJSON accepts the API's jopTitle spelling and the older
// profilePicture key.
func (in *Instructor) UnmarshalJSON(data []byte) error {
	type plain Instructor
	aux := struct {
		*plain
		JopTitle       string `json:"jopTitle"`
		ProfilePicture string `json:"profilePicture"`
	}{plain: (*plain)(in)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if in.JobTitle == "" {
		in.JobTitle = aux.JopTitle
	}
	if in.ProfilePictureURL == "" {
		in.ProfilePictureURL = aux.ProfilePicture
	}
	return nil
}

// JobTitle is an entry of GET /instructors/jobtitles.
type JobTitle struct {
	ID    int    `json:"id" yaml:"id"`
	Title string `json:"title" yaml:"title"`
	Value int    `json:"value,omitempty" yaml:"value,omitempty"`
}

// Code is the number the instructor endpoints expect for this title.
func (j JobTitle) Code() int {
	if j.Value != 0 {
		return j.Value
	}
	return j.ID
}

// MatchJobTitle finds the entry whose title equals raw, ignoring case,
// punctuation and spaces.
func MatchJobTitle(titles []JobTitle, raw string) (JobTitle, bool) {
	want := normalizeTitle(raw)
	if want == "" {
		return JobTitle{}, false
	}
	for _, jt := range titles {
		if normalizeTitle(jt.Title) == want {
			return jt, true
		}
	}
	return JobTitle{}, false
}

func normalizeTitle(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
