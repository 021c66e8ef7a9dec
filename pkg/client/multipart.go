package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/textproto"
	"os"
	"path/filepath"
	"strconv"

	"github.com/byway-lms/byway-admin/pkg/domain"
)

// form is a buffered multipart/form-data body.
type form struct {
	buf         bytes.Buffer
	w           *multipart.Writer
	contentType string
	err         error
}

func newForm() *form {
	f := &form{}
	f.w = multipart.NewWriter(&f.buf)
	f.contentType = f.w.FormDataContentType()
	return f
}

func (f *form) field(name, value string) {
	if f.err != nil {
		return
	}
	f.err = f.w.WriteField(name, value)
}

// file attaches the file at path under name. An empty path is skipped.
func (f *form) file(name, path string) {
	if f.err != nil || path == "" {
		return
	}
	src, err := os.Open(path)
	if err != nil {
		f.err = fmt.Errorf("open %s: %w", name, err)
		return
	}
	defer src.Close() //nolint:errcheck // read-only

	ctype := mime.TypeByExtension(filepath.Ext(path))
	if ctype == "" {
		ctype = "application/octet-stream"
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", mime.FormatMediaType("form-data", map[string]string{
		"name":     name,
		"filename": filepath.Base(path),
	}))
	h.Set("Content-Type", ctype)
	part, err := f.w.CreatePart(h)
	if err != nil {
		f.err = err
		return
	}
	if _, err := io.Copy(part, src); err != nil {
		f.err = fmt.Errorf("copy %s: %w", name, err)
	}
}

func (f *form) close() (*form, error) {
	if f.err != nil {
		return nil, f.err
	}
	if err := f.w.Close(); err != nil {
		return nil, err
	}
	return f, nil
}

// sectionPayload is the shape the Contents field is serialized in.
type sectionPayload struct {
	ContentID       int     `json:"contentId"`
	Name            string  `json:"Name"`
	LecturesCount   int     `json:"LecturesCount"`
	DurationInHours float64 `json:"DurationInHours"`
}

func courseForm(d domain.CourseDetails, sections []domain.CourseSection) (*form, error) {
	payload := make([]sectionPayload, len(sections))
	for i, s := range sections {
		payload[i] = sectionPayload{
			ContentID:       i + 1,
			Name:            s.Name,
			LecturesCount:   s.LecturesCount,
			DurationInHours: s.DurationInHours,
		}
	}
	contents, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal contents: %w", err)
	}

	rating := d.Rating
	if rating == 0 {
		rating = 5
	}
	level := d.CourseLevel
	if level == 0 {
		level = domain.LevelBeginner
	}

	f := newForm()
	f.field("Title", d.Title)
	f.field("Description", d.Description)
	f.field("Rating", strconv.Itoa(rating))
	f.field("Price", d.Price.String())
	f.field("CourseLevel", strconv.Itoa(int(level)))
	f.field("InstructorId", strconv.Itoa(d.InstructorID))
	f.field("CategoryId", strconv.Itoa(d.CategoryID))
	if d.CoverPicture != "" {
		f.file("CoverPicture", d.CoverPicture)
	} else if d.CoverPictureURL != "" {
		f.field("CoverPictureUrl", d.CoverPictureURL)
	}
	f.field("Contents", string(contents))
	return f.close()
}

func instructorForm(in domain.InstructorInput) (*form, error) {
	f := newForm()
	f.field("Name", in.Name)
	f.field("JopTitle", strconv.Itoa(in.JobTitle))
	f.field("About", in.About)
	if in.Rating > 0 {
		f.field("Rating", strconv.FormatFloat(in.Rating, 'f', -1, 64))
	}
	f.file("ProfilePicture", in.ProfilePicture)
	return f.close()
}
