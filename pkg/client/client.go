package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/byway-lms/byway-admin/pkg/domain"
)

// DefaultBaseURL is the hosted Byway API.
const DefaultBaseURL = "https://kamalalgointern-001-site1.qtempurl.com/api"

// DefaultTimeout bounds every request unless overridden.
const DefaultTimeout = 30 * time.Second

// maxBodySize caps how much of a response is read.
const maxBodySize = 10 << 20

// TokenSource supplies the bearer token for each request.
type TokenSource interface {
	GetToken() (string, bool)
}

// Client is the Byway API client.
type Client struct {
	baseURL    string
	tokens     TokenSource
	httpClient *http.Client
	log        zerolog.Logger
	metrics    *Metrics
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the instrumented default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithLogger logs each request at debug level.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.log = l }
}

// WithMetrics records request counts and latencies.
func WithMetrics(m *Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// New creates a client for baseURL. tokens may be nil for anonymous use.
func New(baseURL string, tokens TokenSource, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		tokens:  tokens,
		httpClient: &http.Client{
			Timeout:   DefaultTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		log: zerolog.Nop(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// BaseURL returns the API root requests are sent to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// ResolveURL turns an API-relative asset path such as a cover picture into an
// absolute URL on the API host.
func (c *Client) ResolveURL(p string) string {
	if p == "" || strings.HasPrefix(p, "http://") || strings.HasPrefix(p, "https://") {
		return p
	}
	base, err := url.Parse(c.baseURL)
	if err != nil {
		return p
	}
	ref, err := url.Parse(p)
	if err != nil {
		return p
	}
	return base.ResolveReference(ref).String()
}

// Login exchanges credentials for a token.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	body := map[string]string{"email": email, "password": password}
	tok, err := c.exchange(ctx, "/account/login", body)
	if err != nil {
		return "", fmt.Errorf("client.Login: %w", err)
	}
	return tok, nil
}

// GoogleAuth exchanges a Google ID token for a session token.
func (c *Client) GoogleAuth(ctx context.Context, idToken string) (string, error) {
	body := map[string]string{"IdToken": idToken}
	tok, err := c.exchange(ctx, "/account/google-auth", body)
	if err != nil {
		return "", fmt.Errorf("client.GoogleAuth: %w", err)
	}
	return tok, nil
}

func (c *Client) exchange(ctx context.Context, path string, body any) (string, error) {
	raw, err := c.doJSON(ctx, http.MethodPost, path, body)
	if err != nil {
		return "", err
	}
	tok := extractToken(raw)
	if tok == "" {
		return "", ErrNoToken
	}
	return tok, nil
}

// ListCourses fetches one page of courses.
func (c *Client) ListCourses(ctx context.Context, f domain.CourseFilters) (domain.Page[domain.Course], error) {
	raw, err := c.get(ctx, "/Courses?"+f.Query().Encode())
	if err != nil {
		return domain.Page[domain.Course]{}, fmt.Errorf("client.ListCourses: %w", err)
	}
	page, err := decodePage[domain.Course](raw, f.EffectivePageSize())
	if err != nil {
		return domain.Page[domain.Course]{}, fmt.Errorf("client.ListCourses: %w", err)
	}
	return page, nil
}

// GetCourse fetches a course with its contents.
func (c *Client) GetCourse(ctx context.Context, id int) (*domain.Course, error) {
	raw, err := c.get(ctx, "/Courses/"+strconv.Itoa(id))
	if err != nil {
		return nil, fmt.Errorf("client.GetCourse: %w", err)
	}
	var course domain.Course
	if err := decodeRecord(raw, &course); err != nil {
		return nil, fmt.Errorf("client.GetCourse: %w", err)
	}
	return &course, nil
}

// CreateCourse uploads a new course. The API may answer without a body, in
// which case the returned course is nil.
func (c *Client) CreateCourse(ctx context.Context, d domain.CourseDetails, sections []domain.CourseSection) (*domain.Course, error) {
	course, err := c.sendCourse(ctx, http.MethodPost, "/Courses", d, sections)
	if err != nil {
		return nil, fmt.Errorf("client.CreateCourse: %w", err)
	}
	return course, nil
}

// UpdateCourse replaces course id.
func (c *Client) UpdateCourse(ctx context.Context, id int, d domain.CourseDetails, sections []domain.CourseSection) (*domain.Course, error) {
	course, err := c.sendCourse(ctx, http.MethodPut, "/Courses/"+strconv.Itoa(id), d, sections)
	if err != nil {
		return nil, fmt.Errorf("client.UpdateCourse: %w", err)
	}
	return course, nil
}

func (c *Client) sendCourse(ctx context.Context, method, path string, d domain.CourseDetails, sections []domain.CourseSection) (*domain.Course, error) {
	form, err := courseForm(d, sections)
	if err != nil {
		return nil, err
	}
	raw, err := c.doMultipart(ctx, method, path, form)
	if err != nil {
		return nil, err
	}
	return optionalRecord[domain.Course](raw)
}

// DeleteCourse removes course id and returns the API's message.
func (c *Client) DeleteCourse(ctx context.Context, id int) (string, error) {
	raw, err := c.do(ctx, http.MethodDelete, "/Courses/"+strconv.Itoa(id), "", nil)
	if err != nil {
		return "", fmt.Errorf("client.DeleteCourse: %w", err)
	}
	return extractMessage(raw), nil
}

// ListCategories returns every course category.
func (c *Client) ListCategories(ctx context.Context) ([]domain.Category, error) {
	raw, err := c.get(ctx, "/Courses/categories")
	if err != nil {
		return nil, fmt.Errorf("client.ListCategories: %w", err)
	}
	var cats []domain.Category
	if err := decodeList(raw, &cats); err != nil {
		return nil, fmt.Errorf("client.ListCategories: %w", err)
	}
	return cats, nil
}

// ListLevels returns the course levels, falling back to the built-in list
// when the API does not publish them.
func (c *Client) ListLevels(ctx context.Context) ([]domain.LevelOption, error) {
	raw, err := c.get(ctx, "/Courses/levels")
	if IsStatus(err, http.StatusNotFound) {
		return domain.DefaultLevels, nil
	}
	if err != nil {
		return nil, fmt.Errorf("client.ListLevels: %w", err)
	}
	var levels []domain.LevelOption
	if err := decodeList(raw, &levels); err != nil {
		return nil, fmt.Errorf("client.ListLevels: %w", err)
	}
	if len(levels) == 0 {
		return domain.DefaultLevels, nil
	}
	return levels, nil
}

// ListInstructors fetches one page of instructors.
func (c *Client) ListInstructors(ctx context.Context, f domain.InstructorFilters) (domain.Page[domain.Instructor], error) {
	q := f.Query()
	raw, err := c.get(ctx, "/instructors?"+q.Encode())
	if err != nil {
		return domain.Page[domain.Instructor]{}, fmt.Errorf("client.ListInstructors: %w", err)
	}
	size, _ := strconv.Atoi(q.Get("pageSize"))
	page, err := decodePage[domain.Instructor](raw, size)
	if err != nil {
		return domain.Page[domain.Instructor]{}, fmt.Errorf("client.ListInstructors: %w", err)
	}
	return page, nil
}

// GetInstructor fetches one instructor.
func (c *Client) GetInstructor(ctx context.Context, id int) (*domain.Instructor, error) {
	raw, err := c.get(ctx, "/instructors/"+strconv.Itoa(id))
	if err != nil {
		return nil, fmt.Errorf("client.GetInstructor: %w", err)
	}
	var in domain.Instructor
	if err := decodeRecord(raw, &in); err != nil {
		return nil, fmt.Errorf("client.GetInstructor: %w", err)
	}
	return &in, nil
}

// CreateInstructor uploads a new instructor.
func (c *Client) CreateInstructor(ctx context.Context, in domain.InstructorInput) (*domain.Instructor, error) {
	res, err := c.sendInstructor(ctx, http.MethodPost, "/instructors", in)
	if err != nil {
		return nil, fmt.Errorf("client.CreateInstructor: %w", err)
	}
	return res, nil
}

// UpdateInstructor replaces instructor id.
func (c *Client) UpdateInstructor(ctx context.Context, id int, in domain.InstructorInput) (*domain.Instructor, error) {
	res, err := c.sendInstructor(ctx, http.MethodPut, "/instructors/"+strconv.Itoa(id), in)
	if err != nil {
		return nil, fmt.Errorf("client.UpdateInstructor: %w", err)
	}
	return res, nil
}

func (c *Client) sendInstructor(ctx context.Context, method, path string, in domain.InstructorInput) (*domain.Instructor, error) {
	form, err := instructorForm(in)
	if err != nil {
		return nil, err
	}
	raw, err := c.doMultipart(ctx, method, path, form)
	if err != nil {
		return nil, err
	}
	return optionalRecord[domain.Instructor](raw)
}

// DeleteInstructor removes instructor id and returns the API's message.
func (c *Client) DeleteInstructor(ctx context.Context, id int) (string, error) {
	raw, err := c.do(ctx, http.MethodDelete, "/instructors/"+strconv.Itoa(id), "", nil)
	if err != nil {
		return "", fmt.Errorf("client.DeleteInstructor: %w", err)
	}
	return extractMessage(raw), nil
}

// ListJobTitles returns the job titles an instructor can hold.
func (c *Client) ListJobTitles(ctx context.Context) ([]domain.JobTitle, error) {
	raw, err := c.get(ctx, "/instructors/jobtitles")
	if err != nil {
		return nil, fmt.Errorf("client.ListJobTitles: %w", err)
	}
	var titles []domain.JobTitle
	if err := decodeList(raw, &titles); err != nil {
		return nil, fmt.Errorf("client.ListJobTitles: %w", err)
	}
	return titles, nil
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	return c.do(ctx, http.MethodGet, path, "", nil)
}

func (c *Client) doJSON(ctx context.Context, method, path string, body any) ([]byte, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal body: %w", err)
	}
	return c.do(ctx, method, path, "application/json", bytes.NewReader(data))
}

func (c *Client) doMultipart(ctx context.Context, method, path string, f *form) ([]byte, error) {
	return c.do(ctx, method, path, f.contentType, &f.buf)
}

// do sends one request and returns the raw 2xx body. A 401 is returned like
// any other failure: the token is neither refreshed nor dropped.
func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	reqID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", reqID)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.tokens != nil {
		if tok, ok := c.tokens.GetToken(); ok {
			if tok = strings.TrimSpace(tok); tok != "" {
				req.Header.Set("Authorization", "Bearer "+tok)
			}
		}
	}

	endpoint := endpointLabel(path)
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.observe(method, endpoint, 0, time.Since(start))
		c.log.Debug().Err(err).Str("method", method).Str("path", path).Str("request_id", reqID).Msg("api request failed")
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // best-effort close

	elapsed := time.Since(start)
	c.metrics.observe(method, endpoint, resp.StatusCode, elapsed)
	c.log.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("elapsed", elapsed).
		Str("request_id", reqID).
		Msg("api request")

	if resp.StatusCode >= 400 {
		respBody, readErr := io.ReadAll(io.LimitReader(resp.Body, 1<<20)) // 1 MB max error body
		if readErr != nil {
			return nil, &HTTPError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("failed to read body: %v", readErr)}
		}
		return nil, newHTTPError(resp.StatusCode, respBody)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return data, nil
}
