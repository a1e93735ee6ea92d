package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/justyntemme/tales-t/pkg/models"
)

const (
	// DefaultAPIPrefix is where the story API is mounted on the server
	DefaultAPIPrefix = "/stories/api"
	// DefaultTimeout bounds every request
	DefaultTimeout = 30 * time.Second

	readerPagePath = "/stories/"
)

// Client is the HTTP client for the story API
type Client struct {
	base       *url.URL
	apiPrefix  string
	jar        http.CookieJar
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures a Client
type Option func(*Client)

// WithTimeout overrides the request timeout
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithLogger sets the logger used for request tracing
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithAPIPrefix overrides the path the API is mounted under
func WithAPIPrefix(prefix string) Option {
	return func(c *Client) {
		c.apiPrefix = strings.TrimRight(prefix, "/")
	}
}

// WithTransport replaces the HTTP transport, mostly for tests
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) {
		c.httpClient.Transport = rt
	}
}

// NewClient creates a new API client for the server at baseURL
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid server url %q: %w", baseURL, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid server url %q: scheme and host required", baseURL)
	}

	// cookiejar.New only fails on bad options
	jar, _ := cookiejar.New(nil)

	c := &Client{
		base:      base,
		apiPrefix: DefaultAPIPrefix,
		jar:       jar,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
			Jar:     jar,
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the server root the client talks to
func (c *Client) BaseURL() string {
	return c.base.String()
}

// request makes an HTTP request to the API
func (c *Client) request(ctx context.Context, op, method, path string, body any) (*http.Response, error) {
	return c.send(ctx, op, method, c.base.String()+c.apiPrefix+path, body)
}

// send performs a request against an absolute target URL
func (c *Client) send(ctx context.Context, op, method, target string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, &Error{Op: op, Kind: ErrNetwork, Err: err}
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, bodyReader)
	if err != nil {
		return nil, &Error{Op: op, Kind: ErrNetwork, Err: err}
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	requestID := newRequestID()
	req.Header.Set("X-Request-ID", requestID)
	if method != http.MethodGet && method != http.MethodHead {
		if token := c.CSRFToken(); token != "" {
			req.Header.Set(CSRFHeader, token)
		}
		// The server checks the referer on secure origins
		req.Header.Set("Referer", c.base.String()+readerPagePath)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("api request failed",
			slog.String("op", op),
			slog.String("request_id", requestID),
			slog.Any("error", err),
		)
		return nil, &Error{Op: op, Kind: ErrNetwork, Err: err}
	}
	c.logger.Debug("api request",
		slog.String("op", op),
		slog.String("method", method),
		slog.String("url", target),
		slog.Int("status", resp.StatusCode),
		slog.String("request_id", requestID),
		slog.Duration("elapsed", time.Since(start)),
	)
	return resp, nil
}

func newRequestID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// parseResponse reads and unmarshals the response body. Non-2xx responses
// are reported with the given failure kind.
func parseResponse[T any](resp *http.Response, op string, kind error) (T, error) {
	var result T
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return result, &Error{Op: op, Kind: ErrNetwork, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return result, statusError(op, kind, resp.StatusCode, body)
	}

	if len(bytes.TrimSpace(body)) == 0 {
		return result, nil
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return result, &Error{Op: op, Kind: ErrStatus, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}

	return result, nil
}

// expectSuccess drains the body and checks the status
func expectSuccess(resp *http.Response, op string, kind error) error {
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(op, kind, resp.StatusCode, body)
	}
	return nil
}

// maxMessageRunes caps how much of a server error body ends up in an Error
const maxMessageRunes = 200

func statusError(op string, kind error, status int, body []byte) *Error {
	var errResp models.ErrorResponse
	msg := strings.TrimSpace(string(body))
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Message() != "" {
		msg = errResp.Message()
	}
	if utf8.RuneCountInString(msg) > maxMessageRunes {
		msg = string([]rune(msg)[:maxMessageRunes])
	}
	return &Error{Op: op, Kind: kind, StatusCode: status, Message: msg}
}

func idPath(format string, id int64) string {
	return fmt.Sprintf(format, strconv.FormatInt(id, 10))
}

// Authentication methods

// PrimeCSRF loads the reader page so the server issues a CSRF cookie
func (c *Client) PrimeCSRF(ctx context.Context) error {
	resp, err := c.send(ctx, "prime csrf", http.MethodGet, c.base.String()+readerPagePath, nil)
	if err != nil {
		return err
	}
	return expectSuccess(resp, "prime csrf", ErrStatus)
}

// Login creates or authenticates a reader by email
func (c *Client) Login(ctx context.Context, email string) (*models.LoginResponse, error) {
	if c.CSRFToken() == "" {
		if err := c.PrimeCSRF(ctx); err != nil {
			c.logger.Warn("could not obtain csrf cookie", slog.Any("error", err))
		}
	}
	resp, err := c.request(ctx, "login", http.MethodPost, "/auth/login/", map[string]string{
		"email": email,
	})
	if err != nil {
		return nil, err
	}
	return parseResponse[*models.LoginResponse](resp, "login", ErrAuth)
}

// Story methods

// ListStories returns story summaries
func (c *Client) ListStories(ctx context.Context) ([]models.Story, error) {
	resp, err := c.request(ctx, "list stories", http.MethodGet, "/stories/", nil)
	if err != nil {
		return nil, err
	}
	return parseResponse[[]models.Story](resp, "list stories", ErrStatus)
}

// GetStory returns a single story
func (c *Client) GetStory(ctx context.Context, id int64) (*models.Story, error) {
	resp, err := c.request(ctx, "get story", http.MethodGet, idPath("/stories/%s/", id), nil)
	if err != nil {
		return nil, err
	}
	return parseResponse[*models.Story](resp, "get story", ErrStatus)
}

// ListChapters returns a story's chapters ordered by number
func (c *Client) ListChapters(ctx context.Context, storyID int64) ([]models.Chapter, error) {
	resp, err := c.request(ctx, "list chapters", http.MethodGet, idPath("/stories/%s/chapters/", storyID), nil)
	if err != nil {
		return nil, err
	}
	chapters, err := parseResponse[[]models.Chapter](resp, "list chapters", ErrStatus)
	if err != nil {
		return nil, err
	}
	models.SortChapters(chapters)
	return chapters, nil
}

// GetChapter returns a single chapter
func (c *Client) GetChapter(ctx context.Context, id int64) (*models.Chapter, error) {
	resp, err := c.request(ctx, "get chapter", http.MethodGet, idPath("/chapters/%s/", id), nil)
	if err != nil {
		return nil, err
	}
	return parseResponse[*models.Chapter](resp, "get chapter", ErrStatus)
}

// Paragraph methods

// ListParagraphs returns one page of a chapter's paragraphs
func (c *Client) ListParagraphs(ctx context.Context, chapterID int64, page int) (*models.ParagraphPage, error) {
	if page < 1 {
		page = 1
	}
	path := idPath("/chapters/%s/paragraphs/", chapterID) + "?page=" + strconv.Itoa(page)
	resp, err := c.request(ctx, "list paragraphs", http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	return parseResponse[*models.ParagraphPage](resp, "list paragraphs", ErrStatus)
}

// GetParagraph returns a single paragraph
func (c *Client) GetParagraph(ctx context.Context, id int64) (*models.Paragraph, error) {
	resp, err := c.request(ctx, "get paragraph", http.MethodGet, idPath("/paragraphs/%s/", id), nil)
	if err != nil {
		return nil, err
	}
	return parseResponse[*models.Paragraph](resp, "get paragraph", ErrStatus)
}

// UnlockParagraph pays the advertised price to unlock a paragraph
func (c *Client) UnlockParagraph(ctx context.Context, id int64, price decimal.Decimal) error {
	resp, err := c.request(ctx, "unlock paragraph", http.MethodPost, idPath("/paragraphs/%s/unlock/", id), map[string]any{
		"amount": price,
	})
	if err != nil {
		return err
	}
	return expectSuccess(resp, "unlock paragraph", ErrStatus)
}

// Reading progress methods

// GetReadingProgress returns the reader's stored progress records for a story
func (c *Client) GetReadingProgress(ctx context.Context, storyID int64) ([]models.ReadingProgress, error) {
	path := "/reading-progress/?" + url.Values{"story": {strconv.FormatInt(storyID, 10)}}.Encode()
	resp, err := c.request(ctx, "get reading progress", http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	return parseResponse[[]models.ReadingProgress](resp, "get reading progress", ErrStatus)
}

// PostReadingProgress upserts the current position
func (c *Client) PostReadingProgress(ctx context.Context, update models.ProgressUpdate) error {
	resp, err := c.request(ctx, "post reading progress", http.MethodPost, "/reading-progress/", update)
	if err != nil {
		return err
	}
	return expectSuccess(resp, "post reading progress", ErrStatus)
}

// MarkViewed records a paragraph view. The server treats repeats as no-ops.
func (c *Client) MarkViewed(ctx context.Context, event models.ViewEvent) error {
	resp, err := c.request(ctx, "mark viewed", http.MethodPost, "/reading-progress/mark_viewed/", event)
	if err != nil {
		return err
	}
	return expectSuccess(resp, "mark viewed", ErrStatus)
}

// NavigationHistory returns the reader's ordered paragraph views for a story
func (c *Client) NavigationHistory(ctx context.Context, storyID int64) ([]models.HistoryEntry, error) {
	path := "/reading-progress/navigation_history/?" + url.Values{"story": {strconv.FormatInt(storyID, 10)}}.Encode()
	resp, err := c.request(ctx, "navigation history", http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	return parseResponse[[]models.HistoryEntry](resp, "navigation history", ErrStatus)
}

// Generation methods

// GenerateNextPage asks the server to write the first paragraph of the page
// after currentPage
func (c *Client) GenerateNextPage(ctx context.Context, chapterID int64, currentPage int) (*models.Paragraph, error) {
	resp, err := c.request(ctx, "generate next page", http.MethodPost, idPath("/chapters/%s/generate_next_page/", chapterID), map[string]int{
		"current_page": currentPage,
	})
	if err != nil {
		return nil, err
	}
	return parseResponse[*models.Paragraph](resp, "generate next page", ErrGeneration)
}

// GenerateNextParagraph asks the server to append a paragraph to page
func (c *Client) GenerateNextParagraph(ctx context.Context, chapterID int64, page int) (*models.Paragraph, error) {
	path := idPath("/chapters/%s/generate_paragraph/", chapterID) + "?page=" + strconv.Itoa(page)
	resp, err := c.request(ctx, "generate next paragraph", http.MethodPost, path, nil)
	if err != nil {
		return nil, err
	}
	return parseResponse[*models.Paragraph](resp, "generate next paragraph", ErrGeneration)
}

// Health check

// Health checks if the API root answers
func (c *Client) Health(ctx context.Context) error {
	resp, err := c.request(ctx, "health", http.MethodGet, "/", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &Error{Op: "health", Kind: ErrStatus, StatusCode: resp.StatusCode}
	}
	return nil
}
