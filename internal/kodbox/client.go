package kodbox

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/kodbox-tools/caldav-bridge/internal/domain"
)

const (
	loginRoute    = "user/index/loginSubmit"
	taskListRoute = "plugin/project/taskListSelf"

	// KodBox rejects requests that do not look like its own web UI.
	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/138.0.0.0 Safari/537.36"
)

// Client talks to one KodBox instance through its project plugin API.
// It logs in lazily with the configured account and keeps the session
// cookies plus CSRF token for subsequent calls.
type Client struct {
	baseURL    string
	username   string
	password   string
	httpClient *http.Client
	logger     *slog.Logger

	mu        sync.Mutex
	loggedIn  bool
	csrfToken string
}

// NewClient validates the upstream coordinates and returns a client.
// httpClient may be nil; a cookie jar is attached either way because
// the KodBox session lives in cookies.
func NewClient(baseURL, username, password string, httpClient *http.Client, logger *slog.Logger) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("kodbox base URL is required")
	}
	if username == "" || password == "" {
		return nil, fmt.Errorf("kodbox username and password are required")
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if httpClient.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("create cookie jar: %w", err)
		}
		httpClient.Jar = jar
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		username:   username,
		password:   password,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

type loginEnvelope struct {
	Code bool   `json:"code"`
	Info string `json:"info"`
}

type taskListEnvelope struct {
	Code bool `json:"code"`
	Data struct {
		Task    map[string]domain.RawTask    `json:"task"`
		Project map[string]domain.RawProject `json:"project"`
	} `json:"data"`
}

// login obtains a fresh session. KodBox expects the credentials as
// query parameters on a GET and answers with the access token in the
// info field plus a CSRF cookie.
func (c *Client) login(ctx context.Context) error {
	loginURL := fmt.Sprintf("%s/?%s&name=%s&password=%s",
		c.baseURL, loginRoute,
		url.QueryEscape(c.username), url.QueryEscape(c.password))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, loginURL, nil)
	if err != nil {
		return fmt.Errorf("create login request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("login request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("login returned status %d", resp.StatusCode)
	}

	var envelope loginEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("decode login response: %w", err)
	}
	if !envelope.Code || envelope.Info == "" {
		return fmt.Errorf("login rejected for user %q", c.username)
	}

	for _, cookie := range resp.Cookies() {
		if cookie.Name == "CSRF_TOKEN" {
			c.csrfToken = cookie.Value
		}
	}
	c.loggedIn = true
	c.logger.Info("kodbox login succeeded", "username", c.username, "has_csrf", c.csrfToken != "")
	return nil
}

// FetchAllProjects pulls the account's full task list and groups it
// into projects. One malformed record never fails the fetch: bad
// tasks are logged and skipped, tasks pointing at an unlisted project
// get a placeholder project.
func (c *Client) FetchAllProjects(ctx context.Context) ([]domain.Project, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.loggedIn {
		if err := c.login(ctx); err != nil {
			return nil, err
		}
	}

	envelope, err := c.fetchTaskList(ctx)
	if err != nil {
		return nil, err
	}
	if !envelope.Code {
		// Session expired; log in once more and retry.
		c.logger.Warn("kodbox session rejected, logging in again")
		c.loggedIn = false
		if err := c.login(ctx); err != nil {
			return nil, err
		}
		envelope, err = c.fetchTaskList(ctx)
		if err != nil {
			return nil, err
		}
		if !envelope.Code {
			return nil, fmt.Errorf("task list rejected after re-login")
		}
	}

	return c.groupProjects(envelope), nil
}

func (c *Client) fetchTaskList(ctx context.Context) (*taskListEnvelope, error) {
	form := url.Values{"API_ROUTE": {taskListRoute}}
	if c.csrfToken != "" {
		form.Set("CSRF_TOKEN", c.csrfToken)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/index.php", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create task list request: %w", err)
	}
	c.setHeaders(req)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=UTF-8")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("task list request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("task list returned status %d", resp.StatusCode)
	}

	var envelope taskListEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("decode task list response: %w", err)
	}
	return &envelope, nil
}

func (c *Client) groupProjects(envelope *taskListEnvelope) []domain.Project {
	byID := make(map[string]*domain.Project, len(envelope.Data.Project))
	for projectID, raw := range envelope.Data.Project {
		p := domain.NewProjectFromRaw(projectID, raw)
		byID[projectID] = &p
	}

	taskIDs := sortedKeys(envelope.Data.Task)
	for _, taskID := range taskIDs {
		raw := envelope.Data.Task[taskID]
		projectID := raw.ProjectID.String()
		if projectID == "" {
			c.logger.Warn("task has no project, skipping", "task_id", taskID)
			continue
		}
		project, ok := byID[projectID]
		if !ok {
			c.logger.Warn("task points at unlisted project, creating placeholder",
				"task_id", taskID, "project_id", projectID)
			p := domain.PlaceholderProject(projectID)
			project = &p
			byID[projectID] = project
		}
		result := domain.NewTaskFromRaw(taskID, raw, projectID)
		if err := result.Error(); err != nil {
			c.logger.Warn("task record rejected, skipping", "task_id", taskID, "error", err)
			continue
		}
		project.Tasks = append(project.Tasks, result.MustGet())
	}

	projects := make([]domain.Project, 0, len(byID))
	for _, id := range sortedKeys(byID) {
		projects = append(projects, *byID[id])
	}
	c.logger.Info("kodbox fetch complete",
		"projects", len(projects), "tasks", len(envelope.Data.Task))
	return projects
}

// sortedKeys orders map keys numerically where both sides are
// numbers, lexicographically otherwise. KodBox ids are decimal
// strings, so this yields a stable, human-sensible order.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, errA := strconv.ParseInt(keys[i], 10, 64)
		b, errB := strconv.ParseInt(keys[j], 10, 64)
		if errA == nil && errB == nil {
			return a < b
		}
		return keys[i] < keys[j]
	})
	return keys
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json, text/javascript, */*; q=0.01")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	req.Header.Set("Cache-Control", "no-cache")
}
