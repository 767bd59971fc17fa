// Package fakeapi serves an in-memory organization admin API over
// httptest for service and command tests.
package fakeapi

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	DefaultAdminKey = "sk-admin-test"
	basePath        = "/v1/organization"
)

// BaseTime is the created_at of the first seeded object; each further
// object is one hour newer.
var BaseTime = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

type record = map[string]any

// Call is one request observed by the server.
type Call struct {
	Method string
	Path   string
	Query  map[string][]string
	Body   string
}

type failure struct {
	status  int
	code    string
	message string
}

// Server is an in-memory organization API.
type Server struct {
	mu       sync.Mutex
	engine   *gin.Engine
	http     *httptest.Server
	adminKey string
	seq      int
	calls    []Call
	failures map[string]failure

	adminKeys       []record
	invites         []record
	users           []record
	projects        []record
	projectUsers    map[string][]record
	serviceAccounts map[string][]record
	apiKeys         map[string][]record
	rateLimits      map[string][]record
	defaultModels   []string
	auditLogs       []record
	usage           map[string][]record
	usagePageSize   int
	costs           []record
	certificates    []record
	projectCerts    map[string]map[string]bool
}

// New starts a server that accepts DefaultAdminKey.
func New() *Server {
	gin.SetMode(gin.TestMode)
	s := &Server{
		engine:          gin.New(),
		adminKey:        DefaultAdminKey,
		failures:        map[string]failure{},
		projectUsers:    map[string][]record{},
		serviceAccounts: map[string][]record{},
		apiKeys:         map[string][]record{},
		rateLimits:      map[string][]record{},
		usage:           map[string][]record{},
		usagePageSize:   7,
		projectCerts:    map[string]map[string]bool{},
	}
	s.routes()
	s.http = httptest.NewServer(s.engine)
	return s
}

// URL is the organization base URL to hand to the client.
func (s *Server) URL() string { return s.http.URL + basePath }

func (s *Server) Close() { s.http.Close() }

// Fail makes every request matching method and path (relative to the
// organization base, e.g. "projects/proj_0001") return an error.
func (s *Server) Fail(method, path string, status int, code, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[failureKey(method, path)] = failure{status: status, code: code, message: message}
}

// ClearFailures removes injected failures.
func (s *Server) ClearFailures() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = map[string]failure{}
}

// Calls returns a copy of the observed requests.
func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Call, len(s.calls))
	copy(out, s.calls)
	return out
}

// CallCount counts requests with method whose path starts with prefix.
func (s *Server) CallCount(method, prefix string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		if (method == "" || c.Method == method) && strings.HasPrefix(c.Path, prefix) {
			n++
		}
	}
	return n
}

func (s *Server) ResetCalls() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = nil
}

func failureKey(method, path string) string {
	return strings.ToUpper(method) + " " + strings.Trim(path, "/")
}

func (s *Server) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s_%04d", prefix, s.seq)
}

func (s *Server) nextTime() int64 {
	return BaseTime.Add(time.Duration(s.seq) * time.Hour).Unix()
}

func (s *Server) middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		rel := strings.TrimPrefix(c.Request.URL.Path, basePath+"/")
		body, _ := c.GetRawData()
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		s.mu.Lock()
		s.calls = append(s.calls, Call{
			Method: c.Request.Method,
			Path:   rel,
			Query:  c.Request.URL.Query(),
			Body:   string(body),
		})
		f, failing := s.failures[failureKey(c.Request.Method, rel)]
		s.mu.Unlock()

		if c.GetHeader("Authorization") != "Bearer "+s.adminKey {
			abortError(c, http.StatusUnauthorized, "invalid_api_key", "Incorrect API key provided")
			return
		}
		if failing {
			abortError(c, f.status, f.code, f.message)
			return
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		c.Next()
	}
}

func abortError(c *gin.Context, status int, code, message string) {
	payload := gin.H{"message": message, "type": "invalid_request_error"}
	if code != "" {
		payload["code"] = code
	} else {
		payload["code"] = nil
	}
	c.AbortWithStatusJSON(status, gin.H{"error": payload})
}

func notFound(c *gin.Context, kind, id string) {
	abortError(c, http.StatusNotFound, "", fmt.Sprintf("No such %s: %s", kind, id))
}

func bindBody(c *gin.Context, out any) bool {
	if err := c.ShouldBindJSON(out); err != nil {
		abortError(c, http.StatusBadRequest, "invalid_body", err.Error())
		return false
	}
	return true
}

// list renders records as a cursor-paginated list honoring after, before
// and limit.
func list(c *gin.Context, records []record, defaultLimit int) {
	limit := defaultLimit
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	start := 0
	if after := c.Query("after"); after != "" {
		start = len(records)
		for i, r := range records {
			if r["id"] == after {
				start = i + 1
				break
			}
		}
	}
	end := start + limit
	if before := c.Query("before"); before != "" {
		_, idx := find(records, before)
		if idx < 0 {
			idx = 0
		}
		end = idx
		start = end - limit
		if start < 0 {
			start = 0
		}
	}
	if end > len(records) {
		end = len(records)
	}
	page := records[start:end]
	data := make([]record, 0, len(page))
	data = append(data, page...)

	var firstID, lastID any
	if len(data) > 0 {
		firstID = data[0]["id"]
		lastID = data[len(data)-1]["id"]
	}
	c.JSON(http.StatusOK, gin.H{
		"object":   "list",
		"data":     data,
		"first_id": firstID,
		"last_id":  lastID,
		"has_more": end < len(records),
	})
}

func deleted(c *gin.Context, object, id string) {
	c.JSON(http.StatusOK, gin.H{"object": object, "id": id, "deleted": true})
}

func find(records []record, id string) (record, int) {
	for i, r := range records {
		if r["id"] == id {
			return r, i
		}
	}
	return nil, -1
}

func remove(records []record, idx int) []record {
	return append(records[:idx], records[idx+1:]...)
}

func (s *Server) routes() {
	s.engine.Use(s.middleware())
	g := s.engine.Group(basePath)
	s.orgRoutes(g)
	s.projectRoutes(g)
	s.reportRoutes(g)
}
