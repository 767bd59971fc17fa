package fakeapi

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// AddAuditLog seeds an audit log entry.
func (s *Server) AddAuditLog(eventType string, effectiveAt int64, projectID, actorEmail string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID("audit_log")
	entry := record{
		"id":           id,
		"type":         eventType,
		"effective_at": effectiveAt,
		"actor": record{
			"type": "session",
			"session": record{
				"user":       record{"id": "user_actor", "email": actorEmail},
				"ip_address": "127.0.0.1",
			},
		},
	}
	if projectID != "" {
		entry["project"] = record{"id": projectID, "name": projectID}
	}
	entry[eventType] = record{"id": id}
	s.auditLogs = append(s.auditLogs, entry)
	return id
}

// SetUsageBuckets replaces the buckets served for a usage category, or
// for costs when category is "costs".
func (s *Server) SetUsageBuckets(category string, buckets []map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]record, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, record(b))
	}
	if category == "costs" {
		s.costs = out
		return
	}
	s.usage[category] = out
}

func (s *Server) reportRoutes(g *gin.RouterGroup) {
	g.GET("/audit_logs", func(c *gin.Context) {
		types := c.QueryArray("event_types[]")
		projects := c.QueryArray("project_ids[]")
		emails := c.QueryArray("actor_emails[]")
		gte, _ := strconv.ParseInt(c.Query("effective_at[gte]"), 10, 64)
		lte, _ := strconv.ParseInt(c.Query("effective_at[lte]"), 10, 64)

		filtered := []record{}
		for _, e := range s.auditLogs {
			if len(types) > 0 && !contains(types, e["type"].(string)) {
				continue
			}
			if len(projects) > 0 {
				p, _ := e["project"].(record)
				id, _ := p["id"].(string)
				if !contains(projects, id) {
					continue
				}
			}
			if len(emails) > 0 {
				actor, _ := e["actor"].(record)
				session, _ := actor["session"].(record)
				user, _ := session["user"].(record)
				email, _ := user["email"].(string)
				if !contains(emails, email) {
					continue
				}
			}
			at := e["effective_at"].(int64)
			if gte > 0 && at < gte {
				continue
			}
			if lte > 0 && at > lte {
				continue
			}
			filtered = append(filtered, e)
		}
		list(c, filtered, 20)
	})

	g.GET("/usage/:category", func(c *gin.Context) {
		if c.Query("start_time") == "" {
			abortError(c, http.StatusBadRequest, "missing_required_parameter", "start_time is required")
			return
		}
		page(c, s.usage[c.Param("category")], s.usagePageSize)
	})
	g.GET("/costs", func(c *gin.Context) {
		if c.Query("start_time") == "" {
			abortError(c, http.StatusBadRequest, "missing_required_parameter", "start_time is required")
			return
		}
		page(c, s.costs, s.usagePageSize)
	})
}

// page renders buckets as a usage page, continued by a numeric next_page.
func page(c *gin.Context, buckets []record, defaultLimit int) {
	limit := defaultLimit
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	start := 0
	if token := strings.TrimPrefix(c.Query("page"), "page_"); token != "" {
		if parsed, err := strconv.Atoi(token); err == nil {
			start = parsed
		}
	}
	if start > len(buckets) {
		start = len(buckets)
	}
	end := start + limit
	if end > len(buckets) {
		end = len(buckets)
	}
	data := make([]record, 0, end-start)
	data = append(data, buckets[start:end]...)

	var next any
	if end < len(buckets) {
		next = "page_" + strconv.Itoa(end)
	}
	c.JSON(http.StatusOK, gin.H{
		"object":    "page",
		"data":      data,
		"has_more":  end < len(buckets),
		"next_page": next,
	})
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
