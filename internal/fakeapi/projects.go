package fakeapi

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// AddProject seeds an active project.
func (s *Server) AddProject(name string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addProject(name)
}

func (s *Server) addProject(name string) string {
	id := s.nextID("proj")
	s.projects = append(s.projects, record{
		"object":      "organization.project",
		"id":          id,
		"name":        name,
		"status":      "active",
		"created_at":  s.nextTime(),
		"archived_at": nil,
	})
	return id
}

// ArchiveProject marks a seeded project archived.
func (s *Server) ArchiveProject(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, _ := find(s.projects, id); r != nil {
		r["status"] = "archived"
		r["archived_at"] = s.nextTime()
	}
}

// ProjectStatus returns the status of a project, or "" when unknown.
func (s *Server) ProjectStatus(id string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, _ := find(s.projects, id)
	if r == nil {
		return ""
	}
	return r["status"].(string)
}

// AddProjectUser adds an organization user to a project.
func (s *Server) AddProjectUser(projectID, userID, role string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addProjectUser(projectID, userID, role)
}

func (s *Server) addProjectUser(projectID, userID, role string) record {
	u, _ := find(s.users, userID)
	r := record{
		"object":   "organization.project.user",
		"id":       userID,
		"role":     role,
		"added_at": s.nextTime(),
	}
	if u != nil {
		r["name"] = u["name"]
		r["email"] = u["email"]
	}
	s.projectUsers[projectID] = append(s.projectUsers[projectID], r)
	return r
}

// ProjectUserIDs lists member ids of a project.
func (s *Server) ProjectUserIDs(projectID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []string{}
	for _, r := range s.projectUsers[projectID] {
		out = append(out, r["id"].(string))
	}
	return out
}

// AddServiceAccount seeds a service account and the API key it owns.
// createdAt is Unix seconds; 0 uses the next sequence time.
func (s *Server) AddServiceAccount(projectID, name string, createdAt int64) (string, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sa, key := s.addServiceAccount(projectID, name, createdAt)
	return sa["id"].(string), key["id"].(string)
}

func (s *Server) addServiceAccount(projectID, name string, createdAt int64) (record, record) {
	id := s.nextID("svc_acct")
	if createdAt == 0 {
		createdAt = s.nextTime()
	}
	sa := record{
		"object":     "organization.project.service_account",
		"id":         id,
		"name":       name,
		"role":       "member",
		"created_at": createdAt,
	}
	s.serviceAccounts[projectID] = append(s.serviceAccounts[projectID], sa)

	keyID := s.nextID("key")
	key := record{
		"object":         "organization.project.api_key",
		"id":             keyID,
		"name":           "Secret Key",
		"redacted_value": "sk-svcacct-********************" + keyID[len(keyID)-4:],
		"created_at":     createdAt,
		"last_used_at":   nil,
		"owner": record{
			"type": "service_account",
			"service_account": record{
				"object": "organization.project.service_account", "id": id,
				"name": name, "role": "member", "created_at": createdAt,
			},
		},
	}
	s.apiKeys[projectID] = append(s.apiKeys[projectID], key)
	return sa, key
}

// ServiceAccountNames lists the service account names of a project.
func (s *Server) ServiceAccountNames(projectID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []string{}
	for _, r := range s.serviceAccounts[projectID] {
		out = append(out, r["name"].(string))
	}
	return out
}

// AddUserAPIKey seeds a project API key owned by a user.
func (s *Server) AddUserAPIKey(projectID, userID, name string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, _ := find(s.users, userID)
	owner := record{"object": "organization.project.user", "id": userID, "role": "owner"}
	if u != nil {
		owner["name"] = u["name"]
		owner["email"] = u["email"]
	}
	keyID := s.nextID("key")
	s.apiKeys[projectID] = append(s.apiKeys[projectID], record{
		"object":         "organization.project.api_key",
		"id":             keyID,
		"name":           name,
		"redacted_value": "sk-proj-********************" + keyID[len(keyID)-4:],
		"created_at":     s.nextTime(),
		"last_used_at":   s.nextTime(),
		"owner":          record{"type": "user", "user": owner},
	})
	return keyID
}

// AddRateLimit seeds a model rate limit for a project.
func (s *Server) AddRateLimit(projectID, model string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addRateLimit(projectID, model)
}

// DefaultRateLimits makes projects created through the API start with a
// rate limit for each model.
func (s *Server) DefaultRateLimits(models ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.defaultModels = append([]string(nil), models...)
}

func (s *Server) addRateLimit(projectID, model string) string {
	id := "rl-" + model
	s.rateLimits[projectID] = append(s.rateLimits[projectID], record{
		"object":                       "project.rate_limit",
		"id":                           id,
		"model":                        model,
		"max_requests_per_1_minute":    500,
		"max_tokens_per_1_minute":      30000,
		"max_requests_per_1_day":       10000,
		"batch_1_day_max_input_tokens": 90000,
	})
	return id
}

// RateLimit returns a copy of a project's rate limit by id.
func (s *Server) RateLimit(projectID, id string) map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, _ := find(s.rateLimits[projectID], id)
	out := map[string]any{}
	for k, v := range r {
		out[k] = v
	}
	return out
}

func (s *Server) project(c *gin.Context) record {
	r, _ := find(s.projects, c.Param("project_id"))
	if r == nil {
		notFound(c, "project", c.Param("project_id"))
		return nil
	}
	return r
}

func (s *Server) activeProject(c *gin.Context) record {
	p := s.project(c)
	if p == nil {
		return nil
	}
	if p["status"] == "archived" {
		abortError(c, http.StatusBadRequest, "project_archived", "Project "+p["id"].(string)+" is archived")
		return nil
	}
	return p
}

func (s *Server) projectRoutes(g *gin.RouterGroup) {
	g.GET("/projects", func(c *gin.Context) {
		if c.Query("include_archived") == "true" {
			list(c, s.projects, 20)
			return
		}
		active := []record{}
		for _, p := range s.projects {
			if p["status"] != "archived" {
				active = append(active, p)
			}
		}
		list(c, active, 20)
	})
	g.POST("/projects", func(c *gin.Context) {
		var body struct {
			Name string `json:"name"`
		}
		if !bindBody(c, &body) {
			return
		}
		id := s.addProject(body.Name)
		for _, model := range s.defaultModels {
			s.addRateLimit(id, model)
		}
		r, _ := find(s.projects, id)
		c.JSON(http.StatusOK, r)
	})
	g.GET("/projects/:project_id", func(c *gin.Context) {
		if p := s.project(c); p != nil {
			c.JSON(http.StatusOK, p)
		}
	})
	g.POST("/projects/:project_id", func(c *gin.Context) {
		p := s.activeProject(c)
		if p == nil {
			return
		}
		var body struct {
			Name string `json:"name"`
		}
		if !bindBody(c, &body) {
			return
		}
		p["name"] = body.Name
		c.JSON(http.StatusOK, p)
	})
	g.POST("/projects/:project_id/archive", func(c *gin.Context) {
		p := s.activeProject(c)
		if p == nil {
			return
		}
		p["status"] = "archived"
		p["archived_at"] = s.nextTime()
		c.JSON(http.StatusOK, p)
	})

	g.GET("/projects/:project_id/users", func(c *gin.Context) {
		if s.project(c) != nil {
			list(c, s.projectUsers[c.Param("project_id")], 20)
		}
	})
	g.POST("/projects/:project_id/users", func(c *gin.Context) {
		p := s.activeProject(c)
		if p == nil {
			return
		}
		var body struct {
			UserID string `json:"user_id"`
			Role   string `json:"role"`
		}
		if !bindBody(c, &body) {
			return
		}
		if u, _ := find(s.users, body.UserID); u == nil {
			notFound(c, "user", body.UserID)
			return
		}
		if existing, _ := find(s.projectUsers[p["id"].(string)], body.UserID); existing != nil {
			abortError(c, http.StatusBadRequest, "user_already_in_project", "User already exists in project")
			return
		}
		c.JSON(http.StatusOK, s.addProjectUser(p["id"].(string), body.UserID, body.Role))
	})
	g.GET("/projects/:project_id/users/:user_id", func(c *gin.Context) {
		if s.project(c) == nil {
			return
		}
		r, _ := find(s.projectUsers[c.Param("project_id")], c.Param("user_id"))
		if r == nil {
			notFound(c, "project user", c.Param("user_id"))
			return
		}
		c.JSON(http.StatusOK, r)
	})
	g.POST("/projects/:project_id/users/:user_id", func(c *gin.Context) {
		if s.activeProject(c) == nil {
			return
		}
		r, _ := find(s.projectUsers[c.Param("project_id")], c.Param("user_id"))
		if r == nil {
			notFound(c, "project user", c.Param("user_id"))
			return
		}
		var body struct {
			Role string `json:"role"`
		}
		if !bindBody(c, &body) {
			return
		}
		r["role"] = body.Role
		c.JSON(http.StatusOK, r)
	})
	g.DELETE("/projects/:project_id/users/:user_id", func(c *gin.Context) {
		p := s.project(c)
		if p == nil {
			return
		}
		pid := c.Param("project_id")
		r, idx := find(s.projectUsers[pid], c.Param("user_id"))
		if r == nil || p["status"] == "archived" {
			notFound(c, "user", c.Param("user_id"))
			return
		}
		if u, _ := find(s.users, c.Param("user_id")); u != nil && u["role"] == "owner" {
			abortError(c, http.StatusBadRequest, "user_organization_owner", "Organization owners cannot be removed from projects")
			return
		}
		s.projectUsers[pid] = remove(s.projectUsers[pid], idx)
		deleted(c, "organization.project.user.deleted", c.Param("user_id"))
	})

	g.GET("/projects/:project_id/service_accounts", func(c *gin.Context) {
		if s.project(c) != nil {
			list(c, s.serviceAccounts[c.Param("project_id")], 20)
		}
	})
	g.POST("/projects/:project_id/service_accounts", func(c *gin.Context) {
		p := s.activeProject(c)
		if p == nil {
			return
		}
		var body struct {
			Name string `json:"name"`
		}
		if !bindBody(c, &body) {
			return
		}
		sa, key := s.addServiceAccount(p["id"].(string), body.Name, 0)
		out := record{}
		for k, v := range sa {
			out[k] = v
		}
		out["api_key"] = record{
			"object":     "organization.project.service_account.api_key",
			"id":         key["id"],
			"name":       key["name"],
			"value":      "sk-svcacct-" + strings.Repeat("z", 16) + key["id"].(string),
			"created_at": key["created_at"],
		}
		c.JSON(http.StatusOK, out)
	})
	g.GET("/projects/:project_id/service_accounts/:service_account_id", func(c *gin.Context) {
		if s.project(c) == nil {
			return
		}
		r, _ := find(s.serviceAccounts[c.Param("project_id")], c.Param("service_account_id"))
		if r == nil {
			notFound(c, "service account", c.Param("service_account_id"))
			return
		}
		c.JSON(http.StatusOK, r)
	})
	g.DELETE("/projects/:project_id/service_accounts/:service_account_id", func(c *gin.Context) {
		if s.project(c) == nil {
			return
		}
		pid, sid := c.Param("project_id"), c.Param("service_account_id")
		_, idx := find(s.serviceAccounts[pid], sid)
		if idx < 0 {
			notFound(c, "service account", sid)
			return
		}
		s.serviceAccounts[pid] = remove(s.serviceAccounts[pid], idx)
		kept := []record{}
		for _, k := range s.apiKeys[pid] {
			owner, _ := k["owner"].(record)
			if sa, ok := owner["service_account"].(record); ok && sa["id"] == sid {
				continue
			}
			kept = append(kept, k)
		}
		s.apiKeys[pid] = kept
		deleted(c, "organization.project.service_account.deleted", sid)
	})

	g.GET("/projects/:project_id/api_keys", func(c *gin.Context) {
		if s.project(c) != nil {
			list(c, s.apiKeys[c.Param("project_id")], 20)
		}
	})
	g.GET("/projects/:project_id/api_keys/:key_id", func(c *gin.Context) {
		if s.project(c) == nil {
			return
		}
		r, _ := find(s.apiKeys[c.Param("project_id")], c.Param("key_id"))
		if r == nil {
			notFound(c, "api key", c.Param("key_id"))
			return
		}
		c.JSON(http.StatusOK, r)
	})
	g.DELETE("/projects/:project_id/api_keys/:key_id", func(c *gin.Context) {
		if s.project(c) == nil {
			return
		}
		pid := c.Param("project_id")
		r, idx := find(s.apiKeys[pid], c.Param("key_id"))
		if r == nil {
			notFound(c, "api key", c.Param("key_id"))
			return
		}
		if owner, _ := r["owner"].(record); owner["type"] == "service_account" {
			abortError(c, http.StatusBadRequest, "service_account_key", "Service account keys cannot be deleted directly")
			return
		}
		s.apiKeys[pid] = remove(s.apiKeys[pid], idx)
		deleted(c, "organization.project.api_key.deleted", c.Param("key_id"))
	})

	g.GET("/projects/:project_id/rate_limits", func(c *gin.Context) {
		if s.project(c) != nil {
			list(c, s.rateLimits[c.Param("project_id")], 100)
		}
	})
	g.POST("/projects/:project_id/rate_limits/:rate_limit_id", func(c *gin.Context) {
		if s.activeProject(c) == nil {
			return
		}
		r, _ := find(s.rateLimits[c.Param("project_id")], c.Param("rate_limit_id"))
		if r == nil {
			notFound(c, "rate limit", c.Param("rate_limit_id"))
			return
		}
		var body map[string]any
		if !bindBody(c, &body) {
			return
		}
		for k, v := range body {
			r[k] = v
		}
		c.JSON(http.StatusOK, r)
	})

	g.GET("/projects/:project_id/certificates", func(c *gin.Context) {
		if s.project(c) == nil {
			return
		}
		out := []record{}
		for _, cert := range s.certificates {
			id := cert["id"].(string)
			if active, ok := s.projectCerts[c.Param("project_id")][id]; ok {
				out = append(out, record{"object": "certificate", "id": id, "name": cert["name"], "active": active, "created_at": cert["created_at"]})
			}
		}
		list(c, out, 20)
	})
	g.POST("/projects/:project_id/certificates/activate", func(c *gin.Context) {
		if s.activeProject(c) != nil {
			s.toggleCertificates(c, c.Param("project_id"), true)
		}
	})
	g.POST("/projects/:project_id/certificates/deactivate", func(c *gin.Context) {
		if s.activeProject(c) != nil {
			s.toggleCertificates(c, c.Param("project_id"), false)
		}
	})
}
