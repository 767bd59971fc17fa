package fakeapi

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// AddAdminKey seeds an admin API key owned by a user.
func (s *Server) AddAdminKey(name string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addAdminKey(name)
}

func (s *Server) addAdminKey(name string) string {
	id := s.nextID("key")
	s.adminKeys = append(s.adminKeys, record{
		"object":         "organization.admin_api_key",
		"id":             id,
		"name":           name,
		"redacted_value": "sk-admin-********************" + id[len(id)-4:],
		"created_at":     s.nextTime(),
		"last_used_at":   nil,
		"owner": record{
			"type": "user", "object": "organization.user", "id": "user_owner",
			"name": "Owner", "role": "owner", "created_at": s.nextTime(),
		},
	})
	return id
}

// AddInvite seeds a pending invite.
func (s *Server) AddInvite(email, role string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addInvite(email, role, nil)
}

func (s *Server) addInvite(email, role string, projects []any) string {
	id := s.nextID("invite")
	now := s.nextTime()
	s.invites = append(s.invites, record{
		"object":      "organization.invite",
		"id":          id,
		"email":       email,
		"role":        role,
		"status":      "pending",
		"invited_at":  now,
		"expires_at":  now + 7*86400,
		"accepted_at": nil,
		"projects":    projects,
	})
	return id
}

// AddUser seeds an organization user.
func (s *Server) AddUser(name, email, role string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID("user")
	s.users = append(s.users, record{
		"object":   "organization.user",
		"id":       id,
		"name":     name,
		"email":    email,
		"role":     role,
		"added_at": s.nextTime(),
	})
	return id
}

// AddCertificate seeds an organization certificate.
func (s *Server) AddCertificate(name string, active bool) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addCertificate(name, "-----BEGIN CERTIFICATE-----\nMIIB\n-----END CERTIFICATE-----", active)
}

func (s *Server) addCertificate(name, content string, active bool) string {
	id := s.nextID("cert")
	now := s.nextTime()
	s.certificates = append(s.certificates, record{
		"object":     "certificate",
		"id":         id,
		"name":       name,
		"active":     active,
		"created_at": now,
		"certificate_details": record{
			"valid_at":   now,
			"expires_at": now + 365*86400,
			"content":    content,
		},
	})
	return id
}

// CertificateActive reports the activation flag of an organization certificate.
func (s *Server) CertificateActive(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, _ := find(s.certificates, id)
	active, _ := r["active"].(bool)
	return active
}

func (s *Server) orgRoutes(g *gin.RouterGroup) {
	g.GET("/admin_api_keys", func(c *gin.Context) { list(c, s.adminKeys, 20) })
	g.POST("/admin_api_keys", func(c *gin.Context) {
		var body struct {
			Name string `json:"name"`
		}
		if !bindBody(c, &body) {
			return
		}
		id := s.addAdminKey(body.Name)
		r, _ := find(s.adminKeys, id)
		out := record{}
		for k, v := range r {
			out[k] = v
		}
		out["value"] = "sk-admin-" + strings.Repeat("x", 20) + id
		c.JSON(http.StatusOK, out)
	})
	g.GET("/admin_api_keys/:key_id", func(c *gin.Context) {
		r, _ := find(s.adminKeys, c.Param("key_id"))
		if r == nil {
			notFound(c, "admin api key", c.Param("key_id"))
			return
		}
		c.JSON(http.StatusOK, r)
	})
	g.DELETE("/admin_api_keys/:key_id", func(c *gin.Context) {
		_, idx := find(s.adminKeys, c.Param("key_id"))
		if idx < 0 {
			notFound(c, "admin api key", c.Param("key_id"))
			return
		}
		s.adminKeys = remove(s.adminKeys, idx)
		deleted(c, "organization.admin_api_key.deleted", c.Param("key_id"))
	})

	g.GET("/invites", func(c *gin.Context) { list(c, s.invites, 20) })
	g.POST("/invites", func(c *gin.Context) {
		var body struct {
			Email    string `json:"email"`
			Role     string `json:"role"`
			Projects []any  `json:"projects"`
		}
		if !bindBody(c, &body) {
			return
		}
		for _, u := range s.users {
			if strings.EqualFold(u["email"].(string), body.Email) {
				abortError(c, http.StatusBadRequest, "user_already_exists", "User is already a member of the organization")
				return
			}
		}
		id := s.addInvite(body.Email, body.Role, body.Projects)
		r, _ := find(s.invites, id)
		c.JSON(http.StatusOK, r)
	})
	g.GET("/invites/:invite_id", func(c *gin.Context) {
		r, _ := find(s.invites, c.Param("invite_id"))
		if r == nil {
			notFound(c, "invite", c.Param("invite_id"))
			return
		}
		c.JSON(http.StatusOK, r)
	})
	g.DELETE("/invites/:invite_id", func(c *gin.Context) {
		r, idx := find(s.invites, c.Param("invite_id"))
		if r == nil {
			notFound(c, "invite", c.Param("invite_id"))
			return
		}
		if r["status"] == "accepted" {
			abortError(c, http.StatusBadRequest, "invite_accepted", "Accepted invites cannot be deleted")
			return
		}
		s.invites = remove(s.invites, idx)
		deleted(c, "organization.invite.deleted", c.Param("invite_id"))
	})

	g.GET("/users", func(c *gin.Context) {
		emails := c.QueryArray("emails[]")
		if len(emails) == 0 {
			list(c, s.users, 20)
			return
		}
		filtered := []record{}
		for _, u := range s.users {
			for _, e := range emails {
				if strings.EqualFold(u["email"].(string), e) {
					filtered = append(filtered, u)
				}
			}
		}
		list(c, filtered, 20)
	})
	g.GET("/users/:user_id", func(c *gin.Context) {
		r, _ := find(s.users, c.Param("user_id"))
		if r == nil {
			notFound(c, "user", c.Param("user_id"))
			return
		}
		c.JSON(http.StatusOK, r)
	})
	g.POST("/users/:user_id", func(c *gin.Context) {
		r, _ := find(s.users, c.Param("user_id"))
		if r == nil {
			notFound(c, "user", c.Param("user_id"))
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
	g.DELETE("/users/:user_id", func(c *gin.Context) {
		r, idx := find(s.users, c.Param("user_id"))
		if r == nil {
			notFound(c, "user", c.Param("user_id"))
			return
		}
		s.users = remove(s.users, idx)
		deleted(c, "organization.user.deleted", c.Param("user_id"))
	})

	g.GET("/certificates", func(c *gin.Context) { list(c, s.certificates, 20) })
	g.POST("/certificates", func(c *gin.Context) {
		var body struct {
			Name    string `json:"name"`
			Content string `json:"content"`
		}
		if !bindBody(c, &body) {
			return
		}
		if !strings.Contains(body.Content, "BEGIN CERTIFICATE") {
			abortError(c, http.StatusBadRequest, "invalid_certificate", "Certificate content is not PEM encoded")
			return
		}
		id := s.addCertificate(body.Name, body.Content, false)
		r, _ := find(s.certificates, id)
		c.JSON(http.StatusOK, r)
	})
	g.POST("/certificates/activate", func(c *gin.Context) { s.toggleCertificates(c, "", true) })
	g.POST("/certificates/deactivate", func(c *gin.Context) { s.toggleCertificates(c, "", false) })
	g.GET("/certificates/:certificate_id", func(c *gin.Context) {
		r, _ := find(s.certificates, c.Param("certificate_id"))
		if r == nil {
			notFound(c, "certificate", c.Param("certificate_id"))
			return
		}
		out := record{}
		for k, v := range r {
			out[k] = v
		}
		if !strings.Contains(strings.Join(c.QueryArray("include[]"), ","), "content") {
			details := record{}
			for k, v := range r["certificate_details"].(record) {
				if k != "content" {
					details[k] = v
				}
			}
			out["certificate_details"] = details
		}
		c.JSON(http.StatusOK, out)
	})
	g.POST("/certificates/:certificate_id", func(c *gin.Context) {
		r, _ := find(s.certificates, c.Param("certificate_id"))
		if r == nil {
			notFound(c, "certificate", c.Param("certificate_id"))
			return
		}
		var body struct {
			Name string `json:"name"`
		}
		if !bindBody(c, &body) {
			return
		}
		r["name"] = body.Name
		c.JSON(http.StatusOK, r)
	})
	g.DELETE("/certificates/:certificate_id", func(c *gin.Context) {
		r, idx := find(s.certificates, c.Param("certificate_id"))
		if r == nil {
			notFound(c, "certificate", c.Param("certificate_id"))
			return
		}
		if active, _ := r["active"].(bool); active {
			abortError(c, http.StatusBadRequest, "certificate_active", "Active certificates cannot be deleted")
			return
		}
		s.certificates = remove(s.certificates, idx)
		deleted(c, "certificate.deleted", c.Param("certificate_id"))
	})
}

// toggleCertificates sets the activation flag for a batch of ids. With a
// project id the flag is tracked per project.
func (s *Server) toggleCertificates(c *gin.Context, projectID string, active bool) {
	var body struct {
		CertificateIDs []string `json:"certificate_ids"`
	}
	if !bindBody(c, &body) {
		return
	}
	if len(body.CertificateIDs) == 0 || len(body.CertificateIDs) > 10 {
		abortError(c, http.StatusBadRequest, "invalid_batch", "certificate_ids must contain between 1 and 10 ids")
		return
	}
	data := make([]record, 0, len(body.CertificateIDs))
	for _, id := range body.CertificateIDs {
		r, _ := find(s.certificates, id)
		if r == nil {
			notFound(c, "certificate", id)
			return
		}
		if projectID == "" {
			r["active"] = active
		} else {
			if s.projectCerts[projectID] == nil {
				s.projectCerts[projectID] = map[string]bool{}
			}
			s.projectCerts[projectID][id] = active
		}
		out := record{"object": "certificate", "id": id, "name": r["name"], "active": active, "created_at": r["created_at"]}
		data = append(data, out)
	}
	object := "organization.certificate.activation"
	if !active {
		object = "organization.certificate.deactivation"
	}
	if projectID != "" {
		object = strings.Replace(object, "organization", "organization.project", 1)
	}
	c.JSON(http.StatusOK, gin.H{"object": object, "data": data})
}
