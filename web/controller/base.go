// Package controller provides the HTTP handlers of the session proxy: the JSON
// API under /api and the server-rendered login and dashboard pages.
package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/learnboard/learnboard/web/service"
	"github.com/learnboard/learnboard/web/session"
)

// Config wires the controllers to their services and session policy.
type Config struct {
	Auth    *service.AuthService
	GraphQL *service.GraphQLService
	Profile *service.ProfileService

	// SessionMaxAge is the session lifetime in seconds.
	SessionMaxAge int
	SecureCookie  bool
	ExposeToken   bool
}

// BaseController provides common functionality for all controllers, including authentication checks.
type BaseController struct {
	cfg Config
}

// checkLogin aborts with 401 {"error": "Unauthorized"} when the request has
// no authenticated session.
func (a *BaseController) checkLogin(c *gin.Context) {
	if !session.IsLogin(c) {
		jsonError(c, http.StatusUnauthorized, msgUnauthorized)
		c.Abort()
		return
	}
	c.Next()
}

// startSession stores token in the request's session with the configured
// lifetime.
func (a *BaseController) startSession(c *gin.Context, token string) error {
	session.SetMaxAge(c, a.cfg.SessionMaxAge, a.cfg.SecureCookie)
	return session.SetToken(c, token)
}
