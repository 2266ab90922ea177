package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/learnboard/learnboard/dashboard"
	"github.com/learnboard/learnboard/logger"
	"github.com/learnboard/learnboard/upstream"
	"github.com/learnboard/learnboard/web/entity"
	"github.com/learnboard/learnboard/web/session"
)

// APIController serves the JSON API used by script clients and the
// dashboard.ProxyTransport.
type APIController struct {
	BaseController
}

// NewAPIController creates the controller and registers its routes on g.
func NewAPIController(g *gin.RouterGroup, cfg Config) *APIController {
	a := &APIController{BaseController{cfg: cfg}}
	a.initRouter(g)
	return a
}

func (a *APIController) initRouter(g *gin.RouterGroup) {
	g.POST("/login", a.login)
	g.POST("/logout", a.logout)
	g.GET("/check-session", a.checkSession)

	authed := g.Group("")
	authed.Use(a.checkLogin)
	authed.POST("/graphql", a.graphql)
	authed.GET("/dashboard", a.dashboard)
}

// login opens a session from a token obtained elsewhere or from user/pass
// exchanged with the sign-in endpoint. A rejection opens no session.
func (a *APIController) login(c *gin.Context) {
	var form entity.LoginForm
	if err := c.ShouldBindJSON(&form); err != nil {
		jsonError(c, http.StatusBadRequest, msgInvalidBody)
		return
	}

	token := form.Token
	if token == "" {
		var err error
		token, err = a.cfg.Auth.Login(c.Request.Context(), form.User, form.Pass)
		if err != nil {
			var authErr *upstream.AuthError
			if errors.As(err, &authErr) {
				logger.Warningf("login rejected for %q from %s: %v", form.User, getRemoteIp(c), err)
				jsonError(c, http.StatusBadRequest, rejectionMessage(authErr))
				return
			}
			logger.Error("login failed:", err)
			jsonError(c, http.StatusInternalServerError, msgInternal)
			return
		}
	}

	if err := a.startSession(c, token); err != nil {
		logger.Error("unable to save session:", err)
		jsonError(c, http.StatusInternalServerError, msgInternal)
		return
	}
	logger.Infof("session opened for %q from %s", form.User, getRemoteIp(c))
	jsonSuccess(c)
}

// logout destroys the session. Without one it still succeeds.
func (a *APIController) logout(c *gin.Context) {
	if !session.IsLogin(c) {
		jsonSuccess(c)
		return
	}
	if err := session.ClearSession(c); err != nil {
		logger.Error("logout failed:", err)
		jsonError(c, http.StatusInternalServerError, msgLogoutFailed)
		return
	}
	jsonSuccess(c)
}

func (a *APIController) checkSession(c *gin.Context) {
	status := entity.SessionStatus{Authenticated: session.IsLogin(c)}
	if status.Authenticated && a.cfg.ExposeToken {
		status.Token = session.GetToken(c)
	}
	c.JSON(http.StatusOK, status)
}

// graphql forwards the body with the session's bearer token and replies with
// the upstream status and body as received.
func (a *APIController) graphql(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		jsonError(c, http.StatusBadRequest, msgInvalidBody)
		return
	}

	status, respBody, err := a.cfg.GraphQL.Forward(c.Request.Context(), session.GetToken(c), body)
	if err != nil {
		logger.Warning("graphql proxy error:", err)
		jsonError(c, http.StatusInternalServerError, msgInternal)
		return
	}
	c.Data(status, "application/json; charset=utf-8", respBody)
}

// dashboard replies with the shaped view of the session owner's profile. A
// refused token destroys the session.
func (a *APIController) dashboard(c *gin.Context) {
	view, err := a.cfg.Profile.GetView(c.Request.Context(), session.GetToken(c))
	if err == nil {
		c.JSON(http.StatusOK, view)
		return
	}

	var gqlErrs upstream.GraphQLErrors
	switch {
	case errors.Is(err, upstream.ErrTokenExpired):
		if err := session.ClearSession(c); err != nil {
			logger.Warning("clear expired session failed:", err)
		}
		jsonError(c, http.StatusUnauthorized, msgSessionExpired)
	case errors.As(err, &gqlErrs):
		c.JSON(http.StatusBadGateway, entity.GraphQLErrorsMsg{Errors: gqlErrs.Messages()})
	default:
		logger.Warning("dashboard fetch failed:", err)
		jsonError(c, http.StatusBadGateway, msgFetchFailed)
	}
}

func rejectionMessage(err *upstream.AuthError) string {
	if err.Message == "" {
		return dashboard.MsgLoginFailed
	}
	return err.Message
}
