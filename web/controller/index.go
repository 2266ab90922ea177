package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/learnboard/learnboard/dashboard"
	"github.com/learnboard/learnboard/logger"
	"github.com/learnboard/learnboard/upstream"
	"github.com/learnboard/learnboard/web/entity"
	"github.com/learnboard/learnboard/web/locale"
	"github.com/learnboard/learnboard/web/session"
)

// IndexController serves the login and dashboard pages.
type IndexController struct {
	BaseController
}

// NewIndexController creates the controller and registers its routes on g.
func NewIndexController(g *gin.RouterGroup, cfg Config) *IndexController {
	a := &IndexController{BaseController{cfg: cfg}}
	a.initRouter(g)
	return a
}

func (a *IndexController) initRouter(g *gin.RouterGroup) {
	g.GET("/", a.index)
	g.GET("/logout", a.logout)

	g.POST("/login", a.login)
}

// index shows the login page to anonymous visitors and the dashboard to
// everyone else.
func (a *IndexController) index(c *gin.Context) {
	notices := flashNotices(c)
	if !session.IsLogin(c) {
		a.loginPage(c, http.StatusOK, notices...)
		return
	}

	view, err := a.cfg.Profile.GetView(c.Request.Context(), session.GetToken(c))
	if err == nil {
		a.dashboardPage(c, view, notices)
		return
	}

	var gqlErrs upstream.GraphQLErrors
	switch {
	case errors.Is(err, upstream.ErrTokenExpired), errors.Is(err, upstream.ErrUnauthorized):
		if err := session.ClearSession(c); err != nil {
			logger.Warning("clear expired session failed:", err)
		}
		a.loginPage(c, http.StatusOK, errorNotice(locale.I18n(c, "pages.login.toasts.sessionExpired")))
	case errors.As(err, &gqlErrs):
		for _, msg := range gqlErrs.Messages() {
			notices = append(notices, errorNotice(msg))
		}
		a.dashboardPage(c, nil, notices)
	default:
		logger.Warning("dashboard fetch failed:", err)
		notices = append(notices, errorNotice(locale.I18n(c, "pages.dashboard.fetchFailed")))
		a.dashboardPage(c, nil, notices)
	}
}

// login handles the HTML form. Success redirects to the dashboard with a
// flash notice; a failure re-renders the form and opens no session.
func (a *IndexController) login(c *gin.Context) {
	var form entity.LoginForm
	if err := c.ShouldBind(&form); err != nil {
		a.loginPage(c, http.StatusBadRequest, errorNotice(locale.I18n(c, "pages.login.toasts.failed")))
		return
	}

	token, err := a.cfg.Auth.Login(c.Request.Context(), form.User, form.Pass)
	if err != nil {
		var authErr *upstream.AuthError
		if errors.As(err, &authErr) {
			logger.Warningf("login rejected for %q from %s: %v", form.User, getRemoteIp(c), err)
			msg := authErr.Message
			if msg == "" {
				msg = locale.I18n(c, "pages.login.toasts.failed")
			}
			a.loginPage(c, http.StatusUnauthorized, errorNotice(msg))
			return
		}
		logger.Error("login failed:", err)
		a.loginPage(c, http.StatusBadGateway, errorNotice(locale.I18n(c, "pages.login.toasts.unexpected")))
		return
	}

	if err := a.startSession(c, token); err != nil {
		logger.Error("unable to save session:", err)
		a.loginPage(c, http.StatusInternalServerError, errorNotice(locale.I18n(c, "pages.login.toasts.unexpected")))
		return
	}
	if err := session.AddFlash(c, string(dashboard.NoticeSuccess), locale.I18n(c, "pages.login.toasts.success")); err != nil {
		logger.Warning("unable to save flash:", err)
	}
	logger.Infof("%q logged in from %s", form.User, getRemoteIp(c))
	c.Redirect(http.StatusSeeOther, "/")
}

func (a *IndexController) logout(c *gin.Context) {
	if session.IsLogin(c) {
		if err := session.ClearSession(c); err != nil {
			logger.Warning("logout failed:", err)
		}
	}
	a.loginPage(c, http.StatusOK, successNotice(locale.I18n(c, "pages.login.toasts.loggedOut")))
}

func (a *IndexController) loginPage(c *gin.Context, status int, notices ...dashboard.Notice) {
	html(c, status, "login.html", "pages.login.title", gin.H{"notices": notices})
}

func (a *IndexController) dashboardPage(c *gin.Context, view *dashboard.View, notices []dashboard.Notice) {
	html(c, http.StatusOK, "dashboard.html", "pages.dashboard.title", gin.H{
		"view":    view,
		"notices": notices,
	})
}

func flashNotices(c *gin.Context) []dashboard.Notice {
	flashes := session.Flashes(c)
	notices := make([]dashboard.Notice, 0, len(flashes))
	for _, f := range flashes {
		notices = append(notices, dashboard.Notice{Kind: dashboard.NoticeKind(f.Kind), Message: f.Message})
	}
	return notices
}

func errorNotice(msg string) dashboard.Notice {
	return dashboard.Notice{Kind: dashboard.NoticeError, Message: msg}
}

func successNotice(msg string) dashboard.Notice {
	return dashboard.Notice{Kind: dashboard.NoticeSuccess, Message: msg}
}
