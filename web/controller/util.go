package controller

import (
	"net"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/learnboard/learnboard/config"
	"github.com/learnboard/learnboard/dashboard"
	"github.com/learnboard/learnboard/web/entity"
	"github.com/learnboard/learnboard/web/locale"
)

// API error messages.
const (
	msgUnauthorized   = "Unauthorized"
	msgInternal       = "Internal server error"
	msgInvalidBody    = "Invalid request body"
	msgLogoutFailed   = "Failed to logout"
	msgSessionExpired = dashboard.MsgSessionExpired
	msgFetchFailed    = dashboard.MsgFetchFailed
	msgNotFound       = "Not found"
)

// getRemoteIp extracts the real IP address from the request headers or remote address.
func getRemoteIp(c *gin.Context) string {
	value := c.GetHeader("X-Real-IP")
	if value != "" {
		return value
	}
	value = c.GetHeader("X-Forwarded-For")
	if value != "" {
		ips := strings.Split(value, ",")
		return strings.TrimSpace(ips[0])
	}
	addr := c.Request.RemoteAddr
	ip, _, _ := net.SplitHostPort(addr)
	return ip
}

func jsonSuccess(c *gin.Context) {
	c.JSON(http.StatusOK, entity.Msg{Success: true})
}

func jsonError(c *gin.Context, statusCode int, msg string) {
	c.JSON(statusCode, entity.ErrorMsg{Error: msg})
}

// NotFound answers unknown routes: 404 JSON under /api/, a redirect to the
// dashboard elsewhere.
func NotFound(c *gin.Context) {
	if strings.HasPrefix(c.Request.URL.Path, "/api/") {
		jsonError(c, http.StatusNotFound, msgNotFound)
		return
	}
	c.Redirect(http.StatusFound, "/")
}

// html renders a template with the common page data. title is a message key.
func html(c *gin.Context, status int, name string, title string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	data["localizer"] = locale.Localizer(c)
	data["title"] = locale.I18n(c, title)
	data["request_uri"] = c.Request.RequestURI
	c.HTML(status, name, getContext(data))
}

// getContext adds version and other context data to the provided gin.H.
func getContext(h gin.H) gin.H {
	a := gin.H{
		"cur_ver":  config.GetVersion(),
		"app_name": config.GetName(),
	}
	for key, value := range h {
		a[key] = value
	}
	return a
}
