// Package web provides the session proxy server: routing, sessions,
// templates, HTTP/HTTPS serving and background jobs.
package web

import (
	"context"
	"crypto/tls"
	"embed"
	"errors"
	"html/template"
	"io"
	"io/fs"
	"net"
	"net/http"
	"strconv"

	"github.com/gin-contrib/gzip"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/learnboard/learnboard/config"
	"github.com/learnboard/learnboard/dashboard"
	"github.com/learnboard/learnboard/logger"
	"github.com/learnboard/learnboard/util/common"
	"github.com/learnboard/learnboard/web/cache"
	"github.com/learnboard/learnboard/web/controller"
	"github.com/learnboard/learnboard/web/job"
	"github.com/learnboard/learnboard/web/locale"
	"github.com/learnboard/learnboard/web/middleware"
	"github.com/learnboard/learnboard/web/network"
	"github.com/learnboard/learnboard/web/service"
	"github.com/learnboard/learnboard/web/session"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
)

//go:embed html/*
var htmlFS embed.FS

//go:embed translation/*
var i18nFS embed.FS

// Server is the session proxy.
type Server struct {
	httpServer *http.Server
	listener   net.Listener

	index *controller.IndexController
	api   *controller.APIController

	settingService service.SettingService
	backend        cache.Backend

	cron *cron.Cron

	ctx    context.Context
	cancel context.CancelFunc
}

// NewServer creates a new web server instance with a cancellable context.
func NewServer() *Server {
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{ctx: ctx, cancel: cancel}
}

// templateFuncs are the helpers available to every page.
func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"i18n": func(localizer *i18n.Localizer, key string, params ...string) string {
			return locale.Localize(localizer, key, params...)
		},
		"chartList": func(charts ...dashboard.Chart) []dashboard.Chart {
			return charts
		},
		// percent scales v against the largest of values.
		"percent": func(v int64, values []int64) int64 {
			var highest int64
			for _, x := range values {
				highest = max(highest, x)
			}
			if highest <= 0 {
				return 0
			}
			return v * 100 / highest
		},
	}
}

// getHtmlTemplate parses embedded HTML templates from the bundled `htmlFS`.
func (s *Server) getHtmlTemplate(funcMap template.FuncMap) (*template.Template, error) {
	t := template.New("").Funcs(funcMap)
	err := fs.WalkDir(htmlFS, "html", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			newT, err := t.ParseFS(htmlFS, path+"/*.html")
			if err != nil {
				// ignore folders without matches
				return nil
			}
			t = newT
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// newSessionStore opens the configured backend and wraps it in a store.
func (s *Server) newSessionStore() (*cache.ServerStore, error) {
	backendName, err := s.settingService.GetSessionBackend()
	if err != nil {
		return nil, err
	}
	switch backendName {
	case service.BackendRedis:
		addr, err := s.settingService.GetRedisAddr()
		if err != nil {
			return nil, err
		}
		backend, err := cache.NewRedisBackend(s.ctx, addr)
		if err != nil {
			return nil, err
		}
		s.backend = backend
	default:
		s.backend = cache.NewMemoryBackend()
	}

	secret, err := s.settingService.GetSecret()
	if err != nil {
		return nil, err
	}
	maxAge, err := s.settingService.GetSessionMaxAge()
	if err != nil {
		return nil, err
	}
	store := cache.NewServerStore(s.backend, secret)
	store.Options(session.Options(maxAge*60, config.IsProduction()))
	logger.Infof("Session store: %s, max age %d minutes", backendName, maxAge)
	return store, nil
}

// initRouter initializes Gin, registers middleware, templates and
// controllers and returns the configured engine.
func (s *Server) initRouter() (*gin.Engine, error) {
	if config.IsDebug() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.DefaultWriter = io.Discard
		gin.DefaultErrorWriter = io.Discard
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(
		middleware.RequestIDMiddleware(),
		middleware.AccessLogMiddleware(),
		middleware.RecoveryMiddleware(),
		middleware.SecurityHeadersMiddleware(config.IsProduction()),
	)

	webDomain, err := s.settingService.GetWebDomain()
	if err != nil {
		return nil, err
	}
	if webDomain != "" {
		engine.Use(middleware.DomainValidatorMiddleware(webDomain))
	}

	engine.Use(gzip.Gzip(
		gzip.DefaultCompression,
		gzip.WithExcludedPaths([]string{"/metrics"}),
	))

	store, err := s.newSessionStore()
	if err != nil {
		return nil, err
	}
	engine.Use(sessions.Sessions(session.CookieName, store))

	if err := locale.InitLocalizer(i18nFS, "translation"); err != nil {
		return nil, err
	}
	engine.Use(locale.LocalizerMiddleware())

	funcMap := templateFuncs()
	engine.SetFuncMap(funcMap)
	tpl, err := s.getHtmlTemplate(funcMap)
	if err != nil {
		return nil, err
	}
	engine.SetHTMLTemplate(tpl)

	cfg, err := s.controllerConfig()
	if err != nil {
		return nil, err
	}
	s.api = controller.NewAPIController(engine.Group("/api"), cfg)
	s.index = controller.NewIndexController(engine.Group("/"), cfg)

	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	engine.NoRoute(controller.NotFound)

	return engine, nil
}

func (s *Server) controllerConfig() (controller.Config, error) {
	client, err := s.settingService.NewUpstreamClient()
	if err != nil {
		return controller.Config{}, err
	}
	loc, err := s.settingService.GetTimeLocation()
	if err != nil {
		return controller.Config{}, err
	}
	maxAge, err := s.settingService.GetSessionMaxAge()
	if err != nil {
		return controller.Config{}, err
	}
	exposeToken, err := s.settingService.GetExposeToken()
	if err != nil {
		return controller.Config{}, err
	}

	graphql := service.NewGraphQLService(client)
	return controller.Config{
		Auth:          service.NewAuthService(client),
		GraphQL:       graphql,
		Profile:       service.NewProfileService(graphql, loc),
		SessionMaxAge: maxAge * 60,
		SecureCookie:  config.IsProduction(),
		ExposeToken:   exposeToken,
	}, nil
}

// startTask schedules background jobs.
func (s *Server) startTask() {
	spec, err := s.settingService.GetSessionCleanupSpec()
	if err != nil || spec == "" {
		spec = "@every 1m"
	}
	if _, err := s.cron.AddJob(spec, job.NewSessionCleanupJob(s.backend)); err != nil {
		logger.Warning("Add SessionCleanupJob error", err)
	}
}

// Start initializes and starts the web server.
func (s *Server) Start() (err error) {
	defer func() {
		if err != nil {
			_ = s.Stop()
		}
	}()

	loc, err := s.settingService.GetTimeLocation()
	if err != nil {
		return err
	}
	s.cron = cron.New(cron.WithLocation(loc))
	s.cron.Start()

	engine, err := s.initRouter()
	if err != nil {
		return err
	}

	certFile, err := s.settingService.GetCertFile()
	if err != nil {
		return err
	}
	keyFile, err := s.settingService.GetKeyFile()
	if err != nil {
		return err
	}
	listen, err := s.settingService.GetListen()
	if err != nil {
		return err
	}
	port, err := s.settingService.GetPort()
	if err != nil {
		return err
	}

	listenAddr := net.JoinHostPort(listen, strconv.Itoa(port))
	listener, err := net.Listen("tcp", listenAddr)
	if err != nil {
		return err
	}

	if certFile != "" || keyFile != "" {
		if cert, err := tls.LoadX509KeyPair(certFile, keyFile); err == nil {
			cfg := &tls.Config{Certificates: []tls.Certificate{cert}}
			listener = network.NewHTTPSRedirectListener(listener)
			listener = tls.NewListener(listener, cfg)
			logger.Info("Web server running HTTPS on", listener.Addr())
		} else {
			logger.Error("Error loading certificates:", err)
			logger.Info("Web server running HTTP on", listener.Addr())
		}
	} else {
		logger.Info("Web server running HTTP on", listener.Addr())
	}

	s.listener = listener
	s.httpServer = &http.Server{Handler: engine}

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			logger.Error("web server stopped:", err)
		}
	}()

	s.startTask()

	return nil
}

// Stop shuts down the web server, the cron jobs and the session backend.
func (s *Server) Stop() error {
	s.cancel()
	if s.cron != nil {
		s.cron.Stop()
	}
	var err1, err2, err3 error
	if s.httpServer != nil {
		err1 = s.httpServer.Shutdown(context.Background())
	}
	if s.listener != nil {
		err2 = s.listener.Close()
		if errors.Is(err2, net.ErrClosed) {
			err2 = nil
		}
	}
	if s.backend != nil {
		err3 = s.backend.Close()
	}
	return common.Combine(err1, err2, err3)
}
