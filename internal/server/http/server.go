// Package httpserver exposes the attendance services as a JSON API over gin.
package httpserver

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/and161185/rollbook/internal/contact"
	"github.com/and161185/rollbook/internal/errs"
	"github.com/and161185/rollbook/internal/limiter"
	"github.com/and161185/rollbook/internal/model"
	"github.com/and161185/rollbook/internal/service"
	"github.com/and161185/rollbook/internal/store"
)

// Insights is the subset of insight.Generator used by handlers.
type Insights interface {
	AnalyzeAttendance(ctx context.Context, records []model.AttendanceRecord) string
	RefineMessage(ctx context.Context, text string) string
}

// ContactSender delivers contact forms.
type ContactSender interface {
	Send(ctx context.Context, f contact.Form) (contact.Result, error)
}

// Tokens issues and verifies bearer tokens.
type Tokens interface {
	Issue(subject string) (string, time.Time, error)
	Parse(tok string) (string, error)
}

// Deps are the collaborators of the HTTP API. Registry may be nil to disable /metrics.
// TrustedProxies lists the proxy addresses or CIDRs whose X-Forwarded-For is honoured; empty trusts none.
type Deps struct {
	Auth       service.AuthService
	Attendance service.AttendanceService
	Insights   Insights
	Contact    ContactSender
	Tokens     Tokens
	Limiter    limiter.Limiter
	Store      store.Store
	Registry   *prometheus.Registry
	Log        *zap.Logger

	TrustedProxies []string
}

// Server holds handler dependencies.
type Server struct {
	auth       service.AuthService
	attendance service.AttendanceService
	insights   Insights
	contact    ContactSender
	tokens     Tokens
	lim        limiter.Limiter
	store      store.Store
	log        *zap.Logger

	engine *gin.Engine
}

// New builds the router with all routes mounted.
func New(d Deps) *Server {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	s := &Server{
		auth:       d.Auth,
		attendance: d.Attendance,
		insights:   d.Insights,
		contact:    d.Contact,
		tokens:     d.Tokens,
		lim:        d.Limiter,
		store:      d.Store,
		log:        d.Log,
	}

	r := gin.New()
	if err := r.SetTrustedProxies(d.TrustedProxies); err != nil {
		d.Log.Warn("trusted proxies rejected, trusting none", zap.Strings("proxies", d.TrustedProxies), zap.Error(err))
		_ = r.SetTrustedProxies(nil)
	}
	r.Use(Recover(d.Log), Logging(d.Log))
	var reg prometheus.Registerer
	if d.Registry != nil {
		reg = d.Registry
	}
	r.Use(newHTTPMetrics(reg).middleware())

	r.GET("/healthz", s.healthz)
	if d.Registry != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Registry, promhttp.HandlerOpts{})))
	}

	api := r.Group("/api")
	{
		api.POST("/auth/register", s.register)
		api.POST("/auth/login", s.login)
		api.POST("/contact", s.sendContact)
		api.POST("/insights/refine", s.refine)

		authed := api.Group("", s.RequireSession())
		authed.POST("/auth/logout", s.logout)
		authed.GET("/auth/me", s.me)
		authed.GET("/attendance", s.listAttendance)
		authed.POST("/attendance", s.addAttendance)
		authed.DELETE("/attendance/:id", s.removeAttendance)
		authed.POST("/insights/attendance", s.analyze)
	}

	s.engine = r
	return s
}

// Handler returns the root http.Handler.
func (s *Server) Handler() http.Handler { return s.engine }

type errorResponse struct {
	Message string `json:"message"`
}

// fail maps a service error to a status code. Storage faults are logged and hidden.
func (s *Server) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, errs.ErrInvalidInput):
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Message: err.Error()})
	case errors.Is(err, errs.ErrUnauthorized):
		c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse{Message: "unauthorized"})
	case errors.Is(err, errs.ErrRateLimited):
		c.AbortWithStatusJSON(http.StatusTooManyRequests, errorResponse{Message: "too many attempts"})
	default:
		s.log.Error("request failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, errorResponse{Message: "internal error"})
	}
}

func (s *Server) healthz(c *gin.Context) {
	if err := store.Ping(c.Request.Context(), s.store); err != nil {
		s.log.Warn("store unhealthy", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func retryAfter(d time.Duration) string {
	secs := int(d.Round(time.Second) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}
