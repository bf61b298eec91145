package httpserver

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/and161185/rollbook/internal/contact"
	"github.com/and161185/rollbook/internal/errs"
	"github.com/and161185/rollbook/internal/limiter"
	"github.com/and161185/rollbook/internal/model"
)

const (
	msgRegistered   = "Registration successful"
	msgUsernameUsed = "Username already exists"
	msgLoggedIn     = "Login successful"
	msgBadLogin     = "Invalid username or password"
)

type credentialsRequest struct {
	Username string     `json:"username" binding:"required"`
	Password string     `json:"password" binding:"required"`
	Role     model.Role `json:"role"`
}

type authResponse struct {
	Success   bool        `json:"success"`
	Message   string      `json:"message"`
	User      *model.User `json:"user,omitempty"`
	Token     string      `json:"token,omitempty"`
	ExpiresAt int64       `json:"expiresAt,omitempty"`
}

func bindJSON(c *gin.Context, dst any) error {
	if err := c.ShouldBindJSON(dst); err != nil {
		return fmt.Errorf("%w: %v", errs.ErrInvalidInput, err)
	}
	return nil
}

func (s *Server) register(c *gin.Context) {
	var req credentialsRequest
	if err := bindJSON(c, &req); err != nil {
		s.fail(c, err)
		return
	}
	ok, err := s.auth.Register(c.Request.Context(), model.User{Username: req.Username, Role: req.Role}, req.Password)
	if err != nil {
		s.fail(c, err)
		return
	}
	if !ok {
		c.JSON(http.StatusConflict, authResponse{Success: false, Message: msgUsernameUsed})
		return
	}
	c.JSON(http.StatusCreated, authResponse{Success: true, Message: msgRegistered})
}

func (s *Server) login(c *gin.Context) {
	var req credentialsRequest
	if err := bindJSON(c, &req); err != nil {
		s.fail(c, err)
		return
	}
	ctx := c.Request.Context()
	ipHash := limiter.HashIP(c.ClientIP())

	if s.lim != nil {
		allowed, wait, err := s.lim.Allow(ctx, req.Username, ipHash)
		if err != nil {
			s.fail(c, err)
			return
		}
		if !allowed {
			c.Header("Retry-After", retryAfter(wait))
			s.fail(c, errs.ErrRateLimited)
			return
		}
	}

	u, err := s.auth.Login(ctx, req.Username, req.Password)
	if err != nil {
		s.fail(c, err)
		return
	}
	if u == nil {
		if s.lim != nil {
			blocked, wait, lerr := s.lim.Failure(ctx, req.Username, ipHash)
			if lerr != nil {
				s.log.Warn("limiter failure not recorded", zap.Error(lerr))
			} else if blocked {
				s.log.Warn("login blocked", zap.String("username", req.Username))
				c.Header("Retry-After", retryAfter(wait))
				s.fail(c, errs.ErrRateLimited)
				return
			}
		}
		c.JSON(http.StatusUnauthorized, authResponse{Success: false, Message: msgBadLogin})
		return
	}
	if s.lim != nil {
		// best-effort reset
		_ = s.lim.Success(ctx, req.Username, ipHash)
	}

	tok, exp, err := s.tokens.Issue(u.Username)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, authResponse{
		Success:   true,
		Message:   msgLoggedIn,
		User:      u,
		Token:     tok,
		ExpiresAt: exp.UnixMilli(),
	})
}

func (s *Server) logout(c *gin.Context) {
	if err := s.auth.Logout(c.Request.Context()); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) me(c *gin.Context) {
	u, _ := UserFromCtx(c.Request.Context())
	c.JSON(http.StatusOK, u)
}

func (s *Server) listAttendance(c *gin.Context) {
	records, err := s.attendance.List(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, records)
}

func (s *Server) addAttendance(c *gin.Context) {
	var req model.NewRecord
	if err := bindJSON(c, &req); err != nil {
		s.fail(c, err)
		return
	}
	rec, err := s.attendance.Add(c.Request.Context(), req)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, rec)
}

func (s *Server) removeAttendance(c *gin.Context) {
	if err := s.attendance.Remove(c.Request.Context(), c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) analyze(c *gin.Context) {
	records, err := s.attendance.List(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"analysis": s.insights.AnalyzeAttendance(c.Request.Context(), records)})
}

type refineRequest struct {
	Text string `json:"text"`
}

func (s *Server) refine(c *gin.Context) {
	var req refineRequest
	if err := bindJSON(c, &req); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"text": s.insights.RefineMessage(c.Request.Context(), req.Text)})
}

func (s *Server) sendContact(c *gin.Context) {
	var f contact.Form
	if err := bindJSON(c, &f); err != nil {
		s.fail(c, err)
		return
	}
	res, err := s.contact.Send(c.Request.Context(), f)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
