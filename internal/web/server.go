// Package web serves the mashup request form and turns submissions into
// emailed mashups.
//
// Routes:
//
//	GET  /            request form
//	POST /mashup      run a request, respond with an HTML result fragment
//	GET  /mashup/:id  result fragment of a recent request
//	GET  /healthz     liveness
package web

import (
	"embed"
	"errors"
	"html/template"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/revx-official/output/log"

	"github.com/handiism/mashup/internal/model"
)

//go:embed templates/*.html
var templateFS embed.FS

// Server wires a Service to HTTP routes.
type Server struct {
	service *Service
	engine  *gin.Engine
}

// NewServer builds the router.
func NewServer(service *Service) *Server {
	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger())
	engine.SetHTMLTemplate(template.Must(template.ParseFS(templateFS, "templates/*.html")))

	s := &Server{service: service, engine: engine}
	engine.GET("/", s.handleIndex)
	engine.POST("/mashup", s.handleMashup)
	engine.GET("/mashup/:id", s.handleStatus)
	engine.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) handleIndex(c *gin.Context) {
	c.HTML(http.StatusOK, "index.html", gin.H{
		"MinCount":            model.MinCount + 1,
		"MaxRejectedCount":    model.MinCount,
		"MinDuration":         model.MinDuration + 1,
		"MaxRejectedDuration": model.MinDuration,
	})
}

func (s *Server) handleMashup(c *gin.Context) {
	var form Form
	if err := c.ShouldBind(&form); err != nil {
		c.HTML(http.StatusBadRequest, "result.html", &Outcome{
			Status:  StatusInvalid,
			Title:   "Error",
			Message: "Could not read the form.",
		})
		return
	}

	out := s.service.Generate(c.Request.Context(), form)
	c.HTML(statusCode(out), "result.html", out)
}

func (s *Server) handleStatus(c *gin.Context) {
	out, err := s.service.Lookup(c.Param("id"))
	if err != nil {
		code := http.StatusInternalServerError
		if errors.Is(err, ErrNotFound) {
			code = http.StatusNotFound
		}
		c.HTML(code, "result.html", &Outcome{
			ID:      c.Param("id"),
			Status:  StatusInvalid,
			Title:   "Not Found",
			Message: "No recent request with this id.",
		})
		return
	}
	if out.Status == StatusPending {
		out.Title = "Working..."
		out.Message = "Your mashup is still being generated."
	}
	c.HTML(statusCode(out), "result.html", out)
}

func statusCode(out *Outcome) int {
	switch out.Status {
	case StatusInvalid:
		return http.StatusBadRequest
	case StatusFailed, StatusEmailFailed:
		return http.StatusInternalServerError
	case StatusPending:
		return http.StatusAccepted
	default:
		return http.StatusOK
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Infof("%s %s: %d (%s)", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start).Round(time.Millisecond))
	}
}
