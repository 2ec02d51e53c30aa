// Package web serves the portfolio page and the htmx endpoints behind the
// product galleries.
package web

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jamiewells/portfolio/internal/apperr"
	"github.com/jamiewells/portfolio/internal/contact"
	"github.com/jamiewells/portfolio/internal/content"
	"github.com/jamiewells/portfolio/internal/gallery"
	"github.com/jamiewells/portfolio/internal/middleware"
	"github.com/jamiewells/portfolio/internal/pageview"
)

const (
	pageCookie = "pv"
	// headerPageView carries the page-view id rendered into the page, so
	// each tab addresses its own mount even though the cookie is shared.
	headerPageView = "X-Page-View"
)

// Recorder receives interaction metrics. Failures are logged, never shown.
type Recorder interface {
	RecordClick(ctx context.Context, product string) error
	RecordGalleryEvent(ctx context.Context, product, op, view string) error
}

// Thumbnailer renders thumbnail JPEGs for image references.
type Thumbnailer interface {
	Thumbnail(ref string) ([]byte, error)
}

type Deps struct {
	Site      *content.Site
	Pages     *pageview.Store
	Thumbs    Thumbnailer
	Metrics   Recorder
	Contact   *contact.Service
	Logger    *zap.Logger
	AssetsDir string
	// Secure marks the page cookie Secure.
	Secure bool
}

type Server struct {
	Deps
}

func New(d Deps) *Server {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	return &Server{Deps: d}
}

// NewEngine builds a gin engine with the standard middleware and templates.
func NewEngine(logger *zap.Logger) (*gin.Engine, error) {
	tmpl, err := Templates()
	if err != nil {
		return nil, err
	}
	r := gin.New()
	r.Use(middleware.RequestID(), middleware.HTMX(), middleware.Logger(logger), middleware.Recovery(logger))
	r.SetHTMLTemplate(tmpl)
	return r, nil
}

// Register mounts the public routes.
func (s *Server) Register(r *gin.Engine) {
	if s.AssetsDir != "" {
		r.Static("/static", s.AssetsDir)
	}

	r.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	r.GET("/", s.handleHome)
	r.POST("/gallery/:product/:op", s.handleGallery)
	r.GET("/thumbs/:product/:index", s.handleThumb)
	r.GET("/go/:product", s.handleOutbound)
	r.POST("/contact", s.handleContact)
}

// fail maps an error onto a status code and a visitor-safe message.
func (s *Server) fail(c *gin.Context, err error) {
	ae, ok := apperr.As(err)
	if !ok {
		ae = classify(err)
	}
	status := apperr.HTTPStatus(ae)
	if status >= http.StatusInternalServerError {
		s.Logger.Error("request failed",
			zap.String("request_id", middleware.GetRequestID(c)),
			zap.Error(err))
	}
	if ae.Kind == apperr.Gone && middleware.IsHTMX(c) {
		// The page view expired: have htmx reload, which mounts a fresh one.
		c.Header("HX-Refresh", "true")
	}
	_ = c.Error(err)
	c.String(status, apperr.PublicMessage(ae))
}

func classify(err error) *apperr.AppError {
	switch {
	case errors.Is(err, pageview.ErrPageNotFound):
		return apperr.GoneErr("This page has expired. Reload to continue.", err)
	case errors.Is(err, pageview.ErrUnknownGallery):
		return apperr.NotFoundErr("No such gallery.", err)
	case errors.Is(err, gallery.ErrOutOfRange),
		errors.Is(err, gallery.ErrUnknownOp),
		errors.Is(err, gallery.ErrUnknownView):
		return apperr.InvalidErr("That image does not exist.", err)
	default:
		return apperr.Wrap(err)
	}
}
