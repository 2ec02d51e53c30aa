package web

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jamiewells/portfolio/internal/apperr"
	"github.com/jamiewells/portfolio/internal/content"
	"github.com/jamiewells/portfolio/internal/gallery"
	"github.com/jamiewells/portfolio/internal/pageview"
)

type galleryView struct {
	Product content.Product
	State   gallery.State
	OOB     bool
}

type galleryResponse struct {
	Gallery   galleryView
	Displaced *galleryView
}

// handleGallery applies one input (next, prev, jump, open, close) to a
// product gallery of the caller's page view and returns the re-rendered
// gallery fragment.
func (s *Server) handleGallery(c *gin.Context) {
	page, err := s.currentPage(c)
	if err != nil {
		s.fail(c, err)
		return
	}

	slug := c.Param("product")
	product, ok := s.Site.Product(slug)
	if !ok {
		s.fail(c, pageview.ErrUnknownGallery)
		return
	}

	ev, err := parseEvent(c)
	if err != nil {
		s.fail(c, err)
		return
	}

	ch, err := page.Apply(slug, ev)
	if err != nil {
		s.fail(c, err)
		return
	}

	if s.Metrics != nil {
		view := ev.View.String()
		if ev.Op == gallery.OpOpen || ev.Op == gallery.OpClose {
			view = gallery.Overlay.String()
		}
		if err := s.Metrics.RecordGalleryEvent(c.Request.Context(), slug, string(ev.Op), view); err != nil {
			s.Logger.Warn("record gallery event", zap.String("product", slug), zap.Error(err))
		}
	}

	resp := galleryResponse{Gallery: galleryView{Product: product, State: ch.Gallery}}
	if ch.Displaced != nil {
		if other, ok := s.Site.Product(ch.Displaced.Name); ok {
			resp.Displaced = &galleryView{Product: other, State: *ch.Displaced, OOB: true}
		}
	}

	c.Header("HX-Trigger", scrollLockTrigger(ch.ScrollLocked))
	c.HTML(http.StatusOK, "gallery-response", resp)
}

// currentPage resolves the caller's page view from the X-Page-View header,
// falling back to the cookie set by the last full page load.
func (s *Server) currentPage(c *gin.Context) (*pageview.Page, error) {
	id := strings.TrimSpace(c.GetHeader(headerPageView))
	if id == "" {
		id, _ = c.Cookie(pageCookie)
	}
	if id == "" {
		return nil, pageview.ErrPageNotFound
	}
	return s.Pages.Get(id)
}

// parseEvent reads the op from the path and view/index from the form or query.
func parseEvent(c *gin.Context) (gallery.Event, error) {
	op, err := gallery.ParseOp(c.Param("op"))
	if err != nil {
		return gallery.Event{}, err
	}
	view, err := gallery.ParseView(formValue(c, "view"))
	if err != nil {
		return gallery.Event{}, err
	}
	ev := gallery.Event{Op: op, View: view}

	if raw := formValue(c, "index"); raw != "" {
		idx, err := strconv.Atoi(raw)
		if err != nil {
			return gallery.Event{}, apperr.InvalidErr("That image does not exist.", err)
		}
		ev.Index, ev.HasIndex = idx, true
	}
	if op == gallery.OpJump && !ev.HasIndex {
		return gallery.Event{}, apperr.InvalidErr("Pick an image to show.", nil)
	}
	return ev, nil
}

func formValue(c *gin.Context, key string) string {
	if v, ok := c.GetPostForm(key); ok {
		return strings.TrimSpace(v)
	}
	return strings.TrimSpace(c.Query(key))
}

func scrollLockTrigger(locked bool) string {
	b, _ := json.Marshal(map[string]any{
		"scroll-lock": map[string]bool{"locked": locked},
	})
	return string(b)
}
