package web

import (
	"errors"
	"io/fs"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jamiewells/portfolio/internal/apperr"
	"github.com/jamiewells/portfolio/internal/contact"
	"github.com/jamiewells/portfolio/internal/content"
	"github.com/jamiewells/portfolio/internal/thumbs"
)

type contactView struct {
	Form   contact.Form
	Errors contact.FieldErrors
}

type pageData struct {
	PageID       string
	Site         *content.Site
	Galleries    []galleryView
	ScrollLocked bool
	Contact      contactView
}

// handleHome mounts a new page view and renders the full page. Every load is
// a fresh mount, so galleries always start on their first image.
func (s *Server) handleHome(c *gin.Context) {
	page := s.Pages.Mount()
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(pageCookie, page.ID, 0, "/", "", s.Secure, true)

	states := page.States()
	data := pageData{
		PageID:       page.ID,
		Site:         s.Site,
		Galleries:    make([]galleryView, 0, len(s.Site.Products)),
		ScrollLocked: page.ScrollLocked(),
	}
	for _, p := range s.Site.Products {
		data.Galleries = append(data.Galleries, galleryView{Product: p, State: states[p.Slug]})
	}
	c.HTML(http.StatusOK, "page.html", data)
}

func (s *Server) handleThumb(c *gin.Context) {
	product, ok := s.Site.Product(c.Param("product"))
	if !ok {
		s.fail(c, apperr.NotFoundErr("No such product.", nil))
		return
	}
	idx, err := strconv.Atoi(c.Param("index"))
	if err != nil || idx < 0 || idx >= len(product.Images) {
		s.fail(c, apperr.NotFoundErr("No such image.", err))
		return
	}

	data, err := s.Thumbs.Thumbnail(product.Images[idx])
	switch {
	case errors.Is(err, thumbs.ErrBadPath):
		s.fail(c, apperr.InvalidErr("Bad image path.", err))
		return
	case errors.Is(err, fs.ErrNotExist):
		s.fail(c, apperr.NotFoundErr("No such image.", err))
		return
	case err != nil:
		s.fail(c, err)
		return
	}
	c.Header("Cache-Control", "public, max-age=86400")
	c.Data(http.StatusOK, "image/jpeg", data)
}

// handleOutbound counts a "Visit" click and forwards to the product site.
func (s *Server) handleOutbound(c *gin.Context) {
	product, ok := s.Site.Product(c.Param("product"))
	if !ok || product.Exited() {
		s.fail(c, apperr.NotFoundErr("No such product.", nil))
		return
	}
	if s.Metrics != nil {
		if err := s.Metrics.RecordClick(c.Request.Context(), product.Slug); err != nil {
			s.Logger.Warn("record click", zap.String("product", product.Slug), zap.Error(err))
		}
	}
	c.Redirect(http.StatusFound, product.URL)
}

// handleContact answers with an htmx fragment that replaces the form.
func (s *Server) handleContact(c *gin.Context) {
	var form contact.Form
	if err := c.ShouldBind(&form); err != nil {
		c.HTML(http.StatusOK, "contact-form", contactView{Form: form, Errors: contact.FromBindError(err, &form)})
		return
	}
	if s.Contact == nil {
		c.HTML(http.StatusOK, "contact-error", "Sorry, the contact form is unavailable right now.")
		return
	}
	if _, err := s.Contact.Submit(c.Request.Context(), form); err != nil {
		c.HTML(http.StatusOK, "contact-error", "Sorry, there was an error sending your message. Please try again later.")
		return
	}
	c.HTML(http.StatusOK, "contact-success", "Thank you for your message! I'll get back to you soon.")
}
