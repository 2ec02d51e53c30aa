package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jamiewells/portfolio/internal/analytics"
	"github.com/jamiewells/portfolio/internal/contact"
	"github.com/jamiewells/portfolio/internal/content"
	"github.com/jamiewells/portfolio/internal/pageview"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeRecorder struct {
	mu     sync.Mutex
	clicks []string
	events []string
}

func (f *fakeRecorder) RecordClick(_ context.Context, product string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clicks = append(f.clicks, product)
	return nil
}

func (f *fakeRecorder) RecordGalleryEvent(_ context.Context, product, op, view string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, product+":"+op+":"+view)
	return nil
}

type fakeThumbs struct{}

func (fakeThumbs) Thumbnail(ref string) ([]byte, error) {
	if strings.Contains(ref, "missing") {
		return nil, fs.ErrNotExist
	}
	return []byte("jpeg:" + ref), nil
}

type memMessages struct{ saved []analytics.Message }

func (m *memMessages) SaveMessage(_ context.Context, msg analytics.Message) error {
	m.saved = append(m.saved, msg)
	return nil
}

type nopMailer struct{}

func (nopMailer) Send(context.Context, analytics.Message) error { return nil }

type harness struct {
	handler  http.Handler
	recorder *fakeRecorder
	messages *memMessages
	cookie   *http.Cookie
}

func newHarness(t *testing.T, site *content.Site, opts ...func(*Deps)) *harness {
	t.Helper()
	if site == nil {
		var err error
		site, err = content.Default()
		require.NoError(t, err)
	}
	pages, err := pageview.NewStore(site, time.Hour)
	require.NoError(t, err)

	h := &harness{recorder: &fakeRecorder{}, messages: &memMessages{}}
	deps := Deps{
		Site:    site,
		Pages:   pages,
		Thumbs:  fakeThumbs{},
		Metrics: h.recorder,
		Contact: contact.NewService(h.messages, nopMailer{}, zap.NewNop()),
		Logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&deps)
	}
	srv := New(deps)
	r, err := NewEngine(zap.NewNop())
	require.NoError(t, err)
	srv.Register(r)
	h.handler = r
	return h
}

// mount loads the page and keeps the page-view cookie for later requests.
func (h *harness) mount(t *testing.T) *goquery.Document {
	t.Helper()
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	for _, c := range rec.Result().Cookies() {
		if c.Name == pageCookie {
			h.cookie = c
		}
	}
	require.NotNil(t, h.cookie, "page view cookie")
	return parseHTML(t, rec.Body.Bytes())
}

func (h *harness) post(t *testing.T, target string) *httptest.ResponseRecorder {
	t.Helper()
	return h.postFrom(t, target, "")
}

// postFrom sends an htmx request as the tab that rendered pageID. The cookie
// always carries the most recent mount, as a browser shares it across tabs.
func (h *harness) postFrom(t *testing.T, target, pageID string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, target, nil)
	req.Header.Set("HX-Request", "true")
	if pageID != "" {
		req.Header.Set(headerPageView, pageID)
	}
	if h.cookie != nil {
		req.AddCookie(h.cookie)
	}
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

func (h *harness) gallery(t *testing.T, target string) (*goquery.Document, bool) {
	t.Helper()
	return h.galleryFrom(t, target, "")
}

func (h *harness) galleryFrom(t *testing.T, target, pageID string) (*goquery.Document, bool) {
	t.Helper()
	rec := h.postFrom(t, target, pageID)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var trigger map[string]map[string]bool
	require.NoError(t, json.Unmarshal([]byte(rec.Header().Get("HX-Trigger")), &trigger))
	return parseHTML(t, rec.Body.Bytes()), trigger["scroll-lock"]["locked"]
}

// pageIDOf reads the page-view id htmx sends back with every request.
func pageIDOf(t *testing.T, doc *goquery.Document) string {
	t.Helper()
	var headers map[string]string
	require.NoError(t, json.Unmarshal([]byte(doc.Find("body").AttrOr("hx-headers", "")), &headers))
	require.NotEmpty(t, headers[headerPageView])
	return headers[headerPageView]
}

func parseHTML(t *testing.T, body []byte) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	require.NoError(t, err)
	return doc
}

func inlineIndex(doc *goquery.Document, slug string) string {
	return doc.Find("#gallery-" + slug + " .stage").AttrOr("data-index", "")
}

func TestHealthz(t *testing.T) {
	h := newHarness(t, nil)
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", rec.Body.String())
}

func TestHomeRendersEveryProductGallery(t *testing.T) {
	h := newHarness(t, nil)
	doc := h.mount(t)

	require.Equal(t, "Jamie Wells | Product Engineer", doc.Find("title").Text())
	require.Equal(t, 3, doc.Find(".gallery").Length())
	require.Equal(t, 0, doc.Find(".lightbox").Length())
	require.Equal(t, "0", inlineIndex(doc, "skillden"))
	require.Equal(t, 5, doc.Find("#gallery-skillden .thumb").Length())
	require.Equal(t, 1, doc.Find("#gallery-skillden .thumb.active").Length())
	require.Equal(t, "/thumbs/skillden/0", doc.Find("#gallery-skillden .thumb img").First().AttrOr("src", ""))
	require.Equal(t, "/static/skillden/skillden-skilltree.png", doc.Find("#gallery-skillden .slide img").First().AttrOr("src", ""))

	require.Equal(t, "/go/proofbase", doc.Find("#product-proofbase a.visit").AttrOr("href", ""))
	require.Equal(t, 0, doc.Find("#product-studentvault a.visit").Length())
	require.Equal(t, "Exited", doc.Find("#product-studentvault .badge").Text())
	require.Equal(t, 4, doc.Find("#proof-strip .stat").Length())
	require.Equal(t, "mailto:jamie@jamiewells.dev", doc.Find("#contact a.button").AttrOr("href", ""))
}

func TestInlineAdvanceWrapsAfterFive(t *testing.T) {
	h := newHarness(t, nil)
	h.mount(t)

	var got []string
	for i := 0; i < 5; i++ {
		doc, locked := h.gallery(t, "/gallery/skillden/next?view=inline")
		require.False(t, locked)
		got = append(got, inlineIndex(doc, "skillden"))
	}
	require.Equal(t, []string{"1", "2", "3", "4", "0"}, got)
}

func TestInlineRetreatWrapsBackward(t *testing.T) {
	h := newHarness(t, nil)
	h.mount(t)

	doc, _ := h.gallery(t, "/gallery/skillden/prev")
	require.Equal(t, "4", inlineIndex(doc, "skillden"))
	require.True(t, doc.Find("#gallery-skillden .thumb").Eq(4).HasClass("active"))
}

func TestOpenSeedsFromInlineAndReopenReseeds(t *testing.T) {
	h := newHarness(t, nil)
	h.mount(t)

	h.gallery(t, "/gallery/skillden/jump?view=inline&index=2")
	doc, locked := h.gallery(t, "/gallery/skillden/open")
	require.True(t, locked)
	require.Equal(t, 1, doc.Find(".lightbox").Length())
	require.Equal(t, "3 / 5", doc.Find(".lightbox .counter").Text())

	doc, _ = h.gallery(t, "/gallery/skillden/next?view=overlay")
	require.Equal(t, "4 / 5", doc.Find(".lightbox .counter").Text())
	require.Equal(t, "2", inlineIndex(doc, "skillden"), "overlay navigation leaves inline alone")

	doc, locked = h.gallery(t, "/gallery/skillden/close")
	require.False(t, locked)
	require.Equal(t, 0, doc.Find(".lightbox").Length())

	h.gallery(t, "/gallery/skillden/prev?view=inline")
	doc, _ = h.gallery(t, "/gallery/skillden/open")
	require.Equal(t, "2 / 5", doc.Find(".lightbox .counter").Text())
}

func TestOpenWithExplicitIndex(t *testing.T) {
	h := newHarness(t, nil)
	h.mount(t)

	doc, _ := h.gallery(t, "/gallery/proofbase/open?index=3")
	require.Equal(t, "4 / 4", doc.Find(".lightbox .counter").Text())
	require.Equal(t, "0", inlineIndex(doc, "proofbase"))
}

func TestOpeningSecondOverlayClosesFirst(t *testing.T) {
	h := newHarness(t, nil)
	h.mount(t)

	h.gallery(t, "/gallery/skillden/open")
	doc, locked := h.gallery(t, "/gallery/proofbase/open")
	require.True(t, locked)

	require.Equal(t, 1, doc.Find("#gallery-proofbase .lightbox").Length())
	displaced := doc.Find("#gallery-skillden")
	require.Equal(t, 1, displaced.Length())
	require.Equal(t, "true", displaced.AttrOr("hx-swap-oob", ""))
	require.Equal(t, 0, displaced.Find(".lightbox").Length())

	// Closing the displaced gallery must not release proofbase's lock.
	_, locked = h.gallery(t, "/gallery/skillden/close")
	require.True(t, locked)
}

func TestGalleryErrors(t *testing.T) {
	h := newHarness(t, nil)

	rec := h.post(t, "/gallery/skillden/next")
	require.Equal(t, http.StatusGone, rec.Code)
	require.Equal(t, "true", rec.Header().Get("HX-Refresh"))

	h.mount(t)
	cases := map[string]int{
		"/gallery/skillden/jump?index=5":      http.StatusBadRequest,
		"/gallery/skillden/jump?index=-1":     http.StatusBadRequest,
		"/gallery/skillden/jump?index=abc":    http.StatusBadRequest,
		"/gallery/skillden/jump":              http.StatusBadRequest,
		"/gallery/skillden/open?index=99":     http.StatusBadRequest,
		"/gallery/skillden/spin":              http.StatusBadRequest,
		"/gallery/skillden/next?view=sidebar": http.StatusBadRequest,
		"/gallery/nothing/next":               http.StatusNotFound,
	}
	for target, want := range cases {
		rec := h.post(t, target)
		require.Equal(t, want, rec.Code, target)
	}

	doc, _ := h.gallery(t, "/gallery/skillden/next")
	require.Equal(t, "1", inlineIndex(doc, "skillden"), "failed inputs leave state alone")
}

func TestRemountResetsGalleries(t *testing.T) {
	h := newHarness(t, nil)
	h.mount(t)
	h.gallery(t, "/gallery/skillden/next")
	h.gallery(t, "/gallery/skillden/open")

	doc := h.mount(t)
	require.Equal(t, "0", inlineIndex(doc, "skillden"))
	require.Equal(t, 0, doc.Find(".lightbox").Length())
}

func TestTabsKeepTheirOwnPageView(t *testing.T) {
	h := newHarness(t, nil)
	tabA := pageIDOf(t, h.mount(t))
	require.Equal(t, tabA, h.cookie.Value)

	h.galleryFrom(t, "/gallery/skillden/next", tabA)
	doc, _ := h.galleryFrom(t, "/gallery/skillden/next", tabA)
	require.Equal(t, "2", inlineIndex(doc, "skillden"))

	tabB := pageIDOf(t, h.mount(t))
	require.NotEqual(t, tabA, tabB)
	require.Equal(t, tabB, h.cookie.Value)

	doc, _ = h.galleryFrom(t, "/gallery/skillden/next", tabA)
	require.Equal(t, "3", inlineIndex(doc, "skillden"))

	doc, _ = h.galleryFrom(t, "/gallery/skillden/next", tabB)
	require.Equal(t, "1", inlineIndex(doc, "skillden"))

	// An overlay opened in one tab does not lock scrolling in the other.
	_, locked := h.galleryFrom(t, "/gallery/proofbase/open", tabA)
	require.True(t, locked)
	_, locked = h.galleryFrom(t, "/gallery/proofbase/next", tabB)
	require.False(t, locked)
}

func TestUnknownPageHeaderIsGone(t *testing.T) {
	h := newHarness(t, nil)
	h.mount(t)

	rec := h.postFrom(t, "/gallery/skillden/next", "not-a-page")
	require.Equal(t, http.StatusGone, rec.Code)
	require.Equal(t, "true", rec.Header().Get("HX-Refresh"))
}

func TestPageCookieSecureFlag(t *testing.T) {
	h := newHarness(t, nil)
	h.mount(t)
	require.False(t, h.cookie.Secure)

	h = newHarness(t, nil, func(d *Deps) { d.Secure = true })
	h.mount(t)
	require.True(t, h.cookie.Secure)
}

func TestSingleImageGalleryHidesNavigation(t *testing.T) {
	site, err := content.Default()
	require.NoError(t, err)
	site.Products = []content.Product{{
		Slug: "solo", Name: "Solo", URL: "https://solo.example", Accent: "#123456",
		Images: []string{"/solo/only.png"},
	}}
	h := newHarness(t, site)
	doc := h.mount(t)

	require.Equal(t, 0, doc.Find("#gallery-solo .arrow").Length())
	require.Equal(t, 0, doc.Find("#gallery-solo .dots").Length())

	for _, op := range []string{"next", "prev", "next"} {
		doc, _ = h.gallery(t, "/gallery/solo/"+op)
		require.Equal(t, "0", inlineIndex(doc, "solo"))
	}
	doc, _ = h.gallery(t, "/gallery/solo/open")
	require.Equal(t, "1 / 1", doc.Find(".counter").Text())
	require.Equal(t, 0, doc.Find(".lightbox .arrow").Length())
}

func TestGalleryEventsRecorded(t *testing.T) {
	h := newHarness(t, nil)
	h.mount(t)
	h.gallery(t, "/gallery/skillden/next")
	h.gallery(t, "/gallery/skillden/open")
	h.gallery(t, "/gallery/skillden/prev?view=overlay")

	require.Equal(t, []string{
		"skillden:next:inline",
		"skillden:open:overlay",
		"skillden:prev:overlay",
	}, h.recorder.events)
}

func TestOutboundRedirect(t *testing.T) {
	h := newHarness(t, nil)

	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/go/skillden", nil))
	require.Equal(t, http.StatusFound, rec.Code)
	require.Equal(t, "https://skillden.app", rec.Header().Get("Location"))
	require.Equal(t, []string{"skillden"}, h.recorder.clicks)

	for _, target := range []string{"/go/studentvault", "/go/unknown"} {
		rec = httptest.NewRecorder()
		h.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
		require.Equal(t, http.StatusNotFound, rec.Code, target)
	}
	require.Len(t, h.recorder.clicks, 1)
}

func TestThumbs(t *testing.T) {
	site, err := content.Default()
	require.NoError(t, err)
	site.Products[0].Images = append(site.Products[0].Images, "/skillden/missing.png")
	h := newHarness(t, site)

	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/thumbs/skillden/1", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "image/jpeg", rec.Header().Get("Content-Type"))
	require.Equal(t, "jpeg:/skillden/skillden-stats.png", rec.Body.String())

	for _, target := range []string{"/thumbs/skillden/99", "/thumbs/skillden/x", "/thumbs/nope/0", "/thumbs/skillden/5"} {
		rec = httptest.NewRecorder()
		h.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
		require.Equal(t, http.StatusNotFound, rec.Code, target)
	}
}

func postForm(t *testing.T, h *harness, values url.Values) *goquery.Document {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/contact", strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("HX-Request", "true")
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	return parseHTML(t, rec.Body.Bytes())
}

func TestContactValidation(t *testing.T) {
	h := newHarness(t, nil)

	doc := postForm(t, h, url.Values{"fullName": {"Ada"}, "email": {"not-an-email"}, "message": {"hi"}})
	require.Equal(t, 1, doc.Find("form#contact-form").Length())
	require.Equal(t, "Enter a valid email address.", doc.Find(`[data-field="email"]`).Text())
	require.Equal(t, "Must be at least 10 characters.", doc.Find(`[data-field="message"]`).Text())
	require.Equal(t, 0, doc.Find(`[data-field="fullName"]`).Length())
	require.Equal(t, "Ada", doc.Find(`input[name="fullName"]`).AttrOr("value", ""))
	require.Empty(t, h.messages.saved)
}

func TestContactSuccess(t *testing.T) {
	h := newHarness(t, nil)

	doc := postForm(t, h, url.Values{
		"fullName": {"Ada Lovelace"},
		"email":    {"ada@example.com"},
		"message":  {"I want to build an analytical engine."},
	})
	require.Equal(t, 1, doc.Find(".contact-result.success").Length())
	require.Len(t, h.messages.saved, 1)
	require.Equal(t, "ada@example.com", h.messages.saved[0].Email)
}

func TestClassify(t *testing.T) {
	t.Parallel()

	require.Equal(t, http.StatusInternalServerError, statusOf(errors.New("db down")))
	require.Equal(t, http.StatusGone, statusOf(pageview.ErrPageNotFound))
}

func statusOf(err error) int {
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/", nil)
	New(Deps{}).fail(c, err)
	return rec.Code
}
