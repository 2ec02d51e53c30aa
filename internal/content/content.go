// Package content loads the site copy and the shipped-product list.
package content

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jamiewells/portfolio/internal/gallery"
)

//go:embed site.yaml
var defaultSite []byte

var ErrInvalid = errors.New("content: invalid site")

type Meta struct {
	Title            string   `yaml:"title"`
	Description      string   `yaml:"description"`
	ShareDescription string   `yaml:"share_description"`
	Author           string   `yaml:"author"`
	Keywords         []string `yaml:"keywords"`
	TwitterCard      string   `yaml:"twitter_card"`
}

type Hero struct {
	Headline string `yaml:"headline"`
	Body     string `yaml:"body"`
	CTALabel string `yaml:"cta_label"`
	CTAHref  string `yaml:"cta_href"`
}

type Stat struct {
	Value string `yaml:"value"`
	Unit  string `yaml:"unit"`
	Label string `yaml:"label"`
}

type Section struct {
	ID         string `yaml:"id"`
	Heading    string `yaml:"heading"`
	Subheading string `yaml:"subheading"`
	Body       string `yaml:"body"`
}

type Responsibilities struct {
	Heading    string   `yaml:"heading"`
	Subheading string   `yaml:"subheading"`
	YoursTitle string   `yaml:"yours_title"`
	Yours      []string `yaml:"yours"`
	MineTitle  string   `yaml:"mine_title"`
	Mine       []string `yaml:"mine"`
}

type Specialization struct {
	Heading string   `yaml:"heading"`
	Body    string   `yaml:"body"`
	Skills  []string `yaml:"skills"`
}

type Step struct {
	Week  string `yaml:"week"`
	Title string `yaml:"title"`
}

type Timeline struct {
	Heading string `yaml:"heading"`
	Steps   []Step `yaml:"steps"`
}

type Fit struct {
	Heading  string   `yaml:"heading"`
	Criteria []string `yaml:"criteria"`
}

type About struct {
	Heading string `yaml:"heading"`
	Body    string `yaml:"body"`
}

type CTA struct {
	Heading string `yaml:"heading"`
	Body    string `yaml:"body"`
	Label   string `yaml:"label"`
	Email   string `yaml:"email"`
}

type Link struct {
	Label string `yaml:"label"`
	Href  string `yaml:"href"`
}

type Footer struct {
	Name  string `yaml:"name"`
	Links []Link `yaml:"links"`
}

// Site is everything the single page renders.
type Site struct {
	Meta             Meta             `yaml:"meta"`
	Hero             Hero             `yaml:"hero"`
	Stats            []Stat           `yaml:"stats"`
	Sections         []Section        `yaml:"sections"`
	Responsibilities Responsibilities `yaml:"responsibilities"`
	Specialization   Specialization   `yaml:"specialization"`
	Timeline         Timeline         `yaml:"timeline"`
	ProductsHeading  string           `yaml:"products_heading"`
	Products         []Product        `yaml:"products"`
	Fit              Fit              `yaml:"fit"`
	About            About            `yaml:"about"`
	CTA              CTA              `yaml:"cta"`
	Footer           Footer           `yaml:"footer"`
}

// Default returns the embedded site.
func Default() (*Site, error) {
	return Load(bytes.NewReader(defaultSite))
}

// LoadFile reads a site from path, or the embedded default when path is empty.
func LoadFile(path string) (*Site, error) {
	if strings.TrimSpace(path) == "" {
		return Default()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open content: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Load decodes and validates a site.
func Load(r io.Reader) (*Site, error) {
	var s Site
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("decode content: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

var (
	slugPattern   = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)
	accentPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)
)

func (s *Site) Validate() error {
	var problems []string
	if strings.TrimSpace(s.Meta.Title) == "" {
		problems = append(problems, "meta.title is required")
	}
	if len(s.Stats) == 0 {
		problems = append(problems, "at least one stat is required")
	}
	if len(s.Timeline.Steps) == 0 {
		problems = append(problems, "timeline needs at least one step")
	}
	if len(s.Products) == 0 {
		problems = append(problems, "at least one product is required")
	}
	seen := map[string]bool{}
	for i, p := range s.Products {
		switch {
		case !slugPattern.MatchString(p.Slug):
			problems = append(problems, fmt.Sprintf("products[%d]: bad slug %q", i, p.Slug))
		case seen[p.Slug]:
			problems = append(problems, fmt.Sprintf("products[%d]: duplicate slug %q", i, p.Slug))
		}
		seen[p.Slug] = true
		if strings.TrimSpace(p.Name) == "" {
			problems = append(problems, fmt.Sprintf("products[%d]: name is required", i))
		}
		if !accentPattern.MatchString(p.Accent) {
			problems = append(problems, fmt.Sprintf("products[%d]: accent %q is not #rrggbb", i, p.Accent))
		}
		if _, err := gallery.NewImageSet(p.Images); err != nil {
			problems = append(problems, fmt.Sprintf("products[%d]: %v", i, err))
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, "; "))
	}
	return nil
}

// Product looks a product up by slug.
func (s *Site) Product(slug string) (Product, bool) {
	for _, p := range s.Products {
		if p.Slug == slug {
			return p, true
		}
	}
	return Product{}, false
}

// Product is one shipped product with its gallery.
type Product struct {
	Slug        string   `yaml:"slug"`
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	URL         string   `yaml:"url"`
	Accent      string   `yaml:"accent"`
	Images      []string `yaml:"images"`
}

func (p Product) ImageSet() (gallery.ImageSet, error) {
	return gallery.NewImageSet(p.Images)
}

// Exited products have no live URL to visit.
func (p Product) Exited() bool { return strings.TrimSpace(p.URL) == "" }

// AccentText picks black or white text for a button filled with the accent.
func (p Product) AccentText() string {
	if luminance(p.Accent) > 0.6 {
		return "#000"
	}
	return "#fff"
}

// luminance is the perceived brightness of a #rrggbb colour in [0,1].
func luminance(hex string) float64 {
	if !accentPattern.MatchString(hex) {
		return 0
	}
	channel := func(s string) float64 {
		v, _ := strconv.ParseUint(s, 16, 8)
		return float64(v) / 255
	}
	r, g, b := channel(hex[1:3]), channel(hex[3:5]), channel(hex[5:7])
	return 0.299*r + 0.587*g + 0.114*b
}
