// Package chrome wraps rendered module content in a named style.
//
// Built-in styles:
//
//	none     content only
//	table    single-column table, optional <th> title row (default)
//	horz     the table chrome inside a full-width one-cell table
//	xhtml    <div class="moduletable..."> with optional <h3> title
//	rounded  four nested divs for rounded-corner skins
//
// The module's "moduleclass_sfx" parameter is appended to the CSS class.
// Titles are escaped; content is trusted.
package chrome

import (
	"strings"
	"sync"

	"github.com/vango-dev/docrender/pkg/module"
)

// Style names.
const (
	None    = "none"
	Table   = "table"
	Horz    = "horz"
	XHTML   = "xhtml"
	Rounded = "rounded"
)

// Formatter writes a module wrapped in one style.
type Formatter func(b *strings.Builder, m *module.Module)

// Chrome is a set of named formatters with a fallback.
type Chrome struct {
	mu         sync.RWMutex
	formatters map[string]Formatter
	fallback   string
}

// New returns a Chrome with the built-in styles. fallback names the style used
// for empty or unknown names; an unknown fallback becomes Table.
func New(fallback string) *Chrome {
	c := &Chrome{
		formatters: map[string]Formatter{
			None:    formatNone,
			Table:   formatTable,
			Horz:    formatHorz,
			XHTML:   formatXHTML,
			Rounded: formatRounded,
		},
	}
	fallback = normalize(fallback)
	if _, ok := c.formatters[fallback]; !ok {
		fallback = Table
	}
	c.fallback = fallback
	return c
}

// Register adds or replaces a style.
func (c *Chrome) Register(name string, f Formatter) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.formatters[normalize(name)] = f
}

// Has reports whether style is registered.
func (c *Chrome) Has(style string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.formatters[normalize(style)]
	return ok
}

// Fallback returns the style used for empty or unknown names.
func (c *Chrome) Fallback() string {
	return c.fallback
}

// Render wraps m in style.
func (c *Chrome) Render(m *module.Module, style string) string {
	c.mu.RLock()
	f, ok := c.formatters[normalize(style)]
	if !ok {
		f = c.formatters[c.fallback]
	}
	c.mu.RUnlock()

	var b strings.Builder
	f(&b, m)
	return b.String()
}

// normalize maps legacy numeric style codes onto names.
func normalize(style string) string {
	switch s := strings.ToLower(strings.TrimSpace(style)); s {
	case "-1", "raw":
		return None
	case "0":
		return Table
	case "1":
		return Horz
	case "-2":
		return XHTML
	case "-3":
		return Rounded
	default:
		return s
	}
}

func showTitle(m *module.Module) bool {
	return m.ShowTitle && m.Title != ""
}

func formatNone(b *strings.Builder, m *module.Module) {
	b.WriteString(m.Content)
}

func formatTable(b *strings.Builder, m *module.Module) {
	b.WriteString(`<table cellpadding="0" cellspacing="0" class="moduletable`)
	b.WriteString(escapeAttr(m.Params.ClassSuffix()))
	b.WriteString(`">`)
	if showTitle(m) {
		b.WriteString(`<tr><th valign="top">`)
		b.WriteString(escapeHTML(m.Title))
		b.WriteString(`</th></tr>`)
	}
	b.WriteString(`<tr><td>`)
	b.WriteString(m.Content)
	b.WriteString(`</td></tr></table>`)
}

func formatHorz(b *strings.Builder, m *module.Module) {
	b.WriteString(`<table cellspacing="1" cellpadding="0" border="0" width="100%"><tr><td valign="top">`)
	formatTable(b, m)
	b.WriteString(`</td></tr></table>`)
}

func formatXHTML(b *strings.Builder, m *module.Module) {
	b.WriteString(`<div class="moduletable`)
	b.WriteString(escapeAttr(m.Params.ClassSuffix()))
	b.WriteString(`">`)
	if showTitle(m) {
		b.WriteString(`<h3>`)
		b.WriteString(escapeHTML(m.Title))
		b.WriteString(`</h3>`)
	}
	b.WriteString(m.Content)
	b.WriteString(`</div>`)
}

func formatRounded(b *strings.Builder, m *module.Module) {
	b.WriteString(`<div class="module`)
	b.WriteString(escapeAttr(m.Params.ClassSuffix()))
	b.WriteString(`"><div><div><div>`)
	if showTitle(m) {
		b.WriteString(`<h3>`)
		b.WriteString(escapeHTML(m.Title))
		b.WriteString(`</h3>`)
	}
	b.WriteString(m.Content)
	b.WriteString(`</div></div></div></div>`)
}
