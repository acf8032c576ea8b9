package document

import (
	"maps"
	"sort"
	"strings"
	"sync"
)

// Defaults applied by New.
const (
	DefaultMime      = "text/html"
	DefaultCharset   = "utf-8"
	DefaultLineEnd   = "\n"
	DefaultTab       = "\t"
	DefaultStyleType = "text/css"
	DefaultScript    = "text/javascript"
	DefaultFavicon   = "image/x-icon"
	DefaultIconRel   = "shortcut icon"
)

// metaSet is an insertion-ordered name -> content map.
type metaSet struct {
	names  []string
	values map[string]string
}

func (s *metaSet) set(name, content string) {
	if s.values == nil {
		s.values = make(map[string]string)
	}
	if _, ok := s.values[name]; !ok {
		s.names = append(s.names, name)
	}
	s.values[name] = content
}

func (s *metaSet) unset(name string) {
	if _, ok := s.values[name]; !ok {
		return
	}
	delete(s.values, name)
	for i, n := range s.names {
		if n == name {
			s.names = append(s.names[:i], s.names[i+1:]...)
			break
		}
	}
}

type styleSheet struct {
	href  string
	mime  string
	media string
}

type script struct {
	src  string
	mime string
}

type declaration struct {
	mime    string
	content string
}

// Document holds the head state of one page. Any collaborator may mutate it
// during a request; all methods are safe for concurrent use.
type Document struct {
	mu sync.RWMutex

	mime     string
	charset  string
	title    string
	base     string
	language string
	lineEnd  string
	tab      string

	httpEquiv metaSet
	standard  metaSet

	links  []string
	custom []string

	styleSheets  []styleSheet
	styles       []declaration
	scripts      []script
	scriptBlocks []declaration
}

// New creates a document with the default mime type, charset and
// formatting.
func New() *Document {
	return &Document{
		mime:    DefaultMime,
		charset: DefaultCharset,
		lineEnd: DefaultLineEnd,
		tab:     DefaultTab,
	}
}

// SetTitle sets the page title.
func (d *Document) SetTitle(title string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.title = title
}

// Title returns the page title.
func (d *Document) Title() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.title
}

// SetBase sets the URL of the base tag. An empty URL omits the tag.
func (d *Document) SetBase(url string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.base = url
}

// Base returns the base URL.
func (d *Document) Base() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.base
}

// SetLanguage sets the page language tag.
func (d *Document) SetLanguage(lang string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.language = lang
}

// Language returns the page language tag.
func (d *Document) Language() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.language
}

// SetMimeEncoding sets the document mime type. It also selects how inline
// style and script blocks are hidden from old parsers.
func (d *Document) SetMimeEncoding(mime string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.mime = mime
}

// MimeEncoding returns the document mime type.
func (d *Document) MimeEncoding() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.mime
}

// SetCharset sets the character set.
func (d *Document) SetCharset(charset string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.charset = charset
}

// Charset returns the character set.
func (d *Document) Charset() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.charset
}

// SetLineEnd sets the string that terminates each head line.
func (d *Document) SetLineEnd(s string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lineEnd = s
}

// SetTab sets the string that indents each head line.
func (d *Document) SetTab(s string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.tab = s
}

// SetMetaData sets a meta tag. httpEquiv selects the http-equiv category
// instead of the standard name/content one. An empty content removes the tag.
func (d *Document) SetMetaData(name, content string, httpEquiv bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if content == "" {
		d.metaSet(httpEquiv).unset(name)
		return
	}
	d.metaSet(httpEquiv).set(name, content)
}

// UnsetMetaData removes a meta tag.
func (d *Document) UnsetMetaData(name string, httpEquiv bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.metaSet(httpEquiv).unset(name)
}

// MetaData returns the content of a meta tag.
func (d *Document) MetaData(name string, httpEquiv bool) (string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	v, ok := d.metaSet(httpEquiv).values[name]
	return v, ok
}

func (d *Document) metaSet(httpEquiv bool) *metaSet {
	if httpEquiv {
		return &d.httpEquiv
	}
	return &d.standard
}

// SetMetaContentType sets the Content-Type http-equiv tag from the current
// mime type and charset.
func (d *Document) SetMetaContentType() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.httpEquiv.set("Content-Type", d.mime+"; charset="+d.charset)
}

// AddHeadLink adds a <link> tag relating the page to href. relType is "rel"
// (the default) or "rev". Extra attributes are written in key order.
func (d *Document) AddHeadLink(href, relation, relType string, attrs map[string]string) {
	if relType == "" {
		relType = "rel"
	}

	var b strings.Builder
	b.WriteString(`<link href="`)
	b.WriteString(href)
	b.WriteString(`" `)
	b.WriteString(relType)
	b.WriteString(`="`)
	b.WriteString(relation)
	b.WriteByte('"')

	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.WriteByte(' ')
		b.WriteString(k)
		b.WriteString(`="`)
		b.WriteString(attrs[k])
		b.WriteByte('"')
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.links = append(d.links, b.String())
}

// AddFavicon adds a shortcut icon link. Empty typ and relation use
// "image/x-icon" and "shortcut icon".
func (d *Document) AddFavicon(href, typ, relation string) {
	if typ == "" {
		typ = DefaultFavicon
	}
	if relation == "" {
		relation = DefaultIconRel
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.links = append(d.links, `<link href="`+href+`" rel="`+relation+`" type="`+typ+`"`)
}

// AddCustomTag appends raw HTML to the end of the head block.
func (d *Document) AddCustomTag(html string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.custom = append(d.custom, strings.TrimSpace(html))
}

// AddStyleSheet links a stylesheet. Adding the same href again updates its
// mime type and media in place.
func (d *Document) AddStyleSheet(href, mime, media string) {
	if mime == "" {
		mime = DefaultStyleType
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	for i := range d.styleSheets {
		if d.styleSheets[i].href == href {
			d.styleSheets[i].mime = mime
			d.styleSheets[i].media = media
			return
		}
	}
	d.styleSheets = append(d.styleSheets, styleSheet{href: href, mime: mime, media: media})
}

// AddStyleDeclaration adds an inline style block.
func (d *Document) AddStyleDeclaration(content, mime string) {
	if mime == "" {
		mime = DefaultStyleType
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.styles = append(d.styles, declaration{mime: mime, content: content})
}

// AddScript links a script file. Adding the same src again updates its type.
func (d *Document) AddScript(src, mime string) {
	if mime == "" {
		mime = DefaultScript
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	for i := range d.scripts {
		if d.scripts[i].src == src {
			d.scripts[i].mime = mime
			return
		}
	}
	d.scripts = append(d.scripts, script{src: src, mime: mime})
}

// AddScriptDeclaration adds an inline script block.
func (d *Document) AddScriptDeclaration(content, mime string) {
	if mime == "" {
		mime = DefaultScript
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.scriptBlocks = append(d.scriptBlocks, declaration{mime: mime, content: content})
}

// MetaTags returns copies of the standard and http-equiv meta maps.
func (d *Document) MetaTags() (standard, httpEquiv map[string]string) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return maps.Clone(d.standard.values), maps.Clone(d.httpEquiv.values)
}
