package document

import (
	"strings"

	"github.com/vango-dev/docrender/pkg/chrome"
)

const tagEnd = " />"

// FetchHead renders the head block: title, base, http-equiv meta tags,
// standard meta tags, links, stylesheet links, style blocks, script links,
// script blocks and custom tags, each on its own indented line.
func (d *Document) FetchHead() string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	tab, ln := d.tab, d.lineEnd
	var b strings.Builder

	line := func(parts ...string) {
		b.WriteString(tab)
		for _, p := range parts {
			b.WriteString(p)
		}
		b.WriteString(ln)
	}

	line("<title>", chrome.EscapeHTML(d.title), "</title>")
	if d.base != "" {
		line("<base href=", d.base, tagEnd)
	}

	for _, name := range d.httpEquiv.names {
		line(`<meta http-equiv="`, chrome.EscapeAttr(name), `" content="`, chrome.EscapeAttr(d.httpEquiv.values[name]), `"`, tagEnd)
	}
	for _, name := range d.standard.names {
		line(`<meta name="`, chrome.EscapeAttr(name), `" content="`, chrome.EscapeAttr(d.standard.values[name]), `"`, tagEnd)
	}

	for _, link := range d.links {
		line(link, tagEnd)
	}

	for _, s := range d.styleSheets {
		media := ""
		if s.media != "" {
			media = ` media="` + s.media + `"`
		}
		line(`<link rel="stylesheet" href="`, s.href, `" type="`, s.mime, `"`, media, tagEnd)
	}

	html := d.mime == DefaultMime
	for _, s := range d.styles {
		line(`<style type="`, s.mime, `">`)
		if html {
			line(tab, "<!--")
		} else {
			line(tab, "<![CDATA[")
		}
		b.WriteString(s.content)
		b.WriteString(ln)
		if html {
			line(tab, "-->")
		} else {
			line(tab, "]]>")
		}
		line("</style>")
	}

	for _, s := range d.scripts {
		line(`<script type="`, s.mime, `" src="`, s.src, `"></script>`)
	}

	for _, s := range d.scriptBlocks {
		line(`<script type="`, s.mime, `">`)
		if html {
			line(tab, "// <!--")
		} else {
			line(tab, "<![CDATA[")
		}
		b.WriteString(s.content)
		b.WriteString(ln)
		if html {
			line(tab, "// -->")
		} else {
			line(tab, "// ]]>")
		}
		line("</script>")
	}

	for _, c := range d.custom {
		line(c)
	}

	return b.String()
}
