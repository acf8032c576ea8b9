// Package document assembles HTML pages from a template and deferred
// fragments.
//
// A render runs in two passes. The parse pass executes the page template;
// every fragment directive registers (kind, name, params) with the document
// and writes a placeholder token such as {MODULES_LEFT} into the output. The
// resolve pass calls the producer bound to each registered kind and replaces
// every occurrence of each token with the produced fragment.
//
// Because each token is replaced globally, fragments can be produced in any
// order. Content producers (component, module, modules) run concurrently;
// the head producer runs after them so head mutations made by modules and
// the component are included.
//
// Failures stay local: a missing module, an unknown kind or a failing
// producer renders as an empty fragment and is logged. Only a missing page
// template or a dead request context fails the whole render.
//
// # Head API
//
//	doc.SetTitle("Home")
//	doc.SetBase("https://example.test")
//	doc.SetMetaData("Generator", "Widget 1.0", false)
//	doc.AddStyleSheet("/css/site.css", "", "screen")
//	doc.AddFavicon("/favicon.ico", "", "")
//	head := doc.FetchHead()
package document
