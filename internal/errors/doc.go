// Package errors provides coded, categorized errors for docrender.
//
// Rendering itself never fails a page because of a broken fragment; the codes
// here cover the infrastructure a host can genuinely lack: a template set with
// no fallback, an unreachable module store, an invalid configuration file.
//
// # Error Codes
//
// Each error has a unique code (e.g. "R001") that maps to a short message, a
// detailed explanation and a documentation URL:
//
//	R0xx  render pipeline and template engine
//	S0xx  module store
//	K0xx  fragment cache backends
//	C1xx  configuration and CLI
//
// # Usage
//
//	err := errors.New("R001").
//	    WithDetail("template 'beez' has no index.html and no _system fallback").
//	    WithSuggestion("Create templates/_system/index.html")
//
//	fmt.Println(err.Format())
package errors
