package errors

import "sort"

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category Category
	Message  string
	Detail   string
	DocURL   string
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// Render errors (R001-R099)
	"R001": {
		Category: CategoryRender,
		Message:  "Template not found",
		Detail:   "Neither the requested template nor the _system fallback contains the file.",
		DocURL:   "https://vango.dev/docs/docrender/errors/R001",
	},
	"R002": {
		Category: CategoryRender,
		Message:  "Template parse failed",
		Detail:   "The template file could not be parsed.",
		DocURL:   "https://vango.dev/docs/docrender/errors/R002",
	},
	"R003": {
		Category: CategoryRender,
		Message:  "Template execution failed",
		Detail:   "The template was parsed but failed while producing output.",
		DocURL:   "https://vango.dev/docs/docrender/errors/R003",
	},
	"R004": {
		Category: CategoryRender,
		Message:  "Unknown fragment kind",
		Detail:   "A template registered a fragment kind with no producer; it renders empty.",
		DocURL:   "https://vango.dev/docs/docrender/errors/R004",
	},
	"R005": {
		Category: CategoryRender,
		Message:  "Module executable failed",
		Detail:   "A module's executable unit returned an error; the module renders empty.",
		DocURL:   "https://vango.dev/docs/docrender/errors/R005",
	},
	"R006": {
		Category: CategoryRender,
		Message:  "Component not found",
		Detail:   "No handler is registered for the requested component.",
		DocURL:   "https://vango.dev/docs/docrender/errors/R006",
	},

	// Store errors (S001-S099)
	"S001": {
		Category: CategoryStore,
		Message:  "Module store unavailable",
		Detail:   "Published modules could not be loaded.",
		DocURL:   "https://vango.dev/docs/docrender/errors/S001",
	},
	"S002": {
		Category: CategoryStore,
		Message:  "Invalid module seed file",
		Detail:   "The YAML module seed file could not be decoded.",
		DocURL:   "https://vango.dev/docs/docrender/errors/S002",
	},

	// Cache errors (K001-K099)
	"K001": {
		Category: CategoryCache,
		Message:  "Fragment cache backend error",
		Detail:   "The cache backend failed; the fragment is recomputed.",
		DocURL:   "https://vango.dev/docs/docrender/errors/K001",
	},

	// Config errors (C100-C199)
	"C100": {
		Category: CategoryConfig,
		Message:  "Invalid configuration",
		Detail:   "A configuration value is out of range or inconsistent.",
		DocURL:   "https://vango.dev/docs/docrender/errors/C100",
	},
	"C101": {
		Category: CategoryConfig,
		Message:  "Configuration file unreadable",
		Detail:   "The configuration file exists but could not be read or decoded.",
		DocURL:   "https://vango.dev/docs/docrender/errors/C101",
	},
	"C110": {
		Category: CategoryCLI,
		Message:  "Invalid command usage",
		Detail:   "The command was invoked with missing or conflicting flags.",
		DocURL:   "https://vango.dev/docs/docrender/errors/C110",
	},
}

// GetAllCodes returns all registered error codes, sorted.
func GetAllCodes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// GetTemplate returns the template for an error code.
func GetTemplate(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}

// Register adds a new error template to the registry.
func Register(code string, template ErrorTemplate) {
	registry[code] = template
}
