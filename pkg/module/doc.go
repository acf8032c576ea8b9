// Package module describes content-producing modules and where they come from.
//
// A Module is loaded from a Store once per request, filtered by publish state,
// access level, client and menu assignment, and ordered by (position,
// ordering, id). Modules whose producer name carries the reserved "mod_"
// prefix are system modules backed by an executable unit; every other module
// is user content rendered from its stored Content.
//
// Stores hand out canonical descriptors. Anything that needs to change a
// descriptor for one render works on a Clone, usually through a Set.
package module
