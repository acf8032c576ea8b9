// Package token encodes placeholder tokens for deferred fragments.
//
// During the parse pass a template directive that asks for a fragment is
// replaced by a token such as {MODULES_LEFT}. The resolve pass later swaps
// every occurrence of that token for the rendered fragment. Tokens are a pure
// function of (kind, name), so repeated registrations of the same pair always
// share one token:
//
//	tok := token.Encode(token.KindModules, "left") // "{MODULES_LEFT}"
//
// Kind and name are case-insensitive; both are normalised to lower case before
// comparison and upper case inside the token.
package token
