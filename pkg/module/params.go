package module

import (
	"maps"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Params is a typed view over a module's parameter blob.
//
// The stored form is one key=value pair per line. Blank lines and lines
// starting with '#' or ';' are ignored; the first '=' splits key from value.
type Params struct {
	values map[string]string
}

// ParseParams decodes a stored parameter blob.
func ParseParams(raw string) Params {
	p := Params{values: make(map[string]string)}
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || line[0] == '#' || line[0] == ';' {
			continue
		}
		k, v, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		p.values[k] = strings.TrimSpace(v)
	}
	return p
}

// ParamsFromMap builds Params from a plain map.
func ParamsFromMap(m map[string]string) Params {
	return Params{values: maps.Clone(m)}
}

// Get returns the raw value for key.
func (p Params) Get(key string) (string, bool) {
	v, ok := p.values[key]
	return v, ok
}

// String returns the value for key or def when unset.
func (p Params) String(key, def string) string {
	if v, ok := p.values[key]; ok {
		return v
	}
	return def
}

// Bool returns the value for key as a boolean. "1", "true", "yes" and "on"
// are true; "0", "false", "no" and "off" are false; anything else is def.
func (p Params) Bool(key string, def bool) bool {
	v, ok := p.values[key]
	if !ok {
		return def
	}
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return def
}

// Int returns the value for key as an int, or def when unset or malformed.
func (p Params) Int(key string, def int) int {
	v, ok := p.values[key]
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// Cache reports whether the module asks for its output to be cached.
func (p Params) Cache() bool {
	return p.Bool("cache", false)
}

// CacheTime is the requested fragment lifetime. Zero means the cache default.
func (p Params) CacheTime() time.Duration {
	secs := p.Int("cache_time", 0)
	if secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

// ClassSuffix is appended to the chrome's CSS class.
func (p Params) ClassSuffix() string {
	return p.String("moduleclass_sfx", "")
}

// Set stores value under key.
func (p *Params) Set(key, value string) {
	if p.values == nil {
		p.values = make(map[string]string)
	}
	p.values[key] = value
}

// Len returns the number of parameters.
func (p Params) Len() int {
	return len(p.values)
}

// Clone returns an independent copy.
func (p Params) Clone() Params {
	return Params{values: maps.Clone(p.values)}
}

// Map returns a copy of the parameters as a plain map.
func (p Params) Map() map[string]string {
	return maps.Clone(p.values)
}

// Encode returns the canonical stored form with keys sorted.
func (p Params) Encode() string {
	keys := make([]string, 0, len(p.values))
	for k := range p.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(p.values[k])
		b.WriteByte('\n')
	}
	return b.String()
}
