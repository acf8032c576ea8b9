package ledger

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vango-dev/docrender/pkg/token"
)

func TestAddReturnsToken(t *testing.T) {
	l := New()

	e := l.Add(token.KindModules, "left", map[string]string{"style": "xhtml"})
	assert.Equal(t, "{MODULES_LEFT}", e.Token)
	assert.Equal(t, token.KindModules, e.Kind)
	assert.Equal(t, "left", e.Name)
	assert.Equal(t, "xhtml", e.Params["style"])
}

func TestAddDeduplicates(t *testing.T) {
	l := New()

	a := l.Add(token.KindModule, "Banner", map[string]string{"style": "none"})
	b := l.Add(token.KindModule, "banner", map[string]string{"title": "Ads"})
	l.Add(token.KindHead, "", nil)

	require.Equal(t, 2, l.Len())
	assert.Equal(t, a.Token, b.Token)

	entries := l.Entries()
	assert.Equal(t, token.KindModule, entries[0].Kind)
	assert.Equal(t, token.KindHead, entries[1].Kind)
	assert.Equal(t, map[string]string{"style": "none", "title": "Ads"}, entries[0].Params)
}

func TestAddEmptyKindUsesPlaceholder(t *testing.T) {
	l := New()

	e := l.Add("", "whatever", nil)
	assert.Equal(t, token.KindPlaceholder, e.Kind)
	assert.Equal(t, "{PLACEHOLDER_WHATEVER}", e.Token)
}

func TestEntriesIsSnapshot(t *testing.T) {
	l := New()
	l.Add(token.KindModules, "left", map[string]string{"style": "xhtml"})

	entries := l.Entries()
	entries[0].Params["style"] = "table"

	assert.Equal(t, "xhtml", l.Entries()[0].Params["style"])
}

func TestAddParamsNotAliased(t *testing.T) {
	l := New()
	params := map[string]string{"style": "xhtml"}
	l.Add(token.KindModules, "left", params)
	params["style"] = "rounded"

	assert.Equal(t, "xhtml", l.Entries()[0].Params["style"])
}

func TestReset(t *testing.T) {
	l := New()
	l.Add(token.KindHead, "", nil)
	l.Reset()
	assert.Equal(t, 0, l.Len())
	assert.Empty(t, l.Entries())
}

func TestTakeEmptiesLedger(t *testing.T) {
	l := New()
	l.Add(token.KindModule, "banner", nil)
	l.Add(token.KindHead, "", nil)

	taken := l.Take()
	require.Len(t, taken, 2)
	assert.Equal(t, "{MODULE_BANNER}", taken[0].Token)
	assert.Equal(t, 0, l.Len())
	assert.Empty(t, l.Take())

	// A pair taken once registers as new afterwards.
	l.Add(token.KindModule, "banner", map[string]string{"style": "none"})
	again := l.Take()
	require.Len(t, again, 1)
	assert.Equal(t, "none", again[0].Params["style"])
}

func TestConcurrentAdd(t *testing.T) {
	l := New()

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.Add(token.KindModules, "left", nil)
			l.Add(token.KindHead, "", nil)
		}()
	}
	wg.Wait()

	assert.Equal(t, 2, l.Len())
}
