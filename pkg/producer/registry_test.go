package producer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vango-dev/docrender/pkg/token"
)

func constant(s string) Producer {
	return func(context.Context, string, map[string]string) (string, error) {
		return s, nil
	}
}

func TestRegisterLookup(t *testing.T) {
	r := NewRegistry()
	r.Register(token.KindHead, PhaseHead, constant("<title>x</title>"))

	fn, phase, ok := r.Lookup("HEAD")
	require.True(t, ok)
	assert.Equal(t, PhaseHead, phase)

	out, err := fn(context.Background(), "", nil)
	require.NoError(t, err)
	assert.Equal(t, "<title>x</title>", out)
}

func TestLookupUnknown(t *testing.T) {
	r := NewRegistry()
	_, _, ok := r.Lookup("banner")
	assert.False(t, ok)

	r.Register("nil", PhaseContent, nil)
	_, _, ok = r.Lookup("nil")
	assert.False(t, ok)
}

func TestRegisterReplaces(t *testing.T) {
	r := NewRegistry()
	r.Register(token.KindModule, PhaseContent, constant("a"))
	r.Register(token.KindModule, PhaseContent, constant("b"))

	fn, _, ok := r.Lookup(token.KindModule)
	require.True(t, ok)
	out, _ := fn(context.Background(), "", nil)
	assert.Equal(t, "b", out)
}

func TestKindsSorted(t *testing.T) {
	r := NewRegistry()
	r.Register(token.KindModules, PhaseContent, constant(""))
	r.Register(token.KindHead, PhaseHead, constant(""))
	r.Register(token.KindComponent, PhaseContent, constant(""))

	assert.Equal(t, []token.Kind{token.KindComponent, token.KindHead, token.KindModules}, r.Kinds())
}
