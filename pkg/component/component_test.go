package component

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	derrors "github.com/vango-dev/docrender/internal/errors"
	"github.com/vango-dev/docrender/pkg/request"
)

func article(_ context.Context, r *request.Request) (string, error) {
	return "<article>" + r.Task + "</article>", nil
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "content", Normalize("com_content"))
	assert.Equal(t, "content", Normalize("COM_Content"))
	assert.Equal(t, "content", Normalize("content"))
	assert.Equal(t, "weblinks", Normalize("com_web<links>"))
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry()
	reg.Register("com_content", article)
	reg.Register("search", article)

	_, ok := reg.Lookup("content")
	assert.True(t, ok)
	_, ok = reg.Lookup("com_search")
	assert.True(t, ok)
	_, ok = reg.Lookup("com_missing")
	assert.False(t, ok)

	assert.Equal(t, []string{"content", "search"}, reg.Names())

	var nilReg *Registry
	_, ok = nilReg.Lookup("content")
	assert.False(t, ok)
}

func TestAccessMap(t *testing.T) {
	m := AccessMap{"user": 1}
	ctx := context.Background()

	assert.True(t, m.Allowed(ctx, &request.Request{}, "com_content"))
	assert.False(t, m.Allowed(ctx, &request.Request{AccessLevel: 0}, "com_user"))
	assert.True(t, m.Allowed(ctx, &request.Request{AccessLevel: 2}, "com_user"))
	assert.False(t, m.Allowed(ctx, nil, "com_user"))
}

func TestDispatcherRender(t *testing.T) {
	reg := NewRegistry()
	reg.Register("com_content", article)
	d := &Dispatcher{Registry: reg}

	out, err := d.Render(context.Background(), "com_content", &request.Request{Task: "view"})
	require.NoError(t, err)
	assert.Equal(t, "<article>view</article>", out)
}

func TestDispatcherMessage(t *testing.T) {
	reg := NewRegistry()
	reg.Register("com_content", article)
	d := &Dispatcher{Registry: reg}

	out, err := d.Render(context.Background(), "com_content", &request.Request{Task: "view", Message: "Saved <ok>"})
	require.NoError(t, err)
	assert.Equal(t, "\n<div class=\"message\">Saved &lt;ok&gt;</div><article>view</article>", out)
}

func TestDispatcherNotAuthorized(t *testing.T) {
	called := false
	reg := NewRegistry()
	reg.Register("com_user", func(context.Context, *request.Request) (string, error) {
		called = true
		return "secret", nil
	})
	d := &Dispatcher{Registry: reg, Authorizer: AccessMap{"user": 2}}

	out, err := d.Render(context.Background(), "com_user", &request.Request{AccessLevel: 1})
	require.NoError(t, err)
	assert.Equal(t, NotAuthorized, out)

	out, err = d.Render(context.Background(), "com_user", &request.Request{AccessLevel: 1, Message: "Login <first>"})
	require.NoError(t, err)
	assert.Equal(t, "\n<div class=\"message\">Login &lt;first&gt;</div>"+NotAuthorized, out)

	out, err = d.Render(context.Background(), "com_user", nil)
	require.NoError(t, err)
	assert.Equal(t, NotAuthorized, out)
	assert.False(t, called)
}

func TestDispatcherErrors(t *testing.T) {
	reg := NewRegistry()
	reg.Register("com_broken", func(context.Context, *request.Request) (string, error) {
		return "", errors.New("db gone")
	})
	d := &Dispatcher{Registry: reg}
	ctx := context.Background()

	_, err := d.Render(ctx, "", &request.Request{})
	assert.True(t, derrors.HasCode(err, "R006"))

	_, err = d.Render(ctx, "com_missing", &request.Request{})
	assert.True(t, derrors.HasCode(err, "R006"))

	_, err = d.Render(ctx, "com_broken", &request.Request{})
	assert.True(t, derrors.HasCode(err, "R003"))
}

func TestWithMessageEmpty(t *testing.T) {
	assert.Equal(t, "<p/>", WithMessage("", "<p/>"))
}
