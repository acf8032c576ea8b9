package request

import (
	"context"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vango-dev/docrender/pkg/module"
)

func TestFilter(t *testing.T) {
	r := &Request{AccessLevel: 1, Client: ClientSite, MenuID: 3, HasMenu: true}
	assert.Equal(t, module.Filter{AccessLevel: 1, MenuID: 3, HasMenu: true}, r.Filter())

	var nilReq *Request
	assert.Equal(t, module.Filter{}, nilReq.Filter())
}

func TestGet(t *testing.T) {
	r := &Request{Query: url.Values{"Itemid": {"4"}}}
	assert.Equal(t, "4", r.Get("Itemid"))
	assert.Equal(t, "", r.Get("missing"))

	var nilReq *Request
	assert.Equal(t, "", nilReq.Get("Itemid"))
}

func TestContext(t *testing.T) {
	assert.Nil(t, FromContext(context.Background()))

	r := &Request{ID: "abc"}
	ctx := WithRequest(context.Background(), r)
	assert.Same(t, r, FromContext(ctx))
}
