package llm

import (
	"context"
	"strings"
)

// Router dispatches each request to a client chosen by model name prefix.
// Requests whose model matches no prefix go to the fallback client.
type Router struct {
	fallback Client
	routes   []prefixRoute
}

type prefixRoute struct {
	prefix string
	client Client
}

var _ Client = (*Router)(nil)

// RouterOption configures Router.
type RouterOption func(*Router)

// RoutePrefix sends models starting with prefix to client. Earlier
// prefixes win over later ones.
func RoutePrefix(prefix string, client Client) RouterOption {
	return func(r *Router) {
		r.routes = append(r.routes, prefixRoute{prefix: prefix, client: client})
	}
}

// NewRouter creates a router with fallback as the default client.
//
// Panics if fallback is nil.
func NewRouter(fallback Client, opts ...RouterOption) *Router {
	if fallback == nil {
		panic("llm: router needs a fallback client")
	}
	r := &Router{fallback: fallback}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ClientFor returns the client that serves model.
func (r *Router) ClientFor(model string) Client {
	for _, rt := range r.routes {
		if strings.HasPrefix(model, rt.prefix) {
			return rt.client
		}
	}
	return r.fallback
}

// Complete implements Client.
func (r *Router) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	return r.ClientFor(req.Model).Complete(ctx, req)
}

// Stream implements Client.
func (r *Router) Stream(ctx context.Context, req CompletionRequest) (<-chan StreamChunk, error) {
	return r.ClientFor(req.Model).Stream(ctx, req)
}
