package adapters

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ajaimes/cinnamon/pkg/cinnamon"
)

// ChiAdapter implements cinnamon.WebServerInterface for chi
type ChiAdapter struct {
	router      chi.Router
	server      *http.Server
	middlewares []cinnamon.MiddlewareFunc
}

// NewChiAdapter creates a new chi adapter
func NewChiAdapter(r chi.Router) *ChiAdapter {
	return &ChiAdapter{router: r}
}

// NewDefaultChiAdapter creates a new chi adapter with a fresh router
func NewDefaultChiAdapter() *ChiAdapter {
	return &ChiAdapter{router: chi.NewRouter()}
}

// Mount routes prefix and everything below it to handler
func (ca *ChiAdapter) Mount(prefix string, handler cinnamon.HandlerFunc, middlewares ...cinnamon.MiddlewareFunc) {
	all := append(append([]cinnamon.MiddlewareFunc(nil), ca.middlewares...), middlewares...)
	h := HTTPHandler(cinnamon.Chain(handler, all...))
	exact, subtree := mountPatterns(prefix, "*")
	if exact != "" {
		ca.router.Handle(exact, h)
	}
	ca.router.Handle(subtree, h)
}

// MountHTTP serves handler at path
func (ca *ChiAdapter) MountHTTP(path string, handler http.Handler) {
	ca.router.Handle(path, handler)
}

// Use adds global middleware. It applies to handlers mounted afterwards.
func (ca *ChiAdapter) Use(middleware cinnamon.MiddlewareFunc) {
	ca.middlewares = append(ca.middlewares, middleware)
}

// Start starts the server
func (ca *ChiAdapter) Start(addr string) error {
	ca.server = &http.Server{Addr: addr, Handler: ca.router}
	return ca.server.ListenAndServe()
}

// Stop stops the server
func (ca *ChiAdapter) Stop(ctx context.Context) error {
	if ca.server == nil {
		return nil
	}
	return ca.server.Shutdown(ctx)
}

// Name returns the adapter name
func (ca *ChiAdapter) Name() string {
	return "Chi"
}

// GetRouter returns the underlying chi router
func (ca *ChiAdapter) GetRouter() chi.Router {
	return ca.router
}
