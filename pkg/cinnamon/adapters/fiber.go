package adapters

import (
	"context"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/ajaimes/cinnamon/pkg/cinnamon"
)

// FiberAdapter wraps a Fiber app to implement cinnamon.WebServerInterface
type FiberAdapter struct {
	app *fiber.App
}

// NewFiberAdapter creates a new Fiber adapter instance
func NewFiberAdapter() *FiberAdapter {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).SendString(http.StatusText(code))
		},
	})

	return &FiberAdapter{app: app}
}

// NewDefaultFiberAdapter creates a new Fiber adapter with panic recovery
func NewDefaultFiberAdapter() *FiberAdapter {
	adapter := NewFiberAdapter()
	adapter.app.Use(recover.New())
	return adapter
}

// Mount routes prefix and everything below it to handler
func (fa *FiberAdapter) Mount(prefix string, handler cinnamon.HandlerFunc, middlewares ...cinnamon.MiddlewareFunc) {
	fiberHandler := convertCinnamonHandlerToFiber(cinnamon.Chain(handler, middlewares...))
	exact, subtree := mountPatterns(prefix, "*")
	if exact != "" {
		fa.app.All(exact, fiberHandler)
	}
	fa.app.All(subtree, fiberHandler)
}

// MountHTTP serves handler at path
func (fa *FiberAdapter) MountHTTP(path string, handler http.Handler) {
	fa.app.All(path, adaptor.HTTPHandler(handler))
}

// Use adds global middleware
func (fa *FiberAdapter) Use(middleware cinnamon.MiddlewareFunc) {
	fa.app.Use(convertCinnamonMiddlewareToFiber(middleware))
}

// Start starts the Fiber server
func (fa *FiberAdapter) Start(addr string) error {
	return fa.app.Listen(addr)
}

// Stop stops the Fiber server
func (fa *FiberAdapter) Stop(ctx context.Context) error {
	return fa.app.ShutdownWithContext(ctx)
}

// Name returns the adapter name
func (fa *FiberAdapter) Name() string {
	return "Fiber"
}

// GetApp returns the underlying Fiber app
func (fa *FiberAdapter) GetApp() *fiber.App {
	return fa.app
}

// convertCinnamonHandlerToFiber converts a cinnamon handler to a Fiber handler
func convertCinnamonHandlerToFiber(handler cinnamon.HandlerFunc) fiber.Handler {
	return func(c *fiber.Ctx) error {
		rc := &FiberRequestContext{ctx: c}
		if err := handler(rc); err != nil && !rc.written {
			return c.Status(http.StatusInternalServerError).SendString(http.StatusText(http.StatusInternalServerError))
		}
		return nil
	}
}

// convertCinnamonMiddlewareToFiber converts a cinnamon middleware to a Fiber middleware
func convertCinnamonMiddlewareToFiber(middleware cinnamon.MiddlewareFunc) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return middleware(func(cinnamon.RequestContext) error {
			return c.Next()
		})(&FiberRequestContext{ctx: c})
	}
}

// FiberRequestContext wraps fiber.Ctx to implement cinnamon.RequestContext
type FiberRequestContext struct {
	ctx     *fiber.Ctx
	written bool
}

func (frc *FiberRequestContext) Context() context.Context { return frc.ctx.UserContext() }
func (frc *FiberRequestContext) Method() string           { return frc.ctx.Method() }
func (frc *FiberRequestContext) Path() string             { return frc.ctx.Path() }
func (frc *FiberRequestContext) RequestURI() string       { return string(frc.ctx.Request().RequestURI()) }
func (frc *FiberRequestContext) Scheme() string           { return frc.ctx.Protocol() }
func (frc *FiberRequestContext) Host() string             { return frc.ctx.Hostname() }
func (frc *FiberRequestContext) RemoteAddr() string       { return frc.ctx.Context().RemoteAddr().String() }

// Params merges query, urlencoded body and multipart values
func (frc *FiberRequestContext) Params() map[string][]string {
	result := make(map[string][]string)
	visit := func(key, value []byte) {
		k := string(key)
		result[k] = append(result[k], string(value))
	}
	frc.ctx.Request().URI().QueryArgs().VisitAll(visit)
	frc.ctx.Request().PostArgs().VisitAll(visit)
	if form, err := frc.ctx.MultipartForm(); err == nil {
		for k, values := range form.Value {
			result[k] = append(result[k], values...)
		}
	}
	return result
}

// Request returns the request interface
func (frc *FiberRequestContext) Request() cinnamon.RequestInterface {
	return &FiberRequest{ctx: frc.ctx}
}

// Response returns the response interface
func (frc *FiberRequestContext) Response() cinnamon.ResponseInterface {
	return &FiberResponse{rc: frc}
}

// Get retrieves data from context locals
func (frc *FiberRequestContext) Get(key string) any {
	return frc.ctx.Locals(key)
}

// Set stores data in context locals
func (frc *FiberRequestContext) Set(key string, val any) {
	frc.ctx.Locals(key, val)
}

// FiberRequest wraps fiber.Ctx to implement cinnamon.RequestInterface
type FiberRequest struct {
	ctx *fiber.Ctx
}

func (fr *FiberRequest) Header(key string) string {
	return fr.ctx.Get(key)
}

func (fr *FiberRequest) ContentType() string {
	return fr.ctx.Get(fiber.HeaderContentType)
}

func (fr *FiberRequest) Cookie(name string) (cinnamon.Cookie, error) {
	value := fr.ctx.Cookies(name)
	if value == "" {
		return cinnamon.Cookie{}, cinnamon.ErrNoCookie
	}
	return cinnamon.Cookie{
		Name:  name,
		Value: value,
	}, nil
}

// FiberResponse wraps fiber.Ctx to implement cinnamon.ResponseInterface
type FiberResponse struct {
	rc *FiberRequestContext
}

func (fr *FiberResponse) Status() int {
	return fr.rc.ctx.Response().StatusCode()
}

func (fr *FiberResponse) Header(key string) string {
	return string(fr.rc.ctx.Response().Header.Peek(key))
}

func (fr *FiberResponse) SetHeader(name, value string) {
	fr.rc.ctx.Set(name, value)
}

func (fr *FiberResponse) Blob(code int, contentType string, data []byte) error {
	fr.rc.written = true
	fr.rc.ctx.Set(fiber.HeaderContentType, contentType)
	return fr.rc.ctx.Status(code).Send(data)
}

func (fr *FiberResponse) NoContent(code int) error {
	fr.rc.written = true
	fr.rc.ctx.Status(code)
	return nil
}

func (fr *FiberResponse) SetCookie(cookie cinnamon.Cookie) {
	fiberCookie := &fiber.Cookie{
		Name:     cookie.Name,
		Value:    cookie.Value,
		Path:     cookie.Path,
		Domain:   cookie.Domain,
		Expires:  cookie.Expires,
		MaxAge:   cookie.MaxAge,
		Secure:   cookie.Secure,
		HTTPOnly: cookie.HttpOnly,
	}

	switch cookie.SameSite {
	case cinnamon.SameSiteStrictMode:
		fiberCookie.SameSite = fiber.CookieSameSiteStrictMode
	case cinnamon.SameSiteNoneMode:
		fiberCookie.SameSite = fiber.CookieSameSiteNoneMode
	default:
		fiberCookie.SameSite = fiber.CookieSameSiteLaxMode
	}

	fr.rc.ctx.Cookie(fiberCookie)
}

func (fr *FiberResponse) Written() bool {
	return fr.rc.written
}
