package cinnamon

import (
	"context"
	"reflect"
	"time"

	"github.com/michaelquigley/pfxlog"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// TracerName is the instrumentation name of dispatch spans
const TracerName = "github.com/ajaimes/cinnamon"

// Dispatcher maps requests to registered handler actions: it analyzes the
// URL, resolves the handler and action, binds arguments, invokes the action
// and hands the result to a Renderer.
type Dispatcher struct {
	config   Config
	registry *Registry
	logger   logrus.FieldLogger
	metrics  *Metrics
	tracer   trace.Tracer
	sessions *SessionManager
	renderer Renderer
	catalog  catalog.Catalog
	matcher  language.Matcher
}

// DispatcherOption configures a Dispatcher
type DispatcherOption func(*Dispatcher)

// WithRegistry sets the handler registry (default: DefaultRegistry)
func WithRegistry(r *Registry) DispatcherOption {
	return func(d *Dispatcher) {
		d.registry = r
	}
}

// WithLogger sets the logger (default: pfxlog.Logger())
func WithLogger(l logrus.FieldLogger) DispatcherOption {
	return func(d *Dispatcher) {
		d.logger = l
	}
}

// WithMetrics enables dispatch metrics
func WithMetrics(m *Metrics) DispatcherOption {
	return func(d *Dispatcher) {
		d.metrics = m
	}
}

// WithTracer sets the tracer (default: the global provider's tracer)
func WithTracer(t trace.Tracer) DispatcherOption {
	return func(d *Dispatcher) {
		d.tracer = t
	}
}

// WithSessionManager persists sessions through m. Without one every
// request sees a fresh session that is never stored.
func WithSessionManager(m *SessionManager) DispatcherOption {
	return func(d *Dispatcher) {
		d.sessions = m
	}
}

// WithRenderer replaces the default TemplateRenderer
func WithRenderer(r Renderer) DispatcherOption {
	return func(d *Dispatcher) {
		d.renderer = r
	}
}

// WithCatalog localizes Messages.AddLocalized through cat, matching the
// request's Accept-Language against the catalog languages.
func WithCatalog(cat catalog.Catalog) DispatcherOption {
	return func(d *Dispatcher) {
		d.catalog = cat
		d.matcher = language.NewMatcher(cat.Languages())
	}
}

// NewDispatcher creates a dispatcher for config
func NewDispatcher(config Config, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		config:   config,
		registry: DefaultRegistry,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.logger == nil {
		d.logger = pfxlog.Logger().Entry
	}
	if d.tracer == nil {
		d.tracer = otel.Tracer(TracerName)
	}
	if d.renderer == nil {
		d.renderer = NewTemplateRenderer(config.ViewsDir, config.CompressContent)
	}
	return d
}

// Config returns the dispatcher configuration
func (d *Dispatcher) Config() Config {
	return d.config
}

// dispatchState collects what a dispatch learned, for logs and metrics
type dispatchState struct {
	handler    string
	action     string
	requestID  string
	violations int
}

// Handle dispatches one request. Failures are logged and answered with
// GenericErrorBody; the returned error is only set when writing the
// response itself failed.
func (d *Dispatcher) Handle(c RequestContext) error {
	start := time.Now()
	ctx, span := d.tracer.Start(c.Context(), "cinnamon.dispatch",
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String("http.method", c.Method()),
			attribute.String("http.path", c.Path()),
		))
	defer span.End()

	st := &dispatchState{}
	err := d.dispatch(ctx, c, st)
	elapsed := time.Since(start)

	span.SetAttributes(
		attribute.String("cinnamon.handler", st.handler),
		attribute.String("cinnamon.action", st.action),
		attribute.Int("cinnamon.violations", st.violations),
	)
	log := d.logger.WithFields(logrus.Fields{
		"path":       c.Path(),
		"handler":    st.handler,
		"action":     st.action,
		"request_id": st.requestID,
		"elapsed":    elapsed,
	})

	if err == nil {
		span.SetStatus(codes.Ok, "")
		d.metrics.observe(st.handler, st.action, 0, st.violations, elapsed)
		log.Info("dispatched")
		return nil
	}

	var de *DispatchError
	if errors.As(err, &de) {
		de.withTarget(st.handler, st.action)
	}
	kind := KindOf(err)
	span.RecordError(err)
	span.SetStatus(codes.Error, kind.String())
	d.metrics.observe(st.handler, st.action, kind, st.violations, elapsed)
	if kind == NotFoundKind {
		log.WithError(err).Warn("no handler for request")
	} else {
		log.WithError(err).Error("dispatch failed")
		if de != nil && de.Cause != nil {
			log.Debugf("cause: %+v", de.Cause)
		}
	}
	return errorResponse(c, kind)
}

func (d *Dispatcher) dispatch(ctx context.Context, c RequestContext, st *dispatchState) error {
	target, err := Analyze(d.relativePath(c.Path()), d.config.UseSlugs)
	if err != nil {
		return err
	}
	st.handler = d.config.Qualify(target.ClassName())
	st.action = target.MethodName()

	resolved, err := d.registry.Resolve(st.handler, st.action)
	if err != nil {
		return err
	}

	req := NewRequest(c)
	req.ctx = ctx
	st.requestID = req.ID()
	session := d.loadSession(c, req)
	msgs := d.newMessages(req)

	h := resolved.Instance
	h.SetRequest(req)
	h.SetSession(session)
	h.SetMessages(msgs)

	args, err := resolved.Action.BindArguments(target, req.Params(), msgs)
	if err != nil {
		return err
	}
	st.violations = msgs.Len()

	result, err := resolved.Action.Invoke(h, args)
	if err != nil {
		return err
	}

	if d.sessions != nil {
		if err := d.sessions.Save(c, session); err != nil {
			return ServerError("session could not be saved", err)
		}
	}

	out := &Outcome{
		Result:   result,
		Model:    h.Model(),
		Messages: msgs,
		Session:  session,
		Request:  req,
	}
	if err := d.renderer.Render(c, out); err != nil {
		return ServerError("result could not be rendered", err)
	}
	return nil
}

// relativePath strips the mount prefix on a segment boundary
func (d *Dispatcher) relativePath(path string) string {
	return d.config.RelativePath(path)
}

func (d *Dispatcher) loadSession(c RequestContext, req *Request) *Session {
	if d.sessions == nil {
		return NewSession()
	}
	s, err := d.sessions.Load(c)
	if err != nil {
		d.logger.WithError(err).WithField("request_id", req.ID()).Warn("session could not be loaded, starting a new one")
	}
	return s
}

func (d *Dispatcher) newMessages(req *Request) *Messages {
	if d.catalog == nil {
		return NewMessages()
	}
	tag, _, _ := d.matcher.Match(req.Locale())
	return NewLocalizedMessages(message.NewPrinter(tag, message.Catalog(d.catalog)))
}

// Invoke calls the action on h. A returned error, a panic, a nil result or
// a result that recorded a setter error is a ServerError.
func (a *ActionSpec) Invoke(h Handler, args []reflect.Value) (res *Result, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			res = nil
			err = ServerError("action panicked", errors.Errorf("panic: %v", rec))
		}
	}()

	in := make([]reflect.Value, 0, len(args)+1)
	in = append(in, reflect.ValueOf(h))
	in = append(in, args...)
	out := a.fn.Call(in)

	if a.returnsError && !out[1].IsNil() {
		return nil, ServerError("action failed", errors.WithStack(out[1].Interface().(error)))
	}
	res, _ = out[0].Interface().(*Result)
	if res == nil {
		return nil, ServerError("handler produced no result", nil)
	}
	if rerr := res.Err(); rerr != nil {
		return nil, ServerError("action produced an invalid result", rerr)
	}
	return res, nil
}
