package memo

import "github.com/jonwraymond/weakmemo/observe"

type options struct {
	meta       observe.RegistryMeta
	middleware *observe.Middleware
	logger     observe.Logger
}

// Option configures a Registry.
type Option func(*options)

// WithName sets the registry name reported in telemetry.
func WithName(name string) Option {
	return func(o *options) {
		o.meta.Name = name
	}
}

// WithNamespace sets the registry namespace reported in telemetry.
func WithNamespace(ns string) Option {
	return func(o *options) {
		o.meta.Namespace = ns
	}
}

// WithMiddleware instruments the registry. Build one with
// observe.MiddlewareFromObserver or observe.NewMiddleware.
func WithMiddleware(mw *observe.Middleware) Option {
	return func(o *options) {
		o.middleware = mw
	}
}

// WithLogger sets a logger without the rest of the telemetry stack.
// It is ignored when WithMiddleware is also given.
func WithLogger(l observe.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

func buildOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if o.middleware == nil {
		o.middleware = observe.NewMiddleware(nil, nil, o.logger)
	}
	return o
}
