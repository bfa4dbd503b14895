package core

import "context"

// Options holds configuration shared by [Loop] and [WorkerPool].
// All fields are optional; zero values select the defaults.
type Options struct {
	Name         string
	Logger       Logger
	PanicHandler PanicHandler
	Metrics      Metrics
	BaseContext  context.Context
}

// Option is a function that configures [Options].
type Option func(*Options)

// WithName sets the name used in logs, metrics and stats.
func WithName(name string) Option {
	return func(o *Options) {
		o.Name = name
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

// WithPanicHandler sets the handler invoked when a task panics.
func WithPanicHandler(handler PanicHandler) Option {
	return func(o *Options) {
		o.PanicHandler = handler
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(metrics Metrics) Option {
	return func(o *Options) {
		o.Metrics = metrics
	}
}

// WithBaseContext sets the parent context for task execution. Task contexts
// derive from it, so its values and cancellation reach every task.
func WithBaseContext(ctx context.Context) Option {
	return func(o *Options) {
		o.BaseContext = ctx
	}
}

func buildOptions(opts []Option) Options {
	o := Options{
		Logger:       NewNoOpLogger(),
		PanicHandler: &DefaultPanicHandler{},
		Metrics:      &NilMetrics{},
		BaseContext:  context.Background(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if o.Logger == nil {
		o.Logger = NewNoOpLogger()
	}
	if o.PanicHandler == nil {
		o.PanicHandler = &DefaultPanicHandler{}
	}
	if o.Metrics == nil {
		o.Metrics = &NilMetrics{}
	}
	if o.BaseContext == nil {
		o.BaseContext = context.Background()
	}
	return o
}
