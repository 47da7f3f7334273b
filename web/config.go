package web

// Options collects what the caller contributes to the web module before the
// server starts.
type Options struct {
	// Middlewares run after the built-in request ID, recovery and access log.
	Middlewares []Handler
}

type Option func(*Options)

func WithMiddlewares(m ...Handler) Option {
	return func(o *Options) { o.Middlewares = append(o.Middlewares, m...) }
}
