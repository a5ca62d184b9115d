package metrics

import (
	"context"

	"github.com/newrelic/go-agent/v3/newrelic"
)

type newRelicContextKey struct{}

// NewRelicContextKey is the context key the *newrelic.Application is stored
// under for services and workers.
var NewRelicContextKey = newRelicContextKey{}

// WithApplication returns a copy of ctx carrying app. A nil app leaves ctx
// untouched, which turns every helper in this package into a no-op.
func WithApplication(ctx context.Context, app *newrelic.Application) context.Context {
	if app == nil {
		return ctx
	}
	return context.WithValue(ctx, NewRelicContextKey, app)
}

// ApplicationFromContext returns the application stored by WithApplication.
func ApplicationFromContext(ctx context.Context) (*newrelic.Application, bool) {
	app, ok := ctx.Value(NewRelicContextKey).(*newrelic.Application)
	return app, ok && app != nil
}

// StartTransaction starts a background transaction when an application is
// present. The returned end func is always safe to call.
func StartTransaction(ctx context.Context, name string) (context.Context, func()) {
	app, ok := ApplicationFromContext(ctx)
	if !ok {
		return ctx, func() {}
	}

	txn := app.StartTransaction(name)
	return newrelic.NewContext(ctx, txn), txn.End
}
