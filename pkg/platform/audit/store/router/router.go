// Package router fans audit events out to sinks chosen by event category.
package router

import (
	"context"
	"errors"
	"log/slog"

	audit "badgepass/pkg/platform/audit"
)

// Router implements audit.Store. Every event goes to the local sink; events
// whose category is registered also go to that category's sinks.
type Router struct {
	local     audit.Store
	routes    map[audit.EventCategory][]audit.Store
	skipLocal map[string]struct{}
	logger    *slog.Logger
}

// New creates a router that always writes to local.
func New(local audit.Store, logger *slog.Logger) *Router {
	return &Router{
		local:     local,
		routes:    make(map[audit.EventCategory][]audit.Store),
		skipLocal: make(map[string]struct{}),
		logger:    logger,
	}
}

// Register adds a sink for one category.
func (r *Router) Register(category audit.EventCategory, sink audit.Store) {
	r.routes[category] = append(r.routes[category], sink)
}

// SkipLocal keeps action out of the local sink, for events some other
// writer already records there.
func (r *Router) SkipLocal(action audit.AuditEvent) {
	r.skipLocal[string(action)] = struct{}{}
}

// Append writes to the local sink first. A failed remote sink is logged and
// reported, but never prevents the local write.
func (r *Router) Append(ctx context.Context, event audit.Event) error {
	category := event.Category
	if category == "" {
		category = audit.AuditEvent(event.Action).Category()
		event.Category = category
	}

	var errs []error
	if _, skip := r.skipLocal[event.Action]; !skip {
		if err := r.local.Append(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	for _, sink := range r.routes[category] {
		if err := sink.Append(ctx, event); err != nil {
			if r.logger != nil {
				r.logger.WarnContext(ctx, "audit sink rejected event",
					"category", string(category),
					"action", event.Action,
					"error", err,
				)
			}
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
