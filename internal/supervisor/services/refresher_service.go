// Correlatus - CHSH Game Analytics and Live Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/correlatus

package services

import (
	"context"
	"time"
)

// Publisher matches the dashboard service's publish entry points.
type Publisher interface {
	PublishTeamStatus(force bool)
	PublishFull(target, exclude string)
}

// RefresherService periodically triggers the dashboard publish paths so
// live-only fields (connected players, observer count) stay fresh even
// when no game mutation occurs. The publishes go through the normal
// throttle windows, so a tick inside a window reuses the cached payload.
type RefresherService struct {
	publisher Publisher
	interval  time.Duration
	name      string
}

// NewRefresherService creates a refresher ticking at the given interval.
// Intervals at or below zero default to one second.
func NewRefresherService(publisher Publisher, interval time.Duration) *RefresherService {
	if interval <= 0 {
		interval = time.Second
	}
	return &RefresherService{
		publisher: publisher,
		interval:  interval,
		name:      "dashboard-refresher",
	}
}

// Serve implements suture.Service. Returns ctx.Err() on normal shutdown.
func (r *RefresherService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.publisher.PublishTeamStatus(false)
			r.publisher.PublishFull("", "")
		}
	}
}

// String implements fmt.Stringer for suture's log messages.
func (r *RefresherService) String() string {
	return r.name
}
