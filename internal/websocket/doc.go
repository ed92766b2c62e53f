// Correlatus - CHSH Game Analytics and Live Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/correlatus

// Package websocket provides real-time push delivery to dashboard and
// player clients.
//
// The Hub maintains the set of connected clients and routes messages to
// them by subscriber ID. Clients register and unregister through channels
// serviced by RunWithContext, which is supervised by the application's
// supervision tree and shuts down gracefully on context cancellation.
//
// Delivery is intentionally lossy for slow consumers: a client whose send
// buffer is full is disconnected rather than allowed to apply backpressure
// to the publish path. The dashboard re-sends complete snapshots on every
// publish, so a dropped message is repaired by the next one.
package websocket
