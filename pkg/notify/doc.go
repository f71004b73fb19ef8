// Package notify is a multi-channel notification dispatch engine: it accepts
// notification requests, applies per-user channel preferences, decides between
// immediate and scheduled delivery, fans a single logical notification out
// across heterogeneous delivery channels, and manages retries and failure
// bookkeeping when channels fail.
//
// # Architecture
//
// The package is organized around a handful of cooperating components, all
// assembled by the Manager:
//
//   - Storage: keyed persistence of notification records and their lifecycle
//     state (in-memory reference implementation plus a Redis-backed variant)
//   - Preference engine: per-user, per-type channel allow-lists with lazy
//     defaults (FilterChannels, DefaultPreferences)
//   - Template engine: {{name}} placeholder substitution (Template.Render)
//   - Scheduler: single-slot-per-id cancellable timers for future delivery
//   - Dispatcher: parallel channel fan-out with one delivery verdict and a
//     linear-backoff retry loop
//   - BulkCoordinator: batch expansion of bulk requests under a concurrency
//     cap with inter-batch pacing
//   - Janitor: periodic retention and failed-retry sweeps
//
// # Lifecycle
//
// A notification moves through pending, scheduled, sent, failed and cancelled
// states. sent, cancelled and retry-exhausted failed are terminal; delivered
// exists for forward compatibility with channel receipts and is never
// produced. Read tracking is orthogonal to the lifecycle and may be recorded
// in any state.
//
// # Basic Usage
//
//	storage := notify.NewMemoryStorage()
//	registry := notify.NewRegistry(
//	    channel.NewInApp(64),
//	    emailAdapter,
//	)
//
//	manager, err := notify.NewManager(storage, storage, storage, registry)
//	if err != nil {
//	    // handle error
//	}
//	defer manager.Close()
//
//	n, err := manager.Send(ctx, notify.SendRequest{
//	    UserID:  "user-123",
//	    Type:    notify.TypeSystemAlert,
//	    Title:   "Maintenance window",
//	    Message: "We will be down for 10 minutes",
//	})
//
// # Concurrency
//
// Every send, retry and scheduled fire runs as an independent goroutine, but
// all read-modify-write cycles on the same notification id are serialized
// through the dispatcher's per-id critical section. Channel adapter calls are
// the explicit concurrency point inside a delivery: they run in parallel under
// a per-call timeout and the delivery verdict is decided only once every
// channel has reported (fan-out/fan-in, no short-circuit).
//
// # Channel Adapters
//
// Concrete transports implement the Adapter interface and register in a
// Registry; see the channel package for email (Postmark), signed webhook and
// in-app implementations. Adapters report failure through their error return;
// a panicking adapter is recovered and treated as a failed channel without
// affecting the rest of the fan-out.
package notify
