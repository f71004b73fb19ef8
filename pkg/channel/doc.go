// Package channel provides concrete delivery adapters for the notify engine.
//
// Every adapter implements notify.Adapter and registers in a notify.Registry:
//
//   - Email: Postmark transactional email, addressed via the "email" key of
//     the notification data (overridable with WithRecipientFunc)
//   - Webhook: signed JSON POST with HMAC-SHA256 timestamp-bound signatures,
//     addressed via the "webhook_url" data key
//   - InApp: in-process pub/sub hub with per-user subscriber channels and
//     non-blocking drop-on-full delivery
//   - FuncAdapter: wraps a plain function, mainly for tests and prototypes
//
// Adapters are stateless with respect to the notification lifecycle: they
// attempt one delivery and report the outcome through their error return.
// Retries, backoff and status bookkeeping live in the notify dispatcher.
package channel
