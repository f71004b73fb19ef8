// Package logger provides slog attribute constructors shared across the
// notification engine.
//
// Helper constructors such as Error, UserID, NotificationID and Channel return
// commonly-used slog.Attr instances so attribute naming stays consistent
// across every component that logs.
//
// # Usage
//
//	log.LogAttrs(ctx, slog.LevelInfo, "notification sent",
//	    logger.NotificationID(n.ID),
//	    logger.UserID(n.UserID),
//	    logger.Attempt(n.RetryCount),
//	)
//
// Error and Errors produce attributes only when the supplied error value is
// non-nil, allowing calls like:
//
//	log.Info("sweep finished", logger.Error(err))
//
// without an additional nil check.
package logger
