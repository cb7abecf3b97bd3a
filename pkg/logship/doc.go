// Package logship provides an embeddable log shipping pipeline.
//
// Entries written through logship land in an encrypted SQLite store. A
// watcher notices when the store file changes and forwards the unsent
// entries at or above a severity threshold to a delivery buffer, which is
// sent as one batch per interval by email or webhook. Delivered entries are
// flagged sent in the store.
//
// # Basic Usage
//
//	cfg := logship.DefaultConfig()
//	cfg.StorePath = "/var/lib/myapp/log/log.db"
//	cfg.Delivery.Host = "smtp.example.com"
//	cfg.Delivery.Username = "alerts"
//	cfg.Delivery.Password = os.Getenv("SMTP_PASSWORD")
//	cfg.Delivery.From = "alerts@example.com"
//	cfg.Delivery.To = "ops@example.com"
//	cfg.Delivery.Subject = "[myapp] log report"
//
//	ls, err := logship.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer ls.Close()
//
//	if err := ls.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
//	ls.WriteLog(logship.SeverityWarning, "payment gateway timeout")
//
// # slog
//
// [Logship.Handler] returns a slog.Handler, so existing slog call sites can
// record into the store:
//
//	logger := slog.New(ls.Handler(slog.LevelInfo))
//	logger.Warn("payment failed", "order", 42)
//
// # Delivery Semantics
//
// A batch is sent once. If the transport fails the batch is dropped and its
// entries stay unsent; they are forwarded again the next time the store
// changes. Entries can be delivered more than once but are not lost.
//
// # Lifecycle States
//
// Delivery moves through these states:
//
//	Stopped -> Starting -> Running -> Stopping -> Stopped
//	                   \-> Crashed (on startup error)
//
// A Crashed instance may be started again. [Logship.Close] releases the
// watcher and the store and must be called on every exit path.
//
// # Store Key
//
// The store key is derived from the store path. It protects against casual
// inspection of a copied file, not against someone who knows the path.
package logship
