// Package docstore publishes assembled documents to an external store.
package docstore

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dgallion1/bookdigest/internal/assemble"
)

// Store creates documents and applies style operations to them.
type Store interface {
	Create(ctx context.Context, title string) (string, error)
	Apply(ctx context.Context, docID string, ops []assemble.StyleOp) error
	URL(docID string) string
}

// ErrorPrefix starts every description Publish returns in place of a URL.
const ErrorPrefix = "document store error: "

// Publish creates the document and applies doc's operations. Failures are
// logged and returned as a description instead of a URL, so a store outage
// never discards generated text.
func Publish(ctx context.Context, store Store, doc assemble.Document, log *slog.Logger) (url string, ok bool) {
	id, err := store.Create(ctx, doc.Title)
	if err != nil {
		log.Error("create document failed", "title", doc.Title, "error", err)
		return ErrorPrefix + err.Error(), false
	}
	if err := store.Apply(ctx, id, doc.Ops); err != nil {
		log.Error("apply document ops failed", "doc_id", id, "ops", len(doc.Ops), "error", err)
		return ErrorPrefix + err.Error(), false
	}
	url = store.URL(id)
	log.Info("document published", "doc_id", id, "url", url, "ops", len(doc.Ops))
	return url, true
}

// StatusError is a non-success response from a remote store.
type StatusError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: status %d: %s", e.Op, e.StatusCode, e.Body)
}
