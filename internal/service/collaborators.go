package service

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"

	"github.com/spec-kit/grievance-service/internal/domain"
)

// Classifier routes a complaint to a department.
type Classifier interface {
	Classify(ctx context.Context, text, photoURI string) (domain.Classification, error)
}

// PhotoVerifier compares before and after evidence for a resolved ticket.
type PhotoVerifier interface {
	VerifyWorkPhotos(ctx context.Context, beforeURI, afterURI, issueType string) (domain.PhotoVerification, error)
}

// EvidenceStore keeps opaque photo blobs and hands back a URI for them.
type EvidenceStore interface {
	Store(ctx context.Context, key string, body io.Reader, size int64, contentType string) (uri string, err error)
	Retrieve(ctx context.Context, uri string) (io.ReadCloser, error)
}

// Notifier delivers one notification. Failures are logged by the caller and
// never block a transition.
type Notifier interface {
	Notify(ctx context.Context, n domain.Notification) error
}

// EvidenceKey names the object for one uploaded photo.
func EvidenceKey(code string, kind domain.EvidenceKind) string {
	return fmt.Sprintf("evidence/%s/%s-%s", code, kind, uuid.NewString())
}
