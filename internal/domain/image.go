package domain

import (
	"context"
	"errors"
	"io"
)

var (
	ErrMissingProductImage = errors.New("product image is required")
	ErrImageTooLarge       = errors.New("product image exceeds the upload size limit")
)

// IncomingImage is a file as received from the client, before acceptance.
type IncomingImage struct {
	Filename    string
	ContentType string
	Size        int64
	Content     io.Reader
}

// StoredImage describes an accepted upload. Path becomes Product.ProductImage.
type StoredImage struct {
	Name        string
	Path        string
	ContentType string
	Size        int64
}

// UploadResult is either accepted (Image set) or rejected (RejectReason set).
type UploadResult struct {
	Image        *StoredImage
	RejectReason string
}

// Accepted reports whether the upload was stored.
func (r UploadResult) Accepted() bool {
	return r.Image != nil
}

// ImageStore decides whether an incoming image is kept and where.
//
// A rejection is not an error. Accept returns ErrImageTooLarge when the file
// exceeds the size ceiling, and any other error for storage failures.
type ImageStore interface {
	Accept(ctx context.Context, image *IncomingImage) (UploadResult, error)
	Remove(ctx context.Context, path string) error
}
