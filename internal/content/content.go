// Package content validates meme blobs and stores them in IPFS.
package content

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// MaxSize is the largest accepted blob.
const MaxSize = 1 << 20

// DefaultGateway serves refs returned by Pinata.
const DefaultGateway = "https://gateway.pinata.cloud/ipfs/"

var (
	ErrTooLarge        = errors.New("content exceeds 1 MiB")
	ErrUnsupportedType = errors.New("content type not allowed")
	ErrEmpty           = errors.New("content is empty")
)

var allowed = map[string]struct{}{
	"image/png":  {},
	"image/jpeg": {},
	"image/gif":  {},
}

// Uploader stores a blob and returns its content ref.
type Uploader interface {
	Upload(ctx context.Context, filename string, data []byte) (string, error)
}

// Validate sniffs data and returns its MIME type when it is an accepted image.
func Validate(data []byte) (string, error) {
	if len(data) == 0 {
		return "", ErrEmpty
	}
	if len(data) > MaxSize {
		return "", fmt.Errorf("%d bytes: %w", len(data), ErrTooLarge)
	}
	mtype := mimetype.Detect(data).String()
	if i := strings.IndexByte(mtype, ';'); i >= 0 {
		mtype = mtype[:i]
	}
	if _, ok := allowed[mtype]; !ok {
		return "", fmt.Errorf("%s: %w", mtype, ErrUnsupportedType)
	}
	return mtype, nil
}

// GatewayURL turns a ref into a fetchable URL. Refs that already are URLs are
// returned unchanged.
func GatewayURL(gateway, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref
	}
	ref = strings.TrimPrefix(ref, "ipfs://")
	if gateway == "" {
		gateway = DefaultGateway
	}
	if !strings.HasSuffix(gateway, "/") {
		gateway += "/"
	}
	return gateway + ref
}
