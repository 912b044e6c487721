package asset

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// allowedExtensions lists the image subtypes accepted from a payload's mime type.
// The subtype is used verbatim as the stored file's extension.
var allowedExtensions = map[string]string{
	"png":  "image/png",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"gif":  "image/gif",
}

// payload is a parsed data URI: data:image/png;base64,<data>
type payload struct {
	ext         string
	contentType string
	data        []byte
}

// parsePayload splits a data URI into its extension and decoded bytes.
// The "data:" scheme prefix is optional.
func parsePayload(raw string) (*payload, error) {
	head, rest, ok := strings.Cut(raw, ";")
	if !ok {
		return nil, fmt.Errorf("%w: missing ';' after mime type", ErrDecode)
	}
	mimeType := strings.TrimPrefix(strings.TrimSpace(head), "data:")
	_, subtype, ok := strings.Cut(mimeType, "/")
	if !ok || subtype == "" {
		return nil, fmt.Errorf("%w: malformed mime type %q", ErrDecode, mimeType)
	}

	ext := strings.ToLower(subtype)
	contentType, ok := allowedExtensions[ext]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}

	encoding, body, ok := strings.Cut(rest, ",")
	if !ok || encoding != "base64" {
		return nil, fmt.Errorf("%w: payload is not base64 encoded", ErrDecode)
	}
	data, err := base64.StdEncoding.DecodeString(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty image data", ErrDecode)
	}

	return &payload{ext: ext, contentType: contentType, data: data}, nil
}
