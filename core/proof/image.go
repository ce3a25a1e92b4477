package proof

import (
	"bytes"
	"fmt"

	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"
	_ "golang.org/x/image/webp" // registers the webp decoder

	"github.com/reelbingo/promo/core"
)

const DefaultMaxImageBytes int64 = 5 * 1024 * 1024

// accepted image types and the extension they are stored with
var imageTypes = []struct {
	mime string
	ext  string
}{
	{"image/jpeg", ".jpg"},
	{"image/png", ".png"},
	{"image/webp", ".webp"},
}

func imageError(msg string) error {
	return core.NewValidationError(nil, core.FieldError{Field: "image", Error: msg})
}

// ValidateImage checks an uploaded proof: present, at most maxBytes, a jpeg, png or webp by content,
// and decodable. It returns the detected content type and file extension.
func ValidateImage(data []byte, maxBytes int64) (contentType, ext string, err error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxImageBytes
	}
	if len(data) == 0 {
		return "", "", imageError("this field is required")
	}
	if int64(len(data)) > maxBytes {
		return "", "", imageError(fmt.Sprintf("image must be at most %d MB", maxBytes/(1024*1024)))
	}

	mtype := mimetype.Detect(data)
	for _, t := range imageTypes {
		if mtype.Is(t.mime) {
			contentType, ext = t.mime, t.ext
			break
		}
	}
	if contentType == "" {
		return "", "", imageError("unsupported image type " + mtype.String() + "; use JPEG, PNG or WebP")
	}

	if _, err = imaging.Decode(bytes.NewReader(data)); err != nil {
		return "", "", imageError("image could not be decoded")
	}
	return contentType, ext, nil
}
