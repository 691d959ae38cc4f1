package services

import (
	"net/http"
	"strings"

	"github.com/rahul4469/birdwatcher/internal/crypto"
)

// Image is an uploaded photo as received from the browser.
type Image struct {
	Data     []byte
	MIMEType string
	Filename string
}

// NewImage builds an Image, falling back to content sniffing when the
// browser sent no usable content type.
func NewImage(data []byte, declaredMIME, filename string) Image {
	return Image{
		Data:     data,
		MIMEType: PickMIME(declaredMIME, data),
		Filename: filename,
	}
}

// Fingerprint identifies the photo bytes together with their MIME type.
func (img Image) Fingerprint() (string, error) {
	return crypto.KeyedFingerprint(img.MIMEType, img.Data)
}

// PickMIME takes the declared type, otherwise detects it from the bytes.
func PickMIME(declared string, data []byte) string {
	declared = strings.TrimSpace(declared)
	if i := strings.IndexByte(declared, ';'); i >= 0 {
		declared = strings.TrimSpace(declared[:i])
	}
	if declared != "" && declared != "application/octet-stream" {
		return strings.ToLower(declared)
	}
	if len(data) > 0 {
		return http.DetectContentType(data)
	}
	return "image/jpeg"
}

// StripCodeFences removes a Markdown code fence the model sometimes wraps
// around its JSON answer.
func StripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```JSON")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
