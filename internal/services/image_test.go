package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPickMIME(t *testing.T) {
	jpeg := []byte{0xFF, 0xD8, 0xFF, 0xE0, 0, 0x10, 'J', 'F', 'I', 'F', 0}

	tests := []struct {
		name     string
		declared string
		data     []byte
		want     string
	}{
		{"declared wins", "image/webp", jpeg, "image/webp"},
		{"parameters dropped", "image/JPEG; charset=binary", jpeg, "image/jpeg"},
		{"octet stream sniffed", "application/octet-stream", pngHeader, "image/png"},
		{"empty sniffed", "", jpeg, "image/jpeg"},
		{"nothing to go on", "", nil, "image/jpeg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PickMIME(tt.declared, tt.data))
		})
	}
}

func TestNewImage(t *testing.T) {
	img := NewImage(pngHeader, "", "bird.png")

	assert.Equal(t, "image/png", img.MIMEType)
	assert.Equal(t, "bird.png", img.Filename)
	assert.Equal(t, pngHeader, img.Data)
}

func TestImage_Fingerprint(t *testing.T) {
	a, err := Image{Data: pngHeader, MIMEType: "image/png"}.Fingerprint()
	require.NoError(t, err)
	b, err := Image{Data: pngHeader, MIMEType: "image/png", Filename: "renamed.png"}.Fingerprint()
	require.NoError(t, err)

	assert.Equal(t, a, b, "file name does not change the fingerprint")

	_, err = Image{}.Fingerprint()
	assert.Error(t, err)
}

func TestStripCodeFences(t *testing.T) {
	assert.Equal(t, `{"a":1}`, StripCodeFences("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, StripCodeFences("```\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, StripCodeFences("  {\"a\":1}  "))
	assert.Equal(t, "plain text", StripCodeFences("plain text"))
}
