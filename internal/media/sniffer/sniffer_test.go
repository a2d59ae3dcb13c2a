package sniffer

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetect(t *testing.T) {
	cases := []struct {
		name string
		head []byte
		want Format
	}{
		{"jpeg", []byte{0xff, 0xd8, 0xff, 0xe0, 0x00}, FormatJPEG},
		{"png", []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0x00}, FormatPNG},
		{"gif", []byte("GIF89a\x01\x00"), FormatGIF},
		{"webp", []byte("RIFF\x00\x00\x00\x00WEBPVP8 "), FormatWEBP},
		{"svg", []byte("  <svg xmlns=\"http://www.w3.org/2000/svg\"></svg>"), FormatSVG},
		{"svg with prolog", []byte("<?xml version=\"1.0\"?>\n<svg></svg>"), FormatSVG},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := Detect(tc.head)
			require.NoError(t, err)
			assert.Equal(t, tc.want, res.Format)
		})
	}
}

func TestDetectRejectsUnknown(t *testing.T) {
	_, err := Detect(nil)
	assert.ErrorIs(t, err, ErrUnsupported)

	_, err = Detect([]byte("%PDF-1.7"))
	assert.ErrorIs(t, err, ErrUnsupported)

	_, err = Detect([]byte("<?xml version=\"1.0\"?><feed></feed>"))
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestExtension(t *testing.T) {
	assert.Equal(t, "jpg", Result{Format: FormatJPEG}.Extension())
	assert.Equal(t, "png", Result{Format: FormatPNG}.Extension())
}

func TestCompatible(t *testing.T) {
	jpeg := Result{Format: FormatJPEG, MIME: "image/jpeg"}
	svg := Result{Format: FormatSVG, MIME: "image/svg+xml"}

	assert.True(t, Compatible("", jpeg))
	assert.True(t, Compatible("application/octet-stream", jpeg))
	assert.True(t, Compatible("image/jpg", jpeg))
	assert.True(t, Compatible("image/jpeg", jpeg))
	assert.False(t, Compatible("image/png", jpeg))
	assert.True(t, Compatible("text/xml", svg))
}

func TestDeclaredMIME(t *testing.T) {
	h := http.Header{}
	h.Set("Content-Type", "Image/PNG; charset=binary")
	assert.Equal(t, "image/png", DeclaredMIME(h))
	assert.Equal(t, "", DeclaredMIME(http.Header{}))
}
