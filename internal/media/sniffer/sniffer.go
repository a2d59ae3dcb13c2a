package sniffer

import (
	"bytes"
	"errors"
	"net/http"
	"strings"
)

type Format string

const (
	FormatJPEG Format = "jpeg"
	FormatPNG  Format = "png"
	FormatGIF  Format = "gif"
	FormatWEBP Format = "webp"
	FormatSVG  Format = "svg"
)

// HeadSize is the number of leading bytes Detect needs.
const HeadSize = 512

var ErrUnsupported = errors.New("unsupported media format")

type Result struct {
	Format Format
	MIME   string
}

// Extension is the file suffix used in object keys.
func (r Result) Extension() string {
	if r.Format == FormatJPEG {
		return "jpg"
	}
	return string(r.Format)
}

type signature struct {
	result Result
	match  func([]byte) bool
}

var signatures = []signature{
	{Result{FormatJPEG, "image/jpeg"}, prefix([]byte{0xff, 0xd8, 0xff})},
	{Result{FormatPNG, "image/png"}, prefix([]byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'})},
	{Result{FormatGIF, "image/gif"}, func(h []byte) bool {
		return bytes.HasPrefix(h, []byte("GIF87a")) || bytes.HasPrefix(h, []byte("GIF89a"))
	}},
	{Result{FormatWEBP, "image/webp"}, func(h []byte) bool {
		return len(h) >= 12 && bytes.Equal(h[:4], []byte("RIFF")) && bytes.Equal(h[8:12], []byte("WEBP"))
	}},
	{Result{FormatSVG, "image/svg+xml"}, isSVG},
}

func prefix(magic []byte) func([]byte) bool {
	return func(h []byte) bool { return bytes.HasPrefix(h, magic) }
}

// Detect identifies the format of a media library upload from its first bytes.
func Detect(head []byte) (Result, error) {
	if len(head) == 0 {
		return Result{}, ErrUnsupported
	}
	for _, sig := range signatures {
		if sig.match(head) {
			return sig.result, nil
		}
	}
	return Result{}, ErrUnsupported
}

func isSVG(head []byte) bool {
	trimmed := strings.ToLower(strings.TrimSpace(string(head)))
	if strings.HasPrefix(trimmed, "<svg") {
		return true
	}
	return strings.HasPrefix(trimmed, "<?xml") && strings.Contains(trimmed, "<svg")
}

// DeclaredMIME returns the media type of a multipart part header without parameters.
func DeclaredMIME(header http.Header) string {
	contentType := header.Get("Content-Type")
	if idx := strings.Index(contentType, ";"); idx >= 0 {
		contentType = contentType[:idx]
	}
	return strings.ToLower(strings.TrimSpace(contentType))
}

// Compatible reports whether a declared type agrees with the sniffed one.
// Generic declarations are accepted.
func Compatible(declared string, actual Result) bool {
	switch declared {
	case "", "application/octet-stream":
		return true
	case "image/jpg":
		return actual.Format == FormatJPEG
	case "text/xml", "application/xml":
		return actual.Format == FormatSVG
	}
	return declared == actual.MIME
}
