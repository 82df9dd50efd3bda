package image

import (
	"encoding/base64"
	"errors"
	"net/http"
	"strings"
)

// FallbackMimeType is used when neither the data URL nor the bytes identify the image.
const FallbackMimeType = "image/jpeg"

var errEmptyImage = errors.New("empty image data")

// StripDataURL removes an optional "data:<mime>;base64," prefix.
// It returns the bare payload and the declared MIME type, if any.
func StripDataURL(s string) (payload, mimeType string) {
	s = strings.TrimSpace(s)
	idx := strings.IndexByte(s, ',')
	if idx < 0 {
		return s, ""
	}
	header, payload := s[:idx], s[idx+1:]
	if rest, ok := strings.CutPrefix(header, "data:"); ok {
		mimeType, _, _ = strings.Cut(rest, ";")
	}
	return payload, strings.ToLower(strings.TrimSpace(mimeType))
}

// DecodeImage decodes a base64 payload, accepting padded and unpadded input.
func DecodeImage(payload string) ([]byte, error) {
	if payload == "" {
		return nil, errEmptyImage
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		var rawErr error
		data, rawErr = base64.RawStdEncoding.DecodeString(payload)
		if rawErr != nil {
			return nil, err
		}
	}
	if len(data) == 0 {
		return nil, errEmptyImage
	}
	return data, nil
}

// DetectMimeType prefers a declared image/* type, then content sniffing, then FallbackMimeType.
func DetectMimeType(data []byte, declared string) string {
	if strings.HasPrefix(declared, "image/") {
		return declared
	}
	if len(data) > 0 {
		if sniffed := http.DetectContentType(data); strings.HasPrefix(sniffed, "image/") {
			return sniffed
		}
	}
	return FallbackMimeType
}
