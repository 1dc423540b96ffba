package llm

import (
	"encoding/base64"
	"net/http"
	"strings"
)

// ParseDataURL splits a base64 data-URL ("data:image/png;base64,....") into
// its media type and encoded payload. ok is false for anything else,
// including plain http(s) URLs.
func ParseDataURL(url string) (mediaType, data string, ok bool) {
	rest, found := strings.CutPrefix(url, "data:")
	if !found {
		return "", "", false
	}

	meta, payload, found := strings.Cut(rest, ",")
	if !found {
		return "", "", false
	}

	mediaType, isBase64 := strings.CutSuffix(meta, ";base64")
	if !isBase64 {
		return "", "", false
	}
	return mediaType, payload, true
}

// EncodeDataURL builds a base64 data-URL for raw image bytes. The media type
// is sniffed from the content.
func EncodeDataURL(data []byte) string {
	mediaType := http.DetectContentType(data)
	if i := strings.IndexByte(mediaType, ';'); i >= 0 {
		mediaType = mediaType[:i]
	}
	return "data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString(data)
}
