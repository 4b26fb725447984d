package base64

import (
	"encoding/base64"
	"errors"
	"strings"
)

const (
	dataPrefix   = "data:"
	base64Marker = ";base64,"
)

var ErrInvalidDataURL = errors.New("invalid base64 data url")

func GetContentType(file string) string {
	start := len(dataPrefix)
	end := strings.Index(file, base64Marker)

	if end == -1 || end < start {
		return ""
	}

	return file[start:end]
}

// Decode splits a data URL such as data:image/png;base64,... into its content type
// and decoded payload.
func Decode(file string) (contentType string, data []byte, err error) {
	contentType = GetContentType(file)
	if contentType == "" || !strings.HasPrefix(file, dataPrefix) {
		return "", nil, ErrInvalidDataURL
	}

	payload := file[strings.Index(file, base64Marker)+len(base64Marker):]

	data, err = base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, errors.Join(ErrInvalidDataURL, err)
	}

	return contentType, data, nil
}

// Extension returns the file extension for an image content type, without the dot.
func Extension(contentType string) string {
	_, sub, found := strings.Cut(contentType, "/")
	if !found {
		return ""
	}

	switch sub {
	case "jpeg", "jpg":
		return "jpg"
	case "svg+xml":
		return "svg"
	default:
		return sub
	}
}
