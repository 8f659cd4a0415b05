package playback

import "errors"

var (
	errNotDataURL   = errors.New("not a data URL")
	errNotBase64URL = errors.New("data URL is not base64 encoded")
)
