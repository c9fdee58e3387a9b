package router

import "errors"

// ErrMalformedMessage is returned for requests that are not valid JSON,
// violate the request schema, or name an unknown kind. They get no
// response and change no state.
var ErrMalformedMessage = errors.New("router: malformed message")
