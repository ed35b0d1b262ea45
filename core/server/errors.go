package server

import (
	"errors"
)

var (
	errMissingModelFile = errors.New("model file not specified")
	errMissingTLSPair   = errors.New("HTTP/3 listener requires a TLS certificate and key")
	errMissingListen    = errors.New("listen address not specified")
)
