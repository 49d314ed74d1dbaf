package blendengine

import "fmt"

// BlendError is satisfied by every error kind the pipeline can raise
// before a response is written, carrying the two-digit IIPImage-style
// code assigned to each kind.
type BlendError interface {
	error
	Code() string
	Kind() string
}

type blendError struct {
	kind    string
	code    string
	message string
}

func (e *blendError) Error() string { return fmt.Sprintf("%s: %s", e.kind, e.message) }
func (e *blendError) Code() string  { return e.code }
func (e *blendError) Kind() string  { return e.kind }

func newError(kind, code, format string, args ...interface{}) BlendError {
	return &blendError{kind: kind, code: code, message: fmt.Sprintf(format, args...)}
}

func errUnsupportedFormat(path string) BlendError {
	return newError("UnsupportedFormat", "2 1", "channel %q is not 1-channel 8/16-bit grayscale", path)
}

func errUnexpectedCompression(path string) BlendError {
	return newError("UnexpectedCompression", "2 1", "image reader returned a compressed tile for %q when uncompressed was required", path)
}

func errUnsupportedRegion() BlendError {
	return newError("UnsupportedRegion", "2 1", "region requests are not supported on the blending path")
}

func errBlendSpecInvalid(format string, args ...interface{}) BlendError {
	return newError("BlendSpecInvalid", "2 1", format, args...)
}

func errBlendSpecEmpty() BlendError {
	return newError("BlendSpecEmpty", "2 3", "blend spec has zero channels")
}
