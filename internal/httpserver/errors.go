package httpserver

import (
	"fmt"
	"net/http"

	"github.com/kmlvision/tileblend/internal/blendengine"
	"github.com/kmlvision/tileblend/internal/blendrequest"
	"github.com/kmlvision/tileblend/internal/blendsettings"
)

// HTTPError represents an HTTP error to be shown to the user, per
// iiif/error.go's HTTPError shape.
type HTTPError struct {
	StatusCode int
	Code       string // IIPImage-style two-digit pair, e.g. "2 1"; empty if none applies
	Message    string
}

func (e HTTPError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%d (%s) [%s] %s", e.StatusCode, http.StatusText(e.StatusCode), e.Code, e.Message)
	}
	return fmt.Sprintf("%d (%s) %s", e.StatusCode, http.StatusText(e.StatusCode), e.Message)
}

// asHTTPError maps request, settings and engine error kinds onto a
// status code and, where applicable, the IIPImage-style two-digit
// error pair.
func asHTTPError(err error) HTTPError {
	switch e := err.(type) {
	case HTTPError:
		return e
	case *blendrequest.Error:
		return HTTPError{StatusCode: requestKindStatus(e.Kind), Code: e.Code, Message: e.Message}
	case *blendsettings.Error:
		return HTTPError{StatusCode: http.StatusBadRequest, Code: e.Code, Message: e.Message}
	case blendengine.BlendError:
		return HTTPError{StatusCode: engineKindStatus(e.Kind()), Code: e.Code(), Message: e.Error()}
	default:
		return HTTPError{StatusCode: http.StatusInternalServerError, Message: err.Error()}
	}
}

func requestKindStatus(kind string) int {
	switch kind {
	case "BlendSpecMissing", "BlendSpecInvalid", "BlendSpecEmpty",
		"TooManyParameters", "TooFewParameters",
		"InvalidRotation", "InvalidSize", "InvalidRegion":
		return http.StatusBadRequest
	default:
		return http.StatusBadRequest
	}
}

func engineKindStatus(kind string) int {
	switch kind {
	case "UnsupportedFormat", "UnexpectedCompression":
		return http.StatusNotFound
	case "UnsupportedRegion", "InvalidRegion":
		return http.StatusNotImplemented
	case "BlendSpecInvalid", "BlendSpecEmpty":
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// writeError writes an IIPImage-style plain-text error body: the
// two-digit code pair on its own line (when present) followed by the
// message, mirroring Response::setError's on-wire shape.
func writeError(w http.ResponseWriter, err error) {
	he := asHTTPError(err)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(he.StatusCode)
	if he.Code != "" {
		fmt.Fprintf(w, "%s\n%s\n", he.Code, he.Message)
	} else {
		fmt.Fprintf(w, "%s\n", he.Message)
	}
}
