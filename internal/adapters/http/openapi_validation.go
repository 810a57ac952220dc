package httpadapter

import (
	_ "embed"
	"errors"
	"net/http"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	legacyrouter "github.com/getkin/kin-openapi/routers/legacy"
)

//go:embed openapi.yaml
var openapiSpec []byte

// requestValidator checks incoming /v1 requests against the embedded
// OpenAPI document before they reach a handler. Requests for paths the
// document does not know pass through untouched; the mux decides their
// fate.
type requestValidator struct {
	router routers.Router
}

func newRequestValidator() *requestValidator {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(openapiSpec)
	if err != nil {
		panic("embedded openapi document does not parse: " + err.Error())
	}
	if err := doc.Validate(loader.Context); err != nil {
		panic("embedded openapi document is invalid: " + err.Error())
	}
	router, err := legacyrouter.NewRouter(doc)
	if err != nil {
		panic("build openapi router: " + err.Error())
	}
	return &requestValidator{router: router}
}

func (v *requestValidator) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/v1/") {
			next.ServeHTTP(w, r)
			return
		}

		route, pathParams, err := v.router.FindRoute(r)
		if err != nil {
			if errors.Is(err, routers.ErrPathNotFound) {
				next.ServeHTTP(w, r)
				return
			}
			if errors.Is(err, routers.ErrMethodNotAllowed) {
				writeError(w, http.StatusMethodNotAllowed, "method not allowed")
				return
			}
			next.ServeHTTP(w, r)
			return
		}

		options := &openapi3filter.Options{
			// Multipart uploads are streamed to object storage; the
			// handler reports a missing file part itself.
			ExcludeRequestBody: isMultipart(r),
		}
		input := &openapi3filter.RequestValidationInput{
			Request:    r,
			PathParams: pathParams,
			Route:      route,
			Options:    options,
		}
		if err := openapi3filter.ValidateRequest(r.Context(), input); err != nil {
			var requestErr *openapi3filter.RequestError
			if errors.As(err, &requestErr) {
				writeError(w, http.StatusBadRequest, requestErr.Error())
				return
			}
			writeError(w, http.StatusBadRequest, "request does not match API schema")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func isMultipart(r *http.Request) bool {
	return strings.HasPrefix(strings.ToLower(r.Header.Get("Content-Type")), "multipart/")
}
