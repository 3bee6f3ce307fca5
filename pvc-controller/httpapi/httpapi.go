// Package httpapi serves plain Go functions as JSON over HTTP.
package httpapi

import (
	"fmt"
	"net/http"

	"github.com/kelda/jobpvc/pkg/errors"
)

// StatusFunc maps an error returned by a handler to an HTTP status code.
type StatusFunc func(error) int

// New creates a http.Server that provides a JSON interface for the given
// handlers. Each handler must have the signature
//
//	func(context.Context, *Request) (*Response, error)
//
// where Request and Response are structs that can be encoded as JSON. Errors
// are reported with the status returned by statusFn, or 500 if statusFn is
// nil.
func New(addr string, handlers map[string]interface{}, statusFn StatusFunc) (*http.Server, error) {
	if statusFn == nil {
		statusFn = func(error) int { return http.StatusInternalServerError }
	}

	mux := http.NewServeMux()
	for route, handler := range handlers {
		httpHandler, err := UnaryHandler{RPC: handler, Status: statusFn}.Handler()
		if err != nil {
			return nil, errors.WithContext(fmt.Sprintf("create handler for %s", route), err)
		}

		mux.HandleFunc(route, httpHandler)
	}

	return &http.Server{
		Addr:    addr,
		Handler: mux,
	}, nil
}
