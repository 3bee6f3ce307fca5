package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"reflect"

	log "github.com/sirupsen/logrus"

	"github.com/kelda/jobpvc/pkg/errors"
)

type UnaryHandler struct {
	RPC    interface{}
	Status StatusFunc
}

func (uh UnaryHandler) Handler() (http.HandlerFunc, error) {
	handler := reflect.ValueOf(uh.RPC)

	// Validate the function signature.
	if kind := handler.Type().Kind(); kind != reflect.Func {
		return nil, errors.New("must be a function, got %s", kind)
	}

	// Validate the function arguments.
	if numArgs := handler.Type().NumIn(); numArgs != 2 {
		return nil, errors.New("must take exactly two arguments, got %d", numArgs)
	}

	ctxArgType := handler.Type().In(0)
	if !ctxArgType.Implements(reflect.TypeOf((*context.Context)(nil)).Elem()) {
		return nil, errors.New("first argument must be a context.Context")
	}

	reqArgType := handler.Type().In(1)
	if !isStructPointer(reqArgType) {
		return nil, errors.New("second argument must be a pointer to a struct")
	}

	// Validate the function return arguments.
	if numRet := handler.Type().NumOut(); numRet != 2 {
		return nil, errors.New("must return exactly two values, got %d", numRet)
	}

	if !isStructPointer(handler.Type().Out(0)) {
		return nil, errors.New("first return argument must be a pointer to a struct")
	}

	errValType := handler.Type().Out(1)
	if !errValType.Implements(reflect.TypeOf((*error)(nil)).Elem()) {
		return nil, errors.New("second return argument must be an error")
	}

	statusFn := uh.Status
	if statusFn == nil {
		statusFn = func(error) int { return http.StatusInternalServerError }
	}

	execReq := func(req *http.Request) unaryHTTPResponse {
		defer req.Body.Close()

		if req.Method != http.MethodPost {
			return unaryHTTPResponse{
				Status: http.StatusMethodNotAllowed,
				Error:  errors.New("method %s not allowed", req.Method),
			}
		}

		reqArg := reflect.New(reqArgType.Elem())
		decoder := json.NewDecoder(req.Body)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(reqArg.Interface()); err != nil {
			return unaryHTTPResponse{
				Status: http.StatusBadRequest,
				Error:  errors.WithContext("unmarshal request", err),
			}
		}

		res := handler.Call([]reflect.Value{
			reflect.ValueOf(req.Context()),
			reqArg,
		})

		if !res[1].IsNil() {
			err := res[1].Interface().(error)
			return unaryHTTPResponse{
				Status: statusFn(err),
				Error:  err,
			}
		}

		return unaryHTTPResponse{
			Status: http.StatusOK,
			Result: res[0].Interface(),
		}
	}

	return func(w http.ResponseWriter, req *http.Request) {
		resp := execReq(req)
		if resp.Error != nil {
			log.WithError(resp.Error).WithFields(log.Fields{
				"path":   req.URL.Path,
				"status": resp.Status,
			}).Warn("Request failed")
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(resp.Status)
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			fmt.Fprintf(w, "Failed to marshal response (%+v): %s\n", resp, err)
		}
	}, nil
}

func isStructPointer(t reflect.Type) bool {
	return t.Kind() == reflect.Ptr && t.Elem().Kind() == reflect.Struct
}

// unaryHTTPResponse defines the standard response format to HTTP unary requests.
type unaryHTTPResponse struct {
	Status int
	Result interface{}
	Error  error
}

func (resp unaryHTTPResponse) MarshalJSON() ([]byte, error) {
	type errorDetailsJSON struct {
		Details string `json:"details"`
	}
	type unaryHTTPResponseJSON struct {
		Result interface{}       `json:"result"`
		Error  *errorDetailsJSON `json:"error,omitempty"`
	}

	toMarshal := unaryHTTPResponseJSON{Result: resp.Result}
	if resp.Error != nil {
		toMarshal.Error = &errorDetailsJSON{
			Details: errors.GetPrintableMessage(resp.Error),
		}
	}

	return json.Marshal(toMarshal)
}
