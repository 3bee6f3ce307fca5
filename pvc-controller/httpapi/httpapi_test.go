package httpapi

import (
	"bytes"
	"context"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kelda/jobpvc/pkg/errors"
)

type nameRequest struct {
	Identity string `json:"identity"`
}

type nameResponse struct {
	ClaimName string `json:"claimName"`
}

func TestHTTPAPI(t *testing.T) {
	errConflict := errors.New("conflict")
	statusFn := func(err error) int {
		if err == errConflict {
			return http.StatusConflict
		}
		return http.StatusInternalServerError
	}

	tests := []struct {
		name     string
		handlers map[string]interface{}

		method    string
		endpoint  string
		body      []byte
		expStatus int
		expResp   []byte
		expNewErr error
	}{
		{
			name: "Basic",
			handlers: map[string]interface{}{
				"/api/name": func(_ context.Context, req *nameRequest) (*nameResponse, error) {
					if req.Identity != "exp-req" {
						panic("bad req val")
					}
					return &nameResponse{ClaimName: "pvc-exp-req"}, nil
				},
			},
			endpoint:  "/api/name",
			body:      []byte(`{"identity": "exp-req"}`),
			expStatus: http.StatusOK,
			expResp: []byte(`{"result":{"claimName":"pvc-exp-req"}}
`),
		},
		{
			name: "Error",
			handlers: map[string]interface{}{
				"/api/name": func(_ context.Context, _ *nameRequest) (*nameResponse, error) {
					return &nameResponse{}, errors.New("message")
				},
			},
			endpoint:  "/api/name",
			body:      []byte(`{"identity": "exp-req"}`),
			expStatus: http.StatusInternalServerError,
			expResp: []byte(`{"result":null,"error":{"details":"message"}}
`),
		},
		{
			name: "ErrorStatus",
			handlers: map[string]interface{}{
				"/api/name": func(_ context.Context, _ *nameRequest) (*nameResponse, error) {
					return nil, errConflict
				},
			},
			endpoint:  "/api/name",
			body:      []byte(`{"identity": "exp-req"}`),
			expStatus: http.StatusConflict,
			expResp: []byte(`{"result":null,"error":{"details":"conflict"}}
`),
		},
		{
			name: "FriendlyError",
			handlers: map[string]interface{}{
				"/api/name": func(_ context.Context, _ *nameRequest) (*nameResponse, error) {
					return nil, errors.WithContext("ensure", errors.NewFriendlyError("Try again"))
				},
			},
			endpoint:  "/api/name",
			body:      []byte(`{"identity": "exp-req"}`),
			expStatus: http.StatusInternalServerError,
			expResp: []byte(`{"result":null,"error":{"details":"Try again"}}
`),
		},
		{
			name: "UnknownField",
			handlers: map[string]interface{}{
				"/api/name": func(_ context.Context, _ *nameRequest) (*nameResponse, error) {
					panic("shouldn't be called")
				},
			},
			endpoint:  "/api/name",
			body:      []byte(`{"identiy": "typo"}`),
			expStatus: http.StatusBadRequest,
			expResp: []byte(`{"result":null,"error":{"details":"unmarshal request: json: unknown field \"identiy\""}}
`),
		},
		{
			name: "WrongMethod",
			handlers: map[string]interface{}{
				"/api/name": func(_ context.Context, _ *nameRequest) (*nameResponse, error) {
					panic("shouldn't be called")
				},
			},
			method:    "GET",
			endpoint:  "/api/name",
			expStatus: http.StatusMethodNotAllowed,
			expResp: []byte(`{"result":null,"error":{"details":"method GET not allowed"}}
`),
		},
		{
			name: "BadFunctionType",
			handlers: map[string]interface{}{
				"/api/name": func(_ context.Context) error {
					return nil
				},
			},
			expNewErr: errors.WithContext("create handler for /api/name",
				errors.New("must take exactly two arguments, got 1")),
		},
		{
			name: "BadRequestType",
			handlers: map[string]interface{}{
				"/api/name": func(_ context.Context, _ string) (*nameResponse, error) {
					return nil, nil
				},
			},
			expNewErr: errors.WithContext("create handler for /api/name",
				errors.New("second argument must be a pointer to a struct")),
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			server, err := New("", test.handlers, statusFn)
			require.Equal(t, test.expNewErr, err)

			if err != nil {
				return
			}

			method := test.method
			if method == "" {
				method = "POST"
			}
			req := httptest.NewRequest(method, test.endpoint, bytes.NewBuffer(test.body))
			resp := httptest.NewRecorder()
			server.Handler.ServeHTTP(resp, req)

			assert.Equal(t, test.expStatus, resp.Code)
			assert.Equal(t, "application/json", resp.Header().Get("Content-Type"))

			body, err := ioutil.ReadAll(resp.Body)
			require.NoError(t, err)
			assert.Equal(t, string(test.expResp), string(body))
		})
	}
}
