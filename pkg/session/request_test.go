package session

import (
	"context"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequest_Build(t *testing.T) {
	tests := []struct {
		name            string
		req             *Request
		token           string
		wantMethod      string
		wantAuth        string
		wantContentType string
		wantBody        string
	}{
		{
			name:       "get with token",
			req:        NewRequest("", "http://api.test/cart", nil),
			token:      "good-A",
			wantMethod: http.MethodGet,
			wantAuth:   "Bearer good-A",
		},
		{
			name:            "body defaults to json",
			req:             NewRequest(http.MethodPost, "http://api.test/cart/items", []byte(`{"meal_id":1}`)),
			wantMethod:      http.MethodPost,
			wantContentType: "application/json",
			wantBody:        `{"meal_id":1}`,
		},
		{
			name: "caller content type wins",
			req: &Request{
				Method: http.MethodPut,
				URL:    "http://api.test/upload",
				Header: http.Header{"Content-Type": []string{"text/plain"}},
				Body:   []byte("hello"),
			},
			token:           "good-A",
			wantMethod:      http.MethodPut,
			wantAuth:        "Bearer good-A",
			wantContentType: "text/plain",
			wantBody:        "hello",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			httpReq, err := tt.req.build(context.Background(), tt.token, "req-1")
			require.NoError(t, err)

			assert.Equal(t, tt.wantMethod, httpReq.Method)
			assert.Equal(t, tt.wantAuth, httpReq.Header.Get("Authorization"))
			assert.Equal(t, tt.wantContentType, httpReq.Header.Get("Content-Type"))
			assert.Equal(t, "req-1", httpReq.Header.Get(RequestIDHeader))

			if tt.wantBody == "" {
				assert.Nil(t, httpReq.Body)
				return
			}
			body, err := io.ReadAll(httpReq.Body)
			require.NoError(t, err)
			assert.Equal(t, tt.wantBody, string(body))
		})
	}
}

func TestRequest_BuildKeepsCallerRequestID(t *testing.T) {
	req := NewRequest(http.MethodGet, "http://api.test/orders/mine", nil)
	req.Header.Set(RequestIDHeader, "caller-id")

	httpReq, err := req.build(context.Background(), "", "generated")
	require.NoError(t, err)
	assert.Equal(t, "caller-id", httpReq.Header.Get(RequestIDHeader))
}

func TestRequest_BuildInvalidURL(t *testing.T) {
	_, err := NewRequest(http.MethodGet, "://bad", nil).build(context.Background(), "", "id")
	assert.Error(t, err)
}

func TestNewJSONRequest(t *testing.T) {
	req, err := NewJSONRequest(http.MethodPost, "http://api.test/auth/login", map[string]string{"email": "a@b.c"})
	require.NoError(t, err)
	assert.Equal(t, "application/json", req.Header.Get("Content-Type"))
	assert.JSONEq(t, `{"email": "a@b.c"}`, string(req.Body))

	_, err = NewJSONRequest(http.MethodPost, "http://api.test", make(chan int))
	assert.Error(t, err)
}
