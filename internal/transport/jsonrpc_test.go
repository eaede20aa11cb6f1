package transport

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseRequest(t *testing.T) {
	body := bytes.NewBufferString(`{"jsonrpc":"2.0","method":"create_activity","params":{"kind":"cook"},"id":1}`)
	req, err := ParseRequest(body)
	require.NoError(t, err)
	require.Equal(t, "2.0", req.JSONRPC)
	require.Equal(t, "create_activity", req.Method)
	require.Equal(t, json.RawMessage(`{"kind":"cook"}`), req.Params)
}

func TestParseRequest_Failures(t *testing.T) {
	tests := []struct {
		name string
		body string
		code int
	}{
		{"missing method", `{"jsonrpc":"2.0","id":1}`, ErrInvalidReq},
		{"wrong version", `{"jsonrpc":"1.0","method":"get_profile","id":1}`, ErrInvalidReq},
		{"batch", ` [{"jsonrpc":"2.0","method":"get_profile","id":1}]`, ErrInvalidReq},
		{"malformed", `{"jsonrpc":`, ErrParseCode},
		{"too large", `{"jsonrpc":"2.0","method":"x","params":"` + strings.Repeat("a", maxRequestBytes) + `"}`, ErrInvalidReq},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRequest(strings.NewReader(tt.body))
			require.Error(t, err)
			require.Equal(t, tt.code, ParseErrorCode(err))
		})
	}
}

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, 7, ErrInvalidParams, "bad params", ErrorData{Code: "INVALID_PARAMS"})

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Nil(t, resp.Result)
	require.Equal(t, ErrInvalidParams, resp.Error.Code)
	require.Equal(t, map[string]any{"code": "INVALID_PARAMS"}, resp.Error.Data)
	require.Equal(t, float64(7), resp.ID)
}

func TestWriteResult(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteResult(rec, "abc", map[string]int{"armed": 2})

	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Nil(t, resp.Error)
	require.Equal(t, "abc", resp.ID)
	require.Equal(t, map[string]any{"armed": float64(2)}, resp.Result)
}
