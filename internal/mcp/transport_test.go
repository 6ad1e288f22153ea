package mcp

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPHandler_SessionValidation(t *testing.T) {
	tests := []struct {
		name      string
		stateless bool
		status    int
	}{
		{"stateful rejects unknown session", false, http.StatusNotFound},
		{"stateless skips session lookup", true, http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := NewServer(&Config{Store: &fakeStore{}, Searcher: &fakeSearcher{}})
			handler := NewHTTPHandler(server, tt.stateless)

			req := httptest.NewRequest(http.MethodDelete, "/mcp", nil)
			req.Header.Set("Mcp-Session-Id", "unknown-session")
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
		})
	}
}
