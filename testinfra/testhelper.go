package testinfra

import (
	"io"
	"net/http"
	"net/http/httptest"
)

// ExecuteRequest serves req with handler and returns status, body and headers of the response.
func ExecuteRequest(req *http.Request, handler http.Handler) (int, string, *http.Response) {
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	resp := w.Result()
	defer resp.Body.Close()
	bodyBytes, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(bodyBytes), resp
}
