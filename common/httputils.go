package common

import "net/http"

func HttpStatusIsSuccess(status int) bool {
	return status >= 200 && status < 300
}

func HttpStatusIsAuthFailure(status int) bool {
	return status == http.StatusUnauthorized || status == http.StatusForbidden
}

func HttpStatusIsClientError(status int) bool {
	return status >= 400 && status < 500
}

func HttpStatusIsServerError(status int) bool {
	return status >= 500
}
