package handler

import (
	"net/http"
)

// HealthCheckHandler answers liveness probes with a bare 200 OK. It
// reports only that the process is up; trading state lives under the
// status routes.
func HealthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}
