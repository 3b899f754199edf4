package server

import (
	"log/slog"
	"net/http"
)

func Handler(hub *Hub, svc InterviewService, files AudioFiles, maxUploadBytes int64) http.Handler {
	mux := http.NewServeMux()

	registerWSRoute(mux, hub)
	registerAPIRoutes(mux, svc, files, maxUploadBytes)

	return mux
}

func Serve(addr string, hub *Hub, svc InterviewService, files AudioFiles, maxUploadBytes int64) error {
	h := Handler(hub, svc, files, maxUploadBytes)

	slog.Info("listening", "addr", addr)
	return http.ListenAndServe(addr, h)
}
