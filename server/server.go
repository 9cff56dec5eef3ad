package server

import (
	"context"
	"net/http"

	"github.com/fernandosena/bot-whatsapp/api"
	"github.com/fernandosena/bot-whatsapp/utils"
)

// Server represents the HTTP control surface
type Server struct {
	handler    *api.Handler
	httpServer *http.Server
}

// NewServer creates a new HTTP server around the API handler
func NewServer(handler *api.Handler) *Server {
	return &Server{handler: handler}
}

// Start registers routes and serves until Stop is called
func (s *Server) Start(port string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handler.HandleRoot)
	mux.HandleFunc("/status", s.handler.HandleStatus)
	mux.HandleFunc("/qr", s.handler.HandleQR)
	mux.HandleFunc("/send-ptt", s.handler.HandleSendPTT)
	mux.HandleFunc("/logout", s.handler.HandleLogout)
	mux.HandleFunc("/deliveries", s.handler.HandleDeliveries)
	mux.HandleFunc("/stats", s.handler.HandleStats)

	s.httpServer = &http.Server{
		Addr:    ":" + port,
		Handler: mux,
	}

	utils.Logger.Info("Starting REST API server", "port", port)
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Stop shuts the HTTP server down gracefully
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
