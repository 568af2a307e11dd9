package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/heraldai/herald/config"
	"github.com/heraldai/herald/errors"
	"github.com/heraldai/herald/logger"
)

// Start runs the hub, the dispatcher when one is wired, and the HTTP
// listener. It blocks until the listener stops; call Stop from another
// goroutine to shut down.
func (s *HeraldServer) Start(port int) error {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.Run()
	}()

	if s.dispatcher != nil {
		s.dispatcher.Start()
	}

	actualPort, err := findAvailablePort(port)
	if err != nil {
		return errors.Wrap(err, "failed to find available port")
	}
	if actualPort != port {
		s.logger.Infow("Port in use, using alternative",
			"requested_port", port,
			"actual_port", actualPort,
		)
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", actualPort),
		Handler:      s.mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // WebSocket connections outlive any write deadline
		IdleTimeout:  120 * time.Second,
	}

	logger.AddChimeOpenSymbol(s.logger).Infow("Server ready",
		"url", fmt.Sprintf("http://localhost:%d", actualPort),
		"port", actualPort,
	)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return errors.Wrap(err, "HTTP server failed")
	}
	return nil
}

// Stop gracefully shuts down the server and cleans up resources
func (s *HeraldServer) Stop() error {
	s.logger.Infow("Initiating server shutdown")

	// Dispatcher first so no new jobs start while connections drain
	if s.dispatcher != nil {
		s.logger.Infow("Stopping dispatcher")
		s.dispatcher.Stop()
		s.logger.Infow("Dispatcher stopped")
	}

	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.logger.Warnw("HTTP server shutdown error", "error", err)
		}
	}

	// Close client connections before cancelling the context so the
	// read pumps unblock
	s.mu.Lock()
	clientsToClose := make([]*Client, 0, len(s.clients))
	for client := range s.clients {
		clientsToClose = append(clientsToClose, client)
		delete(s.clients, client)
	}
	s.mu.Unlock()

	if len(clientsToClose) > 0 {
		s.logger.Infow("Closing client connections", "count", len(clientsToClose))
		for _, client := range clientsToClose {
			client.conn.Close()
		}
	}

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Infow("All goroutines stopped cleanly")
	case <-time.After(ShutdownTimeout):
		s.logger.Warnw("Goroutine shutdown timed out, forcing exit",
			"timeout", ShutdownTimeout,
		)
	}

	logger.AddChimeCloseSymbol(s.logger).Infow("Server shutdown complete",
		"event_drops", s.broadcastDrops.Load(),
	)
	return nil
}

// isPortAvailable reports whether a TCP listener can bind the port.
func isPortAvailable(port int) bool {
	addr := fmt.Sprintf(":%d", port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return false
	}
	_ = listener.Close() // Error ignored: best-effort port check, caller will retry on actual bind
	return true
}

// findAvailablePort tries to find an available port starting from the requested port
func findAvailablePort(requestedPort int) (int, error) {
	if isPortAvailable(requestedPort) {
		return requestedPort, nil
	}

	// Preferred fallback ports for development and production
	preferredPorts := []int{config.DefaultServerPort, config.FallbackServerPort}
	for _, port := range preferredPorts {
		if port != requestedPort && isPortAvailable(port) {
			return port, nil
		}
	}

	// Try high-range fallback ports as last resort (58787-58796)
	fallbackStart := 58787
	for i := 0; i < 10; i++ {
		port := fallbackStart + i
		if isPortAvailable(port) {
			return port, nil
		}
	}

	return 0, fmt.Errorf("no available ports found (tried %d, %d, %d, and range 58787-58796)",
		requestedPort, config.DefaultServerPort, config.FallbackServerPort)
}
