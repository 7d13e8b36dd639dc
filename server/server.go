package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"log"
	"net/http"
	"sync"
	"time"

	"cleanbot/experiment"
	"cleanbot/server/cell_views"
	"cleanbot/server/fastview"
	"cleanbot/server/root_view"

	"github.com/gorilla/mux"
	channerics "github.com/niceyeti/channerics/channels"
)

const shutdownGracePeriod = 5 * time.Second

// Server serves a live view of training progress. Any number of pages may be open; each
// gets its own websocket fed from a shared hub of ele-updates. Pages opened mid-training
// are rendered from the latest frame and kept current from there.
type Server struct {
	addr     string
	rootView *root_view.RootView
	hub      *hub
	router   *mux.Router
	ctx      context.Context

	mu        sync.RWMutex
	lastFrame cell_views.Frame
}

// NewServer initializes all of the views and returns a server for the passed snapshots.
// Width sizes the grid shown before the first snapshot arrives. The views, and the
// goroutines feeding them, live until ctx is done.
func NewServer(
	ctx context.Context,
	addr string,
	width int,
	snapshots <-chan experiment.Snapshot,
) (*Server, error) {
	if width <= 0 {
		return nil, fmt.Errorf("grid width must be positive, got %d", width)
	}

	server := &Server{
		addr:      addr,
		ctx:       ctx,
		lastFrame: cell_views.EmptyFrame(width),
	}

	tracked := channerics.Convert(ctx.Done(), snapshots, func(snapshot experiment.Snapshot) experiment.Snapshot {
		server.setLastFrame(cell_views.Convert(snapshot))
		return snapshot
	})
	rootView, err := root_view.NewRootView(ctx, tracked)
	if err != nil {
		return nil, err
	}
	server.rootView = rootView
	server.hub = newHub(ctx.Done(), rootView.Updates())

	router := mux.NewRouter()
	router.HandleFunc("/", server.serveIndex).Methods(http.MethodGet)
	router.HandleFunc("/ws", server.serveWebsocket).Methods(http.MethodGet)
	router.HandleFunc("/api/snapshot", server.serveSnapshot).Methods(http.MethodGet)
	server.router = router

	return server, nil
}

// Handler returns the server's routes.
func (server *Server) Handler() http.Handler {
	return server.router
}

// Serve listens on the server's address until ctx is done, then shuts down gracefully.
func (server *Server) Serve(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:    server.addr,
		Handler: server.router,
	}

	errs := make(chan error, 1)
	go func() {
		log.Printf("serving training views on %s", server.addr)
		errs <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errs:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGracePeriod)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errs; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}

func (server *Server) setLastFrame(frame cell_views.Frame) {
	server.mu.Lock()
	defer server.mu.Unlock()
	server.lastFrame = frame
}

// LastFrame returns the frame of the most recent snapshot.
func (server *Server) LastFrame() cell_views.Frame {
	server.mu.RLock()
	defer server.mu.RUnlock()
	return server.lastFrame
}

// serveWebsocket publishes ele-updates to a page until it goes away.
func (server *Server) serveWebsocket(w http.ResponseWriter, r *http.Request) {
	updates, unsubscribe := server.hub.subscribe()
	defer unsubscribe()

	cli, err := fastview.NewClient(updates, w, r)
	if err != nil {
		log.Println("upgrade:", err)
		return
	}
	if err := cli.WithMerge(fastview.Coalesce).Sync(server.ctx); err != nil {
		log.Println("websocket:", err)
	}
}

// Serve the index.html main page.
func (server *Server) serveIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	if err := renderTemplate(w, server.rootView, server.LastFrame()); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// Serve the latest frame as json.
func (server *Server) serveSnapshot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(server.LastFrame()); err != nil {
		log.Println("snapshot:", err)
	}
}

func renderTemplate(
	w io.Writer,
	vc fastview.ViewComponent,
	data interface{},
) (err error) {
	t := template.New("index.html")
	var tname string
	if tname, err = vc.Parse(t); err != nil {
		return
	}
	if _, err = t.Parse(`{{ template "` + tname + `" . }}`); err != nil {
		return
	}
	return t.Execute(w, data)
}
