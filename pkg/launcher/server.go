package launcher

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gorilla/mux"

	"github.com/parth-patel-1/DAU-Chatbot/pkg/api"
	"github.com/parth-patel-1/DAU-Chatbot/pkg/chat"
	"github.com/parth-patel-1/DAU-Chatbot/pkg/config"
	"github.com/parth-patel-1/DAU-Chatbot/pkg/session"
	"github.com/parth-patel-1/DAU-Chatbot/web"
)

const shutdownTimeout = 10 * time.Second

// RunServer serves the chat UI until ctx is cancelled.
func RunServer(ctx context.Context, cfg *config.AppConfig, rt *Runtime, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	store := session.NewStore(cfg.Session.IdleTimeout, logger)
	if err := store.StartReaper(cfg.Session.Sweep); err != nil {
		return err
	}
	defer store.StopReaper()

	turns := session.NewTurnHandler(rt.Agent, rt.Deps, cfg.General.TurnTimeout, logger)
	srv := api.NewServer(store, turns, chat.NewRenderer(), rt.Pages, logger)

	router, err := NewRouter(cfg.UI, srv, logger)
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.General.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.ListenAndServe()
	}()

	fmt.Printf("\n")
	fmt.Printf("  🎓 %s is running!\n", cfg.UI.Title)
	fmt.Printf("\n")
	fmt.Printf("  ➜  Local:   http://localhost:%d\n", cfg.General.Port)
	fmt.Printf("\n")
	fmt.Printf("  Press Ctrl+C to stop\n")
	fmt.Printf("\n")
	logger.Info("server started", "port", cfg.General.Port, "backend", cfg.General.Backend, "model", cfg.Agent.Model)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

// NewRouter wires the page, the static assets and the API onto one router.
func NewRouter(ui config.UIConfig, srv *api.Server, logger *slog.Logger) (*mux.Router, error) {
	page, err := newPageHandler(ui, srv)
	if err != nil {
		return nil, err
	}

	router := mux.NewRouter()
	router.Use(api.LoggingMiddleware(logger))
	srv.RegisterRoutes(router)

	static := staticFS(logger)
	router.PathPrefix("/static/").Handler(http.StripPrefix("/static/", http.FileServer(http.FS(static))))
	router.Handle("/", page).Methods("GET")

	return router, nil
}

// staticFS serves assets from disk when a web/static directory is found,
// otherwise from the binary.
func staticFS(logger *slog.Logger) fs.FS {
	if dir := findWebDir(); dir != "" {
		logger.Info("serving static assets from disk", "dir", dir)
		return os.DirFS(dir)
	}
	return web.StaticFS()
}

// findWebDir looks for the web/static directory.
func findWebDir() string {
	if dir := os.Getenv("DAUBOT_WEB_DIR"); dir != "" {
		return dir
	}

	paths := []string{
		"web/static",
		"../web/static",
		"../../web/static",
	}

	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, "web/static"),
			filepath.Join(exeDir, "../web/static"),
		)
	}

	for _, path := range paths {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			if _, err := os.Stat(filepath.Join(path, "app.js")); err == nil {
				absPath, _ := filepath.Abs(path)
				return absPath
			}
		}
	}

	return ""
}
