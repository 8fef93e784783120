package launcher

import (
	"bytes"
	"html/template"
	"net/http"

	"github.com/parth-patel-1/DAU-Chatbot/pkg/api"
	"github.com/parth-patel-1/DAU-Chatbot/pkg/chat"
	"github.com/parth-patel-1/DAU-Chatbot/pkg/config"
	"github.com/parth-patel-1/DAU-Chatbot/web"
)

type pageData struct {
	UI       config.UIConfig
	Messages []chat.Rendered
	Busy     bool
}

type pageHandler struct {
	ui   config.UIConfig
	srv  *api.Server
	tmpl *template.Template
}

func newPageHandler(ui config.UIConfig, srv *api.Server) (*pageHandler, error) {
	tmpl, err := template.ParseFS(web.TemplatesFS(), "index.html")
	if err != nil {
		return nil, err
	}
	return &pageHandler{ui: ui, srv: srv, tmpl: tmpl}, nil
}

// ServeHTTP renders the chat page with the caller's transcript.
func (h *pageHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sess := h.srv.Session(w, r)
	data := pageData{
		UI:       h.ui,
		Messages: h.srv.Renderer.RenderAll(sess.Transcript().Messages()),
		Busy:     sess.Busy(),
	}

	var buf bytes.Buffer
	if err := h.tmpl.Execute(&buf, data); err != nil {
		h.srv.Logger.Error("render page failed", "error", err)
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}
