package web

import (
	"context"
	"errors"
	"html/template"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/JA3G3R/reviewcrew/logging"
	"github.com/JA3G3R/reviewcrew/report"
	"github.com/JA3G3R/reviewcrew/store"
	"go.uber.org/zap"
)

// HistoryLimit is how many turns the page shows.
const HistoryLimit = 30

// Responder answers a prompt. It never fails; errors are folded into text.
type Responder interface {
	Respond(ctx context.Context, prompt string) string
}

// History stores conversation turns.
type History interface {
	AddConversation(ctx context.Context, prompt, response string) (int64, error)
	RecentConversations(ctx context.Context, limit int) ([]store.Conversation, error)
}

type Server struct {
	responder Responder
	history   History
	log       *zap.SugaredLogger
	page      *template.Template
}

// New builds the UI server. A nil history keeps turns in memory.
func New(responder Responder, history History, log *zap.SugaredLogger) *Server {
	if history == nil {
		history = &memoryHistory{}
	}
	log = logging.OrNop(log)
	return &Server{
		responder: responder,
		history:   history,
		log:       log,
		page:      template.Must(template.New("page").Parse(pageHTML)),
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("POST /{$}", s.handleAsk)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok\n"))
	})
	return mux
}

// Serve accepts connections on ln until ctx is done, then shuts down
// gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		errc <- srv.Serve(ln)
	}()
	s.log.Infow("web ui listening", "addr", ln.Addr().String())

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// ListenAndServe listens on addr and calls Serve.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

type turnView struct {
	Prompt   string
	Response template.HTML
	At       string
}

type pageData struct {
	Warning string
	Prompt  string
	Turns   []turnView
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, pageData{})
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	prompt := strings.TrimSpace(r.PostFormValue("prompt"))
	if prompt == "" {
		s.render(w, r, http.StatusBadRequest, pageData{Warning: "Please type a prompt."})
		return
	}

	response := s.responder.Respond(r.Context(), prompt)
	if _, err := s.history.AddConversation(r.Context(), prompt, response); err != nil {
		s.log.Errorw("save conversation", "error", err)
		http.Error(w, "could not save conversation", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, data pageData) {
	turns, err := s.history.RecentConversations(r.Context(), HistoryLimit)
	if err != nil {
		s.log.Errorw("load conversations", "error", err)
		http.Error(w, "could not load history", http.StatusInternalServerError)
		return
	}
	for _, t := range turns {
		body, err := report.HTML(t.Response)
		if err != nil {
			body = template.HTML(template.HTMLEscapeString(t.Response))
		}
		data.Turns = append(data.Turns, turnView{
			Prompt:   t.Prompt,
			Response: body,
			At:       t.CreatedAt.Local().Format("2006-01-02 15:04"),
		})
	}

	var b strings.Builder
	if err := s.page.Execute(&b, data); err != nil {
		s.log.Errorw("render page", "error", err)
		http.Error(w, "render error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(b.String()))
}

// memoryHistory is used when no store is configured.
type memoryHistory struct {
	mu    sync.Mutex
	turns []store.Conversation
}

func (m *memoryHistory) AddConversation(_ context.Context, prompt, response string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := int64(len(m.turns) + 1)
	m.turns = append(m.turns, store.Conversation{ID: id, Prompt: prompt, Response: response, CreatedAt: time.Now()})
	return id, nil
}

func (m *memoryHistory) RecentConversations(_ context.Context, limit int) ([]store.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit <= 0 {
		limit = HistoryLimit
	}
	var out []store.Conversation
	for i := len(m.turns) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.turns[i])
	}
	return out, nil
}

const pageHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>AI Development Crew</title>
<style>
body { font-family: system-ui, sans-serif; max-width: 60rem; margin: 2rem auto; padding: 0 1rem; }
form { display: flex; gap: .5rem; margin-bottom: 1.5rem; }
input[type=text] { flex: 1; padding: .5rem; }
.warning { background: #fff4e5; border: 1px solid #f0ad4e; padding: .75rem; }
.turn { border-top: 1px solid #ddd; padding: 1rem 0; }
.prompt { font-weight: 600; }
.at { color: #888; font-size: .85rem; }
</style>
</head>
<body>
<h1>🚀 Latest AI Development Crew</h1>
<form method="post" action="/">
  <label for="prompt">Ask something about AI:</label>
  <input type="text" id="prompt" name="prompt" value="{{.Prompt}}">
  <button type="submit">Run Agent</button>
</form>
{{if .Warning}}<p class="warning">{{.Warning}}</p>{{end}}
{{range .Turns}}
<div class="turn">
  <div class="at">{{.At}}</div>
  <div class="prompt">{{.Prompt}}</div>
  <div class="response">{{.Response}}</div>
</div>
{{end}}
</body>
</html>
`
