package web

import (
	"fmt"
	"html/template"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

// subscribeRoutes serves token-gated public ICS feeds. Outlook and
// other webcal consumers cannot speak CalDAV, so these endpoints hand
// out the same rendered calendars over plain GET.
func (s *Server) subscribeRoutes(r chi.Router) {
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
	}))
	r.Use(s.requireToken)
	r.Get("/", s.handleSubscriptionIndex)
	r.Get("/all.ics", s.handleSubscribeAll)
	r.Get("/{projectID}.ics", s.handleSubscribeProject)
}

// requireToken rejects requests whose token is not on the configured
// list. An empty list disables the feature entirely.
func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := chi.URLParam(r, "token")
		for _, valid := range s.cfg.PublicTokens {
			if token == valid {
				next.ServeHTTP(w, r)
				return
			}
		}
		s.logger.Warn("subscription token rejected", "path", r.URL.Path)
		http.Error(w, "Invalid subscription token", http.StatusForbidden)
	})
}

func (s *Server) writeCalendar(w http.ResponseWriter, text, filename string) {
	w.Header().Set("Content-Type", `text/calendar; charset="utf-8"`)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Cache-Control", fmt.Sprintf("max-age=%d", int(s.cfg.SyncInterval.Seconds())))
	w.Write([]byte(text))
}

func (s *Server) handleSubscribeProject(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")
	text, ok := s.cache.ProjectCalendarText(projectID)
	if !ok {
		http.Error(w, "Project not found", http.StatusNotFound)
		return
	}
	s.writeCalendar(w, text, projectID+".ics")
}

func (s *Server) handleSubscribeAll(w http.ResponseWriter, r *http.Request) {
	text, err := s.renderer.RenderAll(s.cache.Projects())
	if err != nil {
		s.logger.Error("render combined calendar", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	s.writeCalendar(w, text, "kodbox-all.ics")
}

var subscriptionIndexTmpl = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html>
<head>
<title>KodBox Calendar Subscriptions</title>
<style>
body { font-family: Arial, sans-serif; margin: 40px; }
.subscription-link { background: #f5f5f5; padding: 10px; margin: 10px 0; border-radius: 5px; font-family: monospace; }
.instructions { background: #e7f3ff; padding: 15px; margin: 20px 0; border-radius: 5px; }
</style>
</head>
<body>
<h1>KodBox Calendar Subscriptions</h1>
<div class="instructions">
<h3>How to add to Outlook:</h3>
<ol>
<li>Copy one of the webcal:// links below</li>
<li>In Outlook, go to Calendar, Add Calendar, Subscribe from web</li>
<li>Paste the webcal:// link and click Import</li>
</ol>
</div>
<h2>Available Calendars:</h2>
<h3>All Projects Combined:</h3>
<div class="subscription-link">webcal://{{.Host}}/subscribe/{{.Token}}/all.ics</div>
<h3>Individual Projects:</h3>
{{range .Projects}}
<div>
<strong>{{.Name}}</strong><br>
<div class="subscription-link">webcal://{{$.Host}}/subscribe/{{$.Token}}/{{.ID}}.ics</div>
</div>
{{end}}
</body>
</html>
`))

type subscriptionProject struct {
	ID   string
	Name string
}

func (s *Server) handleSubscriptionIndex(w http.ResponseWriter, r *http.Request) {
	projects := s.cache.Projects()
	data := struct {
		Host     string
		Token    string
		Projects []subscriptionProject
	}{
		Host:  r.Host,
		Token: chi.URLParam(r, "token"),
	}
	for _, p := range projects {
		data.Projects = append(data.Projects, subscriptionProject{ID: p.ID, Name: p.Name})
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := subscriptionIndexTmpl.Execute(w, data); err != nil {
		s.logger.Error("render subscription index", "error", err)
	}
}
