package internal

import (
	"context"
	"fmt"
	"html/template"
	"net/http"
	"strings"
	"sync"
	"time"
)

const (
	sessionCookie = "waka_session"
	folderCookie  = "drive_folder"
	cookieMaxAge  = 30 * 24 * time.Hour
)

// RunRequest is what the web form collects for one run
type RunRequest struct {
	SessionCookie string
	Folder        string
	Date          Date
	Entry         Entry
}

// WebRunFunc performs one run, reporting progress through log
type WebRunFunc func(ctx context.Context, req RunRequest, log LogFunc) *Report

// WebServer serves the login and run forms. Credentials live in the
// visitor's browser cookies, not on the server.
type WebServer struct {
	run  WebRunFunc
	now  func() time.Time
	tmpl *template.Template

	// one run at a time; the browser and the timesheet are shared
	mu sync.Mutex
}

type pageData struct {
	LoggedIn     bool
	FolderPrefix string
	Error        string
	Hours        string
	Overtime     string
	Note         string
	Logs         []string
	Ran          bool
	OK           bool
	Summary      string
}

func NewWebServer(run WebRunFunc) *WebServer {
	return &WebServer{
		run:  run,
		now:  time.Now,
		tmpl: template.Must(template.New("page").Parse(pageTemplate)),
	}
}

func (s *WebServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("POST /login", s.handleLogin)
	mux.HandleFunc("POST /logout", s.handleLogout)
	mux.HandleFunc("POST /run", s.handleRun)
	return mux
}

func (s *WebServer) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.render(w, http.StatusOK, s.basePage(r))
}

func (s *WebServer) handleLogin(w http.ResponseWriter, r *http.Request) {
	session := strings.TrimSpace(r.FormValue("session"))
	folder := strings.TrimSpace(r.FormValue("folder"))
	if session == "" || folder == "" {
		s.render(w, http.StatusBadRequest, pageData{Error: "Please fill in both fields."})
		return
	}

	expires := s.now().Add(cookieMaxAge)
	http.SetCookie(w, s.cookie(sessionCookie, session, expires))
	http.SetCookie(w, s.cookie(folderCookie, folder, expires))
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *WebServer) handleLogout(w http.ResponseWriter, r *http.Request) {
	for _, name := range []string{sessionCookie, folderCookie} {
		http.SetCookie(w, &http.Cookie{Name: name, Value: "", Path: "/", MaxAge: -1})
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *WebServer) handleRun(w http.ResponseWriter, r *http.Request) {
	data := s.basePage(r)
	if !data.LoggedIn {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	req := RunRequest{
		SessionCookie: cookieValue(r, sessionCookie),
		Folder:        cookieValue(r, folderCookie),
		Date:          DateOf(s.now()),
		Entry: Entry{
			WorkingHours: r.FormValue("hours"),
			Overtime:     r.FormValue("overtime"),
			Note:         r.FormValue("note"),
		},
	}
	data.Hours, data.Overtime, data.Note = req.Entry.WorkingHours, req.Entry.Overtime, req.Entry.Note

	var logs []string
	sink := func(msg string) {
		logs = append(logs, fmt.Sprintf("%s - %s", s.now().Format("15:04:05"), msg))
	}

	s.mu.Lock()
	report := s.run(r.Context(), req, sink)
	s.mu.Unlock()

	data.Ran = true
	data.Logs = logs
	if report != nil {
		data.OK = report.OK
		data.Summary = report.Summary()
	}
	s.render(w, http.StatusOK, data)
}

func (s *WebServer) basePage(r *http.Request) pageData {
	data := pageData{Hours: "08:30", Overtime: "00:00"}
	if cookieValue(r, sessionCookie) == "" {
		return data
	}
	data.LoggedIn = true
	folder := cookieValue(r, folderCookie)
	data.FolderPrefix = folder[:min(5, len(folder))]
	return data
}

func (s *WebServer) cookie(name, value string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

func (s *WebServer) render(w http.ResponseWriter, status int, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := s.tmpl.Execute(w, data); err != nil {
		fmt.Fprintf(w, "template error: %v", err)
	}
}

func cookieValue(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}

const pageTemplate = `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Timesheet Automator</title></head>
<body>
<h1>Timesheet Automator</h1>
{{if .Error}}<p class="error">{{.Error}}</p>{{end}}
{{if not .LoggedIn}}
<p class="info">Log in once to set up the automation.</p>
<form id="login" method="post" action="/login">
  <label>Dashboard session cookie <input type="password" name="session"></label>
  <label>Drive folder ID <input type="text" name="folder"></label>
  <button type="submit">Save &amp; Login</button>
</form>
{{else}}
<p class="status">Logged in (Folder: {{.FolderPrefix}}...)</p>
<form id="logout" method="post" action="/logout"><button type="submit">Logout / Reset</button></form>
<form id="run" method="post" action="/run">
  <label>Working Hours <input type="text" name="hours" value="{{.Hours}}"></label>
  <label>Overtime <input type="text" name="overtime" value="{{.Overtime}}"></label>
  <label>Notes <textarea name="note" placeholder="Task details...">{{.Note}}</textarea></label>
  <button type="submit">Run Automation</button>
</form>
{{if .Ran}}
<p id="verdict" class="{{if .OK}}ok{{else}}failed{{end}}">{{.Summary}}</p>
<ul id="logs">{{range .Logs}}<li>{{.}}</li>{{end}}</ul>
{{end}}
{{end}}
</body>
</html>
`
