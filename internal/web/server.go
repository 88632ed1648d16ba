package web

import (
	"context"
	"embed"
	"html/template"
	"io/fs"
	"log"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/conorfennell/recall/internal/advisor"
	"github.com/conorfennell/recall/internal/analytics"
	"github.com/conorfennell/recall/internal/config"
	"github.com/conorfennell/recall/internal/domain"
	"github.com/conorfennell/recall/internal/importer"
	"github.com/conorfennell/recall/internal/schedule"
	"github.com/conorfennell/recall/internal/storage"
)

//go:embed all:static
var staticFiles embed.FS

//go:embed all:templates
var templateFiles embed.FS

const defaultTimeSpent = 10 // minutes, when the review form reports none

// conceptForm carries validated input for creating a concept.
type conceptForm struct {
	Title       string `validate:"required,max=200"`
	Subject     string `validate:"required,max=100"`
	Description string `validate:"required,max=2000"`
}

// Server holds the dependencies for the HTTP server.
type Server struct {
	db        *storage.DB
	advisor   *advisor.Advisor
	insight   *advisor.InsightCache
	cfg       config.Config
	router    *http.ServeMux
	templates *template.Template
	validate  *validator.Validate

	mu      sync.Mutex
	pending map[string][]domain.Question // quizzes awaiting answers, by concept id
}

// NewServer creates and configures a new server. It subscribes to the
// store so the coaching insight refreshes after every mutation.
func NewServer(db *storage.DB, adv *advisor.Advisor, cfg config.Config) *Server {
	tpl, err := template.ParseFS(templateFiles, "templates/*.html")
	if err != nil {
		log.Fatalf("Failed to parse templates: %v", err)
	}

	s := &Server{
		db:        db,
		advisor:   adv,
		cfg:       cfg,
		router:    http.NewServeMux(),
		templates: tpl,
		validate:  validator.New(),
		pending:   make(map[string][]domain.Question),
	}

	s.insight = advisor.NewInsightCache(
		"Crunching the numbers on your learning journey...",
		func(ctx context.Context) string {
			concepts, err := db.Load()
			if err != nil {
				slog.Error("Failed to load concepts for insight", "error", err)
				return advisor.FallbackInsight
			}
			return adv.Insight(ctx, s.apiKey(), concepts)
		},
	)
	db.Subscribe(func() { s.insight.Refresh(context.Background()) })
	s.insight.Refresh(context.Background())

	s.routes()
	return s
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// routes sets up the routing for the server.
func (s *Server) routes() {
	staticFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		log.Fatalf("Failed to create sub-filesystem for static assets: %v", err)
	}
	s.router.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.FS(staticFS))))

	s.router.HandleFunc("/", s.handleDashboard())
	s.router.HandleFunc("/concepts", s.handleConcepts())
	s.router.HandleFunc("/concepts/delete", s.handleDeleteConcept())
	s.router.HandleFunc("/review/", s.handleStartReview())
	s.router.HandleFunc("/review/answer/", s.handleAnswerReview())
	s.router.HandleFunc("/analytics", s.handleAnalytics())
	s.router.HandleFunc("/settings", s.handleSettings())
}

// apiKey resolves the advisor credential: a key saved in settings wins,
// otherwise the configured one. Empty means fallback-only operation.
func (s *Server) apiKey() string {
	key, err := s.db.GetSetting("api_key")
	if err != nil {
		slog.Warn("Failed to read stored API key", "error", err)
	}
	if key != "" {
		return key
	}
	return s.cfg.Advisor.APIKey
}

func (s *Server) loadConcepts(w http.ResponseWriter) ([]domain.Concept, bool) {
	concepts, err := s.db.Load()
	if err != nil {
		slog.Error("Failed to load concepts", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return nil, false
	}
	return concepts, true
}

// handleDashboard renders the summary stats, weekly trend, coaching
// insight, and the needs-attention list.
func (s *Server) handleDashboard() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		concepts, ok := s.loadConcepts(w)
		if !ok {
			return
		}

		now := time.Now()
		data := map[string]any{
			"Summary":        analytics.Summarize(concepts, s.cfg.Streak, now),
			"Trend":          analytics.WeeklyTrend(concepts, now),
			"NeedsAttention": analytics.NeedsAttention(concepts),
			"Insight":        s.insight.Text(),
		}
		s.render(w, "dashboard", data)
	}
}

// handleConcepts lists the collection on GET and creates a concept on POST.
func (s *Server) handleConcepts() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			s.renderConceptList(w, "")
		case http.MethodPost:
			s.createConcept(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	}
}

func (s *Server) renderConceptList(w http.ResponseWriter, formError string) {
	concepts, ok := s.loadConcepts(w)
	if !ok {
		return
	}
	now := time.Now()

	type conceptView struct {
		domain.Concept
		Due bool
	}
	views := make([]conceptView, 0, len(concepts))
	for _, c := range concepts {
		views = append(views, conceptView{Concept: c, Due: schedule.IsDue(c, now)})
	}

	s.render(w, "concepts", map[string]any{
		"Concepts":     views,
		"Subjects":     domain.Subjects,
		"Difficulties": []domain.Difficulty{domain.Easy, domain.Medium, domain.Hard},
		"FormError":    formError,
	})
}

func (s *Server) createConcept(w http.ResponseWriter, r *http.Request) {
	form := conceptForm{
		Title:       strings.TrimSpace(r.PostFormValue("title")),
		Subject:     strings.TrimSpace(r.PostFormValue("subject")),
		Description: strings.TrimSpace(r.PostFormValue("description")),
	}
	if err := s.validate.Struct(form); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		s.renderConceptList(w, "Title, subject and description are all required.")
		return
	}

	entry := importer.Entry{
		Title:       form.Title,
		Subject:     form.Subject,
		Description: form.Description,
		Difficulty:  domain.ParseDifficulty(r.PostFormValue("difficulty")),
	}
	if err := s.db.Insert(importer.NewConcept(entry, time.Now())); err != nil {
		slog.Error("Failed to insert concept", "error", err)
		http.Error(w, "Failed to add concept", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/concepts", http.StatusSeeOther)
}

// handleDeleteConcept removes a concept. An unknown id is a no-op; either
// way the user lands back on the concept list.
func (s *Server) handleDeleteConcept() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		id := r.PostFormValue("id")
		if err := s.db.Delete(id); err != nil {
			slog.Error("Failed to delete concept", "id", id, "error", err)
			http.Error(w, "Failed to delete concept", http.StatusInternalServerError)
			return
		}
		http.Redirect(w, r, "/concepts", http.StatusSeeOther)
	}
}

// handleStartReview generates a quiz for a concept and renders it. Quiz
// generation is allowed to fail silently into the deterministic fallback;
// starting a review never errors out on advisor problems.
func (s *Server) handleStartReview() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimPrefix(r.URL.Path, "/review/")
		concept, err := s.db.Get(id)
		if err != nil {
			slog.Error("Failed to load concept for review", "id", id, "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		if concept == nil {
			http.NotFound(w, r)
			return
		}

		questions := s.advisor.Quiz(r.Context(), s.apiKey(), *concept)
		s.mu.Lock()
		s.pending[concept.ID] = questions
		s.mu.Unlock()

		s.render(w, "quiz", map[string]any{
			"Concept":   concept,
			"Questions": questions,
		})
	}
}

// handleAnswerReview grades the submitted answers against the pending quiz
// and commits the review.
func (s *Server) handleAnswerReview() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		id := strings.TrimPrefix(r.URL.Path, "/review/answer/")
		concept, err := s.db.Get(id)
		if err != nil {
			slog.Error("Failed to load concept for grading", "id", id, "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		if concept == nil {
			http.NotFound(w, r)
			return
		}

		s.mu.Lock()
		questions, ok := s.pending[id]
		delete(s.pending, id)
		s.mu.Unlock()
		if !ok {
			// No quiz in flight for this concept; send the user back to
			// start one.
			http.Redirect(w, r, "/review/"+id, http.StatusSeeOther)
			return
		}

		correct := 0
		for i, q := range questions {
			answer, err := strconv.Atoi(r.PostFormValue("q" + strconv.Itoa(i)))
			if err == nil && answer == q.CorrectAnswerIndex {
				correct++
			}
		}
		quizScore := schedule.ClampScore(int(float64(correct)/float64(len(questions))*100 + 0.5))

		timeSpent := defaultTimeSpent
		if v, err := strconv.Atoi(r.PostFormValue("time_spent")); err == nil && v >= 0 {
			timeSpent = v
		}

		updated := schedule.ApplyReview(*concept, quizScore, timeSpent, time.Now())
		if err := s.db.ApplyReview(updated); err != nil {
			slog.Error("Failed to commit review", "id", id, "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		s.render(w, "quiz_result", map[string]any{
			"Concept":   updated,
			"QuizScore": quizScore,
			"Correct":   correct,
			"Total":     len(questions),
		})
	}
}

// handleAnalytics renders the subject distribution and the leaderboard.
func (s *Server) handleAnalytics() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		concepts, ok := s.loadConcepts(w)
		if !ok {
			return
		}
		s.render(w, "analytics", map[string]any{
			"Distribution": analytics.SubjectDistribution(concepts),
			"Leaderboard":  analytics.Leaderboard(concepts),
		})
	}
}

// handleSettings shows and stores the advisor API key.
func (s *Server) handleSettings() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			key, err := s.db.GetSetting("api_key")
			if err != nil {
				slog.Error("Failed to read settings", "error", err)
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				return
			}
			s.render(w, "settings", map[string]any{"HasKey": key != ""})
		case http.MethodPost:
			// An empty submit leaves any stored key alone.
			if key := strings.TrimSpace(r.PostFormValue("api_key")); key != "" {
				if err := s.db.SetSetting("api_key", key); err != nil {
					slog.Error("Failed to store settings", "error", err)
					http.Error(w, "Internal Server Error", http.StatusInternalServerError)
					return
				}
			}
			http.Redirect(w, r, "/settings", http.StatusSeeOther)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	}
}

func (s *Server) render(w http.ResponseWriter, name string, data any) {
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		slog.Error("Failed to render template", "template", name, "error", err)
	}
}
