package router

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	mem "productivity-api/internal/adapters/storage/memory"
	pg "productivity-api/internal/adapters/storage/postgres"
	_ "productivity-api/internal/docs"
	"productivity-api/internal/domain/activity"
	"productivity-api/internal/domain/notes"
	"productivity-api/internal/domain/notifications"
	"productivity-api/internal/domain/tasks"
	"productivity-api/internal/domain/users"
	"productivity-api/internal/middleware"
	"productivity-api/internal/platform/logger"
	"productivity-api/internal/platform/metrics"
	"productivity-api/internal/platform/response"
	"productivity-api/internal/ports/auth"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger"
)

type Options struct {
	AuthVerifier auth.AuthVerifier // puede ser nil (modo dev)

	// Si viene, usa Postgres. Si no, in-memory.
	DB *sql.DB

	Logger  logger.Logger      // nil = Nop
	Metrics *metrics.Registry // nil = sin /metrics

	ReadWindow time.Duration // 0 = notifications.DefaultReadWindow
	QueueSize  int           // 0 = activity.DefaultQueueSize
}

// App es el handler HTTP más lo que hay que cerrar al apagar.
type App struct {
	http.Handler

	Activities *activity.Service
	Writer     *activity.BackgroundWriter
}

// Close drena las actividades best-effort pendientes.
func (a *App) Close(ctx context.Context) error {
	return a.Writer.Close(ctx)
}

func NewRouter(opts Options) *App {
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}

	// interfaces nil reales: un *Registry nil no sirve como activity.Metrics
	var (
		ledgerMetrics activity.Metrics
		httpObserver  middleware.HTTPObserver
	)
	if opts.Metrics != nil {
		ledgerMetrics = opts.Metrics
		httpObserver = opts.Metrics
	}

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(middleware.AuthContext(opts.AuthVerifier))
	r.Use(middleware.RequestLog(log, httpObserver))

	r.Get("/health", healthHandler(opts.DB))
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics.Handler())
	}
	r.Get("/swagger/*", httpSwagger.WrapHandler)

	var (
		activityRepo activity.Repository
		userRepo     users.Repository
		taskRepo     tasks.Repository
		noteRepo     notes.Repository
	)
	if opts.DB != nil {
		activityRepo = pg.NewActivityRepo(opts.DB)
		userRepo = pg.NewUsersRepo(opts.DB)
		taskRepo = pg.NewTasksRepo(opts.DB)
		noteRepo = pg.NewNotesRepo(opts.DB)
	} else {
		activityRepo = mem.NewActivityRepo()
		userRepo = mem.NewUserRepo()
		taskRepo = mem.NewTaskRepo()
		noteRepo = mem.NewNoteRepo()
	}

	// Los lookups leen directo de los repos: el ledger no depende de los services.
	userLookup := users.NewLookup(userRepo)
	dir := activity.Directory{
		Users: userLookup,
		Tasks: tasks.NewLookup(taskRepo),
		Notes: notes.NewLookup(noteRepo),
	}

	activitySvc := activity.NewService(activityRepo, dir, log)
	activitySvc.SetMetrics(ledgerMetrics)

	writer := activity.NewBackgroundWriter(activitySvc, log, ledgerMetrics, opts.QueueSize)
	writer.Start()

	usersSvc := users.NewService(userRepo, activitySvc, writer, log)
	tasksSvc := tasks.NewService(taskRepo, activitySvc, userLookup, log)
	notesSvc := notes.NewService(noteRepo, activitySvc, userLookup, log)
	projector := notifications.NewProjector(activitySvc, notifications.NoopReadState{}, opts.ReadWindow)

	activity.RegisterRoutes(r, activitySvc, log)
	notifications.RegisterRoutes(r, projector, log)
	users.RegisterRoutes(r, usersSvc, log)
	tasks.RegisterRoutes(r, tasksSvc, log, activity.TaskHistoryRoutes(activitySvc, log))
	notes.RegisterRoutes(r, notesSvc, log, activity.NoteHistoryRoutes(activitySvc, log))

	return &App{
		Handler:    r,
		Activities: activitySvc,
		Writer:     writer,
	}
}

func healthHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := db.PingContext(ctx); err != nil {
				response.Error(w, http.StatusServiceUnavailable, "database unavailable")
				return
			}
		}
		response.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
