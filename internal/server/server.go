package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/stridehq/stride/internal/achievement"
	"github.com/stridehq/stride/internal/auth"
	"github.com/stridehq/stride/internal/backup"
	"github.com/stridehq/stride/internal/handler"
	"github.com/stridehq/stride/internal/maintenance"
	"github.com/stridehq/stride/internal/middleware"
	"github.com/stridehq/stride/internal/priority"
	"github.com/stridehq/stride/internal/progress"
	"github.com/stridehq/stride/internal/push"
	"github.com/stridehq/stride/internal/store"
	"github.com/stridehq/stride/internal/streak"
	ws "github.com/stridehq/stride/internal/websocket"
)

// Config carries everything the server needs beyond the database handle.
type Config struct {
	JWTSecret string
	TokenTTL  time.Duration
	Backup    backup.Config
	Push      push.Config
}

type Server struct {
	db     *sql.DB
	hub    *ws.Hub
	logger *slog.Logger

	authH     *handler.AuthHandler
	goalH     *handler.GoalHandler
	taskH     *handler.TaskHandler
	habitH    *handler.HabitHandler
	priorityH *handler.PriorityHandler
	signinH   *handler.SigninHandler
	trophyH   *handler.TrophyHandler
	ledgerH   *handler.LedgerHandler
	pushH     *handler.PushHandler
	adminH    *handler.AdminHandler

	sessionStore *store.SessionStore
	userStore    *store.UserStore
	tokens       *auth.TokenIssuer
	rateLimiter  *middleware.RateLimiter

	backupManager *backup.Manager
	maintenance   *maintenance.Scheduler
}

func New(db *sql.DB, cfg Config, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	userStore := store.NewUserStore(db)
	sessionStore := store.NewSessionStore(db)
	goalStore := store.NewGoalStore(db)
	taskStore := store.NewTaskStore(db)
	habitStore := store.NewHabitStore(db)
	priorityStore := store.NewPriorityStore(db)
	ledgerStore := store.NewLedgerStore(db)
	streakStore := store.NewStreakStore(db)
	trophyStore := store.NewTrophyStore(db)
	pushStore := store.NewPushStore(db)
	backupStore := store.NewBackupStore(db)

	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	tokens := auth.NewTokenIssuer(cfg.JWTSecret, ttl)

	tracker := streak.NewTracker(streakStore)
	reconciler := progress.NewReconciler(goalStore)
	priorityMgr := priority.NewManager(priorityStore)
	engine := achievement.NewEngine(trophyStore, habitStore, streakStore, logger.With("component", "achievement"))

	pushLogger := logger.With("component", "push")
	var pushSvc *push.Service
	var notifier *push.Notifier
	if cfg.Push.VAPIDPublicKey != "" && cfg.Push.VAPIDPrivateKey != "" {
		pushSvc = push.NewService(cfg.Push.VAPIDPublicKey, cfg.Push.VAPIDPrivateKey)
		notifier = push.NewNotifier(pushSvc, pushStore, pushLogger)
	}

	backupMgr := backup.NewManager(cfg.Backup, db, backupStore, logger.With("component", "backup"), func(s backup.Status) {
		hub.Broadcast(ws.Message{
			Type:   "backup_status",
			Entity: "backup",
			Action: string(s.State),
			Extra: map[string]any{
				"in_progress": s.InProgress,
				"error":       s.Error,
			},
		})
	})

	maint := maintenance.NewScheduler(priorityMgr, sessionStore, streakStore, notifier, logger.With("component", "maintenance"))

	return &Server{
		db:            db,
		hub:           hub,
		logger:        logger,
		authH:         handler.NewAuthHandler(userStore, sessionStore, tokens, logger.With("component", "auth")),
		goalH:         handler.NewGoalHandler(goalStore, reconciler, hub, logger.With("component", "goal")),
		taskH:         handler.NewTaskHandler(taskStore, hub, logger.With("component", "task")),
		habitH:        handler.NewHabitHandler(habitStore, tracker, engine, hub, notifier, logger.With("component", "habit")),
		priorityH:     handler.NewPriorityHandler(priorityMgr, hub, logger.With("component", "priority")),
		signinH:       handler.NewSigninHandler(streakStore, tracker, engine, hub, notifier, logger.With("component", "signin")),
		trophyH:       handler.NewTrophyHandler(trophyStore, logger.With("component", "trophy")),
		ledgerH:       handler.NewLedgerHandler(ledgerStore, logger.With("component", "ledger")),
		pushH:         handler.NewPushHandler(pushStore, pushSvc, pushLogger),
		adminH:        handler.NewAdminHandler(backupMgr, backupStore, maint, logger.With("component", "admin")),
		sessionStore:  sessionStore,
		userStore:     userStore,
		tokens:        tokens,
		rateLimiter:   middleware.NewRateLimiter(),
		backupManager: backupMgr,
		maintenance:   maint,
	}
}

// BackupManager returns the backup manager so main can run its schedule loop.
func (s *Server) BackupManager() *backup.Manager {
	return s.backupManager
}

// Maintenance returns the maintenance scheduler so main can run its loop.
func (s *Server) Maintenance() *maintenance.Scheduler {
	return s.maintenance
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes
	outerMux.HandleFunc("GET /health", s.healthHandler)
	outerMux.HandleFunc("POST /api/register", s.rateLimitedHandler(s.authH.Register))
	outerMux.HandleFunc("POST /api/login", s.rateLimitedHandler(s.authH.Login))

	// Protected routes
	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	authMiddleware := middleware.RequireAuth(s.sessionStore, s.userStore, s.tokens)
	outerMux.Handle("/", authMiddleware(protectedMux))

	return middleware.RequestLogger(s.logger.With("component", "http"))(outerMux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) rateLimitedHandler(h http.HandlerFunc) http.HandlerFunc {
	keyFunc := func(r *http.Request) string {
		return middleware.RealIP(r)
	}
	rl := middleware.RateLimit(s.rateLimiter, keyFunc, 10, time.Minute)
	return func(w http.ResponseWriter, r *http.Request) {
		rl(http.HandlerFunc(h)).ServeHTTP(w, r)
	}
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	// Account
	mux.HandleFunc("POST /api/logout", s.authH.Logout)
	mux.HandleFunc("GET /api/me", s.authH.Me)
	mux.HandleFunc("PUT /api/me", s.authH.UpdateProfile)
	mux.HandleFunc("POST /api/token", s.authH.Token)

	// Goals
	mux.HandleFunc("POST /api/goals", s.goalH.Create)
	mux.HandleFunc("GET /api/goals", s.goalH.List)
	mux.HandleFunc("GET /api/goals/{id}", s.goalH.Get)
	mux.HandleFunc("PUT /api/goals/{id}", s.goalH.Update)
	mux.HandleFunc("DELETE /api/goals/{id}", s.goalH.Delete)
	mux.HandleFunc("POST /api/goals/{id}/progress", s.goalH.Progress)

	// Tasks
	mux.HandleFunc("POST /api/tasks", s.taskH.Create)
	mux.HandleFunc("GET /api/tasks", s.taskH.List)
	mux.HandleFunc("PUT /api/tasks/{id}", s.taskH.Update)
	mux.HandleFunc("DELETE /api/tasks/{id}", s.taskH.Delete)
	mux.HandleFunc("POST /api/tasks/{id}/complete", s.taskH.Complete)
	mux.HandleFunc("POST /api/tasks/{id}/uncomplete", s.taskH.Uncomplete)

	// Habits
	mux.HandleFunc("POST /api/habits", s.habitH.Create)
	mux.HandleFunc("GET /api/habits", s.habitH.List)
	mux.HandleFunc("PUT /api/habits/{id}", s.habitH.Update)
	mux.HandleFunc("DELETE /api/habits/{id}", s.habitH.Delete)
	mux.HandleFunc("POST /api/habits/{id}/checkin", s.habitH.CheckIn)
	mux.HandleFunc("GET /api/habits/{id}/streak", s.habitH.Streak)

	// Priorities
	mux.HandleFunc("POST /api/priorities", s.priorityH.Create)
	mux.HandleFunc("GET /api/priorities", s.priorityH.List)
	mux.HandleFunc("GET /api/priorities/{id}", s.priorityH.Get)
	mux.HandleFunc("PUT /api/priorities/{id}", s.priorityH.Update)
	mux.HandleFunc("POST /api/priorities/{id}/complete", s.priorityH.SetCompleted)
	mux.HandleFunc("DELETE /api/priorities/{id}", s.priorityH.Delete)
	mux.HandleFunc("POST /api/priorities/{id}/restore", s.priorityH.Restore)
	mux.HandleFunc("DELETE /api/priorities/{id}/purge", s.priorityH.Purge)
	mux.HandleFunc("POST /api/priorities/deduplicate", s.priorityH.Deduplicate)
	mux.HandleFunc("PUT /api/priorities/order", s.priorityH.Reorder)

	// Sign-in and streaks
	mux.HandleFunc("POST /api/signin", s.signinH.Signin)
	mux.HandleFunc("GET /api/streak", s.signinH.Streak)

	// Trophies
	mux.HandleFunc("GET /api/trophies", s.trophyH.List)
	mux.HandleFunc("GET /api/trophies/catalog", s.trophyH.Catalog)

	// Points ledger
	mux.HandleFunc("GET /api/points", s.ledgerH.Summary)
	mux.HandleFunc("GET /api/points/history", s.ledgerH.History)
	mux.HandleFunc("GET /api/points/daily", s.ledgerH.Daily)

	// Push notifications
	mux.HandleFunc("POST /api/push/subscribe", s.pushH.Subscribe)
	mux.HandleFunc("GET /api/push/subscriptions", s.pushH.List)
	mux.HandleFunc("DELETE /api/push/subscriptions/{id}", s.pushH.Unsubscribe)
	mux.HandleFunc("GET /api/push/vapid-key", s.pushH.VAPIDKey)

	// Admin
	adminMux := http.NewServeMux()
	adminMux.HandleFunc("POST /api/admin/backups", s.adminH.RunBackup)
	adminMux.HandleFunc("GET /api/admin/backups", s.adminH.ListBackups)
	adminMux.HandleFunc("GET /api/admin/backups/status", s.adminH.BackupStatus)
	adminMux.HandleFunc("POST /api/admin/backups/{id}/restore", s.adminH.RestoreBackup)
	adminMux.HandleFunc("POST /api/admin/maintenance", s.adminH.RunMaintenance)
	mux.Handle("/api/admin/", middleware.RequireAdmin(adminMux))

	// WebSocket
	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub))
}
