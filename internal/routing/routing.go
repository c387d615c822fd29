package routing

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"autoportal/internal/config"
	"autoportal/pkg/guard"
	"autoportal/pkg/handlers"
	"autoportal/pkg/middleware"
	"autoportal/pkg/profile"
	"autoportal/pkg/repair"
	"autoportal/pkg/resolver"
	"autoportal/pkg/respond"
	"autoportal/pkg/role"
	"autoportal/pkg/session"
	"autoportal/pkg/user"
)

var (
	// Signed-in users of any role.
	AuthenticatedRule = guard.Rule{}
	// Back-office pages. Non-admins are sent to their own dashboard.
	AdminRule = guard.Rule{AllowedRoles: []role.Role{role.Admin}, Fallback: guard.DefaultPaths().Home}
)

type Deps struct {
	Users     *handlers.Handler
	Admin     *handlers.AdminHandler
	Dashboard *handlers.DashboardHandler

	Guard    *guard.Guard
	Roles    resolver.RoleSource
	Sessions session.Repository
	Secret   []byte
	Logger   *slog.Logger
}

func InitRoutes(api *mux.Router, cfg *config.Config, db *sql.DB, mongoDB *mongo.Database, rdb *redis.Client, logger *slog.Logger) {
	sessionRepo := session.NewMySQLSessionRepo(db)
	sessionRepo.TTL = cfg.TokenTTL

	profileRepo := profile.NewMySQLRepo(db)
	roles := profile.NewCachedRoles(profileRepo, rdb, logger)
	roles.TTL = cfg.RoleCacheTTL

	userService := user.NewService(user.NewMySQLRepo(db), profileRepo, sessionRepo, roles, logger)
	userService.RequireConfirmedEmail = cfg.RequireConfirmedEmail

	repairService := repair.NewService(repair.NewMongoRepo(mongoDB), profileRepo, logger)

	userHandler := handlers.NewUserHandler(userService, roles, []byte(cfg.JWTSecret), logger)
	userHandler.TokenTTL = cfg.TokenTTL

	Mount(api, Deps{
		Users:     userHandler,
		Admin:     handlers.NewAdminHandler(userService, profileRepo, repairService, logger),
		Dashboard: handlers.NewDashboardHandler(repairService, logger),
		Guard:     guard.New(guard.DefaultPaths()),
		Roles:     roles,
		Sessions:  sessionRepo,
		Secret:    []byte(cfg.JWTSecret),
		Logger:    logger,
	})
}

func Mount(api *mux.Router, d Deps) {
	api.Use(middleware.Panic(d.Logger))
	api.Use(middleware.Session(d.Secret, d.Sessions, d.Logger))

	protect := func(rule guard.Rule) mux.MiddlewareFunc {
		return guard.Middleware(d.Guard, rule, middleware.SessionFromRequest, d.Roles, d.Logger)
	}

	publicRouter := api.PathPrefix("").Subrouter()
	adminRouter := api.PathPrefix("/admin").Subrouter()
	authRouter := api.PathPrefix("").Subrouter()

	adminRouter.Use(protect(AdminRule))
	authRouter.Use(protect(AuthenticatedRule))

	/* public routers */
	publicRouter.HandleFunc("/register", d.Users.Register).Methods("POST").Name("register")
	publicRouter.HandleFunc("/login", d.Users.Login).Methods("POST").Name("login")
	publicRouter.HandleFunc("/resolve-username", d.Users.ResolveUsername).Methods("POST")

	/* session routers */
	authRouter.HandleFunc("/logout", d.Users.Logout).Methods("POST")
	authRouter.HandleFunc("/refresh", d.Users.Refresh).Methods("POST")
	authRouter.HandleFunc("/session", d.Users.Session).Methods("GET")
	authRouter.HandleFunc("/profiles/{id}/role", d.Users.ProfileRole).Methods("GET")
	authRouter.HandleFunc("/profile", d.Users.Profile).Methods("GET")
	authRouter.HandleFunc("/profile", d.Users.UpdateProfile).Methods("PUT")

	/* client dashboard routers */
	authRouter.HandleFunc("/dashboard", d.Dashboard.Dashboard).Methods("GET")
	authRouter.HandleFunc("/vehicles", d.Dashboard.AddVehicle).Methods("POST")
	authRouter.HandleFunc("/vehicles/{id}", d.Dashboard.UpdateVehicle).Methods("PUT")
	authRouter.HandleFunc("/vehicles/{id}/repairs", d.Dashboard.VehicleRepairs).Methods("GET")

	/* admin routers */
	adminRouter.HandleFunc("/users", d.Admin.CreateUser).Methods("POST")
	adminRouter.HandleFunc("/users/{id}", d.Admin.UpdateUser).Methods("PUT")
	adminRouter.HandleFunc("/users/{id}/auth-status", d.Admin.AuthStatus).Methods("GET")
	adminRouter.HandleFunc("/clients", d.Admin.Clients).Methods("GET")
	adminRouter.HandleFunc("/clients/{id}", d.Admin.ClientDetails).Methods("GET")
	adminRouter.HandleFunc("/clients/{id}", d.Admin.UpdateClient).Methods("PUT")
	adminRouter.HandleFunc("/repairs", d.Admin.ListRepairs).Methods("GET")
	adminRouter.HandleFunc("/repairs", d.Admin.CreateRepair).Methods("POST")
	adminRouter.HandleFunc("/repairs/{id}/status", d.Admin.UpdateRepairStatus).Methods("PUT")
	adminRouter.HandleFunc("/stats", d.Admin.Stats).Methods("GET")
}

func ServeFallback(r *mux.Router, logger *slog.Logger) {
	r.PathPrefix("/").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respond.Error(w, logger.With("path", r.URL.Path), http.StatusNotFound, "message", "not found")
	})
}

func StartServer(r *mux.Router, addr string, logger *slog.Logger) {
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	logger.Info("server is running", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server failed", "error", err)
	}
}
