package server

import (
	"context"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/ray-remotestate/canteen/handlers"
	"github.com/ray-remotestate/canteen/middlewares"
	"github.com/ray-remotestate/canteen/models"
)

type Server struct {
	Router *mux.Router

	mu     sync.Mutex
	server *http.Server
}

const (
	readTimeout       = 5 * time.Minute
	readHeaderTimeout = 30 * time.Second
	writeTimeout      = 5 * time.Minute
)

func SetupRoutes(h *handlers.Handlers, secret []byte, log logrus.FieldLogger) *Server {
	router := mux.NewRouter()
	router.Use(middlewares.RequestLogger(log), middlewares.Recoverer(log))

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		io.WriteString(w, `{"alive": true}`)
	}).Methods("GET")
	router.HandleFunc("/register", h.Register).Methods("POST")
	router.HandleFunc("/refresh", h.RefreshToken).Methods("POST")
	router.HandleFunc("/login", h.Login).Methods("POST")

	authRoutes := router.PathPrefix("/api").Subrouter()
	authRoutes.Use(middlewares.AuthMiddleware(secret))
	authRoutes.HandleFunc("/logout", h.Logout).Methods("POST")

	authRoutes.HandleFunc("/menu", h.ListMenu).Methods("GET")
	authRoutes.HandleFunc("/menu/{id}", h.GetMenuItem).Methods("GET")
	authRoutes.HandleFunc("/categories", h.ListCategories).Methods("GET")

	authRoutes.HandleFunc("/cart", h.GetCart).Methods("GET")
	authRoutes.HandleFunc("/cart", h.ClearCart).Methods("DELETE")
	authRoutes.HandleFunc("/cart/items", h.AddToCart).Methods("POST")
	authRoutes.HandleFunc("/cart/items/{id}", h.UpdateCartItem).Methods("PUT")
	authRoutes.HandleFunc("/cart/items/{id}", h.RemoveCartItem).Methods("DELETE")

	authRoutes.HandleFunc("/orders", h.PlaceOrder).Methods("POST")
	authRoutes.HandleFunc("/orders/mine", h.MyOrders).Methods("GET")
	authRoutes.HandleFunc("/orders/{id}", h.GetOrder).Methods("GET")
	authRoutes.HandleFunc("/orders/{id}/actions", h.OrderActions).Methods("GET")
	authRoutes.HandleFunc("/orders/{id}/cancel", h.CancelOrder).Methods("POST")

	// admin only
	admin := authRoutes.PathPrefix("/admin").Subrouter()
	admin.Use(middlewares.RoleBasedMiddleware(models.RoleAdmin))

	admin.HandleFunc("/menu", h.CreateMenuItem).Methods("POST")
	admin.HandleFunc("/menu/{id}", h.UpdateMenuItem).Methods("PUT")
	admin.HandleFunc("/menu/{id}", h.DeleteMenuItem).Methods("DELETE")
	admin.HandleFunc("/menu/{id}/availability", h.ToggleAvailability).Methods("POST")

	admin.HandleFunc("/orders", h.ListOrders).Methods("GET")
	admin.HandleFunc("/orders/today", h.TodayOrders).Methods("GET")
	admin.HandleFunc("/orders/{id}/status", h.UpdateOrderStatus).Methods("PUT")

	admin.HandleFunc("/users", h.ListUsers).Methods("GET")
	admin.HandleFunc("/users/{id}", h.ArchiveUser).Methods("DELETE")
	admin.HandleFunc("/stats", h.Stats).Methods("GET")

	return &Server{
		Router: router,
	}
}

func (svr *Server) Run(port string) error {
	srv := &http.Server{
		Addr:              port,
		Handler:           svr.Router,
		ReadTimeout:       readTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
		WriteTimeout:      writeTimeout,
	}
	svr.mu.Lock()
	svr.server = srv
	svr.mu.Unlock()
	return srv.ListenAndServe()
}

// Shutdown is a no-op if Run was never called.
func (svr *Server) Shutdown(timeout time.Duration) error {
	svr.mu.Lock()
	srv := svr.server
	svr.mu.Unlock()
	if srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return srv.Shutdown(ctx)
}
