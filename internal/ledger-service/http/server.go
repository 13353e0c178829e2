package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/radieske/wager-ledger/internal/ledger-service/auth"
	"github.com/radieske/wager-ledger/internal/ledger-service/catalog"
	"github.com/radieske/wager-ledger/internal/ledger-service/dto"
	"github.com/radieske/wager-ledger/internal/ledger-service/ledger"
)

// Server expõe o ledger, o catálogo e a autenticação em /api
type Server struct {
	log         *zap.Logger
	ledger      *ledger.Service
	catalog     *catalog.Service
	auth        *auth.Service
	issuer      *auth.Issuer
	corsOrigins []string
}

func NewServer(log *zap.Logger, l *ledger.Service, c *catalog.Service, a *auth.Service, issuer *auth.Issuer, corsOrigins []string) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{log: log, ledger: l, catalog: c, auth: a, issuer: issuer, corsOrigins: corsOrigins}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.corsOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Post("/register", s.register)
		r.Post("/login", s.login)
		r.Get("/players", s.listPlayers)
		r.Get("/matches", s.listMatches)

		// rotas autenticadas
		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware(s.issuer))

			r.Get("/user/balance", s.getBalance)
			r.Get("/bets", s.listBets)
			r.Post("/bets", s.placeBet)

			r.Route("/admin", func(r chi.Router) {
				r.Use(auth.RequireAdmin)

				r.Post("/players", s.createPlayer)
				r.Post("/matches", s.createMatch)
				r.Post("/odds", s.createOdd)
				r.Post("/settle/{matchId}", s.settleMatch)
				r.Post("/revoke-bet/{betId}", s.revokeBet)
			})
		})
	})
	return r
}

// requestLogger registra cada requisição com zap
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

// writeJSON serializa a resposta em JSON e define o status HTTP
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, dto.ErrorResponse{Error: msg})
}

// fail traduz os erros do núcleo em status HTTP; erro interno nunca vaza para o cliente
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ledger.ErrNotFound), errors.Is(err, ledger.ErrMatchNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ledger.ErrAlreadySettled), errors.Is(err, ledger.ErrInvalidState), errors.Is(err, ledger.ErrConflict):
		writeError(w, http.StatusConflict, err.Error())
	case ledger.IsClientError(err):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.log.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// decode lê o corpo JSON; strict recusa campos desconhecidos
func decode(w http.ResponseWriter, r *http.Request, dst any, strict bool) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if strict {
		dec.DisallowUnknownFields()
	}
	return dec.Decode(dst)
}

func idParam(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	return id, err == nil && id > 0
}

func principal(r *http.Request) auth.Principal {
	p, _ := auth.FromContext(r.Context())
	return p
}
