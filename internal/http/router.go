package http

import (
	"net/http"
	"strings"
)

type RouterConfig struct {
	Scheduling   *SchedulingHandler
	Participants *ParticipantHandler
	// Auth wraps the routes that require an authenticated caller. Nil leaves
	// them open, which is only appropriate in tests.
	Auth       func(http.Handler) http.Handler
	Middleware []func(http.Handler) http.Handler
}

func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()

	protect := func(h http.Handler) http.Handler {
		if cfg.Auth != nil {
			return cfg.Auth(h)
		}
		return h
	}

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			methodNotAllowed(w, http.MethodGet)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	if cfg.Scheduling != nil {
		mux.Handle("/meetings/schedule", protect(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Scheduling.Schedule(w, r)
		})))
		mux.Handle("/proposals/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rest := strings.TrimPrefix(r.URL.Path, "/proposals/")
			if rest == "" {
				http.NotFound(w, r)
				return
			}

			id, action := rest, ""
			if slash := strings.Index(rest, "/"); slash >= 0 {
				id, action = rest[:slash], rest[slash+1:]
			}
			if id == "" {
				http.NotFound(w, r)
				return
			}
			r = r.WithContext(ContextWithProposalID(r.Context(), id))

			switch action {
			case "":
				if r.Method != http.MethodGet {
					methodNotAllowed(w, http.MethodGet)
					return
				}
				cfg.Scheduling.Get(w, r)
			case "confirm":
				if r.Method != http.MethodPost {
					methodNotAllowed(w, http.MethodPost)
					return
				}
				protect(http.HandlerFunc(cfg.Scheduling.Confirm)).ServeHTTP(w, r)
			case "email-responses":
				if r.Method != http.MethodGet {
					methodNotAllowed(w, http.MethodGet)
					return
				}
				cfg.Scheduling.EmailResponses(w, r)
			default:
				http.NotFound(w, r)
			}
		}))
	}

	if cfg.Participants != nil {
		mux.HandleFunc("/participants", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.Participants.List(w, r)
			case http.MethodPost:
				cfg.Participants.Register(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		})
		mux.HandleFunc("/participants/", func(w http.ResponseWriter, r *http.Request) {
			id := strings.TrimPrefix(r.URL.Path, "/participants/")
			if id == "" {
				http.NotFound(w, r)
				return
			}
			if id == "authenticated" {
				if r.Method != http.MethodGet {
					methodNotAllowed(w, http.MethodGet)
					return
				}
				cfg.Participants.Authenticated(w, r)
				return
			}

			r = r.WithContext(ContextWithParticipantID(r.Context(), id))
			switch r.Method {
			case http.MethodGet:
				cfg.Participants.Get(w, r)
			case http.MethodDelete:
				cfg.Participants.Delete(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodDelete)
			}
		})
	}

	var handler http.Handler = mux
	if len(cfg.Middleware) > 0 {
		for i := len(cfg.Middleware) - 1; i >= 0; i-- {
			if cfg.Middleware[i] != nil {
				handler = cfg.Middleware[i](handler)
			}
		}
	}

	return handler
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	if len(allowed) > 0 {
		w.Header().Set("Allow", strings.Join(allowed, ", "))
	}
	http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
}
