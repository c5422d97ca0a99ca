package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	sim "github.com/urban-sim/incident-sim/sim"
	"github.com/urban-sim/incident-sim/sim/incident"
	"github.com/urban-sim/incident-sim/sim/snapshot"
)

var addr string // HTTP listen address

// serveCmd exposes the read accessors of a saved run over HTTP
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve a saved run's daily state over HTTP",
	Run: func(cmd *cobra.Command, args []string) {
		if dbPath == "" || runID == "" {
			logrus.Fatalf("--db and --run-id are required")
		}
		sc, err := LoadScenario(scenarioPath)
		if err != nil {
			logrus.Fatalf("Loading scenario: %v", err)
		}
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		e, err := restoreRun(ctx, sc, dbPath, runID)
		if err != nil {
			logrus.Fatalf("Restoring run %s: %v", runID, err)
		}

		srv := &http.Server{Addr: addr, Handler: NewRouter(e), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
		logrus.Infof("Serving run %s (%d days) on %s", runID, e.Day(), addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatalf("Server failed: %v", err)
		}
	},
}

// restoreRun loads a saved state into a fresh engine built from the
// scenario's city. The saved seed takes precedence over the scenario's.
func restoreRun(ctx context.Context, sc Scenario, path, id string) (*sim.Engine, error) {
	store, err := snapshot.Open(path)
	if err != nil {
		return nil, err
	}
	defer store.Close()
	st, err := store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	sc.Sim.Seed = st.Seed
	if sc.Sim.Horizon < st.Day {
		sc.Sim.Horizon = st.Day
	}
	e, err := sc.Build()
	if err != nil {
		return nil, err
	}
	if err := e.Restore(st); err != nil {
		return nil, err
	}
	return e, nil
}

type server struct {
	engine *sim.Engine
}

// NewRouter builds the read-only HTTP API over an engine.
func NewRouter(e *sim.Engine) http.Handler {
	s := &server{engine: e}
	r := chi.NewRouter()

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Get("/summary", s.handleSummary)
	r.Route("/days/{day}", func(r chi.Router) {
		r.Get("/vectors/{zone}", s.handleVectors)
		r.Get("/events", s.handleEvents)
		r.Get("/active-events", s.handleActiveEvents)
		r.Get("/congestion/{zone}", s.handleCongestion)
		r.Get("/casualties", s.handleCasualties)
	})
	return r
}

// day parses the {day} parameter and rejects days not simulated yet.
func (s *server) day(w http.ResponseWriter, r *http.Request) (int, bool) {
	day, err := strconv.Atoi(chi.URLParam(r, "day"))
	if err != nil || day < 1 {
		writeJSONError(w, http.StatusBadRequest, "day must be a positive integer")
		return 0, false
	}
	if day > s.engine.Day() {
		writeJSONError(w, http.StatusNotFound, "day not simulated")
		return 0, false
	}
	return day, true
}

func (s *server) handleSummary(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, snapshot.Summaries(s.engine.State()))
}

func (s *server) handleVectors(w http.ResponseWriter, r *http.Request) {
	day, ok := s.day(w, r)
	if !ok {
		return
	}
	zone := incident.ZoneID(chi.URLParam(r, "zone"))
	zv, ok := s.engine.VectorsForDay(zone, day)
	if !ok {
		writeJSONError(w, http.StatusNotFound, "unknown zone")
		return
	}
	out := make(map[string]incident.Vector, len(zv))
	for _, t := range incident.Types {
		out[t.String()] = zv[t]
	}
	writeJSON(w, out)
}

func (s *server) handleEvents(w http.ResponseWriter, r *http.Request) {
	day, ok := s.day(w, r)
	if !ok {
		return
	}
	writeJSON(w, nonNil(s.engine.EventsForDay(day)))
}

func (s *server) handleActiveEvents(w http.ResponseWriter, r *http.Request) {
	day, ok := s.day(w, r)
	if !ok {
		return
	}
	writeJSON(w, nonNil(s.engine.ActiveEvents(day)))
}

func (s *server) handleCongestion(w http.ResponseWriter, r *http.Request) {
	day, ok := s.day(w, r)
	if !ok {
		return
	}
	zone := incident.ZoneID(chi.URLParam(r, "zone"))
	v, ok := s.engine.Congestion(zone, day)
	if !ok {
		writeJSONError(w, http.StatusNotFound, "unknown zone")
		return
	}
	writeJSON(w, map[string]float64{"congestion": v})
}

func (s *server) handleCasualties(w http.ResponseWriter, r *http.Request) {
	day, ok := s.day(w, r)
	if !ok {
		return
	}
	writeJSON(w, map[string]int{"casualties": s.engine.CasualtiesForDay(day)})
}

func nonNil[T any](xs []T) []T {
	if xs == nil {
		return []T{}
	}
	return xs
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func init() {
	serveCmd.Flags().StringVar(&scenarioPath, "scenario", "", "Scenario YAML file the run was produced with")
	serveCmd.Flags().StringVar(&dbPath, "db", "", "SQLite database holding the run")
	serveCmd.Flags().StringVar(&runID, "run-id", "", "Run id to serve")
	serveCmd.Flags().StringVar(&addr, "addr", ":8080", "HTTP listen address")
}
