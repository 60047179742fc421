package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/bytedance/sonic"
	"github.com/gorilla/mux"
	"github.com/widesurf/hft-sync/internal/config"
	"github.com/widesurf/hft-sync/internal/dispatcher"
	"github.com/widesurf/hft-sync/internal/logger"
	"github.com/widesurf/hft-sync/internal/metrics"
	"github.com/widesurf/hft-sync/internal/model"
	"github.com/widesurf/hft-sync/internal/session"
	"github.com/widesurf/hft-sync/internal/store"
)

const _maxBodyBytes = 1 << 16

// Commands is what the router needs from the dispatcher.
type Commands interface {
	SubmitOrder(ctx context.Context, in dispatcher.OrderInput) dispatcher.Result
	CancelOrder(ctx context.Context, id string) dispatcher.Result
	SetStrategyEnabled(ctx context.Context, enabled bool) dispatcher.Result
	RunPerformanceTest(ctx context.Context, p model.Provider, iterations int) dispatcher.Result
}

// Views mounts and unmounts session views.
type Views interface {
	Mount(view config.View) error
	Unmount(view config.View) error
	Views() []config.View
}

type Handler struct {
	store    *store.Store
	commands Commands
	views    Views

	logger logger.Logger
}

func NewHandler(st *store.Store, commands Commands, views Views, logger logger.Logger) *Handler {
	return &Handler{store: st, commands: commands, views: views, logger: logger}
}

func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", h.healthz).Methods(http.MethodGet)
	r.HandleFunc("/state", h.state).Methods(http.MethodGet)
	r.HandleFunc("/dashboard", h.dashboard).Methods(http.MethodGet)
	r.HandleFunc("/orders", h.submitOrder).Methods(http.MethodPost)
	r.HandleFunc("/orders/{id}", h.cancelOrder).Methods(http.MethodDelete)
	r.HandleFunc("/strategy/{action:enable|disable}", h.strategy).Methods(http.MethodPost)
	r.HandleFunc("/performance/{provider}", h.performance).Methods(http.MethodPost)
	r.HandleFunc("/views", h.listViews).Methods(http.MethodGet)
	r.HandleFunc("/views/{name}", h.mountView).Methods(http.MethodPost)
	r.HandleFunc("/views/{name}", h.unmountView).Methods(http.MethodDelete)
	return r
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := sonic.Marshal(v)
	if err != nil {
		h.logger.Errorf("%s: can't marshal response", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		h.logger.Debugf("%s: can't write response", err)
	}
}

func (h *Handler) writeResult(w http.ResponseWriter, res dispatcher.Result) {
	status := http.StatusOK
	if !res.Success {
		status = http.StatusUnprocessableEntity
	}
	h.writeJSON(w, status, res)
}

func (h *Handler) writeError(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, dispatcher.Result{Message: msg})
}

func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) state(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.store.Snapshot())
}

func (h *Handler) dashboard(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, metrics.Summarize(h.store.Snapshot()))
}

func (h *Handler) submitOrder(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, _maxBodyBytes))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "can't read request body")
		return
	}
	var in dispatcher.OrderInput
	if err := sonic.Unmarshal(body, &in); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid order json")
		return
	}
	h.writeResult(w, h.commands.SubmitOrder(r.Context(), in))
}

func (h *Handler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	h.writeResult(w, h.commands.CancelOrder(r.Context(), mux.Vars(r)["id"]))
}

func (h *Handler) strategy(w http.ResponseWriter, r *http.Request) {
	enabled := mux.Vars(r)["action"] == "enable"
	h.writeResult(w, h.commands.SetStrategyEnabled(r.Context(), enabled))
}

func (h *Handler) performance(w http.ResponseWriter, r *http.Request) {
	provider := model.Provider(mux.Vars(r)["provider"])
	if !provider.Valid() {
		h.writeError(w, http.StatusNotFound, "unknown provider")
		return
	}

	iterations := 10
	if raw := r.URL.Query().Get("iterations"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "iterations must be a number")
			return
		}
		iterations = n
	}
	h.writeResult(w, h.commands.RunPerformanceTest(r.Context(), provider, iterations))
}

func (h *Handler) listViews(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string][]config.View{"views": h.views.Views()})
}

func (h *Handler) mountView(w http.ResponseWriter, r *http.Request) {
	h.changeView(w, mux.Vars(r)["name"], h.views.Mount)
}

func (h *Handler) unmountView(w http.ResponseWriter, r *http.Request) {
	h.changeView(w, mux.Vars(r)["name"], h.views.Unmount)
}

func (h *Handler) changeView(w http.ResponseWriter, name string, change func(config.View) error) {
	err := change(config.View(name))
	switch {
	case errors.Is(err, session.ErrUnknownView):
		h.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, session.ErrNotRunning):
		h.writeError(w, http.StatusServiceUnavailable, err.Error())
	case err != nil:
		h.writeError(w, http.StatusInternalServerError, err.Error())
	default:
		h.writeJSON(w, http.StatusOK, map[string][]config.View{"views": h.views.Views()})
	}
}
