package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"refersync/pkg/auth"
	"refersync/pkg/logger"
	"refersync/pkg/models"
	"refersync/pkg/referral"
	"refersync/pkg/store"
	"refersync/pkg/thread"
	"refersync/pkg/unread"
	"refersync/pkg/utils"
)

// Threads serves the conversation endpoints. The two participant IDs in
// the path are order-insensitive; both orderings address the same thread.
type Threads struct {
	Store     *store.Store
	Manager   *thread.Manager
	Referrals *referral.Service
}

// Register mounts the thread endpoints on the /v1 subrouter.
func (h *Threads) Register(r *mux.Router) {
	r.HandleFunc("/threads/{a}/{b}/messages", h.list).Methods(http.MethodGet)
	r.HandleFunc("/threads/{a}/{b}/messages", h.send).Methods(http.MethodPost)
	r.HandleFunc("/threads/{a}/{b}/messages/{id}", h.edit).Methods(http.MethodPut)
	r.HandleFunc("/threads/{a}/{b}/messages/{id}", h.remove).Methods(http.MethodDelete)
	r.HandleFunc("/threads/{a}/{b}/read", h.markRead).Methods(http.MethodPost)
	r.HandleFunc("/unread", h.unreadCounts).Methods(http.MethodGet)
}

func threadKeyFromVars(r *http.Request) string {
	v := mux.Vars(r)
	return store.ThreadKey(v["a"], v["b"])
}

func (h *Threads) list(w http.ResponseWriter, r *http.Request) {
	key := threadKeyFromVars(r)
	msgs, err := h.Store.Thread(key)
	if err != nil {
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	az := auth.ActorFromRequest(r)
	resp := struct {
		Key      string           `json:"key"`
		Messages []models.Message `json:"messages"`
		Unread   int              `json:"unread"`
	}{Key: key, Messages: msgs, Unread: unread.Count(msgs, az.ActorID)}
	logger.Info("thread_listed", "key", key, "count", len(msgs))
	_ = utils.JSONWrite(w, http.StatusOK, resp)
}

type sendRequest struct {
	Content     string              `json:"content"`
	Attachments []models.Attachment `json:"attachments,omitempty"`
}

func (h *Threads) send(w http.ResponseWriter, r *http.Request) {
	az := auth.ActorFromRequest(r)
	if !az.Valid() {
		utils.JSONError(w, http.StatusUnauthorized, "missing actor identity")
		return
	}
	var req sendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	key := threadKeyFromVars(r)
	msg, err := h.Manager.Send(r.Context(), az, key, req.Content, req.Attachments)
	if err != nil {
		writeThreadError(w, err)
		return
	}
	if h.Referrals != nil {
		if err := h.Referrals.OnMessageSent(key, az.ActorID); err != nil {
			logger.Warn("referral_advance_failed", "key", key, "error", err)
		}
	}
	_ = utils.JSONWrite(w, http.StatusCreated, msg)
}

type editRequest struct {
	Content string `json:"content"`
}

func (h *Threads) edit(w http.ResponseWriter, r *http.Request) {
	az := auth.ActorFromRequest(r)
	if !az.Valid() {
		utils.JSONError(w, http.StatusUnauthorized, "missing actor identity")
		return
	}
	var req editRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	key := threadKeyFromVars(r)
	msgID := mux.Vars(r)["id"]
	if err := h.Manager.Edit(r.Context(), az, key, msgID, req.Content); err != nil {
		writeThreadError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Threads) remove(w http.ResponseWriter, r *http.Request) {
	az := auth.ActorFromRequest(r)
	if !az.Valid() {
		utils.JSONError(w, http.StatusUnauthorized, "missing actor identity")
		return
	}
	key := threadKeyFromVars(r)
	msgID := mux.Vars(r)["id"]
	if err := h.Manager.Delete(r.Context(), az, key, msgID); err != nil {
		writeThreadError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Threads) markRead(w http.ResponseWriter, r *http.Request) {
	az := auth.ActorFromRequest(r)
	if !az.Valid() {
		utils.JSONError(w, http.StatusUnauthorized, "missing actor identity")
		return
	}
	key := threadKeyFromVars(r)
	changed, err := h.Manager.MarkRead(r.Context(), key, az.ActorID)
	if err != nil {
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if h.Referrals != nil {
		if err := h.Referrals.OnMarkRead(key, az.ActorID, changed); err != nil {
			logger.Warn("referral_advance_failed", "key", key, "error", err)
		}
	}
	_ = utils.JSONWrite(w, http.StatusOK, map[string]int{"marked": changed})
}

// unreadCounts returns per-counterpart unread counts for the calling
// actor: GET /v1/unread?participants=d1,d2,d3
func (h *Threads) unreadCounts(w http.ResponseWriter, r *http.Request) {
	az := auth.ActorFromRequest(r)
	if !az.Valid() {
		utils.JSONError(w, http.StatusUnauthorized, "missing actor identity")
		return
	}
	raw := r.URL.Query().Get("participants")
	var ids []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			ids = append(ids, p)
		}
	}
	if len(ids) == 0 {
		utils.JSONError(w, http.StatusBadRequest, "participants query parameter is required")
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, unread.ByParticipant(h.Store, az.ActorID, ids))
}

// writeThreadError maps manager errors onto HTTP status codes.
func writeThreadError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, thread.ErrAttachmentTooLarge):
		utils.JSONError(w, http.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, thread.ErrPermissionViolation):
		utils.JSONError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, thread.ErrMessageNotFound):
		utils.JSONError(w, http.StatusNotFound, err.Error())
	default:
		utils.JSONError(w, http.StatusBadRequest, err.Error())
	}
}
