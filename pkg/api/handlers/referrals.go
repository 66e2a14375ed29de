package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"refersync/pkg/auth"
	"refersync/pkg/inbox"
	"refersync/pkg/models"
	"refersync/pkg/referral"
	"refersync/pkg/store"
	"refersync/pkg/thread"
	"refersync/pkg/utils"
)

// Referrals serves referral creation, lookup and the grouped inbox.
type Referrals struct {
	Service *referral.Service
	Store   *store.Store
}

// Register mounts the referral endpoints on the /v1 subrouter.
func (h *Referrals) Register(r *mux.Router) {
	r.HandleFunc("/referrals", h.create).Methods(http.MethodPost)
	r.HandleFunc("/referrals", h.list).Methods(http.MethodGet)
	r.HandleFunc("/referrals/{id}", h.get).Methods(http.MethodGet)
	r.HandleFunc("/inbox", h.inbox).Methods(http.MethodGet)
}

type createReferralRequest struct {
	PatientID          string              `json:"patientId"`
	Specialty          string              `json:"specialty"`
	Kind               models.ReferralKind `json:"type"`
	ReceivingDoctorID  string              `json:"receivingDoctorId,omitempty"`
	Letter             string              `json:"letter"`
	AttachPatientFiles bool                `json:"attachPatientFiles,omitempty"`
}

type createReferralResponse struct {
	Referral models.Referral `json:"referral"`
	// Artifact carries the rendered letter for printable referrals,
	// base64-encoded by the JSON layer. Absent for digital referrals.
	Artifact []byte `json:"artifact,omitempty"`
}

func (h *Referrals) create(w http.ResponseWriter, r *http.Request) {
	az := auth.ActorFromRequest(r)
	if !az.Valid() {
		utils.JSONError(w, http.StatusUnauthorized, "missing actor identity")
		return
	}
	var req createReferralRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	ref, artifact, err := h.Service.Create(r.Context(), az, referral.CreateParams{
		PatientID:          req.PatientID,
		Specialty:          req.Specialty,
		Kind:               req.Kind,
		ReceivingDoctorID:  req.ReceivingDoctorID,
		Letter:             req.Letter,
		AttachPatientFiles: req.AttachPatientFiles,
	})
	if err != nil {
		switch {
		case errors.Is(err, thread.ErrAttachmentTooLarge):
			utils.JSONError(w, http.StatusRequestEntityTooLarge, err.Error())
		case errors.Is(err, thread.ErrPermissionViolation):
			utils.JSONError(w, http.StatusForbidden, err.Error())
		default:
			utils.JSONError(w, http.StatusBadRequest, err.Error())
		}
		return
	}
	_ = utils.JSONWrite(w, http.StatusCreated, createReferralResponse{Referral: ref, Artifact: artifact})
}

func (h *Referrals) list(w http.ResponseWriter, r *http.Request) {
	refs, err := h.Service.List()
	if err != nil {
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, struct {
		Referrals []models.Referral `json:"referrals"`
	}{Referrals: refs})
}

func (h *Referrals) get(w http.ResponseWriter, r *http.Request) {
	ref, err := h.Service.Get(mux.Vars(r)["id"])
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			utils.JSONError(w, http.StatusNotFound, err.Error())
			return
		}
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, ref)
}

// inbox returns the digital referral inbox grouped by specialty and
// receiving doctor. Without parameters it is the administrative view over
// every referral; receivingDoctorId narrows it to one doctor's slice and
// q filters by specialty, doctor name or patient name.
func (h *Referrals) inbox(w http.ResponseWriter, r *http.Request) {
	az := auth.ActorFromRequest(r)
	if !az.Valid() {
		utils.JSONError(w, http.StatusUnauthorized, "missing actor identity")
		return
	}
	refs, err := h.Service.List()
	if err != nil {
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if recv := r.URL.Query().Get("receivingDoctorId"); recv != "" {
		kept := refs[:0]
		for _, ref := range refs {
			if ref.ReceivingDoctorID == recv {
				kept = append(kept, ref)
			}
		}
		refs = kept
	}
	idx := inbox.BuildIndex(h.Store, refs)
	if q := r.URL.Query().Get("q"); q != "" {
		idx = inbox.Filter(idx, q)
	}
	_ = utils.JSONWrite(w, http.StatusOK, idx)
}
