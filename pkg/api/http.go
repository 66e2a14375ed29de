package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"refersync/pkg/api/handlers"
	"refersync/pkg/referral"
	"refersync/pkg/store"
	"refersync/pkg/thread"
)

// Deps carries the wired services the HTTP surface exposes.
type Deps struct {
	Store     *store.Store
	Threads   *thread.Manager
	Referrals *referral.Service
}

// NewRouter builds the /v1 API router. Health and metrics endpoints are
// mounted by the app, not here.
func NewRouter(d Deps) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"endpoints":["POST /v1/referrals","GET /v1/referrals","GET /v1/inbox","GET /v1/threads/{a}/{b}/messages","POST /v1/threads/{a}/{b}/read","GET /v1/unread"]}`))
	})

	v1 := r.PathPrefix("/v1").Subrouter()

	th := &handlers.Threads{Store: d.Store, Manager: d.Threads, Referrals: d.Referrals}
	th.Register(v1)

	rf := &handlers.Referrals{Service: d.Referrals, Store: d.Store}
	rf.Register(v1)

	return r
}
