package referral

import (
	"context"
	"errors"
	"sort"
	"testing"

	"refersync/pkg/auth"
	"refersync/pkg/directory"
	"refersync/pkg/logger"
	"refersync/pkg/models"
	"refersync/pkg/store"
	"refersync/pkg/thread"
)

// memStore backs both the thread manager and the referral service in
// tests, mirroring the store's read-modify-write shape.
type memStore struct {
	threads map[string][]models.Message
	refs    map[string]models.Referral
}

func newMemStore() *memStore {
	return &memStore{threads: map[string][]models.Message{}, refs: map[string]models.Referral{}}
}

func (s *memStore) Thread(key string) ([]models.Message, error) {
	return append([]models.Message(nil), s.threads[key]...), nil
}

func (s *memStore) AppendMessage(key string, msg models.Message) error {
	s.threads[key] = append(s.threads[key], msg)
	return nil
}

func (s *memStore) UpdateThread(key string, mutate func([]models.Message) ([]models.Message, error)) error {
	out, err := mutate(append([]models.Message(nil), s.threads[key]...))
	if err != nil {
		return err
	}
	s.threads[key] = out
	return nil
}

func (s *memStore) SaveReferral(ref models.Referral) error {
	s.refs[ref.ID] = ref
	return nil
}

func (s *memStore) GetReferral(id string) (models.Referral, error) {
	ref, ok := s.refs[id]
	if !ok {
		return ref, store.ErrNotFound
	}
	return ref, nil
}

func (s *memStore) ListReferrals() ([]models.Referral, error) {
	out := make([]models.Referral, 0, len(s.refs))
	for _, r := range s.refs {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func testService(t *testing.T) (*Service, *memStore) {
	t.Helper()
	logger.Init()
	ms := newMemStore()
	mgr := thread.NewManager(ms, thread.Options{})
	patients := directory.StaticPatients{
		"p1": {ID: "p1", Name: "Pat One", Age: 52, Files: []directory.PatientFile{
			{Name: "history.txt", Type: "text/plain", Data: []byte("prior findings")},
		}},
	}
	doctors := directory.StaticDoctors{
		"drA": {ID: "drA", Name: "Dr. A", Specialty: "general"},
		"drB": {ID: "drB", Name: "Dr. B", Specialty: "cardiology"},
	}
	return NewService(ms, mgr, patients, doctors, directory.TextRenderer{}), ms
}

var asDrA = auth.Context{ActorID: "drA", ActorName: "Dr. A", ActorRole: "doctor"}

func TestCreateDigitalSeedsConversation(t *testing.T) {
	svc, ms := testService(t)
	ref, artifact, err := svc.Create(context.Background(), asDrA, CreateParams{
		PatientID:          "p1",
		Specialty:          "cardiology",
		Kind:               models.KindDigital,
		ReceivingDoctorID:  "drB",
		Letter:             "please assess",
		AttachPatientFiles: true,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if artifact != nil {
		t.Fatalf("digital referral must not produce an artifact")
	}
	if ref.Status != models.StatusPending {
		t.Fatalf("new referral status = %s, want pending", ref.Status)
	}
	wantKey := store.ThreadKey("drA", "drB")
	if ref.ConversationKey != wantKey {
		t.Fatalf("conversation key = %q, want %q", ref.ConversationKey, wantKey)
	}
	msgs := ms.threads[wantKey]
	if len(msgs) != 1 {
		t.Fatalf("expected 1 seed message, got %d", len(msgs))
	}
	if msgs[0].Content != "please assess" || msgs[0].File == nil || msgs[0].File.Name != "history.txt" {
		t.Fatalf("seed message missing letter or patient file: %+v", msgs[0])
	}
	if msgs[0].Read {
		t.Fatalf("seed message must start unread")
	}
}

func TestCreatePrintableRendersArtifact(t *testing.T) {
	svc, ms := testService(t)
	ref, artifact, err := svc.Create(context.Background(), asDrA, CreateParams{
		PatientID: "p1",
		Specialty: "cardiology",
		Kind:      models.KindPrintable,
		Letter:    "paper referral",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(artifact) == 0 {
		t.Fatalf("printable referral must render an artifact")
	}
	if ref.ConversationKey != "" {
		t.Fatalf("printable referral must not open a conversation")
	}
	if len(ms.threads) != 0 {
		t.Fatalf("printable referral wrote a thread")
	}
}

func TestCreateDigitalRequiresKnownReceiver(t *testing.T) {
	svc, ms := testService(t)
	_, _, err := svc.Create(context.Background(), asDrA, CreateParams{
		PatientID:         "p1",
		Specialty:         "cardiology",
		Kind:              models.KindDigital,
		ReceivingDoctorID: "drZ",
		Letter:            "hello",
	})
	if err == nil {
		t.Fatalf("expected error for unknown receiving doctor")
	}
	if len(ms.refs) != 0 || len(ms.threads) != 0 {
		t.Fatalf("failed create must persist nothing")
	}
}

func createDigital(t *testing.T, svc *Service) models.Referral {
	t.Helper()
	ref, _, err := svc.Create(context.Background(), asDrA, CreateParams{
		PatientID:         "p1",
		Specialty:         "cardiology",
		Kind:              models.KindDigital,
		ReceivingDoctorID: "drB",
		Letter:            "please assess",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	return ref
}

func TestOnMarkReadAdvancesPendingToViewed(t *testing.T) {
	svc, ms := testService(t)
	ref := createDigital(t, svc)

	// a mark-read that changed nothing does not advance
	if err := svc.OnMarkRead(ref.ConversationKey, "drB", 0); err != nil {
		t.Fatalf("OnMarkRead: %v", err)
	}
	if ms.refs[ref.ID].Status != models.StatusPending {
		t.Fatalf("no-op mark-read advanced the referral")
	}

	// the referring doctor reading their own thread does not advance
	if err := svc.OnMarkRead(ref.ConversationKey, "drA", 1); err != nil {
		t.Fatalf("OnMarkRead: %v", err)
	}
	if ms.refs[ref.ID].Status != models.StatusPending {
		t.Fatalf("referrer mark-read advanced the referral")
	}

	if err := svc.OnMarkRead(ref.ConversationKey, "drB", 1); err != nil {
		t.Fatalf("OnMarkRead: %v", err)
	}
	if ms.refs[ref.ID].Status != models.StatusViewed {
		t.Fatalf("status = %s, want viewed", ms.refs[ref.ID].Status)
	}
}

func TestOnMessageSentTakesRespondedShortcut(t *testing.T) {
	svc, ms := testService(t)
	ref := createDigital(t, svc)

	if err := svc.OnMessageSent(ref.ConversationKey, "drB"); err != nil {
		t.Fatalf("OnMessageSent: %v", err)
	}
	if ms.refs[ref.ID].Status != models.StatusResponded {
		t.Fatalf("status = %s, want responded", ms.refs[ref.ID].Status)
	}

	// nothing moves backwards afterwards
	if err := svc.OnMarkRead(ref.ConversationKey, "drB", 1); err != nil {
		t.Fatalf("OnMarkRead: %v", err)
	}
	if ms.refs[ref.ID].Status != models.StatusResponded {
		t.Fatalf("responded referral regressed to %s", ms.refs[ref.ID].Status)
	}
}

func TestReevaluateDerivesStatusFromThread(t *testing.T) {
	svc, ms := testService(t)
	ref := createDigital(t, svc)

	// all messages read by the receiver: viewed
	for i := range ms.threads[ref.ConversationKey] {
		ms.threads[ref.ConversationKey][i].Read = true
	}
	got, changed, err := svc.Reevaluate(ms.refs[ref.ID])
	if err != nil || !changed {
		t.Fatalf("reevaluate: changed=%v err=%v", changed, err)
	}
	if got.Status != models.StatusViewed {
		t.Fatalf("status = %s, want viewed", got.Status)
	}

	// receiver authored a reply: responded
	ms.threads[ref.ConversationKey] = append(ms.threads[ref.ConversationKey], models.Message{
		ID: "m-reply", SenderID: "drB", Content: "seen, will book", TS: 2,
	})
	got, changed, err = svc.Reevaluate(ms.refs[ref.ID])
	if err != nil || !changed {
		t.Fatalf("reevaluate: changed=%v err=%v", changed, err)
	}
	if got.Status != models.StatusResponded {
		t.Fatalf("status = %s, want responded", got.Status)
	}

	// stable afterwards
	_, changed, err = svc.Reevaluate(ms.refs[ref.ID])
	if err != nil || changed {
		t.Fatalf("reevaluate must settle: changed=%v err=%v", changed, err)
	}
}

func TestGetFillsAdvisoryUnread(t *testing.T) {
	svc, _ := testService(t)
	ref := createDigital(t, svc)

	got, err := svc.Get(ref.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.UnreadMessages != 1 {
		t.Fatalf("unread = %d, want 1", got.UnreadMessages)
	}
	if _, err := svc.Get("missing"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
