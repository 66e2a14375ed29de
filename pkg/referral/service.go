package referral

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"refersync/pkg/auth"
	"refersync/pkg/directory"
	"refersync/pkg/logger"
	"refersync/pkg/models"
	"refersync/pkg/state"
	"refersync/pkg/store"
	"refersync/pkg/thread"
	"refersync/pkg/unread"
	"refersync/pkg/utils"
	"refersync/pkg/validation"
)

// Repo is the storage surface the referral service needs.
type Repo interface {
	Thread(key string) ([]models.Message, error)
	SaveReferral(ref models.Referral) error
	GetReferral(id string) (models.Referral, error)
	ListReferrals() ([]models.Referral, error)
}

// Service creates referrals and advances their status from message
// activity. Referrals are never deleted; only Status mutates after
// creation.
type Service struct {
	repo     Repo
	threads  *thread.Manager
	patients directory.Patients
	doctors  directory.Doctors
	renderer directory.Renderer
}

// NewService wires the referral service with its collaborators.
func NewService(repo Repo, threads *thread.Manager, patients directory.Patients, doctors directory.Doctors, renderer directory.Renderer) *Service {
	return &Service{repo: repo, threads: threads, patients: patients, doctors: doctors, renderer: renderer}
}

// CreateParams describes one orientation action by the referring doctor.
type CreateParams struct {
	PatientID         string
	Specialty         string
	Kind              models.ReferralKind
	ReceivingDoctorID string
	// Letter is the referral letter text; for digital referrals it becomes
	// the content of the seed message.
	Letter string
	// AttachPatientFiles copies the patient's file set onto the seed
	// message of a digital referral.
	AttachPatientFiles bool
}

// Create records a referral. Digital referrals synchronously append
// exactly one seed message (letter plus any copied patient files) to the
// conversation between the two doctors; printable referrals render a
// letter artifact instead. The returned artifact is nil for digital
// referrals.
func (s *Service) Create(ctx context.Context, az auth.Context, p CreateParams) (models.Referral, []byte, error) {
	var zero models.Referral
	if !az.Valid() {
		return zero, nil, fmt.Errorf("create referral: %w", thread.ErrPermissionViolation)
	}
	pat, err := s.patients.Patient(p.PatientID)
	if err != nil {
		return zero, nil, fmt.Errorf("create referral: %w", err)
	}
	referrer, err := s.doctors.Doctor(az.ActorID)
	if err != nil {
		return zero, nil, fmt.Errorf("create referral: %w", err)
	}

	ref := models.Referral{
		ID:                  utils.GenReferralID(),
		PatientID:           pat.ID,
		PatientName:         pat.Name,
		Specialty:           p.Specialty,
		Kind:                p.Kind,
		ReferringDoctorID:   referrer.ID,
		ReferringDoctorName: referrer.Name,
		CreatedTS:           time.Now().UTC().UnixNano(),
		Status:              models.StatusPending,
	}

	var artifact []byte
	switch p.Kind {
	case models.KindDigital:
		receiver, err := s.doctors.Doctor(p.ReceivingDoctorID)
		if err != nil {
			return zero, nil, fmt.Errorf("create referral: %w", err)
		}
		ref.ReceivingDoctorID = receiver.ID
		ref.ReceivingDoctorName = receiver.Name
		ref.ConversationKey = store.ThreadKey(referrer.ID, receiver.ID)

		if err := validation.ValidateReferral(ref); err != nil {
			return zero, nil, err
		}

		var atts []models.Attachment
		if p.AttachPatientFiles {
			for _, f := range pat.Files {
				a, err := thread.EncodeAttachment(ctx, f.Name, f.Type, f.Data, s.threads.MaxAttachmentBytes())
				if err != nil {
					// nothing persisted yet: the referral does not exist and
					// the thread is untouched
					return zero, nil, err
				}
				atts = append(atts, *a)
			}
		}
		if _, err := s.threads.Send(ctx, az, ref.ConversationKey, p.Letter, atts); err != nil {
			return zero, nil, err
		}
	case models.KindPrintable:
		if err := validation.ValidateReferral(ref); err != nil {
			return zero, nil, err
		}
		artifact, err = s.renderer.Render(p.Letter, map[string]string{
			"patient":   pat.Name,
			"specialty": p.Specialty,
			"referrer":  referrer.Name,
			"date":      time.Unix(0, ref.CreatedTS).UTC().Format(time.RFC3339),
		})
		if err != nil {
			return zero, nil, fmt.Errorf("render letter: %w", err)
		}
		saveArtifact(ref.ID, artifact)
	default:
		return zero, nil, fmt.Errorf("invalid referral type: %q", p.Kind)
	}

	if err := s.repo.SaveReferral(ref); err != nil {
		return zero, nil, err
	}
	logger.Info("referral_created", "id", ref.ID, "type", string(ref.Kind), "patient", ref.PatientID, "specialty", ref.Specialty)
	return ref, artifact, nil
}

// saveArtifact keeps a copy of a rendered letter under the artifact root
// when one is configured. Best-effort; the caller already holds the bytes.
func saveArtifact(refID string, artifact []byte) {
	path := state.ArtifactPath("letters", refID+".txt")
	if path == "" {
		return
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		logger.Warn("letter_artifact_write_failed", "id", refID, "error", err)
		return
	}
	if err := os.WriteFile(path, artifact, 0o600); err != nil {
		logger.Warn("letter_artifact_write_failed", "id", refID, "error", err)
		return
	}
	logger.Info("letter_artifact_written", "id", refID, "path", path)
}

// Get returns one referral with its advisory unread count filled for the
// receiving doctor.
func (s *Service) Get(id string) (models.Referral, error) {
	ref, err := s.repo.GetReferral(id)
	if err != nil {
		return ref, err
	}
	s.fillUnread(&ref)
	return ref, nil
}

// List returns all referrals with advisory unread counts filled.
func (s *Service) List() ([]models.Referral, error) {
	refs, err := s.repo.ListReferrals()
	if err != nil {
		return nil, err
	}
	for i := range refs {
		s.fillUnread(&refs[i])
	}
	return refs, nil
}

func (s *Service) fillUnread(ref *models.Referral) {
	if ref.ConversationKey == "" || ref.ReceivingDoctorID == "" {
		return
	}
	ref.UnreadMessages = unread.CountFor(s.repo, ref.ConversationKey, ref.ReceivingDoctorID)
}

// OnMarkRead advances pending referrals to viewed after the receiving
// doctor acknowledged the conversation. newlyRead is the number of
// messages the markRead call actually flipped; a repeat acknowledgement
// (newlyRead == 0) changes nothing.
func (s *Service) OnMarkRead(key, viewerID string, newlyRead int) error {
	if newlyRead <= 0 {
		return nil
	}
	return s.advanceForKey(key, func(ref models.Referral) (models.ReferralStatus, bool) {
		if ref.ReceivingDoctorID != viewerID {
			return ref.Status, false
		}
		return Advance(ref.Status, models.StatusViewed)
	})
}

// OnMessageSent advances referrals to responded when the receiving doctor
// authors a message on the linked conversation. Replying without an
// explicit markRead takes the documented pending -> responded shortcut.
func (s *Service) OnMessageSent(key, senderID string) error {
	return s.advanceForKey(key, func(ref models.Referral) (models.ReferralStatus, bool) {
		if ref.ReceivingDoctorID != senderID {
			return ref.Status, false
		}
		return Advance(ref.Status, models.StatusResponded)
	})
}

// Reevaluate derives the status a referral should hold from its thread
// contents and advances forward if needed. Used by the sync loop so every
// independent viewer converges on the same status without a push channel.
func (s *Service) Reevaluate(ref models.Referral) (models.Referral, bool, error) {
	if ref.ConversationKey == "" || ref.ReceivingDoctorID == "" {
		return ref, false, nil
	}
	msgs, err := s.repo.Thread(ref.ConversationKey)
	if err != nil {
		return ref, false, err
	}
	target := ref.Status
	for _, m := range msgs {
		if m.SenderID == ref.ReceivingDoctorID {
			target = models.StatusResponded
			break
		}
	}
	if target != models.StatusResponded && len(msgs) > 0 && unread.Count(msgs, ref.ReceivingDoctorID) == 0 {
		target = models.StatusViewed
	}
	next, changed := Advance(ref.Status, target)
	if !changed {
		return ref, false, nil
	}
	ref.Status = next
	if err := s.repo.SaveReferral(ref); err != nil {
		return ref, false, err
	}
	logger.Info("referral_status_advanced", "id", ref.ID, "status", string(next))
	return ref, true, nil
}

// SyncConversation reevaluates every referral linked to the given
// conversation key.
func (s *Service) SyncConversation(key string) error {
	refs, err := s.referralsForKey(key)
	if err != nil {
		return err
	}
	for _, ref := range refs {
		if _, _, err := s.Reevaluate(ref); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) referralsForKey(key string) ([]models.Referral, error) {
	refs, err := s.repo.ListReferrals()
	if err != nil {
		return nil, err
	}
	out := refs[:0:0]
	for _, ref := range refs {
		if ref.ConversationKey == key {
			out = append(out, ref)
		}
	}
	return out, nil
}

func (s *Service) advanceForKey(key string, decide func(models.Referral) (models.ReferralStatus, bool)) error {
	refs, err := s.referralsForKey(key)
	if err != nil {
		return err
	}
	for _, ref := range refs {
		next, changed := decide(ref)
		if !changed {
			continue
		}
		ref.Status = next
		if err := s.repo.SaveReferral(ref); err != nil {
			return err
		}
		logger.Info("referral_status_advanced", "id", ref.ID, "status", string(next))
	}
	return nil
}
