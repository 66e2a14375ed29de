package validation

import (
	"errors"
	"fmt"
	"strings"

	"refersync/pkg/models"
)

// ValidateMessage checks the invariants a message must satisfy before it
// may be persisted. Attachment size is checked separately by the thread
// manager so the cap stays configurable per deployment.
func ValidateMessage(m models.Message, maxContentLen int) error {
	var errs []string
	if m.ID == "" {
		errs = append(errs, "id is required")
	}
	if m.SenderID == "" {
		errs = append(errs, "senderId is required")
	}
	if m.TS == 0 {
		errs = append(errs, "ts is required")
	}
	if m.Content == "" && m.File == nil {
		errs = append(errs, "content or file is required")
	}
	if maxContentLen > 0 && len(m.Content) > maxContentLen {
		errs = append(errs, fmt.Sprintf("content too long: %d > %d", len(m.Content), maxContentLen))
	}
	if m.File != nil {
		if m.File.Name == "" {
			errs = append(errs, "file name is required")
		}
		if m.File.Size < 0 {
			errs = append(errs, "file size must be non-negative")
		}
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

// ValidateReferral checks a referral record before persistence.
func ValidateReferral(ref models.Referral) error {
	var errs []string
	if ref.ID == "" {
		errs = append(errs, "id is required")
	}
	if ref.PatientID == "" {
		errs = append(errs, "patientId is required")
	}
	if ref.Specialty == "" {
		errs = append(errs, "specialty is required")
	}
	if ref.ReferringDoctorID == "" {
		errs = append(errs, "referringDoctorId is required")
	}
	switch ref.Kind {
	case models.KindPrintable:
	case models.KindDigital:
		if ref.ReceivingDoctorID == "" {
			errs = append(errs, "receivingDoctorId is required for digital referrals")
		}
	default:
		errs = append(errs, fmt.Sprintf("invalid referral type: %q", ref.Kind))
	}
	switch ref.Status {
	case models.StatusPending, models.StatusViewed, models.StatusResponded:
	default:
		errs = append(errs, fmt.Sprintf("invalid status: %q", ref.Status))
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}
