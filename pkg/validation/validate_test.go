package validation

import (
	"strings"
	"testing"

	"refersync/pkg/models"
)

func TestValidateMessage(t *testing.T) {
	ok := models.Message{ID: "m1", SenderID: "drA", TS: 1, Content: "hi"}
	if err := ValidateMessage(ok, 0); err != nil {
		t.Fatalf("valid message rejected: %v", err)
	}

	fileOnly := models.Message{ID: "m2", SenderID: "drA", TS: 1, File: &models.Attachment{Name: "a.pdf", Size: 3}}
	if err := ValidateMessage(fileOnly, 0); err != nil {
		t.Fatalf("file-only message rejected: %v", err)
	}

	empty := models.Message{ID: "m3", SenderID: "drA", TS: 1}
	if err := ValidateMessage(empty, 0); err == nil {
		t.Fatalf("message without content or file accepted")
	}

	long := models.Message{ID: "m4", SenderID: "drA", TS: 1, Content: strings.Repeat("x", 11)}
	if err := ValidateMessage(long, 10); err == nil {
		t.Fatalf("over-long content accepted")
	}

	noSender := models.Message{ID: "m5", TS: 1, Content: "hi"}
	if err := ValidateMessage(noSender, 0); err == nil {
		t.Fatalf("message without sender accepted")
	}
}

func TestValidateReferral(t *testing.T) {
	base := models.Referral{
		ID:                "ref-1",
		PatientID:         "p1",
		Specialty:         "cardiology",
		ReferringDoctorID: "drA",
		Status:            models.StatusPending,
	}

	printable := base
	printable.Kind = models.KindPrintable
	if err := ValidateReferral(printable); err != nil {
		t.Fatalf("valid printable referral rejected: %v", err)
	}

	digital := base
	digital.Kind = models.KindDigital
	if err := ValidateReferral(digital); err == nil {
		t.Fatalf("digital referral without receiver accepted")
	}
	digital.ReceivingDoctorID = "drB"
	if err := ValidateReferral(digital); err != nil {
		t.Fatalf("valid digital referral rejected: %v", err)
	}

	badKind := base
	badKind.Kind = models.ReferralKind("fax")
	if err := ValidateReferral(badKind); err == nil {
		t.Fatalf("unknown referral type accepted")
	}

	badStatus := printable
	badStatus.Status = models.ReferralStatus("lost")
	if err := ValidateReferral(badStatus); err == nil {
		t.Fatalf("unknown status accepted")
	}
}
