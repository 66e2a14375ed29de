package inbox

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"refersync/pkg/logger"
	"refersync/pkg/models"
)

type fakeRepo map[string][]models.Message

func (f fakeRepo) Thread(key string) ([]models.Message, error) { return f[key], nil }

func testReferrals() []models.Referral {
	return []models.Referral{
		{
			ID: "r1", Kind: models.KindDigital, Specialty: "cardiology",
			PatientName:       "Pat One",
			ReferringDoctorID: "drA",
			ReceivingDoctorID: "drZ", ReceivingDoctorName: "Dr. Z",
			ConversationKey: "messages_drA_drZ",
			Status:          models.StatusPending, CreatedTS: 10,
		},
		{
			ID: "r2", Kind: models.KindDigital, Specialty: "cardiology",
			PatientName:       "Pat Two",
			ReferringDoctorID: "drA",
			ReceivingDoctorID: "drZ", ReceivingDoctorName: "Dr. Z",
			ConversationKey: "messages_drA_drZ",
			Status:          models.StatusViewed, CreatedTS: 20,
		},
		{
			ID: "r3", Kind: models.KindDigital, Specialty: "neurology",
			PatientName:       "Pat Three",
			ReferringDoctorID: "drB",
			ReceivingDoctorID: "drZ", ReceivingDoctorName: "Dr. Z",
			ConversationKey: "messages_drB_drZ",
			Status:          models.StatusPending, CreatedTS: 30,
		},
		// printable referrals never reach the inbox
		{
			ID: "r4", Kind: models.KindPrintable, Specialty: "cardiology",
			PatientName:       "Pat Four",
			ReferringDoctorID: "drA",
			Status:            models.StatusPending, CreatedTS: 40,
		},
		// second receiving doctor in the same specialty
		{
			ID: "r5", Kind: models.KindDigital, Specialty: "cardiology",
			PatientName:       "Pat Five",
			ReferringDoctorID: "drA",
			ReceivingDoctorID: "drY", ReceivingDoctorName: "Dr. Y",
			ConversationKey: "messages_drA_drY",
			Status:          models.StatusPending, CreatedTS: 50,
		},
	}
}

func TestBuildIndexGroupsBySpecialtyThenReceivingDoctor(t *testing.T) {
	logger.Init()
	repo := fakeRepo{
		"messages_drA_drZ": {
			{ID: "m1", SenderID: "drA", Read: false},
			{ID: "m2", SenderID: "drA", Read: false},
			{ID: "m3", SenderID: "drZ", Read: false},
		},
		"messages_drB_drZ": {
			{ID: "m4", SenderID: "drB", Read: true},
		},
		"messages_drA_drY": {
			{ID: "m5", SenderID: "drA", Read: false},
		},
	}

	idx := BuildIndex(repo, testReferrals())
	require.Len(t, idx.Groups, 2)
	assert.Equal(t, "cardiology", idx.Groups[0].Specialty)
	assert.Equal(t, "neurology", idx.Groups[1].Specialty)

	cardio := idx.Groups[0]
	require.Len(t, cardio.Doctors, 2)
	assert.Equal(t, "drY", cardio.Doctors[0].DoctorID)
	assert.Equal(t, "drZ", cardio.Doctors[1].DoctorID)

	// two referrals share drZ's conversation; its unread counts once
	assert.Equal(t, 2, cardio.Doctors[1].Unread)
	assert.Len(t, cardio.Doctors[1].Referrals, 2)
	// newest referral first inside a doctor group
	assert.Equal(t, "r2", cardio.Doctors[1].Referrals[0].ID)

	assert.Equal(t, 1, cardio.Doctors[0].Unread)
	assert.Equal(t, 3, cardio.Unread)
	assert.Equal(t, 0, idx.Groups[1].Unread)
	assert.Equal(t, 3, idx.Unread)
}

func TestBuildIndexEmptyWithoutDigitalReferrals(t *testing.T) {
	logger.Init()
	printableOnly := []models.Referral{
		{ID: "r1", Kind: models.KindPrintable, Specialty: "cardiology", ReferringDoctorID: "drA"},
	}
	idx := BuildIndex(fakeRepo{}, printableOnly)
	assert.Empty(t, idx.Groups)
	assert.Zero(t, idx.Unread)
}

func TestFilterBySpecialtyAndDoctorName(t *testing.T) {
	logger.Init()
	idx := BuildIndex(fakeRepo{}, testReferrals())

	bySpec := Filter(idx, "neuro")
	require.Len(t, bySpec.Groups, 1)
	assert.Equal(t, "neurology", bySpec.Groups[0].Specialty)

	byDoc := Filter(idx, "dr. y")
	require.Len(t, byDoc.Groups, 1)
	assert.Equal(t, "cardiology", byDoc.Groups[0].Specialty)
	require.Len(t, byDoc.Groups[0].Doctors, 1)
	assert.Equal(t, "drY", byDoc.Groups[0].Doctors[0].DoctorID)

	none := Filter(idx, "dermatology")
	assert.Empty(t, none.Groups)

	unchanged := Filter(idx, "  ")
	assert.Equal(t, idx, unchanged)
}

func TestFilterByPatientNameKeepsMatchingReferrals(t *testing.T) {
	logger.Init()
	repo := fakeRepo{
		"messages_drA_drZ": {
			{ID: "m1", SenderID: "drA", Read: false},
		},
	}
	idx := BuildIndex(repo, testReferrals())

	byPatient := Filter(idx, "pat one")
	require.Len(t, byPatient.Groups, 1)
	assert.Equal(t, "cardiology", byPatient.Groups[0].Specialty)
	require.Len(t, byPatient.Groups[0].Doctors, 1)

	dg := byPatient.Groups[0].Doctors[0]
	assert.Equal(t, "drZ", dg.DoctorID)
	require.Len(t, dg.Referrals, 1)
	assert.Equal(t, "r1", dg.Referrals[0].ID)
	// unread recomputed over the surviving referral's conversation
	assert.Equal(t, 1, dg.Unread)
	assert.Equal(t, 1, byPatient.Unread)
}
