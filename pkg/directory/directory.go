// Package directory defines the collaborator interfaces this service
// consumes. Patient and doctor records live in an external directory;
// letter rendering is delegated to a document renderer. Only the shapes
// needed here are modeled.
package directory

import "fmt"

// PatientFile is a document from the patient's file set, pre-encoding.
type PatientFile struct {
	Name string
	Type string
	Data []byte
}

// Patient is the directory view of a patient.
type Patient struct {
	ID    string
	Name  string
	Age   int
	Files []PatientFile
}

// Doctor is the directory view of a clinician.
type Doctor struct {
	ID        string
	Name      string
	Specialty string
	Contact   string
}

// Patients resolves patient records by ID.
type Patients interface {
	Patient(id string) (Patient, error)
}

// Doctors resolves doctor records by ID.
type Doctors interface {
	Doctor(id string) (Doctor, error)
}

// Renderer produces a printable artifact from letter text and metadata.
// The artifact format is opaque to this service.
type Renderer interface {
	Render(text string, meta map[string]string) ([]byte, error)
}

// StaticPatients is an in-memory Patients implementation for seeding and
// tests.
type StaticPatients map[string]Patient

func (s StaticPatients) Patient(id string) (Patient, error) {
	if p, ok := s[id]; ok {
		return p, nil
	}
	return Patient{}, fmt.Errorf("patient %s not found", id)
}

// StaticDoctors is an in-memory Doctors implementation for seeding and
// tests.
type StaticDoctors map[string]Doctor

func (s StaticDoctors) Doctor(id string) (Doctor, error) {
	if d, ok := s[id]; ok {
		return d, nil
	}
	return Doctor{}, fmt.Errorf("doctor %s not found", id)
}

// TextRenderer renders the letter as plain text with a metadata header.
// Stands in for the real document renderer in tests and development.
type TextRenderer struct{}

func (TextRenderer) Render(text string, meta map[string]string) ([]byte, error) {
	out := ""
	for k, v := range meta {
		out += k + ": " + v + "\n"
	}
	out += "\n" + text + "\n"
	return []byte(out), nil
}
