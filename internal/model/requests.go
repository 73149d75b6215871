package model

// Request schemas accepted at the public and admin boundaries.
// Validation tags are checked by the service layer before any write.

type CreateSlotRequest struct {
	Date            string `json:"date" validate:"required,datetime=2006-01-02"`
	Time            string `json:"time" validate:"required,datetime=15:04"`
	DurationMinutes int    `json:"durationMinutes" validate:"required,oneof=15 30 45 60"`
}

type SetSlotEnabledRequest struct {
	Enabled *bool `json:"enabled" validate:"required"`
}

// ConsultationRequest is the public consultation form payload
type ConsultationRequest struct {
	SelectedSlotID string   `json:"selectedSlotId" validate:"required,uuid"`
	ParentName     string   `json:"parentName" validate:"required,min=2,max=100"`
	Email          string   `json:"email" validate:"required,email,max=254"`
	Phone          string   `json:"phone" validate:"required,min=8,max=20"`
	StudentName    string   `json:"studentName" validate:"required,min=1,max=100"`
	YearLevel      string   `json:"yearLevel" validate:"required,max=20"`
	School         string   `json:"school" validate:"omitempty,max=150"`
	Subjects       []string `json:"subjects" validate:"required,min=1,max=10,dive,required,max=50"`
	Notes          string   `json:"notes" validate:"omitempty,max=2000"`
	Source         string   `json:"source" validate:"omitempty,max=50"`
}

// LeadRequest is the admin manual lead entry
type LeadRequest struct {
	ParentName  string   `json:"parentName" validate:"required,min=2,max=100"`
	Email       string   `json:"email" validate:"omitempty,email,max=254"`
	Phone       string   `json:"phone" validate:"omitempty,min=8,max=20"`
	StudentName string   `json:"studentName" validate:"omitempty,max=100"`
	YearLevel   string   `json:"yearLevel" validate:"omitempty,max=20"`
	School      string   `json:"school" validate:"omitempty,max=150"`
	Subjects    []string `json:"subjects" validate:"omitempty,max=10,dive,required,max=50"`
	Notes       string   `json:"notes" validate:"omitempty,max=2000"`
	Source      string   `json:"source" validate:"omitempty,max=50"`
}

type LeadStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

type RescheduleRequest struct {
	NewSlotID string `json:"newSlotId" validate:"required,uuid"`
}

// EnrolmentRequest is the final submission of the enrolment funnel.
// Token is the continuation token when the parent arrived through a link.
type EnrolmentRequest struct {
	Token       string                    `json:"token" validate:"omitempty,max=128"`
	ParentName  string                    `json:"parentName" validate:"required,min=2,max=100"`
	ParentEmail string                    `json:"parentEmail" validate:"required,email,max=254"`
	ParentPhone string                    `json:"parentPhone" validate:"required,min=8,max=20"`
	Address     string                    `json:"address" validate:"omitempty,max=300"`
	Students    []EnrolmentStudentRequest `json:"students" validate:"required,min=1,max=10,dive"`
	Checkout    bool                      `json:"checkout"`
}

type EnrolmentStudentRequest struct {
	StudentName    string         `json:"studentName" validate:"required,min=1,max=100"`
	YearLevel      string         `json:"yearLevel" validate:"required,max=20"`
	School         string         `json:"school" validate:"omitempty,max=150"`
	Subjects       []string       `json:"subjects" validate:"required,min=1,max=10,unique,dive,required,max=50"`
	SubjectHours   map[string]int `json:"subjectHours" validate:"required,min=1,dive,keys,required,endkeys,min=1,max=20"`
	PreferredDays  []string       `json:"preferredDays" validate:"omitempty,dive,oneof=Monday Tuesday Wednesday Thursday Friday Saturday Sunday"`
	PreferredTimes []string       `json:"preferredTimes" validate:"omitempty,dive,oneof=morning afternoon evening"`
}
