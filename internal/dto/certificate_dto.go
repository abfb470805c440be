package dto

// ─── Request DTOs ────────────────────────────────────────────────────────────

// CertificateForm is the multipart metadata of a new submission. Dates are
// YYYY-MM-DD; value is a decimal string.
type CertificateForm struct {
	Title              string `form:"title"                 validate:"required,max=200"`
	Client             string `form:"client"                validate:"required,max=100"`
	NatureOfProject    string `form:"nature_of_project"     validate:"max=100"`
	SubNatureOfProject string `form:"sub_nature_of_project" validate:"max=100"`
	StartDate          string `form:"start_date"`
	GoLiveDate         string `form:"go_live_date"`
	EndDate            string `form:"end_date"`
	WarrantyYears      string `form:"warranty_years"        validate:"max=20"`
	OMYears            string `form:"om_years"              validate:"max=20"`
	Value              string `form:"value"`
	ProjectStatus      string `form:"project_status"        validate:"max=50"`
	TCILContactPerson  string `form:"tcil_contact_person"   validate:"max=100"`
	Technologies       string `form:"technologies"          validate:"max=500"`
	ConcernedHOD       string `form:"concerned_hod"         validate:"max=100"`
	ClientContactName  string `form:"client_contact_name"   validate:"max=100"`
	ClientContactPhone string `form:"client_contact_phone"  validate:"max=20"`
	ClientContactEmail string `form:"client_contact_email"  validate:"omitempty,email,max=120"`
}

// CertificateEditForm changes only the fields that are present. An empty
// string clears an optional field.
type CertificateEditForm struct {
	Title              *string `form:"title"                 validate:"omitempty,min=1,max=200"`
	Client             *string `form:"client"                validate:"omitempty,min=1,max=100"`
	NatureOfProject    *string `form:"nature_of_project"     validate:"omitempty,max=100"`
	SubNatureOfProject *string `form:"sub_nature_of_project" validate:"omitempty,max=100"`
	StartDate          *string `form:"start_date"`
	GoLiveDate         *string `form:"go_live_date"`
	EndDate            *string `form:"end_date"`
	WarrantyYears      *string `form:"warranty_years"        validate:"omitempty,max=20"`
	OMYears            *string `form:"om_years"              validate:"omitempty,max=20"`
	Value              *string `form:"value"`
	ProjectStatus      *string `form:"project_status"        validate:"omitempty,max=50"`
	TCILContactPerson  *string `form:"tcil_contact_person"   validate:"omitempty,max=100"`
	Technologies       *string `form:"technologies"          validate:"omitempty,max=500"`
	ConcernedHOD       *string `form:"concerned_hod"         validate:"omitempty,max=100"`
	ClientContactName  *string `form:"client_contact_name"   validate:"omitempty,max=100"`
	ClientContactPhone *string `form:"client_contact_phone"  validate:"omitempty,max=20"`
	ClientContactEmail *string `form:"client_contact_email"  validate:"omitempty,max=120"`
}

// StatusUpdateRequest is the review decision. Only "approved" and "rejected"
// are accepted.
type StatusUpdateRequest struct {
	Status string `json:"status" validate:"required"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type CertificateResponse struct {
	ID                 string  `json:"id"`
	UserID             string  `json:"user_id"`
	SubmittedBy        string  `json:"submitted_by,omitempty"`
	Title              string  `json:"title"`
	Client             string  `json:"client"`
	NatureOfProject    string  `json:"nature_of_project"`
	SubNatureOfProject string  `json:"sub_nature_of_project"`
	StartDate          *string `json:"start_date"`
	GoLiveDate         *string `json:"go_live_date"`
	EndDate            *string `json:"end_date"`
	WarrantyYears      string  `json:"warranty_years"`
	OMYears            string  `json:"om_years"`
	Value              *string `json:"value"`
	ProjectStatus      string  `json:"project_status"`
	TCILContactPerson  string  `json:"tcil_contact_person"`
	Technologies       string  `json:"technologies"`
	ConcernedHOD       string  `json:"concerned_hod"`
	ClientContactName  string  `json:"client_contact_name"`
	ClientContactPhone string  `json:"client_contact_phone"`
	ClientContactEmail string  `json:"client_contact_email"`
	Filename           string  `json:"filename"`
	FileURL            string  `json:"file_url"`
	Status             string  `json:"status"`
	CreatedAt          string  `json:"created_at"`
	UpdatedAt          string  `json:"updated_at"`
}

type StatsResponse struct {
	TotalUploads     int64 `json:"total_uploads"`
	PendingApprovals int64 `json:"pending_approvals"`
	Approved         int64 `json:"approved"`
	Rejected         int64 `json:"rejected"`
}
