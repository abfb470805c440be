package dto

// ReferenceForm is the multipart metadata of a reference (TCIL) certificate.
// Dates accept YYYY-MM-DD or DD-MM-YYYY.
type ReferenceForm struct {
	Name      string `form:"name"       validate:"required,max=255"`
	ValidFrom string `form:"valid_from" validate:"required"`
	ValidTill string `form:"valid_till" validate:"required"`
}

type ReferenceResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	ValidFrom string `json:"valid_from"`
	ValidTill string `json:"valid_till"`
	Filename  string `json:"filename"`
	FileURL   string `json:"file_url"`
	CreatedBy string `json:"created_by"`
	CreatedAt string `json:"created_at"`
}
