package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ishpreet160/CertFlow/internal/apierror"
	"github.com/ishpreet160/CertFlow/internal/dto"
	"github.com/ishpreet160/CertFlow/internal/model"
)

// runTx executes fn inside a GORM transaction when db is available,
// or calls fn(nil) directly when db is nil (unit test mode).
func runTx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	if db == nil {
		return fn(nil)
	}
	return db.WithContext(ctx).Transaction(fn)
}

// notFound turns gorm.ErrRecordNotFound into a NotFound error carrying msg.
func notFound(err error, msg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apierror.NotFound(msg)
	}
	return err
}

func parseOptionalUUID(field string, s *string) (*uuid.UUID, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	id, err := uuid.Parse(*s)
	if err != nil {
		return nil, apierror.FieldErrors(map[string]string{field: "must be a valid id"})
	}
	return &id, nil
}

const dateLayout = "2006-01-02"

func formatDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(dateLayout)
	return &s
}

func toUserResponse(u *model.User) dto.UserResponse {
	resp := dto.UserResponse{
		ID:     u.ID.String(),
		Name:   u.Name,
		Email:  u.Email,
		Role:   u.Role.String(),
		Active: u.Active,
	}
	if u.ManagerID != nil {
		s := u.ManagerID.String()
		resp.ManagerID = &s
	}
	return resp
}

func toCertificateResponse(c *model.Certificate) dto.CertificateResponse {
	resp := dto.CertificateResponse{
		ID:                 c.ID.String(),
		UserID:             c.UserID.String(),
		Title:              c.Title,
		Client:             c.Client,
		NatureOfProject:    c.NatureOfProject,
		SubNatureOfProject: c.SubNatureOfProject,
		StartDate:          formatDate(c.StartDate),
		GoLiveDate:         formatDate(c.GoLiveDate),
		EndDate:            formatDate(c.EndDate),
		WarrantyYears:      c.WarrantyYears,
		OMYears:            c.OMYears,
		ProjectStatus:      c.ProjectStatus,
		TCILContactPerson:  c.TCILContactPerson,
		Technologies:       c.Technologies,
		ConcernedHOD:       c.ConcernedHOD,
		ClientContactName:  c.ClientContactName,
		ClientContactPhone: c.ClientContactPhone,
		ClientContactEmail: c.ClientContactEmail,
		Filename:           c.Filename,
		FileURL:            "/v1/certificates/" + c.ID.String() + "/file",
		Status:             string(c.Status),
		CreatedAt:          c.CreatedAt.Format(time.RFC3339),
		UpdatedAt:          c.UpdatedAt.Format(time.RFC3339),
	}
	if c.Value.Valid {
		v := c.Value.Decimal.StringFixed(2)
		resp.Value = &v
	}
	if c.Owner != nil {
		resp.SubmittedBy = c.Owner.Name
	}
	return resp
}

func toCertificateResponses(certs []model.Certificate) []dto.CertificateResponse {
	out := make([]dto.CertificateResponse, len(certs))
	for i := range certs {
		out[i] = toCertificateResponse(&certs[i])
	}
	return out
}

func toReferenceResponse(r *model.ReferenceCertificate) dto.ReferenceResponse {
	resp := dto.ReferenceResponse{
		ID:        r.ID.String(),
		Name:      r.Name,
		ValidFrom: r.ValidFrom.Format(dateLayout),
		ValidTill: r.ValidTill.Format(dateLayout),
		FileURL:   "/v1/tcil/certificates/" + r.ID.String() + "/file",
		CreatedBy: r.CreatedBy.String(),
		CreatedAt: r.CreatedAt.Format(time.RFC3339),
	}
	if r.Upload != nil {
		resp.Filename = r.Upload.Filename
	}
	return resp
}
