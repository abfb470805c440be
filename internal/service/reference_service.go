package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/ishpreet160/CertFlow/internal/apierror"
	"github.com/ishpreet160/CertFlow/internal/binding"
	"github.com/ishpreet160/CertFlow/internal/dto"
	"github.com/ishpreet160/CertFlow/internal/identity"
	"github.com/ishpreet160/CertFlow/internal/model"
	"github.com/ishpreet160/CertFlow/internal/policy"
	"github.com/ishpreet160/CertFlow/internal/repository"
	"github.com/ishpreet160/CertFlow/internal/storage"
)

// referenceDateLayouts are tried in order.
var referenceDateLayouts = []string{"2006-01-02", "02-01-2006"}

// ParseReferenceDate accepts YYYY-MM-DD or DD-MM-YYYY.
func ParseReferenceDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range referenceDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

type ReferenceService interface {
	Create(ctx context.Context, c identity.Claim, form dto.ReferenceForm, file binding.File) (*dto.ReferenceResponse, error)
	List(ctx context.Context, c identity.Claim) ([]dto.ReferenceResponse, error)
	OpenFile(ctx context.Context, c identity.Claim, id uuid.UUID) (*FileContent, error)
	Delete(ctx context.Context, c identity.Claim, id uuid.UUID) error
}

type referenceService struct {
	refs    repository.ReferenceRepository
	uploads repository.UploadRepository
	gate    *policy.Gate
	binder  *binding.Binder
	allow   *storage.Allowlist
}

// NewReferenceService only accepts PDFs that the general allow-list also permits.
func NewReferenceService(refs repository.ReferenceRepository, uploads repository.UploadRepository, gate *policy.Gate, binder *binding.Binder, allow *storage.Allowlist) ReferenceService {
	return &referenceService{refs: refs, uploads: uploads, gate: gate, binder: binder, allow: allow.RestrictTo("pdf")}
}

func (s *referenceService) Create(ctx context.Context, c identity.Claim, form dto.ReferenceForm, file binding.File) (*dto.ReferenceResponse, error) {
	if err := s.gate.Authorize(ctx, c, policy.CreateReference, nil); err != nil {
		return nil, err
	}

	errs := map[string]string{}
	from, ok := ParseReferenceDate(form.ValidFrom)
	if !ok {
		errs["valid_from"] = "must be a date in YYYY-MM-DD or DD-MM-YYYY format"
	}
	till, ok := ParseReferenceDate(form.ValidTill)
	if !ok {
		errs["valid_till"] = "must be a date in YYYY-MM-DD or DD-MM-YYYY format"
	}
	if strings.TrimSpace(form.Name) == "" {
		errs["name"] = "required"
	}
	if len(errs) > 0 {
		return nil, apierror.FieldErrors(errs)
	}
	if from.After(till) {
		return nil, apierror.Validation("valid_from must not be after valid_till")
	}

	staged, err := s.binder.Stage(ctx, "tcil", file, s.allow)
	if err != nil {
		return nil, err
	}
	ref := &model.ReferenceCertificate{
		Name:      strings.TrimSpace(form.Name),
		ValidFrom: from,
		ValidTill: till,
		CreatedBy: c.UserID,
	}
	var up *model.Upload
	err = s.binder.Within(ctx, s.refs.DB(), func(tx *gorm.DB) error {
		if err := s.refs.CreateTx(tx, ref); err != nil {
			return err
		}
		if up, err = s.binder.BindUploadTx(tx, staged, c.UserID); err != nil {
			return err
		}
		return s.binder.AttachToReferenceTx(tx, up.ID, ref.ID)
	}, staged)
	if err != nil {
		return nil, err
	}

	log.Info().Str("reference_id", ref.ID.String()).Str("user_id", c.UserID.String()).Msg("reference certificate uploaded")
	ref.Upload = up
	resp := toReferenceResponse(ref)
	return &resp, nil
}

func (s *referenceService) List(ctx context.Context, c identity.Claim) ([]dto.ReferenceResponse, error) {
	if err := s.gate.Authorize(ctx, c, policy.ListReferences, nil); err != nil {
		return nil, err
	}
	refs, err := s.refs.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]dto.ReferenceResponse, len(refs))
	for i := range refs {
		out[i] = toReferenceResponse(&refs[i])
	}
	return out, nil
}

func (s *referenceService) OpenFile(ctx context.Context, c identity.Claim, id uuid.UUID) (*FileContent, error) {
	ref, err := s.refs.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, s.gate.Authorize(ctx, c, policy.ReadReference, nil)
		}
		return nil, err
	}
	if err := s.gate.Authorize(ctx, c, policy.ReadReference, policy.Reference()); err != nil {
		return nil, err
	}
	if ref.Upload == nil {
		return nil, apierror.NotFound("file not found")
	}
	return openBlob(ctx, s.binder.Store(), ref.Upload)
}

func (s *referenceService) Delete(ctx context.Context, c identity.Claim, id uuid.UUID) error {
	var blobRef string
	err := runTx(ctx, s.refs.DB(), func(tx *gorm.DB) error {
		var res *policy.Resource
		if _, err := s.refs.FindForUpdateTx(tx, id); err == nil {
			res = policy.Reference()
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := policy.Authorize(c, policy.DeleteReference, res, nil); err != nil {
			return err
		}

		up, err := s.uploads.FindByReferenceTx(tx, id)
		switch {
		case err == nil:
			blobRef = up.BlobRef
			if err := s.uploads.DeleteTx(tx, up.ID); err != nil {
				return err
			}
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}

		n, err := s.refs.DeleteTx(tx, id)
		if err != nil {
			return err
		}
		if n == 0 {
			return apierror.NotFound("reference certificate not found")
		}
		return nil
	})
	if err != nil {
		return err
	}

	log.Info().Str("reference_id", id.String()).Str("by", c.UserID.String()).Msg("reference certificate deleted")
	s.binder.Release(ctx, blobRef)
	return nil
}
