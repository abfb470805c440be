package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/ishpreet160/CertFlow/internal/apierror"
	"github.com/ishpreet160/CertFlow/internal/binding"
	"github.com/ishpreet160/CertFlow/internal/dto"
	"github.com/ishpreet160/CertFlow/internal/identity"
	"github.com/ishpreet160/CertFlow/internal/infra"
	"github.com/ishpreet160/CertFlow/internal/lifecycle"
	"github.com/ishpreet160/CertFlow/internal/model"
	"github.com/ishpreet160/CertFlow/internal/notification"
	"github.com/ishpreet160/CertFlow/internal/policy"
	"github.com/ishpreet160/CertFlow/internal/repository"
	"github.com/ishpreet160/CertFlow/internal/storage"
)

// FileContent is an opened blob ready to be streamed. The caller closes Body.
type FileContent struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.ReadCloser
}

type CertificateService interface {
	Create(ctx context.Context, c identity.Claim, form dto.CertificateForm, file binding.File) (*dto.CertificateResponse, error)
	Get(ctx context.Context, c identity.Claim, id uuid.UUID) (*dto.CertificateResponse, error)
	ListOwn(ctx context.Context, c identity.Claim, status *lifecycle.Status) ([]dto.CertificateResponse, error)
	ListTeam(ctx context.Context, c identity.Claim, status *lifecycle.Status) ([]dto.CertificateResponse, error)
	ListPending(ctx context.Context, c identity.Claim) ([]dto.CertificateResponse, error)
	// Edit changes metadata and optionally replaces the file. file may be nil.
	Edit(ctx context.Context, c identity.Claim, id uuid.UUID, form dto.CertificateEditForm, file *binding.File) (*dto.CertificateResponse, error)
	Review(ctx context.Context, c identity.Claim, id uuid.UUID, req dto.StatusUpdateRequest) (*dto.CertificateResponse, error)
	Delete(ctx context.Context, c identity.Claim, id uuid.UUID) error
	OpenFile(ctx context.Context, c identity.Claim, id uuid.UUID) (*FileContent, error)
	// Export writes the caller's visible certificates as a PDF register.
	Export(ctx context.Context, c identity.Claim, w io.Writer) error
}

type certificateService struct {
	certs    repository.CertificateRepository
	uploads  repository.UploadRepository
	users    repository.UserRepository
	gate     *policy.Gate
	binder   *binding.Binder
	allow    *storage.Allowlist
	notifier *notification.Notifier
	now      func() time.Time
}

func NewCertificateService(
	certs repository.CertificateRepository,
	uploads repository.UploadRepository,
	users repository.UserRepository,
	gate *policy.Gate,
	binder *binding.Binder,
	allow *storage.Allowlist,
	notifier *notification.Notifier,
) CertificateService {
	return &certificateService{
		certs: certs, uploads: uploads, users: users, gate: gate,
		binder: binder, allow: allow, notifier: notifier, now: time.Now,
	}
}

// ── Create ───────────────────────────────────────────────────────────────────
// 1. Authorize (admins do not submit)
// 2. Parse metadata, then write the blob
// 3. TX: certificate row + upload row + attach. Any failure removes the blob.
// 4. (async) submission e-mail

func (s *certificateService) Create(ctx context.Context, c identity.Claim, form dto.CertificateForm, file binding.File) (*dto.CertificateResponse, error) {
	if err := s.gate.Authorize(ctx, c, policy.CreateCertificate, nil); err != nil {
		return nil, err
	}
	cert, err := certificateFromForm(form)
	if err != nil {
		return nil, err
	}
	staged, err := s.binder.Stage(ctx, "certificates", file, s.allow)
	if err != nil {
		return nil, err
	}
	cert.UserID = c.UserID
	cert.Filename = staged.Filename

	err = s.binder.Within(ctx, s.certs.DB(), func(tx *gorm.DB) error {
		if err := s.certs.CreateTx(tx, cert); err != nil {
			return err
		}
		up, err := s.binder.BindUploadTx(tx, staged, c.UserID)
		if err != nil {
			return err
		}
		return s.binder.AttachToCertificateTx(tx, up.ID, cert.ID)
	}, staged)
	if err != nil {
		return nil, err
	}

	log.Info().Str("certificate_id", cert.ID.String()).Str("user_id", c.UserID.String()).Msg("certificate submitted")
	if owner, err := s.users.FindByID(ctx, c.UserID); err == nil {
		s.notifier.CertificateSubmitted(recipient(owner), cert.Title)
		cert.Owner = owner
	} else {
		log.Warn().Err(err).Str("certificate_id", cert.ID.String()).Msg("certificate: owner lookup for notification")
	}
	resp := toCertificateResponse(cert)
	return &resp, nil
}

// ── Reads ────────────────────────────────────────────────────────────────────

func (s *certificateService) load(ctx context.Context, c identity.Claim, id uuid.UUID) (*model.Certificate, error) {
	cert, err := s.certs.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, s.gate.Authorize(ctx, c, policy.ReadCertificate, nil)
		}
		return nil, err
	}
	if err := s.gate.Authorize(ctx, c, policy.ReadCertificate, policy.Certificate(cert.UserID)); err != nil {
		return nil, err
	}
	return cert, nil
}

func (s *certificateService) Get(ctx context.Context, c identity.Claim, id uuid.UUID) (*dto.CertificateResponse, error) {
	cert, err := s.load(ctx, c, id)
	if err != nil {
		return nil, err
	}
	resp := toCertificateResponse(cert)
	return &resp, nil
}

func (s *certificateService) ListOwn(ctx context.Context, c identity.Claim, status *lifecycle.Status) ([]dto.CertificateResponse, error) {
	if !c.Valid() {
		return nil, apierror.Unauthorized("missing or invalid identity")
	}
	certs, err := s.certs.List(ctx, repository.CertificateFilter{OwnerIDs: []uuid.UUID{c.UserID}, Status: status})
	if err != nil {
		return nil, err
	}
	return toCertificateResponses(certs), nil
}

func (s *certificateService) ListTeam(ctx context.Context, c identity.Claim, status *lifecycle.Status) ([]dto.CertificateResponse, error) {
	if err := s.gate.Authorize(ctx, c, policy.ListTeam, nil); err != nil {
		return nil, err
	}
	certs, err := s.certs.List(ctx, repository.CertificateFilter{OwnerIDs: s.gate.Scope(ctx, c), Status: status})
	if err != nil {
		return nil, err
	}
	return toCertificateResponses(certs), nil
}

func (s *certificateService) ListPending(ctx context.Context, c identity.Claim) ([]dto.CertificateResponse, error) {
	pending := lifecycle.StatusPending
	return s.ListTeam(ctx, c, &pending)
}

// ── Edit ─────────────────────────────────────────────────────────────────────
// Owner only, while pending or rejected. A rejected certificate goes back to
// pending. The row is re-read under lock and written conditionally on the
// status seen, so a concurrent approval makes the edit fail instead of
// overwriting an approved certificate.

func (s *certificateService) Edit(ctx context.Context, c identity.Claim, id uuid.UUID, form dto.CertificateEditForm, file *binding.File) (*dto.CertificateResponse, error) {
	cert, err := s.certs.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, s.gate.Authorize(ctx, c, policy.EditCertificate, nil)
		}
		return nil, err
	}
	if err := policy.Authorize(c, policy.EditCertificate, policy.Certificate(cert.UserID), nil); err != nil {
		return nil, err
	}
	if _, err := lifecycle.Next(cert.Status, lifecycle.EventEdit); err != nil {
		return nil, err
	}
	fields, err := editFields(form)
	if err != nil {
		return nil, err
	}

	var staged *binding.Staged
	if file != nil {
		if staged, err = s.binder.Stage(ctx, "certificates", *file, s.allow); err != nil {
			return nil, err
		}
	}

	var oldRef string
	err = s.binder.Within(ctx, s.certs.DB(), func(tx *gorm.DB) error {
		cur, err := s.certs.FindForUpdateTx(tx, id)
		if err != nil {
			return notFound(err, "certificate not found")
		}
		if err := policy.Authorize(c, policy.EditCertificate, policy.Certificate(cur.UserID), nil); err != nil {
			return err
		}
		to, err := lifecycle.Next(cur.Status, lifecycle.EventEdit)
		if err != nil {
			return err
		}
		fields["status"] = to

		if staged != nil {
			up, err := s.uploads.FindByCertificateTx(tx, id)
			if err != nil {
				return err
			}
			oldRef = up.BlobRef
			if err := s.uploads.ReplaceBlobTx(tx, up.ID, staged.Filename, staged.Ref, staged.ContentType, staged.Size); err != nil {
				return err
			}
			fields["filename"] = staged.Filename
		}

		n, err := s.certs.UpdateTx(tx, id, cur.Status, fields)
		if err != nil {
			return err
		}
		if n == 0 {
			return apierror.InvalidState("certificate was modified concurrently; reload and retry")
		}
		return nil
	}, staged)
	if err != nil {
		return nil, err
	}

	s.binder.Release(ctx, oldRef)
	log.Info().Str("certificate_id", id.String()).Msg("certificate edited")
	return s.Get(ctx, c, id)
}

// ── Review ───────────────────────────────────────────────────────────────────

func (s *certificateService) Review(ctx context.Context, c identity.Claim, id uuid.UUID, req dto.StatusUpdateRequest) (*dto.CertificateResponse, error) {
	ev, err := lifecycle.ParseDecision(req.Status)
	if err != nil {
		return nil, err
	}

	var (
		cert  *model.Certificate
		owner *model.User
		to    lifecycle.Status
	)
	err = runTx(ctx, s.certs.DB(), func(tx *gorm.DB) error {
		gate := s.gate.WithTx(tx)
		cur, err := s.certs.FindForUpdateTx(tx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return gate.Authorize(ctx, c, policy.ReviewCertificate, nil)
			}
			return err
		}
		if err := gate.Authorize(ctx, c, policy.ReviewCertificate, policy.Certificate(cur.UserID)); err != nil {
			return err
		}
		if to, err = lifecycle.Next(cur.Status, ev); err != nil {
			return err
		}
		n, err := s.certs.UpdateTx(tx, id, cur.Status, map[string]any{"status": to})
		if err != nil {
			return err
		}
		if n == 0 {
			return apierror.InvalidState("certificate was reviewed concurrently")
		}
		cert = cur
		owner, err = s.users.WithTx(tx).FindByID(ctx, cur.UserID)
		return err
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("certificate_id", id.String()).
		Str("reviewer_id", c.UserID.String()).
		Str("status", string(to)).
		Msg("certificate reviewed")
	s.notifier.CertificateReviewed(recipient(owner), cert.Title, to)

	cert.Status = to
	cert.Owner = owner
	resp := toCertificateResponse(cert)
	return &resp, nil
}

// ── Delete ───────────────────────────────────────────────────────────────────
// Rows go first; the blob is removed after commit. A failed blob delete only
// leaves an orphan for the sweeper.

func (s *certificateService) Delete(ctx context.Context, c identity.Claim, id uuid.UUID) error {
	var blobRef string
	err := runTx(ctx, s.certs.DB(), func(tx *gorm.DB) error {
		cur, err := s.certs.FindForUpdateTx(tx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return policy.Authorize(c, policy.DeleteCertificate, nil, nil)
			}
			return err
		}
		if err := policy.Authorize(c, policy.DeleteCertificate, policy.Certificate(cur.UserID), nil); err != nil {
			return err
		}
		if _, err := lifecycle.Next(cur.Status, lifecycle.EventDelete); err != nil {
			return err
		}

		up, err := s.uploads.FindByCertificateTx(tx, id)
		switch {
		case err == nil:
			blobRef = up.BlobRef
			if err := s.uploads.DeleteTx(tx, up.ID); err != nil {
				return err
			}
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}

		n, err := s.certs.DeleteTx(tx, id, cur.Status)
		if err != nil {
			return err
		}
		if n == 0 {
			return apierror.InvalidState("certificate was modified concurrently")
		}
		return nil
	})
	if err != nil {
		return err
	}

	log.Info().Str("certificate_id", id.String()).Str("by", c.UserID.String()).Msg("certificate deleted")
	s.binder.Release(ctx, blobRef)
	return nil
}

// ── Files ────────────────────────────────────────────────────────────────────

func (s *certificateService) OpenFile(ctx context.Context, c identity.Claim, id uuid.UUID) (*FileContent, error) {
	cert, err := s.load(ctx, c, id)
	if err != nil {
		return nil, err
	}
	if cert.Upload == nil {
		return nil, apierror.NotFound("file not found")
	}
	return openBlob(ctx, s.binder.Store(), cert.Upload)
}

func openBlob(ctx context.Context, store storage.BlobStore, up *model.Upload) (*FileContent, error) {
	body, err := store.Get(ctx, up.BlobRef)
	if err != nil {
		if errors.Is(err, storage.ErrBlobNotFound) {
			return nil, apierror.NotFound("file not found")
		}
		return nil, apierror.Storage("failed to read file", err)
	}
	ct := up.ContentType
	if ct == "" {
		ct = storage.ContentType(up.Filename)
	}
	return &FileContent{Filename: up.Filename, ContentType: ct, Size: up.Size, Body: body}, nil
}

// ── Export ───────────────────────────────────────────────────────────────────

func (s *certificateService) Export(ctx context.Context, c identity.Claim, w io.Writer) error {
	if !c.Valid() {
		return apierror.Unauthorized("missing or invalid identity")
	}
	heading := "My Certificates"
	owners := []uuid.UUID{c.UserID}
	if c.Role.IsReviewer() {
		owners = s.gate.Scope(ctx, c)
		heading = "Team Certificates"
		if c.Role == identity.RoleAdmin {
			heading = "All Certificates"
		}
	}
	certs, err := s.certs.List(ctx, repository.CertificateFilter{OwnerIDs: owners})
	if err != nil {
		return err
	}
	return infra.RenderCertificateRegister(w, heading, certs, s.now())
}

// ── Form parsing ─────────────────────────────────────────────────────────────

func recipient(u *model.User) notification.Recipient {
	return notification.Recipient{Name: u.Name, Email: u.Email}
}

func parseDate(field, s string, errs map[string]string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		errs[field] = "must be a date in YYYY-MM-DD format"
		return nil
	}
	return &t
}

func parseValue(s string, errs map[string]string) decimal.NullDecimal {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.NullDecimal{}
	}
	d, err := decimal.NewFromString(s)
	if err != nil || d.IsNegative() {
		errs["value"] = "must be a non-negative number"
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: d.Round(2), Valid: true}
}

func certificateFromForm(f dto.CertificateForm) (*model.Certificate, error) {
	errs := map[string]string{}
	cert := &model.Certificate{
		Title:              strings.TrimSpace(f.Title),
		Client:             strings.TrimSpace(f.Client),
		NatureOfProject:    f.NatureOfProject,
		SubNatureOfProject: f.SubNatureOfProject,
		StartDate:          parseDate("start_date", f.StartDate, errs),
		GoLiveDate:         parseDate("go_live_date", f.GoLiveDate, errs),
		EndDate:            parseDate("end_date", f.EndDate, errs),
		WarrantyYears:      f.WarrantyYears,
		OMYears:            f.OMYears,
		Value:              parseValue(f.Value, errs),
		ProjectStatus:      f.ProjectStatus,
		TCILContactPerson:  f.TCILContactPerson,
		Technologies:       f.Technologies,
		ConcernedHOD:       f.ConcernedHOD,
		ClientContactName:  f.ClientContactName,
		ClientContactPhone: f.ClientContactPhone,
		ClientContactEmail: f.ClientContactEmail,
	}
	if cert.Title == "" {
		errs["title"] = "required"
	}
	if cert.Client == "" {
		errs["client"] = "required"
	}
	if len(errs) > 0 {
		return nil, apierror.FieldErrors(errs)
	}
	return cert, nil
}

// editFields maps the present form fields to column updates.
func editFields(f dto.CertificateEditForm) (map[string]any, error) {
	errs := map[string]string{}
	fields := map[string]any{}

	text := func(col string, v *string, required bool) {
		if v == nil {
			return
		}
		s := strings.TrimSpace(*v)
		if required && s == "" {
			errs[col] = "cannot be empty"
			return
		}
		fields[col] = s
	}
	date := func(col string, v *string) {
		if v == nil {
			return
		}
		fields[col] = parseDate(col, *v, errs)
	}

	text("title", f.Title, true)
	text("client", f.Client, true)
	text("nature_of_project", f.NatureOfProject, false)
	text("sub_nature_of_project", f.SubNatureOfProject, false)
	date("start_date", f.StartDate)
	date("go_live_date", f.GoLiveDate)
	date("end_date", f.EndDate)
	text("warranty_years", f.WarrantyYears, false)
	text("om_years", f.OMYears, false)
	if f.Value != nil {
		fields["value"] = parseValue(*f.Value, errs)
	}
	text("project_status", f.ProjectStatus, false)
	text("tcil_contact_person", f.TCILContactPerson, false)
	text("technologies", f.Technologies, false)
	text("concerned_hod", f.ConcernedHOD, false)
	text("client_contact_name", f.ClientContactName, false)
	text("client_contact_phone", f.ClientContactPhone, false)
	text("client_contact_email", f.ClientContactEmail, false)

	if len(errs) > 0 {
		return nil, apierror.FieldErrors(errs)
	}
	return fields, nil
}
