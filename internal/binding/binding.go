// Package binding ties stored blobs to Upload rows and their owning entity.
//
// Blobs are written before the database transaction (Stage). The Upload row
// is created and attached inside it (BindUploadTx, Attach*Tx). If the
// transaction fails the staged blob is removed again (Within/Discard). Blobs
// that outlive their rows after a delete are released best-effort (Release).
package binding

import (
	"context"
	"errors"
	"io"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/ishpreet160/CertFlow/internal/apierror"
	"github.com/ishpreet160/CertFlow/internal/model"
	"github.com/ishpreet160/CertFlow/internal/repository"
	"github.com/ishpreet160/CertFlow/internal/storage"
)

// File is an incoming upload as received from the client.
type File struct {
	Name   string
	Size   int64
	Reader io.Reader
}

// Staged is a blob that has been written but not yet bound to a row.
type Staged struct {
	Ref         string
	Filename    string
	ContentType string
	Size        int64
}

// OrphanRecorder remembers blobs whose deletion failed so they can be swept later.
type OrphanRecorder interface {
	RecordOrphan(ctx context.Context, ref string) error
}

type Binder struct {
	store   storage.BlobStore
	uploads repository.UploadRepository
	orphans OrphanRecorder
}

// New returns a Binder. orphans may be nil.
func New(store storage.BlobStore, uploads repository.UploadRepository, orphans OrphanRecorder) *Binder {
	return &Binder{store: store, uploads: uploads, orphans: orphans}
}

// Store exposes the blob store for reads.
func (b *Binder) Store() storage.BlobStore { return b.store }

// Stage checks f against allow and writes it under prefix.
func (b *Binder) Stage(ctx context.Context, prefix string, f File, allow *storage.Allowlist) (*Staged, error) {
	if err := allow.Check(f.Name, f.Size); err != nil {
		return nil, err
	}
	name := storage.SecureFilename(f.Name)
	ref, err := b.store.Put(ctx, storage.NewKey(prefix, name), f.Reader, f.Size)
	if err != nil {
		return nil, apierror.Storage("failed to store file", err)
	}
	return &Staged{Ref: ref, Filename: name, ContentType: storage.ContentType(name), Size: f.Size}, nil
}

// BindUploadTx creates the unattached Upload row for a staged blob.
func (b *Binder) BindUploadTx(tx *gorm.DB, s *Staged, ownerID uuid.UUID) (*model.Upload, error) {
	up := &model.Upload{
		Filename:    s.Filename,
		BlobRef:     s.Ref,
		ContentType: s.ContentType,
		Size:        s.Size,
		UserID:      ownerID,
	}
	if err := b.uploads.CreateTx(tx, up); err != nil {
		return nil, err
	}
	return up, nil
}

func (b *Binder) AttachToCertificateTx(tx *gorm.DB, uploadID, certificateID uuid.UUID) error {
	n, err := b.uploads.AttachCertificateTx(tx, uploadID, certificateID)
	return attachResult(n, err)
}

func (b *Binder) AttachToReferenceTx(tx *gorm.DB, uploadID, referenceID uuid.UUID) error {
	n, err := b.uploads.AttachReferenceTx(tx, uploadID, referenceID)
	return attachResult(n, err)
}

var errAlreadyAttached = errors.New("upload is missing or already attached")

func attachResult(n int64, err error) error {
	if err != nil {
		return err
	}
	if n == 0 {
		return errAlreadyAttached
	}
	return nil
}

// Within runs fn in a transaction on db. When fn or the commit fails, every
// staged blob is discarded.
func (b *Binder) Within(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error, staged ...*Staged) error {
	err := db.WithContext(ctx).Transaction(fn)
	if err != nil {
		for _, s := range staged {
			if s != nil {
				b.Discard(ctx, s)
			}
		}
	}
	return err
}

// Discard removes a staged blob whose transaction did not commit.
func (b *Binder) Discard(ctx context.Context, s *Staged) {
	b.Release(ctx, s.Ref)
}

// Release deletes a blob that no row references any more. Failures are
// logged and recorded for the orphan sweeper; they never reach the caller.
func (b *Binder) Release(ctx context.Context, ref string) {
	if ref == "" {
		return
	}
	ctx = context.WithoutCancel(ctx)
	err := b.store.Delete(ctx, ref)
	if err == nil {
		return
	}
	log.Error().Err(apierror.Storage("blob delete failed", err)).Str("blob_ref", ref).Msg("binding: release")
	if b.orphans == nil {
		return
	}
	if rerr := b.orphans.RecordOrphan(ctx, ref); rerr != nil {
		log.Error().Err(rerr).Str("blob_ref", ref).Msg("binding: record orphan")
	}
}
