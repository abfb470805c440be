package binding

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ishpreet160/CertFlow/internal/apierror"
	"github.com/ishpreet160/CertFlow/internal/identity"
	"github.com/ishpreet160/CertFlow/internal/model"
	"github.com/ishpreet160/CertFlow/internal/repository"
	"github.com/ishpreet160/CertFlow/internal/storage"
	"github.com/ishpreet160/CertFlow/internal/testutil"
)

type orphanSet struct {
	mu   sync.Mutex
	refs []string
}

func (o *orphanSet) RecordOrphan(_ context.Context, ref string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.refs = append(o.refs, ref)
	return nil
}

var allowPDF = storage.NewAllowlist([]string{"pdf"}, 1<<20)

func pdf(name string) File {
	body := "%PDF-1.4"
	return File{Name: name, Size: int64(len(body)), Reader: strings.NewReader(body)}
}

func countUploads(t *testing.T, db *gorm.DB) int64 {
	var n int64
	require.NoError(t, db.Model(&model.Upload{}).Count(&n).Error)
	return n
}

func TestBindAndAttachReference(t *testing.T) {
	db := testutil.NewDB(t)
	store := storage.NewMemoryStore()
	b := New(store, repository.NewUploadRepository(db), nil)
	refs := repository.NewReferenceRepository(db)
	ctx := context.Background()
	mgr := testutil.SeedUser(t, db, "M", identity.RoleManager, nil)

	staged, err := b.Stage(ctx, "tcil", pdf("iso 9001.pdf"), allowPDF)
	require.NoError(t, err)
	assert.Equal(t, "iso_9001.pdf", staged.Filename)
	assert.Equal(t, "application/pdf", staged.ContentType)

	var rc *model.ReferenceCertificate
	err = b.Within(ctx, db, func(tx *gorm.DB) error {
		up, err := b.BindUploadTx(tx, staged, mgr.ID)
		if err != nil {
			return err
		}
		rc = &model.ReferenceCertificate{Name: "ISO", ValidFrom: time.Now(), ValidTill: time.Now(), CreatedBy: mgr.ID}
		if err := refs.CreateTx(tx, rc); err != nil {
			return err
		}
		return b.AttachToReferenceTx(tx, up.ID, rc.ID)
	}, staged)
	require.NoError(t, err)

	got, err := refs.FindByID(ctx, rc.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Upload)
	assert.Equal(t, staged.Ref, got.Upload.BlobRef)
	assert.True(t, store.Has(staged.Ref))
}

func TestWithin_FailureRollsBackAndDiscardsBlob(t *testing.T) {
	db := testutil.NewDB(t)
	store := storage.NewMemoryStore()
	b := New(store, repository.NewUploadRepository(db), nil)
	ctx := context.Background()
	owner := testutil.SeedUser(t, db, "E", identity.RoleEmployee, nil)

	staged, err := b.Stage(ctx, "certificates", pdf("c.pdf"), allowPDF)
	require.NoError(t, err)
	require.Equal(t, 1, store.Len())

	boom := errors.New("insert certificate failed")
	err = b.Within(ctx, db, func(tx *gorm.DB) error {
		if _, err := b.BindUploadTx(tx, staged, owner.ID); err != nil {
			return err
		}
		return boom
	}, staged)
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, countUploads(t, db))
	assert.Zero(t, store.Len())
}

func TestStage_RejectsDisallowedAndReportsStorageErrors(t *testing.T) {
	db := testutil.NewDB(t)
	faulty := testutil.NewFaultyStore()
	b := New(faulty, repository.NewUploadRepository(db), nil)
	ctx := context.Background()

	_, err := b.Stage(ctx, "certificates", pdf("virus.exe"), allowPDF)
	assert.True(t, errors.Is(err, apierror.ErrValidation))

	faulty.PutErr = errors.New("disk full")
	_, err = b.Stage(ctx, "certificates", pdf("c.pdf"), allowPDF)
	assert.True(t, errors.Is(err, apierror.ErrStorage))
	assert.Zero(t, faulty.Len())
}

func TestAttach_TwiceFails(t *testing.T) {
	db := testutil.NewDB(t)
	b := New(storage.NewMemoryStore(), repository.NewUploadRepository(db), nil)
	owner := testutil.SeedUser(t, db, "E", identity.RoleEmployee, nil)
	c := testutil.SeedCertificate(t, db, owner, "t", "pending")

	err := db.Transaction(func(tx *gorm.DB) error {
		return b.AttachToCertificateTx(tx, c.Upload.ID, c.ID)
	})
	assert.Error(t, err)
}

func TestRelease_RecordsOrphanOnFailure(t *testing.T) {
	faulty := testutil.NewFaultyStore()
	orphans := &orphanSet{}
	b := New(faulty, nil, orphans)

	b.Release(context.Background(), "certificates/ok.pdf")
	assert.Empty(t, orphans.refs)

	faulty.SetDeleteErr(errors.New("timeout"))
	b.Release(context.Background(), "certificates/stuck.pdf")
	assert.Equal(t, []string{"certificates/stuck.pdf"}, orphans.refs)

	b.Release(context.Background(), "")
	assert.Len(t, faulty.Deleted, 2)
}
