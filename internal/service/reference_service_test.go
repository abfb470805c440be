package service

import (
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ishpreet160/CertFlow/internal/apierror"
	"github.com/ishpreet160/CertFlow/internal/dto"
	"github.com/ishpreet160/CertFlow/internal/identity"
	"github.com/ishpreet160/CertFlow/internal/model"
)

func TestParseReferenceDate(t *testing.T) {
	a, ok := ParseReferenceDate("2024-03-01")
	require.True(t, ok)
	b, ok := ParseReferenceDate("01-03-2024")
	require.True(t, ok)
	assert.True(t, a.Equal(b))

	for _, bad := range []string{"", "2024/03/01", "31-02-2024", "March 1"} {
		_, ok := ParseReferenceDate(bad)
		assert.False(t, ok, bad)
	}
}

func TestReference_CreateListDelete(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, mc := h.seed(t, "Mona Manager", identity.RoleManager, nil)
	_, ec := h.seed(t, "Esha Employee", identity.RoleEmployee, nil)

	created, err := h.refS.Create(ctx, mc, dto.ReferenceForm{
		Name: "ISO 27001", ValidFrom: "01-01-2024", ValidTill: "2026-12-31",
	}, pdfFile("iso.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "2024-01-01", created.ValidFrom)
	assert.Equal(t, "iso.pdf", created.Filename)

	list, err := h.refS.List(ctx, ec)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "ISO 27001", list[0].Name)

	id := uuid.MustParse(created.ID)
	f, err := h.refS.OpenFile(ctx, ec, id)
	require.NoError(t, err)
	body, _ := io.ReadAll(f.Body)
	_ = f.Body.Close()
	assert.Equal(t, "%PDF-1.4 test", string(body))

	assert.ErrorIs(t, h.refS.Delete(ctx, ec, id), apierror.ErrForbidden)
	require.NoError(t, h.refS.Delete(ctx, mc, id))
	assert.Zero(t, h.count(t, &model.ReferenceCertificate{}))
	assert.Zero(t, h.count(t, &model.Upload{}))
	assert.Zero(t, h.store.Len())

	assert.ErrorIs(t, h.refS.Delete(ctx, mc, id), apierror.ErrNotFound)
	_, err = h.refS.OpenFile(ctx, ec, id)
	assert.ErrorIs(t, err, apierror.ErrNotFound)
}

func TestReference_CreateRejects(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, ac := h.seed(t, "Ada Admin", identity.RoleAdmin, nil)
	_, ec := h.seed(t, "Esha Employee", identity.RoleEmployee, nil)

	valid := dto.ReferenceForm{Name: "CMMI", ValidFrom: "2024-01-01", ValidTill: "2025-01-01"}

	_, err := h.refS.Create(ctx, ec, valid, pdfFile("c.pdf"))
	assert.ErrorIs(t, err, apierror.ErrForbidden)

	inverted := valid
	inverted.ValidFrom, inverted.ValidTill = "2025-01-02", "2025-01-01"
	_, err = h.refS.Create(ctx, ac, inverted, pdfFile("c.pdf"))
	assert.ErrorIs(t, err, apierror.ErrValidation)

	garbled := valid
	garbled.ValidTill = "next year"
	_, err = h.refS.Create(ctx, ac, garbled, pdfFile("c.pdf"))
	assert.ErrorIs(t, err, apierror.ErrValidation)

	_, err = h.refS.Create(ctx, ac, valid, pngFile("c.png"))
	assert.ErrorIs(t, err, apierror.ErrValidation)

	assert.Zero(t, h.count(t, &model.ReferenceCertificate{}))
	assert.Zero(t, h.count(t, &model.Upload{}))
	assert.Zero(t, h.store.Len())
}

func TestReference_SameDayWindowIsValid(t *testing.T) {
	h := newHarness(t)
	_, ac := h.seed(t, "Ada Admin", identity.RoleAdmin, nil)

	_, err := h.refS.Create(context.Background(), ac, dto.ReferenceForm{
		Name: "One day", ValidFrom: "2024-05-05", ValidTill: "05-05-2024",
	}, pdfFile("d.pdf"))
	assert.NoError(t, err)
}
