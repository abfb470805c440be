package handler

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/ishpreet160/CertFlow/internal/apierror"
	"github.com/ishpreet160/CertFlow/internal/binding"
	"github.com/ishpreet160/CertFlow/internal/middleware"
	"github.com/ishpreet160/CertFlow/internal/service"
)

var validate = validator.New()

func init() {
	// Report json/form names instead of Go field names.
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, key := range []string{"json", "form"} {
			if name := strings.SplitN(f.Tag.Get(key), ",", 2)[0]; name != "" && name != "-" {
				return name
			}
		}
		return f.Name
	})
}

// bindAndValidate binds JSON body and runs go-playground/validator tags.
// Returns false and writes the error response if validation fails;
// the caller should return immediately without writing another response.
func bindAndValidate(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid JSON: "+err.Error()))
		return false
	}
	return runValidator(c, req)
}

// bindFormAndValidate is bindAndValidate for multipart and urlencoded forms.
func bindFormAndValidate(c *gin.Context, req any) bool {
	if err := c.ShouldBind(req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid form: "+err.Error()))
		return false
	}
	return runValidator(c, req)
}

func runValidator(c *gin.Context, req any) bool {
	err := validate.Struct(req)
	if err == nil {
		return true
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		respondError(c, err)
		return false
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = fe.Tag()
	}
	c.JSON(http.StatusUnprocessableEntity, apierror.NewValidation(fields))
	return false
}

// respondError writes the envelope for err. Server-side failures are logged
// with their cause.
func respondError(c *gin.Context, err error) {
	status := apierror.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		log.Error().
			Err(err).
			Str("request_id", c.GetString(middleware.RequestIDKey)).
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Msg("request failed")
	}
	c.AbortWithStatusJSON(status, apierror.Body(err))
}

// paramID parses the :id path parameter.
func paramID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid id"))
		return uuid.Nil, false
	}
	return id, true
}

// uploadedFile opens the multipart file under field. When optional is set a
// missing file yields (nil, nil). The caller closes the returned closer.
func uploadedFile(c *gin.Context, field string, optional bool) (*binding.File, io.Closer, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		if optional && errors.Is(err, http.ErrMissingFile) {
			return nil, nil, nil
		}
		return nil, nil, apierror.FieldErrors(map[string]string{field: "required"})
	}
	return openHeader(fh)
}

func openHeader(fh *multipart.FileHeader) (*binding.File, io.Closer, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, nil, fmt.Errorf("open upload: %w", err)
	}
	return &binding.File{Name: fh.Filename, Size: fh.Size, Reader: f}, f, nil
}

// serveFile streams an opened blob. inline selects preview over download.
func serveFile(c *gin.Context, f *service.FileContent, inline bool) {
	defer f.Body.Close()
	disposition := "attachment"
	if inline {
		disposition = "inline"
	}
	c.Header("Content-Disposition", fmt.Sprintf("%s; filename=%q", disposition, f.Filename))
	c.Header("X-Content-Type-Options", "nosniff")
	size := f.Size
	if size <= 0 {
		size = -1
	}
	c.DataFromReader(http.StatusOK, size, f.ContentType, f.Body, nil)
}
