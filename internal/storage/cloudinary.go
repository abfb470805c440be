package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// CloudinaryStore uploads blobs as "raw" Cloudinary assets. References are
// the secure delivery URLs, which is what the legacy rows already hold.
type CloudinaryStore struct {
	cld    *cloudinary.Cloudinary
	folder string
	http   *http.Client
}

func NewCloudinaryStore(url, folder string) (*CloudinaryStore, error) {
	if url == "" {
		return nil, fmt.Errorf("cloudinary storage requires CLOUDINARY_URL to be set")
	}
	cld, err := cloudinary.NewFromURL(url)
	if err != nil {
		return nil, fmt.Errorf("cloudinary: %w", err)
	}
	return &CloudinaryStore{cld: cld, folder: folder, http: &http.Client{Timeout: 30 * time.Second}}, nil
}

func (c *CloudinaryStore) Put(ctx context.Context, key string, r io.Reader, _ int64) (string, error) {
	res, err := c.cld.Upload.Upload(ctx, r, uploader.UploadParams{
		PublicID:     key,
		Folder:       c.folder,
		ResourceType: "raw",
	})
	if err != nil {
		return "", fmt.Errorf("cloudinary upload: %w", err)
	}
	if res.Error.Message != "" {
		return "", fmt.Errorf("cloudinary upload: %s", res.Error.Message)
	}
	return res.SecureURL, nil
}

func (c *CloudinaryStore) Get(ctx context.Context, ref string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cloudinary fetch: %w", err)
	}
	switch {
	case resp.StatusCode == http.StatusNotFound:
		resp.Body.Close()
		return nil, ErrBlobNotFound
	case resp.StatusCode >= 300:
		resp.Body.Close()
		return nil, fmt.Errorf("cloudinary fetch: status %d", resp.StatusCode)
	}
	return resp.Body, nil
}

func (c *CloudinaryStore) Delete(ctx context.Context, ref string) error {
	publicID, err := PublicIDFromURL(ref)
	if err != nil {
		return err
	}
	res, err := c.cld.Upload.Destroy(ctx, uploader.DestroyParams{PublicID: publicID, ResourceType: "raw"})
	if err != nil {
		return fmt.Errorf("cloudinary destroy: %w", err)
	}
	if res.Error.Message != "" {
		return fmt.Errorf("cloudinary destroy: %s", res.Error.Message)
	}
	// "not found" means the asset is already gone.
	if res.Result != "ok" && res.Result != "not found" {
		return fmt.Errorf("cloudinary destroy: %s", res.Result)
	}
	return nil
}

var versionSegment = regexp.MustCompile(`^v\d+$`)

// PublicIDFromURL extracts the public id from a delivery URL such as
// https://res.cloudinary.com/demo/raw/upload/v1712/certs/abc_report.pdf.
// Raw assets keep their extension in the public id.
func PublicIDFromURL(ref string) (string, error) {
	_, rest, ok := strings.Cut(ref, "/upload/")
	if !ok || rest == "" {
		return "", fmt.Errorf("not a cloudinary delivery url: %q", ref)
	}
	parts := strings.Split(rest, "/")
	if versionSegment.MatchString(parts[0]) {
		parts = parts[1:]
	}
	if len(parts) == 0 || parts[0] == "" {
		return "", fmt.Errorf("not a cloudinary delivery url: %q", ref)
	}
	return strings.Join(parts, "/"), nil
}
