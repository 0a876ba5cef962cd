package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// CloudinaryStore uploads chat attachments and avatars to Cloudinary. The
// public id is the caller-chosen name; re-using a name overwrites the blob.
type CloudinaryStore struct {
	cld    *cloudinary.Cloudinary
	folder string
}

func NewCloudinaryStore(cloudinaryURL, folder string) (*CloudinaryStore, error) {
	cld, err := cloudinary.NewFromURL(cloudinaryURL)
	if err != nil {
		return nil, fmt.Errorf("init cloudinary: %w", err)
	}
	return &CloudinaryStore{cld: cld, folder: folder}, nil
}

func (s *CloudinaryStore) Upload(ctx context.Context, name string, data []byte) (string, error) {
	resp, err := s.cld.Upload.Upload(ctx, bytes.NewReader(data), uploader.UploadParams{
		PublicID:  name,
		Folder:    s.folder,
		Overwrite: api.Bool(true),
	})
	if err != nil {
		return "", fmt.Errorf("upload %q: %w", name, err)
	}
	if resp.Error.Message != "" {
		return "", fmt.Errorf("upload %q rejected: %s", name, resp.Error.Message)
	}
	if resp.SecureURL == "" {
		return "", errors.New("upload returned no URL")
	}
	return resp.SecureURL, nil
}
