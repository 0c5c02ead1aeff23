package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/admin"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

type Cloudinary struct {
	cld *cloudinary.Cloudinary
}

// NewCloudinary builds the client from a CLOUDINARY_URL, or from the individual
// credentials when the URL is empty.
func NewCloudinary(url, cloudName, apiKey, apiSecret string) (*Cloudinary, error) {
	var (
		cld *cloudinary.Cloudinary
		err error
	)
	if url != "" {
		cld, err = cloudinary.NewFromURL(url)
	} else {
		cld, err = cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	}
	if err != nil {
		return nil, fmt.Errorf("cloudinary client: %w", err)
	}
	return &Cloudinary{cld: cld}, nil
}

func (s *Cloudinary) Upload(ctx context.Context, in UploadInput) (*Object, error) {
	res, err := s.cld.Upload.Upload(ctx, in.Body, uploader.UploadParams{
		Folder:       in.Folder,
		ResourceType: in.ResourceType,
		DisplayName:  in.DisplayName,
	})
	if err != nil {
		return nil, err
	}
	if res.Error.Message != "" {
		return nil, errors.New(res.Error.Message)
	}

	format := res.Format
	if format == "" {
		// raw uploads carry no format, the extension is the best we have
		format = Extension(in.Filename)
	}
	return &Object{
		PublicID:     res.PublicID,
		URL:          res.SecureURL,
		Format:       format,
		ResourceType: res.ResourceType,
		Bytes:        int64(res.Bytes),
		Width:        res.Width,
		Height:       res.Height,
		CreatedAt:    res.CreatedAt,
	}, nil
}

func (s *Cloudinary) Destroy(ctx context.Context, publicID, resourceType string) error {
	res, err := s.cld.Upload.Destroy(ctx, uploader.DestroyParams{
		PublicID:     publicID,
		ResourceType: resourceType,
	})
	if err != nil {
		return err
	}
	if res.Error.Message != "" {
		return errors.New(res.Error.Message)
	}
	switch res.Result {
	case "ok":
		return nil
	case "not found":
		return ErrNotFound
	}
	return fmt.Errorf("destroy %s: %s", publicID, res.Result)
}

// List lists one resource type, or all of them when in.ResourceType is empty.
// The admin API scopes every listing to a single asset type.
func (s *Cloudinary) List(ctx context.Context, in ListInput) (*Listing, error) {
	if in.ResourceType == "" {
		return ListEachType(ctx, s.listType, in)
	}
	return s.listType(ctx, in)
}

func (s *Cloudinary) listType(ctx context.Context, in ListInput) (*Listing, error) {
	res, err := s.cld.Admin.Assets(ctx, admin.AssetsParams{
		AssetType:    api.AssetType(in.ResourceType),
		DeliveryType: string(api.Upload),
		Prefix:       in.Prefix,
		MaxResults:   in.MaxResults,
		NextCursor:   in.Cursor,
	})
	if err != nil {
		return nil, err
	}
	if res.Error.Message != "" {
		return nil, errors.New(res.Error.Message)
	}

	listing := &Listing{NextCursor: res.NextCursor, Objects: make([]Object, 0, len(res.Assets))}
	for _, a := range res.Assets {
		listing.Objects = append(listing.Objects, Object{
			PublicID:     a.PublicID,
			URL:          a.SecureURL,
			Format:       a.Format,
			ResourceType: a.AssetType,
			Bytes:        int64(a.Bytes),
			Width:        a.Width,
			Height:       a.Height,
			CreatedAt:    a.CreatedAt,
		})
	}
	listing.Total = len(listing.Objects)
	return listing, nil
}
