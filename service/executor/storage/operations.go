package storage

import (
	"bytes"
	"context"
	"fmt"
	"path"

	"github.com/viant/afs/file"
	"github.com/viant/afs/option"
	"github.com/viant/afs/storage"
	"github.com/viant/afs/url"
)

// ListInput defines parameters for listing assets
type ListInput struct {
	URL       string `json:"url"`
	Recursive bool   `json:"recursive,omitempty"`
}

// ListOutput contains results from a list operation
type ListOutput struct {
	Assets []*Asset `json:"assets"`
}

// List lists files and directories at the input URL. The listed directory
// itself is omitted.
func (e *Executor) List(ctx context.Context, input *ListInput) (*ListOutput, error) {
	if input.URL == "" {
		return nil, fmt.Errorf("storage: url is required")
	}
	var options []storage.Option
	if input.Recursive {
		options = append(options, option.NewRecursive(true))
	}
	objects, err := e.fs.List(ctx, input.URL, options...)
	if err != nil {
		return nil, fmt.Errorf("storage: list %s: %w", input.URL, err)
	}
	output := &ListOutput{Assets: make([]*Asset, 0, len(objects))}
	for i, object := range objects {
		if i == 0 && object.IsDir() {
			continue
		}
		output.Assets = append(output.Assets, &Asset{
			URL:         object.URL(),
			Name:        object.Name(),
			IsDir:       object.IsDir(),
			Size:        object.Size(),
			ModTime:     object.ModTime(),
			ContentType: ContentType(object.Name()),
		})
	}
	return output, nil
}

// DownloadInput defines parameters for downloading assets
type DownloadInput struct {
	Assets []string `json:"assets"`
	Dest   string   `json:"dest,omitempty"`
}

// DownloadOutput contains results from a download operation
type DownloadOutput struct {
	Assets []*Asset `json:"assets"`
}

// Download reads assets and copies them to Dest when set.
func (e *Executor) Download(ctx context.Context, input *DownloadInput) (*DownloadOutput, error) {
	if len(input.Assets) == 0 {
		return nil, fmt.Errorf("storage: at least one asset is required")
	}
	output := &DownloadOutput{Assets: make([]*Asset, 0, len(input.Assets))}
	for _, location := range input.Assets {
		object, err := e.fs.Object(ctx, location)
		if err != nil {
			return nil, fmt.Errorf("storage: %s: %w", location, err)
		}
		if object.IsDir() {
			return nil, fmt.Errorf("storage: cannot download directory %s", location)
		}
		data, err := e.fs.DownloadWithURL(ctx, location)
		if err != nil {
			return nil, fmt.Errorf("storage: download %s: %w", location, err)
		}
		if input.Dest != "" {
			dest := url.Join(input.Dest, path.Base(url.Path(location)))
			if err := e.fs.Upload(ctx, dest, file.DefaultFileOsMode, bytes.NewReader(data)); err != nil {
				return nil, fmt.Errorf("storage: copy %s: %w", location, err)
			}
		}
		output.Assets = append(output.Assets, &Asset{
			URL:         location,
			Name:        object.Name(),
			Size:        object.Size(),
			ModTime:     object.ModTime(),
			Data:        data,
			ContentType: ContentType(object.Name()),
		})
	}
	return output, nil
}

// UploadInput defines parameters for uploading assets
type UploadInput struct {
	Assets []*Asset `json:"assets"`
}

// UploadOutput contains results from an upload operation
type UploadOutput struct {
	Assets []*Asset `json:"assets"`
}

// Upload writes every asset to its URL.
func (e *Executor) Upload(ctx context.Context, input *UploadInput) (*UploadOutput, error) {
	if len(input.Assets) == 0 {
		return nil, fmt.Errorf("storage: at least one asset is required")
	}
	output := &UploadOutput{Assets: make([]*Asset, 0, len(input.Assets))}
	for _, asset := range input.Assets {
		if asset.URL == "" {
			return nil, fmt.Errorf("storage: asset url is required")
		}
		payload := asset.payload()
		if err := e.fs.Upload(ctx, asset.URL, file.DefaultFileOsMode, bytes.NewReader(payload)); err != nil {
			return nil, fmt.Errorf("storage: upload %s: %w", asset.URL, err)
		}
		output.Assets = append(output.Assets, &Asset{
			URL:         asset.URL,
			Name:        path.Base(url.Path(asset.URL)),
			Size:        int64(len(payload)),
			ContentType: ContentType(asset.URL),
		})
	}
	return output, nil
}
