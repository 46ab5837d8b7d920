// Package storage provides an executor for file operations over viant/afs.
// Any afs scheme (file://, mem://, s3://, gs://) can be addressed.
package storage

import (
	"context"
	"strings"

	"github.com/viant/afs"

	"github.com/viant/taskgate/model/task"
	"github.com/viant/taskgate/service/executor"
)

// Module is the registry name of the storage executor.
const Module = "storage"

// Executor dispatches list, download and upload actions.
type Executor struct {
	fs afs.Service
}

// New creates a storage executor; nil uses afs.New().
func New(fs afs.Service) *Executor {
	if fs == nil {
		fs = afs.New()
	}
	return &Executor{fs: fs}
}

// Execute implements executor.Executor.
func (e *Executor) Execute(ctx context.Context, t *task.Task) (interface{}, error) {
	switch strings.ToLower(t.Action) {
	case "list":
		input := &ListInput{}
		if err := executor.DecodeData(t, input); err != nil {
			return nil, err
		}
		return e.List(ctx, input)
	case "download":
		input := &DownloadInput{}
		if err := executor.DecodeData(t, input); err != nil {
			return nil, err
		}
		return e.Download(ctx, input)
	case "upload":
		input := &UploadInput{}
		if err := executor.DecodeData(t, input); err != nil {
			return nil, err
		}
		return e.Upload(ctx, input)
	}
	return nil, executor.UnknownAction(Module, t.Action)
}
