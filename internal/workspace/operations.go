package workspace

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/crowdwave/reactoxide/internal/bus"
	"github.com/crowdwave/reactoxide/internal/commands"
	"github.com/crowdwave/reactoxide/internal/logging"
	"github.com/crowdwave/reactoxide/internal/models"
	"github.com/crowdwave/reactoxide/internal/remote"
	"github.com/crowdwave/reactoxide/pkg/pathutil"
)

// ErrTooLarge is reported when a file exceeds the size limit for opening.
var ErrTooLarge = errors.New("file exceeds maximum size")

// Operations performs the DO_* commands against the remote store and announces the results.
// Each command runs through the task group so bus dispatch never waits on the network.
type Operations struct {
	store   remote.Store
	bus     *bus.Bus
	tasks   *taskGroup
	maxSize int64

	ctx    context.Context
	unsubs []func()
}

func newOperations(store remote.Store, b *bus.Bus, tasks *taskGroup, maxSize int64) *Operations {
	return &Operations{
		store:   store,
		bus:     b,
		tasks:   tasks,
		maxSize: maxSize,
		ctx:     context.Background(),
	}
}

// Attach subscribes the handlers. ctx bounds every remote call.
func (o *Operations) Attach(ctx context.Context) {
	o.ctx = ctx
	o.unsubs = append(o.unsubs,
		bus.Subscribe(o.bus, bus.DoLoadFile, handle(o, "load", o.Load)),
		bus.Subscribe(o.bus, bus.DoSaveFile, handle(o, "save", o.Save)),
		bus.Subscribe(o.bus, bus.DoDeleteFileOrDirectory, handle(o, "delete", o.Delete)),
		bus.Subscribe(o.bus, bus.DoRenameFileOrDirectory, handle(o, "rename", o.Rename)),
		bus.Subscribe(o.bus, bus.DoNewFileCreate, handle(o, "create", o.CreateFile)),
		bus.Subscribe(o.bus, bus.DoNewFolderCreate, handle(o, "mkdir", o.CreateFolder)),
		bus.Subscribe(o.bus, bus.DoUploadFiles, handle(o, "upload", o.Upload)),
	)
}

// Detach unsubscribes the handlers. Commands already running are not interrupted.
func (o *Operations) Detach() {
	for _, unsub := range o.unsubs {
		unsub()
	}
	o.unsubs = nil
}

// handle adapts an operation into a bus handler that runs it on the task group.
func handle[T any](o *Operations, op string, fn func(context.Context, T) error) func(T) {
	return func(v T) {
		ctx := o.ctx
		o.tasks.Go(func() {
			if err := fn(ctx, v); err != nil {
				o.fail(op, targetOf(v), err)
			}
		})
	}
}

func targetOf(v any) string {
	switch v := v.(type) {
	case models.Entry:
		return v.FilePath
	case models.SaveFile:
		return v.FilePath
	case models.Rename:
		return v.Entry.FilePath
	case models.Create:
		return pathutil.Join(v.Entry.TargetDirectory(), v.Name)
	case models.Upload:
		return v.Entry.TargetDirectory()
	}
	return ""
}

// fail reports an operation that did not complete. Nothing is retried and no success
// notification follows. Work cancelled by Close is dropped quietly.
func (o *Operations) fail(op, p string, err error) {
	if errors.Is(err, context.Canceled) {
		logging.Debug("remote operation cancelled", zap.String("op", op), zap.String("path", p))
		return
	}
	if errors.Is(err, ErrTooLarge) {
		logging.Info("file not opened", zap.String("path", p), zap.Error(err))
		bus.Publish(o.bus, bus.OnNotice, models.Notice{Level: models.NoticeWarn, Message: err.Error()})
		return
	}
	logging.Error("remote operation failed", zap.String("op", op), zap.String("path", p), zap.Error(err))
	bus.Publish(o.bus, bus.OnOperationFailed, models.OperationFailed{Op: op, Path: p, Err: err})
	bus.Publish(o.bus, bus.OnNotice, models.Notice{
		Level:   models.NoticeError,
		Message: fmt.Sprintf("%s %s failed: %v", op, p, err),
	})
}

// Load reads a file and emits ON_FILE_LOADED. Files over the size limit are refused
// before any content is fetched.
func (o *Operations) Load(ctx context.Context, e models.Entry) error {
	info, err := o.store.Stat(ctx, e.FilePath)
	if err != nil {
		return err
	}
	if info.IsDir {
		return fmt.Errorf("%s: %w", e.FilePath, remote.ErrIsDirectory)
	}
	if o.maxSize > 0 && info.Size > o.maxSize {
		return fmt.Errorf("file size (%s) exceeds maxFileSize %s: %w",
			humanize.Bytes(uint64(info.Size)), humanize.Bytes(uint64(o.maxSize)), ErrTooLarge)
	}

	data, err := o.store.Read(ctx, e.FilePath)
	if err != nil {
		return err
	}
	bus.Publish(o.bus, bus.OnFileLoaded, models.FileLoaded{Filename: e.FilePath, Content: data})
	return nil
}

// Save writes a buffer back and emits ON_FILE_SAVED.
func (o *Operations) Save(ctx context.Context, s models.SaveFile) error {
	size := int64(len(s.Data))
	if err := o.store.Write(ctx, s.FilePath, strings.NewReader(s.Data), size, nil); err != nil {
		return err
	}
	logging.Info("file saved", zap.String("path", s.FilePath), zap.Int64("bytes", size))
	bus.Publish(o.bus, bus.OnFileSaved, s)
	return nil
}

// Delete removes a file or directory tree.
func (o *Operations) Delete(ctx context.Context, e models.Entry) error {
	if err := o.store.Delete(ctx, e.FilePath); err != nil {
		return err
	}
	logging.Info("deleted", zap.String("path", e.FilePath), zap.String("type", string(e.Type)))
	bus.Publish(o.bus, bus.OnFileOrDirectoryDeleted, e)
	bus.Publish(o.bus, bus.DoDeselectAll, struct{}{})
	return nil
}

// Rename moves an entry to a new name in the same directory. Only the final segment of
// the destination name is used.
func (o *Operations) Rename(ctx context.Context, r models.Rename) error {
	name := pathutil.Base(r.DestinationName)
	if name == "" {
		return fmt.Errorf("rename to %q: %w", r.DestinationName, commands.ErrInvalidName)
	}
	newPath := pathutil.Join(r.Entry.ContainingDirectoryPath, name)
	if newPath == r.Entry.FilePath {
		return nil
	}
	if err := o.store.Move(ctx, r.Entry.FilePath, newPath); err != nil {
		return err
	}

	logging.Info("renamed", zap.String("from", r.Entry.FilePath), zap.String("to", newPath))
	done := models.Renamed{Entry: r.Entry, NewPath: newPath}
	if r.Entry.IsDir() {
		bus.Publish(o.bus, bus.OnDirectoryRenamed, done)
	} else {
		bus.Publish(o.bus, bus.OnFileRenamed, done)
	}
	bus.Publish(o.bus, bus.DoDeselectAll, struct{}{})
	return nil
}

// CreateFile writes an empty file into the entry's target directory. An existing file
// of the same name is left alone.
func (o *Operations) CreateFile(ctx context.Context, c models.Create) error {
	dir := c.Entry.TargetDirectory()
	p := pathutil.Join(dir, pathutil.Base(c.Name))
	if err := o.absent(ctx, p); err != nil {
		return err
	}
	if err := o.store.Write(ctx, p, strings.NewReader(""), 0, nil); err != nil {
		return err
	}
	logging.Info("file created", zap.String("path", p))
	bus.Publish(o.bus, bus.OnFileCreated, dir)
	bus.Publish(o.bus, bus.DoDeselectAll, struct{}{})
	return nil
}

// CreateFolder creates a directory inside the entry's target directory.
func (o *Operations) CreateFolder(ctx context.Context, c models.Create) error {
	dir := c.Entry.TargetDirectory()
	p := pathutil.Join(dir, pathutil.Base(c.Name))
	if err := o.store.Mkdir(ctx, p); err != nil {
		return err
	}
	logging.Info("folder created", zap.String("path", p))
	bus.Publish(o.bus, bus.OnFolderCreated, dir)
	bus.Publish(o.bus, bus.DoDeselectAll, struct{}{})
	return nil
}

// Upload writes the files one after another into the entry's target directory, reporting
// progress per file. Names are reduced to a sanitized base name. ON_FILE_UPLOAD_COMPLETE is
// emitted once, after the last file.
func (o *Operations) Upload(ctx context.Context, u models.Upload) error {
	dir := u.Entry.TargetDirectory()
	for _, file := range u.Files {
		name := commands.Sanitize(pathutil.Base(file.Name))
		if name == "" {
			return fmt.Errorf("upload %q: %w", file.Name, commands.ErrInvalidName)
		}
		if err := o.uploadOne(ctx, dir, name, file); err != nil {
			return err
		}
	}

	logging.Info("upload complete", zap.String("dir", dir), zap.Int("files", len(u.Files)))
	bus.Publish(o.bus, bus.OnFileUploadComplete, u.Entry)
	bus.Publish(o.bus, bus.DoDeselectAll, struct{}{})
	return nil
}

func (o *Operations) uploadOne(ctx context.Context, dir, name string, file models.UploadFile) error {
	if file.Open == nil {
		return fmt.Errorf("upload %s: no content", name)
	}
	rc, err := file.Open()
	if err != nil {
		return fmt.Errorf("upload %s: %w", name, err)
	}
	defer rc.Close()

	p := pathutil.Join(dir, name)
	progress := func(written, total int64) {
		bus.Publish(o.bus, bus.OnFileUploadProgress, models.UploadProgress{
			Filename: name,
			Loaded:   written,
			Total:    total,
		})
	}
	if err := o.store.Write(ctx, p, rc, file.Size, progress); err != nil {
		return err
	}
	logging.Debug("file uploaded", zap.String("path", p), zap.Int64("bytes", file.Size))
	return nil
}

func (o *Operations) absent(ctx context.Context, p string) error {
	_, err := o.store.Stat(ctx, p)
	switch {
	case err == nil:
		return fmt.Errorf("%s: %w", p, remote.ErrExists)
	case errors.Is(err, remote.ErrNotFound):
		return nil
	default:
		return err
	}
}
