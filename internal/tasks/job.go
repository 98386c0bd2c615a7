package tasks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"repurposer/internal/media/video"
	"repurposer/internal/repurpose"
)

// ScratchPrefix names every job scratch directory so stale ones can be swept.
const ScratchPrefix = "repurposer_"

var (
	ErrFileTooLarge = errors.New("file too large")
	ErrShuttingDown = errors.New("processor shutting down")
	errJobPanicked  = errors.New("job panicked")
	errKindMismatch = errors.New("content does not match the declared media kind")
)

type Kind string

const (
	KindPhoto Kind = "photo"
	KindVideo Kind = "video"
)

func (k Kind) extension() string {
	if k == KindVideo {
		return ".mp4"
	}
	return ".jpg"
}

type Stage string

const (
	StageDownloading  Stage = "downloading"
	StageValidating   Stage = "validating"
	StageTransforming Stage = "transforming"
	StageUploading    Stage = "uploading"
	StageDone         Stage = "done"
	StageFailed       Stage = "failed"
)

// StageError records which stage a job failed in.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Request is one inbound media submission.
type Request struct {
	ChatID  int64
	UserID  int64
	FileID  string
	Kind    Kind
	Size    int64
	ReplyTo int
}

// StatusRef identifies the progress message edited as a job advances.
type StatusRef struct {
	ChatID    int64
	MessageID int
}

func (r StatusRef) valid() bool {
	return r.MessageID != 0
}

// Transport is the chat side of a job.
type Transport interface {
	Notify(ctx context.Context, chatID int64, replyTo int, text string) (StatusRef, error)
	Update(ctx context.Context, ref StatusRef, text string) error
	Download(ctx context.Context, fileID string, w io.Writer) error
	Deliver(ctx context.Context, chatID int64, kind Kind, path, caption string) error
}

type Engine interface {
	CheckVideo(ctx context.Context, in string) (video.Info, error)
	RepurposeImage(ctx context.Context, in, out string) (repurpose.Output, error)
	RepurposeVideo(ctx context.Context, in, out string) (repurpose.Output, error)
}

// Gate admits users and tracks their in-flight job.
type Gate interface {
	Admit(userID int64) error
	Release(userID int64)
}

// Authorizer re-checks a user once their file has been downloaded.
type Authorizer interface {
	StillAuthorized(userID int64) bool
}

// Archiver keeps a copy of delivered outputs.
type Archiver interface {
	Archive(ctx context.Context, jobID, path, filename string) error
}

type timings struct {
	download time.Duration
	process  time.Duration
	upload   time.Duration
	total    time.Duration
}

type job struct {
	Request
	ID      string
	started time.Time
	dir     string
	status  StatusRef
	video   video.Info
	timings timings
}
