// SPDX-License-Identifier: MPL-2.0

package compression

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/apporo/app-compression/internal/fetch"
	"github.com/apporo/app-compression/internal/issue"
	"github.com/apporo/app-compression/pkg/archive"
	"github.com/apporo/app-compression/pkg/naming"
	"github.com/apporo/app-compression/pkg/resource"
)

const (
	// StateIdle indicates the job has been created but not run.
	StateIdle State = iota
	// StateValidating indicates the sink and options are being checked.
	StateValidating
	// StateStreaming indicates descriptors are being appended.
	StateStreaming
	// StateFinalizing indicates the archive is being flushed and closed.
	StateFinalizing
	// StateCompleted indicates the archive was written (terminal state).
	StateCompleted
	// StateFailed indicates the job failed (terminal state).
	StateFailed
)

// ErrJobStarted is returned when Run is called more than once.
var ErrJobStarted = errors.New("job already started")

type (
	// State represents the lifecycle state of a job.
	State int32

	// Job is a single Deflate run. Create it with Helper.NewJob.
	Job struct {
		helper   *Helper
		args     Args
		opts     Options
		logger   *log.Logger
		resolver *naming.Resolver

		// State management (atomic for lock-free reads)
		state atomic.Int32

		writer  *archive.Writer
		results []Result
	}

	// jobObserver forwards archive signals to the job logger.
	jobObserver struct {
		logger *log.Logger
	}
)

// String returns a human-readable representation of the job state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateValidating:
		return "validating"
	case StateStreaming:
		return "streaming"
	case StateFinalizing:
		return "finalizing"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// NewJob prepares a job without running it.
func (h *Helper) NewJob(args Args, opts Options) *Job {
	if opts.RequestID == "" {
		opts.RequestID = uuid.NewString()
	}
	j := &Job{
		helper:   h,
		args:     args,
		opts:     opts,
		logger:   h.logger.With("requestId", opts.RequestID),
		resolver: naming.NewResolver(opts.naming()),
	}
	j.state.Store(int32(StateIdle))
	return j
}

// RequestID returns the correlation id of the job.
func (j *Job) RequestID() string {
	return j.opts.RequestID
}

// State returns the current lifecycle state.
func (j *Job) State() State {
	return State(j.state.Load())
}

// Run executes the job. It may be called once.
func (j *Job) Run(ctx context.Context) (*Outcome, error) {
	// Transition: Idle -> Validating
	if !j.state.CompareAndSwap(int32(StateIdle), int32(StateValidating)) {
		return nil, fmt.Errorf("%w (state %s)", ErrJobStarted, j.State())
	}

	sink, ok := sinkOf(j.args.Writer)
	if !ok {
		return nil, j.fail(j.newError(issue.InvalidStreamWriter, map[string]any{
			"writerType": fmt.Sprintf("%T", j.args.Writer),
		}, nil))
	}
	if err := j.opts.Validate(); err != nil {
		if closeErr := sink.Close(); closeErr != nil {
			j.logger.Debug("closing sink", "error", closeErr)
		}
		return nil, j.fail(j.newError(issue.InvalidJobOptions, nil, err))
	}

	writer, err := archive.NewWriter(sink,
		archive.WithFormat(j.opts.Format),
		archive.WithLevel(j.opts.level()),
		archive.WithTempDir(j.opts.TempDir),
		archive.WithObserver(jobObserver{logger: j.logger}),
	)
	if err != nil {
		if closeErr := sink.Close(); closeErr != nil {
			j.logger.Debug("closing sink", "error", closeErr)
		}
		return nil, j.fail(j.newError(issue.ArchiveFailed, nil, err))
	}
	j.writer = writer

	// Transition: Validating -> Streaming
	j.state.Store(int32(StateStreaming))
	j.logger.Debug("job started", "resources", len(j.args.Resources), "format", writer.Format())

	fatal := j.stream(ctx)

	// Transition: Streaming -> Finalizing
	j.state.Store(int32(StateFinalizing))
	if fatal != nil {
		if abortErr := writer.Abort(fatal); abortErr != nil && !errors.Is(abortErr, fatal) {
			j.logger.Debug("abort after failure", "error", abortErr)
		}
		return nil, j.fail(fatal)
	}

	finalErr := writer.Finalize()
	if finalErr != nil {
		return nil, j.fail(j.newError(issue.ArchiveFailed, nil, finalErr))
	}

	stats := writer.Stats()
	j.state.Store(int32(StateCompleted))
	j.logger.Info("archive completed", "entries", stats.Entries, "bytes", stats.Bytes, "digest", stats.Digest)
	return &Outcome{
		RequestID: j.opts.RequestID,
		Format:    writer.Format(),
		Entries:   stats.Entries,
		Bytes:     stats.Bytes,
		Digest:    stats.Digest,
		Results:   j.results,
	}, nil
}

// stream processes descriptors in order and returns the first fatal error.
func (j *Job) stream(ctx context.Context) error {
	for i, d := range j.args.Resources {
		if err := ctx.Err(); err != nil {
			return j.newError(issue.ArchiveFailed, map[string]any{"index": i}, err)
		}
		if err := j.process(ctx, i, d); err != nil {
			return err
		}
	}
	return nil
}

func (j *Job) process(ctx context.Context, i int, d resource.Descriptor) error {
	switch d.Kind.Normalize() {
	case resource.KindHTTP:
		return j.appendRemote(ctx, i, d)
	case resource.KindFile:
		return j.appendFile(i, d)
	case resource.KindDirectory:
		return j.appendDirectory(i, d)
	default:
		err := j.newError(issue.ResourceTypeUnsupported, map[string]any{"type": string(d.Kind), "source": d.Source}, nil)
		if j.opts.StopOnError {
			return err
		}
		j.logger.Debug("skipping unsupported resource", "index", i, "type", d.Kind)
		j.record(i, d, "", StatusSkipped, err)
		return nil
	}
}

func (j *Job) appendRemote(ctx context.Context, i int, d resource.Descriptor) error {
	content, err := j.helper.fetcher.Acquire(ctx, d, fetch.Policy{StopOnError: j.opts.StopOnError, Language: j.opts.Language})
	if err != nil {
		if issue.KindOf(err) == "" {
			return j.newError(issue.ArchiveFailed, map[string]any{"index": i}, err)
		}
		return err
	}
	defer func() {
		if closeErr := content.Close(); closeErr != nil {
			j.logger.Debug("closing response body", "index", i, "error", closeErr)
		}
	}()

	if content.Placeholder && j.opts.SkipOnError {
		j.logger.Debug("skipping failed resource", "index", i, "error", content.Cause)
		j.record(i, d, "", StatusSkipped, content.Cause)
		return nil
	}

	name, r := j.resolver.Resolve(j.remoteTarget(i, d), d.Extension, content.Reader, content.Placeholder)
	if err := j.writer.AppendStream(name, r); err != nil {
		return j.archiveError(i, d, name, err)
	}

	status := StatusArchived
	if content.Placeholder {
		j.logger.Debug("wrote placeholder", "index", i, "entry", name, "error", content.Cause)
		status = StatusPlaceholder
	}
	j.record(i, d, name, status, content.Cause)
	return nil
}

func (j *Job) appendFile(i int, d resource.Descriptor) error {
	name := j.resolver.ResolvePath(d.Target, d.Extension, d.Source)
	if name == "" {
		name = fallbackName(i)
	}
	if err := j.writer.AppendFile(d.Source, name); err != nil {
		return j.archiveError(i, d, name, err)
	}
	j.record(i, d, name, StatusArchived, nil)
	return nil
}

func (j *Job) appendDirectory(i int, d resource.Descriptor) error {
	name := j.resolver.ResolveDir(d.Target)
	if err := j.writer.AppendDirectory(d.Source, name); err != nil {
		return j.archiveError(i, d, name, err)
	}
	j.record(i, d, name, StatusArchived, nil)
	return nil
}

// archiveError classifies an append failure. Missing paths are recorded and
// tolerated; every other warning or encoder error fails the job.
func (j *Job) archiveError(i int, d resource.Descriptor, name string, err error) error {
	if archive.IsNotFound(err) {
		j.logger.Debug("resource not found", "index", i, "source", d.Source)
		j.record(i, d, name, StatusMissing, err)
		return nil
	}
	j.logger.Error("archive append failed", "index", i, "entry", name, "error", err)
	return j.newError(issue.ArchiveFailed, map[string]any{"index": i, "entry": name, "source": d.Source}, err)
}

// remoteTarget picks the name stem of a remote entry: the target when it
// slugifies to something, else the last URL path segment, else a positional name.
func (j *Job) remoteTarget(i int, d resource.Descriptor) string {
	opts := j.opts.naming()
	if naming.Slugify(d.Target, opts) != "" {
		return d.Target
	}
	if u, err := url.Parse(d.Source); err == nil {
		if base := path.Base(u.Path); naming.Slugify(base, opts) != "" {
			return base
		}
	}
	return fallbackName(i)
}

func (j *Job) record(i int, d resource.Descriptor, entry string, status Status, cause error) {
	r := Result{Index: i, Kind: d.Kind, Source: d.Source, Entry: entry, Status: status}
	if cause != nil {
		r.Cause = cause.Error()
	}
	j.results = append(j.results, r)
}

func (j *Job) newError(kind issue.Kind, detail map[string]any, cause error) *issue.Error {
	return j.helper.catalog.Wrap(kind, issue.Payload{Language: j.opts.Language, Detail: detail}, cause)
}

// fail moves the job to StateFailed and returns err.
func (j *Job) fail(err error) error {
	j.state.Store(int32(StateFailed))
	j.logger.Debug("job failed", "error", err)
	return err
}

func fallbackName(i int) string {
	return fmt.Sprintf("resource-%d", i+1)
}

func (o jobObserver) Progress(p archive.Progress) {
	o.logger.Debug("entry written", "entries", p.Entries, "bytes", p.Bytes)
}

func (o jobObserver) Warning(w *archive.Warning) {
	o.logger.Debug("archive warning", "code", w.Code, "path", w.Path, "error", w.Err)
}

func (o jobObserver) Done(err error) {
	if err != nil {
		o.logger.Debug("archive closed with error", "error", err)
		return
	}
	o.logger.Debug("archive closed")
}
