package export

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sac/membership/internal/domain/shared"
	"github.com/sac/membership/internal/infrastructure/config"
	"github.com/sac/membership/internal/infrastructure/job"
	"github.com/sac/membership/internal/infrastructure/logger"
	"github.com/sac/membership/internal/infrastructure/storage"
	"github.com/sac/membership/internal/infrastructure/tabular"
	"github.com/sac/membership/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// DownloadURLTTL is the lifetime of the link returned with an artifact
const DownloadURLTTL = 24 * time.Hour

// Artifact describes a stored export file
type Artifact struct {
	Kind        Kind
	Key         string
	ContentType string
	Size        int
	Rows        int
	URL         string
}

// Exporter renders exports and stores them as artifacts
type Exporter struct {
	service *Service
	storage storage.ObjectStorage
	runner  *job.Runner
	config  config.ExportConfig
	now     func() time.Time
}

// NewExporter creates an exporter
func NewExporter(service *Service, store storage.ObjectStorage, runner *job.Runner, cfg config.ExportConfig) *Exporter {
	return &Exporter{
		service: service,
		storage: store,
		runner:  runner,
		config:  cfg,
		now:     time.Now,
	}
}

// Export builds, renders and stores an export and waits for the result
func (e *Exporter) Export(ctx context.Context, req Request, format tabular.Format) (*Artifact, error) {
	var artifact *Artifact
	j := job.New("export."+string(req.Kind), func(ctx context.Context) error {
		a, err := e.run(ctx, req, format)
		if err != nil {
			return err
		}
		artifact = a
		return nil
	}, 0)
	if err := e.runner.Run(ctx, j); err != nil {
		return nil, err
	}
	return artifact, nil
}

// Enqueue hands an export to the runner's worker pool. The artifact is
// reported through the log.
func (e *Exporter) Enqueue(ctx context.Context, req Request, format tabular.Format) error {
	l := logger.FromContext(ctx)
	return e.runner.Submit(job.New("export."+string(req.Kind), func(ctx context.Context) error {
		a, err := e.run(logger.WithContext(ctx, l), req, format)
		if err != nil {
			return err
		}
		l.Info("export ready", zap.String("key", a.Key), zap.String("url", a.URL))
		return nil
	}, 0))
}

func (e *Exporter) run(ctx context.Context, req Request, format tabular.Format) (*Artifact, error) {
	started := time.Now()
	layer, err := e.service.layer(ctx, req.LayerID)
	if err != nil {
		return nil, job.Permanent(err)
	}
	t, err := e.service.Build(ctx, req)
	if err != nil {
		var de *shared.DomainError
		if errors.As(err, &de) {
			return nil, job.Permanent(err)
		}
		return nil, err
	}

	w, err := tabular.NewWriter(format, e.separator(req.Kind), e.config.BOM)
	if err != nil {
		return nil, job.Permanent(err)
	}
	var buf bytes.Buffer
	if err := w.Write(&buf, t); err != nil {
		return nil, job.Permanent(err)
	}

	a := &Artifact{
		Kind:        req.Kind,
		Key:         storage.ExportKey(string(req.Kind), slug(layer.Name), e.now(), w.Extension()),
		ContentType: w.ContentType(),
		Size:        buf.Len(),
		Rows:        len(t.Rows),
	}
	if err := e.storage.Put(ctx, a.Key, &buf, a.ContentType); err != nil {
		return nil, err
	}
	if a.URL, err = e.storage.DownloadURL(ctx, a.Key, DownloadURLTTL); err != nil {
		return nil, err
	}
	telemetry.Default().RecordExport(ctx, string(a.Kind), w.Extension(), a.Rows, time.Since(started))
	logger.L(ctx).Info("export stored",
		zap.String("kind", string(a.Kind)),
		zap.String("key", a.Key),
		zap.Int("rows", a.Rows),
		zap.Int("bytes", a.Size),
	)
	return a, nil
}

func (e *Exporter) separator(kind Kind) rune {
	sep := e.config.Separator
	if kind == KindMitglieder {
		sep = e.config.MitgliederSeparator
	}
	for _, r := range sep {
		return r
	}
	return ';'
}

func slug(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), "_")
}
