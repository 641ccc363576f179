package reportpdf

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/text/encoding/unicode"

	"github.com/nicholaszhao/uptime-report-pdf/packages/go/config"
	"github.com/nicholaszhao/uptime-report-pdf/packages/go/models"
	"github.com/nicholaszhao/uptime-report-pdf/packages/go/storage"
	"github.com/nicholaszhao/uptime-report-pdf/services/reportpdf/render"
)

const (
	htmlContentType = "text/html; charset=utf-8"
	pdfContentType  = "application/pdf"
	noCache         = "no-cache"
)

// Ledger persists one record per report run
type Ledger interface {
	RecordRun(ctx context.Context, run *models.RunRecord) error
}

// Notifier announces finished runs
type Notifier interface {
	Notify(ctx context.Context, run models.RunRecord) error
}

// Request carries the raw month and year tokens of one invocation
type Request struct {
	Month string `json:"month"`
	Year  string `json:"year"`
}

// Result describes what a run located and wrote
type Result struct {
	Period      models.Period
	SrcBucket   string
	DestBucket  string
	Keys        models.ReportKeys
	SourceKey   string
	HTML        string
	PDFUploaded bool
	PDFError    string
	PDFSize     int
	Renderer    string
	Attempts    []render.Attempt
}

// Service publishes monthly uptime reports as HTML and PDF
type Service struct {
	cfg      *config.Config
	store    storage.ObjectStore
	locator  *Locator
	chain    *render.Chain
	ledger   Ledger
	notifier Notifier
	now      func() time.Time
}

// NewService creates a service reading and writing through store
func NewService(cfg *config.Config, store storage.ObjectStore, chain *render.Chain) *Service {
	return &Service{
		cfg:     cfg,
		store:   store,
		locator: NewLocator(store, cfg.SrcFileName, cfg.NestedDepth, cfg.TieBreak),
		chain:   chain,
		now:     time.Now,
	}
}

// SetLedger sets the run ledger (optional)
func (s *Service) SetLedger(l Ledger) {
	s.ledger = l
}

// SetNotifier sets the completion notifier (optional)
func (s *Service) SetNotifier(n Notifier) {
	s.notifier = n
}

// Store returns the object store the service uses
func (s *Service) Store() storage.ObjectStore {
	return s.store
}

// Generate resolves the period, copies the newest source report to the
// destination bucket and uploads its PDF rendering.
// The result is nil only when the period tokens are invalid.
func (s *Service) Generate(ctx context.Context, req Request) (*Result, error) {
	started := s.now().UTC()

	period, err := models.ResolvePeriod(req.Month, req.Year, started)
	if err != nil {
		log.Warn().Err(err).Str("month", req.Month).Str("year", req.Year).Msg("Rejected period")
		return nil, err
	}

	res := &Result{
		Period:     period,
		SrcBucket:  s.cfg.SrcBucket,
		DestBucket: s.cfg.DestBucket,
		Keys:       models.NewReportKeys(period, s.cfg.BasePrefix, s.cfg.DestBasePrefix, s.cfg.OutHTMLName, s.cfg.OutPDFName),
	}

	err = s.publish(ctx, res)
	s.finish(ctx, res, started, err)
	return res, err
}

func (s *Service) publish(ctx context.Context, res *Result) error {
	src, dst, keys := res.SrcBucket, res.DestBucket, res.Keys

	obj, err := s.locator.FindLatest(ctx, src, keys.SourcePrefix)
	if err != nil {
		return &StorageError{Op: "list src", Bucket: src, Key: keys.SourcePrefix, Err: err}
	}
	if obj == nil {
		return &NotFoundError{Bucket: src, Prefix: keys.SourcePrefix, File: s.cfg.SrcFileName}
	}
	res.SourceKey = obj.Key
	log.Info().Str("bucket", src).Str("key", obj.Key).Time("last_modified", obj.LastModified).Msg("Using source report")

	raw, err := s.store.Get(ctx, src, obj.Key)
	if err != nil {
		return &StorageError{Op: "read src", Bucket: src, Key: obj.Key, Err: err}
	}
	res.HTML = decodeLossy(raw)

	err = s.store.Put(ctx, dst, keys.DestHTMLKey, []byte(res.HTML), storage.PutOptions{
		ContentType:  htmlContentType,
		CacheControl: noCache,
	})
	if err != nil {
		return &StorageError{Op: "write html", Bucket: dst, Key: keys.DestHTMLKey, Err: err}
	}
	log.Info().Str("bucket", dst).Str("key", keys.DestHTMLKey).Msg("HTML copy uploaded")

	if err := s.renderPDF(ctx, res); err != nil {
		res.PDFError = err.Error()
		log.Error().Err(err).Str("period", res.Period.String()).Msg("PDF generation failed")
		if !s.cfg.AllowPDFSkip {
			return &RenderError{Err: err}
		}
		log.Warn().Str("period", res.Period.String()).Msg("Continuing without PDF")
	}
	return nil
}

func (s *Service) renderPDF(ctx context.Context, res *Result) error {
	out, err := s.chain.Render(ctx, res.HTML, render.Options{
		PageSize:        s.cfg.PDFFormat,
		PrintBackground: bool(s.cfg.PrintBackground),
		WaitCondition:   s.cfg.WaitMode,
		Timeout:         s.cfg.PageTimeout(),
	})
	if err != nil {
		var chainErr *render.ChainError
		if errors.As(err, &chainErr) {
			res.Attempts = chainErr.Attempts
		}
		return err
	}
	res.Renderer = out.Renderer
	res.Attempts = out.Attempts

	err = s.store.Put(ctx, res.DestBucket, res.Keys.DestPDFKey, out.PDF, storage.PutOptions{
		ContentType:  pdfContentType,
		CacheControl: noCache,
	})
	if err != nil {
		return &StorageError{Op: "write pdf", Bucket: res.DestBucket, Key: res.Keys.DestPDFKey, Err: err}
	}

	res.PDFUploaded = true
	res.PDFSize = len(out.PDF)
	log.Info().
		Str("bucket", res.DestBucket).
		Str("key", res.Keys.DestPDFKey).
		Str("renderer", out.Renderer).
		Int("bytes", len(out.PDF)).
		Msg("PDF uploaded")
	return nil
}

// finish records the run in the ledger and sends the notification.
// Failures here are logged and never change the run outcome.
func (s *Service) finish(ctx context.Context, res *Result, started time.Time, runErr error) {
	run := models.RunRecord{
		Period:      res.Period.String(),
		SrcBucket:   res.SrcBucket,
		SrcKey:      res.SourceKey,
		DestBucket:  res.DestBucket,
		DestHTMLKey: res.Keys.DestHTMLKey,
		Renderer:    res.Renderer,
		Status:      runStatus(runErr, res.PDFUploaded),
		PDFSize:     int64(res.PDFSize),
		StartedAt:   started,
		FinishedAt:  s.now().UTC(),
	}
	if res.PDFUploaded {
		run.DestPDFKey = res.Keys.DestPDFKey
	}
	switch {
	case runErr != nil:
		run.Error = runErr.Error()
	case res.PDFError != "":
		run.Error = res.PDFError
	}

	if s.ledger != nil {
		if err := s.ledger.RecordRun(ctx, &run); err != nil {
			log.Warn().Err(err).Str("period", run.Period).Msg("Failed to record run")
		}
	}
	if s.notifier != nil {
		if err := s.notifier.Notify(ctx, run); err != nil {
			log.Warn().Err(err).Str("period", run.Period).Msg("Failed to send notification")
		}
	}
}

// decodeLossy decodes UTF-8, replacing invalid sequences with U+FFFD
func decodeLossy(raw []byte) string {
	out, err := unicode.UTF8.NewDecoder().Bytes(raw)
	if err != nil {
		return strings.ToValidUTF8(string(raw), "\uFFFD")
	}
	return string(out)
}
