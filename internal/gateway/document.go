package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/bmore/mtgateway/internal/batch"
	"github.com/bmore/mtgateway/internal/job"
	"github.com/bmore/mtgateway/internal/lang"
	"github.com/bmore/mtgateway/internal/segment"
	"github.com/bmore/mtgateway/internal/xliff"
)

var ErrEmptyDocument = errors.New("document has no translatable text")

// SegmentOptions fills unset request options from the configured defaults
// and lowers a minimum length above the maximum to the maximum.
func (gc *Context) SegmentOptions(req segment.Options) segment.Options {
	if req.Rule == "" {
		req.Rule = gc.Config.Segment.Rule
	}
	if req.MinSegmentLength <= 0 {
		req.MinSegmentLength = gc.Config.Segment.MinSegmentLength
	}
	if req.MaxSegmentLength <= 0 {
		req.MaxSegmentLength = gc.Config.Segment.MaxSegmentLength
	}
	if req.MergeThreshold <= 0 {
		req.MergeThreshold = gc.Config.Segment.MergeThreshold
	}
	if req.MaxSegmentLength > 0 && req.MinSegmentLength > req.MaxSegmentLength {
		req.MinSegmentLength = req.MaxSegmentLength
	}
	return req
}

// TranslateUnits segments text into units and fills their targets batch by
// batch. progress, if not nil, receives the translated fraction.
func (gc *Context) TranslateUnits(ctx context.Context, text, src, tgt string, opts segment.Options, progress func(float64)) ([]segment.TranslationUnit, *batch.Result, error) {
	segs := gc.Segmenter.Segment(text, gc.SegmentOptions(opts))
	if len(segs) == 0 {
		return nil, nil, ErrEmptyDocument
	}
	units := segment.Units(segs)

	total := &batch.Result{}
	step := gc.Batch.MaxBatch()
	for start := 0; start < len(segs); start += step {
		end := min(start+step, len(segs))
		res, err := gc.Batch.TranslateBatch(ctx, batch.Request{Segments: segs[start:end], Src: src, Tgt: tgt})
		if err != nil {
			return nil, nil, err
		}
		for i, translated := range res.Segments {
			units[start+i].Translate(translated)
		}
		total.Segments = append(total.Segments, res.Segments...)
		total.CachedCount += res.CachedCount
		total.Degraded += res.Degraded
		if progress != nil {
			progress(float64(end) / float64(len(segs)))
		}
	}
	return units, total, nil
}

// TranslateDocument is the job handler for job.JobTranslateDocument.
func (gc *Context) TranslateDocument(ctx context.Context, j *job.Job, updateProgress func(float64)) (any, error) {
	var params job.TranslateParams
	if err := json.Unmarshal(j.Params, &params); err != nil {
		return nil, fmt.Errorf("unmarshal params: %w", err)
	}
	src, tgt := lang.Normalize(params.Src), lang.Normalize(params.Tgt)
	started := time.Now()

	units, res, err := gc.TranslateUnits(ctx, j.Document, src, tgt, params.Options, updateProgress)
	if err != nil {
		return nil, err
	}

	result := job.TranslateResult{
		Units:        units,
		SegmentCount: len(units),
		CachedCount:  res.CachedCount,
		Degraded:     res.Degraded,
	}

	if params.CheckQuality {
		var sum float64
		for i := range units {
			report := gc.Quality.Check(units[i].SourceText, units[i].TargetText, src, tgt)
			for _, issue := range report.Issues {
				units[i].AddNote(fmt.Sprintf("%s: %s", issue.Severity, issue.Description))
			}
			sum += report.QualityScore
		}
		score := sum / float64(len(units))
		result.QualityScore = &score
	}

	result.Text = xliff.Merge(xliff.Build(units, src, tgt, "")).Text
	result.Duration = time.Since(started).Seconds()

	gc.Log.Info("document translated",
		zap.String("job_id", j.ID),
		zap.Int("segments", result.SegmentCount),
		zap.Int("cached", result.CachedCount),
		zap.Float64("duration", result.Duration))
	return result, nil
}
