package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/openpetition/sigverify/internal/database/repository"
	"github.com/openpetition/sigverify/internal/ocr"
)

// BatchInput is everything one batch run needs: the pages in submission
// order and a read-only snapshot of the campaign's voter roll.
type BatchInput struct {
	CampaignID string
	Pages      [][]byte
	Model      string
	Prompt     string
	Roll       []repository.VoterRecord
}

// PageStatus reports extraction success or failure for one page.
type PageStatus struct {
	Page    int
	OK      bool
	Entries int
	Error   string
}

// BatchResult is the full payload the surrounding application persists and
// displays; it does not need to understand matching internals.
type BatchResult struct {
	BatchID    string
	CampaignID string
	Verdicts   []Verdict
	Pages      []PageStatus
}

// FailedPages lists the page indices that produced no entries.
func (r *BatchResult) FailedPages() []int {
	var out []int
	for _, p := range r.Pages {
		if !p.OK {
			out = append(out, p.Page)
		}
	}
	return out
}

// BatchError reports total batch failure: an unusable roll, or not a
// single page extracted. Partial failure is never an error; it is encoded
// in BatchResult.Pages.
type BatchError struct {
	BatchID string
	Err     error
}

func (e *BatchError) Error() string { return fmt.Sprintf("batch %s: %v", e.BatchID, e.Err) }
func (e *BatchError) Unwrap() error { return e.Err }

// Coordinator orchestrates one batch: bounded fan-out to the OCR provider,
// a join barrier, then the synchronous normalize/match/aggregate stages.
// All retry policy lives here so it is uniform across providers.
type Coordinator struct {
	Provider      ocr.Provider
	Concurrency   int           // max in-flight OCR calls
	Retries       int           // extra attempts per page on transient errors
	CallTimeout   time.Duration // per OCR call
	BatchTimeout  time.Duration // whole run, 0 = unbounded
	RetryInterval time.Duration // initial backoff step, 0 = library default
	Logger        *slog.Logger
}

// Run processes one batch. Page failures and cancellation yield a valid
// partial result; only an empty roll or zero successful pages escalate.
func (c *Coordinator) Run(ctx context.Context, in BatchInput) (*BatchResult, error) {
	batchID := uuid.NewString()
	log := c.logger().With("batch", batchID, "campaign", in.CampaignID)

	if len(in.Roll) == 0 {
		return nil, &BatchError{BatchID: batchID, Err: errors.New("voter roll is empty")}
	}
	prompt := in.Prompt
	if prompt == "" {
		prompt = ocr.DefaultPrompt
	}
	if c.BatchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.BatchTimeout)
		defer cancel()
	}

	index := BuildIndex(in.Roll)
	log.Info("batch started", "pages", len(in.Pages), "roll_size", index.Size())

	// Fan out one extraction per page. Workers never return errors; each
	// page's outcome lands in its submission-order slot so downstream
	// stages are deterministic regardless of completion order.
	pageEntries := make([][]ocr.SignerEntry, len(in.Pages))
	pageErrs := make([]error, len(in.Pages))

	g, gctx := errgroup.WithContext(ctx)
	limit := c.Concurrency
	if limit < 1 {
		limit = 1
	}
	g.SetLimit(limit)
	for i, page := range in.Pages {
		g.Go(func() error {
			pageEntries[i], pageErrs[i] = c.extractPage(gctx, page, prompt, in.Model)
			return nil
		})
	}
	_ = g.Wait() // join barrier; workers only report through the slots

	result := &BatchResult{BatchID: batchID, CampaignID: in.CampaignID}
	var entries []Entry
	succeeded := 0
	for i := range in.Pages {
		status := PageStatus{Page: i}
		if err := pageErrs[i]; err != nil {
			status.Error = pageFailureReason(err)
			log.Warn("page failed", "page", i, "error", err)
		} else {
			status.OK = true
			status.Entries = len(pageEntries[i])
			succeeded++
			for j, raw := range pageEntries[i] {
				entries = append(entries, Entry{
					ID:         uuid.NewString(),
					PageIndex:  i,
					EntryIndex: j,
					Raw:        raw,
				})
			}
		}
		result.Pages = append(result.Pages, status)
	}
	if succeeded == 0 {
		return nil, &BatchError{BatchID: batchID, Err: fmt.Errorf("no pages extracted (%d failed)", len(in.Pages))}
	}

	candidates := make([][]Candidate, len(entries))
	for i, e := range entries {
		candidates[i] = index.Resolve(Normalize(e.Raw.Name, e.Raw.Address))
	}
	result.Verdicts = Aggregate(entries, candidates)

	log.Info("batch complete",
		"pages_ok", succeeded,
		"pages_failed", len(in.Pages)-succeeded,
		"entries", len(entries),
		"verdicts", len(result.Verdicts))
	return result, nil
}

// extractPage calls the provider with a per-call timeout, retrying
// transient upstream failures with exponential backoff. Permanent errors,
// malformed output and cancellation abandon the page immediately.
func (c *Coordinator) extractPage(ctx context.Context, image []byte, prompt, model string) ([]ocr.SignerEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	exp := backoff.NewExponentialBackOff()
	if c.RetryInterval > 0 {
		exp.InitialInterval = c.RetryInterval
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(exp, uint64(max(c.Retries, 0))), ctx)

	var entries []ocr.SignerEntry
	op := func() error {
		callCtx := ctx
		if c.CallTimeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, c.CallTimeout)
			defer cancel()
		}
		out, err := c.Provider.Extract(callCtx, image, prompt, model)
		if err != nil {
			var ue *ocr.UpstreamError
			if errors.As(err, &ue) && ue.Transient && ctx.Err() == nil {
				return err
			}
			return backoff.Permanent(err)
		}
		entries = out
		return nil
	}
	if err := backoff.Retry(op, policy); err != nil {
		return nil, err
	}
	return entries, nil
}

func pageFailureReason(err error) string {
	switch {
	case errors.Is(err, context.Canceled):
		return "cancelled"
	case errors.Is(err, context.DeadlineExceeded):
		return "timed out"
	default:
		return "extraction failed: " + err.Error()
	}
}

func (c *Coordinator) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}
