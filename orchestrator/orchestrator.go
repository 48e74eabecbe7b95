package orchestrator

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alwanrahmanas/kbli2020-matcher/catalog"
	"github.com/alwanrahmanas/kbli2020-matcher/common/logger"
	"github.com/alwanrahmanas/kbli2020-matcher/fusion"
	"github.com/alwanrahmanas/kbli2020-matcher/intent"
	"github.com/alwanrahmanas/kbli2020-matcher/lookup"
	"github.com/alwanrahmanas/kbli2020-matcher/metrics"
	"github.com/alwanrahmanas/kbli2020-matcher/post"
	"github.com/alwanrahmanas/kbli2020-matcher/retriever"
	"github.com/alwanrahmanas/kbli2020-matcher/schema"
)

// Options tunes the per-query pipeline and the batch scheduler.
type Options struct {
	// TopK is how many candidates each scorer returns per intent.
	TopK int
	// FinalK caps the fused candidate list handed to the adjudicator.
	FinalK int
	// RRFK is the rank-fusion smoothing constant.
	RRFK int
	// MicroBatch is how many rows are dispatched per progress tick.
	MicroBatch int
	// Concurrency bounds rows in flight within one micro-batch.
	Concurrency int
}

func (o Options) withDefaults() Options {
	if o.TopK <= 0 {
		o.TopK = retriever.DefaultTopK
	}
	if o.FinalK <= 0 {
		o.FinalK = 10
	}
	if o.RRFK <= 0 {
		o.RRFK = fusion.RankConstant
	}
	if o.MicroBatch <= 0 {
		o.MicroBatch = 10
	}
	if o.Concurrency <= 0 {
		o.Concurrency = o.MicroBatch
	}
	return o
}

// Orchestrator wires the whole classification pipeline: the exact-code
// lookup short circuit, intent splitting, parallel lexical/vector scoring,
// rank fusion, and adjudication. It holds no per-query state and is safe
// for concurrent use.
type Orchestrator struct {
	Index       *catalog.Index
	Lexical     retriever.Scorer
	Vector      retriever.Scorer
	Splitter    *intent.Splitter
	Adjudicator *post.Adjudicator
	Lookup      *lookup.Table
	opts        Options
}

func New(idx *catalog.Index, lex, vec retriever.Scorer, sp *intent.Splitter, adj *post.Adjudicator, opts Options) *Orchestrator {
	return &Orchestrator{
		Index:       idx,
		Lexical:     lex,
		Vector:      vec,
		Splitter:    sp,
		Adjudicator: adj,
		Lookup:      lookup.New(idx),
		opts:        opts.withDefaults(),
	}
}

// ProcessQuery classifies a single free-text description through the full
// pipeline. It never returns an error: degraded and unmapped outcomes are
// expressed in the result itself.
func (o *Orchestrator) ProcessQuery(ctx context.Context, text string) schema.RowResult {
	return o.processRow(ctx, schema.Row{Text: text})
}

func (o *Orchestrator) processRow(ctx context.Context, row schema.Row) schema.RowResult {
	res := schema.RowResult{Row: row}
	text := strings.TrimSpace(row.Text)
	if text == "" {
		res.Status = schema.StatusUnmapped
		res.Reason = "empty description"
		res.Classifications = []schema.Classification{{
			Unmapped:  true,
			Reasoning: "Deskripsi kegiatan usaha kosong.",
		}}
		return res
	}

	// Rows that already carry an explicit catalog code skip retrieval.
	if o.Lookup != nil {
		if cls, ok := o.Lookup.Resolve(text); ok {
			res.Intents = []string{text}
			res.Classifications = cls
			res.Status = schema.StatusFound
			return res
		}
	}

	res.Intents = o.Splitter.Split(ctx, text)

	// Merge per-intent results, keeping the highest confidence per code.
	merged := make(map[string]schema.Classification)
	order := make([]string, 0, len(res.Intents))
	anyMapped := false
	for _, it := range res.Intents {
		if ctx.Err() != nil {
			break
		}
		for _, c := range o.classifyIntent(ctx, it) {
			if c.Unmapped {
				continue
			}
			anyMapped = true
			prev, seen := merged[c.Code]
			if !seen {
				merged[c.Code] = c
				order = append(order, c.Code)
			} else if c.Confidence > prev.Confidence {
				merged[c.Code] = c
			}
		}
	}

	if ctx.Err() != nil {
		// Some intents may never have run; partial output must not be
		// mistaken for a complete classification.
		res.Status = schema.StatusFailed
		res.Reason = "incomplete, cancelled: " + ctx.Err().Error()
		for _, code := range order {
			res.Classifications = append(res.Classifications, merged[code])
		}
		return res
	}
	if !anyMapped {
		res.Status = schema.StatusUnmapped
		res.Reason = "no catalog entry matched any intent"
		res.Classifications = []schema.Classification{{
			Unmapped:  true,
			Reasoning: "Tidak ada kode KBLI yang cocok untuk seluruh kegiatan.",
		}}
		return res
	}

	res.Classifications = make([]schema.Classification, 0, len(order))
	for _, code := range order {
		res.Classifications = append(res.Classifications, merged[code])
	}
	res.Status = schema.StatusFound
	return res
}

// classifyIntent runs retrieval, fusion, and adjudication for one atomic
// activity phrase. The two scorers run in parallel; a vector failure
// degrades the query to lexical-only rather than failing it.
func (o *Orchestrator) classifyIntent(ctx context.Context, query string) []schema.Classification {
	var (
		wg       sync.WaitGroup
		lex, vec []schema.Candidate
		lexErr   error
		vecErr   error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		start := time.Now()
		lex, lexErr = o.Lexical.Search(ctx, query, o.opts.TopK)
		metrics.ObserveScorer(o.Lexical.Type(), start, len(lex))
	}()
	go func() {
		defer wg.Done()
		start := time.Now()
		vec, vecErr = o.Vector.Search(ctx, query, o.opts.TopK)
		metrics.ObserveScorer(o.Vector.Type(), start, len(vec))
	}()
	wg.Wait()

	lists := make([][]schema.Candidate, 0, 2)
	if lexErr != nil {
		logger.Warnf("orchestrator: lexical scorer failed for %q: %v", query, lexErr)
	} else if len(lex) > 0 {
		lists = append(lists, lex)
	}
	if vecErr != nil {
		logger.Warnf("orchestrator: vector scorer failed for %q, continuing lexical-only: %v", query, vecErr)
		metrics.IncDegraded()
	} else if len(vec) > 0 {
		lists = append(lists, vec)
	}
	metrics.ObserveFusion(len(lists))

	fused := fusion.RRF(lists, o.opts.RRFK, o.opts.FinalK)
	cands := make([]post.Candidate, 0, len(fused))
	for _, c := range fused {
		entry, ok := o.Index.ByCode(c.Code)
		if !ok {
			// Scorers only emit indexed codes, so this would mean a bug.
			logger.Errorf("orchestrator: fused code %q missing from catalog", c.Code)
			continue
		}
		cands = append(cands, post.Candidate{
			Code:  entry.Code,
			Title: entry.Title,
			Scope: entry.ScopeText,
			Fused: c.Score,
		})
	}
	return o.Adjudicator.Adjudicate(ctx, query, cands)
}

// BatchJob is a handle to one running batch. Progress delivers one event
// per completed micro-batch; Wait blocks until the batch finishes and
// returns results in input-row order.
type BatchJob struct {
	total    int
	progress chan schema.ProgressEvent
	done     chan struct{}
	results  []schema.RowResult
}

// Progress returns the event stream. The channel is buffered for the whole
// run and closed when the batch finishes, so slow consumers never stall
// row processing.
func (j *BatchJob) Progress() <-chan schema.ProgressEvent { return j.progress }

// Wait blocks until every row is accounted for and returns the results
// ordered by row identifier.
func (j *BatchJob) Wait() []schema.RowResult {
	<-j.done
	return j.results
}

// Submit starts classifying rows in micro-batches and returns immediately.
// Cancelling ctx stops new dispatches; rows never dispatched are reported
// as failed, so the processed count always reaches the total.
func (o *Orchestrator) Submit(ctx context.Context, rows []schema.Row) *BatchJob {
	mb := o.opts.MicroBatch
	job := &BatchJob{
		total:    len(rows),
		progress: make(chan schema.ProgressEvent, len(rows)/mb+2),
		done:     make(chan struct{}),
	}
	go o.run(ctx, rows, job)
	return job
}

func (o *Orchestrator) run(ctx context.Context, rows []schema.Row, job *BatchJob) {
	defer close(job.done)
	defer close(job.progress)

	results := make([]schema.RowResult, len(rows))
	processed, failed := 0, 0
	mb := o.opts.MicroBatch

	for start := 0; start < len(rows); start += mb {
		end := start + mb
		if end > len(rows) {
			end = len(rows)
		}

		if ctx.Err() != nil {
			for i := start; i < len(rows); i++ {
				results[i] = schema.RowResult{
					Row:    rows[i],
					Status: schema.StatusFailed,
					Reason: "batch cancelled before dispatch",
				}
				metrics.IncBatchRow(string(schema.StatusFailed))
				processed++
				failed++
			}
			job.emit(schema.ProgressEvent{
				Processed: processed, Failed: failed, Total: job.total,
				LastRow: "cancelled",
			})
			break
		}

		var (
			mu      sync.Mutex
			lastRow string
		)
		g := new(errgroup.Group)
		g.SetLimit(o.opts.Concurrency)
		for i := start; i < end; i++ {
			i := i
			g.Go(func() error {
				res := o.processRow(ctx, rows[i])
				results[i] = res
				metrics.IncBatchRow(string(res.Status))
				mu.Lock()
				processed++
				if res.Status == schema.StatusFailed {
					failed++
				}
				lastRow = rows[i].Text
				mu.Unlock()
				return nil
			})
		}
		g.Wait()

		job.emit(schema.ProgressEvent{
			Processed: processed, Failed: failed, Total: job.total,
			LastRow: lastRow,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Row.ID < results[j].Row.ID
	})
	job.results = results
}

// emit never blocks: the buffer is sized for the whole run, and if a
// consumer somehow lags past that the event is dropped rather than letting
// progress reporting stall classification.
func (j *BatchJob) emit(ev schema.ProgressEvent) {
	select {
	case j.progress <- ev:
	default:
		logger.Debugf("orchestrator: dropped progress event at %d/%d", ev.Processed, ev.Total)
	}
}
