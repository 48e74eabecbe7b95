package schema

// Entry is one immutable KBLI 2020 classification entry. Entries are owned by
// the catalog index and never mutated after the index is built.
type Entry struct {
	Code          string    `json:"kode_kbli"`
	Title         string    `json:"judul"`
	HierarchyPath []string  `json:"hierarki"`
	ScopeText     string    `json:"cakupan"`
	Embedding     []float64 `json:"embedding"`
}

// SearchText returns the combined text indexed for lexical scoring.
func (e Entry) SearchText() string {
	text := e.Title
	for _, h := range e.HierarchyPath {
		text += " " + h
	}
	return text + " " + e.ScopeText
}

// Candidate is a transient scored reference to a catalog entry. Each scorer
// produces its own candidate list; fusion merges them into a final one.
type Candidate struct {
	Code  string
	Score float64
}

// Classification is one adjudicated result for a query. A query may yield
// zero, one, or many classifications (multi-label).
type Classification struct {
	Code       string  `json:"code"`
	Title      string  `json:"title"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
	// Unmapped is true when no candidate met the adjudicator's acceptance bar.
	Unmapped bool `json:"unmapped"`
	// Degraded marks classifications produced by a fallback path, where the
	// reasoning does not come from the adjudicator.
	Degraded bool `json:"degraded,omitempty"`
}

// RowStatus is the per-row outcome of a batch run.
type RowStatus string

const (
	StatusFound    RowStatus = "Found"
	StatusUnmapped RowStatus = "Unmapped"
	StatusFailed   RowStatus = "Failed"
)

// Row is one input row of a batch: a free-text activity description plus the
// identifier the external row source assigned to it.
type Row struct {
	ID   int
	Text string
}

// RowResult carries everything the result sink needs for one row.
type RowResult struct {
	Row             Row
	Intents         []string
	Classifications []Classification
	Status          RowStatus
	Reason          string
}

// ProgressEvent is emitted after each micro-batch completes. The transport
// layer decides how to forward it; it is never persisted.
type ProgressEvent struct {
	Processed int
	Failed    int
	Total     int
	LastRow   string
}
