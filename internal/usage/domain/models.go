package domain

// Category names a usage endpoint under usage/{category}.
type Category string

const (
	CategoryCompletions             Category = "completions"
	CategoryEmbeddings              Category = "embeddings"
	CategoryModerations             Category = "moderations"
	CategoryImages                  Category = "images"
	CategoryAudioSpeeches           Category = "audio_speeches"
	CategoryAudioTranscriptions     Category = "audio_transcriptions"
	CategoryVectorStores            Category = "vector_stores"
	CategoryCodeInterpreterSessions Category = "code_interpreter_sessions"
)

// Categories lists every usage category in display order.
var Categories = []Category{
	CategoryCompletions,
	CategoryEmbeddings,
	CategoryModerations,
	CategoryImages,
	CategoryAudioSpeeches,
	CategoryAudioTranscriptions,
	CategoryVectorStores,
	CategoryCodeInterpreterSessions,
}

var commonGroupBy = []string{"project_id", "user_id", "api_key_id", "model"}

// GroupBy holds the group_by values each category accepts.
var GroupBy = map[Category][]string{
	CategoryCompletions:             append(append([]string{}, commonGroupBy...), "batch", "service_tier"),
	CategoryEmbeddings:              commonGroupBy,
	CategoryModerations:             commonGroupBy,
	CategoryImages:                  append(append([]string{}, commonGroupBy...), "size", "source"),
	CategoryAudioSpeeches:           commonGroupBy,
	CategoryAudioTranscriptions:     commonGroupBy,
	CategoryVectorStores:            {"project_id"},
	CategoryCodeInterpreterSessions: {"project_id"},
}

// CostGroupBy holds the group_by values the costs endpoint accepts.
var CostGroupBy = []string{"project_id", "line_item"}

// Bucket is one time slice of usage.
type Bucket struct {
	Object    string   `json:"object"`
	StartTime int64    `json:"start_time"`
	EndTime   int64    `json:"end_time"`
	Results   []Result `json:"results"`
}

// Result is one usage row. Measures not reported by a category stay zero;
// grouping dimensions are set only when grouped by.
type Result struct {
	Object            string `json:"object"`
	InputTokens       int64  `json:"input_tokens,omitempty"`
	OutputTokens      int64  `json:"output_tokens,omitempty"`
	InputCachedTokens int64  `json:"input_cached_tokens,omitempty"`
	InputAudioTokens  int64  `json:"input_audio_tokens,omitempty"`
	OutputAudioTokens int64  `json:"output_audio_tokens,omitempty"`
	NumModelRequests  int64  `json:"num_model_requests,omitempty"`
	Images            int64  `json:"images,omitempty"`
	Characters        int64  `json:"characters,omitempty"`
	Seconds           int64  `json:"seconds,omitempty"`
	UsageBytes        int64  `json:"usage_bytes,omitempty"`
	NumSessions       int64  `json:"num_sessions,omitempty"`

	ProjectID   *string `json:"project_id,omitempty"`
	UserID      *string `json:"user_id,omitempty"`
	APIKeyID    *string `json:"api_key_id,omitempty"`
	Model       *string `json:"model,omitempty"`
	Batch       *bool   `json:"batch,omitempty"`
	ServiceTier *string `json:"service_tier,omitempty"`
	Size        *string `json:"size,omitempty"`
	Source      *string `json:"source,omitempty"`
}

// CostBucket is one day of spend.
type CostBucket struct {
	Object    string       `json:"object"`
	StartTime int64        `json:"start_time"`
	EndTime   int64        `json:"end_time"`
	Results   []CostResult `json:"results"`
}

type CostResult struct {
	Object    string  `json:"object"`
	Amount    Amount  `json:"amount"`
	LineItem  *string `json:"line_item,omitempty"`
	ProjectID *string `json:"project_id,omitempty"`
}

type Amount struct {
	Value    float64 `json:"value"`
	Currency string  `json:"currency"`
}

// Totals sums the measures of every result across buckets.
func Totals(buckets []Bucket) Result {
	var total Result
	total.Object = "total"
	for _, b := range buckets {
		for _, r := range b.Results {
			total.InputTokens += r.InputTokens
			total.OutputTokens += r.OutputTokens
			total.InputCachedTokens += r.InputCachedTokens
			total.InputAudioTokens += r.InputAudioTokens
			total.OutputAudioTokens += r.OutputAudioTokens
			total.NumModelRequests += r.NumModelRequests
			total.Images += r.Images
			total.Characters += r.Characters
			total.Seconds += r.Seconds
			total.UsageBytes += r.UsageBytes
			total.NumSessions += r.NumSessions
		}
	}
	return total
}

// CostTotals sums spend per currency.
func CostTotals(buckets []CostBucket) map[string]float64 {
	totals := map[string]float64{}
	for _, b := range buckets {
		for _, r := range b.Results {
			currency := r.Amount.Currency
			if currency == "" {
				currency = "usd"
			}
			totals[currency] += r.Amount.Value
		}
	}
	return totals
}
