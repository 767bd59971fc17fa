package domain

// RateLimit is a per-model quota for a project. Absent limits decode as nil.
type RateLimit struct {
	Object                      string `json:"object"`
	ID                          string `json:"id"`
	Model                       string `json:"model"`
	MaxRequestsPer1Minute       *int64 `json:"max_requests_per_1_minute,omitempty"`
	MaxTokensPer1Minute         *int64 `json:"max_tokens_per_1_minute,omitempty"`
	MaxImagesPer1Minute         *int64 `json:"max_images_per_1_minute,omitempty"`
	MaxAudioMegabytesPer1Minute *int64 `json:"max_audio_megabytes_per_1_minute,omitempty"`
	MaxRequestsPer1Day          *int64 `json:"max_requests_per_1_day,omitempty"`
	Batch1DayMaxInputTokens     *int64 `json:"batch_1_day_max_input_tokens,omitempty"`
}
