package domain

import (
	"context"
	"errors"
)

type Service interface {
	List(ctx context.Context, projectID string, limit int) ([]RateLimit, error)
	Update(ctx context.Context, req UpdateRequest) (*RateLimit, error)
}

// UpdateRequest carries the limits to change; nil fields are left as is.
type UpdateRequest struct {
	ProjectID   string
	RateLimitID string

	MaxRequestsPer1Minute       *int64
	MaxTokensPer1Minute         *int64
	MaxImagesPer1Minute         *int64
	MaxAudioMegabytesPer1Minute *int64
	MaxRequestsPer1Day          *int64
	Batch1DayMaxInputTokens     *int64
}

// Body returns the fields that are set, keyed by their wire names.
func (r UpdateRequest) Body() map[string]int64 {
	body := map[string]int64{}
	set := func(key string, v *int64) {
		if v != nil {
			body[key] = *v
		}
	}
	set("max_requests_per_1_minute", r.MaxRequestsPer1Minute)
	set("max_tokens_per_1_minute", r.MaxTokensPer1Minute)
	set("max_images_per_1_minute", r.MaxImagesPer1Minute)
	set("max_audio_megabytes_per_1_minute", r.MaxAudioMegabytesPer1Minute)
	set("max_requests_per_1_day", r.MaxRequestsPer1Day)
	set("batch_1_day_max_input_tokens", r.Batch1DayMaxInputTokens)
	return body
}

// FromRateLimit copies every limit present on rl into an update for target.
func FromRateLimit(projectID, rateLimitID string, rl RateLimit) UpdateRequest {
	return UpdateRequest{
		ProjectID:                   projectID,
		RateLimitID:                 rateLimitID,
		MaxRequestsPer1Minute:       rl.MaxRequestsPer1Minute,
		MaxTokensPer1Minute:         rl.MaxTokensPer1Minute,
		MaxImagesPer1Minute:         rl.MaxImagesPer1Minute,
		MaxAudioMegabytesPer1Minute: rl.MaxAudioMegabytesPer1Minute,
		MaxRequestsPer1Day:          rl.MaxRequestsPer1Day,
		Batch1DayMaxInputTokens:     rl.Batch1DayMaxInputTokens,
	}
}

var (
	ErrInvalidProjectID   = errors.New("invalid_project_id")
	ErrInvalidRateLimitID = errors.New("invalid_rate_limit_id")
	ErrNoFields           = errors.New("at least one limit must be set")
	ErrNegativeLimit      = errors.New("limits must not be negative")
)
