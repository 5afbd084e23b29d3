package validator

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	playground "github.com/go-playground/validator/v10"

	"github.com/vinylhub/eventsync/internal/domain/common/errorz"
	"github.com/vinylhub/eventsync/internal/domain/dto"
	"github.com/vinylhub/eventsync/internal/domain/entity"
	"github.com/vinylhub/eventsync/internal/domain/utils/location"
)

// validate is safe for concurrent use and caches struct metadata.
var validate = newValidate()

func newValidate() *playground.Validate {
	v := playground.New()
	_ = v.RegisterValidation("event_type", func(fl playground.FieldLevel) bool {
		return entity.EventType(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("timezone_tag", func(fl playground.FieldLevel) bool {
		return location.Known(fl.Field().String())
	})
	return v
}

// EventInput checks a create request and returns the UTC instant of the event.
// Events that start before now are rejected; an event exactly at now is accepted.
func EventInput(input dto.EventInput, now time.Time) (time.Time, error) {
	input.Title = strings.TrimSpace(input.Title)
	input.Timezone = strings.TrimSpace(input.Timezone)
	if input.Title == "" {
		return time.Time{}, errorz.Invalid("title", "must not be empty")
	}
	if err := validate.Struct(input); err != nil {
		return time.Time{}, translate(err)
	}
	instant, err := location.ToUTC(input.LocalTime, input.Timezone)
	if err != nil {
		return time.Time{}, errorz.Invalid("timezone", err.Error())
	}
	if instant.Before(now) {
		return time.Time{}, errorz.Invalid("event_date_time", "must not be in the past")
	}
	return instant, nil
}

// EventTime checks an updated event time. Unlike create, moving an event into the past
// is allowed when the time did not change.
func EventTime(instant, previous, now time.Time) error {
	if instant.Equal(previous) {
		return nil
	}
	if instant.Before(now) {
		return errorz.Invalid("event_date_time", "must not be in the past")
	}
	return nil
}

// Title checks a replacement title.
func Title(title string) error {
	if strings.TrimSpace(title) == "" {
		return errorz.Invalid("title", "must not be empty")
	}
	return nil
}

// EventType checks a replacement type.
func EventType(t entity.EventType) error {
	if !t.Valid() {
		return errorz.Invalid("event_type", fmt.Sprintf("unknown type %q", t))
	}
	return nil
}

// Timezone checks a replacement timezone tag.
func Timezone(tag string) error {
	if !location.Known(tag) {
		return errorz.Invalid("timezone", fmt.Sprintf("unknown timezone %q", tag))
	}
	return nil
}

// SearchQuery trims q and rejects an empty query.
func SearchQuery(q string) (string, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return "", errorz.Invalid("query", "must not be empty")
	}
	return q, nil
}

func translate(err error) error {
	var fieldErrs playground.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return errorz.Invalid("event", err.Error())
	}
	fe := fieldErrs[0]
	field := toSnake(fe.Field())
	switch fe.Tag() {
	case "required":
		return errorz.Invalid(field, "is required")
	case "max":
		return errorz.Invalid(field, fmt.Sprintf("must be at most %s characters", fe.Param()))
	case "event_type":
		return errorz.Invalid(field, fmt.Sprintf("unknown type %q", fe.Value()))
	case "timezone_tag":
		return errorz.Invalid("timezone", fmt.Sprintf("unknown timezone %q", fe.Value()))
	case "url":
		return errorz.Invalid(field, "must be a valid URL")
	default:
		return errorz.Invalid(field, fe.Tag())
	}
}

func toSnake(name string) string {
	runes := []rune(name)
	var b strings.Builder
	for i, r := range runes {
		if !unicode.IsUpper(r) {
			b.WriteRune(r)
			continue
		}
		if i > 0 {
			prevLower := unicode.IsLower(runes[i-1])
			acronymEnd := unicode.IsUpper(runes[i-1]) && i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if prevLower || acronymEnd {
				b.WriteByte('_')
			}
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}
