package entity

import (
	"context"
	"fmt"
	"reflect"
	"time"

	"gorm.io/gorm/schema"
)

// InstantLayout is the fixed-width UTC ISO-8601 layout used for every persisted
// timestamp. Fixed width keeps lexical order equal to chronological order, so
// range queries compare plain text.
const InstantLayout = "2006-01-02T15:04:05.000000000Z"

// FormatInstant renders t in UTC using InstantLayout.
func FormatInstant(t time.Time) string {
	return t.UTC().Format(InstantLayout)
}

// ParseInstant parses a persisted timestamp. RFC 3339 values written by older builds are accepted too.
func ParseInstant(value string) (time.Time, error) {
	t, err := time.Parse(InstantLayout, value)
	if err == nil {
		return t.UTC(), nil
	}
	t, errRFC := time.Parse(time.RFC3339Nano, value)
	if errRFC != nil {
		return time.Time{}, fmt.Errorf("parse instant %q: %w", value, err)
	}
	return t.UTC(), nil
}

// InstantSerializer stores time.Time fields as InstantLayout text.
type InstantSerializer struct{}

func init() {
	schema.RegisterSerializer("instant", InstantSerializer{})
}

func (InstantSerializer) Scan(ctx context.Context, field *schema.Field, dst reflect.Value, dbValue interface{}) error {
	var t time.Time
	switch v := dbValue.(type) {
	case nil:
	case string:
		parsed, err := ParseInstant(v)
		if err != nil {
			return err
		}
		t = parsed
	case []byte:
		parsed, err := ParseInstant(string(v))
		if err != nil {
			return err
		}
		t = parsed
	case time.Time:
		t = v.UTC()
	default:
		return fmt.Errorf("cannot scan %T into instant", dbValue)
	}
	field.ReflectValueOf(ctx, dst).Set(reflect.ValueOf(t))
	return nil
}

func (InstantSerializer) Value(_ context.Context, _ *schema.Field, _ reflect.Value, fieldValue interface{}) (interface{}, error) {
	switch v := fieldValue.(type) {
	case time.Time:
		return FormatInstant(v), nil
	case *time.Time:
		if v == nil {
			return nil, nil
		}
		return FormatInstant(*v), nil
	default:
		return nil, fmt.Errorf("cannot store %T as instant", fieldValue)
	}
}
