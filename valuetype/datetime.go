/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package valuetype

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-openapi/strfmt"
	errs "github.com/suparena/entitymapper/errors"
)

// Datetime formats understood besides Go layouts.
const (
	FormatUnix    = "U"
	FormatRFC3339 = "c"
)

// fallbackLayouts are tried when a value does not match the attribute format.
var fallbackLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05-0700",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Datetime holds time.Time values.
type Datetime struct{ Common }

func (d Datetime) Normalize(value any, attr Attribute) (any, error) {
	switch v := value.(type) {
	case time.Time:
		return v, nil
	case *time.Time:
		if v == nil {
			return nil, nil
		}
		return *v, nil
	case strfmt.DateTime:
		return time.Time(v), nil
	case string:
		if strings.EqualFold(strings.TrimSpace(v), "now") {
			return time.Now(), nil
		}
		if attr.Format == FormatUnix {
			return parseUnix(v)
		}
		return parseTime(v, attr)
	case int, int32, int64, float64, json.Number:
		if attr.Format != FormatUnix {
			return nil, errs.NewValidationError("", fmt.Sprintf("unexpected datetime value %v for format %q", v, layout(attr)))
		}
		return unixTime(v)
	}
	return nil, errs.NewValidationError("", fmt.Sprintf("unexpected datetime value of type %T", value))
}

func (d Datetime) Store(value any, attr Attribute) (any, error) {
	if value == nil {
		return nil, nil
	}
	t, ok := value.(time.Time)
	if !ok {
		n, err := d.Normalize(value, attr)
		if err != nil {
			return nil, err
		}
		t = n.(time.Time)
	}
	if attr.Format == FormatUnix {
		return t.Unix(), nil
	}
	return t.Format(layout(attr)), nil
}

// Restore accepts formatted strings as well as unix timestamps.
func (d Datetime) Restore(value any, attr Attribute) (any, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case time.Time:
		return v, nil
	case []byte:
		return d.Restore(string(v), attr)
	case string:
		if attr.Format == FormatUnix {
			return parseUnix(v)
		}
		return parseTime(v, attr)
	case int, int32, int64, float64, json.Number:
		return unixTime(v)
	}
	return nil, errs.NewValidationError("", fmt.Sprintf("unexpected datetime value of type %T", value))
}

// DefaultValue resolves "now" at call time.
func (d Datetime) DefaultValue(attr Attribute) any {
	if attr.Default == nil {
		return nil
	}
	v, err := d.Normalize(attr.Default, attr)
	if err != nil {
		return nil
	}
	return v
}

func (d Datetime) ToJSON(value any, attr Attribute) any {
	t, ok := value.(time.Time)
	if !ok {
		return value
	}
	if attr.Format == FormatUnix {
		return t.Unix()
	}
	return t.Format(layout(attr))
}

func layout(attr Attribute) string {
	if attr.Format == "" || attr.Format == FormatRFC3339 {
		return time.RFC3339
	}
	return attr.Format
}

func parseTime(s string, attr Attribute) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(layout(attr), s); err == nil {
		return t, nil
	}
	if dt, err := strfmt.ParseDateTime(s); err == nil {
		return time.Time(dt), nil
	}
	for _, l := range fallbackLayouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errs.NewValidationError("", fmt.Sprintf("unexpected datetime value %q", s))
}

func parseUnix(s string) (time.Time, error) {
	sec, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return time.Time{}, errs.NewValidationError("", fmt.Sprintf("unexpected unix timestamp %q", s))
	}
	return time.Unix(sec, 0), nil
}

func unixTime(value any) (time.Time, error) {
	sec, err := toInt64(value)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(sec, 0), nil
}
