package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// BackendTime 解析后端返回的时间戳。
// 后端可能返回带时区的 RFC3339、不带时区的 ISO8601（按 UTC 处理）或 "YYYY-MM-DD HH:MM:SS"。
type BackendTime time.Time

const localTimeFormat = "2006-01-02 15:04:05"

var backendTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	localTimeFormat,
}

// ParseBackendTime 依次尝试已知格式解析时间字符串。
func ParseBackendTime(v string) (time.Time, error) {
	for _, layout := range backendTimeLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", v)
}

// UnmarshalJSON implements the json.Unmarshaler interface.
func (t *BackendTime) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*t = BackendTime{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("timestamp must be a string: %w", err)
	}
	parsed, err := ParseBackendTime(s)
	if err != nil {
		return err
	}
	*t = BackendTime(parsed)
	return nil
}

// MarshalJSON implements the json.Marshaler interface.
func (t BackendTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Time(t).Format(time.RFC3339Nano))
}

// Time 返回标准库时间。
func (t BackendTime) Time() time.Time {
	return time.Time(t)
}
