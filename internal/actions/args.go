package actions

import (
	"encoding/json"
	"strconv"
	"strings"
)

// FlexString decodes a JSON string or number into a string. Agent
// callers routinely send checklist ids and indices as bare numbers.
type FlexString string

func (f *FlexString) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		*f = ""
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*f = FlexString(v)
		return nil
	}
	*f = FlexString(s)
	return nil
}

// FlexInt decodes a JSON number or numeric string into an int. The
// second field reports whether a usable number arrived; garbage input
// degrades to unset instead of failing the call.
type FlexInt struct {
	N  int
	OK bool
}

func (f *FlexInt) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(strings.Trim(string(b), `"`))
	if s == "" || s == "null" {
		*f = FlexInt{}
		return nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		*f = FlexInt{N: n, OK: true}
		return nil
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		*f = FlexInt{N: int(v), OK: true}
		return nil
	}
	*f = FlexInt{}
	return nil
}
