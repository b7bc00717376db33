package domain

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

var jsonNull = []byte("null")

// FlexString decodes from a JSON string or number. Phase ids are often
// written as bare numbers ("id": 1).
type FlexString string

func (s *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, jsonNull) {
		*s = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = FlexString(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*s = FlexString(n.String())
	return nil
}

func (s FlexString) String() string { return string(s) }

// Days is a whole number of calendar days. Numeric strings are accepted;
// anything else decodes as 0.
type Days int

func (d *Days) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, jsonNull) {
		*d = 0
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err == nil {
		*d = Days(int(f))
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		*d = 0
		return nil
	}
	*d = Days(int(f))
	return nil
}

// Marker records whether an optional field was present with a truthy value
// (non-empty string, true, non-zero number, object or array).
type Marker struct {
	Set   bool
	Value string
}

func (m *Marker) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*m = Marker{}
	switch {
	case len(data) == 0, bytes.Equal(data, jsonNull), bytes.Equal(data, []byte("false")):
		return nil
	case bytes.Equal(data, []byte("true")):
		m.Set = true
		return nil
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		m.Set = s != ""
		m.Value = s
		return nil
	case data[0] == '{' || data[0] == '[':
		m.Set = true
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	m.Set = f != 0
	m.Value = string(data)
	return nil
}

func (m Marker) MarshalJSON() ([]byte, error) {
	if !m.Set {
		return jsonNull, nil
	}
	if m.Value == "" {
		return []byte("true"), nil
	}
	return json.Marshal(m.Value)
}

// Estimate is one strategic viability component. Older documents store a
// bare number, newer ones {valor, just}; maturidade and fase are optional.
type Estimate struct {
	Valor      float64  `json:"valor"`
	Just       string   `json:"just,omitempty"`
	Maturidade *float64 `json:"maturidade,omitempty"`
	Fase       string   `json:"fase,omitempty"`
}

func (e *Estimate) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*e = Estimate{}
	if bytes.Equal(data, jsonNull) {
		return nil
	}
	if len(data) > 0 && data[0] != '{' {
		return json.Unmarshal(data, &e.Valor)
	}
	type plain Estimate
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*e = Estimate(p)
	return nil
}

// Tolerance is either a bare fraction or an object carrying the rationale.
type Tolerance struct {
	Valor            float64 `json:"valor"`
	MemoriaDeCalculo string  `json:"memoriaDeCalculo,omitempty"`
	Resumo           string  `json:"resumo,omitempty"`
	Bare             bool    `json:"-"`
}

func (t *Tolerance) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*t = Tolerance{}
	if bytes.Equal(data, jsonNull) {
		return nil
	}
	if len(data) > 0 && data[0] != '{' {
		if err := json.Unmarshal(data, &t.Valor); err != nil {
			return err
		}
		t.Bare = true
		return nil
	}
	type plain Tolerance
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*t = Tolerance(p)
	return nil
}
