package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ErrInvalid is returned by Parse for any catalog that does not match the
// expected shape.
var ErrInvalid = errors.New("catalog: invalid payload")

type Service struct {
	ID       int64    `json:"id"`
	Name     string   `json:"name"`
	Synonyms []string `json:"synonyms,omitempty"`
}

type Barber struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Catalog is the per-request snapshot of bookable services and barbers.
type Catalog struct {
	Services []Service `json:"services"`
	Barbers  []Barber  `json:"barbers"`
}

// Empty reports whether the catalog has nothing to resolve against.
func (c Catalog) Empty() bool {
	return len(c.Services) == 0 && len(c.Barbers) == 0
}

type serviceEntry struct {
	ID       *int64   `json:"id"`
	Name     string   `json:"name"`
	Synonyms []string `json:"synonyms"`
}

type barberEntry struct {
	ID   *int64 `json:"id"`
	Name string `json:"name"`
}

// Parse decodes raw. Members the catalog does not use (prices, durations)
// are ignored; wrong types, non-integer or missing ids, missing names and
// duplicate ids are rejected.
func Parse(raw []byte) (Catalog, error) {
	var wire struct {
		Services []serviceEntry `json:"services"`
		Barbers  []barberEntry  `json:"barbers"`
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	if err := dec.Decode(&wire); err != nil {
		return Catalog{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	var extra any
	if err := dec.Decode(&extra); err != io.EOF {
		return Catalog{}, fmt.Errorf("%w: unexpected trailing data", ErrInvalid)
	}

	var c Catalog
	seen := make(map[int64]struct{}, len(wire.Services))
	for i, s := range wire.Services {
		if s.ID == nil {
			return Catalog{}, fmt.Errorf("%w: service #%d has no id", ErrInvalid, i)
		}
		id := *s.ID
		if strings.TrimSpace(s.Name) == "" {
			return Catalog{}, fmt.Errorf("%w: service %d has no name", ErrInvalid, id)
		}
		if _, dup := seen[id]; dup {
			return Catalog{}, fmt.Errorf("%w: duplicate service id %d", ErrInvalid, id)
		}
		seen[id] = struct{}{}
		c.Services = append(c.Services, Service{ID: id, Name: s.Name, Synonyms: s.Synonyms})
	}

	seen = make(map[int64]struct{}, len(wire.Barbers))
	for i, b := range wire.Barbers {
		if b.ID == nil {
			return Catalog{}, fmt.Errorf("%w: barber #%d has no id", ErrInvalid, i)
		}
		id := *b.ID
		if strings.TrimSpace(b.Name) == "" {
			return Catalog{}, fmt.Errorf("%w: barber %d has no name", ErrInvalid, id)
		}
		if _, dup := seen[id]; dup {
			return Catalog{}, fmt.Errorf("%w: duplicate barber id %d", ErrInvalid, id)
		}
		seen[id] = struct{}{}
		c.Barbers = append(c.Barbers, Barber{ID: id, Name: b.Name})
	}

	return c, nil
}

// FromRequest is Parse with the request-level policy applied: a missing or
// invalid catalog yields the empty catalog.
func FromRequest(raw []byte) Catalog {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return Catalog{}
	}
	c, err := Parse(trimmed)
	if err != nil {
		return Catalog{}
	}
	return c
}

// Ref is a reference to a catalog entry as the model returned it: either a
// numeric id or a free-text name.
type Ref struct {
	ID     int64
	Name   string
	IsName bool
}

func IDRef(id int64) Ref       { return Ref{ID: id} }
func NameRef(name string) Ref { return Ref{Name: name, IsName: true} }

func (r Ref) String() string {
	if r.IsName {
		return r.Name
	}
	return strconv.FormatInt(r.ID, 10)
}

func (r Ref) MarshalJSON() ([]byte, error) {
	if r.IsName {
		return json.Marshal(r.Name)
	}
	return json.Marshal(r.ID)
}

// UnmarshalJSON accepts a JSON string or an integral JSON number.
func (r *Ref) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return errors.New("catalog: empty ref")
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*r = NameRef(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("catalog: ref must be integer or string, got %s", data)
	}
	if id, err := n.Int64(); err == nil {
		*r = IDRef(id)
		return nil
	}
	f, err := n.Float64()
	if err != nil || f != float64(int64(f)) {
		return fmt.Errorf("catalog: ref id must be an integer, got %s", data)
	}
	*r = IDRef(int64(f))
	return nil
}
