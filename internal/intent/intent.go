package intent

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/ccastromar/barberchat/internal/catalog"
)

// ErrInvalid wraps every rejection of a planner response.
var ErrInvalid = errors.New("intent: invalid planner response")

type Kind string

const (
	CreateAppointment  Kind = "create_appointment"
	GetNextAppointment Kind = "get_next_appointment"
	SearchServices     Kind = "search_services"
	SmallTalk          Kind = "small_talk"
)

// Kinds lists every intent the planner may return, in prompt order.
var Kinds = []Kind{CreateAppointment, GetNextAppointment, SearchServices, SmallTalk}

// Business reports whether k asks for a booking action rather than chat.
func (k Kind) Business() bool {
	return k == CreateAppointment || k == GetNextAppointment || k == SearchServices
}

type Args struct {
	Barber          *catalog.Ref  `json:"barber"`
	AppointmentDate *string       `json:"appointment_date"`
	StartTime       *string       `json:"start_time"`
	EndTime         *string       `json:"end_time"`
	Services        []catalog.Ref `json:"services"`
}

type Result struct {
	Intent Kind `json:"intent"`
	Args   Args `json:"args"`
}

//go:embed schema.json
var schemaSource string

var schema = jsonschema.MustCompileString("intent.json", schemaSource)

// Parse validates the text of a planner response. The text must be a
// single JSON object; code fences must already be stripped.
func Parse(text string) (*Result, error) {
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	var extra any
	if err := dec.Decode(&extra); err != io.EOF {
		return nil, fmt.Errorf("%w: unexpected trailing data", ErrInvalid)
	}
	return Validate(v)
}

// Validate checks an already decoded JSON value against the planner
// schema and converts it to a Result. It never returns a partial result.
func Validate(v any) (*Result, error) {
	if err := schema.Validate(v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	var out Result
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if out.Args.Services == nil {
		out.Args.Services = []catalog.Ref{}
	}
	return &out, nil
}
