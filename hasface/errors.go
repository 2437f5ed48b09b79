package hasface

import (
	"errors"
	"sort"
)

// ErrorKind identifies a validation failure reported on an attribute.
type ErrorKind string

// NoFace is reported when no face could be found in the image.
const NoFace ErrorKind = "no_face"

// ErrDetectionFailed is returned when the detection API answers with a failure status.
var ErrDetectionFailed = errors.New("face detection failed")

var defaultMessages = map[ErrorKind]string{
	NoFace: "We couldn't see a face in your photo, try taking another one.",
}

// Message returns the default human readable message for kind.
func Message(kind ErrorKind) string {
	if msg, ok := defaultMessages[kind]; ok {
		return msg
	}
	return string(kind)
}

// ErrorAdder is implemented by records that collect attribute errors.
type ErrorAdder interface {
	AddError(attribute string, kind ErrorKind)
}

// Errors is an ordered attribute error registry. The zero value is ready to use.
type Errors struct {
	// Messages overrides the default message per kind.
	Messages map[ErrorKind]string

	order []string
	kinds map[string][]ErrorKind
}

// AddError records kind against attribute.
func (e *Errors) AddError(attribute string, kind ErrorKind) {
	if e.kinds == nil {
		e.kinds = make(map[string][]ErrorKind)
	}
	if _, seen := e.kinds[attribute]; !seen {
		e.order = append(e.order, attribute)
	}
	e.kinds[attribute] = append(e.kinds[attribute], kind)
}

// Kinds returns the kinds recorded against attribute.
func (e *Errors) Kinds(attribute string) []ErrorKind {
	return e.kinds[attribute]
}

// On returns the messages recorded against attribute, in insertion order.
func (e *Errors) On(attribute string) []string {
	kinds := e.kinds[attribute]
	if len(kinds) == 0 {
		return nil
	}
	messages := make([]string, 0, len(kinds))
	for _, kind := range kinds {
		messages = append(messages, e.message(kind))
	}
	return messages
}

// Attributes returns the attributes with errors in the order they were first added.
func (e *Errors) Attributes() []string {
	out := make([]string, len(e.order))
	copy(out, e.order)
	return out
}

// Map returns attribute to messages for every attribute with errors.
func (e *Errors) Map() map[string][]string {
	out := make(map[string][]string, len(e.kinds))
	for attribute := range e.kinds {
		out[attribute] = e.On(attribute)
	}
	return out
}

// Len returns the total number of recorded errors.
func (e *Errors) Len() int {
	total := 0
	for _, kinds := range e.kinds {
		total += len(kinds)
	}
	return total
}

// Empty reports whether no errors were recorded.
func (e *Errors) Empty() bool {
	return e.Len() == 0
}

// FullMessages returns "attribute message" strings sorted by attribute.
func (e *Errors) FullMessages() []string {
	attributes := e.Attributes()
	sort.Strings(attributes)
	var out []string
	for _, attribute := range attributes {
		for _, msg := range e.On(attribute) {
			out = append(out, attribute+" "+msg)
		}
	}
	return out
}

func (e *Errors) message(kind ErrorKind) string {
	if msg, ok := e.Messages[kind]; ok {
		return msg
	}
	return Message(kind)
}
