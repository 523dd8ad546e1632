package ink

import (
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/segmentio/encoding/json"
)

// Operation kinds routed through the replication substrate.
const (
	OpCreateStroke = "create_stroke"
	OpStylus       = "stylus"
	OpEraseStrokes = "erase_strokes"
	OpClear        = "clear"
)

// Error types tagged on ink errors.
const (
	ErrTypeStrokeNotFound   = "stroke_not_found"
	ErrTypeUnknownOperation = "unknown_operation"
	ErrTypeEncodingFailed   = "encoding_failed"
)

// Operation is the envelope for a document mutation. One kind is set at a
// time; fields unused by a kind stay empty on the wire.
type Operation struct {
	Kind      string   `json:"op"`
	StrokeID  string   `json:"stroke_id,omitempty"`
	Pen       *Pen     `json:"pen,omitempty"`
	Point     *Point   `json:"point,omitempty"`
	StrokeIDs []string `json:"stroke_ids,omitempty"`
}

func EncodeOperation(op Operation) ([]byte, error) {
	b, err := json.Marshal(op)
	if err != nil {
		return nil, errors.New("encoding operation failed").
			WithType(ErrTypeEncodingFailed).
			WithTag("op_kind", op.Kind).
			Wrap(err)
	}
	return b, nil
}

func DecodeOperation(b []byte) (Operation, error) {
	var op Operation
	if err := json.Unmarshal(b, &op); err != nil {
		return Operation{}, errors.New("decoding operation failed").
			WithType(ErrTypeEncodingFailed).
			Wrap(err)
	}
	return op, nil
}
