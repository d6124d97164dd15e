// Package protocol implements the sidecar's wire format: one JSON request
// object per input line, one JSON response object per output line.
package protocol

import (
	"bytes"
	"encoding/json"
	stderrors "errors"

	"github.com/kbukum/whisper-sidecar/errors"
	"github.com/kbukum/whisper-sidecar/validation"
)

// Actions understood by the sidecar.
const (
	ActionTranscribe     = "transcribe"
	ActionTranscribeFile = "transcribe_file"
	ActionPing           = "ping"
)

// DefaultModel is used when a request names no model.
const DefaultModel = "tiny"

// Request is a decoded request line. Exactly one payload is set for the
// transcription actions; ping carries none.
type Request struct {
	Action         string
	Transcribe     *TranscribeRequest
	TranscribeFile *TranscribeFileRequest
}

// TranscribeRequest carries raw audio bytes.
type TranscribeRequest struct {
	AudioData AudioBytes `json:"audio_data" validate:"required"`
	Model     string     `json:"model" validate:"oneof=tiny base small medium large"`
}

// TranscribeFileRequest names an audio file on the local filesystem.
type TranscribeFileRequest struct {
	AudioFile string `json:"audio_file" validate:"required"`
	Model     string `json:"model" validate:"oneof=tiny base small medium large"`
}

// Decode parses one request line. Every failure is an *errors.AppError
// whose Message is the response text.
func Decode(line []byte) (*Request, error) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return nil, errors.InvalidJSON(stderrors.New("empty line"))
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(line, &fields); err != nil {
		return nil, errors.InvalidJSON(err)
	}
	if fields == nil {
		return nil, errors.InvalidJSON(stderrors.New("request is null"))
	}

	rawAction, ok := fields["action"]
	if !ok {
		return nil, errors.UnknownAction("")
	}
	var action string
	if len(rawAction) == 0 || rawAction[0] != '"' {
		return nil, errors.UnknownAction(string(rawAction))
	}
	if err := json.Unmarshal(rawAction, &action); err != nil {
		return nil, errors.UnknownAction(string(rawAction))
	}

	req := &Request{Action: action}
	switch action {
	case ActionTranscribe:
		var payload TranscribeRequest
		if err := decodePayload(line, &payload, &payload.Model); err != nil {
			return nil, err
		}
		req.Transcribe = &payload
	case ActionTranscribeFile:
		var payload TranscribeFileRequest
		if err := decodePayload(line, &payload, &payload.Model); err != nil {
			return nil, err
		}
		req.TranscribeFile = &payload
	case ActionPing:
	default:
		return nil, errors.UnknownAction(action)
	}
	return req, nil
}

// decodePayload unmarshals line into payload, defaults the model and
// validates the result.
func decodePayload(line []byte, payload any, model *string) error {
	if err := json.Unmarshal(line, payload); err != nil {
		if appErr, ok := errors.AsAppError(err); ok {
			return appErr
		}
		var typeErr *json.UnmarshalTypeError
		if stderrors.As(err, &typeErr) {
			return errors.InvalidInput(typeErr.Field, typeErr.Field+": must be a "+typeErr.Type.String())
		}
		return errors.InvalidJSON(err)
	}
	if *model == "" {
		*model = DefaultModel
	}
	return validation.Validate(payload)
}
