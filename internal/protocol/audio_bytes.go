package protocol

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/kbukum/whisper-sidecar/errors"
)

// AudioBytes is raw audio sent inline. On the wire it is either an array
// of byte values (0-255) or a base64 string. An empty value decodes to nil.
type AudioBytes []byte

// UnmarshalJSON implements json.Unmarshaler.
func (b *AudioBytes) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*b = nil
		return nil
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return errors.InvalidInput("audio_data", "audio_data: "+err.Error())
		}
		decoded, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return errors.InvalidInput("audio_data", "audio_data: must be a byte array or base64 string")
		}
		*b = nonEmpty(decoded)
		return nil
	}

	var values []json.Number
	if err := json.Unmarshal(data, &values); err != nil {
		return errors.InvalidInput("audio_data", "audio_data: must be a byte array or base64 string")
	}
	out := make([]byte, len(values))
	for i, v := range values {
		n, err := v.Int64()
		if err != nil || n < 0 || n > 255 {
			return errors.InvalidInput("audio_data",
				fmt.Sprintf("audio_data[%d]: %s is not a byte value (0-255)", i, v.String()))
		}
		out[i] = byte(n)
	}
	*b = nonEmpty(out)
	return nil
}

func nonEmpty(b []byte) AudioBytes {
	if len(b) == 0 {
		return nil
	}
	return b
}
