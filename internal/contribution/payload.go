package contribution

import (
	"encoding/json"
	"strings"

	"gorm.io/datatypes"

	"github.com/lingocrowd/contribution_control/internal/apperr"
	"github.com/lingocrowd/contribution_control/internal/task"
)

// requiredPayloadField is the minimal shape the core checks per task type.
// Everything else in a payload is kept as sent.
func requiredPayloadField(t task.Type) (string, error) {
	switch t {
	case task.TypeTranslation:
		return "translation_text", nil
	case task.TypeTTS:
		return "audio_url", nil
	case task.TypeTranscription:
		return "transcript_text", nil
	case task.TypeASR:
		return "audio_url", nil
	default:
		return "", apperr.Schema("unknown task type: %q", t)
	}
}

// ValidatePayload checks raw against the minimal shape for t.
func ValidatePayload(t task.Type, raw []byte) (datatypes.JSON, error) {
	field, err := requiredPayloadField(t)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, apperr.Schema("missing required field: %s", field)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, apperr.Schema("payload must be a json object")
	}

	value, ok := fields[field]
	if !ok {
		return nil, apperr.Schema("missing required field: %s", field)
	}
	var text string
	if err := json.Unmarshal(value, &text); err != nil {
		return nil, apperr.Schema("invalid field: %s", field)
	}
	if strings.TrimSpace(text) == "" {
		return nil, apperr.Schema("missing required field: %s", field)
	}

	return datatypes.JSON(raw), nil
}
