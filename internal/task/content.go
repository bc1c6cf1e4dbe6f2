package task

import (
	"encoding/json"
	"strings"

	"gorm.io/datatypes"

	"github.com/lingocrowd/contribution_control/internal/apperr"
	"github.com/lingocrowd/contribution_control/internal/schema"
)

// Content is the type specific payload of a task. The set of implementations
// is closed: one record per task type.
type Content interface {
	TaskType() Type
	normalize()
}

type TranslationContent struct {
	SourceText      string `json:"source_text" validate:"notblank"`
	SourceLanguage  string `json:"source_language" validate:"notblank"`
	TargetLanguage  string `json:"target_language,omitempty"`
	Domain          string `json:"domain,omitempty"`
	TaskTitle       string `json:"task_title,omitempty"`
	TaskDescription string `json:"task_description,omitempty"`
}

type TTSContent struct {
	TextPrompt      string `json:"text_prompt" validate:"notblank"`
	TaskTitle       string `json:"task_title,omitempty"`
	TaskDescription string `json:"task_description,omitempty"`
}

type TranscriptionContent struct {
	AudioURL        string `json:"audio_url" validate:"notblank"`
	FileName        string `json:"file_name,omitempty"`
	TaskTitle       string `json:"task_title,omitempty"`
	TaskDescription string `json:"task_description,omitempty"`
}

// ASRContent describes a recording task. Pipeline transcription tasks are
// created as ASR and carry the transcription prompt for the later step.
type ASRContent struct {
	TaskTitle           string `json:"task_title" validate:"notblank"`
	TaskDescription     string `json:"task_description" validate:"notblank"`
	ImageURL            string `json:"image_url,omitempty"`
	FileName            string `json:"file_name,omitempty"`
	TranscriptionPrompt string `json:"transcription_prompt,omitempty"`
}

func (*TranslationContent) TaskType() Type   { return TypeTranslation }
func (*TTSContent) TaskType() Type           { return TypeTTS }
func (*TranscriptionContent) TaskType() Type { return TypeTranscription }
func (*ASRContent) TaskType() Type           { return TypeASR }

func (c *TranslationContent) normalize() {
	c.SourceText = strings.TrimSpace(c.SourceText)
	c.SourceLanguage = strings.TrimSpace(c.SourceLanguage)
	c.TargetLanguage = strings.TrimSpace(c.TargetLanguage)
	c.Domain = strings.TrimSpace(c.Domain)
	c.TaskTitle = strings.TrimSpace(c.TaskTitle)
	c.TaskDescription = strings.TrimSpace(c.TaskDescription)
}

func (c *TTSContent) normalize() {
	c.TextPrompt = strings.TrimSpace(c.TextPrompt)
	c.TaskTitle = strings.TrimSpace(c.TaskTitle)
	c.TaskDescription = strings.TrimSpace(c.TaskDescription)
}

func (c *TranscriptionContent) normalize() {
	c.AudioURL = strings.TrimSpace(c.AudioURL)
	c.TaskTitle = strings.TrimSpace(c.TaskTitle)
	c.TaskDescription = strings.TrimSpace(c.TaskDescription)
}

func (c *ASRContent) normalize() {
	c.TaskTitle = strings.TrimSpace(c.TaskTitle)
	c.TaskDescription = strings.TrimSpace(c.TaskDescription)
	c.ImageURL = strings.TrimSpace(c.ImageURL)
	c.TranscriptionPrompt = strings.TrimSpace(c.TranscriptionPrompt)
}

// UnmarshalJSON accepts text_to_speak as an alias of text_prompt.
func (c *TTSContent) UnmarshalJSON(data []byte) error {
	type plain TTSContent
	var aux struct {
		plain
		TextToSpeak string `json:"text_to_speak"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*c = TTSContent(aux.plain)
	if strings.TrimSpace(c.TextPrompt) == "" {
		c.TextPrompt = aux.TextToSpeak
	}
	return nil
}

// NewContent returns an empty record for t.
func NewContent(t Type) (Content, error) {
	switch t {
	case TypeTranslation:
		return &TranslationContent{}, nil
	case TypeTTS:
		return &TTSContent{}, nil
	case TypeTranscription:
		return &TranscriptionContent{}, nil
	case TypeASR:
		return &ASRContent{}, nil
	default:
		return nil, apperr.Schema("unknown task type: %q", t)
	}
}

// DecodeContent parses raw JSON into the record for t and validates it.
func DecodeContent(t Type, raw []byte) (Content, error) {
	content, err := NewContent(t)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, apperr.Schema("content is required")
	}
	if err := json.Unmarshal(raw, content); err != nil {
		return nil, apperr.Schema("invalid content for %s: %v", t, err)
	}
	if err := ValidateContent(t, content); err != nil {
		return nil, err
	}
	return content, nil
}

// ValidateContent checks that c is the record for t and holds its required fields.
func ValidateContent(t Type, c Content) error {
	if c == nil {
		return apperr.Schema("content is required")
	}
	if c.TaskType() != t {
		return apperr.Schema("content of type %s does not match task type %s", c.TaskType(), t)
	}
	c.normalize()
	return schema.Struct(c)
}

func encodeContent(c Content) (datatypes.JSON, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(data), nil
}

// SourceLanguage returns the source language of c; only translations have one.
func SourceLanguage(c Content) string {
	switch v := c.(type) {
	case *TranslationContent:
		return v.SourceLanguage
	case *TTSContent, *TranscriptionContent, *ASRContent:
		return ""
	}
	return ""
}
