package task

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lingocrowd/contribution_control/internal/apperr"
)

func TestDecodeContent(t *testing.T) {
	tests := []struct {
		name    string
		typ     Type
		raw     string
		wantErr string
	}{
		{
			name: "translation",
			typ:  TypeTranslation,
			raw:  `{"source_text":"Hello","source_language":"en"}`,
		},
		{
			name:    "translation without source text",
			typ:     TypeTranslation,
			raw:     `{"source_text":"   ","source_language":"en"}`,
			wantErr: "missing required field: source_text",
		},
		{
			name:    "translation without source language",
			typ:     TypeTranslation,
			raw:     `{"source_text":"Hello"}`,
			wantErr: "missing required field: source_language",
		},
		{
			name: "tts alias",
			typ:  TypeTTS,
			raw:  `{"text_to_speak":"Read me"}`,
		},
		{
			name:    "tts empty",
			typ:     TypeTTS,
			raw:     `{}`,
			wantErr: "missing required field: text_prompt",
		},
		{
			name: "transcription",
			typ:  TypeTranscription,
			raw:  `{"audio_url":"https://a/b.mp3"}`,
		},
		{
			name:    "asr needs description",
			typ:     TypeASR,
			raw:     `{"task_title":"Market"}`,
			wantErr: "missing required field: task_description",
		},
		{
			name:    "not an object",
			typ:     TypeASR,
			raw:     `[1,2]`,
			wantErr: "invalid content for asr",
		},
		{
			name:    "unknown type",
			typ:     Type("ocr"),
			raw:     `{}`,
			wantErr: "unknown task type",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			content, err := DecodeContent(tt.typ, []byte(tt.raw))
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.ErrorIs(t, err, apperr.ErrSchema)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.typ, content.TaskType())
		})
	}
}

func TestDecodeContent_TTSAliasFillsPrompt(t *testing.T) {
	content, err := DecodeContent(TypeTTS, []byte(`{"text_to_speak":"  Read me  "}`))
	require.NoError(t, err)

	tts, ok := content.(*TTSContent)
	require.True(t, ok)
	assert.Equal(t, "Read me", tts.TextPrompt)
}

func TestValidateContent_TypeMismatch(t *testing.T) {
	err := ValidateContent(TypeTTS, &TranslationContent{SourceText: "a", SourceLanguage: "en"})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrSchema)
}

func TestNewTask(t *testing.T) {
	creator := uuid.New()

	created, err := NewTask(CreateTaskInput{
		Type:      TypeTranslation,
		Language:  " sw ",
		Content:   &TranslationContent{SourceText: "Hello", SourceLanguage: "en"},
		CreatorID: creator,
	})
	require.NoError(t, err)
	assert.Equal(t, StatusPending, created.Status)
	assert.Equal(t, PriorityMedium, created.Priority)
	assert.Equal(t, "sw", created.Language)
	assert.Nil(t, created.AssigneeID)
	assert.NotEqual(t, uuid.Nil, created.ID)

	payload, err := created.Payload()
	require.NoError(t, err)
	assert.Equal(t, "en", SourceLanguage(payload))

	_, err = NewTask(CreateTaskInput{
		Type:      TypeTranslation,
		Content:   &TranslationContent{SourceText: "Hello", SourceLanguage: "en"},
		CreatorID: creator,
	})
	assert.ErrorIs(t, err, apperr.ErrSchema)

	_, err = NewTask(CreateTaskInput{
		Type:      TypeTTS,
		Language:  "sw",
		Priority:  Priority("urgent"),
		Content:   &TTSContent{TextPrompt: "x"},
		CreatorID: creator,
	})
	assert.ErrorIs(t, err, apperr.ErrSchema)
}
