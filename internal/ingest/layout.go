package ingest

import (
	"strings"

	"github.com/lingocrowd/contribution_control/internal/apperr"
	"github.com/lingocrowd/contribution_control/internal/task"
)

// layout is the tabular shape of one task type. Each required group lists
// accepted aliases, canonical name first.
type layout struct {
	required [][]string
	optional []string
	example  map[string]string
}

func (l layout) columns() []string {
	cols := make([]string, 0, len(l.required)+len(l.optional))
	for _, group := range l.required {
		cols = append(cols, group[0])
	}
	return append(cols, l.optional...)
}

func layoutFor(t task.Type, mode Mode) (layout, error) {
	switch t {
	case task.TypeTranslation:
		return layout{
			required: [][]string{{"source_text"}},
			optional: []string{"source_language", "target_language", "domain", "task_title", "task_description"},
			example: map[string]string{
				"source_text":      "Good morning, how are you?",
				"source_language":  "en",
				"target_language":  "sw",
				"domain":           "greetings",
				"task_title":       "Translate a greeting",
				"task_description": "Translate the sentence keeping a friendly tone.",
			},
		}, nil
	case task.TypeTTS:
		return layout{
			required: [][]string{{"text_prompt", "text_to_speak"}},
			optional: []string{"task_title", "task_description", "language"},
			example: map[string]string{
				"text_prompt":      "The market opens at eight in the morning.",
				"task_title":       "Read a sentence",
				"task_description": "Read the sentence aloud at a natural pace.",
				"language":         "sw",
			},
		}, nil
	case task.TypeTranscription:
		if mode == ModePipeline {
			return layout{
				required: [][]string{{"task_title"}},
				optional: []string{"task_description", "transcription_prompt", "image_url", "language"},
				example: map[string]string{
					"task_title":           "Describe your morning",
					"task_description":     "Record a short description of your morning routine.",
					"transcription_prompt": "Transcribe the recording word for word.",
					"language":             "sw",
				},
			}, nil
		}
		return layout{
			required: [][]string{{"audio_url"}},
			optional: []string{"file_name", "task_title", "task_description", "language"},
			example: map[string]string{
				"audio_url":        "https://assets.example.org/audio/sample.mp3",
				"file_name":        "sample.mp3",
				"task_title":       "Transcribe a clip",
				"task_description": "Write down exactly what is said.",
				"language":         "sw",
			},
		}, nil
	case task.TypeASR:
		return layout{}, apperr.Schema("asr tasks are ingested from image archives")
	default:
		return layout{}, apperr.Schema("unknown task type: %q", t)
	}
}

// normalizeHeader maps "Source Text " and "source-text" to "source_text".
func normalizeHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	h = strings.ToLower(strings.TrimSpace(h))
	h = strings.NewReplacer(" ", "_", "-", "_").Replace(h)
	return h
}

// checkHeaders rejects a table missing any required group.
func checkHeaders(l layout, headers []string) error {
	present := make(map[string]bool, len(headers))
	for _, h := range headers {
		present[h] = true
	}
	for _, group := range l.required {
		found := false
		for _, alias := range group {
			if present[alias] {
				found = true
				break
			}
		}
		if !found {
			return apperr.Schema("missing required header: %s", group[0])
		}
	}
	return nil
}

const defaultRecordingDescription = "Record yourself speaking about the topic in the title."

type row map[string]string

// get returns the first non-blank value among names.
func (r row) get(names ...string) string {
	for _, name := range names {
		if v := strings.TrimSpace(r[name]); v != "" {
			return v
		}
	}
	return ""
}

func (r row) blank() bool {
	for _, v := range r {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func orDefault(v, fallback string) string {
	if v != "" {
		return v
	}
	return strings.TrimSpace(fallback)
}

// rowTask maps one row to the task type, language and content it creates.
func rowTask(t task.Type, mode Mode, r row, d Defaults) (task.Type, string, task.Content, error) {
	switch t {
	case task.TypeTranslation:
		target := orDefault(r.get("target_language"), d.Language)
		return task.TypeTranslation, target, &task.TranslationContent{
			SourceText:      r.get("source_text"),
			SourceLanguage:  orDefault(r.get("source_language"), d.SourceLanguage),
			TargetLanguage:  target,
			Domain:          r.get("domain"),
			TaskTitle:       orDefault(r.get("task_title"), d.TaskTitle),
			TaskDescription: orDefault(r.get("task_description"), d.TaskDescription),
		}, nil
	case task.TypeTTS:
		return task.TypeTTS, orDefault(r.get("language"), d.Language), &task.TTSContent{
			TextPrompt:      r.get("text_prompt", "text_to_speak"),
			TaskTitle:       orDefault(r.get("task_title"), d.TaskTitle),
			TaskDescription: orDefault(r.get("task_description"), d.TaskDescription),
		}, nil
	case task.TypeTranscription:
		language := orDefault(r.get("language"), d.Language)
		if mode == ModePipeline {
			return task.TypeASR, language, &task.ASRContent{
				TaskTitle:           r.get("task_title"),
				TaskDescription:     orDefault(r.get("task_description"), orDefault(strings.TrimSpace(d.TaskDescription), defaultRecordingDescription)),
				ImageURL:            r.get("image_url"),
				TranscriptionPrompt: r.get("transcription_prompt"),
			}, nil
		}
		return task.TypeTranscription, language, &task.TranscriptionContent{
			AudioURL:        r.get("audio_url"),
			FileName:        r.get("file_name"),
			TaskTitle:       orDefault(r.get("task_title"), d.TaskTitle),
			TaskDescription: orDefault(r.get("task_description"), d.TaskDescription),
		}, nil
	case task.TypeASR:
		return "", "", nil, apperr.Schema("asr tasks are ingested from image archives")
	default:
		return "", "", nil, apperr.Schema("unknown task type: %q", t)
	}
}

// languageColumn is the column that can carry a task's language for t.
func languageColumn(t task.Type) string {
	if t == task.TypeTranslation {
		return "target_language"
	}
	return "language"
}
