package ingest

import (
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/lingocrowd/contribution_control/internal/apperr"
	"github.com/lingocrowd/contribution_control/internal/asset"
	"github.com/lingocrowd/contribution_control/internal/task"
)

// Mode selects how transcription batches are created. In pipeline mode the
// worker records audio first, so the tasks are created as ASR.
type Mode string

const (
	ModeDirect   Mode = "direct"
	ModePipeline Mode = "pipeline"
)

type Kind string

const (
	KindCSV     Kind = "csv"
	KindXLSX    Kind = "xlsx"
	KindArchive Kind = "zip"
)

// Source is one uploaded file.
type Source struct {
	Name string
	Data []byte
}

// Defaults fill fields the file does not carry.
type Defaults struct {
	Language        string
	SourceLanguage  string
	Priority        task.Priority
	ProjectID       *uuid.UUID
	CreatorID       uuid.UUID
	Mode            Mode
	TaskTitle       string
	TaskDescription string
}

type ItemError struct {
	Item   string `json:"item"`
	Reason string `json:"reason"`
}

// BatchResult reports every item of a batch: created task ids and one entry
// per failed item. Partial failure is a normal result, not an error.
type BatchResult struct {
	BatchID uuid.UUID   `json:"batch_id"`
	Created []uuid.UUID `json:"created"`
	Errors  []ItemError `json:"errors"`
}

func newResult(batchID uuid.UUID) BatchResult {
	return BatchResult{
		BatchID: batchID,
		Created: []uuid.UUID{},
		Errors:  []ItemError{},
	}
}

func (r *BatchResult) fail(item string, err error) {
	r.Errors = append(r.Errors, ItemError{Item: item, Reason: err.Error()})
}

const errNoItems = "no valid items found"

// kindOf resolves the source kind and checks it is allowed for the task type.
func kindOf(name string, t task.Type, mode Mode) (Kind, error) {
	var kind Kind
	switch strings.ToLower(path.Ext(name)) {
	case ".csv":
		kind = KindCSV
	case ".xlsx":
		kind = KindXLSX
	case ".zip":
		kind = KindArchive
	default:
		return "", apperr.Schema("unsupported file type %q: expected .csv, .xlsx or .zip", path.Ext(name))
	}

	switch t {
	case task.TypeTranslation, task.TypeTTS:
		if kind == KindArchive {
			return "", apperr.Schema("%s tasks are ingested from csv or xlsx files", t)
		}
	case task.TypeTranscription:
		if kind == KindArchive && mode == ModePipeline {
			return "", apperr.Schema("pipeline transcription batches are ingested from csv or xlsx files")
		}
	case task.TypeASR:
		if kind != KindArchive {
			return "", apperr.Schema("asr tasks are ingested from image archives")
		}
	default:
		return "", apperr.Schema("unknown task type: %q", t)
	}
	return kind, nil
}

// archiveModality is the media accepted in archives of type t.
func archiveModality(t task.Type) asset.Modality {
	if t == task.TypeASR {
		return asset.ModalityImage
	}
	return asset.ModalityAudio
}

func normalizeMode(mode Mode) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(string(mode)))) {
	case "", ModeDirect:
		return ModeDirect, nil
	case ModePipeline:
		return ModePipeline, nil
	}
	return "", apperr.Schema("invalid mode: %q", mode)
}
