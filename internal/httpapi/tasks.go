package httpapi

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/lingocrowd/contribution_control/internal/apperr"
	"github.com/lingocrowd/contribution_control/internal/dto"
	"github.com/lingocrowd/contribution_control/internal/ingest"
	"github.com/lingocrowd/contribution_control/internal/task"
)

type taskRoutes struct {
	tasks          task.Service
	pipeline       ingest.Pipeline
	verifier       *Verifier
	logger         zerolog.Logger
	maxUploadBytes int64
}

func newTaskRoutes(deps Dependencies) *taskRoutes {
	return &taskRoutes{
		tasks:          deps.Tasks,
		pipeline:       deps.Ingest,
		verifier:       deps.Verifier,
		logger:         deps.Logger,
		maxUploadBytes: deps.MaxUploadBytes,
	}
}

func (rt *taskRoutes) register(mux *http.ServeMux) {
	v := rt.verifier
	mux.HandleFunc("POST /projects", v.authorize(rt.handleCreateProject, RoleAdmin))
	mux.HandleFunc("GET /projects/{id}", v.authorize(rt.handleGetProject))
	mux.HandleFunc("POST /tasks", v.authorize(rt.handleCreate, RoleAdmin))
	mux.HandleFunc("GET /tasks", v.authorize(rt.handleList))
	mux.HandleFunc("POST /tasks/batch", v.authorize(rt.handleBatch, RoleAdmin))
	mux.HandleFunc("GET /tasks/template", v.authorize(rt.handleTemplate))
	mux.HandleFunc("GET /tasks/{id}", v.authorize(rt.handleGet))
}

func (rt *taskRoutes) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	claims, _ := claimsFrom(r.Context())

	var req dto.CreateProjectRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, rt.logger, err)
		return
	}

	project, err := rt.tasks.CreateProject(r.Context(), task.CreateProjectInput{
		Name:            req.Name,
		Type:            task.Type(req.Type),
		SourceLanguage:  req.SourceLanguage,
		TargetLanguages: req.TargetLanguages,
		OwnerID:         claims.UserID,
	})
	if err != nil {
		handleError(w, rt.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, project)
}

func (rt *taskRoutes) handleGetProject(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		handleError(w, rt.logger, err)
		return
	}
	project, err := rt.tasks.GetProject(r.Context(), id)
	if err != nil {
		handleError(w, rt.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, project)
}

func (rt *taskRoutes) handleCreate(w http.ResponseWriter, r *http.Request) {
	claims, _ := claimsFrom(r.Context())

	var req dto.CreateTaskRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, rt.logger, err)
		return
	}

	taskType := task.Type(req.Type)
	content, err := task.DecodeContent(taskType, req.Content)
	if err != nil {
		handleError(w, rt.logger, err)
		return
	}
	projectID, err := optionalUUID(req.ProjectID, "project_id")
	if err != nil {
		handleError(w, rt.logger, err)
		return
	}

	created, err := rt.tasks.CreateTask(r.Context(), task.CreateTaskInput{
		Type:      taskType,
		Language:  req.Language,
		Priority:  task.Priority(req.Priority),
		Content:   content,
		CreatorID: claims.UserID,
		ProjectID: projectID,
	})
	if err != nil {
		handleError(w, rt.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (rt *taskRoutes) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		handleError(w, rt.logger, err)
		return
	}
	t, err := rt.tasks.GetTask(r.Context(), id)
	if err != nil {
		handleError(w, rt.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (rt *taskRoutes) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var filter task.Filter
	if v := q.Get("type"); v != "" {
		t := task.Type(v)
		filter.Type = &t
	}
	if v := q.Get("language"); v != "" {
		filter.Language = &v
	}
	if v := q.Get("status"); v != "" {
		s := task.Status(v)
		filter.Status = &s
	}
	var err error
	if filter.ProjectID, err = optionalUUID(q.Get("project_id"), "project_id"); err != nil {
		handleError(w, rt.logger, err)
		return
	}
	if filter.BatchID, err = optionalUUID(q.Get("batch_id"), "batch_id"); err != nil {
		handleError(w, rt.logger, err)
		return
	}
	if filter.Limit, err = queryInt(r, "limit", 100); err != nil {
		handleError(w, rt.logger, err)
		return
	}
	if filter.Offset, err = queryInt(r, "offset", 0); err != nil {
		handleError(w, rt.logger, err)
		return
	}

	tasks, err := rt.tasks.TaskList(r.Context(), filter)
	if err != nil {
		handleError(w, rt.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (rt *taskRoutes) handleBatch(w http.ResponseWriter, r *http.Request) {
	claims, _ := claimsFrom(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, rt.maxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "file too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		handleError(w, rt.logger, apperr.Schema("missing required field: file"))
		return
	}
	data, err := readUpload(file)
	if err != nil {
		handleError(w, rt.logger, err)
		return
	}

	taskType := task.Type(strings.TrimSpace(r.FormValue("task_type")))
	if taskType == "" {
		handleError(w, rt.logger, apperr.Schema("missing required field: task_type"))
		return
	}
	if !taskType.Valid() {
		handleError(w, rt.logger, apperr.Schema("unknown task type: %q", taskType))
		return
	}
	projectID, err := optionalUUID(r.FormValue("project_id"), "project_id")
	if err != nil {
		handleError(w, rt.logger, err)
		return
	}

	result, err := rt.pipeline.Ingest(r.Context(), ingest.Source{Name: header.Filename, Data: data}, taskType, ingest.Defaults{
		Language:        r.FormValue("language"),
		SourceLanguage:  r.FormValue("source_language"),
		Priority:        task.Priority(strings.TrimSpace(r.FormValue("priority"))),
		ProjectID:       projectID,
		CreatorID:       claims.UserID,
		Mode:            ingest.Mode(r.FormValue("mode")),
		TaskTitle:       r.FormValue("task_title"),
		TaskDescription: r.FormValue("task_description"),
	})
	resp := dto.NewBatchResponse(result)
	if err != nil {
		if apperr.KindOf(err) == nil {
			handleError(w, rt.logger, err)
			return
		}
		writeJSON(w, statusOf(err), resp)
		return
	}

	status := http.StatusOK
	if resp.CreatedCount > 0 {
		status = http.StatusCreated
	}
	writeJSON(w, status, resp)
}

func (rt *taskRoutes) handleTemplate(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	taskType := task.Type(q.Get("type"))
	if taskType == "" {
		handleError(w, rt.logger, apperr.Schema("missing required field: type"))
		return
	}

	file, err := ingest.Template(taskType, ingest.Mode(q.Get("mode")), q.Get("format"))
	if err != nil {
		handleError(w, rt.logger, err)
		return
	}

	w.Header().Set("Content-Type", file.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(file.Data)
}

func readUpload(file multipart.File) ([]byte, error) {
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, apperr.Schema("unreadable upload: %v", err)
	}
	return data, nil
}

func optionalUUID(raw, name string) (*uuid.UUID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, apperr.Schema("invalid %s: must be a uuid", name)
	}
	return &id, nil
}
