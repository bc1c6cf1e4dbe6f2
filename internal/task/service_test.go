package task_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lingocrowd/contribution_control/internal/apperr"
	"github.com/lingocrowd/contribution_control/internal/store/storetest"
	"github.com/lingocrowd/contribution_control/internal/task"
)

func newService(t *testing.T) task.Service {
	db := storetest.Open(t)
	return task.NewTaskService(task.NewRepository(db), zerolog.Nop())
}

func TestService_CreateAndList(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	creator := uuid.New()

	project, err := svc.CreateProject(ctx, task.CreateProjectInput{
		Name:            "Swahili greetings",
		Type:            task.TypeTranslation,
		SourceLanguage:  "en",
		TargetLanguages: []string{"sw", "sw", " "},
		OwnerID:         creator,
	})
	require.NoError(t, err)
	assert.JSONEq(t, `["sw"]`, string(project.TargetLanguages))

	created, err := svc.CreateTask(ctx, task.CreateTaskInput{
		Type:      task.TypeTranslation,
		Language:  "sw",
		Content:   &task.TranslationContent{SourceText: "Hello", SourceLanguage: "en"},
		CreatorID: creator,
		ProjectID: &project.ID,
	})
	require.NoError(t, err)

	got, err := svc.GetTask(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, task.StatusPending, got.Status)
	assert.Equal(t, project.ID, *got.ProjectID)

	typ := task.TypeTranslation
	list, err := svc.TaskList(ctx, task.Filter{Type: &typ, ProjectID: &project.ID})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, created.ID, list[0].ID)
}

func TestService_CreateTaskUnknownProject(t *testing.T) {
	svc := newService(t)
	missing := uuid.New()

	_, err := svc.CreateTask(context.Background(), task.CreateTaskInput{
		Type:      task.TypeTTS,
		Language:  "sw",
		Content:   &task.TTSContent{TextPrompt: "Habari"},
		CreatorID: uuid.New(),
		ProjectID: &missing,
	})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestService_GetTaskNotFound(t *testing.T) {
	_, err := newService(t).GetTask(context.Background(), uuid.New())
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestService_AssignAndSetStatus(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	created, err := svc.CreateTask(ctx, task.CreateTaskInput{
		Type:      task.TypeTranscription,
		Language:  "sw",
		Content:   &task.TranscriptionContent{AudioURL: "https://a/b.mp3"},
		CreatorID: uuid.New(),
	})
	require.NoError(t, err)

	worker := uuid.New()
	assigned, err := svc.Assign(ctx, created.ID, worker)
	require.NoError(t, err)
	assert.Equal(t, task.StatusAssigned, assigned.Status)
	assert.Equal(t, worker, *assigned.AssigneeID)

	_, err = svc.Assign(ctx, created.ID, uuid.New())
	assert.ErrorIs(t, err, apperr.ErrConflict)

	_, err = svc.SetStatus(ctx, created.ID, task.StatusRejected)
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)

	rejected, err := svc.SetStatus(ctx, created.ID, task.StatusRejectedTranscript)
	require.NoError(t, err)
	assert.Equal(t, task.StatusRejectedTranscript, rejected.Status)

	stored, err := svc.GetTask(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, task.StatusRejectedTranscript, stored.Status)
}

func TestService_TaskListRejectsUnknownFilters(t *testing.T) {
	svc := newService(t)

	status := task.Status("archived")
	_, err := svc.TaskList(context.Background(), task.Filter{Status: &status})
	assert.ErrorIs(t, err, apperr.ErrSchema)
}
