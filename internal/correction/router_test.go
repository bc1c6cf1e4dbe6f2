package correction_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lingocrowd/contribution_control/internal/apperr"
	"github.com/lingocrowd/contribution_control/internal/contribution"
	"github.com/lingocrowd/contribution_control/internal/correction"
	"github.com/lingocrowd/contribution_control/internal/lifecycle"
	"github.com/lingocrowd/contribution_control/internal/store"
	"github.com/lingocrowd/contribution_control/internal/store/storetest"
	"github.com/lingocrowd/contribution_control/internal/task"
)

type fixture struct {
	st     store.Store
	coord  lifecycle.Coordinator
	router correction.Router
}

func newFixture(t *testing.T) fixture {
	st, _ := storetest.OpenStore(t)
	coord := lifecycle.NewCoordinator(st, nil, zerolog.Nop())
	return fixture{
		st:     st,
		coord:  coord,
		router: correction.NewRouter(st, coord, zerolog.Nop()),
	}
}

func (f fixture) translation(t *testing.T, language, sourceLanguage string) task.Task {
	t.Helper()
	return f.create(t, task.TypeTranslation, language, &task.TranslationContent{SourceText: "Hello", SourceLanguage: sourceLanguage})
}

func (f fixture) create(t *testing.T, typ task.Type, language string, content task.Content) task.Task {
	t.Helper()
	created, err := task.NewTaskService(f.st.Repositories().Tasks, zerolog.Nop()).CreateTask(context.Background(), task.CreateTaskInput{
		Type:      typ,
		Language:  language,
		Content:   content,
		CreatorID: uuid.New(),
	})
	require.NoError(t, err)
	return created
}

func (f fixture) rejected(t *testing.T, taskID, worker uuid.UUID, payload, comment string) contribution.Contribution {
	t.Helper()
	ctx := context.Background()
	c, err := f.coord.Submit(ctx, taskID, worker, []byte(payload))
	require.NoError(t, err)
	_, err = f.coord.Reject(ctx, c.ID, uuid.New(), comment)
	require.NoError(t, err)
	return c
}

const translationPayload = `{"translation_text":"Habari"}`

func TestListCorrections_LatestFeedback(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	worker := uuid.New()
	tk := f.translation(t, "sw", "en")

	c := f.rejected(t, tk.ID, worker, translationPayload, "Fix grammar")

	views, err := f.router.ListCorrections(ctx, worker, correction.Filters{})
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, c.ID, views[0].Contribution.ID)
	assert.Equal(t, contribution.StatusRejected, views[0].Contribution.Status)
	assert.Equal(t, tk.ID, views[0].Task.ID)
	require.NotNil(t, views[0].LatestFeedback)
	assert.Equal(t, "Fix grammar", views[0].LatestFeedback.Comment)
	assert.False(t, views[0].LatestFeedback.IsApproved)

	_, err = f.router.Resubmit(ctx, c.ID, worker, []byte(`{"translation_text":"Habari yako"}`))
	require.NoError(t, err)
	_, err = f.coord.Reject(ctx, c.ID, uuid.New(), "Still missing the greeting")
	require.NoError(t, err)

	views, err = f.router.ListCorrections(ctx, worker, correction.Filters{})
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "Still missing the greeting", views[0].LatestFeedback.Comment)
}

func TestListCorrections_OnlyOwnRejected(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	worker := uuid.New()

	f.rejected(t, f.translation(t, "sw", "en").ID, uuid.New(), translationPayload, "Not yours")

	approved := f.translation(t, "sw", "en")
	c, err := f.coord.Submit(ctx, approved.ID, worker, []byte(translationPayload))
	require.NoError(t, err)
	_, err = f.coord.Approve(ctx, c.ID, uuid.New(), "")
	require.NoError(t, err)

	_, err = f.coord.Submit(ctx, f.translation(t, "sw", "en").ID, worker, []byte(translationPayload))
	require.NoError(t, err)

	views, err := f.router.ListCorrections(ctx, worker, correction.Filters{})
	require.NoError(t, err)
	assert.Empty(t, views)
	assert.NotNil(t, views)
}

func TestListCorrections_Filters(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	worker := uuid.New()

	fromEnglish := f.rejected(t, f.translation(t, "sw", "en").ID, worker, translationPayload, "Tone")
	fromFrench := f.rejected(t, f.translation(t, "sw", "fr").ID, worker, translationPayload, "Spelling")
	recording := f.create(t, task.TypeTranscription, "yo", &task.TranscriptionContent{AudioURL: "https://assets/a.mp3"})
	transcript := f.rejected(t, recording.ID, worker, `{"transcript_text":"bawo ni"}`, "Incomplete")

	cases := []struct {
		name    string
		filters correction.Filters
		want    []uuid.UUID
	}{
		{name: "none", filters: correction.Filters{}, want: []uuid.UUID{fromEnglish.ID, fromFrench.ID, transcript.ID}},
		{name: "language", filters: correction.Filters{Language: "YO"}, want: []uuid.UUID{transcript.ID}},
		{name: "source language", filters: correction.Filters{SourceLanguage: " en "}, want: []uuid.UUID{fromEnglish.ID}},
		{name: "both", filters: correction.Filters{Language: "sw", SourceLanguage: "fr"}, want: []uuid.UUID{fromFrench.ID}},
		{name: "no match", filters: correction.Filters{Language: "ha"}, want: nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			views, err := f.router.ListCorrections(ctx, worker, tc.filters)
			require.NoError(t, err)
			got := make([]uuid.UUID, 0, len(views))
			for _, v := range views {
				got = append(got, v.Contribution.ID)
			}
			assert.ElementsMatch(t, tc.want, got)
		})
	}

	views, err := f.router.ListCorrections(ctx, worker, correction.Filters{Language: "yo"})
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, contribution.StatusRejectedTranscript, views[0].Contribution.Status)
}

func TestLoadForResubmission(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	worker := uuid.New()
	tk := f.translation(t, "sw", "en")
	c := f.rejected(t, tk.ID, worker, translationPayload, "Fix grammar")

	got, err := f.router.LoadForResubmission(ctx, c.ID, worker)
	require.NoError(t, err)
	assert.Equal(t, c.ID, got.Contribution.ID)
	assert.Equal(t, tk.ID, got.Task.ID)
	require.NotNil(t, got.Feedback)
	assert.Equal(t, "Fix grammar", got.Feedback.Comment)

	_, err = f.router.LoadForResubmission(ctx, c.ID, uuid.New())
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = f.router.LoadForResubmission(ctx, uuid.New(), worker)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	updated, err := f.router.Resubmit(ctx, c.ID, worker, []byte(`{"translation_text":"Habari yako"}`))
	require.NoError(t, err)
	assert.Equal(t, contribution.StatusPendingValidation, updated.Status)

	// a pending contribution has nothing to correct
	_, err = f.router.LoadForResubmission(ctx, c.ID, worker)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	views, err := f.router.ListCorrections(ctx, worker, correction.Filters{})
	require.NoError(t, err)
	assert.Empty(t, views)
}
