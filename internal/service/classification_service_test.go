package service_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/ecosort/recycle-assistant/internal/classifier"
	"github.com/ecosort/recycle-assistant/internal/domain"
	"github.com/ecosort/recycle-assistant/internal/service"
	"github.com/ecosort/recycle-assistant/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fakePNG = []byte("\x89PNG\r\n\x1a\nfake")

func TestClassificationService_Classify(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	user, _ := testutil.NewUserBuilder().Build(t, f.db.DB)
	plastic := testutil.CreateCategory(t, f.db.DB, "Plastic")

	t.Run("identified item maps to category", func(t *testing.T) {
		f.stub.Respond(&classifier.Result{
			Identified:   true,
			Name:         "PET bottle",
			IsRecyclable: true,
			CategoryName: "Plastic",
			Raw:          []byte(`{"identified":true,"name":"PET bottle"}`),
		}, nil)

		outcome, err := f.services.Classifications.Classify(ctx, user.ID, fakePNG, "image/png")
		require.NoError(t, err)
		assert.Equal(t, "PET bottle", outcome.Name)
		require.NotNil(t, outcome.CategoryID)
		assert.Equal(t, plastic.ID, *outcome.CategoryID)
		assert.NotZero(t, outcome.RecordID)
	})

	t.Run("unknown category is left empty", func(t *testing.T) {
		f.stub.Respond(&classifier.Result{Identified: true, Name: "Battery", CategoryName: "Hazardous"}, nil)

		outcome, err := f.services.Classifications.Classify(ctx, user.ID, fakePNG, "image/jpeg")
		require.NoError(t, err)
		assert.Nil(t, outcome.CategoryID)
	})

	t.Run("not identified", func(t *testing.T) {
		f.stub.Respond(&classifier.Result{Raw: []byte(`{"identified":false}`)}, nil)

		outcome, err := f.services.Classifications.Classify(ctx, user.ID, fakePNG, "image/png")
		require.NoError(t, err)
		assert.False(t, outcome.Identified)
		assert.Nil(t, outcome.CategoryID)
	})

	history, err := f.services.Classifications.History(ctx, user.ID, 10)
	require.NoError(t, err)
	require.Len(t, history, 3)
	for _, record := range history {
		assert.Equal(t, "stub-model", record.ModelName)
		assert.Equal(t, "stub prompt", record.Prompt)
		assert.NotEmpty(t, record.Output)
	}
	identified := 0
	for _, record := range history {
		if record.Identified {
			identified++
		}
	}
	assert.Equal(t, 2, identified)
}

func TestClassificationService_Rejects(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user, _ := testutil.NewUserBuilder().Build(t, f.db.DB)

	tests := []struct {
		name      string
		image     []byte
		mime      string
		upstream  error
		wantErr   error
		wantCalls int
	}{
		{"gif", fakePNG, "image/gif", nil, domain.ErrInvalidInput, 0},
		{"empty image", nil, "image/png", nil, domain.ErrInvalidInput, 0},
		{"upstream failure", fakePNG, "image/png", fmt.Errorf("%w: 503", domain.ErrUpstream), domain.ErrUpstream, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := f.stub.Calls()
			f.stub.Respond(&classifier.Result{}, tt.upstream)

			_, err := f.services.Classifications.Classify(ctx, user.ID, tt.image, tt.mime)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, tt.wantCalls, f.stub.Calls()-before)
		})
	}

	history, err := f.services.Classifications.History(ctx, user.ID, 10)
	require.NoError(t, err)
	assert.Empty(t, history, "failed calls are not recorded")

	disabled := service.NewClassificationService(f.repos, nil)
	_, err = disabled.Classify(ctx, user.ID, fakePNG, "image/png")
	assert.ErrorIs(t, err, service.ErrClassifierDisabled)
	assert.ErrorIs(t, err, domain.ErrUpstream)
}
