package status

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"bdcsubs/internal/infrastructure"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) UpsertStatus(ctx context.Context, org, period string, processed bool, status string) error {
	return m.Called(ctx, org, period, processed, status).Error(0)
}

func (m *mockStore) InsertMessage(ctx context.Context, org, text string) error {
	return m.Called(ctx, org, text).Error(0)
}

func TestReporter_Begin(t *testing.T) {
	s := &mockStore{}
	s.On("UpsertStatus", mock.Anything, "77", "2024-06-30", false, Processing).Return(nil).Once()

	NewReporter(s, "77", "2024-06-30", infrastructure.DiscardLogger()).Begin(context.Background())
	s.AssertExpectations(t)
}

func TestReporter_Finish(t *testing.T) {
	tests := []struct {
		status  string
		message string
	}{
		{Complete, MessageComplete},
		{Errors, MessageError},
		{DataValidationFailed, MessageError},
		{HeaderValidationFailed, MessageError},
		{SystemError, MessageError},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			s := &mockStore{}
			s.On("UpsertStatus", mock.Anything, "77", "2024-06-30", true, tt.status).Return(nil).Once()
			s.On("InsertMessage", mock.Anything, "77", tt.message).Return(nil).Once()

			NewReporter(s, "77", "2024-06-30", infrastructure.DiscardLogger()).Finish(context.Background(), tt.status)
			s.AssertExpectations(t)
		})
	}
}

func TestReporter_FailuresAreSwallowed(t *testing.T) {
	s := &mockStore{}
	s.On("UpsertStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("db down"))
	s.On("InsertMessage", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("db down"))

	r := NewReporter(s, "77", "2024-06-30", infrastructure.DiscardLogger())
	assert.NotPanics(t, func() {
		r.Begin(context.Background())
		r.Finish(context.Background(), Errors)
	})
	// the message is still attempted after the status write fails
	s.AssertCalled(t, "InsertMessage", mock.Anything, "77", MessageError)
}

func TestTerminal(t *testing.T) {
	assert.False(t, Terminal(Processing))
	assert.True(t, Terminal(Complete))
	assert.True(t, Terminal(SystemError))
	assert.False(t, Terminal("pending"))
}
