package main

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/courseforge/backend/internal/handlers"
	"github.com/courseforge/backend/internal/models"
	authservice "github.com/courseforge/backend/libs/auth/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockMaintenance struct {
	result    models.ResyncResult
	report    *models.ResyncAllReport
	err       error
	principal authservice.Principal
	courseID  int
}

func (m *mockMaintenance) ResyncCourse(ctx context.Context, principal authservice.Principal, courseID int) models.ResyncResult {
	m.principal, m.courseID = principal, courseID
	return m.result
}

func (m *mockMaintenance) ResyncAll(ctx context.Context) (*models.ResyncAllReport, error) {
	return m.report, m.err
}

func run(t *testing.T, svc *mockMaintenance, args ...string) (string, error) {
	t.Helper()
	released := false
	cmd := NewRootCommand(func(ctx context.Context) (handlers.MaintenanceService, func(), error) {
		return svc, func() { released = true }, nil
	})
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)

	err := cmd.Execute()
	if svc.courseID != 0 || svc.report != nil {
		assert.True(t, released)
	}
	return out.String(), err
}

func TestResyncCommand_Course(t *testing.T) {
	svc := &mockMaintenance{result: models.ResyncResult{Success: true, Stats: models.ResyncStats{Modules: 2, Lessons: 3, Duration: "04:30"}}}

	out, err := run(t, svc, "resync", "1")

	require.NoError(t, err)
	assert.Equal(t, "course 1: 2 modules, 3 lessons, 04:30\n", out)
	assert.Equal(t, 1, svc.courseID)
	assert.True(t, svc.principal.IsAdmin())
}

func TestResyncCommand_CourseJSON(t *testing.T) {
	svc := &mockMaintenance{result: models.ResyncResult{Message: "course not found", Kind: models.FailureNotFound}}

	out, err := run(t, svc, "resync", "9", "--format", "json")

	assert.EqualError(t, err, "course 9: course not found")
	assert.JSONEq(t, `{"success":false,"message":"course not found","stats":{"modules":0,"lessons":0,"duration":""}}`, out)
}

func TestResyncCommand_All(t *testing.T) {
	svc := &mockMaintenance{report: &models.ResyncAllReport{Total: 3, Failed: map[int]string{7: "deadlock", 2: "timeout"}}}

	out, err := run(t, svc, "resync", "--all")

	assert.EqualError(t, err, "2 courses failed")
	assert.Equal(t, "resynced 1 of 3 courses\n  course 2 failed: timeout\n  course 7 failed: deadlock\n", out)
}

func TestResyncCommand_ArgumentErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{name: "nothing to resync", args: []string{"resync"}},
		{name: "both id and all", args: []string{"resync", "1", "--all"}},
		{name: "bad id", args: []string{"resync", "abc"}},
		{name: "bad format", args: []string{"resync", "1", "--format", "xml"}},
		{name: "too many ids", args: []string{"resync", "1", "2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockMaintenance{}
			_, err := run(t, svc, tt.args...)

			assert.Error(t, err)
			assert.Zero(t, svc.courseID)
		})
	}
}

func TestResyncCommand_FactoryError(t *testing.T) {
	cmd := NewRootCommand(func(ctx context.Context) (handlers.MaintenanceService, func(), error) {
		return nil, nil, errors.New("DB_HOST is required")
	})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"resync", "--all"})

	assert.EqualError(t, cmd.Execute(), "DB_HOST is required")
}
