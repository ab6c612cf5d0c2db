package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aanand-mishra/student-dashboard/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorded struct {
	method string
	path   string
	body   map[string]any
}

func newBackend(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) (*HTTPClient, *[]recorded) {
	t.Helper()
	var calls []recorded
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recorded{method: r.Method, path: r.URL.EscapedPath()}
		if r.Body != nil {
			_ = json.NewDecoder(r.Body).Decode(&rec.body)
		}
		calls = append(calls, rec)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	return New(srv.URL+"/", 2*time.Second), &calls
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestList(t *testing.T) {
	c, calls := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []types.Student{
			{ID: "S1", Name: "Alice", Course: "Data Science", Progress: 40},
			{ID: "S2", Name: "Bob", Course: "Web Development"},
		})
	})

	students, err := c.List(context.Background())
	require.NoError(t, err)
	require.Len(t, students, 2)
	assert.Equal(t, "S1", students[0].ID)
	assert.Equal(t, 40, students[0].Progress)
	assert.Equal(t, []recorded{{method: http.MethodGet, path: "/students"}}, *calls)
}

func TestCreateSendsInputWithoutProgress(t *testing.T) {
	c, calls := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusCreated, map[string]any{
			"id": "S3", "name": "Cara", "email": "cara@example.com",
			"course": "UX Design", "enrollmentDate": "2024-01-10", "progress": 0,
		})
	})

	created, err := c.Create(context.Background(), types.StudentInput{
		ID: "S3", Name: "Cara", Email: "cara@example.com", Course: "UX Design", EnrollmentDate: "2024-01-10",
	})
	require.NoError(t, err)
	assert.Equal(t, "S3", created.ID)

	require.Len(t, *calls, 1)
	call := (*calls)[0]
	assert.Equal(t, http.MethodPost, call.method)
	assert.Equal(t, "/students", call.path)
	assert.NotContains(t, call.body, "progress")
	assert.Equal(t, "Cara", call.body["name"])
}

func TestCreateFallsBackToInputOnBareAck(t *testing.T) {
	c, _ := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})

	created, err := c.Create(context.Background(), types.StudentInput{ID: "S9", Name: "Zed"})
	require.NoError(t, err)
	assert.Equal(t, "S9", created.ID)
	assert.Equal(t, "Zed", created.Name)
}

func TestUpdateAddressesByID(t *testing.T) {
	c, calls := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"id": "S/1", "name": "Alice", "course": "UX Design"})
	})

	updated, err := c.Update(context.Background(), "S/1", types.Student{ID: "S/1", Name: "Alice", Course: "UX Design"})
	require.NoError(t, err)
	assert.Equal(t, "UX Design", updated.Course)
	assert.Equal(t, http.MethodPut, (*calls)[0].method)
	assert.Equal(t, "/students/S%2F1", (*calls)[0].path)
}

func TestDelete(t *testing.T) {
	c, calls := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	require.NoError(t, c.Delete(context.Background(), "S2"))
	assert.Equal(t, []recorded{{method: http.MethodDelete, path: "/students/S2"}}, *calls)
}

func TestAPIErrorCarriesStatusAndMessage(t *testing.T) {
	c, _ := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusConflict, map[string]string{"status": "error", "error": "student S1 already exists"})
	})

	_, err := c.Create(context.Background(), types.StudentInput{ID: "S1"})
	require.Error(t, err)
	assert.Equal(t, http.StatusConflict, StatusCode(err))
	assert.Equal(t, "student S1 already exists", err.Error())
}

func TestAPIErrorWithoutEnvelope(t *testing.T) {
	c, _ := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	err := c.Delete(context.Background(), "S1")
	require.Error(t, err)
	assert.Equal(t, 500, StatusCode(err))
	assert.Equal(t, "request failed with status code 500", err.Error())
}

func TestTransportErrorHasNoStatus(t *testing.T) {
	c := New("http://127.0.0.1:1", 200*time.Millisecond)

	_, err := c.List(context.Background())
	require.Error(t, err)
	assert.Equal(t, 0, StatusCode(err))
}
