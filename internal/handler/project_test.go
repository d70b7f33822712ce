package handler

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diogopython/Nuvemhost/internal/archive"
	"github.com/diogopython/Nuvemhost/internal/logging"
	"github.com/diogopython/Nuvemhost/internal/service"
)

func newProjectServer(p *fakeProjects, files *fakeFiles) *echo.Echo {
	h := NewProjectHandler(p, files, []string{"zip"}, 10<<20, logging.Discard())
	fh := NewFileHandler(files, logging.Discard())
	e := echo.New()
	g := e.Group("", asUser)
	g.GET("/dashboard", h.Dashboard)
	g.GET("/upload", h.UploadPage)
	g.POST("/upload", h.Upload)
	g.GET("/edit_project/:id", h.EditProject)
	g.GET("/delete_project/:id", h.DeleteProject)
	g.POST("/delete_project/:id", h.DeleteProject)
	g.GET("/get_file_content/:id/*", fh.GetContent)
	g.POST("/save_file_content/:id/*", fh.SaveContent)
	return e
}

func uploadRequest(t *testing.T, name, filename string, body []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if name != "" {
		require.NoError(t, mw.WriteField("project_name", name))
	}
	if filename != "" {
		fw, err := mw.CreateFormFile("project_file", filename)
		require.NoError(t, err)
		_, err = fw.Write(body)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, "/upload", &buf)
	req.Header.Set(echo.HeaderContentType, mw.FormDataContentType())
	return req
}

func TestDashboard(t *testing.T) {
	e := newProjectServer(newFakeProjects(), &fakeFiles{})
	rec := serve(e, httptest.NewRequest(http.MethodGet, "/dashboard", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `"project_count":1`)
	assert.Contains(t, body, `"url":"/project/p1/"`)
	assert.NotContains(t, body, "Other")
}

func TestUpload(t *testing.T) {
	p := newFakeProjects()
	e := newProjectServer(p, &fakeFiles{})

	rec := serve(e, uploadRequest(t, "My site", "site.ZIP", []byte("PK-archive-bytes")))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/dashboard", rec.Header().Get(echo.HeaderLocation))
	assert.Equal(t, "My site", p.gotName)
	assert.Equal(t, []byte("PK-archive-bytes"), p.uploaded)
}

func TestUploadRejects(t *testing.T) {
	cases := []struct {
		name     string
		req      func(t *testing.T) *http.Request
		wantCode int
		wantMsg  string
	}{
		{"no name", func(t *testing.T) *http.Request { return uploadRequest(t, "", "site.zip", []byte("x")) }, http.StatusBadRequest, "Project name is required."},
		{"no file", func(t *testing.T) *http.Request { return uploadRequest(t, "site", "", nil) }, http.StatusBadRequest, "No file selected."},
		{"not zip", func(t *testing.T) *http.Request { return uploadRequest(t, "site", "site.tar", []byte("x")) }, http.StatusBadRequest, "Only ZIP files are allowed."},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := newFakeProjects()
			rec := serve(newProjectServer(p, &fakeFiles{}), tc.req(t))
			assert.Equal(t, tc.wantCode, rec.Code)
			assert.Contains(t, rec.Body.String(), tc.wantMsg)
			assert.Nil(t, p.uploaded)
		})
	}
}

func TestUploadServiceErrors(t *testing.T) {
	cases := map[error]int{
		service.ErrQuotaExceeded:    http.StatusConflict,
		archive.ErrNoEntryPoint:     http.StatusBadRequest,
		archive.ErrBadArchive:       http.StatusBadRequest,
		service.ErrInvalidName:      http.StatusBadRequest,
		service.ErrStoreUnavailable: http.StatusServiceUnavailable,
	}
	for err, code := range cases {
		t.Run(err.Error(), func(t *testing.T) {
			p := newFakeProjects()
			p.uploadErr = fmt.Errorf("upload: %w", err)
			rec := serve(newProjectServer(p, &fakeFiles{}), uploadRequest(t, "site", "site.zip", []byte("x")))
			assert.Equal(t, code, rec.Code)
			assert.Contains(t, rec.Body.String(), err.Error())
		})
	}
}

func TestEditProject(t *testing.T) {
	e := newProjectServer(newFakeProjects(), &fakeFiles{})

	rec := serve(e, httptest.NewRequest(http.MethodGet, "/edit_project/p1", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"files":["index.html"]`)
	assert.Contains(t, rec.Body.String(), `"img/logo.png"`)

	// another user's project looks missing
	rec = serve(e, httptest.NewRequest(http.MethodGet, "/edit_project/p2", nil))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/dashboard", rec.Header().Get(echo.HeaderLocation))
}

func TestDeleteProject(t *testing.T) {
	p := newFakeProjects()
	e := newProjectServer(p, &fakeFiles{})

	rec := serve(e, httptest.NewRequest(http.MethodPost, "/delete_project/p1", nil))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.NotContains(t, p.projects, "p1")

	rec = serve(e, httptest.NewRequest(http.MethodGet, "/delete_project/p2", nil))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Contains(t, p.projects, "p2")

	p.deleteErr = service.ErrCorrupt
	p.projects["p3"] = p.projects["p2"]
	rec = serve(e, httptest.NewRequest(http.MethodGet, "/delete_project/p3", nil))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
}

func TestFileContent(t *testing.T) {
	files := &fakeFiles{content: map[string]string{"index.html": "<h1>old</h1>"}}
	e := newProjectServer(newFakeProjects(), files)

	rec := serve(e, httptest.NewRequest(http.MethodGet, "/get_file_content/p1/index.html", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"content":"<h1>old</h1>"}`, rec.Body.String())

	req := httptest.NewRequest(http.MethodPost, "/save_file_content/p1/index.html", strings.NewReader(`{"content":"<h1>new</h1>"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec = serve(e, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true}`, rec.Body.String())
	assert.Equal(t, "<h1>new</h1>", files.content["index.html"])
}

func TestFileContentErrors(t *testing.T) {
	files := &fakeFiles{content: map[string]string{"index.html": "x"}}
	e := newProjectServer(newFakeProjects(), files)

	rec := serve(e, httptest.NewRequest(http.MethodGet, "/get_file_content/p2/index.html", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = serve(e, httptest.NewRequest(http.MethodGet, "/get_file_content/p1/img/logo.png", nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = serve(e, httptest.NewRequest(http.MethodGet, "/get_file_content/p1/missing.html", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/save_file_content/p1/index.html", strings.NewReader(`{}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec = serve(e, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "x", files.content["index.html"])
}

func TestFileContentLiteralPercentNames(t *testing.T) {
	files := &fakeFiles{content: map[string]string{"100%.html": "pct", "a%20b.html": "lit"}}
	e := newProjectServer(newFakeProjects(), files)

	rec := serve(e, httptest.NewRequest(http.MethodGet, "/get_file_content/p1/100%25.html", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"content":"pct"}`, rec.Body.String())

	rec = serve(e, httptest.NewRequest(http.MethodGet, "/get_file_content/p1/a%2520b.html", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"content":"lit"}`, rec.Body.String())
}

func TestStatusFor(t *testing.T) {
	code, msg := statusFor(fmt.Errorf("boom: secret detail"))
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, "internal error", msg)

	code, _ = statusFor(fmt.Errorf("%w: bad", service.ErrContentTooLarge))
	assert.Equal(t, http.StatusRequestEntityTooLarge, code)
}
