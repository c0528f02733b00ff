package server

import (
	"bufio"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"cumulus/internal/api"
	"cumulus/internal/models"
)

func (s *Server) handleUploadFile(w http.ResponseWriter, r *http.Request) {
	account, ok := accountFromContext(r.Context())
	if !ok {
		s.writeErrorReq(w, r, http.StatusUnauthorized, unauthorized(fmt.Errorf("unauthorized")))
		return
	}
	if !s.acquireLimiter(s.uploadLimiter, w, r, "upload") {
		return
	}
	defer s.releaseLimiter(s.uploadLimiter)

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(s.multipartMaxMemory); err != nil {
		s.writeErrorReq(w, r, http.StatusBadRequest, classifyMultipartError(err))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeErrorReq(w, r, http.StatusBadRequest, badRequestCode(fmt.Errorf("file is required"), ErrCodeMissingRequired))
		return
	}
	defer file.Close()

	name := sanitizeFilename(firstNonEmpty(r.FormValue("filename"), header.Filename))
	if name == "" {
		s.writeErrorReq(w, r, http.StatusBadRequest, badRequestCode(fmt.Errorf("filename is required"), ErrCodeMissingRequired))
		return
	}

	buffered := bufio.NewReader(file)
	mediaType := strings.TrimSpace(header.Header.Get("Content-Type"))
	if mediaType == "" || mediaType == "application/octet-stream" {
		peek, _ := buffered.Peek(512)
		mediaType = http.DetectContentType(peek)
	}

	created, err := s.files.Upload(r.Context(), account, UploadInput{
		Name:      name,
		MediaType: mediaType,
		SizeBytes: header.Size,
	}, buffered)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, api.UploadResponse{
		Message:  "file uploaded",
		FileID:   created.ID,
		Filename: created.Name,
	})
}

func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	account, ok := accountFromContext(r.Context())
	if !ok {
		s.writeErrorReq(w, r, http.StatusUnauthorized, unauthorized(fmt.Errorf("unauthorized")))
		return
	}

	files, err := s.files.List(r.Context(), account.ID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	out := make([]api.FileResponse, 0, len(files))
	for i := range files {
		out = append(out, fileResponse(&files[i]))
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetFile(w http.ResponseWriter, r *http.Request) {
	account, ok := accountFromContext(r.Context())
	if !ok {
		s.writeErrorReq(w, r, http.StatusUnauthorized, unauthorized(fmt.Errorf("unauthorized")))
		return
	}
	fileID, ok := s.pathFileIDOrBadRequest(w, r)
	if !ok {
		return
	}

	file, err := s.files.Get(r.Context(), account.ID, fileID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, fileResponse(file))
}

func (s *Server) handleDownloadFile(w http.ResponseWriter, r *http.Request) {
	account, ok := accountFromContext(r.Context())
	if !ok {
		s.writeErrorReq(w, r, http.StatusUnauthorized, unauthorized(fmt.Errorf("unauthorized")))
		return
	}
	fileID, ok := s.pathFileIDOrBadRequest(w, r)
	if !ok {
		return
	}

	file, content, err := s.files.Open(r.Context(), account.ID, fileID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	defer content.Close()

	mediaType := file.MediaType
	if mediaType == "" {
		mediaType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", mediaType)
	w.Header().Set("Content-Length", strconv.FormatInt(file.SizeBytes, 10))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Name))
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, content); err != nil {
		s.log().Error("stream file content",
			"file_id", file.ID, "method", r.Method, "path", r.URL.Path, "error", err)
	}
}

func (s *Server) handleDeleteFile(w http.ResponseWriter, r *http.Request) {
	account, ok := accountFromContext(r.Context())
	if !ok {
		s.writeErrorReq(w, r, http.StatusUnauthorized, unauthorized(fmt.Errorf("unauthorized")))
		return
	}
	fileID, ok := s.pathFileIDOrBadRequest(w, r)
	if !ok {
		return
	}

	file, err := s.files.Delete(r.Context(), account.ID, fileID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, api.DeleteResponse{
		Message: "file deleted",
		FileID:  file.ID,
	})
}

func fileResponse(file *models.File) api.FileResponse {
	if file == nil {
		return api.FileResponse{}
	}
	return api.FileResponse{
		ID:         file.ID,
		Name:       file.Name,
		SizeBytes:  file.SizeBytes,
		MediaType:  file.MediaType,
		IsShared:   file.IsShared,
		UploadedAt: file.UploadedAt,
	}
}
