package server

import (
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/joseph-ayodele/course-extractor/constants"
	"github.com/joseph-ayodele/course-extractor/internal/common"
	"github.com/joseph-ayodele/course-extractor/internal/entity"
	"github.com/joseph-ayodele/course-extractor/internal/task"
)

// fileMeta is one element of the "metadata" form field, matched to "files" by position.
type fileMeta struct {
	SubjectCode string `json:"subject_code"`
	TermYear    string `json:"term_year"`
}

type processResponse struct {
	TaskID string               `json:"task_id"`
	Status constants.TaskStatus `json:"status"`
}

func (s *Server) process(c *gin.Context) {
	limit := s.opts.MaxUploadBytes*int64(s.opts.MaxFiles) + 1<<20
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)

	form, err := c.MultipartForm()
	if err != nil {
		respondError(c, common.InputError("invalid multipart form: %v", err))
		return
	}
	defer func() { _ = form.RemoveAll() }()

	headers := form.File["files"]
	if len(headers) == 0 {
		respondError(c, common.InputError("at least one file is required in field \"files\""))
		return
	}
	if len(headers) > s.opts.MaxFiles {
		respondError(c, common.InputError("at most %d files per task", s.opts.MaxFiles))
		return
	}
	metas, err := parseMetadata(form.Value["metadata"])
	if err != nil {
		respondError(c, err)
		return
	}
	if len(metas) != len(headers) {
		respondError(c, common.InputError("metadata has %d entries for %d files", len(metas), len(headers)))
		return
	}

	inputs := make([]task.FileInput, 0, len(headers))
	for i, fh := range headers {
		if fh.Size > s.opts.MaxUploadBytes {
			respondError(c, common.InputError("%s exceeds the %d byte limit", fh.Filename, s.opts.MaxUploadBytes))
			return
		}
		f, err := fh.Open()
		if err != nil {
			respondError(c, common.InputError("open %s: %v", fh.Filename, err))
			return
		}
		defer closeQuietly(f)
		inputs = append(inputs, task.FileInput{
			Filename:    fh.Filename,
			Content:     f,
			SubjectCode: metas[i].SubjectCode,
			TermYear:    metas[i].TermYear,
		})
	}

	id, err := s.tasks.CreateTask(c.Request.Context(), inputs)
	if err != nil {
		respondError(c, err)
		return
	}
	s.logger.Info("http.process.accepted", zap.String("task_id", id), zap.Int("files", len(inputs)))
	respond(c, http.StatusAccepted, processResponse{TaskID: id, Status: constants.TaskStatusProcessing}, nil)
}

// parseMetadata accepts one JSON list, or one JSON object per repeated field.
func parseMetadata(values []string) ([]fileMeta, error) {
	if len(values) == 0 {
		return nil, common.InputError("metadata field is required")
	}
	if len(values) == 1 {
		var list []fileMeta
		if err := json.Unmarshal([]byte(values[0]), &list); err == nil {
			return list, nil
		}
	}
	out := make([]fileMeta, 0, len(values))
	for i, v := range values {
		var m fileMeta
		if err := json.Unmarshal([]byte(v), &m); err != nil {
			return nil, common.InputError("metadata entry %d is not valid JSON: %v", i+1, err)
		}
		out = append(out, m)
	}
	return out, nil
}

func closeQuietly(f multipart.File) {
	_ = f.Close()
}

func (s *Server) status(c *gin.Context) {
	st, err := s.tasks.GetStatus(c.Request.Context(), c.Param("task_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, st, nil)
}

func (s *Server) listTasks(c *gin.Context) {
	limit := 50
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			respondError(c, common.InputError("limit must be a positive integer"))
			return
		}
		limit = n
	}
	list, err := s.tasks.ListTasks(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, list, map[string]any{"count": len(list)})
}

type outputDescriptor struct {
	Kind string `json:"kind"`
	Name string `json:"name"`
	Size int64  `json:"size"`
	URL  string `json:"url"`
}

func (s *Server) listOutputs(c *gin.Context) {
	id := c.Param("task_id")
	outs, err := s.tasks.GetOutputs(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	list := make([]outputDescriptor, 0, len(outs))
	for _, o := range outs {
		list = append(list, outputDescriptor{
			Kind: o.Kind,
			Name: o.Name,
			Size: o.SizeBytes,
			URL:  fmt.Sprintf("/outputs/%s/%s", id, o.Name),
		})
	}
	respond(c, http.StatusOK, list, nil)
}

func (s *Server) download(c *gin.Context) {
	f, out, err := s.tasks.OpenOutput(c.Request.Context(), c.Param("task_id"), c.Param("name"))
	if err != nil {
		respondError(c, err)
		return
	}
	defer f.Close()

	contentType := "text/csv; charset=utf-8"
	if out.Kind == entity.OutputWorkbook {
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", out.Name))
	c.DataFromReader(http.StatusOK, out.SizeBytes, contentType, f, nil)
}

func (s *Server) health(c *gin.Context) {
	if s.store != nil {
		if err := PingStore(c.Request.Context(), s.store, s.logger, s.opts.HealthTimeout); err != nil {
			c.JSON(http.StatusServiceUnavailable, Envelope{
				Data:  gin.H{"status": "unavailable"},
				Error: &ErrorBody{Code: common.CodeInternal, Message: "task store unreachable"},
			})
			return
		}
	}
	respond(c, http.StatusOK, gin.H{"status": "ok"}, nil)
}
