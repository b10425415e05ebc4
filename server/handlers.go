package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/rushteam/modelduel/core"
	"github.com/rushteam/modelduel/feature"
)

// CompareRequest 是 POST /compare 的请求体，features / values / text / row 恰好一个。
type CompareRequest struct {
	Adapters []string           `json:"adapters,omitempty"`
	Features map[string]float64 `json:"features,omitempty"`
	Values   []float64          `json:"values,omitempty"`
	Text     *string            `json:"text,omitempty"`
	Row      map[string]string  `json:"row,omitempty"`
}

// errorBody 错误响应
type errorBody struct {
	Error  string `json:"error"`
	Code   string `json:"code,omitempty"`
	Detail string `json:"detail,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message, code string) {
	respondJSON(w, status, errorBody{Error: message, Code: code})
}

// respondDomainError 把领域错误映射为 HTTP 状态码。
//   - EMPTY_INPUT -> 422，"no prediction"
//   - NO_ADAPTERS -> 503
//   - UNKNOWN_ADAPTER / SHAPE_MISMATCH / ROW_VALIDATION / INVALID_CONFIG -> 400
func respondDomainError(w http.ResponseWriter, err error) {
	de := core.GetDomainError(err)
	if de == nil {
		respondError(w, http.StatusInternalServerError, err.Error(), "")
		return
	}
	body := errorBody{Error: err.Error(), Code: de.Code}
	status := http.StatusBadRequest
	switch {
	case errors.Is(err, core.ErrEmptyInput):
		status = http.StatusUnprocessableEntity
		body.Error, body.Detail = "no prediction", de.Message
	case errors.Is(err, core.ErrNoAvailableAdapters):
		status = http.StatusServiceUnavailable
	case errors.Is(err, core.ErrModelUnavailable):
		status = http.StatusServiceUnavailable
	case errors.Is(err, core.ErrPrediction):
		status = http.StatusBadGateway
	}
	respondJSON(w, status, body)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": s.version})
}

func (s *Server) handleAdapters(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.engine.Registry().List())
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		respondError(w, http.StatusBadRequest, "read body: "+err.Error(), "")
		return
	}
	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		respondError(w, http.StatusBadRequest, "invalid json: "+err.Error(), "")
		return
	}
	if err := s.schema.Validate(doc); err != nil {
		respondError(w, http.StatusBadRequest, err.Error(), "INVALID_REQUEST")
		return
	}
	var req CompareRequest
	if err := json.Unmarshal(body, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request: "+err.Error(), "")
		return
	}

	in, err := s.input(&req)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	v, err := s.engine.Compare(r.Context(), req.Adapters, in)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, v)
}

// input 把请求体归一化为 core.Input。
func (s *Server) input(req *CompareRequest) (core.Input, error) {
	n := s.engine.Normalizer()
	switch {
	case req.Features != nil:
		return n.Fields(req.Features)
	case req.Values != nil:
		return n.Values(req.Values)
	case req.Text != nil:
		return n.Text(*req.Text)
	default:
		return n.Row(req.Row)
	}
}

// handleBatch 接收 CSV（请求体直接为 CSV，或 multipart 表单的 file 字段），
// 返回追加了 Prediction_<adapter> 列的 CSV；校验失败的行数放在 X-Failed-Rows 头中。
func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)

	var src io.Reader = r.Body
	if mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")); mt == "multipart/form-data" {
		f, _, err := r.FormFile("file")
		if err != nil {
			respondError(w, http.StatusBadRequest, "file: "+err.Error(), "")
			return
		}
		defer f.Close()
		src = f
	}
	table, err := feature.ReadCSV(src)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid csv: "+err.Error(), "")
		return
	}

	out, report, err := s.engine.CompareBatch(r.Context(), splitAdapters(r.URL.Query().Get("adapters")), table)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	failed := make([]string, 0, len(report.RowErrors))
	for _, row := range report.Failed() {
		failed = append(failed, strconv.Itoa(row))
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="predictions.csv"`)
	w.Header().Set("X-Rows", strconv.Itoa(report.Rows))
	w.Header().Set("X-Failed-Rows", strings.Join(failed, ","))
	w.Header().Set("X-Agreements", fmt.Sprintf("%d/%d", report.Agreements, report.Agreements+report.Disagreements))
	if err := out.WriteCSV(w); err != nil {
		s.logger.Error("write batch csv", "error", err, "request_id", RequestID(r.Context()))
	}
}

func splitAdapters(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, name := range strings.Split(raw, ",") {
		if name = strings.TrimSpace(name); name != "" {
			out = append(out, name)
		}
	}
	return out
}
