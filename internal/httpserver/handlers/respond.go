package handlers

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"

	"github.com/k17ctf/ctfbot/internal/errors"
	"github.com/k17ctf/ctfbot/internal/httpserver/deps"
	"github.com/k17ctf/ctfbot/internal/ipc"
	"github.com/k17ctf/ctfbot/internal/logger"
)

const maxBodySize = 64 << 10

// detailResponse is the error body the frontend expects.
type detailResponse struct {
	Detail string `json:"detail"`
}

type successResponse struct {
	Status  string `json:"status"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, detailResponse{Detail: detail})
}

func writeError(w http.ResponseWriter, err error) {
	bErr := errors.From(err)
	writeDetail(w, bErr.Status, bErr.Message)
}

// decodeBody reads a JSON body into dst. An empty body leaves dst untouched.
func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodySize))
	if err := dec.Decode(dst); err != nil && !stderrors.Is(err, io.EOF) {
		return errors.NewInvalidRequest("invalid request body: " + err.Error())
	}
	return nil
}

// relay forwards one request to the bot and writes its reply. Success replies
// pass through unchanged. Error replies map their code onto an HTTP status,
// with fallback used for replies that carry no code.
func relay(d deps.Deps, w http.ResponseWriter, r *http.Request, req ipc.Request, fallback int) {
	resp, err := d.Bot.Do(r.Context(), req)
	if err != nil {
		if stderrors.Is(err, ipc.ErrUnavailable) {
			writeDetail(w, http.StatusServiceUnavailable, ipc.UnavailableMessage)
			return
		}
		d.Logger.Error("ipc exchange failed",
			logger.String("action", string(req.Action)),
			logger.Error(err))
		writeDetail(w, http.StatusBadGateway, err.Error())
		return
	}

	if resp.Status != ipc.StatusSuccess {
		status := fallback
		if resp.Code != "" {
			status = errors.New(resp.Code, resp.Message).Status
		}
		writeDetail(w, status, resp.Message)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
