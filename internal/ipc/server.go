package ipc

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net"
	"os"
	"sync"
	"time"

	"github.com/k17ctf/ctfbot/internal/domain"
	"github.com/k17ctf/ctfbot/internal/errors"
	"github.com/k17ctf/ctfbot/internal/logger"
	"github.com/k17ctf/ctfbot/internal/tracker"
	"github.com/k17ctf/ctfbot/internal/utils"
)

// Backend is what the administrative actions operate on.
type Backend interface {
	GetAll() map[string]domain.CacheEntry
	GetOne(messageID domain.Snowflake) (domain.CacheEntry, error)
	SetCounter(ctx context.Context, messageID domain.Snowflake, value uint64) error
	Refresh(ctx context.Context) error
	Reload(ctx context.Context) error
	Create(ctx context.Context, req tracker.CreateRequest) (*tracker.Created, error)
	Delete(ctx context.Context, messageID domain.Snowflake, deleteLive bool) error
}

// Server answers one request per connection on a unix socket.
type Server struct {
	path    string
	backend Backend
	logger  logger.Logger
	timeout time.Duration

	ln     net.Listener
	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// NewServer creates a new IPC server.
func NewServer(path string, backend Backend, log logger.Logger, timeout time.Duration) *Server {
	if path == "" {
		path = DefaultSocketPath
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Server{path: path, backend: backend, logger: log, timeout: timeout}
}

// Start removes a stale socket, listens and serves in the background.
func (s *Server) Start(ctx context.Context) error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove stale socket: %w", err)
	}

	ln, err := net.Listen("unix", s.path)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.path, err)
	}
	if err := os.Chmod(s.path, 0o660); err != nil {
		_ = ln.Close()
		return fmt.Errorf("failed to restrict socket permissions: %w", err)
	}
	s.ln = ln

	ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(1)
	go s.serve(ctx)

	s.logger.Info("✅ IPC server started", logger.String("socket", s.path))
	return nil
}

// Stop closes the listener, waits for in-flight exchanges and removes the socket.
func (s *Server) Stop() {
	if s.ln == nil {
		return
	}
	s.cancel()
	_ = s.ln.Close()
	s.wg.Wait()
	_ = os.Remove(s.path)
	s.logger.Info("IPC server stopped")
}

func (s *Server) serve(ctx context.Context) {
	defer s.wg.Done()
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if stderrors.Is(err, net.ErrClosed) {
				return
			}
			s.logger.Warn("IPC accept failed", logger.Error(err))
			continue
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handle(ctx, conn)
		}()
	}
}

func (s *Server) handle(ctx context.Context, conn net.Conn) {
	defer utils.Close(conn)
	_ = conn.SetDeadline(time.Now().Add(s.timeout))

	id := newRequestID()
	start := time.Now()

	var req Request
	var resp Response
	if err := json.NewDecoder(io.LimitReader(conn, maxRequestSize)).Decode(&req); err != nil {
		if stderrors.Is(err, io.EOF) {
			return
		}
		resp = failure(errors.NewInvalidRequest(fmt.Sprintf("invalid request: %v", err)))
	} else {
		opCtx, cancel := context.WithTimeout(ctx, s.timeout)
		resp = s.dispatch(opCtx, req)
		cancel()
	}

	if err := json.NewEncoder(conn).Encode(resp); err != nil {
		s.logger.Warn("IPC reply failed", logger.String("request_id", id), logger.Error(err))
		return
	}

	s.logger.Debug("IPC request handled",
		logger.String("request_id", id),
		logger.String("action", string(req.Action)),
		logger.String("status", resp.Status),
		logger.Duration("took", time.Since(start)))
}

// dispatch runs one action. Panics become error replies.
func (s *Server) dispatch(ctx context.Context, req Request) (resp Response) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("IPC handler panicked",
				logger.String("action", string(req.Action)),
				logger.String("panic", fmt.Sprint(r)))
			resp = failure(errors.NewInternal(fmt.Errorf("panic: %v", r)))
		}
	}()

	switch req.Action {
	case ActionGetCache:
		return success(s.backend.GetAll(), "")

	case ActionGetCacheMessage:
		if req.MessageID.IsZero() {
			return failure(errors.NewInvalidRequest("message_id is required"))
		}
		entry, err := s.backend.GetOne(req.MessageID)
		if err != nil {
			return failure(err)
		}
		return success(entry, "")

	case ActionUpdateCounter:
		if req.MessageID.IsZero() {
			return failure(errors.NewInvalidRequest("message_id is required"))
		}
		if req.Value == nil || *req.Value < 0 {
			return failure(errors.NewInvalidRequest("value must be a non-negative integer"))
		}
		if err := s.backend.SetCounter(ctx, req.MessageID, uint64(*req.Value)); err != nil {
			return failure(err)
		}
		return success(nil, "Counter updated")

	case ActionTriggerUpdate:
		if err := s.backend.Refresh(ctx); err != nil {
			return failure(err)
		}
		return success(nil, "Leaderboards updated")

	case ActionReloadCache:
		if err := s.backend.Reload(ctx); err != nil {
			return failure(err)
		}
		return success(nil, "Cache reloaded from database")

	case ActionCreateMessage:
		subtype, err := domain.ParseSubtype(req.MessageType)
		if err != nil {
			return failure(errors.NewInvalidRequest(err.Error()))
		}
		if req.InitialCounter < 0 {
			return failure(errors.NewInvalidRequest("initial_counter must be a non-negative integer"))
		}
		created, err := s.backend.Create(ctx, tracker.CreateRequest{
			ChannelID:      req.ChannelID,
			Subtype:        subtype,
			InitialCounter: uint64(req.InitialCounter),
			Domain:         req.CTFdDomain,
			APIKey:         req.CTFdAPIKey,
			ForumChannelID: req.ForumChannelID,
		})
		if err != nil {
			return failure(err)
		}
		return success(created, "Message created")

	case ActionDeleteMessage:
		if req.MessageID.IsZero() {
			return failure(errors.NewInvalidRequest("message_id is required"))
		}
		deleteLive := req.DeleteDiscordMessage == nil || *req.DeleteDiscordMessage
		if err := s.backend.Delete(ctx, req.MessageID, deleteLive); err != nil {
			return failure(err)
		}
		return success(nil, "Message deleted")

	default:
		return Response{Status: StatusError, Message: fmt.Sprintf("Unknown action: %s", req.Action), Code: errors.ErrInvalidRequest}
	}
}
