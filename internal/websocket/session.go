package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"task-service/internal/models"
	"task-service/internal/services"
	"task-service/pkg/response"
)

// DefaultAuthTimeout bounds the wait for a credential when the handshake
// carried none
const DefaultAuthTimeout = 10 * time.Second

// State is the lifecycle position of a Session
type State int32

const (
	StateConnecting State = iota
	StateAuthenticating
	StateActive
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateAuthenticating:
		return "authenticating"
	case StateActive:
		return "active"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Authenticator resolves a session token to an identity
type Authenticator interface {
	Resolve(ctx context.Context, token string) (*models.Identity, error)
}

// TaskManager performs task use-cases on behalf of one user
type TaskManager interface {
	List(ctx context.Context, ownerID string) ([]models.Task, error)
	Create(ctx context.Context, ownerID string, req *models.CreateTaskRequest) (*models.Task, error)
	Update(ctx context.Context, ownerID, taskID string, req *models.UpdateTaskRequest) (*models.Task, error)
	Delete(ctx context.Context, ownerID, taskID string) error
}

type SessionOptions struct {
	// HandshakeToken is the credential presented during the upgrade, if any
	HandshakeToken string
	AuthTimeout    time.Duration
}

// Session drives one connection: authentication, then strictly ordered
// processing of inbound actions until the transport goes away.
type Session struct {
	client *Client
	hub    *Hub
	auth   Authenticator
	tasks  TaskManager
	opts   SessionOptions

	identity *models.Identity
	state    atomic.Int32
}

func NewSession(client *Client, hub *Hub, auth Authenticator, tasks TaskManager, opts SessionOptions) *Session {
	if opts.AuthTimeout <= 0 {
		opts.AuthTimeout = DefaultAuthTimeout
	}
	return &Session{
		client: client,
		hub:    hub,
		auth:   auth,
		tasks:  tasks,
		opts:   opts,
	}
}

func (s *Session) State() State {
	return State(s.state.Load())
}

func (s *Session) setState(state State) {
	s.state.Store(int32(state))
	slog.Debug("Session state changed", "clientID", s.client.ID(), "state", state.String())
}

// Identity is nil until the session authenticated
func (s *Session) Identity() *models.Identity {
	return s.identity
}

// Run blocks until the connection is closed
func (s *Session) Run() {
	defer s.shutdown()

	s.client.Start()
	s.setState(StateAuthenticating)

	first, ok := s.authenticate()
	if !ok {
		return
	}
	s.setState(StateActive)

	ctx := s.client.Context()
	if first != nil && first.Action != "" {
		s.process(ctx, first, false)
	}

	for raw := range s.client.Inbound() {
		// Frames still buffered after a close are dropped
		if s.client.IsClosed() {
			continue
		}
		s.handle(ctx, raw)
	}
}

// authenticate binds an identity from the handshake token or from the first
// inbound message. The first message is returned so its action can run.
func (s *Session) authenticate() (*InboundMessage, bool) {
	ctx := s.client.Context()
	token := s.opts.HandshakeToken

	var first *InboundMessage
	if token == "" {
		timer := time.NewTimer(s.opts.AuthTimeout)
		defer timer.Stop()

		select {
		case raw, ok := <-s.client.Inbound():
			if !ok {
				return nil, false
			}
			msg, err := ParseInbound(raw)
			if err == nil {
				first = msg
				token = msg.Token
			}
		case <-timer.C:
			slog.Info("Authentication timed out", "clientID", s.client.ID())
		case <-ctx.Done():
			return nil, false
		}
	}

	identity, err := s.resolve(ctx, token)
	if err != nil {
		slog.Info("Rejected WebSocket client", "clientID", s.client.ID(), "error", err)
		s.reject()
		return nil, false
	}

	s.identity = identity
	s.client.bind(identity.UserID)
	if err := s.hub.Register(s.client); err != nil {
		slog.Error("Failed to register client", "clientID", s.client.ID(), "userID", identity.UserID, "error", err)
		return nil, false
	}

	if s.opts.HandshakeToken != "" {
		s.reply(&AuthenticatedMessage{Event: EventAuthenticated, User: identity})
	}
	return first, true
}

func (s *Session) resolve(ctx context.Context, token string) (*models.Identity, error) {
	if token == "" {
		return nil, services.ErrInvalidCredential
	}
	return s.auth.Resolve(ctx, token)
}

func (s *Session) reject() {
	s.setState(StateClosing)
	s.replyCode(response.ErrCodeInvalidCredential)
	s.client.CloseAfterFlush(websocket.ClosePolicyViolation, response.Message(response.ErrCodeInvalidCredential))
}

func (s *Session) shutdown() {
	s.setState(StateClosing)
	s.hub.Deregister(s.client.ID())
	s.client.Close()
	s.setState(StateClosed)
}

// handle processes one frame
func (s *Session) handle(ctx context.Context, raw []byte) {
	msg, err := ParseInbound(raw)
	if err != nil {
		slog.Debug("Malformed message", "clientID", s.client.ID(), "userID", s.identity.UserID, "error", err)
		s.replyCode(response.ErrCodeParamInvalid)
		return
	}
	s.process(ctx, msg, true)
}

// process runs one action. A panic is turned into an error reply.
func (s *Session) process(ctx context.Context, msg *InboundMessage, checkToken bool) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Panic while handling message", "clientID", s.client.ID(), "userID", s.identity.UserID, "action", msg.Action, "panic", r)
			s.replyCode(response.ErrCodeInternal)
		}
	}()

	// A token on a later message must still belong to the bound user
	if checkToken && msg.Token != "" {
		identity, err := s.auth.Resolve(ctx, msg.Token)
		if err != nil || identity.UserID != s.identity.UserID {
			s.replyCode(response.ErrCodeInvalidCredential)
			return
		}
	}

	s.perform(ctx, msg)
}

func (s *Session) perform(ctx context.Context, msg *InboundMessage) {
	userID := s.identity.UserID

	switch msg.Action {
	case ActionGetTasks, ActionListTasks:
		tasks, err := s.tasks.List(ctx, userID)
		if err != nil {
			s.replyErr(err)
			return
		}
		s.reply(NewTaskListMessage(tasks))

	case ActionAddTask, ActionCreateTask:
		req, err := msg.CreateRequest()
		if err != nil {
			s.replyErr(err)
			return
		}
		if _, err := s.tasks.Create(ctx, userID, req); err != nil {
			s.replyErr(err)
		}

	case ActionUpdateTask:
		req, err := msg.UpdateRequest()
		if err != nil {
			s.replyErr(err)
			return
		}
		if _, err := s.tasks.Update(ctx, userID, msg.TargetID(), req); err != nil {
			s.replyErr(err)
		}

	case ActionDeleteTask:
		taskID := msg.TargetID()
		if taskID == "" {
			s.replyCode(response.ErrCodeParamInvalid)
			return
		}
		if err := s.tasks.Delete(ctx, userID, taskID); err != nil {
			s.replyErr(err)
		}

	default:
		slog.Debug("Unknown action", "clientID", s.client.ID(), "userID", userID, "action", msg.Action)
		s.replyCode(response.ErrCodeParamInvalid)
	}
}

func (s *Session) replyErr(err error) {
	code := services.ErrorCode(err)
	if errors.Is(err, ErrProtocol) {
		code = response.ErrCodeParamInvalid
	}
	if code != response.ErrCodeParamInvalid && code != response.ErrCodeTaskNotFound {
		slog.Error("Action failed", "clientID", s.client.ID(), "error", err)
	}
	s.replyCode(code)
}

func (s *Session) replyCode(code int) {
	s.reply(&ErrorMessage{Error: response.Message(code)})
}

func (s *Session) reply(v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("Failed to encode reply", "clientID", s.client.ID(), "error", err)
		return
	}
	// A requester that cannot take its own reply is gone
	if err := s.client.Send(data); err != nil {
		slog.Debug("Failed to send reply, closing client", "clientID", s.client.ID(), "error", err)
		s.client.Close()
	}
}
