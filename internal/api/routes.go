package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"

	"ssvep-engine/internal/bridge"
	"ssvep-engine/internal/display"
	"ssvep-engine/internal/store"
)

// Commander issues one command round-trip against the display engine.
// bridge.Talk is the production implementation.
type Commander interface {
	Call(ctx context.Context, msg bridge.Message) (bridge.Message, error)
}

// Launcher starts the display engine process when it is not yet serving.
type Launcher func() error

// Config defines server dependencies.
type Config struct {
	DBPath         string
	DisplayAddr    string
	AllowedOrigins []string
	SilentDB       bool
	CommandTimeout time.Duration
	Clock          clockwork.Clock
	// Commander overrides the bridge client, used by tests.
	Commander Commander
	// Launch starts a display engine on demand. Optional; without it the
	// start endpoint only registers the session.
	Launch Launcher
}

// Server wires the gateway's HTTP handlers with the display bridge and
// persistence.
type Server struct {
	db             *store.Database
	talk           Commander
	displayAddr    string
	allowedOrigins []string
	cmdTimeout     time.Duration
	clock          clockwork.Clock
	notifier       *StatusNotifier
	launch         Launcher

	sessionMu     sync.Mutex
	activeSession string
}

// NewServer constructs the gateway server.
func NewServer(cfg Config) (*Server, error) {
	if cfg.DBPath == "" {
		return nil, errors.New("db path required")
	}
	db, err := store.Open(cfg.DBPath, cfg.SilentDB)
	if err != nil {
		return nil, err
	}

	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	displayAddr := strings.TrimSpace(cfg.DisplayAddr)
	if displayAddr == "" {
		displayAddr = bridge.DefaultAddr
	}
	talk := cfg.Commander
	if talk == nil {
		talk = bridge.NewTalk(displayAddr, clock)
	}
	timeout := cfg.CommandTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	return &Server{
		db:             db,
		talk:           talk,
		displayAddr:    displayAddr,
		allowedOrigins: cfg.AllowedOrigins,
		cmdTimeout:     timeout,
		clock:          clock,
		notifier:       NewStatusNotifier(clock),
		launch:         cfg.Launch,
	}, nil
}

// DB exposes the gateway's database handle.
func (s *Server) DB() *store.Database {
	return s.db
}

// Close releases the server's resources.
func (s *Server) Close() error {
	return s.db.Close()
}

// Router configures gin routes.
func (s *Server) Router() (*gin.Engine, error) {
	r := gin.Default()

	corsCfg := cors.DefaultConfig()
	corsCfg.AllowCredentials = true
	if len(s.allowedOrigins) == 0 {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = s.allowedOrigins
	}
	corsCfg.AllowHeaders = []string{"Origin", "Content-Type", "Accept"}
	corsCfg.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	r.Use(cors.New(corsCfg))

	r.GET("/api/healthz", s.handleHealth)

	// Operator-console surface, paths kept verbatim for the UI.
	r.GET("/startSSVEPDisplay", s.handleStartDisplay)
	r.GET("/checkoutPassedSeconds.json", s.handleCheckoutPassedSeconds)
	r.GET("/appendCueSequence.json", s.handleAppendCueSequence)
	r.GET("/ssvepLayoutColumns", s.handleLayoutColumns)
	r.GET("/consumeCue.json", s.handleConsumeCue)

	api := r.Group("/api")
	{
		api.GET("/cueSequences", s.handleListCueSequences)
		api.GET("/sessions", s.handleListSessions)
		api.GET("/sessions/:id/prompts", s.handleListPrompts)
		api.GET("/status/stream", s.handleStatusStream)
	}

	return r, nil
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleStartDisplay registers a display session and, when a launcher is
// configured and the command socket is free, starts the display engine.
// The body is an empty string whatever happens; start is best effort.
func (s *Server) handleStartDisplay(c *gin.Context) {
	if bridge.PortInUse(s.displayAddr) {
		logrus.WithField("addr", s.displayAddr).Info("display engine already serving")
	} else if s.launch != nil {
		if err := s.launch(); err != nil {
			logrus.WithError(err).Error("launch display engine")
		}
	} else {
		logrus.WithField("addr", s.displayAddr).Warn("no display engine and no launcher configured")
	}

	if previous := s.currentSession(); previous != "" {
		if err := s.db.CloseDisplaySession(previous, s.clock.Now()); err != nil {
			logrus.WithError(err).WithField("session", previous).Warn("close previous display session")
		}
	}

	sessionID := uuid.NewString()
	if _, err := s.db.CreateDisplaySession(sessionID, display.DefaultColumns, s.clock.Now()); err != nil {
		logrus.WithError(err).Warn("persist display session")
	} else {
		s.sessionMu.Lock()
		s.activeSession = sessionID
		s.sessionMu.Unlock()
	}

	s.notifier.Broadcast(StatusEvent{
		Type:      EventSessionStarted,
		SessionID: sessionID,
		Columns:   display.DefaultColumns,
	})
	c.String(http.StatusOK, "")
}

func (s *Server) handleCheckoutPassedSeconds(c *gin.Context) {
	reply, ok := s.roundTrip(c, bridge.Message{Cmd: bridge.CmdQueryPassedSeconds},
		"Failed checkoutPassedSeconds.json")
	if !ok {
		return
	}
	c.JSON(http.StatusOK, reply)
}

func (s *Server) handleAppendCueSequence(c *gin.Context) {
	text := c.Query("text")
	reply, ok := s.roundTrip(c, bridge.Message{Cmd: bridge.CmdAppendCueSequence, Text: text},
		"Failed appendCueSequence.json")
	if !ok {
		return
	}

	if reply.Ok() {
		if _, err := s.db.SaveCueSequence(text); err != nil {
			logrus.WithError(err).WithField("text", text).Warn("persist cue sequence")
		}
		s.notifier.Broadcast(StatusEvent{
			Type:      EventCueAppended,
			SessionID: s.currentSession(),
			Text:      text,
		})
	}
	c.JSON(http.StatusOK, reply)
}

func (s *Server) handleLayoutColumns(c *gin.Context) {
	columns, err := strconv.Atoi(strings.TrimSpace(c.Query("columns")))
	if err != nil {
		s.renderError(c, http.StatusBadRequest, errors.New("columns must be an integer"))
		return
	}

	reply, ok := s.roundTrip(c, bridge.Message{Cmd: bridge.CmdChangeColumns, Columns: columns},
		"Failed ssvepLayoutColumns")
	if !ok {
		return
	}

	if reply.Ok() {
		if sessionID := s.currentSession(); sessionID != "" {
			if err := s.db.UpdateDisplaySessionColumns(sessionID, columns); err != nil {
				logrus.WithError(err).Warn("persist session columns")
			}
		}
		s.notifier.Broadcast(StatusEvent{
			Type:      EventColumnsChanged,
			SessionID: s.currentSession(),
			Columns:   columns,
		})
	}
	c.JSON(http.StatusOK, reply)
}

// handleConsumeCue forwards a decoded selection to the display's word bag.
// A consumed cue is recorded as the active session's prompt history.
func (s *Server) handleConsumeCue(c *gin.Context) {
	text := c.Query("text")
	reply, ok := s.roundTrip(c, bridge.Message{Cmd: bridge.CmdConsumeCue, Text: text},
		"Failed consumeCue.json")
	if !ok {
		return
	}

	if reply.Ok() {
		if sessionID := s.currentSession(); sessionID != "" {
			if err := s.db.AppendPromptEntry(sessionID, reply.Text); err != nil {
				logrus.WithError(err).WithField("value", reply.Text).Warn("persist prompt entry")
			}
		}
	}
	c.JSON(http.StatusOK, reply)
}

// roundTrip performs one bridge call for a handler. An unreachable display
// maps to 404 with the given detail, mirroring how the browser console
// expects these endpoints to fail.
func (s *Server) roundTrip(c *gin.Context, msg bridge.Message, detail string) (bridge.Message, bool) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), s.cmdTimeout)
	defer cancel()

	reply, err := s.talk.Call(ctx, msg)
	if err != nil {
		if errors.Is(err, bridge.ErrUnreachable) {
			logrus.WithError(err).WithField("cmd", msg.Cmd).Error("display engine unreachable")
			c.JSON(http.StatusNotFound, gin.H{"detail": detail})
		} else {
			s.renderError(c, http.StatusInternalServerError, err)
		}
		return bridge.Message{}, false
	}
	logrus.WithFields(logrus.Fields{
		"cmd":    msg.Cmd,
		"status": reply.Status,
	}).Debug("bridge reply")
	return reply, true
}

func (s *Server) handleListCueSequences(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))

	rows, err := s.db.ListCueSequences(limit)
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}
	total, err := s.db.CountCueSequences()
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}
	dtos := make([]CueSequenceDTO, 0, len(rows))
	for _, row := range rows {
		dtos = append(dtos, CueSequenceFromModel(row))
	}
	c.JSON(http.StatusOK, CueSequencesResponse{Items: dtos, Total: total})
}

func (s *Server) handleListSessions(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))

	rows, err := s.db.ListDisplaySessions(limit)
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}
	dtos := make([]SessionDTO, 0, len(rows))
	for _, row := range rows {
		dtos = append(dtos, SessionFromModel(row))
	}
	c.JSON(http.StatusOK, SessionsResponse{Items: dtos})
}

func (s *Server) handleListPrompts(c *gin.Context) {
	sessionID := strings.TrimSpace(c.Param("id"))
	if sessionID == "" {
		s.renderError(c, http.StatusBadRequest, errors.New("session id required"))
		return
	}

	rows, err := s.db.ListPromptEntries(sessionID)
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}
	dtos := make([]PromptEntryDTO, 0, len(rows))
	for _, row := range rows {
		dtos = append(dtos, PromptEntryFromModel(row))
	}
	c.JSON(http.StatusOK, PromptsResponse{Items: dtos})
}

func (s *Server) handleStatusStream(c *gin.Context) {
	upgrader := websocket.Upgrader{
		HandshakeTimeout:  5 * time.Second,
		EnableCompression: true,
		CheckOrigin: func(r *http.Request) bool {
			if len(s.allowedOrigins) == 0 {
				return true
			}
			origin := strings.TrimSpace(r.Header.Get("Origin"))
			for _, allowed := range s.allowedOrigins {
				if strings.EqualFold(origin, allowed) {
					return true
				}
			}
			return false
		},
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logrus.WithError(err).Warn("upgrade websocket")
		return
	}

	client := s.notifier.Register(conn)
	logrus.WithField("remote", conn.RemoteAddr().String()).Info("status websocket connected")
	defer s.notifier.Unregister(client)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if !websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logrus.WithField("remote", conn.RemoteAddr().String()).Info("status websocket closed")
			} else {
				logrus.WithError(err).Warn("status websocket unexpected close")
			}
			break
		}
	}
}

func (s *Server) currentSession() string {
	s.sessionMu.Lock()
	defer s.sessionMu.Unlock()
	return s.activeSession
}

func (s *Server) renderError(c *gin.Context, status int, err error) {
	c.JSON(status, gin.H{"error": err.Error()})
}
