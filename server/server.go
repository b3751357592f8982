// Package server ties the pieces together: it accepts TCP connections,
// walks them through the handshake, status and login states on their own
// goroutines and hands the survivors to the tick loop, which owns the world
// and every player in it.
package server

import (
	"crypto/md5"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net"
	"os"
	"os/signal"
	"slices"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/basalt-mc/basalt/server/player"
	"github.com/basalt-mc/basalt/server/protocol"
	"github.com/basalt-mc/basalt/server/query"
	"github.com/basalt-mc/basalt/server/session"
	"github.com/basalt-mc/basalt/server/world"
	"github.com/google/uuid"
	"github.com/sandertv/gophertunnel/minecraft/text"
	"golang.org/x/exp/maps"
)

// The protocol generation spoken on the wire and the game version it
// belongs to, announced in the server list.
const (
	protocolVersion = 760
	gameVersion     = "1.19.1"
)

const (
	// loginTimeout bounds how long a connection may sit in the handshake,
	// status and login states before it is dropped.
	loginTimeout = 10 * time.Second

	tickInterval        = time.Second / 20
	tpsSampleSize       = 20
	tpsWarningThreshold = 19.0
)

// Server accepts client connections and runs the world they play in.
type Server struct {
	conf Config
	log  *slog.Logger

	world    *world.World
	listener net.Listener
	query    *query.Responder

	// mu guards the queues crossing between connection goroutines and the
	// tick loop, together with the profile reservations.
	mu       sync.Mutex
	joins    []*joining
	quits    []*online
	execs    []func()
	profiles map[uuid.UUID]string
	closed   bool

	// online is the set of admitted sessions, owned by the tick loop.
	online []*online

	count atomic.Int32
	tps   atomic.Uint64

	closing   chan struct{}
	closeOnce sync.Once
	running   sync.WaitGroup
}

// joining is a connection that finished the login state and waits on the
// admission queue for the tick loop to place it into the world.
type joining struct {
	sess *session.Session
	name string
	uuid uuid.UUID
}

// online couples an admitted player to its session. It receives the
// session's inbound frames on the tick thread.
type online struct {
	srv  *Server
	sess *session.Session
	p    *player.Player
}

// HandlePacket feeds one framed play state packet into the player.
func (o *online) HandlePacket(frame []byte) error {
	if len(frame) == 0 {
		return errors.New("empty packet frame")
	}
	return o.p.HandlePacket(frame[0], frame[1:])
}

// Disconnected queues the player for detachment on the tick thread. It runs
// on the session's read goroutine.
func (o *online) Disconnected() {
	o.srv.mu.Lock()
	o.srv.quits = append(o.srv.quits, o)
	o.srv.mu.Unlock()
}

// World returns the world players are placed into. It is owned by the tick
// loop; use Exec to touch it from other goroutines.
func (srv *Server) World() *world.World { return srv.world }

// TPS returns the tick rate achieved over the last sampling window.
func (srv *Server) TPS() float64 { return math.Float64frombits(srv.tps.Load()) }

// Allower returns the Allower deciding which connections may pass login.
func (srv *Server) Allower() Allower { return srv.conf.Allower }

// PlayerCount returns the number of connected players.
func (srv *Server) PlayerCount() int { return int(srv.count.Load()) }

// PlayerNames returns the names of the connected players, sorted.
func (srv *Server) PlayerNames() []string {
	srv.mu.Lock()
	names := maps.Values(srv.profiles)
	srv.mu.Unlock()
	slices.Sort(names)
	return names
}

// Exec queues fn to run on the tick thread at the start of the next tick,
// after disconnects and admissions have been processed. It is the only safe
// way into the world from other goroutines.
func (srv *Server) Exec(fn func()) {
	srv.mu.Lock()
	srv.execs = append(srv.execs, fn)
	srv.mu.Unlock()
}

// Listen binds the configured address and starts the accept and tick loops.
// It returns once the listener is bound; Wait blocks until shutdown.
func (srv *Server) Listen() error {
	l, err := net.Listen("tcp", srv.conf.Address)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	srv.listener = l

	if srv.conf.QueryAddress != "" {
		q, err := query.Config{Log: srv.log, Source: srv.queryData}.Listen(srv.conf.QueryAddress)
		if err != nil {
			srv.log.Error("Query listener failed, continuing without.", "addr", srv.conf.QueryAddress, "err", err)
		} else {
			srv.query = q
		}
	}

	srv.running.Add(2)
	go srv.acceptLoop(l)
	go srv.tickLoop()
	srv.log.Info("Server running.", "addr", l.Addr(), "version", gameVersion, "protocol", protocolVersion)
	return nil
}

// Wait blocks until the server has fully shut down.
func (srv *Server) Wait() { srv.running.Wait() }

// CloseOnProgramEnd closes the server when the program receives an
// interrupt or termination signal.
func (srv *Server) CloseOnProgramEnd() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		_ = srv.Close()
	}()
}

// Close stops the server: the listener stops accepting, players are kicked
// with the shutdown message and the tick loop drains. Only the first call
// acts; it is safe from any goroutine.
func (srv *Server) Close() error {
	srv.closeOnce.Do(func() {
		srv.mu.Lock()
		srv.closed = true
		srv.mu.Unlock()

		srv.log.Info("Server shutting down.")
		if srv.query != nil {
			srv.query.Close()
		}
		if srv.listener != nil {
			_ = srv.listener.Close()
		}
		close(srv.closing)
	})
	return nil
}

// acceptLoop hands every accepted connection its own negotiation goroutine.
func (srv *Server) acceptLoop(l net.Listener) {
	defer srv.running.Done()
	for {
		conn, err := l.Accept()
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				srv.log.Error("Accept failed.", "err", err)
			}
			return
		}
		go srv.handleConn(conn)
	}
}

// handleConn negotiates the pre-play states on the connection's goroutine
// and, for logins that make it through, queues the session for admission and
// keeps reading frames until the connection dies.
func (srv *Server) handleConn(conn net.Conn) {
	s := session.New(conn, srv.log)
	j, ok := srv.negotiate(s)
	if !ok {
		return
	}

	srv.mu.Lock()
	if srv.closed {
		srv.mu.Unlock()
		srv.release(j.uuid)
		s.Close()
		return
	}
	srv.joins = append(srv.joins, j)
	srv.mu.Unlock()

	s.ReadLoop()
}

// negotiate walks a fresh connection through the handshake and into either
// the status or the login state. It reports false when the connection is
// done, whether served or failed; the session is closed in that case.
func (srv *Server) negotiate(s *session.Session) (*joining, bool) {
	_ = s.SetReadDeadline(time.Now().Add(loginTimeout))

	id, payload, err := srv.readPacket(s)
	if err != nil {
		s.Close()
		return nil, false
	}
	hs, err := protocol.ParseHandshake(id, payload)
	if err != nil {
		srv.log.Debug("Handshake failed.", "raddr", s.RemoteAddr(), "err", err)
		s.Close()
		return nil, false
	}

	switch hs.Intent {
	case protocol.IntentStatus:
		srv.serveStatus(s)
		return nil, false
	case protocol.IntentLogin:
		return srv.serveLogin(s, hs)
	default:
		srv.log.Debug("Handshake with unknown intent.", "raddr", s.RemoteAddr(), "intent", hs.Intent)
		s.Close()
		return nil, false
	}
}

// readPacket reads one frame and splits off the packet id.
func (srv *Server) readPacket(s *session.Session) (byte, []byte, error) {
	frame, err := s.ReadFrame()
	if err != nil {
		return 0, nil, err
	}
	if len(frame) == 0 {
		return 0, nil, errors.New("empty packet frame")
	}
	return frame[0], frame[1:], nil
}

// serveStatus answers the server list exchange: one status request, one
// ping, then the connection closes.
func (srv *Server) serveStatus(s *session.Session) {
	defer s.Close()
	var buf protocol.Buffer
	responded := false
	for {
		id, payload, err := srv.readPacket(s)
		if err != nil {
			return
		}
		pk, err := protocol.ParseStatus(id, payload)
		if err != nil {
			return
		}
		switch pk := pk.(type) {
		case *protocol.StatusRequest:
			if responded {
				return
			}
			responded = true
			buf.Reset()
			_ = buf.WritePacket(&protocol.StatusResponse{JSON: srv.statusJSON()})
			s.Send(buf.Bytes())
		case *protocol.PingRequest:
			buf.Reset()
			_ = buf.WritePacket(&protocol.PongResponse{Time: pk.Time})
			s.Send(buf.Bytes())
			return
		}
	}
}

// statusJSON renders the server list entry.
func (srv *Server) statusJSON() string {
	var status struct {
		Version struct {
			Name     string `json:"name"`
			Protocol int    `json:"protocol"`
		} `json:"version"`
		Players struct {
			Max    int `json:"max"`
			Online int `json:"online"`
		} `json:"players"`
		Description struct {
			Text string `json:"text"`
		} `json:"description"`
	}
	status.Version.Name = gameVersion
	status.Version.Protocol = protocolVersion
	status.Players.Online = int(srv.count.Load())
	status.Players.Max = srv.conf.MaxPlayers
	if status.Players.Max == 0 {
		status.Players.Max = status.Players.Online + 1
	}
	status.Description.Text = srv.conf.MOTD
	b, err := json.Marshal(status)
	if err != nil {
		return `{}`
	}
	return string(b)
}

// serveLogin runs the login state. A connection that passes the version,
// name, allower and capacity checks receives LoginSuccess and is handed
// back for admission.
func (srv *Server) serveLogin(s *session.Session, hs *protocol.Intention) (*joining, bool) {
	if hs.Protocol != protocolVersion {
		srv.loginFail(s, fmt.Sprintf("Incompatible client! Please use %v.", gameVersion))
		return nil, false
	}

	id, payload, err := srv.readPacket(s)
	if err != nil {
		s.Close()
		return nil, false
	}
	hello, err := protocol.ParseLogin(id, payload)
	if err != nil {
		srv.log.Debug("Login failed.", "raddr", s.RemoteAddr(), "err", err)
		s.Close()
		return nil, false
	}
	if !validName(hello.Name) {
		srv.loginFail(s, "Invalid characters in username")
		return nil, false
	}

	pid := hello.UUID
	if !hello.HasUUID {
		pid = offlineUUID(hello.Name)
	}
	if msg, ok := srv.conf.Allower.Allow(s.RemoteAddr(), hello.Name, pid); !ok {
		srv.log.Info("Player not allowed to join.", "name", hello.Name, "raddr", s.RemoteAddr())
		srv.loginFail(s, msg)
		return nil, false
	}
	if msg, ok := srv.reserve(pid, hello.Name); !ok {
		srv.loginFail(s, msg)
		return nil, false
	}

	var buf protocol.Buffer
	_ = buf.WritePacket(&protocol.LoginSuccess{Profile: protocol.GameProfile{UUID: pid, Name: hello.Name}})
	s.Send(buf.Bytes())
	_ = s.SetReadDeadline(time.Time{})
	return &joining{sess: s, name: hello.Name, uuid: pid}, true
}

// loginFail kicks a connection out of the login state with a reason.
func (srv *Server) loginFail(s *session.Session, reason string) {
	var buf protocol.Buffer
	_ = buf.WritePacket(&protocol.LoginDisconnect{Reason: protocol.JSONText(reason)})
	s.Send(buf.Bytes())
	s.Close()
}

// reserve claims a profile slot for a connection that passed login. The
// reservation holds the capacity and duplicate checks stable between the
// login state and the tick that admits the player.
func (srv *Server) reserve(id uuid.UUID, name string) (string, bool) {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	if srv.closed {
		return "Server closed", false
	}
	if srv.conf.MaxPlayers > 0 && len(srv.profiles) >= srv.conf.MaxPlayers {
		return "The server is full!", false
	}
	if _, ok := srv.profiles[id]; ok {
		return "You are already connected to this server!", false
	}
	srv.profiles[id] = name
	srv.count.Store(int32(len(srv.profiles)))
	return "", true
}

// release frees a profile slot claimed by reserve.
func (srv *Server) release(id uuid.UUID) {
	srv.mu.Lock()
	delete(srv.profiles, id)
	srv.count.Store(int32(len(srv.profiles)))
	srv.mu.Unlock()
}

// tickLoop drives the world at twenty ticks per second, sampling the
// achieved rate and warning once when it dips below the threshold.
func (srv *Server) tickLoop() {
	defer srv.running.Done()
	tc := time.NewTicker(tickInterval)
	defer tc.Stop()
	lastTick := time.Now()
	var (
		durationSum time.Duration
		ticksCount  int
		warned      bool
	)
	for {
		select {
		case <-tc.C:
			tickStart := time.Now()
			duration := tickStart.Sub(lastTick)
			lastTick = tickStart
			if duration > 0 {
				durationSum += duration
				ticksCount++
				if ticksCount >= tpsSampleSize {
					avg := durationSum / time.Duration(ticksCount)
					if avg > 0 {
						tps := 1.0 / avg.Seconds()
						srv.tps.Store(math.Float64bits(tps))
						if tps < tpsWarningThreshold {
							if !warned {
								srv.log.Warn("TPS dropped below threshold.", "tps", tps)
								warned = true
							}
						} else if warned {
							warned = false
						}
					} else {
						srv.tps.Store(math.Float64bits(0))
					}
					durationSum = 0
					ticksCount = 0
				}
			}
			srv.world.Tick()
		case <-srv.closing:
			srv.shutdown()
			return
		}
	}
}

// tick runs the server's per-tick connection work. The world calls it early
// in every tick, so everything here happens on the tick thread: dead
// sessions detach, queued functions run, negotiated connections join and
// every session's inbound packets are dispatched.
func (srv *Server) tick(int64) {
	srv.mu.Lock()
	quits, joins, execs := srv.quits, srv.joins, srv.execs
	srv.quits, srv.joins, srv.execs = nil, nil, nil
	srv.mu.Unlock()

	for _, o := range quits {
		srv.dropOnline(o, "Connection lost")
	}
	for _, fn := range execs {
		fn()
	}
	for _, j := range joins {
		srv.admit(j)
	}
	for _, o := range slices.Clone(srv.online) {
		if err := o.sess.DispatchInbound(); err != nil {
			srv.log.Warn("Kicked player for protocol violation.", "name", o.p.Name(), "raddr", o.sess.RemoteAddr(), "err", err)
			srv.dropOnline(o, "Protocol error")
		}
	}
}

// admit places a logged in connection into the world and starts feeding its
// packets to the player.
func (srv *Server) admit(j *joining) {
	p := srv.world.AddPlayer(player.Config{
		Name:       j.name,
		UUID:       j.uuid,
		Conn:       j.sess,
		ViewRadius: int32(srv.conf.ViewRadius),
	}, srv.world.Spawn())

	o := &online{srv: srv, sess: j.sess, p: p}
	if !j.sess.Handle(o) {
		// The connection died while waiting for admission. The player was
		// already announced, so let the next tick evict it normally.
		p.Disconnect("Connection lost")
		srv.release(j.uuid)
		return
	}
	srv.online = append(srv.online, o)
	if srv.conf.JoinMessage != "" {
		srv.broadcastf(srv.conf.JoinMessage, j.name)
	}
}

// dropOnline detaches an admitted player. The reason reaches the client
// only when the connection is still alive, as on kicks.
func (srv *Server) dropOnline(o *online, reason string) {
	i := slices.Index(srv.online, o)
	if i < 0 {
		return
	}
	srv.online = slices.Delete(srv.online, i, i+1)
	o.p.Disconnect(reason)
	srv.release(o.p.UUID())
	if srv.conf.QuitMessage != "" {
		srv.broadcastf(srv.conf.QuitMessage, o.p.Name())
	}
}

// broadcastf formats a colour tagged chat message and shows it to everyone.
func (srv *Server) broadcastf(format string, args ...any) {
	srv.world.Broadcast(&protocol.SystemChat{Content: protocol.JSONText(text.Colourf(format, args...))})
}

// shutdown kicks every player and runs a final tick so their disconnect
// packets flush before the process ends. It runs on the tick goroutine.
func (srv *Server) shutdown() {
	srv.mu.Lock()
	joins := srv.joins
	srv.joins = nil
	srv.mu.Unlock()
	for _, j := range joins {
		j.sess.Close()
		srv.release(j.uuid)
	}

	for _, o := range slices.Clone(srv.online) {
		o.p.Disconnect(srv.conf.ShutdownMessage)
		srv.release(o.p.UUID())
	}
	srv.online = nil
	srv.world.Tick()
}

// queryData snapshots the server state for the query responder. It runs on
// the responder's goroutine and only touches guarded state.
func (srv *Server) queryData(host string, port int) query.Data {
	max := srv.conf.MaxPlayers
	if max == 0 {
		max = srv.PlayerCount() + 1
	}
	return query.Data{
		HostName:         srv.conf.Name,
		MOTD:             srv.conf.MOTD,
		GameMode:         gameModeName(srv.conf.GameMode),
		Difficulty:       "NORMAL",
		WorldName:        "world",
		Version:          gameVersion,
		PlayerCount:      srv.PlayerCount(),
		MaxPlayers:       max,
		HostIP:           host,
		HostPort:         port,
		PlayerNames:      srv.PlayerNames(),
		WhitelistEnabled: srv.conf.Allower.Restricted(),
	}
}

// gameModeName translates a game mode id into the form query clients show.
func gameModeName(mode uint8) string {
	switch mode {
	case 1:
		return "CREATIVE"
	case 2:
		return "ADVENTURE"
	case 3:
		return "SPECTATOR"
	}
	return "SURVIVAL"
}

// validName reports whether a login name fits the vanilla charset.
func validName(name string) bool {
	if len(name) == 0 || len(name) > 16 {
		return false
	}
	for i := 0; i < len(name); i++ {
		switch c := name[i]; {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '_':
		default:
			return false
		}
	}
	return true
}

// offlineUUID derives the stable profile id used when the client does not
// announce one: an MD5 name based UUID over "OfflinePlayer:" + name.
func offlineUUID(name string) uuid.UUID {
	sum := md5.Sum([]byte("OfflinePlayer:" + name))
	sum[6] = sum[6]&0x0f | 0x30
	sum[8] = sum[8]&0x3f | 0x80
	return uuid.UUID(sum)
}
