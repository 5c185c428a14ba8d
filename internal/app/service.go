// Package app holds the game logic: room store, matchmaking, the round
// state machine, reconnection snapshots and stroke relay. Adapters call
// into Service; Service never touches sockets directly, it only enqueues
// encoded frames onto connection writers.
package app

import (
	"net"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Sketch/internal/audit"
	"github.com/dkeye/Sketch/internal/config"
	"github.com/dkeye/Sketch/internal/domain"
	"github.com/dkeye/Sketch/internal/protocol"
	"github.com/dkeye/Sketch/internal/stats"
)

type Service struct {
	cfg   *config.Config
	store *Store
	words *WordList
	stats *stats.Store
	audit *audit.Logger
	rec   *ReconnectStore

	// Injectable clock for timer and countdown tests.
	now func() time.Time
}

func NewService(cfg *config.Config, words *WordList, statsStore *stats.Store, auditLog *audit.Logger) *Service {
	return &Service{
		cfg:   cfg,
		store: NewStore(cfg.MaxRooms),
		words: words,
		stats: statsStore,
		audit: auditLog,
		rec:   NewReconnectStore(cfg.SnapshotCap, cfg.ReconnectWindow),
		now:   time.Now,
	}
}

// send encodes one envelope and enqueues it on the player's writer. Safe
// to call with the store lock held: Enqueue never blocks. A full queue
// means the peer stopped draining; the connection is closed and its read
// loop will run the disconnect path.
func (s *Service) send(p *domain.Player, t protocol.MsgType, payload any) {
	if p.Conn == nil {
		return
	}
	s.sendConn(p.Conn, t, payload)
}

func (s *Service) sendConn(c domain.Messenger, t protocol.MsgType, payload any) {
	env, err := protocol.NewEnvelope(t, payload)
	if err != nil {
		log.Error().Err(err).Str("module", "app").Stringer("type", t).Msg("encode payload")
		return
	}
	frame, err := protocol.EncodeFrame(env, s.cfg.MaxFrameBytes)
	if err != nil {
		log.Error().Err(err).Str("module", "app").Stringer("type", t).Msg("encode frame")
		return
	}
	if !c.Enqueue(frame) {
		log.Warn().Str("module", "app").Stringer("type", t).Msg("send queue full, dropping connection")
		c.Close()
	}
}

// broadcast unicasts to every room member in join order, skipping the
// excluded player id (0 excludes nobody: ids start at 1).
func (s *Service) broadcast(r *domain.Room, t protocol.MsgType, payload any, except uint32) {
	for _, p := range r.Players {
		if p.ID == except {
			continue
		}
		s.send(p, t, payload)
	}
}

func (s *Service) sendError(p *domain.Player, err error) {
	s.send(p, protocol.MsgError, protocol.ErrorPayload{Error: err.Error()})
}

// Register creates the player record for a fresh connection and answers
// with the assigned id and session token.
func (s *Service) Register(conn domain.Messenger, ip string, req protocol.RegisterPayload) *domain.Player {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()

	p := &domain.Player{
		ID:           s.store.allocPlayerID(),
		Username:     strings.TrimSpace(req.Username),
		Conn:         conn,
		IP:           ip,
		State:        domain.PlayerLobby,
		RTT:          time.Duration(req.RTTMillis) * time.Millisecond,
		SessionToken: newSessionToken(),
		LastSeen:     s.now(),
	}
	if p.Username == "" {
		p.Username = "player"
	}
	s.store.players[p.ID] = p

	s.audit.Player(p.ID, "registered", p.Username)
	log.Info().Str("module", "app").Uint32("player_id", p.ID).Str("username", p.Username).Msg("player registered")
	s.send(p, protocol.MsgRegisterAck, protocol.RegisterAck{
		PlayerID:     p.ID,
		Username:     p.Username,
		SessionToken: p.SessionToken,
	})
	return p
}

// Ping refreshes liveness and the client-measured RTT used by
// matchmaking, and answers with the server clock.
func (s *Service) Ping(p *domain.Player, req protocol.PingPayload) {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()

	now := s.now()
	p.LastSeen = now
	if req.RTTMillis > 0 {
		p.RTT = time.Duration(req.RTTMillis) * time.Millisecond
	}
	s.send(p, protocol.MsgPong, protocol.PongPayload{Timestamp: uint64(now.UnixMilli())})
}

// CreateRoom allocates a private room and seats the creator in it.
func (s *Service) CreateRoom(p *domain.Player) {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()

	if s.store.roomOf(p) != nil {
		return // already seated, ignore
	}
	now := s.now()
	r, err := s.newRoom(true, now)
	if err != nil {
		s.sendError(p, err)
		return
	}
	s.addToRoom(r, p)
	s.send(p, protocol.MsgRoomCreated, protocol.RoomCreated{RoomID: r.ID, RoomCode: r.Code})
	s.send(p, protocol.MsgRoomJoined, s.roomState(r))
}

// JoinRoom seats the player: with a code it joins that private room,
// without one it runs public matchmaking, allocating a fresh room when
// no candidate is within the latency tolerance.
func (s *Service) JoinRoom(p *domain.Player, req protocol.JoinRoomPayload) {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()

	if s.store.roomOf(p) != nil {
		return
	}
	now := s.now()

	var r *domain.Room
	if req.RoomCode != "" {
		r = s.store.roomByCode(strings.ToUpper(strings.TrimSpace(req.RoomCode)))
		if r == nil || r.State == domain.RoomEnded {
			s.send(p, protocol.MsgRoomNotFound, protocol.ErrorPayload{Error: domain.ErrRoomNotFound.Error()})
			return
		}
		if len(r.Players) >= s.cfg.RoomCapacity || r.State != domain.RoomWaiting {
			s.send(p, protocol.MsgRoomFull, protocol.ErrorPayload{Error: domain.ErrRoomFull.Error()})
			return
		}
	} else {
		r = s.findPublicRoom(p)
		if r == nil {
			var err error
			r, err = s.newRoom(false, now)
			if err != nil {
				s.sendError(p, err)
				return
			}
		}
	}

	s.addToRoom(r, p)
	s.send(p, protocol.MsgRoomJoined, s.roomState(r))
	s.broadcast(r, protocol.MsgPlayerJoin, protocol.PlayerRef{PlayerID: p.ID, Username: p.Username}, p.ID)

	switch {
	case len(r.Players) >= s.cfg.RoomCapacity:
		s.startGame(r, now)
	case !r.Private && len(r.Players) == 2 && !r.CountdownActive:
		r.CountdownActive = true
		r.CountdownStart = now
		s.broadcast(r, protocol.MsgCountdownUpdate, protocol.CountdownUpdate{Countdown: s.cfg.CountdownSeconds}, 0)
		s.audit.Room(r.ID, "countdown_started", "")
	}
}

// Chat treats any message from a guesser in an active round as a guess
// attempt first; everything else relays as room chat.
func (s *Service) Chat(p *domain.Player, req protocol.ChatPayload) {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()

	r := s.store.roomOf(p)
	if r == nil {
		return
	}
	if r.State == domain.RoomPlaying && !p.IsDrawing && !p.HasGuessed {
		if s.processGuess(r, p, req.Message) {
			return // correct guesses are announced, not echoed as chat
		}
	}
	s.broadcast(r, protocol.MsgChatBroadcast, protocol.ChatBroadcast{
		PlayerID: p.ID,
		Username: p.Username,
		Message:  req.Message,
	}, 0)
}

// StrokeTCP accepts a stroke over the reliable channel from clients
// without a UDP path and fans it out the same way.
func (s *Service) StrokeTCP(p *domain.Player, req protocol.StrokePayload) {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()

	r := s.store.roomOf(p)
	if r == nil || r.State != domain.RoomPlaying || !p.IsDrawing {
		return // out-of-turn drawing, ignored
	}
	st := domain.Stroke{
		X1:        req.X1,
		Y1:        req.Y1,
		X2:        req.X2,
		Y2:        req.Y2,
		Color:     req.Color,
		Thickness: req.Thickness,
		Timestamp: req.Timestamp,
	}
	st = s.appendStroke(r, st)
	req.StrokeID = st.ID
	req.PlayerID = p.ID
	s.broadcast(r, protocol.MsgStroke, req, p.ID)
}

// ClearCanvas wipes the round's stroke log on the drawer's request.
func (s *Service) ClearCanvas(p *domain.Player) {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()

	r := s.store.roomOf(p)
	if r == nil || r.State != domain.RoomPlaying || !p.IsDrawing {
		return
	}
	r.Strokes = r.Strokes[:0]
	s.audit.Room(r.ID, "canvas_cleared", p.Username)
	s.broadcast(r, protocol.MsgClearCanvas, nil, p.ID)
}

// Undo drops the most recent stroke.
func (s *Service) Undo(p *domain.Player) {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()

	r := s.store.roomOf(p)
	if r == nil || r.State != domain.RoomPlaying || !p.IsDrawing || len(r.Strokes) == 0 {
		return
	}
	r.Strokes = r.Strokes[:len(r.Strokes)-1]
	s.broadcast(r, protocol.MsgUndo, nil, p.ID)
}

// appendStroke stamps the room's next sequential id and appends to the
// capacity-bounded log. Excess strokes are still relayed but not logged;
// a full log already indicates an abnormally long round. Caller holds
// the store lock.
func (s *Service) appendStroke(r *domain.Room, st domain.Stroke) domain.Stroke {
	st.ID = r.NextStrokeID
	r.NextStrokeID++
	if len(r.Strokes) < s.cfg.MaxStrokes {
		r.Strokes = append(r.Strokes, st)
	}
	s.audit.Stroke(r.ID, st)
	return st
}

// RelayStroke authenticates a UDP stroke by source address, stamps and
// logs it, and returns the stamped stroke plus the fan-out endpoints of
// every other room member. Resolution failures are silent: stale
// datagrams from former members are expected.
func (s *Service) RelayStroke(src *net.UDPAddr, roomID uint32, st domain.Stroke) (domain.Stroke, []*net.UDPAddr, error) {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()

	sender := s.store.playerByIP(src.IP.String(), roomID)
	if sender == nil {
		return domain.Stroke{}, nil, domain.ErrPlayerNotFound
	}
	r := s.store.rooms[roomID]
	if r == nil || s.store.playerRoom[sender.ID] != roomID {
		return domain.Stroke{}, nil, domain.ErrRoomNotFound
	}
	if r.State != domain.RoomPlaying || !sender.IsDrawing {
		return domain.Stroke{}, nil, domain.ErrBadState
	}
	sender.UDPAddr = src

	st = s.appendStroke(r, st)

	targets := make([]*net.UDPAddr, 0, len(r.Players)-1)
	for _, p := range r.Players {
		if p.ID == sender.ID || !p.Online() {
			continue
		}
		if addr := s.drawEndpoint(p); addr != nil {
			targets = append(targets, addr)
		}
	}
	return st, targets, nil
}

// drawEndpoint is where a player receives stroke fan-out: the address
// they last sent a datagram from, or their TCP source address on the
// well-known client draw port until they have.
func (s *Service) drawEndpoint(p *domain.Player) *net.UDPAddr {
	if p.UDPAddr != nil {
		return p.UDPAddr
	}
	ip := net.ParseIP(p.IP)
	if ip == nil {
		return nil
	}
	return &net.UDPAddr{IP: ip, Port: s.cfg.ClientDrawPort}
}

// Leave handles an explicit quit. No snapshot is kept: a deliberate
// departure forfeits the rejoin window.
func (s *Service) Leave(p *domain.Player) {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	s.audit.Disconnect(p.ID, "quit")
	s.removePlayer(p, s.now())
}

// Disconnect handles a transport-level drop. If the player was mid-game
// their state is snapshotted for the reconnection window before removal.
func (s *Service) Disconnect(p *domain.Player, reason string) {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()

	now := s.now()
	if r := s.store.roomOf(p); r != nil && r.State == domain.RoomPlaying {
		s.rec.Save(domain.Snapshot{
			SessionToken:   p.SessionToken,
			PlayerID:       p.ID,
			Username:       p.Username,
			RoomID:         r.ID,
			State:          p.State,
			Score:          p.Score,
			IsDrawing:      p.IsDrawing,
			HasGuessed:     p.HasGuessed,
			HasDrawn:       p.HasDrawn,
			DisconnectedAt: now,
		})
		log.Info().Str("module", "app").Uint32("player_id", p.ID).Msg("snapshot saved for reconnect")
	}
	s.audit.Disconnect(p.ID, reason)
	s.removePlayer(p, now)
}

// removePlayer takes the player out of the store and, if seated, out of
// their room, running the mid-game departure rules. Caller holds the
// store lock.
func (s *Service) removePlayer(p *domain.Player, now time.Time) {
	delete(s.store.players, p.ID)
	p.Conn = nil
	p.State = domain.PlayerDisconnected

	r := s.store.roomOf(p)
	if r == nil {
		return
	}
	delete(s.store.playerRoom, p.ID)

	idx := -1
	for i, m := range r.Players {
		if m.ID == p.ID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return
	}
	wasDrawing := r.State == domain.RoomPlaying && idx == r.DrawerIdx
	r.Players = append(r.Players[:idx], r.Players[idx+1:]...)
	if r.State == domain.RoomPlaying && idx < r.DrawerIdx {
		r.DrawerIdx--
	}

	s.broadcast(r, protocol.MsgPlayerLeave, protocol.PlayerRef{PlayerID: p.ID, Username: p.Username}, 0)
	s.audit.Player(p.ID, "left_room", p.Username)

	if len(r.Players) == 0 {
		delete(s.store.rooms, r.ID)
		s.audit.Room(r.ID, "discarded", "empty")
		return
	}

	switch r.State {
	case domain.RoomWaiting:
		if r.CountdownActive && len(r.Players) < 2 {
			r.CountdownActive = false
			s.broadcast(r, protocol.MsgCountdownUpdate, protocol.CountdownUpdate{Countdown: -1}, 0)
			s.audit.Room(r.ID, "countdown_cancelled", "below minimum players")
		}
	case domain.RoomPlaying:
		// Every remaining player still gets a drawing turn.
		r.TotalRounds = r.Round + r.UndrawnCount()
		if len(r.Players) < 2 {
			s.endGame(r, now)
			return
		}
		if wasDrawing {
			if r.DrawerIdx >= len(r.Players) {
				r.DrawerIdx = len(r.Players) - 1
			}
			s.endRound(r, now, "drawer left")
		}
	}
}

// Reconnect restores a snapshotted player onto a fresh connection.
// Failures are reported distinctly so the client can tell an expired
// window from a torn-down room.
func (s *Service) Reconnect(conn domain.Messenger, ip string, req protocol.ReconnectRequest) (*domain.Player, error) {
	now := s.now()
	snap, err := s.rec.Take(req.SessionToken, now)
	if err != nil {
		s.audit.ReconnectDenied(req.SessionToken)
		s.sendConn(conn, protocol.MsgReconnectFail, protocol.ErrorPayload{Error: err.Error()})
		return nil, err
	}

	s.store.mu.Lock()
	defer s.store.mu.Unlock()

	// The snapshot is consumed only by a successful restore: a room that
	// is gone or full is the room's failure, not the token's, so the
	// snapshot goes back and a later retry still gets the distinct error.
	r := s.store.rooms[snap.RoomID]
	if r == nil || r.State != domain.RoomPlaying {
		s.rec.Save(snap)
		s.audit.Reconnect(snap.PlayerID, false)
		s.sendConn(conn, protocol.MsgReconnectFail, protocol.ErrorPayload{Error: domain.ErrRoomNotFound.Error()})
		return nil, domain.ErrRoomNotFound
	}
	if len(r.Players) >= s.cfg.RoomCapacity {
		s.rec.Save(snap)
		s.audit.Reconnect(snap.PlayerID, false)
		s.sendConn(conn, protocol.MsgReconnectFail, protocol.ErrorPayload{Error: domain.ErrRoomFull.Error()})
		return nil, domain.ErrRoomFull
	}

	p := &domain.Player{
		ID:           snap.PlayerID,
		Username:     snap.Username,
		Conn:         conn,
		IP:           ip,
		Score:        snap.Score,
		HasGuessed:   snap.HasGuessed,
		HasDrawn:     snap.HasDrawn,
		SessionToken: newSessionToken(),
		LastSeen:     now,
		GuessStart:   r.RoundStart,
	}
	s.store.players[p.ID] = p
	s.addToRoom(r, p)
	// Pre-disconnect role is restored, except a drawing turn: that round
	// ended with the disconnect, so the rejoiner comes back as a guesser.
	p.State = snap.State
	if p.State == domain.PlayerDrawing || p.State == domain.PlayerDisconnected || p.State == domain.PlayerInRoom {
		p.State = domain.PlayerGuessing
	}
	r.TotalRounds = r.Round + r.UndrawnCount()

	s.audit.Reconnect(p.ID, true)
	log.Info().Str("module", "app").Uint32("player_id", p.ID).Uint32("room_id", r.ID).Msg("player reconnected")

	s.send(p, protocol.MsgReconnectSuccess, protocol.RegisterAck{
		PlayerID:     p.ID,
		Username:     p.Username,
		SessionToken: p.SessionToken,
	})
	s.send(p, protocol.MsgRoomJoined, s.roomState(r))
	// Replay the round's canvas so the rejoiner is not staring at a
	// blank board.
	for _, st := range r.Strokes {
		s.send(p, protocol.MsgStroke, protocol.StrokePayload{
			StrokeID:  st.ID,
			X1:        st.X1,
			Y1:        st.Y1,
			X2:        st.X2,
			Y2:        st.Y2,
			Color:     st.Color,
			Thickness: st.Thickness,
			Timestamp: st.Timestamp,
		})
	}
	s.broadcast(r, protocol.MsgPlayerJoin, protocol.PlayerRef{PlayerID: p.ID, Username: p.Username}, p.ID)
	return p, nil
}

// Tick advances countdowns and round timers for every room and sweeps
// expired reconnection snapshots. Called once per second.
func (s *Service) Tick(now time.Time) {
	s.store.mu.Lock()
	for _, id := range s.store.sortedRoomIDs() {
		r := s.store.rooms[id]
		if r == nil {
			continue // torn down earlier this tick
		}
		switch r.State {
		case domain.RoomWaiting:
			if !r.CountdownActive {
				continue
			}
			remaining := s.cfg.CountdownSeconds - int(now.Sub(r.CountdownStart).Seconds())
			if remaining <= 0 {
				s.startGame(r, now)
			} else {
				s.broadcast(r, protocol.MsgCountdownUpdate, protocol.CountdownUpdate{Countdown: remaining}, 0)
			}
		case domain.RoomPlaying:
			remaining := s.cfg.RoundSeconds - int(now.Sub(r.RoundStart).Seconds())
			if remaining < 0 {
				remaining = 0
			}
			if remaining != r.TimeRemaining {
				r.TimeRemaining = remaining
				s.broadcast(r, protocol.MsgTimerUpdate, protocol.TimerUpdate{TimeRemaining: remaining}, 0)
				s.audit.Timer(r.ID, remaining)
			}
			if remaining <= 0 {
				s.endRound(r, now, "timeout")
			}
		}
	}
	s.store.mu.Unlock()

	if n := s.rec.Sweep(now); n > 0 {
		log.Debug().Str("module", "app").Int("expired", n).Msg("swept reconnect snapshots")
	}
}

// maskWord hides the answer from guessers: first and last character and
// spaces stay visible, interior letters become underscores.
func maskWord(word string) string {
	runes := []rune(word)
	for i := 1; i < len(runes)-1; i++ {
		if runes[i] != ' ' {
			runes[i] = '_'
		}
	}
	return string(runes)
}

// roomState builds the room snapshot payload. Caller holds the store
// lock.
func (s *Service) roomState(r *domain.Room) protocol.RoomStatePayload {
	mask := ""
	if r.State == domain.RoomPlaying {
		mask = maskWord(r.Word)
	}
	drawer := -1
	if r.State == domain.RoomPlaying {
		drawer = r.DrawerIdx
	}
	players := make([]protocol.PlayerInfo, len(r.Players))
	for i, p := range r.Players {
		players[i] = protocol.PlayerInfo{
			PlayerID:  p.ID,
			Username:  p.Username,
			Score:     p.Score,
			IsDrawing: p.IsDrawing,
			Online:    p.Online(),
		}
	}
	return protocol.RoomStatePayload{
		RoomID:        r.ID,
		RoomCode:      r.Code,
		PlayerCount:   len(r.Players),
		State:         int(r.State),
		CurrentDrawer: drawer,
		WordMask:      mask,
		Round:         r.Round,
		TotalRounds:   r.TotalRounds,
		TimeRemaining: r.TimeRemaining,
		Players:       players,
	}
}

// RoomSummary is the public view of one room for the HTTP surface. Join
// codes are deliberately absent.
type RoomSummary struct {
	RoomID      uint32 `json:"room_id"`
	PlayerCount int    `json:"player_count"`
	State       int    `json:"state"`
	Round       int    `json:"round"`
	TotalRounds int    `json:"total_rounds"`
	Private     bool   `json:"private"`
}

func (s *Service) RoomSummaries() []RoomSummary {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()

	out := make([]RoomSummary, 0, len(s.store.rooms))
	for _, id := range s.store.sortedRoomIDs() {
		r := s.store.rooms[id]
		out = append(out, RoomSummary{
			RoomID:      r.ID,
			PlayerCount: len(r.Players),
			State:       int(r.State),
			Round:       r.Round,
			TotalRounds: r.TotalRounds,
			Private:     r.Private,
		})
	}
	return out
}
