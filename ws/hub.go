package ws

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/akinalp/gooverchat/fanout"
	"github.com/akinalp/gooverchat/pkg/logger"
)

// Broadcaster, service katmanının push için kullandığı interface.
// Service'ler Hub'ın concrete struct'ına değil bu interface'e bağımlıdır.
type Broadcaster interface {
	// BroadcastToUsers, event'i verilen kullanıcıların tüm bağlantılarına gönderir.
	BroadcastToUsers(userIDs []string, event Event)
}

// MembershipChecker, conversation:join yetki sorgusu. repository.MembershipStore bunu karşılar;
// ws paketi repository'ye bağımlı olmasın diye burada tanımlıdır.
type MembershipChecker interface {
	IsMember(ctx context.Context, conversationID, userID string) (bool, error)
}

const (
	presenceQueueSize  = 1024
	outboundQueueSize  = 4096
	directoryTimeout   = 2 * time.Second
	publishTimeout     = 2 * time.Second
	defaultJoinTimeout = 3 * time.Second
)

// HubConfig, NewHub parametreleri. Membership dışındaki alanlar opsiyoneldir.
type HubConfig struct {
	Membership  MembershipChecker
	JoinTimeout time.Duration

	// NodeID, fan-out envelope'larının origin'i. Boşsa uuid üretilir.
	NodeID    string
	Fanout    fanout.Adapter
	Directory fanout.Directory
}

// presenceTransition, registry'de oluşan tek bir bağlanma/ayrılma.
// edge: kullanıcının ilk bağlantısı (online) veya son bağlantısı (offline).
type presenceTransition struct {
	client   *Client
	online   bool
	edge     bool
	snapshot []string
}

// Hub, tüm WebSocket bağlantılarını ve odaları yöneten merkezi yapı.
//
// Kilit düzeni: clients, rooms ve her Client'ın rooms set'i tek bir RWMutex ile korunur.
// Kilit tutulurken I/O yapılmaz; socket yazımı Client.send kanalına bırakılır,
// directory ve fan-out çağrıları ayrı goroutine'lerde yapılır.
type Hub struct {
	// clients: userID → bağlantı seti (çok cihaz).
	clients map[string]map[*Client]bool
	// rooms: oda adı → bağlantı seti. "user:<id>" ve "conversation:<id>".
	rooms map[string]map[*Client]bool
	mu    sync.RWMutex

	register   chan *Client
	unregister chan *Client

	// presence: geçişler FIFO işlenir; online/offline sırası registry sırasıyla aynıdır.
	presence chan presenceTransition
	// outbound: fan-out'a yayınlanacak envelope'lar. Dolarsa envelope düşürülür.
	outbound chan fanout.Envelope

	seq atomic.Int64

	membership  MembershipChecker
	joinTimeout time.Duration

	nodeID    string
	adapter   fanout.Adapter
	directory fanout.Directory

	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	shutdown sync.Once
}

// NewHub, hub'ı kurar ve presence / publish worker'larını başlatır.
// Fanout verilmişse abonelik burada açılır; abonelik kurulamazsa hata döner.
func NewHub(cfg HubConfig) (*Hub, error) {
	if cfg.JoinTimeout <= 0 {
		cfg.JoinTimeout = defaultJoinTimeout
	}
	if cfg.NodeID == "" {
		cfg.NodeID = uuid.NewString()
	}

	ctx, cancel := context.WithCancel(context.Background())
	h := &Hub{
		clients:     make(map[string]map[*Client]bool),
		rooms:       make(map[string]map[*Client]bool),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		presence:    make(chan presenceTransition, presenceQueueSize),
		outbound:    make(chan fanout.Envelope, outboundQueueSize),
		membership:  cfg.Membership,
		joinTimeout: cfg.JoinTimeout,
		nodeID:      cfg.NodeID,
		adapter:     cfg.Fanout,
		directory:   cfg.Directory,
		ctx:         ctx,
		cancel:      cancel,
	}

	if h.adapter != nil {
		if err := h.adapter.Subscribe(ctx, h.receiveRemote); err != nil {
			cancel()
			return nil, err
		}
		logger.Infof("[ws] fan-out attached (node=%s)", h.nodeID)
	}

	h.wg.Add(2)
	go h.presenceLoop()
	go h.publishLoop()

	return h, nil
}

// NodeID, bu hub'ın cluster içindeki kimliği.
func (h *Hub) NodeID() string {
	return h.nodeID
}

// Run, registry event loop'u. main'de `go hub.Run()` ile başlatılır, Shutdown ile döner.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case <-h.ctx.Done():
			return
		}
	}
}

// ─── Registry ───

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	if h.ctx.Err() != nil {
		// Shutdown başladı; kayıt yapılmaz, WritePump bağlantıyı kapatır.
		close(client.send)
		h.mu.Unlock()
		return
	}
	set, ok := h.clients[client.userID]
	if !ok {
		set = make(map[*Client]bool)
		h.clients[client.userID] = set
	}
	set[client] = true
	first := len(set) == 1
	count := len(set)

	h.joinLocked(client, UserRoom(client.userID))
	snapshot := h.onlineUserIDsLocked()
	h.mu.Unlock()

	logger.Infof("[ws] client connected: user=%s conn=%s (connections for user: %d)",
		client.userID, client.id, count)

	h.enqueuePresence(presenceTransition{client: client, online: true, edge: first, snapshot: snapshot})
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	set, ok := h.clients[client.userID]
	if !ok || !set[client] {
		h.mu.Unlock()
		return
	}

	delete(set, client)
	for room := range client.rooms {
		h.leaveLocked(client, room)
	}
	close(client.send)

	last := len(set) == 0
	remaining := len(set)
	if last {
		delete(h.clients, client.userID)
	}
	h.mu.Unlock()

	if last {
		logger.Infof("[ws] user fully disconnected: %s", client.userID)
	} else {
		logger.Infof("[ws] client disconnected: user=%s conn=%s (remaining: %d)",
			client.userID, client.id, remaining)
	}

	h.enqueuePresence(presenceTransition{client: client, online: false, edge: last})
}

// drop, yavaş bir client'ı ayrı goroutine'den unregister eder.
// RLock tutulurken unregister kanalına yazmak Run ile deadlock'a girerdi.
func (h *Hub) drop(client *Client) {
	go func() {
		select {
		case h.unregister <- client:
		case <-h.ctx.Done():
		}
	}()
}

func (h *Hub) isRegisteredLocked(client *Client) bool {
	set, ok := h.clients[client.userID]
	return ok && set[client]
}

func (h *Hub) onlineUserIDsLocked() []string {
	ids := make([]string, 0, len(h.clients))
	for userID := range h.clients {
		ids = append(ids, userID)
	}
	return ids
}

// GetOnlineUserIDs, bu node'a bağlı kullanıcıların ID'leri.
func (h *Hub) GetOnlineUserIDs() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.onlineUserIDsLocked()
}

// ConnectionCount, kullanıcının bu node'daki bağlantı sayısı.
func (h *Hub) ConnectionCount(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

// ─── Rooms ───

func (h *Hub) joinLocked(client *Client, room string) {
	members, ok := h.rooms[room]
	if !ok {
		members = make(map[*Client]bool)
		h.rooms[room] = members
	}
	members[client] = true
	client.rooms[room] = true
}

func (h *Hub) leaveLocked(client *Client, room string) {
	if members, ok := h.rooms[room]; ok {
		delete(members, client)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	delete(client.rooms, room)
}

// joinRoom, client hâlâ kayıtlıysa odaya ekler. Tekrar join etmek zararsızdır.
func (h *Hub) joinRoom(client *Client, room string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.isRegisteredLocked(client) {
		return false
	}
	h.joinLocked(client, room)
	return true
}

// leaveRoom, koşulsuz çıkarır; hiç join edilmemişse no-op.
func (h *Hub) leaveRoom(client *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(client, room)
}

func (h *Hub) inRoom(client *Client, room string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return client.rooms[room]
}

// ─── Broadcast ───

// BroadcastToUsers, Broadcaster implementasyonu. Event tek seq ile bir kez serialize edilir.
func (h *Hub) BroadcastToUsers(userIDs []string, event Event) {
	data, ok := h.encode(event)
	if !ok {
		return
	}
	for _, userID := range userIDs {
		h.emit(UserRoom(userID), "", "", data)
	}
}

// BroadcastToRoom, event'i odadaki tüm bağlantılara gönderir.
func (h *Hub) BroadcastToRoom(room string, event Event) {
	h.broadcast(room, "", "", event)
}

// BroadcastToAllExcept, belirli bir kullanıcının bağlantıları hariç herkese gönderir.
func (h *Hub) BroadcastToAllExcept(excludeUserID string, event Event) {
	h.broadcast("", excludeUserID, "", event)
}

func (h *Hub) broadcast(room, exceptUserID, exceptConnID string, event Event) {
	data, ok := h.encode(event)
	if !ok {
		return
	}
	h.emit(room, exceptUserID, exceptConnID, data)
}

func (h *Hub) encode(event Event) ([]byte, bool) {
	event.Seq = h.seq.Add(1)
	data, err := json.Marshal(event)
	if err != nil {
		logger.Errorf("[ws] failed to marshal %s event: %v", event.Op, err)
		return nil, false
	}
	return data, true
}

// emit, yerel teslim + fan-out yayını.
func (h *Hub) emit(room, exceptUserID, exceptConnID string, data []byte) {
	h.deliverLocal(room, exceptUserID, exceptConnID, data)

	if h.adapter == nil {
		return
	}
	env := fanout.Envelope{
		Origin:       h.nodeID,
		Room:         room,
		ExceptUserID: exceptUserID,
		ExceptConnID: exceptConnID,
		Payload:      data,
	}
	select {
	case h.outbound <- env:
	default:
		logger.Warnf("[ws] fan-out queue full, dropping envelope for room %q", room)
	}
}

// deliverLocal, room boşsa tüm bağlantılara, değilse odadakilere yazar.
func (h *Hub) deliverLocal(room, exceptUserID, exceptConnID string, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if room == "" {
		for userID, set := range h.clients {
			if userID == exceptUserID {
				continue
			}
			for client := range set {
				if client.id != exceptConnID {
					h.trySendLocked(client, data)
				}
			}
		}
		return
	}

	for client := range h.rooms[room] {
		if client.userID == exceptUserID || client.id == exceptConnID {
			continue
		}
		h.trySendLocked(client, data)
	}
}

// trySendLocked, en az RLock altında çağrılmalı: removeClient send kanalını Lock altında kapatır.
func (h *Hub) trySendLocked(client *Client, data []byte) {
	select {
	case client.send <- data:
	default:
		logger.Warnf("[ws] send buffer full for user=%s conn=%s, dropping connection", client.userID, client.id)
		h.drop(client)
	}
}

// sendToClient, tek bir bağlantıya event yazar; bağlantı artık kayıtlı değilse no-op.
func (h *Hub) sendToClient(client *Client, event Event) {
	data, ok := h.encode(event)
	if !ok {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.isRegisteredLocked(client) {
		h.trySendLocked(client, data)
	}
}

// receiveRemote, başka node'dan gelen envelope'u yerel bağlantılara iletir. Tekrar yayınlamaz.
func (h *Hub) receiveRemote(env fanout.Envelope) {
	if env.Origin == h.nodeID {
		return
	}
	h.deliverLocal(env.Room, env.ExceptUserID, env.ExceptConnID, env.Payload)
}

func (h *Hub) publishLoop() {
	defer h.wg.Done()
	for {
		select {
		case env := <-h.outbound:
			ctx, cancel := context.WithTimeout(h.ctx, publishTimeout)
			if err := h.adapter.Publish(ctx, env); err != nil {
				logger.Warnf("[ws] fan-out publish failed: %v", err)
			}
			cancel()
		case <-h.ctx.Done():
			return
		}
	}
}

// ─── Presence ───

func (h *Hub) enqueuePresence(t presenceTransition) {
	select {
	case h.presence <- t:
	case <-h.ctx.Done():
	}
}

func (h *Hub) presenceLoop() {
	defer h.wg.Done()
	for {
		select {
		case t := <-h.presence:
			h.applyPresence(t)
		case <-h.ctx.Done():
			return
		}
	}
}

// applyPresence, tek bir geçişi işler.
//
// Presence kullanıcı bazında birleştirilir: online sadece ilk bağlantıda, offline sadece
// son bağlantı kapandığında yayınlanır. Directory varsa kullanıcı başka bir node'da
// hâlâ bağlıysa yayın yapılmaz.
func (h *Hub) applyPresence(t presenceTransition) {
	userID := t.client.userID

	ctx, cancel := context.WithTimeout(h.ctx, directoryTimeout)
	defer cancel()

	if t.online {
		elsewhere := false
		if h.directory != nil {
			if err := h.directory.Connect(ctx, userID); err != nil {
				logger.Warnf("[ws] presence directory connect failed for %s: %v", userID, err)
			}
			if t.edge {
				elsewhere = h.onlineElsewhere(ctx, userID)
			}
		}

		if t.edge && !elsewhere {
			h.broadcast("", userID, "", Event{
				Op:   OpPresenceUpdate,
				Data: PresenceUpdateData{UserID: userID, Status: StatusOnline},
			})
		}

		h.sendToClient(t.client, Event{
			Op:   OpPresenceInitial,
			Data: PresenceInitialData{UserIDs: h.initialSnapshot(ctx, t.snapshot)},
		})
		return
	}

	if h.directory != nil {
		if err := h.directory.Disconnect(ctx, userID); err != nil {
			logger.Warnf("[ws] presence directory disconnect failed for %s: %v", userID, err)
		}
	}
	if !t.edge {
		return
	}
	if h.directory != nil && h.onlineElsewhere(ctx, userID) {
		return
	}
	h.broadcast("", userID, "", Event{
		Op:   OpPresenceUpdate,
		Data: PresenceUpdateData{UserID: userID, Status: StatusOffline},
	})
}

func (h *Hub) onlineElsewhere(ctx context.Context, userID string) bool {
	elsewhere, err := h.directory.OnlineElsewhere(ctx, userID)
	if err != nil {
		logger.Warnf("[ws] presence directory lookup failed for %s: %v", userID, err)
		return false
	}
	return elsewhere
}

// initialSnapshot, yerel snapshot ile directory'deki kullanıcıların birleşimi.
func (h *Hub) initialSnapshot(ctx context.Context, local []string) []string {
	if h.directory == nil {
		return local
	}

	remote, err := h.directory.OnlineUserIDs(ctx)
	if err != nil {
		logger.Warnf("[ws] presence directory snapshot failed: %v", err)
		return local
	}

	seen := make(map[string]bool, len(local)+len(remote))
	ids := make([]string, 0, len(local)+len(remote))
	for _, list := range [][]string{local, remote} {
		for _, id := range list {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	return ids
}

// Shutdown, worker'ları durdurur ve tüm bağlantıları kapatır (graceful shutdown).
// Fan-out adapter ve directory'nin sahibi çağırandır; burada kapatılmaz.
func (h *Hub) Shutdown() {
	h.shutdown.Do(func() {
		h.cancel()

		h.mu.Lock()
		for _, set := range h.clients {
			for client := range set {
				close(client.send)
			}
		}
		h.clients = make(map[string]map[*Client]bool)
		h.rooms = make(map[string]map[*Client]bool)
		h.mu.Unlock()

		h.wg.Wait()
		logger.Infof("[ws] hub shut down, all connections closed")
	})
}
