package client

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/akinalp/gooverchat/models"
)

const (
	inputBufferSize  = 256
	outboundBufSize  = 64
	closeFlushWindow = 2 * time.Second
)

// link, tek bir WebSocket bağlantısı ve onun yazma kuyruğu.
type link struct {
	conn   *Conn
	out    chan any
	ctx    context.Context
	cancel context.CancelFunc
}

// Session içi girdiler; Reconciler bunları görmez.
type linkUp struct{ link *link }
type linkDown struct {
	link *link
	err  error
}
type closing struct{ done chan struct{} }

func (linkUp) input()   {}
func (linkDown) input() {}
func (closing) input()  {}

// Session, Reconciler'ı süren çalışma zamanı.
//
// Tek bir döngü goroutine'i girdi kanalını, zamanlayıcıları (poll, sweep, heartbeat,
// typing idle) ve bağlantı olaylarını geliş sırasıyla işler. Ağ çağrıları worker
// goroutine'lerde koşar ve sonuçları aynı kanala yazar. Bağlantı koparsa
// ReconnectDelay sonra yeni socket token alınıp tekrar bağlanılır; aktif sohbete
// yeniden join edilir.
type Session struct {
	cfg      Config
	endpoint string
	rest     *RESTClient
	clock    clock.Clock
	logger   Logger

	rec    *Reconciler
	inputs chan Input

	mu       sync.RWMutex
	view     View
	onChange func(View)
	mounted  string
	started  bool

	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closeOnce sync.Once

	// Aşağıdakiler sadece döngü goroutine'inde kullanılır.
	link        *link
	idleTimer   *clock.Timer
	idleToken   uint64
	mountCtx    context.Context
	mountCancel context.CancelFunc
}

// NewSession, session oluşturur. rest nil ise cfg'den yeni bir RESTClient kurulur;
// bu durumda Login/Register için Session.REST() kullanılır.
func NewSession(cfg Config, rest *RESTClient) (*Session, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	endpoint, err := cfg.socketEndpoint()
	if err != nil {
		return nil, err
	}
	if rest == nil {
		rest = NewRESTClient(cfg.BaseURL, cfg.RESTTimeout)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		cfg:      cfg,
		endpoint: endpoint,
		rest:     rest,
		clock:    clock.New(),
		logger:   noopLogger{},
		rec:      NewReconciler("", cfg.TypingMinDisplay, cfg.TypingIdle),
		inputs:   make(chan Input, inputBufferSize),
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// SetLogger, Start'tan önce çağrılmalı.
func (s *Session) SetLogger(l Logger) {
	if l != nil {
		s.logger = l
	}
}

// SetClock, Start'tan önce çağrılmalı. Testler clock.NewMock() verir.
func (s *Session) SetClock(c clock.Clock) {
	if c != nil {
		s.clock = c
	}
}

// OnChange, her görünüm değişiminde döngü goroutine'inden çağrılır. Bloklamamalı.
func (s *Session) OnChange(fn func(View)) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

// REST, session'ın kullandığı REST client.
func (s *Session) REST() *RESTClient { return s.rest }

// View, son yayınlanan görünüm.
func (s *Session) View() View {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view
}

// Start, ilk bağlantıyı kurar ve döngüyü başlatır. İlk handshake başarısızsa hata
// döner (ör: *Error{Code: ErrorInvalidToken}); sonraki kopmalar arka planda yeniden denenir.
// ctx iptal edilince session kapanır.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return errors.New("session already started")
	}
	s.started = true
	s.mu.Unlock()

	first, err := s.dial(ctx)
	if err != nil {
		s.mu.Lock()
		s.started = false
		s.mu.Unlock()
		return err
	}

	s.mountCtx, s.mountCancel = context.WithCancel(s.ctx)

	s.wg.Add(2)
	go s.loop()
	go s.connectLoop(first)

	go func() {
		select {
		case <-ctx.Done():
			s.Close()
		case <-s.ctx.Done():
		}
	}()
	return nil
}

// Close, typing duyurulmuşsa stop gönderir, odadan çıkar ve tüm goroutine'leri durdurur.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.mu.RLock()
		started := s.started
		s.mu.RUnlock()

		if started {
			done := make(chan struct{})
			select {
			case s.inputs <- closing{done: done}:
				select {
				case <-done:
				case <-s.ctx.Done():
				}
			case <-s.ctx.Done():
			}
		}

		s.cancel()
		s.wg.Wait()
	})
	return nil
}

// Mount, aktif sohbeti değiştirir.
func (s *Session) Mount(conversationID string) {
	s.mu.Lock()
	s.mounted = conversationID
	s.mu.Unlock()
	s.submit(Mount{ConversationID: conversationID})
}

// Unmount, aktif sohbetten çıkar. Typing duyurulduysa stop gider.
func (s *Session) Unmount() {
	s.mu.Lock()
	s.mounted = ""
	s.mu.Unlock()
	s.submit(Unmount{})
}

// Keystroke, input alanının yeni değeri.
func (s *Session) Keystroke(text string) {
	s.submit(Keystroke{Text: text})
}

// Send, aktif sohbete mesaj gönderir. Typing hemen kapanır; başarılı mesaj
// poll beklenmeden listeye eklenir.
func (s *Session) Send(ctx context.Context, text string) (*models.Message, error) {
	s.mu.RLock()
	conversationID := s.mounted
	s.mu.RUnlock()
	if conversationID == "" {
		return nil, NewError(ErrorNoConversation, "no conversation mounted")
	}

	s.submit(SendStarted{})

	msg, err := s.rest.SendMessage(ctx, conversationID, text)
	if err != nil {
		return nil, err
	}
	s.submit(MessageSent{ConversationID: conversationID, Message: *msg})
	return msg, nil
}

func (s *Session) submit(in Input) {
	select {
	case s.inputs <- in:
	case <-s.ctx.Done():
	}
}

// ─── Bağlantı ───

// dial, her denemede taze socket token alır.
func (s *Session) dial(ctx context.Context) (*link, error) {
	tok, err := s.rest.SocketToken(ctx)
	if err != nil {
		return nil, err
	}

	conn, err := Dial(ctx, s.endpoint, tok.Token, s.cfg.HandshakeTimeout, s.cfg.WriteTimeout)
	if err != nil {
		return nil, err
	}

	lctx, lcancel := context.WithCancel(s.ctx)
	l := &link{conn: conn, out: make(chan any, outboundBufSize), ctx: lctx, cancel: lcancel}

	s.wg.Add(1)
	go s.writeLoop(l)

	s.logger.Info("[client] connected", map[string]any{"endpoint": s.endpoint})
	return l, nil
}

func (s *Session) connectLoop(first *link) {
	defer s.wg.Done()

	l := first
	for {
		if l != nil {
			s.submit(linkUp{link: l})
			err := s.readLoop(l)
			l.cancel()
			_ = l.conn.Close()
			s.submit(linkDown{link: l, err: err})
		}

		if s.ctx.Err() != nil {
			return
		}

		select {
		case <-s.clock.After(s.cfg.ReconnectDelay):
		case <-s.ctx.Done():
			return
		}

		next, err := s.dial(s.ctx)
		if err != nil {
			s.logger.Warn("[client] reconnect failed", map[string]any{"error": err.Error()})
			l = nil
			continue
		}
		l = next
	}
}

// readLoop, bağlantı kapanana kadar frame'leri girdi kanalına yazar.
// Beklenen kapanışlarda nil döner.
func (s *Session) readLoop(l *link) error {
	for {
		f, err := l.conn.Read(l.ctx)
		if err != nil {
			if isExpectedDisconnect(l.ctx, err) {
				return nil
			}
			s.logger.Warn("[client] read loop exit", map[string]any{"error": err.Error()})
			return WrapError(ErrorDisconnected, "read failed", err)
		}
		s.submit(Push{Frame: f})
	}
}

func (s *Session) writeLoop(l *link) {
	defer s.wg.Done()
	for {
		select {
		case v := <-l.out:
			if err := l.conn.Write(l.ctx, v); err != nil {
				if !isExpectedDisconnect(l.ctx, err) {
					s.logger.Warn("[client] write loop exit", map[string]any{"error": err.Error()})
				}
				l.cancel()
				return
			}
		case <-l.ctx.Done():
			return
		}
	}
}

// ─── Döngü ───

func (s *Session) loop() {
	defer s.wg.Done()

	poll := s.ticker(s.cfg.PollInterval)
	sweep := s.ticker(s.cfg.TypingSweepInterval)
	heartbeat := s.ticker(s.cfg.HeartbeatInterval)
	defer func() {
		for _, t := range []*clock.Ticker{poll, sweep, heartbeat} {
			if t != nil {
				t.Stop()
			}
		}
		s.stopIdle()
		s.mountCancel()
	}()

	for {
		select {
		case <-s.ctx.Done():
			return
		case in := <-s.inputs:
			s.handle(in)
		case <-tickC(poll):
			s.apply(PollTick{})
		case <-tickC(sweep):
			s.apply(SweepTick{})
		case <-tickC(heartbeat):
			s.sendFrame(outbound{Op: OpHeartbeat})
		case <-s.idleC():
			s.idleTimer = nil
			s.apply(IdleFired{Token: s.idleToken})
		}
	}
}

func (s *Session) handle(in Input) {
	switch in := in.(type) {
	case linkUp:
		s.link = in.link
		s.apply(Connected{})
	case linkDown:
		if s.link == in.link {
			s.link = nil
			s.apply(Disconnected{Err: in.err})
		}
	case closing:
		s.flushOnClose()
		close(in.done)
	default:
		s.apply(in)
	}
}

func (s *Session) apply(in Input) {
	s.execute(s.rec.Apply(s.clock.Now(), in))
}

func (s *Session) execute(effects []Effect) {
	changed := false
	for _, e := range effects {
		switch e := e.(type) {
		case EmitFrame:
			s.sendFrame(outbound{Op: e.Op, Data: conversationRef{ConversationID: e.ConversationID}})
		case ArmIdleTimer:
			s.stopIdle()
			s.idleTimer = s.clock.Timer(e.After)
			s.idleToken = e.Token
		case CancelIdleTimer:
			s.stopIdle()
		case ResetMount:
			s.mountCancel()
			s.mountCtx, s.mountCancel = context.WithCancel(s.ctx)
		case FetchSnapshot:
			s.fetch(e)
		case ReportRead:
			s.reportRead(e)
		case ReportDelivered:
			s.reportDelivered(e)
		case Changed:
			changed = true
		}
	}
	if changed {
		s.publish()
	}
}

// flushOnClose, kapanışta typing:stop ve leave frame'lerini doğrudan yazar;
// yazma kuyruğu bu noktadan sonra boşaltılmayabilir.
func (s *Session) flushOnClose() {
	effects := s.rec.Apply(s.clock.Now(), Unmount{})
	for _, e := range effects {
		f, ok := e.(EmitFrame)
		if !ok || s.link == nil {
			continue
		}
		ctx, cancel := context.WithTimeout(s.ctx, closeFlushWindow)
		err := s.link.conn.Write(ctx, outbound{Op: f.Op, Data: conversationRef{ConversationID: f.ConversationID}})
		cancel()
		if err != nil {
			s.logger.Debug("[client] flush on close failed", map[string]any{"op": string(f.Op), "error": err.Error()})
		}
	}
	s.stopIdle()
}

func (s *Session) sendFrame(v outbound) {
	if s.link == nil {
		s.logger.Debug("[client] frame dropped, not connected", map[string]any{"op": string(v.Op)})
		return
	}
	select {
	case s.link.out <- v:
	default:
		s.logger.Warn("[client] send buffer full, frame dropped", map[string]any{"op": string(v.Op)})
	}
}

func (s *Session) fetch(e FetchSnapshot) {
	ctx := s.mountCtx
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		page, err := s.rest.FetchMessages(ctx, e.ConversationID, "", s.cfg.PageLimit)
		if err != nil && ctx.Err() == nil {
			s.logger.Debug("[client] snapshot fetch failed", map[string]any{"conversation": e.ConversationID, "error": err.Error()})
		}
		s.submit(SnapshotLoaded{ConversationID: e.ConversationID, Generation: e.Generation, Page: page, Err: err})
	}()
}

func (s *Session) reportRead(e ReportRead) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		out := s.rest.MarkRead(s.ctx, e.ConversationID, e.MessageID)
		s.submit(ReadReported{ConversationID: e.ConversationID, Generation: e.Generation, MessageID: e.MessageID, Outcome: out})
	}()
}

func (s *Session) reportDelivered(e ReportDelivered) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		out := s.rest.MarkDelivered(s.ctx, e.ConversationID, e.MessageIDs)
		s.submit(DeliveredReported{ConversationID: e.ConversationID, Generation: e.Generation, MessageIDs: e.MessageIDs, Outcome: out})
	}()
}

func (s *Session) publish() {
	v := s.rec.View(s.clock.Now())

	s.mu.Lock()
	s.view = v
	fn := s.onChange
	s.mu.Unlock()

	if fn != nil {
		fn(v)
	}
}

func (s *Session) ticker(d time.Duration) *clock.Ticker {
	if d <= 0 {
		return nil
	}
	return s.clock.Ticker(d)
}

func tickC(t *clock.Ticker) <-chan time.Time {
	if t == nil {
		return nil
	}
	return t.C
}

func (s *Session) idleC() <-chan time.Time {
	if s.idleTimer == nil {
		return nil
	}
	return s.idleTimer.C
}

func (s *Session) stopIdle() {
	if s.idleTimer != nil {
		s.idleTimer.Stop()
		s.idleTimer = nil
	}
}
