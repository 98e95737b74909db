package client

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/akinalp/gooverchat/models"
)

// ─── Inputs ───

// Input, Reconciler'a giren olaylar. Hepsi tek kanaldan, geliş sırasıyla uygulanır.
type Input interface{ input() }

// Push, server'dan gelen frame.
type Push struct{ Frame Frame }

// SnapshotLoaded, FetchSnapshot sonucu. Generation mount'la eşleşmezse atılır.
type SnapshotLoaded struct {
	ConversationID string
	Generation     uint64
	Page           *models.MessagePage
	Err            error
}

// ReadReported, ReportRead sonucu.
type ReadReported struct {
	ConversationID string
	Generation     uint64
	MessageID      string
	Outcome        Outcome
}

// DeliveredReported, ReportDelivered sonucu.
type DeliveredReported struct {
	ConversationID string
	Generation     uint64
	MessageIDs     []string
	Outcome        Outcome
}

type PollTick struct{}
type SweepTick struct{}

// IdleFired, ArmIdleTimer ile kurulan zamanlayıcının dolması.
type IdleFired struct{ Token uint64 }

// Keystroke, input alanının yeni değeri.
type Keystroke struct{ Text string }

type Mount struct{ ConversationID string }
type Unmount struct{}

// SendStarted, gönderim yolu başladı: typing:stop gider.
type SendStarted struct{}

// MessageSent, gönderenin kendi mesajı REST'ten döndü. Poll'u beklemeden listeye eklenir.
type MessageSent struct {
	ConversationID string
	Message        models.Message
}

type Connected struct{}
type Disconnected struct{ Err error }

func (Push) input()              {}
func (SnapshotLoaded) input()    {}
func (ReadReported) input()      {}
func (DeliveredReported) input() {}
func (PollTick) input()          {}
func (SweepTick) input()         {}
func (IdleFired) input()         {}
func (Keystroke) input()         {}
func (Mount) input()             {}
func (Unmount) input()           {}
func (SendStarted) input()       {}
func (MessageSent) input()       {}
func (Connected) input()         {}
func (Disconnected) input()      {}

// ─── Effects ───

// Effect, Reconciler'ın istediği yan etki. Session uygular.
type Effect interface{ effect() }

// EmitFrame, {conversationId} payload'lu bir frame gönder.
type EmitFrame struct {
	Op             Op
	ConversationID string
}

type ArmIdleTimer struct {
	Token uint64
	After time.Duration
}

type CancelIdleTimer struct{}

// ResetMount, önceki mount'un uçuştaki isteklerini iptal et.
type ResetMount struct{ Generation uint64 }

type FetchSnapshot struct {
	ConversationID string
	Generation     uint64
}

type ReportRead struct {
	ConversationID string
	Generation     uint64
	MessageID      string
}

type ReportDelivered struct {
	ConversationID string
	Generation     uint64
	MessageIDs     []string
}

// Changed, görünüm değişti.
type Changed struct{}

func (EmitFrame) effect()       {}
func (ArmIdleTimer) effect()    {}
func (CancelIdleTimer) effect() {}
func (ResetMount) effect()      {}
func (FetchSnapshot) effect()   {}
func (ReportRead) effect()      {}
func (ReportDelivered) effect() {}
func (Changed) effect()         {}

// ─── View ───

// View, UI'ın render ettiği anlık görüntü. Kopyadır; değiştirmek Reconciler'ı etkilemez.
type View struct {
	Connected      bool
	SelfID         string
	ConversationID string
	Messages       []models.Message
	OnlineUserIDs  []string
	TypingUserIDs  []string // aktif sohbette yazan diğer kullanıcılar
	LastError      *Error
}

// ─── Reconciler ───

// Reconciler, istemci tarafının tek durum makinesi. I/O yapmaz, zaman parametre
// olarak gelir; aynı girdi dizisi her zaman aynı effect dizisini üretir.
//
// Mesaj listesi her snapshot'ta tamamen değiştirilir. Push ile gelen mesajlar ve
// gönderenin kendi mesajı bir sonraki snapshot'a kadar listeye eklenir.
type Reconciler struct {
	selfID    string
	connected bool
	online    map[string]bool
	typing    *TypingTracker
	composer  *Composer

	conversationID string
	generation     uint64
	messages       []models.Message
	readAcked      string          // server'ın kabul ettiği son okuma bildirimi
	deliveredAcked map[string]bool // server'ın kabul ettiği teslim bildirimleri
	lastError      *Error
}

// NewReconciler, selfID boş olabilir; ilk snapshot'taki current_user_id ile dolar.
func NewReconciler(selfID string, typingMinDisplay, typingIdle time.Duration) *Reconciler {
	return &Reconciler{
		selfID:         selfID,
		online:         make(map[string]bool),
		typing:         NewTypingTracker(typingMinDisplay),
		composer:       NewComposer(typingIdle),
		deliveredAcked: make(map[string]bool),
	}
}

// Apply, bir girdiyi işler ve yapılacak effect'leri döner.
func (r *Reconciler) Apply(now time.Time, in Input) []Effect {
	switch in := in.(type) {
	case Push:
		return r.applyPush(now, in.Frame)
	case SnapshotLoaded:
		return r.applySnapshot(in)
	case ReadReported:
		if r.current(in.ConversationID, in.Generation) && in.Outcome.OK {
			r.readAcked = in.MessageID
		}
		return nil
	case DeliveredReported:
		if r.current(in.ConversationID, in.Generation) && in.Outcome.OK {
			for _, id := range in.MessageIDs {
				r.deliveredAcked[id] = true
			}
		}
		return nil
	case PollTick:
		if r.conversationID == "" {
			return nil
		}
		return []Effect{FetchSnapshot{ConversationID: r.conversationID, Generation: r.generation}}
	case SweepTick:
		if r.typing.Sweep(now) > 0 {
			return []Effect{Changed{}}
		}
		return nil
	case IdleFired:
		return r.composer.IdleFired(in.Token)
	case Keystroke:
		return r.composer.Keystroke(in.Text)
	case SendStarted:
		return r.composer.Stop()
	case Mount:
		return r.mount(in.ConversationID)
	case Unmount:
		return r.mount("")
	case MessageSent:
		if in.ConversationID != r.conversationID {
			return nil
		}
		if r.appendMessage(in.Message) {
			return []Effect{Changed{}}
		}
		return nil
	case Connected:
		r.connected = true
		r.lastError = nil
		effects := []Effect{}
		if r.conversationID != "" {
			effects = append(effects, EmitFrame{Op: OpConversationJoin, ConversationID: r.conversationID})
		}
		return append(effects, Changed{})
	case Disconnected:
		r.connected = false
		if in.Err != nil {
			r.lastError = asError(in.Err)
		}
		r.typing.StopAll()
		return append(r.composer.Reset(), Changed{})
	}
	return nil
}

func (r *Reconciler) current(conversationID string, generation uint64) bool {
	return conversationID == r.conversationID && generation == r.generation
}

// mount, sohbet değişimi. Eski sohbette typing kapatılır, oda terk edilir, uçuştaki
// istekler yeni generation ile geçersiz kalır.
func (r *Reconciler) mount(conversationID string) []Effect {
	if conversationID == r.conversationID {
		return nil
	}

	var effects []Effect
	effects = append(effects, r.composer.Switch(conversationID)...)
	if r.conversationID != "" && r.connected {
		effects = append(effects, EmitFrame{Op: OpConversationLeave, ConversationID: r.conversationID})
	}

	r.conversationID = conversationID
	r.generation++
	r.messages = nil
	r.readAcked = ""
	r.deliveredAcked = make(map[string]bool)

	effects = append(effects, ResetMount{Generation: r.generation})
	if conversationID != "" {
		if r.connected {
			effects = append(effects, EmitFrame{Op: OpConversationJoin, ConversationID: conversationID})
		}
		effects = append(effects, FetchSnapshot{ConversationID: conversationID, Generation: r.generation})
	}
	return append(effects, Changed{})
}

func (r *Reconciler) applySnapshot(in SnapshotLoaded) []Effect {
	if !r.current(in.ConversationID, in.Generation) {
		return nil // eski mount'un geç gelen yanıtı
	}
	if in.Err != nil || in.Page == nil {
		return nil // bir sonraki poll tekrar dener
	}

	if in.Page.CurrentUserID != "" {
		r.selfID = in.Page.CurrentUserID
	}
	r.messages = append([]models.Message(nil), in.Page.Messages...)

	effects := []Effect{Changed{}}
	if len(r.messages) == 0 {
		return effects
	}

	newest := r.messages[len(r.messages)-1].ID
	if newest != r.readAcked {
		effects = append(effects, ReportRead{ConversationID: r.conversationID, Generation: r.generation, MessageID: newest})
	}
	if ids := r.unacknowledged(r.messages); len(ids) > 0 {
		effects = append(effects, ReportDelivered{ConversationID: r.conversationID, Generation: r.generation, MessageIDs: ids})
	}
	return effects
}

// unacknowledged, kendi mesajlarımız hariç teslim bildirimi kabul edilmemiş id'ler.
func (r *Reconciler) unacknowledged(messages []models.Message) []string {
	var ids []string
	for _, m := range messages {
		if m.SenderID == r.selfID || r.deliveredAcked[m.ID] {
			continue
		}
		ids = append(ids, m.ID)
	}
	return ids
}

func (r *Reconciler) applyPush(now time.Time, f Frame) []Effect {
	switch f.Op {
	case OpPresenceInitial:
		var d presenceInitial
		if json.Unmarshal(f.Data, &d) != nil {
			return nil
		}
		r.online = make(map[string]bool, len(d.UserIDs))
		for _, id := range d.UserIDs {
			r.online[id] = true
		}
		// Snapshot'ta olmayan kullanıcının offline update'i kaçırılmış olabilir.
		r.typing.StopOffline(r.online)
		return []Effect{Changed{}}

	case OpPresenceUpdate:
		var d presenceUpdate
		if json.Unmarshal(f.Data, &d) != nil || d.UserID == "" {
			return nil
		}
		if d.Status == statusOnline {
			r.online[d.UserID] = true
		} else {
			delete(r.online, d.UserID)
			r.typing.StopUser(d.UserID)
		}
		return []Effect{Changed{}}

	case OpTypingStart, OpTypingStop:
		var d typingEvent
		if json.Unmarshal(f.Data, &d) != nil || d.UserID == "" || d.ConversationID == "" {
			return nil
		}
		if d.UserID == r.selfID {
			return nil // aynı kullanıcının başka sekmesi
		}
		if f.Op == OpTypingStart {
			r.typing.Start(now, d.ConversationID, d.UserID)
		} else {
			r.typing.Stop(d.ConversationID, d.UserID)
		}
		return []Effect{Changed{}}

	case OpMessageNew:
		var m models.Message
		if json.Unmarshal(f.Data, &m) != nil || m.ConversationID != r.conversationID || r.conversationID == "" {
			return nil
		}
		if !r.appendMessage(m) {
			return nil
		}
		effects := []Effect{Changed{}}
		if ids := r.unacknowledged([]models.Message{m}); len(ids) > 0 {
			effects = append(effects, ReportDelivered{ConversationID: r.conversationID, Generation: r.generation, MessageIDs: ids})
		}
		return effects

	case OpMessageUpdate:
		var m models.Message
		if json.Unmarshal(f.Data, &m) != nil {
			return nil
		}
		for i := range r.messages {
			if r.messages[i].ID == m.ID {
				// Status görüntüleyene özeldir; push'ta yoktur, eskisi korunur.
				m.Status = r.messages[i].Status
				r.messages[i] = m
				return []Effect{Changed{}}
			}
		}
		return nil

	case OpMessageDelete:
		var ref models.MessageRef
		if json.Unmarshal(f.Data, &ref) != nil {
			return nil
		}
		for i := range r.messages {
			if r.messages[i].ID == ref.ID {
				deletedAt := now.UTC()
				r.messages[i].Text = nil
				r.messages[i].DeletedAt = &deletedAt
				return []Effect{Changed{}}
			}
		}
		return nil

	case OpReactionUpdate:
		var u models.ReactionUpdate
		if json.Unmarshal(f.Data, &u) != nil {
			return nil
		}
		for i := range r.messages {
			if r.messages[i].ID == u.MessageID {
				r.messages[i].Reactions = u.Reactions
				return []Effect{Changed{}}
			}
		}
		return nil

	case OpError:
		var d errorEvent
		if json.Unmarshal(f.Data, &d) != nil {
			return nil
		}
		r.lastError = &Error{Code: ParseErrorCode(d.Message), Message: string(d.Event)}
		return []Effect{Changed{}}
	}
	return nil
}

// appendMessage, id listede yoksa sona ekler.
func (r *Reconciler) appendMessage(m models.Message) bool {
	for _, existing := range r.messages {
		if existing.ID == m.ID {
			return false
		}
	}
	r.messages = append(r.messages, m)
	return true
}

// View, now anına göre görünümü üretir.
func (r *Reconciler) View(now time.Time) View {
	v := View{
		Connected:      r.connected,
		SelfID:         r.selfID,
		ConversationID: r.conversationID,
		Messages:       append([]models.Message(nil), r.messages...),
		LastError:      r.lastError,
	}

	for id := range r.online {
		v.OnlineUserIDs = append(v.OnlineUserIDs, id)
	}
	sort.Strings(v.OnlineUserIDs)

	if r.conversationID != "" {
		v.TypingUserIDs = r.typing.Users(now, r.conversationID)
	}
	return v
}

// IsOnline, presence görünümü.
func (r *Reconciler) IsOnline(userID string) bool { return r.online[userID] }

// Announced, yerel kullanıcı için typing duyurulmuş mu.
func (r *Reconciler) Announced() bool { return r.composer.Announced() }

func asError(err error) *Error {
	if e, ok := err.(*Error); ok {
		return e
	}
	return WrapError(ErrorDisconnected, "connection lost", err)
}
