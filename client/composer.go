package client

import (
	"strings"
	"time"
)

// Composer, yerel kullanıcının typing sinyallerini üretir.
//
// Boş olmayan her tuş vuruşu typing:start gönderir ve idle zamanlayıcısını yeniden
// kurar; zamanlayıcı dolunca typing:stop gider. Metin boşalınca, sohbet değişince
// veya mesaj gönderilince typing:stop hemen gider ve zamanlayıcı iptal edilir.
//
// Zamanlayıcının kendisi Session'dadır. Composer her kurulumda yeni bir token verir;
// eski token ile gelen IdleFired yok sayılır.
type Composer struct {
	idle           time.Duration
	conversationID string
	announced      bool
	token          uint64
}

func NewComposer(idle time.Duration) *Composer {
	return &Composer{idle: idle}
}

// Announced, typing:start gönderilmiş ve henüz stop gitmemiş mi.
func (c *Composer) Announced() bool { return c.announced }

// Switch, aktif sohbeti değiştirir. Önceki sohbette typing duyurulmuşsa stop üretir.
func (c *Composer) Switch(conversationID string) []Effect {
	effects := c.Stop()
	c.conversationID = conversationID
	return effects
}

// Keystroke, input alanının yeni değeri.
func (c *Composer) Keystroke(text string) []Effect {
	if c.conversationID == "" {
		return nil
	}
	if strings.TrimSpace(text) == "" {
		return c.Stop()
	}

	c.token++
	c.announced = true
	return []Effect{
		EmitFrame{Op: OpTypingStart, ConversationID: c.conversationID},
		ArmIdleTimer{Token: c.token, After: c.idle},
	}
}

// IdleFired, zamanlayıcının dolduğunu bildirir.
func (c *Composer) IdleFired(token uint64) []Effect {
	if token != c.token || !c.announced {
		return nil
	}
	c.announced = false
	return []Effect{EmitFrame{Op: OpTypingStop, ConversationID: c.conversationID}}
}

// Stop, duyurulmuş typing'i hemen bitirir ve zamanlayıcıyı iptal eder.
func (c *Composer) Stop() []Effect {
	if !c.announced {
		return nil
	}
	c.announced = false
	c.token++
	return []Effect{
		CancelIdleTimer{},
		EmitFrame{Op: OpTypingStop, ConversationID: c.conversationID},
	}
}

// Reset, bağlantı koptuğunda çağrılır: stop gönderilemez, sadece durum ve zamanlayıcı temizlenir.
func (c *Composer) Reset() []Effect {
	if !c.announced {
		return nil
	}
	c.announced = false
	c.token++
	return []Effect{CancelIdleTimer{}}
}
