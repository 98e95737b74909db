// Package main: Realtime katmanı başlatma.
//
// initRealtime, fan-out taşıyıcısını (opsiyonel) ve WebSocket Hub'ı kurar.
// FANOUT_DRIVER=none tek process'li kurulumdur; redis ve nats çok process'li
// dağıtımda broadcast'leri node'lar arasında taşır.
package main

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/akinalp/gooverchat/config"
	"github.com/akinalp/gooverchat/fanout"
	"github.com/akinalp/gooverchat/pkg/logger"
	"github.com/akinalp/gooverchat/ws"
)

// initRealtime, hub'ı kurar ve Run goroutine'ini başlatır. Fan-out kurulamazsa
// hub tek node olarak çalışır. Dönen fonksiyon hub'ı ve taşıyıcıları sırayla kapatır.
func initRealtime(cfg *config.Config, membership ws.MembershipChecker) (*ws.Hub, func(), error) {
	nodeID := cfg.Realtime.NodeID
	if nodeID == "" {
		nodeID = uuid.NewString()
	}

	adapter, directory, closeFanout := initFanout(cfg, nodeID)

	hub, err := ws.NewHub(ws.HubConfig{
		Membership:  membership,
		JoinTimeout: cfg.Realtime.JoinLookupTimeout,
		NodeID:      nodeID,
		Fanout:      adapter,
		Directory:   directory,
	})
	if err != nil {
		closeFanout()
		return nil, nil, err
	}
	go hub.Run()

	return hub, func() {
		hub.Shutdown()
		closeFanout()
	}, nil
}

// initFanout, cfg.Fanout.Driver'a göre adapter ve directory kurar.
// Presence directory sadece redis ile vardır; nats'ta presence node-yereldir.
func initFanout(cfg *config.Config, nodeID string) (fanout.Adapter, fanout.Directory, func()) {
	noop := func() {}
	fc := cfg.Fanout

	switch fc.Driver {
	case "redis":
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		rdb, err := fanout.NewRedisClient(ctx, fc.RedisURL)
		if err != nil {
			logger.Warnf("[main] redis fan-out unavailable, running single node: %v", err)
			return nil, nil, noop
		}

		adapter := fanout.NewRedisAdapter(rdb, fc.Channel)
		var directory fanout.Directory
		dir, err := fanout.NewRedisDirectory(ctx, rdb, nodeID, fc.PresenceTTL)
		if err != nil {
			logger.Warnf("[main] redis presence directory unavailable: %v", err)
		} else {
			directory = dir
		}

		logger.Infof("[main] fan-out: redis channel=%s", fc.Channel)
		return adapter, directory, func() {
			if directory != nil {
				_ = directory.Close()
			}
			_ = adapter.Close()
			_ = rdb.Close()
		}

	case "nats":
		adapter, err := fanout.NewNATSAdapter(fc.NATSURL, fc.Channel, "gooverchat-"+nodeID)
		if err != nil {
			logger.Warnf("[main] nats fan-out unavailable, running single node: %v", err)
			return nil, nil, noop
		}
		logger.Infof("[main] fan-out: nats subject=%s", fc.Channel)
		return adapter, nil, func() { _ = adapter.Close() }
	}

	return nil, nil, noop
}
