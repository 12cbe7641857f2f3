// Copyright 2026 The ClaimGate Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package config

import (
	"sync"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
)

// Principals is the live principal set. The admission layer reads it on
// every request; Watch swaps the set in place when the config file changes,
// so key rotation does not need a restart.
type Principals struct {
	mu   sync.RWMutex
	list []Principal
}

// NewPrincipals builds the live set from a loaded config.
func NewPrincipals(cfg *Config) *Principals {
	return &Principals{list: append([]Principal(nil), cfg.APIKeys...)}
}

// All returns a snapshot of the current principal set.
func (p *Principals) All() []Principal {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]Principal(nil), p.list...)
}

// ByID returns the principal with the given id, if present.
func (p *Principals) ByID(id string) (Principal, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, pr := range p.list {
		if pr.ID == id {
			return pr, true
		}
	}
	return Principal{}, false
}

func (p *Principals) replace(list []Principal) {
	p.mu.Lock()
	p.list = append([]Principal(nil), list...)
	p.mu.Unlock()
}

// Watch reloads the principal set whenever the config file at path is
// rewritten. A reload that fails to parse keeps the previous set. The
// returned stop function releases the watcher.
func (p *Principals) Watch(path string) (stop func(), err error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(path); err != nil {
		w.Close()
		return nil, err
	}

	done := make(chan struct{})
	go func() {
		for {
			select {
			case event, ok := <-w.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				cfg, err := LoadConfig(path)
				if err != nil {
					log.Warnf("Config reload skipped: %v", err)
					continue
				}
				p.replace(cfg.APIKeys)
				log.Infof("Reloaded %d API key(s) from %s", len(cfg.APIKeys), path)
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				log.Warnf("Config watcher error: %v", err)
			case <-done:
				return
			}
		}
	}()

	return func() {
		close(done)
		w.Close()
	}, nil
}
