// Package viewmodel turns store streams into UI states a client can render.
package viewmodel

import (
	"context"
	"errors"
	"sync"

	"gfgchapter/services"
)

type Status string

const (
	StatusLoading Status = "loading"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// UIState is what a screen shows: a spinner, data, or an error message.
type UIState[T any] struct {
	Status  Status `json:"status"`
	Data    T      `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

func Loading[T any]() UIState[T] {
	return UIState[T]{Status: StatusLoading}
}

func Success[T any](data T) UIState[T] {
	return UIState[T]{Status: StatusSuccess, Data: data}
}

func Failure[T any](msg string) UIState[T] {
	return UIState[T]{Status: StatusError, Message: msg}
}

// Observable holds one value and wakes readers when it changes.
//
// Readers take Changes() before Value() so an update in between is not lost:
//
//	ch := obs.Changes()
//	render(obs.Value())
//	<-ch
type Observable[T any] struct {
	mu      sync.RWMutex
	value   T
	changed chan struct{}
}

func NewObservable[T any](initial T) *Observable[T] {
	return &Observable[T]{value: initial, changed: make(chan struct{})}
}

func (o *Observable[T]) Value() T {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.value
}

func (o *Observable[T]) Set(v T) {
	o.mu.Lock()
	o.value = v
	close(o.changed)
	o.changed = make(chan struct{})
	o.mu.Unlock()
}

// Changes returns a channel closed by the next Set.
func (o *Observable[T]) Changes() <-chan struct{} {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.changed
}

// live mirrors at most one store stream into an Observable. Starting a new
// stream cancels the old one; emissions from a cancelled stream are dropped.
type live[T any] struct {
	parent context.Context
	state  *Observable[UIState[T]]

	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
}

func newLive[T any](parent context.Context) *live[T] {
	return &live[T]{parent: parent, state: NewObservable(Loading[T]())}
}

func (l *live[T]) follow(subscribe func(ctx context.Context) (<-chan T, error)) {
	l.mu.Lock()
	if l.cancel != nil {
		l.cancel()
	}
	l.gen++
	gen := l.gen
	ctx, cancel := context.WithCancel(l.parent)
	l.cancel = cancel
	l.state.Set(Loading[T]())
	l.mu.Unlock()

	stream, err := subscribe(ctx)
	if err != nil {
		l.publish(gen, Failure[T](errorMessage(err)))
		return
	}

	go func() {
		for v := range stream {
			l.publish(gen, Success(v))
		}
	}()
}

func (l *live[T]) publish(gen uint64, s UIState[T]) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if gen != l.gen {
		return
	}
	l.state.Set(s)
}

func (l *live[T]) stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
	l.gen++
}

// errorMessage picks the text shown to the user for err.
func errorMessage(err error) string {
	var se *services.StoreError
	if errors.As(err, &se) {
		return se.Message()
	}
	return "Something went wrong. Please try again."
}
