package main

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const mainWindow = "main"

// LeafFinder locates the open document that renders a target.
type LeafFinder interface {
	LeafFor(ctx context.Context, t Target) (string, error)
}

// Watcher is anything that can keep itself current in the background.
type Watcher interface {
	StartWatch(ctx context.Context) (stop func(), err error)
}

// Plugin turns host events into zoom operations.
type Plugin struct {
	log      *zap.Logger
	host     Host
	leaves   LeafFinder
	zoomer   *Zoomer
	gestures *gestures
	watcher  Watcher

	stopWatch func()
}

func NewPlugin(cfg *Config, ws *Workspace, host Host, log *zap.Logger) *Plugin {
	p := newPlugin(cfg, ws, ws, host, log)
	p.watcher = ws
	return p
}

func newPlugin(cfg *Config, docs DocumentStore, leaves LeafFinder, host Host, log *zap.Logger) *Plugin {
	return &Plugin{
		log:      log,
		host:     host,
		leaves:   leaves,
		zoomer:   NewZoomer(docs, log),
		gestures: newGestures(cfg.Gesture, newScrollInterceptor(host)),
	}
}

func (p *Plugin) Load(ctx context.Context) error {
	p.gestures.register(mainWindow)
	if p.watcher != nil {
		stop, err := p.watcher.StartWatch(ctx)
		if err != nil {
			return err
		}
		p.stopWatch = stop
	}
	p.log.Info("Loaded: image wheel zoom")
	return nil
}

// Unload restores default scrolling in every registered window.
func (p *Plugin) Unload() error {
	if p.stopWatch != nil {
		p.stopWatch()
		p.stopWatch = nil
	}
	err := p.gestures.disarmAll()
	p.log.Info("Unloaded: image wheel zoom")
	return err
}

// HandleEvent processes one host event. Failures end here: they are logged,
// and a panic leaves the window idle with scrolling restored.
func (p *Plugin) HandleEvent(ctx context.Context, ev Event) {
	win := ev.window()
	log := p.log.With(zap.String("window", win), zap.String("event", ev.Type))

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("panic: %v", r)
			if er := p.gestures.disarm(win); er != nil {
				err = multierr.Append(err, er)
			}
			log.Error("Event handler failed", zap.Error(err))
		}
	}()

	if err := p.dispatch(ctx, win, ev); err != nil {
		switch {
		case errors.Is(err, ErrUnsupportedImage), errors.Is(err, ErrTargetNotFound),
			errors.Is(err, ErrRewriteMismatch), errors.Is(err, context.Canceled):
			log.Debug("Wheel had no effect", zap.Error(err))
		default:
			log.Warn("Unable to handle event", zap.Error(err))
		}
	}
}

func (p *Plugin) dispatch(ctx context.Context, win string, ev Event) error {
	switch ev.Type {
	case EventWindowOpen:
		p.gestures.register(win)
		return nil
	case EventWindowClose:
		return p.gestures.unregister(win)
	case EventKeyDown:
		p.gestures.keyDown(win, ev.Code)
		return nil
	case EventKeyUp:
		return p.gestures.keyUp(win, ev.Code)
	case EventWheel:
		return p.wheel(ctx, win, ev)
	default:
		return fmt.Errorf("unknown event type %q", ev.Type)
	}
}

func (p *Plugin) wheel(ctx context.Context, win string, ev Event) error {
	verdict, err := p.gestures.wheel(win, WheelEvent{DeltaY: ev.DeltaY, Mods: ev.Modifiers, Target: ev.Target})
	if err != nil {
		return err
	}
	if !verdict.Zoom {
		// Canvas targets only capture the wheel; resizing canvas nodes is not
		// supported.
		return nil
	}
	if !isPNGDataURI(ev.Target.Src) {
		return ErrUnsupportedImage
	}

	path, err := p.leaves.LeafFor(ctx, ev.Target)
	if err != nil {
		return err
	}
	res, err := p.zoomer.Zoom(ctx, ZoomRequest{
		Path:     path,
		URI:      ev.Target.Src,
		Rendered: ev.Target.Width,
		DeltaY:   ev.DeltaY,
	})
	if err != nil {
		return err
	}
	return p.host.Zoomed(win, res)
}

// Serve feeds events from the host into the plugin until the input ends or ctx
// is done.
func (p *Plugin) Serve(ctx context.Context, events <-chan Event) error {
	if err := p.Load(ctx); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return p.Unload()
		case ev, ok := <-events:
			if !ok {
				return p.Unload()
			}
			p.HandleEvent(ctx, ev)
		}
	}
}
