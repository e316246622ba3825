package session

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"wardrobeapi/models"
)

const renderFailedMessage = "Failed to generate try-on image"

// RenderTrigger keeps the composite in step with the outfit and portrait.
// Every method must be called on the session's control thread; completions
// are posted back through it. Only the newest epoch may land.
type RenderTrigger struct {
	thread   *controlThread
	outfit   *OutfitSelector
	portrait *PortraitSlot
	renderer Renderer
	clock    Clock
	window   time.Duration
	timeout  time.Duration
	log      *logrus.Entry

	state   models.RenderState
	delayed Timer
	closed  bool
	wg      sync.WaitGroup
}

type renderOptions struct {
	clock   Clock
	window  time.Duration
	timeout time.Duration
	log     *logrus.Entry
}

func newRenderTrigger(thread *controlThread, outfit *OutfitSelector, portrait *PortraitSlot, renderer Renderer, opts renderOptions) *RenderTrigger {
	if opts.clock == nil {
		opts.clock = RealClock
	}
	if opts.log == nil {
		opts.log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &RenderTrigger{
		thread:   thread,
		outfit:   outfit,
		portrait: portrait,
		renderer: renderer,
		clock:    opts.clock,
		window:   opts.window,
		timeout:  opts.timeout,
		log:      opts.log,
		state:    models.RenderState{Status: models.RenderIdle},
	}
}

func (t *RenderTrigger) State() models.RenderState {
	state := t.state
	if state.Image != nil {
		image := *state.Image
		state.Image = &image
	}
	return state
}

func (t *RenderTrigger) OutfitChanged() {
	t.evaluate()
}

// PortraitChanged drops the composite built on the previous portrait.
func (t *RenderTrigger) PortraitChanged() {
	t.state.Image = nil
	t.evaluate()
}

func (t *RenderTrigger) evaluate() {
	if t.closed {
		return
	}
	t.stopDelayed()

	if t.outfit.IsEmpty() {
		t.state = models.RenderState{Status: models.RenderIdle, Epoch: t.state.Epoch}
		return
	}

	portrait := t.portrait.Get()
	if portrait == nil {
		t.state.Status = models.RenderAwaitingPortrait
		t.state.Error = ""
		return
	}

	t.state.Epoch++
	t.state.Status = models.RenderRendering
	t.state.Error = ""
	epoch := t.state.Epoch

	items := t.outfit.Outfit().Items()
	garments := make([]models.ImageData, 0, len(items))
	for _, item := range items {
		garments = append(garments, item.ImageBlob)
	}

	if t.window <= 0 {
		t.dispatch(epoch, *portrait, garments)
		return
	}
	t.delayed = t.clock.AfterFunc(t.window, func() {
		t.thread.Do(func() {
			if t.closed || !t.current(epoch) {
				return
			}
			t.delayed = nil
			t.dispatch(epoch, *portrait, garments)
		})
	})
}

func (t *RenderTrigger) current(epoch uint64) bool {
	return t.state.Status == models.RenderRendering && t.state.Epoch == epoch
}

func (t *RenderTrigger) dispatch(epoch uint64, portrait models.ImageData, garments []models.ImageData) {
	log := t.log.WithField("epoch", epoch)
	log.WithField("garments", len(garments)).Debug("Dispatching try-on render")

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		ctx := context.Background()
		if t.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, t.timeout)
			defer cancel()
		}
		image, err := t.renderer.RenderTryOn(ctx, portrait, garments)
		t.thread.Do(func() {
			t.complete(epoch, image, err)
		})
	}()
}

func (t *RenderTrigger) complete(epoch uint64, image models.ImageData, err error) {
	log := t.log.WithField("epoch", epoch)
	if !t.current(epoch) {
		log.WithField("current", t.state.Epoch).Debug("Discarding stale render result")
		return
	}
	if err == nil && image.IsZero() {
		err = ErrEmptyRender
	}
	if err != nil {
		log.WithError(err).Warn("Try-on render failed")
		t.state.Status = models.RenderFailed
		t.state.Error = renderFailedMessage
		return
	}
	t.state.Status = models.RenderRendered
	t.state.Image = &image
	t.state.Error = ""
}

func (t *RenderTrigger) stopDelayed() {
	if t.delayed != nil {
		t.delayed.Stop()
		t.delayed = nil
	}
}

// close stops any delayed dispatch. Must run on the control thread.
func (t *RenderTrigger) close() {
	t.closed = true
	t.stopDelayed()
}

// Wait blocks until every dispatched render has reported back.
// It must not be called on the control thread.
func (t *RenderTrigger) Wait() {
	t.wg.Wait()
}
