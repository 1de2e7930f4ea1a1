// internal/services/animatic.go
package services

import (
	"sync"
	"time"

	apperrors "github.com/Corphon/StoryboardStudio/internal/errors"
	"github.com/Corphon/StoryboardStudio/internal/models"
)

// Timer is a pending scheduled call.
type Timer interface {
	Stop() bool
}

// Scheduler runs f once after d.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realScheduler struct{}

func (realScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// RealScheduler uses the wall clock.
var RealScheduler Scheduler = realScheduler{}

// PanelSource returns a copy of the panels to play, read under the project lock.
type PanelSource func() []*models.Panel

// AnimaticPlayer steps through a project's panels on a timer.
type AnimaticPlayer struct {
	mu        sync.Mutex
	state     models.AnimaticState
	panels    PanelSource
	scheduler Scheduler
	onFrame   func(models.AnimaticFrame)
	onStop    func(models.AnimaticState)
	timer     Timer
	gen       uint64
}

// NewAnimaticPlayer creates a stopped player.
func NewAnimaticPlayer(panels PanelSource, scheduler Scheduler, onFrame func(models.AnimaticFrame), onStop func(models.AnimaticState)) *AnimaticPlayer {
	if scheduler == nil {
		scheduler = RealScheduler
	}
	if onFrame == nil {
		onFrame = func(models.AnimaticFrame) {}
	}
	if onStop == nil {
		onStop = func(models.AnimaticState) {}
	}
	return &AnimaticPlayer{
		state:     models.AnimaticState{Status: models.AnimaticStopped},
		panels:    panels,
		scheduler: scheduler,
		onFrame:   onFrame,
		onStop:    onStop,
	}
}

// State returns the playback cursor.
func (a *AnimaticPlayer) State() models.AnimaticState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// BuildFrame describes panel i of panels. Progress is the runtime share before i.
func BuildFrame(panels []*models.Panel, i int) models.AnimaticFrame {
	var before, total float64
	for j, p := range panels {
		d := p.Duration.Value()
		if j < i {
			before += d
		}
		total += d
	}

	p := panels[i]
	frame := models.AnimaticFrame{
		Index:    i,
		Total:    len(panels),
		PanelID:  p.ID,
		ImageURL: p.ImageURL,
		Prompt:   p.Prompt,
		Duration: p.Duration.Value(),
	}
	if frame.ImageURL == "" {
		frame.ImageURL = models.AnimaticPlaceholderURL
	}
	if total > 0 {
		frame.Progress = before / total
	}
	return frame
}

// Start begins playback from the current index. It needs at least one generated image.
func (a *AnimaticPlayer) Start() (models.AnimaticFrame, error) {
	panels := a.panels()
	hasImage := false
	for _, p := range panels {
		if p.HasImage() {
			hasImage = true
			break
		}
	}
	if !hasImage {
		return models.AnimaticFrame{}, apperrors.NewValidationError("generate at least one panel image before playing the animatic", nil)
	}

	a.mu.Lock()
	if a.state.CurrentIndex >= len(panels) {
		a.state.CurrentIndex = 0
	}
	a.setStatus(models.AnimaticPlaying)
	frame := a.showLocked(panels, a.state.CurrentIndex)
	a.mu.Unlock()

	a.onFrame(frame)
	return frame, nil
}

// Pause cancels the pending advance and keeps the index.
func (a *AnimaticPlayer) Pause() models.AnimaticState {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state.Status == models.AnimaticPlaying {
		a.cancelLocked()
		a.setStatus(models.AnimaticPaused)
	}
	return a.state
}

// Next shows the following panel, wrapping to the first.
func (a *AnimaticPlayer) Next() (*models.AnimaticFrame, error) {
	return a.step(1)
}

// Prev shows the preceding panel, wrapping to the last.
func (a *AnimaticPlayer) Prev() (*models.AnimaticFrame, error) {
	return a.step(-1)
}

func (a *AnimaticPlayer) step(delta int) (*models.AnimaticFrame, error) {
	panels := a.panels()

	a.mu.Lock()
	a.cancelLocked()
	n := len(panels)
	if n == 0 {
		state := a.stopLocked()
		a.mu.Unlock()
		a.onStop(state)
		return nil, apperrors.NewValidationError("storyboard has no panels", nil)
	}
	i := ((a.state.CurrentIndex+delta)%n + n) % n
	frame := a.showLocked(panels, i)
	a.mu.Unlock()

	a.onFrame(frame)
	return &frame, nil
}

// Stop cancels playback and rewinds to the first panel.
func (a *AnimaticPlayer) Stop() models.AnimaticState {
	a.mu.Lock()
	a.cancelLocked()
	state := a.stopLocked()
	a.mu.Unlock()
	a.onStop(state)
	return state
}

func (a *AnimaticPlayer) advance(gen uint64) {
	panels := a.panels()

	a.mu.Lock()
	if gen != a.gen || a.state.Status != models.AnimaticPlaying {
		a.mu.Unlock()
		return
	}
	a.timer = nil
	n := len(panels)
	if n == 0 {
		state := a.stopLocked()
		a.mu.Unlock()
		a.onStop(state)
		return
	}
	frame := a.showLocked(panels, (a.state.CurrentIndex+1)%n)
	a.mu.Unlock()

	a.onFrame(frame)
}

func (a *AnimaticPlayer) showLocked(panels []*models.Panel, i int) models.AnimaticFrame {
	a.state.CurrentIndex = i
	frame := BuildFrame(panels, i)
	if a.state.Status == models.AnimaticPlaying {
		a.gen++
		gen := a.gen
		a.timer = a.scheduler.AfterFunc(panels[i].Duration.Duration(), func() { a.advance(gen) })
	}
	return frame
}

func (a *AnimaticPlayer) cancelLocked() {
	a.gen++
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
}

func (a *AnimaticPlayer) stopLocked() models.AnimaticState {
	a.setStatus(models.AnimaticStopped)
	a.state.CurrentIndex = 0
	return a.state
}

func (a *AnimaticPlayer) setStatus(s models.AnimaticStatus) {
	a.state.Status = s
	a.state.IsPlaying = s == models.AnimaticPlaying
}
