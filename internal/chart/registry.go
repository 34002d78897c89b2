package chart

import (
	"encoding/json"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/ziadkadry99/deckviz/internal/dom"
)

// Instance is a live chart bound to a canvas.
type Instance interface {
	CanvasID() string
	Destroy() error
	Live() bool
}

// Registry tracks the current Instance of each canvas.
type Registry struct {
	mu     sync.Mutex
	live   map[string]Instance
	logger *zap.Logger
}

// NewRegistry returns an empty Registry. A nil logger is replaced with a no-op.
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{live: make(map[string]Instance), logger: logger}
}

// Replace destroys any instance already bound to id and records inst in its
// place. A destroy failure is logged; inst is still recorded.
func (r *Registry) Replace(id string, inst Instance) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var destroyErr error
	if prev, ok := r.live[id]; ok && prev != inst {
		if err := prev.Destroy(); err != nil {
			destroyErr = fmt.Errorf("destroying chart on %s: %w", id, err)
			r.logger.Warn("chart destroy failed", zap.String("canvas", id), zap.Error(err))
		}
	}
	if inst == nil {
		delete(r.live, id)
	} else {
		r.live[id] = inst
	}
	return destroyErr
}

// Get returns the instance bound to id.
func (r *Registry) Get(id string) (Instance, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inst, ok := r.live[id]
	return inst, ok
}

// Len returns how many canvases hold an instance.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.live)
}

// DestroyAll destroys and forgets every instance.
func (r *Registry) DestroyAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, inst := range r.live {
		if err := inst.Destroy(); err != nil {
			r.logger.Warn("chart destroy failed", zap.String("canvas", id), zap.Error(err))
		}
		delete(r.live, id)
	}
}

// binding is an Instance that lives in the document as a JSON script element
// placed right after its canvas. The page script turns it into a Chart.js
// object; destroying the binding removes the element.
type binding struct {
	canvas string
	el     *dom.Element
	config json.RawMessage
}

func (b *binding) CanvasID() string { return b.canvas }

func (b *binding) Live() bool { return b.el.Attached() }

func (b *binding) Destroy() error {
	b.el.Remove()
	return nil
}

// Config returns the serialized Chart.js configuration.
func (b *binding) Config() json.RawMessage { return b.config }

// Configured is implemented by instances that expose their Chart.js config.
type Configured interface {
	Config() json.RawMessage
}

// Adapter renders chart specs into a document through a Registry.
type Adapter struct {
	registry *Registry
}

// NewAdapter returns an Adapter backed by reg.
func NewAdapter(reg *Registry) *Adapter {
	return &Adapter{registry: reg}
}

// Registry returns the adapter's registry.
func (a *Adapter) Registry() *Registry { return a.registry }

// Render binds spec to its canvas in doc, destroying the previous chart on
// that canvas. A missing canvas returns ErrCanvasMissing and changes nothing.
func (a *Adapter) Render(doc *dom.Document, spec Spec) (Instance, error) {
	canvas := doc.ByID(spec.Canvas)
	if canvas == nil {
		return nil, fmt.Errorf("%s: %w", spec.Canvas, ErrCanvasMissing)
	}
	if !spec.Config.Type.Valid() {
		return nil, fmt.Errorf("chart on %s: unsupported type %q", spec.Canvas, spec.Config.Type)
	}
	cfg, err := spec.Config.JSON()
	if err != nil {
		return nil, err
	}

	el := canvas.InsertAfter("script").
		SetAttr("type", "application/json").
		SetAttr("class", "deck-chart").
		SetAttr("data-canvas", spec.Canvas).
		AppendText(string(cfg))
	inst := &binding{canvas: spec.Canvas, el: el, config: cfg}

	if err := a.registry.Replace(spec.Canvas, inst); err != nil {
		return inst, err
	}
	return inst, nil
}
