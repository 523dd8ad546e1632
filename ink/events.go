package ink

// CreateStrokeHandler is notified after a stroke is created.
type CreateStrokeHandler func(stroke *Stroke)

// StylusHandler is notified after a point is appended, carrying only the
// new point so a renderer can draw the new segment instead of the whole
// stroke.
type StylusHandler func(stroke *Stroke, p Point)

// EraseStrokesHandler is notified after strokes are marked inactive, with
// the id list of the erase operation.
type EraseStrokesHandler func(ids []string)

// ClearHandler is notified after the document is cleared.
type ClearHandler func()

type createListener struct {
	id uint32
	fn CreateStrokeHandler
}

type stylusListener struct {
	id uint32
	fn StylusHandler
}

type eraseListener struct {
	id uint32
	fn EraseStrokesHandler
}

type clearListener struct {
	id uint32
	fn ClearHandler
}

// HandleCreateStroke registers h for stroke creation events. Handlers run
// synchronously, in registration order, once the causing mutation
// completed.
func (d *Document) HandleCreateStroke(h CreateStrokeHandler) (cancel func()) {
	d.listenerMutex.Lock()
	defer d.listenerMutex.Unlock()

	id := d.listenerIDs.New()
	d.createListeners = append(d.createListeners, createListener{id: id, fn: h})

	return func() {
		d.listenerMutex.Lock()
		defer d.listenerMutex.Unlock()

		for i, l := range d.createListeners {
			if l.id == id {
				d.createListeners = append(d.createListeners[:i], d.createListeners[i+1:]...)
				d.listenerIDs.Reuse(id)
				return
			}
		}
	}
}

// HandleStylus registers h for appended-point events.
func (d *Document) HandleStylus(h StylusHandler) (cancel func()) {
	d.listenerMutex.Lock()
	defer d.listenerMutex.Unlock()

	id := d.listenerIDs.New()
	d.stylusListeners = append(d.stylusListeners, stylusListener{id: id, fn: h})

	return func() {
		d.listenerMutex.Lock()
		defer d.listenerMutex.Unlock()

		for i, l := range d.stylusListeners {
			if l.id == id {
				d.stylusListeners = append(d.stylusListeners[:i], d.stylusListeners[i+1:]...)
				d.listenerIDs.Reuse(id)
				return
			}
		}
	}
}

// HandleEraseStrokes registers h for erase events.
func (d *Document) HandleEraseStrokes(h EraseStrokesHandler) (cancel func()) {
	d.listenerMutex.Lock()
	defer d.listenerMutex.Unlock()

	id := d.listenerIDs.New()
	d.eraseListeners = append(d.eraseListeners, eraseListener{id: id, fn: h})

	return func() {
		d.listenerMutex.Lock()
		defer d.listenerMutex.Unlock()

		for i, l := range d.eraseListeners {
			if l.id == id {
				d.eraseListeners = append(d.eraseListeners[:i], d.eraseListeners[i+1:]...)
				d.listenerIDs.Reuse(id)
				return
			}
		}
	}
}

// HandleClear registers h for clear events.
func (d *Document) HandleClear(h ClearHandler) (cancel func()) {
	d.listenerMutex.Lock()
	defer d.listenerMutex.Unlock()

	id := d.listenerIDs.New()
	d.clearListeners = append(d.clearListeners, clearListener{id: id, fn: h})

	return func() {
		d.listenerMutex.Lock()
		defer d.listenerMutex.Unlock()

		for i, l := range d.clearListeners {
			if l.id == id {
				d.clearListeners = append(d.clearListeners[:i], d.clearListeners[i+1:]...)
				d.listenerIDs.Reuse(id)
				return
			}
		}
	}
}

func (d *Document) emitCreateStroke(stroke *Stroke) {
	d.listenerMutex.RLock()
	listeners := make([]createListener, len(d.createListeners))
	copy(listeners, d.createListeners)
	d.listenerMutex.RUnlock()

	for _, l := range listeners {
		l.fn(stroke)
	}
}

func (d *Document) emitStylus(stroke *Stroke, p Point) {
	d.listenerMutex.RLock()
	listeners := make([]stylusListener, len(d.stylusListeners))
	copy(listeners, d.stylusListeners)
	d.listenerMutex.RUnlock()

	for _, l := range listeners {
		l.fn(stroke, p)
	}
}

func (d *Document) emitEraseStrokes(ids []string) {
	d.listenerMutex.RLock()
	listeners := make([]eraseListener, len(d.eraseListeners))
	copy(listeners, d.eraseListeners)
	d.listenerMutex.RUnlock()

	for _, l := range listeners {
		l.fn(ids)
	}
}

func (d *Document) emitClear() {
	d.listenerMutex.RLock()
	listeners := make([]clearListener, len(d.clearListeners))
	copy(listeners, d.clearListeners)
	d.listenerMutex.RUnlock()

	for _, l := range listeners {
		l.fn()
	}
}
