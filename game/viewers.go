package game

// viewer is one display endpoint attached to a room.
type viewer struct {
	id   string
	conn Conn
}

// viewerRegistry tracks a room's viewers as an ordered list. The head of the
// list is the primary; when it leaves, the next viewer is promoted, so there
// is exactly one primary whenever any viewer exists.
type viewerRegistry struct {
	viewers []*viewer
}

// add appends a viewer. The first viewer becomes primary.
func (vr *viewerRegistry) add(id string, conn Conn) (isPrimary bool) {
	vr.viewers = append(vr.viewers, &viewer{id: id, conn: conn})
	return len(vr.viewers) == 1
}

// remove drops a viewer by id. It reports whether the primary changed, and
// returns the newly promoted primary (nil when no viewers remain or the
// removed viewer was not the primary).
func (vr *viewerRegistry) remove(id string) (promoted *viewer) {
	for i, v := range vr.viewers {
		if v.id == id {
			wasPrimary := i == 0
			vr.viewers = append(vr.viewers[:i], vr.viewers[i+1:]...)
			if wasPrimary && len(vr.viewers) > 0 {
				return vr.viewers[0]
			}
			return nil
		}
	}
	return nil
}

// primary returns the current primary viewer, or nil.
func (vr *viewerRegistry) primary() *viewer {
	if len(vr.viewers) == 0 {
		return nil
	}
	return vr.viewers[0]
}

// isPrimary reports whether the given viewer id drives playback.
func (vr *viewerRegistry) isPrimary(id string) bool {
	p := vr.primary()
	return p != nil && p.id == id
}

// byID finds a viewer.
func (vr *viewerRegistry) byID(id string) *viewer {
	for _, v := range vr.viewers {
		if v.id == id {
			return v
		}
	}
	return nil
}

// empty reports whether no viewers are attached.
func (vr *viewerRegistry) empty() bool {
	return len(vr.viewers) == 0
}

// each visits every viewer in order.
func (vr *viewerRegistry) each(fn func(*viewer)) {
	for _, v := range vr.viewers {
		fn(v)
	}
}
