package actor

// PID identifies a running actor process.
type PID struct {
	ID string
}

func (p *PID) String() string {
	if p == nil {
		return "<nil>"
	}
	return p.ID
}
