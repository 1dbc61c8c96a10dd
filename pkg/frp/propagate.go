package frp

import "time"

// beginPass starts a pass for src, or joins the pass in progress when a
// listener emits into a different source.
func (r *registry) beginPass(src *core) *pass {
	if r.pass != nil {
		r.pass.depth++
		return r.pass
	}
	r.passSeq++
	p := &pass{seq: r.passSeq, source: src, start: time.Now()}
	r.pass = p
	if r.hooks.OnPassStart != nil {
		r.hooks.OnPassStart(PassInfo{Seq: p.seq, Source: src.id, Label: src.label})
	}
	return p
}

func (r *registry) endPass(p *pass) error {
	if p.depth > 0 {
		p.depth--
		return p.err
	}
	r.pass = nil
	info := PassInfo{
		Seq:      p.seq,
		Source:   p.source.id,
		Label:    p.source.label,
		Steps:    p.steps,
		Duration: time.Since(p.start),
		Err:      p.err,
	}
	if r.hooks.OnPassEnd != nil {
		r.hooks.OnPassEnd(info)
	}
	r.logger.Debug("frp pass complete", "seq", p.seq, "source", p.source.label, "steps", p.steps)
	return p.err
}

// admit counts a delivery against the pass budget. It returns the step
// number and false once the pass has been aborted.
func (r *registry) admit(c *core) (int, bool) {
	p := r.pass
	if p == nil {
		return 0, true
	}
	if p.err != nil {
		return p.steps, false
	}
	p.steps++
	if r.maxSteps > 0 && p.steps > r.maxSteps {
		p.err = &PropagationError{
			Code:    CodeStepsExceeded,
			Message: "pass exceeded its step budget",
			Source:  p.source.label,
			NodeID:  c.id,
			Pass:    p.seq,
		}
		r.logger.Error("frp pass aborted", "seq", p.seq, "source", p.source.label, "node", c.label, "limit", r.maxSteps)
		if r.hooks.OnReject != nil {
			r.hooks.OnReject(p.err)
		}
		return p.steps, false
	}
	return p.steps, true
}

func (r *registry) reject(src *core) error {
	err := &PropagationError{
		Code:    CodeReentrantEmit,
		Message: "source emitted during its own propagation",
		Source:  src.label,
		NodeID:  src.id,
	}
	if r.pass != nil {
		err.Pass = r.pass.seq
	}
	r.logger.Error("frp re-entrant emit rejected", "source", src.label, "id", src.id)
	if r.hooks.OnReject != nil {
		r.hooks.OnReject(err)
	}
	return err
}
