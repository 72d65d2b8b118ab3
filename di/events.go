package di

import (
	"time"

	"go.uber.org/zap"

	"github.com/sghaida/odirt/typeref"
)

// Handlers returns the handlers whose event type accepts payloads of sig,
// in registration order.
func (c *Container) Handlers(sig string) ([]*EventHandlerDefinition, error) {
	payload, err := c.graph.types.Resolve(sig)
	if err != nil {
		return nil, ResolutionError{Kind: typeKind(err), Type: sig, Err: err}
	}
	return c.handlers(payload), nil
}

func (c *Container) handlers(payload *typeref.Ref) []*EventHandlerDefinition {
	var out []*EventHandlerDefinition
	for _, h := range c.graph.events {
		if typeref.IsAssignableFrom(h.eventType, payload) {
			out = append(out, h)
		}
	}
	return out
}

// Dispatch invokes every handler accepting a payload of type sig, in
// registration order. Owners of non-static handlers are resolved through the
// container. The first failing handler stops the dispatch.
func (c *Container) Dispatch(sig string, payload any) error {
	ref, err := c.graph.types.Resolve(sig)
	if err != nil {
		err = ResolutionError{Kind: typeKind(err), Type: sig, Err: err}
		c.obs.Dispatched(sig, 0, err)
		return err
	}

	ran, err := c.dispatch(ref, payload)
	c.obs.Dispatched(ref.Key(), ran, err)
	return err
}

func (c *Container) dispatch(ref *typeref.Ref, payload any) (int, error) {
	st := &call{}
	ran := 0
	for _, h := range c.handlers(ref) {
		var owner any
		if h.owner != nil {
			o, err := c.lookup(h.owner, st)
			if err != nil {
				return ran, err
			}
			owner = o
		}

		start := time.Now()
		if err := protect(func() error { return h.handler(owner, payload) }); err != nil {
			return ran, ResolutionError{Kind: KindProviderFailed, Type: h.name, Err: err}
		}
		ran++
		c.log.Debug("event handled",
			zap.String("handler", h.name),
			zap.String("payload", ref.Key()),
			zap.Duration("took", time.Since(start)),
		)
	}
	return ran, c.drain(st)
}
