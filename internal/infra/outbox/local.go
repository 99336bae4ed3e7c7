package outbox

import "context"

// LocalProducer hands envelopes straight to an in-process consumer when no broker is configured.
type LocalProducer struct {
	Deliver func(ctx context.Context, env Envelope) error
}

func (p LocalProducer) Publish(ctx context.Context, _ string, _ string, payload []byte, _ map[string]string) error {
	if p.Deliver == nil {
		return nil
	}
	env, err := DecodeEnvelope(payload)
	if err != nil {
		return err
	}
	return p.Deliver(ctx, env)
}

var _ Producer = LocalProducer{}
