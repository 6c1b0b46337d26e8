// FILE: src/internal/metadata/binding.go
package metadata

import "context"

// Binding is the handle for one chain of scoped metadata keys.
// Close releases every key of the chain at once and is safe to call twice.
type Binding struct {
	node *Scope
}

// Bind returns a context carrying key=value on top of ctx's bindings.
// Only the returned context and contexts derived from it see the key.
func Bind(ctx context.Context, key string, value any) (context.Context, *Binding) {
	if ctx == nil {
		ctx = context.Background()
	}
	node := &Scope{
		parent: scopeFrom(ctx),
		values: map[string]string{key: FormatValue(value)},
	}
	return context.WithValue(ctx, scopeKey{}, node), &Binding{node: node}
}

// And adds another key to the same chain
func (b *Binding) And(key string, value any) *Binding {
	if b == nil {
		return nil
	}
	b.node.set(key, FormatValue(value))
	return b
}

// Keys returns the keys introduced by the chain
func (b *Binding) Keys() []string {
	if b == nil {
		return nil
	}
	return b.node.keys()
}

// Close hides the chain's keys, restoring any shadowed values
func (b *Binding) Close() error {
	if b == nil {
		return nil
	}
	b.node.close()
	return nil
}
