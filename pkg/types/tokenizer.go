package types

// Tokenizer turns a markdown fragment into a token sequence.
//
// Implementations must be stateless across calls so fragments can be
// tokenized independently and merged. Every block other than a fenced code
// block must close at a blank line; the append and chunk paths rely on it.
// Ownership of the returned tokens passes to the caller.
type Tokenizer interface {
	Tokenize(text string, env *Env) ([]*Token, error)
}

// TokenizerFunc adapts a plain function to the Tokenizer interface
type TokenizerFunc func(text string, env *Env) ([]*Token, error)

// Tokenize calls f(text, env)
func (f TokenizerFunc) Tokenize(text string, env *Env) ([]*Token, error) {
	return f(text, env)
}
