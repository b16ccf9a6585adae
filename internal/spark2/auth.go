package spark2

// Authenticator is the assumed message-integrity boundary hook (spec.md §1
// Non-goals: "authentication beyond message integrity (a MAC/HMAC hook is
// assumed available)"). This package only carries the pluggable contract;
// it does not implement a concrete MAC/HMAC scheme, matching the teacher's
// AuthKeyStore boundary (internal/bfd/auth.go) but trimmed to the interface
// only since the concrete digest algorithm is out of scope for this spec.
type Authenticator interface {
	// Sign appends or attaches whatever authentication material the
	// implementation requires to an outgoing hello's raw bytes.
	Sign(raw []byte) ([]byte, error)

	// Verify checks an incoming hello's authentication material. A
	// failure here is a PacketValidationFailure: dropped silently, logged,
	// and counted (spec.md §7).
	Verify(raw []byte) error
}

// NoopAuthenticator is the default Authenticator: no message integrity
// check is performed. Used when the deployment has not wired a concrete
// MAC/HMAC implementation.
type NoopAuthenticator struct{}

// Sign returns raw unchanged.
func (NoopAuthenticator) Sign(raw []byte) ([]byte, error) { return raw, nil }

// Verify always succeeds.
func (NoopAuthenticator) Verify([]byte) error { return nil }
