package normalize

// BinaryPayloadFields names the opaque on-chain payload variants the router
// attaches to each feed. They are meant for cryptographic consumers, can be
// large, and are never useful to a tool caller.
var BinaryPayloadFields = []string{"evm", "solana", "leEcdsa", "leUnsigned", "leSigned"}

// StripBinaryFields returns a shallow copy of the feed object with every
// binary payload field removed. The input map is never mutated and stripping
// an already-stripped feed is a no-op.
func StripBinaryFields(feed map[string]any) map[string]any {
	cleaned := make(map[string]any, len(feed))
	for k, v := range feed {
		cleaned[k] = v
	}
	for _, field := range BinaryPayloadFields {
		delete(cleaned, field)
	}
	return cleaned
}
