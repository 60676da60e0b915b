package types

// RatchetHeader is sent alongside every pairwise ciphertext and is bound to
// it as AEAD associated data.
type RatchetHeader struct {
	RatchetKey          X25519Public `json:"dh_pub"`
	PreviousChainLength uint32       `json:"pn"`
	MessageIndex        uint32       `json:"n"`
}

// Envelope is the decoded wire form of one pairwise message.
type Envelope struct {
	Header RatchetHeader  `json:"header"`
	PreKey *PreKeyMessage `json:"pre_key,omitempty"`
	Cipher []byte         `json:"cipher"`
}
