package types

// SignedPreKeyPair is the full signed pre-key stored locally. The signature
// covers the public half and is made with the identity Ed25519 key.
type SignedPreKeyPair struct {
	ID   uint32         `json:"id"`
	Priv X25519Private  `json:"priv"`
	Pub  X25519Public   `json:"pub"`
	Sig  []byte         `json:"sig"`
}

// OneTimePreKeyPair is the full (private+public) one-time pre-key stored locally.
type OneTimePreKeyPair struct {
	ID   uint32        `json:"id"`
	Priv X25519Private `json:"priv"`
	Pub  X25519Public  `json:"pub"`
}

// OneTimePreKeyPublic is only the public half (sent in bundles).
type OneTimePreKeyPublic struct {
	ID  uint32       `json:"id"`
	Pub X25519Public `json:"pub"`
}

// PreKeyBundle is the public snapshot a party publishes so that peers can
// start sessions asynchronously. At most one unused one-time pre-key is
// included per bundle.
type PreKeyBundle struct {
	IdentityKey           X25519Public         `json:"identity_key"`
	SigningKey            Ed25519Public        `json:"signing_key"`
	SignedPreKeyID        uint32               `json:"signed_pre_key_id"`
	SignedPreKey          X25519Public         `json:"signed_pre_key"`
	SignedPreKeySignature []byte               `json:"signed_pre_key_signature"`
	OneTimePreKey         *OneTimePreKeyPublic `json:"one_time_pre_key,omitempty"`
}

// PreKeyMessage carries the X3DH handshake parameters inside the first
// message envelope of a session.
type PreKeyMessage struct {
	InitiatorIdentityKey X25519Public `json:"initiator_identity_key"`
	EphemeralKey         X25519Public `json:"ephemeral_key"`
	SignedPreKeyID       uint32       `json:"signed_pre_key_id"`
	HasOneTimePreKey     bool         `json:"has_one_time_pre_key"`
	OneTimePreKeyID      uint32       `json:"one_time_pre_key_id,omitempty"`
}
