package types

// Version is the canonical project version.
// The CLI, the event contract and the frame contract share this version.
const Version = "0.1.0"
